package config

import (
	"fmt"
	"image/color"
	"net/netip"

	"essaim.dev/kinectskel/skeleton"
)

// Validate checks if the configuration is valid. It never modifies cfg,
// defaults come from Default.
func Validate(cfg *Config) error {
	if cfg.JointNames == "" {
		return fmt.Errorf("joint_names is required")
	}
	if cfg.ConnectTimeoutS <= 0 {
		return fmt.Errorf("connect_timeout_s must be > 0")
	}

	if cfg.Viewer.Scale <= 0 || cfg.Viewer.Scale > 4 {
		return fmt.Errorf("viewer.scale must be in (0, 4]")
	}
	if cfg.Viewer.RefreshHz <= 0 || cfg.Viewer.RefreshHz > 120 {
		return fmt.Errorf("viewer.refresh_hz must be in (0, 120]")
	}
	if cfg.Viewer.MaxDepthMM <= 0 || cfg.Viewer.MaxDepthMM > 0xffff {
		return fmt.Errorf("viewer.max_depth_mm must be in (0, 65535]")
	}

	if _, err := parseHexColor(cfg.Renderer.LineColor); err != nil {
		return fmt.Errorf("renderer.line_color: %w", err)
	}
	if cfg.Renderer.Thickness <= 0 {
		return fmt.Errorf("renderer.thickness must be > 0")
	}
	if cfg.Renderer.ThresholdLevel < 0 || cfg.Renderer.ThresholdLevel > 1 {
		return fmt.Errorf("renderer.threshold_level must be in [0, 1]")
	}

	if _, err := netip.ParseAddrPort(cfg.BodyStream.Addr); err != nil {
		return fmt.Errorf("body_stream.addr: %w", err)
	}

	if cfg.Recording.Enabled && (cfg.Recording.Database == "" || cfg.Recording.FrameDir == "") {
		return fmt.Errorf("recording.database and recording.frame_dir are required when recording is enabled")
	}

	if cfg.MQTT.Broker != "" {
		if cfg.MQTT.Topic == "" {
			return fmt.Errorf("mqtt.topic is required when mqtt.broker is set")
		}
		if cfg.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
		}
	}

	if cfg.DMX.Enabled {
		for name, addr := range map[string]int{"left_address": cfg.DMX.LeftAddress, "right_address": cfg.DMX.RightAddress} {
			if addr < 1 || addr > 510 {
				return fmt.Errorf("dmx.%s must be in [1, 510]", name)
			}
		}
	}

	return nil
}

// Options converts the renderer settings. The configuration must have been
// validated.
func (c RendererConfig) Options() skeleton.Options {
	col, _ := parseHexColor(c.LineColor)
	return skeleton.Options{
		UpperBodyOnly:  c.UpperBodyOnly,
		LineColor:      col,
		Thickness:      c.Thickness,
		DrawThreshold:  c.DrawThreshold,
		ThresholdLevel: c.ThresholdLevel,
	}
}

func parseHexColor(s string) (color.RGBA, error) {
	c := color.RGBA{A: 255}
	if len(s) != 7 || s[0] != '#' {
		return c, fmt.Errorf("invalid color %q, expected #rrggbb", s)
	}
	if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &c.R, &c.G, &c.B); err != nil {
		return c, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return c, nil
}
