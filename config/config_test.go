package config

import (
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "kinectskel.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %s", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate(Default()) error: %s", err)
	}

	opts := cfg.Renderer.Options()
	if !opts.UpperBodyOnly || !opts.DrawThreshold || opts.Thickness != 15 || opts.ThresholdLevel != 0.2 {
		t.Errorf("default renderer options = %+v", opts)
	}
	if opts.LineColor != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("default line color = %v, expected white", opts.LineColor)
	}
	if cfg.ConnectTimeout() != 10*time.Second {
		t.Errorf("ConnectTimeout() = %s, expected 10s", cfg.ConnectTimeout())
	}
}

func TestLoadKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
connect_timeout_s: 2.5
viewer:
  scale: 1
renderer:
  line_color: "#00ff80"
  upper_body_only: false
mqtt:
  broker: localhost:1883
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %s", err)
	}

	if cfg.ConnectTimeout() != 2500*time.Millisecond {
		t.Errorf("ConnectTimeout() = %s, expected 2.5s", cfg.ConnectTimeout())
	}
	if cfg.Viewer.Scale != 1 || cfg.Viewer.RefreshHz != 30 {
		t.Errorf("viewer = %+v", cfg.Viewer)
	}

	opts := cfg.Renderer.Options()
	if opts.UpperBodyOnly {
		t.Error("upper_body_only not overridden")
	}
	if opts.Thickness != 15 {
		t.Errorf("thickness = %d, expected default 15", opts.Thickness)
	}
	if opts.LineColor != (color.RGBA{0, 255, 128, 255}) {
		t.Errorf("line color = %v", opts.LineColor)
	}
	if cfg.MQTT.Topic != "kinectskel/gestures" {
		t.Errorf("mqtt topic = %q, expected default", cfg.MQTT.Topic)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad yaml", "viewer: [", "failed to parse config"},
		{"zero timeout", "connect_timeout_s: 0", "connect_timeout_s"},
		{"bad scale", "viewer:\n  scale: -1", "viewer.scale"},
		{"zero refresh", "viewer:\n  refresh_hz: 0", "viewer.refresh_hz"},
		{"bad color", "renderer:\n  line_color: white", "renderer.line_color"},
		{"bad level", "renderer:\n  threshold_level: 1.5", "renderer.threshold_level"},
		{"bad address", "body_stream:\n  addr: nowhere", "body_stream.addr"},
		{"bad qos", "mqtt:\n  broker: localhost:1883\n  qos: 3", "mqtt.qos"},
		{"dmx address", "dmx:\n  enabled: true\n  right_address: 511", "dmx.right_address"},
		{"recording without db", "recording:\n  enabled: true\n  database: \"\"", "recording.database"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateLeavesConfigUntouched(t *testing.T) {
	cfg := Default()
	cfg.Viewer.RefreshHz = 0

	if err := Validate(cfg); err == nil || !strings.Contains(err.Error(), "viewer.refresh_hz") {
		t.Errorf("expected a viewer.refresh_hz error, got %v", err)
	}
	if cfg.Viewer.RefreshHz != 0 {
		t.Errorf("Validate() changed refresh_hz to %d", cfg.Viewer.RefreshHz)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
