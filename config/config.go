package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the configuration shared by the kinectskel binaries.
type Config struct {
	JointNames      string  `yaml:"joint_names"`
	ConnectTimeoutS float64 `yaml:"connect_timeout_s"`

	Viewer     ViewerConfig     `yaml:"viewer"`
	Renderer   RendererConfig   `yaml:"renderer"`
	BodyStream BodyStreamConfig `yaml:"body_stream"`
	Recording  RecordingConfig  `yaml:"recording"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	DMX        DMXConfig        `yaml:"dmx"`
}

type ViewerConfig struct {
	Scale  float64 `yaml:"scale"`
	Mirror bool    `yaml:"mirror"`
	// DepthOverlay tints everything closer than MaxDepthMM.
	DepthOverlay bool `yaml:"depth_overlay"`
	MaxDepthMM   int  `yaml:"max_depth_mm"`
	RefreshHz    int  `yaml:"refresh_hz"`
}

type RendererConfig struct {
	UpperBodyOnly  bool    `yaml:"upper_body_only"`
	LineColor      string  `yaml:"line_color"` // #rrggbb
	Thickness      int     `yaml:"thickness"`
	DrawThreshold  bool    `yaml:"draw_threshold"`
	ThresholdLevel float64 `yaml:"threshold_level"`
}

type BodyStreamConfig struct {
	Addr string `yaml:"addr"`
}

type RecordingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Database string `yaml:"database"`
	FrameDir string `yaml:"frame_dir"`
}

// MQTTConfig enables gesture publishing when Broker is set.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	QoS      byte   `yaml:"qos"`
}

// DMXConfig lights an RGB fixture per hand while the hand is raised.
type DMXConfig struct {
	Enabled      bool `yaml:"enabled"`
	LeftAddress  int  `yaml:"left_address"`
	RightAddress int  `yaml:"right_address"`
}

func Default() *Config {
	return &Config{
		JointNames:      "kinect_joint_names.json",
		ConnectTimeoutS: 10,
		Viewer: ViewerConfig{
			Scale:      0.5,
			MaxDepthMM: 1500,
			RefreshHz:  30,
		},
		Renderer: RendererConfig{
			UpperBodyOnly:  true,
			LineColor:      "#ffffff",
			Thickness:      15,
			DrawThreshold:  true,
			ThresholdLevel: 0.2,
		},
		BodyStream: BodyStreamConfig{
			Addr: "224.76.78.75:20810",
		},
		Recording: RecordingConfig{
			Database: "sessions.db",
			FrameDir: "frames",
		},
		MQTT: MQTTConfig{
			ClientID: "kinectskel",
			Topic:    "kinectskel/gestures",
		},
		DMX: DMXConfig{
			LeftAddress:  1,
			RightAddress: 4,
		},
	}
}

// Load reads a YAML configuration file. Settings missing from the file keep
// their default value.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutS * float64(time.Second))
}

func (c *Config) RefreshInterval() time.Duration {
	return time.Second / time.Duration(c.Viewer.RefreshHz)
}
