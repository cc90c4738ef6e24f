// Package config loads the droidscreen YAML configuration and lets command
// line flags override it.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cowby123/droidscreen/adb"
	"github.com/cowby123/droidscreen/internal/capture"
	"github.com/cowby123/droidscreen/internal/log"
)

// Config is the complete application configuration.
type Config struct {
	Device  DeviceConfig  `yaml:"device"`
	Capture CaptureConfig `yaml:"capture"`
	Retry   RetryConfig   `yaml:"retry"`
	Log     LogConfig     `yaml:"log"`
	Display DisplayConfig `yaml:"display"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// DeviceConfig selects the device and the adb server.
type DeviceConfig struct {
	Serial      string `yaml:"serial"`   // empty: the only attached device
	ADBHost     string `yaml:"adb_host"` // default 127.0.0.1
	ADBPort     int    `yaml:"adb_port"` // default 5037
	StartServer bool   `yaml:"start_server"`
}

// CaptureConfig mirrors capture.Config in file-friendly units.
type CaptureConfig struct {
	Width            int    `yaml:"width"`
	Height           int    `yaml:"height"`
	Mode             string `yaml:"mode"` // h264, jpeg, png, raw
	NativeIntervalMS int    `yaml:"native_interval_ms"`
	ProbeSize        int    `yaml:"probe_size"`
	IOBufferSize     int    `yaml:"io_buffer_size"`
	ReadTimeoutMS    int    `yaml:"read_timeout_ms"`
	InputFormat      string `yaml:"input_format"`
	QueueSize        int    `yaml:"queue_size"` // frames held for the consumer
}

// RetryConfig controls whole-session restarts.
type RetryConfig struct {
	Enabled    bool `yaml:"enabled"`
	MaxRetries int  `yaml:"max_retries"`
	DelayMS    int  `yaml:"delay_ms"`
	MaxDelayMS int  `yaml:"max_delay_ms"`
}

// LogConfig 日誌設定
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error, silent
	Format string `yaml:"format"` // console, json
}

// DisplayConfig controls the SDL viewer.
type DisplayConfig struct {
	Enabled bool   `yaml:"enabled"`
	Title   string `yaml:"title"`
}

// MetricsConfig exposes expvar and pprof over HTTP when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Device: DeviceConfig{
			ADBHost:     adb.DefaultServerHost,
			ADBPort:     adb.DefaultServerPort,
			StartServer: true,
		},
		Capture: CaptureConfig{
			Width:            480,
			Height:           800,
			Mode:             "h264",
			NativeIntervalMS: 200,
			ProbeSize:        32,
			IOBufferSize:     8192,
			ReadTimeoutMS:    50,
			QueueSize:        2,
		},
		Retry: RetryConfig{
			MaxRetries: 5,
			DelayMS:    1000,
			MaxDelayMS: 30000,
		},
		Log:     LogConfig{Level: "info", Format: "console"},
		Display: DisplayConfig{Enabled: true, Title: "droidscreen"},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return &cfg, Validate(&cfg)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// ADBOptions returns the adb connection options.
func (c *Config) ADBOptions() adb.Options {
	return adb.Options{
		Serial:     c.Device.Serial,
		ServerHost: c.Device.ADBHost,
		ServerPort: c.Device.ADBPort,
	}
}

// CaptureConfig converts the capture section. Validate must have passed.
func (c *Config) CaptureConfig() capture.Config {
	mode, _ := capture.ParseMode(c.Capture.Mode)
	return capture.Config{
		Width:          c.Capture.Width,
		Height:         c.Capture.Height,
		Mode:           mode,
		NativeInterval: time.Duration(c.Capture.NativeIntervalMS) * time.Millisecond,
		ProbeSize:      c.Capture.ProbeSize,
		IOBufferSize:   c.Capture.IOBufferSize,
		ReadTimeout:    time.Duration(c.Capture.ReadTimeoutMS) * time.Millisecond,
		InputFormat:    c.Capture.InputFormat,
	}
}

// RetryPolicy converts the retry section.
func (c *Config) RetryPolicy() capture.RetryConfig {
	return capture.RetryConfig{
		MaxRetries:    c.Retry.MaxRetries,
		RetryDelay:    time.Duration(c.Retry.DelayMS) * time.Millisecond,
		MaxRetryDelay: time.Duration(c.Retry.MaxDelayMS) * time.Millisecond,
	}
}

// LogLevel returns the parsed log level. Validate must have passed.
func (c *Config) LogLevel() log.Level {
	lvl, _ := log.ParseLevel(c.Log.Level)
	return lvl
}
