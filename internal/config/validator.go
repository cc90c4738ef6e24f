package config

import (
	"fmt"

	"github.com/cowby123/droidscreen/internal/capture"
	"github.com/cowby123/droidscreen/internal/log"
)

// Validate checks cfg and fills zero values with defaults.
func Validate(cfg *Config) error {
	def := Default()

	if cfg.Device.ADBHost == "" {
		cfg.Device.ADBHost = def.Device.ADBHost
	}
	if cfg.Device.ADBPort == 0 {
		cfg.Device.ADBPort = def.Device.ADBPort
	}
	if cfg.Device.ADBPort < 0 || cfg.Device.ADBPort > 65535 {
		return fmt.Errorf("device.adb_port %d out of range", cfg.Device.ADBPort)
	}

	if cfg.Capture.Width <= 0 || cfg.Capture.Height <= 0 {
		return fmt.Errorf("capture.width and capture.height must be > 0")
	}
	if cfg.Capture.Mode == "" {
		cfg.Capture.Mode = def.Capture.Mode
	}
	if _, err := capture.ParseMode(cfg.Capture.Mode); err != nil {
		return fmt.Errorf("capture.mode: %w", err)
	}
	if cfg.Capture.NativeIntervalMS <= 0 {
		cfg.Capture.NativeIntervalMS = def.Capture.NativeIntervalMS
	}
	if cfg.Capture.QueueSize <= 0 {
		cfg.Capture.QueueSize = def.Capture.QueueSize
	}
	cc := cfg.CaptureConfig()
	if err := cc.Validate(); err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	// write back the tuning defaults capture applied
	cfg.Capture.ProbeSize = cc.ProbeSize
	cfg.Capture.IOBufferSize = cc.IOBufferSize
	cfg.Capture.ReadTimeoutMS = int(cc.ReadTimeout.Milliseconds())

	if cfg.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must be >= 0")
	}
	if cfg.Retry.DelayMS <= 0 {
		cfg.Retry.DelayMS = def.Retry.DelayMS
	}
	if cfg.Retry.MaxDelayMS < cfg.Retry.DelayMS {
		cfg.Retry.MaxDelayMS = cfg.Retry.DelayMS
	}

	if _, err := log.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch cfg.Log.Format {
	case "":
		cfg.Log.Format = def.Log.Format
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", cfg.Log.Format)
	}

	if cfg.Display.Title == "" {
		cfg.Display.Title = def.Display.Title
	}
	return nil
}
