package config

import "flag"

// RegisterFlags 註冊命令行參數，回傳的函式只會覆寫實際有指定的參數
func RegisterFlags(fs *flag.FlagSet) func(cfg *Config) {
	// 設備序號或 IP:Port，留空則使用唯一連接的設備
	serial := fs.String("device", "", "Android device serial or IP:Port (empty: the only attached device)")
	host := fs.String("adb-host", "", "adb server host")
	port := fs.Int("adb-port", 0, "adb server port")

	width := fs.Int("width", 0, "output frame width")
	height := fs.Int("height", 0, "output frame height")
	mode := fs.String("mode", "", "capture mode: h264, jpeg, png or raw")
	interval := fs.Int("interval-ms", 0, "snapshot interval in milliseconds")

	retry := fs.Bool("retry", false, "restart failed sessions with backoff")
	level := fs.String("log-level", "", "debug, info, warn, error or silent")
	format := fs.String("log-format", "", "console or json")
	headless := fs.Bool("headless", false, "do not open a viewer window")
	metrics := fs.String("metrics-addr", "", "serve /debug/vars and /debug/pprof on this address")

	return func(cfg *Config) {
		fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "device":
				cfg.Device.Serial = *serial
			case "adb-host":
				cfg.Device.ADBHost = *host
			case "adb-port":
				cfg.Device.ADBPort = *port
			case "width":
				cfg.Capture.Width = *width
			case "height":
				cfg.Capture.Height = *height
			case "mode":
				cfg.Capture.Mode = *mode
			case "interval-ms":
				cfg.Capture.NativeIntervalMS = *interval
			case "retry":
				cfg.Retry.Enabled = *retry
			case "log-level":
				cfg.Log.Level = *level
			case "log-format":
				cfg.Log.Format = *format
			case "headless":
				cfg.Display.Enabled = !*headless
			case "metrics-addr":
				cfg.Metrics.Addr = *metrics
			}
		})
	}
}
