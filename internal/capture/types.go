package capture

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Mode selects how frames are acquired from the device.
type Mode int

const (
	// ModeH264 decodes the raw H.264 stream produced by screenrecord.
	ModeH264 Mode = iota
	ModeSnapshotJPEG
	ModeSnapshotPNG
	ModeSnapshotRaw
)

var modeNames = map[Mode]string{
	ModeH264:         "h264",
	ModeSnapshotJPEG: "jpeg",
	ModeSnapshotPNG:  "png",
	ModeSnapshotRaw:  "raw",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// Snapshot reports whether m is one of the still-image modes.
func (m Mode) Snapshot() bool {
	return m == ModeSnapshotJPEG || m == ModeSnapshotPNG || m == ModeSnapshotRaw
}

// ParseMode accepts the names printed by Mode.String.
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return ModeH264, fmt.Errorf("unknown capture mode %q", s)
}

// Config is the per-session capture configuration. Width and Height are
// fixed for the lifetime of a session.
type Config struct {
	Width  int
	Height int
	Mode   Mode

	// NativeInterval is the sleep between snapshots.
	NativeInterval time.Duration

	// ProbeSize is the demuxer probe budget in bytes. The stream carries no
	// container, so a few bytes of the first access unit are enough.
	ProbeSize int
	// IOBufferSize is the size of the buffer handed to the byte source.
	IOBufferSize int
	// ReadTimeout bounds each wait for device bytes and therefore the
	// interruption latency.
	ReadTimeout time.Duration
	// InputFormat optionally forces the demuxer ("h264"); empty lets it probe.
	InputFormat string
}

// DefaultConfig returns a 480x800 H.264 configuration.
func DefaultConfig() Config {
	return Config{
		Width:          480,
		Height:         800,
		Mode:           ModeH264,
		NativeInterval: 200 * time.Millisecond,
		ProbeSize:      32,
		IOBufferSize:   8192,
		ReadTimeout:    50 * time.Millisecond,
	}
}

// Validate fills zero tuning values with defaults and rejects unusable ones.
func (c *Config) Validate() error {
	def := DefaultConfig()
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("invalid output size %dx%d", c.Width, c.Height)
	}
	if _, ok := modeNames[c.Mode]; !ok {
		return errors.New("invalid capture mode")
	}
	if c.NativeInterval <= 0 {
		c.NativeInterval = def.NativeInterval
	}
	if c.ProbeSize <= 0 {
		c.ProbeSize = def.ProbeSize
	}
	if c.IOBufferSize <= 0 {
		c.IOBufferSize = def.IOBufferSize
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = def.ReadTimeout
	}
	if c.ReadTimeout >= 100*time.Millisecond {
		return fmt.Errorf("read timeout %v must stay below 100ms", c.ReadTimeout)
	}
	return nil
}
