// Package log configures the process-wide zerolog logger and hands out
// component loggers.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Level 日誌級別，沿用 debug < info < warn < error < silent 的階梯
type Level int

const (
	LevelDebug  Level = iota // 顯示所有日誌
	LevelInfo                // info 以上
	LevelWarn                // warn 以上
	LevelError               // 只顯示 error
	LevelSilent              // 不顯示日誌
)

// ParseLevel maps a config string to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	case "silent", "off", "none":
		return LevelSilent, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.Disabled
	}
}

var root = zerolog.New(os.Stderr).With().Timestamp().Logger()

// Init replaces the root logger. format is "console" or "json".
func Init(level Level, format string, out io.Writer) {
	if out == nil {
		out = os.Stderr
	}
	if format != "json" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}
	root = zerolog.New(out).Level(level.zerolog()).With().Timestamp().Logger()
}

// L returns the root logger.
func L() zerolog.Logger { return root }

// For returns a child logger tagged with the component name.
func For(component string) zerolog.Logger {
	return root.With().Str("component", component).Logger()
}
