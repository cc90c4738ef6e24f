package utils

import (
	"runtime/debug"

	"github.com/rs/zerolog"
)

// GoSafe 安全啟動 goroutine，捕獲 panic 並記錄堆疊
func GoSafe(log zerolog.Logger, name string, fn func()) {
	go func() {
		defer Recover(log, name)
		fn()
	}()
}

// Recover logs a recovered panic. It must be deferred directly.
func Recover(log zerolog.Logger, name string) {
	if r := recover(); r != nil {
		log.Error().Str("goroutine", name).Interface("panic", r).
			Bytes("stack", debug.Stack()).Msg("panic recovered")
	}
}

// TrimString 截斷字串到指定長度並添加省略號
func TrimString(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
