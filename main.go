// main.go: 透過 adb 擷取 Android 螢幕畫面，解碼成固定大小的 RGB24 影格，
// 以 SDL2 視窗顯示或在 headless 模式下只記錄影格統計。
// 擷取方式：screenrecord H.264 串流 (h264) 或 screencap 快照 (jpeg/png/raw)。

package main

import (
	"context"
	"errors"
	"expvar"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof" // 啟用 /debug/pprof
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/go-vgo/robotgo"
	"github.com/rs/zerolog"

	"github.com/cowby123/droidscreen/adb"
	"github.com/cowby123/droidscreen/internal/capture"
	"github.com/cowby123/droidscreen/internal/config"
	"github.com/cowby123/droidscreen/internal/log"
	"github.com/cowby123/droidscreen/internal/utils"
	"github.com/cowby123/droidscreen/video"
)

func init() {
	// SDL 的視窗與事件必須留在主執行緒
	runtime.LockOSThread()
}

// headless 模式下每隔多少幀輸出一次統計
const statsEvery = 100

var errCapturePanic = errors.New("capture goroutine panicked")

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	cfgPath := fs.String("config", "", "path to a YAML config file")
	applyFlags := config.RegisterFlags(fs)
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	applyFlags(cfg)
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	log.Init(cfg.LogLevel(), cfg.Log.Format, os.Stderr)
	logger := log.For("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("droidscreen stopped")
		os.Exit(1)
	}
	logger.Info().Msg("bye")
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	opts := cfg.ADBOptions()
	if cfg.Device.StartServer {
		if err := adb.EnsureServer(ctx, opts); err != nil {
			logger.Warn().Err(err).Msg("adb start-server failed, assuming the server is already up")
		}
	}
	if devs, err := adb.ListDevices(ctx, opts); err != nil {
		logger.Warn().Err(err).Msg("list devices")
	} else {
		for _, d := range devs {
			logger.Info().Str("serial", d.Serial).Str("state", d.State).Msg("[ADB] device")
		}
		if len(devs) == 0 {
			logger.Warn().Msg("[ADB] no device attached")
		}
	}

	if cfg.Metrics.Addr != "" {
		serveDebug(cfg.Metrics.Addr, logger)
	}

	queue := capture.NewFrameQueue(cfg.Capture.QueueSize)
	capCfg := cfg.CaptureConfig()
	backend := video.NewBackend()
	client := adb.NewClient(opts)
	capLog := log.For("capture")

	newWorker := func() (*capture.Worker, error) {
		deps := capture.Deps{Fetcher: client}
		if capCfg.Mode == capture.ModeH264 {
			deps.Conn = adb.NewConn(opts)
			deps.Backend = backend
		}
		return capture.NewWorker(capCfg, deps, queue, capLog)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 1)
	utils.GoSafe(logger, "capture", func() {
		err := errCapturePanic
		defer func() {
			errc <- err
			cancel()
		}()
		err = runCapture(ctx, cfg, newWorker, capLog)
	})

	if cfg.Display.Enabled {
		err := display(ctx, cfg, queue, logger)
		cancel()
		if err != nil {
			<-errc
			return err
		}
	} else {
		headless(ctx, queue, logger)
	}
	return <-errc
}

// runCapture runs either the supervisor or a single worker until ctx ends.
func runCapture(ctx context.Context, cfg *config.Config, newWorker capture.WorkerFactory, logger zerolog.Logger) error {
	if cfg.Retry.Enabled {
		return capture.Supervise(ctx, newWorker, cfg.RetryPolicy(), logger)
	}
	w, err := newWorker()
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	res := w.Wait()
	logger.Info().Str("session", res.ID).Int("frames", res.Frames).Msg("session finished")
	if res.Err != nil && ctx.Err() == nil {
		return res.Err
	}
	return nil
}

// display 在主執行緒上顯示影格，直到視窗關閉或 ctx 結束
func display(ctx context.Context, cfg *config.Config, queue *capture.FrameQueue, logger zerolog.Logger) error {
	winW, winH := fitWindow(cfg.Capture.Width, cfg.Capture.Height)
	d, err := video.NewDisplay(cfg.Display.Title, winW, winH)
	if err != nil {
		return fmt.Errorf("display: %w", err)
	}
	defer d.Close()
	logger.Info().Int("w", winW).Int("h", winH).Msg("[SDL] window opened")

	tick := time.NewTicker(16 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case f := <-queue.Frames():
			if err := d.Render(f); err != nil {
				logger.Warn().Err(err).Uint64("seq", f.Seq).Msg("[SDL] render")
			}
		case <-tick.C:
		}
		if !d.Poll() {
			logger.Info().Msg("[SDL] window closed")
			return nil
		}
	}
}

// headless 只消耗影格並定期輸出統計
func headless(ctx context.Context, queue *capture.FrameQueue, logger zerolog.Logger) {
	var n int
	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-queue.Frames():
			n++
			if n%statsEvery == 0 {
				fps := float64(n) / time.Since(start).Seconds()
				logger.Info().
					Int("frames", n).
					Uint64("seq", f.Seq).
					Str("session", f.SessionID).
					Float64("fps", fps).
					Uint64("dropped", queue.Dropped()).
					Msg("[STATS]")
			}
		}
	}
}

// fitWindow 依主機螢幕大小等比例縮小視窗，保留 10% 邊界
func fitWindow(w, h int) (int, int) {
	sw, sh := robotgo.GetScreenSize()
	return clampWindow(w, h, sw*9/10, sh*9/10)
}

func clampWindow(w, h, maxW, maxH int) (int, int) {
	if maxW <= 0 || maxH <= 0 || (w <= maxW && h <= maxH) {
		return w, h
	}
	scale := min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	return max(1, int(float64(w)*scale)), max(1, int(float64(h)*scale))
}

// serveDebug 啟動 expvar 與 pprof 的 HTTP 伺服器
func serveDebug(addr string, logger zerolog.Logger) {
	expvar.Publish("capture_build", expvar.Func(func() any { return runtime.Version() }))
	utils.GoSafe(logger, "debug-http", func() {
		logger.Info().Str("addr", addr).Msg("[HTTP] /debug/vars and /debug/pprof listening")
		if err := http.ListenAndServe(addr, nil); err != nil {
			logger.Error().Err(err).Msg("[HTTP] debug server")
		}
	})
}
