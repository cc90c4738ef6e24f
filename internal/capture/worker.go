package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cowby123/droidscreen/internal/utils"
)

// disconnectTimeout bounds how long the worker waits for the device socket
// to go away after closing it.
const disconnectTimeout = time.Second

var errWorkerPanic = errors.New("capture: worker panicked")

// Deps are the collaborators a worker needs. Conn and Backend serve the
// stream mode, Fetcher the snapshot modes.
type Deps struct {
	Conn    DeviceConn
	Backend Backend
	Fetcher Fetcher
}

// Worker runs exactly one session on its own goroutine.
type Worker struct {
	cfg  Config
	deps Deps
	sink Sink
	log  zerolog.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
	result  Result
}

// NewWorker validates cfg and returns an idle worker.
func NewWorker(cfg Config, deps Deps, sink Sink, log zerolog.Logger) (*Worker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		return nil, errors.New("capture: nil sink")
	}
	if cfg.Mode.Snapshot() && deps.Fetcher == nil {
		return nil, fmt.Errorf("capture: mode %v needs a fetcher", cfg.Mode)
	}
	if cfg.Mode == ModeH264 && (deps.Conn == nil || deps.Backend == nil) {
		return nil, errors.New("capture: h264 mode needs a connection and a backend")
	}
	return &Worker{cfg: cfg, deps: deps, sink: sink, log: log, done: make(chan struct{})}, nil
}

// Start launches the session. It may only be called once.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return errors.New("capture: worker already started")
	}
	w.started = true

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	s := newSession(w.cfg, w.sink, w.log)
	evSessionsStarted.Add(1)
	s.log.Info().Int("width", w.cfg.Width).Int("height", w.cfg.Height).Msg("capture session started")

	utils.GoSafe(s.log, "capture-"+s.id, func() {
		res := Result{ID: s.id, Mode: w.cfg.Mode, Err: errWorkerPanic}
		defer func() {
			res.Frames = s.frames
			w.finish(s, res)
			cancel()
		}()
		res.Err = w.run(ctx, s)
	})
	return nil
}

func (w *Worker) run(ctx context.Context, s *session) error {
	var err error
	if w.cfg.Mode.Snapshot() {
		err = s.runSnapshots(ctx, w.deps.Fetcher)
	} else {
		err = s.runStream(ctx, w.deps.Conn, w.deps.Backend)
	}
	if c := w.deps.Conn; c != nil {
		c.Close()
		if werr := c.WaitDisconnected(disconnectTimeout); werr != nil {
			s.log.Warn().Err(werr).Msg("device connection did not close")
		}
	}
	return err
}

func (w *Worker) finish(s *session, res Result) {
	ev := s.log.Info()
	if !res.Success() {
		evSessionsFailed.Add(1)
		ev = s.log.Warn()
	}
	ev.Err(res.Err).Int("frames", res.Frames).Bool("success", res.Success()).Msg("capture session ended")

	w.mu.Lock()
	w.result = res
	w.mu.Unlock()
	close(w.done)
}

// Stop interrupts the session and blocks until the goroutine has exited.
// Calling Stop on a worker that never started is a no-op.
func (w *Worker) Stop() Result {
	w.mu.Lock()
	started, cancel := w.started, w.cancel
	w.mu.Unlock()
	if !started {
		return Result{}
	}
	cancel()
	return w.Wait()
}

// Wait blocks until the session ends and returns its result.
func (w *Worker) Wait() Result {
	<-w.done
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.result
}

// Done is closed when the session has ended.
func (w *Worker) Done() <-chan struct{} { return w.done }
