package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

var errNoFrames = errors.New("capture: session produced no frames")

// RetryConfig controls how Supervise restarts sessions.
type RetryConfig struct {
	MaxRetries    int           // consecutive failed sessions tolerated
	RetryDelay    time.Duration // first backoff delay
	MaxRetryDelay time.Duration // backoff cap
}

// DefaultRetryConfig returns 5 retries backing off from 1s up to 30s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    5,
		RetryDelay:    time.Second,
		MaxRetryDelay: 30 * time.Second,
	}
}

// WorkerFactory builds a fresh worker for every attempt.
type WorkerFactory func() (*Worker, error)

// Supervise runs sessions back to back until ctx is cancelled. A session
// that emitted frames resets the failure count and is restarted at once
// (screenrecord stops on its own after a few minutes). Failed sessions are
// retried with exponential backoff until MaxRetries is exceeded.
func Supervise(ctx context.Context, newWorker WorkerFactory, cfg RetryConfig, log zerolog.Logger) error {
	failures := 0
	for {
		if ctx.Err() != nil {
			return nil
		}
		w, err := newWorker()
		if err != nil {
			return fmt.Errorf("create worker: %w", err)
		}
		if err := w.Start(ctx); err != nil {
			return err
		}

		var res Result
		select {
		case <-w.Done():
			res = w.Wait()
		case <-ctx.Done():
			w.Stop()
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}

		if res.Success() {
			failures = 0
			log.Debug().Str("session", res.ID).Int("frames", res.Frames).Msg("session ended, restarting")
			continue
		}

		failures++
		if failures > cfg.MaxRetries {
			cause := res.Err
			if cause == nil {
				cause = errNoFrames
			}
			return fmt.Errorf("capture: max retries exceeded (%d attempts): %w", cfg.MaxRetries, cause)
		}
		delay := backoff(failures, cfg)
		log.Warn().Err(res.Err).Int("attempt", failures).Int("max_retries", cfg.MaxRetries).
			Dur("delay", delay).Msg("session failed, retrying")

		t := time.NewTimer(delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return nil
		}
	}
}

// backoff returns RetryDelay * 2^(attempt-1), capped at MaxRetryDelay.
func backoff(attempt int, cfg RetryConfig) time.Duration {
	if attempt > 30 {
		attempt = 30
	}
	delay := cfg.RetryDelay * time.Duration(1<<uint(attempt-1))
	if cfg.MaxRetryDelay > 0 && delay > cfg.MaxRetryDelay {
		delay = cfg.MaxRetryDelay
	}
	return delay
}
