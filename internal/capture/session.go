// Package capture turns a device screen into a stream of fixed-size RGB24
// frames, either by decoding the H.264 output of screenrecord or by polling
// still snapshots.
package capture

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// session is the state of one capture attempt. It is created by the worker
// goroutine and dropped when that goroutine returns.
type session struct {
	id     string
	cfg    Config
	sink   Sink
	log    zerolog.Logger
	seq    uint64
	frames int
}

func newSession(cfg Config, sink Sink, log zerolog.Logger) *session {
	id := uuid.NewString()
	return &session{
		id:   id,
		cfg:  cfg,
		sink: sink,
		log:  log.With().Str("session", id).Str("mode", cfg.Mode.String()).Logger(),
	}
}

func (s *session) emit(f Frame) {
	s.seq++
	f.Seq = s.seq
	f.SessionID = s.id
	f.Timestamp = time.Now()
	s.frames++
	evFramesEmitted.Add(1)
	s.sink.Publish(f)
}

// Result summarizes a finished session.
type Result struct {
	ID     string
	Mode   Mode
	Frames int
	// Err is the fatal error that ended the session, nil for a clean end
	// of stream or an interruption.
	Err error
}

// Success reports whether the session produced at least one frame.
func (r Result) Success() bool { return r.Frames > 0 }
