package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/cowby123/droidscreen/internal/h264"
)

// byteSource turns the device connection into the Filler the demuxer pulls
// from. It blocks until bytes arrive, reconnecting at most once per stall,
// and reports end of input on interruption or when the device hangs up.
type byteSource struct {
	ctx     context.Context
	conn    DeviceConn
	connect func() error
	timeout time.Duration
	sniffer *h264.Sniffer
	log     zerolog.Logger

	total int64
	err   error // first fatal error, kept for the decode loop
}

func newByteSource(ctx context.Context, conn DeviceConn, connect func() error, timeout time.Duration, log zerolog.Logger) *byteSource {
	s := &byteSource{ctx: ctx, conn: conn, connect: connect, timeout: timeout, log: log}
	s.sniffer = &h264.Sniffer{OnSPS: func(sps h264.SPS) {
		evSourceW.Set(int64(sps.Width))
		evSourceH.Set(int64(sps.Height))
		s.log.Info().Int("width", sps.Width).Int("height", sps.Height).
			Uint8("profile", sps.ProfileIDC).Uint8("level", sps.LevelIDC).Msg("encoder stream size")
	}}
	return s
}

// Fill implements Filler.
func (s *byteSource) Fill(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, io.ErrShortBuffer
	}
	if s.err != nil {
		return 0, s.err
	}
	if s.conn.Buffered() == 0 {
		if err := s.wait(); err != nil {
			return 0, err
		}
	}

	n := min(len(p), s.conn.Buffered())
	n, err := s.conn.Read(p[:n])
	if n == 0 {
		if err == nil {
			err = io.ErrNoProgress
		}
		return 0, s.fatal(fmt.Errorf("read: %w", err))
	}
	s.total += int64(n)
	evBytesRead.Add(int64(n))
	s.sniffer.Write(p[:n])
	return n, nil
}

func (s *byteSource) wait() error {
	reconnected := false
	for {
		if s.ctx.Err() != nil {
			return io.EOF
		}
		if !s.conn.Connected() {
			if reconnected {
				return s.fatal(errors.New("connection lost again after reconnect"))
			}
			reconnected = true
			evReconnects.Add(1)
			s.log.Warn().Msg("device connection lost, reconnecting")
			if err := s.connect(); err != nil {
				return s.fatal(fmt.Errorf("reconnect: %w", err))
			}
			continue
		}

		err := s.conn.WaitReadable(s.timeout)
		if s.ctx.Err() != nil {
			return io.EOF
		}
		switch {
		case err == nil:
			if s.conn.Buffered() > 0 {
				return nil
			}
		case errors.Is(err, os.ErrDeadlineExceeded):
		case errors.Is(err, io.EOF):
			s.log.Debug().Int64("bytes", s.total).Msg("device closed the stream")
			return io.EOF
		default:
			return s.fatal(err)
		}
	}
}

func (s *byteSource) fatal(err error) error {
	s.err = fmt.Errorf("%w: %w", ErrConnection, err)
	return s.err
}
