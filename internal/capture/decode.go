package capture

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// streamDecoder is the H.264 path of one session.
type streamDecoder struct {
	ctx     context.Context
	cfg     Config
	backend Backend
	src     *byteSource
	res     *resources
	emit    func(Frame)
	log     zerolog.Logger
}

// runStream connects, starts screenrecord and decodes until the stream ends,
// a fatal error occurs or ctx is cancelled. Cancellation is not an error.
func (s *session) runStream(ctx context.Context, conn DeviceConn, backend Backend) error {
	if ctx.Err() != nil {
		return nil
	}
	connect := func() error {
		if err := conn.Connect(ctx); err != nil {
			return err
		}
		return conn.Send(StartCommand(s.cfg.Width, s.cfg.Height))
	}
	if err := connect(); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}

	d := &streamDecoder{
		ctx:     ctx,
		cfg:     s.cfg,
		backend: backend,
		src:     newByteSource(ctx, conn, connect, s.cfg.ReadTimeout, s.log),
		res:     newResources(),
		emit:    s.emit,
		log:     s.log,
	}
	defer d.res.release()

	if err := d.probe(); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	return d.loop()
}

// loop runs Reading -> Feeding -> Draining until Done.
func (d *streamDecoder) loop() error {
	for {
		if d.ctx.Err() != nil {
			return nil
		}

		pkt, err := d.res.demux.ReadPacket()
		switch {
		case err == nil:
		case errors.Is(err, ErrAgain):
			// starvation: hand out what the decoder holds, keep reading
			if err := d.drain(); err != nil {
				return err
			}
			continue
		case errors.Is(err, io.EOF):
			return d.flush()
		default:
			if d.src.err != nil {
				return d.src.err
			}
			return d.fail("read packet", err)
		}

		if pkt.StreamIndex() != d.res.stream {
			pkt.Free()
			continue
		}

		err = d.res.decoder.Send(pkt)
		pkt.Free()
		if errors.Is(err, ErrAgain) {
			evPacketsDropped.Add(1)
			d.log.Debug().Msg("decoder busy, access unit discarded")
			continue
		}
		if err != nil {
			return d.fail("send packet", err)
		}

		if err := d.drain(); err != nil {
			return err
		}
	}
}

// flush sends the empty access unit and drains the decoder to the end.
func (d *streamDecoder) flush() error {
	if err := d.res.decoder.Send(nil); err != nil && !errors.Is(err, ErrAgain) && !errors.Is(err, io.EOF) {
		return d.fail("send flush", err)
	}
	return d.drain()
}

// drain receives pictures until the decoder needs input or is exhausted.
func (d *streamDecoder) drain() error {
	for d.ctx.Err() == nil {
		pic, err := d.res.decoder.Receive()
		if errors.Is(err, ErrAgain) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return d.fail("receive frame", err)
		}
		d.res.picture = pic
		err = d.present(pic)
		d.res.dropPicture()
		if err != nil {
			return err
		}
	}
	return nil
}

// present scales pic into the output buffer and emits a copy of it.
func (d *streamDecoder) present(pic Picture) error {
	if err := d.ensureScaler(pic); err != nil {
		return err
	}
	out := d.res.output
	if err := d.res.scaler.Scale(pic, out); err != nil {
		return d.fail("scale frame", err)
	}
	if d.ctx.Err() != nil {
		return nil
	}

	f := newFrame(d.cfg.Width, d.cfg.Height)
	data, stride := out.Data(), out.Stride()
	for y := 0; y < f.Height; y++ {
		copy(f.Pix[y*f.Stride:(y+1)*f.Stride], data[y*stride:])
	}
	d.emit(f)
	return nil
}

// ensureScaler rebuilds the scaler when the decoded geometry changes, for
// example after the device rotates.
func (d *streamDecoder) ensureScaler(pic Picture) error {
	src := scalerSource{w: pic.Width(), h: pic.Height(), fmt: pic.PixFmt()}
	if src == d.res.source {
		return nil
	}
	sc, err := d.backend.NewScaler(src.w, src.h, src.fmt, d.cfg.Width, d.cfg.Height)
	if err != nil {
		return d.fail("rebuild scaler", err)
	}
	d.log.Info().Int("src_w", src.w).Int("src_h", src.h).Msg("decoded size changed, scaler rebuilt")
	d.res.replaceScaler(sc, src)
	return nil
}

func (d *streamDecoder) fail(op string, err error) error {
	evDecodeErrors.Add(1)
	return &DecodeError{Op: op, Err: err}
}
