package video

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/3d0c/gmf"

	"github.com/cowby123/droidscreen/internal/capture"
)

type stream struct {
	st *gmf.Stream
}

func (s *stream) Index() int    { return s.st.Index() }
func (s *stream) IsVideo() bool { return s.st.IsVideo() }

// OpenDecoder builds and opens a codec context from the stream parameters.
func (s *stream) OpenDecoder() (capture.Decoder, error) {
	par := s.st.CodecPar()
	codec, err := gmf.FindDecoder(par.CodecId())
	if err != nil {
		return nil, fmt.Errorf("find decoder: %w", err)
	}
	cc := gmf.NewCodecCtx(codec)
	if cc == nil {
		return nil, errors.New("new codec context")
	}
	if err := par.ToContext(cc); err != nil {
		cc.Free()
		return nil, fmt.Errorf("copy codec parameters: %w", err)
	}
	if err := cc.Open(nil); err != nil {
		cc.Free()
		return nil, fmt.Errorf("open codec: %w", err)
	}
	return &decoder{cc: cc}, nil
}

// codecCtx is the part of *gmf.CodecCtx the decoder uses.
type codecCtx interface {
	Decode(pkt *gmf.Packet) ([]*gmf.Frame, error)
	Width() int
	Height() int
	PixFmt() int32
	Free()
}

// decoder adapts gmf's Decode, which sends one packet and collects every
// frame it yields, to the send/receive contract of capture.Decoder.
type decoder struct {
	cc      codecCtx
	pending []*gmf.Frame
	flushed bool
}

func (d *decoder) Width() int    { return d.cc.Width() }
func (d *decoder) Height() int   { return d.cc.Height() }
func (d *decoder) PixFmt() int32 { return d.cc.PixFmt() }

func (d *decoder) Send(pkt capture.Packet) error {
	if len(d.pending) > 0 {
		return capture.ErrAgain
	}
	var p *gmf.Packet
	if pkt != nil {
		p = pkt.(*packet).pkt
	}
	frames, err := d.cc.Decode(p)
	if err != nil {
		switch {
		case isEAGAIN(err):
			return capture.ErrAgain
		case isEOF(err):
			d.flushed = true
			return io.EOF
		}
		return err
	}
	if p == nil {
		d.flushed = true
	}
	d.pending = append(d.pending, frames...)
	return nil
}

func (d *decoder) Receive() (capture.Picture, error) {
	if len(d.pending) == 0 {
		if d.flushed {
			return nil, io.EOF
		}
		return nil, capture.ErrAgain
	}
	f := d.pending[0]
	d.pending = d.pending[1:]
	return &picture{f: f}, nil
}

func (d *decoder) Free() {
	for _, f := range d.pending {
		f.Free()
	}
	d.pending = nil
	if d.cc != nil {
		d.cc.Free()
		d.cc = nil
	}
}

// gmf reports libav errors as plain text.
func isEAGAIN(err error) bool {
	return strings.Contains(err.Error(), "Resource temporarily unavailable")
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF) || strings.Contains(err.Error(), "End of file")
}

type picture struct {
	f *gmf.Frame
}

func (p *picture) Width() int    { return p.f.Width() }
func (p *picture) Height() int   { return p.f.Height() }
func (p *picture) PixFmt() int32 { return int32(p.f.Format()) }
func (p *picture) Free()         { p.f.Free() }
