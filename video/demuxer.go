package video

import (
	"errors"
	"fmt"
	"io"

	"github.com/3d0c/gmf"

	"github.com/cowby123/droidscreen/internal/capture"
)

// averrorEIO is AVERROR(EIO), returned to libavformat for fatal source errors.
const averrorEIO = -5

// Backend implements capture.Backend on top of FFmpeg through gmf.
type Backend struct{}

// NewBackend returns the FFmpeg backend.
func NewBackend() *Backend { return &Backend{} }

// ioBridge feeds the custom AVIO context from a capture.Filler. gmf copies
// whatever the callback returns into the AVIO buffer without checking its
// size, so reads are capped at the buffer size given to NewAVIOContext.
type ioBridge struct {
	src capture.Filler
	buf []byte
	err error
}

func (b *ioBridge) read() ([]byte, int) {
	n, err := b.src.Fill(b.buf)
	switch {
	case err == nil && n > 0:
		return b.buf[:n], n
	case err == nil || errors.Is(err, io.EOF):
		return nil, gmf.AVERROR_EOF
	default:
		b.err = err
		return nil, averrorEIO
	}
}

type demuxer struct {
	ctx     *gmf.FmtCtx
	avio    *gmf.AVIOContext
	bridge  *ioBridge
	streams []capture.Stream
}

// NewDemuxer creates an input context whose only data source is src.
func (*Backend) NewDemuxer(src capture.Filler, opts capture.ProbeOptions) (capture.Demuxer, error) {
	size := opts.BufferSize
	if size <= 0 {
		size = 8192
	}
	bridge := &ioBridge{src: src, buf: make([]byte, size)}

	ctx := gmf.NewCtx()
	avio, err := gmf.NewAVIOContext(ctx, &gmf.AVIOHandlers{ReadPacket: bridge.read}, size)
	if err != nil {
		ctx.Free()
		return nil, fmt.Errorf("alloc avio context: %w", err)
	}
	ctx.SetPb(avio)
	if opts.ProbeSize > 0 {
		ctx.SetProbeSize(int64(opts.ProbeSize))
	}
	if opts.Format != "" {
		if err := ctx.SetInputFormat(opts.Format); err != nil {
			ctx.Free()
			avio.Free()
			return nil, fmt.Errorf("set input format %q: %w", opts.Format, err)
		}
	}
	return &demuxer{ctx: ctx, avio: avio, bridge: bridge}, nil
}

// Open opens the input and reads stream info. An empty filename makes
// libavformat use the custom I/O context.
func (d *demuxer) Open() error {
	if err := d.ctx.OpenInput(""); err != nil {
		if d.bridge.err != nil {
			return fmt.Errorf("%w (source: %v)", err, d.bridge.err)
		}
		return err
	}
	for i := 0; i < d.ctx.StreamsCnt(); i++ {
		st, err := d.ctx.GetStream(i)
		if err != nil {
			return fmt.Errorf("get stream %d: %w", i, err)
		}
		d.streams = append(d.streams, &stream{st: st})
	}
	return nil
}

func (d *demuxer) Streams() []capture.Stream { return d.streams }

// ReadPacket never reports capture.ErrAgain: gmf retries EAGAIN from
// av_read_frame itself, and the byte source blocks until data or end of input.
func (d *demuxer) ReadPacket() (capture.Packet, error) {
	pkt, err := d.ctx.GetNextPacket()
	switch {
	case errors.Is(err, io.EOF):
		return nil, io.EOF
	case err != nil:
		if d.bridge.err != nil {
			return nil, fmt.Errorf("%w (source: %v)", err, d.bridge.err)
		}
		return nil, err
	}
	return &packet{pkt: pkt}, nil
}

// Close closes the input first; the custom AVIO context is not owned by the
// format context and is freed afterwards.
func (d *demuxer) Close() {
	if d.ctx != nil {
		d.ctx.Free()
		d.ctx = nil
	}
	if d.avio != nil {
		d.avio.Free()
		d.avio = nil
	}
	d.streams = nil
}

type packet struct {
	pkt *gmf.Packet
}

func (p *packet) StreamIndex() int { return p.pkt.StreamIndex() }
func (p *packet) Free()            { p.pkt.Free() }
