package video

import (
	"fmt"
	"unsafe"

	"github.com/3d0c/gmf"

	"github.com/cowby123/droidscreen/internal/capture"
)

type scaler struct {
	sws *gmf.SwsCtx
}

// NewScaler converts from the decoder's native layout to RGB24 at the
// output size with bicubic filtering.
func (*Backend) NewScaler(srcW, srcH int, srcFmt int32, dstW, dstH int) (capture.Scaler, error) {
	if srcW <= 0 || srcH <= 0 {
		return nil, fmt.Errorf("invalid source size %dx%d", srcW, srcH)
	}
	sws, err := gmf.NewSwsCtx(srcW, srcH, srcFmt, dstW, dstH, gmf.AV_PIX_FMT_RGB24, gmf.SWS_BICUBIC)
	if err != nil {
		return nil, fmt.Errorf("new sws context: %w", err)
	}
	return &scaler{sws: sws}, nil
}

func (s *scaler) Scale(src capture.Picture, dst capture.OutputBuffer) error {
	in, ok := src.(*picture)
	if !ok {
		return fmt.Errorf("scale: unexpected picture type %T", src)
	}
	out, ok := dst.(*output)
	if !ok {
		return fmt.Errorf("scale: unexpected output type %T", dst)
	}
	s.sws.Scale(in.f, out.f)
	return nil
}

func (s *scaler) Free() {
	if s.sws != nil {
		s.sws.Free()
		s.sws = nil
	}
}

// output is an RGB24 frame with its own pixel storage, allocated once per
// session.
type output struct {
	f      *gmf.Frame
	data   []byte
	stride int
}

// avFrameHead mirrors the leading members of AVFrame, which have kept this
// layout in every libavutil release: uint8_t *data[8]; int linesize[8].
type avFrameHead struct {
	data     [8]unsafe.Pointer
	linesize [8]int32
}

// planeBytes returns plane 0 of f as a Go slice of linesize*h bytes. gmf has
// no accessor for video planes.
func planeBytes(f *gmf.Frame, h int) []byte {
	head := (*avFrameHead)(unsafe.Pointer(f.GetRawFrame()))
	if head == nil || head.data[0] == nil || head.linesize[0] <= 0 {
		return nil
	}
	return unsafe.Slice((*byte)(head.data[0]), int(head.linesize[0])*h)
}

func (*Backend) NewOutput(w, h int) (capture.OutputBuffer, error) {
	f := gmf.NewFrame().SetWidth(w).SetHeight(h).SetFormat(gmf.AV_PIX_FMT_RGB24)
	if err := f.ImgAlloc(); err != nil {
		f.Free()
		return nil, fmt.Errorf("alloc rgb frame: %w", err)
	}
	data := planeBytes(f, h)
	if data == nil {
		f.Free()
		return nil, fmt.Errorf("alloc rgb frame: no plane data")
	}
	return &output{f: f, data: data, stride: f.LineSize(0)}, nil
}

func (o *output) Data() []byte { return o.data }
func (o *output) Stride() int  { return o.stride }

func (o *output) Free() {
	if o.f != nil {
		o.data = nil
		o.f.Free()
		o.f = nil
	}
}
