package capture

import (
	"image"
	"time"
)

// Frame is a fully owned RGB24 image handed to the consumer. The capture
// loops never touch Pix after emitting it.
type Frame struct {
	Seq       uint64
	SessionID string
	Timestamp time.Time
	Width     int
	Height    int
	Stride    int
	Pix       []byte
}

func newFrame(w, h int) Frame {
	return Frame{Width: w, Height: h, Stride: w * 3, Pix: make([]byte, w*h*3)}
}

// RGBA converts the frame for image consumers such as encoders.
func (f Frame) RGBA() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		src := f.Pix[y*f.Stride : y*f.Stride+f.Width*3]
		dst := img.Pix[y*img.Stride : y*img.Stride+f.Width*4]
		for x := 0; x < f.Width; x++ {
			dst[x*4+0] = src[x*3+0]
			dst[x*4+1] = src[x*3+1]
			dst[x*4+2] = src[x*3+2]
			dst[x*4+3] = 0xff
		}
	}
	return img
}
