package capture

import (
	"context"
	"fmt"
	"image"
	"time"

	"golang.org/x/image/draw"
)

type fetchFunc func(context.Context) (image.Image, error)

func snapshotFetch(f Fetcher, m Mode) (fetchFunc, error) {
	switch m {
	case ModeSnapshotJPEG:
		return f.FetchJPEG, nil
	case ModeSnapshotPNG:
		return f.FetchPNG, nil
	case ModeSnapshotRaw:
		return f.FetchRaw, nil
	}
	return nil, fmt.Errorf("mode %v has no snapshot format", m)
}

// runSnapshots emits one still image per NativeInterval until ctx is done.
// A black frame stands in while the display is off.
func (s *session) runSnapshots(ctx context.Context, f Fetcher) error {
	fetch, err := snapshotFetch(f, s.cfg.Mode)
	if err != nil {
		return err
	}

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}

		img, err := s.snapshot(ctx, f, fetch)
		switch {
		case ctx.Err() != nil:
			return nil
		case err != nil:
			s.log.Warn().Err(err).Str("mode", s.cfg.Mode.String()).Msg("snapshot failed")
		default:
			s.emit(toRGB24(scaleToWidth(img, s.cfg.Width)))
		}
		timer.Reset(s.cfg.NativeInterval)
	}
}

func (s *session) snapshot(ctx context.Context, f Fetcher, fetch fetchFunc) (image.Image, error) {
	awake, err := f.ScreenAwake(ctx)
	if err != nil {
		s.log.Debug().Err(err).Msg("power state unknown, treating display as off")
		awake = false
	}
	if !awake {
		return blackImage(s.cfg.Width, s.cfg.Height), nil
	}
	return fetch(ctx)
}

func blackImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.Black, image.Point{}, draw.Src)
	return img
}

// scaleToWidth resizes img to width w keeping its aspect ratio.
func scaleToWidth(img image.Image, w int) image.Image {
	b := img.Bounds()
	if b.Dx() == w || b.Dx() == 0 {
		return img
	}
	h := (b.Dy()*w + b.Dx()/2) / b.Dx()
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// toRGB24 copies img into a new frame, dropping alpha.
func toRGB24(img image.Image) Frame {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || b.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}

	f := newFrame(b.Dx(), b.Dy())
	for y := 0; y < f.Height; y++ {
		src := rgba.Pix[y*rgba.Stride:]
		dst := f.Pix[y*f.Stride:]
		for x := 0; x < f.Width; x++ {
			dst[x*3+0] = src[x*4+0]
			dst[x*3+1] = src[x*4+1]
			dst[x*3+2] = src[x*4+2]
		}
	}
	return f
}
