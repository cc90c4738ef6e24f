package protocol

import (
	"encoding/binary"
	"fmt"
	"image"
	"io"
)

// framebufferLegacy is the version word of the pre-ICS header, which is
// always RGB565 and only carries size, width and height.
const framebufferLegacy = 16

// MaxFramebufferSide bounds the width and height accepted from a device
// before any pixel memory is allocated.
const MaxFramebufferSide = 16384

// FramebufferHeader describes the raw image that follows the header sent by
// the adb "framebuffer:" service.
type FramebufferHeader struct {
	Version    uint32
	BPP        uint32
	ColorSpace uint32
	Size       uint32
	Width      uint32
	Height     uint32

	RedOffset, RedLength     uint32
	BlueOffset, BlueLength   uint32
	GreenOffset, GreenLength uint32
	AlphaOffset, AlphaLength uint32
}

// ReadFramebufferHeader parses a version 1, 2 or legacy header (all
// little-endian uint32 words).
func ReadFramebufferHeader(r io.Reader) (*FramebufferHeader, error) {
	h := &FramebufferHeader{}
	if err := binary.Read(r, binary.LittleEndian, &h.Version); err != nil {
		return nil, fmt.Errorf("read framebuffer version: %w", err)
	}

	switch h.Version {
	case framebufferLegacy:
		var w [3]uint32
		if err := binary.Read(r, binary.LittleEndian, &w); err != nil {
			return nil, fmt.Errorf("read framebuffer header: %w", err)
		}
		h.BPP = 16
		h.Size, h.Width, h.Height = w[0], w[1], w[2]
		h.RedOffset, h.RedLength = 11, 5
		h.GreenOffset, h.GreenLength = 5, 6
		h.BlueOffset, h.BlueLength = 0, 5
		return h, nil
	case 1, 2:
	default:
		return nil, fmt.Errorf("unsupported framebuffer version %d", h.Version)
	}

	if err := binary.Read(r, binary.LittleEndian, &h.BPP); err != nil {
		return nil, fmt.Errorf("read framebuffer header: %w", err)
	}
	if h.Version == 2 {
		if err := binary.Read(r, binary.LittleEndian, &h.ColorSpace); err != nil {
			return nil, fmt.Errorf("read framebuffer header: %w", err)
		}
	}
	var w [11]uint32
	if err := binary.Read(r, binary.LittleEndian, &w); err != nil {
		return nil, fmt.Errorf("read framebuffer header: %w", err)
	}
	h.Size, h.Width, h.Height = w[0], w[1], w[2]
	h.RedOffset, h.RedLength = w[3], w[4]
	h.BlueOffset, h.BlueLength = w[5], w[6]
	h.GreenOffset, h.GreenLength = w[7], w[8]
	h.AlphaOffset, h.AlphaLength = w[9], w[10]
	return h, nil
}

// DecodeFramebuffer reads a header and the pixel payload that follows it and
// returns an opaque RGBA image.
func DecodeFramebuffer(r io.Reader) (*image.RGBA, error) {
	h, err := ReadFramebufferHeader(r)
	if err != nil {
		return nil, err
	}
	bpp := int(h.BPP) / 8
	if bpp < 2 || bpp > 4 {
		return nil, fmt.Errorf("unsupported framebuffer depth %d", h.BPP)
	}
	if h.Width == 0 || h.Height == 0 || h.Width > MaxFramebufferSide || h.Height > MaxFramebufferSide {
		return nil, fmt.Errorf("framebuffer size %dx%d out of range", h.Width, h.Height)
	}
	want := int(h.Width) * int(h.Height) * bpp
	if int(h.Size) != want {
		return nil, fmt.Errorf("framebuffer size %d does not match %dx%dx%d", h.Size, h.Width, h.Height, bpp)
	}
	raw := make([]byte, want)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("read framebuffer pixels: %w", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, int(h.Width), int(h.Height)))
	for i, o := 0, 0; i < len(raw); i, o = i+bpp, o+4 {
		var v uint32
		for b := bpp - 1; b >= 0; b-- {
			v = v<<8 | uint32(raw[i+b])
		}
		img.Pix[o+0] = channel(v, h.RedOffset, h.RedLength)
		img.Pix[o+1] = channel(v, h.GreenOffset, h.GreenLength)
		img.Pix[o+2] = channel(v, h.BlueOffset, h.BlueLength)
		img.Pix[o+3] = 0xff
	}
	return img, nil
}

// channel extracts one colour component and widens it to 8 bits.
func channel(v, offset, length uint32) uint8 {
	if length == 0 {
		return 0
	}
	if length > 8 {
		return uint8(v >> (offset + length - 8))
	}
	max := uint32(1)<<length - 1
	c := (v >> offset) & max
	return uint8(c * 255 / max)
}
