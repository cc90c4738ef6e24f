package adb

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/cowby123/droidscreen/protocol"
)

const (
	servicePNG       = "exec:screencap -p"
	serviceJPEG      = "exec:screencap -j"
	serviceRaw       = "framebuffer:"
	servicePowerDump = "shell:dumpsys power"
)

// Client performs one-shot requests against a device: screen snapshots in
// several formats and display power queries. Each call uses its own socket.
type Client struct {
	opts Options
}

// NewClient returns a Client for the device selected by opts.
func NewClient(opts Options) *Client {
	return &Client{opts: normalizeOptions(opts)}
}

// Options returns the effective options used by the client.
func (c *Client) Options() Options { return c.opts }

// run opens service on a fresh socket and hands the stream to read. The socket
// is closed when ctx is cancelled so read never outlives the caller.
func (c *Client) run(ctx context.Context, service string, read func(io.Reader) error) error {
	conn := NewConn(c.opts)
	if err := conn.Connect(ctx); err != nil {
		return err
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := conn.Send(service); err != nil {
		return err
	}
	if err := read(conn); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func (c *Client) readAll(ctx context.Context, service string) ([]byte, error) {
	var out []byte
	err := c.run(ctx, service, func(r io.Reader) error {
		b, err := io.ReadAll(r)
		out = b
		return err
	})
	return out, err
}

// FetchPNG captures the screen as PNG and decodes it.
func (c *Client) FetchPNG(ctx context.Context) (image.Image, error) {
	b, err := c.readAll(ctx, servicePNG)
	if err != nil {
		return nil, fmt.Errorf("fetch png: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("decode png: %w", err)
	}
	return img, nil
}

// FetchJPEG captures the screen as JPEG and decodes it.
func (c *Client) FetchJPEG(ctx context.Context) (image.Image, error) {
	b, err := c.readAll(ctx, serviceJPEG)
	if err != nil {
		return nil, fmt.Errorf("fetch jpeg: %w", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("decode jpeg: %w", err)
	}
	return img, nil
}

// FetchRaw reads the uncompressed framebuffer.
func (c *Client) FetchRaw(ctx context.Context) (image.Image, error) {
	var img image.Image
	err := c.run(ctx, serviceRaw, func(r io.Reader) error {
		fb, err := protocol.DecodeFramebuffer(r)
		img = fb
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetch framebuffer: %w", err)
	}
	return img, nil
}

// ScreenAwake reports whether the device display is on.
func (c *Client) ScreenAwake(ctx context.Context) (bool, error) {
	b, err := c.readAll(ctx, servicePowerDump)
	if err != nil {
		return false, fmt.Errorf("query power state: %w", err)
	}
	return parseWakefulness(string(b))
}
