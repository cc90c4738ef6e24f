package capture

import (
	"context"
	"image"
	"time"
)

// DeviceConn is the byte-oriented device connection the stream mode reads
// from. WaitReadable returns nil once bytes are buffered,
// os.ErrDeadlineExceeded on timeout, io.EOF when the remote side closed and
// any other error for a broken connection.
type DeviceConn interface {
	Connect(ctx context.Context) error
	Send(service string) error
	Buffered() int
	WaitReadable(timeout time.Duration) error
	Read(p []byte) (int, error)
	Connected() bool
	Close() error
	WaitDisconnected(timeout time.Duration) error
}

// Fetcher provides still images for the snapshot modes.
type Fetcher interface {
	ScreenAwake(ctx context.Context) (bool, error)
	FetchJPEG(ctx context.Context) (image.Image, error)
	FetchPNG(ctx context.Context) (image.Image, error)
	FetchRaw(ctx context.Context) (image.Image, error)
}
