package adb

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/cowby123/droidscreen/protocol"
)

// Conn is a single adb smart-socket bound to one device transport. After
// Connect the socket is switched to the device and every Send opens a
// service on it (shell:, exec:, framebuffer:). Reads are buffered so the
// caller can inspect how many bytes are already available.
type Conn struct {
	opts Options

	mu        sync.Mutex
	conn      net.Conn
	r         *bufio.Reader
	connected bool
	done      chan struct{}
}

// NewConn returns an unconnected Conn for the device selected by opts.
func NewConn(opts Options) *Conn {
	return &Conn{opts: normalizeOptions(opts)}
}

// Connect dials the adb server and selects the device transport. Any previous
// socket is closed first, so Connect doubles as reconnect.
func (c *Conn) Connect(ctx context.Context) error {
	c.Close()

	var d net.Dialer
	nc, err := d.DialContext(ctx, "tcp", c.opts.Addr())
	if err != nil {
		return fmt.Errorf("dial adb server: %w", err)
	}
	if tcp, ok := nc.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
	}
	r := bufio.NewReaderSize(nc, 64*1024)

	if err := request(nc, r, protocol.TransportRequest(c.opts.Serial)); err != nil {
		nc.Close()
		return fmt.Errorf("select transport: %w", err)
	}

	c.mu.Lock()
	c.conn = nc
	c.r = r
	c.connected = true
	c.done = make(chan struct{})
	c.mu.Unlock()
	return nil
}

func request(w io.Writer, r io.Reader, service string) error {
	if _, err := w.Write(protocol.EncodeRequest(service)); err != nil {
		return err
	}
	return protocol.ReadStatus(r)
}

// Send opens service on the selected transport.
func (c *Conn) Send(service string) error {
	nc, r := c.socket()
	if nc == nil {
		return net.ErrClosed
	}
	if err := request(nc, r, service); err != nil {
		if !errors.As(err, new(*protocol.FailError)) {
			c.markDisconnected()
		}
		return fmt.Errorf("open service %q: %w", service, err)
	}
	return nil
}

// Buffered reports how many bytes can be read without blocking.
func (c *Conn) Buffered() int {
	_, r := c.socket()
	if r == nil {
		return 0
	}
	return r.Buffered()
}

// WaitReadable blocks until at least one byte is buffered or timeout passes.
// It returns os.ErrDeadlineExceeded on timeout and io.EOF when the device
// closed the stream; both EOF and any other error leave the Conn disconnected.
func (c *Conn) WaitReadable(timeout time.Duration) error {
	nc, r := c.socket()
	if nc == nil {
		return net.ErrClosed
	}
	if r.Buffered() > 0 {
		return nil
	}
	if err := nc.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		c.markDisconnected()
		return err
	}
	_, err := r.Peek(1)
	_ = nc.SetReadDeadline(time.Time{})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, os.ErrDeadlineExceeded):
		return os.ErrDeadlineExceeded
	case errors.Is(err, io.EOF):
		c.markDisconnected()
		return io.EOF
	default:
		c.markDisconnected()
		return err
	}
}

// Read reads from the buffered socket.
func (c *Conn) Read(p []byte) (int, error) {
	_, r := c.socket()
	if r == nil {
		return 0, net.ErrClosed
	}
	n, err := r.Read(p)
	if err != nil && !errors.Is(err, os.ErrDeadlineExceeded) {
		c.markDisconnected()
	}
	return n, err
}

// Connected reports whether the socket is still usable.
func (c *Conn) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Close shuts the socket. It is safe to call on a closed or never-connected Conn.
func (c *Conn) Close() error {
	c.mu.Lock()
	nc := c.conn
	c.conn = nil
	c.r = nil
	c.setDisconnectedLocked()
	c.mu.Unlock()
	if nc == nil {
		return nil
	}
	return nc.Close()
}

// WaitDisconnected waits until the socket has been closed or dropped.
func (c *Conn) WaitDisconnected(timeout time.Duration) error {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return os.ErrDeadlineExceeded
	}
}

func (c *Conn) socket() (net.Conn, *bufio.Reader) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn, c.r
}

func (c *Conn) markDisconnected() {
	c.mu.Lock()
	c.setDisconnectedLocked()
	c.mu.Unlock()
}

func (c *Conn) setDisconnectedLocked() {
	if c.connected {
		c.connected = false
		close(c.done)
	}
}
