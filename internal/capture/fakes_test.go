package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"sync"
	"time"
)

// ---- device connection ----

// connEvent is what the next WaitReadable call observes.
type connEvent struct {
	data    []byte
	timeout bool
	eof     bool
	err     error
}

type fakeConn struct {
	mu         sync.Mutex
	events     []connEvent
	buf        []byte
	connected  bool
	connects   int
	connectErr []error
	sendErr    error
	sent       []string
	closed     int
	onWait     func()
}

func (c *fakeConn) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connects++
	if len(c.connectErr) > 0 {
		err := c.connectErr[0]
		c.connectErr = c.connectErr[1:]
		if err != nil {
			return err
		}
	}
	c.connected = true
	return nil
}

func (c *fakeConn) Send(service string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, service)
	return c.sendErr
}

func (c *fakeConn) Buffered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buf)
}

func (c *fakeConn) WaitReadable(timeout time.Duration) error {
	if c.onWait != nil {
		c.onWait()
	}
	err := c.next()
	if errors.Is(err, os.ErrDeadlineExceeded) {
		time.Sleep(timeout)
	}
	return err
}

func (c *fakeConn) next() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.buf) > 0 {
		return nil
	}
	if len(c.events) == 0 {
		c.connected = false
		return io.EOF
	}
	ev := c.events[0]
	c.events = c.events[1:]
	switch {
	case ev.timeout:
		return os.ErrDeadlineExceeded
	case ev.eof:
		c.connected = false
		return io.EOF
	case ev.err != nil:
		c.connected = false
		return ev.err
	}
	c.buf = append(c.buf, ev.data...)
	return nil
}

func (c *fakeConn) Read(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := copy(p, c.buf)
	c.buf = c.buf[n:]
	return n, nil
}

func (c *fakeConn) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	c.connected = false
	return nil
}

func (c *fakeConn) WaitDisconnected(time.Duration) error { return nil }

// ---- media backend ----

// ledger counts live objects per kind and catches double frees.
type ledger struct {
	mu          sync.Mutex
	live        map[string]int
	created     map[string]int
	doubleFrees int
}

func newLedger() *ledger {
	return &ledger{live: map[string]int{}, created: map[string]int{}}
}

func (l *ledger) alloc(kind string) *handle {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.live[kind]++
	l.created[kind]++
	return &handle{l: l, kind: kind}
}

func (l *ledger) leaks() map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := map[string]int{}
	for k, v := range l.live {
		if v != 0 {
			out[k] = v
		}
	}
	return out
}

func (l *ledger) count(kind string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.created[kind]
}

type handle struct {
	l     *ledger
	kind  string
	freed bool
}

func (h *handle) Free() {
	h.l.mu.Lock()
	defer h.l.mu.Unlock()
	if h.freed {
		h.l.doubleFrees++
		return
	}
	h.freed = true
	h.l.live[h.kind]--
}

type fakePacket struct {
	*handle
	stream int
}

func (p *fakePacket) StreamIndex() int { return p.stream }

type fakePicture struct {
	*handle
	w, h int
	fmt  int32
	fill byte
}

func (p *fakePicture) Width() int    { return p.w }
func (p *fakePicture) Height() int   { return p.h }
func (p *fakePicture) PixFmt() int32 { return p.fmt }

// readResult scripts one ReadPacket call.
type readResult struct {
	stream int
	err    error
}

type fakeDemuxer struct {
	*handle
	b       *fakeBackend
	src     Filler
	opts    ProbeOptions
	reads   int
	packets []readResult
}

func (d *fakeDemuxer) Open() error {
	if d.b.openErr != nil {
		return d.b.openErr
	}
	if d.b.fromSource {
		// probing consumes the first chunk like a real demuxer would
		p := make([]byte, d.opts.ProbeSize)
		if _, err := d.src.Fill(p); err != nil {
			return fmt.Errorf("find stream info: %w", err)
		}
	}
	return nil
}

func (d *fakeDemuxer) Streams() []Stream { return d.b.streams }

func (d *fakeDemuxer) ReadPacket() (Packet, error) {
	d.reads++
	if d.b.fromSource {
		p := make([]byte, d.opts.BufferSize)
		if _, err := d.src.Fill(p); err != nil {
			return nil, err
		}
		return &fakePacket{handle: d.b.ledger.alloc("packet"), stream: d.b.sourceStream}, nil
	}
	if len(d.packets) == 0 {
		return nil, io.EOF
	}
	r := d.packets[0]
	d.packets = d.packets[1:]
	if r.err != nil {
		return nil, r.err
	}
	return &fakePacket{handle: d.b.ledger.alloc("packet"), stream: r.stream}, nil
}

func (d *fakeDemuxer) Close() { d.handle.Free() }

type fakeStream struct {
	b       *fakeBackend
	index   int
	video   bool
	openErr error
	w, h    int
}

func (s *fakeStream) Index() int    { return s.index }
func (s *fakeStream) IsVideo() bool { return s.video }

func (s *fakeStream) OpenDecoder() (Decoder, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	dec := &fakeDecoder{handle: s.b.ledger.alloc("decoder"), b: s.b, stream: s.index, w: s.w, h: s.h}
	s.b.decoders = append(s.b.decoders, dec)
	return dec, nil
}

type fakeDecoder struct {
	*handle
	b       *fakeBackend
	stream  int
	w, h    int
	pending int
	flushed bool
	sends   []int // stream index of every packet sent, -1 for flush
}

func (d *fakeDecoder) Width() int    { return d.w }
func (d *fakeDecoder) Height() int   { return d.h }
func (d *fakeDecoder) PixFmt() int32 { return 0 }

func (d *fakeDecoder) Send(pkt Packet) error {
	if pkt == nil {
		d.sends = append(d.sends, -1)
		d.flushed = true
		d.pending += d.b.flushFrames
		return nil
	}
	d.sends = append(d.sends, pkt.StreamIndex())
	if len(d.b.sendErrs) > 0 {
		err := d.b.sendErrs[0]
		d.b.sendErrs = d.b.sendErrs[1:]
		if err != nil {
			return err
		}
	}
	d.pending += d.b.framesPerPacket
	return nil
}

func (d *fakeDecoder) Receive() (Picture, error) {
	if d.b.receiveErr != nil {
		return nil, d.b.receiveErr
	}
	if d.pending > 0 {
		d.pending--
		w, h := d.w, d.h
		if d.b.resize != nil {
			w, h = d.b.resize(len(d.sends))
		}
		return &fakePicture{handle: d.b.ledger.alloc("picture"), w: w, h: h, fill: byte(len(d.sends))}, nil
	}
	if d.flushed {
		return nil, io.EOF
	}
	return nil, ErrAgain
}

type fakeScaler struct {
	*handle
	srcW, srcH int
	dstW, dstH int
}

// Scale writes the picture's fill byte into every visible pixel and 0xEE
// into the row padding.
func (s *fakeScaler) Scale(src Picture, dst OutputBuffer) error {
	p := src.(*fakePicture)
	data, stride := dst.Data(), dst.Stride()
	for y := 0; y < s.dstH; y++ {
		row := data[y*stride : (y+1)*stride]
		for x := range row {
			if x < s.dstW*3 {
				row[x] = p.fill
			} else {
				row[x] = 0xEE
			}
		}
	}
	return nil
}

type fakeOutput struct {
	*handle
	data   []byte
	stride int
}

func (o *fakeOutput) Data() []byte { return o.data }
func (o *fakeOutput) Stride() int  { return o.stride }

type fakeBackend struct {
	ledger *ledger

	streams      []Stream
	openErr      error
	demuxErr     error
	fromSource   bool
	sourceStream int
	packets      []readResult

	framesPerPacket int
	flushFrames     int
	sendErrs        []error
	receiveErr      error
	scalerErr       error
	resize          func(sends int) (int, int)

	demuxers []*fakeDemuxer
	decoders []*fakeDecoder
	scalers  []*fakeScaler
}

func newFakeBackend() *fakeBackend {
	b := &fakeBackend{ledger: newLedger(), framesPerPacket: 1}
	b.streams = []Stream{&fakeStream{b: b, index: 0, video: true, w: 720, h: 1280}}
	return b
}

func (b *fakeBackend) addStream(index int, video bool, openErr error) {
	b.streams = append(b.streams, &fakeStream{b: b, index: index, video: video, openErr: openErr, w: 720, h: 1280})
}

func (b *fakeBackend) NewDemuxer(src Filler, opts ProbeOptions) (Demuxer, error) {
	if b.demuxErr != nil {
		return nil, b.demuxErr
	}
	d := &fakeDemuxer{handle: b.ledger.alloc("demuxer"), b: b, src: src, opts: opts, packets: b.packets}
	b.demuxers = append(b.demuxers, d)
	return d, nil
}

func (b *fakeBackend) NewScaler(srcW, srcH int, srcFmt int32, dstW, dstH int) (Scaler, error) {
	if b.scalerErr != nil {
		return nil, b.scalerErr
	}
	sc := &fakeScaler{handle: b.ledger.alloc("scaler"), srcW: srcW, srcH: srcH, dstW: dstW, dstH: dstH}
	b.scalers = append(b.scalers, sc)
	return sc, nil
}

func (b *fakeBackend) NewOutput(w, h int) (OutputBuffer, error) {
	stride := w*3 + 32 // padded like an aligned image buffer
	return &fakeOutput{handle: b.ledger.alloc("output"), data: make([]byte, stride*h), stride: stride}, nil
}

// ---- snapshot fetcher ----

type fakeFetcher struct {
	mu       sync.Mutex
	awake    bool
	awakeErr error
	img      image.Image
	fetchErr error
	calls    map[string]int
}

func (f *fakeFetcher) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[name]++
}

func (f *fakeFetcher) ScreenAwake(context.Context) (bool, error) {
	f.record("awake")
	return f.awake, f.awakeErr
}

func (f *fakeFetcher) fetch(name string) (image.Image, error) {
	f.record(name)
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.img, nil
}

func (f *fakeFetcher) FetchJPEG(context.Context) (image.Image, error) { return f.fetch("jpeg") }
func (f *fakeFetcher) FetchPNG(context.Context) (image.Image, error)  { return f.fetch("png") }
func (f *fakeFetcher) FetchRaw(context.Context) (image.Image, error)  { return f.fetch("raw") }

// ---- sink ----

type recordingSink struct {
	mu     sync.Mutex
	frames []Frame
	after  func(n int)
}

func (s *recordingSink) Publish(f Frame) {
	s.mu.Lock()
	s.frames = append(s.frames, f)
	n := len(s.frames)
	s.mu.Unlock()
	if s.after != nil {
		s.after(n)
	}
}

func (s *recordingSink) all() []Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Frame(nil), s.frames...)
}
