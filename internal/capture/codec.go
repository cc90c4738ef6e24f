package capture

// The interfaces below are the seam between the capture loops and the media
// library. The production implementation lives in package video and is
// backed by ffmpeg; tests use counting fakes.

// Filler is the pull side of the byte source handed to the demuxer. Fill
// returns n > 0, io.EOF at end of input, or a fatal error. It never
// returns 0 with a nil error.
type Filler interface {
	Fill(p []byte) (int, error)
}

// ProbeOptions tune how the demuxer analyzes the raw stream.
type ProbeOptions struct {
	ProbeSize  int
	BufferSize int
	Format     string
}

// Packet is one demuxed access unit.
type Packet interface {
	StreamIndex() int
	Free()
}

// Picture is one decoded frame in the decoder's native format.
type Picture interface {
	Width() int
	Height() int
	PixFmt() int32
	Free()
}

// Stream is a stream found by the demuxer.
type Stream interface {
	Index() int
	IsVideo() bool
	// OpenDecoder finds, configures and opens a decoder for the stream.
	// On error nothing is left allocated.
	OpenDecoder() (Decoder, error)
}

// Demuxer reads access units out of the byte source.
type Demuxer interface {
	// Open opens and analyzes the input.
	Open() error
	Streams() []Stream
	// ReadPacket returns io.EOF at end of input. Backends that surface
	// starvation instead of blocking in the Filler return ErrAgain.
	ReadPacket() (Packet, error)
	// Close closes the input and then frees the custom I/O context.
	Close()
}

// Decoder follows the send/receive model. Send(nil) enters draining mode.
// Both calls return ErrAgain when the other side must run first; Receive
// returns io.EOF once a flushed decoder is empty.
type Decoder interface {
	Width() int
	Height() int
	PixFmt() int32
	Send(pkt Packet) error
	Receive() (Picture, error)
	Free()
}

// OutputBuffer is RGB24 pixel storage at the session's output size.
type OutputBuffer interface {
	Data() []byte
	Stride() int
	Free()
}

// Scaler converts pictures to the output size and RGB24 layout.
type Scaler interface {
	Scale(src Picture, dst OutputBuffer) error
	Free()
}

// Backend creates the media objects used by one session.
type Backend interface {
	NewDemuxer(src Filler, opts ProbeOptions) (Demuxer, error)
	NewScaler(srcW, srcH int, srcFmt int32, dstW, dstH int) (Scaler, error)
	NewOutput(w, h int) (OutputBuffer, error)
}
