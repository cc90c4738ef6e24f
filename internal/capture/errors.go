package capture

import (
	"errors"
	"fmt"
)

var (
	// ErrConnection marks failures to reach the device or start the capture.
	ErrConnection = errors.New("capture: device connection failed")
	// ErrNoStream is returned when no video stream could be decoded.
	ErrNoStream = errors.New("capture: no usable video stream")
	// ErrAgain is the transient "try again" signal of demuxers and decoders.
	ErrAgain = errors.New("capture: resource temporarily unavailable")
)

// ProbeError wraps a failure to open or analyze the input.
type ProbeError struct {
	Op  string
	Err error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe: %s: %v", e.Op, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// DecodeError is a fatal codec-level failure inside the decode loop.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode: %s: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
