package capture

import "sync/atomic"

// Sink receives emitted frames. Publish must not block the capture worker
// for long; the worker does not wait for the consumer to finish a frame.
type Sink interface {
	Publish(f Frame)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Frame)

func (fn SinkFunc) Publish(f Frame) { fn(f) }

// FrameQueue is a bounded hand-off between the capture worker and a consumer
// on another goroutine. When the consumer falls behind the oldest queued
// frame is dropped, so Publish never blocks and the consumer always sees the
// most recent screen.
type FrameQueue struct {
	ch      chan Frame
	dropped atomic.Uint64
}

// NewFrameQueue returns a queue holding up to size frames (minimum 1).
func NewFrameQueue(size int) *FrameQueue {
	if size < 1 {
		size = 1
	}
	return &FrameQueue{ch: make(chan Frame, size)}
}

// Publish enqueues f, evicting the oldest frame when full.
func (q *FrameQueue) Publish(f Frame) {
	for {
		select {
		case q.ch <- f:
			return
		default:
		}
		select {
		case <-q.ch:
			q.dropped.Add(1)
			evFramesDropped.Add(1)
		default:
		}
	}
}

// Frames is the consumer side of the queue.
func (q *FrameQueue) Frames() <-chan Frame { return q.ch }

// Len reports how many frames are waiting.
func (q *FrameQueue) Len() int { return len(q.ch) }

// Dropped reports how many frames were evicted unseen.
func (q *FrameQueue) Dropped() uint64 { return q.dropped.Load() }
