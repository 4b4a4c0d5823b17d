// Package pipeline streams images through detection, description and
// matching and aggregates per-run statistics.
package pipeline

import (
	"github.com/pkg/errors"

	"github.com/Dzusmin/featurebench/internal/features"
)

var (
	// ErrBufferFull is returned when pushing onto a buffer that already holds two frames.
	ErrBufferFull = errors.New("frame buffer is full")
	// ErrNotReady is returned when popping a buffer that holds fewer than two frames.
	ErrNotReady = errors.New("frame buffer holds no reference frame")
)

// Frame is one image and everything computed from it.
type Frame struct {
	Index       int
	Path        string
	Image       features.Raster
	KeyPoints   []features.KeyPoint
	Descriptors features.Descriptors
	// Matches against the previous frame, empty for the first one.
	Matches []features.Match
}

// Release closes the image and drops the computed data.
func (f *Frame) Release() error {
	var err error
	if f.Image != nil {
		err = f.Image.Close()
		f.Image = nil
	}
	f.KeyPoints = nil
	f.Descriptors = features.Descriptors{}
	f.Matches = nil
	return err
}

// BufferState tells how many frames a FrameBuffer holds.
type BufferState int

// Buffer states.
const (
	Empty BufferState = iota
	One
	// Two means a reference frame is available and matching can run.
	Two
)

func (s BufferState) String() string {
	switch s {
	case Empty:
		return "EMPTY"
	case One:
		return "ONE"
	case Two:
		return "TWO"
	default:
		return "unknown"
	}
}

// FrameBuffer is a FIFO of at most two frames. New frames go to the back and
// the front is the reference the back is matched against.
type FrameBuffer struct {
	slots [2]*Frame
	state BufferState
}

// Push appends f at the back.
func (b *FrameBuffer) Push(f *Frame) error {
	switch b.state {
	case Empty:
		b.slots[0] = f
		b.state = One
	case One:
		b.slots[1] = f
		b.state = Two
	default:
		return ErrBufferFull
	}
	return nil
}

// Pop removes and returns the front frame. It only succeeds when the buffer is
// full, so the back frame is never evicted.
func (b *FrameBuffer) Pop() (*Frame, error) {
	if b.state != Two {
		return nil, ErrNotReady
	}
	f := b.slots[0]
	b.slots[0], b.slots[1] = b.slots[1], nil
	b.state = One
	return f, nil
}

// Front returns the oldest frame, or nil.
func (b *FrameBuffer) Front() *Frame {
	return b.slots[0]
}

// Back returns the newest frame, or nil.
func (b *FrameBuffer) Back() *Frame {
	switch b.state {
	case One:
		return b.slots[0]
	case Two:
		return b.slots[1]
	default:
		return nil
	}
}

// Len returns the number of frames held.
func (b *FrameBuffer) Len() int {
	return int(b.state)
}

// State returns the buffer state.
func (b *FrameBuffer) State() BufferState {
	return b.state
}

// Drain empties the buffer and returns its frames front first.
func (b *FrameBuffer) Drain() []*Frame {
	out := make([]*Frame, 0, b.Len())
	for i := 0; i < b.Len(); i++ {
		out = append(out, b.slots[i])
	}
	b.slots = [2]*Frame{}
	b.state = Empty
	return out
}
