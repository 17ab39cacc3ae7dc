package pipeline

import (
	"errors"
	"fmt"

	"github.com/tphakala/go-audio-downsampler/internal/simdops"
)

// ErrOverflow indicates a commit of more frames than the scratch buffer has
// room for.
var ErrOverflow = errors.New("scratch buffer overflow")

// Scratch is a planar multi-channel buffer with a shared fill level.
// It sits between two resampling stages: the first stage appends at the tail,
// the second consumes from the head. Capacity grows on request and never
// shrinks.
type Scratch[F simdops.Float] struct {
	channels [][]F
	fill     int

	// Reusable views so Head/Tail do not allocate.
	head [][]F
	tail [][]F
}

// NewScratch creates a scratch buffer with the given channel count and
// initial capacity in frames.
func NewScratch[F simdops.Float](channels, frames int) *Scratch[F] {
	s := &Scratch[F]{
		channels: make([][]F, channels),
		head:     make([][]F, channels),
		tail:     make([][]F, channels),
	}
	for ch := range s.channels {
		s.channels[ch] = make([]F, frames)
	}
	return s
}

// Ensure grows every channel to at least frames, zero-filling the extension
// and keeping buffered frames. It reports whether the buffer grew.
func (s *Scratch[F]) Ensure(frames int) bool {
	if frames <= s.Frames() {
		return false
	}
	for ch, buf := range s.channels {
		grown := make([]F, frames)
		copy(grown, buf[:s.fill])
		s.channels[ch] = grown
	}
	return true
}

// Frames returns the per-channel capacity.
func (s *Scratch[F]) Frames() int {
	if len(s.channels) == 0 {
		return 0
	}
	return len(s.channels[0])
}

// Len returns the number of buffered frames.
func (s *Scratch[F]) Len() int {
	return s.fill
}

// Space returns the number of frames that can still be appended.
func (s *Scratch[F]) Space() int {
	return s.Frames() - s.fill
}

// Head returns views over the buffered frames of every channel.
// The views are only valid until the next call that changes the buffer.
func (s *Scratch[F]) Head() [][]F {
	for ch, buf := range s.channels {
		s.head[ch] = buf[:s.fill]
	}
	return s.head
}

// Tail returns views over the free space of every channel.
func (s *Scratch[F]) Tail() [][]F {
	for ch, buf := range s.channels {
		s.tail[ch] = buf[s.fill:]
	}
	return s.tail
}

// Commit marks n frames written through Tail as buffered. A count that is
// negative or exceeds Space leaves the buffer unchanged and returns
// ErrOverflow.
func (s *Scratch[F]) Commit(n int) error {
	if n < 0 || n > s.Space() {
		return fmt.Errorf("%w: commit %d frames with %d free", ErrOverflow, n, s.Space())
	}
	s.fill += n
	return nil
}

// Consume drops n frames from the head, moving the remainder to the front.
func (s *Scratch[F]) Consume(n int) {
	n = min(n, s.fill)
	if n == 0 {
		return
	}
	for _, buf := range s.channels {
		copy(buf, buf[n:s.fill])
	}
	s.fill -= n
}

// Clear drops all buffered frames without releasing capacity.
func (s *Scratch[F]) Clear() {
	s.fill = 0
}
