// Package pipeline provides the allocation-free buffers that connect the
// downsampler's resampling stages: a planar scratch buffer between the two
// stages and ring buffers for the re-blocked output.
package pipeline

import (
	"github.com/tphakala/go-audio-downsampler/internal/simdops"
)

// RingBuffer is a fixed-capacity circular buffer for audio samples.
// It never allocates after construction.
// It is not safe for concurrent use.
type RingBuffer[F simdops.Float] struct {
	data     []F
	size     int
	readPos  int
	writePos int
}

// NewRingBuffer creates a new ring buffer with the specified capacity.
func NewRingBuffer[F simdops.Float](capacity int) *RingBuffer[F] {
	if capacity < 1 {
		capacity = 1
	}

	return &RingBuffer[F]{
		data: make([]F, capacity),
	}
}

// Write appends samples and returns how many fit.
// Samples beyond the free space are dropped.
func (b *RingBuffer[F]) Write(samples []F) int {
	n := min(len(samples), b.Space())
	if n == 0 {
		return 0
	}

	// Copy in at most two runs (may wrap around)
	first := copy(b.data[b.writePos:], samples[:n])
	if first < n {
		copy(b.data, samples[first:n])
	}
	b.writePos = (b.writePos + n) % len(b.data)
	b.size += n

	return n
}

// WriteSilence appends n zero samples and returns how many fit.
func (b *RingBuffer[F]) WriteSilence(n int) int {
	n = min(n, b.Space())
	for i := range n {
		b.data[(b.writePos+i)%len(b.data)] = 0
	}
	b.writePos = (b.writePos + n) % len(b.data)
	b.size += n

	return n
}

// Read moves up to len(dst) samples into dst and returns the count.
func (b *RingBuffer[F]) Read(dst []F) int {
	n := min(len(dst), b.size)
	if n == 0 {
		return 0
	}

	first := copy(dst[:n], b.data[b.readPos:])
	if first < n {
		copy(dst[first:n], b.data)
	}
	b.readPos = (b.readPos + n) % len(b.data)
	b.size -= n

	return n
}

// Available returns the number of samples available for reading.
func (b *RingBuffer[F]) Available() int {
	return b.size
}

// Space returns the available space for writing.
func (b *RingBuffer[F]) Space() int {
	return len(b.data) - b.size
}

// Clear removes all samples from the buffer.
func (b *RingBuffer[F]) Clear() {
	b.size = 0
	b.readPos = 0
	b.writePos = 0
}
