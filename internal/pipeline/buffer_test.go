package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingBuffer_WriteRead(t *testing.T) {
	b := NewRingBuffer[float32](8)

	assert.Equal(t, 8, b.Space())
	assert.Equal(t, 0, b.Available())

	n := b.Write([]float32{1, 2, 3, 4, 5})
	assert.Equal(t, 5, n)
	assert.Equal(t, 5, b.Available())
	assert.Equal(t, 3, b.Space())

	dst := make([]float32, 3)
	assert.Equal(t, 3, b.Read(dst))
	assert.Equal(t, []float32{1, 2, 3}, dst)

	// Wraps around the end of the backing array.
	assert.Equal(t, 5, b.Write([]float32{6, 7, 8, 9, 10}))
	assert.Equal(t, 7, b.Available())

	out := make([]float32, 10)
	n = b.Read(out)
	require.Equal(t, 7, n)
	assert.Equal(t, []float32{4, 5, 6, 7, 8, 9, 10}, out[:n])
	assert.Equal(t, 0, b.Available())
}

func TestRingBuffer_WriteDropsOverflow(t *testing.T) {
	b := NewRingBuffer[float64](4)

	assert.Equal(t, 4, b.Write([]float64{1, 2, 3, 4, 5, 6}))
	assert.Equal(t, 0, b.Write([]float64{7}))
	assert.Equal(t, 0, b.Space())

	out := make([]float64, 4)
	b.Read(out)
	assert.Equal(t, []float64{1, 2, 3, 4}, out)
}

func TestRingBuffer_WriteSilence(t *testing.T) {
	b := NewRingBuffer[float32](4)
	b.Write([]float32{9, 9, 9})
	b.Read(make([]float32, 3))

	// Write position is now 3; silence must wrap to the front.
	assert.Equal(t, 4, b.WriteSilence(6))
	out := []float32{1, 1, 1, 1}
	assert.Equal(t, 4, b.Read(out))
	assert.Equal(t, []float32{0, 0, 0, 0}, out)
}

func TestRingBuffer_Clear(t *testing.T) {
	b := NewRingBuffer[float32](4)
	b.Write([]float32{1, 2})
	b.Clear()

	assert.Equal(t, 0, b.Available())
	assert.Equal(t, 4, b.Space())
	assert.Equal(t, 0, b.Read(make([]float32, 2)))
}

func TestRingBuffer_MinimumCapacity(t *testing.T) {
	b := NewRingBuffer[float64](0)
	assert.Equal(t, 1, b.Space())
}

func TestRingBuffer_NoAllocs(t *testing.T) {
	b := NewRingBuffer[float32](256)
	in := make([]float32, 100)
	out := make([]float32, 100)

	allocs := testing.AllocsPerRun(100, func() {
		b.Write(in)
		b.WriteSilence(28)
		b.Read(out)
		b.Read(out[:28])
	})
	assert.Zero(t, allocs)
}
