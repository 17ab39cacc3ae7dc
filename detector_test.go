package downsampler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChangeDetector_FiresOncePerDistinctValue(t *testing.T) {
	d := NewChangeDetector()

	_, ok := d.Last()
	assert.False(t, ok)

	sequence := []struct {
		live int
		fire bool
	}{
		{10000, true},
		{10000, false},
		{10000, false},
		{5000, true},
		{5000, false},
		{10000, true},
		{10000, false},
	}

	for i, step := range sequence {
		fired := d.Poll(step.live)
		assert.Equal(t, step.fire, fired, "step %d (live=%d)", i, step.live)
		if fired {
			assert.True(t, d.Reconfiguring())
			d.Commit(step.live)
		}
		assert.False(t, d.Reconfiguring())
		last, ok := d.Last()
		assert.True(t, ok)
		assert.Equal(t, step.live, last)
	}
}

func TestChangeDetector_FailDoesNotRetry(t *testing.T) {
	d := NewChangeDetector()
	d.Commit(10000)

	assert.True(t, d.Poll(20000))
	d.Fail(20000)
	assert.False(t, d.Reconfiguring())
	assert.False(t, d.Poll(20000), "a failed value is attempted once")
	assert.True(t, d.Poll(10000))
}

func TestChangeDetector_Force(t *testing.T) {
	d := NewChangeDetector()
	d.Commit(10000)
	assert.False(t, d.Poll(10000))

	d.Force()
	assert.True(t, d.Poll(10000))
	d.Commit(10000)
	assert.False(t, d.Poll(10000))
}
