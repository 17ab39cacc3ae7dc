// Package testutil provides reusable signal generators and assertions for
// downsampler tests.
package testutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tphakala/go-audio-downsampler/internal/analysis"
)

// Default tolerances for various test scenarios.
const (
	DefaultTolerance = 1e-6
	DCTolerance      = 1e-4
)

// stereoChannels is the channel count of generated blocks.
const stereoChannels = 2

// Sine returns n samples of a sine wave at freq Hz.
func Sine(freq, rate float64, n int, amp float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = amp * float32(math.Sin(2*math.Pi*freq*float64(i)/rate))
	}
	return out
}

// Sweep returns n samples of a linear sine sweep from f0 to f1 Hz.
func Sweep(f0, f1, rate float64, n int, amp float32) []float32 {
	out := make([]float32, n)
	duration := float64(n) / rate
	k := (f1 - f0) / duration
	for i := range out {
		t := float64(i) / rate
		out[i] = amp * float32(math.Sin(2*math.Pi*(f0*t+0.5*k*t*t)))
	}
	return out
}

// Constant returns n samples of value v.
func Constant(v float32, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// Stereo returns a planar stereo signal with independent copies of mono in
// both channels.
func Stereo(mono []float32) [][]float32 {
	return [][]float32{
		append([]float32(nil), mono...),
		append([]float32(nil), mono...),
	}
}

// Blocks splits a planar stereo signal into consecutive blocks with the given
// sizes, cycling through sizes until the signal is exhausted. The blocks
// alias the signal.
func Blocks(signal [][]float32, sizes ...int) [][][]float32 {
	var blocks [][][]float32
	n := len(signal[0])
	for start, i := 0, 0; start < n; i++ {
		end := min(start+sizes[i%len(sizes)], n)
		block := make([][]float32, stereoChannels)
		for ch := range block {
			block[ch] = signal[ch][start:end]
		}
		blocks = append(blocks, block)
		start = end
	}
	return blocks
}

// AssertFinite verifies that no sample is NaN or Inf.
func AssertFinite(t *testing.T, s []float32, msgAndArgs ...any) bool {
	t.Helper()
	if i := analysis.NonFinite(s); i >= 0 {
		return assert.Fail(t, "found non-finite sample", "s[%d] = %v", i, s[i])
	}
	return true
}

// AssertMaxJump verifies that neighbouring samples never differ by more
// than limit.
func AssertMaxJump(t *testing.T, s []float32, limit float64, msgAndArgs ...any) bool {
	t.Helper()
	return assert.LessOrEqual(t, analysis.MaxJump(s), limit, msgAndArgs...)
}

// AssertAllNear verifies that every sample is within tolerance of want.
func AssertAllNear(t *testing.T, s []float32, want, tolerance float64, msgAndArgs ...any) bool {
	t.Helper()
	for i, v := range s {
		if math.Abs(float64(v)-want) > tolerance {
			return assert.Fail(t, "sample out of tolerance",
				"s[%d]=%v, want %v ± %v", i, v, want, tolerance)
		}
	}
	return true
}

// AssertSilent verifies that every sample is exactly zero.
func AssertSilent(t *testing.T, s []float32, msgAndArgs ...any) bool {
	t.Helper()
	for i, v := range s {
		if v != 0 {
			return assert.Fail(t, "sample not silent", "s[%d]=%v", i, v)
		}
	}
	return true
}

// AssertRelativeError verifies that the relative error between actual and expected is within tolerance.
func AssertRelativeError(t *testing.T, expected, actual, tolerance float64, msgAndArgs ...any) bool {
	t.Helper()
	if expected == 0 {
		return assert.InDelta(t, expected, actual, tolerance, msgAndArgs...)
	}
	relError := math.Abs(actual-expected) / math.Abs(expected)
	return assert.LessOrEqual(t, relError, tolerance,
		"relative error %e exceeds tolerance %e (expected=%f, actual=%f)",
		relError, tolerance, expected, actual)
}

// AssertInRange verifies that a value is within [min, max].
func AssertInRange(t *testing.T, value, minVal, maxVal float64, msgAndArgs ...any) bool {
	t.Helper()
	if value < minVal || value > maxVal {
		return assert.Fail(t, "value out of range",
			"value %f is outside range [%f, %f]", value, minVal, maxVal)
	}
	return true
}
