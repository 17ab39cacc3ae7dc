package downsampler

import (
	"fmt"
	"math"
	"sync/atomic"
)

// RateParam is the user-facing target-rate parameter.
//
// The host thread writes it and the audio thread reads a snapshot once per
// block, so it is a single atomic value. The zero value reports
// DefaultTargetRate.
type RateParam struct {
	hz atomic.Int32
}

// NewRateParam creates a parameter holding DefaultTargetRate.
func NewRateParam() *RateParam {
	p := &RateParam{}
	p.hz.Store(DefaultTargetRate)
	return p
}

// Get returns the current target rate in Hz.
func (p *RateParam) Get() int {
	v := int(p.hz.Load())
	if v == 0 {
		return DefaultTargetRate
	}
	return v
}

// Set stores hz clamped to [MinTargetRate, MaxTargetRate] and returns the
// stored value.
func (p *RateParam) Set(hz int) int {
	hz = max(MinTargetRate, min(MaxTargetRate, hz))
	p.hz.Store(int32(hz))
	return hz
}

// Reset restores DefaultTargetRate.
func (p *RateParam) Reset() {
	p.hz.Store(DefaultTargetRate)
}

// Normalized returns the current value mapped linearly onto [0, 1].
func (p *RateParam) Normalized() float64 {
	return float64(p.Get()-MinTargetRate) / float64(MaxTargetRate-MinTargetRate)
}

// SetNormalized sets the value from a linear [0, 1] automation value,
// rounding to the nearest Hz. Out-of-range and NaN inputs are clamped.
func (p *RateParam) SetNormalized(x float64) int {
	if math.IsNaN(x) {
		x = 0
	}
	x = math.Max(0, math.Min(1, x))
	return p.Set(MinTargetRate + int(math.Round(x*float64(MaxTargetRate-MinTargetRate))))
}

// String formats the value with its unit, e.g. "10000 Hz".
func (p *RateParam) String() string {
	return fmt.Sprintf("%d %s", p.Get(), ParamUnit)
}
