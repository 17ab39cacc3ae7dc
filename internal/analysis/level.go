package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// RMS returns the root-mean-square level of samples.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	seq := toFloat64(samples)
	return math.Sqrt(floats.Dot(seq, seq) / float64(len(seq)))
}

// Peak returns the largest absolute sample value.
func Peak(samples []float32) float64 {
	var p float64
	for _, v := range samples {
		p = math.Max(p, math.Abs(float64(v)))
	}
	return p
}

// MaxJump returns the largest absolute difference between neighbouring
// samples, a simple discontinuity measure.
func MaxJump(samples []float32) float64 {
	var jump float64
	for i := 1; i < len(samples); i++ {
		jump = math.Max(jump, math.Abs(float64(samples[i]-samples[i-1])))
	}
	return jump
}

// NonFinite returns the index of the first NaN or Inf sample, or -1.
func NonFinite(samples []float32) int {
	for i, v := range samples {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return i
		}
	}
	return -1
}

// Mean returns the average sample value.
func Mean(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	return floats.Sum(toFloat64(samples)) / float64(len(samples))
}

func toFloat64(samples []float32) []float64 {
	seq := make([]float64, len(samples))
	for i, v := range samples {
		seq[i] = float64(v)
	}
	return seq
}
