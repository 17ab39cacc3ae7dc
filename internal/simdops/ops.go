// Package simdops provides generic SIMD operations for float32 and float64 types.
// This lets the interpolation kernels run on either precision without duplication.
package simdops

import (
	"github.com/tphakala/simd/f32"
	"github.com/tphakala/simd/f64"
)

// Float is the type constraint for supported floating-point types.
type Float interface {
	float32 | float64
}

// Ops provides SIMD-accelerated operations for type F.
// Function pointers keep the generic interpolators type-safe while delegating
// to the type-specific implementations.
type Ops[F Float] struct {
	// CubicInterpDot computes the fused cubic interpolation dot product:
	//   Σ hist[i] * (a[i] + x*(b[i] + x*(c[i] + x*d[i])))
	// Used by the cubic block resampler with per-tap Hermite basis coefficients.
	CubicInterpDot func(hist, a, b, c, d []F, x F) F

	// Interleave2 interleaves two slices: dst[0]=a[0], dst[1]=b[0], dst[2]=a[1], ...
	Interleave2 func(dst, a, b []F)
}

var (
	ops32 = Ops[float32]{
		CubicInterpDot: f32.CubicInterpDot,
		Interleave2:    f32.Interleave2,
	}
	ops64 = Ops[float64]{
		CubicInterpDot: f64.CubicInterpDot,
		Interleave2:    f64.Interleave2,
	}
)

// For returns the Ops instance for type F.
// The type switch happens at construction time, not in hot paths.
func For[F Float]() *Ops[F] {
	var zero F
	switch any(zero).(type) {
	case float32:
		ops, ok := any(&ops32).(*Ops[F])
		if !ok {
			panic("simdops: type assertion failed for float32")
		}
		return ops
	case float64:
		ops, ok := any(&ops64).(*Ops[F])
		if !ok {
			panic("simdops: type assertion failed for float64")
		}
		return ops
	default:
		panic("simdops: unsupported float type")
	}
}

// Float32Ops returns the float32 SIMD operations.
func Float32Ops() *Ops[float32] {
	return &ops32
}
