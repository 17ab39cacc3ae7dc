package downsampler

import (
	"fmt"
	"math"
)

// QuantizeRate returns the smallest integer rate >= target for which
// chunkSize*rate is an exact multiple of the (truncated) host rate.
//
// At such a rate a chunk of chunkSize host frames maps to a whole number of
// intermediate frames, so the down and up stages move identical frame counts
// on every call. The search steps 1 Hz at a time and covers one full period
// of the divisibility test, which always contains a solution; exhausting it
// returns ErrSearchExhausted.
//
// Fractional host rates are truncated before the test.
func QuantizeRate(target int, hostRate float64, chunkSize int) (int, error) {
	if math.IsNaN(hostRate) || math.IsInf(hostRate, 0) || hostRate < 1 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidHostRate, hostRate)
	}
	if chunkSize < 1 {
		return 0, fmt.Errorf("%w: chunk size must be at least 1, got %d", ErrInvalidConfig, chunkSize)
	}
	if target < 1 {
		return 0, fmt.Errorf("%w: target rate must be positive, got %d", ErrInvalidConfig, target)
	}

	host := int64(hostRate)
	chunk := int64(chunkSize)
	rate := int64(target)
	for range host {
		if (chunk*rate)%host == 0 {
			return int(rate), nil
		}
		rate++
	}

	return 0, fmt.Errorf("%w: no rate >= %d within %d Hz for host rate %d",
		ErrSearchExhausted, target, host, host)
}
