package downsampler

import (
	"fmt"

	"github.com/tphakala/go-audio-downsampler/internal/simdops"
)

// Common host sample rates.
const (
	// RateCD is the CD quality sample rate (Red Book standard).
	RateCD = 44100

	// RateDAT is the DAT/DVD sample rate.
	RateDAT = 48000

	// RateHiRes88 is the high-resolution 2x CD sample rate.
	RateHiRes88 = 88200

	// RateHiRes96 is the high-resolution 2x DAT sample rate.
	RateHiRes96 = 96000

	// RateHiRes192 is the very high resolution 4x DAT sample rate.
	RateHiRes192 = 192000
)

// offlineBlockFrames is the host block size ProcessStereo feeds the engine.
const offlineBlockFrames = 512

// ProcessStereo is a convenience function for one-shot offline processing.
// It runs left and right through a fresh Downsampler at hostRate with the
// given target rate and returns new slices of the same length. Output is
// delayed by the effect latency; no tail is flushed.
func ProcessStereo(left, right []float32, hostRate float64, targetRate int) (leftOut, rightOut []float32, err error) {
	if len(left) != len(right) {
		return nil, nil, fmt.Errorf("%w: channel lengths differ (%d vs %d)", ErrInvalidBlock, len(left), len(right))
	}

	param := NewRateParam()
	param.Set(targetRate)

	cfg := DefaultConfig()
	cfg.Param = param

	d, err := New(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := d.Init(hostRate); err != nil {
		return nil, nil, err
	}

	leftOut = append([]float32(nil), left...)
	rightOut = append([]float32(nil), right...)

	block := make([][]float32, Channels)
	for start := 0; start < len(leftOut); start += offlineBlockFrames {
		end := min(start+offlineBlockFrames, len(leftOut))
		block[0] = leftOut[start:end]
		block[1] = rightOut[start:end]
		if _, err := d.Process(block); err != nil {
			return nil, nil, err
		}
	}

	return leftOut, rightOut, nil
}

// InterleaveStereo converts two mono channels to interleaved stereo.
// Output format: [L0, R0, L1, R1, L2, R2, ...]
func InterleaveStereo(left, right []float32) []float32 {
	n := min(len(left), len(right))
	result := make([]float32, n*Channels)
	InterleaveStereoInto(result, left[:n], right[:n])
	return result
}

// InterleaveStereoInto interleaves left and right into dst without
// allocating. dst must hold 2*min(len(left), len(right)) samples.
func InterleaveStereoInto(dst, left, right []float32) {
	n := min(len(left), len(right), len(dst)/Channels)
	simdops.Float32Ops().Interleave2(dst[:n*Channels], left[:n], right[:n])
}

// DeinterleaveStereo converts interleaved stereo to two mono channels.
// Input format: [L0, R0, L1, R1, L2, R2, ...]
func DeinterleaveStereo(interleaved []float32) (left, right []float32) {
	n := len(interleaved) / Channels
	left = make([]float32, n)
	right = make([]float32, n)
	DeinterleaveStereoInto(left, right, interleaved)
	return left, right
}

// DeinterleaveStereoInto splits interleaved stereo into left and right
// without allocating. It returns the number of frames written.
func DeinterleaveStereoInto(left, right, interleaved []float32) int {
	n := min(len(left), len(right), len(interleaved)/Channels)
	for i := range n {
		left[i] = interleaved[i*Channels]
		right[i] = interleaved[i*Channels+1]
	}
	return n
}
