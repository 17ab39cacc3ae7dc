// Package engine implements the block resampling primitive behind the two
// downsampler stages.
//
// A BlockResampler works on planar multi-channel audio in fixed chunks. In
// FixedInput mode it consumes exactly chunkSize frames per call and produces a
// ratio-dependent number of frames; in FixedOutput mode it produces exactly
// chunkSize frames and consumes whatever that requires. When chunkSize*ratio
// is an integer both modes move the same number of frames on every call,
// which is what lets two chained stages return to the original rate without
// drifting.
package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/tphakala/go-audio-downsampler/internal/simdops"
)

// Mode selects which side of the resampler has a fixed frame count.
type Mode int

const (
	// FixedInput consumes exactly chunkSize frames per Process call.
	FixedInput Mode = iota

	// FixedOutput produces exactly chunkSize frames per Process call.
	FixedOutput
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case FixedInput:
		return "fixed-input"
	case FixedOutput:
		return "fixed-output"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Interpolation selects the polynomial used between input frames.
type Interpolation int

const (
	// InterpolationNearest picks the closest input frame.
	InterpolationNearest Interpolation = iota

	// InterpolationLinear interpolates between the two surrounding frames.
	InterpolationLinear

	// InterpolationCubic uses 4-point Catmull-Rom (cubic Hermite) interpolation.
	InterpolationCubic
)

// String returns the interpolation name.
func (i Interpolation) String() string {
	switch i {
	case InterpolationNearest:
		return "nearest"
	case InterpolationLinear:
		return "linear"
	case InterpolationCubic:
		return "cubic"
	default:
		return fmt.Sprintf("Interpolation(%d)", int(i))
	}
}

// Errors returned by BlockResampler.
var (
	ErrInvalidConfig     = errors.New("invalid block resampler configuration")
	ErrInvalidRatio      = errors.New("invalid resample ratio")
	ErrInvalidRatioBound = errors.New("invalid resample ratio bound")
	ErrRatioOutOfBounds  = errors.New("resample ratio out of bounds")
	ErrInsufficientInput = errors.New("insufficient input frames")
	ErrBufferTooSmall    = errors.New("output buffer too small")
	ErrChannelMismatch   = errors.New("channel count mismatch")
)

// BlockResampler is a stateful, bounded-ratio, chunked resampler.
//
// Type parameter F controls sample precision. The instance is not safe for
// concurrent use.
type BlockResampler[F simdops.Float] struct {
	mode      Mode
	interp    Interpolation
	chunkSize int
	channels  int

	ratio    float64 // output rate / input rate
	step     float64 // input frames advanced per output frame
	minRatio float64
	maxRatio float64

	// Pending ramp, applied across the next chunk.
	ramping bool
	rampTo  float64

	// phase is the position of the next output frame, in input frames,
	// relative to the start of the next chunk.
	phase   float64
	history [][]F

	window [windowTaps]F
	coefA  [windowTaps]F
	coefB  [windowTaps]F
	coefC  [windowTaps]F
	coefD  [windowTaps]F
	ops    *simdops.Ops[F]
}

// NewBlockResampler creates a resampler with the given initial ratio.
// Later ratios must stay within [ratio/maxRelativeRatio, ratio*maxRelativeRatio].
func NewBlockResampler[F simdops.Float](
	mode Mode,
	ratio, maxRelativeRatio float64,
	interp Interpolation,
	chunkSize, channels int,
) (*BlockResampler[F], error) {
	if mode != FixedInput && mode != FixedOutput {
		return nil, fmt.Errorf("%w: unknown mode %d", ErrInvalidConfig, int(mode))
	}
	if interp < InterpolationNearest || interp > InterpolationCubic {
		return nil, fmt.Errorf("%w: unknown interpolation %d", ErrInvalidConfig, int(interp))
	}
	if chunkSize < 1 {
		return nil, fmt.Errorf("%w: chunk size must be at least 1, got %d", ErrInvalidConfig, chunkSize)
	}
	if channels < 1 {
		return nil, fmt.Errorf("%w: channels must be at least 1, got %d", ErrInvalidConfig, channels)
	}
	if !(ratio > 0) || math.IsInf(ratio, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRatio, ratio)
	}
	if !(maxRelativeRatio >= 1) || math.IsInf(maxRelativeRatio, 0) {
		return nil, fmt.Errorf("%w: %v (must be >= 1)", ErrInvalidRatioBound, maxRelativeRatio)
	}

	r := &BlockResampler[F]{
		mode:      mode,
		interp:    interp,
		chunkSize: chunkSize,
		channels:  channels,
		ratio:     ratio,
		step:      1 / ratio,
		minRatio:  ratio / maxRelativeRatio,
		maxRatio:  ratio * maxRelativeRatio,
		history:   make([][]F, channels),
		ops:       simdops.For[F](),
	}
	for ch := range r.history {
		r.history[ch] = make([]F, historyFrames)
	}
	for i := range windowTaps {
		r.coefA[i] = F(hermiteA[i])
		r.coefB[i] = F(hermiteB[i])
		r.coefC[i] = F(hermiteC[i])
		r.coefD[i] = F(hermiteD[i])
	}

	return r, nil
}

// SetRatio updates the resample ratio without reallocating.
// With ramp set, the step sweeps linearly from the current ratio to the new
// one over the next chunk; otherwise the new ratio applies immediately.
func (r *BlockResampler[F]) SetRatio(ratio float64, ramp bool) error {
	if math.IsNaN(ratio) || ratio < r.minRatio*(1-phaseEpsilon) || ratio > r.maxRatio*(1+phaseEpsilon) {
		return fmt.Errorf("%w: %v not in [%v, %v]", ErrRatioOutOfBounds, ratio, r.minRatio, r.maxRatio)
	}

	if ramp && ratio != r.ratio {
		r.ramping = true
		r.rampTo = ratio
		return nil
	}

	r.ramping = false
	r.ratio = ratio
	r.step = 1 / ratio
	return nil
}

// Process resamples one chunk from in into out and reports the frames used.
// in must hold at least InputFramesNext() frames per channel and out at
// least OutputFramesNext().
func (r *BlockResampler[F]) Process(in, out [][]F) (consumed, produced int, err error) {
	if len(in) != r.channels || len(out) != r.channels {
		return 0, 0, fmt.Errorf("%w: want %d, got in=%d out=%d",
			ErrChannelMismatch, r.channels, len(in), len(out))
	}

	needIn, needOut, _ := r.walk(nil, nil, false, 1)
	for ch := range r.channels {
		if len(in[ch]) < needIn {
			return 0, 0, fmt.Errorf("%w: channel %d has %d frames, need %d",
				ErrInsufficientInput, ch, len(in[ch]), needIn)
		}
		if len(out[ch]) < needOut {
			return 0, 0, fmt.Errorf("%w: channel %d has room for %d frames, need %d",
				ErrBufferTooSmall, ch, len(out[ch]), needOut)
		}
	}

	consumed, produced, next := r.walk(in, out, true, 1)
	r.finishChunk(in, consumed, next)

	return consumed, produced, nil
}

// ProcessSpan produces one FixedOutput chunk while consuming exactly frames
// input frames. The output positions of the chunk are stretched uniformly
// about the current phase, so the fractional phase carried into the next
// chunk is unchanged. A pending ramp shapes the positions and then settles
// as in Process.
//
// It lets a FixedOutput stage absorb a chunk whose size differs from
// InputFramesNext, e.g. the output of an upstream stage that has just ramped.
func (r *BlockResampler[F]) ProcessSpan(in, out [][]F, frames int) (int, error) {
	if r.mode != FixedOutput {
		return 0, fmt.Errorf("%w: span processing needs %s mode", ErrInvalidConfig, FixedOutput)
	}
	if frames < 1 {
		return 0, fmt.Errorf("%w: span of %d frames", ErrInsufficientInput, frames)
	}
	if len(in) != r.channels || len(out) != r.channels {
		return 0, fmt.Errorf("%w: want %d, got in=%d out=%d",
			ErrChannelMismatch, r.channels, len(in), len(out))
	}
	for ch := range r.channels {
		if len(in[ch]) < frames {
			return 0, fmt.Errorf("%w: channel %d has %d frames, need %d",
				ErrInsufficientInput, ch, len(in[ch]), frames)
		}
		if len(out[ch]) < r.chunkSize {
			return 0, fmt.Errorf("%w: channel %d has room for %d frames, need %d",
				ErrBufferTooSmall, ch, len(out[ch]), r.chunkSize)
		}
	}

	nominalIn, _, nominalNext := r.walk(nil, nil, false, 1)
	advance := float64(nominalIn) + nominalNext - r.phase
	scale := 1.0
	if nominalIn != frames {
		scale = float64(frames) / advance
	}

	consumed, produced, next := r.walk(in, out, true, scale)
	// Float noise in the stretch must not move the chunk boundary.
	next = snapPhase(math.Min(next+float64(consumed-frames), 1-phaseEpsilon))
	r.finishChunk(in, frames, next)

	return produced, nil
}

// finishChunk commits the history and phase of a processed chunk and
// settles a pending ramp.
func (r *BlockResampler[F]) finishChunk(in [][]F, consumed int, next float64) {
	r.pushHistory(in, consumed)
	r.phase = next
	if r.ramping {
		r.ramping = false
		r.ratio = r.rampTo
		r.step = 1 / r.rampTo
	}
}

// walk steps through the output positions of the next chunk. With render
// set it interpolates into out; otherwise it only counts frames. In
// FixedOutput mode a scale other than 1 stretches the positions about the
// current phase.
func (r *BlockResampler[F]) walk(in, out [][]F, render bool, scale float64) (consumed, produced int, next float64) {
	chunk := float64(r.chunkSize)
	pos := r.phase
	n := 0

	if r.mode == FixedInput {
		for pos < chunk-phaseEpsilon {
			if render {
				r.emit(in, out, n, pos)
			}
			pos = r.advance(n, pos)
			n++
		}
		return r.chunkSize, n, snapPhase(pos - chunk)
	}

	for n < r.chunkSize {
		if render {
			r.emit(in, out, n, r.stretch(pos, scale))
		}
		pos = r.advance(n, pos)
		n++
	}
	pos = r.stretch(pos, scale)
	consumed = int(math.Floor(pos + phaseEpsilon))
	return consumed, n, snapPhase(pos - float64(consumed))
}

// advance returns the position of output frame n+1.
func (r *BlockResampler[F]) advance(n int, pos float64) float64 {
	if !r.ramping {
		// Multiply rather than accumulate so aligned ratios stay exact.
		return r.phase + float64(n+1)*r.step
	}

	if r.mode == FixedInput {
		// Step is linear in input position.
		t := math.Max(0, math.Min(1, pos/float64(r.chunkSize)))
		return pos + r.step + (1/r.rampTo-r.step)*t
	}

	// Ratio is linear in output position, mirroring a FixedInput ramp over
	// the same span so chained stages warp time consistently.
	t := math.Max(0, math.Min(1, float64(n)/float64(r.chunkSize)))
	return pos + 1/(r.ratio+(r.rampTo-r.ratio)*t)
}

// stretch maps a nominal position onto a chunk scaled about the phase.
func (r *BlockResampler[F]) stretch(pos, scale float64) float64 {
	if scale == 1 {
		return pos
	}
	return r.phase + scale*(pos-r.phase)
}

// emit interpolates output frame n at position pos for every channel.
func (r *BlockResampler[F]) emit(in, out [][]F, n int, pos float64) {
	p := pos - interpDelayFrames
	base := math.Floor(p)
	x := F(p - base)
	first := int(base) - 1

	for ch := range r.channels {
		src := in[ch]
		hist := r.history[ch]
		for k := range windowTaps {
			idx := first + k
			if idx < 0 {
				r.window[k] = hist[historyFrames+idx]
			} else {
				r.window[k] = src[idx]
			}
		}
		out[ch][n] = r.interpolate(x)
	}
}

// interpolate evaluates the current window at fractional offset x in [0, 1).
func (r *BlockResampler[F]) interpolate(x F) F {
	switch r.interp {
	case InterpolationNearest:
		if x < nearestThreshold {
			return r.window[1]
		}
		return r.window[2]
	case InterpolationLinear:
		return r.window[1] + x*(r.window[2]-r.window[1])
	default:
		return r.ops.CubicInterpDot(r.window[:], r.coefA[:], r.coefB[:], r.coefC[:], r.coefD[:], x)
	}
}

// pushHistory keeps the last historyFrames frames of history+in[:consumed].
func (r *BlockResampler[F]) pushHistory(in [][]F, consumed int) {
	if consumed == 0 {
		return
	}
	for ch := range r.channels {
		hist := r.history[ch]
		if consumed >= historyFrames {
			copy(hist, in[ch][consumed-historyFrames:consumed])
			continue
		}
		copy(hist, hist[consumed:])
		copy(hist[historyFrames-consumed:], in[ch][:consumed])
	}
}

// snapPhase removes float noise around zero from a carried phase.
func snapPhase(p float64) float64 {
	if p < phaseEpsilon {
		return 0
	}
	return p
}

// Reset clears the filter history and fractional phase.
// A pending ramp is settled to its target ratio.
func (r *BlockResampler[F]) Reset() {
	for ch := range r.history {
		clear(r.history[ch])
	}
	r.phase = 0
	if r.ramping {
		r.ramping = false
		r.ratio = r.rampTo
		r.step = 1 / r.rampTo
	}
}

// Ratio returns the current resample ratio (a pending ramp target is not
// reported until its chunk has been processed).
func (r *BlockResampler[F]) Ratio() float64 {
	return r.ratio
}

// RatioBounds returns the allowed ratio range.
func (r *BlockResampler[F]) RatioBounds() (lower, upper float64) {
	return r.minRatio, r.maxRatio
}

// Mode returns the fixed side of the resampler.
func (r *BlockResampler[F]) Mode() Mode {
	return r.mode
}

// ChunkSize returns the fixed chunk size in frames.
func (r *BlockResampler[F]) ChunkSize() int {
	return r.chunkSize
}

// OutputDelay returns the interpolation delay in output frames.
func (r *BlockResampler[F]) OutputDelay() int {
	return int(math.Round(interpDelayFrames * r.ratio))
}

// InputFramesNext returns the frames the next Process call will consume.
func (r *BlockResampler[F]) InputFramesNext() int {
	consumed, _, _ := r.walk(nil, nil, false, 1)
	return consumed
}

// OutputFramesNext returns the frames the next Process call will produce.
func (r *BlockResampler[F]) OutputFramesNext() int {
	_, produced, _ := r.walk(nil, nil, false, 1)
	return produced
}

// OutputFramesMax returns the most frames a call can produce at the current
// ratio (including a pending ramp target).
func (r *BlockResampler[F]) OutputFramesMax() int {
	if r.mode == FixedOutput {
		return r.chunkSize
	}
	return framesFor(r.chunkSize, r.upperRatio()) + framesMaxSlack
}

// InputFramesMax returns the most frames a call can consume at the current
// ratio (including a pending ramp target).
func (r *BlockResampler[F]) InputFramesMax() int {
	if r.mode == FixedInput {
		return r.chunkSize
	}
	return framesFor(r.chunkSize, 1/r.lowerRatio()) + inputFramesMaxSlack
}

// OutputFramesBound returns OutputFramesMax for the largest allowed ratio.
func (r *BlockResampler[F]) OutputFramesBound() int {
	if r.mode == FixedOutput {
		return r.chunkSize
	}
	return framesFor(r.chunkSize, r.maxRatio) + framesMaxSlack
}

// InputFramesBound returns InputFramesMax for the smallest allowed ratio.
func (r *BlockResampler[F]) InputFramesBound() int {
	if r.mode == FixedInput {
		return r.chunkSize
	}
	return framesFor(r.chunkSize, 1/r.minRatio) + inputFramesMaxSlack
}

func (r *BlockResampler[F]) upperRatio() float64 {
	if r.ramping {
		return math.Max(r.ratio, r.rampTo)
	}
	return r.ratio
}

func (r *BlockResampler[F]) lowerRatio() float64 {
	if r.ramping {
		return math.Min(r.ratio, r.rampTo)
	}
	return r.ratio
}

// framesFor returns ceil(chunk*scale) with the same epsilon as the walker.
func framesFor(chunk int, scale float64) int {
	return int(math.Ceil(float64(chunk)*scale - phaseEpsilon))
}
