package downsampler

import (
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/tphakala/go-audio-downsampler/internal/engine"
)

// Interpolation selects the polynomial both stages use between frames.
type Interpolation = engine.Interpolation

// Interpolation choices.
const (
	InterpolationNearest = engine.InterpolationNearest
	InterpolationLinear  = engine.InterpolationLinear
	InterpolationCubic   = engine.InterpolationCubic
)

// Fallback selects what Process leaves in the block when it reports
// StatusFatal.
type Fallback int

const (
	// FallbackMute zeroes the whole block.
	FallbackMute Fallback = iota

	// FallbackBypass leaves the dry input in place when no processed frame
	// has been written to the block yet, and mutes otherwise.
	FallbackBypass

	// FallbackNone leaves the block exactly as processing left it.
	FallbackNone
)

// String returns the fallback name.
func (f Fallback) String() string {
	switch f {
	case FallbackMute:
		return "mute"
	case FallbackBypass:
		return "bypass"
	case FallbackNone:
		return "none"
	default:
		return fmt.Sprintf("Fallback(%d)", int(f))
	}
}

// ParseFallback converts a fallback name back to its value.
func ParseFallback(s string) (Fallback, error) {
	for _, f := range [...]Fallback{FallbackMute, FallbackBypass, FallbackNone} {
		if f.String() == s {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown fallback %q", ErrInvalidConfig, s)
}

// ParseInterpolation converts an interpolation name back to its value.
func ParseInterpolation(s string) (Interpolation, error) {
	for _, i := range [...]Interpolation{InterpolationNearest, InterpolationLinear, InterpolationCubic} {
		if i.String() == s {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown interpolation %q", ErrInvalidConfig, s)
}

// Config holds downsampler configuration.
type Config struct {
	// Param is the target-rate parameter shared with the host.
	// A new parameter at DefaultTargetRate is created when nil.
	Param *RateParam

	// Interpolation is the polynomial used by both stages.
	Interpolation Interpolation

	// RampRatio sweeps stage ratios across one chunk on a change instead of
	// switching at the chunk boundary. The up stage stretches the chunks
	// that the ramp leaves uneven; see Stats.StretchedChunks.
	RampRatio bool

	// Fallback controls the block contents on a fatal status.
	Fallback Fallback

	// PreallocateWorstCase sizes the scratch buffer for the whole ratio range
	// at construction so it never grows while streaming.
	PreallocateWorstCase bool

	// RatioBound overrides the maximum relative ratio of both stages.
	// Zero selects MaxRatioRelative.
	RatioBound float64

	// Logger receives lifecycle and reconfiguration logs.
	// A Warn-level logger writing to stderr is used when nil.
	Logger *logrus.Logger
}

// DefaultConfig returns the configuration used when New is given nil.
func DefaultConfig() *Config {
	return &Config{
		Interpolation: InterpolationCubic,
		Fallback:      FallbackMute,
	}
}

// Errors returned by the downsampler.
var (
	// ErrInvalidConfig indicates invalid configuration parameters.
	ErrInvalidConfig = errors.New("invalid downsampler configuration")

	// ErrInvalidHostRate indicates a host sample rate that cannot be used.
	ErrInvalidHostRate = errors.New("invalid host sample rate")

	// ErrNotInitialized indicates Reset or Process before Init.
	ErrNotInitialized = errors.New("downsampler not initialized")

	// ErrInvalidBlock indicates a block with the wrong channel layout.
	ErrInvalidBlock = errors.New("invalid audio block")

	// ErrConfiguration indicates a stage rejected its new ratio.
	ErrConfiguration = errors.New("stage configuration failed")

	// ErrProcessing indicates a stage failed while processing a chunk.
	ErrProcessing = errors.New("stage processing failed")

	// ErrSearchExhausted indicates the rate quantizer found no valid rate.
	ErrSearchExhausted = errors.New("rate search exhausted")

	// ErrFaulted indicates the engine is still faulted from an earlier
	// failed reconfiguration.
	ErrFaulted = errors.New("downsampler faulted")
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Interpolation < InterpolationNearest || c.Interpolation > InterpolationCubic {
		return fmt.Errorf("%w: unknown interpolation %d", ErrInvalidConfig, int(c.Interpolation))
	}

	if c.Fallback < FallbackMute || c.Fallback > FallbackNone {
		return fmt.Errorf("%w: unknown fallback %d", ErrInvalidConfig, int(c.Fallback))
	}

	if c.RatioBound != 0 && (!(c.RatioBound >= 1) || math.IsInf(c.RatioBound, 0)) {
		return fmt.Errorf("%w: ratio bound must be 0 or >= 1, got %v", ErrInvalidConfig, c.RatioBound)
	}

	return nil
}

func (c *Config) ratioBound() float64 {
	if c.RatioBound == 0 {
		return MaxRatioRelative
	}
	return c.RatioBound
}

func defaultLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)
	return l
}
