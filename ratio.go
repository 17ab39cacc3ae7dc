package downsampler

import (
	"fmt"
	"math"
)

// RatioPair holds the reciprocal ratios of the two stages.
// Down is applied to the first stage (host -> effective rate) and Up to the
// second (effective -> host rate).
type RatioPair struct {
	Down float64
	Up   float64
}

// NewRatioPair computes the stage ratios for an effective rate at hostRate.
func NewRatioPair(effectiveRate int, hostRate float64) (RatioPair, error) {
	if math.IsNaN(hostRate) || math.IsInf(hostRate, 0) || hostRate <= 0 {
		return RatioPair{}, fmt.Errorf("%w: %v", ErrInvalidHostRate, hostRate)
	}
	if effectiveRate < 1 {
		return RatioPair{}, fmt.Errorf("%w: effective rate must be positive, got %d",
			ErrConfiguration, effectiveRate)
	}

	down := float64(effectiveRate) / hostRate
	return RatioPair{Down: down, Up: 1 / down}, nil
}

// Validate checks that both ratios are positive and finite and that their
// product is 1 within ratioTolerance.
func (p RatioPair) Validate() error {
	for _, r := range [...]float64{p.Down, p.Up} {
		if !(r > 0) || math.IsInf(r, 0) {
			return fmt.Errorf("%w: invalid ratio pair %v/%v", ErrConfiguration, p.Down, p.Up)
		}
	}
	if math.Abs(p.Down*p.Up-1) > ratioTolerance {
		return fmt.Errorf("%w: ratios %v and %v are not reciprocal", ErrConfiguration, p.Down, p.Up)
	}
	return nil
}

// ratioSetter is the part of a resampling stage the configurator needs.
type ratioSetter interface {
	SetRatio(ratio float64, ramp bool) error
	Ratio() float64
}

// applyRatios pushes p to both stages, down first. If the up stage rejects
// its ratio the down stage is restored so the pair never diverges.
func applyRatios(down, up ratioSetter, p RatioPair, ramp bool) error {
	if err := p.Validate(); err != nil {
		return err
	}

	prev := down.Ratio()
	if err := down.SetRatio(p.Down, ramp); err != nil {
		return fmt.Errorf("%w: down stage: %w", ErrConfiguration, err)
	}
	if err := up.SetRatio(p.Up, ramp); err != nil {
		// Restoring a ratio the stage already held cannot fail.
		_ = down.SetRatio(prev, false)
		return fmt.Errorf("%w: up stage: %w", ErrConfiguration, err)
	}
	return nil
}
