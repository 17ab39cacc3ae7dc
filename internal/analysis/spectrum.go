// Package analysis measures processed audio: spectral peak, bandwidth and
// level. It backs the lofi-wav report and the signal tests.
package analysis

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/floats"
)

// ErrTooShort indicates a signal too short to analyse.
var ErrTooShort = errors.New("signal too short for analysis")

// minSpectrumSamples is the shortest signal Analyze accepts.
const minSpectrumSamples = 16

// Spectrum is the single-sided magnitude spectrum of a Hann-windowed signal.
type Spectrum struct {
	Magnitudes []float64 // Bin magnitudes, DC first
	BinHz      float64   // Bin spacing in Hz
	SampleRate float64
}

// Analyze computes the spectrum of samples at sampleRate.
func Analyze(samples []float32, sampleRate float64) (*Spectrum, error) {
	n := len(samples)
	if n < minSpectrumSamples {
		return nil, ErrTooShort
	}

	seq := make([]float64, n)
	for i, v := range samples {
		seq[i] = float64(v)
	}
	window.Hann(seq)

	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, seq)

	mags := make([]float64, len(coeffs))
	for i, c := range coeffs {
		mags[i] = math.Hypot(real(c), imag(c))
	}

	return &Spectrum{
		Magnitudes: mags,
		BinHz:      sampleRate / float64(n),
		SampleRate: sampleRate,
	}, nil
}

// Peak returns the frequency of the strongest non-DC bin, refined by
// parabolic interpolation over its neighbours.
func (s *Spectrum) Peak() float64 {
	if len(s.Magnitudes) < 3 {
		return 0
	}

	k := floats.MaxIdx(s.Magnitudes[1:]) + 1
	if k >= len(s.Magnitudes)-1 {
		return float64(k) * s.BinHz
	}

	a, b, c := s.Magnitudes[k-1], s.Magnitudes[k], s.Magnitudes[k+1]
	denom := a - 2*b + c
	offset := 0.0
	if denom != 0 {
		offset = 0.5 * (a - c) / denom
	}
	return (float64(k) + offset) * s.BinHz
}

// Rolloff returns the frequency below which fraction of the spectral
// energy lies.
func (s *Spectrum) Rolloff(fraction float64) float64 {
	total := floats.Dot(s.Magnitudes, s.Magnitudes)
	if total == 0 {
		return 0
	}

	limit := fraction * total
	var acc float64
	for k, m := range s.Magnitudes {
		acc += m * m
		if acc >= limit {
			return float64(k) * s.BinHz
		}
	}
	return s.SampleRate / 2
}

// EnergyAbove returns the fraction of spectral energy above hz.
func (s *Spectrum) EnergyAbove(hz float64) float64 {
	total := floats.Dot(s.Magnitudes, s.Magnitudes)
	if total == 0 {
		return 0
	}

	first := int(math.Ceil(hz / s.BinHz))
	if first >= len(s.Magnitudes) {
		return 0
	}
	first = max(first, 0)
	tail := s.Magnitudes[first:]
	return floats.Dot(tail, tail) / total
}

// DominantFrequency returns the spectral peak of samples at sampleRate.
func DominantFrequency(samples []float32, sampleRate float64) (float64, error) {
	s, err := Analyze(samples, sampleRate)
	if err != nil {
		return 0, err
	}
	return s.Peak(), nil
}
