package main

import (
	"fmt"
	"io"

	"github.com/tphakala/go-audio-downsampler/internal/analysis"
)

// rolloffFraction is the energy fraction used for the bandwidth figure.
const rolloffFraction = 0.99

// reportCapture keeps the first frames of the left input and output channel.
type reportCapture struct {
	limit  int
	input  []float32
	output []float32
}

func newReportCapture(limit int) *reportCapture {
	return &reportCapture{
		limit:  limit,
		input:  make([]float32, 0, limit),
		output: make([]float32, 0, limit),
	}
}

func (c *reportCapture) addInput(samples []float32) {
	c.input = appendUpTo(c.input, samples, c.limit)
}

func (c *reportCapture) addOutput(samples []float32) {
	c.output = appendUpTo(c.output, samples, c.limit)
}

func appendUpTo(dst, src []float32, limit int) []float32 {
	room := limit - len(dst)
	if room <= 0 {
		return dst
	}
	return append(dst, src[:min(room, len(src))]...)
}

// spectralReport compares the input and output spectra.
type spectralReport struct {
	effectiveNyquist float64
	inPeak           float64
	outPeak          float64
	inRolloff        float64
	outRolloff       float64
	inAbove          float64
	outAbove         float64
	inRMS            float64
	outRMS           float64
}

// analyze builds the report. Energy above the effective Nyquist frequency
// in the output is the imaging and aliasing the effect adds.
func (c *reportCapture) analyze(hostRate float64, effectiveRate int) (*spectralReport, error) {
	in, err := analysis.Analyze(c.input, hostRate)
	if err != nil {
		return nil, err
	}
	out, err := analysis.Analyze(c.output, hostRate)
	if err != nil {
		return nil, err
	}

	nyquist := float64(effectiveRate) / 2
	return &spectralReport{
		effectiveNyquist: nyquist,
		inPeak:           in.Peak(),
		outPeak:          out.Peak(),
		inRolloff:        in.Rolloff(rolloffFraction),
		outRolloff:       out.Rolloff(rolloffFraction),
		inAbove:          in.EnergyAbove(nyquist),
		outAbove:         out.EnergyAbove(nyquist),
		inRMS:            analysis.RMS(c.input),
		outRMS:           analysis.RMS(c.output),
	}, nil
}

func (r *spectralReport) print(w io.Writer) {
	fmt.Fprintf(w, "Spectral report (left channel)\n")
	fmt.Fprintf(w, "  Effective Nyquist: %.0f Hz\n", r.effectiveNyquist)
	fmt.Fprintf(w, "  Peak:      %8.1f Hz in, %8.1f Hz out\n", r.inPeak, r.outPeak)
	fmt.Fprintf(w, "  Rolloff:   %8.1f Hz in, %8.1f Hz out\n", r.inRolloff, r.outRolloff)
	fmt.Fprintf(w, "  Above Nyq: %7.2f%% in, %7.2f%% out\n", r.inAbove*100, r.outAbove*100)
	fmt.Fprintf(w, "  RMS:       %8.4f in, %8.4f out\n", r.inRMS, r.outRMS)
}
