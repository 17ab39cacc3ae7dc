// Command lofi-info prints how the downsampler configures itself for a host
// rate and target rate: the quantized rate, stage ratios, per-chunk frame
// counts and latency.
//
// Usage:
//
//	lofi-info -host-rate 44100 -rate 8000
//	lofi-info -demo
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/sirupsen/logrus"

	downsampler "github.com/tphakala/go-audio-downsampler"
	"github.com/tphakala/go-audio-downsampler/internal/analysis"
)

func main() {
	// Command-line flags
	var (
		hostRate = flag.Float64("host-rate", downsampler.RateDAT, "Host sample rate in Hz")
		rate     = flag.Int("rate", downsampler.DefaultTargetRate, "Target rate in Hz (250-30000)")
		interp   = flag.String("interp", "cubic", "Interpolation: nearest, linear, cubic")
		demo     = flag.Bool("demo", false, "Print the quantization table for common host rates")
	)
	flag.Parse()

	if *demo {
		runDemo(os.Stdout)
		return
	}

	interpolation, err := downsampler.ParseInterpolation(*interp)
	if err != nil {
		logrus.WithError(err).Fatal("Invalid interpolation")
	}
	if err := describe(os.Stdout, *hostRate, *rate, interpolation); err != nil {
		logrus.WithError(err).Fatal("Failed to configure downsampler")
	}
}

// describe configures a downsampler and prints its state, then runs a test
// tone through it and reports where the output energy lands.
func describe(w io.Writer, hostRate float64, rate int, interp downsampler.Interpolation) error {
	config := downsampler.DefaultConfig()
	config.Interpolation = interp

	d, err := downsampler.New(config)
	if err != nil {
		return err
	}
	target := d.SetTargetRate(rate)
	if err := d.Init(hostRate); err != nil {
		return err
	}

	ratios := d.Ratios()
	lat := d.Latency()
	fmt.Fprintf(w, "Downsampler configured:\n")
	fmt.Fprintf(w, "  Parameter: %s (id %q, %d-%d %s, default %d)\n",
		downsampler.ParamName, downsampler.ParamID,
		downsampler.MinTargetRate, downsampler.MaxTargetRate, downsampler.ParamUnit,
		downsampler.DefaultTargetRate)
	fmt.Fprintf(w, "  Host rate: %g Hz\n", hostRate)
	fmt.Fprintf(w, "  Target rate: %d Hz (requested %d)\n", target, rate)
	fmt.Fprintf(w, "  Effective rate: %d Hz\n", d.EffectiveRate())
	fmt.Fprintf(w, "  Ratios: down %.6f, up %.6f\n", ratios.Down, ratios.Up)
	fmt.Fprintf(w, "  Intermediate frames per chunk: %.0f\n", float64(downsampler.ChunkSize)*ratios.Down)
	fmt.Fprintf(w, "  Latency: %d frames (down %d, up %d, buffering %d)\n",
		lat.Total(), lat.Down, lat.Up, lat.Buffering)
	fmt.Fprintf(w, "  Scratch: %d frames per channel\n", d.ScratchFrames())

	// Process a test tone above the new Nyquist limit to show the fold-back
	tone := testToneFrequency(hostRate, d.EffectiveRate())
	frames := int(hostRate * testSignalSeconds)
	left := generateTestSignal(frames, tone, hostRate)
	right := append([]float32(nil), left...)
	if status, err := d.Process([][]float32{left, right}); err != nil {
		return fmt.Errorf("processing failed (%s): %w", status, err)
	}

	spec, err := analysis.Analyze(left[frames/2:], hostRate)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\nTest tone %.0f Hz -> dominant output %.0f Hz\n", tone, spec.Peak())
	return nil
}

// testToneFrequency returns a tone just above half the effective rate, or a
// quarter of it when that would not fit below the host Nyquist limit.
func testToneFrequency(hostRate float64, effective int) float64 {
	tone := float64(effective) * testToneAboveNyquist
	if tone >= hostRate/2 {
		tone = float64(effective) / 4
	}
	return tone
}

func runDemo(w io.Writer) {
	fmt.Fprintln(w, "=== Lo-fi Downsampler Quantization ===")

	hostRates := []float64{
		downsampler.RateCD,
		downsampler.RateDAT,
		downsampler.RateHiRes88,
		downsampler.RateHiRes96,
		downsampler.RateHiRes192,
	}

	for _, host := range hostRates {
		fmt.Fprintf(w, "\n%.0f Hz host:\n", host)
		for _, target := range demoTargets {
			effective, err := downsampler.QuantizeRate(target, host, downsampler.ChunkSize)
			if err != nil {
				if errors.Is(err, downsampler.ErrSearchExhausted) {
					fmt.Fprintf(w, "  %5d Hz: no valid rate\n", target)
					continue
				}
				fmt.Fprintf(w, "  %5d Hz: Error - %v\n", target, err)
				continue
			}
			pair, err := downsampler.NewRatioPair(effective, host)
			if err != nil {
				fmt.Fprintf(w, "  %5d Hz: Error - %v\n", target, err)
				continue
			}
			fmt.Fprintf(w, "  %5d Hz -> %5d Hz (%3.0f frames per chunk, up ratio %.4f)\n",
				target, effective, float64(downsampler.ChunkSize)*pair.Down, pair.Up)
		}
	}

	fmt.Fprintln(w, "\n=== Demo Complete ===")
}

func generateTestSignal(frames int, freq, sampleRate float64) []float32 {
	signal := make([]float32, frames)
	omega := 2 * math.Pi * freq / sampleRate
	for i := range signal {
		signal[i] = testSignalAmplitude * float32(math.Sin(omega*float64(i)))
	}
	return signal
}
