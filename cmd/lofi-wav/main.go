// Command lofi-wav runs a WAV file through the lo-fi downsampler effect.
//
// Usage:
//
//	lofi-wav -rate 8000 input.wav output.wav
//	lofi-wav -rate 4000 -interp linear -block 256 input.wav output.wav
//	lofi-wav -automate 10000@0,2000@1.5,20000@3 input.wav output.wav
//	lofi-wav -rate 6000 -report input.wav output.wav
//
// The file is fed to the effect in host-sized blocks, the way an audio host
// would call it. Mono files are processed as dual-mono; the output keeps the
// input's sample rate, bit depth and channel count.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	downsampler "github.com/tphakala/go-audio-downsampler"
)

const (
	// CLI defaults
	defaultBlockFrames = 512
	minRequiredArgs    = 2

	// Frames of output and input kept for the spectral report
	reportFrames = 1 << 16
)

// options holds parsed command-line settings.
type options struct {
	rate        int
	blockFrames int
	automation  []automationPoint
	interp      downsampler.Interpolation
	fallback    downsampler.Fallback
	ramp        bool
	report      bool
	verbose     bool
	input       string
	output      string
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		logrus.WithError(err).Fatal("lofi-wav failed")
	}
}

func run(args []string) error {
	opts, err := parseOptions(args)
	if err != nil {
		return err
	}

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if opts.verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.WarnLevel)
	}

	start := time.Now()
	stats, err := processFile(opts, log)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	// Print summary
	fmt.Printf("Processed %s -> %s\n", filepath.Base(opts.input), filepath.Base(opts.output))
	fmt.Printf("  %d Hz host, %d Hz effective (%d channels, %d-bit)\n",
		stats.hostRate, stats.effectiveRate, stats.channels, stats.bitDepth)
	fmt.Printf("  %d frames, latency %d frames\n", stats.frames, stats.latency)
	if elapsed > 0 && stats.hostRate > 0 {
		fmt.Printf("  Duration: %.2fs, Speed: %.1fx realtime\n",
			elapsed.Seconds(),
			float64(stats.frames)/float64(stats.hostRate)/elapsed.Seconds())
	}
	if stats.engine.UnderrunFrames > 0 || stats.engine.OverrunFrames > 0 {
		fmt.Printf("  Re-blocking: %d frames zero-filled, %d frames dropped\n",
			stats.engine.UnderrunFrames, stats.engine.OverrunFrames)
	}
	if opts.report && stats.report != nil {
		stats.report.print(os.Stdout)
	}

	return nil
}

func parseOptions(args []string) (*options, error) {
	fs := flag.NewFlagSet("lofi-wav", flag.ContinueOnError)
	rate := fs.Int("rate", downsampler.DefaultTargetRate, "Target rate in Hz (250-30000)")
	block := fs.Int("block", defaultBlockFrames, "Host block size in frames")
	automate := fs.String("automate", "", "Rate automation as rate@seconds pairs, e.g. 10000@0,5000@2.5")
	interp := fs.String("interp", "cubic", "Interpolation: nearest, linear, cubic")
	fallback := fs.String("fallback", "mute", "Block content on fatal errors: mute, bypass, none")
	ramp := fs.Bool("ramp", false, "Ramp ratio changes across one chunk")
	report := fs.Bool("report", false, "Print a spectral report of input and output")
	verbose := fs.Bool("v", false, "Verbose (debug) logging")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: lofi-wav [options] input.wav output.wav\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() < minRequiredArgs {
		fs.Usage()
		return nil, errors.New("insufficient arguments")
	}
	if *block < 1 {
		return nil, fmt.Errorf("block size must be positive, got %d", *block)
	}

	opts := &options{
		rate:        *rate,
		blockFrames: *block,
		ramp:        *ramp,
		report:      *report,
		verbose:     *verbose,
		input:       fs.Arg(0),
		output:      fs.Arg(1),
	}

	var err error
	if opts.interp, err = downsampler.ParseInterpolation(*interp); err != nil {
		return nil, err
	}
	if opts.fallback, err = downsampler.ParseFallback(*fallback); err != nil {
		return nil, err
	}
	if opts.automation, err = parseAutomation(*automate); err != nil {
		return nil, err
	}

	return opts, nil
}
