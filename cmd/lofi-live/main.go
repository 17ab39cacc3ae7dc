// Command lofi-live runs the lo-fi downsampler on the default audio device
// in real time.
//
// Usage:
//
//	lofi-live -rate 8000
//	lofi-live -host-rate 44100 -frames 256 -control :8080
//
// Input is read from the default capture device, processed in place and
// written to the default playback device. Type a rate in Hz followed by
// Enter to change the target while running, "reset" to clear the effect
// state, or "q" to quit. With -control set, the rate can also be driven over
// a websocket at ws://<addr>/ws.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/sirupsen/logrus"

	downsampler "github.com/tphakala/go-audio-downsampler"
	"github.com/tphakala/go-audio-downsampler/internal/control"
)

const (
	defaultHostRate       = 48000
	defaultFramesPerBlock = 256
	defaultStatsInterval  = 5 * time.Second
)

// options holds parsed command-line settings.
type options struct {
	rate          int
	hostRate      float64
	frames        int
	interp        downsampler.Interpolation
	ramp          bool
	controlAddr   string
	statsInterval time.Duration
	verbose       bool
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		logrus.WithError(err).Fatal("lofi-live failed")
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
		log.SetLevel(logrus.InfoLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := downsampler.DefaultConfig()
	cfg.Interpolation = opts.interp
	cfg.RampRatio = opts.ramp
	cfg.Logger = log
	fx, err := downsampler.New(cfg)
	if err != nil {
		return err
	}
	fx.SetTargetRate(opts.rate)
	if err := fx.Init(opts.hostRate); err != nil {
		return err
	}

	if opts.controlAddr != "" {
		srv := control.NewServer(fx.Param(), log)
		go func() {
			if err := srv.ListenAndServe(ctx, opts.controlAddr); err != nil {
				log.WithError(err).Error("Control server stopped")
			}
		}()
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio init failed: %w", err)
	}
	defer portaudio.Terminate()

	in := make([][]float32, downsampler.Channels)
	out := make([][]float32, downsampler.Channels)
	for ch := range in {
		in[ch] = make([]float32, opts.frames)
		out[ch] = make([]float32, opts.frames)
	}

	stream, err := portaudio.OpenDefaultStream(downsampler.Channels, downsampler.Channels,
		opts.hostRate, opts.frames, in, out)
	if err != nil {
		return fmt.Errorf("open audio stream failed: %w", err)
	}
	defer stream.Close()
	if err := stream.Start(); err != nil {
		return fmt.Errorf("start audio stream failed: %w", err)
	}
	defer stream.Stop()

	cmds := make(chan command, 1)
	go readCommands(ctx, os.Stdin, cmds, log)

	log.WithFields(logrus.Fields{
		"host_rate":      opts.hostRate,
		"target_rate":    fx.TargetRate(),
		"effective_rate": fx.EffectiveRate(),
		"frames":         opts.frames,
		"latency_frames": fx.Latency().Total(),
	}).Info("Streaming, type a rate in Hz, reset, or q")

	return pump(ctx, stream, in, out, fx, cmds, opts.statsInterval, log)
}

func parseOptions(args []string) (*options, error) {
	fs := flag.NewFlagSet("lofi-live", flag.ContinueOnError)
	rate := fs.Int("rate", downsampler.DefaultTargetRate, "Initial target rate in Hz (250-30000)")
	hostRate := fs.Float64("host-rate", defaultHostRate, "Device sample rate in Hz")
	frames := fs.Int("frames", defaultFramesPerBlock, "Frames per device buffer")
	interp := fs.String("interp", "cubic", "Interpolation: nearest, linear, cubic")
	ramp := fs.Bool("ramp", false, "Ramp ratio changes across one chunk")
	controlAddr := fs.String("control", "", "Listen address for the websocket control server, e.g. :8080")
	statsInterval := fs.Duration("stats", defaultStatsInterval, "Interval between statistics log lines (0 disables)")
	verbose := fs.Bool("v", false, "Verbose (debug) logging")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if *frames < 1 {
		return nil, fmt.Errorf("frames per buffer must be positive, got %d", *frames)
	}
	if *hostRate < 1 {
		return nil, fmt.Errorf("host rate must be positive, got %v", *hostRate)
	}
	if *statsInterval < 0 {
		return nil, errors.New("stats interval must not be negative")
	}

	interpolation, err := downsampler.ParseInterpolation(*interp)
	if err != nil {
		return nil, err
	}

	return &options{
		rate:          *rate,
		hostRate:      *hostRate,
		frames:        *frames,
		interp:        interpolation,
		ramp:          *ramp,
		controlAddr:   *controlAddr,
		statsInterval: *statsInterval,
		verbose:       *verbose,
	}, nil
}
