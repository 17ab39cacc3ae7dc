package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/sirupsen/logrus"

	downsampler "github.com/tphakala/go-audio-downsampler"
)

// blockingStream is the part of a portaudio.Stream the pump loop uses.
type blockingStream interface {
	Read() error
	Write() error
}

type commandKind int

const (
	cmdRate commandKind = iota
	cmdReset
	cmdQuit
)

type command struct {
	kind commandKind
	rate int
}

// parseCommand turns one line of user input into a command.
func parseCommand(line string) (command, error) {
	line = strings.TrimSpace(line)
	switch strings.ToLower(line) {
	case "":
		return command{}, errors.New("empty command")
	case "q", "quit", "exit":
		return command{kind: cmdQuit}, nil
	case "reset":
		return command{kind: cmdReset}, nil
	}

	hz, err := strconv.Atoi(strings.TrimSuffix(strings.ToLower(line), "hz"))
	if err != nil {
		return command{}, fmt.Errorf("not a rate: %q", line)
	}
	return command{kind: cmdRate, rate: hz}, nil
}

// readCommands forwards parsed lines from r until EOF or cancellation.
func readCommands(ctx context.Context, r io.Reader, cmds chan<- command, log *logrus.Logger) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		cmd, err := parseCommand(scanner.Text())
		if err != nil {
			log.WithError(err).Warn("Ignoring input")
			continue
		}
		select {
		case cmds <- cmd:
		case <-ctx.Done():
			return
		}
	}
}

// pump moves audio through the effect until ctx is cancelled or a quit
// command arrives. Commands are applied between blocks so Reset never runs
// concurrently with Process.
func pump(ctx context.Context, stream blockingStream, in, out [][]float32,
	fx *downsampler.Downsampler, cmds <-chan command, statsInterval time.Duration,
	log *logrus.Logger) error {
	var statsTick <-chan time.Time
	if statsInterval > 0 {
		ticker := time.NewTicker(statsInterval)
		defer ticker.Stop()
		statsTick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd := <-cmds:
			if quit := applyCommand(cmd, fx, log); quit {
				return nil
			}
		case <-statsTick:
			logStats(fx, log)
		default:
		}

		if err := stream.Read(); err != nil {
			if !errors.Is(err, portaudio.InputOverflowed) {
				return fmt.Errorf("audio read: %w", err)
			}
			log.Debug("Input overflowed")
		}

		for ch := range out {
			copy(out[ch], in[ch])
		}
		if status, err := fx.Process(out); status == downsampler.StatusFatal {
			log.WithError(err).Warn("Block failed")
		}

		if err := stream.Write(); err != nil {
			if !errors.Is(err, portaudio.OutputUnderflowed) {
				return fmt.Errorf("audio write: %w", err)
			}
			log.Debug("Output underflowed")
		}
	}
}

// applyCommand runs cmd on the audio goroutine and reports whether to quit.
func applyCommand(cmd command, fx *downsampler.Downsampler, log *logrus.Logger) bool {
	switch cmd.kind {
	case cmdQuit:
		return true
	case cmdReset:
		if err := fx.Reset(); err != nil {
			log.WithError(err).Error("Reset failed")
		}
	case cmdRate:
		hz := fx.SetTargetRate(cmd.rate)
		log.WithField("target_rate", hz).Info("Target rate set")
	}
	return false
}

func logStats(fx *downsampler.Downsampler, log *logrus.Logger) {
	st := fx.Stats()
	log.WithFields(logrus.Fields{
		"target_rate":      fx.TargetRate(),
		"effective_rate":   fx.EffectiveRate(),
		"latency_frames":   fx.Latency().Total(),
		"blocks":           st.Blocks,
		"reconfigurations": st.Reconfigurations,
		"faults":           st.Faults,
		"underrun_frames":  st.UnderrunFrames,
		"overrun_frames":   st.OverrunFrames,
		"stretched_chunks": st.StretchedChunks,
	}).Info("Statistics")
}
