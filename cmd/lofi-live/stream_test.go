package main

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	downsampler "github.com/tphakala/go-audio-downsampler"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// fakeStream feeds a constant into in and records what is written from out.
type fakeStream struct {
	in, out   [][]float32
	value     float32
	reads     int
	maxReads  int
	cancel    context.CancelFunc
	readErr   error
	written   []float32
	overflows int
}

func (f *fakeStream) Read() error {
	f.reads++
	if f.reads >= f.maxReads {
		f.cancel()
	}
	for ch := range f.in {
		for i := range f.in[ch] {
			f.in[ch][i] = f.value
		}
	}
	if f.overflows > 0 {
		f.overflows--
		return portaudio.InputOverflowed
	}
	return f.readErr
}

func (f *fakeStream) Write() error {
	f.written = append(f.written, f.out[0]...)
	return nil
}

func newLiveEffect(t *testing.T, host float64) *downsampler.Downsampler {
	t.Helper()
	cfg := downsampler.DefaultConfig()
	cfg.Logger = quietLogger()
	fx, err := downsampler.New(cfg)
	require.NoError(t, err)
	require.NoError(t, fx.Init(host))
	return fx
}

func newBuffers(frames int) (in, out [][]float32) {
	in = make([][]float32, downsampler.Channels)
	out = make([][]float32, downsampler.Channels)
	for ch := range in {
		in[ch] = make([]float32, frames)
		out[ch] = make([]float32, frames)
	}
	return in, out
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line    string
		want    command
		wantErr bool
	}{
		{"8000", command{kind: cmdRate, rate: 8000}, false},
		{"  4000  ", command{kind: cmdRate, rate: 4000}, false},
		{"6000Hz", command{kind: cmdRate, rate: 6000}, false},
		{"q", command{kind: cmdQuit}, false},
		{"QUIT", command{kind: cmdQuit}, false},
		{"reset", command{kind: cmdReset}, false},
		{"", command{}, true},
		{"fast", command{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := parseCommand(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadCommands(t *testing.T) {
	cmds := make(chan command, 4)
	readCommands(context.Background(), strings.NewReader("5000\nbogus\nreset\nq\n"), cmds, quietLogger())
	close(cmds)

	var got []command
	for c := range cmds {
		got = append(got, c)
	}
	assert.Equal(t, []command{
		{kind: cmdRate, rate: 5000},
		{kind: cmdReset},
		{kind: cmdQuit},
	}, got)
}

func TestPump_ProcessesUntilCancelled(t *testing.T) {
	const frames = 256
	fx := newLiveEffect(t, 48000)
	in, out := newBuffers(frames)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream := &fakeStream{in: in, out: out, value: 0.5, maxReads: 10, cancel: cancel}

	err := pump(ctx, stream, in, out, fx, make(chan command), 0, quietLogger())
	require.NoError(t, err)

	assert.Equal(t, 10, stream.reads)
	require.Len(t, stream.written, 10*frames)

	// The first chunk is primed silence, then DC settles at the input level.
	assert.Zero(t, stream.written[0])
	assert.InDelta(t, 0.5, stream.written[len(stream.written)-1], 1e-4)
	assert.Equal(t, uint64(10), fx.Stats().Blocks)
}

func TestPump_AppliesCommandsBetweenBlocks(t *testing.T) {
	const frames = 128
	fx := newLiveEffect(t, 48000)
	in, out := newBuffers(frames)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream := &fakeStream{in: in, out: out, maxReads: 100, cancel: cancel}

	cmds := make(chan command, 2)
	cmds <- command{kind: cmdRate, rate: 5000}
	err := pump(ctx, stream, in, out, fx, cmds, 0, quietLogger())
	require.NoError(t, err)

	assert.Equal(t, 5000, fx.TargetRate())
	assert.Equal(t, 5250, fx.EffectiveRate())
}

func TestPump_QuitCommand(t *testing.T) {
	fx := newLiveEffect(t, 48000)
	in, out := newBuffers(64)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream := &fakeStream{in: in, out: out, maxReads: 1000, cancel: cancel}

	cmds := make(chan command, 1)
	cmds <- command{kind: cmdQuit}
	require.NoError(t, pump(ctx, stream, in, out, fx, cmds, 0, quietLogger()))
	assert.Zero(t, stream.reads)
}

func TestPump_ToleratesOverflowButStopsOnError(t *testing.T) {
	fx := newLiveEffect(t, 48000)
	in, out := newBuffers(64)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream := &fakeStream{in: in, out: out, maxReads: 1000, cancel: cancel, overflows: 2}
	stream.readErr = errors.New("device lost")

	err := pump(ctx, stream, in, out, fx, make(chan command), 0, quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "device lost")
	assert.Equal(t, 3, stream.reads)
}

func TestPump_LogsStats(t *testing.T) {
	fx := newLiveEffect(t, 48000)
	in, out := newBuffers(64)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream := &fakeStream{in: in, out: out, maxReads: 50, cancel: cancel}

	assert.NotPanics(t, func() {
		_ = pump(ctx, stream, in, out, fx, make(chan command), time.Nanosecond, quietLogger())
	})
}

func TestParseOptions(t *testing.T) {
	opts, err := parseOptions([]string{"-rate", "6000", "-host-rate", "44100", "-frames", "512", "-interp", "linear"})
	require.NoError(t, err)
	assert.Equal(t, 6000, opts.rate)
	assert.InDelta(t, 44100.0, opts.hostRate, 0)
	assert.Equal(t, 512, opts.frames)
	assert.Equal(t, downsampler.InterpolationLinear, opts.interp)

	_, err = parseOptions([]string{"-frames", "0"})
	assert.Error(t, err)
	_, err = parseOptions([]string{"-interp", "sinc"})
	assert.ErrorIs(t, err, downsampler.ErrInvalidConfig)
	_, err = parseOptions([]string{"extra"})
	assert.Error(t, err)
}
