package main

import (
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
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

// writeTestWAV writes a 16-bit sine file and returns its path.
func writeTestWAV(t *testing.T, rate, channels, frames int, freq float64) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "input.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	data := make([]int, frames*channels)
	for i := range frames {
		v := int(0.5 * maxInt16 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
		for ch := range channels {
			data[i*channels+ch] = v
		}
	}

	enc := wav.NewEncoder(f, rate, bitsPerSample16, channels, wavFormatPCM)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{SampleRate: rate, NumChannels: channels},
		SourceBitDepth: bitsPerSample16,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
	return path
}

func readTestWAV(t *testing.T, path string) (*audio.IntBuffer, *wav.Decoder) {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	dec := wav.NewDecoder(f)
	require.True(t, dec.IsValidFile())
	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)
	return buf, dec
}

func TestOpenWAVInput_FileNotFound(t *testing.T) {
	_, err := openWAVInput("/nonexistent/file.wav", quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open input file")
}

func TestOpenWAVInput_InvalidWAV(t *testing.T) {
	invalidFile := filepath.Join(t.TempDir(), "invalid.wav")
	require.NoError(t, os.WriteFile(invalidFile, []byte("not a wav file"), 0o644))

	_, err := openWAVInput(invalidFile, quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid WAV file")
}

func TestCreateWAVOutput_InvalidDirectory(t *testing.T) {
	_, err := createWAVOutput("/nonexistent/dir/output.wav", 48000, 16, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create output file")
}

func TestParseAutomation(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []automationPoint
		wantErr bool
	}{
		{"empty", "", nil, false},
		{"single", "5000@0", []automationPoint{{5000, 0}}, false},
		{"sorted_by_time", "2000@3, 10000@0,5000@1.5", []automationPoint{{10000, 0}, {5000, 1.5}, {2000, 3}}, false},
		{"missing_at", "5000", nil, true},
		{"bad_rate", "fast@1", nil, true},
		{"bad_time", "5000@soon", nil, true},
		{"negative_time", "5000@-1", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAutomation(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAutomationSchedule_Apply(t *testing.T) {
	param := downsampler.NewRateParam()
	s := newAutomationSchedule([]automationPoint{{8000, 0}, {4000, 1}, {99999, 2}}, param)

	s.apply(0)
	assert.Equal(t, 8000, param.Get())
	s.apply(0.99)
	assert.Equal(t, 8000, param.Get())
	s.apply(1)
	assert.Equal(t, 4000, param.Get())
	s.apply(10)
	assert.Equal(t, downsampler.MaxTargetRate, param.Get(), "values are clamped")
}

func TestParseOptions(t *testing.T) {
	opts, err := parseOptions([]string{"-rate", "6000", "-interp", "linear", "-block", "64", "in.wav", "out.wav"})
	require.NoError(t, err)
	assert.Equal(t, 6000, opts.rate)
	assert.Equal(t, 64, opts.blockFrames)
	assert.Equal(t, downsampler.InterpolationLinear, opts.interp)
	assert.Equal(t, downsampler.FallbackMute, opts.fallback)
	assert.Equal(t, "in.wav", opts.input)
	assert.Equal(t, "out.wav", opts.output)

	for _, args := range [][]string{
		{"in.wav"},
		{"-block", "0", "in.wav", "out.wav"},
		{"-interp", "sinc", "in.wav", "out.wav"},
		{"-fallback", "loud", "in.wav", "out.wav"},
		{"-automate", "x", "in.wav", "out.wav"},
	} {
		_, err := parseOptions(args)
		assert.Error(t, err, "args %v", args)
	}
}

func TestBlockBuffers_MonoIsDualMono(t *testing.T) {
	b := newBlockBuffers(monoChannels, bitsPerSample16, 4, &audio.Format{SampleRate: 48000, NumChannels: 1})

	block := b.deinterleave([]int{32767, 0, -32767, 16384}, monoChannels, 4)
	require.Len(t, block, stereoChannels)
	assert.Equal(t, block[0], block[1])
	assert.InDelta(t, 1, block[0][0], 1e-6)

	out := b.interleave(block, monoChannels)
	assert.Equal(t, []int{32767, 0, -32767, 16384}, out)
}

func TestProcessFile(t *testing.T) {
	for _, channels := range []int{monoChannels, stereoChannels} {
		t.Run(map[int]string{monoChannels: "mono", stereoChannels: "stereo"}[channels], func(t *testing.T) {
			const frames = 48000
			in := writeTestWAV(t, 48000, channels, frames, 440)
			out := filepath.Join(t.TempDir(), "out.wav")

			opts := &options{
				rate:        8000,
				blockFrames: 333,
				automation:  []automationPoint{{8000, 0}, {4000, 0.5}},
				interp:      downsampler.InterpolationCubic,
				fallback:    downsampler.FallbackMute,
				report:      true,
				input:       in,
				output:      out,
			}
			stats, err := processFile(opts, quietLogger())
			require.NoError(t, err)

			assert.Equal(t, int64(frames), stats.frames)
			assert.Equal(t, 4125, stats.effectiveRate)
			assert.Equal(t, uint64(2), stats.engine.Reconfigurations)
			require.NotNil(t, stats.report)
			assert.InDelta(t, 440, stats.report.outPeak, 5)

			buf, dec := readTestWAV(t, out)
			assert.Equal(t, 48000, int(dec.SampleRate))
			assert.Equal(t, channels, int(dec.NumChans))
			assert.Len(t, buf.Data, frames*channels)
		})
	}
}
