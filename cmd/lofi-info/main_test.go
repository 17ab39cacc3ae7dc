package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	downsampler "github.com/tphakala/go-audio-downsampler"
)

func TestDescribe(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, describe(&buf, downsampler.RateDAT, 10000, downsampler.InterpolationCubic))

	out := buf.String()
	assert.Contains(t, out, `Parameter: Resample (id "Resample", 250-30000 Hz, default 10000)`)
	assert.Contains(t, out, "Effective rate: 10125 Hz")
	assert.Contains(t, out, "Intermediate frames per chunk: 27")
	assert.Contains(t, out, "Test tone 6075 Hz")
}

func TestDescribe_InvalidHostRate(t *testing.T) {
	var buf bytes.Buffer
	err := describe(&buf, 0, 10000, downsampler.InterpolationCubic)
	assert.ErrorIs(t, err, downsampler.ErrInvalidHostRate)
}

func TestTestToneFrequency(t *testing.T) {
	assert.InDelta(t, 6075.0, testToneFrequency(48000, 10125), 1e-9)
	// 0.6 * 30000 is above the 22050 Hz Nyquist limit of a 44.1 kHz host
	assert.InDelta(t, 30000.0/4, testToneFrequency(44100, 30000), 1e-9)
}

func TestRunDemo(t *testing.T) {
	var buf bytes.Buffer
	runDemo(&buf)

	out := buf.String()
	assert.Contains(t, out, "48000 Hz host:")
	assert.Contains(t, out, "10000 Hz -> 10125 Hz")
	assert.Contains(t, out, "44100 Hz host:")
	assert.NotContains(t, out, "Error")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "=== Demo Complete ==="))
}
