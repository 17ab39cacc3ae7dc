package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/sirupsen/logrus"

	downsampler "github.com/tphakala/go-audio-downsampler"
)

const (
	// Channel count constants
	monoChannels   = 1
	stereoChannels = 2

	// Sample format constants
	bitsPerSample8  = 8
	bitsPerSample16 = 16
	bitsPerSample24 = 24
	bitsPerSample32 = 32

	// Conversion constants
	maxInt8  = 127.0
	maxInt16 = 32767.0
	maxInt24 = 8388607.0
	maxInt32 = 2147483647.0

	// Progress reporting
	progressInterval = 10 // Log progress every N%
	percentScale     = 100

	wavFormatPCM = 1
)

// wavInputInfo holds validated input file information.
type wavInputInfo struct {
	file        *os.File
	decoder     *wav.Decoder
	rate        int
	channels    int
	bitDepth    int
	totalFrames int64
	format      *audio.Format
}

// openWAVInput opens and validates a WAV file, returning format information.
func openWAVInput(path string, log *logrus.Logger) (*wavInputInfo, error) {
	inputFile, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}

	decoder := wav.NewDecoder(inputFile)
	if !decoder.IsValidFile() {
		_ = inputFile.Close()
		return nil, fmt.Errorf("invalid WAV file: %s", path)
	}

	format := decoder.Format()
	if format.NumChannels != monoChannels && format.NumChannels != stereoChannels {
		_ = inputFile.Close()
		return nil, fmt.Errorf("unsupported channel count %d (mono or stereo only)", format.NumChannels)
	}
	bitDepth := int(decoder.BitDepth)

	log.WithFields(logrus.Fields{
		"path":      path,
		"rate":      format.SampleRate,
		"channels":  format.NumChannels,
		"bit_depth": bitDepth,
	}).Debug("Input opened")

	// Total duration is only used for progress reporting
	var totalFrames int64
	if duration, err := decoder.Duration(); err == nil {
		totalFrames = int64(duration.Seconds() * float64(format.SampleRate))
	}

	return &wavInputInfo{
		file:        inputFile,
		decoder:     decoder,
		rate:        format.SampleRate,
		channels:    format.NumChannels,
		bitDepth:    bitDepth,
		totalFrames: totalFrames,
		format:      format,
	}, nil
}

// Close closes the input file.
func (w *wavInputInfo) Close() error {
	return w.file.Close()
}

// wavOutputWriter wraps the output file and its encoder.
type wavOutputWriter struct {
	file    *os.File
	encoder *wav.Encoder
	buf     *audio.IntBuffer
}

// createWAVOutput creates the output file and encoder.
func createWAVOutput(path string, sampleRate, bitDepth, channels int) (*wavOutputWriter, error) {
	outputFile, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	return &wavOutputWriter{
		file:    outputFile,
		encoder: wav.NewEncoder(outputFile, sampleRate, bitDepth, channels, wavFormatPCM),
		buf: &audio.IntBuffer{
			Format:         &audio.Format{SampleRate: sampleRate, NumChannels: channels},
			SourceBitDepth: bitDepth,
		},
	}, nil
}

// WriteSamples writes interleaved integer samples.
func (w *wavOutputWriter) WriteSamples(samples []int) error {
	w.buf.Data = samples
	return w.encoder.Write(w.buf)
}

// Close finalizes the WAV header and closes the file.
func (w *wavOutputWriter) Close() error {
	if err := w.encoder.Close(); err != nil {
		_ = w.file.Close()
		return err
	}
	return w.file.Close()
}

// getMaxValue returns the maximum sample value for the given bit depth.
func getMaxValue(bitDepth int) float64 {
	switch bitDepth {
	case bitsPerSample8:
		return maxInt8
	case bitsPerSample16:
		return maxInt16
	case bitsPerSample24:
		return maxInt24
	case bitsPerSample32:
		return maxInt32
	default:
		return maxInt16
	}
}

// blockBuffers holds preallocated per-block buffers.
type blockBuffers struct {
	intBuffer *audio.IntBuffer
	planar    [][]float32
	block     [][]float32
	outInts   []int
	invMaxVal float64
	maxVal    float64
}

// newBlockBuffers preallocates buffers for blocks of blockFrames frames.
func newBlockBuffers(channels, bitDepth, blockFrames int, format *audio.Format) *blockBuffers {
	maxVal := getMaxValue(bitDepth)
	b := &blockBuffers{
		intBuffer: &audio.IntBuffer{
			Data:   make([]int, blockFrames*channels),
			Format: format,
		},
		planar:    make([][]float32, stereoChannels),
		block:     make([][]float32, stereoChannels),
		outInts:   make([]int, blockFrames*channels),
		invMaxVal: 1 / maxVal,
		maxVal:    maxVal,
	}
	for ch := range b.planar {
		b.planar[ch] = make([]float32, blockFrames)
	}
	return b
}

// deinterleave converts n frames of interleaved ints into the planar stereo
// buffers, duplicating mono input into both channels.
func (b *blockBuffers) deinterleave(data []int, channels, n int) [][]float32 {
	left, right := b.planar[0][:n], b.planar[1][:n]
	if channels == monoChannels {
		for i := range n {
			left[i] = float32(float64(data[i]) * b.invMaxVal)
		}
		copy(right, left)
	} else {
		for i := range n {
			left[i] = float32(float64(data[i*stereoChannels]) * b.invMaxVal)
			right[i] = float32(float64(data[i*stereoChannels+1]) * b.invMaxVal)
		}
	}
	b.block[0], b.block[1] = left, right
	return b.block
}

// interleave converts the processed block back to ints for the output
// channel count. Mono output takes the mean of both channels.
func (b *blockBuffers) interleave(block [][]float32, channels int) []int {
	n := len(block[0])
	out := b.outInts[:n*channels]
	for i := range n {
		if channels == monoChannels {
			out[i] = b.quantize((block[0][i] + block[1][i]) / 2)
			continue
		}
		out[i*stereoChannels] = b.quantize(block[0][i])
		out[i*stereoChannels+1] = b.quantize(block[1][i])
	}
	return out
}

func (b *blockBuffers) quantize(s float32) int {
	v := max(-1, min(1, float64(s)))
	return int(v * b.maxVal)
}

// progressTracker handles progress reporting.
type progressTracker struct {
	totalFrames  int64
	lastProgress int
	log          *logrus.Logger
}

func newProgressTracker(totalFrames int64, log *logrus.Logger) *progressTracker {
	return &progressTracker{totalFrames: totalFrames, log: log}
}

// reportIfNeeded logs progress when a threshold is crossed.
func (p *progressTracker) reportIfNeeded(current int64) {
	if p.totalFrames == 0 || !p.log.IsLevelEnabled(logrus.DebugLevel) {
		return
	}

	progress := int(float64(current) / float64(p.totalFrames) * percentScale)
	if progress >= p.lastProgress+progressInterval {
		p.log.WithField("percent", progress).Debug("Progress")
		p.lastProgress = progress
	}
}

// fileStats summarises one processed file.
type fileStats struct {
	hostRate      int
	effectiveRate int
	channels      int
	bitDepth      int
	frames        int64
	latency       int
	engine        downsampler.Stats
	report        *spectralReport
}

// processFile runs the input file through the effect into the output file.
func processFile(opts *options, log *logrus.Logger) (stats *fileStats, err error) {
	input, err := openWAVInput(opts.input, log)
	if err != nil {
		return nil, err
	}
	defer func() { _ = input.Close() }()

	param := downsampler.NewRateParam()
	param.Set(opts.rate)
	schedule := newAutomationSchedule(opts.automation, param)
	schedule.apply(0)

	d, err := downsampler.New(&downsampler.Config{
		Param:         param,
		Interpolation: opts.interp,
		RampRatio:     opts.ramp,
		Fallback:      opts.fallback,
		Logger:        log,
	})
	if err != nil {
		return nil, err
	}
	if err := d.Init(float64(input.rate)); err != nil {
		return nil, err
	}

	output, err := createWAVOutput(opts.output, input.rate, input.bitDepth, input.channels)
	if err != nil {
		return nil, err
	}
	// Close output, capturing close errors on success path (the header is written on close)
	defer func() {
		if closeErr := output.Close(); err == nil {
			err = closeErr
		}
	}()

	buffers := newBlockBuffers(input.channels, input.bitDepth, opts.blockFrames, input.format)
	progress := newProgressTracker(input.totalFrames, log)
	var capture *reportCapture
	if opts.report {
		capture = newReportCapture(reportFrames)
	}

	stats = &fileStats{
		hostRate: input.rate,
		channels: input.channels,
		bitDepth: input.bitDepth,
	}

	for {
		buffers.intBuffer.Data = buffers.intBuffer.Data[:cap(buffers.intBuffer.Data)]
		n, readErr := input.decoder.PCMBuffer(buffers.intBuffer)
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return nil, fmt.Errorf("failed to read audio data: %w", readErr)
		}
		frames := n / input.channels
		if frames == 0 {
			break
		}

		schedule.apply(float64(stats.frames) / float64(input.rate))

		block := buffers.deinterleave(buffers.intBuffer.Data, input.channels, frames)
		if capture != nil {
			capture.addInput(block[0])
		}

		if status, err := d.Process(block); status != downsampler.StatusNormal {
			log.WithFields(logrus.Fields{
				"frame": stats.frames,
				"error": err,
			}).Warn("Block processing failed")
		}
		if capture != nil {
			capture.addOutput(block[0])
		}

		if err := output.WriteSamples(buffers.interleave(block, input.channels)); err != nil {
			return nil, fmt.Errorf("failed to write audio data: %w", err)
		}

		stats.frames += int64(frames)
		progress.reportIfNeeded(stats.frames)
	}

	stats.effectiveRate = d.EffectiveRate()
	stats.latency = d.Latency().Total()
	stats.engine = d.Stats()
	if capture != nil {
		stats.report, err = capture.analyze(float64(input.rate), stats.effectiveRate)
		if err != nil {
			log.WithError(err).Warn("Spectral report unavailable")
			err = nil
		}
	}

	return stats, nil
}
