package downsampler

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/tphakala/go-audio-downsampler/internal/engine"
	"github.com/tphakala/go-audio-downsampler/internal/pipeline"
	"github.com/tphakala/go-audio-downsampler/internal/simdops"
)

// stagePipeline chains the down and up stages for host blocks of any length.
//
// Host frames are gathered into ChunkSize input chunks. Each full chunk runs
// through the down stage into the scratch buffer, the up stage turns the
// scratch contents back into ChunkSize-frame output chunks, and those are
// queued in a per-channel FIFO. The FIFO is drained over block positions that
// have already been consumed, so a block is processed in place.
//
// After Reset the FIFO holds ChunkSize frames of silence and the accumulator
// is empty. Every completed input chunk adds exactly ChunkSize frames to the
// FIFO, so their sum stays at ChunkSize and the FIFO never runs dry.
type stagePipeline[F simdops.Float] struct {
	down *engine.BlockResampler[F]
	up   *engine.BlockResampler[F]

	scratch *pipeline.Scratch[F]
	acc     [][]F
	accFill int
	upOut   [][]F
	fifo    []*pipeline.RingBuffer[F]

	counters pipelineCounters
}

// pipelineCounters may be read from any goroutine.
type pipelineCounters struct {
	chunks          atomic.Uint64
	underrunFrames  atomic.Uint64
	overrunFrames   atomic.Uint64
	scratchGrowths  atomic.Uint64
	stretchedChunks atomic.Uint64
}

func newStagePipeline[F simdops.Float](interp engine.Interpolation, ratioBound float64) (*stagePipeline[F], error) {
	down, err := engine.NewBlockResampler[F](engine.FixedInput, initialRatio, ratioBound, interp, ChunkSize, Channels)
	if err != nil {
		return nil, fmt.Errorf("%w: down stage: %w", ErrInvalidConfig, err)
	}
	up, err := engine.NewBlockResampler[F](engine.FixedOutput, initialRatio, ratioBound, interp, ChunkSize, Channels)
	if err != nil {
		return nil, fmt.Errorf("%w: up stage: %w", ErrInvalidConfig, err)
	}

	p := &stagePipeline[F]{
		down:    down,
		up:      up,
		scratch: pipeline.NewScratch[F](Channels, 0),
		acc:     make([][]F, Channels),
		upOut:   make([][]F, Channels),
		fifo:    make([]*pipeline.RingBuffer[F], Channels),
	}
	for ch := range Channels {
		p.acc[ch] = make([]F, ChunkSize)
		p.upOut[ch] = make([]F, ChunkSize)
		p.fifo[ch] = pipeline.NewRingBuffer[F](fifoChunks * ChunkSize)
	}
	p.ensureScratch()
	p.Reset()

	return p, nil
}

// Reset clears stage history, buffered frames and the accumulator, and
// primes the FIFO with silence. Ratios and buffer capacity are kept.
func (p *stagePipeline[F]) Reset() {
	p.down.Reset()
	p.up.Reset()
	p.scratch.Clear()
	p.accFill = 0
	for ch := range Channels {
		clear(p.acc[ch])
		p.fifo[ch].Clear()
		p.fifo[ch].WriteSilence(primeChunks * ChunkSize)
	}
}

// Process runs block (Channels equal-length channels) through both stages in
// place. It returns how many leading frames hold processed output.
func (p *stagePipeline[F]) Process(block [][]F) (int, error) {
	n := len(block[0])
	read, written := 0, 0

	for read < n {
		take := min(ChunkSize-p.accFill, n-read)
		for ch := range Channels {
			copy(p.acc[ch][p.accFill:], block[ch][read:read+take])
		}
		p.accFill += take
		read += take

		if p.accFill == ChunkSize {
			p.accFill = 0
			if err := p.runChunk(); err != nil {
				return written, err
			}
		}

		written += p.drain(block, written, read)
	}

	if written < n {
		for ch := range Channels {
			clear(block[ch][written:n])
		}
		p.counters.underrunFrames.Add(uint64(n - written))
	}

	return n, nil
}

// runChunk pushes one accumulated chunk through both stages into the FIFO.
//
// The up stage runs exactly once per input chunk and consumes everything the
// down stage produced. At a steady quantized rate that is its nominal input
// size; after a ramped change the down stage can deliver a few frames more
// or fewer, and the up stage stretches that chunk to fit so the FIFO still
// receives exactly ChunkSize frames.
func (p *stagePipeline[F]) runChunk() error {
	_, produced, err := p.down.Process(p.acc, p.scratch.Tail())
	if err != nil {
		return fmt.Errorf("%w: down stage: %w", ErrProcessing, err)
	}
	if err := p.scratch.Commit(produced); err != nil {
		return fmt.Errorf("%w: down stage: %w", ErrProcessing, err)
	}
	p.counters.chunks.Add(1)

	frames := p.scratch.Len()
	if frames == 0 {
		return nil
	}

	if frames == p.up.InputFramesNext() {
		if _, _, err := p.up.Process(p.scratch.Head(), p.upOut); err != nil {
			return fmt.Errorf("%w: up stage: %w", ErrProcessing, err)
		}
	} else {
		if _, err := p.up.ProcessSpan(p.scratch.Head(), p.upOut, frames); err != nil {
			return fmt.Errorf("%w: up stage: %w", ErrProcessing, err)
		}
		p.counters.stretchedChunks.Add(1)
	}
	p.scratch.Consume(frames)
	p.enqueue(ChunkSize)

	return nil
}

// enqueue appends produced up-stage frames to the FIFO, dropping overflow.
func (p *stagePipeline[F]) enqueue(produced int) {
	var accepted int
	for ch := range Channels {
		accepted = p.fifo[ch].Write(p.upOut[ch][:produced])
	}
	p.counters.overrunFrames.Add(uint64(produced - accepted))
}

// drain moves FIFO frames into block[from:to] and returns the count.
func (p *stagePipeline[F]) drain(block [][]F, from, to int) int {
	var moved int
	for ch := range Channels {
		moved = p.fifo[ch].Read(block[ch][from:to])
	}
	return moved
}

// latency returns the stage delays and the re-blocking delay in host frames.
func (p *stagePipeline[F]) latency() Latency {
	down := p.down.OutputDelay()
	up := p.up.OutputDelay()
	return Latency{
		Down:        down,
		Up:          up,
		Algorithmic: int(math.Round(float64(down)*p.up.Ratio())) + up,
		Buffering:   p.fifo[0].Available() + p.accFill,
	}
}

// Latency describes the delay the effect adds.
type Latency struct {
	// Down is the down stage's interpolation delay in intermediate frames.
	Down int

	// Up is the up stage's interpolation delay in host frames.
	Up int

	// Algorithmic is the combined stage delay in host frames:
	// round(Down*UpRatio) + Up. Down and Up are in different units, so the
	// plain sum Down+Up, counted in each stage's own output frames,
	// understates the delay whenever the effective rate is below the host
	// rate.
	Algorithmic int

	// Buffering is the re-blocking delay in host frames: the frames queued
	// in the output FIFO plus the partially filled input chunk. It is
	// ChunkSize at all times.
	Buffering int
}

// Total returns the overall delay in host frames.
func (l Latency) Total() int {
	return l.Algorithmic + l.Buffering
}
