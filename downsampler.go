package downsampler

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Effect is the boundary between an audio host and the downsampler.
type Effect interface {
	// Init starts a session at the given host sample rate.
	Init(hostRate float64) error

	// Reset clears all stage state and reconfigures for the current target.
	Reset() error

	// Process transforms one stereo block in place.
	Process(block [][]float32) (Status, error)
}

// Status is the result of processing one block.
type Status int

const (
	// StatusNormal means the block holds processed audio.
	StatusNormal Status = iota

	// StatusFatal means processing failed; the block holds what the
	// configured Fallback leaves in it.
	StatusFatal
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusNormal:
		return "normal"
	case StatusFatal:
		return "fatal"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Stats holds running counters. All counts are cumulative since New.
type Stats struct {
	Blocks           uint64 // Blocks passed to Process
	Frames           uint64 // Frames passed to Process
	Chunks           uint64 // Input chunks run through the down stage
	Reconfigurations uint64 // Successful reconfigurations
	Faults           uint64 // Blocks that returned StatusFatal
	UnderrunFrames   uint64 // Output frames zero-filled for lack of data
	OverrunFrames    uint64 // Up-stage frames dropped for lack of FIFO space
	ScratchGrowths   uint64 // Scratch buffer reallocations
	StretchedChunks  uint64 // Up-stage chunks stretched to absorb a ramp
}

// Downsampler is a stereo lo-fi effect that downsamples to a quantized
// target rate and immediately upsamples back to the host rate.
//
// Process, Init and Reset must be called from one goroutine. Param,
// SetTargetRate and Stats are safe to call from any goroutine.
type Downsampler struct {
	cfg      Config
	param    *RateParam
	log      *logrus.Logger
	pipe     *stagePipeline[float32]
	detector *ChangeDetector

	hostRate    float64
	initialized bool
	faulted     bool
	target      int
	effective   int
	ratios      RatioPair

	blocks   atomic.Uint64
	frames   atomic.Uint64
	reconfig atomic.Uint64
	faults   atomic.Uint64
}

var _ Effect = (*Downsampler)(nil)

// New creates a downsampler. Both stages are built here at a ratio of 1 so
// later ratio changes never allocate stage state. A nil config selects
// DefaultConfig.
func New(config *Config) (*Downsampler, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	cfg := *config
	if cfg.Param == nil {
		cfg.Param = NewRateParam()
	}
	if cfg.Logger == nil {
		cfg.Logger = defaultLogger()
	}

	pipe, err := newStagePipeline[float32](cfg.Interpolation, cfg.ratioBound())
	if err != nil {
		return nil, err
	}
	if cfg.PreallocateWorstCase {
		pipe.preallocate()
	}

	d := &Downsampler{
		cfg:      cfg,
		param:    cfg.Param,
		log:      cfg.Logger,
		pipe:     pipe,
		detector: NewChangeDetector(),
		ratios:   RatioPair{Down: initialRatio, Up: initialRatio},
	}

	return d, nil
}

// Init starts a session at hostRate and performs a full Reset.
func (d *Downsampler) Init(hostRate float64) error {
	if math.IsNaN(hostRate) || math.IsInf(hostRate, 0) || hostRate < 1 {
		return fmt.Errorf("%w: %v", ErrInvalidHostRate, hostRate)
	}

	d.hostRate = hostRate
	d.initialized = true

	d.log.WithFields(logrus.Fields{
		"function":  "Init",
		"host_rate": hostRate,
	}).Info("Downsampler session started")

	return d.Reset()
}

// Reset clears stage history and buffered audio, then reconfigures for the
// current target rate. It also clears a fault left by a failed
// reconfiguration when the new attempt succeeds.
func (d *Downsampler) Reset() error {
	if !d.initialized {
		return ErrNotInitialized
	}

	d.pipe.Reset()
	d.detector.Force()
	d.faulted = false

	target := d.param.Get()
	d.detector.Poll(target)
	if err := d.reconfigure(target, false); err != nil {
		d.detector.Fail(target)
		d.faulted = true
		return err
	}
	d.detector.Commit(target)

	if d.log.IsLevelEnabled(logrus.InfoLevel) {
		lat := d.pipe.latency()
		d.log.WithFields(logrus.Fields{
			"function":        "Reset",
			"host_rate":       d.hostRate,
			"target_rate":     target,
			"effective_rate":  d.effective,
			"down_delay":      lat.Down,
			"up_delay":        lat.Up,
			"latency_frames":  lat.Total(),
			"scratch_frames":  d.pipe.scratchFrames(),
			"down_frames_out": d.pipe.down.OutputFramesNext(),
			"up_frames_in":    d.pipe.up.InputFramesNext(),
		}).Info("Downsampler reset")
	}

	return nil
}

// Process transforms one stereo block in place. The block must hold exactly
// Channels equal-length channels; its length may vary between calls.
//
// Process never panics on bad state. On StatusFatal the returned error says
// why and the block content follows Config.Fallback.
func (d *Downsampler) Process(block [][]float32) (Status, error) {
	if err := validateBlock(block); err != nil {
		d.faults.Add(1)
		return StatusFatal, err
	}

	d.blocks.Add(1)
	n := len(block[0])
	d.frames.Add(uint64(n))

	if !d.initialized {
		return d.fail(block, 0, ErrNotInitialized)
	}
	if n == 0 {
		return StatusNormal, nil
	}

	target := d.param.Get()
	if d.detector.Poll(target) {
		if err := d.reconfigure(target, d.cfg.RampRatio); err != nil {
			d.detector.Fail(target)
			d.faulted = true
			d.log.WithFields(logrus.Fields{
				"function":    "Process",
				"target_rate": target,
				"host_rate":   d.hostRate,
				"error":       err.Error(),
			}).Error("Reconfiguration failed, effect faulted")
			return d.fail(block, 0, err)
		}
		d.detector.Commit(target)
	}

	if d.faulted {
		return d.fail(block, 0, ErrFaulted)
	}

	written, err := d.pipe.Process(block)
	if err != nil {
		d.log.WithFields(logrus.Fields{
			"function": "Process",
			"error":    err.Error(),
		}).Error("Block processing failed, pipeline reset")
		d.pipe.Reset()
		return d.fail(block, written, err)
	}

	return StatusNormal, nil
}

// reconfigure quantizes target, applies the ratio pair to both stages and
// resizes the scratch buffer. Stage history is kept.
func (d *Downsampler) reconfigure(target int, ramp bool) error {
	effective, err := QuantizeRate(target, d.hostRate, ChunkSize)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	pair, err := NewRatioPair(effective, d.hostRate)
	if err != nil {
		return err
	}
	if err := applyRatios(d.pipe.down, d.pipe.up, pair, ramp); err != nil {
		return err
	}

	grew := d.pipe.ensureScratch()
	d.target = target
	d.effective = effective
	d.ratios = pair
	d.faulted = false
	d.reconfig.Add(1)

	if d.log.IsLevelEnabled(logrus.DebugLevel) {
		d.log.WithFields(logrus.Fields{
			"function":        "reconfigure",
			"target_rate":     target,
			"effective_rate":  effective,
			"down_ratio":      pair.Down,
			"up_ratio":        pair.Up,
			"down_delay":      d.pipe.down.OutputDelay(),
			"up_delay":        d.pipe.up.OutputDelay(),
			"down_frames_out": d.pipe.down.OutputFramesNext(),
			"up_frames_in":    d.pipe.up.InputFramesNext(),
			"scratch_frames":  d.pipe.scratchFrames(),
			"scratch_grew":    grew,
		}).Debug("Resample rate changed")
	}

	return nil
}

// fail applies the fallback policy and reports StatusFatal.
// written is the number of leading frames already replaced by output.
func (d *Downsampler) fail(block [][]float32, written int, err error) (Status, error) {
	d.faults.Add(1)

	switch d.cfg.Fallback {
	case FallbackMute:
		muteBlock(block)
	case FallbackBypass:
		if written > 0 {
			muteBlock(block)
		}
	case FallbackNone:
	}

	return StatusFatal, err
}

func muteBlock(block [][]float32) {
	for _, ch := range block {
		clear(ch)
	}
}

func validateBlock(block [][]float32) error {
	if len(block) != Channels {
		return fmt.Errorf("%w: want %d channels, got %d", ErrInvalidBlock, Channels, len(block))
	}
	for ch := 1; ch < Channels; ch++ {
		if len(block[ch]) != len(block[0]) {
			return fmt.Errorf("%w: channel %d has %d frames, channel 0 has %d",
				ErrInvalidBlock, ch, len(block[ch]), len(block[0]))
		}
	}
	return nil
}

// Param returns the shared target-rate parameter.
func (d *Downsampler) Param() *RateParam {
	return d.param
}

// SetTargetRate sets the target rate (clamped to the parameter range).
// The change takes effect at the start of the next block.
func (d *Downsampler) SetTargetRate(hz int) int {
	return d.param.Set(hz)
}

// HostRate returns the session sample rate, or 0 before Init.
func (d *Downsampler) HostRate() float64 {
	return d.hostRate
}

// TargetRate returns the last applied target rate.
func (d *Downsampler) TargetRate() int {
	return d.target
}

// EffectiveRate returns the quantized rate the audio is reduced to.
func (d *Downsampler) EffectiveRate() int {
	return d.effective
}

// Ratios returns the ratios currently applied to the stages.
func (d *Downsampler) Ratios() RatioPair {
	return d.ratios
}

// Latency returns the delay the effect currently adds.
func (d *Downsampler) Latency() Latency {
	return d.pipe.latency()
}

// ScratchFrames returns the per-channel capacity of the scratch buffer.
func (d *Downsampler) ScratchFrames() int {
	return d.pipe.scratchFrames()
}

// Faulted reports whether a failed reconfiguration is still in effect.
func (d *Downsampler) Faulted() bool {
	return d.faulted
}

// Stats returns a snapshot of the running counters.
func (d *Downsampler) Stats() Stats {
	c := &d.pipe.counters
	return Stats{
		Blocks:           d.blocks.Load(),
		Frames:           d.frames.Load(),
		Chunks:           c.chunks.Load(),
		Reconfigurations: d.reconfig.Load(),
		Faults:           d.faults.Load(),
		UnderrunFrames:   c.underrunFrames.Load(),
		OverrunFrames:    c.overrunFrames.Load(),
		ScratchGrowths:   c.scratchGrowths.Load(),
		StretchedChunks:  c.stretchedChunks.Load(),
	}
}

// IsConfigurationError reports whether err came from a rejected stage ratio.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsProcessingError reports whether err came from a failing stage.
func IsProcessingError(err error) bool {
	return errors.Is(err, ErrProcessing)
}
