// Package downsampler implements a lo-fi stereo "downsampler" audio effect.
//
// The effect resamples audio from the host rate down to a user-selected
// target rate and straight back up, keeping the aliasing and interpolation
// artefacts of the round trip as the intended sound.
//
// # Features
//
//   - Target rate from 250 Hz to 30 kHz, changeable while streaming
//   - Two chained block resamplers (down, then up) with cubic, linear or
//     nearest-neighbour interpolation
//   - Target rates quantized so each 128-frame chunk maps to a whole number
//     of intermediate frames, which keeps both stages in lockstep
//   - In-place processing of host blocks of any length
//   - No heap allocation while streaming at a fixed rate
//   - Optional SIMD acceleration of the cubic kernel via github.com/tphakala/simd
//   - Structured logging through github.com/sirupsen/logrus
//
// # Quick Start
//
// For one-shot offline processing:
//
//	left, right, err := downsampler.ProcessStereo(inL, inR, 48000, 8000)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// For streaming use inside a host:
//
//	d, err := downsampler.New(nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := d.Init(48000); err != nil {
//	    log.Fatal(err)
//	}
//
//	// From the UI or automation thread
//	d.SetTargetRate(6000)
//
//	// From the audio callback
//	status, err := d.Process([][]float32{left, right})
//
// # Rate Quantization
//
// The down stage consumes exactly [ChunkSize] frames per call and the up
// stage produces exactly [ChunkSize] frames per call. For the intermediate
// frame counts to match, ChunkSize*rate must be a multiple of the host rate,
// so the requested rate is raised to the next such value (see
// [QuantizeRate]). At 48 kHz the default 10000 Hz becomes 10125 Hz.
//
// # Latency
//
// Host blocks are re-chunked through a FIFO primed with one chunk of
// silence, so the output lags the input by [ChunkSize] frames plus the
// interpolation delay of both stages. The effect reports this through
// [Downsampler.Latency] but does not compensate for it.
//
// # Errors
//
// Process never panics. A stage that rejects its ratio yields an error
// matching [ErrConfiguration]; a stage failure while processing yields
// [ErrProcessing]. Both return [StatusFatal] and leave the block as
// described by [Config.Fallback].
package downsampler
