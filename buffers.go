package downsampler

// Intermediate buffer sizing.
//
// The scratch buffer must hold one down-stage chunk plus whatever the up
// stage left behind, so its size is the down stage's maximum output plus the
// up stage's maximum input at the current ratios. This is at least the larger
// of the two, which is what a single stage hop needs. Capacity only grows.

// requiredScratchFrames returns the scratch size needed at the current ratios.
func (p *stagePipeline[F]) requiredScratchFrames() int {
	return p.down.OutputFramesMax() + p.up.InputFramesMax()
}

// worstCaseScratchFrames returns the scratch size that covers every ratio
// the stages accept.
func (p *stagePipeline[F]) worstCaseScratchFrames() int {
	return p.down.OutputFramesBound() + p.up.InputFramesBound()
}

// ensureScratch grows the scratch buffer for the current ratios.
// It reports whether the buffer was reallocated.
func (p *stagePipeline[F]) ensureScratch() bool {
	if !p.scratch.Ensure(p.requiredScratchFrames()) {
		return false
	}
	p.counters.scratchGrowths.Add(1)
	return true
}

// preallocate sizes the scratch buffer for the whole ratio range.
func (p *stagePipeline[F]) preallocate() {
	if p.scratch.Ensure(p.worstCaseScratchFrames()) {
		p.counters.scratchGrowths.Add(1)
	}
}

// scratchFrames returns the current scratch capacity per channel.
func (p *stagePipeline[F]) scratchFrames() int {
	return p.scratch.Frames()
}
