package engine

// Interpolation window constants
const (
	// historyFrames is the number of past input frames kept per channel.
	// The 4-point window reaches one frame further back than the delay line.
	historyFrames = 4

	// interpDelayFrames is the fixed input-side delay of every interpolator.
	// Output position p reads the window centred on input frame p-3, which keeps
	// the window inside the current chunk plus history.
	interpDelayFrames = 3

	// windowTaps is the size of the interpolation window (cubic needs 4 points).
	windowTaps = 4

	// nearestThreshold splits the window for nearest-neighbour interpolation.
	nearestThreshold = 0.5
)

// Phase bookkeeping
const (
	// phaseEpsilon absorbs float accumulation error so block-aligned ratios keep
	// producing exactly chunkSize*ratio frames per chunk.
	phaseEpsilon = 1e-9

	// framesMaxSlack is added to per-chunk frame estimates to cover the
	// fractional phase carried between chunks.
	framesMaxSlack = 1

	// inputFramesMaxSlack covers the carried phase in [0, 1) for FixedOutput.
	inputFramesMaxSlack = 2
)

// Catmull-Rom (cubic Hermite) basis, one entry per window tap y0..y3.
// value = Σ y[i] * (hermiteA[i] + x*(hermiteB[i] + x*(hermiteC[i] + x*hermiteD[i])))
var (
	hermiteA = [windowTaps]float64{0, 1, 0, 0}
	hermiteB = [windowTaps]float64{-0.5, 0, 0.5, 0}
	hermiteC = [windowTaps]float64{1, -2.5, 2, -0.5}
	hermiteD = [windowTaps]float64{-0.5, 1.5, -1.5, 0.5}
)
