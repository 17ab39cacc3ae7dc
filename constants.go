package downsampler

// Effect layout and parameter limits.
const (
	// Channels is the fixed channel count of the effect (stereo).
	Channels = 2

	// ChunkSize is the fixed number of frames the down stage consumes and the
	// up stage produces per processing call.
	ChunkSize = 128

	// MinTargetRate and MaxTargetRate bound the user-selected rate in Hz.
	MinTargetRate = 250
	MaxTargetRate = 30000

	// DefaultTargetRate is the initial target rate in Hz.
	DefaultTargetRate = 10000

	// MaxHostRate is the highest host sample rate the ratio bound is sized for.
	MaxHostRate = 192000
)

// MaxRatioRelative is the widest ratio excursion each stage must accept
// relative to its construction ratio of 1.
const MaxRatioRelative = float64(MaxHostRate+DefaultTargetRate) / MinTargetRate

// Parameter metadata exposed to hosts.
const (
	ParamID   = "Resample"
	ParamName = "Resample"
	ParamUnit = "Hz"
)

// Internal tuning constants
const (
	initialRatio   = 1.0  // Both stages start as pass-through
	ratioTolerance = 1e-9 // Allowed |down*up - 1|
	fifoChunks     = 4    // Output FIFO capacity in chunks
	primeChunks    = 1    // Chunks of silence in the FIFO after Reset
)
