package downsampler

// ChangeDetector decides when the live target rate requires reconfiguring
// the stages.
//
// It moves from idle to reconfiguring when Poll sees a value different from
// the last applied one, and back to idle on Commit or Fail. Each distinct
// value therefore triggers exactly one reconfiguration attempt.
type ChangeDetector struct {
	last          int
	valid         bool
	reconfiguring bool
}

// NewChangeDetector returns a detector that fires on the first Poll.
func NewChangeDetector() *ChangeDetector {
	return &ChangeDetector{}
}

// Poll compares live against the last applied value. It reports true, and
// enters the reconfiguring state, when a reconfiguration is required.
func (d *ChangeDetector) Poll(live int) bool {
	if d.valid && live == d.last {
		return false
	}
	d.reconfiguring = true
	return true
}

// Commit records rate as applied and returns to idle.
func (d *ChangeDetector) Commit(rate int) {
	d.last = rate
	d.valid = true
	d.reconfiguring = false
}

// Fail records rate as attempted so the same value is not retried, and
// returns to idle.
func (d *ChangeDetector) Fail(rate int) {
	d.Commit(rate)
}

// Force makes the next Poll fire regardless of the live value.
func (d *ChangeDetector) Force() {
	d.valid = false
}

// Last returns the last applied (or attempted) value and whether one exists.
func (d *ChangeDetector) Last() (int, bool) {
	return d.last, d.valid
}

// Reconfiguring reports whether a Poll fired without a matching Commit or Fail.
func (d *ChangeDetector) Reconfiguring() bool {
	return d.reconfiguring
}
