// Package volume contains the manual-override controller and the
// effective-volume resolver. Like the schedule package it is pure logic:
// no hardware, no clock, no logging. The control loop owns the single
// instance of each and feeds it once per tick.
package volume

// DefaultStep is the volume change applied per button edge.
const DefaultStep = 10

// ChangeKind identifies a manual volume transition for logging.
type ChangeKind string

const (
	ChangeDecrease ChangeKind = "DECREASE"
	ChangeIncrease ChangeKind = "INCREASE"
	ChangePause    ChangeKind = "PAUSE"
	ChangeResume   ChangeKind = "RESUME"
)

// Change reports a manual volume transition. The controller returns these
// as facts; logging and publishing are the caller's job.
type Change struct {
	Kind   ChangeKind
	Manual uint8
	Saved  uint8
}

// Override tracks the manual volume and the saved level used to restore
// after a pause. Saved always holds the last known nonzero manual level.
type Override struct {
	manual uint8
	saved  uint8
	step   uint8
}

// NewOverride creates an override controller starting at the given manual
// volume. A step of 0 selects DefaultStep. Starting paused (initial 0) has
// no last nonzero level to save, so the saved level is seeded with one step:
// the first toggle then resumes at the quietest audible setting instead of
// staying silent.
func NewOverride(initial, step uint8) *Override {
	if step == 0 {
		step = DefaultStep
	}
	o := &Override{manual: initial, step: step, saved: initial}
	if initial == 0 {
		o.saved = step
	}
	return o
}

// Manual returns the current manual volume.
func (o *Override) Manual() uint8 { return o.manual }

// Saved returns the saved (pre-pause) volume.
func (o *Override) Saved() uint8 { return o.saved }

// Decrease lowers the manual volume by one step, clamping at 0. The saved
// level only follows while the result stays audible.
func (o *Override) Decrease() Change {
	if o.manual > o.step {
		o.manual -= o.step
	} else {
		o.manual = 0
	}
	if o.manual > 0 {
		o.saved = o.manual
	}
	return Change{Kind: ChangeDecrease, Manual: o.manual, Saved: o.saved}
}

// Increase raises the manual volume by one step, clamping at 255.
func (o *Override) Increase() Change {
	if o.manual > 255-o.step {
		o.manual = 255
	} else {
		o.manual += o.step
	}
	o.saved = o.manual
	return Change{Kind: ChangeIncrease, Manual: o.manual, Saved: o.saved}
}

// Toggle pauses (manual > 0: save and drop to 0) or resumes (restore the
// saved level). A double toggle round-trips to the original volume.
func (o *Override) Toggle() Change {
	if o.manual > 0 {
		o.saved = o.manual
		o.manual = 0
		return Change{Kind: ChangePause, Manual: o.manual, Saved: o.saved}
	}
	o.manual = o.saved
	return Change{Kind: ChangeResume, Manual: o.manual, Saved: o.saved}
}
