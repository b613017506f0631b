package volume

import (
	"time"

	"github.com/mwhite/noisebox/internal/schedule"
)

// Sentinels for the previously observed scheduled volume.
const (
	scheduledNone  = -1 // no range applied
	scheduledUnset = -2 // before the first tick
)

// Decision is the resolver's per-tick output.
type Decision struct {
	Effective  uint8
	Scheduled  int // -1 when no range applies
	ShouldPlay bool

	// Transition is non-nil exactly when the scheduled volume differs
	// from the previous tick's. It carries log-worthy facts; the
	// resolver itself never logs.
	Transition *Transition
}

// Transition describes a change in the scheduled volume.
type Transition struct {
	Scheduled  int // -1 when the schedule stopped applying
	NextMinute int
	Tomorrow   bool
	HasNext    bool
}

// Resolver merges the schedule and the manual override into one effective
// volume per control tick.
type Resolver struct {
	sched *schedule.Schedule
	prev  int
}

// NewResolver creates a resolver over the given schedule, which may be nil
// or empty (manual-only mode).
func NewResolver(s *schedule.Schedule) *Resolver {
	return &Resolver{sched: s, prev: scheduledUnset}
}

// Resolve computes the effective volume for this tick. The scheduled volume
// wins when a range applies; otherwise the manual volume is used. playing
// and speakerEnabled gate emission without affecting the volume itself.
func (r *Resolver) Resolve(now time.Time, manual uint8, playing, speakerEnabled bool) Decision {
	scheduled := scheduledNone
	effective := manual
	if v, ok := r.sched.VolumeAt(now); ok {
		scheduled = int(v)
		effective = v
	}

	d := Decision{
		Effective:  effective,
		Scheduled:  scheduled,
		ShouldPlay: effective > 0 && playing && speakerEnabled,
	}

	// First tick always transitions: prev starts at the unset sentinel.
	if scheduled != r.prev {
		tr := &Transition{Scheduled: scheduled}
		tr.NextMinute, tr.Tomorrow, tr.HasNext = r.sched.NextChange(now)
		d.Transition = tr
	}
	r.prev = scheduled

	return d
}
