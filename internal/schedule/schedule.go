// Package schedule implements the time-of-day volume schedule.
// This package has NO external dependencies (no storage, clock, or audio).
// Time is always injectable via time.Time parameters.
package schedule

import (
	"sort"
	"time"
)

// MinutesPerDay is the number of schedule minutes in a day.
const MinutesPerDay = 24 * 60

// Range is a half-open [Start,End) minute-of-day interval with a volume.
type Range struct {
	Start  int // minute of day, 0..1439
	End    int // minute of day, 1..1440, always > Start
	Volume uint8
}

// Contains reports whether the minute falls inside the range.
func (r Range) Contains(minute int) bool {
	return r.Start <= minute && minute < r.End
}

// Schedule is an ordered sequence of ranges. Order is significant: when
// ranges overlap, the earliest-configured range wins. The zero value is an
// empty schedule, which never overrides the manual volume.
type Schedule struct {
	ranges []Range
	events []int // sorted, de-duplicated start/end minutes
}

// New builds a schedule from ranges, preserving their order.
func New(ranges []Range) *Schedule {
	s := &Schedule{ranges: append([]Range(nil), ranges...)}
	seen := make(map[int]bool)
	for _, r := range s.ranges {
		for _, m := range []int{r.Start, r.End} {
			if !seen[m] {
				seen[m] = true
				s.events = append(s.events, m)
			}
		}
	}
	sort.Ints(s.events)
	return s
}

// Empty reports whether the schedule holds no ranges.
func (s *Schedule) Empty() bool {
	return s == nil || len(s.ranges) == 0
}

// Len returns the number of configured ranges.
func (s *Schedule) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ranges)
}

// Ranges returns a copy of the configured ranges in order.
func (s *Schedule) Ranges() []Range {
	if s == nil {
		return nil
	}
	return append([]Range(nil), s.ranges...)
}

// MinuteOf converts a wall-clock time to a minute of day.
func MinuteOf(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// VolumeAt returns the volume of the first configured range containing the
// given time, and whether any range matched. No match means the schedule
// defers to the manual volume.
func (s *Schedule) VolumeAt(now time.Time) (uint8, bool) {
	if s.Empty() {
		return 0, false
	}
	minute := MinuteOf(now)
	for _, r := range s.ranges {
		if r.Contains(minute) {
			return r.Volume, true
		}
	}
	return 0, false
}

// NextChange returns the minute of day at which the scheduled volume next
// changes, and whether that minute falls on the following day. ok is false
// for an empty schedule.
func (s *Schedule) NextChange(now time.Time) (minute int, tomorrow bool, ok bool) {
	if s.Empty() {
		return 0, false, false
	}
	m := MinuteOf(now)
	for _, e := range s.events {
		if e > m {
			return e, false, true
		}
	}
	// No event later today: wrap to the earliest event tomorrow.
	return s.events[0], true, true
}
