// Package clock keeps the device's wall clock correct. The device has no
// battery-backed clock, so startup blocks until the first network sync
// succeeds; afterwards the supervisor resyncs once per idle episode rather
// than on a timer.
package clock

import (
	"fmt"
	"sync"
	"time"
)

// Syncer obtains the current wall-clock time from a network source.
type Syncer interface {
	Sync() (time.Time, error)
}

// SyncState is the externally observable supervisor state.
type SyncState int

const (
	// StateWaiting means the initial sync has not completed yet.
	StateWaiting SyncState = iota
	// StateSynced means at least one sync has succeeded.
	StateSynced
)

// String returns the state name for logging.
func (s SyncState) String() string {
	if s == StateSynced {
		return "SYNCED"
	}
	return "AWAITING_NETWORK"
}

// Supervisor owns the sync lifecycle and serves as the schedule's time
// source. Now is called from the control loop while syncs may complete on
// other goroutines, so the offset is guarded.
type Supervisor struct {
	syncer Syncer
	loc    *time.Location
	poll   time.Duration

	mu       sync.Mutex
	state    SyncState
	offset   time.Duration
	resynced bool // latch: one resync per stop episode
	syncs    int
}

// New creates a supervisor. loc localizes Now for schedule decisions; poll
// bounds the retry interval of the initial blocking sync (0 selects 2s).
func New(syncer Syncer, loc *time.Location, poll time.Duration) *Supervisor {
	if loc == nil {
		loc = time.UTC
	}
	if poll <= 0 {
		poll = 2 * time.Second
	}
	return &Supervisor{syncer: syncer, loc: loc, poll: poll}
}

// WaitInitial blocks until the first sync succeeds, retrying at the poll
// interval with no attempt cap. The device is expected to wait indefinitely
// when the network is down; Waiting state stays observable via State. sleep
// is injectable for tests.
func (s *Supervisor) WaitInitial(sleep func(time.Duration)) {
	if sleep == nil {
		sleep = time.Sleep
	}
	for {
		if err := s.syncOnce(); err == nil {
			return
		}
		sleep(s.poll)
	}
}

// State returns the observable sync state.
func (s *Supervisor) State() SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Syncs returns how many syncs have succeeded.
func (s *Supervisor) Syncs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncs
}

// Now returns the corrected, localized wall-clock time.
func (s *Supervisor) Now() time.Time {
	s.mu.Lock()
	offset := s.offset
	s.mu.Unlock()
	return time.Now().Add(offset).In(s.loc)
}

// NotePlaying updates the resync latch from the resolver's per-tick
// play/stop fact and reports whether a resync should run now. The first
// tick of a stop episode arms exactly one resync; resuming playback clears
// the latch for the next episode.
func (s *Supervisor) NotePlaying(playing bool) (resync bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if playing {
		s.resynced = false
		return false
	}
	if s.resynced || s.state != StateSynced {
		return false
	}
	s.resynced = true
	return true
}

// Resync performs one sync. Safe to call from a goroutine; failures leave
// the previous offset in place.
func (s *Supervisor) Resync() error {
	return s.syncOnce()
}

func (s *Supervisor) syncOnce() error {
	t, err := s.syncer.Sync()
	if err != nil {
		return fmt.Errorf("clock sync: %w", err)
	}
	s.mu.Lock()
	s.offset = t.Sub(time.Now())
	s.state = StateSynced
	s.syncs++
	s.mu.Unlock()
	return nil
}
