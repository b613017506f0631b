// Package status provides a thread-safe status tracker for the noisebox
// daemon. It is read by the HTTP status server while the control loop
// updates it every tick.
package status

import (
	"sync"
	"time"
)

// Config contains daemon configuration for display.
type Config struct {
	TickMs    int64
	ChunkSize int
	AudioPath string
	Broker    string // empty when telemetry is disabled
	HTTPAddr  string
	SSID      string
	NTPServer string
}

// Counts tracks event totals since startup.
type Counts struct {
	Readings    int // accepted heart-rate readings
	Loops       int // audio stream wraps
	Reconnects  int // sensor link re-establishments
	Transitions int // scheduled-volume transitions
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	LinkState       string
	LastBPM         int // -1 until the first reading
	LastReadingAt   time.Time
	ManualVolume    uint8
	EffectiveVolume uint8
	ScheduledVolume int // -1 when no range applies
	Playing         bool
	ClockState      string
	ScheduleRanges  int
	Counts          Counts
	StartTime       time.Time
	Now             time.Time
	MQTTConnected   bool
	Config          Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
			LastBPM:   -1,
		},
	}
}

// UpdateVolume sets the per-tick volume facts. Called from the loop on
// every tick.
func (t *Tracker) UpdateVolume(manual, effective uint8, scheduled int, playing bool) {
	t.mu.Lock()
	t.snap.ManualVolume = manual
	t.snap.EffectiveVolume = effective
	t.snap.ScheduledVolume = scheduled
	t.snap.Playing = playing
	t.mu.Unlock()
}

// SetLinkState sets the sensor link state name.
func (t *Tracker) SetLinkState(state string) {
	t.mu.Lock()
	t.snap.LinkState = state
	t.mu.Unlock()
}

// SetReading records the latest accepted heart-rate reading.
func (t *Tracker) SetReading(bpm uint8, at time.Time) {
	t.mu.Lock()
	t.snap.LastBPM = int(bpm)
	t.snap.LastReadingAt = at
	t.mu.Unlock()
}

// SetClockState sets the clock-sync supervisor state name.
func (t *Tracker) SetClockState(state string) {
	t.mu.Lock()
	t.snap.ClockState = state
	t.mu.Unlock()
}

// SetScheduleRanges records how many schedule ranges loaded.
func (t *Tracker) SetScheduleRanges(n int) {
	t.mu.Lock()
	t.snap.ScheduleRanges = n
	t.mu.Unlock()
}

// SetCounts sets the event totals.
func (t *Tracker) SetCounts(c Counts) {
	t.mu.Lock()
	t.snap.Counts = c
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
