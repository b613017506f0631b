package clock

import "time"

// FakeSyncer is a test double returning scripted sync results.
type FakeSyncer struct {
	// Results are consumed one per Sync call; the last repeats.
	Results []SyncResult

	// Calls counts Sync invocations.
	Calls int

	index int
}

// SyncResult is one scripted outcome.
type SyncResult struct {
	Time time.Time
	Err  error
}

// NewFakeSyncer creates a FakeSyncer with the given script.
func NewFakeSyncer(results ...SyncResult) *FakeSyncer {
	return &FakeSyncer{Results: results}
}

// Sync returns the next scripted result.
func (f *FakeSyncer) Sync() (time.Time, error) {
	f.Calls++
	if len(f.Results) == 0 {
		return time.Time{}, nil
	}
	r := f.Results[f.index]
	if f.index < len(f.Results)-1 {
		f.index++
	}
	return r.Time, r.Err
}
