package audio

// FakeSink records volumes and chunks for test assertions.
type FakeSink struct {
	// Chunks contains every buffer passed to Write, in order.
	Chunks [][]byte

	// Volumes contains the volume in effect for each corresponding chunk.
	Volumes []uint8

	// WriteError, if set, will be returned by Write.
	WriteError error

	// Closed tracks if Close was called.
	Closed bool

	volume uint8
}

// NewFakeSink creates a FakeSink for testing.
func NewFakeSink() *FakeSink {
	return &FakeSink{}
}

// SetVolume records the current volume.
func (f *FakeSink) SetVolume(v uint8) {
	f.volume = v
}

// Volume returns the most recently set volume.
func (f *FakeSink) Volume() uint8 {
	return f.volume
}

// Write records the chunk and the volume it was written at.
func (f *FakeSink) Write(pcm []byte) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	buf := append([]byte(nil), pcm...)
	f.Chunks = append(f.Chunks, buf)
	f.Volumes = append(f.Volumes, f.volume)
	return nil
}

// Close marks the sink as closed.
func (f *FakeSink) Close() error {
	f.Closed = true
	return nil
}

// Reset clears recorded chunks.
func (f *FakeSink) Reset() {
	f.Chunks = nil
	f.Volumes = nil
	f.Closed = false
	f.WriteError = nil
	f.volume = 0
}
