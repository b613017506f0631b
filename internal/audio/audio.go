// Package audio provides the PCM output sink with hardware abstraction.
// The real implementation plays through the system audio device via oto.
// The fake implementation records writes for testing without hardware.
package audio

// Sink accepts raw PCM sample buffers at a native rate plus a volume level.
type Sink interface {
	// SetVolume sets the output level (0 = silent, 255 = full scale).
	// Called immediately before each Write.
	SetVolume(v uint8)

	// Write emits one chunk of raw PCM bytes. Must not block beyond the
	// device's own buffering.
	Write(pcm []byte) error

	// Close releases the audio device.
	Close() error
}

// Format describes the PCM stream a sink is opened for.
type Format struct {
	Channels      int // 1 or 2
	BitsPerSample int // 8 or 16
	SampleRate    int // Hz
}
