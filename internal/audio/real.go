package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// RealSink plays PCM through the default audio device using oto. oto pulls
// samples from an io.Reader, so writes land in an internal buffer that the
// player drains; an empty buffer plays as silence (underrun), which is how
// the engine keeps quiet while the gate is closed.
type RealSink struct {
	ctx    *oto.Context
	player *oto.Player

	mu  sync.Mutex
	buf []byte
}

// NewRealSink opens the system audio device for the given format.
func NewRealSink(f Format) (*RealSink, error) {
	var sampleFormat oto.Format
	switch f.BitsPerSample {
	case 8:
		sampleFormat = oto.FormatUnsignedInt8
	case 16:
		sampleFormat = oto.FormatSignedInt16LE
	default:
		return nil, fmt.Errorf("unsupported bit depth %d", f.BitsPerSample)
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   f.SampleRate,
		ChannelCount: f.Channels,
		Format:       sampleFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("open audio context: %w", err)
	}
	select {
	case <-ready:
	case <-time.After(5 * time.Second):
		return nil, fmt.Errorf("audio device not ready")
	}

	s := &RealSink{ctx: ctx}
	s.player = ctx.NewPlayer(s)
	s.player.Play()
	return s, nil
}

// Read supplies buffered samples to the oto player.
func (s *RealSink) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := copy(p, s.buf)
	s.buf = s.buf[n:]
	return n, nil
}

// SetVolume maps the 0..255 level onto the player's 0..1 gain.
func (s *RealSink) SetVolume(v uint8) {
	s.player.SetVolume(float64(v) / 255)
}

// Write queues one chunk for playback.
func (s *RealSink) Write(pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = append(s.buf, pcm...)
	return nil
}

// Close stops playback and releases the device.
func (s *RealSink) Close() error {
	return s.player.Close()
}
