// Package playback owns the looping audio stream: WAV header parsing,
// chunked reads from the storage file, end-of-stream wrap, and per-chunk
// volume gating at the sink boundary.
package playback

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/mwhite/noisebox/internal/audio"
)

// ErrFormat reports a file that is not the expected PCM container.
var ErrFormat = errors.New("playback: not a canonical WAV file")

// Fixed offsets of the canonical 44-byte WAV header. Only this layout is
// supported: the parser does not walk extension sub-chunks, so a file with
// a LIST or fact chunk before the data plays with a wrong payload start
// rather than failing. Known limitation, kept on purpose for the fixed
// input file this device ships with.
const (
	headerSize     = 44
	offChannels    = 22 // uint16 LE
	offSampleRate  = 24 // uint32 LE
	offBitsPerSamp = 34 // uint16 LE

	// DataStart is the first payload byte.
	DataStart = headerSize
)

var riffMagic = [4]byte{'R', 'I', 'F', 'F'}

// parseHeader validates the magic and extracts the stream format from the
// fixed header offsets.
func parseHeader(hdr []byte) (audio.Format, error) {
	if len(hdr) < headerSize {
		return audio.Format{}, fmt.Errorf("%w: header truncated at %d bytes", ErrFormat, len(hdr))
	}
	if [4]byte(hdr[:4]) != riffMagic {
		return audio.Format{}, fmt.Errorf("%w: bad magic %q", ErrFormat, hdr[:4])
	}
	f := audio.Format{
		Channels:      int(binary.LittleEndian.Uint16(hdr[offChannels:])),
		BitsPerSample: int(binary.LittleEndian.Uint16(hdr[offBitsPerSamp:])),
		SampleRate:    int(binary.LittleEndian.Uint32(hdr[offSampleRate:])),
	}
	if f.Channels != 1 && f.Channels != 2 {
		return audio.Format{}, fmt.Errorf("%w: %d channels", ErrFormat, f.Channels)
	}
	if f.BitsPerSample != 8 && f.BitsPerSample != 16 {
		return audio.Format{}, fmt.Errorf("%w: %d bits per sample", ErrFormat, f.BitsPerSample)
	}
	if f.SampleRate <= 0 {
		return audio.Format{}, fmt.Errorf("%w: sample rate %d", ErrFormat, f.SampleRate)
	}
	return f, nil
}
