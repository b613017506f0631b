package playback

import (
	"fmt"
	"io"

	"github.com/spf13/afero"

	"github.com/mwhite/noisebox/internal/audio"
)

// DefaultChunkSize is the number of payload bytes read per control tick.
const DefaultChunkSize = 1024

// Engine streams one WAV file in a loop, one chunk per tick. The engine is
// the sole owner of the file cursor; nothing else reads the handle.
type Engine struct {
	file   afero.File
	format audio.Format
	cursor int64
	chunk  []byte
	loops  int
}

// Open opens the audio file and parses its header. The cursor starts at the
// payload.
func Open(fs afero.Fs, path string, chunkSize int) (*Engine, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	hdr := make([]byte, headerSize)
	if _, err := io.ReadFull(f, hdr); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	format, err := parseHeader(hdr)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &Engine{
		file:   f,
		format: format,
		cursor: DataStart,
		chunk:  make([]byte, chunkSize),
	}, nil
}

// Format returns the parsed stream format.
func (e *Engine) Format() audio.Format { return e.format }

// Loops returns how many times the stream has wrapped to the start.
func (e *Engine) Loops() int { return e.loops }

// Tick emits at most one chunk to the sink. A closed gate emits nothing:
// silence is the sink receiving no data. A zero-byte read means end of
// stream; the cursor wraps to the payload start and this tick is a one-tick
// gap, which is acceptable. The volume is applied at the sink boundary
// immediately before emission.
func (e *Engine) Tick(sink audio.Sink, gate bool, vol uint8) error {
	if !gate {
		return nil
	}
	n, err := e.file.ReadAt(e.chunk, e.cursor)
	if n == 0 {
		if err != nil && err != io.EOF {
			return fmt.Errorf("read chunk: %w", err)
		}
		// End of stream: wrap and skip this tick.
		e.cursor = DataStart
		e.loops++
		return nil
	}
	e.cursor += int64(n)
	sink.SetVolume(vol)
	if werr := sink.Write(e.chunk[:n]); werr != nil {
		return fmt.Errorf("write chunk: %w", werr)
	}
	// A partial read can carry a real error alongside the data. The bytes
	// were emitted and the cursor advanced; the error still surfaces so a
	// failing medium shows up on the tick it happens.
	if err != nil && err != io.EOF {
		return fmt.Errorf("read chunk: %w", err)
	}
	return nil
}

// Close releases the audio file.
func (e *Engine) Close() error {
	return e.file.Close()
}
