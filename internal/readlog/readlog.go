// Package readlog appends heart-rate readings to the storage medium. The
// log has exactly one writer: the control loop, which drains sensor events
// and funnels every record through Append.
package readlog

import (
	"fmt"
	"os"

	"github.com/spf13/afero"

	"github.com/mwhite/noisebox/internal/sensorlink"
)

// timeLayout is the wall-clock timestamp format of a record.
const timeLayout = "2006-01-02 15:04:05"

// Logger appends one line per accepted reading: "timestamp,bpm".
type Logger struct {
	file  afero.File
	count int
}

// Open opens (or creates) the log file for appending.
func Open(fs afero.Fs, path string) (*Logger, error) {
	f, err := fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open reading log: %w", err)
	}
	return &Logger{file: f}, nil
}

// Append writes one reading record.
func (l *Logger) Append(r sensorlink.Reading) error {
	line := fmt.Sprintf("%s,%d\n", r.When.Format(timeLayout), r.BPM)
	if _, err := l.file.WriteString(line); err != nil {
		return fmt.Errorf("append reading: %w", err)
	}
	l.count++
	return nil
}

// Count returns the number of records appended this run.
func (l *Logger) Count() int { return l.count }

// Close flushes and closes the log file.
func (l *Logger) Close() error {
	if err := l.file.Sync(); err != nil {
		l.file.Close()
		return fmt.Errorf("sync reading log: %w", err)
	}
	return l.file.Close()
}
