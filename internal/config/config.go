// Package config loads the device's file-based configuration from the
// storage medium: network credentials, the timezone rule, and the volume
// schedule. Simple line-oriented formats, read once at startup.
package config

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/mwhite/noisebox/internal/schedule"
)

// Credentials identify the wireless network. Association itself is handled
// by the operating system; the values are loaded for status display and to
// fail fast when the file is required but unreadable.
type Credentials struct {
	SSID       string
	Passphrase string
}

// LoadCredentials reads the first two non-empty lines: network identifier,
// then secret, both trimmed.
func LoadCredentials(fs afero.Fs, path string) (Credentials, error) {
	f, err := fs.Open(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("open credentials: %w", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() && len(lines) < 2 {
		line := strings.TrimSpace(sc.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return Credentials{}, fmt.Errorf("read credentials: %w", err)
	}
	if len(lines) < 2 {
		return Credentials{}, fmt.Errorf("credentials %s: want 2 non-empty lines, got %d", path, len(lines))
	}
	return Credentials{SSID: lines[0], Passphrase: lines[1]}, nil
}

// LoadTimezone reads a single-line timezone rule. IANA names are tried
// first; the simple POSIX "STD±offset" form (e.g. "CST-8") is accepted as a
// fallback. A missing or unparseable file falls back to UTC.
func LoadTimezone(fs afero.Fs, path string) *time.Location {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return time.UTC
	}
	rule := strings.TrimSpace(string(data))
	if rule == "" {
		return time.UTC
	}
	if loc, err := time.LoadLocation(rule); err == nil {
		return loc
	}
	if loc := parsePosixZone(rule); loc != nil {
		return loc
	}
	return time.UTC
}

// parsePosixZone handles the fixed-offset POSIX form "STD±offset", where
// the POSIX sign is inverted: "CST-8" means UTC+8.
func parsePosixZone(rule string) *time.Location {
	i := strings.IndexAny(rule, "+-0123456789")
	if i < 1 {
		return nil
	}
	name := rule[:i]
	hours, err := strconv.Atoi(rule[i:])
	if err != nil || hours < -14 || hours > 14 {
		return nil
	}
	return time.FixedZone(name, -hours*3600)
}

// LoadSchedule parses the schedule file. A missing file or one with zero
// valid ranges returns schedule.ErrNoRanges semantics to the caller, which
// runs in manual-only mode.
func LoadSchedule(fs afero.Fs, path string) (*schedule.Schedule, int, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open schedule: %w", err)
	}
	defer f.Close()
	return schedule.Parse(f)
}
