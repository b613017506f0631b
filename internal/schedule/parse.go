package schedule

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrNoRanges is returned by Parse when no line yields a valid range.
// Callers fall back to manual-only volume control.
var ErrNoRanges = errors.New("schedule: no valid ranges")

// Parse reads a schedule in the line format "HH:MM-HH:MM VOLUME".
// Blank lines and lines starting with '#' are ignored. Lines that fail
// validation are skipped individually; only a schedule with zero valid
// ranges is an error. Skipped returns the number of rejected lines.
func Parse(r io.Reader) (s *Schedule, skipped int, err error) {
	var ranges []Range
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rg, err := parseLine(line)
		if err != nil {
			skipped++
			continue
		}
		ranges = append(ranges, rg)
	}
	if err := sc.Err(); err != nil {
		return nil, skipped, fmt.Errorf("read schedule: %w", err)
	}
	if len(ranges) == 0 {
		return nil, skipped, ErrNoRanges
	}
	return New(ranges), skipped, nil
}

// parseLine parses a single "HH:MM-HH:MM VOLUME" entry.
func parseLine(line string) (Range, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return Range{}, fmt.Errorf("want 2 fields, got %d", len(fields))
	}
	span := strings.SplitN(fields[0], "-", 2)
	if len(span) != 2 {
		return Range{}, errors.New("missing '-' in time span")
	}
	start, err := parseMinute(span[0])
	if err != nil {
		return Range{}, fmt.Errorf("start: %w", err)
	}
	end, err := parseMinute(span[1])
	if err != nil {
		return Range{}, fmt.Errorf("end: %w", err)
	}
	if start >= MinutesPerDay {
		return Range{}, fmt.Errorf("start %d out of range", start)
	}
	if start >= end || end > MinutesPerDay {
		return Range{}, fmt.Errorf("invalid span %d-%d", start, end)
	}
	vol, err := strconv.Atoi(fields[1])
	if err != nil || vol < 0 || vol > 255 {
		return Range{}, fmt.Errorf("invalid volume %q", fields[1])
	}
	return Range{Start: start, End: end, Volume: uint8(vol)}, nil
}

// parseMinute parses "HH:MM" into a minute of day. "24:00" is accepted so
// ranges can end at midnight.
func parseMinute(s string) (int, error) {
	hm := strings.SplitN(s, ":", 2)
	if len(hm) != 2 {
		return 0, fmt.Errorf("malformed time %q", s)
	}
	h, err := strconv.Atoi(hm[0])
	if err != nil || h < 0 || h > 24 {
		return 0, fmt.Errorf("bad hour %q", hm[0])
	}
	m, err := strconv.Atoi(hm[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("bad minute %q", hm[1])
	}
	return h*60 + m, nil
}
