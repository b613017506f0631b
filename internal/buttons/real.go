//go:build linux

package buttons

import (
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// debouncePeriod is applied in the GPIO driver so the override controller
// only ever sees settled edges.
const debouncePeriod = 30 * time.Millisecond

// RealInput reads button presses from actual hardware using the Linux GPIO
// character device. Edge events arrive on the driver's own goroutine and
// are queued for once-per-tick consumption by Poll.
type RealInput struct {
	chip  *gpiocdev.Chip
	lines []*gpiocdev.Line

	mu      sync.Mutex
	pending []Edge
}

// NewRealInput requests the three button lines as debounced falling-edge
// inputs with pull-ups (buttons short to ground when pressed).
func NewRealInput(pinDown, pinToggle, pinUp int) (*RealInput, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	in := &RealInput{chip: chip}

	pins := []struct {
		pin  int
		edge Edge
	}{
		{pinDown, EdgeVolumeDown},
		{pinToggle, EdgePlayToggle},
		{pinUp, EdgeVolumeUp},
	}
	for _, p := range pins {
		edge := p.edge
		line, err := chip.RequestLine(p.pin,
			gpiocdev.AsInput,
			gpiocdev.WithPullUp,
			gpiocdev.WithDebounce(debouncePeriod),
			gpiocdev.WithFallingEdge,
			gpiocdev.WithEventHandler(func(gpiocdev.LineEvent) {
				in.mu.Lock()
				in.pending = append(in.pending, edge)
				in.mu.Unlock()
			}))
		if err != nil {
			in.Close()
			return nil, fmt.Errorf("request %s pin %d: %w", edge, p.pin, err)
		}
		in.lines = append(in.lines, line)
	}
	return in, nil
}

// Poll returns and clears the queued edges.
func (in *RealInput) Poll() []Edge {
	in.mu.Lock()
	defer in.mu.Unlock()
	edges := in.pending
	in.pending = nil
	return edges
}

// Close releases the GPIO lines and chip.
func (in *RealInput) Close() error {
	var errs []error
	for _, l := range in.lines {
		if err := l.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if in.chip != nil {
		if err := in.chip.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
