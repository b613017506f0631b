// Package buttons provides the three manual-input edges with hardware
// abstraction. The real implementation uses the Linux GPIO character device
// with driver-level debounce, so the rest of the system only ever sees
// clean edge events. The fake implementation allows testing without
// hardware.
package buttons

// Edge is a debounced button press.
type Edge int

const (
	EdgeVolumeDown Edge = iota
	EdgePlayToggle
	EdgeVolumeUp
)

// String returns the edge name for logging.
func (e Edge) String() string {
	switch e {
	case EdgeVolumeDown:
		return "VOLUME_DOWN"
	case EdgePlayToggle:
		return "PLAY_TOGGLE"
	case EdgeVolumeUp:
		return "VOLUME_UP"
	}
	return "UNKNOWN"
}

// Input delivers button edges to the control loop.
type Input interface {
	// Poll returns the edges accumulated since the previous call,
	// oldest first. It never blocks.
	Poll() []Edge

	// Close releases input resources.
	Close() error
}

// Pin definitions (BCM numbering).
const (
	DefaultPinDown   = 5
	DefaultPinToggle = 6
	DefaultPinUp     = 13
)
