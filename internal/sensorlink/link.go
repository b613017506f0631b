// Package sensorlink manages the wireless heart-rate sensor connection:
// discovery, connection, subscription, and reconnection. The lifecycle is a
// pure state machine consuming a closed set of transport events and
// returning actions for the transport to execute, so every transition is
// testable without radio hardware. The real transport lives in ble.go.
package sensorlink

import "time"

// State is the link lifecycle state.
type State int

const (
	StateIdle State = iota
	StateScanning
	StateFoundTarget
	StateConnecting
	StateConnected
	StateSubscribed
	StateDisconnected
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateScanning:
		return "SCANNING"
	case StateFoundTarget:
		return "FOUND_TARGET"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateSubscribed:
		return "SUBSCRIBED"
	case StateDisconnected:
		return "DISCONNECTED"
	}
	return "UNKNOWN"
}

// EventKind tags a transport event.
type EventKind int

const (
	// EventScanMatch reports an advertisement carrying the heart-rate
	// service. Only the first match while scanning is acted on.
	EventScanMatch EventKind = iota
	// EventConnected reports a successful connection.
	EventConnected
	// EventSubscribed reports that the measurement characteristic was
	// discovered and notifications were enabled.
	EventSubscribed
	// EventLinkFailed reports a failed connect or subscribe attempt.
	EventLinkFailed
	// EventDisconnected reports loss of an established connection.
	EventDisconnected
	// EventNotification delivers one raw measurement payload.
	EventNotification
)

// Event is one fact posted by the transport. Transport callbacks only
// enqueue events; all state changes happen on the control loop.
type Event struct {
	Kind    EventKind
	Addr    string // EventScanMatch: remote device address
	Err     error  // EventLinkFailed
	Payload []byte // EventNotification
}

// ActionKind tags a command for the transport.
type ActionKind int

const (
	ActionStartScan ActionKind = iota
	ActionStopScan
	ActionConnect
	ActionSubscribe
	ActionDisconnect
)

// Action is one command the machine asks the transport to execute.
type Action struct {
	Kind ActionKind
	Addr string // ActionConnect: target device address
}

// Reading is one accepted heart-rate measurement.
type Reading struct {
	When time.Time
	BPM  uint8
}

// DefaultRescanDelay is how long the machine waits in Disconnected before
// restarting discovery.
const DefaultRescanDelay = 2 * time.Second

// Machine is the link state machine. It tracks at most one target at a
// time; the target address is identification only, never ownership of the
// remote device.
type Machine struct {
	state          State
	target         string
	rescanDelay    time.Duration
	disconnectedAt time.Time
	reconnects     int
}

// NewMachine creates a machine in Idle. A zero delay selects
// DefaultRescanDelay.
func NewMachine(rescanDelay time.Duration) *Machine {
	if rescanDelay <= 0 {
		rescanDelay = DefaultRescanDelay
	}
	return &Machine{rescanDelay: rescanDelay}
}

// State returns the current lifecycle state.
func (m *Machine) State() State { return m.state }

// Target returns the tracked device address, empty when none.
func (m *Machine) Target() string { return m.target }

// Reconnects returns how many times the link was re-established after a
// disconnect.
func (m *Machine) Reconnects() int { return m.reconnects }

// Start begins discovery from Idle. It is a no-op in any other state.
func (m *Machine) Start() []Action {
	if m.state != StateIdle {
		return nil
	}
	m.state = StateScanning
	return []Action{{Kind: ActionStartScan}}
}

// Handle consumes one transport event and returns the actions to execute
// plus an accepted reading, if the event carried one. now stamps readings.
func (m *Machine) Handle(ev Event, now time.Time) ([]Action, *Reading) {
	switch ev.Kind {
	case EventScanMatch:
		if m.state != StateScanning {
			// A second match while engaged is ignored.
			return nil, nil
		}
		m.state = StateFoundTarget
		m.target = ev.Addr
		// Stop scanning as soon as a match is found, then connect.
		m.state = StateConnecting
		return []Action{
			{Kind: ActionStopScan},
			{Kind: ActionConnect, Addr: ev.Addr},
		}, nil

	case EventConnected:
		if m.state != StateConnecting {
			return nil, nil
		}
		m.state = StateConnected
		return []Action{{Kind: ActionSubscribe}}, nil

	case EventSubscribed:
		if m.state != StateConnected {
			return nil, nil
		}
		if m.disconnectedAt != (time.Time{}) {
			m.reconnects++
		}
		m.state = StateSubscribed
		return nil, nil

	case EventLinkFailed:
		// Connect or subscribe failure: back to Idle, no automatic
		// retry beyond the next manual or periodic rescan. A subscribe
		// failure arrives with the connection still up, and the sensor
		// stops advertising while connected, so it must be torn down or
		// no rescan will ever see it again.
		var actions []Action
		if m.state == StateConnected || m.state == StateSubscribed {
			actions = append(actions, Action{Kind: ActionDisconnect})
		}
		m.reset(StateIdle)
		return actions, nil

	case EventDisconnected:
		if m.state == StateIdle || m.state == StateScanning {
			return nil, nil
		}
		m.reset(StateDisconnected)
		m.disconnectedAt = now
		return nil, nil

	case EventNotification:
		if m.state != StateSubscribed {
			return nil, nil
		}
		r, ok := DecodeReading(ev.Payload, now)
		if !ok {
			// Malformed frame: dropped, no state change.
			return nil, nil
		}
		return nil, &r
	}
	return nil, nil
}

// Poll drives time-based transitions: after the rescan delay in
// Disconnected, discovery restarts.
func (m *Machine) Poll(now time.Time) []Action {
	if m.state != StateDisconnected {
		return nil
	}
	if now.Sub(m.disconnectedAt) < m.rescanDelay {
		return nil
	}
	m.state = StateScanning
	return []Action{{Kind: ActionStartScan}}
}

// Rescan forces discovery to restart. It is accepted in any state; a live
// connection is torn down first.
func (m *Machine) Rescan() []Action {
	var actions []Action
	switch m.state {
	case StateScanning:
		return nil // already scanning
	case StateConnecting, StateConnected, StateSubscribed:
		actions = append(actions, Action{Kind: ActionDisconnect})
	}
	m.reset(StateScanning)
	actions = append(actions, Action{Kind: ActionStartScan})
	return actions
}

// reset clears the target so no stale handle survives a teardown.
func (m *Machine) reset(to State) {
	m.state = to
	m.target = ""
}
