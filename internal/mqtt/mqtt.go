// Package mqtt publishes heart-rate readings and system lifecycle events
// with abstraction for testing. Telemetry is optional: the device runs
// fully offline when no broker is configured.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/mwhite/noisebox/internal/sensorlink"
)

// TopicReadings is the MQTT topic for heart-rate readings.
const TopicReadings = "noisebox/heartrate"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "noisebox/system"

// Publisher publishes telemetry to MQTT.
type Publisher interface {
	// PublishReading sends one accepted heart-rate reading.
	// Returns error if publishing fails (must not crash the process).
	PublishReading(r sensorlink.Reading) error

	// PublishSystem sends a system lifecycle event.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a lifecycle event: STARTUP, SHUTDOWN, LINK_UP,
// LINK_DOWN, RESYNC.
type SystemEvent struct {
	Timestamp time.Time
	Event     string
	Reason    string // e.g. "SIGTERM", a link error (optional)
	Retained  bool   // whether the broker should retain the message
}

// ReadingPayload is the JSON body published for a reading.
type ReadingPayload struct {
	Timestamp string `json:"timestamp"`
	BPM       int    `json:"bpm"`
}

// FormatReading creates the JSON payload for a heart-rate reading.
func FormatReading(r sensorlink.Reading) ([]byte, error) {
	return json.Marshal(ReadingPayload{
		Timestamp: r.When.UTC().Format(time.RFC3339),
		BPM:       int(r.BPM),
	})
}

// SystemPayload is the JSON body published for a lifecycle event.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystem creates the JSON payload for a system event.
func FormatSystem(event SystemEvent) ([]byte, error) {
	return json.Marshal(SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	})
}
