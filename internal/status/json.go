package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Link            LinkJSON   `json:"link"`
	Volume          VolumeJSON `json:"volume"`
	Playing         bool       `json:"playing"`
	Clock           string     `json:"clock"`
	ScheduleRanges  int        `json:"schedule_ranges"`
	UptimeSeconds   int64      `json:"uptime_seconds"`
	StartTime       string     `json:"start_time"`
	Timestamp       string     `json:"timestamp"`
	MQTT            MQTTStatus `json:"mqtt"`
	Counts          CountsJSON `json:"event_counts"`
	Config          ConfigJSON `json:"config"`
}

// LinkJSON reports the sensor link state and latest reading.
type LinkJSON struct {
	State         string `json:"state"`
	LastBPM       int    `json:"last_bpm"` // -1 until the first reading
	LastReadingAt string `json:"last_reading_at,omitempty"`
}

// VolumeJSON reports the per-tick volume resolution.
type VolumeJSON struct {
	Manual    uint8 `json:"manual"`
	Effective uint8 `json:"effective"`
	Scheduled int   `json:"scheduled"` // -1 when no range applies
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker,omitempty"`
}

// CountsJSON is the JSON representation of event totals.
type CountsJSON struct {
	Readings    int `json:"readings"`
	Loops       int `json:"loops"`
	Reconnects  int `json:"reconnects"`
	Transitions int `json:"transitions"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	TickMs    int64  `json:"tick_ms"`
	ChunkSize int    `json:"chunk_size"`
	AudioPath string `json:"audio_path"`
	HTTPAddr  string `json:"http_addr"`
	SSID      string `json:"ssid,omitempty"`
	NTPServer string `json:"ntp_server"`
}

func buildInner(snap Snapshot) StatusInner {
	link := snap.LinkState
	if link == "" {
		link = "IDLE"
	}
	clock := snap.ClockState
	if clock == "" {
		clock = "AWAITING_NETWORK"
	}

	inner := StatusInner{
		Link: LinkJSON{
			State:   link,
			LastBPM: snap.LastBPM,
		},
		Volume: VolumeJSON{
			Manual:    snap.ManualVolume,
			Effective: snap.EffectiveVolume,
			Scheduled: snap.ScheduledVolume,
		},
		Playing:        snap.Playing,
		Clock:          clock,
		ScheduleRanges: snap.ScheduleRanges,
		UptimeSeconds:  int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:      snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:      snap.Now.UTC().Format(time.RFC3339),
		MQTT:           MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Readings:    snap.Counts.Readings,
			Loops:       snap.Counts.Loops,
			Reconnects:  snap.Counts.Reconnects,
			Transitions: snap.Counts.Transitions,
		},
		Config: ConfigJSON{
			TickMs:    snap.Config.TickMs,
			ChunkSize: snap.Config.ChunkSize,
			AudioPath: snap.Config.AudioPath,
			HTTPAddr:  snap.Config.HTTPAddr,
			SSID:      snap.Config.SSID,
			NTPServer: snap.Config.NTPServer,
		},
	}
	if !snap.LastReadingAt.IsZero() {
		inner.Link.LastReadingAt = snap.LastReadingAt.UTC().Format(time.RFC3339)
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}
