package sensorlink

import "time"

// DecodeReading extracts the heart rate from a measurement notification.
// Byte 0 is the flags field, which is ignored beyond validating the payload
// length; byte 1 is the measurement. Payloads shorter than 2 bytes are
// dropped: the sensor occasionally sends malformed frames and dropping is
// correct, not an error.
func DecodeReading(payload []byte, when time.Time) (Reading, bool) {
	if len(payload) < 2 {
		return Reading{}, false
	}
	return Reading{When: when, BPM: payload[1]}, true
}
