package sensorlink

import (
	"testing"
	"time"
)

var t0 = time.Date(2026, 8, 24, 22, 0, 0, 0, time.UTC)

// subscribedMachine walks a fresh machine to Subscribed.
func subscribedMachine(t *testing.T) *Machine {
	t.Helper()
	m := NewMachine(2 * time.Second)

	actions := m.Start()
	if len(actions) != 1 || actions[0].Kind != ActionStartScan {
		t.Fatalf("Start actions = %v", actions)
	}

	actions, _ = m.Handle(Event{Kind: EventScanMatch, Addr: "a4:c1:38:01:02:03"}, t0)
	if len(actions) != 2 || actions[0].Kind != ActionStopScan || actions[1].Kind != ActionConnect {
		t.Fatalf("scan-match actions = %v", actions)
	}
	if actions[1].Addr != "a4:c1:38:01:02:03" {
		t.Fatalf("connect addr = %q", actions[1].Addr)
	}

	actions, _ = m.Handle(Event{Kind: EventConnected}, t0)
	if len(actions) != 1 || actions[0].Kind != ActionSubscribe {
		t.Fatalf("connected actions = %v", actions)
	}

	m.Handle(Event{Kind: EventSubscribed}, t0)
	if m.State() != StateSubscribed {
		t.Fatalf("state = %s, want SUBSCRIBED", m.State())
	}
	return m
}

func TestHappyPathToSubscribed(t *testing.T) {
	subscribedMachine(t)
}

func TestSecondMatchIgnoredWhileEngaged(t *testing.T) {
	m := NewMachine(0)
	m.Start()
	m.Handle(Event{Kind: EventScanMatch, Addr: "aa:aa:aa:aa:aa:aa"}, t0)

	actions, _ := m.Handle(Event{Kind: EventScanMatch, Addr: "bb:bb:bb:bb:bb:bb"}, t0)
	if actions != nil {
		t.Errorf("second match produced actions %v", actions)
	}
	if m.Target() != "aa:aa:aa:aa:aa:aa" {
		t.Errorf("target changed to %q", m.Target())
	}
}

func TestConnectFailureReturnsToIdle(t *testing.T) {
	m := NewMachine(0)
	m.Start()
	m.Handle(Event{Kind: EventScanMatch, Addr: "aa:aa:aa:aa:aa:aa"}, t0)

	actions, _ := m.Handle(Event{Kind: EventLinkFailed}, t0)
	if actions != nil {
		t.Errorf("failure produced actions %v (retry is the rescan's job)", actions)
	}
	if m.State() != StateIdle {
		t.Errorf("state = %s, want IDLE", m.State())
	}
	if m.Target() != "" {
		t.Errorf("stale target %q after failure", m.Target())
	}
}

func TestSubscribeFailureDisconnectsBeforeIdle(t *testing.T) {
	m := NewMachine(0)
	m.Start()
	m.Handle(Event{Kind: EventScanMatch, Addr: "aa:aa:aa:aa:aa:aa"}, t0)
	m.Handle(Event{Kind: EventConnected}, t0)

	// The connection is live when a subscribe fails; leaving it up would
	// keep the sensor from advertising, so the machine must tear it down.
	actions, _ := m.Handle(Event{Kind: EventLinkFailed}, t0)
	if len(actions) != 1 || actions[0].Kind != ActionDisconnect {
		t.Fatalf("subscribe-failure actions = %v, want [Disconnect]", actions)
	}
	if m.State() != StateIdle {
		t.Errorf("state = %s, want IDLE", m.State())
	}
	if m.Target() != "" {
		t.Errorf("stale target %q after failure", m.Target())
	}
}

func TestDisconnectRescansAfterDelay(t *testing.T) {
	m := subscribedMachine(t)

	m.Handle(Event{Kind: EventDisconnected}, t0)
	if m.State() != StateDisconnected {
		t.Fatalf("state = %s, want DISCONNECTED", m.State())
	}
	if m.Target() != "" {
		t.Errorf("stale target %q after disconnect", m.Target())
	}

	if actions := m.Poll(t0.Add(time.Second)); actions != nil {
		t.Errorf("rescan fired before the delay: %v", actions)
	}
	actions := m.Poll(t0.Add(2 * time.Second))
	if len(actions) != 1 || actions[0].Kind != ActionStartScan {
		t.Fatalf("poll actions = %v, want StartScan", actions)
	}
	if m.State() != StateScanning {
		t.Errorf("state = %s, want SCANNING", m.State())
	}
}

func TestReconnectCounted(t *testing.T) {
	m := subscribedMachine(t)
	m.Handle(Event{Kind: EventDisconnected}, t0)
	m.Poll(t0.Add(DefaultRescanDelay))

	m.Handle(Event{Kind: EventScanMatch, Addr: "aa:aa:aa:aa:aa:aa"}, t0)
	m.Handle(Event{Kind: EventConnected}, t0)
	m.Handle(Event{Kind: EventSubscribed}, t0)
	if m.Reconnects() != 1 {
		t.Errorf("reconnects = %d, want 1", m.Reconnects())
	}
}

func TestManualRescanFromSubscribed(t *testing.T) {
	m := subscribedMachine(t)

	actions := m.Rescan()
	if len(actions) != 2 || actions[0].Kind != ActionDisconnect || actions[1].Kind != ActionStartScan {
		t.Fatalf("rescan actions = %v, want [Disconnect StartScan]", actions)
	}
	if m.State() != StateScanning || m.Target() != "" {
		t.Errorf("state=%s target=%q after rescan", m.State(), m.Target())
	}
}

func TestManualRescanFromIdle(t *testing.T) {
	m := NewMachine(0)
	actions := m.Rescan()
	if len(actions) != 1 || actions[0].Kind != ActionStartScan {
		t.Fatalf("rescan actions = %v, want [StartScan]", actions)
	}
}

func TestManualRescanWhileScanningIsNoop(t *testing.T) {
	m := NewMachine(0)
	m.Start()
	if actions := m.Rescan(); actions != nil {
		t.Errorf("rescan while scanning produced %v", actions)
	}
}

func TestNotificationProducesReading(t *testing.T) {
	m := subscribedMachine(t)

	_, r := m.Handle(Event{Kind: EventNotification, Payload: []byte{0x00, 72}}, t0)
	if r == nil {
		t.Fatal("expected a reading")
	}
	if r.BPM != 72 || !r.When.Equal(t0) {
		t.Errorf("reading = %+v", r)
	}
}

func TestMalformedNotificationDropped(t *testing.T) {
	m := subscribedMachine(t)

	for _, payload := range [][]byte{nil, {}, {0x00}} {
		_, r := m.Handle(Event{Kind: EventNotification, Payload: payload}, t0)
		if r != nil {
			t.Errorf("payload % x produced reading %+v", payload, r)
		}
		if m.State() != StateSubscribed {
			t.Errorf("payload % x changed state to %s", payload, m.State())
		}
	}
}

func TestNotificationIgnoredOutsideSubscribed(t *testing.T) {
	m := NewMachine(0)
	m.Start()
	if _, r := m.Handle(Event{Kind: EventNotification, Payload: []byte{0, 72}}, t0); r != nil {
		t.Errorf("reading accepted while %s", m.State())
	}
}

func TestDecodeReading(t *testing.T) {
	if _, ok := DecodeReading([]byte{0x16}, t0); ok {
		t.Error("1-byte payload accepted")
	}
	r, ok := DecodeReading([]byte{0x16, 65, 0x12, 0x34}, t0)
	if !ok || r.BPM != 65 {
		t.Errorf("got (%+v,%v), want BPM 65", r, ok)
	}
}
