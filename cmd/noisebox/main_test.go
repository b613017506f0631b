package main

import (
	"encoding/binary"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/mwhite/noisebox/internal/audio"
	"github.com/mwhite/noisebox/internal/buttons"
	"github.com/mwhite/noisebox/internal/clock"
	"github.com/mwhite/noisebox/internal/mqtt"
	"github.com/mwhite/noisebox/internal/playback"
	"github.com/mwhite/noisebox/internal/readlog"
	"github.com/mwhite/noisebox/internal/schedule"
	"github.com/mwhite/noisebox/internal/sensorlink"
	"github.com/mwhite/noisebox/internal/status"
	"github.com/mwhite/noisebox/internal/volume"
)

// wavFile builds a canonical 44-byte header followed by payload bytes.
func wavFile(payload []byte) []byte {
	hdr := make([]byte, 44)
	copy(hdr[0:4], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:], uint32(36+len(payload)))
	copy(hdr[8:12], "WAVE")
	copy(hdr[12:16], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:], 16)
	binary.LittleEndian.PutUint16(hdr[20:], 1)
	binary.LittleEndian.PutUint16(hdr[22:], 1)
	binary.LittleEndian.PutUint32(hdr[24:], 8000)
	binary.LittleEndian.PutUint16(hdr[34:], 16)
	copy(hdr[36:40], "data")
	binary.LittleEndian.PutUint32(hdr[40:], uint32(len(payload)))
	return append(hdr, payload...)
}

// harness wires a loop entirely out of fakes.
type harness struct {
	loop      *loop
	input     *buttons.FakeInput
	sink      *audio.FakeSink
	transport *sensorlink.FakeTransport
	publisher *mqtt.FakePublisher
	tracker   *status.Tracker
	logger    *readlog.Logger
}

func newHarness(t *testing.T, sched *schedule.Schedule) *harness {
	t.Helper()
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "loop.wav", wavFile(make([]byte, 256)), 0o644); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	engine, err := playback.Open(fs, "loop.wav", 16)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	logger, err := readlog.Open(fs, "heartrate.csv")
	if err != nil {
		t.Fatalf("readlog.Open: %v", err)
	}

	clk := clock.New(clock.NewFakeSyncer(clock.SyncResult{Time: time.Now()}), time.UTC, time.Millisecond)
	clk.WaitInitial(func(time.Duration) {})

	h := &harness{
		input:     buttons.NewFakeInput(nil),
		sink:      audio.NewFakeSink(),
		transport: sensorlink.NewFakeTransport(),
		publisher: mqtt.NewFakePublisher(),
		tracker:   status.NewTracker(time.Now(), status.Config{Broker: "tcp://test:1883"}),
		logger:    logger,
	}
	h.loop = &loop{
		input:       h.input,
		engine:      engine,
		sink:        h.sink,
		override:    volume.NewOverride(40, 10),
		resolver:    volume.NewResolver(sched),
		machine:     sensorlink.NewMachine(0),
		transport:   h.transport,
		linkEvents:  make(chan sensorlink.Event, 32),
		clock:       clk,
		logger:      logger,
		publisher:   h.publisher,
		mqttStatus:  h.publisher,
		tracker:     h.tracker,
		playing:     true,
		speaker:     true,
		rescanEvery: time.Hour,
	}
	return h
}

// runLoop drives the loop with nTicks ticks, then the given signal, and
// waits for run to return.
func (h *harness) runLoop(t *testing.T, nTicks int, signal os.Signal) {
	t.Helper()
	tick := make(chan time.Time)
	sig := make(chan os.Signal, 1)

	errCh := make(chan error, 1)
	go func() {
		errCh <- h.loop.run(tick, sig)
	}()

	for i := 0; i < nTicks; i++ {
		tick <- time.Time{}
	}
	sig <- signal

	if err := <-errCh; err != nil {
		t.Fatalf("run returned error: %v", err)
	}
}

func TestLoopEmitsAudioAtManualVolume(t *testing.T) {
	h := newHarness(t, nil)

	h.runLoop(t, 3, syscall.SIGTERM)

	if len(h.sink.Chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(h.sink.Chunks))
	}
	if h.sink.Volume() != 40 {
		t.Errorf("volume = %d, want 40", h.sink.Volume())
	}
	snap := h.tracker.Snapshot()
	if !snap.Playing || snap.EffectiveVolume != 40 || snap.ManualVolume != 40 {
		t.Errorf("snapshot = playing=%v eff=%d manual=%d", snap.Playing, snap.EffectiveVolume, snap.ManualVolume)
	}
}

func TestLoopScheduledVolumeWins(t *testing.T) {
	// One range covering the whole day so the test does not depend on
	// the wall clock.
	sched := schedule.New([]schedule.Range{{Start: 0, End: 1440, Volume: 90}})
	h := newHarness(t, sched)

	h.runLoop(t, 2, syscall.SIGTERM)

	if h.sink.Volume() != 90 {
		t.Errorf("volume = %d, want scheduled 90", h.sink.Volume())
	}
	snap := h.tracker.Snapshot()
	if snap.ScheduledVolume != 90 {
		t.Errorf("scheduled = %d, want 90", snap.ScheduledVolume)
	}
	// The first tick crosses from the unset state into the range.
	if snap.Counts.Transitions != 1 {
		t.Errorf("transitions = %d, want 1", snap.Counts.Transitions)
	}
}

func TestLoopToggleEdgePausesEmission(t *testing.T) {
	h := newHarness(t, nil)
	h.input.Push(buttons.EdgePlayToggle) // pause on the first tick
	h.input.Push()                       // second tick: still paused
	h.input.Push(buttons.EdgePlayToggle) // resume on the third tick

	h.runLoop(t, 3, syscall.SIGTERM)

	// Ticks 1 and 2 are silent, tick 3 emits again at the restored level.
	if len(h.sink.Chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(h.sink.Chunks))
	}
	if h.sink.Volume() != 40 {
		t.Errorf("restored volume = %d, want 40", h.sink.Volume())
	}
}

func TestLoopVolumeEdgesStepManualLevel(t *testing.T) {
	h := newHarness(t, nil)
	h.input.Push(buttons.EdgeVolumeUp)
	h.input.Push(buttons.EdgeVolumeUp)
	h.input.Push(buttons.EdgeVolumeDown)

	h.runLoop(t, 3, syscall.SIGTERM)

	if got := h.tracker.Snapshot().ManualVolume; got != 50 {
		t.Errorf("manual volume = %d, want 50", got)
	}
	// Each tick emits at the level already adjusted by that tick's edge.
	if want := []uint8{50, 60, 50}; len(h.sink.Volumes) != 3 ||
		h.sink.Volumes[0] != want[0] || h.sink.Volumes[1] != want[1] || h.sink.Volumes[2] != want[2] {
		t.Errorf("volumes = %v, want %v", h.sink.Volumes, want)
	}
}

func TestLoopSensorReadingLoggedAndPublished(t *testing.T) {
	h := newHarness(t, nil)
	l := h.loop

	l.execute(l.machine.Start())
	l.handleLinkEvent(sensorlink.Event{Kind: sensorlink.EventScanMatch, Addr: "AA:BB"})
	l.handleLinkEvent(sensorlink.Event{Kind: sensorlink.EventConnected})
	l.handleLinkEvent(sensorlink.Event{Kind: sensorlink.EventSubscribed})
	l.handleLinkEvent(sensorlink.Event{Kind: sensorlink.EventNotification, Payload: []byte{0x00, 72}})

	want := []sensorlink.ActionKind{
		sensorlink.ActionStartScan,
		sensorlink.ActionStopScan,
		sensorlink.ActionConnect,
		sensorlink.ActionSubscribe,
	}
	got := h.transport.Kinds()
	if len(got) != len(want) {
		t.Fatalf("actions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("action %d = %v, want %v", i, got[i], want[i])
		}
	}

	if h.logger.Count() != 1 {
		t.Errorf("logged readings = %d, want 1", h.logger.Count())
	}
	if len(h.publisher.Readings) != 1 || h.publisher.Readings[0].BPM != 72 {
		t.Errorf("published readings = %+v", h.publisher.Readings)
	}
	if got := h.tracker.Snapshot().LastBPM; got != 72 {
		t.Errorf("tracker LastBPM = %d, want 72", got)
	}

	// Reaching Subscribed publishes LINK_UP with the device address.
	if len(h.publisher.SystemEvents) != 1 || h.publisher.SystemEvents[0].Event != "LINK_UP" {
		t.Fatalf("system events = %+v", h.publisher.SystemEvents)
	}
	if h.publisher.SystemEvents[0].Reason != "AA:BB" {
		t.Errorf("LINK_UP reason = %q, want device address", h.publisher.SystemEvents[0].Reason)
	}
}

func TestLoopDisconnectPublishesLinkDown(t *testing.T) {
	h := newHarness(t, nil)
	l := h.loop

	l.execute(l.machine.Start())
	l.handleLinkEvent(sensorlink.Event{Kind: sensorlink.EventScanMatch, Addr: "AA:BB"})
	l.handleLinkEvent(sensorlink.Event{Kind: sensorlink.EventConnected})
	l.handleLinkEvent(sensorlink.Event{Kind: sensorlink.EventSubscribed})
	h.publisher.Reset()

	l.handleLinkEvent(sensorlink.Event{Kind: sensorlink.EventDisconnected})

	if len(h.publisher.SystemEvents) != 1 || h.publisher.SystemEvents[0].Event != "LINK_DOWN" {
		t.Errorf("system events = %+v, want one LINK_DOWN", h.publisher.SystemEvents)
	}
}

func TestLoopPeriodicRescanWhenIdle(t *testing.T) {
	h := newHarness(t, nil)
	l := h.loop

	// A failed connect drops the machine back to Idle.
	l.execute(l.machine.Start())
	l.handleLinkEvent(sensorlink.Event{Kind: sensorlink.EventScanMatch, Addr: "AA:BB"})
	l.handleLinkEvent(sensorlink.Event{Kind: sensorlink.EventLinkFailed})
	h.transport.Reset()

	l.lastRescan = l.clock.Now().Add(-2 * l.rescanEvery)
	l.handleTick()

	kinds := h.transport.Kinds()
	if len(kinds) != 1 || kinds[0] != sensorlink.ActionStartScan {
		t.Errorf("actions = %v, want one StartScan", kinds)
	}
}

func TestLoopShutdownPublishesSignalName(t *testing.T) {
	for _, tc := range []struct {
		sig  os.Signal
		want string
	}{
		{syscall.SIGTERM, "SIGTERM"},
		{syscall.SIGINT, "SIGINT"},
	} {
		h := newHarness(t, nil)

		h.runLoop(t, 1, tc.sig)

		n := len(h.publisher.SystemEvents)
		if n == 0 {
			t.Fatalf("%s: no system events", tc.want)
		}
		se := h.publisher.SystemEvents[n-1]
		if se.Event != "SHUTDOWN" || se.Reason != tc.want {
			t.Errorf("shutdown event = %+v, want SHUTDOWN/%s", se, tc.want)
		}
		if !se.Retained {
			t.Errorf("%s: SHUTDOWN should be retained", tc.want)
		}
	}
}

func TestLoopShutdownStopsScan(t *testing.T) {
	h := newHarness(t, nil)

	// run starts discovery; the shutdown while scanning must stop it.
	h.runLoop(t, 0, syscall.SIGTERM)

	kinds := h.transport.Kinds()
	if len(kinds) != 2 || kinds[0] != sensorlink.ActionStartScan || kinds[1] != sensorlink.ActionStopScan {
		t.Errorf("actions = %v, want [StartScan StopScan]", kinds)
	}
}

func TestLoopRunsWithoutTransportOrPublisher(t *testing.T) {
	h := newHarness(t, nil)
	h.loop.transport = nil
	h.loop.publisher = nil
	h.loop.mqttStatus = nil

	h.runLoop(t, 2, syscall.SIGTERM)

	if len(h.sink.Chunks) != 2 {
		t.Errorf("expected 2 chunks, got %d", len(h.sink.Chunks))
	}
}
