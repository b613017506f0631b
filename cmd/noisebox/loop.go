package main

import (
	"fmt"
	"log"
	"os"
	"syscall"
	"time"

	"github.com/mwhite/noisebox/internal/audio"
	"github.com/mwhite/noisebox/internal/buttons"
	"github.com/mwhite/noisebox/internal/clock"
	"github.com/mwhite/noisebox/internal/mqtt"
	"github.com/mwhite/noisebox/internal/playback"
	"github.com/mwhite/noisebox/internal/readlog"
	"github.com/mwhite/noisebox/internal/sensorlink"
	"github.com/mwhite/noisebox/internal/status"
	"github.com/mwhite/noisebox/internal/volume"
)

// loop is the cooperative control loop. It is the single consumer of all
// shared state: transport callbacks only post events onto linkEvents, and
// every mutation of the override, resolver, machine, reading log, and audio
// cursor happens here.
type loop struct {
	input      buttons.Input
	engine     *playback.Engine
	sink       audio.Sink
	override   *volume.Override
	resolver   *volume.Resolver
	machine    *sensorlink.Machine
	transport  sensorlink.Transport // nil when the radio is disabled
	linkEvents <-chan sensorlink.Event
	clock      *clock.Supervisor
	logger     *readlog.Logger
	publisher  mqtt.Publisher // nil when telemetry is disabled
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker

	playing     bool
	speaker     bool
	rescanEvery time.Duration
	lastRescan  time.Time
	counts      status.Counts
}

// run drives the loop until a shutdown signal arrives. Per tick, in order:
// button edges, volume resolution, clock resync latch, one playback chunk,
// link timers, status. Link events are handled as they arrive.
func (l *loop) run(tick <-chan time.Time, sig <-chan os.Signal) error {
	if l.transport != nil {
		l.lastRescan = l.clock.Now()
		l.execute(l.machine.Start())
	}

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			l.shutdown(s)
			return nil

		case ev := <-l.linkEvents:
			l.handleLinkEvent(ev)

		case <-tick:
			l.handleTick()
		}
	}
}

// handleTick performs one control tick.
func (l *loop) handleTick() {
	now := l.clock.Now()

	for _, e := range l.input.Poll() {
		var c volume.Change
		switch e {
		case buttons.EdgeVolumeDown:
			c = l.override.Decrease()
		case buttons.EdgePlayToggle:
			c = l.override.Toggle()
		case buttons.EdgeVolumeUp:
			c = l.override.Increase()
		default:
			continue
		}
		log.Printf("button %s: %s manual=%d saved=%d", e, c.Kind, c.Manual, c.Saved)
	}

	d := l.resolver.Resolve(now, l.override.Manual(), l.playing, l.speaker)
	if d.Transition != nil {
		l.counts.Transitions++
		if d.Transition.Scheduled >= 0 {
			log.Printf("schedule: volume %d now in effect%s", d.Transition.Scheduled, nextChangeSuffix(d.Transition))
		} else {
			log.Printf("schedule: no range applies, manual volume %d%s", l.override.Manual(), nextChangeSuffix(d.Transition))
		}
	}

	// One resync per stop episode keeps the clock fresh during quiet
	// periods without syncing every tick.
	if l.clock.NotePlaying(d.ShouldPlay) {
		log.Printf("idle: requesting clock resync")
		go func() {
			if err := l.clock.Resync(); err != nil {
				log.Printf("resync failed: %v", err)
			}
		}()
	}

	if err := l.engine.Tick(l.sink, d.ShouldPlay, d.Effective); err != nil {
		log.Printf("playback error: %v", err)
	}

	if l.transport != nil {
		l.execute(l.machine.Poll(now))
		if l.machine.State() == sensorlink.StateIdle && now.Sub(l.lastRescan) >= l.rescanEvery {
			log.Printf("link idle: periodic rescan")
			l.lastRescan = now
			l.execute(l.machine.Rescan())
		}
	}

	l.updateStatus(d)
}

// handleLinkEvent feeds one transport event through the state machine and
// acts on the results.
func (l *loop) handleLinkEvent(ev sensorlink.Event) {
	prev := l.machine.State()
	actions, reading := l.machine.Handle(ev, l.clock.Now())
	l.execute(actions)

	if cur := l.machine.State(); cur != prev {
		log.Printf("link: %s -> %s", prev, cur)
		switch cur {
		case sensorlink.StateSubscribed:
			l.publishSystem("LINK_UP", l.machine.Target())
		case sensorlink.StateDisconnected:
			l.publishSystem("LINK_DOWN", "")
		case sensorlink.StateIdle:
			if ev.Err != nil {
				log.Printf("link failed: %v", ev.Err)
			}
		}
	}

	if reading == nil {
		return
	}
	l.counts.Readings++
	l.tracker.SetReading(reading.BPM, reading.When)
	if err := l.logger.Append(*reading); err != nil {
		log.Printf("reading log error: %v", err)
	}
	if l.publisher != nil {
		if err := l.publisher.PublishReading(*reading); err != nil {
			log.Printf("publish reading error: %v", err)
		}
	}
}

// execute hands actions to the transport.
func (l *loop) execute(actions []sensorlink.Action) {
	if l.transport == nil {
		return
	}
	for _, a := range actions {
		l.transport.Do(a)
	}
}

// updateStatus refreshes the tracker for HTTP consumers.
func (l *loop) updateStatus(d volume.Decision) {
	l.counts.Loops = l.engine.Loops()
	l.counts.Reconnects = l.machine.Reconnects()
	l.tracker.UpdateVolume(l.override.Manual(), d.Effective, d.Scheduled, d.ShouldPlay)
	l.tracker.SetLinkState(l.machine.State().String())
	l.tracker.SetClockState(l.clock.State().String())
	l.tracker.SetCounts(l.counts)
	if l.mqttStatus != nil {
		l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
	}
}

// shutdown tears down the link and publishes the final lifecycle event.
func (l *loop) shutdown(s os.Signal) {
	if l.transport != nil {
		switch l.machine.State() {
		case sensorlink.StateScanning:
			l.transport.Do(sensorlink.Action{Kind: sensorlink.ActionStopScan})
		case sensorlink.StateConnecting, sensorlink.StateConnected, sensorlink.StateSubscribed:
			l.transport.Do(sensorlink.Action{Kind: sensorlink.ActionDisconnect})
		}
	}
	signalName := "UNKNOWN"
	if s == syscall.SIGINT {
		signalName = "SIGINT"
	} else if s == syscall.SIGTERM {
		signalName = "SIGTERM"
	}
	if l.publisher != nil {
		event := mqtt.SystemEvent{
			Timestamp: l.clock.Now(),
			Event:     "SHUTDOWN",
			Reason:    signalName,
			Retained:  true,
		}
		if err := l.publisher.PublishSystem(event); err != nil {
			log.Printf("failed to publish shutdown event: %v", err)
		} else {
			log.Printf("published shutdown event")
		}
	}
}

// publishSystem sends one link lifecycle event when telemetry is enabled.
func (l *loop) publishSystem(event, reason string) {
	if l.publisher == nil {
		return
	}
	err := l.publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp: l.clock.Now(),
		Event:     event,
		Reason:    reason,
	})
	if err != nil {
		log.Printf("publish %s error: %v", event, err)
	}
}

// nextChangeSuffix renders the next-change fact of a transition.
func nextChangeSuffix(tr *volume.Transition) string {
	if !tr.HasNext {
		return ""
	}
	day := ""
	if tr.Tomorrow {
		day = " tomorrow"
	}
	return fmt.Sprintf(" (next change %02d:%02d%s)", tr.NextMinute/60, tr.NextMinute%60, day)
}
