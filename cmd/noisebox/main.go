// Command noisebox plays a looping audio stream at a schedule-driven volume
// while logging heart-rate readings from a wireless sensor.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"tinygo.org/x/bluetooth"

	"github.com/mwhite/noisebox/internal/audio"
	"github.com/mwhite/noisebox/internal/buttons"
	"github.com/mwhite/noisebox/internal/clock"
	"github.com/mwhite/noisebox/internal/config"
	"github.com/mwhite/noisebox/internal/mqtt"
	"github.com/mwhite/noisebox/internal/playback"
	"github.com/mwhite/noisebox/internal/readlog"
	"github.com/mwhite/noisebox/internal/schedule"
	"github.com/mwhite/noisebox/internal/sensorlink"
	"github.com/mwhite/noisebox/internal/status"
	"github.com/mwhite/noisebox/internal/volume"
	"github.com/mwhite/noisebox/internal/web"
)

func main() {
	tick := flag.Duration("tick", 20*time.Millisecond, "Control tick interval")
	chunk := flag.Int("chunk", playback.DefaultChunkSize, "Audio chunk size in bytes")
	audioPath := flag.String("audio", "/media/sd/loop.wav", "Audio file (canonical 44-byte WAV)")
	schedPath := flag.String("schedule", "/media/sd/schedule.txt", "Volume schedule file")
	credPath := flag.String("credentials", "", "Credentials file (ssid, then secret; empty to skip)")
	tzPath := flag.String("timezone", "/media/sd/timezone.txt", "Timezone rule file")
	logPath := flag.String("readings", "/media/sd/heartrate.csv", "Heart-rate reading log")
	initial := flag.Int("volume", 40, "Initial manual volume (0-255)")
	step := flag.Int("step", volume.DefaultStep, "Volume change per button press")
	speaker := flag.Bool("speaker", true, "Enable the speaker output")
	ntpServer := flag.String("ntp", clock.DefaultServer, "SNTP server")
	ble := flag.Bool("ble", true, "Enable the heart-rate sensor link")
	rescanDelay := flag.Duration("rescan-delay", sensorlink.DefaultRescanDelay, "Delay before rescanning after a disconnect")
	rescanEvery := flag.Duration("rescan-every", 30*time.Second, "Periodic rescan interval while the link is idle")
	broker := flag.String("broker", "", "MQTT broker address (empty to disable telemetry)")
	httpAddr := flag.String("http", ":8080", "HTTP status address (empty to disable)")
	pinDown := flag.Int("pin-down", buttons.DefaultPinDown, "BCM pin number for volume down")
	pinToggle := flag.Int("pin-toggle", buttons.DefaultPinToggle, "BCM pin number for play/pause")
	pinUp := flag.Int("pin-up", buttons.DefaultPinUp, "BCM pin number for volume up")
	printSchedule := flag.Bool("print-schedule", false, "Print the parsed schedule and exit")

	flag.Parse()

	if *initial < 0 || *initial > 255 {
		log.Fatalf("fatal: -volume %d out of range 0-255", *initial)
	}
	if *step < 1 || *step > 255 {
		log.Fatalf("fatal: -step %d out of range 1-255", *step)
	}

	if err := run(options{
		tick:          *tick,
		chunk:         *chunk,
		audioPath:     *audioPath,
		schedPath:     *schedPath,
		credPath:      *credPath,
		tzPath:        *tzPath,
		logPath:       *logPath,
		initial:       uint8(*initial),
		step:          uint8(*step),
		speaker:       *speaker,
		ntpServer:     *ntpServer,
		ble:           *ble,
		rescanDelay:   *rescanDelay,
		rescanEvery:   *rescanEvery,
		broker:        *broker,
		httpAddr:      *httpAddr,
		pinDown:       *pinDown,
		pinToggle:     *pinToggle,
		pinUp:         *pinUp,
		printSchedule: *printSchedule,
	}); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

type options struct {
	tick          time.Duration
	chunk         int
	audioPath     string
	schedPath     string
	credPath      string
	tzPath        string
	logPath       string
	initial       uint8
	step          uint8
	speaker       bool
	ntpServer     string
	ble           bool
	rescanDelay   time.Duration
	rescanEvery   time.Duration
	broker        string
	httpAddr      string
	pinDown       int
	pinToggle     int
	pinUp         int
	printSchedule bool
}

func run(opt options) error {
	fs := afero.NewOsFs()

	// Schedule: bad lines are skipped; a load with zero valid ranges
	// drops to manual-only mode, never a startup failure.
	sched, skipped, err := config.LoadSchedule(fs, opt.schedPath)
	if err != nil {
		log.Printf("schedule unavailable (%v): manual volume only", err)
		sched = nil
	} else {
		log.Printf("schedule loaded: %d ranges (%d lines skipped)", sched.Len(), skipped)
	}

	if opt.printSchedule {
		for _, r := range sched.Ranges() {
			fmt.Printf("%02d:%02d-%02d:%02d %d\n",
				r.Start/60, r.Start%60, r.End/60, r.End%60, r.Volume)
		}
		return nil
	}

	var ssid string
	if opt.credPath != "" {
		creds, err := config.LoadCredentials(fs, opt.credPath)
		if err != nil {
			return fmt.Errorf("load credentials: %w", err)
		}
		ssid = creds.SSID
		log.Printf("credentials loaded for network %q", ssid)
	}

	loc := config.LoadTimezone(fs, opt.tzPath)
	log.Printf("timezone: %s", loc)

	tracker := status.NewTracker(time.Now(), status.Config{
		TickMs:    opt.tick.Milliseconds(),
		ChunkSize: opt.chunk,
		AudioPath: opt.audioPath,
		Broker:    opt.broker,
		HTTPAddr:  opt.httpAddr,
		SSID:      ssid,
		NTPServer: opt.ntpServer,
	})
	if sched != nil {
		tracker.SetScheduleRanges(sched.Len())
	}

	// The status server starts before the blocking time sync so the
	// AWAITING_NETWORK state is observable from outside.
	if opt.httpAddr != "" {
		srv := web.New(opt.httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", opt.httpAddr)
	}

	// Initial sync blocks with no attempt cap: the device has no other
	// clock source and schedule decisions are wrong until it completes.
	clk := clock.New(clock.NewNTPSyncer(opt.ntpServer), loc, 2*time.Second)
	tracker.SetClockState(clk.State().String())
	log.Printf("waiting for initial time sync from %s", opt.ntpServer)
	clk.WaitInitial(time.Sleep)
	tracker.SetClockState(clk.State().String())
	log.Printf("clock synced: %s", clk.Now().Format(time.RFC3339))

	engine, err := playback.Open(fs, opt.audioPath, opt.chunk)
	if err != nil {
		return err
	}
	defer engine.Close()
	format := engine.Format()
	log.Printf("audio: %dch %dbit %dHz from %s", format.Channels, format.BitsPerSample, format.SampleRate, opt.audioPath)

	sink, err := audio.NewRealSink(format)
	if err != nil {
		return fmt.Errorf("open audio sink: %w", err)
	}
	defer sink.Close()

	logger, err := readlog.Open(fs, opt.logPath)
	if err != nil {
		return err
	}
	defer logger.Close()

	input, err := buttons.NewRealInput(opt.pinDown, opt.pinToggle, opt.pinUp)
	if err != nil {
		return fmt.Errorf("init buttons: %w", err)
	}
	defer input.Close()

	// Sensor link failures are never fatal: the device keeps playing
	// audio even when the radio is unusable.
	linkEvents := make(chan sensorlink.Event, 32)
	var transport sensorlink.Transport
	if opt.ble {
		t, err := sensorlink.NewBLETransport(bluetooth.DefaultAdapter, linkEvents)
		if err != nil {
			log.Printf("bluetooth unavailable (%v): sensor link disabled", err)
		} else {
			transport = t
			defer t.Close()
		}
	}

	var publisher mqtt.Publisher
	var mqttStatus mqtt.ConnectionStatus
	if opt.broker != "" {
		p := mqtt.NewRealPublisher(opt.broker)
		defer p.Close()
		publisher = p
		mqttStatus = p
		if err := p.PublishSystem(mqtt.SystemEvent{
			Timestamp: clk.Now(),
			Event:     "STARTUP",
			Retained:  true,
		}); err != nil {
			log.Printf("failed to publish startup event: %v", err)
		}
	}

	log.Printf("started: tick=%v chunk=%d speaker=%v ble=%v broker=%q",
		opt.tick, opt.chunk, opt.speaker, transport != nil, opt.broker)

	ticker := time.NewTicker(opt.tick)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	l := &loop{
		input:       input,
		engine:      engine,
		sink:        sink,
		override:    volume.NewOverride(opt.initial, opt.step),
		resolver:    volume.NewResolver(sched),
		machine:     sensorlink.NewMachine(opt.rescanDelay),
		transport:   transport,
		linkEvents:  linkEvents,
		clock:       clk,
		logger:      logger,
		publisher:   publisher,
		mqttStatus:  mqttStatus,
		tracker:     tracker,
		playing:     true,
		speaker:     opt.speaker,
		rescanEvery: opt.rescanEvery,
	}
	return l.run(ticker.C, sigCh)
}
