package sensorlink

import (
	"fmt"
	"sync"

	"tinygo.org/x/bluetooth"
)

// Standard Bluetooth heart-rate service (0x180D) and measurement
// characteristic (0x2A37).
var (
	hrService     = bluetooth.ServiceUUIDHeartRate
	hrMeasurement = bluetooth.CharacteristicUUIDHeartRateMeasurement
)

// Transport executes link actions. Results come back asynchronously as
// events on the channel the transport was built with.
type Transport interface {
	Do(a Action)
	Close() error
}

// BLETransport drives a real Bluetooth adapter. Adapter callbacks run on
// the stack's own goroutines and only post events; they never touch machine
// state or storage.
type BLETransport struct {
	adapter *bluetooth.Adapter
	events  chan<- Event

	mu         sync.Mutex
	target     bluetooth.Address
	haveTarget bool
	dev        bluetooth.Device
	live       bool
}

// NewBLETransport enables the adapter and installs the disconnect watcher.
// Events fit in the channel or are dropped; the control loop drains it
// every tick so drops only happen if the loop has stalled.
func NewBLETransport(adapter *bluetooth.Adapter, events chan<- Event) (*BLETransport, error) {
	if err := adapter.Enable(); err != nil {
		return nil, fmt.Errorf("enable bluetooth: %w", err)
	}
	t := &BLETransport{adapter: adapter, events: events}
	adapter.SetConnectHandler(func(dev bluetooth.Device, connected bool) {
		if !connected {
			t.mu.Lock()
			t.live = false
			t.mu.Unlock()
			t.post(Event{Kind: EventDisconnected})
		}
	})
	return t, nil
}

// Do executes one action. Blocking work runs on its own goroutine; the
// caller (the control loop) never waits on the radio.
func (t *BLETransport) Do(a Action) {
	switch a.Kind {
	case ActionStartScan:
		go t.scan()
	case ActionStopScan:
		t.adapter.StopScan()
	case ActionConnect:
		go t.connect()
	case ActionSubscribe:
		go t.subscribe()
	case ActionDisconnect:
		t.disconnect()
	}
}

// scan runs until StopScan. Only the first advertisement carrying the
// heart-rate service is latched and reported; the connect that follows must
// dial the device the machine committed to, even if more sensors advertise
// before StopScan takes effect.
func (t *BLETransport) scan() {
	t.mu.Lock()
	t.haveTarget = false
	t.mu.Unlock()

	err := t.adapter.Scan(func(adapter *bluetooth.Adapter, found bluetooth.ScanResult) {
		if !found.HasServiceUUID(hrService) {
			return
		}
		t.noteMatch(found.Address)
	})
	if err != nil {
		t.post(Event{Kind: EventLinkFailed, Err: fmt.Errorf("scan: %w", err)})
	}
}

// noteMatch latches the first match of a scan episode and posts the event.
// Later matches are dropped so target stays the address the machine saw.
func (t *BLETransport) noteMatch(addr bluetooth.Address) {
	t.mu.Lock()
	if t.haveTarget {
		t.mu.Unlock()
		return
	}
	t.haveTarget = true
	t.target = addr
	t.mu.Unlock()
	t.post(Event{Kind: EventScanMatch, Addr: addr.String()})
}

func (t *BLETransport) connect() {
	t.mu.Lock()
	addr := t.target
	t.mu.Unlock()

	// Connection timeout is the transport's own; none is added here.
	dev, err := t.adapter.Connect(addr, bluetooth.ConnectionParams{})
	if err != nil {
		t.post(Event{Kind: EventLinkFailed, Err: fmt.Errorf("connect %s: %w", addr, err)})
		return
	}
	t.mu.Lock()
	t.dev = dev
	t.live = true
	t.mu.Unlock()
	t.post(Event{Kind: EventConnected})
}

// subscribe discovers the measurement characteristic and enables
// notifications, which writes the enable value to the notification
// configuration descriptor.
func (t *BLETransport) subscribe() {
	t.mu.Lock()
	dev := t.dev
	t.mu.Unlock()

	char, err := deviceCharacteristic(&dev, hrService, hrMeasurement)
	if err != nil {
		t.post(Event{Kind: EventLinkFailed, Err: err})
		return
	}
	err = char.EnableNotifications(func(buf []byte) {
		payload := append([]byte(nil), buf...)
		t.post(Event{Kind: EventNotification, Payload: payload})
	})
	if err != nil {
		t.post(Event{Kind: EventLinkFailed, Err: fmt.Errorf("enable notifications: %w", err)})
		return
	}
	t.post(Event{Kind: EventSubscribed})
}

func (t *BLETransport) disconnect() {
	t.mu.Lock()
	dev := t.dev
	live := t.live
	t.live = false
	t.haveTarget = false
	t.mu.Unlock()
	if live {
		dev.Disconnect()
	}
}

// Close tears down any live connection.
func (t *BLETransport) Close() error {
	t.adapter.StopScan()
	t.disconnect()
	return nil
}

// post delivers an event without blocking the adapter's callback context.
func (t *BLETransport) post(ev Event) {
	select {
	case t.events <- ev:
	default:
	}
}

// deviceCharacteristic finds one characteristic of one service on the
// connected device.
func deviceCharacteristic(dev *bluetooth.Device, srvID, charID bluetooth.UUID) (bluetooth.DeviceCharacteristic, error) {
	srvs, err := dev.DiscoverServices([]bluetooth.UUID{srvID})
	if err != nil {
		return bluetooth.DeviceCharacteristic{}, fmt.Errorf("discover service %s: %w", srvID, err)
	}
	for _, s := range srvs {
		chars, err := s.DiscoverCharacteristics([]bluetooth.UUID{charID})
		if err != nil {
			return bluetooth.DeviceCharacteristic{}, fmt.Errorf("discover characteristic %s: %w", charID, err)
		}
		if len(chars) == 0 {
			break
		}
		return chars[0], nil
	}
	return bluetooth.DeviceCharacteristic{}, fmt.Errorf("characteristic %s not found", charID)
}
