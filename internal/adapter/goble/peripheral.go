package goble

import (
	"context"
	"errors"
	"fmt"
	"sync"

	ble "github.com/go-ble/ble"
	"github.com/sirupsen/logrus"

	"github.com/Catchawink/blec/internal/adapter"
	"github.com/Catchawink/blec/internal/groutine"
	"github.com/Catchawink/blec/internal/ringchan"
)

// peripheral implements adapter.Peripheral over a ble.Client. The
// handle is created from scan advertisements and becomes live after
// Connect.
type peripheral struct {
	parent *Adapter
	addr   string
	logger *logrus.Logger

	mu          sync.RWMutex
	name        string
	rssi        int
	hasRSSI     bool
	connectable bool
	client      ble.Client
	notif       *ringchan.RingChannel[adapter.Notification]
}

func newPeripheral(parent *Adapter, addr string) *peripheral {
	return &peripheral{
		parent: parent,
		addr:   addr,
		logger: parent.logger,
	}
}

// update refreshes advertised data from a new advertisement.
func (p *peripheral) update(adv ble.Advertisement) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if name := adv.LocalName(); name != "" {
		p.name = name
	}
	p.rssi = adv.RSSI()
	p.hasRSSI = true
	p.connectable = adv.Connectable()
}

func (p *peripheral) Address() string {
	return p.addr
}

func (p *peripheral) Name() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.name
}

func (p *peripheral) RSSI() (int, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.rssi, p.hasRSSI
}

func (p *peripheral) IsConnected() (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client != nil, nil
}

// Connect dials the peripheral and starts watching the link. Connecting
// an already connected handle is a no-op.
func (p *peripheral) Connect(ctx context.Context) error {
	p.mu.RLock()
	connected := p.client != nil
	p.mu.RUnlock()
	if connected {
		return nil
	}

	p.logger.WithField("address", p.addr).Info("Connecting to BLE peripheral...")
	client, err := p.parent.dev.Dial(ctx, ble.NewAddr(p.addr))
	if err != nil {
		return fmt.Errorf("failed to connect to %q: %w", p.addr, err)
	}

	p.mu.Lock()
	p.client = client
	p.notif = ringchan.New[adapter.Notification](defaultNotificationBuffer)
	p.mu.Unlock()

	p.watchLink(client)
	p.parent.emit(adapter.Event{Type: adapter.EventDeviceConnected, Address: p.addr})
	return nil
}

// watchLink waits for the transport to drop and runs linkDown. Not all
// go-ble clients expose a Disconnected channel; without one, only
// explicit Disconnect detects the drop.
func (p *peripheral) watchLink(client ble.Client) {
	dc, ok := client.(interface{ Disconnected() <-chan struct{} })
	if !ok {
		p.logger.Debug("Client does not expose a Disconnected channel")
		return
	}
	groutine.Go(context.Background(), "goble-link-watch", func(context.Context) {
		<-dc.Disconnected()
		p.logger.WithField("address", p.addr).Info("BLE link dropped")
		p.linkDown()
	})
}

// linkDown clears the live client, terminates the notification stream
// and emits a Disconnected event. Idempotent.
func (p *peripheral) linkDown() {
	p.mu.Lock()
	if p.client == nil {
		p.mu.Unlock()
		return
	}
	notif := p.notif
	p.client = nil
	p.notif = nil
	p.mu.Unlock()

	if notif != nil {
		notif.Close()
	}
	p.parent.emit(adapter.Event{Type: adapter.EventDeviceDisconnected, Address: p.addr})
}

func (p *peripheral) Disconnect() error {
	p.mu.RLock()
	client := p.client
	p.mu.RUnlock()
	if client == nil {
		return nil
	}

	err := client.CancelConnection()
	p.linkDown()
	return err
}

func (p *peripheral) liveClient() (ble.Client, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.client == nil {
		return nil, errors.New("peripheral not connected")
	}
	return p.client, nil
}

// DiscoverServices runs GATT profile discovery.
func (p *peripheral) DiscoverServices(_ context.Context) ([]adapter.Service, error) {
	client, err := p.liveClient()
	if err != nil {
		return nil, err
	}

	profile, err := client.DiscoverProfile(true)
	if err != nil {
		return nil, fmt.Errorf("failed to discover profile: %w", err)
	}

	services := make([]adapter.Service, 0, len(profile.Services))
	for _, svc := range profile.Services {
		s := &bleService{uuid: adapter.NormalizeUUID(svc.UUID.String())}
		for _, char := range svc.Characteristics {
			s.characteristics = append(s.characteristics, &bleCharacteristic{
				uuid: adapter.NormalizeUUID(char.UUID.String()),
				char: char,
			})
		}
		services = append(services, s)
	}
	return services, nil
}

func (p *peripheral) Read(_ context.Context, c adapter.Characteristic) ([]byte, error) {
	client, err := p.liveClient()
	if err != nil {
		return nil, err
	}
	bc, err := asBLECharacteristic(c)
	if err != nil {
		return nil, err
	}

	data, err := client.ReadCharacteristic(bc.char)
	if err != nil {
		return nil, fmt.Errorf("failed to read characteristic %q: %w", c.UUID(), err)
	}
	return data, nil
}

func (p *peripheral) Write(_ context.Context, c adapter.Characteristic, data []byte, wt adapter.WriteType) error {
	client, err := p.liveClient()
	if err != nil {
		return err
	}
	bc, err := asBLECharacteristic(c)
	if err != nil {
		return err
	}

	noRsp := wt == adapter.WriteWithoutResponse
	if err := client.WriteCharacteristic(bc.char, data, noRsp); err != nil {
		return fmt.Errorf("failed to write characteristic %q: %w", c.UUID(), err)
	}
	return nil
}

// Subscribe enables notifications for the characteristic and forwards
// each value into the peripheral's notification stream.
func (p *peripheral) Subscribe(_ context.Context, c adapter.Characteristic) error {
	client, err := p.liveClient()
	if err != nil {
		return err
	}
	bc, err := asBLECharacteristic(c)
	if err != nil {
		return err
	}

	uuid := bc.uuid
	err = client.Subscribe(bc.char, false, func(data []byte) {
		p.mu.RLock()
		notif := p.notif
		p.mu.RUnlock()
		if notif == nil {
			return
		}
		value := make([]byte, len(data))
		copy(value, data)
		notif.Send(adapter.Notification{UUID: uuid, Value: value})
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to characteristic %q: %w", uuid, err)
	}
	return nil
}

// Notifications returns the stream created by Connect. The channel
// closes when the link drops.
func (p *peripheral) Notifications(_ context.Context) (<-chan adapter.Notification, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.notif == nil {
		return nil, errors.New("peripheral not connected")
	}
	return p.notif.C(), nil
}

// bleService implements adapter.Service.
type bleService struct {
	uuid            string
	characteristics []adapter.Characteristic
}

func (s *bleService) UUID() string {
	return s.uuid
}

func (s *bleService) Characteristics() []adapter.Characteristic {
	return s.characteristics
}

// bleCharacteristic implements adapter.Characteristic, carrying the
// live go-ble handle needed for reads, writes and subscriptions.
type bleCharacteristic struct {
	uuid string
	char *ble.Characteristic
}

func (c *bleCharacteristic) UUID() string {
	return c.uuid
}

func asBLECharacteristic(c adapter.Characteristic) (*bleCharacteristic, error) {
	bc, ok := c.(*bleCharacteristic)
	if !ok {
		return nil, fmt.Errorf("characteristic %q does not belong to this backend", c.UUID())
	}
	return bc, nil
}
