package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/Catchawink/blec/internal/adapter"
)

// WriteRecord captures one write issued against a mock peripheral.
type WriteRecord struct {
	UUID string
	Data []byte
	Type adapter.WriteType
}

// MockPeripheral implements adapter.Peripheral. State transitions are
// scripted by the test: Connect opens a notification channel,
// EmitNotification feeds it, DropLink simulates a peer-initiated
// disconnect (closing the stream and emitting the adapter event).
type MockPeripheral struct {
	adapter *MockAdapter

	mu        sync.Mutex
	addr      string
	name      string
	rssi      int
	hasRSSI   bool
	connected bool
	services  []adapter.Service
	notif     chan adapter.Notification

	reads      map[string][]byte
	writes     []WriteRecord
	subscribed map[string]bool

	// Error injection for peripheral calls.
	ConnectErr     error
	DiscoverErr    error
	IsConnectedErr error
}

func (p *MockPeripheral) Address() string {
	return p.addr
}

func (p *MockPeripheral) Name() string {
	return p.name
}

func (p *MockPeripheral) RSSI() (int, bool) {
	return p.rssi, p.hasRSSI
}

func (p *MockPeripheral) IsConnected() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.IsConnectedErr != nil {
		return false, p.IsConnectedErr
	}
	return p.connected, nil
}

func (p *MockPeripheral) Connect(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ConnectErr != nil {
		return p.ConnectErr
	}
	if p.connected {
		return nil
	}
	p.connected = true
	p.notif = make(chan adapter.Notification, 32)
	return nil
}

func (p *MockPeripheral) Disconnect() error {
	p.dropLocked()
	return nil
}

// DropLink simulates a peer-initiated link loss: the notification
// stream ends and the adapter emits a disconnect event.
func (p *MockPeripheral) DropLink() {
	p.dropLocked()
}

func (p *MockPeripheral) dropLocked() {
	p.mu.Lock()
	if !p.connected {
		p.mu.Unlock()
		return
	}
	p.connected = false
	notif := p.notif
	p.notif = nil
	a := p.adapter
	addr := p.addr
	p.mu.Unlock()

	if notif != nil {
		close(notif)
	}
	if a != nil {
		a.EmitEvent(adapter.Event{Type: adapter.EventDeviceDisconnected, Address: addr})
	}
}

func (p *MockPeripheral) DiscoverServices(_ context.Context) ([]adapter.Service, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.DiscoverErr != nil {
		return nil, p.DiscoverErr
	}
	if !p.connected {
		return nil, errors.New("peripheral not connected")
	}
	return p.services, nil
}

func (p *MockPeripheral) Read(_ context.Context, c adapter.Characteristic) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return nil, errors.New("peripheral not connected")
	}
	value, ok := p.reads[c.UUID()]
	if !ok {
		return nil, nil
	}
	return value, nil
}

func (p *MockPeripheral) Write(_ context.Context, c adapter.Characteristic, data []byte, wt adapter.WriteType) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return errors.New("peripheral not connected")
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	p.writes = append(p.writes, WriteRecord{UUID: c.UUID(), Data: buf, Type: wt})
	return nil
}

func (p *MockPeripheral) Subscribe(_ context.Context, c adapter.Characteristic) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return errors.New("peripheral not connected")
	}
	p.subscribed[c.UUID()] = true
	return nil
}

func (p *MockPeripheral) Notifications(_ context.Context) (<-chan adapter.Notification, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.notif == nil {
		return nil, errors.New("peripheral not connected")
	}
	return p.notif, nil
}

// EmitNotification pushes a value into the notification stream.
func (p *MockPeripheral) EmitNotification(uuid string, value []byte) {
	p.mu.Lock()
	notif := p.notif
	p.mu.Unlock()
	if notif != nil {
		notif <- adapter.Notification{UUID: adapter.NormalizeUUID(uuid), Value: value}
	}
}

// Writes returns a snapshot of captured writes.
func (p *MockPeripheral) Writes() []WriteRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	writes := make([]WriteRecord, len(p.writes))
	copy(writes, p.writes)
	return writes
}

// Subscribed reports whether notifications were enabled for uuid.
func (p *MockPeripheral) Subscribed(uuid string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.subscribed[adapter.NormalizeUUID(uuid)]
}

// mockService implements adapter.Service.
type mockService struct {
	uuid            string
	characteristics []adapter.Characteristic
}

func (s *mockService) UUID() string {
	return s.uuid
}

func (s *mockService) Characteristics() []adapter.Characteristic {
	return s.characteristics
}

// mockCharacteristic implements adapter.Characteristic.
type mockCharacteristic struct {
	uuid string
}

func (c *mockCharacteristic) UUID() string {
	return c.uuid
}

// MockPeripheralBuilder composes a MockPeripheral fluently:
//
//	p := testutils.NewPeripheralBuilder("aa:bb:cc:dd:ee:01").
//	    WithName("HeartRate").
//	    WithRSSI(-60).
//	    WithService("180d", "2a37", "2a38").
//	    Build()
type MockPeripheralBuilder struct {
	p *MockPeripheral
}

func NewPeripheralBuilder(addr string) *MockPeripheralBuilder {
	return &MockPeripheralBuilder{
		p: &MockPeripheral{
			addr:       adapter.NormalizeAddress(addr),
			reads:      make(map[string][]byte),
			subscribed: make(map[string]bool),
		},
	}
}

func (b *MockPeripheralBuilder) WithName(name string) *MockPeripheralBuilder {
	b.p.name = name
	return b
}

func (b *MockPeripheralBuilder) WithRSSI(rssi int) *MockPeripheralBuilder {
	b.p.rssi = rssi
	b.p.hasRSSI = true
	return b
}

// WithService adds a GATT service with the given characteristics.
func (b *MockPeripheralBuilder) WithService(serviceUUID string, charUUIDs ...string) *MockPeripheralBuilder {
	svc := &mockService{uuid: adapter.NormalizeUUID(serviceUUID)}
	for _, uuid := range charUUIDs {
		svc.characteristics = append(svc.characteristics, &mockCharacteristic{uuid: adapter.NormalizeUUID(uuid)})
	}
	b.p.services = append(b.p.services, svc)
	return b
}

// WithReadValue sets the value returned by reads of the characteristic.
func (b *MockPeripheralBuilder) WithReadValue(charUUID string, value []byte) *MockPeripheralBuilder {
	b.p.reads[adapter.NormalizeUUID(charUUID)] = value
	return b
}

func (b *MockPeripheralBuilder) Build() *MockPeripheral {
	return b.p
}
