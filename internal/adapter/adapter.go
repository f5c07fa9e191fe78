// Package adapter defines the backend-neutral capability set the session
// manager needs from a BLE central stack: adapter enumeration, scanning,
// peripheral handles, GATT access and the adapter event stream. Concrete
// backends live in subpackages (see goble).
package adapter

import "context"

// WriteType selects between acknowledged and unacknowledged GATT writes.
type WriteType int

const (
	// WriteWithResponse waits for the peer to acknowledge the write.
	WriteWithResponse WriteType = iota
	// WriteWithoutResponse returns as soon as the PDU is queued.
	WriteWithoutResponse
)

// EventType classifies adapter-level events.
type EventType int

const (
	EventDeviceDiscovered EventType = iota
	EventDeviceConnected
	EventDeviceDisconnected
)

func (t EventType) String() string {
	switch t {
	case EventDeviceDiscovered:
		return "discovered"
	case EventDeviceConnected:
		return "connected"
	case EventDeviceDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Event is a single adapter-level event. Address is the canonical string
// form of the peripheral the event refers to.
type Event struct {
	Type    EventType
	Address string
}

// Notification is one server-pushed value from a subscribed characteristic.
// UUID is normalized (lowercase, no dashes). Value is owned by the receiver.
type Notification struct {
	UUID  string
	Value []byte
}

// ScanFilter narrows the advertisements a scan reports. An empty filter
// reports everything.
type ScanFilter struct {
	Services []string
}

// Characteristic identifies a GATT characteristic on a connected
// peripheral. Handles are only meaningful while the connection that
// produced them is alive.
type Characteristic interface {
	UUID() string
}

// Service is a GATT service and the characteristics it contains.
type Service interface {
	UUID() string
	Characteristics() []Characteristic
}

// Peripheral is a handle to a remote BLE device in the peripheral role.
// Implementations must be safe for concurrent use.
type Peripheral interface {
	// Address returns the canonical string form of the peripheral address.
	Address() string
	// Name returns the advertised local name, possibly empty.
	Name() string
	// RSSI returns the last observed signal strength, if known.
	RSSI() (int, bool)

	// IsConnected reports the transport-level link state.
	IsConnected() (bool, error)
	Connect(ctx context.Context) error
	Disconnect() error

	// DiscoverServices runs GATT discovery and returns all services.
	DiscoverServices(ctx context.Context) ([]Service, error)

	Read(ctx context.Context, c Characteristic) ([]byte, error)
	Write(ctx context.Context, c Characteristic, data []byte, wt WriteType) error

	// Subscribe enables notifications for the characteristic. Values are
	// delivered through the channel returned by Notifications.
	Subscribe(ctx context.Context, c Characteristic) error

	// Notifications returns the peripheral's notification stream. The
	// channel is closed when the transport link drops.
	Notifications(ctx context.Context) (<-chan Notification, error)
}

// Adapter is a local BLE adapter in the central role.
type Adapter interface {
	StartScan(ctx context.Context, filter ScanFilter) error
	StopScan() error

	// Peripherals returns handles for every peripheral the adapter has
	// seen since the scan started.
	Peripherals() ([]Peripheral, error)

	// Events returns the adapter event stream. The stream is lazy: it is
	// created on first call and lives until ctx is cancelled.
	Events(ctx context.Context) (<-chan Event, error)
}
