package blec

import (
	"sort"

	"github.com/Catchawink/blec/internal/adapter"
)

// Device is the application-facing projection of a peripheral. It is
// serializable for foreign callers and sortable for stable UI listings.
type Device struct {
	// Address is the canonical string form of the peripheral address.
	Address string `json:"address"`
	// Name is the advertised local name, possibly empty.
	Name string `json:"name"`
	// RSSI is the last observed signal strength, nil if unknown.
	RSSI *int `json:"rssi,omitempty"`
	// Connected reports the transport-level link state at projection time.
	Connected bool `json:"connected"`
}

// deviceFromPeripheral projects a peripheral handle into a Device.
func deviceFromPeripheral(p adapter.Peripheral) (Device, error) {
	connected, err := p.IsConnected()
	if err != nil {
		return Device{}, &AdapterError{Op: "is_connected", Err: err}
	}

	d := Device{
		Address:   p.Address(),
		Name:      p.Name(),
		Connected: connected,
	}
	if rssi, ok := p.RSSI(); ok {
		d.RSSI = &rssi
	}
	return d, nil
}

// SortDevices sorts devices ascending by address.
func SortDevices(devices []Device) {
	sort.Slice(devices, func(i, j int) bool {
		return devices[i].Address < devices[j].Address
	})
}
