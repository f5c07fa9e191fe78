// Package testutils provides a mock BLE backend for session manager
// tests: a controllable adapter, scriptable peripherals and builders
// for composing GATT profiles. The mocks implement the interfaces in
// internal/adapter so suites can drive connects, notifications and
// link drops without hardware.
package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/Catchawink/blec/internal/adapter"
)

// MockAdapter implements adapter.Adapter. Peripherals are registered up
// front with AddPeripheral; scans simply expose them. Events can be
// injected with EmitEvent; peripherals emit their own disconnect
// events.
type MockAdapter struct {
	mu          sync.Mutex
	peripherals []*MockPeripheral
	events      chan adapter.Event
	scanning    bool

	// Error injection for adapter calls.
	StartScanErr error
	StopScanErr  error

	startCount int
	stopCount  int
}

func NewMockAdapter() *MockAdapter {
	return &MockAdapter{
		events: make(chan adapter.Event, 32),
	}
}

// AddPeripheral registers a peripheral the adapter will report.
func (a *MockAdapter) AddPeripheral(p *MockPeripheral) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p.adapter = a
	a.peripherals = append(a.peripherals, p)
}

func (a *MockAdapter) StartScan(_ context.Context, _ adapter.ScanFilter) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.StartScanErr != nil {
		return a.StartScanErr
	}
	if a.scanning {
		return errors.New("scan already in progress")
	}
	a.scanning = true
	a.startCount++
	return nil
}

func (a *MockAdapter) StopScan() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.StopScanErr != nil {
		return a.StopScanErr
	}
	a.scanning = false
	a.stopCount++
	return nil
}

func (a *MockAdapter) Peripherals() ([]adapter.Peripheral, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	result := make([]adapter.Peripheral, len(a.peripherals))
	for i, p := range a.peripherals {
		result[i] = p
	}
	return result, nil
}

func (a *MockAdapter) Events(_ context.Context) (<-chan adapter.Event, error) {
	return a.events, nil
}

// EmitEvent injects an adapter-level event.
func (a *MockAdapter) EmitEvent(ev adapter.Event) {
	a.events <- ev
}

// Scanning reports whether a scan is currently running.
func (a *MockAdapter) Scanning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.scanning
}

// RemovePeripheral forgets a peripheral, simulating it moving out of
// range before the next scan.
func (a *MockAdapter) RemovePeripheral(addr string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	addr = adapter.NormalizeAddress(addr)
	kept := a.peripherals[:0]
	for _, p := range a.peripherals {
		if p.Address() != addr {
			kept = append(kept, p)
		}
	}
	a.peripherals = kept
}

// StartCount returns how many scans were started.
func (a *MockAdapter) StartCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.startCount
}

// StopCount returns how many scans were stopped.
func (a *MockAdapter) StopCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stopCount
}
