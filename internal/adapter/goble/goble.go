// Package goble implements the adapter interfaces on top of
// github.com/go-ble/ble. It adapts go-ble's callback-driven scan model
// to the enumerate-and-poll model the session manager expects:
// advertisements are collected into a peripheral table that
// Peripherals() snapshots.
package goble

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cornelk/hashmap"
	ble "github.com/go-ble/ble"
	"github.com/sirupsen/logrus"

	"github.com/Catchawink/blec/internal/adapter"
	"github.com/Catchawink/blec/internal/groutine"
	"github.com/Catchawink/blec/internal/ringchan"
)

const (
	// defaultNotificationBuffer is the buffer size for per-peripheral
	// notification channels.
	defaultNotificationBuffer = 128

	// defaultEventBuffer is the buffer size for the adapter event stream.
	defaultEventBuffer = 64
)

// DeviceFactory creates ble.Device instances (can be overridden in tests).
var DeviceFactory = newDefaultDevice

// Enumerate returns the BLE adapters available on this host. go-ble
// exposes a single HCI/CoreBluetooth device, so the result has at most
// one element.
func Enumerate(logger *logrus.Logger) ([]adapter.Adapter, error) {
	dev, err := DeviceFactory()
	if err != nil {
		return nil, fmt.Errorf("failed to create BLE device: %w", err)
	}
	return []adapter.Adapter{New(dev, logger)}, nil
}

// Adapter implements adapter.Adapter over a ble.Device.
type Adapter struct {
	dev    ble.Device
	logger *logrus.Logger

	peripherals *hashmap.Map[string, *peripheral]
	events      *ringchan.RingChannel[adapter.Event]

	mu         sync.Mutex
	scanCancel context.CancelFunc
	scanDone   chan struct{}
}

// New wraps a ble.Device in an Adapter.
func New(dev ble.Device, logger *logrus.Logger) *Adapter {
	if logger == nil {
		logger = logrus.New()
	}
	return &Adapter{
		dev:         dev,
		logger:      logger,
		peripherals: hashmap.New[string, *peripheral](),
		events:      ringchan.New[adapter.Event](defaultEventBuffer),
	}
}

// StartScan begins collecting advertisements. The scan runs on a
// background goroutine until StopScan or ctx cancellation.
func (a *Adapter) StartScan(ctx context.Context, filter adapter.ScanFilter) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.scanCancel != nil {
		return errors.New("scan already in progress")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	scanCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	a.scanCancel = cancel
	a.scanDone = done

	a.logger.Debug("Starting BLE scan")

	groutine.Go(scanCtx, "goble-scan", func(ctx context.Context) {
		defer close(done)
		err := a.dev.Scan(ctx, true, func(adv ble.Advertisement) {
			a.handleAdvertisement(adv, filter)
		})
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			a.logger.WithError(err).Warn("BLE scan terminated with error")
		}
	})

	return nil
}

// StopScan cancels a running scan and waits for the scan goroutine to
// exit. Stopping when no scan is running is a no-op.
func (a *Adapter) StopScan() error {
	a.mu.Lock()
	cancel := a.scanCancel
	done := a.scanDone
	a.scanCancel = nil
	a.scanDone = nil
	a.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	a.logger.Debug("BLE scan stopped")
	return nil
}

// Peripherals returns handles for every peripheral seen so far.
func (a *Adapter) Peripherals() ([]adapter.Peripheral, error) {
	result := make([]adapter.Peripheral, 0, a.peripherals.Len())
	a.peripherals.Range(func(_ string, p *peripheral) bool {
		result = append(result, p)
		return true
	})
	return result, nil
}

// Events returns the adapter event stream. The stream is closed when
// ctx is cancelled.
func (a *Adapter) Events(ctx context.Context) (<-chan adapter.Event, error) {
	if ctx != nil && ctx.Done() != nil {
		groutine.Go(ctx, "goble-events", func(ctx context.Context) {
			<-ctx.Done()
			a.events.Close()
		})
	}
	return a.events.C(), nil
}

func (a *Adapter) handleAdvertisement(adv ble.Advertisement, filter adapter.ScanFilter) {
	if !matchesFilter(adv, filter) {
		return
	}

	addr := adapter.NormalizeAddress(adv.Addr().String())
	p, existing := a.peripherals.GetOrInsert(addr, newPeripheral(a, addr))
	p.update(adv)

	if !existing {
		a.logger.WithFields(logrus.Fields{
			"address": addr,
			"name":    adv.LocalName(),
			"rssi":    adv.RSSI(),
		}).Debug("Discovered new peripheral")
	}
	a.events.Send(adapter.Event{Type: adapter.EventDeviceDiscovered, Address: addr})
}

func (a *Adapter) emit(ev adapter.Event) {
	a.events.Send(ev)
}

func matchesFilter(adv ble.Advertisement, filter adapter.ScanFilter) bool {
	if len(filter.Services) == 0 {
		return true
	}
	for _, required := range adapter.NormalizeUUIDs(filter.Services) {
		for _, advertised := range adv.Services() {
			if adapter.NormalizeUUID(advertised.String()) == required {
				return true
			}
		}
	}
	return false
}
