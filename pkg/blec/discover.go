package blec

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Catchawink/blec/internal/adapter"
)

// DeviceSink receives incremental scan batches. Each batch is non-empty
// and sorted ascending by address. A non-nil error aborts the scan and
// surfaces as SendingDevicesError.
type DeviceSink func(devices []Device) error

// ChanSink adapts a channel to a DeviceSink. A closed channel is
// reported as a sink error rather than a panic.
func ChanSink(ch chan<- []Device) DeviceSink {
	return func(devices []Device) (err error) {
		defer func() {
			if recover() != nil {
				err = errors.New("device channel closed")
			}
		}()
		ch <- devices
		return nil
	}
}

// Discover scans for approximately timeout, polling the adapter every
// scan interval. Each poll projects the known peripherals, upserts them
// into the registry and, when a sink is given, pushes a sorted snapshot
// of any non-empty batch. The final snapshot is returned. The registry
// is cleared right after the scan starts so stale entries from a prior
// scan are never reported. A zero timeout still starts and stops the
// scan and returns an empty result.
func (h *Handler) Discover(ctx context.Context, sink DeviceSink, timeout time.Duration) ([]Device, error) {
	return h.discover(ctx, sink, timeout)
}

func (h *Handler) discover(ctx context.Context, sink DeviceSink, timeout time.Duration) ([]Device, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := h.adapter.StartScan(ctx, adapter.ScanFilter{}); err != nil {
		return nil, &AdapterError{Op: "start_scan", Err: err}
	}
	h.registry.Clear()

	interval := h.cfg.ScanInterval
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	loops := int(math.Round(float64(timeout) / float64(interval)))

	h.logger.WithFields(logrus.Fields{
		"timeout": timeout,
		"polls":   loops,
	}).Debug("Starting discovery")

	var devices []Device
	var scanErr error

poll:
	for i := 0; i < loops; i++ {
		select {
		case <-ctx.Done():
			scanErr = ctx.Err()
			break poll
		case <-time.After(interval):
		}

		discovered, err := h.adapter.Peripherals()
		if err != nil {
			scanErr = &AdapterError{Op: "peripherals", Err: err}
			break poll
		}

		devices = h.collectDevices(discovered)
		if len(devices) > 0 && sink != nil {
			batch := make([]Device, len(devices))
			copy(batch, devices)
			if err := sink(batch); err != nil {
				scanErr = &SendingDevicesError{Err: err}
				break poll
			}
		}
	}

	// Stop symmetrically with the start, even on error paths.
	if err := h.adapter.StopScan(); err != nil && scanErr == nil {
		scanErr = &AdapterError{Op: "stop_scan", Err: err}
	}
	if scanErr != nil {
		return nil, scanErr
	}

	h.logger.WithField("device_count", len(devices)).Debug("Discovery completed")
	return devices, nil
}

// collectDevices projects the discovered peripherals, upserts them into
// the registry and returns a snapshot sorted ascending by address.
// Peripherals that fail projection are skipped so one malformed
// advertisement cannot abort the scan.
func (h *Handler) collectDevices(discovered []adapter.Peripheral) []Device {
	devices := make([]Device, 0, len(discovered))
	for _, p := range discovered {
		d, err := deviceFromPeripheral(p)
		if err != nil {
			h.logger.WithError(err).WithField("address", p.Address()).Debug("Skipping peripheral that failed projection")
			continue
		}
		h.registry.Set(d.Address, p)
		devices = append(devices, d)
	}
	SortDevices(devices)
	return devices
}
