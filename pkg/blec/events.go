package blec

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/Catchawink/blec/internal/adapter"
	"github.com/Catchawink/blec/internal/groutine"
)

// HandleEvents starts the event reactor: a background goroutine that
// consumes the adapter event stream and tears the session down on
// disconnect events. It runs until ctx is cancelled or the stream ends.
func (h *Handler) HandleEvents(ctx context.Context) error {
	events, err := h.adapter.Events(ctx)
	if err != nil {
		return &AdapterError{Op: "events", Err: err}
	}

	groutine.Go(ctx, "blec-event-reactor", func(ctx context.Context) {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					h.logger.Debug("Adapter event stream ended")
					return
				}
				h.handleEvent(ev)
			}
		}
	})
	return nil
}

// handleEvent acts only on disconnect events; everything else is
// ignored. Teardown from idle is a no-op, so disconnects observed after
// an explicit Disconnect are harmless.
func (h *Handler) handleEvent(ev adapter.Event) {
	switch ev.Type {
	case adapter.EventDeviceDisconnected:
		h.logger.WithField("address", ev.Address).Debug("Peripheral disconnected")
		if err := h.Disconnect(); err != nil {
			h.logger.WithError(err).Warn("Teardown after disconnect event reported error")
		}
	default:
		h.logger.WithFields(logrus.Fields{
			"type":    ev.Type,
			"address": ev.Address,
		}).Trace("Ignoring adapter event")
	}
}
