package blec

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Catchawink/blec/internal/adapter"
	"github.com/Catchawink/blec/internal/groutine"
)

// NotifyCallback receives notification values. Callbacks run on worker
// goroutines and may block; they must not retain the slice beyond the
// call unless they copy it themselves (each invocation gets its own
// copy, so retaining is safe but sharing across listeners is not).
type NotifyCallback func(data []byte)

// listener pairs a characteristic UUID with a notification callback.
type listener struct {
	uuid     string
	callback NotifyCallback
}

// listenerList is the per-session listener registry shared between the
// subscribe surface and the notification pump. The lock is held only
// for the duration of a mutation or snapshot copy, never across I/O.
type listenerList struct {
	mu    sync.Mutex
	items []listener
}

func newListenerList() *listenerList {
	return &listenerList{}
}

// add appends a listener. Duplicate UUIDs are additive: every matching
// listener fires per notification.
func (l *listenerList) add(uuid string, cb NotifyCallback) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, listener{uuid: uuid, callback: cb})
}

// snapshot returns a copy of the current listeners in insertion order.
func (l *listenerList) snapshot() []listener {
	l.mu.Lock()
	defer l.mu.Unlock()
	items := make([]listener, len(l.items))
	copy(items, l.items)
	return items
}

func (l *listenerList) clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = nil
}

func (l *listenerList) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// runPump drains the peripheral's notification stream and fans each
// item out to every matching listener. It exits when the stream ends
// (link drop) or ctx is cancelled, and signals exit by closing done.
func runPump(ctx context.Context, notifications <-chan adapter.Notification, listeners *listenerList, done chan struct{}, logger *logrus.Logger) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-notifications:
			if !ok {
				logger.Debug("Notification stream ended")
				return
			}
			dispatch(n, listeners)
		}
	}
}

// dispatch invokes every listener registered for the notification's
// UUID, each on its own worker goroutine so slow callbacks cannot stall
// the stream. Listeners fire in insertion order; execution may overlap
// across notifications.
func dispatch(n adapter.Notification, listeners *listenerList) {
	for _, l := range listeners.snapshot() {
		if l.uuid != n.UUID {
			continue
		}
		value := make([]byte, len(n.Value))
		copy(value, n.Value)
		cb := l.callback
		groutine.Go(context.Background(), "blec-notify-worker", func(context.Context) {
			cb(value)
		})
	}
}
