package blec

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Catchawink/blec/internal/adapter"
)

func TestListenerListAdditiveAndOrdered(t *testing.T) {
	l := newListenerList()
	l.add("2a37", func([]byte) {})
	l.add("2a38", func([]byte) {})
	l.add("2a37", func([]byte) {})

	snapshot := l.snapshot()
	require.Len(t, snapshot, 3)
	assert.Equal(t, "2a37", snapshot[0].uuid)
	assert.Equal(t, "2a38", snapshot[1].uuid)
	assert.Equal(t, "2a37", snapshot[2].uuid, "duplicates are kept in insertion order")

	l.clear()
	assert.Zero(t, l.len(), "clear empties the list")
	assert.Len(t, snapshot, 3, "snapshots are unaffected by clear")
}

func TestPumpExitsOnStreamEnd(t *testing.T) {
	notifications := make(chan adapter.Notification)
	done := make(chan struct{})
	go runPump(context.Background(), notifications, newListenerList(), done, testLoggerInternal())

	close(notifications)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pump did not exit on stream end")
	}
}

func TestPumpExitsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	notifications := make(chan adapter.Notification)
	done := make(chan struct{})
	go runPump(ctx, notifications, newListenerList(), done, testLoggerInternal())

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pump did not exit on cancel")
	}
}

func TestPumpDispatchesCopies(t *testing.T) {
	listeners := newListenerList()
	received := make(chan []byte, 1)
	listeners.add("2a37", func(data []byte) { received <- data })

	notifications := make(chan adapter.Notification, 1)
	done := make(chan struct{})
	go runPump(context.Background(), notifications, listeners, done, testLoggerInternal())

	original := []byte{0x01, 0x02}
	notifications <- adapter.Notification{UUID: "2a37", Value: original}

	var data []byte
	select {
	case data = <-received:
	case <-time.After(time.Second):
		t.Fatal("listener was not invoked")
	}
	require.Equal(t, []byte{0x01, 0x02}, data)

	// Mutating the source must not affect the delivered copy.
	original[0] = 0xFF
	assert.Equal(t, []byte{0x01, 0x02}, data)

	close(notifications)
	<-done
}

func TestPumpSlowListenerDoesNotStallStream(t *testing.T) {
	listeners := newListenerList()
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)
	listeners.add("2a37", func([]byte) {
		defer wg.Done()
		<-release
	})

	notifications := make(chan adapter.Notification, 2)
	done := make(chan struct{})
	go runPump(context.Background(), notifications, listeners, done, testLoggerInternal())

	// Two notifications while the listener blocks: the pump must keep
	// draining.
	notifications <- adapter.Notification{UUID: "2a37", Value: []byte{1}}
	notifications <- adapter.Notification{UUID: "2a37", Value: []byte{2}}
	close(notifications)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pump stalled behind a blocking listener")
	}

	close(release)
	wg.Wait()
}
