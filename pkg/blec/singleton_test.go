package blec

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Catchawink/blec/internal/adapter"
	"github.com/Catchawink/blec/pkg/config"
)

func testLoggerInternal() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

// nullAdapter is a minimal adapter.Adapter for singleton wiring tests.
type nullAdapter struct {
	events chan adapter.Event
}

func (a *nullAdapter) StartScan(context.Context, adapter.ScanFilter) error { return nil }
func (a *nullAdapter) StopScan() error                                     { return nil }
func (a *nullAdapter) Peripherals() ([]adapter.Peripheral, error)          { return nil, nil }
func (a *nullAdapter) Events(context.Context) (<-chan adapter.Event, error) {
	return a.events, nil
}

func TestSingletonLifecycle(t *testing.T) {
	// Sequenced in one test because the singleton is process-wide state:
	// the accessor must fail before Init and be stable after it.

	_, err := GetHandler()
	require.ErrorIs(t, err, ErrHandlerNotInitialized, "accessor before Init fails HandlerNotInitialized")

	original := EnumerateAdapters
	EnumerateAdapters = func(*logrus.Logger) ([]adapter.Adapter, error) {
		return []adapter.Adapter{&nullAdapter{events: make(chan adapter.Event)}}, nil
	}
	t.Cleanup(func() { EnumerateAdapters = original })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h, err := Init(ctx, config.DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, h)

	got, err := GetHandler()
	require.NoError(t, err)
	assert.Same(t, h, got, "accessor returns the initialized handler")

	again, err := Init(ctx, config.DefaultConfig())
	require.NoError(t, err)
	assert.Same(t, h, again, "repeated Init returns the existing handler")
}

func TestNewFailsWithoutAdapters(t *testing.T) {
	original := EnumerateAdapters
	EnumerateAdapters = func(*logrus.Logger) ([]adapter.Adapter, error) {
		return nil, nil
	}
	t.Cleanup(func() { EnumerateAdapters = original })

	_, err := New(config.DefaultConfig())
	require.ErrorIs(t, err, ErrNoAdapters)
}

func TestNewWrapsEnumerationErrors(t *testing.T) {
	original := EnumerateAdapters
	enumErr := errors.New("hci unavailable")
	EnumerateAdapters = func(*logrus.Logger) ([]adapter.Adapter, error) {
		return nil, enumErr
	}
	t.Cleanup(func() { EnumerateAdapters = original })

	_, err := New(config.DefaultConfig())
	var adapterErr *AdapterError
	require.ErrorAs(t, err, &adapterErr)
	assert.ErrorIs(t, err, enumErr)
}
