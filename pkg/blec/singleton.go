package blec

import (
	"context"
	"sync"

	"github.com/Catchawink/blec/pkg/config"
)

// The session manager is a process-wide singleton, initialized once at
// startup and never replaced.
var (
	handlerMu sync.RWMutex
	handler   *Handler
)

// Init creates the process-wide Handler and starts its event reactor.
// Repeated calls return the already initialized handler. The event
// reactor runs until ctx is cancelled; passing context.Background()
// keeps it for the process lifetime.
func Init(ctx context.Context, cfg *config.Config) (*Handler, error) {
	handlerMu.Lock()
	defer handlerMu.Unlock()

	if handler != nil {
		return handler, nil
	}

	h, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if err := h.HandleEvents(ctx); err != nil {
		return nil, err
	}

	handler = h
	return h, nil
}

// GetHandler returns the process-wide Handler, or
// ErrHandlerNotInitialized before Init completed.
func GetHandler() (*Handler, error) {
	handlerMu.RLock()
	defer handlerMu.RUnlock()

	if handler == nil {
		return nil, ErrHandlerNotInitialized
	}
	return handler, nil
}
