// Package blec is a BLE central session manager. It discovers nearby
// peripherals, connects to exactly one at a time, resolves a chosen
// service and characteristics, exchanges data over them and reacts to
// unsolicited disconnects. BLE transport itself is delegated to an
// adapter backend (see internal/adapter).
package blec

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Catchawink/blec/internal/adapter"
	"github.com/Catchawink/blec/internal/adapter/goble"
	"github.com/Catchawink/blec/internal/groutine"
	"github.com/Catchawink/blec/internal/registry"
	"github.com/Catchawink/blec/pkg/config"
)

// EnumerateAdapters lists the host's BLE adapters (can be overridden in
// tests).
var EnumerateAdapters = func(logger *logrus.Logger) ([]adapter.Adapter, error) {
	return goble.Enumerate(logger)
}

// Handler is the session manager. At most one peripheral is connected
// at any instant. The mutating surface (Connect, Disconnect, SendData,
// RecvData, Subscribe) is serialized by an operation mutex; read-only
// queries observe a consistent snapshot of the session state.
type Handler struct {
	adapter  adapter.Adapter
	registry *registry.Registry
	cfg      *config.Config
	logger   *logrus.Logger

	// opMu serializes the mutating surface end to end.
	opMu sync.Mutex

	// mu guards the session fields below. It is held only for state
	// reads and writes, never across a BLE call.
	mu           sync.RWMutex
	connected    adapter.Peripheral
	characs      []adapter.Characteristic
	onDisconnect func()
	pumpCancel   context.CancelFunc
	pumpDone     chan struct{}

	// listeners is shared with the notification pump.
	listeners *listenerList
}

// New creates a Handler bound to the first available BLE adapter.
// Returns ErrNoAdapters if the host has none.
func New(cfg *config.Config) (*Handler, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := cfg.NewLogger()

	adapters, err := EnumerateAdapters(logger)
	if err != nil {
		return nil, &AdapterError{Op: "enumerate", Err: err}
	}
	if len(adapters) == 0 {
		return nil, ErrNoAdapters
	}
	return NewWithAdapter(adapters[0], cfg, logger), nil
}

// NewWithAdapter creates a Handler on an explicit adapter. Used by New
// and by tests that substitute a mock backend.
func NewWithAdapter(a adapter.Adapter, cfg *config.Config, logger *logrus.Logger) *Handler {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = cfg.NewLogger()
	}
	return &Handler{
		adapter:   a,
		registry:  registry.New(),
		cfg:       cfg,
		logger:    logger,
		listeners: newListenerList(),
	}
}

// Connect establishes the session: resolve the address from the
// registry (bootstrapping it with a short discovery if empty), open the
// transport link, resolve the service and requested characteristics,
// install the on-disconnect hook and start the notification pump.
// Requested characteristic UUIDs absent from the service are silently
// omitted; their absence surfaces on first use as CharacNotAvailable.
func (h *Handler) Connect(ctx context.Context, address, serviceUUID string, characUUIDs []string, onDisconnect func()) error {
	h.opMu.Lock()
	defer h.opMu.Unlock()

	if h.registry.Len() == 0 {
		if _, err := h.discover(ctx, nil, h.cfg.BootstrapScanTimeout); err != nil {
			return err
		}
	}

	addr := adapter.NormalizeAddress(address)
	h.logger.WithField("address", addr).Debug("Connecting")

	h.mu.RLock()
	current := h.connected
	h.mu.RUnlock()
	if current != nil && current.Address() == addr {
		return ErrAlreadyConnected
	}

	p, ok := h.registry.Get(addr)
	if !ok {
		return &UnknownPeripheralError{Address: addr}
	}

	connected, err := p.IsConnected()
	if err != nil {
		return &AdapterError{Op: "is_connected", Err: err}
	}
	if !connected {
		connectCtx := ctx
		if h.cfg.ConnectTimeout > 0 {
			var cancel context.CancelFunc
			connectCtx, cancel = context.WithTimeout(ctx, h.cfg.ConnectTimeout)
			defer cancel()
		}
		if err := p.Connect(connectCtx); err != nil {
			return &AdapterError{Op: "connect", Err: err}
		}
	}

	// Publish the peripheral before resolution so a concurrent teardown
	// can find it.
	h.mu.Lock()
	h.connected = p
	h.mu.Unlock()

	characs, err := h.resolveService(ctx, p, serviceUUID, characUUIDs)
	if err != nil {
		h.rollbackConnect(p)
		return err
	}

	// Open the notification stream before spawning the pump so a stream
	// failure fails the connect instead of surfacing later.
	notifications, err := p.Notifications(ctx)
	if err != nil {
		h.rollbackConnect(p)
		return &AdapterError{Op: "notifications", Err: err}
	}

	pumpCtx, pumpCancel := context.WithCancel(context.Background())
	pumpDone := make(chan struct{})

	h.mu.Lock()
	h.characs = characs
	h.onDisconnect = onDisconnect
	h.pumpCancel = pumpCancel
	h.pumpDone = pumpDone
	h.mu.Unlock()

	h.startPump(pumpCtx, notifications, pumpDone)

	h.logger.WithFields(logrus.Fields{
		"address":         addr,
		"characteristics": len(characs),
	}).Info("Session connected")
	return nil
}

// resolveService runs GATT discovery, locates the requested service and
// retains every characteristic whose UUID was requested, in service
// order.
func (h *Handler) resolveService(ctx context.Context, p adapter.Peripheral, serviceUUID string, characUUIDs []string) ([]adapter.Characteristic, error) {
	services, err := p.DiscoverServices(ctx)
	if err != nil {
		return nil, &AdapterError{Op: "discover_services", Err: err}
	}

	target := adapter.NormalizeUUID(serviceUUID)
	var service adapter.Service
	for _, s := range services {
		if s.UUID() == target {
			service = s
			break
		}
	}
	if service == nil {
		return nil, ErrServiceNotFound
	}

	requested := make(map[string]struct{}, len(characUUIDs))
	for _, uuid := range adapter.NormalizeUUIDs(characUUIDs) {
		requested[uuid] = struct{}{}
	}

	var characs []adapter.Characteristic
	for _, c := range service.Characteristics() {
		if _, ok := requested[c.UUID()]; ok {
			characs = append(characs, c)
		}
	}
	return characs, nil
}

// rollbackConnect undoes a half-open connect: the peripheral is
// disconnected and the session returns to idle, but the registry stays
// intact and no hook fires.
func (h *Handler) rollbackConnect(p adapter.Peripheral) {
	if err := p.Disconnect(); err != nil {
		h.logger.WithError(err).Warn("Failed to disconnect peripheral during connect rollback")
	}
	h.mu.Lock()
	h.connected = nil
	h.characs = nil
	h.mu.Unlock()
}

// startPump spawns the notification pump bound to this session's
// listener list.
func (h *Handler) startPump(ctx context.Context, notifications <-chan adapter.Notification, done chan struct{}) {
	listeners := h.listeners
	logger := h.logger
	groutine.Go(ctx, "blec-notification-pump", func(ctx context.Context) {
		runPump(ctx, notifications, listeners, done, logger)
	})
}

// Disconnect tears the session down. Calling it from idle is a no-op
// success.
func (h *Handler) Disconnect() error {
	h.opMu.Lock()
	defer h.opMu.Unlock()
	return h.teardown()
}

// teardown is the single teardown path shared by explicit disconnects,
// adapter disconnect events and the transport check in getDevice. The
// caller must hold opMu. Order: abort pump, clear listeners, transport
// disconnect, fire hook, clear characteristics and registry. The hook
// fires exactly once per Connected→Idle transition.
func (h *Handler) teardown() error {
	h.mu.Lock()
	pumpCancel := h.pumpCancel
	pumpDone := h.pumpDone
	p := h.connected
	hook := h.onDisconnect
	h.pumpCancel = nil
	h.pumpDone = nil
	h.onDisconnect = nil
	h.mu.Unlock()

	if p == nil && pumpCancel == nil && hook == nil {
		return nil
	}

	h.logger.Debug("Tearing down session")

	if pumpCancel != nil {
		pumpCancel()
		<-pumpDone
	}

	h.listeners.clear()

	var disconnectErr error
	if p != nil {
		if connected, err := p.IsConnected(); err == nil && connected {
			if err := p.Disconnect(); err != nil {
				disconnectErr = &AdapterError{Op: "disconnect", Err: err}
			}
		}
	}
	h.mu.Lock()
	h.connected = nil
	h.characs = nil
	h.mu.Unlock()

	if hook != nil {
		hook()
	}

	h.registry.Clear()

	h.logger.Info("Session disconnected")
	return disconnectErr
}

// SendData writes data to the characteristic without response.
func (h *Handler) SendData(ctx context.Context, uuid string, data []byte) error {
	h.opMu.Lock()
	defer h.opMu.Unlock()

	p, err := h.getDevice()
	if err != nil {
		return err
	}
	c, err := h.getCharac(uuid)
	if err != nil {
		return err
	}

	if err := p.Write(ctx, c, data, adapter.WriteWithoutResponse); err != nil {
		return &AdapterError{Op: "write", Err: err}
	}
	return nil
}

// RecvData reads the characteristic's current value.
func (h *Handler) RecvData(ctx context.Context, uuid string) ([]byte, error) {
	h.opMu.Lock()
	defer h.opMu.Unlock()

	p, err := h.getDevice()
	if err != nil {
		return nil, err
	}
	c, err := h.getCharac(uuid)
	if err != nil {
		return nil, err
	}

	data, err := p.Read(ctx, c)
	if err != nil {
		return nil, &AdapterError{Op: "read", Err: err}
	}
	return data, nil
}

// Subscribe enables notifications for the characteristic and registers
// the callback. Subscribing the same UUID twice is additive: both
// callbacks fire for every notification.
func (h *Handler) Subscribe(ctx context.Context, uuid string, callback NotifyCallback) error {
	h.opMu.Lock()
	defer h.opMu.Unlock()

	p, err := h.getDevice()
	if err != nil {
		return err
	}
	c, err := h.getCharac(uuid)
	if err != nil {
		return err
	}

	if err := p.Subscribe(ctx, c); err != nil {
		return &AdapterError{Op: "subscribe", Err: err}
	}
	h.listeners.add(c.UUID(), callback)
	return nil
}

// CheckConnected reports the transport-level connection state of the
// session's peripheral, or false if there is none.
func (h *Handler) CheckConnected() (bool, error) {
	h.mu.RLock()
	p := h.connected
	h.mu.RUnlock()
	if p == nil {
		return false, nil
	}

	connected, err := p.IsConnected()
	if err != nil {
		return false, &AdapterError{Op: "is_connected", Err: err}
	}
	return connected, nil
}

// ConnectedDevice projects the currently connected peripheral.
func (h *Handler) ConnectedDevice() (Device, error) {
	h.mu.RLock()
	p := h.connected
	h.mu.RUnlock()
	if p == nil {
		return Device{}, ErrNoDeviceConnected
	}
	return deviceFromPeripheral(p)
}

// getDevice returns the session peripheral after validating it is still
// transport-connected. A dropped transport triggers full teardown
// before surfacing ErrNoDeviceConnected; this is the only place an I/O
// call causes a state transition. The caller must hold opMu.
func (h *Handler) getDevice() (adapter.Peripheral, error) {
	h.mu.RLock()
	p := h.connected
	h.mu.RUnlock()
	if p == nil {
		return nil, ErrNoDeviceConnected
	}

	connected, err := p.IsConnected()
	if err != nil {
		return nil, &AdapterError{Op: "is_connected", Err: err}
	}
	if !connected {
		if err := h.teardown(); err != nil {
			h.logger.WithError(err).Warn("Teardown after transport drop reported error")
		}
		return nil, ErrNoDeviceConnected
	}
	return p, nil
}

// getCharac resolves a characteristic by UUID from the retained list.
func (h *Handler) getCharac(uuid string) (adapter.Characteristic, error) {
	target := adapter.NormalizeUUID(uuid)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.characs {
		if c.UUID() == target {
			return c, nil
		}
	}
	return nil, &CharacNotAvailableError{UUID: uuid}
}
