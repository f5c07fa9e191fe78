package blec

import (
	"errors"
	"fmt"
)

// Sentinel errors for session state failures. Compare with errors.Is.
var (
	// ErrNoAdapters means initialization found no BLE adapter.
	ErrNoAdapters = errors.New("no BLE adapters available")

	// ErrHandlerNotInitialized means GetHandler was called before Init.
	ErrHandlerNotInitialized = errors.New("handler not initialized")

	// ErrAlreadyConnected means the connect target equals the currently
	// connected address.
	ErrAlreadyConnected = errors.New("already connected to this peripheral")

	// ErrServiceNotFound means the requested service UUID was absent
	// after GATT discovery.
	ErrServiceNotFound = errors.New("service not found")

	// ErrNoDeviceConnected means the operation requires a connected
	// session but the session is idle or the transport dropped.
	ErrNoDeviceConnected = errors.New("no device connected")
)

// UnknownPeripheralError means the connect target is not present in the
// device registry.
type UnknownPeripheralError struct {
	Address string
}

func (e *UnknownPeripheralError) Error() string {
	return fmt.Sprintf("unknown peripheral %q", e.Address)
}

// CharacNotAvailableError means an I/O operation targeted a UUID that is
// not in the retained characteristic list.
type CharacNotAvailableError struct {
	UUID string
}

func (e *CharacNotAvailableError) Error() string {
	return fmt.Sprintf("characteristic %q not available", e.UUID)
}

// SendingDevicesError means the scan sink rejected a device batch.
type SendingDevicesError struct {
	Err error
}

func (e *SendingDevicesError) Error() string {
	return fmt.Sprintf("failed to send devices to sink: %v", e.Err)
}

func (e *SendingDevicesError) Unwrap() error {
	return e.Err
}

// AdapterError wraps a backend error from a BLE call.
type AdapterError struct {
	Op  string
	Err error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("adapter %s: %v", e.Op, e.Err)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}
