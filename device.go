package main

import (
	"time"
)

// pageTimeout bounds how long a connect waits for the peripheral to answer.
const pageTimeout = 10 * time.Second

// Handle is a paired peripheral as exposed by the Bluetooth service. The
// service owns the device; callers only read it and issue requests.
type Handle interface {
	// Name returns the advertised name, or "" when the device has none.
	Name() string
	Address() string
	// IsConnected queries the current connection state.
	IsConnected() bool
	OpenConnection(pageTimeout time.Duration, requireAuthentication bool) Status
	CloseConnection() Status
}

// Registry lists the devices paired with the host.
type Registry interface {
	PairedDevices() ([]Handle, error)
}

func displayName(h Handle) string {
	if name := h.Name(); name != "" {
		return name
	}
	return "unknown device"
}

// connectDevice connects h unless it already is connected.
func connectDevice(h Handle) error {
	if h.IsConnected() {
		return nil
	}
	if st := h.OpenConnection(pageTimeout, true); st != StatusSuccess {
		return &StatusError{Op: "connect", Status: st, err: ErrConnectFailed}
	}
	return nil
}

// disconnectDevice closes the connection to h. A device that is already
// disconnected yields ErrNotConnected, unlike connectDevice which treats
// the equivalent case as success.
func disconnectDevice(h Handle) error {
	if !h.IsConnected() {
		return ErrNotConnected
	}
	if st := h.CloseConnection(); st != StatusSuccess {
		return &StatusError{Op: "disconnect", Status: st, err: ErrDisconnectFailed}
	}
	return nil
}
