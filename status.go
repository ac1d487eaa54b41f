package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"
)

// Status is the result code of a connect or disconnect request.
// StatusSuccess is the only code that counts as success.
type Status int

const (
	StatusSuccess Status = iota
	StatusFailed
	StatusTimeout
	StatusNotAuthenticated
	StatusInProgress
	StatusNotReady
	StatusNotConnected
	StatusUnknownDevice
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	case StatusTimeout:
		return "timeout"
	case StatusNotAuthenticated:
		return "not authenticated"
	case StatusInProgress:
		return "in progress"
	case StatusNotReady:
		return "not ready"
	case StatusNotConnected:
		return "not connected"
	case StatusUnknownDevice:
		return "unknown device"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

var (
	// ErrNotConnected is returned when disconnecting a device that is not
	// connected. Connecting an already connected device is not an error.
	ErrNotConnected = errors.New("device is not connected")

	ErrConnectFailed    = errors.New("connect failed")
	ErrDisconnectFailed = errors.New("disconnect failed")
)

// StatusError reports a connect or disconnect request that completed with
// a non-success status.
type StatusError struct {
	Op     string
	Status Status
	err    error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Status)
}

func (e *StatusError) Unwrap() error { return e.err }

// statusFromError maps the error of a BlueZ method call to a Status.
func statusFromError(err error) Status {
	if err == nil {
		return StatusSuccess
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return StatusTimeout
	}

	var name string
	var dbusErr dbus.Error
	var dbusErrPtr *dbus.Error
	switch {
	case errors.As(err, &dbusErr):
		name = dbusErr.Name
	case errors.As(err, &dbusErrPtr):
		name = dbusErrPtr.Name
	default:
		return StatusFailed
	}

	switch name {
	case "org.bluez.Error.AlreadyConnected":
		return StatusSuccess
	case "org.bluez.Error.InProgress":
		return StatusInProgress
	case "org.bluez.Error.NotReady":
		return StatusNotReady
	case "org.bluez.Error.NotConnected":
		return StatusNotConnected
	case "org.bluez.Error.AuthenticationFailed",
		"org.bluez.Error.AuthenticationCanceled",
		"org.bluez.Error.AuthenticationRejected",
		"org.bluez.Error.AuthenticationTimeout":
		return StatusNotAuthenticated
	case "org.bluez.Error.DoesNotExist",
		"org.freedesktop.DBus.Error.UnknownObject",
		"org.freedesktop.DBus.Error.UnknownMethod":
		return StatusUnknownDevice
	case "org.freedesktop.DBus.Error.NoReply",
		"org.freedesktop.DBus.Error.Timeout":
		return StatusTimeout
	}
	return StatusFailed
}
