package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectDevice_AlreadyConnected(t *testing.T) {
	h := newMockHandle("MyHeadphones L", "AA:BB:CC:DD:EE:01")
	h.On("IsConnected").Return(true)

	assert.NoError(t, connectDevice(h))
	h.AssertNotCalled(t, "OpenConnection", pageTimeout, true)
}

func TestConnectDevice(t *testing.T) {
	tests := []struct {
		name    string
		status  Status
		wantErr bool
	}{
		{name: "success", status: StatusSuccess},
		{name: "timeout", status: StatusTimeout, wantErr: true},
		{name: "not authenticated", status: StatusNotAuthenticated, wantErr: true},
		{name: "failed", status: StatusFailed, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newMockHandle("Mouse", "AA:BB:CC:DD:EE:02")
			h.On("IsConnected").Return(false)
			h.On("OpenConnection", pageTimeout, true).Return(tt.status).Once()

			err := connectDevice(h)
			h.AssertExpectations(t)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConnectFailed))
			var se *StatusError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.status, se.Status)
			assert.Equal(t, "connect", se.Op)
		})
	}
}

func TestDisconnectDevice_AlreadyDisconnected(t *testing.T) {
	h := newMockHandle("Mouse", "AA:BB:CC:DD:EE:02")
	h.On("IsConnected").Return(false)

	err := disconnectDevice(h)
	assert.ErrorIs(t, err, ErrNotConnected)
	h.AssertNotCalled(t, "CloseConnection")
}

func TestDisconnectDevice(t *testing.T) {
	h := newMockHandle("Mouse", "AA:BB:CC:DD:EE:02")
	h.On("IsConnected").Return(true)
	h.On("CloseConnection").Return(StatusSuccess).Once()

	assert.NoError(t, disconnectDevice(h))
	h.AssertNumberOfCalls(t, "CloseConnection", 1)
}

func TestDisconnectDevice_Failure(t *testing.T) {
	h := newMockHandle("Mouse", "AA:BB:CC:DD:EE:02")
	h.On("IsConnected").Return(true)
	h.On("CloseConnection").Return(StatusNotReady).Once()

	err := disconnectDevice(h)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDisconnectFailed)
	assert.Equal(t, "disconnect: not ready", err.Error())
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Mouse", displayName(newMockHandle("Mouse", "x")))
	assert.Equal(t, "unknown device", displayName(newMockHandle("", "x")))
}
