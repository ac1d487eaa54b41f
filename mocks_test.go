package main

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/mock"
)

type mockHandle struct {
	mock.Mock
	name    string
	address string
}

func newMockHandle(name, address string) *mockHandle {
	return &mockHandle{name: name, address: address}
}

func (m *mockHandle) Name() string    { return m.name }
func (m *mockHandle) Address() string { return m.address }

func (m *mockHandle) IsConnected() bool {
	return m.Called().Bool(0)
}

func (m *mockHandle) OpenConnection(pageTimeout time.Duration, requireAuthentication bool) Status {
	return m.Called(pageTimeout, requireAuthentication).Get(0).(Status)
}

func (m *mockHandle) CloseConnection() Status {
	return m.Called().Get(0).(Status)
}

type mockRegistry struct {
	mock.Mock
}

func (m *mockRegistry) PairedDevices() ([]Handle, error) {
	args := m.Called()
	devices, _ := args.Get(0).([]Handle)
	return devices, args.Error(1)
}

func newTestLogger() (*logrus.Logger, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return logger, hook
}
