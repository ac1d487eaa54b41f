package main

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

type Action string

const (
	ActionConnect    Action = "connect"
	ActionDisconnect Action = "disconnect"
)

// Outcome records one connect or disconnect attempt. Err is nil on success.
type Outcome struct {
	Address string
	Name    string
	Action  Action
	Err     error
}

// Controller disconnects the matched devices when the screen locks and
// reconnects them when it unlocks. Failed attempts are logged and never
// retried.
type Controller struct {
	bus     *EventBus
	devices *DeviceSet
	log     logrus.FieldLogger

	mu     sync.Mutex
	subs   []*Subscription
	closed bool
}

// NewController subscribes the controller to bus. Call Close to release
// the subscriptions.
func NewController(bus *EventBus, devices *DeviceSet, log logrus.FieldLogger) *Controller {
	c := &Controller{bus: bus, devices: devices, log: log}
	c.subs = []*Subscription{
		bus.Subscribe(EventScreenLocked, func(ev Event) { c.apply(ev, ActionDisconnect) }),
		bus.Subscribe(EventScreenUnlocked, func(ev Event) { c.apply(ev, ActionConnect) }),
		bus.Subscribe(EventDisplaySleep, c.displayChanged),
		bus.Subscribe(EventDisplayWake, c.displayChanged),
	}
	return c
}

// Close unsubscribes every handler. It waits for a pass in progress and
// is safe to call more than once.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	for _, s := range c.subs {
		c.bus.Unsubscribe(s)
	}
	c.subs = nil
	c.log.Debug("controller closed")
	return nil
}

func (c *Controller) displayChanged(ev Event) {
	c.log.WithField("event", ev).Debug("display state changed")
}

// apply runs action on every device in set order.
func (c *Controller) apply(ev Event, action Action) []Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	log := c.log.WithField("event", ev)
	if c.devices.Len() == 0 {
		log.Debug("no devices to " + string(action))
		return nil
	}
	log.Info("screen state changed")

	outcomes := make([]Outcome, 0, c.devices.Len())
	for _, h := range c.devices.Devices() {
		o := Outcome{Address: h.Address(), Name: h.Name(), Action: action}
		switch action {
		case ActionConnect:
			o.Err = connectDevice(h)
		case ActionDisconnect:
			o.Err = disconnectDevice(h)
		}
		logOutcome(log, o)
		outcomes = append(outcomes, o)
	}
	return outcomes
}

func logOutcome(log logrus.FieldLogger, o Outcome) {
	name := o.Name
	if name == "" {
		name = "unknown device"
	}
	entry := log.WithFields(logrus.Fields{
		"device":  name,
		"address": o.Address,
		"action":  o.Action,
	})

	var se *StatusError
	switch {
	case o.Err == nil:
		entry.Info(string(o.Action) + " ok")
	case errors.Is(o.Err, ErrNotConnected):
		entry.Debug("already disconnected")
	case errors.As(o.Err, &se):
		entry.WithField("status", se.Status).Warn(string(o.Action) + " failed")
	default:
		entry.WithError(o.Err).Warn(string(o.Action) + " failed")
	}
}
