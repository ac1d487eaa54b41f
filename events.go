package main

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Event names a session state change.
type Event string

const (
	EventScreenLocked   Event = "screen-locked"
	EventScreenUnlocked Event = "screen-unlocked"
	EventDisplaySleep   Event = "display-sleep"
	EventDisplayWake    Event = "display-wake"
)

type Handler func(Event)

// Subscription is the token returned by Subscribe.
type Subscription struct {
	event Event
	fn    Handler
}

// EventBus maps events to handlers. Published events are queued and
// dispatched one at a time by Run, so handlers never overlap.
type EventBus struct {
	mu       sync.Mutex
	handlers map[Event][]*Subscription

	queue chan Event
	log   logrus.FieldLogger
}

func newEventBus(log logrus.FieldLogger) *EventBus {
	return &EventBus{
		handlers: make(map[Event][]*Subscription),
		queue:    make(chan Event, 16),
		log:      log,
	}
}

func (b *EventBus) Subscribe(ev Event, fn Handler) *Subscription {
	sub := &Subscription{event: ev, fn: fn}
	b.mu.Lock()
	b.handlers[ev] = append(b.handlers[ev], sub)
	b.mu.Unlock()
	return sub
}

func (b *EventBus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.handlers[sub.event]
	for i, s := range subs {
		if s == sub {
			b.handlers[sub.event] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.handlers[sub.event]) == 0 {
		delete(b.handlers, sub.event)
	}
}

// Dispatch runs the handlers of ev synchronously in subscription order and
// returns how many ran.
func (b *EventBus) Dispatch(ev Event) int {
	b.mu.Lock()
	subs := append([]*Subscription(nil), b.handlers[ev]...)
	b.mu.Unlock()

	if len(subs) == 0 {
		b.log.WithField("event", ev).Debug("no handlers")
		return 0
	}
	for _, s := range subs {
		s.fn(ev)
	}
	return len(subs)
}

// Publish queues ev for Run. It blocks while the queue is full.
func (b *EventBus) Publish(ctx context.Context, ev Event) error {
	select {
	case b.queue <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run dispatches queued events in delivery order until ctx is done. An
// event being dispatched when ctx ends is finished first.
func (b *EventBus) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-b.queue:
			b.Dispatch(ev)
		}
	}
}
