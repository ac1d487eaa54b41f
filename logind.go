package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"
)

const (
	logindBus     = "org.freedesktop.login1"
	logindPath    = "/org/freedesktop/login1"
	managerIface  = "org.freedesktop.login1.Manager"
	sessionIface  = "org.freedesktop.login1.Session"
	sessionPrefix = logindPath + "/session"
	propsSignal   = propsIface + ".PropertiesChanged"
)

// lockWatcher turns systemd-logind signals into session events.
//
// Screen lockers report the lock state through the session's LockedHint
// property. The Lock and Unlock signals are requests to the locker and are
// only sent for loginctl lock-session and friends; they are accepted too,
// and a state that was already published is not published again.
type lockWatcher struct {
	conn    busConn
	session dbus.ObjectPath // empty: accept every session
	log     logrus.FieldLogger

	locked *bool // last lock state published, nil until known
}

func newLockWatcher(conn busConn, log logrus.FieldLogger) *lockWatcher {
	w := &lockWatcher{conn: conn, log: log}
	path, err := w.resolveSession()
	if err != nil {
		log.WithError(err).Warn("could not resolve login session, accepting lock signals from every session")
		return w
	}
	log.WithField("session", path).Debug("watching login session")
	w.session = path
	return w
}

func (w *lockWatcher) resolveSession() (dbus.ObjectPath, error) {
	id := os.Getenv("XDG_SESSION_ID")
	if id == "" {
		id = "auto"
	}
	var path dbus.ObjectPath
	err := w.conn.Object(logindBus, logindPath).Call(managerIface+".GetSession", 0, id).Store(&path)
	if err != nil {
		return "", fmt.Errorf("get session %q: %w", id, err)
	}
	return path, nil
}

// readLockedHint seeds the lock state so that the first hint after start
// is only acted on when it changes something.
func (w *lockWatcher) readLockedHint() {
	if w.session == "" {
		return
	}
	var v dbus.Variant
	err := w.conn.Object(logindBus, w.session).Call(propsIface+".Get", 0, sessionIface, "LockedHint").Store(&v)
	if err != nil {
		w.log.WithError(err).Debug("read LockedHint")
		return
	}
	if locked, ok := v.Value().(bool); ok {
		w.locked = &locked
	}
}

func (w *lockWatcher) matchRules() []string {
	scope := ",path_namespace='" + sessionPrefix + "'"
	if w.session != "" {
		scope = ",path='" + string(w.session) + "'"
	}
	session := "type='signal',interface='" + sessionIface + "'" + scope
	return []string{
		"type='signal',interface='" + propsIface + "',member='PropertiesChanged'" + scope + ",arg0='" + sessionIface + "'",
		session + ",member='Lock'",
		session + ",member='Unlock'",
		"type='signal',interface='" + managerIface + "',member='PrepareForSleep',path='" + logindPath + "'",
	}
}

func (w *lockWatcher) removeMatches(rules []string) {
	for _, rule := range rules {
		if err := w.conn.BusObject().Call("org.freedesktop.DBus.RemoveMatch", 0, rule).Err; err != nil {
			w.log.WithError(err).Debug("remove match rule")
		}
	}
}

// repeated reports whether ev restates the lock state published last, and
// records the state otherwise.
func (w *lockWatcher) repeated(ev Event) bool {
	var locked bool
	switch ev {
	case EventScreenLocked:
		locked = true
	case EventScreenUnlocked:
		locked = false
	default:
		return false
	}
	if w.locked != nil && *w.locked == locked {
		return true
	}
	w.locked = &locked
	return false
}

// Run publishes an event on bus for every lock, unlock, sleep and wake
// signal until ctx is done. Match rules are removed on return.
func (w *lockWatcher) Run(ctx context.Context, bus *EventBus) error {
	rules := w.matchRules()
	for i, rule := range rules {
		if err := w.conn.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, rule).Err; err != nil {
			w.removeMatches(rules[:i])
			return fmt.Errorf("add match %q: %w", rule, err)
		}
	}
	defer w.removeMatches(rules)

	sigCh := make(chan *dbus.Signal, 16)
	w.conn.Signal(sigCh)
	defer w.conn.RemoveSignal(sigCh)

	w.readLockedHint()

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig, ok := <-sigCh:
			if !ok {
				return errors.New("system bus connection closed")
			}
			ev, ok := eventForSignal(sig, w.session)
			if !ok {
				continue
			}
			log := w.log.WithField("event", ev)
			if w.repeated(ev) {
				log.Debug("lock state unchanged, ignoring signal")
				continue
			}
			log.Debug("signal received")
			if err := bus.Publish(ctx, ev); err != nil {
				return nil
			}
		}
	}
}

// eventForSignal maps a logind signal to an event. Session signals are only
// accepted from session, unless session is empty.
func eventForSignal(sig *dbus.Signal, session dbus.ObjectPath) (Event, bool) {
	switch sig.Name {
	case propsSignal:
		if !fromSession(sig, session) {
			return "", false
		}
		// Body: [interface_name string, changed_props map[string]Variant, invalidated []string]
		if len(sig.Body) < 2 {
			return "", false
		}
		iface, ok := sig.Body[0].(string)
		if !ok || iface != sessionIface {
			return "", false
		}
		changed, ok := sig.Body[1].(map[string]dbus.Variant)
		if !ok {
			return "", false
		}
		hint, ok := changed["LockedHint"]
		if !ok {
			return "", false
		}
		locked, ok := hint.Value().(bool)
		if !ok {
			return "", false
		}
		if locked {
			return EventScreenLocked, true
		}
		return EventScreenUnlocked, true
	case sessionIface + ".Lock":
		if !fromSession(sig, session) {
			return "", false
		}
		return EventScreenLocked, true
	case sessionIface + ".Unlock":
		if !fromSession(sig, session) {
			return "", false
		}
		return EventScreenUnlocked, true
	case managerIface + ".PrepareForSleep":
		// Body: [start bool]
		if len(sig.Body) < 1 {
			return "", false
		}
		start, ok := sig.Body[0].(bool)
		if !ok {
			return "", false
		}
		if start {
			return EventDisplaySleep, true
		}
		return EventDisplayWake, true
	}
	return "", false
}

func fromSession(sig *dbus.Signal, session dbus.ObjectPath) bool {
	if session != "" {
		return sig.Path == session
	}
	return strings.HasPrefix(string(sig.Path), sessionPrefix+"/")
}
