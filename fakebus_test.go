package main

import (
	"context"
	"sync"

	"github.com/godbus/dbus/v5"
)

type fakeCall struct {
	path   dbus.ObjectPath
	method string
	args   []interface{}
}

type replyFunc func(ctx context.Context, args []interface{}) *dbus.Call

// fakeBus answers method calls from registered replies and lets tests emit
// signals. Unregistered methods fail with UnknownMethod.
type fakeBus struct {
	mu      sync.Mutex
	replies map[string]replyFunc
	calls   []fakeCall
	sigs    []chan<- *dbus.Signal
}

func newFakeBus() *fakeBus {
	fb := &fakeBus{replies: make(map[string]replyFunc)}
	ok := func(context.Context, []interface{}) *dbus.Call { return &dbus.Call{} }
	fb.on("/org/freedesktop/DBus", "org.freedesktop.DBus.AddMatch", ok)
	fb.on("/org/freedesktop/DBus", "org.freedesktop.DBus.RemoveMatch", ok)
	return fb
}

func (fb *fakeBus) on(path dbus.ObjectPath, method string, fn replyFunc) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.replies[string(path)+" "+method] = fn
}

// props answers Properties.Get on path. A nil value makes the read fail.
func (fb *fakeBus) props(path dbus.ObjectPath, values map[string]interface{}) {
	fb.on(path, propsIface+".Get", func(_ context.Context, args []interface{}) *dbus.Call {
		v, ok := values[args[1].(string)]
		if !ok || v == nil {
			return &dbus.Call{Err: dbus.Error{Name: "org.freedesktop.DBus.Error.InvalidArgs"}}
		}
		return &dbus.Call{Body: []interface{}{dbus.MakeVariant(v)}}
	})
}

func (fb *fakeBus) call(ctx context.Context, path dbus.ObjectPath, method string, args []interface{}) *dbus.Call {
	fb.mu.Lock()
	fb.calls = append(fb.calls, fakeCall{path: path, method: method, args: args})
	fn := fb.replies[string(path)+" "+method]
	fb.mu.Unlock()

	if fn == nil {
		return &dbus.Call{Err: dbus.Error{Name: "org.freedesktop.DBus.Error.UnknownMethod"}}
	}
	return fn(ctx, args)
}

// callsTo returns the recorded calls of method, in order.
func (fb *fakeBus) callsTo(method string) []fakeCall {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	var out []fakeCall
	for _, c := range fb.calls {
		if c.method == method {
			out = append(out, c)
		}
	}
	return out
}

func (fb *fakeBus) Object(_ string, path dbus.ObjectPath) dbus.BusObject {
	return &fakeObject{bus: fb, path: path}
}

func (fb *fakeBus) BusObject() dbus.BusObject {
	return fb.Object("org.freedesktop.DBus", "/org/freedesktop/DBus")
}

func (fb *fakeBus) Signal(ch chan<- *dbus.Signal) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.sigs = append(fb.sigs, ch)
}

func (fb *fakeBus) RemoveSignal(ch chan<- *dbus.Signal) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	for i, c := range fb.sigs {
		if c == ch {
			fb.sigs = append(fb.sigs[:i], fb.sigs[i+1:]...)
			return
		}
	}
}

func (fb *fakeBus) subscribers() int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return len(fb.sigs)
}

func (fb *fakeBus) emit(sig *dbus.Signal) {
	fb.mu.Lock()
	sigs := append([]chan<- *dbus.Signal(nil), fb.sigs...)
	fb.mu.Unlock()
	for _, ch := range sigs {
		ch <- sig
	}
}

// closeSignals closes every registered channel, as godbus does when the
// connection goes away.
func (fb *fakeBus) closeSignals() {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	for _, ch := range fb.sigs {
		close(ch)
	}
	fb.sigs = nil
}

// fakeObject implements the calls this package makes; the rest of
// dbus.BusObject is left nil.
type fakeObject struct {
	dbus.BusObject
	bus  *fakeBus
	path dbus.ObjectPath
}

func (o *fakeObject) Call(method string, _ dbus.Flags, args ...interface{}) *dbus.Call {
	return o.bus.call(context.Background(), o.path, method, args)
}

func (o *fakeObject) CallWithContext(ctx context.Context, method string, _ dbus.Flags, args ...interface{}) *dbus.Call {
	return o.bus.call(ctx, o.path, method, args)
}
