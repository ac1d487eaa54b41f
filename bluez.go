package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"
)

const (
	busName     = "org.bluez"
	bluezRoot   = "/org/bluez"
	deviceIface = "org.bluez.Device1"
	propsIface  = "org.freedesktop.DBus.Properties"
	objMgrIface = "org.freedesktop.DBus.ObjectManager"
)

// adapterPath returns the object path of a BlueZ adapter such as "hci0".
// An empty adapter name selects the BlueZ root, i.e. every adapter.
func adapterPath(adapter string) dbus.ObjectPath {
	if adapter == "" {
		return bluezRoot
	}
	return dbus.ObjectPath(bluezRoot + "/" + adapter)
}

// macFromPath extracts a MAC address from a BlueZ device object path like
// "/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF".
func macFromPath(path dbus.ObjectPath) string {
	s := string(path)
	i := strings.LastIndex(s, "/dev_")
	if i < 0 || !strings.HasPrefix(s, bluezRoot+"/") {
		return ""
	}
	return strings.ReplaceAll(s[i+len("/dev_"):], "_", ":")
}

// busConn is the part of *dbus.Conn used to talk to BlueZ and logind.
type busConn interface {
	Object(dest string, path dbus.ObjectPath) dbus.BusObject
	BusObject() dbus.BusObject
	Signal(ch chan<- *dbus.Signal)
	RemoveSignal(ch chan<- *dbus.Signal)
}

// bluez talks to the BlueZ daemon over the system bus and serves as the
// pairing registry for the resolver.
type bluez struct {
	conn    busConn
	adapter string
	log     logrus.FieldLogger
}

func newBluez(conn busConn, adapter string, log logrus.FieldLogger) *bluez {
	return &bluez{conn: conn, adapter: adapter, log: log}
}

func (b *bluez) getProp(path dbus.ObjectPath, iface, prop string) (dbus.Variant, error) {
	obj := b.conn.Object(busName, path)
	var v dbus.Variant
	err := obj.Call(propsIface+".Get", 0, iface, prop).Store(&v)
	return v, err
}

func (b *bluez) getBool(path dbus.ObjectPath, iface, prop string) (bool, error) {
	v, err := b.getProp(path, iface, prop)
	if err != nil {
		return false, err
	}
	val, ok := v.Value().(bool)
	if !ok {
		return false, fmt.Errorf("property %s is not bool", prop)
	}
	return val, nil
}

// PairedDevices lists the paired devices known to BlueZ on the configured
// adapter, ordered by object path.
func (b *bluez) PairedDevices() ([]Handle, error) {
	var objects map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	call := b.conn.Object(busName, "/").Call(objMgrIface+".GetManagedObjects", 0)
	if call.Err != nil {
		return nil, fmt.Errorf("list managed objects: %w", call.Err)
	}
	if err := call.Store(&objects); err != nil {
		return nil, fmt.Errorf("decode managed objects: %w", err)
	}

	records := pairedFromObjects(objects, b.adapter)
	handles := make([]Handle, 0, len(records))
	for _, r := range records {
		handles = append(handles, &bluezDevice{
			bz:      b,
			path:    r.path,
			name:    r.name,
			address: r.address,
		})
	}
	return handles, nil
}

type deviceRecord struct {
	path    dbus.ObjectPath
	name    string
	address string
}

// pairedFromObjects picks the paired Device1 objects below the adapter out
// of a GetManagedObjects reply.
func pairedFromObjects(objects map[dbus.ObjectPath]map[string]map[string]dbus.Variant, adapter string) []deviceRecord {
	prefix := string(adapterPath(adapter)) + "/"

	var records []deviceRecord
	for path, ifaces := range objects {
		props, ok := ifaces[deviceIface]
		if !ok {
			continue
		}
		if !strings.HasPrefix(string(path), prefix) {
			continue
		}
		if paired, _ := props["Paired"].Value().(bool); !paired {
			continue
		}
		addr, _ := props["Address"].Value().(string)
		if addr == "" {
			addr = macFromPath(path)
		}
		name, _ := props["Name"].Value().(string)
		records = append(records, deviceRecord{path: path, name: name, address: addr})
	}

	sort.Slice(records, func(i, j int) bool { return records[i].path < records[j].path })
	return records
}

// bluezDevice is a Handle backed by a BlueZ Device1 object. The name is the
// one reported when the registry was listed; the connection state is
// always read live.
type bluezDevice struct {
	bz      *bluez
	path    dbus.ObjectPath
	name    string
	address string
}

func (d *bluezDevice) Name() string    { return d.name }
func (d *bluezDevice) Address() string { return d.address }

func (d *bluezDevice) IsConnected() bool {
	connected, err := d.bz.getBool(d.path, deviceIface, "Connected")
	if err != nil {
		d.bz.log.WithError(err).WithField("address", d.address).Debug("read Connected property")
		return false
	}
	return connected
}

// OpenConnection issues Device1.Connect. BlueZ has no page timeout argument,
// so the call is bounded by a deadline instead. When authentication is
// required, devices that are no longer paired are refused up front.
func (d *bluezDevice) OpenConnection(pageTimeout time.Duration, requireAuthentication bool) Status {
	if requireAuthentication {
		paired, err := d.bz.getBool(d.path, deviceIface, "Paired")
		if err != nil {
			return statusFromError(err)
		}
		if !paired {
			return StatusNotAuthenticated
		}
	}

	ctx := context.Background()
	if pageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, pageTimeout)
		defer cancel()
	}
	obj := d.bz.conn.Object(busName, d.path)
	return statusFromError(obj.CallWithContext(ctx, deviceIface+".Connect", 0).Err)
}

func (d *bluezDevice) CloseConnection() Status {
	obj := d.bz.conn.Object(busName, d.path)
	return statusFromError(obj.Call(deviceIface+".Disconnect", 0).Err)
}
