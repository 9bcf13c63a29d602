package infra

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/viik420/bt-mac-changer/internal/domain"
)

const (
	bluezBusName    = "org.bluez"
	bluezAdapter    = "org.bluez.Adapter1"
	bluezPropsIface = "org.freedesktop.DBus.Properties"
)

// bluezConn is the subset of *dbus.Conn we use.
type bluezConn interface {
	Object(dest string, path dbus.ObjectPath) dbus.BusObject
	Close() error
}

// BluezAdapter controls the adapter through bluetoothd on the system bus.
// Used on hosts where hciconfig is no longer packaged.
type BluezAdapter struct {
	connect func() (bluezConn, error)
}

// NewBluezAdapter creates a BlueZ-backed adapter controller.
func NewBluezAdapter() *BluezAdapter {
	return &BluezAdapter{
		connect: func() (bluezConn, error) {
			conn, err := dbus.ConnectSystemBus()
			if err != nil {
				return nil, err
			}
			return conn, nil
		},
	}
}

// adapterObjectPath converts "hci0" to "/org/bluez/hci0".
func adapterObjectPath(iface string) dbus.ObjectPath {
	return dbus.ObjectPath("/org/bluez/" + iface)
}

// CurrentAddress reads org.bluez.Adapter1.Address.
func (b *BluezAdapter) CurrentAddress(ctx context.Context, iface string) (domain.Address, error) {
	conn, err := b.connect()
	if err != nil {
		return "", fmt.Errorf("connect to system bus: %w", err)
	}
	defer conn.Close()

	obj := conn.Object(bluezBusName, adapterObjectPath(iface))
	var v dbus.Variant
	if err := obj.CallWithContext(ctx, bluezPropsIface+".Get", 0, bluezAdapter, "Address").Store(&v); err != nil {
		return "", fmt.Errorf("read %s address: %w", iface, err)
	}

	s, ok := v.Value().(string)
	if !ok {
		return "", fmt.Errorf("unexpected address type %s", v.Signature())
	}
	return domain.ParseAddress(s)
}

// SetPowered writes org.bluez.Adapter1.Powered.
func (b *BluezAdapter) SetPowered(ctx context.Context, iface string, on bool) error {
	conn, err := b.connect()
	if err != nil {
		return fmt.Errorf("connect to system bus: %w", err)
	}
	defer conn.Close()

	obj := conn.Object(bluezBusName, adapterObjectPath(iface))
	call := obj.CallWithContext(ctx, bluezPropsIface+".Set", 0, bluezAdapter, "Powered", dbus.MakeVariant(on))
	if call.Err != nil {
		return fmt.Errorf("set %s powered=%t: %w", iface, on, call.Err)
	}
	return nil
}

// Ensure BluezAdapter implements domain.AdapterController.
var _ domain.AdapterController = (*BluezAdapter)(nil)
