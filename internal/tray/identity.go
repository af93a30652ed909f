package tray

import (
	"errors"
	"strings"

	"github.com/godbus/dbus/v5"
)

// DefaultItemPath is assumed when a registration supplies only a bus name.
const DefaultItemPath = dbus.ObjectPath("/tray/item")

// ErrBadRegistration marks a service/path combination no item proxy could
// ever talk to. The broker logs it and moves on; registration errors never
// crash the host.
var ErrBadRegistration = errors.New("unusable registration")

// Identity uniquely names one registered tray item: the bus address owning
// it plus the object path the item lives at.
type Identity struct {
	Address string
	Path    dbus.ObjectPath
}

// String renders the wire form used in ItemRegistered/ItemUnregistered and
// the RegisteredItems property.
func (id Identity) String() string {
	return id.Address + string(id.Path)
}

// DeriveIdentity resolves a registration argument against its caller. An
// absolute-path argument names an object on the caller's own connection, so
// it pairs with the caller's unique address; anything else is taken as the
// owning name itself with the conventional item path. An empty argument
// falls back to the caller's unique address.
func DeriveIdentity(sender, service string) (Identity, error) {
	switch {
	case strings.HasPrefix(service, "/"):
		path := dbus.ObjectPath(service)
		if sender == "" || !path.IsValid() {
			return Identity{}, ErrBadRegistration
		}
		return Identity{Address: sender, Path: path}, nil

	case service != "":
		return Identity{Address: service, Path: DefaultItemPath}, nil

	case sender != "":
		return Identity{Address: sender, Path: DefaultItemPath}, nil

	default:
		return Identity{}, ErrBadRegistration
	}
}
