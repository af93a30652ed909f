package tray

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog"
)

// Item endpoint, served by the application that owns the tray item.
const (
	ItemInterface = "tray.Item"

	propID       = ItemInterface + ".Id"
	propTitle    = ItemInterface + ".Title"
	propIconName = ItemInterface + ".IconName"
	propMenu     = ItemInterface + ".Menu"
)

// IconKind distinguishes file-backed icons from theme lookups.
type IconKind int

const (
	IconTheme IconKind = iota
	IconFile
)

// Icon is a resolved indicator icon.
type Icon struct {
	Kind  IconKind
	Value string
}

// ResolveIcon classifies an IconName property value: an absolute path that
// exists on disk loads as a file-backed icon, anything else resolves
// through the icon theme.
func ResolveIcon(name string, exists func(string) bool) Icon {
	if filepath.IsAbs(name) && exists(name) {
		return Icon{Kind: IconFile, Value: name}
	}
	return Icon{Kind: IconTheme, Value: name}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Renderer is the shell-toolkit half of the indicator: it draws whatever
// the proxy mirrors. The toolkit is an external collaborator, so the proxy
// only ever hands it resolved icons and freshly rebuilt menu trees.
type Renderer interface {
	SetIcon(icon Icon)
	SetMenu(root *MenuNode)
	Remove()
}

// Proxy mirrors at most one registered identity: the one whose Id or Title
// matches the expected application id. All other identities stay registered
// in the broker but unrendered.
type Proxy struct {
	conn     *dbus.Conn
	appID    string
	renderer Renderer
	log      zerolog.Logger

	mu     sync.Mutex
	active *Identity
	menu   *menuClient
}

// NewProxy creates an indicator proxy and starts listening for layout
// notifications.
func NewProxy(conn *dbus.Conn, appID string, renderer Renderer, log zerolog.Logger) *Proxy {
	p := &Proxy{
		conn:     conn,
		appID:    appID,
		renderer: renderer,
		log:      log,
	}

	ch := make(chan *dbus.Signal, 16)
	conn.Signal(ch)
	go p.signalLoop(ch)

	return p
}

// Offer considers a newly registered identity for mirroring. Fetches run on
// the caller's goroutine, never under the broker mutex.
func (p *Proxy) Offer(id Identity) {
	p.mu.Lock()
	busy := p.active != nil
	p.mu.Unlock()
	if busy {
		return
	}

	obj := p.conn.Object(id.Address, id.Path)
	if !p.matches(obj) {
		p.log.Debug().Str("item", id.String()).Msg("Item left unrendered")
		return
	}

	iconName := ""
	if v, err := obj.GetProperty(propIconName); err == nil {
		v.Store(&iconName)
	}

	var menuPath dbus.ObjectPath
	if v, err := obj.GetProperty(propMenu); err == nil {
		v.Store(&menuPath)
	}
	if !menuPath.IsValid() {
		p.log.Warn().Str("item", id.String()).Msg("Item has no menu provider")
		return
	}

	p.mu.Lock()
	if p.active != nil {
		p.mu.Unlock()
		return
	}
	active := id
	p.active = &active
	p.menu = newMenuClient(p.conn, id.Address, menuPath)
	p.mu.Unlock()

	if err := p.conn.AddMatchSignal(layoutMatchOpts(id.Address)...); err != nil {
		p.log.Warn().Err(err).Msg("Layout subscription failed")
	}

	p.log.Info().Str("item", id.String()).Msg("Mirroring tray item")
	p.renderer.SetIcon(ResolveIcon(iconName, fileExists))
	p.rebuild()
}

// matches checks the identity filter against the reported Id and Title.
func (p *Proxy) matches(obj dbus.BusObject) bool {
	for _, prop := range []string{propID, propTitle} {
		v, err := obj.GetProperty(prop)
		if err != nil {
			continue
		}
		var s string
		if v.Store(&s) == nil && s == p.appID {
			return true
		}
	}
	return false
}

// Drop tears the mirrored indicator down when its identity unregisters.
// Other identities are ignored. The layout subscription is removed with the
// indicator so match rules do not pile up across register/unregister cycles.
func (p *Proxy) Drop(id Identity) {
	p.mu.Lock()
	if p.active == nil || *p.active != id {
		p.mu.Unlock()
		return
	}
	p.active = nil
	p.menu = nil
	p.mu.Unlock()

	if err := p.conn.RemoveMatchSignal(layoutMatchOpts(id.Address)...); err != nil {
		p.log.Debug().Err(err).Msg("Layout match removal failed")
	}

	p.log.Info().Str("item", id.String()).Msg("Indicator removed")
	p.renderer.Remove()
}

func layoutMatchOpts(address string) []dbus.MatchOption {
	return []dbus.MatchOption{
		dbus.WithMatchInterface(MenuInterface),
		dbus.WithMatchMember("LayoutUpdated"),
		dbus.WithMatchSender(address),
	}
}

// Activate sends the clicked event for a menu entry back to the provider.
// Local state is never updated optimistically; the next layout notification
// is the sole source of truth.
func (p *Proxy) Activate(menuID int32) {
	p.mu.Lock()
	menu := p.menu
	p.mu.Unlock()
	if menu == nil {
		return
	}

	if err := menu.activate(menuID, uint32(time.Now().Unix())); err != nil {
		p.log.Warn().Err(err).Int32("entry", menuID).Msg("Activation dropped")
	}
}

// rebuild fetches the full layout and replaces the rendered tree wholesale.
// Failure mid-open leaves the current menu stale until the next successful
// notification; it is never surfaced as a user-facing error.
func (p *Proxy) rebuild() {
	p.mu.Lock()
	menu := p.menu
	p.mu.Unlock()
	if menu == nil {
		return
	}

	revision, root, err := menu.fetchLayout()
	if err != nil {
		p.log.Warn().Err(err).Msg("Menu left stale")
		return
	}

	p.renderer.SetMenu(root)
	p.log.Debug().Uint32("revision", revision).Msg("Menu rebuilt")
}

func (p *Proxy) signalLoop(ch chan *dbus.Signal) {
	for sig := range ch {
		if sig.Name != SignalLayoutUpdated {
			continue
		}
		p.rebuild()
	}
}
