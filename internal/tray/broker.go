// Package tray hosts the item-registration broker and the indicator proxy
// that mirrors this application's own tray item.
package tray

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ownerWatcher tracks bus-name liveness. Watch installs an observer for one
// address and returns a disposer; onLost runs once when the address loses
// its owner. The indirection keeps the registry testable without a bus.
type ownerWatcher interface {
	Watch(address string, onLost func()) (stop func(), err error)
}

// registration pairs one identity with its liveness watch. The two are
// created and destroyed together; a stored registration never dangles
// without an active watch.
type registration struct {
	identity     Identity
	registeredAt time.Time
	stop         func()
}

// Events receives local notifications about registry changes. The indicator
// proxy uses them to decide what to mirror.
type Events struct {
	Registered   func(Identity)
	Unregistered func(Identity)
}

// Broker owns the registered-identity table. It implements the tray.Watcher
// registration protocol when exported on a connection (see ExportBroker);
// the table itself is plain owned state with documented init/teardown, no
// ambient globals.
type Broker struct {
	watcher ownerWatcher
	events  Events
	log     zerolog.Logger

	// signal broadcasts a watcher signal on the bus; injected by
	// ExportBroker, a no-op until then.
	signal func(member string, values ...interface{})

	mu    sync.Mutex
	items map[string]*registration
}

// NewBroker creates an empty registry using the given liveness watcher.
func NewBroker(watcher ownerWatcher, events Events, log zerolog.Logger) *Broker {
	return &Broker{
		watcher: watcher,
		events:  events,
		log:     log,
		signal:  func(string, ...interface{}) {},
		items:   make(map[string]*registration),
	}
}

// Register derives the item identity and stores it with a liveness watch.
// Re-registering an existing identity is idempotent: no duplicate entry and
// no second ItemRegistered.
func (b *Broker) Register(sender, service string) error {
	id, err := DeriveIdentity(sender, service)
	if err != nil {
		return err
	}
	key := id.String()

	b.mu.Lock()
	if _, ok := b.items[key]; ok {
		b.mu.Unlock()
		b.log.Debug().Str("item", key).Msg("Item already registered")
		return nil
	}
	b.mu.Unlock()

	// Start the watch before committing the entry so a stored
	// registration is always backed by a live watch.
	stop, err := b.watcher.Watch(id.Address, func() { b.unregister(key) })
	if err != nil {
		return err
	}

	b.mu.Lock()
	if _, ok := b.items[key]; ok {
		// Lost the race with a concurrent registration of the same
		// identity; keep the first watch.
		b.mu.Unlock()
		stop()
		return nil
	}
	b.items[key] = &registration{identity: id, registeredAt: time.Now(), stop: stop}
	b.mu.Unlock()

	b.log.Info().Str("item", key).Msg("Tray item registered")
	b.signal(SignalItemRegistered, key)
	if b.events.Registered != nil {
		b.events.Registered(id)
	}
	return nil
}

// unregister removes one identity after liveness loss.
func (b *Broker) unregister(key string) {
	b.mu.Lock()
	reg, ok := b.items[key]
	if ok {
		delete(b.items, key)
	}
	b.mu.Unlock()

	if !ok {
		return
	}
	reg.stop()

	b.log.Info().Str("item", key).Msg("Tray item unregistered")
	b.signal(SignalItemUnregistered, key)
	if b.events.Unregistered != nil {
		b.events.Unregistered(reg.identity)
	}
}

// RegisteredItems lists the current identities in stable order.
func (b *Broker) RegisteredItems() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	keys := make([]string, 0, len(b.items))
	for key := range b.items {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Shutdown stops every watch and drops the table. Unregistered callbacks
// fire so mirrored indicators tear down with the broker.
func (b *Broker) Shutdown() {
	b.mu.Lock()
	regs := make([]*registration, 0, len(b.items))
	for _, reg := range b.items {
		regs = append(regs, reg)
	}
	b.items = make(map[string]*registration)
	b.mu.Unlock()

	for _, reg := range regs {
		reg.stop()
		if b.events.Unregistered != nil {
			b.events.Unregistered(reg.identity)
		}
	}
}
