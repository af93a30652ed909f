package tray

import (
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog"
)

// nameWatcher implements ownerWatcher over NameOwnerChanged. One owner
// address may carry several watches (one per registered identity), so
// callbacks are held in a per-address set; the bus match rule is installed
// with the first watch on an address and removed with the last. A single
// dispatch loop fans owner losses out to every registered cleanup closure.
type nameWatcher struct {
	log zerolog.Logger

	// addMatch/removeMatch manage the per-address bus match rule.
	addMatch    func(address string) error
	removeMatch func(address string) error

	mu      sync.Mutex
	nextTok int
	watches map[string]map[int]func()
}

// NewNameWatcher starts the dispatch loop on the given connection.
func NewNameWatcher(conn *dbus.Conn, log zerolog.Logger) ownerWatcher {
	w := &nameWatcher{
		log: log,
		addMatch: func(address string) error {
			return conn.AddMatchSignal(matchOpts(address)...)
		},
		removeMatch: func(address string) error {
			return conn.RemoveMatchSignal(matchOpts(address)...)
		},
		watches: make(map[string]map[int]func()),
	}

	ch := make(chan *dbus.Signal, 16)
	conn.Signal(ch)
	go w.loop(ch)

	return w
}

func matchOpts(address string) []dbus.MatchOption {
	return []dbus.MatchOption{
		dbus.WithMatchSender("org.freedesktop.DBus"),
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
		dbus.WithMatchArg(0, address),
	}
}

func (w *nameWatcher) Watch(address string, onLost func()) (func(), error) {
	w.mu.Lock()
	set, exists := w.watches[address]
	if !exists {
		set = make(map[int]func())
		w.watches[address] = set
	}
	tok := w.nextTok
	w.nextTok++
	set[tok] = onLost
	w.mu.Unlock()

	if !exists {
		if err := w.addMatch(address); err != nil {
			w.mu.Lock()
			delete(set, tok)
			if len(set) == 0 {
				delete(w.watches, address)
			}
			w.mu.Unlock()
			return nil, fmt.Errorf("watch %s: %w", address, err)
		}
	}

	stop := func() {
		w.mu.Lock()
		set, ok := w.watches[address]
		if ok {
			delete(set, tok)
		}
		last := ok && len(set) == 0
		if last {
			delete(w.watches, address)
		}
		w.mu.Unlock()

		if last {
			if err := w.removeMatch(address); err != nil {
				w.log.Debug().Err(err).Str("address", address).Msg("Match removal failed")
			}
		}
	}
	return stop, nil
}

func (w *nameWatcher) loop(ch chan *dbus.Signal) {
	for sig := range ch {
		if sig.Name != "org.freedesktop.DBus.NameOwnerChanged" || len(sig.Body) != 3 {
			continue
		}
		name, _ := sig.Body[0].(string)
		newOwner, _ := sig.Body[2].(string)
		if newOwner != "" {
			continue
		}
		w.ownerLost(name)
	}
}

// ownerLost fires every cleanup closure registered for the address. The
// closures unregister through the broker, which calls back into stop; the
// snapshot keeps that re-entry off the lock.
func (w *nameWatcher) ownerLost(address string) {
	w.mu.Lock()
	set := w.watches[address]
	onLost := make([]func(), 0, len(set))
	for _, f := range set {
		onLost = append(onLost, f)
	}
	w.mu.Unlock()

	if len(onLost) == 0 {
		return
	}
	w.log.Debug().Str("address", address).Int("watches", len(onLost)).Msg("Owner lost")
	for _, f := range onLost {
		f()
	}
}
