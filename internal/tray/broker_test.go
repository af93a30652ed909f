package tray

import (
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWatcher records watches and lets tests simulate owner loss. Like the
// real nameWatcher it carries a set of callbacks per address: one owner may
// back several registered identities.
type fakeWatcher struct {
	mu      sync.Mutex
	nextTok int
	onLost  map[string]map[int]func()
	stopped []string
}

func newFakeWatcher() *fakeWatcher {
	return &fakeWatcher{onLost: make(map[string]map[int]func())}
}

func (f *fakeWatcher) Watch(address string, onLost func()) (func(), error) {
	f.mu.Lock()
	set := f.onLost[address]
	if set == nil {
		set = make(map[int]func())
		f.onLost[address] = set
	}
	tok := f.nextTok
	f.nextTok++
	set[tok] = onLost
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		delete(f.onLost[address], tok)
		if len(f.onLost[address]) == 0 {
			delete(f.onLost, address)
		}
		f.stopped = append(f.stopped, address)
		f.mu.Unlock()
	}, nil
}

func (f *fakeWatcher) loseOwner(address string) {
	f.mu.Lock()
	set := f.onLost[address]
	onLost := make([]func(), 0, len(set))
	for _, fn := range set {
		onLost = append(onLost, fn)
	}
	f.mu.Unlock()
	for _, fn := range onLost {
		fn()
	}
}

func (f *fakeWatcher) watchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, set := range f.onLost {
		n += len(set)
	}
	return n
}

type recorded struct {
	signals      []string
	registered   []Identity
	unregistered []Identity
}

func newTestBroker(t *testing.T, w ownerWatcher) (*Broker, *recorded) {
	t.Helper()
	rec := &recorded{}
	b := NewBroker(w, Events{
		Registered:   func(id Identity) { rec.registered = append(rec.registered, id) },
		Unregistered: func(id Identity) { rec.unregistered = append(rec.unregistered, id) },
	}, zerolog.Nop())
	b.signal = func(member string, values ...interface{}) {
		rec.signals = append(rec.signals, member+":"+values[0].(string))
	}
	return b, rec
}

func TestBrokerRegister(t *testing.T) {
	w := newFakeWatcher()
	b, rec := newTestBroker(t, w)

	require.NoError(t, b.Register(":1.42", "/com/example/item"))

	assert.Equal(t, []string{":1.42/com/example/item"}, b.RegisteredItems())
	assert.Equal(t, []string{"ItemRegistered::1.42/com/example/item"}, rec.signals)
	require.Len(t, rec.registered, 1)
	assert.Equal(t, Identity{Address: ":1.42", Path: "/com/example/item"}, rec.registered[0])
	assert.Equal(t, 1, w.watchCount(), "registration must carry a live watch")
}

func TestBrokerRegisterIdempotent(t *testing.T) {
	w := newFakeWatcher()
	b, rec := newTestBroker(t, w)

	require.NoError(t, b.Register(":1.42", "/com/example/item"))
	require.NoError(t, b.Register(":1.42", "/com/example/item"))

	assert.Len(t, b.RegisteredItems(), 1, "no duplicate entry")
	assert.Len(t, rec.signals, 1, "no second ItemRegistered")
	assert.Len(t, rec.registered, 1)
	assert.Equal(t, 1, w.watchCount())
}

func TestBrokerMalformedRegistrationIgnored(t *testing.T) {
	w := newFakeWatcher()
	b, rec := newTestBroker(t, w)

	assert.ErrorIs(t, b.Register("", ""), ErrBadRegistration)
	assert.Empty(t, b.RegisteredItems())
	assert.Empty(t, rec.signals)
	assert.Zero(t, w.watchCount())
}

func TestBrokerLivenessLoss(t *testing.T) {
	w := newFakeWatcher()
	b, rec := newTestBroker(t, w)

	require.NoError(t, b.Register(":1.42", "/com/example/item"))
	require.NoError(t, b.Register(":1.43", "com.example.Other"))

	w.loseOwner(":1.42")

	assert.Equal(t, []string{"com.example.Other/tray/item"}, b.RegisteredItems())
	assert.Equal(t, []string{
		"ItemRegistered::1.42/com/example/item",
		"ItemRegistered:com.example.Other/tray/item",
		"ItemUnregistered::1.42/com/example/item",
	}, rec.signals, "exactly one ItemUnregistered")
	require.Len(t, rec.unregistered, 1)
	assert.Equal(t, Identity{Address: ":1.42", Path: "/com/example/item"}, rec.unregistered[0])

	// The watch is disposed together with the entry.
	assert.Contains(t, w.stopped, ":1.42")
	assert.Equal(t, 1, w.watchCount())

	// A second loss of the same owner is a no-op.
	w.loseOwner(":1.42")
	assert.Len(t, rec.unregistered, 1)
}

func TestBrokerDistinctIdentitiesSameOwner(t *testing.T) {
	w := newFakeWatcher()
	b, _ := newTestBroker(t, w)

	require.NoError(t, b.Register(":1.42", "/com/example/one"))
	require.NoError(t, b.Register(":1.42", "/com/example/two"))

	assert.Len(t, b.RegisteredItems(), 2)
	assert.Equal(t, 2, w.watchCount(), "one watch per identity")
}

// Losing one owner must remove every identity registered from it. A single
// connection registering several paths is the normal multi-item case.
func TestBrokerSameOwnerLossRemovesAllItems(t *testing.T) {
	w := newFakeWatcher()
	b, rec := newTestBroker(t, w)

	require.NoError(t, b.Register(":1.42", "/com/example/one"))
	require.NoError(t, b.Register(":1.42", "/com/example/two"))
	require.NoError(t, b.Register(":1.43", ""))

	w.loseOwner(":1.42")

	assert.Equal(t, []string{":1.43/tray/item"}, b.RegisteredItems())
	require.Len(t, rec.unregistered, 2)
	assert.ElementsMatch(t, []Identity{
		{Address: ":1.42", Path: "/com/example/one"},
		{Address: ":1.42", Path: "/com/example/two"},
	}, rec.unregistered)
	assert.Equal(t, 1, w.watchCount(), "no dangling watches for the dead owner")
}

func TestBrokerShutdown(t *testing.T) {
	w := newFakeWatcher()
	b, rec := newTestBroker(t, w)

	require.NoError(t, b.Register(":1.42", "/com/example/item"))
	require.NoError(t, b.Register(":1.43", ""))

	b.Shutdown()

	assert.Empty(t, b.RegisteredItems())
	assert.Zero(t, w.watchCount(), "every watch stopped")
	assert.Len(t, rec.unregistered, 2, "mirrored indicators torn down")
}

func TestBrokerRegisteredItemsSorted(t *testing.T) {
	w := newFakeWatcher()
	b, _ := newTestBroker(t, w)

	require.NoError(t, b.Register(":1.9", ""))
	require.NoError(t, b.Register(":1.10", ""))
	require.NoError(t, b.Register(":1.2", ""))

	assert.Equal(t, []string{":1.10/tray/item", ":1.2/tray/item", ":1.9/tray/item"},
		b.RegisteredItems())
}
