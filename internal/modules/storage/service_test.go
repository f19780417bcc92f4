package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	Name string  `json:"name"`
	Qty  int     `json:"qty"`
	Cost float64 `json:"cost"`
}

// flakyBackend wraps a MemoryBackend and can be told to fail.
type flakyBackend struct {
	*MemoryBackend
	mu       sync.Mutex
	failGet  bool
	failPut  bool
	putCalls int
}

func (b *flakyBackend) Get(ctx context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	fail := b.failGet
	b.mu.Unlock()
	if fail {
		return nil, errors.New("storage unavailable")
	}
	return b.MemoryBackend.Get(ctx, key)
}

func (b *flakyBackend) Put(ctx context.Context, entries map[string][]byte) error {
	b.mu.Lock()
	b.putCalls++
	fail := b.failPut
	b.mu.Unlock()
	if fail {
		return errors.New("quota exceeded")
	}
	return b.MemoryBackend.Put(ctx, entries)
}

func newTestAdapter(t *testing.T, b Backend) *Adapter {
	t.Helper()
	a := NewAdapter(b, nil, WithPersistTimeout(time.Second))
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a
}

func flush(t *testing.T, a *Adapter) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, a.Flush(ctx))
}

func TestAdapter_SaveThenLoadRoundTrip(t *testing.T) {
	a := newTestAdapter(t, NewMemoryBackend())
	want := []item{{Name: "mug", Qty: 2, Cost: 249.5}, {Name: "tee", Qty: 1, Cost: 799}}

	a.Save("slot", 1, want)
	flush(t, a)

	slot, ok := a.Load(context.Background(), "slot")
	require.True(t, ok)
	assert.Equal(t, 1, slot.Version)
	assert.False(t, slot.SavedAt.IsZero())

	var got []item
	require.NoError(t, decodeJSON(slot.Data, &got))
	assert.Equal(t, want, got)
}

func TestAdapter_LoadMissingSlot(t *testing.T) {
	a := newTestAdapter(t, NewMemoryBackend())
	slot, ok := a.Load(context.Background(), "nothing-here")
	assert.False(t, ok)
	assert.Equal(t, Slot{}, slot)
}

func TestAdapter_LoadCorruptedSlot(t *testing.T) {
	b := NewMemoryBackend()
	require.NoError(t, b.Put(context.Background(), map[string][]byte{"slot": []byte("{not json")}))
	a := newTestAdapter(t, b)

	_, ok := a.Load(context.Background(), "slot")
	assert.False(t, ok)
}

func TestAdapter_LoadUnavailableBackend(t *testing.T) {
	b := &flakyBackend{MemoryBackend: NewMemoryBackend(), failGet: true}
	a := newTestAdapter(t, b)

	_, ok := a.Load(context.Background(), "slot")
	assert.False(t, ok)
}

func TestAdapter_LoadLegacyBareValue(t *testing.T) {
	b := NewMemoryBackend()
	legacy := `[{"product":{"id":"p1","title":"Mug","price":250},"qty":2}]`
	require.NoError(t, b.Put(context.Background(), map[string][]byte{"shop_cart_v1": []byte(legacy)}))
	a := newTestAdapter(t, b)

	slot, ok := a.Load(context.Background(), "shop_cart_v1")
	require.True(t, ok)
	assert.Equal(t, LegacyVersion, slot.Version)
	assert.JSONEq(t, legacy, string(slot.Data))
}

func TestAdapter_SaveFailureIsSwallowed(t *testing.T) {
	b := &flakyBackend{MemoryBackend: NewMemoryBackend(), failPut: true}
	a := newTestAdapter(t, b)

	assert.NotPanics(t, func() { a.Save("slot", 1, []item{{Name: "x", Qty: 1}}) })
	flush(t, a)

	_, ok := a.Load(context.Background(), "slot")
	assert.False(t, ok)

	// Once storage recovers the next save lands.
	b.mu.Lock()
	b.failPut = false
	b.mu.Unlock()
	a.Save("slot", 1, []item{{Name: "y", Qty: 3}})
	flush(t, a)

	slot, ok := a.Load(context.Background(), "slot")
	require.True(t, ok)
	var got []item
	require.NoError(t, decodeJSON(slot.Data, &got))
	assert.Equal(t, []item{{Name: "y", Qty: 3}}, got)
}

func TestAdapter_UnencodableValueIsDropped(t *testing.T) {
	a := newTestAdapter(t, NewMemoryBackend())
	a.Save("bad", 1, map[string]any{"ch": make(chan int)})
	flush(t, a)

	_, ok := a.Load(context.Background(), "bad")
	assert.False(t, ok)
}

func TestAdapter_LatestSaveWins(t *testing.T) {
	a := newTestAdapter(t, NewMemoryBackend())
	for i := 1; i <= 50; i++ {
		a.Save("counter", 1, i)
	}
	flush(t, a)

	slot, ok := a.Load(context.Background(), "counter")
	require.True(t, ok)
	var got int
	require.NoError(t, decodeJSON(slot.Data, &got))
	assert.Equal(t, 50, got)
}

func TestAdapter_SaveAllLandsTogether(t *testing.T) {
	b := &flakyBackend{MemoryBackend: NewMemoryBackend()}
	a := newTestAdapter(t, b)

	a.SaveAll(Entry{Key: "a", Version: 1, Value: "A"}, Entry{Key: "b", Version: 2, Value: "B"})
	flush(t, a)

	b.mu.Lock()
	calls := b.putCalls
	b.mu.Unlock()
	assert.Equal(t, 1, calls)

	sa, ok := a.Load(context.Background(), "a")
	require.True(t, ok)
	sb, ok := a.Load(context.Background(), "b")
	require.True(t, ok)
	assert.Equal(t, 1, sa.Version)
	assert.Equal(t, 2, sb.Version)
}

func TestAdapter_CloseDrainsPendingWrites(t *testing.T) {
	b := NewMemoryBackend()
	a := NewAdapter(b, nil)
	a.Save("slot", 1, "bye")
	require.NoError(t, a.Close(context.Background()))

	raw, err := b.Get(context.Background(), "slot")
	require.NoError(t, err)
	slot, err := decodeSlot(raw)
	require.NoError(t, err)
	assert.JSONEq(t, `"bye"`, string(slot.Data))

	// Saving after close is dropped quietly and Flush returns immediately.
	a.Save("late", 1, "x")
	require.NoError(t, a.Flush(context.Background()))
	_, err = b.Get(context.Background(), "late")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDecodeSlot_EnvelopeWithNullData(t *testing.T) {
	slot, err := decodeSlot([]byte(`{"version":1,"saved_at":"2024-01-02T03:04:05Z","data":null}`))
	require.NoError(t, err)
	assert.Equal(t, 1, slot.Version)
	assert.Equal(t, "null", string(slot.Data))
}

func TestDecodeSlot_ObjectWithoutVersionIsLegacy(t *testing.T) {
	slot, err := decodeSlot([]byte(`{"items":[]}`))
	require.NoError(t, err)
	assert.Equal(t, LegacyVersion, slot.Version)
}

func (b *flakyBackend) setFailPut(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failPut = fail
}

func TestAdapter_FailedBatchRetriedWithLaterSaves(t *testing.T) {
	b := &flakyBackend{MemoryBackend: NewMemoryBackend(), failPut: true}
	a := newTestAdapter(t, b)

	a.SaveAll(Entry{Key: "orders", Version: 1, Value: []string{"ORD1"}}, Entry{Key: "cart", Version: 1, Value: []string{}})
	flush(t, a)
	_, ok := a.Load(context.Background(), "orders")
	require.False(t, ok)

	b.setFailPut(false)
	a.Save("cart", 1, []string{"mug"})
	flush(t, a)

	orders, ok := a.Load(context.Background(), "orders")
	require.True(t, ok, "the failed order write is not lost when only the cart is saved again")
	assert.JSONEq(t, `["ORD1"]`, string(orders.Data))

	cart, ok := a.Load(context.Background(), "cart")
	require.True(t, ok)
	assert.JSONEq(t, `["mug"]`, string(cart.Data), "the newer cart wins over the retried one")
}

func TestAdapter_RetriesInBackground(t *testing.T) {
	b := &flakyBackend{MemoryBackend: NewMemoryBackend(), failPut: true}
	a := newTestAdapter(t, b)

	a.Save("slot", 1, "v")
	flush(t, a)
	b.setFailPut(false)

	assert.Eventually(t, func() bool {
		_, err := b.MemoryBackend.Get(context.Background(), "slot")
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
}

func TestAdapter_FetchTellsOutageFromAbsence(t *testing.T) {
	b := &flakyBackend{MemoryBackend: NewMemoryBackend()}
	require.NoError(t, b.MemoryBackend.Put(context.Background(), map[string][]byte{"bad": []byte("{nope")}))
	a := newTestAdapter(t, b)

	_, ok, err := a.Fetch(context.Background(), "missing")
	assert.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = a.Fetch(context.Background(), "bad")
	assert.NoError(t, err)
	assert.False(t, ok)

	b.mu.Lock()
	b.failGet = true
	b.mu.Unlock()
	_, ok, err = a.Fetch(context.Background(), "missing")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestNextBackoff(t *testing.T) {
	assert.Equal(t, retryMin, nextBackoff(0))
	assert.Equal(t, 2*retryMin, nextBackoff(retryMin))
	assert.Equal(t, retryMax, nextBackoff(retryMax))
}

func TestAdapter_PendingUntilWritten(t *testing.T) {
	b := &flakyBackend{MemoryBackend: NewMemoryBackend(), failPut: true}
	a := newTestAdapter(t, b)

	assert.False(t, a.Pending("slot"))
	a.Save("slot", 1, "v")
	flush(t, a)
	assert.True(t, a.Pending("slot"), "a failed write stays queued")

	b.setFailPut(false)
	flush(t, a)
	assert.False(t, a.Pending("slot"))
}
