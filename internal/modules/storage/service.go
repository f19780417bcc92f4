package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/georgemunganga/printa-storefront/internal/logger"
)

const defaultPersistTimeout = 5 * time.Second

// Adapter reads and writes versioned slots on a Backend. Loads never fail and
// saves never block: storage problems only ever cost durability, never state.
type Adapter struct {
	backend Backend
	log     *logger.Logger
	now     func() time.Time
	timeout time.Duration
	p       *persister
}

type Option func(*Adapter)

// WithPersistTimeout bounds every background write.
func WithPersistTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithClock overrides the saved_at timestamp source.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) { a.now = now }
}

func NewAdapter(backend Backend, log *logger.Logger, opts ...Option) *Adapter {
	if log == nil {
		log = logger.Nop()
	}
	a := &Adapter{
		backend: backend,
		log:     log.With("component", "storage"),
		now:     time.Now,
		timeout: defaultPersistTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.p = newPersister(backend, a.log, a.timeout)
	return a
}

// Load returns the slot stored under key. Absent, unreadable and unparsable
// slots all come back as (Slot{}, false).
func (a *Adapter) Load(ctx context.Context, key string) (Slot, bool) {
	slot, ok, err := a.Fetch(ctx, key)
	if err != nil {
		a.log.Warn("load failed, starting empty", "key", key, "error", err)
		return Slot{}, false
	}
	return slot, ok
}

// Fetch is Load for callers that must not mistake an outage for an empty
// slot: it returns an error only when the backend could not be read. Absent
// and corrupted slots are still (Slot{}, false, nil).
func (a *Adapter) Fetch(ctx context.Context, key string) (Slot, bool, error) {
	raw, err := a.backend.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return Slot{}, false, nil
	}
	if err != nil {
		return Slot{}, false, fmt.Errorf("read slot %s: %w", key, err)
	}
	slot, err := decodeSlot(raw)
	if err != nil {
		a.log.Warn("slot is corrupted, starting empty", "key", key, "error", err)
		return Slot{}, false, nil
	}
	return slot, true, nil
}

// Save schedules a write of value under key. The value is serialized before
// Save returns, so the caller may keep mutating its own state.
func (a *Adapter) Save(key string, version int, value any) {
	a.SaveAll(Entry{Key: key, Version: version, Value: value})
}

// SaveAll schedules the entries as one atomic backend write.
func (a *Adapter) SaveAll(entries ...Entry) {
	if len(entries) == 0 {
		return
	}
	if a.p.stopped() {
		a.log.Warn("save after close dropped", "entries", len(entries))
		return
	}
	now := a.now()
	batch := make(map[string][]byte, len(entries))
	for _, e := range entries {
		raw, err := encodeSlot(e.Version, now, e.Value)
		if err != nil {
			a.log.Error("encode slot failed", "key", e.Key, "error", err)
			continue
		}
		batch[e.Key] = raw
	}
	if len(batch) > 0 {
		a.p.enqueue(batch)
	}
}

// Flush waits until every save scheduled so far has been tried once. Failed
// writes stay queued and keep being retried in the background.
func (a *Adapter) Flush(ctx context.Context) error {
	return a.p.flush(ctx)
}

// Pending reports whether a write of key is still waiting for the backend,
// either not yet attempted or queued for retry.
func (a *Adapter) Pending(key string) bool {
	return a.p.isPending(key)
}

// Close drains pending writes, stops the writer and closes the backend.
func (a *Adapter) Close(ctx context.Context) error {
	if err := a.p.stop(ctx); err != nil {
		return err
	}
	return a.backend.Close()
}

var (
	_ Loader     = (*Adapter)(nil)
	_ Fetcher    = (*Adapter)(nil)
	_ Saver      = (*Adapter)(nil)
	_ BatchSaver = (*Adapter)(nil)
)
