package shop

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/georgemunganga/printa-storefront/internal/logger"
	"github.com/georgemunganga/printa-storefront/internal/modules/cart"
	"github.com/georgemunganga/printa-storefront/internal/modules/order"
	"github.com/georgemunganga/printa-storefront/internal/modules/storage"
)

const (
	defaultIdleTTL        = 30 * time.Minute
	defaultRestoreTimeout = 5 * time.Second
)

// Store is the persistence the registry needs; *storage.Adapter satisfies it.
type Store interface {
	storage.Fetcher
	storage.BatchSaver
	Flush(ctx context.Context) error
	Pending(key string) bool
}

type entry struct {
	session  *Session
	active   int
	lastSeen time.Time
}

// Registry hands out sessions by shopper id, restoring each from storage the
// first time it is asked for. Slot keys are namespaced as "<id>/<slot>".
// All ledgers share one id generator so order ids are unique process-wide.
// Sessions idle for longer than the TTL are dropped once their slots are
// durable; the next request restores them again.
type Registry struct {
	store          Store
	ids            *order.IDGenerator
	log            *logger.Logger
	now            func() time.Time
	idleTTL        time.Duration
	restoreTimeout time.Duration

	group singleflight.Group

	mu       sync.Mutex
	sessions map[string]*entry
}

type Option func(*Registry)

// WithIdleTTL sets how long an unused session stays in memory.
func WithIdleTTL(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.idleTTL = d
		}
	}
}

// WithClock overrides the idle clock.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func NewRegistry(store Store, ids *order.IDGenerator, log *logger.Logger, opts ...Option) *Registry {
	if ids == nil {
		ids = order.NewIDGenerator(nil)
	}
	if log == nil {
		log = logger.Nop()
	}
	r := &Registry{
		store:          store,
		ids:            ids,
		log:            log.With("component", "shop"),
		now:            time.Now,
		idleTTL:        defaultIdleTTL,
		restoreTimeout: defaultRestoreTimeout,
		sessions:       make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Acquire returns the session for id, restoring it from storage if it is not
// in memory, and a release func the caller must call when done with it. A
// storage outage is returned as an error and nothing is cached, so a later
// call tries again instead of serving an empty history.
func (r *Registry) Acquire(ctx context.Context, id string) (*Session, func(), error) {
	for {
		if s, release, ok := r.acquireCached(id); ok {
			return s, release, nil
		}
		// Shoppers share no lock while one of them waits on storage.
		_, err, _ := r.group.Do(id, func() (interface{}, error) {
			if r.cached(id) {
				return nil, nil
			}
			// The restore outlives a disconnecting client; other callers may be waiting on it.
			rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.restoreTimeout)
			defer cancel()
			s, err := r.restore(rctx, id)
			if err != nil {
				return nil, err
			}
			r.insert(s)
			return nil, nil
		})
		if err != nil {
			r.log.Warn("session restore failed", "session", id, "error", err)
			return nil, nil, err
		}
	}
}

// Open creates an empty session for an id that was just issued and so has
// nothing in storage.
func (r *Registry) Open(id string) (*Session, func()) {
	for {
		if s, release, ok := r.acquireCached(id); ok {
			return s, release
		}
		r.insert(r.newSession(id))
	}
}

// Sweep drops sessions that have been idle for the TTL and whose slots have
// reached storage. It returns the number of sessions dropped.
func (r *Registry) Sweep(ctx context.Context) int {
	now := r.now()
	candidates := make(map[string]time.Time)
	r.mu.Lock()
	for id, e := range r.sessions {
		if e.active == 0 && now.Sub(e.lastSeen) >= r.idleTTL {
			candidates[id] = e.lastSeen
		}
	}
	r.mu.Unlock()
	if len(candidates) == 0 {
		return 0
	}

	if err := r.store.Flush(ctx); err != nil {
		r.log.Warn("sweep flush failed", "error", err)
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	dropped := 0
	for id, seen := range candidates {
		e, ok := r.sessions[id]
		if !ok || e.active > 0 || !e.lastSeen.Equal(seen) {
			continue
		}
		if r.store.Pending(SlotKey(id, cart.SlotKey)) || r.store.Pending(SlotKey(id, order.SlotKey)) {
			continue
		}
		delete(r.sessions, id)
		dropped++
	}
	if dropped > 0 {
		r.log.Debug("idle sessions dropped", "count", dropped, "remaining", len(r.sessions))
	}
	return dropped
}

// Run sweeps idle sessions until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(max(r.idleTTL/2, time.Second))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) acquireCached(id string) (*Session, func(), bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, nil, false
	}
	e.active++
	e.lastSeen = r.now()

	var once sync.Once
	release := func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			e.active--
			e.lastSeen = r.now()
		})
	}
	return e.session, release, true
}

func (r *Registry) cached(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[id]
	return ok
}

func (r *Registry) insert(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.ID]; !ok {
		r.sessions[s.ID] = &entry{session: s, lastSeen: r.now()}
	}
}

func (r *Registry) newSession(id string) *Session {
	uow := storage.NewUnitOfWork(r.store)
	log := r.log.With("session", id)
	return &Session{
		ID:     id,
		Cart:   cart.NewStore(SlotKey(id, cart.SlotKey), uow, log),
		Orders: order.NewLedger(SlotKey(id, order.SlotKey), uow, r.ids, log),
		uow:    uow,
	}
}

func (r *Registry) restore(ctx context.Context, id string) (*Session, error) {
	s := r.newSession(id)
	lines, err := s.Cart.Restore(ctx, r.store)
	if err != nil {
		return nil, fmt.Errorf("restore cart: %w", err)
	}
	orders, err := s.Orders.Restore(ctx, r.store)
	if err != nil {
		return nil, fmt.Errorf("restore orders: %w", err)
	}
	r.log.Debug("session restored", "session", id, "cart_lines", lines, "orders", orders)
	return s, nil
}

// SlotKey namespaces a store slot by shopper.
func SlotKey(sessionID, slot string) string {
	return sessionID + "/" + slot
}
