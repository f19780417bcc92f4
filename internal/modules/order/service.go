package order

import (
	"context"
	"iter"
	"strings"
	"sync"
	"time"

	"github.com/georgemunganga/printa-storefront/internal/logger"
	"github.com/georgemunganga/printa-storefront/internal/modules/cart"
	"github.com/georgemunganga/printa-storefront/internal/modules/storage"
)

// Ledger is one shopper's order history, newest first. Every change is
// persisted as a whole through the saver; saves are never awaited.
type Ledger struct {
	mu     sync.Mutex
	key    string
	saver  storage.Saver
	ids    *IDGenerator
	now    func() time.Time
	log    *logger.Logger
	orders []Order
}

type Option func(*Ledger)

// WithClock overrides the created_at source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// NewLedger creates an empty ledger persisted under key. A nil saver keeps it in
// memory only; a nil ids gets a private generator.
func NewLedger(key string, saver storage.Saver, ids *IDGenerator, log *logger.Logger, opts ...Option) *Ledger {
	if ids == nil {
		ids = NewIDGenerator(nil)
	}
	if log == nil {
		log = logger.Nop()
	}
	l := &Ledger{
		key:   key,
		saver: saver,
		ids:   ids,
		now:   time.Now,
		log:   log.With("component", "orders", "slot", key),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Restore replaces the ledger with what is stored under its key and returns the
// number of orders loaded. Missing or unusable data leaves it empty. A backend
// failure is returned and leaves the ledger untouched.
func (l *Ledger) Restore(ctx context.Context, fetcher storage.Fetcher) (int, error) {
	slot, ok, err := fetcher.Fetch(ctx, l.key)
	if err != nil {
		return 0, err
	}
	var orders []Order
	if ok {
		decoded, err := decodeSlot(slot)
		if err != nil {
			l.log.Warn("discarding unreadable orders", "error", err)
		} else {
			orders = decoded
		}
	}
	for _, o := range orders {
		l.ids.Observe(o.ID)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.orders = orders
	return len(orders), nil
}

// PlaceOrder freezes lines into a new Pending order at the front of the ledger.
// It fails with ErrEmptyCart, leaving the ledger untouched, when lines is empty.
// Clearing the cart is up to the caller; see cart.Store.CheckoutWith.
func (l *Ledger) PlaceOrder(lines []cart.Line) (Order, error) {
	if len(lines) == 0 {
		return Order{}, ErrEmptyCart
	}

	o := Order{
		Items:  make([]LineItem, 0, len(lines)),
		Status: StatusPending,
	}
	for _, line := range lines {
		it := LineItem{Title: line.Title, Quantity: line.Quantity, UnitPrice: line.Price}
		o.Items = append(o.Items, it)
		o.Total += it.Subtotal()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	o.ID = l.ids.Next()
	o.CreatedAt = l.now().UTC()
	l.orders = append([]Order{o}, l.orders...)
	l.persistLocked()

	l.log.Info("order placed", "order_id", o.ID, "items", len(o.Items), "total", o.Total)
	return o.clone(), nil
}

// CancelOrder deletes the order whatever its status. It reports whether the order existed.
func (l *Ledger) CancelOrder(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.find(id)
	if i < 0 {
		return false
	}
	l.orders = append(l.orders[:i], l.orders[i+1:]...)
	l.persistLocked()
	return true
}

// ToggleStatus flips Pending and Completed and returns the updated order.
func (l *Ledger) ToggleStatus(id string) (Order, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.find(id)
	if i < 0 {
		return Order{}, false
	}
	l.orders[i].Status = l.orders[i].Status.Toggled()
	l.persistLocked()
	return l.orders[i].clone(), true
}

// Search yields, newest first, the orders passing filter whose id or any item
// title contains query case-insensitively. Each iteration starts from a fresh
// snapshot, so the sequence can be ranged over again after the ledger changes.
func (l *Ledger) Search(query string, filter StatusFilter) iter.Seq[Order] {
	q := strings.ToLower(query)
	return func(yield func(Order) bool) {
		for _, o := range l.List() {
			if !filter.Match(o.Status) || !o.matches(q) {
				continue
			}
			if !yield(o) {
				return
			}
		}
	}
}

func (l *Ledger) Get(id string) (Order, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i := l.find(id); i >= 0 {
		return l.orders[i].clone(), true
	}
	return Order{}, false
}

// List returns a copy of every order, newest first.
func (l *Ledger) List() []Order {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.copyLocked()
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.orders)
}

func (l *Ledger) find(id string) int {
	for i, o := range l.orders {
		if o.ID == id {
			return i
		}
	}
	return -1
}

func (l *Ledger) copyLocked() []Order {
	out := make([]Order, len(l.orders))
	for i, o := range l.orders {
		out[i] = o.clone()
	}
	return out
}

func (l *Ledger) persistLocked() {
	if l.saver == nil {
		return
	}
	l.saver.Save(l.key, SlotVersion, l.copyLocked())
}
