package cart

import (
	"context"
	"sync"

	"github.com/georgemunganga/printa-storefront/internal/logger"
	"github.com/georgemunganga/printa-storefront/internal/modules/catalog"
	"github.com/georgemunganga/printa-storefront/internal/modules/storage"
)

// Store owns one shopper's cart. Every mutation updates memory first and then
// schedules a save of the whole cart; the save is never awaited.
type Store struct {
	mu    sync.Mutex
	key   string
	saver storage.Saver
	log   *logger.Logger
	lines []Line
}

// NewStore creates an empty cart persisted under key. A nil saver keeps the cart in memory only.
func NewStore(key string, saver storage.Saver, log *logger.Logger) *Store {
	if log == nil {
		log = logger.Nop()
	}
	return &Store{key: key, saver: saver, log: log.With("component", "cart", "slot", key)}
}

// Restore replaces the cart with what is stored under the store's key and
// returns the number of lines loaded. Missing or unusable data leaves the cart
// empty. A backend failure is returned and leaves the cart untouched.
func (s *Store) Restore(ctx context.Context, fetcher storage.Fetcher) (int, error) {
	slot, ok, err := fetcher.Fetch(ctx, s.key)
	if err != nil {
		return 0, err
	}
	var lines []Line
	if ok {
		decoded, err := decodeSlot(slot)
		if err != nil {
			s.log.Warn("discarding unreadable cart", "error", err)
		} else {
			lines = decoded
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = lines
	return len(lines), nil
}

// Add puts quantity units of product in the cart. An existing line grows; a new
// line goes last. Products without an id and quantities below 1 are ignored;
// a line never holds more than MaxQuantity.
func (s *Store) Add(product catalog.Product, quantity int) {
	if product.ID == "" || quantity < 1 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.find(product.ID); i >= 0 {
		if s.lines[i].Quantity == MaxQuantity {
			return
		}
		s.lines[i].Quantity = addQuantity(s.lines[i].Quantity, quantity)
	} else {
		s.lines = append(s.lines, Line{
			ProductID: product.ID,
			Quantity:  min(quantity, MaxQuantity),
			Title:     product.Title,
			Price:     product.Price,
			Image:     product.PrimaryImage(),
		})
	}
	s.persistLocked()
}

// Remove deletes the line for productID if there is one.
func (s *Store) Remove(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(productID)
}

// UpdateQuantity sets the quantity of an existing line, at most MaxQuantity.
// Zero or less removes it.
func (s *Store) UpdateQuantity(productID string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		s.removeLocked(productID)
		return
	}
	quantity = min(quantity, MaxQuantity)
	i := s.find(productID)
	if i < 0 || s.lines[i].Quantity == quantity {
		return
	}
	s.lines[i].Quantity = quantity
	s.persistLocked()
}

// Clear empties the cart.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
	s.persistLocked()
}

// CheckoutWith hands fn a copy of the lines while the cart is locked, and
// clears the cart only when fn succeeds. Nothing else can change the cart in between.
func (s *Store) CheckoutWith(fn func(lines []Line) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(s.copyLocked()); err != nil {
		return err
	}
	s.lines = nil
	s.persistLocked()
	return nil
}

func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked()
}

func (s *Store) Line(productID string) (Line, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.find(productID); i >= 0 {
		return s.lines[i], true
	}
	return Line{}, false
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines)
}

func (s *Store) TotalItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, _ := totals(s.lines)
	return items
}

// TotalPrice is the exact sum of quantity x price over all lines.
func (s *Store) TotalPrice() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, price := totals(s.lines)
	return price
}

func (s *Store) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, price := totals(s.lines)
	return Summary{Lines: s.copyLocked(), TotalItems: items, TotalPrice: price}
}

func (s *Store) find(productID string) int {
	for i, l := range s.lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

func (s *Store) removeLocked(productID string) {
	i := s.find(productID)
	if i < 0 {
		return
	}
	s.lines = append(s.lines[:i], s.lines[i+1:]...)
	s.persistLocked()
}

func (s *Store) copyLocked() []Line {
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// persistLocked must run under s.mu so saves reach the saver in mutation order.
func (s *Store) persistLocked() {
	if s.saver == nil {
		return
	}
	s.saver.Save(s.key, SlotVersion, s.copyLocked())
}
