package shop

import (
	"github.com/georgemunganga/printa-storefront/internal/modules/cart"
	"github.com/georgemunganga/printa-storefront/internal/modules/order"
	"github.com/georgemunganga/printa-storefront/internal/modules/storage"
)

// Session is one shopper's cart and order history. Both stores write through
// a shared unit of work so Checkout lands as one atomic backend write.
type Session struct {
	ID     string
	Cart   *cart.Store
	Orders *order.Ledger

	uow *storage.UnitOfWork
}

// Checkout turns the cart into a Pending order and empties the cart. The cart
// stays locked for the whole operation, and the new ledger and the emptied cart
// are persisted together. An empty cart yields order.ErrEmptyCart and changes nothing.
func (s *Session) Checkout() (order.Order, error) {
	s.uow.Begin()
	defer s.uow.Commit()

	var placed order.Order
	err := s.Cart.CheckoutWith(func(lines []cart.Line) error {
		o, err := s.Orders.PlaceOrder(lines)
		if err != nil {
			return err
		}
		placed = o
		return nil
	})
	if err != nil {
		return order.Order{}, err
	}
	return placed, nil
}
