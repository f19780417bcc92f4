package cart

// SlotKey is the storage slot holding a shopper's cart.
const SlotKey = "shop_cart_v1"

// SlotVersion is written into every cart envelope.
const SlotVersion = 1

// MaxQuantity is the most units of one product a cart line can hold. Adds and
// updates beyond it are clamped, which also keeps totals from overflowing.
const MaxQuantity = 9999

// addQuantity returns a+b clamped to MaxQuantity. Both must be positive.
func addQuantity(a, b int) int {
	if a >= MaxQuantity || b >= MaxQuantity-a {
		return MaxQuantity
	}
	return a + b
}

// Line is one product in the cart. Title, Price and Image are copied from the
// product when it is first added and never refreshed from the catalog.
type Line struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	Image     string  `json:"image,omitempty"`
}

func (l Line) Subtotal() float64 { return float64(l.Quantity) * l.Price }

// Summary is a consistent view of the cart at one instant.
type Summary struct {
	Lines      []Line  `json:"lines"`
	TotalItems int     `json:"total_items"`
	TotalPrice float64 `json:"total_price"`
}

func totals(lines []Line) (items int, price float64) {
	for _, l := range lines {
		items += l.Quantity
		price += l.Subtotal()
	}
	return items, price
}
