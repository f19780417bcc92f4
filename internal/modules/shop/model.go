package shop

import (
	"github.com/georgemunganga/printa-storefront/internal/money"
	"github.com/georgemunganga/printa-storefront/internal/modules/cart"
	"github.com/georgemunganga/printa-storefront/internal/modules/order"
)

// AddItemRequest is the body of POST /api/v1/cart/items. Quantity defaults to 1.
type AddItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  *int   `json:"quantity"`
}

// UpdateItemRequest is the body of PATCH /api/v1/cart/items/{product_id}.
// Zero or less removes the line.
type UpdateItemRequest struct {
	Quantity *int `json:"quantity"`
}

type lineView struct {
	cart.Line
	Subtotal float64 `json:"subtotal"`
}

type cartView struct {
	Lines             []lineView `json:"lines"`
	TotalItems        int        `json:"total_items"`
	TotalPrice        float64    `json:"total_price"`
	TotalPriceDisplay string     `json:"total_price_display"`
}

type orderView struct {
	order.Order
	TotalDisplay string `json:"total_display"`
}

func newCartView(s cart.Summary, f *money.Formatter) cartView {
	v := cartView{
		Lines:             make([]lineView, 0, len(s.Lines)),
		TotalItems:        s.TotalItems,
		TotalPrice:        s.TotalPrice,
		TotalPriceDisplay: f.Format(s.TotalPrice),
	}
	for _, l := range s.Lines {
		v.Lines = append(v.Lines, lineView{Line: l, Subtotal: l.Subtotal()})
	}
	return v
}

func newOrderView(o order.Order, f *money.Formatter) orderView {
	return orderView{Order: o, TotalDisplay: f.Format(o.Total)}
}
