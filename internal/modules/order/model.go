package order

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SlotKey is the storage slot holding a shopper's order history.
const SlotKey = "orders"

// SlotVersion is written into every ledger envelope.
const SlotVersion = 1

// ErrEmptyCart is returned by PlaceOrder when there is nothing to buy.
var ErrEmptyCart = errors.New("cart is empty")

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusCompleted Status = "Completed"
)

// Toggled returns the other status.
func (s Status) Toggled() Status {
	if s == StatusPending {
		return StatusCompleted
	}
	return StatusPending
}

func (s Status) Valid() bool {
	return s == StatusPending || s == StatusCompleted
}

// StatusFilter selects orders in Search. The zero value matches every order.
type StatusFilter struct {
	status Status
}

// All matches orders in any status.
var All = StatusFilter{}

// Only matches orders in exactly one status.
func Only(s Status) StatusFilter { return StatusFilter{status: s} }

func (f StatusFilter) Match(s Status) bool {
	return f.status == "" || f.status == s
}

func (f StatusFilter) String() string {
	if f.status == "" {
		return "All"
	}
	return string(f.status)
}

// ParseStatusFilter accepts "All", "Pending" or "Completed" in any case. Empty means All.
func ParseStatusFilter(s string) (StatusFilter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return All, nil
	case "pending":
		return Only(StatusPending), nil
	case "completed":
		return Only(StatusCompleted), nil
	default:
		return All, fmt.Errorf("invalid status filter %q (allowed: All, Pending, Completed)", s)
	}
}

// LineItem is a frozen copy of one cart line at the time of purchase.
type LineItem struct {
	Title     string  `json:"title"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

func (li LineItem) Subtotal() float64 { return float64(li.Quantity) * li.UnitPrice }

// Order is immutable once placed except for Status.
type Order struct {
	ID        string     `json:"id"`
	Items     []LineItem `json:"items"`
	Total     float64    `json:"total"`
	CreatedAt time.Time  `json:"created_at"`
	Status    Status     `json:"status"`
}

func (o Order) clone() Order {
	o.Items = append([]LineItem(nil), o.Items...)
	return o
}

// matches reports whether the lowercased query is part of the id or any item title.
func (o Order) matches(query string) bool {
	if query == "" {
		return true
	}
	if strings.Contains(strings.ToLower(o.ID), query) {
		return true
	}
	for _, it := range o.Items {
		if strings.Contains(strings.ToLower(it.Title), query) {
			return true
		}
	}
	return false
}
