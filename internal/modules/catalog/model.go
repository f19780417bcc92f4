package catalog

import "errors"

// ErrNotFound is returned when no product has the requested id.
var ErrNotFound = errors.New("product not found")

// Product is an entry in the read-only storefront catalog.
type Product struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Price       float64  `json:"price"`
	CompareAt   *float64 `json:"compare_at,omitempty"`
	Images      []string `json:"images"`
	Vendor      string   `json:"vendor,omitempty"`
	Description string   `json:"description,omitempty"`
}

// PrimaryImage is the first image URL, or "" when the product has none.
func (p Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// ListFilter narrows ListProducts. Zero value lists everything.
type ListFilter struct {
	Query  string `json:"q,omitempty"`
	Vendor string `json:"vendor,omitempty"`
}
