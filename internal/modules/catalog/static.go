package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// staticRepo serves a fixed product list held in memory.
type staticRepo struct {
	order []string
	byID  map[string]Product
}

// NewStaticRepository indexes products by id. Later duplicates of an id are ignored.
func NewStaticRepository(products []Product) Repository {
	r := &staticRepo{byID: make(map[string]Product, len(products))}
	for _, p := range products {
		if p.ID == "" {
			continue
		}
		if _, dup := r.byID[p.ID]; dup {
			continue
		}
		r.order = append(r.order, p.ID)
		r.byID[p.ID] = p
	}
	return r
}

// LoadFile reads a JSON array of products.
func LoadFile(path string) ([]Product, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var products []Product
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", path, err)
	}
	return products, nil
}

func (r *staticRepo) GetByID(_ context.Context, id string) (*Product, error) {
	p, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(p), nil
}

func (r *staticRepo) List(_ context.Context, filter ListFilter) ([]*Product, error) {
	var out []*Product
	for _, id := range r.order {
		p := r.byID[id]
		if matches(p, filter) {
			out = append(out, clone(p))
		}
	}
	return out, nil
}

func matches(p Product, f ListFilter) bool {
	if f.Vendor != "" && !strings.EqualFold(p.Vendor, f.Vendor) {
		return false
	}
	if f.Query == "" {
		return true
	}
	q := strings.ToLower(f.Query)
	return strings.Contains(strings.ToLower(p.Title), q) ||
		strings.Contains(strings.ToLower(p.Vendor), q)
}

func clone(p Product) *Product {
	c := p
	c.Images = append([]string(nil), p.Images...)
	if p.CompareAt != nil {
		v := *p.CompareAt
		c.CompareAt = &v
	}
	return &c
}

func price(v float64) *float64 { return &v }

// Seed is the built-in demo catalog used when no catalog file is configured.
var Seed = []Product{
	{
		ID:          "p-aurora-headphones",
		Title:       "Aurora Wireless Headphones",
		Price:       4999,
		CompareAt:   price(6499),
		Images:      []string{"/images/aurora-1.jpg", "/images/aurora-2.jpg"},
		Vendor:      "Soundwave",
		Description: "Over-ear headphones with 30 hour battery life.",
	},
	{
		ID:          "p-terra-backpack",
		Title:       "Terra Everyday Backpack",
		Price:       2499,
		Images:      []string{"/images/terra-1.jpg"},
		Vendor:      "Northpack",
		Description: "Water resistant 22L backpack with laptop sleeve.",
	},
	{
		ID:          "p-lumen-lamp",
		Title:       "Lumen Desk Lamp",
		Price:       1799,
		CompareAt:   price(1999),
		Images:      []string{"/images/lumen-1.jpg"},
		Vendor:      "Brightside",
		Description: "Dimmable LED lamp with USB-C charging port.",
	},
	{
		ID:          "p-nimbus-mug",
		Title:       "Nimbus Ceramic Mug",
		Price:       399,
		Images:      []string{"/images/nimbus-1.jpg"},
		Vendor:      "Claywork",
		Description: "350ml stoneware mug, dishwasher safe.",
	},
}
