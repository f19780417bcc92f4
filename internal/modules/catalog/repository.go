package catalog

import "context"

// Repository is a read-only product lookup keyed by product id.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context, filter ListFilter) ([]*Product, error)
}
