package catalog

import (
	"context"
	"strings"
)

// Service is the catalog lookup used by the cart and by product views.
type Service interface {
	GetProduct(ctx context.Context, id string) (*Product, error)
	ListProducts(ctx context.Context, filter ListFilter) ([]*Product, error)
}

type service struct{ repo Repository }

func NewService(repo Repository) Service { return &service{repo: repo} }

func (s *service) GetProduct(ctx context.Context, id string) (*Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListProducts(ctx context.Context, filter ListFilter) ([]*Product, error) {
	filter.Query = strings.TrimSpace(filter.Query)
	filter.Vendor = strings.TrimSpace(filter.Vendor)
	products, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []*Product{}
	}
	return products, nil
}
