package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// postgresRepo reads the products table. The storefront never writes to it.
type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func scanProduct(scan func(...interface{}) error) (*Product, error) {
	p := &Product{}
	var compareAt sql.NullFloat64
	var images pq.StringArray
	var vendor, description sql.NullString
	err := scan(&p.ID, &p.Title, &p.Price, &compareAt, &images, &vendor, &description)
	if err != nil {
		return nil, err
	}
	if compareAt.Valid {
		v := compareAt.Float64
		p.CompareAt = &v
	}
	p.Images = []string(images)
	p.Vendor = vendor.String
	p.Description = description.String
	return p, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*Product, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id,title,price,compare_at,images,vendor,description
		FROM products WHERE id=$1`, id)
	p, err := scanProduct(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func (r *postgresRepo) List(ctx context.Context, filter ListFilter) ([]*Product, error) {
	query := `SELECT id,title,price,compare_at,images,vendor,description
	          FROM products WHERE 1=1`
	args := []interface{}{}
	n := 1
	if filter.Vendor != "" {
		query += fmt.Sprintf(` AND LOWER(vendor)=LOWER($%d)`, n)
		args = append(args, filter.Vendor)
		n++
	}
	if filter.Query != "" {
		query += fmt.Sprintf(` AND (title ILIKE $%d OR vendor ILIKE $%d)`, n, n)
		args = append(args, "%"+filter.Query+"%")
		n++
	}
	query += ` ORDER BY title ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*Product
	for rows.Next() {
		p, err := scanProduct(rows.Scan)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
