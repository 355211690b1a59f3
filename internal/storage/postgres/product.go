package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/Sabariaz123456/Hackathon3/internal/domain/product"
)

const (
	productColumns = `id, name, slug, image_ref, price, description, discount_percentage, featured, stock_level, category`

	listProductsSQL = `SELECT ` + productColumns + ` FROM products ORDER BY featured DESC, name, id`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	getProductBySlugSQL = `SELECT ` + productColumns + ` FROM products WHERE slug = $1`

	upsertProductSQL = `INSERT INTO products (` + productColumns + `, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		slug = EXCLUDED.slug,
		image_ref = EXCLUDED.image_ref,
		price = EXCLUDED.price,
		description = EXCLUDED.description,
		discount_percentage = EXCLUDED.discount_percentage,
		featured = EXCLUDED.featured,
		stock_level = EXCLUDED.stock_level,
		category = EXCLUDED.category,
		updated_at = now()`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository over the products table,
// a local mirror of the catalog filled by catalog-import.
type ProductRepository struct {
	db DB
}

// NewProductRepository returns a ProductRepository that uses the given connection.
func NewProductRepository(db DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// List returns all products, featured first.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.db.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	return r.getOne(ctx, getProductByIDSQL, id)
}

// GetBySlug returns a single product by its slug.
func (r *ProductRepository) GetBySlug(ctx context.Context, slug string) (*product.Product, error) {
	return r.getOne(ctx, getProductBySlugSQL, slug)
}

func (r *ProductRepository) getOne(ctx context.Context, query, arg string) (*product.Product, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, errors.Wrapf(err, "get product %q", arg)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get product %q", arg)
	}
	return &p, nil
}

// Upsert inserts p or replaces the stored copy with the same id.
func (r *ProductRepository) Upsert(ctx context.Context, p product.Product) error {
	_, err := r.db.Exec(ctx, upsertProductSQL,
		p.ID, p.Name, p.Slug, p.ImageRef, p.Price, p.Description,
		p.DiscountPercentage, p.Featured, p.InventoryLevel, p.Category,
	)
	if err != nil {
		return errors.Wrapf(err, "upsert product %q", p.ID)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Slug, &p.ImageRef, &p.Price, &p.Description,
		&p.DiscountPercentage, &p.Featured, &p.InventoryLevel, &p.Category,
	)
	return p, err
}
