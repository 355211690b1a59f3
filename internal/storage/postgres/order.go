package postgres

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"

	"github.com/Sabariaz123456/Hackathon3/internal/domain/order"
)

const createOrderSQL = `INSERT INTO orders (id, cart_key, items, total, created_at)
	VALUES ($1, $2, $3, $4, $5)`

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	db DB
}

// NewOrderRepository returns an OrderRepository that uses the given connection.
func NewOrderRepository(db DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create persists a new order. The order items are serialized to JSON for
// storage in the JSONB column.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return errors.Wrap(err, "marshal order items")
	}

	_, err = r.db.Exec(ctx, createOrderSQL,
		o.ID, o.CartKey, itemsJSON, o.Total, o.CreatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "create order %q", o.ID)
	}

	return nil
}
