package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/Sabariaz123456/Hackathon3/internal/domain/cart"
)

const (
	loadCartSQL = `SELECT document FROM cart_documents WHERE key = $1`

	saveCartSQL = `INSERT INTO cart_documents (key, document, updated_at)
	VALUES ($1, $2, now())
	ON CONFLICT (key) DO UPDATE SET document = EXCLUDED.document, updated_at = now()`
)

var (
	_ cart.Backend = (*CartStore)(nil)
	_ cart.Pinger  = (*CartStore)(nil)
)

// CartStore keeps one cart document per row of cart_documents.
type CartStore struct {
	db DB
}

// NewCartStore returns a CartStore that uses the given connection.
func NewCartStore(db DB) *CartStore {
	return &CartStore{db: db}
}

// Load returns the stored document, or cart.ErrNotFound when the key has none.
func (s *CartStore) Load(ctx context.Context, key string) ([]byte, error) {
	var doc string
	if err := s.db.QueryRow(ctx, loadCartSQL, key).Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNotFound
		}
		return nil, errors.Wrapf(err, "load cart %q", key)
	}
	return []byte(doc), nil
}

// Save replaces the document stored under key.
func (s *CartStore) Save(ctx context.Context, key string, document []byte) error {
	if _, err := s.db.Exec(ctx, saveCartSQL, key, string(document)); err != nil {
		return errors.Wrapf(err, "save cart %q", key)
	}
	return nil
}

// Ping checks the database connection.
func (s *CartStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
