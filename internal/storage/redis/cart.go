// Package redis stores cart documents in Redis, one string key per cart.
package redis

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/Sabariaz123456/Hackathon3/internal/domain/cart"
)

var (
	_ cart.Backend = (*CartStore)(nil)
	_ cart.Pinger  = (*CartStore)(nil)
)

// CartStore implements cart.Backend using Redis.
type CartStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewCartStore creates a Redis-backed cart store. Every save refreshes the
// key's expiry to ttl; zero keeps documents forever.
func NewCartStore(client redis.UniversalClient, ttl time.Duration) *CartStore {
	return &CartStore{
		client: client,
		ttl:    ttl,
	}
}

// Load returns the document stored at key.
func (s *CartStore) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, cart.ErrNotFound
		}
		return nil, errors.Wrap(err, "redis get cart")
	}
	return data, nil
}

// Save overwrites the document stored at key.
func (s *CartStore) Save(ctx context.Context, key string, document []byte) error {
	if err := s.client.Set(ctx, key, document, s.ttl).Err(); err != nil {
		return errors.Wrap(err, "redis set cart")
	}
	return nil
}

// Ping checks the Redis connection.
func (s *CartStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
