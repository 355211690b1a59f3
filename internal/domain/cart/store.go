package cart

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// Store owns one cart document. It is the only code that reads or writes the
// document, and it is safe for concurrent use.
//
// A Store with a nil backend behaves as if storage were unavailable: List
// returns an empty cart and mutations do nothing.
type Store struct {
	key     string
	backend Backend
	mu      sync.Locker
	tel     *telemetry
}

// NewStore returns a Store for the document at key.
func NewStore(backend Backend, key string, opts ...Option) *Store {
	return &Store{
		key:     key,
		backend: backend,
		mu:      new(sync.Mutex),
		tel:     newTelemetry(newOptions(opts)),
	}
}

// Key returns the document key.
func (s *Store) Key() string { return s.key }

// List returns the line items in insertion order.
func (s *Store) List(ctx context.Context) []LineItem {
	ctx, span := s.tel.start(ctx, "list", s.key)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	items, _ := s.load(ctx)
	span.SetAttributes(attribute.Int("cart.items", len(items)))
	return items
}

// Summary returns the line items together with subtotal and item count.
func (s *Store) Summary(ctx context.Context) Summary {
	return Summarize(s.List(ctx))
}

// Add puts one unit of p into the cart: the quantity of an existing line item
// with the same id is incremented, otherwise a new line item with quantity 1
// is appended.
func (s *Store) Add(ctx context.Context, p Product) {
	if p.ID == "" || p.Price.IsNegative() {
		zctx.From(ctx).Warn("Ignoring invalid cart product",
			zap.String("key", s.key),
			zap.String("product_id", p.ID),
			zap.Stringer("price", p.Price),
		)
		return
	}
	s.mutate(ctx, "add", func(items []LineItem) ([]LineItem, bool) {
		if i := indexOf(items, p.ID); i >= 0 {
			if items[i].Quantity >= MaxQuantity {
				return items, false
			}
			items[i].Quantity = addQuantity(items[i].Quantity, 1)
			return items, true
		}
		return append(items, LineItem{
			ID:       p.ID,
			Name:     p.Name,
			Price:    p.Price,
			ImageRef: p.ImageRef,
			Quantity: 1,
		}), true
	})
}

// Remove deletes the line item with the given id. Removing an absent id is
// not an error.
func (s *Store) Remove(ctx context.Context, id string) {
	s.mutate(ctx, "remove", func(items []LineItem) ([]LineItem, bool) {
		return removeID(items, id), true
	})
}

// SetQuantity sets the quantity of an existing line item. A quantity below 1
// removes the item and one above MaxQuantity is capped; an absent id is left
// absent.
func (s *Store) SetQuantity(ctx context.Context, id string, quantity int) {
	s.mutate(ctx, "set_quantity", func(items []LineItem) ([]LineItem, bool) {
		i := indexOf(items, id)
		if i < 0 {
			return items, false
		}
		if quantity < 1 {
			return removeID(items, id), true
		}
		items[i].Quantity = clampQuantity(quantity)
		return items, true
	})
}

// Increment raises the quantity of an existing line item by one, stopping at
// MaxQuantity.
func (s *Store) Increment(ctx context.Context, id string) {
	s.mutate(ctx, "increment", func(items []LineItem) ([]LineItem, bool) {
		i := indexOf(items, id)
		if i < 0 || items[i].Quantity >= MaxQuantity {
			return items, false
		}
		items[i].Quantity = addQuantity(items[i].Quantity, 1)
		return items, true
	})
}

// Decrement lowers the quantity of an existing line item by one, stopping at
// 1. Use Remove to take an item out of the cart.
func (s *Store) Decrement(ctx context.Context, id string) {
	s.mutate(ctx, "decrement", func(items []LineItem) ([]LineItem, bool) {
		i := indexOf(items, id)
		if i < 0 || items[i].Quantity <= 1 {
			return items, false
		}
		items[i].Quantity--
		return items, true
	})
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) {
	s.mutate(ctx, "clear", func([]LineItem) ([]LineItem, bool) {
		return nil, true
	})
}

// Release takes the given quantities out of the cart in one cycle, removing
// line items that drop below 1. Units added since ordered was listed stay in
// the cart; ids no longer present are ignored.
func (s *Store) Release(ctx context.Context, ordered []LineItem) {
	s.mutate(ctx, "release", func(items []LineItem) ([]LineItem, bool) {
		changed := false
		for _, o := range ordered {
			i := indexOf(items, o.ID)
			if i < 0 {
				continue
			}
			changed = true
			if items[i].Quantity <= o.Quantity {
				items = removeID(items, o.ID)
				continue
			}
			items[i].Quantity -= o.Quantity
		}
		return items, changed
	})
}

// mutate runs one read-modify-write cycle. fn reports whether the document
// must be written back.
func (s *Store) mutate(ctx context.Context, op string, fn func([]LineItem) ([]LineItem, bool)) {
	ctx, span := s.tel.start(ctx, op, s.key)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	items, ok := s.load(ctx)
	if !ok {
		span.SetStatus(codes.Error, "storage unavailable")
		return
	}
	items, write := fn(items)
	if !write {
		return
	}
	if err := s.backend.Save(ctx, s.key, EncodeDocument(items)); err != nil {
		s.tel.storageError(ctx, "save")
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		zctx.From(ctx).Error("Failed to save cart",
			zap.String("key", s.key),
			zap.String("op", op),
			zap.Error(err),
		)
	}
}

// load reads the current items. The boolean is false when the document could
// not be read, in which case it must not be overwritten.
func (s *Store) load(ctx context.Context) ([]LineItem, bool) {
	if s.backend == nil {
		return nil, false
	}

	lg := zctx.From(ctx)
	data, err := s.backend.Load(ctx, s.key)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil, true
	case errors.Is(err, ErrUnavailable):
		lg.Debug("Cart storage unavailable", zap.String("key", s.key))
		return nil, false
	case err != nil:
		s.tel.storageError(ctx, "load")
		lg.Warn("Failed to load cart", zap.String("key", s.key), zap.Error(err))
		return nil, false
	}

	items, err := DecodeDocument(data)
	if err != nil {
		s.tel.corrupt.Add(ctx, 1)
		lg.Warn("Discarding corrupt cart document", zap.String("key", s.key), zap.Error(err))
		return nil, true
	}
	return items, true
}

func removeID(items []LineItem, id string) []LineItem {
	out := items[:0]
	for _, item := range items {
		if item.ID != id {
			out = append(out, item)
		}
	}
	return out
}
