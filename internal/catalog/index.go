// Package catalog caches the product catalog in front of a slower source.
package catalog

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Sabariaz123456/Hackathon3/internal/domain/product"
)

const (
	// DefaultTTL is used when NewIndex is given a non-positive ttl.
	DefaultTTL = 5 * time.Minute

	// Sizing of the known-id filter. Small catalogs still get a full-size
	// filter so the false positive rate stays near zero.
	falsePositiveRate = 0.01
	minFilterSize     = 1024
)

var _ product.Repository = (*Index)(nil)

type snapshot struct {
	products []product.Product
	bySlug   map[string]int
	ids      *bloom.BloomFilter
	loadedAt time.Time
}

func newSnapshot(products []product.Product, now time.Time) *snapshot {
	s := &snapshot{
		products: products,
		bySlug:   make(map[string]int, len(products)),
		ids:      bloom.NewWithEstimates(uint(max(len(products), minFilterSize)), falsePositiveRate),
		loadedAt: now,
	}
	for i, p := range products {
		s.bySlug[p.Slug] = i
		s.ids.AddString(p.ID)
	}
	return s
}

// Index serves product listings from a periodically refreshed snapshot of
// source. Lookups by id always reach source so cart prices are current; a
// bloom filter of snapshot ids tells which found products are newer than the
// snapshot.
type Index struct {
	source product.Repository
	ttl    time.Duration
	now    func() time.Time

	group singleflight.Group
	mu    sync.RWMutex
	snap  *snapshot
}

// NewIndex creates an Index over source whose snapshot expires after ttl.
func NewIndex(source product.Repository, ttl time.Duration) *Index {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Index{
		source: source,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Refresh reloads the snapshot from source. Concurrent callers share one load.
func (x *Index) Refresh(ctx context.Context) error {
	_, err, _ := x.group.Do("refresh", func() (any, error) {
		products, err := x.source.List(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "load catalog")
		}
		s := newSnapshot(products, x.now())

		x.mu.Lock()
		x.snap = s
		x.mu.Unlock()

		zctx.From(ctx).Debug("Catalog snapshot refreshed", zap.Int("products", len(products)))
		return nil, nil
	})
	return err
}

// Run refreshes the snapshot every ttl until ctx is done.
func (x *Index) Run(ctx context.Context) error {
	lg := zctx.From(ctx)
	if err := x.Refresh(ctx); err != nil {
		lg.Warn("Initial catalog refresh failed", zap.Error(err))
	}

	ticker := time.NewTicker(x.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := x.Refresh(ctx); err != nil {
				lg.Warn("Catalog refresh failed", zap.Error(err))
			}
		}
	}
}

// current returns a usable snapshot, refreshing it when missing or stale.
// A failed refresh keeps serving the stale snapshot.
func (x *Index) current(ctx context.Context) (*snapshot, error) {
	x.mu.RLock()
	s := x.snap
	x.mu.RUnlock()

	if s != nil && x.now().Sub(s.loadedAt) < x.ttl {
		return s, nil
	}
	if err := x.Refresh(ctx); err != nil {
		if s != nil {
			zctx.From(ctx).Warn("Serving stale catalog", zap.Error(err))
			return s, nil
		}
		return nil, err
	}

	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.snap, nil
}

// List returns the cached product listing.
func (x *Index) List(ctx context.Context) ([]product.Product, error) {
	s, err := x.current(ctx)
	if err != nil {
		return nil, err
	}
	return slices.Clone(s.products), nil
}

// GetBySlug returns a cached product, asking source for slugs the snapshot
// does not know yet.
func (x *Index) GetBySlug(ctx context.Context, slug string) (*product.Product, error) {
	if s, err := x.current(ctx); err == nil {
		if i, ok := s.bySlug[slug]; ok {
			p := s.products[i]
			return &p, nil
		}
	}
	p, err := x.source.GetBySlug(ctx, slug)
	if err == nil {
		x.refreshAsync(ctx)
	}
	return p, err
}

// GetByID returns the product from source so cart prices are current. When
// source knows an id the snapshot's filter has never seen, the product was
// published after the last refresh and the snapshot is reloaded in the
// background.
func (x *Index) GetByID(ctx context.Context, id string) (*product.Product, error) {
	s, snapErr := x.current(ctx)
	p, err := x.source.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if snapErr == nil && !s.ids.TestString(id) {
		zctx.From(ctx).Debug("Product missing from catalog snapshot", zap.String("product_id", id))
		x.refreshAsync(ctx)
	}
	return p, nil
}

// refreshAsync reloads the snapshot without blocking the caller. Concurrent
// triggers share one load.
func (x *Index) refreshAsync(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := x.Refresh(ctx); err != nil {
			zctx.From(ctx).Warn("Background catalog refresh failed", zap.Error(err))
		}
	}()
}
