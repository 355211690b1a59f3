package catalog

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sabariaz123456/Hackathon3/internal/domain/product"
)

type fakeSource struct {
	mu       sync.Mutex
	products []product.Product
	listErr  error

	lists   atomic.Int32
	byID    atomic.Int32
	bySlug  atomic.Int32
	release chan struct{}
}

func (f *fakeSource) List(context.Context) ([]product.Product, error) {
	f.lists.Add(1)
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]product.Product(nil), f.products...), nil
}

func (f *fakeSource) GetByID(_ context.Context, id string) (*product.Product, error) {
	f.byID.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.products {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, product.ErrNotFound
}

func (f *fakeSource) GetBySlug(_ context.Context, slug string) (*product.Product, error) {
	f.bySlug.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.products {
		if p.Slug == slug {
			return &p, nil
		}
	}
	return nil, product.ErrNotFound
}

func (f *fakeSource) setPrice(id, price string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.products {
		if f.products[i].ID == id {
			f.products[i].Price = decimal.RequireFromString(price)
		}
	}
}

func catalogFixture() []product.Product {
	return []product.Product{
		{ID: "p1", Name: "Widget", Slug: "widget", Price: decimal.RequireFromString("9.99")},
		{ID: "p2", Name: "Gadget", Slug: "gadget", Price: decimal.RequireFromString("5")},
	}
}

func TestIndex_ListIsCached(t *testing.T) {
	src := &fakeSource{products: catalogFixture()}
	x := NewIndex(src, time.Minute)
	ctx := context.Background()

	for range 3 {
		products, err := x.List(ctx)
		require.NoError(t, err)
		assert.Len(t, products, 2)
	}
	assert.Equal(t, int32(1), src.lists.Load())
}

func TestIndex_ExpiresAfterTTL(t *testing.T) {
	src := &fakeSource{products: catalogFixture()}
	x := NewIndex(src, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	x.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := x.List(ctx)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = x.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.lists.Load())
}

func TestIndex_ServesStaleOnRefreshFailure(t *testing.T) {
	src := &fakeSource{products: catalogFixture()}
	x := NewIndex(src, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	x.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := x.List(ctx)
	require.NoError(t, err)

	src.mu.Lock()
	src.listErr = errors.New("upstream down")
	src.mu.Unlock()
	now = now.Add(time.Hour)

	products, err := x.List(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 2)
}

func TestIndex_ListErrorWithoutSnapshot(t *testing.T) {
	src := &fakeSource{listErr: errors.New("upstream down")}
	x := NewIndex(src, time.Minute)

	_, err := x.List(context.Background())
	assert.Error(t, err)
}

func (f *fakeSource) add(p product.Product) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products = append(f.products, p)
}

func TestIndex_GetByIDUnknown(t *testing.T) {
	src := &fakeSource{products: catalogFixture()}
	x := NewIndex(src, time.Minute)
	ctx := context.Background()

	_, err := x.GetByID(ctx, "definitely-not-a-product")
	require.ErrorIs(t, err, product.ErrNotFound)
	assert.Equal(t, int32(1), src.byID.Load())

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(1), src.lists.Load(), "a miss does not reload the snapshot")
}

func TestIndex_GetByIDFindsProductPublishedAfterRefresh(t *testing.T) {
	src := &fakeSource{products: catalogFixture()}
	x := NewIndex(src, time.Hour)
	ctx := context.Background()

	require.NoError(t, x.Refresh(ctx))
	src.add(product.Product{ID: "p3", Name: "Lamp", Slug: "lamp", Price: decimal.RequireFromString("15")})

	p, err := x.GetByID(ctx, "p3")
	require.NoError(t, err)
	assert.Equal(t, "Lamp", p.Name)

	require.Eventually(t, func() bool { return src.lists.Load() == 2 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool {
		products, err := x.List(ctx)
		return err == nil && len(products) == 3
	}, time.Second, time.Millisecond)
}

func TestIndex_GetByIDWhileRefreshFails(t *testing.T) {
	src := &fakeSource{products: catalogFixture()}
	x := NewIndex(src, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	x.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, x.Refresh(ctx))
	src.mu.Lock()
	src.listErr = errors.New("upstream down")
	src.mu.Unlock()
	src.add(product.Product{ID: "p3", Name: "Lamp", Slug: "lamp", Price: decimal.NewFromInt(15)})
	now = now.Add(time.Hour)

	p, err := x.GetByID(ctx, "p3")
	require.NoError(t, err, "stale snapshot never hides products the source has")
	assert.Equal(t, "p3", p.ID)
}

func TestIndex_GetByIDReadsCurrentPrice(t *testing.T) {
	src := &fakeSource{products: catalogFixture()}
	x := NewIndex(src, time.Minute)
	ctx := context.Background()

	require.NoError(t, x.Refresh(ctx))
	src.setPrice("p1", "12.50")

	p, err := x.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("12.50").Equal(p.Price))
	assert.Equal(t, int32(1), src.byID.Load())
}

func TestIndex_GetByIDFallsThroughWithoutSnapshot(t *testing.T) {
	src := &fakeSource{products: catalogFixture(), listErr: errors.New("list broken")}
	x := NewIndex(src, time.Minute)

	p, err := x.GetByID(context.Background(), "p2")
	require.NoError(t, err)
	assert.Equal(t, "Gadget", p.Name)
}

func TestIndex_GetBySlug(t *testing.T) {
	src := &fakeSource{products: catalogFixture()}
	x := NewIndex(src, time.Minute)
	ctx := context.Background()

	p, err := x.GetBySlug(ctx, "gadget")
	require.NoError(t, err)
	assert.Equal(t, "p2", p.ID)
	assert.Zero(t, src.bySlug.Load(), "known slug served from snapshot")

	_, err = x.GetBySlug(ctx, "unknown")
	assert.ErrorIs(t, err, product.ErrNotFound)
	assert.Equal(t, int32(1), src.bySlug.Load())
}

func TestIndex_ConcurrentRefreshSharesLoad(t *testing.T) {
	src := &fakeSource{products: catalogFixture(), release: make(chan struct{})}
	x := NewIndex(src, time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = x.List(ctx)
		}()
	}
	require.Eventually(t, func() bool { return src.lists.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	close(src.release)
	wg.Wait()

	assert.Equal(t, int32(1), src.lists.Load())
}

func TestIndex_RunStopsOnCancel(t *testing.T) {
	src := &fakeSource{products: catalogFixture()}
	x := NewIndex(src, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- x.Run(ctx) }()

	require.Eventually(t, func() bool { return src.lists.Load() == 1 }, time.Second, time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
