package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sabariaz123456/Hackathon3/internal/catalog/sanity"
	"github.com/Sabariaz123456/Hackathon3/internal/domain/cart"
	"github.com/Sabariaz123456/Hackathon3/internal/domain/order"
	"github.com/Sabariaz123456/Hackathon3/internal/domain/product"
	"github.com/Sabariaz123456/Hackathon3/internal/storage/memory"
	"github.com/Sabariaz123456/Hackathon3/pkg/httpmiddleware"
)

const testSession = "6f1c1a52-7c1e-4a43-9f0e-0a4c7c7f7d11"

// --- Mock implementations ---

type mockProductRepo struct {
	products []product.Product
	listErr  error
	getErr   error
}

func (m *mockProductRepo) List(context.Context) ([]product.Product, error) {
	return m.products, m.listErr
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, p := range m.products {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, product.ErrNotFound
}

func (m *mockProductRepo) GetBySlug(_ context.Context, slug string) (*product.Product, error) {
	for _, p := range m.products {
		if p.Slug == slug {
			return &p, nil
		}
	}
	return nil, product.ErrNotFound
}

type failingOrders struct{}

func (failingOrders) Create(context.Context, *order.Order) error { return errors.New("db down") }

// --- Helpers ---

type testEnv struct {
	handler http.Handler
	carts   *cart.Manager
	orders  *memory.OrderRepository
	repo    *mockProductRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	stock := 3
	repo := &mockProductRepo{products: []product.Product{
		{
			ID: "p1", Name: "Widget", Slug: "widget", Price: decimal.RequireFromString("9.99"),
			ImageRef: "image-abc-10x20-png", InventoryLevel: &stock, Category: "tools", Featured: true,
		},
		{ID: "p2", Name: "Gadget", Slug: "gadget", Price: decimal.RequireFromString("5")},
	}}
	carts := cart.NewManager(memory.NewCartStore())
	orders := memory.NewOrderRepository()

	h := NewHandler(HandlerConfig{
		ImageURL: func(ref string) (string, error) { return sanity.ImageURL("proj", "production", ref) },
	}, repo, carts, order.NewService(orders))

	return &testEnv{handler: h.Router(), carts: carts, orders: orders, repo: repo}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.AddCookie(&http.Cookie{Name: httpmiddleware.DefaultSessionCookie, Value: testSession})
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

// --- Tests ---

func TestListProducts(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/products", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `[
		{"id":"p1","name":"Widget","slug":"widget","price":9.99,"discountPercentage":0,"featured":true,
		 "inventoryLevel":3,"category":"tools","imageRef":"image-abc-10x20-png",
		 "imageUrl":"https://cdn.sanity.io/images/proj/production/abc-10x20.png"},
		{"id":"p2","name":"Gadget","slug":"gadget","price":5,"discountPercentage":0,"featured":false}
	]`, w.Body.String())
}

func TestListProducts_Error(t *testing.T) {
	env := newTestEnv(t)
	env.repo.listErr = errors.New("sanity down")

	w := env.do(t, http.MethodGet, "/api/products", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"code":500,"message":"internal server error"}`, w.Body.String())
}

func TestGetProduct(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/products/gadget", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"p2"`)

	w = env.do(t, http.MethodGet, "/api/products/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"code":404,"message":"product not found"}`, w.Body.String())
}

func TestCart_EmptyAndSessionCookie(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/cart", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"items":[],"subtotal":0,"itemCount":0}`, w.Body.String())

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, testSession, cookies[0].Value)
}

func TestCart_AddAndList(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/cart/items", `{"productId":"p1"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = env.do(t, http.MethodPost, "/api/cart/items", `{"productId":"p1"}`)
	require.Equal(t, http.StatusOK, w.Code)

	assert.JSONEq(t, `{
		"items":[{"id":"p1","name":"Widget","price":9.99,"quantity":2,"total":19.98,
		          "imageRef":"image-abc-10x20-png",
		          "imageUrl":"https://cdn.sanity.io/images/proj/production/abc-10x20.png"}],
		"subtotal":19.98,"itemCount":2}`, w.Body.String())

	items := env.carts.Store(testSession).List(context.Background())
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
}

func TestCart_AddValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
		code int
	}{
		{name: "unknown product", body: `{"productId":"nope"}`, code: http.StatusNotFound},
		{name: "missing id", body: `{}`, code: http.StatusBadRequest},
		{name: "empty id", body: `{"productId":""}`, code: http.StatusBadRequest},
		{name: "wrong type", body: `{"productId":42}`, code: http.StatusBadRequest},
		{name: "not an object", body: `["p1"]`, code: http.StatusBadRequest},
		{name: "malformed", body: `{"productId":`, code: http.StatusBadRequest},
		{name: "too long", body: `{"productId":"` + strings.Repeat("x", 129) + `"}`, code: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/cart/items", tt.body)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
		})
	}
	assert.Empty(t, env.carts.Store(testSession).List(context.Background()))
}

func TestCart_AddCatalogFailure(t *testing.T) {
	env := newTestEnv(t)
	env.repo.getErr = errors.New("timeout")

	w := env.do(t, http.MethodPost, "/api/cart/items", `{"productId":"p1"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestCart_QuantityOperations(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/cart/items", `{"productId":"p1"}`)
	env.do(t, http.MethodPost, "/api/cart/items", `{"productId":"p2"}`)

	quantity := func() map[string]int {
		out := map[string]int{}
		for _, it := range env.carts.Store(testSession).List(context.Background()) {
			out[it.ID] = it.Quantity
		}
		return out
	}

	require.Equal(t, http.StatusOK, env.do(t, http.MethodPut, "/api/cart/items/p1", `{"quantity":5}`).Code)
	assert.Equal(t, map[string]int{"p1": 5, "p2": 1}, quantity())

	env.do(t, http.MethodPost, "/api/cart/items/p1/increment", "")
	assert.Equal(t, 6, quantity()["p1"])

	env.do(t, http.MethodPost, "/api/cart/items/p2/decrement", "")
	assert.Equal(t, 1, quantity()["p2"], "decrement never drops below one")

	env.do(t, http.MethodPut, "/api/cart/items/p2", `{"quantity":0}`)
	assert.Equal(t, map[string]int{"p1": 6}, quantity())

	env.do(t, http.MethodPut, "/api/cart/items/ghost", `{"quantity":3}`)
	assert.Equal(t, map[string]int{"p1": 6}, quantity(), "missing item is not created")

	w := env.do(t, http.MethodDelete, "/api/cart/items/p1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"items":[],"subtotal":0,"itemCount":0}`, w.Body.String())
}

func TestCart_SetQuantityValidation(t *testing.T) {
	env := newTestEnv(t)

	for _, body := range []string{`{}`, `{"quantity":"2"}`, `{"quantity":2.5}`, `{"quantity":1000}`} {
		w := env.do(t, http.MethodPut, "/api/cart/items/p1", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestCart_Clear(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/cart/items", `{"productId":"p1"}`)

	w := env.do(t, http.MethodDelete, "/api/cart", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"items":[],"subtotal":0,"itemCount":0}`, w.Body.String())
}

func TestCheckout(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/checkout", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"code":409,"message":"cart is empty"}`, w.Body.String())

	env.do(t, http.MethodPost, "/api/cart/items", `{"productId":"p1"}`)
	env.do(t, http.MethodPut, "/api/cart/items/p1", `{"quantity":3}`)
	env.do(t, http.MethodPost, "/api/cart/items", `{"productId":"p2"}`)

	w = env.do(t, http.MethodPost, "/api/checkout", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"total":34.97`)
	assert.Contains(t, w.Body.String(), `"itemCount":4`)

	assert.Empty(t, env.carts.Store(testSession).List(context.Background()))
}

func TestCheckout_OrderFailureKeepsCart(t *testing.T) {
	env := newTestEnv(t)
	carts := env.carts
	h := NewHandler(HandlerConfig{}, env.repo, carts, order.NewService(failingOrders{})).Router()

	env.do(t, http.MethodPost, "/api/cart/items", `{"productId":"p2"}`)

	req := httptest.NewRequest(http.MethodPost, "/api/checkout", nil)
	req.AddCookie(&http.Cookie{Name: httpmiddleware.DefaultSessionCookie, Value: testSession})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Len(t, carts.Store(testSession).List(context.Background()), 1)
}

func TestSessionsAreSeparate(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/cart/items", `{"productId":"p1"}`)

	// A request without a cookie gets a new, empty cart.
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/cart", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"items":[],"subtotal":0,"itemCount":0}`, w.Body.String())
	require.Len(t, w.Result().Cookies(), 1)
	assert.NotEqual(t, testSession, w.Result().Cookies()[0].Value)
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/nothing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"code":404,"message":"not found"}`, w.Body.String())

	w = env.do(t, http.MethodPatch, "/api/products", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
