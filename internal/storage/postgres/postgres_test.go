package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sabariaz123456/Hackathon3/internal/domain/cart"
	"github.com/Sabariaz123456/Hackathon3/internal/domain/order"
	"github.com/Sabariaz123456/Hackathon3/internal/domain/product"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

// --- Migrations ---

func TestRunMigrations(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS cart_documents").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, RunMigrations(context.Background(), mock))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_Error(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("permission denied"))

	err := RunMigrations(context.Background(), mock)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run migrations")
}

// --- CartStore ---

func TestCartStore_Load(t *testing.T) {
	mock := newMock(t)
	s := NewCartStore(mock)

	mock.ExpectQuery("SELECT document FROM cart_documents").
		WithArgs("cart:abc").
		WillReturnRows(pgxmock.NewRows([]string{"document"}).AddRow(`[{"_id":"p1","price":1}]`))

	doc, err := s.Load(context.Background(), "cart:abc")
	require.NoError(t, err)
	assert.Equal(t, `[{"_id":"p1","price":1}]`, string(doc))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartStore_LoadMissing(t *testing.T) {
	mock := newMock(t)
	s := NewCartStore(mock)

	mock.ExpectQuery("SELECT document FROM cart_documents").
		WithArgs("cart:none").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.Load(context.Background(), "cart:none")
	assert.ErrorIs(t, err, cart.ErrNotFound)
}

func TestCartStore_LoadError(t *testing.T) {
	mock := newMock(t)
	s := NewCartStore(mock)

	mock.ExpectQuery("SELECT document FROM cart_documents").
		WithArgs("cart:abc").
		WillReturnError(errors.New("connection reset"))

	_, err := s.Load(context.Background(), "cart:abc")
	require.Error(t, err)
	assert.NotErrorIs(t, err, cart.ErrNotFound)
}

func TestCartStore_Save(t *testing.T) {
	mock := newMock(t)
	s := NewCartStore(mock)

	mock.ExpectExec("INSERT INTO cart_documents").
		WithArgs("cart:abc", "[]").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.Save(context.Background(), "cart:abc", []byte("[]")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartStore_WithCartStore(t *testing.T) {
	mock := newMock(t)
	ctx := context.Background()
	store := cart.NewManager(NewCartStore(mock)).Store("abc")

	mock.ExpectQuery("SELECT document FROM cart_documents").
		WithArgs("cart:abc").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec("INSERT INTO cart_documents").
		WithArgs("cart:abc", `[{"_id":"p1","name":"Widget","price":9.99,"stockLevel":1}]`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	store.Add(ctx, cart.Product{ID: "p1", Name: "Widget", Price: decimal.RequireFromString("9.99")})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartStore_Ping(t *testing.T) {
	mock, err := pgxmock.NewPool() // pgxmock v4 always monitors pings
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectPing().WillReturnError(errors.New("down"))

	assert.EqualError(t, NewCartStore(mock).Ping(context.Background()), "down")
}

// --- ProductRepository ---

var productCols = []string{
	"id", "name", "slug", "image_ref", "price", "description",
	"discount_percentage", "featured", "stock_level", "category",
}

func TestProductRepository_List(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	rows := pgxmock.NewRows(productCols).
		AddRow("p1", "Widget", "widget", "image-a-1x1-png", decimal.RequireFromString("9.99"), "A widget",
			decimal.Zero, true, nil, "tools").
		AddRow("p2", "Gadget", "gadget", "", decimal.RequireFromString("5"), "",
			decimal.RequireFromString("10"), false, nil, "toys")

	mock.ExpectQuery("SELECT id, name, slug").WillReturnRows(rows)

	products, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.Equal(t, "p1", products[0].ID)
	assert.Equal(t, "widget", products[0].Slug)
	assert.True(t, products[0].Featured)
	assert.True(t, decimal.RequireFromString("9.99").Equal(products[0].Price))
	assert.Nil(t, products[0].InventoryLevel)
	assert.Equal(t, "toys", products[1].Category)
	assert.True(t, decimal.RequireFromString("10").Equal(products[1].DiscountPercentage))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_GetBySlug(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	rows := pgxmock.NewRows(productCols).
		AddRow("p1", "Widget", "widget", "", decimal.RequireFromString("9.99"), "",
			decimal.Zero, false, nil, "tools")
	mock.ExpectQuery("WHERE slug =").WithArgs("widget").WillReturnRows(rows)

	p, err := repo.GetBySlug(context.Background(), "widget")
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)
}

func TestProductRepository_GetByID_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectQuery("WHERE id =").WithArgs("missing").WillReturnRows(pgxmock.NewRows(productCols))

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, product.ErrNotFound)
}

func TestProductRepository_GetByID_QueryError(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectQuery("WHERE id =").WithArgs("p1").WillReturnError(errors.New("timeout"))

	_, err := repo.GetByID(context.Background(), "p1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, product.ErrNotFound)
}

func TestProductRepository_Upsert(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	stock := 7
	p := product.Product{
		ID:             "p1",
		Name:           "Widget",
		Slug:           "widget",
		Price:          decimal.RequireFromString("9.99"),
		InventoryLevel: &stock,
		Category:       "tools",
	}
	mock.ExpectExec("INSERT INTO products").
		WithArgs(p.ID, p.Name, p.Slug, p.ImageRef, p.Price, p.Description,
			p.DiscountPercentage, p.Featured, p.InventoryLevel, p.Category).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Upsert(context.Background(), p))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- OrderRepository ---

func TestOrderRepository_Create(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)

	o := &order.Order{
		ID:        "8a7c1f8e-0a65-4a4b-9a7e-2f1d1f3c9b10",
		CartKey:   "cart:abc",
		Items:     []order.OrderItem{{ProductID: "p1", Name: "Widget", Price: decimal.RequireFromString("9.99"), Quantity: 2}},
		Total:     decimal.RequireFromString("19.98"),
		CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	mock.ExpectExec("INSERT INTO orders").
		WithArgs(o.ID, o.CartKey, pgxmock.AnyArg(), o.Total, o.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), o))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_Create_Error(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)

	mock.ExpectExec("INSERT INTO orders").WillReturnError(errors.New("unique violation"))

	err := repo.Create(context.Background(), &order.Order{ID: "o1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `create order "o1"`)
}
