// Package cart implements the cart store: an ordered, id-unique list of line
// items kept as a single JSON document in a pluggable storage backend.
//
// Every mutation reads the whole document, changes it in memory and writes
// the whole document back. Nothing in this package returns an error to the
// caller: unavailable storage degrades to an empty cart with no-op mutations,
// and corrupt documents are logged and treated as empty.
package cart

import (
	"context"
	"math"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned by a Backend when no document exists for a key.
	ErrNotFound = errors.New("cart document not found")
	// ErrUnavailable is returned by a Backend that has no usable storage.
	ErrUnavailable = errors.New("cart storage unavailable")
)

// MaxQuantity caps a line item's quantity. Increments and merges saturate at
// it, and larger persisted values are read as MaxQuantity.
const MaxQuantity = math.MaxInt32

// addQuantity returns a+b saturated to [1, MaxQuantity].
func addQuantity(a, b int) int {
	a, b = clampQuantity(a), clampQuantity(b)
	if a > MaxQuantity-b {
		return MaxQuantity
	}
	return a + b
}

func clampQuantity(q int) int {
	return min(max(q, 1), MaxQuantity)
}

// LineItem is one product held in the cart.
type LineItem struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	ImageRef string
	// Quantity is always in [1, MaxQuantity]. It is persisted under the stockLevel
	// field for compatibility with existing documents.
	Quantity int
}

// Total returns price multiplied by quantity.
func (i LineItem) Total() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Product is the minimal product shape accepted by Store.Add.
type Product struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	ImageRef string
}

// Summary is a cart listing with derived totals.
type Summary struct {
	Items     []LineItem
	Subtotal  decimal.Decimal
	ItemCount int
}

// Summarize computes subtotal (rounded to 2 places) and item count.
func Summarize(items []LineItem) Summary {
	s := Summary{Items: items, Subtotal: decimal.Zero}
	for _, item := range items {
		s.Subtotal = s.Subtotal.Add(item.Total())
		s.ItemCount += item.Quantity
	}
	s.Subtotal = s.Subtotal.Round(2)
	return s
}

// Backend persists cart documents by key.
type Backend interface {
	// Load returns the stored document, or ErrNotFound.
	Load(ctx context.Context, key string) ([]byte, error)
	// Save replaces the stored document.
	Save(ctx context.Context, key string, document []byte) error
}

// Pinger is implemented by backends that can report their availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

func indexOf(items []LineItem, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}
