package product

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/Sabariaz123456/Hackathon3/internal/domain/cart"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// MaxSlugLength is the longest slug the catalog accepts.
const MaxSlugLength = 96

// Product is a catalog document.
type Product struct {
	ID                 string
	Name               string
	Slug               string
	ImageRef           string
	Price              decimal.Decimal
	Description        string
	DiscountPercentage decimal.Decimal
	Featured           bool
	// InventoryLevel is the stock available in the catalog, nil when unknown.
	// It has nothing to do with the quantity held in a cart.
	InventoryLevel *int
	Category       string
}

// CartProduct returns the subset of p accepted by cart.Store.Add.
func (p Product) CartProduct() cart.Product {
	return cart.Product{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price,
		ImageRef: p.ImageRef,
	}
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetBySlug(ctx context.Context, slug string) (*Product, error)
}

// Slugify lowercases name, replaces each run of whitespace with a single
// hyphen and truncates the result to MaxSlugLength bytes.
func Slugify(name string) string {
	var b strings.Builder
	space := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space {
			b.WriteByte('-')
			space = false
		}
		b.WriteRune(r)
	}
	if space {
		b.WriteByte('-')
	}

	s := b.String()
	if len(s) <= MaxSlugLength {
		return s
	}
	s = s[:MaxSlugLength]
	for !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
