package sanity

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/Sabariaz123456/Hackathon3/internal/domain/product"
)

const projection = `{
  _id, name, "slug": slug.current, image, price, description,
  discountPercentage, isFeaturedProduct, stockLevel, category
}`

const (
	listQuery   = `*[_type == "product" && !(_id in path("drafts.**"))] | order(isFeaturedProduct desc, name asc) ` + projection
	byIDQuery   = `*[_type == "product" && _id == $id][0] ` + projection
	bySlugQuery = `*[_type == "product" && slug.current == $slug][0] ` + projection
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository over a Sanity dataset.
type ProductRepository struct {
	client *Client
}

// NewProductRepository returns a ProductRepository using client.
func NewProductRepository(client *Client) *ProductRepository {
	return &ProductRepository{client: client}
}

// List returns all published products, featured first.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	raw, err := r.client.Query(ctx, listQuery, nil)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}

	var products []product.Product
	d := jx.DecodeBytes(raw)
	if d.Next() == jx.Null {
		return nil, nil
	}
	if err := d.Arr(func(d *jx.Decoder) error {
		p, err := DecodeProduct(d)
		if err != nil {
			return err
		}
		products = append(products, p)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "decode products")
	}
	return products, nil
}

// GetByID returns the product with the given document id.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	return r.getOne(ctx, byIDQuery, map[string]string{"id": id})
}

// GetBySlug returns the product with the given slug.
func (r *ProductRepository) GetBySlug(ctx context.Context, slug string) (*product.Product, error) {
	return r.getOne(ctx, bySlugQuery, map[string]string{"slug": slug})
}

func (r *ProductRepository) getOne(ctx context.Context, query string, params map[string]string) (*product.Product, error) {
	raw, err := r.client.Query(ctx, query, params)
	if err != nil {
		return nil, errors.Wrap(err, "get product")
	}

	d := jx.DecodeBytes(raw)
	if d.Next() == jx.Null {
		return nil, product.ErrNotFound
	}
	p, err := DecodeProduct(d)
	if err != nil {
		return nil, errors.Wrap(err, "decode product")
	}
	return &p, nil
}

// DecodeProduct reads one product document. Both the raw document shape
// (slug as {current}) and the projected shape (slug as a string) are
// accepted; a missing slug is derived from the name.
func DecodeProduct(d *jx.Decoder) (product.Product, error) {
	var p product.Product
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if d.Next() == jx.Null {
			return d.Null()
		}
		var err error
		switch key {
		case "_id":
			p.ID, err = d.Str()
		case "name":
			p.Name, err = d.Str()
		case "slug":
			p.Slug, err = decodeSlug(d)
		case "image":
			p.ImageRef, err = decodeImageRef(d)
		case "price":
			p.Price, err = decodeDecimal(d)
		case "description":
			p.Description, err = d.Str()
		case "discountPercentage":
			p.DiscountPercentage, err = decodeDecimal(d)
		case "isFeaturedProduct":
			p.Featured, err = d.Bool()
		case "stockLevel":
			var n int
			n, err = d.Int()
			p.InventoryLevel = &n
		case "category":
			p.Category, err = d.Str()
		default:
			err = d.Skip()
		}
		return errors.Wrap(err, key)
	})
	if err != nil {
		return product.Product{}, err
	}
	if p.ID == "" {
		return product.Product{}, errors.New("missing _id")
	}
	if p.Slug == "" {
		p.Slug = product.Slugify(p.Name)
	}
	return p, nil
}

func decodeSlug(d *jx.Decoder) (string, error) {
	if d.Next() == jx.String {
		return d.Str()
	}
	var slug string
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "current" || d.Next() != jx.String {
			return d.Skip()
		}
		s, err := d.Str()
		slug = s
		return err
	})
	return slug, err
}

func decodeImageRef(d *jx.Decoder) (string, error) {
	var ref string
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "asset" || d.Next() != jx.Object {
			return d.Skip()
		}
		return d.Obj(func(d *jx.Decoder, key string) error {
			if key != "_ref" || d.Next() != jx.String {
				return d.Skip()
			}
			s, err := d.Str()
			ref = s
			return err
		})
	})
	return ref, err
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	n, err := d.Num()
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(n.String())
}
