package cart

import (
	"bytes"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// Field names of the persisted document. Quantity is stored as stockLevel.
const (
	fieldID       = "_id"
	fieldName     = "name"
	fieldPrice    = "price"
	fieldImage    = "image"
	fieldAsset    = "asset"
	fieldRef      = "_ref"
	fieldType     = "_type"
	fieldQuantity = "stockLevel"
)

// EncodeDocument serializes items as a JSON array of
// {_id, name, price, image?: {asset: {_ref, _type}}, stockLevel}.
func EncodeDocument(items []LineItem) []byte {
	var e jx.Encoder
	e.Arr(func(e *jx.Encoder) {
		for _, item := range items {
			encodeItem(e, item)
		}
	})
	return e.Bytes()
}

func encodeItem(e *jx.Encoder, item LineItem) {
	e.Obj(func(e *jx.Encoder) {
		e.Field(fieldID, func(e *jx.Encoder) { e.Str(item.ID) })
		e.Field(fieldName, func(e *jx.Encoder) { e.Str(item.Name) })
		e.Field(fieldPrice, func(e *jx.Encoder) { e.Num(jx.Num(item.Price.String())) })
		if item.ImageRef != "" {
			e.Field(fieldImage, func(e *jx.Encoder) {
				e.Obj(func(e *jx.Encoder) {
					e.Field(fieldAsset, func(e *jx.Encoder) {
						e.Obj(func(e *jx.Encoder) {
							e.Field(fieldRef, func(e *jx.Encoder) { e.Str(item.ImageRef) })
							e.Field(fieldType, func(e *jx.Encoder) { e.Str("image") })
						})
					})
				})
			})
		}
		e.Field(fieldQuantity, func(e *jx.Encoder) { e.Int(item.Quantity) })
	})
}

// DecodeDocument parses a persisted cart document.
//
// An empty or null document is an empty cart. A missing or non-positive
// stockLevel counts as 1 and one above MaxQuantity counts as MaxQuantity.
// Repeated ids are merged by summing quantities, saturating at MaxQuantity,
// so the result always satisfies the cart invariants. Anything that is not an
// array of line item objects is an error.
func DecodeDocument(data []byte) ([]LineItem, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	d := jx.DecodeBytes(data)
	switch d.Next() {
	case jx.Array:
	case jx.Null:
		return nil, nil
	default:
		return nil, errors.New("document is not a JSON array")
	}

	var items []LineItem
	if err := d.Arr(func(d *jx.Decoder) error {
		item, err := decodeItem(d)
		if err != nil {
			return errors.Wrapf(err, "item %d", len(items))
		}
		if i := indexOf(items, item.ID); i >= 0 {
			items[i].Quantity = addQuantity(items[i].Quantity, item.Quantity)
			return nil
		}
		items = append(items, item)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "decode items")
	}
	if d.Next() != jx.Invalid {
		return nil, errors.New("trailing data after document")
	}
	return items, nil
}

func decodeItem(d *jx.Decoder) (LineItem, error) {
	if d.Next() != jx.Object {
		return LineItem{}, errors.New("not an object")
	}

	item := LineItem{Price: decimal.Zero}
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if d.Next() == jx.Null {
			return d.Null()
		}
		switch key {
		case fieldID:
			v, err := d.Str()
			if err != nil {
				return errors.Wrap(err, fieldID)
			}
			item.ID = v
		case fieldName:
			v, err := d.Str()
			if err != nil {
				return errors.Wrap(err, fieldName)
			}
			item.Name = v
		case fieldPrice:
			price, err := decodeDecimal(d)
			if err != nil {
				return errors.Wrap(err, fieldPrice)
			}
			item.Price = price
		case fieldImage:
			ref, err := decodeImageRef(d)
			if err != nil {
				return errors.Wrap(err, fieldImage)
			}
			item.ImageRef = ref
		case fieldQuantity:
			q, err := decodeQuantity(d)
			if err != nil {
				return errors.Wrap(err, fieldQuantity)
			}
			item.Quantity = q
		default:
			return d.Skip()
		}
		return nil
	}); err != nil {
		return LineItem{}, err
	}

	if item.ID == "" {
		return LineItem{}, errors.New("missing _id")
	}
	if item.Price.IsNegative() {
		return LineItem{}, errors.Errorf("negative price %s", item.Price)
	}
	item.Quantity = clampQuantity(item.Quantity)
	return item, nil
}

var maxQuantity = decimal.NewFromInt(MaxQuantity)

// decodeQuantity reads an arbitrary JSON number as a quantity, truncating
// fractions and clamping to [1, MaxQuantity].
func decodeQuantity(d *jx.Decoder) (int, error) {
	v, err := decodeDecimal(d)
	if err != nil {
		return 0, err
	}
	switch {
	case v.GreaterThan(maxQuantity):
		return MaxQuantity, nil
	case v.LessThan(decimal.NewFromInt(1)):
		return 1, nil
	}
	return int(v.IntPart()), nil
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	n, err := d.Num()
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(n.String())
}

// decodeImageRef extracts image.asset._ref, ignoring everything else.
func decodeImageRef(d *jx.Decoder) (string, error) {
	var ref string
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != fieldAsset || d.Next() != jx.Object {
			return d.Skip()
		}
		return d.Obj(func(d *jx.Decoder, key string) error {
			if key != fieldRef || d.Next() != jx.String {
				return d.Skip()
			}
			v, err := d.Str()
			ref = v
			return err
		})
	})
	return ref, err
}
