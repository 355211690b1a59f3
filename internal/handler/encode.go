package handler

import (
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/Sabariaz123456/Hackathon3/internal/domain/cart"
	"github.com/Sabariaz123456/Hackathon3/internal/domain/order"
	"github.com/Sabariaz123456/Hackathon3/internal/domain/product"
)

func encodeDecimal(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.String()))
}

// encodeImage writes imageRef and, when it resolves, imageUrl.
func (h *Handler) encodeImage(e *jx.Encoder, ref string) {
	if ref == "" {
		return
	}
	e.Field("imageRef", func(e *jx.Encoder) { e.Str(ref) })
	if h.imageURL == nil {
		return
	}
	if u, err := h.imageURL(ref); err == nil {
		e.Field("imageUrl", func(e *jx.Encoder) { e.Str(u) })
	}
}

func (h *Handler) encodeProduct(e *jx.Encoder, p product.Product) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(p.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
		e.Field("slug", func(e *jx.Encoder) { e.Str(p.Slug) })
		e.Field("price", func(e *jx.Encoder) { encodeDecimal(e, p.Price) })
		if p.Description != "" {
			e.Field("description", func(e *jx.Encoder) { e.Str(p.Description) })
		}
		e.Field("discountPercentage", func(e *jx.Encoder) { encodeDecimal(e, p.DiscountPercentage) })
		e.Field("featured", func(e *jx.Encoder) { e.Bool(p.Featured) })
		if p.InventoryLevel != nil {
			e.Field("inventoryLevel", func(e *jx.Encoder) { e.Int(*p.InventoryLevel) })
		}
		if p.Category != "" {
			e.Field("category", func(e *jx.Encoder) { e.Str(p.Category) })
		}
		h.encodeImage(e, p.ImageRef)
	})
}

func (h *Handler) encodeCart(e *jx.Encoder, s cart.Summary) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, item := range s.Items {
					e.Obj(func(e *jx.Encoder) {
						e.Field("id", func(e *jx.Encoder) { e.Str(item.ID) })
						e.Field("name", func(e *jx.Encoder) { e.Str(item.Name) })
						e.Field("price", func(e *jx.Encoder) { encodeDecimal(e, item.Price) })
						e.Field("quantity", func(e *jx.Encoder) { e.Int(item.Quantity) })
						e.Field("total", func(e *jx.Encoder) { encodeDecimal(e, item.Total().Round(2)) })
						h.encodeImage(e, item.ImageRef)
					})
				}
			})
		})
		e.Field("subtotal", func(e *jx.Encoder) { encodeDecimal(e, s.Subtotal) })
		e.Field("itemCount", func(e *jx.Encoder) { e.Int(s.ItemCount) })
	})
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(o.ID) })
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, it := range o.Items {
					e.Obj(func(e *jx.Encoder) {
						e.Field("productId", func(e *jx.Encoder) { e.Str(it.ProductID) })
						e.Field("name", func(e *jx.Encoder) { e.Str(it.Name) })
						e.Field("price", func(e *jx.Encoder) { encodeDecimal(e, it.Price) })
						e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
					})
				}
			})
		})
		e.Field("total", func(e *jx.Encoder) { encodeDecimal(e, o.Total) })
		e.Field("itemCount", func(e *jx.Encoder) { e.Int(o.ItemCount()) })
		e.Field("createdAt", func(e *jx.Encoder) { e.Str(o.CreatedAt.Format(time.RFC3339)) })
	})
}
