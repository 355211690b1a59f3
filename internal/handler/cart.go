package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/Sabariaz123456/Hackathon3/internal/domain/cart"
	"github.com/Sabariaz123456/Hackathon3/internal/domain/product"
)

type addItemRequest struct {
	ProductID string `json:"productId" validate:"required,max=128"`
}

type setQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,max=999"`
}

// respondCart re-lists the cart after an operation so the caller always sees
// the persisted state.
func (h *Handler) respondCart(w http.ResponseWriter, r *http.Request, c *cart.Store) {
	var e jx.Encoder
	h.encodeCart(&e, c.Summary(r.Context()))
	writeJSON(w, http.StatusOK, &e)
}

// itemID reads and validates the {id} path parameter.
func (h *Handler) itemID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if err := h.validate.Var(id, "required,max=128"); err != nil {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return "", false
	}
	return id, true
}

// GetCart lists the session cart with its subtotal.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	h.respondCart(w, r, h.cartFor(r))
}

// AddItem adds one unit of a catalog product to the cart.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	err := readBody(r, func(d *jx.Decoder, key string) error {
		if key != "productId" {
			return d.Skip()
		}
		if d.Next() != jx.String {
			return badRequest("productId must be a string")
		}
		v, err := d.Str()
		req.ProductID = v
		return err
	})
	if err == nil {
		err = h.check(req)
	}
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	p, err := h.products.GetByID(r.Context(), req.ProductID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		internalError(w, r, errors.Wrap(err, "get product"))
		return
	}

	c := h.cartFor(r)
	c.Add(r.Context(), p.CartProduct())
	h.respondCart(w, r, c)
}

// SetQuantity sets an item's quantity; below 1 removes it.
func (h *Handler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}

	var req setQuantityRequest
	err := readBody(r, func(d *jx.Decoder, key string) error {
		if key != "quantity" {
			return d.Skip()
		}
		if d.Next() != jx.Number {
			return badRequest("quantity must be an integer")
		}
		v, err := d.Int()
		if err != nil {
			return badRequest("quantity must be an integer")
		}
		req.Quantity = &v
		return nil
	})
	if err == nil {
		err = h.check(req)
	}
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	c := h.cartFor(r)
	c.SetQuantity(r.Context(), id, *req.Quantity)
	h.respondCart(w, r, c)
}

// IncrementItem raises an item's quantity by one.
func (h *Handler) IncrementItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}
	c := h.cartFor(r)
	c.Increment(r.Context(), id)
	h.respondCart(w, r, c)
}

// DecrementItem lowers an item's quantity by one, never below 1.
func (h *Handler) DecrementItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}
	c := h.cartFor(r)
	c.Decrement(r.Context(), id)
	h.respondCart(w, r, c)
}

// RemoveItem deletes an item from the cart.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}
	c := h.cartFor(r)
	c.Remove(r.Context(), id)
	h.respondCart(w, r, c)
}

// ClearCart empties the cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	c := h.cartFor(r)
	c.Clear(r.Context())
	h.respondCart(w, r, c)
}
