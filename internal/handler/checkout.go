package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/Sabariaz123456/Hackathon3/internal/domain/order"
)

// Checkout records an order for the session cart and clears it.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Checkout(r.Context(), h.cartFor(r))
	if err != nil {
		if errors.Is(err, order.ErrEmptyCart) {
			writeError(w, http.StatusConflict, "cart is empty")
			return
		}
		internalError(w, r, errors.Wrap(err, "checkout"))
		return
	}

	var e jx.Encoder
	encodeOrder(&e, o)
	writeJSON(w, http.StatusCreated, &e)
}
