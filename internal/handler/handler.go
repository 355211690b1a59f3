// Package handler serves the storefront HTTP API: catalog listing, the
// session cart and checkout.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Sabariaz123456/Hackathon3/internal/domain/cart"
	"github.com/Sabariaz123456/Hackathon3/internal/domain/order"
	"github.com/Sabariaz123456/Hackathon3/internal/domain/product"
	"github.com/Sabariaz123456/Hackathon3/pkg/httpmiddleware"
)

// maxBodyBytes caps request bodies; every request body is a tiny object.
const maxBodyBytes = 1 << 16

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// ImageURL resolves an image asset reference to a public URL. When nil
	// only the reference is returned.
	ImageURL func(ref string) (string, error)
	Session  httpmiddleware.SessionConfig
}

// Handler serves the API routes.
type Handler struct {
	products product.Repository
	carts    *cart.Manager
	orders   *order.Service
	validate *validator.Validate
	imageURL func(string) (string, error)
	session  httpmiddleware.SessionConfig
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg HandlerConfig,
	products product.Repository,
	carts *cart.Manager,
	orders *order.Service,
) *Handler {
	return &Handler{
		products: products,
		carts:    carts,
		orders:   orders,
		validate: newValidator(),
		imageURL: cfg.ImageURL,
		session:  cfg.Session,
	}
}

// Routes registers the API under r. Cart and checkout routes run inside the
// session middleware.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/products", h.ListProducts)
	r.Get("/products/{slug}", h.GetProduct)

	r.Group(func(r chi.Router) {
		r.Use(httpmiddleware.Session(h.session))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)
			r.Post("/items", h.AddItem)
			r.Put("/items/{id}", h.SetQuantity)
			r.Delete("/items/{id}", h.RemoveItem)
			r.Post("/items/{id}/increment", h.IncrementItem)
			r.Post("/items/{id}/decrement", h.DecrementItem)
		})
		r.Post("/checkout", h.Checkout)
	})
}

// Router returns a chi router serving the API under /api.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.Route("/api", h.Routes)
	return r
}

// cartFor returns the cart of the request's session.
func (h *Handler) cartFor(r *http.Request) *cart.Store {
	return h.carts.Store(httpmiddleware.SessionFromContext(r.Context()))
}
