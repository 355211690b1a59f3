package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Sabariaz123456/Hackathon3/internal/domain/cart"
)

// ErrEmptyCart is returned when checking out a cart with no items.
var ErrEmptyCart = errors.New("cart is empty")

// Cart is the part of cart.Store the checkout flow needs.
type Cart interface {
	Key() string
	List(ctx context.Context) []cart.LineItem
	Release(ctx context.Context, ordered []cart.LineItem)
}

// Notifier is told about every confirmed order, e.g. to publish an event.
type Notifier interface {
	OrderConfirmed(ctx context.Context, o *Order) error
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithNotifier adds a Notifier called after each successful checkout.
func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) { s.notifiers = append(s.notifiers, n) }
}

// Service records checkout confirmations.
type Service struct {
	orders    Repository
	notifiers []Notifier
	now       func() time.Time
}

// NewService creates an order Service backed by orders.
func NewService(orders Repository, opts ...ServiceOption) *Service {
	s := &Service{
		orders: orders,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Checkout turns the current contents of c into an order, persists it and
// releases the ordered quantities from the cart. A failed write leaves the
// cart untouched. Items added while the order is written are not part of it
// and stay in the cart.
func (s *Service) Checkout(ctx context.Context, c Cart) (*Order, error) {
	items := c.List(ctx)
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	sum := cart.Summarize(items)
	o := &Order{
		ID:        uuid.New().String(),
		CartKey:   c.Key(),
		Items:     make([]OrderItem, len(items)),
		Total:     sum.Subtotal,
		CreatedAt: s.now().UTC(),
	}
	for i, it := range items {
		o.Items[i] = OrderItem{
			ProductID: it.ID,
			Name:      it.Name,
			Price:     it.Price,
			Quantity:  it.Quantity,
		}
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	// Release swallows its own storage failures; the order stands either way.
	c.Release(ctx, items)

	lg := zctx.From(ctx)
	lg.Info("Order confirmed",
		zap.String("order_id", o.ID),
		zap.String("cart", o.CartKey),
		zap.Int("items", o.ItemCount()),
		zap.Stringer("total", o.Total),
	)
	// A lost notification does not undo the confirmation.
	for _, n := range s.notifiers {
		if err := n.OrderConfirmed(ctx, o); err != nil {
			lg.Warn("Order notification failed", zap.String("order_id", o.ID), zap.Error(err))
		}
	}
	return o, nil
}
