// Package events publishes storefront domain events to Kafka.
package events

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/segmentio/kafka-go"

	"github.com/Sabariaz123456/Hackathon3/internal/domain/order"
)

// EventOrderConfirmed is the event_type header of checkout confirmations.
const EventOrderConfirmed = "order.confirmed"

// Config configures the Kafka publisher.
type Config struct {
	Brokers []string `usage:"Kafka brokers; empty disables order events"`
	Topic   string   `default:"storefront.orders" usage:"Topic for order events"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes order events to a single topic. Messages are keyed by cart
// so events of one shopper keep their order within a partition.
type Publisher struct {
	writer  messageWriter
	brokers []string
	now     func() time.Time
}

var _ order.Notifier = (*Publisher)(nil)

// NewPublisher creates a Publisher for cfg.
func NewPublisher(cfg Config) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: kafka.RequireAll,
		},
		brokers: cfg.Brokers,
		now:     time.Now,
	}
}

// OrderConfirmed publishes o as an order.confirmed event.
func (p *Publisher) OrderConfirmed(ctx context.Context, o *order.Order) error {
	msg := kafka.Message{
		Key:   []byte(o.CartKey),
		Value: encodeOrderConfirmed(o, p.now().UTC()),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventOrderConfirmed)},
			{Key: "source", Value: []byte("storefront")},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return errors.Wrapf(err, "publish %s", EventOrderConfirmed)
	}
	return nil
}

// Ping succeeds when at least one broker answers a metadata request.
func (p *Publisher) Ping(ctx context.Context) error {
	if len(p.brokers) == 0 {
		return errors.New("kafka: no brokers configured")
	}
	var lastErr error
	for _, addr := range p.brokers {
		conn, err := kafka.DialContext(ctx, "tcp", addr)
		if err != nil {
			lastErr = err
			continue
		}
		_, err = conn.Brokers()
		_ = conn.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return errors.Wrap(lastErr, "kafka: all brokers unreachable")
}

// Close flushes pending messages.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

func encodeOrderConfirmed(o *order.Order, occurredAt time.Time) []byte {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("event_type", func(e *jx.Encoder) { e.Str(EventOrderConfirmed) })
		e.Field("occurred_at", func(e *jx.Encoder) { e.Str(occurredAt.Format(time.RFC3339Nano)) })
		e.Field("order_id", func(e *jx.Encoder) { e.Str(o.ID) })
		e.Field("cart_key", func(e *jx.Encoder) { e.Str(o.CartKey) })
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, it := range o.Items {
					e.Obj(func(e *jx.Encoder) {
						e.Field("product_id", func(e *jx.Encoder) { e.Str(it.ProductID) })
						e.Field("name", func(e *jx.Encoder) { e.Str(it.Name) })
						e.Field("price", func(e *jx.Encoder) { e.Num(jx.Num(it.Price.String())) })
						e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
					})
				}
			})
		})
		e.Field("item_count", func(e *jx.Encoder) { e.Int(o.ItemCount()) })
		e.Field("total", func(e *jx.Encoder) { e.Num(jx.Num(o.Total.String())) })
		e.Field("created_at", func(e *jx.Encoder) { e.Str(o.CreatedAt.Format(time.RFC3339Nano)) })
	})
	return e.Bytes()
}
