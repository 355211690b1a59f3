// Package sanity reads the product catalog from the Sanity content lake
// through its GROQ query API.
package sanity

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// ErrCircuitOpen is returned while the breaker rejects calls after repeated
// upstream failures.
var ErrCircuitOpen = errors.New("sanity: circuit open")

// Config selects the Sanity project and dataset.
type Config struct {
	ProjectID  string        `default:"uvv8e6x0" usage:"Sanity project id"`
	Dataset    string        `default:"production" usage:"Sanity dataset"`
	APIVersion string        `default:"2023-01-01" usage:"Sanity API version date"`
	UseCDN     bool          `default:"false" usage:"Query the API CDN instead of the live API"`
	Token      string        `usage:"Read token for private datasets"`
	BaseURL    string        `usage:"Override the API host, e.g. for a proxy"`
	Timeout    time.Duration `default:"10s" usage:"Per-request timeout"`
}

// APIError is a non-2xx answer from the query API.
type APIError struct {
	StatusCode  int
	Description string
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("sanity: status %d", e.StatusCode)
	}
	return fmt.Sprintf("sanity: status %d: %s", e.StatusCode, e.Description)
}

// Client runs GROQ queries.
type Client struct {
	cfg     Config
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
}

type options struct {
	transport      http.RoundTripper
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	logger         *zap.Logger
}

// Option configures a Client.
type Option func(*options)

// WithTransport sets the underlying round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithTracerProvider sets the tracer provider used by the HTTP transport.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// WithMeterProvider sets the meter provider used by the HTTP transport.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

// WithLogger sets the logger for breaker state changes.
func WithLogger(lg *zap.Logger) Option {
	return func(o *options) { o.logger = lg }
}

// New creates a Client for cfg.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("sanity: project id is required")
	}
	if cfg.Dataset == "" {
		return nil, errors.New("sanity: dataset is required")
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2023-01-01"
	}

	o := options{
		transport:      http.DefaultTransport,
		tracerProvider: tracenoop.NewTracerProvider(),
		meterProvider:  metricnoop.NewMeterProvider(),
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	base := cfg.BaseURL
	if base == "" {
		host := "api"
		if cfg.UseCDN {
			host = "apicdn"
		}
		base = fmt.Sprintf("https://%s.%s.sanity.io", cfg.ProjectID, host)
	}

	c := &Client{
		cfg:     cfg,
		baseURL: base,
		http: &http.Client{
			Timeout: cfg.Timeout,
			Transport: otelhttp.NewTransport(o.transport,
				otelhttp.WithTracerProvider(o.tracerProvider),
				otelhttp.WithMeterProvider(o.meterProvider),
			),
		},
	}
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "sanity",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			o.logger.Warn("Circuit breaker state change",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
		},
		IsSuccessful: func(err error) bool {
			// Client errors say nothing about upstream health.
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.StatusCode < http.StatusInternalServerError &&
					apiErr.StatusCode != http.StatusTooManyRequests
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return c, nil
}

// QueryURL builds the query endpoint URL for a GROQ query. Each param is
// passed as $name with a JSON-encoded string value.
func (c *Client) QueryURL(query string, params map[string]string) string {
	v := url.Values{}
	v.Set("query", query)
	for name, value := range params {
		e := jx.GetEncoder()
		e.Str(value)
		v.Set("$"+name, e.String())
		jx.PutEncoder(e)
	}
	return fmt.Sprintf("%s/v%s/data/query/%s?%s",
		c.baseURL, c.cfg.APIVersion, url.PathEscape(c.cfg.Dataset), v.Encode(),
	)
}

// Query runs a GROQ query and returns the raw JSON of its result field.
func (c *Client) Query(ctx context.Context, query string, params map[string]string) ([]byte, error) {
	raw, err := c.breaker.Execute(func() ([]byte, error) {
		return c.do(ctx, c.QueryURL(query, params))
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrCircuitOpen
		}
		return nil, err
	}
	return raw, nil
}

func (c *Client) do(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "sanity query")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}
	if resp.StatusCode/100 != 2 {
		return nil, &APIError{StatusCode: resp.StatusCode, Description: errorDescription(body)}
	}

	result, err := resultField(body)
	if err != nil {
		return nil, errors.Wrap(err, "decode response")
	}
	return result, nil
}

// resultField extracts the raw "result" value of a query response.
func resultField(body []byte) ([]byte, error) {
	var result []byte
	found := false
	if err := jx.DecodeBytes(body).Obj(func(d *jx.Decoder, key string) error {
		if key != "result" {
			return d.Skip()
		}
		raw, err := d.Raw()
		if err != nil {
			return err
		}
		result = append([]byte(nil), raw...)
		found = true
		return nil
	}); err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.New("missing result")
	}
	return result, nil
}

// errorDescription pulls error.description out of an error body, if any.
func errorDescription(body []byte) string {
	var desc string
	_ = jx.DecodeBytes(body).Obj(func(d *jx.Decoder, key string) error {
		if key != "error" || d.Next() != jx.Object {
			return d.Skip()
		}
		return d.Obj(func(d *jx.Decoder, key string) error {
			if key != "description" || d.Next() != jx.String {
				return d.Skip()
			}
			s, err := d.Str()
			desc = s
			return err
		})
	})
	return desc
}
