package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Sabariaz123456/Hackathon3/internal/catalog"
	"github.com/Sabariaz123456/Hackathon3/internal/catalog/sanity"
	"github.com/Sabariaz123456/Hackathon3/internal/domain/cart"
	"github.com/Sabariaz123456/Hackathon3/internal/domain/order"
	"github.com/Sabariaz123456/Hackathon3/internal/domain/product"
	"github.com/Sabariaz123456/Hackathon3/internal/events"
	"github.com/Sabariaz123456/Hackathon3/internal/handler"
	"github.com/Sabariaz123456/Hackathon3/internal/storage/memory"
	"github.com/Sabariaz123456/Hackathon3/internal/storage/postgres"
	redisstore "github.com/Sabariaz123456/Hackathon3/internal/storage/redis"
	"github.com/Sabariaz123456/Hackathon3/pkg/health"
	"github.com/Sabariaz123456/Hackathon3/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage.Backend),
		zap.String("catalog", cfg.Catalog.Source),
	)

	healthSvc := health.New()

	// PostgreSQL pool + migrations, only when a component stores there.
	var pool *pgxpool.Pool
	if cfg.usesPostgres() {
		var err error
		pool, err = postgres.NewPool(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			return errors.Wrap(err, "create db pool")
		}
		defer pool.Close()

		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return errors.Wrap(err, "run migrations")
		}
		healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	}

	// Cart storage.
	backend, closeBackend, err := newCartBackend(cfg.Storage, pool)
	if err != nil {
		return errors.Wrap(err, "create cart backend")
	}
	defer closeBackend()

	carts := cart.NewManager(backend,
		cart.WithKeyPrefix(cfg.Storage.KeyPrefix),
		cart.WithMeterProvider(m.MeterProvider()),
		cart.WithTracerProvider(m.TracerProvider()),
	)
	healthSvc.AddReadinessCheck("cart-storage", 5*time.Second, health.PingCheck(carts))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc-pause", time.Second, health.GCMaxPauseCheck(time.Second))

	// Catalog.
	source, imageURL, err := newCatalogSource(cfg.Catalog, pool, lg, m)
	if err != nil {
		return errors.Wrap(err, "create catalog")
	}
	index := catalog.NewIndex(source, cfg.Catalog.RefreshInterval)

	// Orders.
	var orderRepo order.Repository = memory.NewOrderRepository()
	if pool != nil {
		orderRepo = postgres.NewOrderRepository(pool)
	}
	var orderOpts []order.ServiceOption
	if len(cfg.Events.Brokers) > 0 {
		publisher := events.NewPublisher(cfg.Events)
		defer func() {
			if err := publisher.Close(); err != nil {
				lg.Warn("Close event publisher", zap.Error(err))
			}
		}()
		orderOpts = append(orderOpts, order.WithNotifier(publisher))
		// Events are best effort, so an unreachable broker only warns.
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := publisher.Ping(pingCtx); err != nil {
			lg.Warn("Kafka unreachable at startup", zap.Error(err))
		}
		cancel()
	}
	orderService := order.NewService(orderRepo, orderOpts...)

	// HTTP handlers.
	sessionCfg := httpmiddleware.SessionConfig{
		CookieName: cfg.Session.CookieName,
		MaxAge:     cfg.Session.MaxAge,
		Secure:     cfg.Session.Secure,
	}
	h := handler.NewHandler(
		handler.HandlerConfig{
			ImageURL: imageURL,
			Session:  sessionCfg,
		},
		index,
		carts,
		orderService,
	)

	// Mux: health endpoints + API routes on one server.
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", h.Router())

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", httpmiddleware.RequestIDHeader},
				ExposeHeaders:    []string{httpmiddleware.RequestIDHeader},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:     cfg.RateLimit.Max,
				Window:  cfg.RateLimit.Window,
				KeyFunc: httpmiddleware.SessionKeyFor(sessionCfg),
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("storefront-api", m.TracerProvider(), m.MeterProvider()),
			httpmiddleware.LogRequests(),
			httpmiddleware.Route(),
		),
	}

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return index.Run(gctx)
	})
	// Graceful shutdown: wait for cancellation, drain, then stop.
	g.Go(func() error {
		<-gctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		return nil
	})
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	return g.Wait()
}

// newCartBackend opens the configured cart storage. The returned func
// releases it.
func newCartBackend(cfg StorageConfig, pool *pgxpool.Pool) (cart.Backend, func(), error) {
	switch cfg.Backend {
	case "memory":
		return memory.NewCartStore(), func() {}, nil
	case "redis":
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, errors.Wrap(err, "parse redis url")
		}
		client := redis.NewClient(opts)
		return redisstore.NewCartStore(client, cfg.TTL), func() { _ = client.Close() }, nil
	case "postgres":
		if pool == nil {
			return nil, nil, errors.New("postgres backend without a pool")
		}
		return postgres.NewCartStore(pool), func() {}, nil
	default:
		return nil, nil, errors.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// newCatalogSource builds the product source and the image URL resolver.
// Images are Sanity assets in both cases: the PostgreSQL mirror stores the
// asset reference only.
func newCatalogSource(
	cfg CatalogConfig,
	pool *pgxpool.Pool,
	lg *zap.Logger,
	m *app.Telemetry,
) (product.Repository, func(string) (string, error), error) {
	imageURL := func(ref string) (string, error) {
		return sanity.ImageURL(cfg.Sanity.ProjectID, cfg.Sanity.Dataset, ref)
	}

	switch cfg.Source {
	case "sanity":
		client, err := sanity.New(cfg.Sanity,
			sanity.WithLogger(lg.Named("sanity")),
			sanity.WithTracerProvider(m.TracerProvider()),
			sanity.WithMeterProvider(m.MeterProvider()),
		)
		if err != nil {
			return nil, nil, errors.Wrap(err, "create sanity client")
		}
		return sanity.NewProductRepository(client), client.ImageURL, nil
	case "postgres":
		if pool == nil {
			return nil, nil, errors.New("postgres catalog without a pool")
		}
		return postgres.NewProductRepository(pool), imageURL, nil
	default:
		return nil, nil, errors.Errorf("unknown catalog source %q", cfg.Source)
	}
}
