package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/TemirB/orders-enrichment/internal/application/service"
	"github.com/TemirB/orders-enrichment/internal/cache"
	"github.com/TemirB/orders-enrichment/internal/config"
	"github.com/TemirB/orders-enrichment/internal/database"
	"github.com/TemirB/orders-enrichment/internal/domain"
	"github.com/TemirB/orders-enrichment/internal/httpapi"
	"github.com/TemirB/orders-enrichment/internal/invalidation"
	"github.com/TemirB/orders-enrichment/internal/kafka"
	"github.com/TemirB/orders-enrichment/internal/observability"
	"github.com/TemirB/orders-enrichment/internal/pkg/bulkhead"
	"github.com/TemirB/orders-enrichment/internal/pkg/circuit"
	"github.com/TemirB/orders-enrichment/internal/remote"
	"github.com/TemirB/orders-enrichment/internal/resilience"
	"github.com/TemirB/orders-enrichment/internal/validation"
)

func main() {
	cfg := config.Load()

	logger, err := newLogger(cfg.AppEnv)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("orders service stopped", zap.Error(err))
	}
	logger.Info("orders service stopped")
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

type store interface {
	cache.Store
	Close() error
}

type nopCloser struct{ cache.Store }

func (nopCloser) Close() error { return nil }

func openStore(ctx context.Context, cfg config.Config) (store, error) {
	if cfg.Cache.Backend == "memory" {
		s, err := cache.NewMemoryStore(cfg.Cache.MemorySize)
		if err != nil {
			return nil, err
		}
		return nopCloser{s}, nil
	}
	s, err := cache.NewRedisStore(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewPrometheus(reg)

	// Database
	pool, err := database.Connect(ctx, cfg.DSN(), logger.Named("pgx"))
	if err != nil {
		return err
	}
	defer pool.Close()
	repo := database.New(pool)
	if err := repo.Migrate(ctx); err != nil {
		return err
	}

	// Cache
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	exp := cache.Expiration{Sliding: cfg.Cache.Sliding, Absolute: cfg.Cache.Absolute}

	// Upstreams
	hc := &http.Client{
		Transport: &http.Transport{
			MaxIdleConnsPerHost: cfg.Bulkhead.MaxConcurrent,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	productsLog := logger.Named("products")
	usersLog := logger.Named("users")

	var productsBreaker *circuit.Breaker
	if cfg.Breaker.ProductsEnabled {
		productsBreaker = circuit.New(cfg.Breaker, resilience.BreakerHook("product", productsLog, metrics))
	}
	usersBreaker := circuit.New(cfg.Breaker, resilience.BreakerHook("user", usersLog, metrics))

	products := resilience.New[domain.Product]("product",
		remote.NewProducts(cfg.Upstreams.ProductsURL, hc).Fetch,
		domain.FallbackProduct,
		resilience.WithBulkhead(bulkhead.New(cfg.Bulkhead.MaxConcurrent, cfg.Bulkhead.MaxQueue)),
		resilience.WithBreaker(productsBreaker),
		resilience.WithTimeout(cfg.Upstreams.Timeout),
		resilience.WithLogger(productsLog),
		resilience.WithMetrics(metrics),
	)
	users := resilience.New[domain.User]("user",
		remote.NewUsers(cfg.Upstreams.UsersURL, hc).Fetch,
		domain.FallbackUser,
		resilience.WithBulkhead(bulkhead.New(cfg.Bulkhead.MaxConcurrent, cfg.Bulkhead.MaxQueue)),
		resilience.WithBreaker(usersBreaker),
		resilience.WithTimeout(cfg.Upstreams.Timeout),
		resilience.WithLogger(usersLog),
		resilience.WithMetrics(metrics),
	)

	productLookup := cache.NewProductLookup(st, products, exp, logger.Named("cache"), metrics)
	userLookup := cache.NewUserLookup(st, users, exp, logger.Named("cache"), metrics)

	// Service
	svc := service.NewService(repo, productLookup, userLookup, validation.New(), cfg.EnrichFanOut, logger.Named("service"))

	// Invalidation
	strategy, err := invalidation.ParseStrategy(cfg.RenameMode)
	if err != nil {
		return err
	}
	subscriber := invalidation.NewSubscriber(invalidation.NewApplier(st, exp, strategy), logger.Named("invalidation"), metrics)

	g, gctx := errgroup.WithContext(ctx)
	for _, b := range kafka.Bindings(cfg.Kafka) {
		deliveries := make(chan invalidation.Delivery)
		consumer := kafka.NewConsumer(cfg.Kafka, b, cfg.Retry, logger.Named("kafka"))
		g.Go(func() error { return ignoreCanceled(consumer.Run(gctx, deliveries)) })
		g.Go(func() error { return ignoreCanceled(subscriber.Run(gctx, deliveries)) })
	}

	// HTTP
	server := httpapi.New(svc, logger.Named("http"), metrics,
		httpapi.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})),
	)
	g.Go(func() error {
		logger.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		return server.ListenAndServe(gctx, cfg.HTTPAddr)
	})

	return g.Wait()
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
