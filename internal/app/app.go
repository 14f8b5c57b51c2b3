// Package app wires the storefront client together from its configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/gaarage/storefront/internal/api"
	"github.com/gaarage/storefront/internal/cart"
	"github.com/gaarage/storefront/internal/catalog"
	"github.com/gaarage/storefront/internal/checkout"
	"github.com/gaarage/storefront/internal/config"
	"github.com/gaarage/storefront/internal/event"
	"github.com/gaarage/storefront/internal/repository"
	"github.com/gaarage/storefront/internal/repository/memory"
	redisrepo "github.com/gaarage/storefront/internal/repository/redis"
	"github.com/gaarage/storefront/internal/session"
	"github.com/gaarage/storefront/pkg/database"
	"github.com/gaarage/storefront/pkg/httpclient"
	pkgkafka "github.com/gaarage/storefront/pkg/kafka"
	"github.com/gaarage/storefront/pkg/reachability"
	"github.com/gaarage/storefront/pkg/tracing"
)

// ServiceName identifies the client in logs, traces and metrics.
const ServiceName = "storefront"

// App holds the wired components of the storefront client.
type App struct {
	API          *api.Client
	Catalog      *catalog.Catalog
	Cart         *cart.Aggregator
	Session      *session.Manager
	Checkout     *checkout.Service
	Events       *event.Producer
	Reachability *reachability.Prober

	cfg            *config.Config
	logger         *slog.Logger
	rdb            *redis.Client
	producer       *pkgkafka.Producer
	metricsServer  *http.Server
	shutdownTracer tracing.ShutdownFunc
}

// New builds every component. Nothing is read from local state until Start.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	traceCfg := tracing.DefaultConfig(ServiceName)
	traceCfg.Enabled = cfg.OTELEnabled
	traceCfg.Environment = cfg.Environment
	traceCfg.Endpoint = cfg.OTELEndpoint
	traceCfg.SampleRate = cfg.OTELSampleRate
	shutdown, err := tracing.InitTracer(ctx, traceCfg)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.shutdownTracer = shutdown

	carts, tokens, err := a.openState(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Reachability = reachability.NewProber(cfg.ReachabilityTimeout)
	checker, err := reachability.URLChecker(cfg.APIURL)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("build reachability checker: %w", err)
	}
	a.Reachability.Register("api", checker)

	a.API = api.New(a.newDoer(), api.Options{
		BaseURL:      cfg.APIURL,
		Timeout:      cfg.RequestTimeout,
		PageSize:     cfg.PageSize,
		DeviceID:     cfg.DeviceID,
		Reachability: a.Reachability,
	}, logger)

	var publisher event.Publisher
	if cfg.EventsEnabled() {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = a.producer
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}
	a.Events = event.NewProducer(publisher, logger)

	a.Catalog = catalog.New(a.API)
	a.Cart = cart.New(carts, a.Events, logger)
	a.Session = session.New(a.API, tokens, logger)
	a.Session.OnIdentityChange(a.Cart.SwitchIdentity)
	a.Checkout = checkout.New(a.API, a.Cart, a.Events, logger)

	return a, nil
}

// openState selects the cart and token stores.
func (a *App) openState(ctx context.Context) (repository.CartRepository, repository.TokenRepository, error) {
	if a.cfg.StateBackend == config.BackendMemory {
		store := memory.New()
		return store, store, nil
	}

	redisCfg := database.DefaultRedisConfig()
	redisCfg.Addr = a.cfg.RedisAddr
	redisCfg.Password = a.cfg.RedisPass
	redisCfg.DB = a.cfg.RedisDB
	database.SetSlowCommandLogger(a.logger)

	rdb, err := database.NewRedisClient(ctx, redisCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.rdb = rdb
	a.logger.Info("connected to Redis",
		slog.String("addr", a.cfg.RedisAddr),
		slog.Int("db", a.cfg.RedisDB),
	)

	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, rdb, ServiceName); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			a.logger.Warn("failed to register redis pool metrics", slog.String("error", err.Error()))
		}
	}

	return redisrepo.NewCartRepository(rdb, a.cfg.CartTTL()), redisrepo.NewTokenRepository(rdb), nil
}

func (a *App) newDoer() httpclient.Doer {
	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = a.cfg.RequestTimeout
	httpCfg.MaxRetries = a.cfg.MaxRetries
	httpCfg.RateLimit = a.cfg.RateLimitRPS
	httpCfg.RateBurst = a.cfg.RateLimitBurst
	httpCfg.Tracing = a.cfg.OTELEnabled
	client := httpclient.New(httpCfg)

	if !a.cfg.CircuitBreaker {
		return client
	}
	return httpclient.NewCircuitBreakerClient(client, httpclient.DefaultCircuitBreakerConfig("storefront-api"), a.logger)
}

// Start loads the guest cart, resumes the stored session and starts the
// metrics listener when one is configured. A session that cannot be resumed
// because the API is unreachable leaves the guest cart active.
func (a *App) Start(ctx context.Context) error {
	a.Cart.Load(ctx)

	if err := a.Session.Restore(ctx); err != nil {
		a.logger.WarnContext(ctx, "could not resume session", slog.String("error", err.Error()))
	}

	if a.cfg.MetricsAddr == "" {
		return nil
	}
	a.metricsServer = &http.Server{
		Addr:              a.cfg.MetricsAddr,
		Handler:           NewTelemetryRouter(a.Reachability, a.logger),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.logger.Info("starting metrics listener", slog.String("addr", a.cfg.MetricsAddr))
		if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics listener failed", slog.String("error", err.Error()))
		}
	}()
	return nil
}

// NewFetcher returns a product fetcher over the API using the configured
// debounce window. The caller closes it.
func (a *App) NewFetcher() *catalog.Fetcher {
	return catalog.NewFetcher(a.API, a.cfg.Debounce, a.logger)
}

// NewSearcher returns a debounced product search. The caller closes it.
func (a *App) NewSearcher() *catalog.Searcher {
	return catalog.NewSearcher(a.API, a.cfg.Debounce, a.logger)
}

// Close flushes pending cart writes and releases every connection.
func (a *App) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if a.metricsServer != nil {
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			a.logger.Error("metrics listener shutdown error", slog.String("error", err.Error()))
		}
	}

	if a.Cart != nil {
		a.Cart.Close()
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}

	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}

	if a.shutdownTracer != nil {
		if err := a.shutdownTracer(ctx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		}
	}
	return nil
}
