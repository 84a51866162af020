// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/openpecha/catalog/internal/cache"
	"github.com/openpecha/catalog/internal/catalog"
	"github.com/openpecha/catalog/internal/gateway"
	"github.com/openpecha/catalog/internal/index"
	"github.com/openpecha/catalog/internal/mcpserver"
	"github.com/openpecha/catalog/internal/metrics"
	"github.com/openpecha/catalog/internal/reload"
	"github.com/openpecha/catalog/internal/sse"
	"github.com/openpecha/catalog/internal/upstream"
	pkgconfig "github.com/openpecha/catalog/pkg/config"
)

// warmPageSize is the upstream page size used to fill the index at startup.
const warmPageSize = 100

// components are the long-lived parts shared by the gateway and the MCP server.
type components struct {
	logger  *slog.Logger
	level   *slog.LevelVar
	metrics *metrics.Metrics
	api     *upstream.Client
	store   cache.Store
	service *catalog.Service
	broker  *sse.Broker
	closers []func() error
}

func (c *components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			c.logger.Warn("close failed", slog.String("error", err.Error()))
		}
	}
}

func setup(ctx context.Context, opts []Option, logOut io.Writer) (*application, *components, error) {
	app := &application{version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	// Initialize structured JSON logger. The level is swapped on reload.
	level := new(slog.LevelVar)
	level.Set(cfg.App.LogLevel)
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("upstream", cfg.Upstream.Endpoint),
		slog.String("cache", cfg.Cache.Backend),
		slog.Bool("index", cfg.Index.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	c := &components{logger: logger, level: level, metrics: metrics.New()}

	api, err := upstream.New(cfg.Upstream.Endpoint,
		upstream.WithTimeout(cfg.Upstream.Timeout),
		upstream.WithMetrics(c.metrics))
	if err != nil {
		return nil, nil, fmt.Errorf("init upstream: %w", err)
	}
	c.api = api

	store, err := newCache(ctx, cfg.Cache, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("init cache: %w", err)
	}
	c.store = store
	switch s := store.(type) {
	case *cache.Redis:
		c.closers = append(c.closers, s.Close)
	case *cache.Memory:
		c.metrics.Gauge("catalog_cache_entries", "Entries held by the in-memory response cache",
			func() float64 { return float64(s.Len()) })
	}

	c.broker = sse.NewBroker(2 * time.Second)
	c.closers = append(c.closers, func() error { c.broker.Close(); return nil })
	c.metrics.Gauge("catalog_sse_clients", "Connected event stream clients",
		func() float64 { return float64(c.broker.ClientCount()) })

	svcOpts := []catalog.Option{
		catalog.WithCache(store, cfg.Cache.TTL),
		catalog.WithNotifier(c.broker),
		catalog.WithMetrics(c.metrics),
		catalog.WithLogger(logger),
	}
	if cfg.Index.Enabled {
		db, err := index.Open(cfg.Index.Path)
		if err != nil {
			c.Close()
			return nil, nil, fmt.Errorf("init index: %w", err)
		}
		c.closers = append(c.closers, db.Close)
		c.metrics.Gauge("catalog_index_entries", "Texts and persons in the search index",
			func() float64 {
				n, _ := db.Count("")
				return float64(n)
			})
		svcOpts = append(svcOpts, catalog.WithIndex(db))
	}
	c.service = catalog.NewService(api, svcOpts...)
	return app, c, nil
}

func newCache(ctx context.Context, cfg CacheConfig, logger *slog.Logger) (cache.Store, error) {
	switch cfg.Backend {
	case CacheMemory:
		return cache.NewMemory(), nil
	case CacheRedis:
		return cache.NewRedis(ctx, cfg.RedisURL, cfg.Namespace, logger)
	default:
		return cache.Nop{}, nil
	}
}

// Run starts the HTTP gateway with the given options and blocks until ctx
// is cancelled or a shutdown signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	app, c, err := setup(ctx, opts, os.Stdout)
	if err != nil {
		return err
	}
	defer c.Close()
	cfg := app.config
	logger := c.logger

	limiter := gateway.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	handler := gateway.NewServer(c.service, gateway.Options{
		AuthEnabled: cfg.Auth.AuthEnabled(),
		Token:       cfg.Auth.Token,
		CORSOrigins: cfg.App.CORSOrigins,
		Events:      c.broker,
		Metrics:     c.metrics,
		Limiter:     limiter,
	})

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Fill the search index in the background; the gateway serves meanwhile.
	if cfg.Index.Enabled && cfg.Index.WarmPages > 0 {
		g.Go(func() error {
			if err := c.service.WarmIndex(gCtx, warmPageSize, cfg.Index.WarmPages); err != nil {
				logger.Warn("index warm-up failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	g.Go(func() error {
		limiter.Run(gCtx)
		return nil
	})

	if mem, ok := c.store.(*cache.Memory); ok {
		g.Go(func() error {
			mem.Run(gCtx, sweepInterval(cfg.Cache.TTL))
			return nil
		})
	}

	if app.configFile != "" {
		g.Go(func() error {
			err := reload.Watch(gCtx, app.configFile, logger, func() { c.apply(app.configFile) })
			if err != nil {
				logger.Warn("config watcher disabled", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// sweepInterval is how often the in-memory cache drops expired entries.
func sweepInterval(ttl time.Duration) time.Duration {
	return max(ttl, time.Second)
}

// errShutdown cancels the group once the server has been shut down so the
// background workers stop.
var errShutdown = errors.New("shutdown")

// apply reloads the config file and swaps in the settings that can change
// at runtime. An invalid file keeps the current settings.
func (c *components) apply(path string) {
	next := NewDefaultConfig()
	if err := pkgconfig.Load(path, next); err != nil {
		c.logger.Warn("config reload rejected", slog.String("error", err.Error()))
		return
	}
	c.level.Set(next.App.LogLevel)
	if next.Upstream.Endpoint != c.api.Endpoint() {
		if err := c.api.SetEndpoint(next.Upstream.Endpoint); err != nil {
			c.logger.Warn("config reload: endpoint rejected", slog.String("error", err.Error()))
			return
		}
		// Responses cached from the previous upstream no longer apply.
		if c.store != nil {
			if err := c.store.InvalidatePrefix(context.Background(), ""); err != nil {
				c.logger.Warn("config reload: cache flush failed", slog.String("error", err.Error()))
			}
		}
	}
	c.logger.Info("config reloaded",
		slog.String("log_level", next.App.LogLevel.String()),
		slog.String("upstream", c.api.Endpoint()))
}

// ServeMCP runs the MCP server over stdio. Logs go to stderr so they do not
// corrupt the protocol stream.
func ServeMCP(ctx context.Context, opts ...Option) error {
	app, c, err := setup(ctx, opts, os.Stderr)
	if err != nil {
		return err
	}
	defer c.Close()
	logger := c.logger

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if mem, ok := c.store.(*cache.Memory); ok {
		go mem.Run(ctx, sweepInterval(app.config.Cache.TTL))
	}

	if err := c.service.WarmIndex(ctx, warmPageSize, app.config.Index.WarmPages); err != nil {
		logger.Warn("index warm-up failed", slog.String("error", err.Error()))
	}
	return mcpserver.New(c.service, app.version).ServeStdio()
}
