package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/persistorai/friendgraph/internal/api"
	"github.com/persistorai/friendgraph/internal/config"
	"github.com/persistorai/friendgraph/internal/crawl"
	"github.com/persistorai/friendgraph/internal/db"
	"github.com/persistorai/friendgraph/internal/db/migrations"
	"github.com/persistorai/friendgraph/internal/dbpool"
	"github.com/persistorai/friendgraph/internal/domain"
	"github.com/persistorai/friendgraph/internal/service"
	"github.com/persistorai/friendgraph/internal/source"
	"github.com/persistorai/friendgraph/internal/source/httpsource"
	"github.com/persistorai/friendgraph/internal/store"
	"github.com/persistorai/friendgraph/internal/telemetry"
	"github.com/persistorai/friendgraph/internal/ws"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	var (
		envFile string
		replay  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the crawl API server",
		Long: `Run the HTTP API. Configuration comes from the environment, optionally
seeded from a .env file. With --replay the server crawls a saved node-link
graph instead of the live source.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(envFile); err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			log := newLogger(cfg.LogLevel)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, replay, log)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", ".env", "Load variables from this file when it exists")
	cmd.Flags().StringVar(&replay, "replay", "", "Serve crawls from a saved node-link file")

	return cmd
}

//nolint:funlen // wiring reads top to bottom.
func serve(ctx context.Context, cfg *config.Config, replay string, log *logrus.Logger) error {
	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    "friendgraph",
		ServiceVersion: config.Version,
		Exporter:       cfg.TracesExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		OTLPInsecure:   true,
	})
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.WithError(err).Warn("flushing traces")
		}
	}()

	hub := ws.NewHub(log)
	go hub.Run(context.WithoutCancel(ctx))
	defer hub.Shutdown()

	checks := map[string]api.ReadinessCheck{}

	runs, pool, err := openStore(ctx, cfg, hub, log)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}

	src, rdb, err := openSource(cfg, replay, log)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		checks["cache"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	worker := service.NewCrawlWorker(log, cfg.CrawlQueueSize)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		worker.Run(ctx)
	}()

	crawls := service.NewCrawlService(src, runs, hub, worker, service.Defaults{
		MaxNodes:   cfg.MaxNodes,
		MaxFriends: cfg.MaxFriends,
		Workers:    cfg.CrawlWorkers,
		Timeout:    cfg.CrawlTimeout,
	}, log)

	router := api.NewRouter(ctx, &api.RouterDeps{
		Log:         log,
		Pool:        pool,
		Hub:         hub,
		Crawls:      crawls,
		Analytics:   service.NewAnalyticsService(runs, log),
		Jobs:        crawls,
		Checks:      checks,
		CORSOrigins: cfg.CORSOrigins,
		APIKey:      cfg.APIKey.Value(),
		Version:     config.Version,
	})

	// Synchronous crawls hold the response open for up to CRAWL_TIMEOUT.
	var writeTimeout time.Duration
	if cfg.CrawlTimeout > 0 {
		writeTimeout = cfg.CrawlTimeout + 30*time.Second
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"addr":    cfg.Addr(),
			"version": config.Version,
			"store":   storeKind(pool),
		}).Info("friendgraph listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}

	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		log.WithField("pending", worker.Pending()).Warn("crawl worker did not drain before shutdown")
	}

	return nil
}

// openStore connects to Postgres when DATABASE_URL is set and falls back to
// an in-memory store otherwise.
func openStore(ctx context.Context, cfg *config.Config, hub *ws.Hub, log *logrus.Logger) (domain.RunStore, *dbpool.Pool, error) {
	if cfg.DatabaseURL.Value() == "" {
		log.Warn("DATABASE_URL not set, runs are kept in memory")
		return store.NewMemoryStore(), nil, nil
	}

	pool, err := dbpool.NewPool(ctx, cfg.DatabaseURL.Value(), int32(cfg.DBMaxConns)) //nolint:gosec // bounded by config validation.
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}

	if err := db.RunMigrations(ctx, pool, log, migrations.FS); err != nil {
		pool.Close()
		return nil, nil, err
	}

	bridge := db.NewNotifyBridge(log, pool, hub, ws.EventRunSaved)
	if err := bridge.Start(ctx); err != nil {
		log.WithError(err).Warn("run notifications disabled")
	}

	return store.NewPGStore(store.Base{Pool: pool, Log: log}), pool, nil
}

// openSource builds the friend source: a replay file, or the REST API with an
// optional Redis cache in front.
func openSource(cfg *config.Config, replay string, log *logrus.Logger) (crawl.FriendSource, *redis.Client, error) {
	if replay != "" {
		g, err := readGraph(replay)
		if err != nil {
			return nil, nil, err
		}
		log.WithFields(logrus.Fields{"file": replay, "nodes": g.NodeCount()}).Info("serving replayed graph")
		return source.FromGraph(g), nil, nil
	}

	if cfg.SourceURL == "" {
		return nil, nil, fmt.Errorf("SOURCE_URL is required unless --replay is given")
	}

	var src crawl.FriendSource = httpsource.New(cfg.SourceURL,
		httpsource.WithToken(cfg.SourceToken.Value()),
		httpsource.WithRateLimit(cfg.SourceRateLimit, max(1, int(cfg.SourceRateLimit))),
	)

	if cfg.RedisURL.Value() == "" {
		return src, nil, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL.Value())
	if err != nil {
		return nil, nil, fmt.Errorf("parsing REDIS_URL: %w", err)
	}

	rdb := redis.NewClient(opts)
	log.WithField("ttl", cfg.CacheTTL).Info("friend source cache enabled")

	return source.NewCached(src, rdb, cfg.CacheTTL, log), rdb, nil
}

func storeKind(pool *dbpool.Pool) string {
	if pool == nil {
		return "memory"
	}
	return "postgres"
}
