package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/adamwahada/WorldMapQuiz/internal/config"
	"github.com/adamwahada/WorldMapQuiz/internal/countries"
	"github.com/adamwahada/WorldMapQuiz/internal/database"
	"github.com/adamwahada/WorldMapQuiz/internal/game"
	"github.com/adamwahada/WorldMapQuiz/internal/handler/health"
	"github.com/adamwahada/WorldMapQuiz/internal/identity"
	"github.com/adamwahada/WorldMapQuiz/internal/logging"
	"github.com/adamwahada/WorldMapQuiz/internal/metrics"
	"github.com/adamwahada/WorldMapQuiz/internal/migrations"
	"github.com/adamwahada/WorldMapQuiz/internal/quiz"
	"github.com/adamwahada/WorldMapQuiz/internal/server"
	"github.com/adamwahada/WorldMapQuiz/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.New(stdout, cfg.LogLevel, cfg.ServiceName)

	// --- SQLite ---
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	if err := migrations.Run(ctx, db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	version, err := migrations.Version(ctx, db)
	if err != nil {
		return err
	}
	logger.Info("connected to sqlite", "path", cfg.DBPath, "schema_version", version)

	catalog, err := countries.LoadFile(cfg.CountriesFile)
	if err != nil {
		return fmt.Errorf("loading countries: %w", err)
	}
	logger.Info("loaded countries", logging.FieldCount, catalog.Len())

	// --- Metrics ---
	recorder, metricsHandler, shutdownMetrics, err := metrics.Setup(ctx, metrics.TelemetryConfig{
		Enabled:      cfg.MetricsEnabled,
		ServiceName:  cfg.ServiceName,
		OtlpEndpoint: cfg.OTLPEndpoint,
		OtlpInsecure: cfg.OTLPInsecure,
	})
	if err != nil {
		return fmt.Errorf("setting up metrics: %w", err)
	}

	checks := map[string]health.Checker{
		"sqlite": dbChecker{db},
	}

	// --- Live updates (Redis is optional) ---
	broker := store.NewBroker()
	var (
		publisher store.Publisher = broker
		relay     *store.RedisRelay
	)
	if cfg.RedisURL != "" {
		rdb, err := openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		logger.Info("connected to redis")

		relay = store.NewRedisRelay(rdb, broker, logger)
		publisher = relay
		checks["redis"] = redisChecker{rdb}
	}

	// --- Game ---
	machine := quiz.NewMachine()
	machine.TurnDuration = cfg.TurnDuration
	machine.LobbyCountdown = cfg.LobbyCountdown

	svc := game.NewService(game.Options{
		Store:          store.NewDocStore(db),
		Machine:        machine,
		Catalog:        catalog,
		Publisher:      publisher,
		Metrics:        recorder,
		Logger:         logger,
		CreationLimit:  cfg.CreationLimit,
		CreationWindow: cfg.CreationWindow,
	})
	sweeper := game.NewSweeper(svc, logger, recorder, cfg.SweepInterval)
	checks["sweeper"] = health.CheckerFunc(func(context.Context) error {
		if st := sweeper.Status(); !st.Healthy() {
			return fmt.Errorf("sweeper failing: %s", st.LastError)
		}
		return nil
	})

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, server.Deps{
		Service:           svc,
		Broker:            broker,
		Issuer:            identity.NewIssuer(cfg.TokenSecret, cfg.TokenTTL),
		Metrics:           recorder,
		MetricsHandler:    metricsHandler,
		AdminPasswordHash: cfg.AdminPasswordHash,
		ActionRate:        cfg.ActionRate,
		ActionBurst:       cfg.ActionBurst,
		SPADir:            cfg.SPADir,
	}, func(r chi.Router) {
		r.Mount("/healthz", health.NewHandler(logger, checks).Routes())
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		return sweeper.Run(gctx)
	})

	if relay != nil {
		g.Go(func() error {
			return relay.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		if err := srv.Shutdown(context.Background()); err != nil {
			return err
		}
		return shutdownMetrics(context.Background())
	})

	return g.Wait()
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}

// dbChecker adapts *sql.DB to health.Checker.
type dbChecker struct{ db *sql.DB }

func (d dbChecker) Check(ctx context.Context) error { return d.db.PingContext(ctx) }

// redisChecker adapts *redis.Client to health.Checker.
type redisChecker struct{ client *redis.Client }

func (r redisChecker) Check(ctx context.Context) error { return r.client.Ping(ctx).Err() }
