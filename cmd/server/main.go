package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/trogers1052/options-premium-tracker/internal/api"
	"github.com/trogers1052/options-premium-tracker/internal/cache"
	"github.com/trogers1052/options-premium-tracker/internal/config"
	"github.com/trogers1052/options-premium-tracker/internal/database"
	"github.com/trogers1052/options-premium-tracker/internal/features"
	"github.com/trogers1052/options-premium-tracker/internal/journal"
	"github.com/trogers1052/options-premium-tracker/internal/kafka"
	"github.com/trogers1052/options-premium-tracker/internal/lifecycle"
	"github.com/trogers1052/options-premium-tracker/internal/performance"
	"github.com/trogers1052/options-premium-tracker/internal/sharing"
	"github.com/trogers1052/options-premium-tracker/internal/usage"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(cfg.Database.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	var events lifecycle.EventPublisher
	var shareEvents sharing.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()
		events = producer
		shareEvents = producer
	} else {
		logger.Warn("kafka disabled, position events will not be published")
	}

	var counter usage.Counter = db
	var usageCache *cache.UsageCounter
	if cfg.Redis.Enabled() {
		client, err := cache.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Warn("redis unavailable, usage counts read from the database", "err", err)
		} else {
			defer client.Close()
			usageCache = cache.NewUsageCounter(client, db, cfg.Redis.TTL, logger)
			counter = usageCache
		}
	}

	limits := usage.Limits{
		MaxOpenPositions:    cfg.Limits.MaxOpenPositions,
		MaxMonthlyCreations: cfg.Limits.MaxMonthlyCreations,
	}

	deps := api.Deps{
		Store:       db,
		Positions:   lifecycle.NewService(db, events, logger),
		Limits:      usage.NewLimiter(counter, limits),
		Sharing:     sharing.NewNotifier(db, db, db, shareEvents, cfg.Fanout.Concurrency, logger),
		Journal:     journal.NewService(db, db, logger),
		Features:    features.NewBoard(db, logger),
		Performance: performance.NewReporter(db),
		Admins:      cfg.Server.AdminEmails,
		Logger:      logger,
	}
	if usageCache != nil {
		deps.Cache = usageCache
	}

	handler := api.NewHandler(deps)
	srv := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           api.Wrap(api.SetupRoutes(handler), os.Stdout, cfg.Server.AllowedOrigins),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("api starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if usageCache != nil && len(cfg.Kafka.Brokers) > 0 {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, usageCache)
		g.Go(func() error {
			return consumer.Start(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
