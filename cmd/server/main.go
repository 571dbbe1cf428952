package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	eventcache "eventtrail/internal/event/cache"
	eventhandler "eventtrail/internal/event/handler"
	eventservice "eventtrail/internal/event/service"
	eventstore "eventtrail/internal/event/store"
	"eventtrail/internal/event/stream"
	"eventtrail/internal/platform/config"
	"eventtrail/internal/platform/httpserver"
	"eventtrail/internal/platform/logger"
	"eventtrail/internal/platform/metrics"
	"eventtrail/internal/platform/postgres"
	platformredis "eventtrail/internal/platform/redis"
	profilehandler "eventtrail/internal/profile/handler"
	profileservice "eventtrail/internal/profile/service"
	profilestore "eventtrail/internal/profile/store"
	httptransport "eventtrail/internal/transport/http"
	"eventtrail/pkg/platform/dedupe"
)

// main wires storage, cache, stream, and HTTP together. Every external
// dependency is optional except the listener: without DATABASE_URL the
// process runs on in-memory stores, without REDIS_ADDR caching is off,
// without KAFKA_BROKERS no change stream is published.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		db           *sql.DB
		eventStore   eventservice.Store
		profileStore profileservice.Store
		healthChecks = map[string]httptransport.HealthChecker{}
	)
	if cfg.DatabaseURL != "" {
		var err error
		db, err = postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		eventStore = eventstore.NewPostgres(db)
		profileStore = profilestore.NewPostgres(db)
		healthChecks["postgres"] = db.Ping
		log.Info("using postgres storage")
	} else {
		eventStore = eventstore.NewInMemoryStore()
		profileStore = profilestore.NewInMemoryStore()
		log.Warn("DATABASE_URL not set, using in-memory storage")
	}

	redisClient, err := platformredis.New(cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		healthChecks["redis"] = func() error { return redisClient.Health(context.Background()) }
		log.Info("projection cache enabled", "addr", cfg.RedisAddr)
	}

	m := metrics.New()
	profileSvc := profileservice.New(profileStore)

	eventOpts := []eventservice.Option{
		eventservice.WithLogger(log),
		eventservice.WithMetrics(m),
		eventservice.WithCache(eventcache.New(redisClient, cfg.CacheTTL)),
	}

	g, ctx := errgroup.WithContext(ctx)

	publisher, err := stream.NewPublisher(brokerList(cfg.KafkaBrokers), cfg.ChangeTopic)
	if err != nil {
		return err
	}
	if publisher != nil {
		defer publisher.Close()
		if err := publisher.EnsureTopic(ctx, 1, 1); err != nil {
			return err
		}
		outbox := make(chan []stream.ChangeMessage, 256)
		eventOpts = append(eventOpts, eventservice.WithChangeStream(outbox))
		worker := stream.NewWorker(publisher, outbox, log)
		g.Go(func() error {
			if err := worker.Run(ctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
		log.Info("change stream enabled", "topic", cfg.ChangeTopic)
	}

	eventSvc := eventservice.New(eventStore, profileSvc, eventOpts...)

	router := httptransport.NewRouter(httptransport.Options{
		Logger:        log,
		JWTSigningKey: cfg.JWTSigningKey,
		Handlers: []httptransport.Registrar{
			profilehandler.New(profileSvc, log),
			eventhandler.New(eventSvc, log),
		},
		Health: healthChecks,
	})

	srv := httpserver.New(cfg.Addr, router)

	g.Go(func() error {
		log.Info("starting eventtrail server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func brokerList(brokers string) []string {
	if brokers == "" {
		return nil
	}
	return dedupe.Strings(strings.Split(brokers, ","))
}
