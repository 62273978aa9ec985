// Package main is the entry point for the StudyPath hub server.
//
// The server tracks self-paced curriculum progress for one acting user at
// a time: course completion marks, a single focus skill, and a daily
// check-in log with a consecutive-day streak. Progress persists to either
// an on-device file store or a remote PostgreSQL-backed account store,
// selected by STORAGE_BACKEND.
//
// The architecture follows Clean Architecture and DDD:
// - Domain: pure business logic without external dependencies
// - Application: resolver, commands, queries
// - Infrastructure: storage backends, event bus
// - Interface: HTTP endpoints
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	// Application layer
	"github.com/studypath-hub/studypath-hub/internal/application/command"
	"github.com/studypath-hub/studypath-hub/internal/application/query"
	"github.com/studypath-hub/studypath-hub/internal/application/resolver"

	// Domain layer
	"github.com/studypath-hub/studypath-hub/internal/domain/progress"
	"github.com/studypath-hub/studypath-hub/internal/domain/shared"

	// Infrastructure layer
	"github.com/studypath-hub/studypath-hub/internal/infrastructure/messaging"
	"github.com/studypath-hub/studypath-hub/internal/infrastructure/persistence/localstore"
	"github.com/studypath-hub/studypath-hub/internal/infrastructure/persistence/postgres"
	redisstore "github.com/studypath-hub/studypath-hub/internal/infrastructure/persistence/redis"

	// Interface layer
	httpserver "github.com/studypath-hub/studypath-hub/internal/interface/http"

	// Packages
	"github.com/studypath-hub/studypath-hub/config"
	"github.com/studypath-hub/studypath-hub/pkg/logger"
	"github.com/studypath-hub/studypath-hub/pkg/retry"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := logger.New(logger.Options{Level: logger.ParseLevel(cfg.Logging.Level)})
	log.Info("starting StudyPath hub",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.Backend(string(cfg.Backend)),
		logger.String("timezone", cfg.App.Timezone),
	)

	bus := messaging.NewInMemoryEventBus(log)
	defer func() {
		log.Info("closing event bus")
		_ = bus.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 3. STORAGE BACKEND
	// ─────────────────────────────────────────────────────────────────────────
	var (
		progressStore progress.Store
		res           *resolver.Resolver
		cache         *redisstore.OverviewCache
		health        httpserver.HealthChecker
	)

	switch cfg.Backend {
	case config.BackendLocal:
		log.Info("opening local store", logger.String("dir", cfg.LocalStore.DataDir))
		store, err := localstore.New(cfg.LocalStore.DataDir, log)
		if err != nil {
			return fmt.Errorf("failed to open local store: %w", err)
		}
		defer store.Close()

		progressStore = localstore.NewProgressStore(store)
		res = resolver.NewLocal(localstore.NewAccountStore(store), bus, log)
		health = localHealth{}

	case config.BackendRemote:
		log.Info("connecting to database")
		pgCfg := postgres.DefaultConfig()
		pgCfg.URL = cfg.Database.URL
		pgCfg.MaxConns = cfg.Database.MaxConns
		pgCfg.MinConns = cfg.Database.MinConns
		pgCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
		pgCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

		var conn *postgres.Connection
		err := retry.Do(ctx, retry.DefaultConfig(), func(ctx context.Context) error {
			var connErr error
			conn, connErr = postgres.NewConnection(ctx, pgCfg)
			return connErr
		})
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer func() {
			log.Info("closing database connection")
			conn.Close()
		}()
		log.Info("database connection established")

		log.Info("running database migrations")
		if err := postgres.Migrate(ctx, conn); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		log.Info("connecting to Redis", logger.String("addr", cfg.Redis.Addr))
		redisClient, err := redisstore.NewClient(ctx, redisstore.Config{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		defer redisClient.Close()

		sessions := redisstore.NewSessionStore(redisClient, cfg.Redis.SessionTTL)
		cache = redisstore.NewOverviewCache(redisClient, cfg.Redis.OverviewCacheTTL, log)

		progressStore = postgres.NewProgressRepository(conn)
		res = resolver.NewRemote(postgres.NewIdentityProvider(conn, sessions), sessions, bus, log)
		health = remoteHealth{conn: conn}

	default:
		return fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ACTING IDENTITY
	// ─────────────────────────────────────────────────────────────────────────
	identity, err := res.Resolve(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve identity: %w", err)
	}
	log.Info("resolved acting identity",
		logger.UserID(identity.UserID), logger.String("kind", string(identity.Kind)))

	// ─────────────────────────────────────────────────────────────────────────
	// 5. APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	var invalidator command.CacheInvalidator
	var overviewCache query.OverviewCache
	if cache != nil {
		invalidator = cache
		overviewCache = cache
	}

	commands := command.NewProgressCommands(progressStore, cfg.Catalog, bus, invalidator, cfg.App.Location, log)
	queries := query.NewProgressQueries(progressStore, cfg.Catalog, res, overviewCache, cfg.App.Location, 0, log)

	// The cached overview is scoped per user id; drop both scopes' entries
	// whenever the acting identity changes.
	if cache != nil {
		c := cache
		_ = bus.Subscribe(shared.EventIdentityChanged, func(e shared.Event) {
			if ice, ok := e.(shared.IdentityChangedEvent); ok {
				c.Invalidate(context.Background(), ice.PreviousUserID)
				c.Invalidate(context.Background(), ice.ScopeUserID())
			}
		})
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	httpConfig := httpserver.DefaultConfig()
	httpConfig.Host = cfg.HTTP.Host
	httpConfig.Port = cfg.HTTP.Port
	httpConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	httpConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	httpConfig.IdleTimeout = cfg.HTTP.IdleTimeout

	server := httpserver.NewServer(httpConfig, httpserver.Dependencies{
		Resolver:      res,
		Commands:      commands,
		Queries:       queries,
		Logger:        log,
		HealthChecker: health,
	})

	errCh := server.StartAsync()

	// ─────────────────────────────────────────────────────────────────────────
	// 7. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("StudyPath hub is running", logger.String("address", server.Address()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			log.Error("http server error", logger.Err(err))
			return err
		}
	case <-ctx.Done():
	}

	log.Info("starting graceful shutdown", logger.Duration("timeout", cfg.App.ShutdownTimeout))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", logger.Err(err))
		return err
	}

	log.Info("shutdown completed")
	return nil
}

// localHealth reports the local backend as always ready; the data
// directory was validated at startup.
type localHealth struct{}

func (localHealth) Check(context.Context) httpserver.HealthStatus {
	return httpserver.HealthStatus{Healthy: true, Ready: true}
}

// remoteHealth reports readiness based on a database ping.
type remoteHealth struct {
	conn *postgres.Connection
}

func (h remoteHealth) Check(ctx context.Context) httpserver.HealthStatus {
	if err := h.conn.Ping(ctx); err != nil {
		return httpserver.HealthStatus{Healthy: false, Ready: false, Message: err.Error()}
	}
	return httpserver.HealthStatus{Healthy: true, Ready: true}
}
