package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"librarycatalog/internal/book"
	"librarycatalog/internal/config"
	"librarycatalog/internal/httpx"
	"librarycatalog/internal/platform/mongodb"
	"librarycatalog/internal/platform/postgres"
	"librarycatalog/internal/server"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepInterval   = time.Minute
)

func main() {
	config.LoadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))

	if err := run(cfg); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var mongoDB *mongodb.DB
	if cfg.UsesMongo() {
		db, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return err
		}
		defer func() {
			if err := db.Disconnect(context.Background()); err != nil {
				slog.Error("mongodb disconnect", "error", err)
			}
		}()
		mongoDB = db
	}

	repo, closeRepo, err := openRepository(ctx, cfg, mongoDB)
	if err != nil {
		return err
	}
	defer closeRepo()

	counters, err := openCounterStore(ctx, cfg, mongoDB)
	if err != nil {
		return err
	}

	handler := server.NewRouter(server.Deps{
		Books:        book.NewHTTPHandler(book.NewService(repo), cfg.PaginationMaxLimit),
		Limiter:      httpx.NewRateLimiter(counters, cfg.RateLimitMax, cfg.RateLimitWindow),
		Ready:        repo.Ping,
		TrustProxy:   cfg.TrustProxy,
		CORSOrigins:  cfg.CORSOrigins,
		EnableHSTS:   cfg.EnableHSTS,
		MaxBodyBytes: cfg.MaxBodyBytes,
	})

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", cfg.Addr, "store", cfg.StoreDriver, "rate_limit_store", cfg.RateLimitStore)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func openRepository(ctx context.Context, cfg config.Config, mongoDB *mongodb.DB) (book.Repository, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		repo := book.NewMongoRepo(mongoDB.Books())
		if err := repo.EnsureIndexes(ctx); err != nil {
			return nil, nil, err
		}
		return repo, func() {}, nil
	case config.DriverMemory:
		slog.Warn("using in-memory book store; data is lost on restart")
		return book.NewMemoryRepo(), func() {}, nil
	default:
		pool, err := postgres.Open(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}
		repo := book.NewPostgresRepo(pool, cfg.DBTimeout)
		if err := repo.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repo, pool.Close, nil
	}
}

func openCounterStore(ctx context.Context, cfg config.Config, mongoDB *mongodb.DB) (httpx.CounterStore, error) {
	if cfg.RateLimitStore == config.DriverMongo {
		store := httpx.NewMongoCounterStore(mongoDB.RateLimits())
		if err := store.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		return store, nil
	}
	store := httpx.NewMemoryCounterStore()
	go store.Run(ctx, sweepInterval)
	return store, nil
}
