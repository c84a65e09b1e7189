package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"tablica/internal/app"
	"tablica/internal/config"
	"tablica/internal/ratelimit"
	"tablica/internal/server"
	"tablica/internal/util"
	"tablica/pkg/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := config.LoadDotEnv(""); err != nil {
		log.Fatalf("failed to load .env: %v", err)
	}
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := util.InitLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.FileConfig) error {
	dataStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := dataStore.Close(); err != nil {
			slog.Error("close store", "err", err)
		}
	}()

	if cfg.SeedDemoData {
		if _, err := app.SeedDemoData(dataStore); err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
	}

	appCore, err := app.New(app.Config{Store: dataStore, DemoUserID: cfg.DemoUserID})
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}

	trusted, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		return fmt.Errorf("parse trusted proxies: %w", err)
	}
	serverCfg := server.Config{
		App:            appCore,
		TrustedProxies: trusted,
		CORSOrigins:    cfg.CORSAllowedOrigins,
	}
	if cfg.RedisAddr != "" {
		client, err := ratelimit.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return err
		}
		defer client.Close()
		if serverCfg.MessageLimiter, err = newLimiter(client, "tablica:ratelimit:messages", cfg.MessageRateLimitPerMinute); err != nil {
			return err
		}
		if serverCfg.ListingLimiter, err = newLimiter(client, "tablica:ratelimit:listings", cfg.ListingRateLimitPerMinute); err != nil {
			return err
		}
	} else {
		slog.Warn("redisAddr not set, rate limiting disabled")
	}

	httpServer, err := server.New(serverCfg)
	if err != nil {
		return fmt.Errorf("init server: %w", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("tablica server listening", "addr", addr, "store", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		slog.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openStore(cfg config.FileConfig) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		s, err := store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
		return s, nil
	default:
		return store.NewMemoryStore(), nil
	}
}

// newLimiter returns the limiter as a server.Limiter so a failed build never
// leaves a typed nil behind the interface.
func newLimiter(client *redis.Client, prefix string, perMinute int) (server.Limiter, error) {
	l, err := ratelimit.NewFixedWindowLimiter(client, prefix, perMinute, time.Minute)
	if err != nil {
		return nil, fmt.Errorf("init rate limiter %s: %w", prefix, err)
	}
	return l, nil
}
