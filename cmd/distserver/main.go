// Package main provides the distribution service binary: an HTTP API that
// computes exact dice-expression distributions, with Prometheus metrics and
// an optional Redis result cache.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cory-johannsen/d20dist/internal/api"
	"github.com/cory-johannsen/d20dist/internal/cache"
	"github.com/cory-johannsen/d20dist/internal/config"
	"github.com/cory-johannsen/d20dist/internal/engine"
	"github.com/cory-johannsen/d20dist/internal/observability"
)

func main() {
	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	limits := engine.Limits{
		Convolution:    cfg.Limits.Convolution,
		Enumeration:    cfg.Limits.Enumeration,
		ExplodeEpsilon: cfg.Limits.ExplodeEpsilon,
	}

	var store cache.Store
	if cfg.Cache.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		store = cache.NewRedis(client)
		logger.Info("result cache enabled", zap.String("addr", cfg.Cache.Addr))
	}

	server := api.NewServer(logger, limits, store, cfg.Cache.TTL)
	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("distribution service listening",
			zap.String("addr", cfg.Server.Addr()),
			zap.Int("limit_convolution", limits.Convolution),
			zap.Int("limit_enumeration", limits.Enumeration),
		)
		errCh <- httpServer.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("serving", zap.Error(err))
		}
	}
}
