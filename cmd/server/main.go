package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/filmdex/ratings-api/internal/config"
	"github.com/filmdex/ratings-api/internal/directory"
	httpserver "github.com/filmdex/ratings-api/internal/http"
	"github.com/filmdex/ratings-api/internal/repository"
	"github.com/filmdex/ratings-api/internal/service"
	"github.com/filmdex/ratings-api/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config error", zap.Error(err))
	}

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	storeOpts := store.Options{
		MaxConns:               int32(cfg.DBMaxConns),
		MinConns:               int32(cfg.DBMinConns),
		MaxConnIdleTime:        time.Duration(cfg.DBMaxIdleSecs) * time.Second,
		MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
		ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
		StatementCacheCapacity: cfg.DBStatementCache,
		Logger:                 logger,
	}

	// Database setup failure at startup is fatal by design.
	st, err := store.New(dbCtx, cfg.DBURL, storeOpts)
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}
	defer st.Close()

	dirClient, err := directory.NewHTTPClient(cfg.DirectoryURL, cfg.DirectoryAPIKey, time.Duration(cfg.DirectoryTimeoutSecs)*time.Second, logger)
	if err != nil {
		logger.Fatal("init directory client", zap.Error(err))
	}

	repo := repository.New(st, logger)
	ratings := service.NewRatings(repo.Ratings, dirClient, logger)

	if cfg.SeedFile != "" {
		entries, err := loadSeedFile(cfg.SeedFile)
		if err != nil {
			logger.Fatal("load seed file", zap.String("path", cfg.SeedFile), zap.Error(err))
		}
		if err := ratings.Ensure(ctx, entries); err != nil {
			logger.Fatal("seed ratings", zap.Error(err))
		}
	}

	server := httpserver.New(cfg, st, ratings, logger)
	logger.Info("server starting", zap.String("port", cfg.Port))

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
			logger.Error("server error", zap.Error(err))
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("graceful shutdown error", zap.Error(err))
	}
}

func loadSeedFile(path string) ([]service.SeedEntry, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []service.SeedEntry
	if err := json.Unmarshal(payload, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
