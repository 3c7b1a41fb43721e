package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	_ "github.com/lib/pq"

	"github.com/example/transit-assist/internal/config"
	httpapi "github.com/example/transit-assist/internal/http"
	"github.com/example/transit-assist/internal/logging"
	"github.com/example/transit-assist/internal/storage"
)

func main() {
	cfg, err := config.LoadServerConfig()
	logger := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// optional migration: apply migrations/001_create_kv_records.sql if requested
	if cfg.PGDSN != "" && cfg.RunMigrations {
		if db, err := sql.Open("postgres", cfg.PGDSN); err == nil {
			if b, err := os.ReadFile(filepath.Join("migrations", "001_create_kv_records.sql")); err == nil {
				if _, err := db.Exec(string(b)); err != nil {
					logger.Error("migration exec error", "error", err)
				} else {
					logger.Info("migration applied", "file", "001_create_kv_records.sql")
				}
			}
			_ = db.Close()
		} else {
			logger.Error("migration db open error", "error", err)
		}
	}

	store := openStore(cfg, logger)
	defer func() { _ = store.Close() }()

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.NewServer(cfg, store, logger),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		logger.Info("transit-assist listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped cleanly")
}

// openStore picks the backend the same way the env is usually provisioned:
// Redis when available, Postgres as the alternative, memory as the
// zero-config fallback for local runs.
func openStore(cfg config.ServerConfig, logger *slog.Logger) storage.Store {
	if cfg.RedisAddr != "" {
		if rs, err := storage.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB); err == nil {
			logger.Info("using redis store", "addr", cfg.RedisAddr)
			return rs
		} else {
			logger.Warn("redis unavailable, falling back", "error", err)
		}
	}
	if cfg.PGDSN != "" {
		if ps, err := storage.NewPostgresStore(cfg.PGDSN); err == nil {
			logger.Info("using postgres store")
			return ps
		} else {
			logger.Warn("postgres unavailable, falling back", "error", err)
		}
	}
	logger.Warn("using in-memory store; records will not survive restarts")
	return storage.NewMemoryStore()
}
