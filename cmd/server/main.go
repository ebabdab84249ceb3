package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rl1809/putaway/internal/adapter/handler"
	"github.com/rl1809/putaway/internal/adapter/storage"
	"github.com/rl1809/putaway/internal/config"
	"github.com/rl1809/putaway/internal/core/catalog"
	"github.com/rl1809/putaway/internal/core/service"
	"github.com/rl1809/putaway/internal/logger"
	"github.com/rl1809/putaway/internal/port"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zlog.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, cleanup, err := buildStore(ctx, cfg)
	if err != nil {
		zlog.Fatal("failed to build data store", zap.Error(err))
	}
	defer cleanup()

	txlog, err := buildLog(ctx, cfg)
	if err != nil {
		zlog.Fatal("failed to build assignment log", zap.Error(err))
	}

	locations, err := store.LoadLocations(ctx)
	if err != nil {
		zlog.Fatal("failed to load locations", zap.Error(err))
	}
	inventory, err := store.LoadInventory(ctx)
	if err != nil {
		zlog.Fatal("failed to load inventory", zap.Error(err))
	}

	cat, err := catalog.New(locations)
	if err != nil {
		zlog.Fatal("failed to build catalog", zap.Error(err))
	}
	if err := cat.Seed(inventory); err != nil {
		zlog.Fatal("failed to seed catalog", zap.Error(err))
	}
	zlog.Info("catalog ready",
		zap.Int("locations", len(locations)),
		zap.Int("located_units", len(inventory)))

	svc := service.NewPlacementService(cat, cfg.Similarity.Relation(), store, txlog, zlog, cfg.Engine.MaxRetries)
	runner := service.NewRunner(svc, cfg.Engine.Workers, cfg.Engine.UnitTimeout, zlog)

	httpHandler := handler.NewHTTPHandler(runner, store)
	mux := http.NewServeMux()
	mux.HandleFunc("/health", httpHandler.HealthCheck)
	mux.HandleFunc("/api/putaway/run", httpHandler.Run)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTPAddr,
		Handler: mux,
	}

	go func() {
		zlog.Info("HTTP server listening", zap.String("addr", cfg.App.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			zlog.Error("HTTP server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	zlog.Info("HTTP server stopped")
}

func buildStore(ctx context.Context, cfg *config.Config) (port.DataStore, func(), error) {
	switch cfg.Store.Backend {
	case "mysql":
		db, err := sql.Open("mysql", cfg.MySQL.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect mysql: %w", err)
		}
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("ping mysql: %w", err)
		}
		return storage.NewMySQLAdapter(db), func() { db.Close() }, nil
	default:
		return storage.NewCSVStore(cfg.CSV.Dir), func() {}, nil
	}
}

func buildLog(ctx context.Context, cfg *config.Config) (port.AssignmentLog, error) {
	if !cfg.Store.RedisLog {
		return storage.NewMemoryLog(), nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: 100,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return storage.NewRedisLog(rdb), nil
}

