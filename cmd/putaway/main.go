package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

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

	ctx := context.Background()

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
	units, err := store.LoadUnlocatedUnits(ctx)
	if err != nil {
		zlog.Fatal("failed to load unlocated units", zap.Error(err))
	}
	zlog.Info("snapshot loaded",
		zap.Int("locations", len(locations)),
		zap.Int("located_units", len(inventory)),
		zap.Int("unlocated_units", len(units)))

	cat, err := catalog.New(locations)
	if err != nil {
		zlog.Fatal("failed to build catalog", zap.Error(err))
	}
	if err := cat.Seed(inventory); err != nil {
		zlog.Fatal("failed to seed catalog", zap.Error(err))
	}

	svc := service.NewPlacementService(cat, cfg.Similarity.Relation(), store, txlog, zlog, cfg.Engine.MaxRetries)
	runner := service.NewRunner(svc, cfg.Engine.Workers, cfg.Engine.UnitTimeout, zlog)

	results := runner.Run(ctx, units)

	committed := 0
	for _, res := range results {
		if res.Status == service.StatusCommitted {
			committed++
			fmt.Printf("%-20s -> %-12s (%s)\n", res.UnitID, res.LocationID, res.Rationale)
		} else {
			fmt.Printf("%-20s -> FAILED: %v\n", res.UnitID, res.Err)
		}
	}
	fmt.Printf("placed %d of %d units\n", committed, len(units))

	if committed < len(units) {
		os.Exit(1)
	}
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
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return storage.NewRedisLog(rdb), nil
}

