// Command ingest loads daily CSV files into the ClickHouse bar store.
package main

import (
	"context"
	"flag"
	"log"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/kvh-4114/trade-strategies-sub001/services/loader"
	"github.com/kvh-4114/trade-strategies-sub001/services/storage"
)

func main() {
	dir := flag.String("dir", "", "Directory of <symbol>.csv files")
	dsn := flag.String("dsn", "clickhouse://localhost:9000/backtest", "ClickHouse DSN")
	flag.Parse()

	if *dir == "" {
		log.Fatal("-dir is required")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	store, err := storage.Open(*dsn, logger)
	if err != nil {
		logger.Fatal("open store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	files, err := filepath.Glob(filepath.Join(*dir, "*.csv"))
	if err != nil {
		logger.Fatal("scan directory", zap.Error(err))
	}
	if len(files) == 0 {
		logger.Fatal("no csv files found", zap.String("dir", *dir))
	}

	for _, path := range files {
		symbol := strings.TrimSuffix(filepath.Base(path), ".csv")
		bars, err := loader.ReadFile(path)
		if err != nil {
			logger.Error("parse failed, skipping", zap.String("file", path), zap.Error(err))
			continue
		}
		if err := store.InsertBars(ctx, symbol, bars); err != nil {
			logger.Fatal("insert failed", zap.String("symbol", symbol), zap.Error(err))
		}
	}
	logger.Info("ingest complete", zap.Int("files", len(files)))
}
