// Command server exposes backtest runs over HTTP.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/kvh-4114/trade-strategies-sub001/services/config"
	"github.com/kvh-4114/trade-strategies-sub001/services/httpapi"
	"github.com/kvh-4114/trade-strategies-sub001/services/recorder"
	"github.com/kvh-4114/trade-strategies-sub001/services/runner"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "Run configuration (YAML)")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.Output.SQLitePath != "" {
		sq, err := recorder.NewSQLiteRecorder(cfg.Output.SQLitePath)
		if err != nil {
			logger.Fatal("open recorder", zap.Error(err))
		}
		rec = sq
	}
	defer rec.Close()

	run, err := runner.New(cfg, rec, logger)
	if err != nil {
		logger.Fatal("build runner", zap.Error(err))
	}

	srv := httpapi.NewServer(run, logger)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.Server.Listen))
		if err := srv.Router().Run(cfg.Server.Listen); err != nil {
			logger.Fatal("serve http", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")
}
