package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/promoflow/auth-service/internal/app"
	"github.com/promoflow/auth-service/internal/config"
	"github.com/promoflow/auth-service/internal/utils/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	application, err := app.New(cfg, log)
	if err != nil {
		log.Fatal("failed to start", zap.Error(err))
	}
	defer application.Close()

	if err := application.Run(); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
