package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/JuiPharm/BHH-Meal-Ordering-Approve/internal/config"
	"github.com/JuiPharm/BHH-Meal-Ordering-Approve/internal/logging"
	"github.com/JuiPharm/BHH-Meal-Ordering-Approve/internal/service"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer logger.Sync()

	dashboard, err := service.New(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create dashboard",
			zap.Error(err),
		)
	}
	defer dashboard.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serviceErrChan := make(chan error, 1)
	go func() {
		if err := dashboard.Start(ctx); err != nil {
			serviceErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Received signal, shutting down",
			zap.String("signal", sig.String()),
		)
		cancel()
	case err := <-serviceErrChan:
		logger.Fatal("Dashboard error",
			zap.Error(err),
		)
	}

	logger.Info("Dashboard stopped")
}
