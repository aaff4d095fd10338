package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"threatlens/internal/pkg/administrator"
	"threatlens/internal/pkg/config"
	"threatlens/internal/pkg/logger"
)

func main() {

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	if err := logger.InitLogger(cfg.LogLevel); err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Log.Sync()

	admin := administrator.New(cfg)

	// Create a cancellable context so we can gracefully shut down.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := admin.StartWorkers(ctx); err != nil {
		logger.Log.Fatal("Failed to start workers", zap.Error(err))
	}

	go admin.StartService(cfg.ServerPort)

	logger.Log.Info("Analysis service started",
		zap.String("port", cfg.ServerPort),
		zap.Int("workers", admin.WorkerCount()))

	// Listen for OS signals to gracefully shut down.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	s := <-sigChan
	logger.Log.Info("Received signal, shutting down", zap.String("signal", s.String()))
	cancel()

	admin.Stop()
	logger.Log.Info("Shutdown complete")
}
