package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jogardn/flashfood-datagen/internal/config"
	"github.com/jogardn/flashfood-datagen/internal/mockbackend"
)

func main() {
	configPath := flag.String("config", config.DefaultFile, "optional JSON config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	logger := cfg.Logger()

	store, err := mockbackend.Open(cfg.Mock.DBPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open record store")
	}
	defer store.Close()

	server := mockbackend.NewServer(store, logger, mockbackend.Config{
		Latency:  cfg.Mock.Latency,
		FailRate: cfg.Mock.FailRate,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Mock.Port,
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"port":      cfg.Mock.Port,
			"db_path":   cfg.Mock.DBPath,
			"latency":   cfg.Mock.Latency.String(),
			"fail_rate": cfg.Mock.FailRate,
		}).Info("Starting mock backend")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down mock backend...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Mock backend gracefully stopped")
}
