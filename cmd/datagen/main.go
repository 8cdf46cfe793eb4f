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

	"github.com/jogardn/flashfood-datagen/internal/backend"
	"github.com/jogardn/flashfood-datagen/internal/circuitbreaker"
	"github.com/jogardn/flashfood-datagen/internal/config"
	"github.com/jogardn/flashfood-datagen/internal/events"
	"github.com/jogardn/flashfood-datagen/internal/feed"
	"github.com/jogardn/flashfood-datagen/internal/generator"
	"github.com/jogardn/flashfood-datagen/internal/jobs"
	"github.com/jogardn/flashfood-datagen/internal/ledger"
	"github.com/jogardn/flashfood-datagen/internal/scheduler"
	"github.com/jogardn/flashfood-datagen/internal/seeding"
	"github.com/jogardn/flashfood-datagen/internal/status"
	"github.com/jogardn/flashfood-datagen/internal/synth"
	"github.com/jogardn/flashfood-datagen/internal/websocket"
)

const (
	kafkaAttempts  = 5
	ledgerAttempts = 10
)

func main() {
	configPath := flag.String("config", config.DefaultFile, "optional JSON config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	logger := cfg.Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	breakers := circuitbreaker.NewManager(backend.BreakerConfig(cfg.BreakerMaxFailures, cfg.BreakerTimeout), logger)
	client := backend.NewClient(cfg.BackendURL, logger,
		backend.WithTimeout(cfg.RequestTimeout),
		backend.WithBreakers(breakers),
	)

	hub := websocket.NewHub(logger)
	go hub.Run(ctx)
	sink := feed.NewFanout(logger, hub)

	var producer *events.KafkaProducer
	if cfg.KafkaBrokers != "" {
		producer = connectKafka(cfg.KafkaBrokers, logger)
		if producer != nil {
			sink.Add(producer)
			defer producer.Close()
		}
	}

	var (
		recorder scheduler.Recorder
		runs     status.Runs
	)
	if cfg.DatabaseURL != "" {
		l, err := ledger.Open(ctx, cfg.DatabaseURL, ledgerAttempts, logger)
		if err != nil {
			logger.WithError(err).Warn("Run ledger unavailable, continuing without run history")
		} else {
			defer l.Close()
			recorder, runs = l, l
		}
	} else {
		logger.Info("DATABASE_URL not set - run ledger disabled")
	}

	gen := generator.New(cfg.FakerSeed)
	ensurer := seeding.NewEnsurer(client, logger,
		seeding.WithFloor(cfg.MinRecords),
		seeding.WithDelay(cfg.CreateDelay),
		seeding.WithSink(sink),
	)
	preparer, err := seeding.NewPreparer(ensurer, gen, logger, seeding.WithCustomerDelay(cfg.CustomerDelay))
	if err != nil {
		logger.WithError(err).Fatal("Invalid seeding graph")
	}
	logger.WithField("order", preparer.Order()).Info("Seeding order resolved")
	cache := seeding.NewCache(preparer, cfg.CacheTTL, logger)

	orderCfg := synth.DefaultConfig()
	orderCfg.MinCustomers = ensurer.Floor()
	orders := synth.New(cache, ensurer, gen, logger, orderCfg, sink)

	intervals := jobs.Intervals{
		Orders:       cfg.OrderInterval,
		Users:        cfg.UserInterval,
		CustomerCare: cfg.CustomerCareInterval,
		Restaurants:  cfg.RestaurantInterval,
	}
	sched := scheduler.New(logger, recorder)
	if err := jobs.NewSet(ensurer, cache, orders, gen, logger).Register(sched, intervals); err != nil {
		logger.WithError(err).Fatal("Failed to register jobs")
	}

	router := status.New(status.Options{
		Target:    cfg.BackendURL,
		Intervals: intervals,
		Cache:     cache,
		Scheduler: sched,
		Breakers:  breakers,
		Runs:      runs,
		Feed:      hub,
	}, logger).Router()

	srv := &http.Server{
		Addr:         ":" + cfg.StatusPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.StatusPort).Info("Starting status server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	logger.WithFields(logrus.Fields{
		"target":      cfg.BackendURL,
		"min_records": cfg.MinRecords,
		"cache_ttl":   cfg.CacheTTL.String(),
	}).Info("Starting data generator")
	sched.Start(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down data generator...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	done := make(chan struct{})
	go func() {
		sched.Wait()
		close(done)
	}()
	select {
	case <-done:
		logger.Info("Data generator gracefully stopped")
	case <-shutdownCtx.Done():
		logger.Warn("Timed out waiting for in-flight jobs")
	}
}

func connectKafka(brokers string, logger *logrus.Logger) *events.KafkaProducer {
	for i := 0; i < kafkaAttempts; i++ {
		producer, err := events.NewKafkaProducer(brokers, logger)
		if err == nil {
			logger.WithField("brokers", brokers).Info("Successfully connected to Kafka")
			return producer
		}
		logger.WithError(err).WithField("attempt", i+1).Warn("Failed to connect to Kafka, retrying...")
		time.Sleep(2 * time.Second)
	}
	logger.WithField("brokers", brokers).Error("Kafka unavailable, continuing with the websocket feed only")
	return nil
}
