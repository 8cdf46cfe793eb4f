package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jogardn/flashfood-datagen/internal/config"
	"github.com/jogardn/flashfood-datagen/internal/events"
	"github.com/jogardn/flashfood-datagen/internal/feed"
)

const defaultBrokers = "localhost:9092"

func main() {
	configPath := flag.String("config", config.DefaultFile, "optional JSON config file")
	group := flag.String("group", "datagen-event-tail", "consumer group id")
	fromOldest := flag.Bool("from-oldest", false, "replay retained events before following")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	logger := cfg.Logger()

	brokers := cfg.KafkaBrokers
	if brokers == "" {
		brokers = defaultBrokers
	}

	consumer, err := events.NewKafkaConsumer(brokers, *group, *fromOldest, &printer{logger: logger}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create feed consumer")
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := consumer.Start(ctx); err != nil {
			logger.WithError(err).Error("Feed consumer stopped")
			cancel()
		}
	}()

	logger.WithFields(logrus.Fields{
		"brokers": brokers,
		"topics":  events.Topics,
	}).Info("Event tail started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigChan:
	case <-ctx.Done():
	}

	logger.Info("Shutting down event tail...")
}

type printer struct {
	logger *logrus.Logger
}

func (p *printer) HandleEvent(topic string, e feed.Event) error {
	entry := p.logger.WithFields(logrus.Fields{
		"topic":      topic,
		"type":       e.Type,
		"collection": e.Collection,
		"id":         e.ID,
	})
	if e.Type == feed.OrderFailed {
		entry.WithField("error", e.Error).Warn("Order failed")
	} else {
		entry.Debug("Record created")
	}

	fmt.Printf("%s %-14s %-20s %s\n", e.Time.Format(time.RFC3339), e.Type, e.Collection, e.ID)
	if e.Error != "" {
		fmt.Printf("    error: %s\n", e.Error)
	}
	return nil
}
