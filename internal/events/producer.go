// Package events publishes feed events to Kafka and tails them back.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"

	"github.com/jogardn/flashfood-datagen/internal/feed"
)

const (
	RecordCreatedTopic = "datagen.record.created"
	OrderFailedTopic   = "datagen.order.failed"
)

// Topics lists every topic the producer writes to.
var Topics = []string{RecordCreatedTopic, OrderFailedTopic}

// TopicFor maps an event type to its topic.
func TopicFor(eventType string) (string, bool) {
	switch eventType {
	case feed.RecordCreated:
		return RecordCreatedTopic, true
	case feed.OrderFailed:
		return OrderFailedTopic, true
	}
	return "", false
}

func splitBrokers(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// KafkaProducer is a feed.Sink writing each event to its topic, keyed by
// collection.
type KafkaProducer struct {
	producer sarama.SyncProducer
	logger   *logrus.Logger
}

func ProducerConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Version = sarama.V2_6_0_0
	return config
}

func NewKafkaProducer(brokers string, logger *logrus.Logger) (*KafkaProducer, error) {
	producer, err := sarama.NewSyncProducer(splitBrokers(brokers), ProducerConfig())
	if err != nil {
		return nil, err
	}
	return NewKafkaProducerFrom(producer, logger), nil
}

// NewKafkaProducerFrom wraps an existing producer.
func NewKafkaProducerFrom(producer sarama.SyncProducer, logger *logrus.Logger) *KafkaProducer {
	return &KafkaProducer{
		producer: producer,
		logger:   logger,
	}
}

func (p *KafkaProducer) Publish(_ context.Context, e feed.Event) error {
	topic, ok := TopicFor(e.Type)
	if !ok {
		return fmt.Errorf("no topic for event type %q", e.Type)
	}

	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(e.Collection),
		Value: sarama.ByteEncoder(data),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.WithError(err).WithField("topic", topic).Error("Failed to send message to Kafka")
		return err
	}

	p.logger.WithFields(logrus.Fields{
		"topic":      topic,
		"partition":  partition,
		"offset":     offset,
		"collection": e.Collection,
		"id":         e.ID,
	}).Debug("Event published to Kafka")
	return nil
}

func (p *KafkaProducer) Close() error {
	return p.producer.Close()
}
