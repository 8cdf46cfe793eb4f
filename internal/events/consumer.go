package events

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"

	"github.com/jogardn/flashfood-datagen/internal/feed"
)

type EventHandler interface {
	HandleEvent(topic string, e feed.Event) error
}

type KafkaConsumer struct {
	consumerGroup sarama.ConsumerGroup
	handler       EventHandler
	logger        *logrus.Logger
	topics        []string
}

type consumerGroupHandler struct {
	handler EventHandler
	logger  *logrus.Logger
}

// NewKafkaConsumer joins groupID on every feed topic. fromOldest replays
// retained history before following new events.
func NewKafkaConsumer(brokers, groupID string, fromOldest bool, handler EventHandler, logger *logrus.Logger) (*KafkaConsumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	config.Consumer.Offsets.Initial = sarama.OffsetNewest
	if fromOldest {
		config.Consumer.Offsets.Initial = sarama.OffsetOldest
	}
	config.Version = sarama.V2_6_0_0

	consumerGroup, err := sarama.NewConsumerGroup(splitBrokers(brokers), groupID, config)
	if err != nil {
		return nil, err
	}

	return &KafkaConsumer{
		consumerGroup: consumerGroup,
		handler:       handler,
		logger:        logger,
		topics:        Topics,
	}, nil
}

// Start consumes until ctx is cancelled.
func (c *KafkaConsumer) Start(ctx context.Context) error {
	handler := &consumerGroupHandler{
		handler: c.handler,
		logger:  c.logger,
	}

	for {
		if err := c.consumerGroup.Consume(ctx, c.topics, handler); err != nil {
			c.logger.WithError(err).Error("Error consuming from Kafka")
			return err
		}
		if ctx.Err() != nil {
			c.logger.Info("Kafka consumer context cancelled")
			return nil
		}
	}
}

func (c *KafkaConsumer) Close() error {
	return c.consumerGroup.Close()
}

func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	h.logger.Info("Kafka consumer group session setup")
	return nil
}

func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	h.logger.Info("Kafka consumer group session cleanup")
	return nil
}

func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok || message == nil {
				return nil
			}
			if err := h.handleMessage(message); err != nil {
				h.logger.WithError(err).WithFields(logrus.Fields{
					"topic":     message.Topic,
					"partition": message.Partition,
					"offset":    message.Offset,
				}).Error("Failed to handle message")
			}
			// Malformed messages are skipped, not retried.
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

func (h *consumerGroupHandler) handleMessage(message *sarama.ConsumerMessage) error {
	var e feed.Event
	if err := json.Unmarshal(message.Value, &e); err != nil {
		return err
	}
	return h.handler.HandleEvent(message.Topic, e)
}
