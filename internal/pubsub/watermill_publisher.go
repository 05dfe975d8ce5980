package pubsub

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
)

// partitionKeyMetadata carries the message key to the kafka marshaler
const partitionKeyMetadata = "partition_key"

// kafkaWatermillPublisher implements the Publisher interface using Watermill with Kafka.
// Messages are partitioned by key so events of one resource stay ordered.
type kafkaWatermillPublisher struct {
	logger         *slog.Logger
	kafkaPublisher message.Publisher
}

func NewKafkaWatermillPublisher(logger *slog.Logger, brokers []string) (*kafkaWatermillPublisher, error) {
	publisher, err := kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:   brokers,
			Marshaler: kafka.NewWithPartitioningMarshaler(partitionKey),
		},
		watermill.NewSlogLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	return &kafkaWatermillPublisher{
		logger:         logger,
		kafkaPublisher: publisher,
	}, nil
}

func partitionKey(_ string, msg *message.Message) (string, error) {
	return msg.Metadata.Get(partitionKeyMetadata), nil
}

func (p *kafkaWatermillPublisher) Publish(ctx context.Context, topic, key string, msg []byte) error {
	watermillMsg := message.NewMessage(watermill.NewUUID(), msg)
	watermillMsg.Metadata.Set(partitionKeyMetadata, key)
	watermillMsg.SetContext(ctx)
	if err := p.kafkaPublisher.Publish(topic, watermillMsg); err != nil {
		p.logger.Warn("Failed to publish message", "topic", topic, "key", key, "error", err)
		return err
	}
	return nil
}

func (p *kafkaWatermillPublisher) Close(_ context.Context) error {
	return p.kafkaPublisher.Close()
}
