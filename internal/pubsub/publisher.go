package pubsub

import "context"

// Publisher delivers serialized lock events to a message broker
//
//go:generate go run go.uber.org/mock/mockgen@latest -source=publisher.go -destination=../../mocks/mock_publisher.go -package=mocks
type Publisher interface {
	// Publish sends message to topic. Messages sharing a key keep their order.
	Publish(ctx context.Context, topic, key string, message []byte) error

	// Close flushes and closes the broker connection
	Close(ctx context.Context) error
}
