// Package transport defines the broker abstraction used by replyflow.
// Each transport implementation (kafka, nats, rabbitmq, channel) lives in its
// own sub-package and registers itself with the transport registry.
package transport

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Transport combines a publisher and subscriber pair produced by a builder.
// The subscriber feeds the dispatch loop and the publisher carries replies.
type Transport struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
}

// Close closes the subscriber and the publisher, reporting the first error.
func (t Transport) Close() error {
	var err error
	if t.Subscriber != nil {
		err = t.Subscriber.Close()
	}
	if t.Publisher != nil {
		if pubErr := t.Publisher.Close(); err == nil {
			err = pubErr
		}
	}
	return err
}

// Builder is the function signature for creating a transport from config.
type Builder func(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (Transport, error)

// Config provides the configuration values needed by transports.
type Config interface {
	// GetPubSubSystem returns the transport type name.
	GetPubSubSystem() string

	// Kafka
	GetKafkaBrokers() []string
	GetKafkaClientID() string
	GetKafkaConsumerGroup() string

	// RabbitMQ
	GetRabbitMQURL() string

	// NATS
	GetNATSURL() string
}
