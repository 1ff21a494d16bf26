// Package rabbitmq provides the RabbitMQ/AMQP transport. Publisher and
// subscriber share one connection that is closed with the subscriber.
package rabbitmq

import (
	"context"
	"errors"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/replyflow/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "rabbitmq"

// QueueSuffix is appended to queue names so every replica of the dispatcher
// consumes from the same durable queue.
const QueueSuffix = "replyflow"

// ErrURLRequired is returned by Build when no AMQP URI is configured.
var ErrURLRequired = errors.New("rabbitmq: URL is required")

// ConnectionFactory allows overriding the connection creation for testing.
var ConnectionFactory = func(cfg amqp.ConnectionConfig, logger watermill.LoggerAdapter) (*amqp.ConnectionWrapper, error) {
	return amqp.NewConnection(cfg, logger)
}

// ConnectionCloser allows overriding how the shared connection is closed.
var ConnectionCloser = func(conn *amqp.ConnectionWrapper) error {
	return conn.Close()
}

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(cfg amqp.Config, logger watermill.LoggerAdapter, conn *amqp.ConnectionWrapper) (message.Publisher, error) {
	return amqp.NewPublisherWithConnection(cfg, logger, conn)
}

// SubscriberFactory allows overriding the subscriber creation for testing.
var SubscriberFactory = func(cfg amqp.Config, logger watermill.LoggerAdapter, conn *amqp.ConnectionWrapper) (message.Subscriber, error) {
	return amqp.NewSubscriberWithConnection(cfg, logger, conn)
}

func init() {
	Register()
}

// Register registers the RabbitMQ transport with the default registry.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.RabbitMQCapabilities)
}

// Build creates a new RabbitMQ transport.
func Build(_ context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	url := cfg.GetRabbitMQURL()
	if url == "" {
		return transport.Transport{}, ErrURLRequired
	}

	amqpConfig := amqp.NewDurablePubSubConfig(
		url,
		amqp.GenerateQueueNameTopicNameWithSuffix(QueueSuffix),
	)

	conn, err := ConnectionFactory(amqp.ConnectionConfig{
		AmqpURI:   url,
		Reconnect: amqp.DefaultReconnectConfig(),
	}, logger)
	if err != nil {
		return transport.Transport{}, err
	}

	publisher, err := PublisherFactory(amqpConfig, logger, conn)
	if err != nil {
		_ = ConnectionCloser(conn)
		return transport.Transport{}, err
	}

	subscriber, err := SubscriberFactory(amqpConfig, logger, conn)
	if err != nil {
		_ = publisher.Close()
		_ = ConnectionCloser(conn)
		return transport.Transport{}, err
	}

	return transport.Transport{
		Publisher:  publisher,
		Subscriber: &connSubscriber{Subscriber: subscriber, conn: conn},
	}, nil
}

type connSubscriber struct {
	message.Subscriber
	conn *amqp.ConnectionWrapper
}

func (s *connSubscriber) Close() error {
	return errors.Join(s.Subscriber.Close(), ConnectionCloser(s.conn))
}

// Capabilities returns the capabilities of this transport.
func Capabilities() transport.Capabilities {
	return transport.RabbitMQCapabilities
}
