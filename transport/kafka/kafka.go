// Package kafka provides the Kafka transport. Replies are written in
// CloudEvents Kafka binary mode: message metadata becomes record headers and
// records carry no key.
package kafka

import (
	"context"
	"errors"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/replyflow/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "kafka"

// ErrBrokersRequired is returned by Build when no broker is configured.
var ErrBrokersRequired = errors.New("kafka: brokers are required")

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(cfg kafka.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return kafka.NewPublisher(cfg, logger)
}

// SubscriberFactory allows overriding the subscriber creation for testing.
var SubscriberFactory = func(cfg kafka.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	return kafka.NewSubscriber(cfg, logger)
}

func init() {
	Register()
}

// Register registers the Kafka transport with the default registry.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.KafkaCapabilities)
}

// Build creates a new Kafka transport.
func Build(_ context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	brokers := cfg.GetKafkaBrokers()
	if len(brokers) == 0 {
		return transport.Transport{}, ErrBrokersRequired
	}

	publisher, err := PublisherFactory(
		kafka.PublisherConfig{
			Brokers:               brokers,
			Marshaler:             kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: publisherSaramaConfig(cfg.GetKafkaClientID()),
		},
		logger,
	)
	if err != nil {
		return transport.Transport{}, err
	}

	subscriber, err := SubscriberFactory(
		kafka.SubscriberConfig{
			Brokers:               brokers,
			Unmarshaler:           kafka.DefaultMarshaler{},
			ConsumerGroup:         cfg.GetKafkaConsumerGroup(),
			OverwriteSaramaConfig: subscriberSaramaConfig(cfg.GetKafkaClientID()),
		},
		logger,
	)
	if err != nil {
		_ = publisher.Close()
		return transport.Transport{}, err
	}

	return transport.Transport{
		Publisher:  publisher,
		Subscriber: subscriber,
	}, nil
}

func publisherSaramaConfig(clientID string) *sarama.Config {
	cfg := kafka.DefaultSaramaSyncPublisherConfig()
	if clientID != "" {
		cfg.ClientID = clientID
	}
	// a reply is acknowledged only once every in-sync replica has it
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	return cfg
}

func subscriberSaramaConfig(clientID string) *sarama.Config {
	cfg := kafka.DefaultSaramaSubscriberConfig()
	if clientID != "" {
		cfg.ClientID = clientID
	}
	return cfg
}

// Capabilities returns the capabilities of this transport.
func Capabilities() transport.Capabilities {
	return transport.KafkaCapabilities
}
