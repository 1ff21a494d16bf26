package transport

// Capabilities describes the features supported by a transport backend.
type Capabilities struct {
	// Name is the human-readable name of the transport.
	Name string

	// SupportsHeaders indicates message metadata survives the broker. Binary
	// mode CloudEvents, header-only replies included, need it.
	SupportsHeaders bool

	// SupportsOrdering indicates the transport guarantees message ordering
	// within a partition or stream.
	SupportsOrdering bool

	// SupportsTracing indicates the transport propagates tracing headers natively.
	SupportsTracing bool

	// SupportsAck indicates the transport supports explicit message acknowledgment.
	SupportsAck bool

	// SupportsNack indicates the transport supports negative acknowledgment (redelivery).
	SupportsNack bool

	// SupportsPartitioning indicates the transport supports message partitioning.
	SupportsPartitioning bool

	// Durable indicates published replies survive a broker restart.
	Durable bool

	// MaxMessageSize is the maximum message size in bytes (0 = unlimited/unknown).
	MaxMessageSize int64
}

// SupportsReliableDelivery returns true if a failed dispatch is redelivered,
// that is the transport supports both ack and nack.
func (c Capabilities) SupportsReliableDelivery() bool {
	return c.SupportsAck && c.SupportsNack
}

// CanCarry reports whether an encoded reply of size bytes fits the transport.
func (c Capabilities) CanCarry(size int) bool {
	return c.MaxMessageSize == 0 || int64(size) <= c.MaxMessageSize
}

// Predefined capability sets for the built-in transports.
var (
	// ChannelCapabilities for the in-memory Go channel transport.
	ChannelCapabilities = Capabilities{
		Name:             "channel",
		SupportsHeaders:  true,
		SupportsOrdering: true,
		SupportsAck:      true,
		SupportsNack:     true,
	}

	// KafkaCapabilities for Apache Kafka.
	KafkaCapabilities = Capabilities{
		Name:                 "kafka",
		SupportsHeaders:      true,
		SupportsOrdering:     true,
		SupportsTracing:      true,
		SupportsAck:          true,
		SupportsNack:         false,
		SupportsPartitioning: true,
		Durable:              true,
		MaxMessageSize:       1048576, // broker default message.max.bytes
	}

	// RabbitMQCapabilities for RabbitMQ/AMQP.
	RabbitMQCapabilities = Capabilities{
		Name:             "rabbitmq",
		SupportsHeaders:  true,
		SupportsOrdering: true,
		SupportsTracing:  true,
		SupportsAck:      true,
		SupportsNack:     true,
		Durable:          true,
	}

	// NATSCapabilities for NATS Core.
	NATSCapabilities = Capabilities{
		Name:            "nats",
		SupportsHeaders: true,
		SupportsTracing: true,
		MaxMessageSize:  1048576, // server default max_payload
	}
)
