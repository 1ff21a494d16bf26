// Package replyflow is the response-translation stage of an event dispatcher
// built on Watermill. A Service consumes CloudEvents from a broker topic,
// delivers each one to an HTTP sink and hands the sink's reply to a
// ReplyHandler, which decides what happens next:
//
//   - an empty reply (no body) is discarded and logged at debug level
//   - a reply carrying a CloudEvent in binary or structured mode is
//     republished to the reply topic
//   - a non-empty reply that is not a CloudEvent fails with ErrMalformedEvent
//
// The delivery and the republish run asynchronously and complete a Future.
// Closing the handler closes the publish client and its metrics binding
// concurrently and completes once both have finished.
//
// # Transports
//
// The broker is selected by Config.PubSubSystem:
//   - kafka: Apache Kafka through watermill-kafka and sarama
//   - rabbitmq: AMQP queues
//   - nats: NATS core subjects
//   - channel: in-memory Go channels for testing
//
// Custom brokers can be plugged in with RegisterTransport or by supplying a
// TransportFactory in ServiceDependencies.
//
// # Middleware
//
// The default chain adds correlation IDs, debug message logging, an
// OpenTelemetry consumer span, Prometheus router metrics, retries with
// exponential backoff, poison queue forwarding for permanent failures and
// panic recovery. Extra middleware goes in ServiceDependencies.Middlewares.
package replyflow
