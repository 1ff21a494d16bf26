package cloudevents

import "errors"

var (
	// ErrUnknownEncoding is returned when a message is neither a structured
	// nor a binary mode CloudEvent.
	ErrUnknownEncoding = errors.New("cloudevents: unknown message encoding")

	// ErrBatchUnsupported is returned for application/cloudevents-batch+json.
	ErrBatchUnsupported = errors.New("cloudevents: batched events are not supported")

	// ErrInvalidEvent wraps validation failures of a decoded event.
	ErrInvalidEvent = errors.New("cloudevents: invalid event")
)
