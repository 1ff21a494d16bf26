package reply

import "errors"

var (
	// ErrMalformedEvent marks a non-empty response that is not a CloudEvent.
	// The decode error is wrapped alongside it.
	ErrMalformedEvent = errors.New("Unable to decode response: unknown encoding and non empty response")

	// ErrNullEvent is returned when a decoder reports success without an event.
	ErrNullEvent = errors.New("event cannot be null")

	// ErrHandlerClosed is returned by Handle and Close once Close was called.
	ErrHandlerClosed = errors.New("replyflow: reply handler is closed")
)

type malformedEventError struct {
	cause error
}

func (e *malformedEventError) Error() string {
	if e.cause == nil {
		return ErrMalformedEvent.Error()
	}
	return ErrMalformedEvent.Error() + ": " + e.cause.Error()
}

func (e *malformedEventError) Unwrap() []error {
	if e.cause == nil {
		return []error{ErrMalformedEvent}
	}
	return []error{ErrMalformedEvent, e.cause}
}
