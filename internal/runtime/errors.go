package runtime

import (
	"errors"
	"fmt"

	"github.com/drblury/replyflow/internal/runtime/reply"
)

// UnprocessableEventError wraps inbound messages that are not CloudEvents.
// Redelivering them cannot succeed, so they go to the poison queue.
type UnprocessableEventError struct {
	messageUUID string
	err         error
}

func (e *UnprocessableEventError) Error() string {
	return fmt.Sprintf("unprocessable event %s: %v", e.messageUUID, e.err)
}

func (e *UnprocessableEventError) Unwrap() error {
	return e.err
}

// SinkStatusError reports a sink that answered with a non-2xx status.
type SinkStatusError struct {
	StatusCode int
	Body       []byte
}

func (e *SinkStatusError) Error() string {
	return fmt.Sprintf("sink responded with status %d", e.StatusCode)
}

// Temporary reports whether redelivering the event may succeed.
func (e *SinkStatusError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == 408 || e.StatusCode == 429
}

// IsPermanent reports whether retrying the dispatch that produced err is
// pointless: the inbound message is not an event, the reply is not an event,
// or the sink rejected the request.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	var unprocessable *UnprocessableEventError
	if errors.As(err, &unprocessable) {
		return true
	}
	if errors.Is(err, reply.ErrMalformedEvent) || errors.Is(err, reply.ErrNullEvent) {
		return true
	}
	var status *SinkStatusError
	if errors.As(err, &status) {
		return !status.Temporary()
	}
	return false
}
