package reply

import (
	"github.com/drblury/replyflow/internal/runtime/logging"
	"github.com/drblury/replyflow/internal/runtime/metrics"
	"github.com/drblury/replyflow/internal/runtime/tracing"
)

// Option customises a Handler.
type Option func(*Handler)

// WithDecoder replaces the CloudEvents HTTP decoder.
func WithDecoder(d Decoder) Option {
	return func(h *Handler) {
		if d != nil {
			h.decoder = d
		}
	}
}

// WithBinder registers the handler's publisher with b.
func WithBinder(b metrics.Binder) Option {
	return func(h *Handler) {
		if b != nil {
			h.binder = b
		}
	}
}

// WithAnnotator replaces the span annotator.
func WithAnnotator(a tracing.Annotator) Option {
	return func(h *Handler) {
		if a != nil {
			h.annotator = a
		}
	}
}

// WithLogger sets the logger used for discarded responses and failures.
func WithLogger(l logging.ServiceLogger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}
