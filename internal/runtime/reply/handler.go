package reply

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/replyflow/internal/runtime/async"
	ce "github.com/drblury/replyflow/internal/runtime/cloudevents"
	errspkg "github.com/drblury/replyflow/internal/runtime/errors"
	"github.com/drblury/replyflow/internal/runtime/logging"
	"github.com/drblury/replyflow/internal/runtime/metrics"
	"github.com/drblury/replyflow/internal/runtime/tracing"
)

const nullField = "null"

// Handler republishes CloudEvents found in sink responses onto one topic.
// It is safe for concurrent use.
type Handler struct {
	topic     string
	publisher message.Publisher
	binding   metrics.Binding

	decoder   Decoder
	binder    metrics.Binder
	annotator tracing.Annotator
	logger    logging.ServiceLogger

	closed atomic.Bool
}

// NewHandler creates a Handler owning publisher. The publisher is registered
// with the configured binder and is closed by Close.
func NewHandler(publisher message.Publisher, topic string, opts ...Option) (*Handler, error) {
	if topic == "" {
		return nil, errspkg.ErrTopicRequired
	}
	if publisher == nil {
		return nil, errspkg.ErrPublisherRequired
	}

	h := &Handler{
		topic:     topic,
		decoder:   HTTPDecoder{},
		binder:    metrics.NopBinder{},
		annotator: tracing.SpanAnnotator{},
		logger:    logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}

	binding, err := h.binder.Register(publisher, topic)
	if err != nil {
		return nil, err
	}
	h.binding = binding
	h.publisher = binding.Publisher()
	h.logger = h.logger.With(logging.LogFields{"topic": topic})
	return h, nil
}

// Topic returns the topic replies are published to.
func (h *Handler) Topic() string {
	return h.topic
}

// Handle classifies resp and, when it carries an event, publishes it. The
// returned future succeeds for discarded and published responses.
func (h *Handler) Handle(ctx context.Context, resp *Response) *async.Future[async.Void] {
	if h.closed.Load() {
		return async.Failed[async.Void](ErrHandlerClosed)
	}
	start := time.Now()

	evt, err := h.decoder.Decode(resp)
	if err != nil {
		if !resp.HasBody() {
			h.logDiscarded(resp)
			h.binding.Observe(metrics.OutcomeDiscarded, time.Since(start))
			return async.Succeeded(async.Void{})
		}
		h.binding.Observe(metrics.OutcomeMalformed, time.Since(start))
		return async.Failed[async.Void](&malformedEventError{cause: err})
	}
	if evt == nil {
		h.binding.Observe(metrics.OutcomeNullEvent, time.Since(start))
		return async.Failed[async.Void](ErrNullEvent)
	}

	h.annotator.AnnotateCurrent(ctx, evt)

	msg, err := ce.ToMessage(evt)
	if err != nil {
		h.binding.Observe(metrics.OutcomePublishFailed, time.Since(start))
		return async.Failed[async.Void](err)
	}
	msg.SetContext(ctx)

	return async.Go(func() (async.Void, error) {
		if err := h.publisher.Publish(h.topic, msg); err != nil {
			h.binding.Observe(metrics.OutcomePublishFailed, time.Since(start))
			h.logger.Error("Failed to publish reply event", err, logging.LogFields{
				"event_id":   evt.ID,
				"event_type": evt.Type,
			})
			return async.Void{}, err
		}
		h.binding.Observe(metrics.OutcomePublished, time.Since(start))
		return async.Void{}, nil
	})
}

// Close closes the publisher and the metrics binding concurrently. Both are
// always attempted; the future fails with every error that occurred.
func (h *Handler) Close() *async.Future[async.Void] {
	if !h.closed.CompareAndSwap(false, true) {
		return async.Failed[async.Void](ErrHandlerClosed)
	}

	closers := []*async.Future[async.Void]{
		async.Go(func() (async.Void, error) { return async.Void{}, h.publisher.Close() }),
		async.Go(func() (async.Void, error) { return async.Void{}, h.binding.Close() }),
	}
	return async.MapEmpty(async.All(closers...))
}

// Closed reports whether Close was called.
func (h *Handler) Closed() bool {
	return h.closed.Load()
}

func (h *Handler) logDiscarded(resp *Response) {
	if !logging.IsDebugEnabled(h.logger) {
		return
	}
	fields := logging.LogFields{
		"response":          nullField,
		"response.body":     nullField,
		"response.body.len": nullField,
	}
	if resp != nil {
		fields["response"] = "status=" + strconv.Itoa(resp.StatusCode)
		if resp.Body != nil {
			fields["response.body"] = string(resp.Body)
			fields["response.body.len"] = len(resp.Body)
		}
	}
	h.logger.Debug("Response is not an event, discarding", fields)
}

// IsMalformed reports whether err came from a response that was not an event.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedEvent)
}
