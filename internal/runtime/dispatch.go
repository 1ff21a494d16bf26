package runtime

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	ce "github.com/drblury/replyflow/internal/runtime/cloudevents"
	errspkg "github.com/drblury/replyflow/internal/runtime/errors"
	loggingpkg "github.com/drblury/replyflow/internal/runtime/logging"
	"github.com/drblury/replyflow/internal/runtime/reply"
)

// DispatchHandlerName is the router handler that feeds the sink.
const DispatchHandlerName = "reply-dispatch"

const maxErrorBodyBytes = 1024

// SinkClient delivers events to the sink in HTTP binary mode.
type SinkClient struct {
	url      string
	client   *http.Client
	maxBytes int64
}

// NewSinkClient returns a client POSTing to url. A nil client uses
// http.DefaultClient; maxBytes bounds buffered reply bodies.
func NewSinkClient(url string, client *http.Client, maxBytes int64) (*SinkClient, error) {
	if url == "" {
		return nil, errspkg.ErrSinkURLRequired
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &SinkClient{url: url, client: client, maxBytes: maxBytes}, nil
}

// Deliver POSTs evt and returns the buffered 2xx response. Other statuses
// fail with *SinkStatusError.
func (c *SinkClient) Deliver(ctx context.Context, evt *ce.Event) (*reply.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(evt.Data))
	if err != nil {
		return nil, fmt.Errorf("build sink request: %w", err)
	}
	ce.WriteHTTPHeaders(evt, req.Header)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("deliver to sink: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, &SinkStatusError{StatusCode: resp.StatusCode, Body: body}
	}
	return reply.ReadResponse(resp, c.maxBytes)
}

// dispatch converts msg to an event, delivers it and hands the sink's reply
// to the reply handler. The message is acked only when the reply was
// discarded or republished.
func (s *Service) dispatch(msg *message.Message) error {
	ctx := msg.Context()

	evt, err := ce.FromMessage(msg)
	if err != nil {
		return &UnprocessableEventError{messageUUID: msg.UUID, err: err}
	}

	fields := loggingpkg.LogFields{
		"message_uuid": msg.UUID,
		"event_id":     evt.ID,
		"event_type":   evt.Type,
	}

	sinkCtx := ctx
	if s.Conf.SinkTimeout > 0 {
		var cancel context.CancelFunc
		sinkCtx, cancel = context.WithTimeout(ctx, s.Conf.SinkTimeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := s.sink.Deliver(sinkCtx, evt)
	if err != nil {
		s.Logger.Error("Sink delivery failed", err, fields)
		return err
	}
	fields["sink_status"] = resp.StatusCode
	fields["sink_duration"] = time.Since(start).String()

	if _, err := s.replies.Handle(ctx, resp).Await(ctx); err != nil {
		s.Logger.Error("Reply handling failed", err, fields)
		return err
	}
	s.Logger.Debug("Event dispatched", fields)
	return nil
}
