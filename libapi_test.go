package replyflow

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

func TestServiceExportsPropagateErrors(t *testing.T) {
	if _, err := TryNewService(nil, NopLogger(), context.Background(), ServiceDependencies{}); !errors.Is(err, ErrConfigRequired) {
		t.Fatalf("expected config required error, got %v", err)
	}

	var validation ConfigValidationError
	_, err := TryNewService(&Config{}, NopLogger(), context.Background(), ServiceDependencies{})
	if !errors.As(err, &validation) {
		t.Fatalf("expected config validation error, got %v", err)
	}
}

func TestReplyHandlerExports(t *testing.T) {
	if _, err := NewReplyHandler(nil, "replies"); !errors.Is(err, ErrPublisherRequired) {
		t.Fatalf("expected publisher required error, got %v", err)
	}

	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 1}, watermill.NopLogger{})
	h, err := NewReplyHandler(pubSub, "replies", WithBinder(NopBinder{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	messages, err := pubSub.Subscribe(ctx, "replies")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	header := http.Header{}
	evt := NewCloudEvent("reply-1", "order.confirmed", "/sink")
	WriteHTTPHeaders(evt, header)
	if err := HandleResponse(ctx, h, &Response{StatusCode: http.StatusOK, Header: header}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	select {
	case msg := <-messages:
		msg.Ack()
		if got := msg.Metadata.Get("ce_id"); got != "reply-1" {
			t.Fatalf("expected ce_id reply-1, got %q", got)
		}
	case <-ctx.Done():
		t.Fatal("reply was not published")
	}

	err = HandleResponse(ctx, h, &Response{StatusCode: http.StatusOK, Body: []byte("garbage")})
	if !IsMalformed(err) || !errors.Is(err, ErrMalformedEvent) {
		t.Fatalf("expected malformed error, got %v", err)
	}

	if err := h.Close().Err(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := HandleResponse(ctx, h, nil); !errors.Is(err, ErrHandlerClosed) {
		t.Fatalf("expected closed error, got %v", err)
	}
}

func TestReadResponseExport(t *testing.T) {
	resp, err := ReadResponse(&http.Response{StatusCode: http.StatusNoContent, Body: http.NoBody})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.HasBody() {
		t.Fatal("expected empty response")
	}
}

func TestTransportExports(t *testing.T) {
	if !GetCapabilities("kafka").SupportsPartitioning {
		t.Fatal("expected kafka capabilities to be registered")
	}
	_, err := BuildTransport(context.Background(), &Config{PubSubSystem: "smoke-signals"}, watermill.NopLogger{})
	if !errors.Is(err, ErrUnknownTransport) {
		t.Fatalf("expected unknown transport error, got %v", err)
	}
}

func TestLoggerExports(t *testing.T) {
	logger := NopLogger().With(LogFields{"component": "test"})
	logger.Info("boot", LogFields{"ok": true})
	if string(OutcomePublished) != "published" {
		t.Fatal("unexpected outcome label")
	}
}
