package runtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	configpkg "github.com/drblury/replyflow/internal/runtime/config"
	loggingpkg "github.com/drblury/replyflow/internal/runtime/logging"
)

func newRouterService(t *testing.T, conf *configpkg.Config) *Service {
	t.Helper()
	router, err := message.NewRouter(message.RouterConfig{}, watermill.NopLogger{})
	require.NoError(t, err)
	if conf == nil {
		conf = &configpkg.Config{}
	}
	return &Service{Conf: conf, Logger: loggingpkg.NopLogger(), router: router}
}

func TestCorrelationIDMiddleware(t *testing.T) {
	var seen string
	h := correlationIDMiddleware(func(msg *message.Message) ([]*message.Message, error) {
		seen = msg.Metadata.Get(CorrelationIDKey)
		return nil, nil
	})

	_, err := h(message.NewMessage("1", nil))
	require.NoError(t, err)
	assert.Len(t, seen, 26, "ULID expected")

	msg := message.NewMessage("2", nil)
	msg.Metadata.Set(CorrelationIDKey, "keep-me")
	_, err = h(msg)
	require.NoError(t, err)
	assert.Equal(t, "keep-me", seen)
}

func TestRegisterMiddleware(t *testing.T) {
	s := newRouterService(t, nil)

	err := s.RegisterMiddleware(MiddlewareRegistration{Name: "none"})
	assert.ErrorContains(t, err, "requires Middleware or Builder")

	boom := errors.New("boom")
	err = s.RegisterMiddleware(MiddlewareRegistration{
		Builder: func(*Service) (message.HandlerMiddleware, error) { return nil, boom },
	})
	assert.ErrorIs(t, err, boom)

	err = s.RegisterMiddleware(MiddlewareRegistration{
		Builder: func(*Service) (message.HandlerMiddleware, error) { return nil, nil },
	})
	assert.NoError(t, err, "nil middleware is skipped")

	err = (&Service{}).RegisterMiddleware(CorrelationIDMiddleware())
	assert.ErrorContains(t, err, "router is not initialised")
}

func TestRetryMiddlewareConfig(t *testing.T) {
	s := &Service{Conf: &configpkg.Config{
		RetryMaxRetries:      2,
		RetryInitialInterval: 10 * time.Millisecond,
	}}

	cfg := RetryMiddlewareConfig{MaxInterval: time.Second}.fromService(s).withDefaults()
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.Equal(t, 10*time.Millisecond, cfg.InitialInterval)
	assert.Equal(t, time.Second, cfg.MaxInterval)

	defaults := RetryMiddlewareConfig{}.withDefaults()
	assert.Equal(t, 5, defaults.MaxRetries)
	assert.Equal(t, time.Second, defaults.InitialInterval)
	assert.Equal(t, 16*time.Second, defaults.MaxInterval)
	assert.True(t, defaults.RetryIf(errors.New("transient")))
	assert.False(t, defaults.RetryIf(&SinkStatusError{StatusCode: 400}))
}

func TestRetryMiddlewareSkipsPermanentErrors(t *testing.T) {
	calls := 0
	permanent := &UnprocessableEventError{messageUUID: "1", err: errors.New("bad")}
	h := retryMiddleware(RetryMiddlewareConfig{MaxRetries: 3, InitialInterval: time.Millisecond})(
		func(*message.Message) ([]*message.Message, error) {
			calls++
			return nil, permanent
		})

	_, err := h(message.NewMessage("1", nil))
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)

	calls = 0
	transient := &SinkStatusError{StatusCode: 503}
	h = retryMiddleware(RetryMiddlewareConfig{MaxRetries: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond})(
		func(*message.Message) ([]*message.Message, error) {
			calls++
			return nil, transient
		})
	_, err = h(message.NewMessage("2", nil))
	assert.Error(t, err)
	assert.Equal(t, 4, calls)
}

func TestPoisonQueueMiddlewareSkippedWithoutQueue(t *testing.T) {
	s := newRouterService(t, &configpkg.Config{})
	mw, err := PoisonQueueMiddleware(nil).Builder(s)
	require.NoError(t, err)
	assert.Nil(t, mw)

	s.Conf.PoisonQueue = "poison"
	_, err = PoisonQueueMiddleware(nil).Builder(s)
	assert.ErrorContains(t, err, "publisher is required")
}

func TestMetricsMiddlewareDisabled(t *testing.T) {
	s := newRouterService(t, &configpkg.Config{})
	mw, err := MetricsMiddleware().Builder(s)
	require.NoError(t, err)
	assert.Nil(t, mw)
}

func TestTracerMiddlewareContinuesPropagatedTrace(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prevProvider, prevPropagator := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		otel.SetTracerProvider(prevProvider)
		otel.SetTextMapPropagator(prevPropagator)
	})

	parentCtx, parent := provider.Tracer("test").Start(context.Background(), "producer")
	msg := message.NewMessage("msg-1", nil)
	otel.GetTextMapPropagator().Inject(parentCtx, propagation.MapCarrier(msg.Metadata))
	parent.End()

	boom := errors.New("sink down")
	var inner trace.SpanContext
	h := tracerMiddleware("kafka")(func(m *message.Message) ([]*message.Message, error) {
		inner = trace.SpanContextFromContext(m.Context())
		return nil, boom
	})

	_, err := h(msg)
	require.ErrorIs(t, err, boom)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	span := spans[1]
	assert.Equal(t, "DispatchEvent", span.Name())
	assert.Equal(t, trace.SpanKindConsumer, span.SpanKind())
	assert.Equal(t, parent.SpanContext().TraceID(), span.SpanContext().TraceID())
	assert.Equal(t, parent.SpanContext().SpanID(), span.Parent().SpanID())
	assert.Equal(t, span.SpanContext().SpanID(), inner.SpanID())
	assert.Equal(t, codes.Error, span.Status().Code)
	assert.Len(t, span.Events(), 1)

	attrs := map[string]string{}
	for _, kv := range span.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "kafka", attrs["messaging.system"])
	assert.Equal(t, "msg-1", attrs["message.uuid"])
}
