package runtime

import (
	"errors"
	"time"

	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	ce "github.com/drblury/replyflow/internal/runtime/cloudevents"
	loggingpkg "github.com/drblury/replyflow/internal/runtime/logging"
)

// TracerName names the tracer used for dispatch spans.
const TracerName = "github.com/drblury/replyflow"

// CorrelationIDKey is the metadata key carrying the correlation identifier.
const CorrelationIDKey = "correlation_id"

// MiddlewareBuilder constructs a handler middleware using the provided service instance.
type MiddlewareBuilder func(*Service) (message.HandlerMiddleware, error)

// MiddlewareRegistration captures how a middleware should be registered on a Service router.
type MiddlewareRegistration struct {
	Name       string
	Middleware message.HandlerMiddleware
	Builder    MiddlewareBuilder
}

// RetryMiddlewareConfig customises the retry middleware behaviour. Zero
// values are taken from the Service config, then from library defaults.
type RetryMiddlewareConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	RetryIf         func(error) bool
}

func (cfg RetryMiddlewareConfig) withDefaults() RetryMiddlewareConfig {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = time.Second
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 16 * time.Second
	}
	if cfg.RetryIf == nil {
		cfg.RetryIf = func(err error) bool { return !IsPermanent(err) }
	}
	return cfg
}

func (cfg RetryMiddlewareConfig) fromService(s *Service) RetryMiddlewareConfig {
	if s.Conf == nil {
		return cfg
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = s.Conf.RetryMaxRetries
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = s.Conf.RetryInitialInterval
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = s.Conf.RetryMaxInterval
	}
	return cfg
}

// DefaultMiddlewares returns the standard middleware chain used by the Service constructor.
func DefaultMiddlewares() []MiddlewareRegistration {
	return []MiddlewareRegistration{
		CorrelationIDMiddleware(),
		LogMessagesMiddleware(nil),
		TracerMiddleware(),
		MetricsMiddleware(),
		RetryMiddleware(RetryMiddlewareConfig{}),
		PoisonQueueMiddleware(nil),
		RecovererMiddleware(),
	}
}

// MetricsMiddleware adds Watermill's Prometheus router metrics and serves
// them on MetricsPort when set.
func MetricsMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "metrics",
		Builder: func(s *Service) (message.HandlerMiddleware, error) {
			if !s.Conf.MetricsEnabled {
				return nil, nil
			}

			metricsBuilder := metrics.NewPrometheusMetricsBuilder(
				s.registerer,
				s.Conf.MetricsNamespace,
				s.Conf.PubSubSystem,
			)

			metricsBuilder.AddPrometheusRouterMetrics(s.router)

			if s.Conf.MetricsPort > 0 {
				s.RegisterHTTPHandler(s.Conf.MetricsPort, "/metrics", promhttp.Handler())
			}

			return metricsBuilder.NewRouterMiddleware().Middleware, nil
		},
	}
}

// CorrelationIDMiddleware ensures each processed message carries a correlation identifier.
func CorrelationIDMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name:       "correlation_id",
		Middleware: correlationIDMiddleware,
	}
}

// LogMessagesMiddleware logs the payload and metadata of handled messages at debug level.
func LogMessagesMiddleware(logger loggingpkg.ServiceLogger) MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "log_messages",
		Builder: func(s *Service) (message.HandlerMiddleware, error) {
			l := logger
			if l == nil {
				l = s.Logger
			}
			if l == nil {
				return nil, errors.New("log messages middleware requires a logger")
			}
			return logMessagesMiddleware(l), nil
		},
	}
}

// TracerMiddleware wraps handler execution in an OpenTelemetry consumer span
// continuing the trace propagated in the message metadata.
func TracerMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "tracer",
		Builder: func(s *Service) (message.HandlerMiddleware, error) {
			return tracerMiddleware(s.Conf.PubSubSystem), nil
		},
	}
}

// RetryMiddleware retries handler execution using the provided configuration.
// Permanent failures are not retried unless cfg.RetryIf says otherwise.
func RetryMiddleware(cfg RetryMiddlewareConfig) MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "retry",
		Builder: func(s *Service) (message.HandlerMiddleware, error) {
			return retryMiddleware(cfg.fromService(s)), nil
		},
	}
}

// PoisonQueueMiddleware publishes messages whose error matches filter to the
// configured poison queue. A nil filter selects permanent failures. Nothing
// is registered when no poison queue is configured.
func PoisonQueueMiddleware(filter func(error) bool) MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "poison_queue",
		Builder: func(s *Service) (message.HandlerMiddleware, error) {
			if s.Conf == nil || s.Conf.PoisonQueue == "" {
				return nil, nil
			}
			if s.publisher == nil {
				return nil, errors.New("publisher is required for poison queue middleware")
			}
			f := filter
			if f == nil {
				f = IsPermanent
			}
			return middleware.PoisonQueueWithFilter(s.publisher, s.Conf.PoisonQueue, f)
		},
	}
}

// RecovererMiddleware converts panics into handler errors so they can be retried or sent to the poison queue.
func RecovererMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name:       "recoverer",
		Middleware: middleware.Recoverer,
	}
}

// RegisterMiddleware attaches the supplied middleware to the router.
func (s *Service) RegisterMiddleware(cfg MiddlewareRegistration) error {
	if s.router == nil {
		return errors.New("router is not initialised")
	}

	var mw message.HandlerMiddleware
	switch {
	case cfg.Middleware != nil:
		mw = cfg.Middleware
	case cfg.Builder != nil:
		var err error
		mw, err = cfg.Builder(s)
		if err != nil {
			return err
		}
	default:
		return errors.New("middleware registration requires Middleware or Builder")
	}

	if mw == nil {
		return nil
	}

	s.router.AddMiddleware(mw)
	return nil
}

func correlationIDMiddleware(h message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		if msg.Metadata.Get(CorrelationIDKey) == "" {
			msg.Metadata.Set(CorrelationIDKey, ce.NewMessageUUID())
		}
		return h(msg)
	}
}

func logMessagesMiddleware(logger loggingpkg.ServiceLogger) message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			logger.Debug("Processing message", loggingpkg.LogFields{
				"message_uuid": msg.UUID,
				"payload":      string(msg.Payload),
				"metadata":     msg.Metadata,
			})
			return h(msg)
		}
	}
}

func retryMiddleware(cfg RetryMiddlewareConfig) message.HandlerMiddleware {
	normalized := cfg.withDefaults()
	return middleware.Retry{
		MaxRetries:      normalized.MaxRetries,
		InitialInterval: normalized.InitialInterval,
		MaxInterval:     normalized.MaxInterval,
		ShouldRetry: func(params middleware.RetryParams) bool {
			return normalized.RetryIf(params.Err)
		},
	}.Middleware
}

func tracerMiddleware(system string) message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			ctx := otel.GetTextMapPropagator().Extract(msg.Context(), propagation.MapCarrier(msg.Metadata))
			ctx, span := otel.Tracer(TracerName).Start(
				ctx,
				"DispatchEvent",
				trace.WithSpanKind(trace.SpanKindConsumer),
			)
			defer span.End()
			msg.SetContext(ctx)

			span.SetAttributes(
				semconv.MessagingSystemKey.String(system),
				semconv.MessagingDestinationName(message.SubscribeTopicFromCtx(ctx)),
				attribute.String("message.uuid", msg.UUID),
			)

			out, err := h(msg)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			return out, err
		}
	}
}
