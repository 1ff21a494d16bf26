package replyflow

import (
	"context"
	"net/http"

	runtimepkg "github.com/drblury/replyflow/internal/runtime"
	"github.com/drblury/replyflow/internal/runtime/async"
	ce "github.com/drblury/replyflow/internal/runtime/cloudevents"
	configpkg "github.com/drblury/replyflow/internal/runtime/config"
	errspkg "github.com/drblury/replyflow/internal/runtime/errors"
	loggingpkg "github.com/drblury/replyflow/internal/runtime/logging"
	metricspkg "github.com/drblury/replyflow/internal/runtime/metrics"
	"github.com/drblury/replyflow/internal/runtime/reply"
	"github.com/drblury/replyflow/internal/runtime/tracing"
	transportpkg "github.com/drblury/replyflow/internal/runtime/transport"
	newtransport "github.com/drblury/replyflow/transport"
)

type (
	Config              = configpkg.Config
	Service             = runtimepkg.Service
	ServiceDependencies = runtimepkg.ServiceDependencies
	Transport           = transportpkg.Transport
	TransportFactory    = transportpkg.Factory

	MiddlewareBuilder      = runtimepkg.MiddlewareBuilder
	MiddlewareRegistration = runtimepkg.MiddlewareRegistration
	RetryMiddlewareConfig  = runtimepkg.RetryMiddlewareConfig

	SinkClient              = runtimepkg.SinkClient
	SinkStatusError         = runtimepkg.SinkStatusError
	UnprocessableEventError = runtimepkg.UnprocessableEventError
	ConfigValidationError   = errspkg.ConfigValidationError

	// Reply handling
	ReplyHandler = reply.Handler
	ReplyOption  = reply.Option
	Response     = reply.Response
	Decoder      = reply.Decoder
	DecoderFunc  = reply.DecoderFunc
	HTTPDecoder  = reply.HTTPDecoder
	Void         = async.Void

	// Metrics and tracing hooks
	Binder           = metricspkg.Binder
	Binding          = metricspkg.Binding
	Outcome          = metricspkg.Outcome
	PrometheusBinder = metricspkg.PrometheusBinder
	NopBinder        = metricspkg.NopBinder
	Annotator        = tracing.Annotator
	SpanAnnotator    = tracing.SpanAnnotator

	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger

	// CloudEvents types
	Event = ce.Event

	// Transport capabilities
	TransportBuilder      = newtransport.Builder
	TransportConfig       = newtransport.Config
	TransportRegistry     = newtransport.Registry
	TransportCapabilities = newtransport.Capabilities
)

// Future is the asynchronous result returned by ReplyHandler operations.
type Future[T any] = async.Future[T]

var (
	NewService        = runtimepkg.NewService
	TryNewService     = runtimepkg.TryNewService
	ValidateConfig    = configpkg.ValidateConfig
	LoadConfigFromEnv = configpkg.LoadFromEnv
	NewSinkClient     = runtimepkg.NewSinkClient
	IsPermanent       = runtimepkg.IsPermanent

	DefaultMiddlewares      = runtimepkg.DefaultMiddlewares
	CorrelationIDMiddleware = runtimepkg.CorrelationIDMiddleware
	LogMessagesMiddleware   = runtimepkg.LogMessagesMiddleware
	TracerMiddleware        = runtimepkg.TracerMiddleware
	MetricsMiddleware       = runtimepkg.MetricsMiddleware
	RetryMiddleware         = runtimepkg.RetryMiddleware
	PoisonQueueMiddleware   = runtimepkg.PoisonQueueMiddleware
	RecovererMiddleware     = runtimepkg.RecovererMiddleware

	// Reply handling
	NewReplyHandler     = reply.NewHandler
	WithDecoder         = reply.WithDecoder
	WithBinder          = reply.WithBinder
	WithAnnotator       = reply.WithAnnotator
	WithLogger          = reply.WithLogger
	IsMalformed         = reply.IsMalformed
	NewPrometheusBinder = metricspkg.NewPrometheusBinder

	// CloudEvents constructors and codecs
	NewCloudEvent    = ce.New
	EventToMessage   = ce.ToMessage
	EventFromMessage = ce.FromMessage
	DecodeHTTP       = ce.DecodeHTTP
	WriteHTTPHeaders = ce.WriteHTTPHeaders

	// Transport registry
	DefaultTransportRegistry = newtransport.DefaultRegistry
	RegisterTransport        = newtransport.RegisterWithCapabilities
	BuildTransport           = newtransport.Build
	GetCapabilities          = newtransport.GetCapabilities
	TransportFromRegistry    = transportpkg.RegistryFactory

	ErrPublisherRequired = errspkg.ErrPublisherRequired
	ErrTopicRequired     = errspkg.ErrTopicRequired
	ErrConfigRequired    = errspkg.ErrConfigRequired
	ErrLoggerRequired    = errspkg.ErrLoggerRequired
	ErrSinkURLRequired   = errspkg.ErrSinkURLRequired
	ErrMalformedEvent    = reply.ErrMalformedEvent
	ErrNullEvent         = reply.ErrNullEvent
	ErrHandlerClosed     = reply.ErrHandlerClosed
	ErrUnknownTransport  = newtransport.ErrUnknownTransport

	NewSlogServiceLogger      = loggingpkg.NewSlogServiceLogger
	NewWatermillServiceLogger = loggingpkg.NewWatermillServiceLogger
	NopLogger                 = loggingpkg.NopLogger
)

// Reply outcomes recorded by a Binder.
const (
	OutcomeDiscarded     = metricspkg.OutcomeDiscarded
	OutcomePublished     = metricspkg.OutcomePublished
	OutcomeMalformed     = metricspkg.OutcomeMalformed
	OutcomeNullEvent     = metricspkg.OutcomeNullEvent
	OutcomePublishFailed = metricspkg.OutcomePublishFailed
)

// ReadResponse buffers resp for a ReplyHandler using the default body limit.
func ReadResponse(resp *http.Response) (*Response, error) {
	return reply.ReadResponse(resp, reply.DefaultMaxResponseBytes)
}

// HandleResponse translates resp with h and waits for the outcome.
func HandleResponse(ctx context.Context, h *ReplyHandler, resp *Response) error {
	_, err := h.Handle(ctx, resp).Await(ctx)
	return err
}
