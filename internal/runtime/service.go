package runtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/plugin"
	"github.com/prometheus/client_golang/prometheus"

	configpkg "github.com/drblury/replyflow/internal/runtime/config"
	errspkg "github.com/drblury/replyflow/internal/runtime/errors"
	loggingpkg "github.com/drblury/replyflow/internal/runtime/logging"
	metricspkg "github.com/drblury/replyflow/internal/runtime/metrics"
	"github.com/drblury/replyflow/internal/runtime/reply"
	transportpkg "github.com/drblury/replyflow/internal/runtime/transport"
	brokers "github.com/drblury/replyflow/transport"
)

var routerRun = func(router *message.Router, ctx context.Context) error {
	return router.Run(ctx)
}

// ServiceDependencies holds the optional collaborators that the Service can use.
// Leave fields nil to use the defaults.
type ServiceDependencies struct {
	Middlewares               []MiddlewareRegistration // Appended after the default middleware chain.
	DisableDefaultMiddlewares bool                     // Skips registering the default middleware chain when true.
	TransportFactory          transportpkg.Factory
	HTTPClient                *http.Client          // Used for sink deliveries.
	MetricsRegisterer         prometheus.Registerer // Defaults to prometheus.DefaultRegisterer.
	ReplyOptions              []reply.Option        // Applied after the Service's own reply options.
	DisableSignalHandler      bool                  // Skips the router's SIGINT/SIGTERM plugin.
}

// Service consumes events, delivers them to the sink and republishes the
// replies through a reply.Handler.
type Service struct {
	Conf   *configpkg.Config
	Logger loggingpkg.ServiceLogger

	publisher  message.Publisher
	subscriber message.Subscriber
	router     *message.Router
	registerer prometheus.Registerer

	sink    *SinkClient
	replies *reply.Handler

	httpServers   map[int]*http.ServeMux
	httpServersMu sync.Mutex
	servers       []*http.Server

	closeOnce sync.Once
	closeErr  error
}

// NewService constructs a Service for the supplied configuration and panics
// when it cannot be built. Use TryNewService to handle the error instead.
func NewService(conf *configpkg.Config, log loggingpkg.ServiceLogger, ctx context.Context, deps ServiceDependencies) *Service {
	s, err := TryNewService(conf, log, ctx, deps)
	if err != nil {
		panic(err)
	}
	return s
}

// TryNewService constructs a Service, connecting to the broker selected by
// conf. Resources acquired before a failure are released.
func TryNewService(conf *configpkg.Config, log loggingpkg.ServiceLogger, ctx context.Context, deps ServiceDependencies) (*Service, error) {
	if conf == nil {
		return nil, errspkg.ErrConfigRequired
	}
	if log == nil {
		return nil, errspkg.ErrLoggerRequired
	}
	if err := errspkg.NewConfigValidationError(conf.Validate()); err != nil {
		return nil, err
	}

	wmLogger := loggingpkg.NewWatermillAdapter(log)
	log.Info("Creating dispatch service",
		loggingpkg.LogFields{
			"pubsub_system": conf.PubSubSystem,
			"config":        conf.String(),
		})

	s := &Service{
		Conf:       conf,
		Logger:     log,
		registerer: deps.MetricsRegisterer,
	}
	if s.registerer == nil {
		s.registerer = prometheus.DefaultRegisterer
	}

	sink, err := NewSinkClient(conf.SinkURL, deps.HTTPClient, conf.MaxResponseBytes)
	if err != nil {
		return nil, err
	}
	s.sink = sink

	factory := deps.TransportFactory
	if factory == nil {
		factory = transportpkg.DefaultFactory()
	}
	transport, err := factory.Build(ctx, conf, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("build transport: %w", err)
	}
	s.publisher = transport.Publisher
	s.subscriber = transport.Subscriber
	s.logCapabilities(conf)

	replies, err := reply.NewHandler(transport.Publisher, conf.ReplyTopic, s.replyOptions(deps)...)
	if err != nil {
		_ = transport.Close()
		return nil, fmt.Errorf("create reply handler: %w", err)
	}
	s.replies = replies

	router, err := message.NewRouter(message.RouterConfig{}, wmLogger)
	if err != nil {
		s.releaseTransport()
		return nil, err
	}
	s.router = router
	if !deps.DisableSignalHandler {
		s.router.AddPlugin(plugin.SignalsHandler)
	}

	if err := s.registerConfiguredMiddlewares(deps); err != nil {
		s.releaseTransport()
		return nil, err
	}

	s.router.AddNoPublisherHandler(
		DispatchHandlerName,
		conf.ConsumeTopic,
		s.subscriber,
		s.dispatch,
	)

	return s, nil
}

// logCapabilities reports configuration the selected broker cannot honour.
func (s *Service) logCapabilities(conf *configpkg.Config) {
	caps := brokers.GetCapabilities(conf.PubSubSystem)
	if conf.MaxResponseBytes > 0 && !caps.CanCarry(int(conf.MaxResponseBytes)) {
		s.Logger.Info("Replies larger than the broker message limit will fail to publish", loggingpkg.LogFields{
			"pubsub_system":      conf.PubSubSystem,
			"max_message_size":   caps.MaxMessageSize,
			"max_response_bytes": conf.MaxResponseBytes,
		})
	}
}

func (s *Service) replyOptions(deps ServiceDependencies) []reply.Option {
	opts := []reply.Option{reply.WithLogger(s.Logger.With(loggingpkg.LogFields{"component": "reply"}))}
	if s.Conf.MetricsEnabled {
		opts = append(opts, reply.WithBinder(metricspkg.NewPrometheusBinder(s.registerer, s.Conf.MetricsNamespace)))
	}
	return append(opts, deps.ReplyOptions...)
}

// Start runs the underlying Watermill router until the provided context is cancelled.
func (s *Service) Start(ctx context.Context) error {
	s.startHTTPServers()
	return routerRun(s.router, ctx)
}

// Running is closed once the router has started consuming.
func (s *Service) Running() chan struct{} {
	return s.router.Running()
}

// Replies returns the reply handler fed by the dispatch loop.
func (s *Service) Replies() *reply.Handler {
	return s.replies
}

// Close stops the router, then closes the reply handler, which owns the
// publisher, and finally the subscriber. Every step runs even when an
// earlier one fails.
func (s *Service) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if err := s.router.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close router: %w", err))
		}
		if err := s.replies.Close().Err(); err != nil {
			errs = append(errs, fmt.Errorf("close reply handler: %w", err))
		}
		if err := s.subscriber.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close subscriber: %w", err))
		}
		s.stopHTTPServers()
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

// releaseTransport undoes construction after the reply handler was created.
func (s *Service) releaseTransport() {
	_ = s.replies.Close().Err()
	_ = s.subscriber.Close()
}

func (s *Service) registerConfiguredMiddlewares(deps ServiceDependencies) error {
	var defaults []MiddlewareRegistration
	if !deps.DisableDefaultMiddlewares {
		defaults = DefaultMiddlewares()
	}
	registrations := make([]MiddlewareRegistration, 0, len(defaults)+len(deps.Middlewares))
	registrations = append(registrations, defaults...)
	registrations = append(registrations, deps.Middlewares...)

	for _, reg := range registrations {
		if err := s.RegisterMiddleware(reg); err != nil {
			name := reg.Name
			if name == "" {
				name = "anonymous_middleware"
			}
			return fmt.Errorf("failed to register middleware %s: %w", name, err)
		}
	}
	return nil
}

// RegisterHTTPHandler mounts handler on the server for port, started by Start.
func (s *Service) RegisterHTTPHandler(port int, pattern string, handler http.Handler) {
	s.httpServersMu.Lock()
	defer s.httpServersMu.Unlock()

	if s.httpServers == nil {
		s.httpServers = make(map[int]*http.ServeMux)
	}

	mux, ok := s.httpServers[port]
	if !ok {
		mux = http.NewServeMux()
		s.httpServers[port] = mux
	}

	mux.Handle(pattern, handler)
}

func (s *Service) startHTTPServers() {
	s.httpServersMu.Lock()
	defer s.httpServersMu.Unlock()

	for port, mux := range s.httpServers {
		srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
		s.servers = append(s.servers, srv)
		s.Logger.Info("Starting HTTP server", loggingpkg.LogFields{"address": srv.Addr})
		go func(srv *http.Server) {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.Logger.Error("Failed to start HTTP server", err, loggingpkg.LogFields{"address": srv.Addr})
			}
		}(srv)
	}
}

func (s *Service) stopHTTPServers() {
	s.httpServersMu.Lock()
	defer s.httpServersMu.Unlock()

	for _, srv := range s.servers {
		_ = srv.Close()
	}
	s.servers = nil
}
