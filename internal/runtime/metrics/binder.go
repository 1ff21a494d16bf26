// Package metrics binds Prometheus collectors to the lifetime of a reply
// handler's publish client.
package metrics

import (
	"errors"
	"fmt"
	"sync"
	"time"

	wmmetrics "github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels the result of handling one sink response.
type Outcome string

const (
	OutcomeDiscarded     Outcome = "discarded"
	OutcomePublished     Outcome = "published"
	OutcomeMalformed     Outcome = "malformed"
	OutcomeNullEvent     Outcome = "null_event"
	OutcomePublishFailed Outcome = "publish_failed"
)

// DefaultNamespace prefixes every collector registered by the binder.
const DefaultNamespace = "replyflow"

// ErrBindingClosed is returned when a Binding is closed more than once.
var ErrBindingClosed = errors.New("replyflow: metrics binding already closed")

// Binder attaches metrics to a publish client.
type Binder interface {
	Register(publisher message.Publisher, topic string) (Binding, error)
}

// Binding is the metered view of one publish client. It must be closed
// together with the client.
type Binding interface {
	// Publisher returns the publisher to send records through.
	Publisher() message.Publisher
	Observe(outcome Outcome, elapsed time.Duration)
	Close() error
}

// PrometheusBinder registers per-topic reply collectors and decorates the
// publisher with Watermill's publish metrics.
type PrometheusBinder struct {
	registerer prometheus.Registerer
	namespace  string
}

// NewPrometheusBinder creates a binder registering on registerer, falling back
// to the default registerer and namespace when empty.
func NewPrometheusBinder(registerer prometheus.Registerer, namespace string) *PrometheusBinder {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &PrometheusBinder{registerer: registerer, namespace: namespace}
}

// Register creates the collectors for topic and returns the binding.
func (b *PrometheusBinder) Register(publisher message.Publisher, topic string) (Binding, error) {
	if publisher == nil {
		return nil, errors.New("replyflow: metrics binder requires a publisher")
	}

	labels := prometheus.Labels{"topic": topic}
	outcomes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   b.namespace,
			Subsystem:   "reply",
			Name:        "outcomes_total",
			Help:        "Sink responses handled, by outcome",
			ConstLabels: labels,
		},
		[]string{"outcome"},
	)
	durations := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   b.namespace,
			Subsystem:   "reply",
			Name:        "handle_duration_seconds",
			Help:        "Time from receiving a sink response to its outcome",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	pb := &prometheusBinding{registerer: b.registerer}

	var err error
	if pb.outcomes, err = registerOrGet(pb, outcomes); err != nil {
		return nil, fmt.Errorf("registering reply outcome counter: %w", err)
	}
	if pb.durations, err = registerOrGet(pb, durations); err != nil {
		pb.unregisterOwned()
		return nil, fmt.Errorf("registering reply duration histogram: %w", err)
	}

	decorated, err := wmmetrics.NewPrometheusMetricsBuilder(ownedRegisterer{pb}, b.namespace, "reply").DecoratePublisher(publisher)
	if err != nil {
		pb.unregisterOwned()
		return nil, fmt.Errorf("decorating publisher with metrics: %w", err)
	}
	pb.publisher = decorated
	return pb, nil
}

// registerOrGet registers c, reusing a compatible collector that is already
// registered. Only collectors registered here are owned by the binding.
func registerOrGet[C prometheus.Collector](pb *prometheusBinding, c C) (C, error) {
	if err := pb.registerer.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		var zero C
		return zero, err
	}
	pb.owned = append(pb.owned, c)
	return c, nil
}

// ownedRegisterer records every collector it registers as owned by the
// binding. AlreadyRegisteredError is returned unwrapped so callers can reuse
// the existing collector.
type ownedRegisterer struct {
	pb *prometheusBinding
}

func (r ownedRegisterer) Register(c prometheus.Collector) error {
	if err := r.pb.registerer.Register(c); err != nil {
		return err
	}
	r.pb.owned = append(r.pb.owned, c)
	return nil
}

func (r ownedRegisterer) MustRegister(cs ...prometheus.Collector) {
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			panic(err)
		}
	}
}

func (r ownedRegisterer) Unregister(c prometheus.Collector) bool {
	return r.pb.registerer.Unregister(c)
}

type prometheusBinding struct {
	registerer prometheus.Registerer
	publisher  message.Publisher
	outcomes   *prometheus.CounterVec
	durations  *prometheus.HistogramVec
	owned      []prometheus.Collector

	mu     sync.Mutex
	closed bool
}

func (p *prometheusBinding) Publisher() message.Publisher {
	return p.publisher
}

func (p *prometheusBinding) Observe(outcome Outcome, elapsed time.Duration) {
	p.outcomes.WithLabelValues(string(outcome)).Inc()
	p.durations.WithLabelValues(string(outcome)).Observe(elapsed.Seconds())
}

// Close unregisters the collectors this binding registered.
func (p *prometheusBinding) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrBindingClosed
	}
	p.closed = true
	return p.unregisterOwned()
}

func (p *prometheusBinding) unregisterOwned() error {
	var errs []error
	for _, c := range p.owned {
		if !p.registerer.Unregister(c) {
			errs = append(errs, fmt.Errorf("replyflow: collector %T was not registered", c))
		}
	}
	p.owned = nil
	return errors.Join(errs...)
}

// NopBinder returns bindings that pass the publisher through unmetered.
type NopBinder struct{}

func (NopBinder) Register(publisher message.Publisher, _ string) (Binding, error) {
	return nopBinding{publisher: publisher}, nil
}

type nopBinding struct {
	publisher message.Publisher
}

func (n nopBinding) Publisher() message.Publisher { return n.publisher }

func (nopBinding) Observe(Outcome, time.Duration) {}

func (nopBinding) Close() error { return nil }
