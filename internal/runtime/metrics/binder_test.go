package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusBinderObservesOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	binding, err := NewPrometheusBinder(reg, "").Register(&recordingPublisher{}, "replies")
	require.NoError(t, err)

	binding.Observe(OutcomePublished, 10*time.Millisecond)
	binding.Observe(OutcomePublished, 20*time.Millisecond)
	binding.Observe(OutcomeDiscarded, time.Millisecond)

	pb := binding.(*prometheusBinding)
	assert.Equal(t, 2.0, testutil.ToFloat64(pb.outcomes.WithLabelValues(string(OutcomePublished))))
	assert.Equal(t, 1.0, testutil.ToFloat64(pb.outcomes.WithLabelValues(string(OutcomeDiscarded))))
	assert.True(t, gathered(t, reg, "replyflow_reply_outcomes_total"))
	assert.True(t, gathered(t, reg, "replyflow_reply_handle_duration_seconds"))
}

func TestPrometheusBinderDecoratesPublisher(t *testing.T) {
	pub := &recordingPublisher{}
	binding, err := NewPrometheusBinder(prometheus.NewRegistry(), "test").Register(pub, "replies")
	require.NoError(t, err)

	require.NotSame(t, pub, binding.Publisher())
	require.NoError(t, binding.Publisher().Publish("replies", message.NewMessage("1", nil)))
	assert.Equal(t, []string{"replies"}, pub.topics)
}

func TestPrometheusBindingCloseUnregisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	binding, err := NewPrometheusBinder(reg, "").Register(&recordingPublisher{}, "replies")
	require.NoError(t, err)

	binding.Observe(OutcomeMalformed, time.Millisecond)
	require.NoError(t, binding.Publisher().Publish("replies", message.NewMessage("1", nil)))
	require.True(t, gathered(t, reg, "replyflow_reply_publish_time_seconds"))

	require.NoError(t, binding.Close())
	assert.False(t, gathered(t, reg, "replyflow_reply_outcomes_total"))
	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Empty(t, families, "every collector registered by the binding is released")

	assert.ErrorIs(t, binding.Close(), ErrBindingClosed)
}

func TestPrometheusBinderReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	binder := NewPrometheusBinder(reg, "")

	first, err := binder.Register(&recordingPublisher{}, "replies")
	require.NoError(t, err)
	second, err := binder.Register(&recordingPublisher{}, "replies")
	require.NoError(t, err)

	first.Observe(OutcomePublished, time.Millisecond)
	second.Observe(OutcomePublished, time.Millisecond)
	assert.Equal(t, 2.0, testutil.ToFloat64(first.(*prometheusBinding).outcomes.WithLabelValues(string(OutcomePublished))))

	// The second binding does not own the collectors, so closing it keeps them.
	require.NoError(t, second.Close())
	assert.True(t, gathered(t, reg, "replyflow_reply_outcomes_total"))
	require.NoError(t, first.Close())
	assert.False(t, gathered(t, reg, "replyflow_reply_outcomes_total"))
}

func TestPrometheusBinderRegistrationFailure(t *testing.T) {
	boom := errors.New("registry unavailable")
	_, err := NewPrometheusBinder(failingRegisterer{err: boom}, "").Register(&recordingPublisher{}, "replies")
	assert.ErrorIs(t, err, boom)

	_, err = NewPrometheusBinder(prometheus.NewRegistry(), "").Register(nil, "replies")
	assert.Error(t, err)
}

func TestNopBinder(t *testing.T) {
	pub := &recordingPublisher{}
	binding, err := NopBinder{}.Register(pub, "replies")
	require.NoError(t, err)

	assert.Same(t, pub, binding.Publisher())
	binding.Observe(OutcomePublished, time.Second)
	assert.NoError(t, binding.Close())
}

func gathered(t *testing.T, g prometheus.Gatherer, name string) bool {
	t.Helper()
	families, err := g.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return true
		}
	}
	return false
}

type recordingPublisher struct {
	topics []string
}

func (p *recordingPublisher) Publish(topic string, messages ...*message.Message) error {
	p.topics = append(p.topics, topic)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type failingRegisterer struct {
	err error
}

func (f failingRegisterer) Register(prometheus.Collector) error { return f.err }

func (f failingRegisterer) MustRegister(...prometheus.Collector) {}

func (f failingRegisterer) Unregister(prometheus.Collector) bool { return false }
