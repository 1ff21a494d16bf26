// Package transport connects the dispatch Service to the broker selected in
// its configuration.
package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/cenkalti/backoff"

	"github.com/drblury/replyflow/internal/runtime/config"
	"github.com/drblury/replyflow/transport"

	_ "github.com/drblury/replyflow/transport/transports"
)

// Transport is the publisher and subscriber pair used by the Service.
type Transport = transport.Transport

// InitialRetryInterval is the first wait between connection attempts.
var InitialRetryInterval = 500 * time.Millisecond

// Factory abstracts how the Service initialises message transports.
type Factory interface {
	Build(ctx context.Context, conf *config.Config, logger watermill.LoggerAdapter) (Transport, error)
}

// DefaultFactory returns a factory backed by the default transport registry.
func DefaultFactory() Factory {
	return RegistryFactory(transport.DefaultRegistry)
}

// RegistryFactory returns a factory that builds transports from registry and
// retries failed connections with exponential backoff for conf.ConnectTimeout.
func RegistryFactory(registry *transport.Registry) Factory {
	return registryFactory{registry: registry}
}

type registryFactory struct {
	registry *transport.Registry
}

func (f registryFactory) Build(ctx context.Context, conf *config.Config, logger watermill.LoggerAdapter) (Transport, error) {
	if conf == nil {
		return Transport{}, errors.New("config is required")
	}
	if !f.registry.Has(conf.GetPubSubSystem()) {
		return f.registry.Build(ctx, conf, logger)
	}

	var (
		built    Transport
		attempts int
	)
	operation := func() error {
		attempts++
		t, err := f.registry.Build(ctx, conf, logger)
		if err != nil {
			logger.Error("Transport connection failed", err, watermill.LogFields{
				"pubsub":  conf.GetPubSubSystem(),
				"attempt": attempts,
			})
			return err
		}
		built = t
		return nil
	}

	if conf.ConnectTimeout <= 0 {
		if err := operation(); err != nil {
			return Transport{}, err
		}
		return built, nil
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = InitialRetryInterval
	expBackoff.MaxElapsedTime = conf.ConnectTimeout

	if err := backoff.Retry(operation, backoff.WithContext(expBackoff, ctx)); err != nil {
		return Transport{}, fmt.Errorf("connect to %s after %d attempts: %w", conf.GetPubSubSystem(), attempts, err)
	}
	return built, nil
}
