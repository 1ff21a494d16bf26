package transport

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
)

// ErrUnknownTransport is returned by Build for unregistered names.
var ErrUnknownTransport = errors.New("unknown transport")

// DefaultRegistry is the registry the built-in transports add themselves to.
var DefaultRegistry = NewRegistry()

type registration struct {
	build Builder
	caps  Capabilities
}

// Registry maps pubsub system names, as found in Config.GetPubSubSystem, to
// the builder for that broker and what the broker can carry.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]registration
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]registration)}
}

// Register adds builder under name with no declared capabilities.
func (r *Registry) Register(name string, builder Builder) {
	r.RegisterWithCapabilities(name, builder, Capabilities{Name: name})
}

// RegisterWithCapabilities adds builder under name, replacing any previous
// registration.
func (r *Registry) RegisterWithCapabilities(name string, builder Builder, caps Capabilities) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = registration{build: builder, caps: caps}
}

func (r *Registry) lookup(name string) (registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.entries[name]
	return reg, ok
}

// GetCapabilities returns what name can carry. Unknown names report no
// capabilities.
func (r *Registry) GetCapabilities(name string) Capabilities {
	if reg, ok := r.lookup(name); ok {
		return reg.caps
	}
	return Capabilities{Name: name}
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.lookup(name)
	return ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.entries))
}

// Build connects to the broker selected by cfg. A builder returning only one
// half of the pair is treated as a failure and the half is closed.
func (r *Registry) Build(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (Transport, error) {
	if cfg == nil {
		return Transport{}, errors.New("config is required")
	}

	name := cfg.GetPubSubSystem()
	reg, ok := r.lookup(name)
	if !ok {
		return Transport{}, fmt.Errorf("%w: %q (registered: %v)", ErrUnknownTransport, name, r.Names())
	}

	t, err := reg.build(ctx, cfg, logger)
	if err != nil {
		return Transport{}, fmt.Errorf("building %s transport: %w", name, err)
	}
	if t.Publisher == nil || t.Subscriber == nil {
		_ = t.Close()
		return Transport{}, fmt.Errorf("building %s transport: publisher and subscriber are required", name)
	}
	return t, nil
}

// Register adds builder to DefaultRegistry.
func Register(name string, builder Builder) {
	DefaultRegistry.Register(name, builder)
}

// RegisterWithCapabilities adds builder and caps to DefaultRegistry.
func RegisterWithCapabilities(name string, builder Builder, caps Capabilities) {
	DefaultRegistry.RegisterWithCapabilities(name, builder, caps)
}

// Build connects using DefaultRegistry.
func Build(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (Transport, error) {
	return DefaultRegistry.Build(ctx, cfg, logger)
}

// GetCapabilities looks name up in DefaultRegistry.
func GetCapabilities(name string) Capabilities {
	return DefaultRegistry.GetCapabilities(name)
}

// Has reports whether DefaultRegistry knows name.
func Has(name string) bool {
	return DefaultRegistry.Has(name)
}
