package config

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/MrWong99/halidom/internal/entity"
)

// ErrSourceNotRegistered is returned by [Registry.CreateSource] when no
// factory has been registered for the requested source kind.
var ErrSourceNotRegistered = errors.New("config: source kind not registered")

// SourceFactory opens the source described by cfg. The returned cleanup
// function releases its resources and may be nil.
type SourceFactory func(ctx context.Context, cfg SourceConfig) (entity.Source, func(), error)

// Registry maps source kinds to their constructor functions. It is safe for
// concurrent use.
type Registry struct {
	mu      sync.RWMutex
	sources map[SourceKind]SourceFactory
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{sources: make(map[SourceKind]SourceFactory)}
}

// RegisterSource registers a factory for kind.
// Subsequent calls with the same kind overwrite the previous registration.
func (r *Registry) RegisterSource(kind SourceKind, factory SourceFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[kind] = factory
}

// CreateSource opens a source using the factory registered under cfg.Kind.
// Returns [ErrSourceNotRegistered] if no factory has been registered for it.
func (r *Registry) CreateSource(ctx context.Context, cfg SourceConfig) (entity.Source, func(), error) {
	r.mu.RLock()
	factory, ok := r.sources[cfg.Kind]
	r.mu.RUnlock()
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrSourceNotRegistered, cfg.Kind)
	}
	src, cleanup, err := factory(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("config: open source %q: %w", cfg.Name, err)
	}
	if cleanup == nil {
		cleanup = func() {}
	}
	return src, cleanup, nil
}
