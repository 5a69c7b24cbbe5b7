package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MrWong99/halidom/internal/config"
	"github.com/MrWong99/halidom/internal/entity"
)

// Default reconnection parameters.
const (
	defaultBackoff    = 1 * time.Second
	defaultMaxBackoff = 5 * time.Minute
)

// errBackingOff is returned by Load while the next open attempt is not yet
// due.
var errBackingOff = errors.New("app: source reconnect backing off")

// reconnectingSource opens a configured source on first use. A failed open is
// retried by later loads with exponential backoff, so a database that is
// down at startup is picked up once it comes back.
//
// All methods are safe for concurrent use.
type reconnectingSource struct {
	cfg        config.SourceConfig
	registry   *config.Registry
	backoff    time.Duration
	maxBackoff time.Duration
	now        func() time.Time

	mu      sync.Mutex
	src     entity.Source
	cleanup func()
	wait    time.Duration
	next    time.Time
}

var _ entity.Source = (*reconnectingSource)(nil)

func newReconnectingSource(reg *config.Registry, cfg config.SourceConfig, backoff, maxBackoff time.Duration) *reconnectingSource {
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	if maxBackoff < backoff {
		maxBackoff = max(backoff, defaultMaxBackoff)
	}
	return &reconnectingSource{
		cfg:        cfg,
		registry:   reg,
		backoff:    backoff,
		maxBackoff: maxBackoff,
		now:        time.Now,
	}
}

// Load opens the source if needed and loads from it.
func (r *reconnectingSource) Load(ctx context.Context) (*entity.Snapshot, error) {
	src, err := r.connect(ctx)
	if err != nil {
		return nil, err
	}
	return src.Load(ctx)
}

// connect returns the open source, opening it when no backoff is pending.
func (r *reconnectingSource) connect(ctx context.Context) (entity.Source, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.src != nil {
		return r.src, nil
	}
	if now := r.now(); now.Before(r.next) {
		return nil, fmt.Errorf("%w: %q for another %s", errBackingOff, r.cfg.Name, r.next.Sub(now).Round(time.Millisecond))
	}

	src, cleanup, err := r.registry.CreateSource(ctx, r.cfg)
	if err != nil {
		if r.wait == 0 {
			r.wait = r.backoff
		} else {
			r.wait = min(r.wait*2, r.maxBackoff)
		}
		r.next = r.now().Add(r.wait)
		slog.Warn("entity source unavailable", "source", r.cfg.Name, "kind", r.cfg.Kind, "retry_in", r.wait, "err", err)
		return nil, err
	}
	if r.wait > 0 {
		slog.Info("entity source reconnected", "source", r.cfg.Name)
	} else {
		slog.Info("entity source opened", "source", r.cfg.Name, "kind", r.cfg.Kind)
	}
	r.src, r.cleanup = src, cleanup
	r.wait, r.next = 0, time.Time{}
	return src, nil
}

// Close releases the opened source, if any.
func (r *reconnectingSource) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cleanup != nil {
		r.cleanup()
	}
	r.src, r.cleanup = nil, nil
	return nil
}
