package resilience

import (
	"context"
	"errors"
	"log/slog"

	"github.com/MrWong99/halidom/internal/entity"
	"github.com/MrWong99/halidom/internal/observe"
)

// SnapshotCache stores the last snapshot a remote source served.
type SnapshotCache interface {
	Save(snap *entity.Snapshot) error
}

// SourceFallback is an [entity.Source] that loads from the first healthy
// source of an ordered list. Each source sits behind its own breaker so a dead
// database is not hammered on every refresh.
type SourceFallback struct {
	chain     *Chain[entity.Source]
	cache     SnapshotCache
	cacheName string
	metrics   *observe.Metrics
}

var _ entity.Source = (*SourceFallback)(nil)

// SourceOption configures a [SourceFallback].
type SourceOption func(*SourceFallback)

// WithSourceMetrics overrides the metrics sink. Defaults to
// [observe.DefaultMetrics].
func WithSourceMetrics(m *observe.Metrics) SourceOption {
	return func(s *SourceFallback) { s.metrics = m }
}

// WithCache writes every snapshot served by a source other than name into
// cache. The cache is usually also added as the last source under name.
func WithCache(name string, cache SnapshotCache) SourceOption {
	return func(s *SourceFallback) {
		s.cacheName = name
		s.cache = cache
	}
}

// NewSourceFallback returns an empty fallback whose breakers use cb. Sources
// are added in priority order with [SourceFallback.Add].
func NewSourceFallback(cb BreakerConfig, opts ...SourceOption) *SourceFallback {
	s := &SourceFallback{chain: NewChain[entity.Source](cb)}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	s.chain.Attempted = s.attempted
	return s
}

// Add appends a source tried after every source added before it.
func (s *SourceFallback) Add(name string, src entity.Source) {
	s.chain.Append(name, src)
}

// States reports the breaker state of every source.
func (s *SourceFallback) States() []LinkState {
	return s.chain.States()
}

// Load returns the snapshot of the first source that succeeds.
func (s *SourceFallback) Load(ctx context.Context) (*entity.Snapshot, error) {
	snap, name, err := Try(s.chain, func(src entity.Source) (*entity.Snapshot, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return src.Load(ctx)
	})
	if err != nil {
		return nil, err
	}
	log := observe.Logger(ctx)
	log.Debug("snapshot loaded", "source", name, "version", snap.Version)
	if s.cache != nil && name != s.cacheName {
		if err := s.cache.Save(snap); err != nil {
			log.Warn("snapshot cache write failed", "source", name, "err", err)
		}
	}
	return snap, nil
}

func (s *SourceFallback) attempted(name string, err error) {
	status := observe.StatusOK
	switch {
	case errors.Is(err, ErrBreakerOpen):
		status = "skipped"
		slog.Debug("source skipped, breaker open", "source", name)
	case err != nil:
		status = observe.StatusError
		slog.Warn("source failed, trying next", "source", name, "err", err)
	}
	s.metrics.RecordSourceLoad(context.Background(), name, status)
}
