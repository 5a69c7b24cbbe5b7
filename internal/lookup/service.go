package lookup

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/antzucaro/matchr"
	"golang.org/x/sync/singleflight"

	"github.com/MrWong99/halidom/internal/entity"
	"github.com/MrWong99/halidom/internal/keyword"
	"github.com/MrWong99/halidom/internal/observe"
	"github.com/MrWong99/halidom/internal/textnorm"
)

var (
	// ErrNoIndex is returned by queries before the first successful build.
	ErrNoIndex = errors.New("lookup: no index published")

	// ErrQueryTooLong is returned for bracket queries longer than
	// [Index.QueryLimit].
	ErrQueryTooLong = errors.New("lookup: query too long")

	// ErrSuperseded is returned by [Service.Rebuild] when a build requested
	// later has already been published. The newer index stays current.
	ErrSuperseded = errors.New("lookup: rebuild superseded by a newer one")
)

// suggestFactor widens the fuzzy bound for "did you mean" suggestions.
const suggestFactor = 2

// Answer is the outcome of [Service.Lookup] or [Service.Ask].
type Answer struct {
	Result     entity.Describable
	Key        string
	Confidence float64
	Found      bool

	// Structured is set when the keyword dispatcher produced the answer.
	Structured bool
}

// Service serves queries against the most recently published [Index].
// Queries never block on a rebuild.
type Service struct {
	current atomic.Pointer[Index]
	rebuild singleflight.Group
	metrics *observe.Metrics

	// Every Rebuild call draws a ticket. A flight publishes under the highest
	// ticket of its callers and never over a higher published one.
	requests atomic.Uint64
	ticketMu sync.Mutex
	tickets  map[string]uint64 // flight key -> highest pending ticket

	publishMu sync.Mutex
	published uint64 // guarded by publishMu
}

// Option configures a [Service].
type Option func(*Service)

// WithMetrics overrides the metrics sink. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService returns a Service with no published index.
func NewService(opts ...Option) *Service {
	s := &Service{tickets: make(map[string]uint64)}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// Current returns the published index, or nil before the first build.
func (s *Service) Current() *Index {
	return s.current.Load()
}

// Rebuild builds an index for snap and aliases and publishes it. On error the
// previous index stays published. Concurrent calls for the same snapshot
// version and alias set share one build. Rebuilding what is already
// published is a no-op. Builds publish in call order: one that finishes after
// a later call's index went live returns [ErrSuperseded] instead.
func (s *Service) Rebuild(ctx context.Context, snap *entity.Snapshot, aliases entity.Aliases) (_ *Index, err error) {
	if snap == nil {
		return nil, entity.ErrNoSnapshot
	}
	if snap.Version == "" {
		if err := snap.Seal(); err != nil {
			return nil, fmt.Errorf("lookup: rebuild: %w", err)
		}
	}
	fp := aliases.Fingerprint()
	if cur := s.Current(); cur != nil && cur.Version() == snap.Version && cur.AliasFingerprint == fp {
		return cur, nil
	}

	key := snap.Version + "/" + fp
	s.request(key)
	v, err, _ := s.rebuild.Do(key, func() (any, error) {
		return s.build(ctx, key, snap, aliases)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Index), nil
}

// request records a new ticket for the flight under key.
func (s *Service) request(key string) {
	t := s.requests.Add(1)
	s.ticketMu.Lock()
	s.tickets[key] = max(s.tickets[key], t)
	s.ticketMu.Unlock()
}

// claim takes the highest ticket requested for key so far.
func (s *Service) claim(key string) uint64 {
	s.ticketMu.Lock()
	defer s.ticketMu.Unlock()
	t := s.tickets[key]
	delete(s.tickets, key)
	return t
}

func (s *Service) build(ctx context.Context, key string, snap *entity.Snapshot, aliases entity.Aliases) (_ *Index, err error) {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	ctx, span := observe.StartSpan(ctx, "lookup.Rebuild")
	defer func() { observe.EndSpan(span, err) }()
	log := observe.Logger(ctx)

	ticket := s.claim(key)
	if ticket < s.published {
		log.Debug("index rebuild superseded", "version", short(snap.Version))
		return nil, ErrSuperseded
	}

	start := time.Now()
	x, err := Build(ctx, snap, aliases)
	if err != nil {
		s.metrics.RecordRebuild(ctx, observe.StatusError, time.Since(start), 0)
		log.Error("index rebuild failed, keeping previous index", "version", snap.Version, "err", err)
		return nil, err
	}

	old := s.current.Swap(x)
	s.published = ticket
	s.metrics.RecordRebuild(ctx, observe.StatusOK, time.Since(start), x.Names.Len())
	attrs := []any{
		"version", short(x.Version()),
		"entities", snap.Len(),
		"keys", x.Names.Len(),
		"keywords", x.Keywords.Len(),
		"duration", time.Since(start),
	}
	if old != nil {
		attrs = append(attrs, "previous", short(old.Version()))
	}
	log.Info("index published", attrs...)
	return x, nil
}

// Lookup resolves a bracket query to its closest name.
func (s *Service) Lookup(ctx context.Context, text string) (ans Answer, err error) {
	ctx, span := observe.StartSpan(ctx, "lookup.Lookup")
	defer func() { observe.EndSpan(span, err) }()
	start := time.Now()
	defer func() { s.metrics.RecordQuery(ctx, "lookup", outcomeOf(ans, err), time.Since(start)) }()

	x := s.Current()
	if x == nil {
		return Answer{}, ErrNoIndex
	}
	return lookupIn(x, text)
}

func lookupIn(x *Index, text string) (Answer, error) {
	if textnorm.Len(textnorm.Fold(text)) > x.QueryLimit() {
		return Answer{}, ErrQueryTooLong
	}
	res, ok := x.Names.Resolve(text)
	if !ok {
		return Answer{}, nil
	}
	return Answer{Result: res.Value, Key: res.Key, Confidence: res.Confidence, Found: true}, nil
}

// Query runs text through the keyword segmenter and dispatcher. The three
// dispatch outcomes are passed through unchanged.
func (s *Service) Query(ctx context.Context, text string) (res keyword.Resolution[entity.Describable], err error) {
	ctx, span := observe.StartSpan(ctx, "lookup.Query")
	defer func() { observe.EndSpan(span, err) }()
	start := time.Now()
	defer func() {
		outcome := res.Outcome.String()
		if err != nil {
			outcome = observe.StatusError
		}
		s.metrics.RecordQuery(ctx, "query", outcome, time.Since(start))
	}()

	x := s.Current()
	if x == nil {
		return res, ErrNoIndex
	}
	return queryIn(ctx, x, text)
}

func queryIn(ctx context.Context, x *Index, text string) (keyword.Resolution[entity.Describable], error) {
	values, err := x.Keywords.Match(text)
	if err != nil {
		return keyword.Resolution[entity.Describable]{}, err
	}
	return x.Dispatch.Resolve(ctx, values...)
}

// Ask answers free text the way the chat frontends want: a structured query
// when text yields at least two keyword values and a handler answers,
// otherwise a bracket lookup. Both steps run against the same index.
func (s *Service) Ask(ctx context.Context, text string) (ans Answer, err error) {
	ctx, span := observe.StartSpan(ctx, "lookup.Ask")
	defer func() { observe.EndSpan(span, err) }()
	start := time.Now()
	defer func() { s.metrics.RecordQuery(ctx, "ask", outcomeOf(ans, err), time.Since(start)) }()

	x := s.Current()
	if x == nil {
		return Answer{}, ErrNoIndex
	}

	values, err := x.Keywords.Match(text)
	if err != nil {
		return Answer{}, err
	}
	if len(values) >= 2 {
		res, err := x.Dispatch.Resolve(ctx, values...)
		if err != nil {
			return Answer{}, err
		}
		switch res.Outcome {
		case keyword.Answered:
			literals, _ := x.Keywords.MatchLiterals(text)
			return Answer{
				Result:     res.Value,
				Key:        strings.Join(literals, " "),
				Confidence: 1,
				Found:      true,
				Structured: true,
			}, nil
		case keyword.NoHandler:
			observe.Logger(ctx).Debug("no handler for keyword signature", "signature", res.Signature)
		case keyword.NoAnswer:
			observe.Logger(ctx).Debug("handler had no answer", "signature", res.Signature)
		}
	}

	ans, err = lookupIn(x, text)
	if errors.Is(err, ErrQueryTooLong) && len(values) >= 2 {
		// Long structured queries are legitimate; they just had no answer.
		return Answer{}, nil
	}
	return ans, err
}

// Suggest returns up to n keys close to text, closest first. Ties are broken
// by Jaro-Winkler similarity. Remaining slots go to entity names that sound
// like text.
func (s *Service) Suggest(ctx context.Context, text string, n int) ([]string, error) {
	x := s.Current()
	if x == nil {
		return nil, ErrNoIndex
	}
	if n <= 0 || textnorm.Len(textnorm.Fold(text)) > x.QueryLimit() {
		return nil, nil
	}

	folded := textnorm.Fold(text)
	matches := x.Names.Near(text, suggestFactor)
	type scored struct {
		key  string
		dist int
		sim  float64
	}
	cands := make([]scored, len(matches))
	for i, m := range matches {
		cands[i] = scored{key: m.Key, dist: m.Distance, sim: matchr.JaroWinkler(folded, m.Key, false)}
	}
	slices.SortStableFunc(cands, func(a, b scored) int {
		if a.dist != b.dist {
			return a.dist - b.dist
		}
		switch {
		case a.sim > b.sim:
			return -1
		case a.sim < b.sim:
			return 1
		}
		return strings.Compare(a.key, b.key)
	})

	out := make([]string, 0, n)
	seen := make(map[string]bool, n)
	for _, c := range cands {
		if len(out) == n {
			break
		}
		out = append(out, c.key)
		seen[c.key] = true
	}
	// Fill up with names that sound alike but are spelled too differently
	// for the edit bound.
	if len(out) < n && x.Sounds != nil {
		for _, m := range x.Sounds.Match(text, n) {
			if len(out) == n {
				break
			}
			if !seen[m.Name] {
				out = append(out, m.Name)
				seen[m.Name] = true
			}
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// Complete returns up to n display names starting with prefix.
func (s *Service) Complete(prefix string, n int) []string {
	x := s.Current()
	if x == nil {
		return nil
	}
	return x.Complete(prefix, n)
}

func outcomeOf(a Answer, err error) string {
	switch {
	case err != nil:
		return observe.StatusError
	case a.Found:
		return keyword.Answered.String()
	default:
		return "no_match"
	}
}

func short(version string) string {
	if len(version) > 12 {
		return version[:12]
	}
	return version
}
