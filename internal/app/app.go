// Package app wires the halidom subsystems into a running application.
//
// New opens the configured entity sources, performs the first index build and
// registers the Discord commands. Run serves HTTP and Discord traffic and
// keeps the index fresh. Shutdown tears everything down in order.
//
// For testing, inject doubles via functional options (WithRegistry, WithBot,
// WithMetrics).
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/halidom/internal/config"
	"github.com/MrWong99/halidom/internal/discord"
	"github.com/MrWong99/halidom/internal/discord/commands"
	"github.com/MrWong99/halidom/internal/entity"
	"github.com/MrWong99/halidom/internal/lookup"
	"github.com/MrWong99/halidom/internal/observe"
	"github.com/MrWong99/halidom/internal/resilience"
)

// Bot is the part of the Discord bot the application drives.
type Bot interface {
	Router() *discord.Router
	Permissions() *discord.PermissionChecker
	OnMessage(fn discord.MessageHandlerFunc)
	Run(ctx context.Context) error
	Close() error
}

var _ Bot = (*discord.Bot)(nil)

// sourceBreaker guards every entity source.
var sourceBreaker = resilience.BreakerConfig{
	Threshold: 3,
	Cooldown:  time.Minute,
}

// App owns all subsystem lifetimes and keeps the lookup index current.
type App struct {
	cfg      *config.Config
	registry *config.Registry
	metrics  *observe.Metrics
	level    *slog.LevelVar
	bot      Bot

	backoff, maxBackoff time.Duration

	source *resilience.SourceFallback
	svc    *lookup.Service
	server *http.Server

	mu      sync.Mutex
	aliases entity.Aliases
	refresh time.Duration

	// trigger requests an asynchronous reload; refreshCh carries a new
	// refresh interval into Run.
	trigger   chan struct{}
	refreshCh chan time.Duration

	// closers are called in order during Shutdown.
	closers  []func() error
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithRegistry replaces the source registry returned by [DefaultRegistry].
func WithRegistry(r *config.Registry) Option {
	return func(a *App) { a.registry = r }
}

// WithMetrics overrides the metrics sink. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithLevelVar lets configuration reloads change the log level of the
// process logger.
func WithLevelVar(v *slog.LevelVar) Option {
	return func(a *App) { a.level = v }
}

// WithReconnectBackoff sets how long a source that failed to open waits
// before the next attempt. The wait doubles per failure up to maxBackoff.
func WithReconnectBackoff(initial, maxBackoff time.Duration) Option {
	return func(a *App) { a.backoff, a.maxBackoff = initial, maxBackoff }
}

// WithBot attaches a connected Discord bot. Without one the application only
// serves HTTP.
func WithBot(b Bot) Option {
	return func(a *App) { a.bot = b }
}

// New creates an App from cfg. A failing first load is logged and retried by
// Run; queries are answered once a load succeeds.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{
		cfg:       cfg,
		refresh:   cfg.Data.RefreshInterval,
		trigger:   make(chan struct{}, 1),
		refreshCh: make(chan time.Duration, 1),
	}
	for _, o := range opts {
		o(a)
	}
	if a.registry == nil {
		a.registry = DefaultRegistry()
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	aliases, err := entity.ParseAliases(cfg.Aliases)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	a.aliases = aliases

	// ── 1. Sources ───────────────────────────────────────────────────────
	if err := a.initSources(ctx); err != nil {
		a.closeAll()
		return nil, fmt.Errorf("app: init sources: %w", err)
	}

	// ── 2. First build ───────────────────────────────────────────────────
	a.svc = lookup.NewService(lookup.WithMetrics(a.metrics))
	if res, err := a.Reload(ctx); err != nil {
		slog.Error("initial data load failed, serving no answers until a reload succeeds", "err", err)
	} else {
		slog.Info("lookup index ready", "version", res.Version, "entities", res.Entities, "keys", res.Keys)
	}

	// ── 3. Discord ───────────────────────────────────────────────────────
	if a.bot != nil {
		a.initBot()
	}

	// ── 4. HTTP ──────────────────────────────────────────────────────────
	if cfg.Server.ListenAddr != "" {
		a.server = newServer(cfg.Server.ListenAddr, a.Handler())
	}

	return a, nil
}

// initSources wraps every configured source so it is opened on first use,
// appends the snapshot cache last and tries each source once.
func (a *App) initSources(ctx context.Context) error {
	type named struct {
		name string
		src  entity.Source
	}
	var list []named
	var opts []resilience.SourceOption

	for _, sc := range a.cfg.Data.Sources {
		rs := newReconnectingSource(a.registry, sc, a.backoff, a.maxBackoff)
		a.closers = append(a.closers, rs.Close)
		// A failure here is logged and retried by later loads.
		_, _ = rs.connect(ctx)
		list = append(list, named{sc.Name, rs})
	}

	if path := a.cfg.Data.CachePath; path != "" {
		cache, err := entity.OpenBoltCache(path)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, cache.Close)
		list = append(list, named{config.CacheSourceName, cache})
		opts = append(opts, resilience.WithCache(config.CacheSourceName, cache))
	}
	if len(list) == 0 {
		return errors.New("no entity source configured")
	}

	opts = append(opts, resilience.WithSourceMetrics(a.metrics))
	a.source = resilience.NewSourceFallback(sourceBreaker, opts...)
	for _, n := range list {
		a.source.Add(n.name, n.src)
	}
	return nil
}

// initBot registers the slash commands and, when enabled, the bracket
// message handler.
func (a *App) initBot() {
	router := a.bot.Router()
	commands.NewLookupCommands(a.svc, a.metrics).Register(router)
	commands.NewReloadCommand(a.bot.Permissions(), a, a.metrics).Register(router)

	if a.cfg.Discord.MessageQueries {
		br := commands.NewBrackets(a.svc, a.cfg.Discord.MaxQueriesPerMessage, a.metrics)
		a.bot.OnMessage(br.Handle)
	}
}

// Service returns the lookup service.
func (a *App) Service() *lookup.Service {
	return a.svc
}

// Sources reports the breaker state of every entity source.
func (a *App) Sources() []resilience.LinkState {
	return a.source.States()
}

// Reload loads a snapshot from the first healthy source and publishes a new
// index for it. On error the previous index stays active.
func (a *App) Reload(ctx context.Context) (commands.ReloadResult, error) {
	ctx, span := observe.StartSpan(ctx, "app.Reload")
	var err error
	defer func() { observe.EndSpan(span, err) }()

	prev := a.svc.Current()
	snap, err := a.source.Load(ctx)
	if err != nil {
		return commands.ReloadResult{}, fmt.Errorf("app: reload: %w", err)
	}
	x, err := a.svc.Rebuild(ctx, snap, a.currentAliases())
	if err != nil {
		return commands.ReloadResult{}, fmt.Errorf("app: reload: %w", err)
	}
	return commands.ReloadResult{
		Version:  x.Version(),
		Entities: x.Snapshot.Len(),
		Keys:     x.Names.Len(),
		Changed:  x != prev,
	}, nil
}

// RequestReload schedules an asynchronous reload. Requests made while one is
// already pending are coalesced.
func (a *App) RequestReload() {
	select {
	case a.trigger <- struct{}{}:
	default:
	}
}

func (a *App) currentAliases() entity.Aliases {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.aliases
}

// ApplyConfig applies the hot-reloadable part of a configuration change.
// Its signature matches the onChange callback of [config.NewWatcher].
func (a *App) ApplyConfig(_, next *config.Config, d config.ConfigDiff) {
	if d.LogLevelChanged && a.level != nil {
		a.level.Set(LevelOf(d.NewLogLevel))
		slog.Info("log level changed", "level", d.NewLogLevel)
	}
	if d.AliasesChanged {
		aliases, err := entity.ParseAliases(next.Aliases)
		if err != nil {
			// Validate already rejects these; keep the old set if one slips by.
			slog.Warn("alias reload rejected", "err", err)
		} else {
			a.mu.Lock()
			a.aliases = aliases
			a.mu.Unlock()
			slog.Info("aliases changed", "kinds", d.AliasKinds)
			a.RequestReload()
		}
	}
	if d.RefreshChanged {
		select {
		case <-a.refreshCh:
		default:
		}
		a.refreshCh <- d.NewRefresh
	}
}

// Run serves until ctx is cancelled. It returns nil on a clean stop.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.reloadLoop(ctx)
		return nil
	})

	if a.cfg.Data.Watch {
		paths := a.cfg.WatchPaths()
		w, err := NewDataWatcher(paths, 0)
		if err != nil {
			slog.Warn("data file watching disabled", "err", err)
		} else {
			slog.Info("watching data files", "files", len(paths))
			g.Go(func() error { return w.Run(ctx, a.RequestReload) })
		}
	}

	if a.server != nil {
		g.Go(func() error {
			slog.Info("http server listening", "addr", a.server.Addr)
			if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("app: http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return a.server.Shutdown(shutdownCtx)
		})
	}

	if a.bot != nil {
		g.Go(func() error {
			if err := a.bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	slog.Info("app running")
	return g.Wait()
}

// reloadLoop serves reload requests and the periodic refresh.
func (a *App) reloadLoop(ctx context.Context) {
	var (
		ticker *time.Ticker
		tick   <-chan time.Time
	)
	setInterval := func(d time.Duration) {
		if ticker != nil {
			ticker.Stop()
			ticker, tick = nil, nil
		}
		if d > 0 {
			ticker = time.NewTicker(d)
			tick = ticker.C
		}
	}
	a.mu.Lock()
	setInterval(a.refresh)
	a.mu.Unlock()
	defer setInterval(0)

	// Retry a failed startup load right away.
	if a.svc.Current() == nil {
		a.RequestReload()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case d := <-a.refreshCh:
			a.mu.Lock()
			a.refresh = d
			a.mu.Unlock()
			setInterval(d)
			slog.Info("refresh interval changed", "interval", d)
		case <-tick:
			a.reloadInBackground(ctx, "refresh")
		case <-a.trigger:
			a.reloadInBackground(ctx, "trigger")
		}
	}
}

func (a *App) reloadInBackground(ctx context.Context, reason string) {
	res, err := a.Reload(ctx)
	if err != nil {
		if ctx.Err() == nil {
			slog.Warn("background reload failed", "reason", reason, "err", err)
		}
		return
	}
	if res.Changed {
		slog.Info("lookup index reloaded", "reason", reason, "version", res.Version, "entities", res.Entities, "keys", res.Keys)
	}
}

// Shutdown tears down all subsystems in order. It respects the context
// deadline: if ctx expires before all closers finish, remaining closers are
// skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		if a.bot != nil {
			if err := a.bot.Close(); err != nil {
				slog.Warn("discord close error", "err", err)
			}
		}
		if a.server != nil {
			if err := a.server.Shutdown(ctx); err != nil {
				slog.Warn("http shutdown error", "err", err)
			}
		}

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// closeAll releases whatever New opened before failing.
func (a *App) closeAll() {
	for _, c := range a.closers {
		_ = c()
	}
	a.closers = nil
}

// LevelOf maps a configured log level to its slog level.
func LevelOf(l config.LogLevel) slog.Level {
	switch l {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
