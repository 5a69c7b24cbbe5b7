// Command halidom is the main entry point for the halidom game-data bot.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrWong99/halidom/internal/app"
	"github.com/MrWong99/halidom/internal/config"
	discordbot "github.com/MrWong99/halidom/internal/discord"
	"github.com/MrWong99/halidom/internal/observe"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	watchConfig := flag.Bool("watch-config", true, "reload log level, aliases and refresh interval when the config file changes")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "halidom: config file %q not found\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "halidom: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	level := new(slog.LevelVar)
	level.Set(app.LevelOf(cfg.Server.LogLevel))
	slog.SetDefault(slog.New(observe.NewTraceHandler(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))))

	slog.Info("halidom starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "halidom",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(tctx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	opts := []app.Option{app.WithLevelVar(level)}

	// ── Discord bot (optional) ────────────────────────────────────────────────
	if cfg.Discord.Token != "" {
		bot, err := discordbot.New(discordbot.Config{
			Token:          cfg.Discord.Token,
			GuildID:        cfg.Discord.GuildID,
			AdminRoleID:    cfg.Discord.AdminRoleID,
			MessageContent: cfg.Discord.MessageQueries,
		})
		if err != nil {
			slog.Error("failed to create Discord bot", "err", err)
			return 1
		}
		opts = append(opts, app.WithBot(bot))
		slog.Info("discord bot configured", "guild_id", cfg.Discord.GuildID)
	}

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg)

	application, err := app.New(ctx, cfg, opts...)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	// ── Config hot reload ─────────────────────────────────────────────────────
	if *watchConfig {
		w, err := config.NewWatcher(*configPath, application.ApplyConfig,
			config.WithRejectHandler(func(err error) {
				slog.Warn("config change rejected, keeping the previous config", "path", *configPath, "err", err)
			}),
		)
		if err != nil {
			slog.Warn("config watching disabled", "err", err)
		} else {
			defer w.Stop()
		}
	}

	slog.Info("server ready, press Ctrl+C to shut down")

	runErr := application.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		slog.Error("run error", "err", runErr)
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("stopping…")
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║         halidom · startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	for _, src := range cfg.Data.Sources {
		printRow("Source", string(src.Kind)+" / "+src.Name)
	}
	if cfg.Data.CachePath != "" {
		printRow("Cache", cfg.Data.CachePath)
	} else {
		printRow("Cache", "(disabled)")
	}
	if cfg.Data.RefreshInterval > 0 {
		printRow("Refresh", cfg.Data.RefreshInterval.String())
	}
	printRow("Watch data", fmt.Sprint(cfg.Data.Watch))
	aliases := 0
	for _, m := range cfg.Aliases {
		aliases += len(m)
	}
	printRow("Aliases", fmt.Sprint(aliases))
	switch {
	case cfg.Discord.Token == "":
		printRow("Discord", "(disabled)")
	case cfg.Discord.MessageQueries:
		printRow("Discord", "commands + [[brackets]]")
	default:
		printRow("Discord", "commands")
	}
	if cfg.Server.ListenAddr != "" {
		printRow("Listen addr", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printRow(label, value string) {
	if r := []rune(value); len(r) > 19 {
		value = string(r[:18]) + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", label, value)
}
