package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/halidom/internal/discord"
	"github.com/MrWong99/halidom/internal/observe"
)

// reloadTimeout bounds a manual reload, including source fallbacks.
const reloadTimeout = 2 * time.Minute

// Reloader re-pulls the entity sources and republishes the index.
type Reloader interface {
	Reload(ctx context.Context) (ReloadResult, error)
}

// ReloadResult summarises a finished reload.
type ReloadResult struct {
	Version  string
	Entities int
	Keys     int
	Changed  bool
}

// ReloadCommand handles /reload. Only admins may run it.
type ReloadCommand struct {
	perms    *discord.PermissionChecker
	reloader Reloader
	metrics  *observe.Metrics
}

// NewReloadCommand creates the /reload handler.
func NewReloadCommand(perms *discord.PermissionChecker, reloader Reloader, metrics *observe.Metrics) *ReloadCommand {
	return &ReloadCommand{perms: perms, reloader: reloader, metrics: metrics}
}

// Register registers /reload with the router.
func (rc *ReloadCommand) Register(router *discord.Router) {
	router.Command(rc.Definition(), rc.handle)
}

// Definition returns the /reload ApplicationCommand.
func (rc *ReloadCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "reload",
		Description: "Reload the game data from its sources (admins only)",
	}
}

func (rc *ReloadCommand) handle(s discord.Responder, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	if !rc.perms.IsAdmin(i) {
		record(ctx, rc.metrics, "reload", statusDenied)
		discord.Ephemeral(s, i, "Only admins can reload the game data.")
		return
	}

	discord.Defer(s, i)

	ctx, cancel := context.WithTimeout(ctx, reloadTimeout)
	defer cancel()
	res, err := rc.reloader.Reload(ctx)
	if err != nil {
		observe.Logger(ctx).Error("manual reload failed", "err", err)
		record(ctx, rc.metrics, "reload", statusError)
		discord.FollowUp(s, i, fmt.Sprintf("Reload failed, the previous data stays active: %v", err))
		return
	}

	record(ctx, rc.metrics, "reload", statusAnswered)
	if !res.Changed {
		discord.FollowUp(s, i, fmt.Sprintf("Data unchanged (version `%s`).", short(res.Version)))
		return
	}
	discord.FollowUp(s, i, fmt.Sprintf("Reloaded %d entities, %d lookup keys (version `%s`).",
		res.Entities, res.Keys, short(res.Version)))
}

func short(version string) string {
	if len(version) > 12 {
		return version[:12]
	}
	return version
}
