package discord

import (
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// HandlerFunc handles one slash command or autocomplete interaction.
type HandlerFunc func(s Responder, i *discordgo.InteractionCreate)

// Router dispatches interactions by route. A route is the command name, or
// "command/subcommand" for subcommands.
type Router struct {
	mu         sync.RWMutex
	defs       []*discordgo.ApplicationCommand
	commands   map[string]HandlerFunc
	completers map[string]HandlerFunc
}

// NewRouter returns an empty router.
func NewRouter() *Router {
	return &Router{
		commands:   make(map[string]HandlerFunc),
		completers: make(map[string]HandlerFunc),
	}
}

// Command registers def with Discord and routes its invocations to h.
// Registering a name twice replaces the earlier definition.
func (r *Router) Command(def *discordgo.ApplicationCommand, h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[def.Name] = h
	for n, d := range r.defs {
		if d.Name == def.Name {
			r.defs[n] = def
			return
		}
	}
	r.defs = append(r.defs, def)
}

// Subcommand routes "parent/sub" to h. The parent definition is registered
// with [Router.Command].
func (r *Router) Subcommand(route string, h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[route] = h
}

// Autocomplete routes autocomplete requests for route to h.
func (r *Router) Autocomplete(route string, h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completers[route] = h
}

// Definitions returns the top-level command definitions in registration
// order.
func (r *Router) Definitions() []*discordgo.ApplicationCommand {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*discordgo.ApplicationCommand(nil), r.defs...)
}

// Handle dispatches i. Unknown commands get an ephemeral notice, unknown
// autocomplete routes an empty choice list. A panicking handler is logged.
func (r *Router) Handle(s Responder, i *discordgo.InteractionCreate) {
	defer func() {
		if v := recover(); v != nil {
			slog.Error("discord: handler panicked", "panic", v, "stack", string(debug.Stack()))
		}
	}()

	var table map[string]HandlerFunc
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		table = r.commands
	case discordgo.InteractionApplicationCommandAutocomplete:
		table = r.completers
	default:
		slog.Debug("discord: ignoring interaction", "type", i.Type)
		return
	}

	route := routeOf(i.ApplicationCommandData())
	r.mu.RLock()
	h := table[route]
	r.mu.RUnlock()
	if h != nil {
		h(s, i)
		return
	}

	if i.Type == discordgo.InteractionApplicationCommandAutocomplete {
		Choices(s, i, nil)
		return
	}
	slog.Warn("discord: unknown command", "route", route)
	Ephemeral(s, i, "Unknown command.")
}

func routeOf(data discordgo.ApplicationCommandInteractionData) string {
	if len(data.Options) > 0 && data.Options[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		return data.Name + "/" + data.Options[0].Name
	}
	return data.Name
}
