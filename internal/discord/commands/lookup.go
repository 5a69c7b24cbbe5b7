package commands

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/halidom/internal/discord"
	"github.com/MrWong99/halidom/internal/keyword"
	"github.com/MrWong99/halidom/internal/observe"
)

// LookupCommands handles /lookup and /find.
type LookupCommands struct {
	svc     Service
	metrics *observe.Metrics
}

// NewLookupCommands creates the query commands. A nil metrics disables
// interaction counting.
func NewLookupCommands(svc Service, metrics *observe.Metrics) *LookupCommands {
	return &LookupCommands{svc: svc, metrics: metrics}
}

// Register registers /lookup (with autocomplete) and /find with the router.
func (lc *LookupCommands) Register(router *discord.Router) {
	router.Command(lc.LookupDefinition(), lc.handleLookup)
	router.Autocomplete("lookup", lc.handleAutocomplete)
	router.Command(lc.FindDefinition(), lc.handleFind)
}

// LookupDefinition returns the /lookup ApplicationCommand.
func (lc *LookupCommands) LookupDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "lookup",
		Description: "Look up an adventurer, dragon, wyrmprint, weapon, skill or ability",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:         "query",
				Description:  "Name, alias or e.g. \"euden s1\"",
				Type:         discordgo.ApplicationCommandOptionString,
				Required:     true,
				Autocomplete: true,
			},
		},
	}
}

// FindDefinition returns the /find ApplicationCommand.
func (lc *LookupCommands) FindDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "find",
		Description: "Search by attributes, e.g. \"5* flame sword\" or \"flame blade t3\"",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "query",
				Description: "Keywords to combine",
				Type:        discordgo.ApplicationCommandOptionString,
				Required:    true,
			},
		},
	}
}

func (lc *LookupCommands) handleLookup(s discord.Responder, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	query := stringOption(i, "query")
	ans, err := lc.svc.Ask(ctx, query)
	switch {
	case err != nil:
		observe.Logger(ctx).Warn("lookup failed", "query", query, "err", err)
		record(ctx, lc.metrics, "lookup", statusError)
		discord.Ephemeral(s, i, failure(query, err))
	case !ans.Found:
		record(ctx, lc.metrics, "lookup", statusNotFound)
		discord.Ephemeral(s, i, miss(ctx, lc.svc, query))
	default:
		record(ctx, lc.metrics, "lookup", statusAnswered)
		discord.Embed(s, i, discord.EmbedFor(ans.Result.Describe()))
	}
}

func (lc *LookupCommands) handleFind(s discord.Responder, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	query := stringOption(i, "query")
	res, err := lc.svc.Query(ctx, query)
	if err != nil {
		if !errors.Is(err, context.DeadlineExceeded) {
			observe.Logger(ctx).Warn("find failed", "query", query, "err", err)
		}
		record(ctx, lc.metrics, "find", statusError)
		discord.Ephemeral(s, i, failure(query, err))
		return
	}

	switch res.Outcome {
	case keyword.Answered:
		record(ctx, lc.metrics, "find", statusAnswered)
		discord.Embed(s, i, discord.EmbedFor(res.Value.Describe()))
	case keyword.NoAnswer:
		record(ctx, lc.metrics, "find", statusNotFound)
		discord.Ephemeral(s, i, "Nothing matches `"+sanitize(query)+"`.")
	default:
		record(ctx, lc.metrics, "find", statusNotFound)
		discord.Ephemeral(s, i, "I don't know how to combine `"+sanitize(query)+
			"`. Try e.g. `5* flame sword`, `water lance` or `flame blade t3`.")
	}
}

func (lc *LookupCommands) handleAutocomplete(s discord.Responder, i *discordgo.InteractionCreate) {
	var partial string
	for _, o := range i.ApplicationCommandData().Options {
		if o.Focused && o.Type == discordgo.ApplicationCommandOptionString {
			partial = o.StringValue()
			break
		}
	}

	names := lc.svc.Complete(partial, maxChoices)
	choices := make([]*discordgo.ApplicationCommandOptionChoice, len(names))
	for n, name := range names {
		choices[n] = &discordgo.ApplicationCommandOptionChoice{Name: name, Value: name}
	}
	discord.Choices(s, i, choices)
}
