package commands

import (
	"context"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/halidom/internal/discord"
	"github.com/MrWong99/halidom/internal/observe"
)

// Brackets answers [[query]] brackets in guild messages with one reply
// holding an embed per hit and a line per miss.
type Brackets struct {
	svc     Service
	limit   int
	metrics *observe.Metrics
}

// NewBrackets creates a bracket handler answering at most limit queries per
// message.
func NewBrackets(svc Service, limit int, metrics *observe.Metrics) *Brackets {
	return &Brackets{svc: svc, limit: limit, metrics: metrics}
}

// Handle is a [discord.MessageHandlerFunc].
func (b *Brackets) Handle(s discord.MessageSender, m *discordgo.MessageCreate) {
	queries := discord.ExtractQueries(m.Content, b.limit)
	if len(queries) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	var (
		embeds []*discordgo.MessageEmbed
		lines  []string
	)
	for _, q := range queries {
		ans, err := b.svc.Ask(ctx, q)
		switch {
		case err != nil:
			observe.Logger(ctx).Warn("bracket query failed", "query", q, "err", err)
			record(ctx, b.metrics, "bracket", statusError)
			lines = append(lines, failure(q, err))
		case !ans.Found:
			record(ctx, b.metrics, "bracket", statusNotFound)
			lines = append(lines, miss(ctx, b.svc, q))
		default:
			record(ctx, b.metrics, "bracket", statusAnswered)
			embeds = append(embeds, discord.EmbedFor(ans.Result.Describe()))
		}
	}
	discord.Reply(s, m, strings.Join(lines, "\n"), embeds)
}
