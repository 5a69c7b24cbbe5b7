// Package commands implements the halidom slash commands and the [[query]]
// message handler on top of the discord package.
package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/halidom/internal/entity"
	"github.com/MrWong99/halidom/internal/keyword"
	"github.com/MrWong99/halidom/internal/lookup"
	"github.com/MrWong99/halidom/internal/observe"
)

// Interaction statuses reported to [observe.Metrics.RecordInteraction].
const (
	statusAnswered = "answered"
	statusNotFound = "not_found"
	statusError    = "error"
	statusDenied   = "denied"
)

// queryTimeout bounds one query including asynchronous handlers. Discord
// drops interaction responses sent later than three seconds.
const queryTimeout = 2500 * time.Millisecond

// maxChoices is the number of autocomplete choices Discord accepts.
const maxChoices = 25

// suggestions is how many "did you mean" keys a miss lists.
const suggestions = 3

// Service is the query side of [lookup.Service].
type Service interface {
	Ask(ctx context.Context, text string) (lookup.Answer, error)
	Query(ctx context.Context, text string) (keyword.Resolution[entity.Describable], error)
	Suggest(ctx context.Context, text string, n int) ([]string, error)
	Complete(prefix string, n int) []string
}

var _ Service = (*lookup.Service)(nil)

// stringOption returns the value of the named string option, looking inside
// a leading subcommand if there is one.
func stringOption(i *discordgo.InteractionCreate, name string) string {
	opts := i.ApplicationCommandData().Options
	if len(opts) > 0 && opts[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		opts = opts[0].Options
	}
	for _, o := range opts {
		if o.Name == name && o.Type == discordgo.ApplicationCommandOptionString {
			return strings.TrimSpace(o.StringValue())
		}
	}
	return ""
}

// miss renders the reply for a query without a result.
func miss(ctx context.Context, svc Service, query string) string {
	msg := fmt.Sprintf("No result for `%s`.", sanitize(query))
	keys, err := svc.Suggest(ctx, query, suggestions)
	if err != nil || len(keys) == 0 {
		return msg
	}
	quoted := make([]string, len(keys))
	for i, k := range keys {
		quoted[i] = "`" + k + "`"
	}
	return msg + " Did you mean " + strings.Join(quoted, ", ") + "?"
}

// failure renders a user-facing message for a query error.
func failure(query string, err error) string {
	switch {
	case errors.Is(err, lookup.ErrNoIndex):
		return "The game data is still loading, try again in a moment."
	case errors.Is(err, lookup.ErrQueryTooLong):
		return fmt.Sprintf("`%s` is too long to be a name.", sanitize(query))
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("`%s` took too long to answer.", sanitize(query))
	}
	return fmt.Sprintf("Something went wrong looking up `%s`.", sanitize(query))
}

// sanitize keeps a user query from breaking out of inline code.
func sanitize(s string) string {
	s = strings.ReplaceAll(s, "`", "'")
	if r := []rune(s); len(r) > 100 {
		s = string(r[:99]) + "…"
	}
	return s
}

func record(ctx context.Context, m *observe.Metrics, command, status string) {
	if m != nil {
		m.RecordInteraction(ctx, command, status)
	}
}
