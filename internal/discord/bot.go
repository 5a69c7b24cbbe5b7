// Package discord is the Discord surface of halidom: the gateway session,
// slash command routing, bracket queries in guild messages and admin
// checks.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// Config holds Discord bot configuration.
type Config struct {
	// Token is the bot token without the "Bot " prefix.
	Token string
	// GuildID scopes command registration. Empty registers globally.
	GuildID string
	// AdminRoleID may run privileged commands. Empty falls back to the
	// Administrator permission.
	AdminRoleID string
	// MessageContent requests the privileged message content intent, needed
	// to read [[query]] brackets.
	MessageContent bool
}

// MessageHandlerFunc handles a guild message written by a human.
type MessageHandlerFunc func(s MessageSender, m *discordgo.MessageCreate)

// Bot owns the gateway session. Handlers are registered on [Bot.Router] and
// [Bot.OnMessage] before [Bot.Run] connects.
type Bot struct {
	session *discordgo.Session
	router  *Router
	perms   *PermissionChecker
	guildID string

	mu         sync.Mutex
	onMessage  MessageHandlerFunc
	registered []*discordgo.ApplicationCommand
	closed     bool
}

// New prepares a bot. It does not connect.
func New(cfg Config) (*Bot, error) {
	if cfg.Token == "" {
		return nil, errors.New("discord: empty token")
	}
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("discord: new session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages
	if cfg.MessageContent {
		session.Identify.Intents |= discordgo.IntentMessageContent
	}

	b := &Bot{
		session: session,
		router:  NewRouter(),
		perms:   NewPermissionChecker(cfg.AdminRoleID),
		guildID: cfg.GuildID,
	}
	session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) { b.router.Handle(s, i) })
	session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) { b.dispatchMessage(s, m) })
	session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		slog.Info("discord gateway ready", "user", r.User.Username, "guilds", len(r.Guilds))
	})
	return b, nil
}

// Router returns the slash command router.
func (b *Bot) Router() *Router { return b.router }

// Permissions returns the admin check.
func (b *Bot) Permissions() *PermissionChecker { return b.perms }

// OnMessage sets the guild message handler. Messages from bots, this one
// included, are dropped.
func (b *Bot) OnMessage(fn MessageHandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onMessage = fn
}

func (b *Bot) dispatchMessage(s MessageSender, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	b.mu.Lock()
	fn := b.onMessage
	b.mu.Unlock()
	if fn != nil {
		fn(s, m)
	}
}

// Run connects, publishes the router's commands and blocks until ctx ends.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("discord: open gateway: %w", err)
	}
	if defs := b.router.Definitions(); len(defs) > 0 {
		cmds, err := b.session.ApplicationCommandBulkOverwrite(b.session.State.User.ID, b.guildID, defs)
		if err != nil {
			return fmt.Errorf("discord: publish commands: %w", err)
		}
		b.mu.Lock()
		b.registered = cmds
		b.mu.Unlock()
		slog.Info("discord commands published", "count", len(cmds), "guild_id", b.guildID)
	}
	<-ctx.Done()
	return ctx.Err()
}

// Close removes guild-scoped commands and disconnects. Global commands stay
// published since Discord takes up to an hour to propagate them.
func (b *Bot) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	var errs []error
	if b.guildID != "" && b.session.State.User != nil {
		for _, c := range b.registered {
			if err := b.session.ApplicationCommandDelete(b.session.State.User.ID, b.guildID, c.ID); err != nil {
				errs = append(errs, fmt.Errorf("discord: delete command %s: %w", c.Name, err))
			}
		}
	}
	if err := b.session.Close(); err != nil {
		errs = append(errs, fmt.Errorf("discord: close gateway: %w", err))
	}
	slog.Info("discord bot closed")
	return errors.Join(errs...)
}
