package discord

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// Responder is the part of *discordgo.Session that answers interactions.
type Responder interface {
	InteractionRespond(i *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	FollowupMessageCreate(i *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// MessageSender is the part of *discordgo.Session that posts channel messages.
type MessageSender interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

var (
	_ Responder     = (*discordgo.Session)(nil)
	_ MessageSender = (*discordgo.Session)(nil)
)

// Delivery failures are logged; an interaction token is single use, so a
// handler has nothing to retry.
func respond(s Responder, i *discordgo.InteractionCreate, typ discordgo.InteractionResponseType, data *discordgo.InteractionResponseData) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{Type: typ, Data: data})
	if err != nil {
		slog.Warn("discord: respond", "type", typ, "interaction_id", i.ID, "err", err)
	}
}

// Ephemeral answers with text only the invoking user sees.
func Ephemeral(s Responder, i *discordgo.InteractionCreate, text string) {
	respond(s, i, discordgo.InteractionResponseChannelMessageWithSource, &discordgo.InteractionResponseData{
		Content: text,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
}

// Embed answers publicly with one embed.
func Embed(s Responder, i *discordgo.InteractionCreate, e *discordgo.MessageEmbed) {
	respond(s, i, discordgo.InteractionResponseChannelMessageWithSource, &discordgo.InteractionResponseData{
		Embeds:          []*discordgo.MessageEmbed{e},
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	})
}

// Choices answers an autocomplete request.
func Choices(s Responder, i *discordgo.InteractionCreate, choices []*discordgo.ApplicationCommandOptionChoice) {
	respond(s, i, discordgo.InteractionApplicationCommandAutocompleteResult, &discordgo.InteractionResponseData{
		Choices: choices,
	})
}

// Defer acknowledges i with an ephemeral "thinking" state. The answer follows
// with [FollowUp].
func Defer(s Responder, i *discordgo.InteractionCreate) {
	respond(s, i, discordgo.InteractionResponseDeferredChannelMessageWithSource, &discordgo.InteractionResponseData{
		Flags: discordgo.MessageFlagsEphemeral,
	})
}

// FollowUp completes a deferred interaction.
func FollowUp(s Responder, i *discordgo.InteractionCreate, text string) {
	params := &discordgo.WebhookParams{Content: text, Flags: discordgo.MessageFlagsEphemeral}
	if _, err := s.FollowupMessageCreate(i.Interaction, true, params); err != nil {
		slog.Warn("discord: follow up", "interaction_id", i.ID, "err", err)
	}
}

// Reply answers message m in its channel without pinging anyone. Embeds
// beyond [MaxEmbeds] are dropped.
func Reply(s MessageSender, m *discordgo.MessageCreate, text string, embeds []*discordgo.MessageEmbed) {
	embeds = embeds[:min(len(embeds), MaxEmbeds)]
	_, err := s.ChannelMessageSendComplex(m.ChannelID, &discordgo.MessageSend{
		Content:         text,
		Embeds:          embeds,
		Reference:       m.Reference(),
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	})
	if err != nil {
		slog.Warn("discord: reply", "channel_id", m.ChannelID, "err", err)
	}
}
