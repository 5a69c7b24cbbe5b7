// Package mock records what handlers send to Discord.
package mock

import (
	"sync"

	"github.com/bwmarrin/discordgo"
)

// Session stands in for *discordgo.Session in handler tests. It satisfies
// discord.Responder and discord.MessageSender. Err, when set, fails every
// call after recording it.
type Session struct {
	Err error

	mu        sync.Mutex
	responses []*discordgo.InteractionResponse
	followUps []*discordgo.WebhookParams
	sent      []*discordgo.MessageSend
}

func (s *Session) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, resp)
	return s.Err
}

func (s *Session) FollowupMessageCreate(_ *discordgo.Interaction, _ bool, params *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.followUps = append(s.followUps, params)
	if s.Err != nil {
		return nil, s.Err
	}
	return &discordgo.Message{ID: "followup"}, nil
}

func (s *Session) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, data)
	if s.Err != nil {
		return nil, s.Err
	}
	return &discordgo.Message{ID: "sent", ChannelID: channelID}, nil
}

// Responses returns every interaction response so far.
func (s *Session) Responses() []*discordgo.InteractionResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*discordgo.InteractionResponse(nil), s.responses...)
}

// FollowUps returns every follow-up so far.
func (s *Session) FollowUps() []*discordgo.WebhookParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*discordgo.WebhookParams(nil), s.followUps...)
}

// Sent returns every channel message so far.
func (s *Session) Sent() []*discordgo.MessageSend {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*discordgo.MessageSend(nil), s.sent...)
}

// LastResponse returns the latest interaction response, or nil.
func (s *Session) LastResponse() *discordgo.InteractionResponse { return last(s.Responses()) }

// LastFollowUp returns the latest follow-up, or nil.
func (s *Session) LastFollowUp() *discordgo.WebhookParams { return last(s.FollowUps()) }

// LastSent returns the latest channel message, or nil.
func (s *Session) LastSent() *discordgo.MessageSend { return last(s.Sent()) }

func last[T any](xs []*T) *T {
	if len(xs) == 0 {
		return nil
	}
	return xs[len(xs)-1]
}
