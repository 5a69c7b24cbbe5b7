package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/halidom/internal/entity"
)

// MaxEmbeds is the number of embeds Discord accepts in one message.
const MaxEmbeds = 10

// Discord limits, in characters.
const (
	maxTitle      = 256
	maxBody       = 4096
	maxFieldName  = 256
	maxFieldValue = 1024
	maxFields     = 25
	maxFooter     = 2048
)

const neutralColor = 0x99aab5

var elementColors = map[entity.Element]int{
	entity.Flame:  0xe74c3c,
	entity.Water:  0x3498db,
	entity.Wind:   0x2ecc71,
	entity.Light:  0xf1c40f,
	entity.Shadow: 0x9b59b6,
}

// EmbedFor renders d as a Discord embed, truncating every part to the
// platform limits.
func EmbedFor(d entity.Description) *discordgo.MessageEmbed {
	title := d.Title
	if d.Subtitle != "" {
		title += " · " + d.Subtitle
	}
	e := &discordgo.MessageEmbed{
		Title:       clip(title, maxTitle),
		Description: clip(d.Body, maxBody),
		Color:       neutralColor,
	}
	if c, ok := elementColors[d.Element]; ok {
		e.Color = c
	}
	for i, f := range d.Fields {
		if i == maxFields {
			break
		}
		value := f.Value
		if value == "" {
			value = "-"
		}
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{
			Name:   clip(f.Name, maxFieldName),
			Value:  clip(value, maxFieldValue),
			Inline: f.Inline,
		})
	}
	if d.Footer != "" {
		e.Footer = &discordgo.MessageEmbedFooter{Text: clip(d.Footer, maxFooter)}
	}
	return e
}

// clip shortens s to at most n runes, marking the cut with an ellipsis.
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
