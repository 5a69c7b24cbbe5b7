package discord

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/MrWong99/halidom/internal/entity"
)

func TestEmbedFor(t *testing.T) {
	t.Parallel()

	adv := &entity.Adventurer{
		Name: "Euden", Title: "The Prince", Rarity: 5,
		Element: entity.Flame, WeaponType: entity.Sword,
	}
	e := EmbedFor(adv.Describe())

	if e.Title != "Euden · The Prince" {
		t.Errorf("Title = %q", e.Title)
	}
	if e.Color != elementColors[entity.Flame] {
		t.Errorf("Color = %#x, want flame", e.Color)
	}
	if len(e.Fields) < 3 || e.Fields[0].Name != "Rarity" || !e.Fields[0].Inline {
		t.Errorf("Fields = %+v", e.Fields)
	}
	if e.Footer == nil || e.Footer.Text != "adventurer" {
		t.Errorf("Footer = %+v", e.Footer)
	}
}

func TestEmbedFor_NeutralAndLimits(t *testing.T) {
	t.Parallel()

	d := entity.Description{
		Title: strings.Repeat("x", 300),
		Body:  strings.Repeat("é", maxBody+10),
	}
	for range maxFields + 5 {
		d.Fields = append(d.Fields, entity.Field{Name: "n"})
	}
	e := EmbedFor(d)

	if e.Color != neutralColor {
		t.Errorf("Color = %#x, want neutral", e.Color)
	}
	if n := utf8.RuneCountInString(e.Title); n != maxTitle {
		t.Errorf("title has %d runes, want %d", n, maxTitle)
	}
	if n := utf8.RuneCountInString(e.Description); n != maxBody {
		t.Errorf("body has %d runes, want %d", n, maxBody)
	}
	if !strings.HasSuffix(e.Description, "…") {
		t.Error("clipped body lacks ellipsis")
	}
	if len(e.Fields) != maxFields {
		t.Errorf("%d fields, want %d", len(e.Fields), maxFields)
	}
	if e.Fields[0].Value != "-" {
		t.Errorf("empty field value = %q, want placeholder", e.Fields[0].Value)
	}
	if e.Footer != nil {
		t.Errorf("Footer = %+v, want nil", e.Footer)
	}
}

func TestExtractQueries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		limit   int
		want    []string
	}{
		{name: "single", content: "who is [[euden]]?", limit: 3, want: []string{"euden"}},
		{name: "several in order", content: "[[agni]] vs [[ euden s1 ]]", limit: 3, want: []string{"agni", "euden s1"}},
		{name: "limit", content: "[[a]] [[b]] [[c]] [[d]]", limit: 2, want: []string{"a", "b"}},
		{name: "duplicates", content: "[[Euden]] and [[euden]]", limit: 3, want: []string{"Euden"}},
		{name: "empty brackets", content: "[[ ]] [[x]]", limit: 3, want: []string{"x"}},
		{name: "unclosed", content: "[[euden", limit: 3, want: nil},
		{name: "inline code", content: "`[[euden]]` [[agni]]", limit: 3, want: []string{"agni"}},
		{name: "code block", content: "```\n[[euden]]\n``` [[agni]]", limit: 3, want: []string{"agni"}},
		{name: "zero limit", content: "[[euden]]", limit: 0, want: nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := ExtractQueries(tc.content, tc.limit)
			if strings.Join(got, "|") != strings.Join(tc.want, "|") || len(got) != len(tc.want) {
				t.Errorf("ExtractQueries(%q) = %q, want %q", tc.content, got, tc.want)
			}
		})
	}
}
