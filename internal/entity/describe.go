package entity

import (
	"fmt"
	"strconv"
	"strings"
)

// Describable is anything the lookup can answer with.
type Describable interface {
	Describe() Description
}

// Field is one labelled value of a [Description].
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Description is a presentation-neutral rendering of an answer. Chat
// frontends turn it into their own message format.
type Description struct {
	Title    string
	Subtitle string
	Body     string
	Fields   []Field
	Footer   string
	// Element tints the rendering when set.
	Element Element
}

func (s Skill) Describe() Description {
	d := Description{Title: s.Name, Body: s.Description, Footer: string(KindSkill)}
	if s.SP > 0 {
		d.Fields = append(d.Fields, Field{Name: "SP", Value: strconv.Itoa(s.SP), Inline: true})
	}
	return d
}

func (a Ability) Describe() Description {
	return Description{Title: a.Name, Body: a.Description, Footer: string(KindAbility)}
}

func (a *Adventurer) Describe() Description {
	d := Description{
		Title:    a.Name,
		Subtitle: a.Title,
		Footer:   string(KindAdventurer),
		Element:  a.Element,
		Fields: []Field{
			{Name: "Rarity", Value: a.Rarity.String(), Inline: true},
			{Name: "Element", Value: a.Element.String(), Inline: true},
			{Name: "Weapon", Value: a.WeaponType.String(), Inline: true},
		},
	}
	if len(a.Skills) > 0 {
		d.Fields = append(d.Fields, Field{Name: "Skills", Value: numbered("S", skillNames(a.Skills))})
	}
	if len(a.Abilities) > 0 {
		d.Fields = append(d.Fields, Field{Name: "Abilities", Value: numbered("A", abilityNames(a.Abilities))})
	}
	if a.Coability != nil {
		d.Fields = append(d.Fields, Field{Name: "Co-ability", Value: a.Coability.Name})
	}
	if a.ChainCoability != nil {
		d.Fields = append(d.Fields, Field{Name: "Chain co-ability", Value: a.ChainCoability.Name})
	}
	return d
}

func (dr *Dragon) Describe() Description {
	d := Description{
		Title:   dr.Name,
		Footer:  string(KindDragon),
		Element: dr.Element,
		Fields: []Field{
			{Name: "Rarity", Value: dr.Rarity.String(), Inline: true},
			{Name: "Element", Value: dr.Element.String(), Inline: true},
		},
	}
	if dr.Skill != nil {
		d.Fields = append(d.Fields, Field{Name: "Skill", Value: dr.Skill.Name})
	}
	if len(dr.Abilities) > 0 {
		d.Fields = append(d.Fields, Field{Name: "Abilities", Value: numbered("A", abilityNames(dr.Abilities))})
	}
	return d
}

func (w *Wyrmprint) Describe() Description {
	d := Description{
		Title:  w.Name,
		Footer: string(KindWyrmprint),
		Fields: []Field{{Name: "Rarity", Value: w.Rarity.String(), Inline: true}},
	}
	if len(w.Abilities) > 0 {
		d.Fields = append(d.Fields, Field{Name: "Abilities", Value: numbered("A", abilityNames(w.Abilities))})
	}
	return d
}

func (w *Weapon) Describe() Description {
	d := Description{
		Title:   w.Name,
		Footer:  string(KindWeapon),
		Element: w.Element,
		Fields: []Field{
			{Name: "Rarity", Value: w.Rarity.String(), Inline: true},
			{Name: "Type", Value: w.WeaponType.String(), Inline: true},
		},
	}
	if w.Element != "" {
		d.Fields = append(d.Fields, Field{Name: "Element", Value: w.Element.String(), Inline: true})
	}
	if w.Tier > 0 {
		d.Fields = append(d.Fields, Field{Name: "Tier", Value: w.Tier.String(), Inline: true})
	}
	if w.Skill != nil {
		d.Fields = append(d.Fields, Field{Name: "Skill", Value: w.Skill.Name})
	}
	if len(w.Abilities) > 0 {
		d.Fields = append(d.Fields, Field{Name: "Abilities", Value: numbered("A", abilityNames(w.Abilities))})
	}
	return d
}

// Part is a skill or ability shown in the context of the entity that owns it.
type Part struct {
	Owner string
	Label string
	Item  Describable
}

func (p Part) Describe() Description {
	d := p.Item.Describe()
	d.Subtitle = p.Owner + " · " + p.Label
	return d
}

// Listing is a titled list of entity names, the answer to filter queries such
// as "5* flame lance".
type Listing struct {
	Title string
	Names []string
}

func (l Listing) Describe() Description {
	d := Description{Title: l.Title, Footer: fmt.Sprintf("%d results", len(l.Names))}
	if len(l.Names) == 0 {
		d.Body = "Nothing matches."
		return d
	}
	d.Body = strings.Join(l.Names, "\n")
	return d
}

func skillNames(s []Skill) []string {
	out := make([]string, len(s))
	for i := range s {
		out[i] = s[i].Name
	}
	return out
}

func abilityNames(a []Ability) []string {
	out := make([]string, len(a))
	for i := range a {
		out[i] = a[i].Name
	}
	return out
}

func numbered(prefix string, names []string) string {
	var b strings.Builder
	for i, n := range names {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s%d: %s", prefix, i+1, n)
	}
	return b.String()
}
