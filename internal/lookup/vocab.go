package lookup

import (
	"fmt"

	"github.com/MrWong99/halidom/internal/entity"
	"github.com/MrWong99/halidom/internal/keyword"
)

// vocabEntry is a fixed literal of the structured query language.
type vocabEntry struct {
	literal string
	values  []keyword.Value
}

func vocab(literal string, values ...keyword.Value) vocabEntry {
	return vocabEntry{literal: literal, values: values}
}

var elementSynonyms = map[entity.Element][]string{
	entity.Flame:  {"fire"},
	entity.Shadow: {"dark"},
}

var weaponTypeSynonyms = map[entity.WeaponType][]string{
	entity.Sword:      {"swords"},
	entity.Blade:      {"blades"},
	entity.Dagger:     {"daggers"},
	entity.Axe:        {"axes"},
	entity.Lance:      {"lances", "spear"},
	entity.Bow:        {"bows"},
	entity.Wand:       {"wands"},
	entity.Staff:      {"staves", "staffs"},
	entity.Manacaster: {"manacasters", "gun"},
}

// vocabulary returns the literals every index understands regardless of the
// loaded data.
func vocabulary() []vocabEntry {
	var out []vocabEntry

	for r := entity.MinRarity; r <= entity.MaxRarity; r++ {
		out = append(out,
			vocab(fmt.Sprintf("%d*", r), r),
			vocab(fmt.Sprintf("%d★", r), r),
			vocab(fmt.Sprintf("%d star", r), r),
			vocab(fmt.Sprintf("%d-star", r), r),
		)
		// Compact rarity+tier form, e.g. "5t3".
		for t := entity.Tier(1); t <= entity.MaxTier; t++ {
			out = append(out, vocab(fmt.Sprintf("%dt%d", r, t), r, t))
		}
	}

	for _, e := range entity.Elements {
		out = append(out, vocab(string(e), e))
		for _, syn := range elementSynonyms[e] {
			out = append(out, vocab(syn, e))
		}
	}

	for _, w := range entity.WeaponTypes {
		out = append(out, vocab(string(w), w))
		for _, syn := range weaponTypeSynonyms[w] {
			out = append(out, vocab(syn, w))
		}
	}

	for t := entity.Tier(1); t <= entity.MaxTier; t++ {
		out = append(out,
			vocab(fmt.Sprintf("t%d", t), t),
			vocab(fmt.Sprintf("tier %d", t), t),
		)
	}

	for s := entity.SkillSlot(1); s <= entity.MaxSkillSlot; s++ {
		out = append(out,
			vocab(fmt.Sprintf("s%d", s), s),
			vocab(fmt.Sprintf("skill %d", s), s),
		)
	}
	for a := entity.AbilitySlot(1); a <= entity.MaxAbilitySlot; a++ {
		out = append(out,
			vocab(fmt.Sprintf("a%d", a), a),
			vocab(fmt.Sprintf("ability %d", a), a),
		)
	}

	out = append(out,
		vocab("coability", entity.CoabilityFlag{}),
		vocab("co-ability", entity.CoabilityFlag{}),
		vocab("coab", entity.CoabilityFlag{}),
		vocab("chain coability", entity.ChainCoabilityFlag{}),
		vocab("chain co-ability", entity.ChainCoabilityFlag{}),
		vocab("cca", entity.ChainCoabilityFlag{}),
	)
	return out
}
