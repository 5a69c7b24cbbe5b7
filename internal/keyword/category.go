// Package keyword extracts typed values from free text and dispatches them to
// handlers by their structural signature.
//
// A [Segmenter] scans text for registered literals with an Aho-Corasick
// automaton (leftmost-longest, non-overlapping) and returns the typed values
// bound to each accepted literal. A [Dispatcher] maps the multiset of value
// categories to exactly one handler, reorders the values into that handler's
// declared parameter order and awaits its [Future].
//
// Both structures are built once per data snapshot and then only read.
package keyword

import (
	"cmp"
	"slices"
	"strings"
)

// Category is the closed set of value kinds a query can carry.
type Category uint8

const (
	CategoryInvalid Category = iota
	CategoryRarity
	CategoryElement
	CategoryWeaponType
	CategoryTier
	CategorySkillSlot
	CategoryAbilitySlot
	CategoryCoability
	CategoryChainCoability
	CategoryAdventurer
	CategoryDragon
	CategoryWyrmprint
	CategoryWeapon
)

var categoryNames = [...]string{
	CategoryInvalid:        "invalid",
	CategoryRarity:         "rarity",
	CategoryElement:        "element",
	CategoryWeaponType:     "weapon_type",
	CategoryTier:           "tier",
	CategorySkillSlot:      "skill_slot",
	CategoryAbilitySlot:    "ability_slot",
	CategoryCoability:      "coability",
	CategoryChainCoability: "chain_coability",
	CategoryAdventurer:     "adventurer",
	CategoryDragon:         "dragon",
	CategoryWyrmprint:      "wyrmprint",
	CategoryWeapon:         "weapon",
}

// String returns the category's stable name. Signatures sort by it.
func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return "invalid"
}

// IsValid reports whether c is a member of the closed set.
func (c Category) IsValid() bool {
	return c > CategoryInvalid && int(c) < len(categoryNames)
}

// Value is anything a query can carry. Every value declares its category
// explicitly; nothing is inferred from its Go type.
type Value interface {
	Category() Category
}

// Signature is the canonical, order-independent form of a category multiset,
// e.g. "adventurer+skill_slot".
type Signature string

// SignatureOf returns the canonical signature of cats.
func SignatureOf(cats ...Category) Signature {
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = c.String()
	}
	slices.Sort(names)
	return Signature(strings.Join(names, "+"))
}

// SortValues orders values by category name, keeping the relative order of
// values in the same category.
func SortValues(values []Value) {
	slices.SortStableFunc(values, func(a, b Value) int {
		return cmp.Compare(a.Category().String(), b.Category().String())
	})
}
