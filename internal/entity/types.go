// Package entity holds the game data the lookup index is built from:
// adventurers, dragons, wyrmprints and weapons together with their skills and
// abilities.
//
// A [Snapshot] is loaded once from a [Source] and never mutated afterwards.
// Supported sources:
//   - YAML files ([FileSource])
//   - PostgreSQL ([PostgresSource])
//   - a local bbolt cache of the last good snapshot ([BoltCache])
//   - in-memory snapshots for tests ([MemSource])
package entity

import (
	"strconv"

	"github.com/MrWong99/halidom/internal/keyword"
	"github.com/MrWong99/halidom/internal/textnorm"
)

// Kind classifies an entity.
type Kind string

const (
	KindAdventurer Kind = "adventurer"
	KindDragon     Kind = "dragon"
	KindWyrmprint  Kind = "wyrmprint"
	KindWeapon     Kind = "weapon"
	KindSkill      Kind = "skill"
	KindAbility    Kind = "ability"
)

// IsValid reports whether k is one of the known kinds.
func (k Kind) IsValid() bool {
	switch k {
	case KindAdventurer, KindDragon, KindWyrmprint, KindWeapon, KindSkill, KindAbility:
		return true
	}
	return false
}

// AliasKinds are the kinds that accept configured aliases.
var AliasKinds = []Kind{KindAdventurer, KindDragon, KindWyrmprint, KindWeapon}

// Rarity is a star rating between [MinRarity] and [MaxRarity].
type Rarity int

const (
	MinRarity Rarity = 3
	MaxRarity Rarity = 5
)

func (Rarity) Category() keyword.Category { return keyword.CategoryRarity }

func (r Rarity) IsValid() bool { return r >= MinRarity && r <= MaxRarity }

func (r Rarity) String() string { return strconv.Itoa(int(r)) + "★" }

// Element is an elemental affinity.
type Element string

const (
	Flame  Element = "flame"
	Water  Element = "water"
	Wind   Element = "wind"
	Light  Element = "light"
	Shadow Element = "shadow"
)

// Elements lists every element in display order.
var Elements = []Element{Flame, Water, Wind, Light, Shadow}

func (Element) Category() keyword.Category { return keyword.CategoryElement }

func (e Element) IsValid() bool {
	for _, x := range Elements {
		if e == x {
			return true
		}
	}
	return false
}

func (e Element) String() string { return titleCase(string(e)) }

// WeaponType is the class of weapon an adventurer wields.
type WeaponType string

const (
	Sword      WeaponType = "sword"
	Blade      WeaponType = "blade"
	Dagger     WeaponType = "dagger"
	Axe        WeaponType = "axe"
	Lance      WeaponType = "lance"
	Bow        WeaponType = "bow"
	Wand       WeaponType = "wand"
	Staff      WeaponType = "staff"
	Manacaster WeaponType = "manacaster"
)

// WeaponTypes lists every weapon type in display order.
var WeaponTypes = []WeaponType{Sword, Blade, Dagger, Axe, Lance, Bow, Wand, Staff, Manacaster}

func (WeaponType) Category() keyword.Category { return keyword.CategoryWeaponType }

func (w WeaponType) IsValid() bool {
	for _, x := range WeaponTypes {
		if w == x {
			return true
		}
	}
	return false
}

func (w WeaponType) String() string { return titleCase(string(w)) }

// Tier is a weapon crafting tier.
type Tier int

const MaxTier Tier = 3

func (Tier) Category() keyword.Category { return keyword.CategoryTier }

func (t Tier) IsValid() bool { return t >= 1 && t <= MaxTier }

func (t Tier) String() string { return "T" + strconv.Itoa(int(t)) }

// SkillSlot selects the first or second skill of an entity.
type SkillSlot int

const MaxSkillSlot SkillSlot = 2

func (SkillSlot) Category() keyword.Category { return keyword.CategorySkillSlot }

func (s SkillSlot) String() string { return "S" + strconv.Itoa(int(s)) }

// AbilitySlot selects one of up to three abilities.
type AbilitySlot int

const MaxAbilitySlot AbilitySlot = 3

func (AbilitySlot) Category() keyword.Category { return keyword.CategoryAbilitySlot }

func (a AbilitySlot) String() string { return "A" + strconv.Itoa(int(a)) }

// CoabilityFlag asks for an adventurer's co-ability.
type CoabilityFlag struct{}

func (CoabilityFlag) Category() keyword.Category { return keyword.CategoryCoability }

// ChainCoabilityFlag asks for an adventurer's chain co-ability.
type ChainCoabilityFlag struct{}

func (ChainCoabilityFlag) Category() keyword.Category { return keyword.CategoryChainCoability }

// Skill is an active skill.
type Skill struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	SP          int    `yaml:"sp,omitempty" json:"sp,omitempty"`
}

// Ability is a passive ability.
type Ability struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
}

// Adventurer is a playable character.
type Adventurer struct {
	Name           string     `yaml:"name" json:"name"`
	Title          string     `yaml:"title,omitempty" json:"title,omitempty"`
	Rarity         Rarity     `yaml:"rarity" json:"rarity"`
	Element        Element    `yaml:"element" json:"element"`
	WeaponType     WeaponType `yaml:"weapon_type" json:"weapon_type"`
	Skills         []Skill    `yaml:"skills,omitempty" json:"skills,omitempty"`
	Abilities      []Ability  `yaml:"abilities,omitempty" json:"abilities,omitempty"`
	Coability      *Ability   `yaml:"coability,omitempty" json:"coability,omitempty"`
	ChainCoability *Ability   `yaml:"chain_coability,omitempty" json:"chain_coability,omitempty"`
}

func (*Adventurer) Category() keyword.Category { return keyword.CategoryAdventurer }

// Key returns the folded name used as index key.
func (a *Adventurer) Key() string { return textnorm.Fold(a.Name) }

// Dragon is a shapeshifting companion.
type Dragon struct {
	Name      string    `yaml:"name" json:"name"`
	Rarity    Rarity    `yaml:"rarity" json:"rarity"`
	Element   Element   `yaml:"element" json:"element"`
	Skill     *Skill    `yaml:"skill,omitempty" json:"skill,omitempty"`
	Abilities []Ability `yaml:"abilities,omitempty" json:"abilities,omitempty"`
}

func (*Dragon) Category() keyword.Category { return keyword.CategoryDragon }

func (d *Dragon) Key() string { return textnorm.Fold(d.Name) }

// Wyrmprint is an equippable print.
type Wyrmprint struct {
	Name      string    `yaml:"name" json:"name"`
	Rarity    Rarity    `yaml:"rarity" json:"rarity"`
	Abilities []Ability `yaml:"abilities,omitempty" json:"abilities,omitempty"`
}

func (*Wyrmprint) Category() keyword.Category { return keyword.CategoryWyrmprint }

func (w *Wyrmprint) Key() string { return textnorm.Fold(w.Name) }

// Weapon is a craftable weapon.
type Weapon struct {
	Name       string     `yaml:"name" json:"name"`
	Rarity     Rarity     `yaml:"rarity" json:"rarity"`
	Element    Element    `yaml:"element,omitempty" json:"element,omitempty"`
	WeaponType WeaponType `yaml:"weapon_type" json:"weapon_type"`
	Tier       Tier       `yaml:"tier,omitempty" json:"tier,omitempty"`
	Skill      *Skill     `yaml:"skill,omitempty" json:"skill,omitempty"`
	Abilities  []Ability  `yaml:"abilities,omitempty" json:"abilities,omitempty"`
}

func (*Weapon) Category() keyword.Category { return keyword.CategoryWeapon }

func (w *Weapon) Key() string { return textnorm.Fold(w.Name) }

// Named is implemented by every top-level entity.
type Named interface {
	keyword.Value
	Describable
	Key() string
}

// KindOf maps an entity category to its [Kind]. ok is false for categories
// that are not entities.
func KindOf(c keyword.Category) (k Kind, ok bool) {
	switch c {
	case keyword.CategoryAdventurer:
		return KindAdventurer, true
	case keyword.CategoryDragon:
		return KindDragon, true
	case keyword.CategoryWyrmprint:
		return KindWyrmprint, true
	case keyword.CategoryWeapon:
		return KindWeapon, true
	}
	return "", false
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}
