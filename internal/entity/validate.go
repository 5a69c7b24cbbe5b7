package entity

import (
	"errors"
	"fmt"

	"github.com/MrWong99/halidom/internal/textnorm"
)

// Validate checks a [Snapshot] for required fields and valid values.
//
// Rules:
//   - Every entity has a non-empty name, unique (after folding) per kind.
//   - Rarities, elements, weapon types and tiers are in range.
//   - Adventurers have at most two skills and at most three abilities.
//
// All violations are reported together.
func Validate(s *Snapshot) error {
	if s == nil {
		return ErrNoSnapshot
	}
	var errs []error
	add := func(kind Kind, i int, format string, args ...any) {
		errs = append(errs, fmt.Errorf("%s[%d]: %s", kind, i, fmt.Sprintf(format, args...)))
	}

	seen := map[Kind]map[string]bool{}
	checkName := func(kind Kind, i int, name string) {
		key := textnorm.Fold(name)
		if key == "" {
			add(kind, i, "name must not be empty")
			return
		}
		if seen[kind] == nil {
			seen[kind] = map[string]bool{}
		}
		if seen[kind][key] {
			add(kind, i, "duplicate name %q", name)
		}
		seen[kind][key] = true
	}

	for i, a := range s.Adventurers {
		if a == nil {
			add(KindAdventurer, i, "must not be null")
			continue
		}
		checkName(KindAdventurer, i, a.Name)
		if !a.Rarity.IsValid() {
			add(KindAdventurer, i, "rarity %d out of range", a.Rarity)
		}
		if !a.Element.IsValid() {
			add(KindAdventurer, i, "unknown element %q", string(a.Element))
		}
		if !a.WeaponType.IsValid() {
			add(KindAdventurer, i, "unknown weapon type %q", string(a.WeaponType))
		}
		if len(a.Skills) > int(MaxSkillSlot) {
			add(KindAdventurer, i, "has %d skills, at most %d allowed", len(a.Skills), MaxSkillSlot)
		}
		if len(a.Abilities) > int(MaxAbilitySlot) {
			add(KindAdventurer, i, "has %d abilities, at most %d allowed", len(a.Abilities), MaxAbilitySlot)
		}
	}
	for i, d := range s.Dragons {
		if d == nil {
			add(KindDragon, i, "must not be null")
			continue
		}
		checkName(KindDragon, i, d.Name)
		if !d.Rarity.IsValid() {
			add(KindDragon, i, "rarity %d out of range", d.Rarity)
		}
		if !d.Element.IsValid() {
			add(KindDragon, i, "unknown element %q", string(d.Element))
		}
		if len(d.Abilities) > int(MaxAbilitySlot) {
			add(KindDragon, i, "has %d abilities, at most %d allowed", len(d.Abilities), MaxAbilitySlot)
		}
	}
	for i, w := range s.Wyrmprints {
		if w == nil {
			add(KindWyrmprint, i, "must not be null")
			continue
		}
		checkName(KindWyrmprint, i, w.Name)
		if !w.Rarity.IsValid() {
			add(KindWyrmprint, i, "rarity %d out of range", w.Rarity)
		}
		if len(w.Abilities) > int(MaxAbilitySlot) {
			add(KindWyrmprint, i, "has %d abilities, at most %d allowed", len(w.Abilities), MaxAbilitySlot)
		}
	}
	for i, w := range s.Weapons {
		if w == nil {
			add(KindWeapon, i, "must not be null")
			continue
		}
		checkName(KindWeapon, i, w.Name)
		if !w.Rarity.IsValid() {
			add(KindWeapon, i, "rarity %d out of range", w.Rarity)
		}
		if w.Element != "" && !w.Element.IsValid() {
			add(KindWeapon, i, "unknown element %q", string(w.Element))
		}
		if !w.WeaponType.IsValid() {
			add(KindWeapon, i, "unknown weapon type %q", string(w.WeaponType))
		}
		if w.Tier != 0 && !w.Tier.IsValid() {
			add(KindWeapon, i, "tier %d out of range", w.Tier)
		}
		if len(w.Abilities) > int(MaxAbilitySlot) {
			add(KindWeapon, i, "has %d abilities, at most %d allowed", len(w.Abilities), MaxAbilitySlot)
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}
