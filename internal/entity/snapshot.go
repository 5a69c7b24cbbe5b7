package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/MrWong99/halidom/internal/textnorm"
)

// Snapshot is one consistent version of the game data. It must not be
// modified after [Snapshot.Seal].
type Snapshot struct {
	// Version is a content hash set by Seal. It is not serialised.
	Version string `yaml:"-" json:"-"`

	Adventurers []*Adventurer `yaml:"adventurers,omitempty" json:"adventurers,omitempty"`
	Dragons     []*Dragon     `yaml:"dragons,omitempty" json:"dragons,omitempty"`
	Wyrmprints  []*Wyrmprint  `yaml:"wyrmprints,omitempty" json:"wyrmprints,omitempty"`
	Weapons     []*Weapon     `yaml:"weapons,omitempty" json:"weapons,omitempty"`
}

// Seal validates s and stamps its Version.
func (s *Snapshot) Seal() error {
	if err := Validate(s); err != nil {
		return err
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("entity: marshal snapshot: %w", err)
	}
	sum := sha256.Sum256(raw)
	s.Version = hex.EncodeToString(sum[:])
	return nil
}

// Len returns the number of top-level entities.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Adventurers) + len(s.Dragons) + len(s.Wyrmprints) + len(s.Weapons)
}

// All returns every top-level entity, adventurers first.
func (s *Snapshot) All() []Named {
	out := make([]Named, 0, s.Len())
	for _, a := range s.Adventurers {
		out = append(out, a)
	}
	for _, d := range s.Dragons {
		out = append(out, d)
	}
	for _, w := range s.Wyrmprints {
		out = append(out, w)
	}
	for _, w := range s.Weapons {
		out = append(out, w)
	}
	return out
}

// Merge returns a new unsealed snapshot holding the entities of every
// argument in order.
func Merge(snaps ...*Snapshot) *Snapshot {
	out := &Snapshot{}
	for _, s := range snaps {
		if s == nil {
			continue
		}
		out.Adventurers = append(out.Adventurers, s.Adventurers...)
		out.Dragons = append(out.Dragons, s.Dragons...)
		out.Wyrmprints = append(out.Wyrmprints, s.Wyrmprints...)
		out.Weapons = append(out.Weapons, s.Weapons...)
	}
	return out
}

// Filter narrows [Snapshot.Adventurers]-style listings. Zero fields match
// everything.
type Filter struct {
	Rarity     Rarity
	Element    Element
	WeaponType WeaponType
	Tier       Tier
}

func (f Filter) String() string {
	var parts []string
	if f.Rarity != 0 {
		parts = append(parts, f.Rarity.String())
	}
	if f.Element != "" {
		parts = append(parts, f.Element.String())
	}
	if f.WeaponType != "" {
		parts = append(parts, f.WeaponType.String())
	}
	if f.Tier != 0 {
		parts = append(parts, f.Tier.String())
	}
	return strings.Join(parts, " ")
}

// FindAdventurers returns the adventurers matching f, sorted by name.
func (s *Snapshot) FindAdventurers(f Filter) []*Adventurer {
	var out []*Adventurer
	for _, a := range s.Adventurers {
		if f.Rarity != 0 && a.Rarity != f.Rarity {
			continue
		}
		if f.Element != "" && a.Element != f.Element {
			continue
		}
		if f.WeaponType != "" && a.WeaponType != f.WeaponType {
			continue
		}
		out = append(out, a)
	}
	slices.SortFunc(out, func(x, y *Adventurer) int { return strings.Compare(x.Name, y.Name) })
	return out
}

// FindWeapons returns the weapons matching f, sorted by tier then name.
func (s *Snapshot) FindWeapons(f Filter) []*Weapon {
	var out []*Weapon
	for _, w := range s.Weapons {
		if f.Rarity != 0 && w.Rarity != f.Rarity {
			continue
		}
		if f.Element != "" && w.Element != f.Element {
			continue
		}
		if f.WeaponType != "" && w.WeaponType != f.WeaponType {
			continue
		}
		if f.Tier != 0 && w.Tier != f.Tier {
			continue
		}
		out = append(out, w)
	}
	slices.SortFunc(out, func(x, y *Weapon) int {
		if x.Tier != y.Tier {
			return int(x.Tier) - int(y.Tier)
		}
		return strings.Compare(x.Name, y.Name)
	})
	return out
}

// Aliases maps, per kind, an alternative literal to the canonical entity
// name it stands for.
type Aliases map[Kind]map[string]string

// ParseAliases converts the configuration form (kind name → literal →
// canonical) and rejects unknown kinds.
func ParseAliases(raw map[string]map[string]string) (Aliases, error) {
	out := make(Aliases, len(raw))
	for k, m := range raw {
		kind := Kind(k)
		if !slices.Contains(AliasKinds, kind) {
			return nil, fmt.Errorf("entity: aliases: unsupported kind %q", k)
		}
		inner := make(map[string]string, len(m))
		for lit, canon := range m {
			inner[lit] = canon
		}
		out[kind] = inner
	}
	return out, nil
}

// For returns the aliases registered for the entity named name, sorted.
func (a Aliases) For(kind Kind, name string) []string {
	want := textnorm.Fold(name)
	var out []string
	for lit, canon := range a[kind] {
		if textnorm.Fold(canon) == want {
			out = append(out, lit)
		}
	}
	slices.Sort(out)
	return out
}

// Fingerprint is a stable digest of a, used to tell alias sets apart.
func (a Aliases) Fingerprint() string {
	var lines []string
	for kind, m := range a {
		for lit, canon := range m {
			lines = append(lines, string(kind)+"\x00"+lit+"\x00"+canon)
		}
	}
	slices.Sort(lines)
	sum := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:8])
}
