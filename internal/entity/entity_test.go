package entity_test

import (
	"github.com/MrWong99/halidom/internal/entity"
)

// testSnapshot returns a small, valid, unsealed snapshot.
func testSnapshot() *entity.Snapshot {
	return &entity.Snapshot{
		Adventurers: []*entity.Adventurer{
			{
				Name: "Euden", Title: "The Prince", Rarity: 5,
				Element: entity.Flame, WeaponType: entity.Sword,
				Skills:         []entity.Skill{{Name: "Dragon Claw", SP: 2500}, {Name: "Aspirant's Strike", SP: 4000}},
				Abilities:      []entity.Ability{{Name: "Skill Haste +10%"}},
				Coability:      &entity.Ability{Name: "Skill Damage +15%"},
				ChainCoability: &entity.Ability{Name: "Dragon Haste +8%"},
			},
			{
				Name: "Elisanne", Rarity: 4,
				Element: entity.Water, WeaponType: entity.Lance,
				Skills: []entity.Skill{{Name: "Sacred Wave"}},
			},
			{
				Name: "Marth", Rarity: 5,
				Element: entity.Flame, WeaponType: entity.Sword,
			},
		},
		Dragons: []*entity.Dragon{
			{Name: "Agni", Rarity: 5, Element: entity.Flame, Skill: &entity.Skill{Name: "Blazing Inferno"}},
		},
		Wyrmprints: []*entity.Wyrmprint{
			{Name: "Resounding Rendition", Rarity: 5, Abilities: []entity.Ability{{Name: "Skill Damage +30%"}}},
		},
		Weapons: []*entity.Weapon{
			{Name: "Ruinous Blade", Rarity: 5, Element: entity.Flame, WeaponType: entity.Sword, Tier: 3},
			{Name: "Flamerend Sword", Rarity: 5, Element: entity.Flame, WeaponType: entity.Sword, Tier: 1},
		},
	}
}
