package lookup_test

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/MrWong99/halidom/internal/entity"
	"github.com/MrWong99/halidom/internal/lookup"
	"github.com/MrWong99/halidom/internal/observe"
)

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
			{Name: "Flamerend Sword II", Rarity: 5, Element: entity.Flame, WeaponType: entity.Sword, Tier: 2},
		},
	}
}

func testAliases(t *testing.T) entity.Aliases {
	t.Helper()
	a, err := entity.ParseAliases(map[string]map[string]string{
		"adventurer": {"prince": "Euden"},
		"dragon":     {"fire dragon": "Agni"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return a
}

// newService returns a Service with its own meter provider and the test
// snapshot published.
func newService(t *testing.T) (*lookup.Service, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatal(err)
	}

	svc := lookup.NewService(lookup.WithMetrics(m))
	if _, err := svc.Rebuild(context.Background(), testSnapshot(), testAliases(t)); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	return svc, reader
}
