package lookup_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/MrWong99/halidom/internal/entity"
	"github.com/MrWong99/halidom/internal/keyword"
	"github.com/MrWong99/halidom/internal/lookup"
)

func build(t *testing.T) *lookup.Index {
	t.Helper()
	snap := testSnapshot()
	if err := snap.Seal(); err != nil {
		t.Fatal(err)
	}
	x, err := lookup.Build(context.Background(), snap, testAliases(t))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return x
}

func TestBuild_RegistersNamesAndParts(t *testing.T) {
	t.Parallel()

	x := build(t)
	for _, key := range []string{
		"euden", "prince", "euden s1", "euden skill", "euden s2", "euden a1",
		"euden coability", "euden coab", "euden chain coability", "euden cca",
		"prince s1", "agni s1", "fire dragon", "dragon claw", "resounding rendition a1",
	} {
		if _, ok := x.Names.Get(key); !ok {
			t.Errorf("key %q not registered", key)
		}
	}

	v, _ := x.Names.Get("euden s2")
	if d := v.Describe(); d.Title != "Aspirant's Strike" || d.Subtitle != "Euden · S2" {
		t.Errorf("euden s2 = %+v", d)
	}
	alias, _ := x.Names.Get("prince")
	canon, _ := x.Names.Get("euden")
	if alias != canon {
		t.Error("alias does not resolve to the canonical entity")
	}
}

func TestBuild_Keywords(t *testing.T) {
	t.Parallel()

	x := build(t)
	tests := []struct {
		text string
		want []keyword.Value
	}{
		{"5* flame sword", []keyword.Value{entity.Flame, entity.Rarity(5), entity.Sword}},
		{"3t2 lances", []keyword.Value{entity.Rarity(3), entity.Tier(2), entity.Lance}},
		{"Euden S1", []keyword.Value{x.Snapshot.Adventurers[0], entity.SkillSlot(1)}},
		{"prince cca", []keyword.Value{x.Snapshot.Adventurers[0], entity.ChainCoabilityFlag{}}},
		{"chain coability of euden", []keyword.Value{x.Snapshot.Adventurers[0], entity.ChainCoabilityFlag{}}},
	}
	for _, tt := range tests {
		got, err := x.Keywords.Match(tt.text)
		if err != nil {
			t.Fatalf("Match(%q): %v", tt.text, err)
		}
		if !slices.Equal(got, tt.want) {
			t.Errorf("Match(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestBuild_Handlers(t *testing.T) {
	t.Parallel()

	x := build(t)
	for _, sig := range [][]keyword.Category{
		{keyword.CategoryAdventurer},
		{keyword.CategoryAdventurer, keyword.CategorySkillSlot},
		{keyword.CategoryAdventurer, keyword.CategoryChainCoability},
		{keyword.CategoryWeapon, keyword.CategorySkillSlot},
		{keyword.CategoryRarity, keyword.CategoryElement, keyword.CategoryWeaponType},
		{keyword.CategoryElement, keyword.CategoryWeaponType, keyword.CategoryTier},
	} {
		if !x.Dispatch.Has(sig...) {
			t.Errorf("no handler for %v", keyword.SignatureOf(sig...))
		}
	}
	if x.Dispatch.Has(keyword.CategoryRarity) {
		t.Error("unexpected handler for a lone rarity")
	}
}

func TestBuild_DuplicateNamesAcrossKindsAreSkipped(t *testing.T) {
	t.Parallel()

	snap := testSnapshot()
	snap.Dragons = append(snap.Dragons, &entity.Dragon{Name: "Euden", Rarity: 3, Element: entity.Light})
	x, err := lookup.Build(context.Background(), snap, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	v, _ := x.Names.Get("euden")
	if _, ok := v.(*entity.Adventurer); !ok {
		t.Errorf("euden = %T, want the first registered *entity.Adventurer", v)
	}
}

func TestBuild_ConfigurationErrors(t *testing.T) {
	t.Parallel()

	if _, err := lookup.Build(context.Background(), nil, nil); !errors.Is(err, entity.ErrNoSnapshot) {
		t.Errorf("nil snapshot err = %v", err)
	}

	blank := entity.Aliases{entity.KindAdventurer: {" ": "Euden"}}
	if _, err := lookup.Build(context.Background(), testSnapshot(), blank); err == nil {
		t.Error("blank alias should abort the build")
	}
}

func TestIndex_Complete(t *testing.T) {
	t.Parallel()

	x := build(t)
	if got := x.Complete("EU", 5); !slices.Equal(got, []string{"Euden"}) {
		t.Errorf("Complete(EU) = %v", got)
	}
	if got := x.Complete("flamerend", 5); len(got) != 2 {
		t.Errorf("Complete(flamerend) = %v, want 2 names", got)
	}
	if got := x.Complete("", 3); len(got) != 3 {
		t.Errorf("Complete(\"\", 3) returned %d names", len(got))
	}
	if got := x.Complete("zz", 5); len(got) != 0 {
		t.Errorf("Complete(zz) = %v", got)
	}
	if got := x.Complete("eu", 0); got != nil {
		t.Errorf("Complete(n=0) = %v", got)
	}
}

func TestIndex_QueryLimit(t *testing.T) {
	t.Parallel()

	x := build(t)
	// Longest key is "resounding rendition a1" (23 runes).
	if got := x.QueryLimit(); got != 28 {
		t.Errorf("QueryLimit = %d, want 28", got)
	}
}
