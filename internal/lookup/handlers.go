package lookup

import (
	"context"
	"fmt"
	"strings"

	"github.com/MrWong99/halidom/internal/entity"
	"github.com/MrWong99/halidom/internal/keyword"
)

type handler = keyword.HandlerFunc[entity.Describable]

// registerHandlers wires every structured query form into d. snap is the
// snapshot the listing handlers search.
func registerHandlers(d *keyword.Dispatcher[entity.Describable], snap *entity.Snapshot) error {
	const (
		adv    = keyword.CategoryAdventurer
		drg    = keyword.CategoryDragon
		wp     = keyword.CategoryWyrmprint
		weapon = keyword.CategoryWeapon
		skill  = keyword.CategorySkillSlot
		abil   = keyword.CategoryAbilitySlot
		rarity = keyword.CategoryRarity
		elem   = keyword.CategoryElement
		wtype  = keyword.CategoryWeaponType
		tier   = keyword.CategoryTier
	)

	direct := []struct {
		h   handler
		sig []keyword.Category
	}{
		{itself, []keyword.Category{adv}},
		{adventurerSkill, []keyword.Category{adv, skill}},
		{adventurerAbility, []keyword.Category{adv, abil}},
		{adventurerCoability, []keyword.Category{adv, keyword.CategoryCoability}},
		{adventurerChainCoability, []keyword.Category{adv, keyword.CategoryChainCoability}},
		{itself, []keyword.Category{drg}},
		{dragonSkill, []keyword.Category{drg, skill}},
		{dragonAbility, []keyword.Category{drg, abil}},
		{itself, []keyword.Category{wp}},
		{wyrmprintAbility, []keyword.Category{wp, abil}},
		{itself, []keyword.Category{weapon}},
		{weaponSkill, []keyword.Category{weapon, skill}},
	}
	for _, r := range direct {
		if err := d.Register(r.h, r.sig...); err != nil {
			return err
		}
	}

	async := []struct {
		h   keyword.AsyncHandlerFunc[entity.Describable]
		sig []keyword.Category
	}{
		{listAdventurers(snap), []keyword.Category{rarity, elem}},
		{listAdventurers(snap), []keyword.Category{rarity, wtype}},
		{listAdventurers(snap), []keyword.Category{elem, wtype}},
		{listAdventurers(snap), []keyword.Category{rarity, elem, wtype}},
		{findWeapons(snap), []keyword.Category{elem, wtype, tier}},
		{findWeapons(snap), []keyword.Category{rarity, wtype, tier}},
	}
	for _, r := range async {
		if err := d.RegisterAsync(r.h, r.sig...); err != nil {
			return err
		}
	}
	return nil
}

func itself(_ context.Context, args []keyword.Value) (entity.Describable, bool, error) {
	d, ok := args[0].(entity.Describable)
	if !ok {
		return nil, false, fmt.Errorf("lookup: %T is not describable", args[0])
	}
	return d, true, nil
}

func adventurerSkill(_ context.Context, args []keyword.Value) (entity.Describable, bool, error) {
	a, slot := args[0].(*entity.Adventurer), args[1].(entity.SkillSlot)
	i := int(slot) - 1
	if i < 0 || i >= len(a.Skills) {
		return nil, false, nil
	}
	return entity.Part{Owner: a.Name, Label: slot.String(), Item: a.Skills[i]}, true, nil
}

func adventurerAbility(_ context.Context, args []keyword.Value) (entity.Describable, bool, error) {
	a := args[0].(*entity.Adventurer)
	return abilityAt(a.Name, a.Abilities, args[1].(entity.AbilitySlot))
}

func adventurerCoability(_ context.Context, args []keyword.Value) (entity.Describable, bool, error) {
	a := args[0].(*entity.Adventurer)
	if a.Coability == nil {
		return nil, false, nil
	}
	return entity.Part{Owner: a.Name, Label: "Co-ability", Item: *a.Coability}, true, nil
}

func adventurerChainCoability(_ context.Context, args []keyword.Value) (entity.Describable, bool, error) {
	a := args[0].(*entity.Adventurer)
	if a.ChainCoability == nil {
		return nil, false, nil
	}
	return entity.Part{Owner: a.Name, Label: "Chain co-ability", Item: *a.ChainCoability}, true, nil
}

func dragonSkill(_ context.Context, args []keyword.Value) (entity.Describable, bool, error) {
	d, slot := args[0].(*entity.Dragon), args[1].(entity.SkillSlot)
	if slot != 1 || d.Skill == nil {
		return nil, false, nil
	}
	return entity.Part{Owner: d.Name, Label: slot.String(), Item: *d.Skill}, true, nil
}

func dragonAbility(_ context.Context, args []keyword.Value) (entity.Describable, bool, error) {
	d := args[0].(*entity.Dragon)
	return abilityAt(d.Name, d.Abilities, args[1].(entity.AbilitySlot))
}

func wyrmprintAbility(_ context.Context, args []keyword.Value) (entity.Describable, bool, error) {
	w := args[0].(*entity.Wyrmprint)
	return abilityAt(w.Name, w.Abilities, args[1].(entity.AbilitySlot))
}

func weaponSkill(_ context.Context, args []keyword.Value) (entity.Describable, bool, error) {
	w, slot := args[0].(*entity.Weapon), args[1].(entity.SkillSlot)
	if slot != 1 || w.Skill == nil {
		return nil, false, nil
	}
	return entity.Part{Owner: w.Name, Label: slot.String(), Item: *w.Skill}, true, nil
}

func abilityAt(owner string, abilities []entity.Ability, slot entity.AbilitySlot) (entity.Describable, bool, error) {
	i := int(slot) - 1
	if i < 0 || i >= len(abilities) {
		return nil, false, nil
	}
	return entity.Part{Owner: owner, Label: slot.String(), Item: abilities[i]}, true, nil
}

// filterOf collects the filter values among args.
func filterOf(args []keyword.Value) entity.Filter {
	var f entity.Filter
	for _, a := range args {
		switch v := a.(type) {
		case entity.Rarity:
			f.Rarity = v
		case entity.Element:
			f.Element = v
		case entity.WeaponType:
			f.WeaponType = v
		case entity.Tier:
			f.Tier = v
		}
	}
	return f
}

func listAdventurers(snap *entity.Snapshot) keyword.AsyncHandlerFunc[entity.Describable] {
	return func(ctx context.Context, args []keyword.Value) *keyword.Future[entity.Describable] {
		return keyword.Go(ctx, func(ctx context.Context) (entity.Describable, bool, error) {
			f := filterOf(args)
			found := snap.FindAdventurers(f)
			if len(found) == 0 {
				return nil, false, nil
			}
			names := make([]string, len(found))
			for i, a := range found {
				names[i] = a.Name
			}
			return entity.Listing{Title: f.String() + " adventurers", Names: names}, true, nil
		})
	}
}

func findWeapons(snap *entity.Snapshot) keyword.AsyncHandlerFunc[entity.Describable] {
	return func(ctx context.Context, args []keyword.Value) *keyword.Future[entity.Describable] {
		return keyword.Go(ctx, func(ctx context.Context) (entity.Describable, bool, error) {
			f := filterOf(args)
			found := snap.FindWeapons(f)
			switch len(found) {
			case 0:
				return nil, false, nil
			case 1:
				return found[0], true, nil
			}
			names := make([]string, len(found))
			for i, w := range found {
				names[i] = w.Name
			}
			return entity.Listing{Title: strings.TrimSpace(f.String() + " weapons"), Names: names}, true, nil
		})
	}
}
