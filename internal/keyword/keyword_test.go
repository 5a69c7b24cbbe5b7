package keyword_test

import (
	"github.com/MrWong99/halidom/internal/keyword"
)

type rarity int

func (rarity) Category() keyword.Category { return keyword.CategoryRarity }

type element string

func (element) Category() keyword.Category { return keyword.CategoryElement }

type weaponType string

func (weaponType) Category() keyword.Category { return keyword.CategoryWeaponType }

type tier int

func (tier) Category() keyword.Category { return keyword.CategoryTier }

type adventurer string

func (adventurer) Category() keyword.Category { return keyword.CategoryAdventurer }

type abilitySlot int

func (abilitySlot) Category() keyword.Category { return keyword.CategoryAbilitySlot }
