// Package entity provides the participant contract consumed by the encounter
// state machine and the stock creature types that satisfy it.
package entity

import (
	"sort"

	"github.com/google/uuid"
)

// Handle is the stable identity assigned to a participant when an encounter
// is set up. All per-participant registry state is keyed by Handle.
type Handle string

// NewHandle returns a fresh random handle.
func NewHandle() Handle {
	return Handle(uuid.NewString())
}

// String returns the handle text.
func (h Handle) String() string { return string(h) }

// Ability is one of the six ability scores.
type Ability string

const (
	Strength     Ability = "str"
	Dexterity    Ability = "dex"
	Constitution Ability = "con"
	Intelligence Ability = "int"
	Wisdom       Ability = "wis"
	Charisma     Ability = "cha"
)

// Abilities lists all abilities in canonical order.
var Abilities = []Ability{Strength, Dexterity, Constitution, Intelligence, Wisdom, Charisma}

// ParseAbility normalizes long or short ability names ("Dexterity", "dex").
// The second return is false for unknown names.
func ParseAbility(s string) (Ability, bool) {
	switch s {
	case "str", "strength", "STR", "Strength":
		return Strength, true
	case "dex", "dexterity", "DEX", "Dexterity":
		return Dexterity, true
	case "con", "constitution", "CON", "Constitution":
		return Constitution, true
	case "int", "intelligence", "INT", "Intelligence":
		return Intelligence, true
	case "wis", "wisdom", "WIS", "Wisdom":
		return Wisdom, true
	case "cha", "charisma", "CHA", "Charisma":
		return Charisma, true
	}
	return "", false
}

// ActionKind is a per-turn resource category a condition may forbid.
type ActionKind string

const (
	KindAction          ActionKind = "action"
	KindBonusAction     ActionKind = "bonus_action"
	KindReaction        ActionKind = "reaction"
	KindMovement        ActionKind = "movement"
	KindFreeInteraction ActionKind = "free_interaction"
)

// Participant is any creature taking part in an encounter. The encounter
// core references participants by identity and never creates or destroys
// them.
type Participant interface {
	Name() string
	IsAlive() bool
	AbilityModifier(a Ability) int
	// Speed is read at the start of every turn; it may change between turns.
	Speed() int
	ProficiencyBonus() int
	Team() string
	// Conditions is a mirror of the condition names the registry holds for
	// this participant, for simple queries outside the encounter.
	Conditions() ConditionSet
}

// SaveProficient is implemented by participants that are proficient in some
// saving throws.
type SaveProficient interface {
	IsSaveProficient(a Ability) bool
}

// Armored is implemented by participants that can be targeted by attacks.
type Armored interface {
	ArmorClass() int
}

// Damageable is implemented by participants that can take damage.
type Damageable interface {
	// TakeDamage applies amount of the given type and returns the hit points
	// actually lost.
	TakeDamage(amount int, kind DamageType) int
}

// TemporaryBonusHolder is implemented by participants that carry bonuses
// tied to a named effect (e.g. an AC bonus from a concentration spell).
type TemporaryBonusHolder interface {
	AddTemporaryBonus(effect string, value int)
	RemoveTemporaryBonus(effect string) bool
}

// Spellcaster is the capability to cast spells and hold concentration.
// A participant either implements it directly or is wrapped at construction
// (see Caster).
type Spellcaster interface {
	Participant
	SpellcastingAbility() Ability
	SpellSaveDC() int
	SpellAttackBonus() int
}

// ConditionSet is a set of lower-case condition names.
type ConditionSet map[string]struct{}

// Has reports whether name is in the set.
func (s ConditionSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Add inserts name.
func (s ConditionSet) Add(name string) {
	s[name] = struct{}{}
}

// Remove deletes name and reports whether it was present.
func (s ConditionSet) Remove(name string) bool {
	if _, ok := s[name]; !ok {
		return false
	}
	delete(s, name)
	return true
}

// Names returns the set's members sorted alphabetically.
func (s ConditionSet) Names() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// AbilityModifier returns floor((score - 10) / 2).
func AbilityModifier(score int) int {
	d := score - 10
	if d < 0 {
		return (d - 1) / 2
	}
	return d / 2
}

// ProficiencyBonusFor returns the proficiency bonus for a level or
// challenge rating.
func ProficiencyBonusFor(level int) int {
	switch {
	case level <= 4:
		return 2
	case level <= 8:
		return 3
	case level <= 12:
		return 4
	case level <= 16:
		return 5
	case level <= 20:
		return 6
	default:
		return 7
	}
}
