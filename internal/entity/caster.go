package entity

// Caster wraps a creature with spellcasting. The wrapper is chosen when the
// participant is built; a plain Creature never gains spellcasting later.
type Caster struct {
	*Creature
	ability Ability
}

// NewCaster gives c spellcasting keyed on ability.
func NewCaster(c *Creature, ability Ability) *Caster {
	return &Caster{Creature: c, ability: ability}
}

// SpellcastingAbility returns the casting ability.
func (c *Caster) SpellcastingAbility() Ability { return c.ability }

// SpellSaveDC returns 8 + proficiency + casting modifier.
func (c *Caster) SpellSaveDC() int {
	return 8 + c.ProficiencyBonus() + c.AbilityModifier(c.ability)
}

// SpellAttackBonus returns proficiency + casting modifier.
func (c *Caster) SpellAttackBonus() int {
	return c.ProficiencyBonus() + c.AbilityModifier(c.ability)
}

var _ Spellcaster = (*Caster)(nil)
