package entity

// Scores holds the six ability scores.
type Scores struct {
	Str, Dex, Con, Int, Wis, Cha int
}

// Get returns the score for an ability. Unknown abilities score 10.
func (s Scores) Get(a Ability) int {
	switch a {
	case Strength:
		return s.Str
	case Dexterity:
		return s.Dex
	case Constitution:
		return s.Con
	case Intelligence:
		return s.Int
	case Wisdom:
		return s.Wis
	case Charisma:
		return s.Cha
	default:
		return 10
	}
}

// CreatureSpec describes a creature to construct.
type CreatureSpec struct {
	Name   string
	Team   string
	Level  int // Character level, or challenge rating for monsters
	AC     int
	HP     int
	Speed  int
	Scores Scores
	Saves  []Ability  // Saving throw proficiencies
	Sink   DamageSink // Defaults to PlainDamage
}

// Creature is the stock Participant implementation.
type Creature struct {
	name       string
	team       string
	ac         int
	hp, maxHP  int
	speed      int
	scores     Scores
	profBonus  int
	saves      map[Ability]bool
	sink       DamageSink
	conditions ConditionSet
	bonuses    map[string]int
}

// NewCreature creates a creature from a spec.
func NewCreature(spec CreatureSpec) *Creature {
	sink := spec.Sink
	if sink == nil {
		sink = PlainDamage{}
	}
	saves := make(map[Ability]bool, len(spec.Saves))
	for _, a := range spec.Saves {
		saves[a] = true
	}
	return &Creature{
		name:       spec.Name,
		team:       spec.Team,
		ac:         spec.AC,
		hp:         spec.HP,
		maxHP:      spec.HP,
		speed:      spec.Speed,
		scores:     spec.Scores,
		profBonus:  ProficiencyBonusFor(spec.Level),
		saves:      saves,
		sink:       sink,
		conditions: ConditionSet{},
		bonuses:    map[string]int{},
	}
}

// =============================================================================
// Participant interface implementation
// =============================================================================

// Name returns the creature's name.
func (c *Creature) Name() string { return c.name }

// IsAlive returns true if the creature has HP remaining.
func (c *Creature) IsAlive() bool { return c.hp > 0 }

// AbilityModifier returns the modifier for an ability.
func (c *Creature) AbilityModifier(a Ability) int { return AbilityModifier(c.scores.Get(a)) }

// Speed returns the current walking speed in feet.
func (c *Creature) Speed() int { return c.speed }

// ProficiencyBonus returns the proficiency bonus.
func (c *Creature) ProficiencyBonus() int { return c.profBonus }

// Team returns the creature's team affiliation.
func (c *Creature) Team() string { return c.team }

// Conditions returns the condition-name mirror.
func (c *Creature) Conditions() ConditionSet { return c.conditions }

// =============================================================================
// Optional capabilities
// =============================================================================

// IsSaveProficient reports saving throw proficiency.
func (c *Creature) IsSaveProficient(a Ability) bool { return c.saves[a] }

// ArmorClass returns AC including temporary bonuses.
func (c *Creature) ArmorClass() int {
	ac := c.ac
	for _, b := range c.bonuses {
		ac += b
	}
	return ac
}

// HP returns current hit points.
func (c *Creature) HP() int { return c.hp }

// MaxHP returns maximum hit points.
func (c *Creature) MaxHP() int { return c.maxHP }

// SetTeam changes the creature's team affiliation.
func (c *Creature) SetTeam(team string) { c.team = team }

// SetSpeed changes the creature's speed (e.g. from a haste effect). The new
// value applies from the creature's next turn.
func (c *Creature) SetSpeed(speed int) { c.speed = speed }

// TakeDamage routes damage through the creature's sink, reduces HP and
// returns actual damage taken.
func (c *Creature) TakeDamage(amount int, kind DamageType) int {
	adjusted := c.sink.Adjust(amount, kind)
	if adjusted <= 0 {
		return 0
	}
	actual := adjusted
	if actual > c.hp {
		actual = c.hp
	}
	c.hp -= actual
	return actual
}

// Heal restores HP and returns actual amount healed.
func (c *Creature) Heal(amount int) int {
	if amount <= 0 || !c.IsAlive() {
		return 0
	}
	actual := amount
	if c.hp+actual > c.maxHP {
		actual = c.maxHP - c.hp
	}
	c.hp += actual
	return actual
}

// AddTemporaryBonus attaches an AC bonus tied to a named effect.
func (c *Creature) AddTemporaryBonus(effect string, value int) {
	c.bonuses[effect] = value
}

// RemoveTemporaryBonus drops the bonus tied to effect.
func (c *Creature) RemoveTemporaryBonus(effect string) bool {
	if _, ok := c.bonuses[effect]; !ok {
		return false
	}
	delete(c.bonuses, effect)
	return true
}

// Ensure Creature implements the participant capabilities.
var (
	_ Participant          = (*Creature)(nil)
	_ SaveProficient       = (*Creature)(nil)
	_ Armored              = (*Creature)(nil)
	_ Damageable           = (*Creature)(nil)
	_ TemporaryBonusHolder = (*Creature)(nil)
)
