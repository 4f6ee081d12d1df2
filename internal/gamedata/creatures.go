package gamedata

import (
	"github.com/samdwyer/turnkeeper/internal/entity"
)

// Side values for CreatureDef.Side.
const (
	SideHero    = "hero"
	SideMonster = "monster"
)

// OnHitDef is a condition an attack applies unless the target saves.
type OnHitDef struct {
	Condition string `yaml:"condition"`
	DC        int    `yaml:"dc"`
	Save      string `yaml:"save"`
}

// AttackDef defines a weapon or spell attack.
type AttackDef struct {
	Name    string    `yaml:"name"`
	Ability string    `yaml:"ability"` // Ability used for the attack roll
	Damage  string    `yaml:"damage"`  // Dice notation, e.g. "1d8+3"
	Type    string    `yaml:"type"`    // Damage type
	Ranged  bool      `yaml:"ranged,omitempty"`
	OnHit   *OnHitDef `yaml:"on_hit,omitempty"`
}

// ConcentrationDef is a concentration spell a caster opens with.
type ConcentrationDef struct {
	Name     string `yaml:"name"`
	Duration string `yaml:"duration"` // e.g. "1 minute", "10 minutes"
	Level    int    `yaml:"level"`
	ACBonus  int    `yaml:"ac_bonus,omitempty"`
}

// SpellcastingDef marks a creature as a spellcaster.
type SpellcastingDef struct {
	Ability       string            `yaml:"ability"`
	Concentration *ConcentrationDef `yaml:"concentration,omitempty"`
}

// CreatureDef defines a creature template loaded from YAML.
type CreatureDef struct {
	ID           string           `yaml:"id"`    // Unique identifier (e.g., "goblin")
	Name         string           `yaml:"name"`  // Display name (e.g., "Goblin")
	Side         string           `yaml:"side"`  // "hero" or "monster"
	Level        int              `yaml:"level"` // Character level or challenge rating
	AC           int              `yaml:"ac"`
	HP           int              `yaml:"hp"`
	Speed        int              `yaml:"speed"`
	Scores       map[string]int   `yaml:"scores"`
	Saves        []string         `yaml:"saves,omitempty"`
	Attacks      []AttackDef      `yaml:"attacks"`
	Immune       []string         `yaml:"immune,omitempty"`
	Resistant    []string         `yaml:"resistant,omitempty"`
	Vulnerable   []string         `yaml:"vulnerable,omitempty"`
	Spellcasting *SpellcastingDef `yaml:"spellcasting,omitempty"`
	SpawnWeight  int              `yaml:"spawnWeight,omitempty"` // Relative spawn frequency for monsters
}

// PrimaryAttack returns the creature's first attack, or nil.
func (d *CreatureDef) PrimaryAttack() *AttackDef {
	if len(d.Attacks) == 0 {
		return nil
	}
	return &d.Attacks[0]
}

// Spawn builds a participant from the template. name overrides the display
// name when non-empty (e.g. "Goblin 2"). Creatures with spellcasting are
// wrapped as entity.Caster.
func (d *CreatureDef) Spawn(name, team string) entity.Participant {
	if name == "" {
		name = d.Name
	}

	var saves []entity.Ability
	for _, s := range d.Saves {
		if a, ok := entity.ParseAbility(s); ok {
			saves = append(saves, a)
		}
	}

	spec := entity.CreatureSpec{
		Name:  name,
		Team:  team,
		Level: d.Level,
		AC:    d.AC,
		HP:    d.HP,
		Speed: d.Speed,
		Scores: entity.Scores{
			Str: scoreOr10(d.Scores, "str"),
			Dex: scoreOr10(d.Scores, "dex"),
			Con: scoreOr10(d.Scores, "con"),
			Int: scoreOr10(d.Scores, "int"),
			Wis: scoreOr10(d.Scores, "wis"),
			Cha: scoreOr10(d.Scores, "cha"),
		},
		Saves: saves,
	}
	if len(d.Immune)+len(d.Resistant)+len(d.Vulnerable) > 0 {
		spec.Sink = entity.NewResistantDamage(damageTypes(d.Immune), damageTypes(d.Resistant), damageTypes(d.Vulnerable))
	}

	c := entity.NewCreature(spec)
	if d.Spellcasting != nil {
		ability, ok := entity.ParseAbility(d.Spellcasting.Ability)
		if !ok {
			ability = entity.Intelligence
		}
		return entity.NewCaster(c, ability)
	}
	return c
}

func scoreOr10(scores map[string]int, key string) int {
	if v, ok := scores[key]; ok {
		return v
	}
	return 10
}

func damageTypes(names []string) []entity.DamageType {
	types := make([]entity.DamageType, 0, len(names))
	for _, n := range names {
		types = append(types, entity.DamageType(n))
	}
	return types
}

// CreaturesFile represents the structure of creatures.yaml.
type CreaturesFile struct {
	Creatures []CreatureDef `yaml:"creatures"`
}

// LoadCreatures loads creature definitions from the embedded creatures.yaml file.
func LoadCreatures() ([]CreatureDef, error) {
	file, err := Load[CreaturesFile]("creatures.yaml")
	if err != nil {
		return nil, err
	}
	return file.Creatures, nil
}
