package gamedata

// =============================================================================
// CONDITION CATALOG
// =============================================================================
//
// Conditions are data-driven. conditions.yaml lists every named condition
// with:
//
// 1. default - the duration policy applied when a caller adds the condition
//    without an explicit duration (kind, value, save_ability).
//
// 2. implies - other conditions applied alongside it (stunned implies
//    incapacitated; unconscious implies incapacitated and prone).
//
// 3. mechanical flags read by the registry's query helpers:
//    - prevents: action kinds the holder cannot spend
//    - movement: none (can't move) or crawl (prone)
//    - attack_disadvantage: the holder's own attacks have disadvantage
//    - incoming: how attacks against the holder are rolled, split by
//      attackers within 5 feet (close) and further away (ranged)
//    - auto_fail_saves: abilities whose saves fail automatically
//    - initiative_disadvantage: holder rolls initiative with disadvantage
//    - breaks_concentration: gaining it ends the holder's concentration
//
// Unknown condition names are still accepted by the registry; they get a
// permanent duration and no mechanical effect.

// ConditionDefault is a condition's fallback duration policy.
type ConditionDefault struct {
	Kind        string `yaml:"kind"`
	Value       int    `yaml:"value,omitempty"`
	SaveAbility string `yaml:"save_ability,omitempty"`
}

// IncomingAttacks describes how attacks against the holder are rolled.
type IncomingAttacks struct {
	Close         string `yaml:"close,omitempty"`  // "advantage" | "disadvantage"
	Ranged        string `yaml:"ranged,omitempty"` // "advantage" | "disadvantage"
	AutoCritClose bool   `yaml:"auto_crit_close,omitempty"`
}

// ConditionDef defines a condition loaded from YAML.
type ConditionDef struct {
	Name                   string           `yaml:"name"`
	Description            string           `yaml:"description"`
	Default                ConditionDefault `yaml:"default"`
	Implies                []string         `yaml:"implies,omitempty"`
	Prevents               []string         `yaml:"prevents,omitempty"`
	Movement               string           `yaml:"movement,omitempty"`
	AttackDisadvantage     bool             `yaml:"attack_disadvantage,omitempty"`
	Incoming               IncomingAttacks  `yaml:"incoming,omitempty"`
	AutoFailSaves          []string         `yaml:"auto_fail_saves,omitempty"`
	InitiativeDisadvantage bool             `yaml:"initiative_disadvantage,omitempty"`
	BreaksConcentration    bool             `yaml:"breaks_concentration,omitempty"`
}

// ConditionsFile represents the structure of conditions.yaml.
type ConditionsFile struct {
	Conditions []ConditionDef `yaml:"conditions"`
}

// LoadConditions loads condition definitions from the embedded conditions.yaml file.
func LoadConditions() ([]ConditionDef, error) {
	file, err := Load[ConditionsFile]("conditions.yaml")
	if err != nil {
		return nil, err
	}
	return file.Conditions, nil
}

// MustLoadConditions loads condition definitions, panicking on error.
func MustLoadConditions() []ConditionDef {
	return MustLoad[ConditionsFile]("conditions.yaml").Conditions
}
