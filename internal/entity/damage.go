package entity

// DamageType is a damage category used for resistances.
type DamageType string

const (
	DamageBludgeoning DamageType = "bludgeoning"
	DamagePiercing    DamageType = "piercing"
	DamageSlashing    DamageType = "slashing"
	DamageAcid        DamageType = "acid"
	DamageCold        DamageType = "cold"
	DamageFire        DamageType = "fire"
	DamageLightning   DamageType = "lightning"
	DamageThunder     DamageType = "thunder"
	DamageForce       DamageType = "force"
	DamageNecrotic    DamageType = "necrotic"
	DamageRadiant     DamageType = "radiant"
	DamagePsychic     DamageType = "psychic"
	DamagePoison      DamageType = "poison"
)

// DamageSink adjusts incoming damage before it reaches hit points.
type DamageSink interface {
	Adjust(amount int, kind DamageType) int
}

// PlainDamage passes damage through unchanged.
type PlainDamage struct{}

// Adjust returns amount, floored at zero.
func (PlainDamage) Adjust(amount int, _ DamageType) int {
	if amount < 0 {
		return 0
	}
	return amount
}

// ResistantDamage applies immunities, resistances and vulnerabilities.
type ResistantDamage struct {
	Immune     map[DamageType]bool
	Resistant  map[DamageType]bool
	Vulnerable map[DamageType]bool
}

// NewResistantDamage builds a sink from type lists.
func NewResistantDamage(immune, resistant, vulnerable []DamageType) *ResistantDamage {
	toSet := func(types []DamageType) map[DamageType]bool {
		m := make(map[DamageType]bool, len(types))
		for _, t := range types {
			m[t] = true
		}
		return m
	}
	return &ResistantDamage{
		Immune:     toSet(immune),
		Resistant:  toSet(resistant),
		Vulnerable: toSet(vulnerable),
	}
}

// Adjust applies immunity first; resistance and vulnerability to the same
// type cancel out.
func (r *ResistantDamage) Adjust(amount int, kind DamageType) int {
	if amount <= 0 {
		return 0
	}
	if r.Immune[kind] {
		return 0
	}
	resist, vuln := r.Resistant[kind], r.Vulnerable[kind]
	switch {
	case resist && vuln:
		return amount
	case resist:
		return amount / 2
	case vuln:
		return amount * 2
	}
	return amount
}
