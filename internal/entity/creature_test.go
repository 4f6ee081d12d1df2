package entity

import "testing"

func newTestCreature(name string, hp int) *Creature {
	return NewCreature(CreatureSpec{
		Name:   name,
		Team:   "heroes",
		Level:  1,
		AC:     15,
		HP:     hp,
		Speed:  30,
		Scores: Scores{Str: 16, Dex: 14, Con: 12, Int: 8, Wis: 10, Cha: 9},
		Saves:  []Ability{Strength, Constitution},
	})
}

func TestAbilityModifier(t *testing.T) {
	tests := []struct {
		score    int
		expected int
	}{
		{1, -5},
		{7, -2},
		{8, -1},
		{9, -1},
		{10, 0},
		{11, 0},
		{12, 1},
		{15, 2},
		{20, 5},
	}

	for _, tt := range tests {
		if got := AbilityModifier(tt.score); got != tt.expected {
			t.Errorf("AbilityModifier(%d) = %d, want %d", tt.score, got, tt.expected)
		}
	}
}

func TestProficiencyBonusFor(t *testing.T) {
	tests := []struct {
		level    int
		expected int
	}{
		{0, 2}, {4, 2}, {5, 3}, {8, 3}, {9, 4}, {13, 5}, {17, 6}, {21, 7},
	}

	for _, tt := range tests {
		if got := ProficiencyBonusFor(tt.level); got != tt.expected {
			t.Errorf("ProficiencyBonusFor(%d) = %d, want %d", tt.level, got, tt.expected)
		}
	}
}

func TestCreatureParticipant(t *testing.T) {
	c := newTestCreature("Fighter", 12)

	if c.Name() != "Fighter" {
		t.Errorf("Name() = %q", c.Name())
	}
	if !c.IsAlive() {
		t.Error("new creature should be alive")
	}
	if got := c.AbilityModifier(Dexterity); got != 2 {
		t.Errorf("Dex modifier = %d, want 2", got)
	}
	if got := c.AbilityModifier(Charisma); got != -1 {
		t.Errorf("Cha modifier = %d, want -1", got)
	}
	if !c.IsSaveProficient(Constitution) || c.IsSaveProficient(Wisdom) {
		t.Error("save proficiencies not applied")
	}
	if c.ProficiencyBonus() != 2 {
		t.Errorf("ProficiencyBonus() = %d, want 2", c.ProficiencyBonus())
	}
}

func TestCreatureTakeDamage(t *testing.T) {
	c := newTestCreature("Fighter", 10)

	if got := c.TakeDamage(4, DamageSlashing); got != 4 {
		t.Errorf("TakeDamage(4) = %d, want 4", got)
	}
	if c.HP() != 6 {
		t.Errorf("HP() = %d, want 6", c.HP())
	}

	// Overkill only removes remaining HP
	if got := c.TakeDamage(100, DamageFire); got != 6 {
		t.Errorf("TakeDamage(100) = %d, want 6", got)
	}
	if c.IsAlive() {
		t.Error("creature should be dead at 0 HP")
	}

	if got := c.Heal(5); got != 0 {
		t.Errorf("Heal() on dead creature = %d, want 0", got)
	}
}

func TestResistantDamage(t *testing.T) {
	sink := NewResistantDamage(
		[]DamageType{DamagePoison},
		[]DamageType{DamageFire, DamageCold},
		[]DamageType{DamageRadiant, DamageCold},
	)

	tests := []struct {
		name     string
		amount   int
		kind     DamageType
		expected int
	}{
		{"immune", 12, DamagePoison, 0},
		{"resistant rounds down", 7, DamageFire, 3},
		{"vulnerable doubles", 5, DamageRadiant, 10},
		{"resist and vulnerable cancel", 9, DamageCold, 9},
		{"unaffected", 6, DamageSlashing, 6},
		{"negative", -3, DamageFire, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sink.Adjust(tt.amount, tt.kind); got != tt.expected {
				t.Errorf("Adjust(%d, %s) = %d, want %d", tt.amount, tt.kind, got, tt.expected)
			}
		})
	}
}

func TestCreatureWithResistantSink(t *testing.T) {
	c := NewCreature(CreatureSpec{
		Name: "Fire Elemental",
		HP:   30,
		Sink: NewResistantDamage([]DamageType{DamageFire}, nil, nil),
	})

	if got := c.TakeDamage(20, DamageFire); got != 0 {
		t.Errorf("immune creature took %d fire damage", got)
	}
	if c.HP() != 30 {
		t.Errorf("HP() = %d, want 30", c.HP())
	}
}

func TestTemporaryBonus(t *testing.T) {
	c := newTestCreature("Wizard", 8)
	c.AddTemporaryBonus("shield of faith", 2)

	if c.ArmorClass() != 17 {
		t.Errorf("ArmorClass() = %d, want 17", c.ArmorClass())
	}
	if !c.RemoveTemporaryBonus("shield of faith") {
		t.Error("RemoveTemporaryBonus should report removal")
	}
	if c.RemoveTemporaryBonus("shield of faith") {
		t.Error("second removal should report false")
	}
	if c.ArmorClass() != 15 {
		t.Errorf("ArmorClass() = %d, want 15", c.ArmorClass())
	}
}

func TestCaster(t *testing.T) {
	c := NewCreature(CreatureSpec{
		Name:   "Cleric",
		Level:  5,
		HP:     30,
		Scores: Scores{Wis: 16},
	})
	caster := NewCaster(c, Wisdom)

	if caster.SpellSaveDC() != 14 {
		t.Errorf("SpellSaveDC() = %d, want 14", caster.SpellSaveDC())
	}
	if caster.SpellAttackBonus() != 6 {
		t.Errorf("SpellAttackBonus() = %d, want 6", caster.SpellAttackBonus())
	}

	var p Participant = caster
	if _, ok := p.(Spellcaster); !ok {
		t.Error("Caster should satisfy Spellcaster")
	}
	var plain Participant = c
	if _, ok := plain.(Spellcaster); ok {
		t.Error("plain Creature should not satisfy Spellcaster")
	}
}

func TestConditionSet(t *testing.T) {
	s := ConditionSet{}
	s.Add("prone")
	s.Add("blinded")

	if !s.Has("prone") {
		t.Error("expected prone")
	}
	if got := s.Names(); len(got) != 2 || got[0] != "blinded" || got[1] != "prone" {
		t.Errorf("Names() = %v", got)
	}
	if !s.Remove("prone") || s.Remove("prone") {
		t.Error("Remove should report presence once")
	}
}

func TestTeam(t *testing.T) {
	a := newTestCreature("A", 5)
	b := newTestCreature("B", 5)
	team := NewTeam("heroes", a, b)

	if team.AliveMemberCount() != 2 {
		t.Errorf("AliveMemberCount() = %d, want 2", team.AliveMemberCount())
	}
	a.TakeDamage(10, DamageSlashing)
	if got := team.AliveNames(); len(got) != 1 || got[0] != "B" {
		t.Errorf("AliveNames() = %v", got)
	}
	b.TakeDamage(10, DamageSlashing)
	if !team.IsDefeated() {
		t.Error("team should be defeated")
	}
}

func TestParseAbility(t *testing.T) {
	if a, ok := ParseAbility("Dexterity"); !ok || a != Dexterity {
		t.Errorf("ParseAbility(Dexterity) = %v, %v", a, ok)
	}
	if _, ok := ParseAbility("luck"); ok {
		t.Error("unknown ability should not parse")
	}
}
