package entity

import "testing"

func TestRosterRegisterAndLookup(t *testing.T) {
	r := NewRoster()
	fighter := newTestCreature("Fighter", 10)
	goblin := newTestCreature("Goblin", 5)

	hf := r.Register(fighter, "heroes")
	hg := r.Register(goblin, "monsters")

	if hf == hg || hf == "" {
		t.Fatalf("handles should be distinct and non-empty: %q %q", hf, hg)
	}
	if p, ok := r.Lookup(hf); !ok || p != fighter {
		t.Error("Lookup should return the registered participant")
	}
	if _, ok := r.Lookup("missing"); ok {
		t.Error("Lookup of unknown handle should fail")
	}
	if h, ok := r.HandleOf(goblin); !ok || h != hg {
		t.Error("HandleOf should find goblin by identity")
	}
	if r.Team(hg) != "monsters" {
		t.Errorf("Team() = %q", r.Team(hg))
	}
	if got := r.TeamNames(); len(got) != 2 || got[0] != "heroes" {
		t.Errorf("TeamNames() = %v", got)
	}
	if r.Len() != 2 {
		t.Errorf("Len() = %d", r.Len())
	}
}

func TestRosterLivingTeams(t *testing.T) {
	r := NewRoster()
	fighter := newTestCreature("Fighter", 1)
	goblin := newTestCreature("Goblin", 5)
	r.Register(fighter, "heroes")
	r.Register(goblin, "monsters")

	if got := r.LivingTeams(); len(got) != 2 {
		t.Fatalf("LivingTeams() = %v", got)
	}

	fighter.TakeDamage(5, DamageSlashing)
	if got := r.LivingTeams(); len(got) != 1 || got[0] != "monsters" {
		t.Errorf("LivingTeams() = %v, want [monsters]", got)
	}
}
