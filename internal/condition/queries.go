package condition

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/samdwyer/turnkeeper/internal/entity"
)

// AttackMods are the roll adjustments conditions impose on one attack.
type AttackMods struct {
	Advantage    bool
	Disadvantage bool
	AutoCrit     bool
}

// Movement summarizes how conditions restrict a participant's movement.
type Movement struct {
	CanMove bool
	// CrawlOnly means every foot moved costs double and standing costs half
	// the participant's speed.
	CrawlOnly bool
	Reason    string
}

// SaveMods are the adjustments conditions impose on one saving throw.
type SaveMods struct {
	Advantage    bool
	Disadvantage bool
	AutoFail     bool
}

// InitiativeMods are the adjustments conditions impose on initiative.
type InitiativeMods struct {
	Advantage    bool
	Disadvantage bool
}

// AttackModifiers returns the modifiers for attacker hitting defender in
// melee range.
func (r *Registry) AttackModifiers(attacker, defender entity.Handle) AttackMods {
	return r.AttackModifiersAt(attacker, defender, true)
}

// AttackModifiersAt returns the modifiers for attacker hitting defender,
// where within5ft selects the close or ranged incoming rule.
func (r *Registry) AttackModifiersAt(attacker, defender entity.Handle, within5ft bool) AttackMods {
	var mods AttackMods
	r.eachDef(attacker, func(def *Def) {
		if def.attackDisadvantage {
			mods.Disadvantage = true
		}
	})
	r.eachDef(defender, func(def *Def) {
		incoming := def.incomingRanged
		if within5ft {
			incoming = def.incomingClose
			if def.autoCritClose {
				mods.AutoCrit = true
			}
		}
		switch incoming {
		case RollAdvantage:
			mods.Advantage = true
		case RollDisadvantage:
			mods.Disadvantage = true
		}
	})
	return mods
}

// PreventsAction reports whether any condition on h forbids kind, and
// which one.
func (r *Registry) PreventsAction(h entity.Handle, kind entity.ActionKind) (bool, string) {
	for _, name := range sortedNames(r.held[h]) {
		def, ok := r.catalog.Lookup(name)
		if ok && def.Prevents(kind) {
			return true, fmt.Sprintf("%s prevents %s", name, strings.ReplaceAll(string(kind), "_", " "))
		}
	}
	return false, ""
}

// MovementRestrictions reports whether h can move and how.
func (r *Registry) MovementRestrictions(h entity.Handle) Movement {
	m := Movement{CanMove: true}
	for _, name := range sortedNames(r.held[h]) {
		def, ok := r.catalog.Lookup(name)
		if !ok {
			continue
		}
		if def.noMovement || def.Prevents(entity.KindMovement) {
			return Movement{CanMove: false, Reason: name}
		}
		if def.crawlOnly && !m.CrawlOnly {
			m.CrawlOnly = true
			m.Reason = name
		}
	}
	return m
}

// SaveModifiers returns the adjustments for h saving with ability.
func (r *Registry) SaveModifiers(h entity.Handle, ability entity.Ability) SaveMods {
	var mods SaveMods
	r.eachDef(h, func(def *Def) {
		if def.autoFailSaves[ability] {
			mods.AutoFail = true
		}
	})
	return mods
}

// InitiativeModifiers returns the adjustments for h rolling initiative.
func (r *Registry) InitiativeModifiers(h entity.Handle) InitiativeMods {
	var mods InitiativeMods
	r.eachDef(h, func(def *Def) {
		if def.initiativeDisadvantage {
			mods.Disadvantage = true
		}
	})
	return mods
}

// CanTakeReactions reports whether h may react.
func (r *Registry) CanTakeReactions(h entity.Handle) bool {
	prevented, _ := r.PreventsAction(h, entity.KindReaction)
	return !prevented
}

// Describe renders h's conditions on one line, e.g.
// "Prone (permanent), Stunned (until DC 13 con save)".
func (r *Registry) Describe(h entity.Handle) string {
	active := r.Active(h)
	if len(active) == 0 {
		return "none"
	}
	caser := cases.Title(language.English)
	now := r.now()
	parts := make([]string, 0, len(active))
	for i := range active {
		parts = append(parts, fmt.Sprintf("%s (%s)", caser.String(active[i].Name), active[i].durationText(r.round, now)))
	}
	return strings.Join(parts, ", ")
}

// DescribeEffects renders one line per condition with its catalog text.
func (r *Registry) DescribeEffects(h entity.Handle) []string {
	caser := cases.Title(language.English)
	var lines []string
	for _, inst := range r.Active(h) {
		text := "no mechanical effect"
		if def, ok := r.catalog.Lookup(inst.Name); ok && def.Description != "" {
			text = def.Description
		}
		lines = append(lines, fmt.Sprintf("%s: %s", caser.String(inst.Name), text))
	}
	return lines
}

func (r *Registry) eachDef(h entity.Handle, fn func(*Def)) {
	for _, name := range sortedNames(r.held[h]) {
		if def, ok := r.catalog.Lookup(name); ok {
			fn(def)
		}
	}
}
