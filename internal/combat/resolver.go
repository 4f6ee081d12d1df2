// Package combat resolves attacks between encounter participants: the
// attack roll against armour class, damage dice, critical hits and
// on-hit conditions.
package combat

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/samdwyer/turnkeeper/internal/check"
	"github.com/samdwyer/turnkeeper/internal/condition"
	"github.com/samdwyer/turnkeeper/internal/dice"
	"github.com/samdwyer/turnkeeper/internal/entity"
	tkerrors "github.com/samdwyer/turnkeeper/internal/errors"
	"github.com/samdwyer/turnkeeper/internal/gamedata"
)

// Arena is the part of a running encounter an attack touches.
// *encounter.Encounter implements it.
type Arena interface {
	Participant(h entity.Handle) (entity.Participant, bool)
	AttackModifiers(attacker, defender entity.Handle, within5ft bool) condition.AttackMods
	SaveModifiers(h entity.Handle, ability entity.Ability) condition.SaveMods
	ApplyDamage(ctx context.Context, h entity.Handle, amount int, kind entity.DamageType) (int, error)
	AddCondition(h entity.Handle, name string, spec condition.Spec) error
	Record(format string, args ...any)
}

// OnHit is a condition an attack inflicts unless the target saves.
type OnHit struct {
	Condition string
	DC        int
	Save      entity.Ability
}

// Attack is a resolved weapon or spell attack.
type Attack struct {
	Name    string
	Ability entity.Ability
	Damage  dice.Expr
	Type    entity.DamageType
	Ranged  bool
	OnHit   *OnHit
}

// AttackFromDef builds an Attack from a creature template entry.
func AttackFromDef(def *gamedata.AttackDef) (Attack, error) {
	if def == nil {
		return Attack{}, tkerrors.New(tkerrors.CodeInvalidParticipant, "no attack defined")
	}
	expr, err := dice.Parse(def.Damage)
	if err != nil {
		return Attack{}, err
	}
	ability, ok := entity.ParseAbility(def.Ability)
	if !ok {
		ability = entity.Strength
	}
	atk := Attack{
		Name:    def.Name,
		Ability: ability,
		Damage:  expr,
		Type:    entity.DamageType(def.Type),
		Ranged:  def.Ranged,
	}
	if def.OnHit != nil {
		save, ok := entity.ParseAbility(def.OnHit.Save)
		if !ok {
			save = entity.Constitution
		}
		atk.OnHit = &OnHit{Condition: def.OnHit.Condition, DC: def.OnHit.DC, Save: save}
	}
	return atk, nil
}

// Result is the outcome of one attack.
type Result struct {
	Hit              bool
	Critical         bool
	Roll             check.Result
	Damage           int
	ConditionApplied string
	Message          string
}

// Resolver rolls attacks.
type Resolver struct {
	evaluator check.Evaluator
	roller    dice.Roller
	logger    *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the resolver logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver creates a resolver using evaluator for attack rolls and
// saves and roller for damage dice.
func NewResolver(evaluator check.Evaluator, roller dice.Roller, opts ...Option) *Resolver {
	r := &Resolver{evaluator: evaluator, roller: roller, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Attack resolves atk from attacker against target. Condition modifiers
// apply; a natural 20 or an automatic critical doubles the damage dice.
func (r *Resolver) Attack(ctx context.Context, arena Arena, attacker, target entity.Handle, atk Attack) (Result, error) {
	ap, ok := arena.Participant(attacker)
	if !ok {
		return Result{}, tkerrors.Newf(tkerrors.CodeInvalidParticipant, "unknown attacker %s", attacker)
	}
	tp, ok := arena.Participant(target)
	if !ok {
		return Result{}, tkerrors.Newf(tkerrors.CodeInvalidParticipant, "unknown target %s", target)
	}
	if !tp.IsAlive() {
		return Result{}, tkerrors.Newf(tkerrors.CodeInvalidParticipant, "%s is already down", tp.Name())
	}

	ac := 10
	if armored, ok := tp.(entity.Armored); ok {
		ac = armored.ArmorClass()
	}

	mods := arena.AttackModifiers(attacker, target, !atk.Ranged)
	roll := r.evaluator.PerformCheck(ap, check.Request{
		Ability:      atk.Ability,
		DC:           ac,
		Advantage:    mods.Advantage,
		Disadvantage: mods.Disadvantage,
		AttackRoll:   true,
	})

	result := Result{Roll: roll}
	if !roll.Success {
		result.Message = fmt.Sprintf("%s attacks %s with %s and misses", ap.Name(), tp.Name(), atk.Name)
		arena.Record("%s", result.Message)
		return result, nil
	}
	result.Hit = true
	result.Critical = roll.Critical || mods.AutoCrit

	expr := atk.Damage
	if result.Critical {
		expr = expr.Doubled()
	}
	damage, err := r.roller.RollDice(expr.String())
	if err != nil {
		return result, err
	}
	damage = max(0, damage)

	verb := "hits"
	if result.Critical {
		verb = "critically hits"
	}
	arena.Record("%s %s %s with %s", ap.Name(), verb, tp.Name(), atk.Name)

	dealt, err := arena.ApplyDamage(ctx, target, damage, atk.Type)
	if err != nil {
		return result, err
	}
	result.Damage = dealt
	result.Message = fmt.Sprintf("%s %s %s with %s for %d damage", ap.Name(), verb, tp.Name(), atk.Name, dealt)

	r.logger.Debug("attack resolved",
		zap.String("attacker", ap.Name()),
		zap.String("target", tp.Name()),
		zap.String("attack", atk.Name),
		zap.Int("roll", roll.Total),
		zap.Int("ac", ac),
		zap.Bool("critical", result.Critical),
		zap.Int("damage", dealt),
	)

	if atk.OnHit != nil && tp.IsAlive() {
		applied, err := r.applyOnHit(arena, ap, tp, target, atk.OnHit)
		if err != nil {
			return result, err
		}
		if applied {
			result.ConditionApplied = condition.Normalize(atk.OnHit.Condition)
		}
	}
	return result, nil
}

func (r *Resolver) applyOnHit(arena Arena, ap, tp entity.Participant, target entity.Handle, hit *OnHit) (bool, error) {
	smods := arena.SaveModifiers(target, hit.Save)
	save := r.evaluator.PerformCheck(tp, check.Request{
		Ability:      hit.Save,
		DC:           hit.DC,
		Advantage:    smods.Advantage,
		Disadvantage: smods.Disadvantage,
		AutoFail:     smods.AutoFail,
		SavingThrow:  true,
	})
	if save.Success {
		arena.Record("%s resists being %s", tp.Name(), hit.Condition)
		return false, nil
	}
	err := arena.AddCondition(target, hit.Condition, condition.Spec{
		SaveDC:      hit.DC,
		SaveAbility: hit.Save,
		Source:      ap.Name(),
	})
	return err == nil, err
}
