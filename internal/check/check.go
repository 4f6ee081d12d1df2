// Package check resolves d20 tests: ability checks, saving throws and attack
// rolls against a difficulty class.
package check

import (
	"go.uber.org/zap"

	"github.com/samdwyer/turnkeeper/internal/dice"
	"github.com/samdwyer/turnkeeper/internal/entity"
)

// MeetsDifficulty returns true if total >= difficulty.
func MeetsDifficulty(total, difficulty int) bool {
	return total >= difficulty
}

// Margin calculates the margin of success or failure.
// Positive values indicate success, negative indicate failure.
func Margin(total, difficulty int) int {
	return total - difficulty
}

// Request describes one d20 test.
type Request struct {
	Ability      entity.Ability
	DC           int // Difficulty class, or target AC for attack rolls
	Advantage    bool
	Disadvantage bool
	SavingThrow  bool
	AttackRoll   bool
	// AutoFail forces failure without rolling (e.g. a stunned creature's
	// Dexterity save).
	AutoFail bool
	// Bonus is a flat addition on top of modifier and proficiency.
	Bonus int
}

// Result represents the outcome of a d20 test.
type Result struct {
	Success  bool
	Total    int
	Natural  int // The d20 face used; 0 when the test auto-failed
	Margin   int
	Critical bool // Natural 20 on an attack roll
}

// Evaluator performs checks and saves for the encounter core.
type Evaluator interface {
	PerformCheck(p entity.Participant, req Request) Result
}

// EvaluatorFunc adapts a function to the Evaluator interface.
type EvaluatorFunc func(p entity.Participant, req Request) Result

// PerformCheck calls f.
func (f EvaluatorFunc) PerformCheck(p entity.Participant, req Request) Result {
	return f(p, req)
}

// D20 is the stock evaluator: d20 + ability modifier + proficiency.
type D20 struct {
	roller dice.Roller
	logger *zap.Logger
}

// Option configures a D20 evaluator.
type Option func(*D20)

// WithLogger sets the logger used to report rolls.
func WithLogger(l *zap.Logger) Option {
	return func(d *D20) { d.logger = l }
}

// NewD20 creates an evaluator drawing from roller.
func NewD20(roller dice.Roller, opts ...Option) *D20 {
	d := &D20{roller: roller, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// PerformCheck rolls the test described by req for p.
func (d *D20) PerformCheck(p entity.Participant, req Request) Result {
	if req.AutoFail {
		d.logger.Debug("check auto-failed",
			zap.String("participant", p.Name()),
			zap.String("ability", string(req.Ability)),
			zap.Int("dc", req.DC),
		)
		return Result{Success: false, Margin: -req.DC}
	}

	natural := d.rollFace(req.Advantage, req.Disadvantage)
	total := natural + p.AbilityModifier(req.Ability) + req.Bonus + d.proficiency(p, req)

	res := Result{
		Total:   total,
		Natural: natural,
		Margin:  Margin(total, req.DC),
		Success: MeetsDifficulty(total, req.DC),
	}
	if req.AttackRoll {
		switch natural {
		case 20:
			res.Success, res.Critical = true, true
		case 1:
			res.Success = false
		}
	}

	d.logger.Debug("check rolled",
		zap.String("participant", p.Name()),
		zap.String("ability", string(req.Ability)),
		zap.Int("natural", natural),
		zap.Int("total", total),
		zap.Int("dc", req.DC),
		zap.Bool("success", res.Success),
	)
	return res
}

// rollFace rolls one d20, or two when exactly one of advantage or
// disadvantage applies.
func (d *D20) rollFace(advantage, disadvantage bool) int {
	if advantage == disadvantage {
		return d.roller.RollD20()
	}
	a, b := d.roller.RollD20(), d.roller.RollD20()
	if advantage {
		return max(a, b)
	}
	return min(a, b)
}

func (d *D20) proficiency(p entity.Participant, req Request) int {
	switch {
	case req.AttackRoll:
		return p.ProficiencyBonus()
	case req.SavingThrow:
		if sp, ok := p.(entity.SaveProficient); ok && sp.IsSaveProficient(req.Ability) {
			return p.ProficiencyBonus()
		}
	}
	return 0
}
