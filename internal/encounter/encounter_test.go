package encounter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/samdwyer/turnkeeper/internal/check"
	"github.com/samdwyer/turnkeeper/internal/condition"
	"github.com/samdwyer/turnkeeper/internal/dice"
	"github.com/samdwyer/turnkeeper/internal/entity"
	tkerrors "github.com/samdwyer/turnkeeper/internal/errors"
	"github.com/samdwyer/turnkeeper/internal/initiative"
	"github.com/samdwyer/turnkeeper/internal/telemetry"
)

func creature(name string, hp int) *entity.Creature {
	return entity.NewCreature(entity.CreatureSpec{
		Name:   name,
		Level:  1,
		AC:     12,
		HP:     hp,
		Speed:  30,
		Scores: entity.Scores{Str: 12, Dex: 10, Con: 12, Int: 10, Wis: 10, Cha: 10},
	})
}

func wizard(name string, hp int) *entity.Caster {
	return entity.NewCaster(creature(name, hp), entity.Intelligence)
}

// saves is a scripted evaluator; it records every request it sees.
type saves struct {
	mu       sync.Mutex
	pass     bool
	requests []check.Request
}

func (s *saves) PerformCheck(_ entity.Participant, req check.Request) check.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	return check.Result{Success: s.pass && !req.AutoFail}
}

func newEncounter(t *testing.T, ev check.Evaluator, initiativeRolls ...int) *Encounter {
	t.Helper()
	opts := []Option{
		WithRoller(dice.NewQueue(initiativeRolls...)),
		WithTracer(telemetry.NoopTracer()),
	}
	if ev != nil {
		opts = append(opts, WithEvaluator(ev))
	}
	enc, err := New(opts...)
	require.NoError(t, err)
	return enc
}

func handle(t *testing.T, enc *Encounter, p entity.Participant) entity.Handle {
	t.Helper()
	h, ok := enc.Handle(p)
	require.True(t, ok, "participant %s not registered", p.Name())
	return h
}

func TestMonstersWinWhenFighterDrops(t *testing.T) {
	ctx := context.Background()
	fighter := creature("Fighter", 1)
	goblin := creature("Goblin", 7)

	enc := newEncounter(t, nil, 5, 15)
	require.NoError(t, enc.Setup(ctx, []*entity.Team{
		entity.NewTeam("heroes", fighter),
		entity.NewTeam("monsters", goblin),
	}))

	cur, err := enc.Current()
	require.NoError(t, err)
	require.Equal(t, "Goblin", cur.Name)

	gh := handle(t, enc, goblin)
	fh := handle(t, enc, fighter)
	require.NoError(t, enc.UseResource(gh, entity.KindAction, "Scimitar"))
	dealt, err := enc.ApplyDamage(ctx, fh, 5, entity.DamageSlashing)
	require.NoError(t, err)
	require.Equal(t, 1, dealt, "damage taken is capped at remaining HP")
	require.False(t, fighter.IsAlive())

	out, ok := enc.Outcome()
	require.True(t, ok)
	require.Equal(t, "monsters", out.Winner)
	require.False(t, out.Draw)
	require.Equal(t, initiative.Ended, enc.Status().State)

	_, err = enc.AdvanceTurn(ctx)
	require.True(t, errors.Is(err, tkerrors.ErrInvalidTransition))
}

func TestVictoryDetectedOnAdvance(t *testing.T) {
	ctx := context.Background()
	fighter := creature("Fighter", 1)
	goblin := creature("Goblin", 7)

	enc := newEncounter(t, nil, 5, 15)
	require.NoError(t, enc.Setup(ctx, []*entity.Team{
		entity.NewTeam("heroes", fighter),
		entity.NewTeam("monsters", goblin),
	}))

	// Damage applied outside the orchestrator is caught at the next advance.
	fighter.TakeDamage(3, entity.DamageSlashing)

	step, err := enc.AdvanceTurn(ctx)
	require.NoError(t, err)
	require.True(t, step.Ended)
	require.Equal(t, "monsters", step.Winner)
}

func TestUnconsciousImpliesAndBreaksConcentration(t *testing.T) {
	ctx := context.Background()
	mage := wizard("Mage", 20)
	orc := creature("Orc", 15)

	enc := newEncounter(t, &saves{pass: true}, 18, 4)
	require.NoError(t, enc.Setup(ctx, []*entity.Team{
		entity.NewTeam("heroes", mage),
		entity.NewTeam("monsters", orc),
	}))
	mh := handle(t, enc, mage)

	require.NoError(t, enc.StartConcentration(mh, "Bless", 60, 1, nil))
	require.NoError(t, enc.AddCondition(mh, "unconscious", condition.Spec{}))

	require.True(t, enc.HasCondition(mh, "incapacitated"))
	require.True(t, enc.HasCondition(mh, "prone"))
	require.True(t, mage.Conditions().Has("prone"))

	_, concentrating := enc.Concentration(mh)
	require.False(t, concentrating, "unconscious should break concentration")
	require.Equal(t, "Incapacitated (while unconscious), Prone (while unconscious), Unconscious (permanent)", enc.DescribeConditions(mh))
}

func TestOnlySpellcastersConcentrate(t *testing.T) {
	ctx := context.Background()
	fighter := creature("Fighter", 12)
	orc := creature("Orc", 15)

	enc := newEncounter(t, nil, 10, 5)
	require.NoError(t, enc.Setup(ctx, []*entity.Team{
		entity.NewTeam("heroes", fighter),
		entity.NewTeam("monsters", orc),
	}))

	err := enc.StartConcentration(handle(t, enc, fighter), "Bless", 60, 1, nil)
	require.Equal(t, tkerrors.CodeInvalidParticipant, tkerrors.CodeOf(err))
}

func TestConcentrationSaveAfterDamage(t *testing.T) {
	ctx := context.Background()
	mage := wizard("Mage", 40)
	orc := creature("Orc", 15)
	ev := &saves{pass: false}

	enc := newEncounter(t, ev, 18, 4)
	require.NoError(t, enc.Setup(ctx, []*entity.Team{
		entity.NewTeam("heroes", mage),
		entity.NewTeam("monsters", orc),
	}))
	mh := handle(t, enc, mage)

	require.NoError(t, enc.StartConcentration(mh, "Shield of Faith", 600, 1, nil))
	mage.AddTemporaryBonus("Shield of Faith", 2)
	require.Equal(t, 14, mage.ArmorClass())

	_, err := enc.ApplyDamage(ctx, mh, 30, entity.DamageFire)
	require.NoError(t, err)

	require.Len(t, ev.requests, 1)
	require.Equal(t, 15, ev.requests[0].DC)
	require.Equal(t, entity.Constitution, ev.requests[0].Ability)
	require.True(t, ev.requests[0].SavingThrow)

	_, concentrating := enc.Concentration(mh)
	require.False(t, concentrating)
	require.Equal(t, 12, mage.ArmorClass(), "breaking concentration removes the effect's bonus")
}

func TestDeathClearsConditionsAndConcentration(t *testing.T) {
	ctx := context.Background()
	mage := wizard("Mage", 5)
	cleric := wizard("Cleric", 10)
	orc := creature("Orc", 15)

	enc := newEncounter(t, &saves{pass: true}, 18, 15, 4)
	require.NoError(t, enc.Setup(ctx, []*entity.Team{
		entity.NewTeam("heroes", mage, cleric),
		entity.NewTeam("monsters", orc),
	}))
	mh := handle(t, enc, mage)

	require.NoError(t, enc.StartConcentration(mh, "Bless", 60, 1, nil))
	require.NoError(t, enc.AddCondition(mh, "poisoned", condition.Spec{}))

	_, err := enc.ApplyDamage(ctx, mh, 10, entity.DamagePiercing)
	require.NoError(t, err)

	_, concentrating := enc.Concentration(mh)
	require.False(t, concentrating)
	require.Empty(t, enc.Conditions(mh))
	require.Empty(t, mage.Conditions().Names())

	_, ended := enc.Outcome()
	require.False(t, ended, "the cleric is still standing")
}

func TestResourcesResetEachTurn(t *testing.T) {
	ctx := context.Background()
	fighter := creature("Fighter", 12)
	orc := creature("Orc", 15)

	enc := newEncounter(t, nil, 15, 5)
	require.NoError(t, enc.Setup(ctx, []*entity.Team{
		entity.NewTeam("heroes", fighter),
		entity.NewTeam("monsters", orc),
	}))
	fh := handle(t, enc, fighter)

	require.NoError(t, enc.CanUse(fh, entity.KindAction))
	require.NoError(t, enc.UseResource(fh, entity.KindAction, "Attack"))
	require.True(t, errors.Is(enc.CanUse(fh, entity.KindAction), tkerrors.ErrResourceUnavailable))
	require.True(t, errors.Is(enc.UseResource(fh, entity.KindAction, "Attack"), tkerrors.ErrResourceUnavailable))
	require.NoError(t, enc.Move(fh, 30))
	require.Error(t, enc.Move(fh, 5))

	_, err := enc.AdvanceTurn(ctx) // Orc
	require.NoError(t, err)
	step, err := enc.AdvanceTurn(ctx) // Fighter, round 2
	require.NoError(t, err)
	require.True(t, step.NewRound)
	require.Equal(t, 2, step.Round)

	require.NoError(t, enc.UseResource(fh, entity.KindAction, "Attack"))
	st, ok := enc.Economy(fh)
	require.True(t, ok)
	require.Equal(t, 30, st.MovementLeft())
}

func TestIncapacitatedCannotAct(t *testing.T) {
	ctx := context.Background()
	fighter := creature("Fighter", 12)
	orc := creature("Orc", 15)

	enc := newEncounter(t, nil, 15, 5)
	require.NoError(t, enc.Setup(ctx, []*entity.Team{
		entity.NewTeam("heroes", fighter),
		entity.NewTeam("monsters", orc),
	}))
	fh := handle(t, enc, fighter)

	require.NoError(t, enc.AddCondition(fh, "stunned", condition.Spec{SaveDC: 12}))
	err := enc.UseResource(fh, entity.KindAction, "Attack")
	require.Equal(t, tkerrors.CodeResourceUnavailable, tkerrors.CodeOf(err))
	require.Error(t, enc.Move(fh, 5))

	st, _ := enc.Economy(fh)
	require.False(t, st.ActionUsed)
}

func TestProneCrawlAndStand(t *testing.T) {
	ctx := context.Background()
	fighter := creature("Fighter", 12)
	orc := creature("Orc", 15)

	enc := newEncounter(t, nil, 15, 5)
	require.NoError(t, enc.Setup(ctx, []*entity.Team{
		entity.NewTeam("heroes", fighter),
		entity.NewTeam("monsters", orc),
	}))
	fh := handle(t, enc, fighter)

	require.NoError(t, enc.AddCondition(fh, "prone", condition.Spec{}))
	require.NoError(t, enc.Move(fh, 5)) // costs 10
	require.NoError(t, enc.StandUp(fh)) // costs 15
	require.False(t, enc.HasCondition(fh, "prone"))

	st, _ := enc.Economy(fh)
	require.Equal(t, 5, st.MovementLeft())
}

func TestRoundConditionsExpireOverTurns(t *testing.T) {
	ctx := context.Background()
	fighter := creature("Fighter", 12)
	orc := creature("Orc", 15)

	enc := newEncounter(t, nil, 15, 5)
	require.NoError(t, enc.Setup(ctx, []*entity.Team{
		entity.NewTeam("heroes", fighter),
		entity.NewTeam("monsters", orc),
	}))
	oh := handle(t, enc, orc)

	// Applied in round 1 for 2 rounds: present through round 2, gone in round 3.
	require.NoError(t, enc.AddCondition(oh, "poisoned", condition.Spec{Kind: condition.Rounds, Value: 2}))
	require.NoError(t, enc.AddCondition(oh, "frightened", condition.Spec{Kind: condition.SaveEnds, SaveAbility: entity.Wisdom}))

	advance := func() initiative.Step {
		step, err := enc.AdvanceTurn(ctx)
		require.NoError(t, err)
		return step
	}

	advance() // Orc, round 1
	advance() // Fighter, round 2
	require.True(t, enc.HasCondition(oh, "poisoned"))
	advance() // Orc, round 2
	require.True(t, enc.HasCondition(oh, "poisoned"))
	step := advance() // Fighter, round 3
	require.Equal(t, 3, step.Round)
	require.False(t, enc.HasCondition(oh, "poisoned"))

	for i := 0; i < 20; i++ {
		advance()
	}
	require.True(t, enc.HasCondition(oh, "frightened"), "save-ends conditions never expire with time")
}

func TestEndOfTurnSavesRunForOutgoingParticipant(t *testing.T) {
	ctx := context.Background()
	fighter := creature("Fighter", 12)
	orc := creature("Orc", 15)
	ev := &saves{pass: false}

	enc := newEncounter(t, ev, 15, 5)
	require.NoError(t, enc.Setup(ctx, []*entity.Team{
		entity.NewTeam("heroes", fighter),
		entity.NewTeam("monsters", orc),
	}))
	fh := handle(t, enc, fighter)

	require.NoError(t, enc.AddCondition(fh, "poisoned", condition.Spec{Kind: condition.SaveEnds, SaveDC: 13, SaveAbility: entity.Constitution}))

	_, err := enc.AdvanceTurn(ctx) // Fighter's turn ends: one failed save
	require.NoError(t, err)
	require.Len(t, ev.requests, 1)
	require.Equal(t, 13, ev.requests[0].DC)
	require.True(t, enc.HasCondition(fh, "poisoned"))

	_, err = enc.AdvanceTurn(ctx) // Orc's turn ends: no save for the Fighter
	require.NoError(t, err)
	require.Len(t, ev.requests, 1)

	ev.pass = true
	_, err = enc.AdvanceTurn(ctx) // Fighter's turn ends again
	require.NoError(t, err)
	require.False(t, enc.HasCondition(fh, "poisoned"))
}

func TestRoundClockExpiresMinuteDurations(t *testing.T) {
	ctx := context.Background()
	fighter := creature("Fighter", 12)
	orc := creature("Orc", 15)
	clock := NewRoundClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	enc, err := New(
		WithRoller(dice.NewQueue(15, 5)),
		WithTracer(telemetry.NoopTracer()),
		WithRoundClock(clock),
	)
	require.NoError(t, err)
	require.NoError(t, enc.Setup(ctx, []*entity.Team{
		entity.NewTeam("heroes", fighter),
		entity.NewTeam("monsters", orc),
	}))
	oh := handle(t, enc, orc)
	require.NoError(t, enc.AddCondition(oh, "blinded", condition.Spec{Kind: condition.Minutes, Value: 1}))

	// Ten rounds make a minute: round 11 starts at +60s.
	for enc.Status().Round < 10 {
		_, err := enc.AdvanceTurn(ctx)
		require.NoError(t, err)
	}
	require.True(t, enc.HasCondition(oh, "blinded"))

	for enc.Status().Round < 11 {
		_, err := enc.AdvanceTurn(ctx)
		require.NoError(t, err)
	}
	require.False(t, enc.HasCondition(oh, "blinded"))
}

func TestEndCombatForcesTermination(t *testing.T) {
	ctx := context.Background()
	fighter := creature("Fighter", 12)
	orc := creature("Orc", 15)

	enc := newEncounter(t, nil, 15, 5)
	require.NoError(t, enc.Setup(ctx, []*entity.Team{
		entity.NewTeam("heroes", fighter),
		entity.NewTeam("monsters", orc),
	}))
	fh := handle(t, enc, fighter)
	require.NoError(t, enc.AddCondition(fh, "prone", condition.Spec{}))

	enc.EndCombat(ctx, "turn limit reached")
	enc.EndCombat(ctx, "again")

	out, ok := enc.Outcome()
	require.True(t, ok)
	require.Equal(t, "turn limit reached", out.Reason)
	require.Empty(t, out.Winner)
	require.False(t, out.Draw)
	require.False(t, enc.HasCondition(fh, "prone"), "registries are cleared at the end")

	_, err := enc.AdvanceTurn(ctx)
	require.Error(t, err)
	require.Error(t, enc.UseResource(fh, entity.KindAction, "Attack"))
}

func TestSetupValidation(t *testing.T) {
	ctx := context.Background()

	enc := newEncounter(t, nil, 10)
	err := enc.Setup(ctx, []*entity.Team{entity.NewTeam("solo", creature("Hermit", 5))})
	require.Equal(t, tkerrors.CodeInvalidParticipant, tkerrors.CodeOf(err))

	enc = newEncounter(t, nil, 10, 10)
	teams := []*entity.Team{
		entity.NewTeam("a", creature("A", 5)),
		entity.NewTeam("b", creature("B", 5)),
	}
	require.NoError(t, enc.Setup(ctx, teams))
	require.True(t, errors.Is(enc.Setup(ctx, teams), tkerrors.ErrInvalidTransition))
}

func TestStatusAndLog(t *testing.T) {
	ctx := context.Background()
	fighter := creature("Fighter", 12)
	orc := creature("Orc", 15)
	wolf := creature("Wolf", 11)

	enc := newEncounter(t, nil, 15, 5, 3)
	require.NoError(t, enc.Setup(ctx, []*entity.Team{
		entity.NewTeam("heroes", fighter),
		entity.NewTeam("monsters", orc, wolf),
	}))

	st := enc.Status()
	require.Equal(t, initiative.Active, st.State)
	require.Equal(t, 1, st.Round)
	require.Equal(t, "Fighter", st.Current)
	require.Equal(t, []TeamStatus{
		{Name: "heroes", Alive: 1, Total: 1},
		{Name: "monsters", Alive: 2, Total: 2},
	}, st.Teams)
	require.Len(t, st.Order, 3)
	require.Equal(t, "Round 1 | Current: Fighter | Up next: Orc, Wolf", enc.Summary())
	require.Contains(t, enc.Log(), "Round 1: Fighter's turn")
}

func TestConcurrentEncountersAreIsolated(t *testing.T) {
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			fighter := creature("Fighter", 12)
			orc := creature("Orc", 15)
			enc, err := New(WithRoller(dice.NewSeeded(int64(i))), WithTracer(telemetry.NoopTracer()))
			if err != nil {
				t.Error(err)
				return
			}
			if err := enc.Setup(ctx, []*entity.Team{
				entity.NewTeam("heroes", fighter),
				entity.NewTeam("monsters", orc),
			}); err != nil {
				t.Error(err)
				return
			}
			oh, _ := enc.Handle(orc)
			_ = enc.AddCondition(oh, "prone", condition.Spec{})
			for j := 0; j < 10; j++ {
				if _, err := enc.AdvanceTurn(ctx); err != nil {
					t.Error(err)
					return
				}
			}
			if !enc.HasCondition(oh, "prone") {
				t.Error("prone should persist within its own encounter")
			}
		}()
	}
	wg.Wait()
}
