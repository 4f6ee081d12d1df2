// Package encounter composes the initiative sequencer, action economy,
// condition registry and concentration tracker into a running encounter.
// It is the only entry point callers use to drive combat.
package encounter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/samdwyer/turnkeeper/internal/check"
	"github.com/samdwyer/turnkeeper/internal/concentration"
	"github.com/samdwyer/turnkeeper/internal/condition"
	"github.com/samdwyer/turnkeeper/internal/dice"
	"github.com/samdwyer/turnkeeper/internal/economy"
	"github.com/samdwyer/turnkeeper/internal/entity"
	tkerrors "github.com/samdwyer/turnkeeper/internal/errors"
	"github.com/samdwyer/turnkeeper/internal/initiative"
	"github.com/samdwyer/turnkeeper/internal/telemetry"
)

// Outcome describes how an encounter ended.
type Outcome struct {
	Winner string // "" on a draw or forced end
	Draw   bool
	Reason string
	Rounds int
	Turns  int
}

// TeamStatus is one team's living head count.
type TeamStatus struct {
	Name  string
	Alive int
	Total int
}

// Status is a snapshot of the encounter.
type Status struct {
	State   initiative.State
	Round   int
	Current string
	Teams   []TeamStatus
	Order   []initiative.Entry
}

// Encounter owns every piece of per-encounter state. All methods are safe
// for concurrent use; calls are serialized.
type Encounter struct {
	mu sync.Mutex

	roster        *entity.Roster
	roller        dice.Roller
	evaluator     check.Evaluator
	catalog       *condition.Catalog
	conditions    *condition.Registry
	concentration *concentration.Tracker
	economy       *economy.Tracker
	sequencer     *initiative.Sequencer

	logger     *zap.Logger
	tracer     trace.Tracer
	now        func() time.Time
	roundClock *RoundClock

	turns   int
	log     []string
	outcome *Outcome
}

// Option configures an Encounter.
type Option func(*Encounter)

// WithLogger sets the logger shared by every subsystem.
func WithLogger(l *zap.Logger) Option {
	return func(e *Encounter) { e.logger = l }
}

// WithTracer overrides the tracer; the default comes from telemetry.
func WithTracer(t trace.Tracer) Option {
	return func(e *Encounter) { e.tracer = t }
}

// WithRoller sets the dice source for initiative and the default evaluator.
func WithRoller(r dice.Roller) Option {
	return func(e *Encounter) { e.roller = r }
}

// WithEvaluator overrides the check and save evaluator.
func WithEvaluator(ev check.Evaluator) Option {
	return func(e *Encounter) { e.evaluator = ev }
}

// WithCatalog overrides the condition catalog.
func WithCatalog(c *condition.Catalog) Option {
	return func(e *Encounter) { e.catalog = c }
}

// WithClock sets the clock for minute, hour and concentration durations.
func WithClock(now func() time.Time) Option {
	return func(e *Encounter) { e.now = now }
}

// WithRoundClock drives durations from the round counter.
func WithRoundClock(c *RoundClock) Option {
	return func(e *Encounter) {
		e.roundClock = c
		e.now = c.Now
	}
}

// New creates an encounter in the NotStarted state.
func New(opts ...Option) (*Encounter, error) {
	e := &Encounter{
		roster: entity.NewRoster(),
		logger: zap.NewNop(),
		tracer: telemetry.Tracer("encounter"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.roller == nil {
		e.roller = dice.NewSeeded(time.Now().UnixNano())
	}
	if e.evaluator == nil {
		e.evaluator = check.NewD20(e.roller, check.WithLogger(e.logger))
	}
	if e.catalog == nil {
		c, err := condition.DefaultCatalog()
		if err != nil {
			return nil, tkerrors.Wrap(tkerrors.CodeUnknownCondition, "load condition catalog", err)
		}
		e.catalog = c
	}

	e.conditions = condition.NewRegistry(e.catalog, e.roster, e.evaluator,
		condition.WithLogger(e.logger.Named("conditions")),
		condition.WithClock(e.now),
	)
	e.concentration = concentration.NewTracker(e.roster, e.conditions, e.evaluator,
		concentration.WithLogger(e.logger.Named("concentration")),
		concentration.WithClock(e.now),
		concentration.WithBreakingConditions(e.catalog.BreakingConditions()...),
	)
	e.conditions.SetListener(e.concentration)
	e.economy = economy.NewTracker(e.roster, e.conditions,
		economy.WithLogger(e.logger.Named("economy")),
	)
	e.sequencer = initiative.NewSequencer(e.roster, e.roller,
		initiative.WithLogger(e.logger.Named("initiative")),
		initiative.WithModifiers(e.conditions),
	)
	return e, nil
}

// Setup registers every team member, rolls initiative and opens the first
// turn. Teams are registered in the order given.
func (e *Encounter) Setup(ctx context.Context, teams []*entity.Team, surprised ...entity.Participant) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, span := e.tracer.Start(ctx, "encounter.setup")
	defer span.End()

	if e.sequencer.State() != initiative.NotStarted {
		return tkerrors.New(tkerrors.CodeInvalidTransition, "encounter already set up")
	}
	if len(teams) < 2 {
		return tkerrors.Newf(tkerrors.CodeInvalidParticipant, "need at least two teams, got %d", len(teams))
	}

	var handles []entity.Handle
	for _, team := range teams {
		for _, p := range team.Members {
			if p == nil || p.Name() == "" {
				return tkerrors.Newf(tkerrors.CodeInvalidParticipant, "team %q has a participant without a name", team.Name)
			}
			handles = append(handles, e.roster.Register(p, team.Name))
		}
	}

	isSurprised := make(map[entity.Handle]bool, len(surprised))
	for _, p := range surprised {
		if h, ok := e.roster.HandleOf(p); ok {
			isSurprised[h] = true
		}
	}

	if err := e.sequencer.Start(handles, isSurprised); err != nil {
		return err
	}
	e.conditions.SetRound(1)

	first, err := e.sequencer.Current()
	if err != nil {
		return err
	}
	if err := e.economy.ResetTurn(first.Handle); err != nil {
		return err
	}

	span.SetAttributes(
		attribute.Int("participants", len(handles)),
		attribute.Int("teams", len(teams)),
		attribute.Int("surprised", len(isSurprised)),
		attribute.String("first", first.Name),
	)
	e.logger.Info("encounter started",
		zap.Int("participants", len(handles)),
		zap.String("first", first.Name),
	)
	for _, entry := range e.sequencer.Order() {
		e.record("%s rolls initiative %d", entry.Name, entry.Total)
	}
	e.record("Round 1: %s's turn", first.Name)
	return nil
}

// Handle returns the handle p was registered under.
func (e *Encounter) Handle(p entity.Participant) (entity.Handle, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.roster.HandleOf(p)
}

// Participant returns the participant registered under h.
func (e *Encounter) Participant(h entity.Handle) (entity.Participant, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.roster.Lookup(h)
}

// Team returns the team h was registered under.
func (e *Encounter) Team(h entity.Handle) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.roster.Team(h)
}

// Enemies returns the living participants not on h's team, in
// registration order.
func (e *Encounter) Enemies(h entity.Handle) []entity.Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	team := e.roster.Team(h)
	var out []entity.Handle
	for _, other := range e.roster.Handles() {
		p, _ := e.roster.Lookup(other)
		if e.roster.Team(other) != team && p.IsAlive() {
			out = append(out, other)
		}
	}
	return out
}

// Current returns whose turn it is.
func (e *Encounter) Current() (initiative.Entry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sequencer.Current()
}

// AdvanceTurn ends the current turn and starts the next one. The
// turn-start sequence is: drop economy state of the dead, move the cursor,
// expire round-based conditions and sweep concentration on a new round,
// roll end-of-turn saves for the participant whose turn just ended, then
// reset the new participant's resources.
func (e *Encounter) AdvanceTurn(ctx context.Context) (initiative.Step, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ctx, span := e.tracer.Start(ctx, "encounter.turn")
	defer span.End()

	if e.outcome != nil {
		return initiative.Step{}, tkerrors.New(tkerrors.CodeInvalidTransition, "encounter has ended")
	}
	prev, err := e.sequencer.Current()
	if err != nil {
		return initiative.Step{}, err
	}

	e.economy.CleanupDead()

	step, err := e.sequencer.Advance()
	if err != nil {
		return initiative.Step{}, err
	}
	e.turns++

	if step.Ended {
		e.finish(ctx, step.Winner, "victory")
		span.SetAttributes(attribute.Bool("ended", true), attribute.String("winner", step.Winner))
		return step, nil
	}

	if step.NewRound {
		if e.roundClock != nil {
			e.roundClock.SetRound(step.Round)
		}
		expired := e.conditions.AdvanceTime(step.Round - e.conditions.Round())
		broken := e.concentration.Sweep()
		e.record("Round %d begins", step.Round)
		span.SetAttributes(
			attribute.Int("conditions_expired", expired),
			attribute.Int("concentration_broken", broken),
		)
	}

	if saved := e.conditions.ProcessEndOfTurnSaves(prev.Handle); saved > 0 {
		e.record("%s shakes off %d condition(s)", prev.Name, saved)
	}
	if err := e.economy.ResetTurn(step.Current.Handle); err != nil {
		return step, err
	}

	for _, name := range step.Skipped {
		e.record("%s is down and skips the turn", name)
	}
	e.record("Round %d: %s's turn", step.Round, step.Current.Name)
	e.logger.Debug("turn started",
		zap.String("participant", step.Current.Name),
		zap.Int("round", step.Round),
	)

	span.SetAttributes(
		attribute.String("participant", step.Current.Name),
		attribute.Int("round", step.Round),
		attribute.Int("turn", e.turns),
		attribute.Bool("new_round", step.NewRound),
	)
	return step, nil
}

// ApplyDamage deals amount of kind to h through its damage sink and
// returns the damage actually taken. A participant that drops to zero
// loses its concentration and conditions; one that survives rolls a
// concentration save. If the damage leaves fewer than two teams standing
// the encounter ends immediately.
func (e *Encounter) ApplyDamage(ctx context.Context, h entity.Handle, amount int, kind entity.DamageType) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ctx, span := e.tracer.Start(ctx, "encounter.damage")
	defer span.End()

	p, ok := e.roster.Lookup(h)
	if !ok {
		return 0, tkerrors.Newf(tkerrors.CodeInvalidParticipant, "unknown participant %s", h)
	}
	target, ok := p.(entity.Damageable)
	if !ok {
		return 0, tkerrors.Newf(tkerrors.CodeInvalidParticipant, "%s cannot take damage", p.Name())
	}
	if !p.IsAlive() {
		return 0, nil
	}

	dealt := target.TakeDamage(amount, kind)
	span.SetAttributes(
		attribute.String("participant", p.Name()),
		attribute.Int("damage", dealt),
		attribute.String("type", string(kind)),
	)

	if !p.IsAlive() {
		e.concentration.Break(h, "caster died")
		e.conditions.Cleanup(h)
		e.record("%s takes %d %s damage and falls", p.Name(), dealt, kind)
		span.SetAttributes(attribute.Bool("killed", true))

		if living := e.roster.LivingTeams(); len(living) < 2 && e.outcome == nil {
			winner := ""
			if len(living) == 1 {
				winner = living[0]
			}
			e.sequencer.End(winner)
			e.finish(ctx, winner, "victory")
		}
		return dealt, nil
	}

	e.record("%s takes %d %s damage", p.Name(), dealt, kind)
	if dealt > 0 && e.concentration.IsConcentrating(h) {
		e.concentration.OnDamage(h, dealt)
		if !e.concentration.IsConcentrating(h) {
			e.record("%s loses concentration", p.Name())
		}
	}
	return dealt, nil
}

// UseResource spends one turn resource for h.
func (e *Encounter) UseResource(h entity.Handle, kind entity.ActionKind, label string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.active(); err != nil {
		return err
	}
	return e.economy.Use(h, kind, label)
}

// CanUse reports whether h could spend kind now.
func (e *Encounter) CanUse(h entity.Handle, kind entity.ActionKind) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.active(); err != nil {
		return err
	}
	return e.economy.CanUse(h, kind)
}

// Move spends movement for h. Crawling costs double.
func (e *Encounter) Move(h entity.Handle, feet int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.active(); err != nil {
		return err
	}
	m := e.conditions.MovementRestrictions(h)
	if !m.CanMove {
		return tkerrors.Newf(tkerrors.CodeResourceUnavailable, "cannot move while %s", m.Reason)
	}
	cost := feet
	if m.CrawlOnly {
		cost *= 2
	}
	return e.economy.UseMovement(h, cost)
}

// StandUp spends half of h's speed to end the prone condition.
func (e *Encounter) StandUp(h entity.Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.active(); err != nil {
		return err
	}
	if !e.conditions.Has(h, "prone") {
		return nil
	}
	p, ok := e.roster.Lookup(h)
	if !ok {
		return tkerrors.Newf(tkerrors.CodeInvalidParticipant, "unknown participant %s", h)
	}
	if err := e.economy.UseMovement(h, (p.Speed()+1)/2); err != nil {
		return err
	}
	e.conditions.Remove(h, "prone", "stood up")
	e.record("%s stands up", p.Name())
	return nil
}

// AddCondition applies a condition to h.
func (e *Encounter) AddCondition(h entity.Handle, name string, spec condition.Spec) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.conditions.Add(h, name, spec); err != nil {
		return err
	}
	if p, ok := e.roster.Lookup(h); ok {
		e.record("%s is %s", p.Name(), condition.Normalize(name))
	}
	return nil
}

// RemoveCondition removes a condition from h.
func (e *Encounter) RemoveCondition(h entity.Handle, name, reason string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conditions.Remove(h, name, reason)
}

// HasCondition reports whether h holds name.
func (e *Encounter) HasCondition(h entity.Handle, name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conditions.Has(h, name)
}

// Conditions returns h's active conditions.
func (e *Encounter) Conditions(h entity.Handle) []condition.Instance {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conditions.Active(h)
}

// DescribeConditions renders h's conditions on one line.
func (e *Encounter) DescribeConditions(h entity.Handle) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conditions.Describe(h)
}

// AttackModifiers returns condition-driven modifiers for attacker hitting
// defender.
func (e *Encounter) AttackModifiers(attacker, defender entity.Handle, within5ft bool) condition.AttackMods {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conditions.AttackModifiersAt(attacker, defender, within5ft)
}

// SaveModifiers returns condition-driven modifiers for h saving with
// ability.
func (e *Encounter) SaveModifiers(h entity.Handle, ability entity.Ability) condition.SaveMods {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conditions.SaveModifiers(h, ability)
}

// StartConcentration begins a concentration effect for a spellcaster.
func (e *Encounter) StartConcentration(h entity.Handle, name string, seconds, level int, payload map[string]any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.active(); err != nil {
		return err
	}
	p, ok := e.roster.Lookup(h)
	if !ok {
		return tkerrors.Newf(tkerrors.CodeInvalidParticipant, "unknown participant %s", h)
	}
	if _, ok := p.(entity.Spellcaster); !ok {
		return tkerrors.Newf(tkerrors.CodeInvalidParticipant, "%s is not a spellcaster", p.Name())
	}
	if err := e.concentration.Start(h, name, seconds, level, payload); err != nil {
		return err
	}
	e.record("%s concentrates on %s", p.Name(), name)
	return nil
}

// EndConcentration voluntarily ends h's concentration.
func (e *Encounter) EndConcentration(h entity.Handle) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.concentration.End(h)
}

// Concentration returns h's current effect.
func (e *Encounter) Concentration(h entity.Handle) (concentration.Effect, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.concentration.Effect(h)
}

// Economy returns h's resource state for this turn.
func (e *Encounter) Economy(h entity.Handle) (economy.State, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.economy.Status(h)
}

// EndCombat forces the encounter to end without a winner, whatever state
// the sequencer is in. Ending an ended encounter is a no-op.
func (e *Encounter) EndCombat(ctx context.Context, reason string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.outcome != nil {
		return
	}
	e.sequencer.End("")
	e.finish(ctx, "", reason)
}

// Outcome returns the result once the encounter has ended.
func (e *Encounter) Outcome() (Outcome, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.outcome == nil {
		return Outcome{}, false
	}
	return *e.outcome, true
}

// Status returns a snapshot of the encounter.
func (e *Encounter) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Status{
		State: e.sequencer.State(),
		Round: e.sequencer.Round(),
		Order: e.sequencer.Order(),
	}
	if cur, err := e.sequencer.Current(); err == nil {
		s.Current = cur.Name
	}
	for _, name := range e.roster.TeamNames() {
		team := entity.NewTeam(name, e.roster.Members(name)...)
		s.Teams = append(s.Teams, TeamStatus{
			Name:  name,
			Alive: team.AliveMemberCount(),
			Total: len(team.Members),
		})
	}
	return s
}

// Summary renders the turn order position on one line.
func (e *Encounter) Summary() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sequencer.Summary()
}

// Log returns the combat log lines so far.
func (e *Encounter) Log() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.log))
	copy(out, e.log)
	return out
}

// Record appends a line to the combat log.
func (e *Encounter) Record(format string, args ...any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record(format, args...)
}

func (e *Encounter) record(format string, args ...any) {
	e.log = append(e.log, fmt.Sprintf(format, args...))
}

func (e *Encounter) active() error {
	if e.sequencer.State() != initiative.Active {
		return tkerrors.Newf(tkerrors.CodeInvalidTransition, "encounter is %s", e.sequencer.State())
	}
	return nil
}

// finish records the outcome and clears every per-encounter registry.
func (e *Encounter) finish(ctx context.Context, winner, reason string) {
	_, span := e.tracer.Start(ctx, "encounter.end")
	defer span.End()

	e.outcome = &Outcome{
		Winner: winner,
		Draw:   winner == "" && reason == "victory",
		Reason: reason,
		Rounds: e.sequencer.Round(),
		Turns:  e.turns,
	}

	e.conditions.Clear()
	e.concentration.Clear()
	e.economy.Clear()

	span.SetAttributes(
		attribute.String("winner", winner),
		attribute.String("reason", reason),
		attribute.Int("rounds", e.outcome.Rounds),
		attribute.Int("turns_taken", e.turns),
	)
	switch {
	case winner != "":
		e.record("Encounter over: %s win", winner)
	case e.outcome.Draw:
		e.record("Encounter over: no side left standing")
	default:
		e.record("Encounter ended: %s", reason)
	}
	e.logger.Info("encounter ended",
		zap.String("winner", winner),
		zap.String("reason", reason),
		zap.Int("rounds", e.outcome.Rounds),
		zap.Int("turns", e.turns),
	)
}
