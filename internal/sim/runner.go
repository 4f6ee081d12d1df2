// Package sim auto-plays encounters between the hero party and a randomly
// spawned monster team.
package sim

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/samdwyer/turnkeeper/internal/check"
	"github.com/samdwyer/turnkeeper/internal/combat"
	"github.com/samdwyer/turnkeeper/internal/concentration"
	"github.com/samdwyer/turnkeeper/internal/dice"
	"github.com/samdwyer/turnkeeper/internal/encounter"
	"github.com/samdwyer/turnkeeper/internal/entity"
	"github.com/samdwyer/turnkeeper/internal/gamedata"
	"github.com/samdwyer/turnkeeper/internal/telemetry"
)

// Team names used by the simulator.
const (
	TeamHeroes   = "heroes"
	TeamMonsters = "monsters"
)

// moveStep is how far a combatant closes in each turn.
const moveStep = 10

// epoch anchors the round clock so simulated durations are reproducible.
var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Config controls one simulated encounter.
type Config struct {
	// Seed for dice and monster selection. 0 picks a time-based seed.
	Seed     int64
	MaxTurns int
	// Heroes are creature ids; empty means every hero in the registry.
	Heroes   []string
	Monsters int
}

// Report summarizes a finished encounter.
type Report struct {
	Seed      int64
	Winner    string
	Reason    string
	Rounds    int
	Turns     int
	Survivors []string
	Log       []string
}

// combatant is a participant plus the template data the AI needs.
type combatant struct {
	handle entity.Handle
	p      entity.Participant
	def    *gamedata.CreatureDef
	attack combat.Attack
}

// Runner drives one encounter turn by turn.
type Runner struct {
	seed       int64
	enc        *encounter.Encounter
	resolver   *combat.Resolver
	combatants map[entity.Handle]*combatant
	maxTurns   int
	logger     *zap.Logger
}

// NewRunner spawns both teams from registry and sets up the encounter.
func NewRunner(ctx context.Context, cfg Config, registry *gamedata.CreatureRegistry, logger *zap.Logger) (*Runner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 200
	}
	rng := dice.NewSeeded(seed)

	heroes, err := spawnHeroes(cfg.Heroes, registry)
	if err != nil {
		return nil, err
	}
	monsters, err := spawnMonsters(cfg.Monsters, registry, rng)
	if err != nil {
		return nil, err
	}

	logger = logger.With(zap.Int64("seed", seed))
	enc, err := encounter.New(
		encounter.WithRoller(rng),
		encounter.WithLogger(logger),
		encounter.WithRoundClock(encounter.NewRoundClock(epoch)),
	)
	if err != nil {
		return nil, err
	}

	r := &Runner{
		seed:       seed,
		enc:        enc,
		resolver:   combat.NewResolver(check.NewD20(rng, check.WithLogger(logger)), rng, combat.WithLogger(logger.Named("combat"))),
		combatants: make(map[entity.Handle]*combatant),
		maxTurns:   maxTurns,
		logger:     logger,
	}

	teams := []*entity.Team{entity.NewTeam(TeamHeroes), entity.NewTeam(TeamMonsters)}
	for _, c := range heroes {
		teams[0].Members = append(teams[0].Members, c.p)
	}
	for _, c := range monsters {
		teams[1].Members = append(teams[1].Members, c.p)
	}
	if err := enc.Setup(ctx, teams); err != nil {
		return nil, err
	}

	for _, c := range append(heroes, monsters...) {
		h, _ := enc.Handle(c.p)
		c.handle = h
		r.combatants[h] = c
	}
	return r, nil
}

func spawnHeroes(ids []string, registry *gamedata.CreatureRegistry) ([]*combatant, error) {
	var defs []*gamedata.CreatureDef
	if len(ids) == 0 {
		defs = registry.Heroes()
	} else {
		for _, id := range ids {
			def := registry.GetByID(id)
			if def == nil {
				return nil, fmt.Errorf("unknown hero %q", id)
			}
			defs = append(defs, def)
		}
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("no heroes to spawn")
	}

	out := make([]*combatant, 0, len(defs))
	for _, def := range defs {
		c, err := newCombatant(def, def.Name, TeamHeroes)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func spawnMonsters(n int, registry *gamedata.CreatureRegistry, rng *dice.Seeded) ([]*combatant, error) {
	if n <= 0 {
		n = 1
	}
	counts := make(map[string]int)
	out := make([]*combatant, 0, n)
	for i := 0; i < n; i++ {
		def := registry.SpawnRandom(rng.Rand())
		if def == nil {
			return nil, fmt.Errorf("no monsters to spawn")
		}
		counts[def.ID]++
		c, err := newCombatant(def, fmt.Sprintf("%s %d", def.Name, counts[def.ID]), TeamMonsters)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func newCombatant(def *gamedata.CreatureDef, name, team string) (*combatant, error) {
	atk, err := combat.AttackFromDef(def.PrimaryAttack())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", def.ID, err)
	}
	return &combatant{p: def.Spawn(name, team), def: def, attack: atk}, nil
}

// Encounter exposes the running encounter.
func (r *Runner) Encounter() *encounter.Encounter { return r.enc }

// Run plays turns until one team is left standing or the turn limit is
// reached, in which case the encounter is ended without a winner.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	tracer := telemetry.Tracer("sim")
	ctx, span := tracer.Start(ctx, "sim.run")
	defer span.End()

	for turns := 0; turns < r.maxTurns; turns++ {
		if err := ctx.Err(); err != nil {
			r.enc.EndCombat(ctx, "cancelled")
			return r.report(), err
		}
		if _, done := r.enc.Outcome(); done {
			break
		}

		cur, err := r.enc.Current()
		if err != nil {
			return r.report(), err
		}
		if err := r.takeTurn(ctx, cur.Handle); err != nil {
			return r.report(), err
		}

		if _, done := r.enc.Outcome(); done {
			break
		}
		if _, err := r.enc.AdvanceTurn(ctx); err != nil {
			return r.report(), err
		}
	}

	if _, done := r.enc.Outcome(); !done {
		r.enc.EndCombat(ctx, "turn limit reached")
	}

	rep := r.report()
	span.SetAttributes(
		attribute.Int64("seed", r.seed),
		attribute.String("winner", rep.Winner),
		attribute.Int("rounds", rep.Rounds),
		attribute.Int("turns", rep.Turns),
	)
	return rep, nil
}

// takeTurn plays one combatant's turn: keep up concentration, get off the
// floor, close in and attack the weakest enemy.
func (r *Runner) takeTurn(ctx context.Context, h entity.Handle) error {
	c, ok := r.combatants[h]
	if !ok {
		return fmt.Errorf("no combatant for handle %s", h)
	}

	r.maintainConcentration(h, c)

	if r.enc.HasCondition(h, "prone") {
		if err := r.enc.StandUp(h); err != nil {
			r.logger.Debug("cannot stand", zap.String("participant", c.p.Name()), zap.Error(err))
		}
	}
	if err := r.enc.Move(h, moveStep); err != nil {
		r.logger.Debug("cannot move", zap.String("participant", c.p.Name()), zap.Error(err))
	}

	target, ok := r.selectLowestHPEnemy(h)
	if !ok {
		return nil
	}
	if err := r.enc.UseResource(h, entity.KindAction, c.attack.Name); err != nil {
		r.enc.Record("%s cannot act: %v", c.p.Name(), err)
		return nil
	}
	if _, err := r.resolver.Attack(ctx, r.enc, h, target, c.attack); err != nil {
		return err
	}
	return nil
}

// maintainConcentration spends the bonus action to (re)start the caster's
// concentration spell when it is not already running.
func (r *Runner) maintainConcentration(h entity.Handle, c *combatant) {
	if c.def.Spellcasting == nil || c.def.Spellcasting.Concentration == nil {
		return
	}
	if _, active := r.enc.Concentration(h); active {
		return
	}
	spell := c.def.Spellcasting.Concentration
	if err := r.enc.UseResource(h, entity.KindBonusAction, spell.Name); err != nil {
		r.logger.Debug("cannot spend bonus action", zap.String("participant", c.p.Name()), zap.Error(err))
		return
	}

	seconds := concentration.ParseDuration(spell.Duration)
	payload := map[string]any{"ac_bonus": spell.ACBonus}
	if err := r.enc.StartConcentration(h, spell.Name, seconds, spell.Level, payload); err != nil {
		r.logger.Debug("cannot concentrate", zap.String("participant", c.p.Name()), zap.Error(err))
		return
	}

	if holder, ok := c.p.(entity.TemporaryBonusHolder); ok && spell.ACBonus != 0 {
		holder.AddTemporaryBonus(spell.Name, spell.ACBonus)
	}
}

// selectLowestHPEnemy returns the living enemy with the lowest HP; ties go
// to the earliest registered.
func (r *Runner) selectLowestHPEnemy(h entity.Handle) (entity.Handle, bool) {
	var (
		best   entity.Handle
		bestHP int
		found  bool
	)
	for _, e := range r.enc.Enemies(h) {
		hp := r.hp(e)
		if !found || hp < bestHP {
			best, bestHP, found = e, hp, true
		}
	}
	return best, found
}

func (r *Runner) hp(h entity.Handle) int {
	c, ok := r.combatants[h]
	if !ok {
		return 0
	}
	if withHP, ok := c.p.(interface{ HP() int }); ok {
		return withHP.HP()
	}
	return 0
}

func (r *Runner) report() Report {
	rep := Report{Seed: r.seed, Log: r.enc.Log()}
	if out, ok := r.enc.Outcome(); ok {
		rep.Winner = out.Winner
		rep.Reason = out.Reason
		rep.Rounds = out.Rounds
		rep.Turns = out.Turns
	}
	for _, c := range r.combatants {
		if c.p.IsAlive() {
			rep.Survivors = append(rep.Survivors, c.p.Name())
		}
	}
	slices.Sort(rep.Survivors)
	return rep
}
