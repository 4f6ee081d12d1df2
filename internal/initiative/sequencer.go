// Package initiative orders encounter participants and walks the turn
// cursor through rounds.
package initiative

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/samdwyer/turnkeeper/internal/condition"
	"github.com/samdwyer/turnkeeper/internal/dice"
	"github.com/samdwyer/turnkeeper/internal/entity"
	tkerrors "github.com/samdwyer/turnkeeper/internal/errors"
)

// State is the sequencer lifecycle state.
type State int

const (
	NotStarted State = iota
	Active
	Ended
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "NOT_STARTED"
	case Active:
		return "ACTIVE"
	case Ended:
		return "ENDED"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Roster is what the sequencer needs to know about participants.
type Roster interface {
	entity.Directory
	LivingTeams() []string
}

// Modifiers supplies condition-based initiative adjustments.
type Modifiers interface {
	InitiativeModifiers(h entity.Handle) condition.InitiativeMods
}

// Entry is one participant's place in the turn order.
type Entry struct {
	Handle    entity.Handle
	Name      string
	Natural   int
	Modifier  int
	Total     int
	Surprised bool
}

// Step is the result of one Advance.
type Step struct {
	Current  Entry
	Round    int
	NewRound bool
	Skipped  []string // names of dead participants passed over
	Ended    bool
	Winner   string // "" on a draw
}

// Sequencer computes turn order once and advances the turn cursor.
// It is not safe for concurrent use.
type Sequencer struct {
	roster    Roster
	roller    dice.Roller
	modifiers Modifiers
	logger    *zap.Logger

	entries []Entry
	index   int
	round   int
	state   State
	winner  string
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithLogger sets the sequencer logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Sequencer) { s.logger = l }
}

// WithModifiers sets the source of condition-based initiative modifiers.
func WithModifiers(m Modifiers) Option {
	return func(s *Sequencer) { s.modifiers = m }
}

// NewSequencer creates a sequencer in the NotStarted state.
func NewSequencer(roster Roster, roller dice.Roller, opts ...Option) *Sequencer {
	s := &Sequencer{
		roster: roster,
		roller: roller,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start rolls initiative for handles and activates the sequencer at round
// 1. Surprised participants, and those whose conditions impose it, roll
// with disadvantage. Ties are broken by name, then by the order handles
// were given.
func (s *Sequencer) Start(handles []entity.Handle, surprised map[entity.Handle]bool) error {
	if s.state != NotStarted {
		return tkerrors.Newf(tkerrors.CodeInvalidTransition, "initiative already %s", s.state)
	}
	if len(handles) == 0 {
		return tkerrors.New(tkerrors.CodeInvalidParticipant, "no participants")
	}

	entries := make([]Entry, 0, len(handles))
	for _, h := range handles {
		p, ok := s.roster.Lookup(h)
		if !ok {
			return tkerrors.Newf(tkerrors.CodeInvalidParticipant, "unknown participant %s", h)
		}
		advantage, disadvantage := false, surprised[h]
		if s.modifiers != nil {
			mods := s.modifiers.InitiativeModifiers(h)
			advantage = mods.Advantage
			disadvantage = disadvantage || mods.Disadvantage
		}

		natural := s.rollFace(advantage, disadvantage)
		mod := p.AbilityModifier(entity.Dexterity)
		entries = append(entries, Entry{
			Handle:    h,
			Name:      p.Name(),
			Natural:   natural,
			Modifier:  mod,
			Total:     natural + mod,
			Surprised: surprised[h],
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Total != entries[j].Total {
			return entries[i].Total > entries[j].Total
		}
		return entries[i].Name < entries[j].Name
	})

	s.entries = entries
	s.index = 0
	s.round = 1
	s.state = Active

	for i, e := range entries {
		s.logger.Debug("initiative rolled",
			zap.Int("position", i+1),
			zap.String("participant", e.Name),
			zap.Int("natural", e.Natural),
			zap.Int("total", e.Total),
			zap.Bool("surprised", e.Surprised),
		)
	}

	// The first entry may already be dead; move to the first living one.
	if p, _ := s.roster.Lookup(s.entries[0].Handle); !p.IsAlive() {
		if _, err := s.Advance(); err != nil {
			return err
		}
		if s.state == Active {
			s.round = 1
		}
	}
	return nil
}

func (s *Sequencer) rollFace(advantage, disadvantage bool) int {
	if advantage == disadvantage {
		return s.roller.RollD20()
	}
	a, b := s.roller.RollD20(), s.roller.RollD20()
	if advantage {
		return max(a, b)
	}
	return min(a, b)
}

// Current returns the entry whose turn it is.
func (s *Sequencer) Current() (Entry, error) {
	if s.state != Active {
		return Entry{}, tkerrors.Newf(tkerrors.CodeInvalidTransition, "no current turn: encounter %s", s.state)
	}
	return s.entries[s.index], nil
}

// Advance moves the cursor to the next living participant, wrapping into a
// new round at the end of the order. When fewer than two teams have a
// living member the sequencer ends and the step reports the winner.
func (s *Sequencer) Advance() (Step, error) {
	if s.state != Active {
		return Step{}, tkerrors.Newf(tkerrors.CodeInvalidTransition, "cannot advance: encounter %s", s.state)
	}

	living := s.roster.LivingTeams()
	if len(living) < 2 {
		winner := ""
		if len(living) == 1 {
			winner = living[0]
		}
		s.finish(winner)
		return Step{Round: s.round, Ended: true, Winner: winner}, nil
	}

	step := Step{}
	startRound := s.round
	for i, n := 0, len(s.entries); i < n; i++ {
		s.index++
		if s.index >= len(s.entries) {
			s.index = 0
			s.round++
		}
		e := s.entries[s.index]
		if p, ok := s.roster.Lookup(e.Handle); ok && p.IsAlive() {
			break
		}
		step.Skipped = append(step.Skipped, e.Name)
	}

	step.Current = s.entries[s.index]
	step.Round = s.round
	step.NewRound = s.round != startRound
	if step.NewRound {
		s.logger.Info("round started", zap.Int("round", s.round))
	}
	return step, nil
}

// End forces the sequencer into the Ended state with the given winner.
func (s *Sequencer) End(winner string) {
	s.finish(winner)
}

func (s *Sequencer) finish(winner string) {
	if s.state == Ended {
		return
	}
	s.state = Ended
	s.winner = winner
	s.logger.Info("initiative ended",
		zap.Int("round", s.round),
		zap.String("winner", winner),
	)
}

// Order returns a copy of the full turn order, dead participants included.
func (s *Sequencer) Order() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Round returns the current round number (0 before Start).
func (s *Sequencer) Round() int { return s.round }

// State returns the lifecycle state.
func (s *Sequencer) State() State { return s.state }

// Winner returns the winning team once Ended; "" means a draw or that the
// sequencer has not ended.
func (s *Sequencer) Winner() string { return s.winner }

// Summary renders the round, the current participant and who is still to
// act this round.
func (s *Sequencer) Summary() string {
	if s.state != Active {
		return fmt.Sprintf("Initiative %s", s.state)
	}
	var upcoming []string
	for _, e := range s.entries[s.index+1:] {
		if p, ok := s.roster.Lookup(e.Handle); ok && p.IsAlive() {
			upcoming = append(upcoming, e.Name)
		}
	}
	next := "end of round"
	if len(upcoming) > 0 {
		next = strings.Join(upcoming, ", ")
	}
	return fmt.Sprintf("Round %d | Current: %s | Up next: %s", s.round, s.entries[s.index].Name, next)
}
