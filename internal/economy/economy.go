// Package economy tracks the per-turn resources each participant may spend:
// action, bonus action, reaction, movement and one free object interaction.
package economy

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/samdwyer/turnkeeper/internal/entity"
	tkerrors "github.com/samdwyer/turnkeeper/internal/errors"
)

// Restrictor answers whether a participant's conditions forbid a resource.
type Restrictor interface {
	PreventsAction(h entity.Handle, kind entity.ActionKind) (bool, string)
}

// State is one participant's resource usage for the current turn.
type State struct {
	ActionUsed          bool
	BonusActionUsed     bool
	ReactionUsed        bool
	FreeInteractionUsed bool
	MovementUsed        int
	MovementBudget      int
	// Spent records the label of each resource used this turn, in order.
	Spent []string
}

// MovementLeft returns the unspent part of the movement budget.
func (s State) MovementLeft() int { return max(0, s.MovementBudget-s.MovementUsed) }

func (s *State) flag(kind entity.ActionKind) *bool {
	switch kind {
	case entity.KindAction:
		return &s.ActionUsed
	case entity.KindBonusAction:
		return &s.BonusActionUsed
	case entity.KindReaction:
		return &s.ReactionUsed
	case entity.KindFreeInteraction:
		return &s.FreeInteractionUsed
	}
	return nil
}

// Tracker holds action-economy state for every participant in one
// encounter. It is not safe for concurrent use.
type Tracker struct {
	roster     entity.Directory
	restrictor Restrictor
	logger     *zap.Logger
	states     map[entity.Handle]*State
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the tracker logger.
func WithLogger(l *zap.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

// NewTracker creates a tracker. restrictor may be nil, in which case no
// condition ever forbids a resource.
func NewTracker(roster entity.Directory, restrictor Restrictor, opts ...Option) *Tracker {
	t := &Tracker{
		roster:     roster,
		restrictor: restrictor,
		logger:     zap.NewNop(),
		states:     make(map[entity.Handle]*State),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ResetTurn gives h a fresh set of resources with a movement budget equal
// to its current speed.
func (t *Tracker) ResetTurn(h entity.Handle) error {
	p, ok := t.roster.Lookup(h)
	if !ok {
		return tkerrors.Newf(tkerrors.CodeInvalidParticipant, "unknown participant %s", h)
	}
	t.states[h] = &State{MovementBudget: p.Speed()}
	t.logger.Debug("turn resources reset",
		zap.String("participant", p.Name()),
		zap.Int("movement", p.Speed()),
	)
	return nil
}

// CanUse reports whether h could spend kind right now. A nil error means
// yes; otherwise the error says why not.
func (t *Tracker) CanUse(h entity.Handle, kind entity.ActionKind) error {
	p, ok := t.roster.Lookup(h)
	if !ok {
		return tkerrors.Newf(tkerrors.CodeInvalidParticipant, "unknown participant %s", h)
	}
	if !p.IsAlive() {
		return tkerrors.Newf(tkerrors.CodeResourceUnavailable, "%s is dead", p.Name())
	}
	if t.restrictor != nil {
		if prevented, reason := t.restrictor.PreventsAction(h, kind); prevented {
			return tkerrors.WithMetadata(tkerrors.CodeResourceUnavailable, fmt.Sprintf("%s cannot use %s: %s", p.Name(), kind, reason), map[string]string{
				"resource": string(kind),
				"reason":   reason,
			})
		}
	}

	state := t.state(h, p)
	if kind == entity.KindMovement {
		if state.MovementLeft() <= 0 {
			return tkerrors.Newf(tkerrors.CodeResourceUnavailable, "%s has no movement left", p.Name())
		}
		return nil
	}
	used := state.flag(kind)
	if used == nil {
		return tkerrors.Newf(tkerrors.CodeResourceUnavailable, "unknown resource %q", kind)
	}
	if *used {
		return tkerrors.Newf(tkerrors.CodeResourceUnavailable, "%s already used %s this turn", p.Name(), kind)
	}
	return nil
}

// Use spends kind for h. On failure nothing changes and the reason is
// logged and returned.
func (t *Tracker) Use(h entity.Handle, kind entity.ActionKind, label string) error {
	if kind == entity.KindMovement {
		return tkerrors.New(tkerrors.CodeResourceUnavailable, "movement is spent with UseMovement")
	}
	if err := t.CanUse(h, kind); err != nil {
		t.logger.Warn("resource unavailable",
			zap.String("participant", t.name(h)),
			zap.String("resource", string(kind)),
			zap.Error(err),
		)
		return err
	}

	p, _ := t.roster.Lookup(h)
	state := t.state(h, p)
	*state.flag(kind) = true
	if label == "" {
		label = string(kind)
	}
	state.Spent = append(state.Spent, label)

	t.logger.Debug("resource used",
		zap.String("participant", p.Name()),
		zap.String("resource", string(kind)),
		zap.String("label", label),
	)
	return nil
}

// UseMovement spends distance feet of h's movement. It fails without
// mutation if the budget would be exceeded.
func (t *Tracker) UseMovement(h entity.Handle, distance int) error {
	p, ok := t.roster.Lookup(h)
	if !ok {
		return tkerrors.Newf(tkerrors.CodeInvalidParticipant, "unknown participant %s", h)
	}
	if distance < 0 {
		return tkerrors.Newf(tkerrors.CodeResourceUnavailable, "negative distance %d", distance)
	}
	if !p.IsAlive() {
		return tkerrors.Newf(tkerrors.CodeResourceUnavailable, "%s is dead", p.Name())
	}
	if t.restrictor != nil {
		if prevented, reason := t.restrictor.PreventsAction(h, entity.KindMovement); prevented {
			return tkerrors.Newf(tkerrors.CodeResourceUnavailable, "%s cannot move: %s", p.Name(), reason)
		}
	}

	state := t.state(h, p)
	if state.MovementUsed+distance > state.MovementBudget {
		err := tkerrors.WithMetadata(tkerrors.CodeResourceUnavailable, fmt.Sprintf("%s cannot move %d ft", p.Name(), distance), map[string]string{
			"left": fmt.Sprint(state.MovementLeft()),
		})
		t.logger.Warn("movement exceeded",
			zap.String("participant", p.Name()),
			zap.Int("distance", distance),
			zap.Int("left", state.MovementLeft()),
		)
		return err
	}
	state.MovementUsed += distance
	return nil
}

// Status returns a copy of h's state for this turn.
func (t *Tracker) Status(h entity.Handle) (State, bool) {
	s, ok := t.states[h]
	if !ok {
		return State{}, false
	}
	out := *s
	out.Spent = append([]string(nil), s.Spent...)
	return out, true
}

// CleanupDead drops state for participants that are dead or no longer
// registered. It returns the number of entries removed.
func (t *Tracker) CleanupDead() int {
	removed := 0
	for h := range t.states {
		p, ok := t.roster.Lookup(h)
		if !ok || !p.IsAlive() {
			delete(t.states, h)
			removed++
		}
	}
	return removed
}

// Clear drops all state.
func (t *Tracker) Clear() {
	t.states = make(map[entity.Handle]*State)
}

// state returns h's state, creating a fresh one when h has not had a turn
// yet so reactions work before the participant's first turn.
func (t *Tracker) state(h entity.Handle, p entity.Participant) *State {
	s, ok := t.states[h]
	if !ok {
		s = &State{MovementBudget: p.Speed()}
		t.states[h] = s
	}
	return s
}

// name returns h's display name for logs, falling back to the handle.
func (t *Tracker) name(h entity.Handle) string {
	if p, ok := t.roster.Lookup(h); ok {
		return p.Name()
	}
	return h.String()
}
