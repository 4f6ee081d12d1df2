// Package concentration enforces the one-effect-per-caster concentration
// rule and the triggers that break it.
package concentration

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/samdwyer/turnkeeper/internal/check"
	"github.com/samdwyer/turnkeeper/internal/entity"
	tkerrors "github.com/samdwyer/turnkeeper/internal/errors"
)

// Common durations, in seconds.
const (
	OneMinute     = 60
	TenMinutes    = 600
	OneHour       = 3600
	EightHours    = 28800
	TwentyFourHrs = 86400
)

// DefaultBreaking are the conditions that end concentration when gained.
var DefaultBreaking = []string{"incapacitated", "unconscious", "dead", "stunned", "paralyzed"}

// Effect is one concentrated effect.
type Effect struct {
	Name     string
	Caster   entity.Handle
	Duration int // seconds; <= 0 lasts until broken
	Level    int
	Payload  map[string]any
	Start    time.Time
	End      time.Time // zero when the effect lasts until broken
}

// UntilBroken reports whether the effect has no time limit.
func (e Effect) UntilBroken() bool { return e.Duration <= 0 }

func (e Effect) expired(now time.Time) bool {
	return !e.UntilBroken() && !now.Before(e.End)
}

// ConditionChecker answers whether a participant holds a condition.
type ConditionChecker interface {
	Has(h entity.Handle, name string) bool
}

// Hook runs when an effect ends. Errors are logged, never propagated.
type Hook func(caster entity.Participant, effect Effect, reason string) error

// Tracker holds the concentration effects of one encounter. It is not safe
// for concurrent use.
type Tracker struct {
	roster     entity.Directory
	conditions ConditionChecker
	evaluator  check.Evaluator
	logger     *zap.Logger
	now        func() time.Time
	breaking   map[string]bool
	hooks      map[string]Hook

	effects map[entity.Handle]*Effect
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the tracker logger.
func WithLogger(l *zap.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

// WithClock overrides the wall clock used for effect durations.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithBreakingConditions replaces the set of conditions that end
// concentration.
func WithBreakingConditions(names ...string) Option {
	return func(t *Tracker) {
		t.breaking = make(map[string]bool, len(names))
		for _, n := range names {
			t.breaking[strings.ToLower(n)] = true
		}
	}
}

// WithHook registers a cleanup hook for effects whose name contains
// keyword (case-insensitive).
func WithHook(keyword string, hook Hook) Option {
	return func(t *Tracker) { t.hooks[strings.ToLower(keyword)] = hook }
}

// NewTracker creates a tracker. conditions may be nil, in which case only
// death stops a caster from concentrating.
func NewTracker(roster entity.Directory, conditions ConditionChecker, evaluator check.Evaluator, opts ...Option) *Tracker {
	t := &Tracker{
		roster:     roster,
		conditions: conditions,
		evaluator:  evaluator,
		logger:     zap.NewNop(),
		now:        time.Now,
		hooks:      make(map[string]Hook),
		effects:    make(map[entity.Handle]*Effect),
	}
	WithBreakingConditions(DefaultBreaking...)(t)
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SaveDC is the Constitution save DC after taking damage: half the damage,
// at least 10 and at most 30.
func SaveDC(damage int) int {
	return min(30, max(10, damage/2))
}

// CanConcentrate reports whether h is alive and holds no breaking condition.
func (t *Tracker) CanConcentrate(h entity.Handle) bool {
	p, ok := t.roster.Lookup(h)
	if !ok || !p.IsAlive() {
		return false
	}
	if t.conditions == nil {
		return true
	}
	for name := range t.breaking {
		if t.conditions.Has(h, name) {
			return false
		}
	}
	return true
}

// Start begins concentration on name, breaking any effect h already holds.
// durationSeconds <= 0 means the effect lasts until broken.
func (t *Tracker) Start(h entity.Handle, name string, durationSeconds, level int, payload map[string]any) error {
	p, ok := t.roster.Lookup(h)
	if !ok {
		return tkerrors.Newf(tkerrors.CodeInvalidParticipant, "unknown participant %s", h)
	}
	if !t.CanConcentrate(h) {
		t.logger.Warn("cannot concentrate",
			zap.String("participant", p.Name()),
			zap.String("effect", name),
		)
		return tkerrors.Newf(tkerrors.CodeResourceUnavailable, "%s cannot concentrate", p.Name())
	}

	if prior, ok := t.effects[h]; ok {
		t.logger.Debug("concentration superseded",
			zap.String("participant", p.Name()),
			zap.String("code", string(tkerrors.CodeConcentrationConflict)),
			zap.String("prior", prior.Name),
			zap.String("effect", name),
		)
		t.Break(h, "superseded")
	}

	if level < 1 {
		level = 1
	}
	start := t.now()
	effect := &Effect{
		Name:     name,
		Caster:   h,
		Duration: durationSeconds,
		Level:    level,
		Payload:  payload,
		Start:    start,
	}
	if durationSeconds > 0 {
		effect.End = start.Add(time.Duration(durationSeconds) * time.Second)
	}
	t.effects[h] = effect

	duration := "until broken"
	if durationSeconds > 0 {
		duration = (time.Duration(durationSeconds) * time.Second).String()
	}
	t.logger.Info("concentration started",
		zap.String("participant", p.Name()),
		zap.String("effect", name),
		zap.String("duration", duration),
	)
	return nil
}

// Break ends h's effect and runs its cleanup hooks. It returns false if h
// was not concentrating.
func (t *Tracker) Break(h entity.Handle, reason string) bool {
	effect, ok := t.effects[h]
	if !ok {
		return false
	}
	delete(t.effects, h)

	p, ok := t.roster.Lookup(h)
	if !ok {
		return true
	}
	t.logger.Info("concentration broken",
		zap.String("participant", p.Name()),
		zap.String("effect", effect.Name),
		zap.String("reason", reason),
	)
	t.cleanup(p, *effect, reason)
	return true
}

// End voluntarily ends h's concentration.
func (t *Tracker) End(h entity.Handle) bool {
	return t.Break(h, "ended voluntarily")
}

// CheckSaveOnDamage rolls h's Constitution save after taking damage and
// breaks concentration on a failure. It reports whether concentration
// survived; it is true when h was not concentrating.
func (t *Tracker) CheckSaveOnDamage(h entity.Handle, damage int) bool {
	if _, ok := t.effects[h]; !ok {
		return true
	}
	p, ok := t.roster.Lookup(h)
	if !ok {
		return true
	}

	dc := SaveDC(damage)
	res := t.evaluator.PerformCheck(p, check.Request{
		Ability:     entity.Constitution,
		DC:          dc,
		SavingThrow: true,
	})
	t.logger.Debug("concentration save",
		zap.String("participant", p.Name()),
		zap.Int("damage", damage),
		zap.Int("dc", dc),
		zap.Int("total", res.Total),
		zap.Bool("success", res.Success),
	)
	if res.Success {
		return true
	}
	t.Break(h, fmt.Sprintf("failed save DC %d", dc))
	return false
}

// OnDamage is the damage event hook.
func (t *Tracker) OnDamage(h entity.Handle, amount int) {
	if amount > 0 {
		t.CheckSaveOnDamage(h, amount)
	}
}

// OnConditionAdded breaks concentration when name is a breaking condition.
func (t *Tracker) OnConditionAdded(h entity.Handle, name string) {
	if !t.breaking[strings.ToLower(name)] {
		return
	}
	t.Break(h, "gained "+name)
}

// Sweep breaks effects that expired or whose casters can no longer
// concentrate. It is idempotent and returns the number broken.
func (t *Tracker) Sweep() int {
	now := t.now()
	broken := 0
	for _, h := range t.handles() {
		effect := t.effects[h]
		switch {
		case effect.expired(now):
			t.Break(h, "duration expired")
		case !t.CanConcentrate(h):
			t.Break(h, "cannot concentrate")
		default:
			continue
		}
		broken++
	}
	return broken
}

// IsConcentrating reports whether h holds an effect.
func (t *Tracker) IsConcentrating(h entity.Handle) bool {
	_, ok := t.effects[h]
	return ok
}

// Effect returns a copy of h's effect.
func (t *Tracker) Effect(h entity.Handle) (Effect, bool) {
	e, ok := t.effects[h]
	if !ok {
		return Effect{}, false
	}
	return *e, true
}

// Remaining returns the time left on h's effect; ok is false when h is not
// concentrating. Effects that last until broken report a negative duration.
func (t *Tracker) Remaining(h entity.Handle) (time.Duration, bool) {
	e, ok := t.effects[h]
	if !ok {
		return 0, false
	}
	if e.UntilBroken() {
		return -1, true
	}
	return max(0, e.End.Sub(t.now())), true
}

// All returns every live effect ordered by caster handle.
func (t *Tracker) All() []Effect {
	out := make([]Effect, 0, len(t.effects))
	for _, h := range t.handles() {
		out = append(out, *t.effects[h])
	}
	return out
}

// Clear drops every effect without running hooks.
func (t *Tracker) Clear() {
	t.effects = make(map[entity.Handle]*Effect)
}

func (t *Tracker) cleanup(p entity.Participant, effect Effect, reason string) {
	lower := strings.ToLower(effect.Name)
	keywords := make([]string, 0, len(t.hooks))
	for k := range t.hooks {
		if strings.Contains(lower, k) {
			keywords = append(keywords, k)
		}
	}
	sort.Strings(keywords)

	for _, k := range keywords {
		if err := t.hooks[k](p, effect, reason); err != nil {
			t.logger.Warn("concentration cleanup failed",
				zap.String("participant", p.Name()),
				zap.String("effect", effect.Name),
				zap.String("hook", k),
				zap.Error(err),
			)
		}
	}

	if holder, ok := p.(entity.TemporaryBonusHolder); ok {
		if holder.RemoveTemporaryBonus(effect.Name) {
			t.logger.Debug("temporary bonus removed",
				zap.String("participant", p.Name()),
				zap.String("effect", effect.Name),
			)
		}
	}
}

func (t *Tracker) handles() []entity.Handle {
	out := make([]entity.Handle, 0, len(t.effects))
	for h := range t.effects {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

var durationPattern = regexp.MustCompile(`(\d+)\s*(round|minute|hour|day)`)

// ParseDuration converts spell duration text like "Concentration, up to 10
// minutes" into seconds. Instantaneous effects are 0, permanent ones -1 and
// anything unrecognised one minute.
func ParseDuration(text string) int {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "instantaneous"):
		return 0
	case strings.Contains(lower, "permanent"), strings.Contains(lower, "until dispelled"):
		return -1
	}

	m := durationPattern.FindStringSubmatch(lower)
	if m == nil {
		return OneMinute
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return OneMinute
	}
	switch m[2] {
	case "round":
		return n * 6
	case "minute":
		return n * OneMinute
	case "hour":
		return n * OneHour
	default:
		return n * TwentyFourHrs
	}
}
