// Package condition tracks the status effects held by encounter
// participants: their durations, cascading implications, end-of-turn saves
// and the mechanical queries other subsystems ask of them.
package condition

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/samdwyer/turnkeeper/internal/check"
	"github.com/samdwyer/turnkeeper/internal/entity"
	tkerrors "github.com/samdwyer/turnkeeper/internal/errors"
)

// Listener is told about every condition a participant gains, implied ones
// included.
type Listener interface {
	OnConditionAdded(h entity.Handle, name string)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(h entity.Handle, name string)

// OnConditionAdded calls f.
func (f ListenerFunc) OnConditionAdded(h entity.Handle, name string) { f(h, name) }

// Registry holds the live condition instances of one encounter.
// It is not safe for concurrent use; the encounter serializes access.
type Registry struct {
	catalog   *Catalog
	roster    entity.Directory
	evaluator check.Evaluator
	listener  Listener
	logger    *zap.Logger
	now       func() time.Time

	round int
	held  map[entity.Handle]map[string]*Instance
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithListener sets the listener notified on every add.
func WithListener(l Listener) Option {
	return func(r *Registry) { r.listener = l }
}

// WithClock overrides the wall clock used for minute and hour durations.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// NewRegistry creates an empty registry. evaluator rolls end-of-turn saves.
func NewRegistry(catalog *Catalog, roster entity.Directory, evaluator check.Evaluator, opts ...Option) *Registry {
	r := &Registry{
		catalog:   catalog,
		roster:    roster,
		evaluator: evaluator,
		logger:    zap.NewNop(),
		now:       time.Now,
		round:     1,
		held:      make(map[entity.Handle]map[string]*Instance),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetListener replaces the add listener after construction.
func (r *Registry) SetListener(l Listener) { r.listener = l }

// Catalog returns the catalog the registry was built with.
func (r *Registry) Catalog() *Catalog { return r.catalog }

// Round returns the registry's current round.
func (r *Registry) Round() int { return r.round }

// SetRound moves the round counter without expiring anything.
func (r *Registry) SetRound(round int) { r.round = round }

type pending struct {
	name      string
	spec      Spec
	impliedBy string
}

// Add applies name to h. A zero spec.Kind applies the catalog default.
// Re-adding a directly applied condition overwrites it; an implied
// condition the participant already holds is left alone.
func (r *Registry) Add(h entity.Handle, name string, spec Spec) error {
	p, ok := r.roster.Lookup(h)
	if !ok {
		return tkerrors.Newf(tkerrors.CodeInvalidParticipant, "unknown participant %s", h)
	}
	name = Normalize(name)
	if name == "" {
		return tkerrors.New(tkerrors.CodeUnknownCondition, "empty condition name")
	}

	queue := []pending{{name: name, spec: spec}}
	visited := make(map[string]bool)

	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]

		if visited[next.name] {
			r.logger.Warn("implication cycle skipped",
				zap.String("participant", p.Name()),
				zap.String("condition", next.name),
			)
			continue
		}
		visited[next.name] = true

		if next.impliedBy != "" && r.Has(h, next.name) {
			r.logger.Warn("implied condition already present",
				zap.String("participant", p.Name()),
				zap.String("condition", next.name),
				zap.String("implied_by", next.impliedBy),
			)
			continue
		}

		inst := r.instance(next)
		r.store(h, p, inst)

		if r.listener != nil {
			r.listener.OnConditionAdded(h, inst.Name)
		}

		if def, ok := r.catalog.Lookup(inst.Name); ok {
			for _, implied := range def.Implies {
				queue = append(queue, pending{
					name:      implied,
					spec:      Spec{Kind: UntilDispelled, Source: inst.Name},
					impliedBy: inst.Name,
				})
			}
		}
	}
	return nil
}

func (r *Registry) instance(next pending) *Instance {
	spec := next.spec
	def, known := r.catalog.Lookup(next.name)
	if !known {
		r.logger.Warn("uncatalogued condition", zap.String("condition", next.name))
	}
	if spec.Kind == "" {
		if known {
			spec.Kind = def.Default.Kind
			spec.Value = def.Default.Value
		} else {
			spec.Kind = Permanent
		}
	}
	if spec.SaveAbility == "" && known {
		spec.SaveAbility = def.Default.SaveAbility
	}
	return &Instance{
		Name:         next.name,
		Kind:         spec.Kind,
		Value:        spec.Value,
		SaveDC:       spec.SaveDC,
		SaveAbility:  spec.SaveAbility,
		Source:       spec.Source,
		AppliedAt:    r.now(),
		AppliedRound: r.round,
		ImpliedBy:    next.impliedBy,
	}
}

func (r *Registry) store(h entity.Handle, p entity.Participant, inst *Instance) {
	byName, ok := r.held[h]
	if !ok {
		byName = make(map[string]*Instance)
		r.held[h] = byName
	}
	_, refreshed := byName[inst.Name]
	byName[inst.Name] = inst
	p.Conditions().Add(inst.Name)

	fields := []zap.Field{
		zap.String("participant", p.Name()),
		zap.String("condition", inst.Name),
		zap.String("kind", string(inst.Kind)),
		zap.Int("round", inst.AppliedRound),
	}
	if inst.Source != "" {
		fields = append(fields, zap.String("source", inst.Source))
	}
	if refreshed {
		r.logger.Debug("condition refreshed", fields...)
		return
	}
	r.logger.Info("condition gained", fields...)
}

// Remove deletes name from h, together with any conditions that exist only
// because name implied them. It returns false if h did not hold name.
func (r *Registry) Remove(h entity.Handle, name, reason string) bool {
	name = Normalize(name)
	byName := r.held[h]
	if _, ok := byName[name]; !ok {
		return false
	}

	queue := []string{name}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if _, ok := byName[cur]; !ok {
			continue
		}
		delete(byName, cur)
		r.unmirror(h, cur, reason)

		for _, child := range r.childrenOf(byName, cur) {
			if other := r.otherImplier(byName, child.Name); other != "" {
				child.ImpliedBy = other
				child.Source = other
				continue
			}
			queue = append(queue, child.Name)
		}
	}
	if len(byName) == 0 {
		delete(r.held, h)
	}
	return true
}

// childrenOf returns the instances implied by parent, sorted by name.
func (r *Registry) childrenOf(byName map[string]*Instance, parent string) []*Instance {
	var out []*Instance
	for _, inst := range byName {
		if inst.ImpliedBy == parent {
			out = append(out, inst)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// otherImplier returns a still-held condition that also implies child.
func (r *Registry) otherImplier(byName map[string]*Instance, child string) string {
	for _, name := range sortedNames(byName) {
		def, ok := r.catalog.Lookup(name)
		if !ok {
			continue
		}
		for _, implied := range def.Implies {
			if implied == child {
				return name
			}
		}
	}
	return ""
}

func (r *Registry) unmirror(h entity.Handle, name, reason string) {
	p, ok := r.roster.Lookup(h)
	if !ok {
		return
	}
	p.Conditions().Remove(name)
	r.logger.Info("condition lost",
		zap.String("participant", p.Name()),
		zap.String("condition", name),
		zap.String("reason", reason),
	)
}

// ProcessEndOfTurnSaves rolls a save for every save-ends condition on h
// that carries a DC and ability, removing those that succeed. It returns
// the number removed.
func (r *Registry) ProcessEndOfTurnSaves(h entity.Handle) int {
	p, ok := r.roster.Lookup(h)
	if !ok || !p.IsAlive() {
		return 0
	}

	var saved []string
	for _, name := range sortedNames(r.held[h]) {
		inst := r.held[h][name]
		if inst.Kind != SaveEnds || inst.SaveDC <= 0 || inst.SaveAbility == "" {
			continue
		}
		mods := r.SaveModifiers(h, inst.SaveAbility)
		res := r.evaluator.PerformCheck(p, check.Request{
			Ability:      inst.SaveAbility,
			DC:           inst.SaveDC,
			Advantage:    mods.Advantage,
			Disadvantage: mods.Disadvantage,
			AutoFail:     mods.AutoFail,
			SavingThrow:  true,
		})
		r.logger.Debug("end of turn save",
			zap.String("participant", p.Name()),
			zap.String("condition", name),
			zap.Int("dc", inst.SaveDC),
			zap.Int("total", res.Total),
			zap.Bool("success", res.Success),
		)
		if res.Success {
			saved = append(saved, name)
		}
	}

	removed := 0
	for _, name := range saved {
		if r.lapse(h, name, "successful save") {
			removed++
		}
	}
	return removed
}

// AdvanceTime moves the round counter forward by rounds (zero re-checks
// the current round) and expires round, minute and hour durations that
// have run out. It returns the number of instances removed. Calling it
// repeatedly with zero never counts elapsed time twice.
func (r *Registry) AdvanceTime(rounds int) int {
	if rounds > 0 {
		r.round += rounds
	}
	now := r.now()

	type expiry struct {
		h    entity.Handle
		name string
	}
	var due []expiry
	for _, h := range r.handles() {
		for _, name := range sortedNames(r.held[h]) {
			if r.held[h][name].expired(r.round, now) {
				due = append(due, expiry{h, name})
			}
		}
	}

	removed := 0
	for _, e := range due {
		if r.lapse(e.h, e.name, "duration expired") {
			removed++
		}
	}
	return removed
}

// lapse ends name's own duration on h. While another held condition still
// implies name the instance becomes an implied one and lives as long as that
// condition does; otherwise it is removed. It reports whether name was
// removed.
func (r *Registry) lapse(h entity.Handle, name, reason string) bool {
	byName := r.held[h]
	inst, ok := byName[name]
	if !ok {
		return false
	}
	if other := r.otherImplier(byName, name); other != "" {
		inst.Kind = UntilDispelled
		inst.Value = 0
		inst.SaveDC = 0
		inst.ImpliedBy = other
		inst.Source = other
		if p, ok := r.roster.Lookup(h); ok {
			r.logger.Debug("condition held by implication",
				zap.String("participant", p.Name()),
				zap.String("condition", name),
				zap.String("implied_by", other),
				zap.String("reason", reason),
			)
		}
		return false
	}
	return r.Remove(h, name, reason)
}

// Cleanup drops every condition on h without cascading, e.g. after death.
func (r *Registry) Cleanup(h entity.Handle) {
	byName, ok := r.held[h]
	if !ok {
		return
	}
	if p, ok := r.roster.Lookup(h); ok {
		for name := range byName {
			p.Conditions().Remove(name)
		}
		r.logger.Debug("conditions cleared", zap.String("participant", p.Name()), zap.Int("count", len(byName)))
	}
	delete(r.held, h)
}

// Clear drops every condition in the encounter.
func (r *Registry) Clear() {
	for _, h := range r.handles() {
		r.Cleanup(h)
	}
	r.round = 1
}

// Has reports whether h holds name.
func (r *Registry) Has(h entity.Handle, name string) bool {
	_, ok := r.held[h][Normalize(name)]
	return ok
}

// Get returns a copy of h's instance of name.
func (r *Registry) Get(h entity.Handle, name string) (Instance, bool) {
	inst, ok := r.held[h][Normalize(name)]
	if !ok {
		return Instance{}, false
	}
	return *inst, true
}

// Active returns copies of h's instances sorted by name.
func (r *Registry) Active(h entity.Handle) []Instance {
	byName := r.held[h]
	out := make([]Instance, 0, len(byName))
	for _, name := range sortedNames(byName) {
		out = append(out, *byName[name])
	}
	return out
}

// Remaining describes how long h's instance of name has left.
func (r *Registry) Remaining(h entity.Handle, name string) (string, bool) {
	inst, ok := r.held[h][Normalize(name)]
	if !ok {
		return "", false
	}
	return inst.durationText(r.round, r.now()), true
}

func (r *Registry) handles() []entity.Handle {
	out := make([]entity.Handle, 0, len(r.held))
	for h := range r.held {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedNames(byName map[string]*Instance) []string {
	names := make([]string, 0, len(byName))
	for n := range byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
