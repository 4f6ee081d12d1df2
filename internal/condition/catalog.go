package condition

import (
	"sort"
	"strings"
	"sync"

	"github.com/samdwyer/turnkeeper/internal/entity"
	tkerrors "github.com/samdwyer/turnkeeper/internal/errors"
	"github.com/samdwyer/turnkeeper/internal/gamedata"
)

// Roll is how an attack against a condition holder is rolled.
type Roll string

const (
	RollNormal       Roll = ""
	RollAdvantage    Roll = "advantage"
	RollDisadvantage Roll = "disadvantage"
)

// Def is the compiled form of one catalog entry.
type Def struct {
	Name        string
	Description string
	Default     Spec
	Implies     []string

	prevents               map[entity.ActionKind]bool
	noMovement             bool
	crawlOnly              bool
	attackDisadvantage     bool
	incomingClose          Roll
	incomingRanged         Roll
	autoCritClose          bool
	autoFailSaves          map[entity.Ability]bool
	initiativeDisadvantage bool
	breaksConcentration    bool
}

// Prevents reports whether holding the condition forbids kind.
func (d *Def) Prevents(kind entity.ActionKind) bool { return d.prevents[kind] }

// BreaksConcentration reports whether gaining the condition ends the
// holder's concentration.
func (d *Def) BreaksConcentration() bool { return d.breaksConcentration }

// Catalog maps condition names to their definitions.
type Catalog struct {
	defs  map[string]*Def
	names []string
}

// NewCatalog compiles definitions and rejects unknown duration kinds,
// unknown abilities and implication cycles.
func NewCatalog(defs []gamedata.ConditionDef) (*Catalog, error) {
	c := &Catalog{defs: make(map[string]*Def, len(defs))}

	for _, raw := range defs {
		name := Normalize(raw.Name)
		if name == "" {
			return nil, tkerrors.New(tkerrors.CodeUnknownCondition, "condition with empty name")
		}

		kind, ok := ParseKind(raw.Default.Kind)
		if !ok {
			return nil, tkerrors.Newf(tkerrors.CodeUnknownCondition, "condition %q: unknown duration kind %q", name, raw.Default.Kind)
		}

		def := &Def{
			Name:        name,
			Description: raw.Description,
			Default: Spec{
				Kind:  kind,
				Value: raw.Default.Value,
			},
			prevents:               make(map[entity.ActionKind]bool),
			attackDisadvantage:     raw.AttackDisadvantage,
			incomingClose:          Roll(raw.Incoming.Close),
			incomingRanged:         Roll(raw.Incoming.Ranged),
			autoCritClose:          raw.Incoming.AutoCritClose,
			autoFailSaves:          make(map[entity.Ability]bool),
			initiativeDisadvantage: raw.InitiativeDisadvantage,
			breaksConcentration:    raw.BreaksConcentration,
		}
		if raw.Default.SaveAbility != "" {
			a, ok := entity.ParseAbility(raw.Default.SaveAbility)
			if !ok {
				return nil, tkerrors.Newf(tkerrors.CodeUnknownCondition, "condition %q: unknown save ability %q", name, raw.Default.SaveAbility)
			}
			def.Default.SaveAbility = a
		}
		for _, implied := range raw.Implies {
			def.Implies = append(def.Implies, Normalize(implied))
		}
		for _, p := range raw.Prevents {
			def.prevents[entity.ActionKind(p)] = true
		}
		switch raw.Movement {
		case "none":
			def.noMovement = true
		case "crawl":
			def.crawlOnly = true
		}
		for _, s := range raw.AutoFailSaves {
			a, ok := entity.ParseAbility(s)
			if !ok {
				return nil, tkerrors.Newf(tkerrors.CodeUnknownCondition, "condition %q: unknown ability %q", name, s)
			}
			def.autoFailSaves[a] = true
		}

		c.defs[name] = def
		c.names = append(c.names, name)
	}
	sort.Strings(c.names)

	if err := c.checkCycles(); err != nil {
		return nil, err
	}
	return c, nil
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// DefaultCatalog returns the catalog compiled from the embedded
// conditions.yaml. It is built once and shared; catalogs are read-only.
func DefaultCatalog() (*Catalog, error) {
	defaultOnce.Do(func() {
		defs, err := gamedata.LoadConditions()
		if err != nil {
			defaultErr = err
			return
		}
		defaultCatalog, defaultErr = NewCatalog(defs)
	})
	return defaultCatalog, defaultErr
}

// MustDefaultCatalog is DefaultCatalog, panicking on error.
func MustDefaultCatalog() *Catalog {
	c, err := DefaultCatalog()
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup returns the definition for name.
func (c *Catalog) Lookup(name string) (*Def, bool) {
	d, ok := c.defs[Normalize(name)]
	return d, ok
}

// Names returns every catalogued condition name, sorted.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// BreakingConditions returns the names flagged breaks_concentration.
func (c *Catalog) BreakingConditions() []string {
	var out []string
	for _, n := range c.names {
		if c.defs[n].breaksConcentration {
			out = append(out, n)
		}
	}
	return out
}

// Implications returns the transitive closure of conditions implied by
// name, breadth first, without name itself.
func (c *Catalog) Implications(name string) []string {
	name = Normalize(name)
	seen := map[string]bool{name: true}
	var out []string
	queue := []string{name}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		def, ok := c.defs[cur]
		if !ok {
			continue
		}
		for _, next := range def.Implies {
			if seen[next] {
				continue
			}
			seen[next] = true
			out = append(out, next)
			queue = append(queue, next)
		}
	}
	return out
}

// checkCycles runs an iterative three-colour DFS over the implication graph.
func (c *Catalog) checkCycles() error {
	const (
		white = iota
		grey
		black
	)
	colour := make(map[string]int, len(c.defs))

	type frame struct {
		name string
		next int
	}

	for _, root := range c.names {
		if colour[root] != white {
			continue
		}
		stack := []frame{{name: root}}
		colour[root] = grey
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			def := c.defs[top.name]
			if def == nil || top.next >= len(def.Implies) {
				colour[top.name] = black
				stack = stack[:len(stack)-1]
				continue
			}
			child := def.Implies[top.next]
			top.next++
			switch colour[child] {
			case grey:
				return tkerrors.WithMetadata(tkerrors.CodeUnknownCondition, "implication cycle", map[string]string{
					"from": top.name,
					"to":   child,
				})
			case white:
				colour[child] = grey
				stack = append(stack, frame{name: child})
			}
		}
	}
	return nil
}

// Normalize lowercases and trims a condition name.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
