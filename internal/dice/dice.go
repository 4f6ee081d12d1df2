// Package dice is the randomness provider consumed by the encounter core.
//
// # Determinism
//
// Every roller is injectable. Seeded produces the same sequence for the same
// seed; Queue replays scripted values so tests can pin exact outcomes.
//
// # Notation
//
// RollDice accepts "NdS", "NdS+M", "NdS-M", an "a"/"d" suffix for advantage
// or disadvantage ("1d20a"), and keep-highest/lowest ("4d6kh3", "2d20kl1").
package dice

import (
	"math/rand"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/samdwyer/turnkeeper/internal/errors"
)

// Roller is the randomness provider.
type Roller interface {
	// RollD20 returns a value in [1, 20].
	RollD20() int
	// RollDice evaluates dice notation and returns the total.
	RollDice(notation string) (int, error)
}

// Result is the detailed outcome of a notation roll.
type Result struct {
	Total    int
	Raw      []int // Every die rolled, in roll order
	Kept     []int
	Dropped  []int
	Modifier int
}

// Expr is parsed dice notation.
type Expr struct {
	Count       int
	Sides       int
	Keep        int  // Number of dice kept; equals Count when nothing is dropped
	KeepHighest bool // Whether Keep selects the highest dice
	Modifier    int
}

// MaxDice bounds the number of dice one expression may roll.
const MaxDice = 1000

var notationRegex = regexp.MustCompile(`^(\d*)d(\d+)(k[hl]\d+|[ad])?([+-]\d+)?$`)

// Parse parses dice notation.
func Parse(notation string) (Expr, error) {
	raw := strings.ToLower(strings.ReplaceAll(notation, " ", ""))
	m := notationRegex.FindStringSubmatch(raw)
	if m == nil {
		return Expr{}, errors.Newf(errors.CodeInvalidNotation, "invalid dice notation %q", notation)
	}

	expr := Expr{Count: 1, KeepHighest: true}
	if m[1] != "" {
		expr.Count, _ = strconv.Atoi(m[1])
	}
	expr.Sides, _ = strconv.Atoi(m[2])
	if expr.Count <= 0 || expr.Sides <= 0 {
		return Expr{}, errors.Newf(errors.CodeInvalidNotation, "dice notation %q needs a positive count and sides", notation)
	}
	if expr.Count > MaxDice {
		return Expr{}, errors.Newf(errors.CodeInvalidNotation, "dice notation %q rolls more than %d dice", notation, MaxDice)
	}
	expr.Keep = expr.Count

	kd := m[3]
	if (kd == "a" || kd == "d") && expr.Count != 1 {
		return Expr{}, errors.Newf(errors.CodeInvalidNotation, "dice notation %q: advantage applies to a single die, use kh/kl", notation)
	}
	switch {
	case kd == "a":
		expr.Count, expr.Keep = 2, 1
	case kd == "d":
		expr.Count, expr.Keep, expr.KeepHighest = 2, 1, false
	case strings.HasPrefix(kd, "k"):
		expr.KeepHighest = kd[1] == 'h'
		n, _ := strconv.Atoi(kd[2:])
		expr.Keep = min(max(n, 0), expr.Count)
	}

	if m[4] != "" {
		expr.Modifier, _ = strconv.Atoi(m[4])
	}
	return expr, nil
}

// Doubled returns the expression with twice as many dice, as for a critical
// hit: twice the dice rolled and twice the dice kept. The modifier is not
// doubled.
func (e Expr) Doubled() Expr {
	e.Keep *= 2
	e.Count *= 2
	return e
}

// String renders the expression back to notation.
func (e Expr) String() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(e.Count))
	b.WriteString("d")
	b.WriteString(strconv.Itoa(e.Sides))
	if e.Keep != e.Count {
		if e.KeepHighest {
			b.WriteString("kh")
		} else {
			b.WriteString("kl")
		}
		b.WriteString(strconv.Itoa(e.Keep))
	}
	if e.Modifier > 0 {
		b.WriteString("+")
	}
	if e.Modifier != 0 {
		b.WriteString(strconv.Itoa(e.Modifier))
	}
	return b.String()
}

// Evaluate rolls the expression with die, which must return a value in
// [1, sides].
func (e Expr) Evaluate(die func(sides int) int) Result {
	res := Result{Modifier: e.Modifier}
	for i := 0; i < e.Count; i++ {
		res.Raw = append(res.Raw, die(e.Sides))
	}

	sorted := make([]int, len(res.Raw))
	copy(sorted, res.Raw)
	if e.KeepHighest {
		sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
	} else {
		sort.Ints(sorted)
	}
	res.Kept = sorted[:e.Keep]
	res.Dropped = sorted[e.Keep:]

	for _, v := range res.Kept {
		res.Total += v
	}
	res.Total += e.Modifier
	return res
}

// Seeded is a reproducible roller backed by math/rand.
type Seeded struct {
	rng *rand.Rand
}

// NewSeeded creates a roller whose sequence depends only on seed.
func NewSeeded(seed int64) *Seeded {
	return &Seeded{rng: rand.New(rand.NewSource(seed))}
}

// RollD20 rolls a d20.
func (s *Seeded) RollD20() int { return s.die(20) }

// RollDice evaluates notation.
func (s *Seeded) RollDice(notation string) (int, error) {
	res, err := s.Roll(notation)
	if err != nil {
		return 0, err
	}
	return res.Total, nil
}

// Roll evaluates notation and returns the detailed result.
func (s *Seeded) Roll(notation string) (Result, error) {
	expr, err := Parse(notation)
	if err != nil {
		return Result{}, err
	}
	return expr.Evaluate(s.die), nil
}

// Rand exposes the underlying source for callers that need shuffles or
// weighted picks from the same sequence.
func (s *Seeded) Rand() *rand.Rand { return s.rng }

func (s *Seeded) die(sides int) int {
	return s.rng.Intn(sides) + 1
}

// Queue replays scripted die faces in order. When the script runs out it
// falls back to a seeded roller. Values are clamped to the die being rolled.
type Queue struct {
	values   []int
	fallback *Seeded
}

// NewQueue creates a roller that returns values first.
func NewQueue(values ...int) *Queue {
	return &Queue{values: values, fallback: NewSeeded(1)}
}

// Push appends more scripted values.
func (q *Queue) Push(values ...int) {
	q.values = append(q.values, values...)
}

// Remaining returns the number of scripted values not yet consumed.
func (q *Queue) Remaining() int { return len(q.values) }

// RollD20 returns the next scripted value.
func (q *Queue) RollD20() int { return q.die(20) }

// RollDice evaluates notation using scripted values for each die.
func (q *Queue) RollDice(notation string) (int, error) {
	expr, err := Parse(notation)
	if err != nil {
		return 0, err
	}
	return expr.Evaluate(q.die).Total, nil
}

func (q *Queue) die(sides int) int {
	if len(q.values) == 0 {
		return q.fallback.die(sides)
	}
	v := q.values[0]
	q.values = q.values[1:]
	return min(max(v, 1), sides)
}

// Ensure rollers implement Roller.
var (
	_ Roller = (*Seeded)(nil)
	_ Roller = (*Queue)(nil)
)
