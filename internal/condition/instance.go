package condition

import (
	"fmt"
	"time"

	"github.com/samdwyer/turnkeeper/internal/entity"
)

// Kind is how a condition's lifetime is measured.
type Kind string

const (
	Rounds         Kind = "rounds"
	Minutes        Kind = "minutes"
	Hours          Kind = "hours"
	SaveEnds       Kind = "save_ends"
	Permanent      Kind = "permanent"
	UntilDispelled Kind = "until_dispelled"
)

// ParseKind accepts the catalog spelling of a duration kind. An empty
// string means Permanent.
func ParseKind(s string) (Kind, bool) {
	switch Kind(Normalize(s)) {
	case Rounds:
		return Rounds, true
	case Minutes:
		return Minutes, true
	case Hours:
		return Hours, true
	case SaveEnds:
		return SaveEnds, true
	case Permanent, "":
		return Permanent, true
	case UntilDispelled:
		return UntilDispelled, true
	}
	return "", false
}

// Spec describes how a condition is applied. The zero Kind means "use the
// catalog default"; SaveAbility falls back to the default's when empty.
type Spec struct {
	Kind        Kind
	Value       int
	SaveDC      int
	SaveAbility entity.Ability
	Source      string
}

// Instance is one live condition on one participant.
type Instance struct {
	Name         string
	Kind         Kind
	Value        int
	SaveDC       int
	SaveAbility  entity.Ability
	Source       string
	AppliedAt    time.Time
	AppliedRound int
	// ImpliedBy names the condition that cascaded this one, or "" when it
	// was applied directly.
	ImpliedBy string
}

// expired reports whether the instance has run out at round/now.
func (i *Instance) expired(round int, now time.Time) bool {
	switch i.Kind {
	case Rounds:
		return round-i.AppliedRound >= i.Value
	case Minutes:
		return !now.Before(i.AppliedAt.Add(time.Duration(i.Value) * time.Minute))
	case Hours:
		return !now.Before(i.AppliedAt.Add(time.Duration(i.Value) * time.Hour))
	}
	return false
}

// durationText renders the remaining lifetime for status displays.
func (i *Instance) durationText(round int, now time.Time) string {
	switch i.Kind {
	case Rounds:
		left := max(0, i.Value-(round-i.AppliedRound))
		if left == 1 {
			return "1 round"
		}
		return fmt.Sprintf("%d rounds", left)
	case Minutes, Hours:
		unit := time.Minute
		if i.Kind == Hours {
			unit = time.Hour
		}
		left := i.AppliedAt.Add(time.Duration(i.Value) * unit).Sub(now)
		if left < 0 {
			left = 0
		}
		return left.Round(time.Second).String()
	case SaveEnds:
		if i.SaveDC > 0 && i.SaveAbility != "" {
			return fmt.Sprintf("until DC %d %s save", i.SaveDC, i.SaveAbility)
		}
		return "until save succeeds"
	case UntilDispelled:
		if i.ImpliedBy != "" {
			return "while " + i.ImpliedBy
		}
		return "until dispelled"
	}
	return "permanent"
}
