package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := Newf(CodeResourceUnavailable, "%s already used their action", "Archer")

	if !stderrors.Is(err, ErrResourceUnavailable) {
		t.Error("expected error to match ErrResourceUnavailable")
	}
	if stderrors.Is(err, ErrInvalidTransition) {
		t.Error("expected error not to match ErrInvalidTransition")
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := fmt.Errorf("bad token")
	err := Wrap(CodeInvalidNotation, "parse 2dX", cause)

	if !stderrors.Is(err, cause) {
		t.Error("expected wrapped cause to be reachable")
	}
	if got := err.Error(); got != "parse 2dX: bad token" {
		t.Errorf("Error() = %q", got)
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"nil", nil, ""},
		{"plain", fmt.Errorf("boom"), ""},
		{"domain", New(CodeInvalidParticipant, "x"), CodeInvalidParticipant},
		{"wrapped by fmt", fmt.Errorf("ctx: %w", New(CodeInvalidTransition, "y")), CodeInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %q, want %q", got, tt.want)
			}
		})
	}
}
