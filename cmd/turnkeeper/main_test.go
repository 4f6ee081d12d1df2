package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/samdwyer/turnkeeper/internal/sim"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	require.NoError(t, root.Execute())
	return out.String()
}

func TestConditionsCommand(t *testing.T) {
	out := run(t, "conditions", "Unconscious")
	require.Contains(t, out, "Unconscious (default: permanent)")
	require.Contains(t, out, "implies: incapacitated, prone")

	all := run(t, "conditions")
	for _, name := range []string{"Blinded", "Grappled", "Paralyzed", "Stunned"} {
		require.Contains(t, all, name)
	}
}

func TestConditionsCommandUnknown(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"conditions", "sleepy"})
	require.Error(t, root.Execute())
}

func TestSimulateCommand(t *testing.T) {
	out := run(t, "simulate", "--seed", "21", "--encounters", "3", "--parallel", "2", "--monsters", "2")
	require.Equal(t, 3, strings.Count(out, "seed="))
	require.Contains(t, out, "#1 seed=21 ")
	require.Contains(t, out, "#3 seed=23 ")
	require.Contains(t, out, "Totals:")
}

func TestPrintReports(t *testing.T) {
	var out bytes.Buffer
	printReports(&out, []sim.Report{
		{Seed: 1, Winner: "heroes", Reason: "victory", Rounds: 3, Turns: 14, Log: []string{"Round 1: Fighter's turn"}},
	}, true)

	require.Contains(t, out.String(), `#1 seed=1 winner=heroes reason="victory" rounds=3 turns=14`)
	require.Contains(t, out.String(), "    Round 1: Fighter's turn")
	require.NotContains(t, out.String(), "Totals:")
}
