package main

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/samdwyer/turnkeeper/internal/gamedata"
	"github.com/samdwyer/turnkeeper/internal/sim"
)

func newSimulateCmd(a *app) *cobra.Command {
	var (
		heroes  []string
		verbose bool
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Auto-play encounters between the hero party and random monsters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg
			flags := cmd.Flags()
			if flags.Changed("seed") {
				cfg.Seed, _ = flags.GetInt64("seed")
			}
			if flags.Changed("encounters") {
				cfg.Encounters, _ = flags.GetInt("encounters")
			}
			if flags.Changed("parallel") {
				cfg.Parallel, _ = flags.GetInt("parallel")
			}
			if flags.Changed("monsters") {
				cfg.Monsters, _ = flags.GetInt("monsters")
			}
			if flags.Changed("max-turns") {
				cfg.MaxTurns, _ = flags.GetInt("max-turns")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if cfg.Seed == 0 {
				cfg.Seed = time.Now().UnixNano()
			}

			registry, err := gamedata.LoadCreatureRegistry()
			if err != nil {
				return fmt.Errorf("load creatures: %w", err)
			}

			a.logger.Info("simulating",
				zap.Int64("seed", cfg.Seed),
				zap.Int("encounters", cfg.Encounters),
				zap.Int("parallel", cfg.Parallel),
			)
			reports, err := sim.RunMany(cmd.Context(), sim.Config{
				Seed:     cfg.Seed,
				MaxTurns: cfg.MaxTurns,
				Heroes:   heroes,
				Monsters: cfg.Monsters,
			}, cfg.Encounters, cfg.Parallel, registry, a.logger)
			if err != nil {
				return err
			}

			printReports(cmd.OutOrStdout(), reports, verbose)
			return nil
		},
	}

	cmd.Flags().Int64("seed", 0, "seed for the first encounter; later ones use seed+i")
	cmd.Flags().Int("encounters", 1, "number of encounters to play")
	cmd.Flags().Int("parallel", 4, "encounters to play at once")
	cmd.Flags().Int("monsters", 3, "monsters per encounter")
	cmd.Flags().Int("max-turns", 200, "turn limit per encounter")
	cmd.Flags().StringSliceVar(&heroes, "heroes", nil, "hero ids (default: every hero)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print the combat log of every encounter")
	return cmd
}

func printReports(w io.Writer, reports []sim.Report, verbose bool) {
	for i, rep := range reports {
		winner := rep.Winner
		if winner == "" {
			winner = "nobody"
		}
		fmt.Fprintf(w, "#%d seed=%d winner=%s reason=%q rounds=%d turns=%d survivors=%v\n",
			i+1, rep.Seed, winner, rep.Reason, rep.Rounds, rep.Turns, rep.Survivors)
		if verbose {
			for _, line := range rep.Log {
				fmt.Fprintf(w, "    %s\n", line)
			}
		}
	}

	if len(reports) < 2 {
		return
	}
	tally := sim.Summarize(reports)
	teams := make([]string, 0, len(tally))
	for team := range tally {
		teams = append(teams, team)
	}
	slices.Sort(teams)
	fmt.Fprintln(w, "Totals:")
	for _, team := range teams {
		name := team
		if name == "" {
			name = "no winner"
		}
		fmt.Fprintf(w, "  %-10s %d\n", name, tally[team])
	}
}
