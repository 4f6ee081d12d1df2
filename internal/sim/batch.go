package sim

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/samdwyer/turnkeeper/internal/gamedata"
)

// Tally counts batch results per winning team. Turn-limit and cancelled
// encounters are counted under the empty string.
type Tally map[string]int

// RunMany plays n independent encounters, at most parallel at a time.
// Encounter i uses seed base.Seed+i so a batch is reproducible. Reports are
// returned in seed order.
func RunMany(ctx context.Context, base Config, n, parallel int, registry *gamedata.CreatureRegistry, logger *zap.Logger) ([]Report, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if parallel <= 0 {
		parallel = 1
	}

	reports := make([]Report, n)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	for i := 0; i < n; i++ {
		i := i
		cfg := base
		cfg.Seed = base.Seed + int64(i)
		g.Go(func() error {
			runner, err := NewRunner(ctx, cfg, registry, logger.With(zap.Int("encounter", i)))
			if err != nil {
				return err
			}
			rep, err := runner.Run(ctx)
			if err != nil {
				return err
			}
			reports[i] = rep
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// Summarize counts wins per team across reports.
func Summarize(reports []Report) Tally {
	t := make(Tally)
	for _, r := range reports {
		t[r.Winner]++
	}
	return t
}
