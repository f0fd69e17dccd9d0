package backtest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/stratlab/pricing"
	"github.com/rustyeddy/stratlab/strategies"
)

// DefaultObjective is the statistic maximised by GridSearch.
const DefaultObjective = "equity_final"

// MaxGridPoints caps the assignments one search may evaluate.
const MaxGridPoints = 100_000

var (
	// ErrNoCandidates is returned when every grid point was skipped.
	ErrNoCandidates = errors.New("no parameter combination produced enough trades")
	// ErrGridTooLarge is returned when a grid expands past MaxGridPoints.
	ErrGridTooLarge = errors.New("parameter grid too large")
)

// GridSearch exhaustively evaluates a parameter grid, running up to
// Parallel backtests at once.
type GridSearch struct {
	Runner   *Runner
	Parallel int
}

// OptimizeResult is the winning run and how much of the grid was tried.
type OptimizeResult struct {
	Best      *Result
	Params    strategies.Params
	Evaluated int
	Skipped   int
}

// paramGrid enumerates assignments on demand. Parameter names vary
// slowest-first in sorted order, so point i is the same on every run.
type paramGrid struct {
	names []string
	vals  [][]float64
	size  int
}

func newParamGrid(grid map[string][]float64) (*paramGrid, error) {
	names := make([]string, 0, len(grid))
	for k := range grid {
		names = append(names, k)
	}
	sort.Strings(names)

	g := &paramGrid{names: names, size: 1}
	for _, name := range names {
		vals := grid[name]
		if len(vals) == 0 {
			return nil, fmt.Errorf("optimize: parameter %q has no candidate values", name)
		}
		if g.size > MaxGridPoints/len(vals) {
			return nil, fmt.Errorf("%w: more than %d assignments", ErrGridTooLarge, MaxGridPoints)
		}
		g.size *= len(vals)
		g.vals = append(g.vals, vals)
	}
	return g, nil
}

func (g *paramGrid) at(i int) strategies.Params {
	p := make(strategies.Params, len(g.names))
	for k := len(g.names) - 1; k >= 0; k-- {
		vals := g.vals[k]
		p[g.names[k]] = vals[i%len(vals)]
		i /= len(vals)
	}
	return p
}

// GridSize reports how many assignments grid expands to. Grids above
// MaxGridPoints fail with ErrGridTooLarge without being expanded.
func GridSize(grid map[string][]float64) (int, error) {
	g, err := newParamGrid(grid)
	if err != nil {
		return 0, err
	}
	return g.size, nil
}

// Optimize runs entry once per grid point and keeps the run with the
// highest objective. Runs with too few trades are skipped; ties go to the
// earlier grid point. Any other failure aborts the search. Assignments are
// built as they are scheduled and only the best run is retained.
func (g *GridSearch) Optimize(ctx context.Context, bars []pricing.Candle, entry strategies.Entry, grid map[string][]float64, objective string, opts Options) (*OptimizeResult, error) {
	if objective == "" {
		objective = DefaultObjective
	}
	if _, ok := (Stats{}).Metric(objective); !ok {
		return nil, fmt.Errorf("optimize: unknown objective %q", objective)
	}
	for name := range grid {
		if !entry.Has(name) {
			return nil, &strategies.ParamError{Strategy: entry.ID, Param: name, Reason: "not declared"}
		}
	}
	points, err := newParamGrid(grid)
	if err != nil {
		return nil, err
	}

	runner := g.Runner
	if runner == nil {
		runner = &Runner{}
	}
	limit := g.Parallel
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	var (
		mu      sync.Mutex
		out     = &OptimizeResult{Evaluated: points.size}
		bestIdx = -1
		best    = math.Inf(-1)
	)
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(limit)
	for i := 0; i < points.size && gctx.Err() == nil; i++ {
		eg.Go(func() error {
			strat, full, err := entry.New(points.at(i))
			if err != nil {
				return err
			}
			o := opts
			o.Label = FormatLabel(entry.ID, full)

			res, err := runner.Run(gctx, bars, strat, o)
			if errors.Is(err, ErrInsufficientTrades) {
				mu.Lock()
				out.Skipped++
				mu.Unlock()
				return nil
			}
			if err != nil {
				return err
			}

			v, _ := res.Stats.Metric(objective)
			mu.Lock()
			defer mu.Unlock()
			if bestIdx < 0 || v > best || (v == best && i < bestIdx) {
				bestIdx, best = i, v
				out.Best, out.Params = res, full
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if out.Best == nil {
		return nil, ErrNoCandidates
	}

	runner.logger().Info().
		Str("strategy", entry.ID).
		Int("evaluated", out.Evaluated).
		Int("skipped", out.Skipped).
		Str("objective", objective).
		Float64("best", best).
		Msg("grid search complete")

	return out, nil
}
