package engine

import (
	"context"

	"github.com/moznion/go-optional"
	"github.com/quantforge/backtest/internal/types"
)

// OnStepCallback is called once per processed bar. Returning an error aborts
// the run.
type OnStepCallback func(current int, total int) error

// RunOptions carries the optional knobs of a single run. The zero value is a
// plain silent run.
type RunOptions struct {
	// OnStep reports replay progress, one call per simulated bar.
	OnStep optional.Option[OnStepCallback]
}

// Engine replays a strategy over a historical series and returns the full
// simulation ledger. Implementations hold no state across runs: the same
// strategy, config, and series always produce a byte-identical result.
type Engine interface {
	// Run executes one simulation. The context can be used to cancel the
	// replay; a canceled run returns no partial result.
	Run(ctx context.Context, strategy types.Strategy, config types.BacktestConfig, series *types.HistoricalSeries, opts RunOptions) (*types.SimulationResult, error)
}
