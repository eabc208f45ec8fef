// Package optimizer searches strategy parameter grids and compares
// strategies against each other. Every evaluation is an independent
// simulation; fan-out runs on a bounded worker pool and the only
// synchronization point is the final pure reduction.
package optimizer

import (
	"context"
	"runtime"
	"sync"

	"github.com/moznion/go-optional"
	backtestengine "github.com/quantforge/backtest/internal/backtest/engine"
	enginev1 "github.com/quantforge/backtest/internal/backtest/engine/engine_v1"
	"github.com/quantforge/backtest/internal/logger"
	"github.com/quantforge/backtest/internal/metrics"
	"github.com/quantforge/backtest/internal/types"
	"github.com/quantforge/backtest/pkg/errors"
	"go.uber.org/zap"
)

// OnPointCallback reports grid-search progress, one call per finished point.
type OnPointCallback func(done int, total int) error

// Options tunes one optimization.
type Options struct {
	// Grid overrides the default search ranges; nil uses DefaultGrid.
	Grid map[string][]float64
	// OnPoint reports progress as points complete.
	OnPoint optional.Option[OnPointCallback]
}

// Optimizer runs grid searches over strategy parameters.
type Optimizer struct {
	log     *logger.Logger
	engine  backtestengine.Engine
	workers int
}

// New creates an optimizer with the given worker-pool size. Workers <= 0
// defaults to the CPU count.
func New(log *logger.Logger, workers int) *Optimizer {
	if log == nil {
		log = logger.NewNopLogger()
	}

	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	return &Optimizer{
		log:     log,
		engine:  enginev1.New(nil),
		workers: workers,
	}
}

// pointOutcome is one grid point's evaluation, written into a per-index slot
// so the collected slice is ordered regardless of worker scheduling.
type pointOutcome struct {
	params types.Parameters
	record types.PerformanceRecord
	err    error
}

// Optimize enumerates the parameter grid for the kind, evaluates every point,
// and reports the best composite score against the baseline (the grid's
// first point, the strategy's defaults). A failing point is recorded and
// skipped; only a fully failed grid is an error.
func (o *Optimizer) Optimize(ctx context.Context, kind types.StrategyKind, config types.BacktestConfig, series *types.HistoricalSeries, opts Options) (*types.OptimizationResult, error) {
	grid := opts.Grid
	if grid == nil {
		grid = DefaultGrid(kind)
	}

	points := enumerateGrid(grid)

	o.log.Debug("Grid search started",
		zap.String("strategy", string(kind)),
		zap.Int("points", len(points)),
		zap.Int("workers", o.workers),
	)

	outcomes := o.evaluate(ctx, kind, config, series, points, opts.OnPoint)

	// Collect the successes, keeping the baseline's position.
	var (
		records       []types.PerformanceRecord
		recordIndexes []int
		failed        int
	)

	baselineSlot := -1

	for i := range outcomes {
		if outcomes[i].err != nil {
			failed++

			o.log.Debug("Grid point failed",
				zap.String("strategy", string(kind)),
				zap.Int("point", i),
				zap.Error(outcomes[i].err),
			)

			continue
		}

		if i == 0 {
			baselineSlot = len(records)
		}

		records = append(records, outcomes[i].record)
		recordIndexes = append(recordIndexes, i)
	}

	if len(records) == 0 {
		return nil, errors.Newf(errors.ErrCodeSimulationFailed,
			"all %d grid points failed for strategy %q", len(points), kind)
	}

	scores := compositeScores(records)
	best := reduceBest(scores, records)

	result := &types.OptimizationResult{
		StrategyKind:        kind,
		BaselineParameters:  points[0],
		OptimizedParameters: outcomes[recordIndexes[best]].params,
		OptimizedScore:      scores[best],
		OptimizedRecord:     records[best],
		EvaluatedPoints:     len(records),
		FailedPoints:        failed,
	}

	if baselineSlot >= 0 {
		result.BaselineScore = scores[baselineSlot]
		result.BaselineRecord = records[baselineSlot]
	}

	result.ScoreDelta = result.OptimizedScore - result.BaselineScore

	o.log.Debug("Grid search finished",
		zap.String("strategy", string(kind)),
		zap.Float64("baseline_score", result.BaselineScore),
		zap.Float64("optimized_score", result.OptimizedScore),
		zap.Int("failed_points", failed),
	)

	return result, nil
}

// evaluate fans the points out over the worker pool. Each worker writes into
// its point's slot; no shared mutable state beyond the slots themselves.
func (o *Optimizer) evaluate(ctx context.Context, kind types.StrategyKind, config types.BacktestConfig, series *types.HistoricalSeries, points []types.Parameters, onPoint optional.Option[OnPointCallback]) []pointOutcome {
	outcomes := make([]pointOutcome, len(points))
	jobs := make(chan int)

	var (
		wg       sync.WaitGroup
		progress sync.Mutex
	)

	done := 0

	for w := 0; w < o.workers; w++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range jobs {
				outcomes[i] = o.evaluatePoint(ctx, kind, config, series, points[i])

				if onPoint.IsSome() {
					progress.Lock()
					done++
					//nolint:errcheck // progress reporting cannot abort sibling evaluations
					onPoint.Unwrap()(done, len(points))
					progress.Unlock()
				}
			}
		}()
	}

	for i := range points {
		jobs <- i
	}

	close(jobs)
	wg.Wait()

	return outcomes
}

func (o *Optimizer) evaluatePoint(ctx context.Context, kind types.StrategyKind, config types.BacktestConfig, series *types.HistoricalSeries, params types.Parameters) pointOutcome {
	result, err := o.engine.Run(ctx, types.Strategy{Kind: kind, Params: params}, config, series, backtestengine.RunOptions{})
	if err != nil {
		return pointOutcome{params: params, err: err}
	}

	return pointOutcome{
		params: params,
		record: metrics.Compute(result, config, optional.None[[]float64]()),
	}
}
