package engine

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/quantforge/backtest/internal/backtest/engine"
	"github.com/quantforge/backtest/internal/logger"
	"github.com/quantforge/backtest/internal/strategy"
	"github.com/quantforge/backtest/internal/types"
	"github.com/quantforge/backtest/pkg/errors"
	"go.uber.org/zap"
)

// BacktestEngineV1 is the reference replay implementation. It is stateless
// across runs; every Run builds a fresh portfolio arena and returns an
// immutable result.
type BacktestEngineV1 struct {
	log *logger.Logger
}

// New creates a v1 engine. A nil logger falls back to a no-op logger so the
// optimizer can fan out runs without log interleaving.
func New(log *logger.Logger) engine.Engine {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &BacktestEngineV1{log: log}
}

// Run implements engine.Engine.
func (b *BacktestEngineV1) Run(ctx context.Context, strat types.Strategy, config types.BacktestConfig, series *types.HistoricalSeries, opts engine.RunOptions) (*types.SimulationResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if err := series.Validate(); err != nil {
		return nil, err
	}

	generator, err := strategy.NewGenerator(strat.Kind)
	if err != nil {
		return nil, err
	}

	params := strat.Params
	if params == nil {
		params = strategy.DefaultParameters(strat.Kind)
	}

	window := series.Window(config.StartTime, config.EndTime)
	if window.Len() == 0 {
		return nil, errors.New(errors.ErrCodeEmptySimulation, "no bars inside the configured time window")
	}

	lookback := generator.RequiredLookback(params)
	if lookback >= window.Len() {
		return nil, errors.Newf(errors.ErrCodeEmptySimulation,
			"series has %d bars but the strategy needs %d of lookback", window.Len(), lookback)
	}

	runUUID := runIdentity(strat.Kind, params, config, window)
	runID := runUUID.String()
	totalSteps := window.Len() - lookback

	b.log.Debug("Simulation started",
		zap.String("run_id", runID),
		zap.String("strategy", string(strat.Kind)),
		zap.Int("bars", window.Len()),
		zap.Int("lookback", lookback),
	)

	state := newPortfolioState(config.InitialCapital, runUUID)
	allocator, hasAllocator := generator.(strategy.Allocator)

	result := &types.SimulationResult{
		ID:             runID,
		StrategyKind:   strat.Kind,
		Parameters:     params.Clone(),
		Lookback:       lookback,
		InitialCapital: config.InitialCapital,
		Trades:         nil,
		Snapshots:      make([]types.PortfolioSnapshot, 0, totalSteps),
		Signals:        nil,
	}

	for index := lookback; index < window.Len(); index++ {
		if ctx.Err() != nil {
			return nil, errors.Wrap(errors.ErrCodeSimulationFailed, "simulation canceled", ctx.Err())
		}

		if opts.OnStep.IsSome() {
			if err := opts.OnStep.Unwrap()(index-lookback+1, totalSteps); err != nil {
				return nil, errors.Wrap(errors.ErrCodeSimulationFailed, "step callback aborted the run", err)
			}
		}

		if err := window.CheckBar(index); err != nil {
			b.log.Error("Malformed bar aborted the run",
				zap.String("run_id", runID),
				zap.Int("index", index),
				zap.Error(err),
			)

			return nil, err
		}

		signals := generator.Signals(window, index, params)
		for _, signal := range signals {
			result.Signals = append(result.Signals, signal)
			executeSignal(state, window, index, signal, config)
		}

		if hasAllocator && isRebalanceBoundary(window, index, config.RebalanceCadence) {
			if weights := allocator.TargetWeights(window, index, params); len(weights) == window.Width() {
				rebalance(state, window, index, weights, config)
			}
		}

		value := state.totalValue(window.Bars[index])

		stepReturn := 0.0
		if n := len(result.Snapshots); n > 0 && result.Snapshots[n-1].TotalValue > 0 {
			stepReturn = value/result.Snapshots[n-1].TotalValue - 1
		}

		result.Snapshots = append(result.Snapshots, types.PortfolioSnapshot{
			Date:       window.Bars[index].Date,
			TotalValue: value,
			Cash:       state.cash,
			Positions:  state.positions(),
			StepReturn: stepReturn,
		})
	}

	finalizeOpenLots(state, window)
	result.Trades = state.trades

	b.log.Debug("Simulation finished",
		zap.String("run_id", runID),
		zap.Int("trades", len(result.Trades)),
		zap.Float64("final_value", result.FinalValue()),
	)

	return result, nil
}

// runNamespace seeds the SHA1 UUIDs identifying runs and trades. Fixed so the
// same inputs always replay to the same identifiers.
var runNamespace = uuid.MustParse("7b0c2f4e-9d31-4a53-8f6a-2c1d5e8b9a40")

// runIdentity derives the run ID from everything that shapes the replay.
// Re-running the same strategy over the same data must yield a byte-identical
// result, IDs included.
func runIdentity(kind types.StrategyKind, params types.Parameters, config types.BacktestConfig, series *types.HistoricalSeries) uuid.UUID {
	var payload bytes.Buffer

	fmt.Fprintf(&payload, "%s\n", kind)

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintf(&payload, "%s=%g\n", name, params[name])
	}

	fmt.Fprintf(&payload, "%g|%g|%g|%g|%s\n",
		config.InitialCapital, config.TransactionCostRate, config.SlippageRate,
		config.RiskFreeRate, config.RebalanceCadence)

	fmt.Fprintf(&payload, "%s\n", strings.Join(series.Symbols, ","))

	if series.Len() > 0 {
		fmt.Fprintf(&payload, "%d|%d|%d\n", series.Len(),
			series.Bars[0].Date.UnixNano(), series.Bars[series.Len()-1].Date.UnixNano())
	}

	return uuid.NewSHA1(runNamespace, payload.Bytes())
}

// isRebalanceBoundary reports whether the next bar crosses a cadence period
// boundary. The final bar never is one so rebalance trades cannot race the
// final mark.
func isRebalanceBoundary(series *types.HistoricalSeries, index int, cadence types.RebalanceCadence) bool {
	if index+1 >= series.Len() {
		return false
	}

	current := series.Bars[index].Date
	next := series.Bars[index+1].Date

	switch cadence {
	case types.RebalanceWeekly:
		currentYear, currentWeek := current.ISOWeek()
		nextYear, nextWeek := next.ISOWeek()

		return currentYear != nextYear || currentWeek != nextWeek
	case types.RebalanceMonthly:
		return current.Year() != next.Year() || current.Month() != next.Month()
	case types.RebalanceNone:
		return false
	default:
		return false
	}
}
