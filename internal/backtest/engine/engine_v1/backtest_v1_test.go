package engine

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	backtestengine "github.com/quantforge/backtest/internal/backtest/engine"
	"github.com/quantforge/backtest/internal/strategy"
	"github.com/quantforge/backtest/internal/types"
	"github.com/quantforge/backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type BacktestEngineV1TestSuite struct {
	suite.Suite

	engine backtestengine.Engine
}

func (suite *BacktestEngineV1TestSuite) SetupTest() {
	suite.engine = New(nil)
}

func TestBacktestEngineV1Suite(t *testing.T) {
	suite.Run(t, new(BacktestEngineV1TestSuite))
}

// frictionlessConfig removes costs and slippage so return arithmetic in the
// assertions stays exact.
func frictionlessConfig() types.BacktestConfig {
	config := types.DefaultBacktestConfig()
	config.TransactionCostRate = 0
	config.SlippageRate = 0

	return config
}

// linearSeries builds a one-instrument series walking from start by step per
// day.
func linearSeries(symbol string, start, step float64, days int) *types.HistoricalSeries {
	bars := make([]types.Bar, days)
	for i := range bars {
		bars[i] = types.Bar{
			Date:    time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i),
			Prices:  []float64{start + step*float64(i)},
			Volumes: []float64{10000},
		}
	}

	return &types.HistoricalSeries{Symbols: []string{symbol}, Bars: bars}
}

func (suite *BacktestEngineV1TestSuite) TestBuyAndHoldDoublingPrice() {
	// Price runs 100 -> 200; with no friction the run must return exactly
	// 100% and produce exactly one trade, closed at the final mark.
	days := 101
	series := linearSeries("TEST", 100, 1, days)
	config := frictionlessConfig()

	result, err := suite.engine.Run(context.Background(), types.Strategy{Kind: types.StrategyBuyAndHold}, config, series, backtestengine.RunOptions{})
	suite.Require().NoError(err)

	suite.Len(result.Snapshots, days, "snapshot per bar, lookback 0")
	suite.Len(result.Trades, 1)

	trade := result.Trades[0]
	suite.Equal(types.TradeStatusExecuted, trade.Status)
	suite.Equal("final mark", trade.Reason)
	suite.InDelta(100.0, trade.EntryPrice, 1e-9)
	suite.InDelta(200.0, trade.ExitPrice, 1e-9)

	suite.InDelta(2*config.InitialCapital, result.FinalValue(), 1e-6)
	suite.InDelta(config.InitialCapital, trade.PnL(), 1e-6)
}

func (suite *BacktestEngineV1TestSuite) TestDeterministicReplay() {
	series := linearSeries("TEST", 50, 0.5, 120)
	strat := types.Strategy{Kind: types.StrategyMACrossover}
	config := types.DefaultBacktestConfig()

	first, err := suite.engine.Run(context.Background(), strat, config, series, backtestengine.RunOptions{})
	suite.Require().NoError(err)

	second, err := suite.engine.Run(context.Background(), strat, config, series, backtestengine.RunOptions{})
	suite.Require().NoError(err)

	// Byte-identical replay, run and trade IDs included.
	suite.Equal(first, second)

	seen := make(map[string]bool, len(first.Trades))
	for _, trade := range first.Trades {
		suite.NotEmpty(trade.ID)
		suite.False(seen[trade.ID], "trade IDs are unique within a run")
		seen[trade.ID] = true
	}
}

func (suite *BacktestEngineV1TestSuite) TestRunIdentityTracksInputs() {
	series := linearSeries("TEST", 50, 0.5, 120)
	strat := types.Strategy{Kind: types.StrategyMACrossover}

	base, err := suite.engine.Run(context.Background(), strat, types.DefaultBacktestConfig(), series, backtestengine.RunOptions{})
	suite.Require().NoError(err)

	config := types.DefaultBacktestConfig()
	config.InitialCapital = 50000

	changed, err := suite.engine.Run(context.Background(), strat, config, series, backtestengine.RunOptions{})
	suite.Require().NoError(err)

	suite.NotEqual(base.ID, changed.ID, "a different config is a different run")
}

func (suite *BacktestEngineV1TestSuite) TestUnknownStrategyKind() {
	series := linearSeries("TEST", 100, 1, 10)

	result, err := suite.engine.Run(context.Background(), types.Strategy{Kind: "martingale"}, types.DefaultBacktestConfig(), series, backtestengine.RunOptions{})
	suite.Nil(result)
	suite.True(errors.HasCode(err, errors.ErrCodeUnknownStrategy))
}

func (suite *BacktestEngineV1TestSuite) TestInvalidConfigRejected() {
	series := linearSeries("TEST", 100, 1, 10)

	config := types.DefaultBacktestConfig()
	config.InitialCapital = -5

	result, err := suite.engine.Run(context.Background(), types.Strategy{Kind: types.StrategyBuyAndHold}, config, series, backtestengine.RunOptions{})
	suite.Nil(result)
	suite.True(errors.HasCode(err, errors.ErrCodeConfigValidation))
}

func (suite *BacktestEngineV1TestSuite) TestLookbackExceedsSeries() {
	series := linearSeries("TEST", 100, 1, 5)

	result, err := suite.engine.Run(context.Background(), types.Strategy{Kind: types.StrategyMACrossover}, types.DefaultBacktestConfig(), series, backtestengine.RunOptions{})
	suite.Nil(result)
	suite.True(errors.HasCode(err, errors.ErrCodeEmptySimulation))
}

func (suite *BacktestEngineV1TestSuite) TestMalformedBarAbortsRun() {
	series := linearSeries("TEST", 100, 1, 30)
	series.Bars[15].Prices[0] = -1

	result, err := suite.engine.Run(context.Background(), types.Strategy{Kind: types.StrategyBuyAndHold}, types.DefaultBacktestConfig(), series, backtestengine.RunOptions{})
	suite.Nil(result)
	suite.True(errors.HasCode(err, errors.ErrCodeDataIntegrity))
}

func (suite *BacktestEngineV1TestSuite) TestCanceledContext() {
	series := linearSeries("TEST", 100, 1, 30)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := suite.engine.Run(ctx, types.Strategy{Kind: types.StrategyBuyAndHold}, types.DefaultBacktestConfig(), series, backtestengine.RunOptions{})
	suite.Nil(result)
	suite.True(errors.HasCode(err, errors.ErrCodeSimulationFailed))
}

func (suite *BacktestEngineV1TestSuite) TestStepCallbackSeesEveryBar() {
	days := 40
	series := linearSeries("TEST", 100, 1, days)

	var calls []int

	callback := backtestengine.OnStepCallback(func(current, total int) error {
		suite.Equal(days, total)
		calls = append(calls, current)

		return nil
	})

	_, err := suite.engine.Run(context.Background(), types.Strategy{Kind: types.StrategyBuyAndHold}, frictionlessConfig(), series, backtestengine.RunOptions{
		OnStep: optional.Some(callback),
	})
	suite.Require().NoError(err)

	suite.Len(calls, days)
	suite.Equal(1, calls[0])
	suite.Equal(days, calls[len(calls)-1])
}

func (suite *BacktestEngineV1TestSuite) TestTimeWindowSlicing() {
	series := linearSeries("TEST", 100, 1, 60)

	config := frictionlessConfig()
	config.StartTime = optional.Some(series.Bars[10].Date)
	config.EndTime = optional.Some(series.Bars[39].Date)

	result, err := suite.engine.Run(context.Background(), types.Strategy{Kind: types.StrategyBuyAndHold}, config, series, backtestengine.RunOptions{})
	suite.Require().NoError(err)

	suite.Len(result.Snapshots, 30)
	suite.Equal(series.Bars[10].Date, result.Snapshots[0].Date)
	suite.Equal(series.Bars[39].Date, result.Snapshots[len(result.Snapshots)-1].Date)
}

func (suite *BacktestEngineV1TestSuite) TestFrictionReducesFinalValue() {
	series := linearSeries("TEST", 100, 1, 50)

	frictionless, err := suite.engine.Run(context.Background(), types.Strategy{Kind: types.StrategyBuyAndHold}, frictionlessConfig(), series, backtestengine.RunOptions{})
	suite.Require().NoError(err)

	config := types.DefaultBacktestConfig()
	withFriction, err := suite.engine.Run(context.Background(), types.Strategy{Kind: types.StrategyBuyAndHold}, config, series, backtestengine.RunOptions{})
	suite.Require().NoError(err)

	suite.Less(withFriction.FinalValue(), frictionless.FinalValue())
}

func (suite *BacktestEngineV1TestSuite) TestMonthlyRebalanceTrimsTowardTargets() {
	// Two instruments with very different volatility so the inverse-volatility
	// targets are uneven and prices drift between allocation steps.
	days := 150
	bars := make([]types.Bar, days)

	for i := range bars {
		bars[i] = types.Bar{
			Date: time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i),
			Prices: []float64{
				100 + 0.1*float64(i),
				100 + 5*math.Sin(float64(i)),
			},
			Volumes: []float64{10000, 10000},
		}
	}

	series := &types.HistoricalSeries{Symbols: []string{"CALM", "WILD"}, Bars: bars}

	config := frictionlessConfig()
	config.RebalanceCadence = types.RebalanceMonthly

	result, err := suite.engine.Run(context.Background(), types.Strategy{Kind: types.StrategyMeanVariance}, config, series, backtestengine.RunOptions{})
	suite.Require().NoError(err)

	rebalanceTrades := 0
	for _, trade := range result.Trades {
		if trade.Reason == "rebalance" {
			rebalanceTrades++
			suite.Equal(types.TradeStatusExecuted, trade.Status)
		}
	}

	suite.Greater(rebalanceTrades, 0, "month boundaries inside the replay must trade")

	generator, err := strategy.NewGenerator(types.StrategyMeanVariance)
	suite.Require().NoError(err)

	allocator := generator.(strategy.Allocator)
	params := strategy.DefaultParameters(types.StrategyMeanVariance)

	boundaries := 0
	for index := result.Lookback; index < series.Len(); index++ {
		if !isRebalanceBoundary(series, index, types.RebalanceMonthly) {
			continue
		}

		boundaries++
		weights := allocator.TargetWeights(series, index, params)
		suite.Require().Len(weights, series.Width())

		// Frictionless trims land exactly on the targets at the boundary bar.
		snapshot := result.Snapshots[index-result.Lookback]
		for instrument, weight := range weights {
			held := snapshot.Positions[instrument] * series.Bars[index].Prices[instrument]
			suite.InDelta(weight, held/snapshot.TotalValue, 1e-6)
		}
	}

	suite.Greater(boundaries, 0)
}

func TestIsRebalanceBoundary(t *testing.T) {
	t.Run("weekly boundary on friday before monday", func(t *testing.T) {
		series := &types.HistoricalSeries{
			Symbols: []string{"A"},
			Bars: []types.Bar{
				{Date: time.Date(2022, 1, 6, 0, 0, 0, 0, time.UTC), Prices: []float64{1}, Volumes: []float64{1}},  // thursday
				{Date: time.Date(2022, 1, 7, 0, 0, 0, 0, time.UTC), Prices: []float64{1}, Volumes: []float64{1}},  // friday
				{Date: time.Date(2022, 1, 10, 0, 0, 0, 0, time.UTC), Prices: []float64{1}, Volumes: []float64{1}}, // monday
			},
		}

		if isRebalanceBoundary(series, 0, types.RebalanceWeekly) {
			t.Error("thursday is not a boundary")
		}

		if !isRebalanceBoundary(series, 1, types.RebalanceWeekly) {
			t.Error("friday before a new ISO week is a boundary")
		}

		if isRebalanceBoundary(series, 2, types.RebalanceWeekly) {
			t.Error("final bar is never a boundary")
		}
	})

	t.Run("monthly boundary on month change", func(t *testing.T) {
		series := &types.HistoricalSeries{
			Symbols: []string{"A"},
			Bars: []types.Bar{
				{Date: time.Date(2022, 1, 28, 0, 0, 0, 0, time.UTC), Prices: []float64{1}, Volumes: []float64{1}},
				{Date: time.Date(2022, 1, 31, 0, 0, 0, 0, time.UTC), Prices: []float64{1}, Volumes: []float64{1}},
				{Date: time.Date(2022, 2, 1, 0, 0, 0, 0, time.UTC), Prices: []float64{1}, Volumes: []float64{1}},
			},
		}

		if isRebalanceBoundary(series, 0, types.RebalanceMonthly) {
			t.Error("mid-month is not a boundary")
		}

		if !isRebalanceBoundary(series, 1, types.RebalanceMonthly) {
			t.Error("last bar of the month is a boundary")
		}
	})
}
