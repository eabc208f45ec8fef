package metrics

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/quantforge/backtest/internal/types"
	"github.com/stretchr/testify/suite"
)

type MetricsTestSuite struct {
	suite.Suite

	config types.BacktestConfig
}

func (suite *MetricsTestSuite) SetupTest() {
	suite.config = types.DefaultBacktestConfig()
}

func TestMetricsSuite(t *testing.T) {
	suite.Run(t, new(MetricsTestSuite))
}

// resultFromValues builds a minimal simulation result whose snapshots follow
// the given total-value path.
func resultFromValues(initial float64, values []float64) *types.SimulationResult {
	snapshots := make([]types.PortfolioSnapshot, len(values))
	for i, value := range values {
		stepReturn := 0.0
		if i > 0 && values[i-1] > 0 {
			stepReturn = value/values[i-1] - 1
		}

		snapshots[i] = types.PortfolioSnapshot{
			Date:       time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i),
			TotalValue: value,
			Cash:       value,
			StepReturn: stepReturn,
		}
	}

	return &types.SimulationResult{
		ID:             "test-run",
		StrategyKind:   types.StrategyBuyAndHold,
		Parameters:     types.Parameters{},
		InitialCapital: initial,
		Snapshots:      snapshots,
	}
}

func executedTrade(entry, exit, quantity float64) types.Trade {
	return types.Trade{
		ID:         "t",
		Status:     types.TradeStatusExecuted,
		EntryPrice: entry,
		ExitPrice:  exit,
		Quantity:   quantity,
	}
}

func (suite *MetricsTestSuite) TestFlatPathProducesZeroRatios() {
	result := resultFromValues(1000, []float64{1000, 1000, 1000, 1000})

	record := Compute(result, suite.config, optional.None[[]float64]())

	suite.Zero(record.TotalReturn)
	suite.Zero(record.Volatility)
	suite.Zero(record.Sharpe, "zero volatility never divides")
	suite.Zero(record.Sortino)
	suite.Zero(record.Calmar, "zero drawdown never divides")
	suite.Zero(record.MaxDrawdown)
	suite.Equal(4, record.TradingDays)
}

func (suite *MetricsTestSuite) TestTotalAndAnnualizedReturn() {
	// Exactly one 252-day year doubling: annualized == total == 100%.
	values := make([]float64, 252)
	for i := range values {
		values[i] = 1000 + 1000*float64(i)/251
	}

	result := resultFromValues(1000, values)
	record := Compute(result, suite.config, optional.None[[]float64]())

	suite.InDelta(1.0, record.TotalReturn, 1e-9)
	suite.InDelta(1.0, record.AnnualizedReturn, 1e-9)
}

func (suite *MetricsTestSuite) TestSortinoZeroWithoutNegativeReturns() {
	result := resultFromValues(1000, []float64{1000, 1010, 1025, 1030})

	record := Compute(result, suite.config, optional.None[[]float64]())

	suite.Zero(record.Sortino, "no downside, bounded zero instead of infinity")
	suite.Greater(record.Sharpe, 0.0)
}

func (suite *MetricsTestSuite) TestSortinoUsesOnlyDownside() {
	result := resultFromValues(1000, []float64{1000, 1100, 1050, 1150, 1100, 1200})

	record := Compute(result, suite.config, optional.None[[]float64]())

	suite.NotZero(record.Sortino)
	suite.Greater(record.Sortino, record.Sharpe, "downside deviation is smaller than total deviation here")
}

func (suite *MetricsTestSuite) TestWipedOutPortfolio() {
	result := resultFromValues(1000, []float64{1000, 500, 0})

	record := Compute(result, suite.config, optional.None[[]float64]())

	suite.InDelta(-1, record.TotalReturn, 1e-9)
	suite.InDelta(-1, record.AnnualizedReturn, 1e-9, "total loss annualizes to -100%, not NaN")
	suite.InDelta(1, record.MaxDrawdown, 1e-9)
}

func (suite *MetricsTestSuite) TestTradeStatsPartitioning() {
	result := resultFromValues(1000, []float64{1000, 1010})
	result.Trades = []types.Trade{
		executedTrade(100, 110, 1), // +10
		executedTrade(100, 105, 1), // +5
		executedTrade(100, 90, 1),  // -10
		executedTrade(100, 112, 1), // +12
		executedTrade(100, 108, 1), // +8
		{ID: "r", Status: types.TradeStatusRejected, EntryPrice: 100, ExitPrice: 100, Quantity: 1},
	}

	record := Compute(result, suite.config, optional.None[[]float64]())
	stats := record.TradeStats

	suite.Equal(5, stats.TotalTrades)
	suite.Equal(4, stats.WinningTrades)
	suite.Equal(1, stats.LosingTrades)
	suite.Equal(1, stats.RejectedTrades)
	suite.InDelta(80, stats.WinRate, 1e-9)
	suite.InDelta(35, stats.GrossProfit, 1e-9)
	suite.InDelta(10, stats.GrossLoss, 1e-9)
	suite.InDelta(3.5, stats.ProfitFactor, 1e-9)
	suite.InDelta(8.75, stats.AverageWin, 1e-9)
	suite.InDelta(-10, stats.AverageLoss, 1e-9)
	suite.Equal(2, stats.MaxConsecutiveWins)
	suite.Equal(1, stats.MaxConsecutiveLosses)
}

func (suite *MetricsTestSuite) TestProfitFactorZeroWithoutLosses() {
	result := resultFromValues(1000, []float64{1000, 1010})
	result.Trades = []types.Trade{executedTrade(100, 110, 1)}

	record := Compute(result, suite.config, optional.None[[]float64]())

	suite.Zero(record.TradeStats.ProfitFactor, "no gross loss, defined zero instead of infinity")
}

func (suite *MetricsTestSuite) TestBetaAgainstIdenticalBenchmark() {
	result := resultFromValues(1000, []float64{1000, 1100, 1050, 1150, 1100, 1200})

	record := Compute(result, suite.config, optional.Some(result.StepReturns()))

	suite.InDelta(1.0, record.Beta, 1e-9, "a portfolio is beta 1 against itself")
}

func (suite *MetricsTestSuite) TestBetaZeroAgainstFlatBenchmark() {
	result := resultFromValues(1000, []float64{1000, 1100, 1050, 1150})

	record := Compute(result, suite.config, optional.Some([]float64{0, 0, 0, 0}))

	suite.Zero(record.Beta)
	suite.Zero(record.Alpha)
}

func (suite *MetricsTestSuite) TestEmptyResult() {
	result := &types.SimulationResult{
		ID:             "empty",
		StrategyKind:   types.StrategyBuyAndHold,
		InitialCapital: 1000,
	}

	record := Compute(result, suite.config, optional.None[[]float64]())

	suite.Zero(record.TotalReturn)
	suite.Zero(record.TradingDays)
	suite.Zero(record.TradeStats.TotalTrades)
}
