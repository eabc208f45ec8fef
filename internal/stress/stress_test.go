package stress

import (
	"testing"
	"time"

	"github.com/quantforge/backtest/internal/types"
	"github.com/stretchr/testify/suite"
)

type StressTestSuite struct {
	suite.Suite
}

func TestStressSuite(t *testing.T) {
	suite.Run(t, new(StressTestSuite))
}

// inputFromValues builds a one-instrument all-cash baseline whose value path
// follows the given series.
func inputFromValues(values []float64) Input {
	bars := make([]types.Bar, len(values))
	snapshots := make([]types.PortfolioSnapshot, len(values))

	for i, value := range values {
		date := time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
		bars[i] = types.Bar{Date: date, Prices: []float64{100}, Volumes: []float64{1000}}

		stepReturn := 0.0
		if i > 0 && values[i-1] > 0 {
			stepReturn = value/values[i-1] - 1
		}

		snapshots[i] = types.PortfolioSnapshot{
			Date:       date,
			TotalValue: value,
			Cash:       value,
			Positions:  map[int]float64{},
			StepReturn: stepReturn,
		}
	}

	return Input{
		Result: &types.SimulationResult{
			ID:             "stress-baseline",
			StrategyKind:   types.StrategyBuyAndHold,
			InitialCapital: values[0],
			Snapshots:      snapshots,
		},
		Series: &types.HistoricalSeries{Symbols: []string{"TEST"}, Bars: bars},
	}
}

func (suite *StressTestSuite) TestMarketCrashImpactMatchesShock() {
	input := inputFromValues([]float64{1000, 1010, 1020, 1030, 1040, 1050})

	result := MarketCrash{Pct: 0.20}.Apply(input)

	suite.Equal("market_crash_20pct", result.ScenarioID)
	suite.InDelta(-20, result.ImpactPct, 1e-9, "a 20% shock moves the final value by exactly -20%")
	suite.GreaterOrEqual(result.ResultingDrawdown, 0.20)
}

func (suite *StressTestSuite) TestVolatilityShockPreservesMeanDrift() {
	input := inputFromValues([]float64{1000, 1050, 990, 1060, 1000, 1080})

	unit := VolatilityShock{Multiplier: 1}.Apply(input)
	doubled := VolatilityShock{Multiplier: 2}.Apply(input)

	suite.InDelta(0, unit.ImpactPct, 1e-9, "multiplier 1 is the identity transform")
	suite.Greater(doubled.ResultingDrawdown, unit.ResultingDrawdown)
}

func (suite *StressTestSuite) TestBearMarketWindowReturn() {
	values := make([]float64, 30)
	for i := range values {
		values[i] = 1000 // flat baseline isolates the drift
	}

	input := inputFromValues(values)
	result := BearMarket{DailyDriftPct: -0.01, DurationDays: 10}.Apply(input)

	expected := 1.0
	for i := 0; i < 10; i++ {
		expected *= 0.99
	}

	suite.InDelta(expected-1, result.WindowReturn, 1e-9)
	suite.Less(result.ImpactPct, 0.0)
}

func (suite *StressTestSuite) TestInterestRateShockSparesInsensitivePositions() {
	input := inputFromValues([]float64{1000, 1000, 1000, 1000})

	// Hold 5 units of the only instrument at every step.
	for i := range input.Result.Snapshots {
		input.Result.Snapshots[i].Positions = map[int]float64{0: 5}
	}

	insensitive := InterestRateShock{Bps: 200}.Apply(input)
	suite.Zero(insensitive.ImpactPct, "no declared duration, no impact")

	input.RateSensitivities = []float64{4} // four-year duration proxy
	sensitive := InterestRateShock{Bps: 200}.Apply(input)

	// 5 units x price 100 x duration 4 x 200bps = 40 off each 1000 mark.
	suite.InDelta(-4, sensitive.ImpactPct, 1e-9)
}

func (suite *StressTestSuite) TestCorrelationBreakdownZeroWhenFlat() {
	input := inputFromValues([]float64{1000, 1000, 1000})

	result := CorrelationBreakdown{}.Apply(input)

	suite.Zero(result.ImpactPct, "all-cash portfolio has no diversification to lose")
}

func (suite *StressTestSuite) TestScenarioResultsRepeatable() {
	// Wide portfolio with uneven sensitivities: the position summations must
	// not depend on map iteration order.
	width := 12
	days := 6

	sensitivities := make([]float64, width)
	positions := map[int]float64{}
	symbols := make([]string, width)

	for i := 0; i < width; i++ {
		sensitivities[i] = 0.5 + 0.31*float64(i)
		positions[i] = 1 + 0.17*float64(i)
		symbols[i] = string(rune('A' + i))
	}

	bars := make([]types.Bar, days)
	snapshots := make([]types.PortfolioSnapshot, days)

	for day := range bars {
		date := time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day)

		prices := make([]float64, width)
		volumes := make([]float64, width)
		value := 0.0

		for i := 0; i < width; i++ {
			prices[i] = (90 + 1.01*float64(i)) * (1 + 0.01*float64(day*(i%3)))
			volumes[i] = 1000
			value += positions[i] * prices[i]
		}

		bars[day] = types.Bar{Date: date, Prices: prices, Volumes: volumes}
		snapshots[day] = types.PortfolioSnapshot{Date: date, TotalValue: value, Positions: positions}
	}

	input := Input{
		Result: &types.SimulationResult{
			ID:             "stress-wide",
			StrategyKind:   types.StrategyBuyAndHold,
			InitialCapital: snapshots[0].TotalValue,
			Snapshots:      snapshots,
		},
		Series:            &types.HistoricalSeries{Symbols: symbols, Bars: bars},
		RateSensitivities: sensitivities,
	}

	rate := InterestRateShock{Bps: 150}.Apply(input)
	correlation := CorrelationBreakdown{}.Apply(input)

	for i := 0; i < 25; i++ {
		suite.Equal(rate, InterestRateShock{Bps: 150}.Apply(input))
		suite.Equal(correlation, CorrelationBreakdown{}.Apply(input))
	}
}

func (suite *StressTestSuite) TestRunAllBattery() {
	input := inputFromValues([]float64{1000, 1020, 990, 1050, 1010, 1070})

	results := RunAll(input)

	suite.Len(results, 6)

	seen := make(map[string]bool, len(results))
	for _, result := range results {
		suite.NotEmpty(result.ScenarioID)
		suite.False(seen[result.ScenarioID], "scenario ids are unique")
		seen[result.ScenarioID] = true
	}
}

func (suite *StressTestSuite) TestEmptyBaseline() {
	input := Input{
		Result: &types.SimulationResult{ID: "empty", InitialCapital: 1000},
		Series: &types.HistoricalSeries{Symbols: []string{"TEST"}},
	}

	for _, result := range RunAll(input) {
		suite.Zero(result.ImpactPct)
		suite.Zero(result.ResultingDrawdown)
	}
}
