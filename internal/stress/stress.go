// Package stress applies named deterministic transforms to a completed
// simulation's realized value path. Scenarios never re-run signal
// generation: they stress the path the portfolio actually walked, not the
// strategy's hypothetical reaction.
package stress

import (
	"fmt"
	"sort"

	"github.com/quantforge/backtest/internal/indicator"
	"github.com/quantforge/backtest/internal/types"
)

// Input bundles everything a scenario can draw on: the baseline result, the
// market series it was produced from, and the per-instrument rate duration
// proxies (years; 0 marks an instrument as rate-insensitive).
type Input struct {
	Result            *types.SimulationResult
	Series            *types.HistoricalSeries
	RateSensitivities []float64
}

// Scenario is one deterministic stress transform.
type Scenario interface {
	// ID names the scenario in results ("market_crash_20pct", ...).
	ID() string
	// Apply evaluates the scenario against the baseline path.
	Apply(input Input) types.ScenarioResult
}

// RunAll evaluates the standard scenario battery in a fixed order.
func RunAll(input Input) []types.ScenarioResult {
	battery := []Scenario{
		MarketCrash{Pct: 0.10},
		MarketCrash{Pct: 0.30},
		VolatilityShock{Multiplier: 2},
		BearMarket{DailyDriftPct: -0.01, DurationDays: 60},
		InterestRateShock{Bps: 200},
		CorrelationBreakdown{},
	}

	results := make([]types.ScenarioResult, len(battery))
	for i, scenario := range battery {
		results[i] = scenario.Apply(input)
	}

	return results
}

// heldInstruments returns a snapshot's instrument indexes in ascending order.
// Float summations over positions must always iterate through this so
// scenario results are reproducible.
func heldInstruments(positions map[int]float64) []int {
	held := make([]int, 0, len(positions))
	for instrument := range positions {
		held = append(held, instrument)
	}

	sort.Ints(held)

	return held
}

// impactPct is the percentage change of the stressed final value against the
// baseline final value.
func impactPct(baseline, stressed []float64) float64 {
	if len(baseline) == 0 || baseline[len(baseline)-1] <= 0 {
		return 0
	}

	return 100 * (stressed[len(stressed)-1] - baseline[len(baseline)-1]) / baseline[len(baseline)-1]
}

// rebuildPath compounds a return series from the starting value, flooring at
// zero once the path is wiped out.
func rebuildPath(start float64, returns []float64) []float64 {
	values := make([]float64, len(returns)+1)
	values[0] = start

	for i, stepReturn := range returns {
		next := values[i] * (1 + stepReturn)
		if next < 0 {
			next = 0
		}

		values[i+1] = next
	}

	return values
}

// MarketCrash applies an instantaneous multiplicative shock at the midpoint
// of the path and propagates it forward unchanged in shape.
type MarketCrash struct {
	// Pct is the fractional loss, e.g. 0.2 for a 20% crash.
	Pct float64
}

func (s MarketCrash) ID() string {
	return fmt.Sprintf("market_crash_%dpct", int(s.Pct*100))
}

func (s MarketCrash) Apply(input Input) types.ScenarioResult {
	values := input.Result.Values()
	result := types.ScenarioResult{
		ScenarioID:  s.ID(),
		Description: fmt.Sprintf("instantaneous %.0f%% crash at the path midpoint", s.Pct*100),
	}

	if len(values) == 0 {
		return result
	}

	crashStep := len(values) / 2

	stressed := make([]float64, len(values))
	copy(stressed, values)

	for i := crashStep; i < len(stressed); i++ {
		stressed[i] *= 1 - s.Pct
	}

	result.ImpactPct = impactPct(values, stressed)
	result.ResultingDrawdown = indicator.MaxDrawdown(stressed)

	if values[crashStep] > 0 {
		result.WindowReturn = stressed[len(stressed)-1]/values[crashStep] - 1
	}

	return result
}

// VolatilityShock scales every step return's deviation from the mean return
// and rebuilds the value path from the shocked series.
type VolatilityShock struct {
	Multiplier float64
}

func (s VolatilityShock) ID() string {
	return fmt.Sprintf("volatility_shock_%gx", s.Multiplier)
}

func (s VolatilityShock) Apply(input Input) types.ScenarioResult {
	values := input.Result.Values()
	result := types.ScenarioResult{
		ScenarioID:  s.ID(),
		Description: fmt.Sprintf("step-return deviations scaled by %gx around the mean", s.Multiplier),
	}

	if len(values) < 2 {
		return result
	}

	returns := indicator.Returns(values)
	mean := indicator.Mean(returns)

	shocked := make([]float64, len(returns))
	for i, stepReturn := range returns {
		shocked[i] = mean + s.Multiplier*(stepReturn-mean)
	}

	stressed := rebuildPath(values[0], shocked)

	result.ImpactPct = impactPct(values, stressed)
	result.ResultingDrawdown = indicator.MaxDrawdown(stressed)

	if values[0] > 0 {
		result.WindowReturn = stressed[len(stressed)-1]/values[0] - 1
	}

	return result
}

// BearMarket overlays a sustained negative daily drift over the first
// DurationDays steps of the path.
type BearMarket struct {
	// DailyDriftPct is the per-step drift, e.g. -0.01 for -1% per day.
	DailyDriftPct float64
	DurationDays  int
}

func (s BearMarket) ID() string {
	return fmt.Sprintf("bear_market_%gpct_%dd", -s.DailyDriftPct*100, s.DurationDays)
}

func (s BearMarket) Apply(input Input) types.ScenarioResult {
	values := input.Result.Values()
	result := types.ScenarioResult{
		ScenarioID: s.ID(),
		Description: fmt.Sprintf("sustained %.1f%% daily drift over %d days",
			s.DailyDriftPct*100, s.DurationDays),
	}

	if len(values) < 2 {
		return result
	}

	returns := indicator.Returns(values)

	window := s.DurationDays
	if window > len(returns) {
		window = len(returns)
	}

	shocked := make([]float64, len(returns))
	copy(shocked, returns)

	windowGrowth := 1.0

	for i := 0; i < window; i++ {
		shocked[i] += s.DailyDriftPct
		windowGrowth *= 1 + shocked[i]
	}

	stressed := rebuildPath(values[0], shocked)

	result.ImpactPct = impactPct(values, stressed)
	result.ResultingDrawdown = indicator.MaxDrawdown(stressed)
	result.WindowReturn = windowGrowth - 1

	return result
}

// InterestRateShock marks rate-sensitive positions down by a duration proxy:
// each held instrument loses duration x bps of value. Instruments without a
// declared sensitivity are unaffected, as is cash.
type InterestRateShock struct {
	// Bps is the rate move in basis points, e.g. 200 for +2%.
	Bps float64
}

func (s InterestRateShock) ID() string {
	return fmt.Sprintf("rate_shock_%dbps", int(s.Bps))
}

func (s InterestRateShock) Apply(input Input) types.ScenarioResult {
	snapshots := input.Result.Snapshots
	result := types.ScenarioResult{
		ScenarioID:  s.ID(),
		Description: fmt.Sprintf("%.0fbps rate move against declared duration proxies", s.Bps),
	}

	if len(snapshots) == 0 {
		return result
	}

	values := input.Result.Values()
	lookback := input.Result.Lookback

	stressed := make([]float64, len(values))

	for i, snapshot := range snapshots {
		markdown := 0.0

		for _, instrument := range heldInstruments(snapshot.Positions) {
			if instrument >= len(input.RateSensitivities) {
				continue
			}

			duration := input.RateSensitivities[instrument]
			if duration == 0 {
				continue
			}

			price := input.Series.Bars[lookback+i].Prices[instrument]
			markdown += snapshot.Positions[instrument] * price * duration * s.Bps / 10000
		}

		stressed[i] = values[i] - markdown
		if stressed[i] < 0 {
			stressed[i] = 0
		}
	}

	result.ImpactPct = impactPct(values, stressed)
	result.ResultingDrawdown = indicator.MaxDrawdown(stressed)

	return result
}

// CorrelationBreakdown reports the diversification benefit lost if every
// pairwise correlation between held instruments went to 1: the gap between
// the realized portfolio volatility and the perfectly-correlated weighted
// sum of instrument volatilities.
type CorrelationBreakdown struct{}

func (s CorrelationBreakdown) ID() string {
	return "correlation_breakdown"
}

func (s CorrelationBreakdown) Apply(input Input) types.ScenarioResult {
	result := types.ScenarioResult{
		ScenarioID:  s.ID(),
		Description: "pairwise correlations forced to 1 across held instruments",
	}

	snapshots := input.Result.Snapshots
	if len(snapshots) == 0 {
		return result
	}

	final := snapshots[len(snapshots)-1]
	if final.TotalValue <= 0 {
		return result
	}

	lastBar := input.Series.Bars[input.Result.Lookback+len(snapshots)-1]

	// Weighted sum of standalone instrument volatilities: the portfolio
	// volatility under perfect correlation.
	perfectVolatility := 0.0

	for _, instrument := range heldInstruments(final.Positions) {
		weight := final.Positions[instrument] * lastBar.Prices[instrument] / final.TotalValue
		instrumentReturns := indicator.Returns(input.Series.ClosePrices(instrument))
		perfectVolatility += weight * indicator.Volatility(instrumentReturns)
	}

	if perfectVolatility <= 0 {
		return result
	}

	realizedVolatility := indicator.Volatility(input.Result.StepReturns())

	// The benefit that evaporates when correlations converge to 1.
	result.ImpactPct = -100 * (perfectVolatility - realizedVolatility) / perfectVolatility
	result.ResultingDrawdown = indicator.MaxDrawdown(input.Result.Values())

	return result
}
