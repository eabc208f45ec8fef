package optimizer

import (
	"sort"

	"github.com/quantforge/backtest/internal/types"
)

// DefaultGrid returns the search ranges per strategy kind. The first value
// of every dimension is the strategy's default, so the first enumerated
// point is always the unoptimized baseline.
func DefaultGrid(kind types.StrategyKind) map[string][]float64 {
	switch kind {
	case types.StrategyMACrossover:
		return map[string][]float64{
			"short_period": {10, 5, 15, 20},
			"long_period":  {30, 40, 50, 60},
		}
	case types.StrategyRSIReversion:
		return map[string][]float64{
			"period":     {14, 7, 21},
			"oversold":   {30, 20, 25},
			"overbought": {70, 75, 80},
		}
	case types.StrategyMACDMomentum:
		return map[string][]float64{
			"fast_period":   {12, 8, 16},
			"slow_period":   {26, 21, 31},
			"signal_period": {9, 6, 12},
		}
	case types.StrategyBollingerBreakout:
		return map[string][]float64{
			"period": {20, 10, 30},
			"width":  {2, 1.5, 2.5},
		}
	case types.StrategyMeanVariance:
		return map[string][]float64{
			"lookback": {60, 40, 80},
			"interval": {21, 5, 10},
		}
	case types.StrategyPairsTrading:
		return map[string][]float64{
			"lookback": {30, 20, 45},
			"entry_z":  {2, 1.5, 2.5},
			"exit_z":   {0.5, 0.25, 0.75},
		}
	case types.StrategyBuyAndHold:
		return map[string][]float64{}
	default:
		return map[string][]float64{}
	}
}

// enumerateGrid expands a grid into the full Cartesian product of parameter
// sets. Dimensions are walked in sorted name order so the enumeration, and
// with it every reduction tie-break, is deterministic.
func enumerateGrid(grid map[string][]float64) []types.Parameters {
	names := make([]string, 0, len(grid))
	for name := range grid {
		names = append(names, name)
	}

	sort.Strings(names)

	points := []types.Parameters{{}}

	for _, name := range names {
		expanded := make([]types.Parameters, 0, len(points)*len(grid[name]))

		for _, point := range points {
			for _, value := range grid[name] {
				next := point.Clone()
				next[name] = value
				expanded = append(expanded, next)
			}
		}

		points = expanded
	}

	return points
}
