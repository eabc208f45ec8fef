package indicator

import (
	"math"
	"sort"
)

// TradingDaysPerYear is the annualization base for daily series.
const TradingDaysPerYear = 252

// Volatility returns the annualized population standard deviation of a
// per-step return series: stddev x sqrt(252). Empty or single-element input
// returns 0, never NaN.
func Volatility(returns []float64) float64 {
	return StdDev(returns) * math.Sqrt(TradingDaysPerYear)
}

// MaxDrawdown returns the largest peak-to-trough decline of a value series as
// a fraction in [0,1]. The peak is tracked forward; drawdown at step i is
// (peak - value[i]) / peak.
func MaxDrawdown(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	peak := values[0]
	maxDrawdown := 0.0

	for _, value := range values {
		if value > peak {
			peak = value
		}

		if peak <= 0 {
			continue
		}

		drawdown := (peak - value) / peak
		if drawdown > maxDrawdown {
			maxDrawdown = drawdown
		}
	}

	return maxDrawdown
}

// ValueAtRisk returns the empirical return quantile at the given confidence
// level: returns sorted ascending, indexed at floor((1-confidence) x n).
// Empty input returns 0.
func ValueAtRisk(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	index := int(math.Floor((1 - confidence) * float64(len(sorted))))
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	if index < 0 {
		index = 0
	}

	return sorted[index]
}

// ExpectedShortfall returns the mean of all returns at or below the VaR
// threshold at the given confidence level, 0 if no returns qualify.
func ExpectedShortfall(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	threshold := ValueAtRisk(returns, confidence)

	var sum float64

	count := 0

	for _, value := range returns {
		if value <= threshold {
			sum += value
			count++
		}
	}

	if count == 0 {
		return 0
	}

	return sum / float64(count)
}
