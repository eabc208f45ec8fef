package optimizer

import (
	"github.com/quantforge/backtest/internal/types"
)

// Composite scoring weights: return matters most, risk-adjusted return and
// capital preservation split the rest.
const (
	returnWeight   = 0.4
	sharpeWeight   = 0.3
	drawdownWeight = 0.3
)

// normalizeSet min-max scales the values to [0, 100] over the candidate set.
// A degenerate spread maps every value to 50 so zero-variance sets still
// rank deterministically.
func normalizeSet(values []float64) []float64 {
	normalized := make([]float64, len(values))
	if len(values) == 0 {
		return normalized
	}

	low, high := values[0], values[0]

	for _, value := range values {
		if value < low {
			low = value
		}

		if value > high {
			high = value
		}
	}

	if high == low {
		for i := range normalized {
			normalized[i] = 50
		}

		return normalized
	}

	for i, value := range values {
		normalized[i] = 100 * (value - low) / (high - low)
	}

	return normalized
}

// compositeScores scores each record relative to the whole candidate set:
// 0.4 x norm(annualized return) + 0.3 x norm(sharpe) + 0.3 x (100 -
// norm(max drawdown)). Scores are only comparable within one set.
func compositeScores(records []types.PerformanceRecord) []float64 {
	returns := make([]float64, len(records))
	sharpes := make([]float64, len(records))
	drawdowns := make([]float64, len(records))

	for i, record := range records {
		returns[i] = record.AnnualizedReturn
		sharpes[i] = record.Sharpe
		drawdowns[i] = record.MaxDrawdown
	}

	returns = normalizeSet(returns)
	sharpes = normalizeSet(sharpes)
	drawdowns = normalizeSet(drawdowns)

	scores := make([]float64, len(records))
	for i := range records {
		scores[i] = returnWeight*returns[i] + sharpeWeight*sharpes[i] + drawdownWeight*(100-drawdowns[i])
	}

	return scores
}

// reduceBest picks the index of the maximum score. Ties go to the lower max
// drawdown, then to the earlier index, so the reduction is a pure function
// of its inputs regardless of evaluation order.
func reduceBest(scores []float64, records []types.PerformanceRecord) int {
	best := -1

	for i := range scores {
		if best < 0 {
			best = i

			continue
		}

		if scores[i] > scores[best] {
			best = i

			continue
		}

		if scores[i] == scores[best] && records[i].MaxDrawdown < records[best].MaxDrawdown {
			best = i
		}
	}

	return best
}
