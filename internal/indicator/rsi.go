package indicator

import "github.com/quantforge/backtest/pkg/errors"

// RSI returns the Wilder-smoothed Relative Strength Index of the series. The
// first period changes seed the average gain/loss, subsequent changes are
// exponentially smoothed. The result is in [0,100]; a series with zero
// average loss is fully overbought and returns exactly 100.
func RSI(series []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidPeriod, "period must be a positive integer, got %d", period)
	}

	if len(series) < period+1 {
		return 0, errors.NewInsufficientDataErrorf(period+1, len(series),
			"RSI requires %d data points, have %d", period+1, len(series))
	}

	gains := make([]float64, 0, len(series)-1)
	losses := make([]float64, 0, len(series)-1)

	for i := 1; i < len(series); i++ {
		change := series[i] - series[i-1]
		if change > 0 {
			gains = append(gains, change)
			losses = append(losses, 0)
		} else {
			gains = append(gains, 0)
			losses = append(losses, -change)
		}
	}

	avgGain := 0.0
	avgLoss := 0.0

	// First average
	for i := 0; i < period; i++ {
		avgGain += gains[i]
		avgLoss += losses[i]
	}

	avgGain /= float64(period)
	avgLoss /= float64(period)

	// Subsequent averages using Wilder's smoothing method
	for i := period; i < len(gains); i++ {
		avgGain = (avgGain*float64(period-1) + gains[i]) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + losses[i]) / float64(period)
	}

	if avgLoss == 0 {
		return 100, nil // Perfect uptrend
	}

	rs := avgGain / avgLoss

	return 100 - (100 / (1 + rs)), nil
}
