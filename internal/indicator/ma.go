package indicator

import "github.com/quantforge/backtest/pkg/errors"

// SMA returns the arithmetic mean of the last period values.
func SMA(series []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidPeriod, "period must be a positive integer, got %d", period)
	}

	if len(series) < period {
		return 0, errors.NewInsufficientDataErrorf(period, len(series),
			"SMA requires %d data points, have %d", period, len(series))
	}

	return Mean(series[len(series)-period:]), nil
}

// EMA returns the exponential moving average of the series, seeded with the
// SMA of the first period values and smoothed with factor 2/(period+1).
func EMA(series []float64, period int) (float64, error) {
	values, err := emaSeries(series, period)
	if err != nil {
		return 0, err
	}

	return values[len(values)-1], nil
}

// emaSeries returns the running EMA for every index from period-1 onward.
// The result is aligned so that emaSeries(s, p)[i] is the EMA at s[p-1+i].
func emaSeries(series []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "period must be a positive integer, got %d", period)
	}

	if len(series) < period {
		return nil, errors.NewInsufficientDataErrorf(period, len(series),
			"EMA requires %d data points, have %d", period, len(series))
	}

	multiplier := 2.0 / float64(period+1)
	values := make([]float64, 0, len(series)-period+1)

	ema := Mean(series[:period])
	values = append(values, ema)

	for i := period; i < len(series); i++ {
		ema = (series[i]-ema)*multiplier + ema
		values = append(values, ema)
	}

	return values, nil
}
