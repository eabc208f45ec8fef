package indicator

import "github.com/quantforge/backtest/pkg/errors"

// MACDValue holds the three components of a MACD computation.
type MACDValue struct {
	Line      float64
	Signal    float64
	Histogram float64
}

// MACD computes the Moving Average Convergence Divergence at the end of the
// series: the fast EMA minus the slow EMA, a signal EMA of that difference,
// and their histogram.
func MACD(series []float64, fastPeriod, slowPeriod, signalPeriod int) (MACDValue, error) {
	if fastPeriod <= 0 || slowPeriod <= 0 || signalPeriod <= 0 {
		return MACDValue{}, errors.Newf(errors.ErrCodeInvalidPeriod,
			"MACD periods must be positive, got fast=%d slow=%d signal=%d", fastPeriod, slowPeriod, signalPeriod)
	}

	if fastPeriod >= slowPeriod {
		return MACDValue{}, errors.Newf(errors.ErrCodeInvalidParameter,
			"fast period %d must be shorter than slow period %d", fastPeriod, slowPeriod)
	}

	required := slowPeriod + signalPeriod - 1
	if len(series) < required {
		return MACDValue{}, errors.NewInsufficientDataErrorf(required, len(series),
			"MACD requires %d data points, have %d", required, len(series))
	}

	fast, err := emaSeries(series, fastPeriod)
	if err != nil {
		return MACDValue{}, err
	}

	slow, err := emaSeries(series, slowPeriod)
	if err != nil {
		return MACDValue{}, err
	}

	// Align the fast series to the slow one: slow[i] sits at bar slowPeriod-1+i.
	offset := slowPeriod - fastPeriod

	line := make([]float64, len(slow))
	for i := range slow {
		line[i] = fast[i+offset] - slow[i]
	}

	signal, err := emaSeries(line, signalPeriod)
	if err != nil {
		return MACDValue{}, err
	}

	latestLine := line[len(line)-1]
	latestSignal := signal[len(signal)-1]

	return MACDValue{
		Line:      latestLine,
		Signal:    latestSignal,
		Histogram: latestLine - latestSignal,
	}, nil
}
