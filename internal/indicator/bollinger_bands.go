package indicator

import "github.com/quantforge/backtest/pkg/errors"

// BollingerValue holds the three bands of a Bollinger computation.
type BollingerValue struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// BollingerBands computes the SMA middle band and the upper/lower bands at
// width standard deviations over the last period values.
func BollingerBands(series []float64, period int, width float64) (BollingerValue, error) {
	if width <= 0 {
		return BollingerValue{}, errors.Newf(errors.ErrCodeInvalidParameter,
			"band width must be positive, got %f", width)
	}

	middle, err := SMA(series, period)
	if err != nil {
		return BollingerValue{}, err
	}

	deviation := StdDev(series[len(series)-period:])

	return BollingerValue{
		Upper:  middle + width*deviation,
		Middle: middle,
		Lower:  middle - width*deviation,
	}, nil
}
