package strategy

import (
	"fmt"
	"math"

	"github.com/quantforge/backtest/internal/indicator"
	"github.com/quantforge/backtest/internal/types"
)

// MACrossover trades the crossings of a short and a long simple moving
// average: a golden cross (short rising through long) buys, a death cross
// sells. Signals fire only on the step where the crossing occurred.
type MACrossover struct{}

// Kind implements Generator.
func (m *MACrossover) Kind() types.StrategyKind {
	return types.StrategyMACrossover
}

// RequiredLookback implements Generator. The previous step needs a full long
// window too, so the first eligible index is long_period.
func (m *MACrossover) RequiredLookback(params types.Parameters) int {
	return params.GetInt("long_period", 30)
}

// Signals implements Generator.
func (m *MACrossover) Signals(series *types.HistoricalSeries, index int, params types.Parameters) []types.Signal {
	shortPeriod := params.GetInt("short_period", 10)
	longPeriod := params.GetInt("long_period", 30)

	if index < m.RequiredLookback(params) {
		return nil
	}

	prices := series.ClosePricesUntil(0, index)

	shortNow, err := indicator.SMA(prices, shortPeriod)
	if err != nil {
		return nil
	}

	longNow, err := indicator.SMA(prices, longPeriod)
	if err != nil {
		return nil
	}

	previous := prices[:len(prices)-1]

	shortPrev, err := indicator.SMA(previous, shortPeriod)
	if err != nil {
		return nil
	}

	longPrev, err := indicator.SMA(previous, longPeriod)
	if err != nil {
		return nil
	}

	confidence := 0.5
	if longNow != 0 {
		confidence = math.Min(1, 0.5+math.Abs(shortNow-longNow)/longNow*25)
	}

	// The crossing must have just occurred between index-1 and index, not
	// merely hold as an ordering.
	switch {
	case shortPrev <= longPrev && shortNow > longNow:
		return []types.Signal{
			{
				Time:       series.Bars[index].Date,
				Type:       types.SignalTypeBuy,
				Strength:   1,
				Instrument: 0,
				Reason:     fmt.Sprintf("golden cross (short=%.2f long=%.2f)", shortNow, longNow),
				Confidence: confidence,
			},
		}
	case shortPrev >= longPrev && shortNow < longNow:
		return []types.Signal{
			{
				Time:       series.Bars[index].Date,
				Type:       types.SignalTypeSell,
				Strength:   1,
				Instrument: 0,
				Reason:     fmt.Sprintf("death cross (short=%.2f long=%.2f)", shortNow, longNow),
				Confidence: confidence,
			},
		}
	default:
		return nil
	}
}
