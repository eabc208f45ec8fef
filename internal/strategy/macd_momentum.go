package strategy

import (
	"fmt"

	"github.com/quantforge/backtest/internal/indicator"
	"github.com/quantforge/backtest/internal/types"
)

// MACDMomentum trades MACD histogram sign changes: the histogram turning
// positive buys, turning negative sells.
type MACDMomentum struct{}

// Kind implements Generator.
func (m *MACDMomentum) Kind() types.StrategyKind {
	return types.StrategyMACDMomentum
}

// RequiredLookback implements Generator.
func (m *MACDMomentum) RequiredLookback(params types.Parameters) int {
	slow := params.GetInt("slow_period", 26)
	signal := params.GetInt("signal_period", 9)

	return slow + signal
}

// Signals implements Generator.
func (m *MACDMomentum) Signals(series *types.HistoricalSeries, index int, params types.Parameters) []types.Signal {
	fast := params.GetInt("fast_period", 12)
	slow := params.GetInt("slow_period", 26)
	signal := params.GetInt("signal_period", 9)

	if index < m.RequiredLookback(params) {
		return nil
	}

	prices := series.ClosePricesUntil(0, index)

	now, err := indicator.MACD(prices, fast, slow, signal)
	if err != nil {
		return nil
	}

	prev, err := indicator.MACD(prices[:len(prices)-1], fast, slow, signal)
	if err != nil {
		return nil
	}

	switch {
	case prev.Histogram <= 0 && now.Histogram > 0:
		return []types.Signal{
			{
				Time:       series.Bars[index].Date,
				Type:       types.SignalTypeBuy,
				Strength:   1,
				Instrument: 0,
				Reason:     fmt.Sprintf("MACD histogram turned positive (%.4f)", now.Histogram),
				Confidence: 0.7,
			},
		}
	case prev.Histogram >= 0 && now.Histogram < 0:
		return []types.Signal{
			{
				Time:       series.Bars[index].Date,
				Type:       types.SignalTypeSell,
				Strength:   1,
				Instrument: 0,
				Reason:     fmt.Sprintf("MACD histogram turned negative (%.4f)", now.Histogram),
				Confidence: 0.7,
			},
		}
	default:
		return nil
	}
}
