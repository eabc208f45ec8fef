package strategy

import (
	"fmt"

	"github.com/quantforge/backtest/internal/indicator"
	"github.com/quantforge/backtest/internal/types"
)

// RSIReversion trades mean reversion on RSI threshold crossings: a cross
// below the oversold threshold buys, a cross above the overbought threshold
// sells. Signals are transition-based: RSI lingering past a threshold emits
// nothing after the crossing step.
type RSIReversion struct{}

// Kind implements Generator.
func (r *RSIReversion) Kind() types.StrategyKind {
	return types.StrategyRSIReversion
}

// RequiredLookback implements Generator. RSI needs period+1 points and the
// previous step needs a full window of its own.
func (r *RSIReversion) RequiredLookback(params types.Parameters) int {
	return params.GetInt("period", 14) + 1
}

// Signals implements Generator.
func (r *RSIReversion) Signals(series *types.HistoricalSeries, index int, params types.Parameters) []types.Signal {
	period := params.GetInt("period", 14)
	oversold := params.Get("oversold", 30)
	overbought := params.Get("overbought", 70)

	if index < r.RequiredLookback(params) {
		return nil
	}

	prices := series.ClosePricesUntil(0, index)

	rsiNow, err := indicator.RSI(prices, period)
	if err != nil {
		return nil
	}

	rsiPrev, err := indicator.RSI(prices[:len(prices)-1], period)
	if err != nil {
		return nil
	}

	switch {
	case rsiPrev >= oversold && rsiNow < oversold:
		return []types.Signal{
			{
				Time:       series.Bars[index].Date,
				Type:       types.SignalTypeBuy,
				Strength:   1,
				Instrument: 0,
				Reason:     fmt.Sprintf("RSI crossed oversold (%.2f -> %.2f)", rsiPrev, rsiNow),
				Confidence: clamp01((oversold - rsiNow) / oversold),
			},
		}
	case rsiPrev <= overbought && rsiNow > overbought:
		return []types.Signal{
			{
				Time:       series.Bars[index].Date,
				Type:       types.SignalTypeSell,
				Strength:   1,
				Instrument: 0,
				Reason:     fmt.Sprintf("RSI crossed overbought (%.2f -> %.2f)", rsiPrev, rsiNow),
				Confidence: clamp01((rsiNow - overbought) / (100 - overbought)),
			},
		}
	default:
		return nil
	}
}

func clamp01(value float64) float64 {
	if value < 0 {
		return 0
	}

	if value > 1 {
		return 1
	}

	return value
}
