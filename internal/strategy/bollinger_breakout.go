package strategy

import (
	"fmt"

	"github.com/quantforge/backtest/internal/indicator"
	"github.com/quantforge/backtest/internal/types"
)

// BollingerBreakout trades band breakouts: a close breaking above the upper
// band buys the momentum, a close breaking below the lower band sells.
type BollingerBreakout struct{}

// Kind implements Generator.
func (b *BollingerBreakout) Kind() types.StrategyKind {
	return types.StrategyBollingerBreakout
}

// RequiredLookback implements Generator.
func (b *BollingerBreakout) RequiredLookback(params types.Parameters) int {
	return params.GetInt("period", 20)
}

// Signals implements Generator.
func (b *BollingerBreakout) Signals(series *types.HistoricalSeries, index int, params types.Parameters) []types.Signal {
	period := params.GetInt("period", 20)
	width := params.Get("width", 2)

	if index < b.RequiredLookback(params) {
		return nil
	}

	prices := series.ClosePricesUntil(0, index)
	price := prices[len(prices)-1]
	prevPrice := prices[len(prices)-2]

	bands, err := indicator.BollingerBands(prices, period, width)
	if err != nil {
		return nil
	}

	prevBands, err := indicator.BollingerBands(prices[:len(prices)-1], period, width)
	if err != nil {
		return nil
	}

	switch {
	case prevPrice <= prevBands.Upper && price > bands.Upper:
		return []types.Signal{
			{
				Time:       series.Bars[index].Date,
				Type:       types.SignalTypeBuy,
				Strength:   1,
				Instrument: 0,
				Reason:     fmt.Sprintf("close %.2f broke above upper band %.2f", price, bands.Upper),
				Confidence: 0.6,
			},
		}
	case prevPrice >= prevBands.Lower && price < bands.Lower:
		return []types.Signal{
			{
				Time:       series.Bars[index].Date,
				Type:       types.SignalTypeSell,
				Strength:   1,
				Instrument: 0,
				Reason:     fmt.Sprintf("close %.2f broke below lower band %.2f", price, bands.Lower),
				Confidence: 0.6,
			},
		}
	default:
		return nil
	}
}
