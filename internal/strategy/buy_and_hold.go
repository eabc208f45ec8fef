package strategy

import "github.com/quantforge/backtest/internal/types"

// BuyAndHold buys the first instrument with all available cash at the first
// step and never trades again.
type BuyAndHold struct{}

// Kind implements Generator.
func (b *BuyAndHold) Kind() types.StrategyKind {
	return types.StrategyBuyAndHold
}

// RequiredLookback implements Generator. Buying needs no history at all, so
// the position opens on the very first bar.
func (b *BuyAndHold) RequiredLookback(params types.Parameters) int {
	return 0
}

// Signals implements Generator.
func (b *BuyAndHold) Signals(series *types.HistoricalSeries, index int, params types.Parameters) []types.Signal {
	if index != 0 {
		return nil
	}

	return []types.Signal{
		{
			Time:       series.Bars[index].Date,
			Type:       types.SignalTypeBuy,
			Strength:   1,
			Instrument: 0,
			Reason:     "initial buy and hold entry",
			Confidence: 1,
		},
	}
}
