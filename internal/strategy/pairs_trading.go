package strategy

import (
	"fmt"
	"math"

	"github.com/quantforge/backtest/internal/indicator"
	"github.com/quantforge/backtest/internal/types"
)

// PairsTrading trades the spread between the first two instruments: when the
// z-score of the log price ratio crosses the entry threshold the rich leg is
// sold and the cheap leg bought, and the position unwinds when the spread
// converges back inside the exit threshold. All crossings are
// transition-based. A universe narrower than two instruments yields no
// signals.
type PairsTrading struct{}

// Kind implements Generator.
func (p *PairsTrading) Kind() types.StrategyKind {
	return types.StrategyPairsTrading
}

// RequiredLookback implements Generator.
func (p *PairsTrading) RequiredLookback(params types.Parameters) int {
	return params.GetInt("lookback", 30) + 1
}

// Signals implements Generator.
func (p *PairsTrading) Signals(series *types.HistoricalSeries, index int, params types.Parameters) []types.Signal {
	lookback := params.GetInt("lookback", 30)
	entryZ := params.Get("entry_z", 2)
	exitZ := params.Get("exit_z", 0.5)

	if series.Width() < 2 || index < p.RequiredLookback(params) {
		return nil
	}

	zNow, ok := p.zScore(series, index, lookback)
	if !ok {
		return nil
	}

	zPrev, ok := p.zScore(series, index-1, lookback)
	if !ok {
		return nil
	}

	date := series.Bars[index].Date

	switch {
	case zPrev < entryZ && zNow >= entryZ:
		// First leg is rich: rotate out of it into the second leg.
		return []types.Signal{
			{
				Time:       date,
				Type:       types.SignalTypeSell,
				Strength:   1,
				Instrument: 0,
				Reason:     fmt.Sprintf("spread z-score %.2f crossed entry threshold", zNow),
				Confidence: clamp01(zNow / (2 * entryZ)),
			},
			{
				Time:       date,
				Type:       types.SignalTypeBuy,
				Strength:   0.5,
				Instrument: 1,
				Reason:     fmt.Sprintf("spread z-score %.2f crossed entry threshold", zNow),
				Confidence: clamp01(zNow / (2 * entryZ)),
			},
		}
	case zPrev > -entryZ && zNow <= -entryZ:
		return []types.Signal{
			{
				Time:       date,
				Type:       types.SignalTypeSell,
				Strength:   1,
				Instrument: 1,
				Reason:     fmt.Sprintf("spread z-score %.2f crossed entry threshold", zNow),
				Confidence: clamp01(-zNow / (2 * entryZ)),
			},
			{
				Time:       date,
				Type:       types.SignalTypeBuy,
				Strength:   0.5,
				Instrument: 0,
				Reason:     fmt.Sprintf("spread z-score %.2f crossed entry threshold", zNow),
				Confidence: clamp01(-zNow / (2 * entryZ)),
			},
		}
	case math.Abs(zPrev) > exitZ && math.Abs(zNow) <= exitZ:
		return []types.Signal{
			{
				Time:       date,
				Type:       types.SignalTypeSell,
				Strength:   1,
				Instrument: 0,
				Reason:     fmt.Sprintf("spread converged (z-score %.2f)", zNow),
				Confidence: 0.5,
			},
			{
				Time:       date,
				Type:       types.SignalTypeSell,
				Strength:   1,
				Instrument: 1,
				Reason:     fmt.Sprintf("spread converged (z-score %.2f)", zNow),
				Confidence: 0.5,
			},
		}
	default:
		return nil
	}
}

// zScore standardizes the current log price ratio against its trailing
// lookback window ending at index.
func (p *PairsTrading) zScore(series *types.HistoricalSeries, index, lookback int) (float64, bool) {
	if index+1 < lookback {
		return 0, false
	}

	spreads := make([]float64, lookback)
	for i := 0; i < lookback; i++ {
		bar := series.Bars[index-lookback+1+i]
		spreads[i] = math.Log(bar.Prices[0] / bar.Prices[1])
	}

	deviation := indicator.StdDev(spreads)
	if deviation == 0 {
		return 0, false
	}

	return (spreads[lookback-1] - indicator.Mean(spreads)) / deviation, true
}
