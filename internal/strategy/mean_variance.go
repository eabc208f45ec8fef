package strategy

import (
	"fmt"

	"github.com/quantforge/backtest/internal/indicator"
	"github.com/quantforge/backtest/internal/types"
)

// MeanVariance allocates across the whole universe with inverse-volatility
// weights recomputed every interval steps. It is the one generator that also
// implements Allocator, so the engine's rebalance cadence trims positions
// toward the same targets between allocation steps.
type MeanVariance struct{}

// Kind implements Generator.
func (m *MeanVariance) Kind() types.StrategyKind {
	return types.StrategyMeanVariance
}

// RequiredLookback implements Generator.
func (m *MeanVariance) RequiredLookback(params types.Parameters) int {
	return params.GetInt("lookback", 60)
}

// Signals implements Generator. On allocation steps it emits one BUY per
// instrument whose strengths split the available cash into the target
// weights: buying sequentially, instrument i must take w_i of the original
// cash, which is w_i / (1 - sum of the weights already spent) of what
// remains.
func (m *MeanVariance) Signals(series *types.HistoricalSeries, index int, params types.Parameters) []types.Signal {
	lookback := m.RequiredLookback(params)
	interval := params.GetInt("interval", 21)

	if index < lookback {
		return nil
	}

	if interval <= 0 {
		interval = 1
	}

	if (index-lookback)%interval != 0 {
		return nil
	}

	weights := m.TargetWeights(series, index, params)
	if weights == nil {
		return nil
	}

	signals := make([]types.Signal, 0, len(weights))
	spent := 0.0

	for instrument, weight := range weights {
		if weight <= 0 {
			continue
		}

		remaining := 1 - spent
		if remaining <= 0 {
			break
		}

		strength := weight / remaining
		if strength > 1 {
			strength = 1
		}

		signals = append(signals, types.Signal{
			Time:       series.Bars[index].Date,
			Type:       types.SignalTypeBuy,
			Strength:   strength,
			Instrument: instrument,
			Reason:     fmt.Sprintf("inverse-volatility allocation (weight=%.3f)", weight),
			Confidence: 0.5,
		})

		spent += weight
	}

	return signals
}

// TargetWeights implements Allocator: weight_i proportional to the inverse
// of instrument i's return volatility over the lookback window. A flat
// instrument (zero volatility) gets a fixed finite inverse mass so a
// degenerate column cannot absorb the whole book.
func (m *MeanVariance) TargetWeights(series *types.HistoricalSeries, index int, params types.Parameters) []float64 {
	lookback := m.RequiredLookback(params)
	if index < lookback {
		return nil
	}

	width := series.Width()
	inverse := make([]float64, width)
	total := 0.0

	for instrument := 0; instrument < width; instrument++ {
		prices := series.ClosePricesUntil(instrument, index)
		window := prices[len(prices)-lookback:]
		vol := indicator.StdDev(indicator.Returns(window))

		if vol <= 0 {
			inverse[instrument] = float64(width)
		} else {
			inverse[instrument] = 1 / vol
		}

		total += inverse[instrument]
	}

	if total == 0 {
		return nil
	}

	weights := make([]float64, width)
	for instrument := range inverse {
		weights[instrument] = inverse[instrument] / total
	}

	return weights
}
