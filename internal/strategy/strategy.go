// Package strategy maps each strategy kind to its signal generator. The set
// of kinds is closed: construction fails for an unregistered kind, so a
// simulation can never reach its replay loop with an unknown strategy.
package strategy

import (
	"github.com/quantforge/backtest/internal/types"
	"github.com/quantforge/backtest/pkg/errors"
)

// Generator turns a causal price window into trade signals. Implementations
// are pure: the same series, index, and parameters always produce the same
// signals.
type Generator interface {
	// Kind returns the strategy kind this generator implements.
	Kind() types.StrategyKind
	// RequiredLookback is the first bar index with enough history to emit
	// signals. Indexes below it yield an empty signal list, never an error.
	RequiredLookback(params types.Parameters) int
	// Signals inspects the series up to and including index and returns the
	// signals for that step.
	Signals(series *types.HistoricalSeries, index int, params types.Parameters) []types.Signal
}

// Allocator is implemented by generators that maintain explicit portfolio
// weights. The engine's rebalance pass trims positions toward these targets;
// strategies without an allocator are never rebalanced.
type Allocator interface {
	// TargetWeights returns one weight per instrument, summing to at most 1.
	// A nil result means no target is defined at this index.
	TargetWeights(series *types.HistoricalSeries, index int, params types.Parameters) []float64
}

// NewGenerator returns the generator registered for the kind. Unknown kinds
// fail here, at construction time, never mid-loop.
func NewGenerator(kind types.StrategyKind) (Generator, error) {
	switch kind {
	case types.StrategyBuyAndHold:
		return &BuyAndHold{}, nil
	case types.StrategyMACrossover:
		return &MACrossover{}, nil
	case types.StrategyRSIReversion:
		return &RSIReversion{}, nil
	case types.StrategyMACDMomentum:
		return &MACDMomentum{}, nil
	case types.StrategyBollingerBreakout:
		return &BollingerBreakout{}, nil
	case types.StrategyMeanVariance:
		return &MeanVariance{}, nil
	case types.StrategyPairsTrading:
		return &PairsTrading{}, nil
	default:
		return nil, errors.Newf(errors.ErrCodeUnknownStrategy, "no generator registered for kind %q", kind)
	}
}

// DefaultParameters returns the conventional parameterization per kind. The
// optimizer's default grids are built from the same table.
func DefaultParameters(kind types.StrategyKind) types.Parameters {
	switch kind {
	case types.StrategyBuyAndHold:
		return types.Parameters{}
	case types.StrategyMACrossover:
		return types.Parameters{"short_period": 10, "long_period": 30}
	case types.StrategyRSIReversion:
		return types.Parameters{"period": 14, "oversold": 30, "overbought": 70}
	case types.StrategyMACDMomentum:
		return types.Parameters{"fast_period": 12, "slow_period": 26, "signal_period": 9}
	case types.StrategyBollingerBreakout:
		return types.Parameters{"period": 20, "width": 2}
	case types.StrategyMeanVariance:
		return types.Parameters{"lookback": 60, "interval": 21}
	case types.StrategyPairsTrading:
		return types.Parameters{"lookback": 30, "entry_z": 2, "exit_z": 0.5}
	default:
		return types.Parameters{}
	}
}
