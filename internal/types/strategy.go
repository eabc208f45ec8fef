package types

// StrategyKind identifies one of the closed set of strategy variants. Adding
// a kind requires registering a generator for it; unregistered kinds fail at
// construction time, never mid-simulation.
type StrategyKind string

const (
	// StrategyBuyAndHold buys once at the first eligible step and never sells.
	StrategyBuyAndHold StrategyKind = "buy_and_hold"
	// StrategyMACrossover trades golden/death crosses of two moving averages.
	StrategyMACrossover StrategyKind = "ma_crossover"
	// StrategyRSIReversion trades RSI threshold crossings.
	StrategyRSIReversion StrategyKind = "rsi_reversion"
	// StrategyMACDMomentum trades MACD histogram sign changes.
	StrategyMACDMomentum StrategyKind = "macd_momentum"
	// StrategyBollingerBreakout trades closes breaking out of the bands.
	StrategyBollingerBreakout StrategyKind = "bollinger_breakout"
	// StrategyMeanVariance allocates across the universe by inverse volatility.
	StrategyMeanVariance StrategyKind = "mean_variance"
	// StrategyPairsTrading trades the spread z-score of two instruments.
	StrategyPairsTrading StrategyKind = "pairs_trading"
)

// AllStrategyKinds lists every registered kind in a stable order.
func AllStrategyKinds() []StrategyKind {
	return []StrategyKind{
		StrategyBuyAndHold,
		StrategyMACrossover,
		StrategyRSIReversion,
		StrategyMACDMomentum,
		StrategyBollingerBreakout,
		StrategyMeanVariance,
		StrategyPairsTrading,
	}
}

// Parameters holds a strategy's tunable knobs by name. Values are read-only
// within one simulation run.
type Parameters map[string]float64

// Get returns the named parameter or the fallback when it is absent.
func (p Parameters) Get(name string, fallback float64) float64 {
	if value, ok := p[name]; ok {
		return value
	}

	return fallback
}

// GetInt returns the named parameter truncated to int, or the fallback.
func (p Parameters) GetInt(name string, fallback int) int {
	if value, ok := p[name]; ok {
		return int(value)
	}

	return fallback
}

// Clone returns an independent copy so callers can derive variants without
// mutating shared state.
func (p Parameters) Clone() Parameters {
	clone := make(Parameters, len(p))
	for name, value := range p {
		clone[name] = value
	}

	return clone
}

// Strategy is a trading rule plus its parameterization. Kind is fixed at
// creation and Params must not be mutated during a run.
type Strategy struct {
	Kind   StrategyKind `yaml:"kind"`
	Params Parameters   `yaml:"params"`
}
