package types

// SimulationResult is the immutable output of one replay: the trade ledger,
// the ordered snapshot sequence, and the raw signal log. The engine holds no
// state once a result is returned; the caller owns it.
type SimulationResult struct {
	// ID is the unique identifier for this simulation run.
	ID string `yaml:"id"`
	// StrategyKind and Parameters record the strategy that produced the run.
	StrategyKind StrategyKind `yaml:"strategy_kind"`
	Parameters   Parameters   `yaml:"parameters"`
	// Lookback is the first bar index with enough history for the generator;
	// len(Snapshots) = series length - Lookback.
	Lookback int `yaml:"lookback"`
	// InitialCapital echoes the config for downstream metric derivation.
	InitialCapital float64 `yaml:"initial_capital"`
	// Trades is the full ledger, executed and rejected.
	Trades []Trade `yaml:"trades"`
	// Snapshots is the ordered per-step portfolio state.
	Snapshots []PortfolioSnapshot `yaml:"snapshots"`
	// Signals is everything the generator emitted, in step order.
	Signals []Signal `yaml:"signals"`
}

// ExecutedTrades filters the ledger down to filled trades.
func (r *SimulationResult) ExecutedTrades() []Trade {
	executed := make([]Trade, 0, len(r.Trades))

	for _, trade := range r.Trades {
		if trade.Status == TradeStatusExecuted {
			executed = append(executed, trade)
		}
	}

	return executed
}

// Values returns the snapshot total-value series.
func (r *SimulationResult) Values() []float64 {
	values := make([]float64, len(r.Snapshots))
	for i, snapshot := range r.Snapshots {
		values[i] = snapshot.TotalValue
	}

	return values
}

// StepReturns returns the snapshot step-return series.
func (r *SimulationResult) StepReturns() []float64 {
	returns := make([]float64, len(r.Snapshots))
	for i, snapshot := range r.Snapshots {
		returns[i] = snapshot.StepReturn
	}

	return returns
}

// FinalValue returns the last snapshot's total value, or the initial capital
// for an empty snapshot sequence.
func (r *SimulationResult) FinalValue() float64 {
	if len(r.Snapshots) == 0 {
		return r.InitialCapital
	}

	return r.Snapshots[len(r.Snapshots)-1].TotalValue
}
