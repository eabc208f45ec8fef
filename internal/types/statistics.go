package types

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TradeStats summarizes the closed-trade ledger of one run.
type TradeStats struct {
	// Count of all executed trades.
	TotalTrades int `yaml:"total_trades"`
	// Count of trades with positive pnl.
	WinningTrades int `yaml:"winning_trades"`
	// Count of trades with non-positive pnl.
	LosingTrades int `yaml:"losing_trades"`
	// Win rate in percent, 0 for an empty ledger.
	WinRate float64 `yaml:"win_rate"`
	// Gross profit over gross loss, 0 when gross loss is 0.
	ProfitFactor float64 `yaml:"profit_factor"`
	// Average pnl of winning trades.
	AverageWin float64 `yaml:"average_win"`
	// Average pnl of losing trades (negative).
	AverageLoss float64 `yaml:"average_loss"`
	// Longest run of consecutive winners.
	MaxConsecutiveWins int `yaml:"max_consecutive_wins"`
	// Longest run of consecutive losers.
	MaxConsecutiveLosses int `yaml:"max_consecutive_losses"`
	// Summed pnl of winners.
	GrossProfit float64 `yaml:"gross_profit"`
	// Summed absolute pnl of losers.
	GrossLoss float64 `yaml:"gross_loss"`
	// Count of rejected orders.
	RejectedTrades int `yaml:"rejected_trades"`
}

// PerformanceRecord is the derived statistics of one completed simulation.
// Every ratio is defined even at zero-variance inputs; no field is ever NaN
// or infinite, so records serialize and rank safely.
type PerformanceRecord struct {
	// StrategyKind and Parameters identify the run this record describes.
	StrategyKind StrategyKind `yaml:"strategy_kind"`
	Parameters   Parameters   `yaml:"parameters"`
	// SimulationID links back to the SimulationResult.
	SimulationID string `yaml:"simulation_id"`
	// TotalReturn is (final - initial) / initial.
	TotalReturn float64 `yaml:"total_return"`
	// AnnualizedReturn is the geometric annualization over 252-day years.
	AnnualizedReturn float64 `yaml:"annualized_return"`
	// Volatility is the annualized population stddev of step returns.
	Volatility float64 `yaml:"volatility"`
	// Sharpe is excess annualized return over volatility, 0 when volatility is 0.
	Sharpe float64 `yaml:"sharpe"`
	// Sortino is excess annualized return over downside deviation, 0 when
	// the downside deviation is 0 (bounded; never infinite).
	Sortino float64 `yaml:"sortino"`
	// Calmar is annualized return over max drawdown, 0 when drawdown is 0.
	Calmar float64 `yaml:"calmar"`
	// MaxDrawdown is the peak-to-trough decline fraction, in [0,1].
	MaxDrawdown float64 `yaml:"max_drawdown"`
	// ValueAtRisk95 is the empirical 95% loss quantile of step returns.
	ValueAtRisk95 float64 `yaml:"value_at_risk_95"`
	// ExpectedShortfall95 is the mean of returns at or below the VaR threshold.
	ExpectedShortfall95 float64 `yaml:"expected_shortfall_95"`
	// Beta and Alpha are derived against a benchmark series when supplied.
	Beta  float64 `yaml:"beta"`
	Alpha float64 `yaml:"alpha"`
	// TradingDays is the number of simulated steps.
	TradingDays int `yaml:"trading_days"`
	// TradeStats rolls up the trade ledger.
	TradeStats TradeStats `yaml:"trade_stats"`
}

// ScenarioResult is the outcome of one stress-test transform applied to a
// completed simulation's realized value path.
type ScenarioResult struct {
	// ScenarioID names the transform ("market_crash_20pct", ...).
	ScenarioID string `yaml:"scenario_id"`
	// Description is the human-readable scenario summary.
	Description string `yaml:"description"`
	// ImpactPct is the change of final portfolio value vs. the unstressed
	// baseline, in percent.
	ImpactPct float64 `yaml:"impact_pct"`
	// ResultingDrawdown is the max drawdown of the stressed path, in [0,1].
	ResultingDrawdown float64 `yaml:"resulting_drawdown"`
	// WindowReturn is the cumulative return over the stressed window, where
	// the scenario defines one.
	WindowReturn float64 `yaml:"window_return"`
}

// OptimizationResult reports the best-found parameterization of a grid search.
// OptimizedScore >= BaselineScore always holds: the baseline is itself one
// grid point of the reduced set.
type OptimizationResult struct {
	StrategyKind        StrategyKind      `yaml:"strategy_kind"`
	BaselineParameters  Parameters        `yaml:"baseline_parameters"`
	OptimizedParameters Parameters        `yaml:"optimized_parameters"`
	BaselineScore       float64           `yaml:"baseline_score"`
	OptimizedScore      float64           `yaml:"optimized_score"`
	ScoreDelta          float64           `yaml:"score_delta"`
	BaselineRecord      PerformanceRecord `yaml:"baseline_record"`
	OptimizedRecord     PerformanceRecord `yaml:"optimized_record"`
	// EvaluatedPoints counts successful grid evaluations; FailedPoints the
	// ones whose runs errored (isolated, never aborting siblings).
	EvaluatedPoints int `yaml:"evaluated_points"`
	FailedPoints    int `yaml:"failed_points"`
}

// RankingEntry is one row of a ranking: a strategy and the metric value it
// was ranked by.
type RankingEntry struct {
	Kind  StrategyKind `yaml:"kind"`
	Value float64      `yaml:"value"`
}

// BlendResult is the best-found combination of compared strategies.
type BlendResult struct {
	// Weights of the blended return series, summing to 1.
	Weights map[StrategyKind]float64 `yaml:"weights"`
	// Sharpe of the blended series.
	Sharpe float64 `yaml:"sharpe"`
	// BestSingleSharpe is the best constituent's Sharpe.
	BestSingleSharpe float64 `yaml:"best_single_sharpe"`
	// DiversificationBenefit = Sharpe - BestSingleSharpe.
	DiversificationBenefit float64 `yaml:"diversification_benefit"`
}

// RankingResult compares N strategies: per-metric rankings, composite-score
// ranking (ties broken by lower max drawdown), a pairwise Pearson matrix over
// step returns, and the best blended combination.
type RankingResult struct {
	// Kinds is the axis order of Correlations and the order Records align to.
	Kinds   []StrategyKind      `yaml:"kinds"`
	Records []PerformanceRecord `yaml:"records"`
	// Failures maps a strategy kind to its run error, for runs that did not
	// complete. Failed strategies appear in no ranking.
	Failures map[StrategyKind]string `yaml:"failures,omitempty"`

	ByComposite []RankingEntry `yaml:"by_composite"`
	ByReturn    []RankingEntry `yaml:"by_return"`
	BySharpe    []RankingEntry `yaml:"by_sharpe"`
	ByDrawdown  []RankingEntry `yaml:"by_drawdown"`
	ByWinRate   []RankingEntry `yaml:"by_win_rate"`

	Correlations [][]float64 `yaml:"correlations"`
	BestBlend    BlendResult `yaml:"best_blend"`
}

func writeYAML(path string, value any) error {
	data, err := yaml.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}

// WritePerformanceRecord writes a performance record to a YAML file.
func WritePerformanceRecord(path string, record PerformanceRecord) error {
	return writeYAML(path, record)
}

// WriteSimulationResult writes a simulation result to a YAML file.
func WriteSimulationResult(path string, result *SimulationResult) error {
	return writeYAML(path, result)
}

// WriteScenarioResults writes stress-test outcomes to a YAML file.
func WriteScenarioResults(path string, results []ScenarioResult) error {
	return writeYAML(path, results)
}

// WriteOptimizationResult writes an optimization result to a YAML file.
func WriteOptimizationResult(path string, result *OptimizationResult) error {
	return writeYAML(path, result)
}

// WriteRankingResult writes a comparison result to a YAML file.
func WriteRankingResult(path string, result *RankingResult) error {
	return writeYAML(path, result)
}
