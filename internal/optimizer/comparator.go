package optimizer

import (
	"context"
	"math"
	"runtime"
	"sort"
	"sync"

	"github.com/moznion/go-optional"
	backtestengine "github.com/quantforge/backtest/internal/backtest/engine"
	enginev1 "github.com/quantforge/backtest/internal/backtest/engine/engine_v1"
	"github.com/quantforge/backtest/internal/indicator"
	"github.com/quantforge/backtest/internal/logger"
	"github.com/quantforge/backtest/internal/metrics"
	"github.com/quantforge/backtest/internal/strategy"
	"github.com/quantforge/backtest/internal/types"
	"github.com/quantforge/backtest/pkg/errors"
	"go.uber.org/zap"
)

// blendStep is the weight-grid resolution of the blend search: weights move
// in steps of 1/blendStep.
const blendStep = 10

// Comparator runs multiple strategies over the same series and ranks them.
type Comparator struct {
	log     *logger.Logger
	engine  backtestengine.Engine
	workers int
}

// NewComparator creates a comparator with the given worker-pool size.
// Workers <= 0 defaults to the CPU count.
func NewComparator(log *logger.Logger, workers int) *Comparator {
	if log == nil {
		log = logger.NewNopLogger()
	}

	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	return &Comparator{
		log:     log,
		engine:  enginev1.New(nil),
		workers: workers,
	}
}

// strategyOutcome is one compared strategy's run, written into a per-index
// slot by the worker pool.
type strategyOutcome struct {
	kind        types.StrategyKind
	record      types.PerformanceRecord
	stepReturns []float64
	err         error
}

// Compare runs every kind with its default parameters, ranks the successful
// runs per metric and by composite score, and searches the weight grid for
// the best blended combination. One strategy's failure never aborts the
// comparison; only a fully failed field is an error.
func (c *Comparator) Compare(ctx context.Context, kinds []types.StrategyKind, config types.BacktestConfig, series *types.HistoricalSeries) (*types.RankingResult, error) {
	c.log.Debug("Comparison started",
		zap.Int("strategies", len(kinds)),
		zap.Int("workers", c.workers),
	)

	outcomes := make([]strategyOutcome, len(kinds))
	jobs := make(chan int)

	var wg sync.WaitGroup

	for w := 0; w < c.workers; w++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range jobs {
				outcomes[i] = c.runStrategy(ctx, kinds[i], config, series)
			}
		}()
	}

	for i := range kinds {
		jobs <- i
	}

	close(jobs)
	wg.Wait()

	result := &types.RankingResult{
		Failures: make(map[types.StrategyKind]string),
	}

	var succeeded []strategyOutcome

	for _, outcome := range outcomes {
		if outcome.err != nil {
			result.Failures[outcome.kind] = outcome.err.Error()

			c.log.Error("Compared strategy failed",
				zap.String("strategy", string(outcome.kind)),
				zap.Error(outcome.err),
			)

			continue
		}

		succeeded = append(succeeded, outcome)
		result.Kinds = append(result.Kinds, outcome.kind)
		result.Records = append(result.Records, outcome.record)
	}

	if len(succeeded) == 0 {
		return nil, errors.Newf(errors.ErrCodeSimulationFailed,
			"all %d compared strategies failed", len(kinds))
	}

	c.rank(result)
	c.correlate(result, succeeded)
	result.BestBlend = c.searchBlend(succeeded, config)

	c.log.Debug("Comparison finished",
		zap.Int("succeeded", len(succeeded)),
		zap.Int("failed", len(result.Failures)),
		zap.Float64("diversification_benefit", result.BestBlend.DiversificationBenefit),
	)

	return result, nil
}

func (c *Comparator) runStrategy(ctx context.Context, kind types.StrategyKind, config types.BacktestConfig, series *types.HistoricalSeries) strategyOutcome {
	strat := types.Strategy{Kind: kind, Params: strategy.DefaultParameters(kind)}

	simulation, err := c.engine.Run(ctx, strat, config, series, backtestengine.RunOptions{})
	if err != nil {
		return strategyOutcome{kind: kind, err: err}
	}

	return strategyOutcome{
		kind:        kind,
		record:      metrics.Compute(simulation, config, optional.None[[]float64]()),
		stepReturns: simulation.StepReturns(),
	}
}

// rank fills the per-metric and composite rankings. Every ranking is a
// strict order: exact metric ties fall back to lower max drawdown, then to
// record order.
func (c *Comparator) rank(result *types.RankingResult) {
	records := result.Records

	byMetric := func(value func(types.PerformanceRecord) float64, ascending bool) []types.RankingEntry {
		order := make([]int, len(records))
		for i := range records {
			order[i] = i
		}

		sort.SliceStable(order, func(a, b int) bool {
			left, right := value(records[order[a]]), value(records[order[b]])
			if left != right {
				if ascending {
					return left < right
				}

				return left > right
			}

			return records[order[a]].MaxDrawdown < records[order[b]].MaxDrawdown
		})

		entries := make([]types.RankingEntry, len(records))
		for rank, i := range order {
			entries[rank] = types.RankingEntry{Kind: records[i].StrategyKind, Value: value(records[i])}
		}

		return entries
	}

	result.ByReturn = byMetric(func(r types.PerformanceRecord) float64 { return r.AnnualizedReturn }, false)
	result.BySharpe = byMetric(func(r types.PerformanceRecord) float64 { return r.Sharpe }, false)
	result.ByDrawdown = byMetric(func(r types.PerformanceRecord) float64 { return r.MaxDrawdown }, true)
	result.ByWinRate = byMetric(func(r types.PerformanceRecord) float64 { return r.TradeStats.WinRate }, false)

	scores := compositeScores(records)

	composite := make([]types.RankingEntry, len(records))
	order := make([]int, len(records))

	for i := range records {
		composite[i] = types.RankingEntry{Kind: records[i].StrategyKind, Value: scores[i]}
		order[i] = i
	}

	sort.SliceStable(order, func(a, b int) bool {
		if scores[order[a]] != scores[order[b]] {
			return scores[order[a]] > scores[order[b]]
		}

		return records[order[a]].MaxDrawdown < records[order[b]].MaxDrawdown
	})

	result.ByComposite = make([]types.RankingEntry, len(records))
	for rank, i := range order {
		result.ByComposite[rank] = composite[i]
	}
}

// correlate fills the pairwise Pearson matrix over aligned step returns.
func (c *Comparator) correlate(result *types.RankingResult, succeeded []strategyOutcome) {
	aligned := alignReturns(succeeded)

	matrix := make([][]float64, len(aligned))
	for i := range aligned {
		matrix[i] = make([]float64, len(aligned))
		matrix[i][i] = 1

		for j := 0; j < i; j++ {
			correlation := indicator.Correlation(aligned[i], aligned[j])
			matrix[i][j] = correlation
			matrix[j][i] = correlation
		}
	}

	result.Correlations = matrix
}

// alignReturns truncates every step-return series to the common tail. All
// runs end on the same final bar; they differ only in lookback at the start.
func alignReturns(succeeded []strategyOutcome) [][]float64 {
	shortest := -1

	for _, outcome := range succeeded {
		if shortest < 0 || len(outcome.stepReturns) < shortest {
			shortest = len(outcome.stepReturns)
		}
	}

	aligned := make([][]float64, len(succeeded))
	for i, outcome := range succeeded {
		aligned[i] = outcome.stepReturns[len(outcome.stepReturns)-shortest:]
	}

	return aligned
}

// searchBlend walks the full 0.1-step weight grid over the successful
// strategies and keeps the combination with the highest blended Sharpe. The
// unit-weight points double as the single-constituent baselines.
func (c *Comparator) searchBlend(succeeded []strategyOutcome, config types.BacktestConfig) types.BlendResult {
	aligned := alignReturns(succeeded)

	best := types.BlendResult{Weights: map[types.StrategyKind]float64{}}
	bestSingle := math.Inf(-1)
	bestSharpe := math.Inf(-1)

	var bestWeights []int

	for _, weights := range weightCompositions(len(succeeded), blendStep) {
		sharpe := blendedSharpe(aligned, weights, config.RiskFreeRate)

		if isUnitWeight(weights) && sharpe > bestSingle {
			bestSingle = sharpe
		}

		if sharpe > bestSharpe {
			bestSharpe = sharpe
			bestWeights = weights
		}
	}

	for i, units := range bestWeights {
		if units > 0 {
			best.Weights[succeeded[i].kind] = float64(units) / blendStep
		}
	}

	best.Sharpe = bestSharpe
	best.BestSingleSharpe = bestSingle
	best.DiversificationBenefit = bestSharpe - bestSingle

	return best
}

// blendedSharpe computes the Sharpe of the weighted return series, 0 at zero
// volatility.
func blendedSharpe(aligned [][]float64, weights []int, riskFreeRate float64) float64 {
	if len(aligned) == 0 || len(aligned[0]) == 0 {
		return 0
	}

	steps := len(aligned[0])
	blended := make([]float64, steps)

	for i, series := range aligned {
		weight := float64(weights[i]) / blendStep
		if weight == 0 {
			continue
		}

		for step, stepReturn := range series {
			blended[step] += weight * stepReturn
		}
	}

	growth := 1.0
	for _, stepReturn := range blended {
		growth *= 1 + stepReturn
	}

	if growth <= 0 {
		return 0
	}

	volatility := indicator.Volatility(blended)
	if volatility == 0 {
		return 0
	}

	years := float64(steps) / float64(indicator.TradingDaysPerYear)
	annualized := math.Pow(growth, 1/years) - 1

	return (annualized - riskFreeRate) / volatility
}

// weightCompositions enumerates every vector of n non-negative integers
// summing to units, in lexicographic order.
func weightCompositions(n, units int) [][]int {
	if n == 0 {
		return nil
	}

	if n == 1 {
		return [][]int{{units}}
	}

	var compositions [][]int

	for first := units; first >= 0; first-- {
		for _, rest := range weightCompositions(n-1, units-first) {
			composition := make([]int, 0, n)
			composition = append(composition, first)
			composition = append(composition, rest...)
			compositions = append(compositions, composition)
		}
	}

	return compositions
}

// isUnitWeight reports whether the composition puts all weight on a single
// constituent.
func isUnitWeight(weights []int) bool {
	for _, units := range weights {
		if units != 0 && units != blendStep {
			return false
		}
	}

	return true
}
