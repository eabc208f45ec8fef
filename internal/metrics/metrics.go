// Package metrics derives a PerformanceRecord from a completed simulation.
// Every ratio is defined at degenerate inputs: zero variance, zero drawdown,
// and empty ledgers produce the documented zero values, never NaN or Inf.
package metrics

import (
	"math"

	"github.com/moznion/go-optional"
	"github.com/quantforge/backtest/internal/indicator"
	"github.com/quantforge/backtest/internal/types"
)

// Compute rolls a simulation result up into a performance record. The
// benchmark, when supplied, must be a step-return series aligned with the
// result's snapshots; beta and alpha stay 0 without one.
func Compute(result *types.SimulationResult, config types.BacktestConfig, benchmark optional.Option[[]float64]) types.PerformanceRecord {
	values := result.Values()
	stepReturns := result.StepReturns()
	tradingDays := len(result.Snapshots)

	record := types.PerformanceRecord{
		StrategyKind: result.StrategyKind,
		Parameters:   result.Parameters,
		SimulationID: result.ID,
		TradingDays:  tradingDays,
		TradeStats:   computeTradeStats(result.Trades),
	}

	if tradingDays == 0 || result.InitialCapital <= 0 {
		return record
	}

	finalValue := values[len(values)-1]
	record.TotalReturn = (finalValue - result.InitialCapital) / result.InitialCapital
	record.AnnualizedReturn = annualize(finalValue/result.InitialCapital, tradingDays)
	record.Volatility = indicator.Volatility(stepReturns)
	record.MaxDrawdown = indicator.MaxDrawdown(values)
	record.ValueAtRisk95 = indicator.ValueAtRisk(stepReturns, 0.95)
	record.ExpectedShortfall95 = indicator.ExpectedShortfall(stepReturns, 0.95)

	excess := record.AnnualizedReturn - config.RiskFreeRate

	if record.Volatility > 0 {
		record.Sharpe = excess / record.Volatility
	}

	// Sortino stays 0 when there is no downside at all, even with a positive
	// excess return. The ratio is kept finite so records serialize cleanly.
	if downside := downsideDeviation(stepReturns); downside > 0 {
		record.Sortino = excess / downside
	}

	if record.MaxDrawdown > 0 {
		record.Calmar = record.AnnualizedReturn / record.MaxDrawdown
	}

	if benchmark.IsSome() {
		record.Beta, record.Alpha = benchmarkResiduals(record.AnnualizedReturn, stepReturns, benchmark.Unwrap(), config.RiskFreeRate)
	}

	return record
}

// annualize converts a growth factor over tradingDays into a 252-day
// geometric annual rate. A non-positive growth factor cannot be annualized
// geometrically and maps to -100%.
func annualize(growth float64, tradingDays int) float64 {
	if growth <= 0 {
		return -1
	}

	years := float64(tradingDays) / float64(indicator.TradingDaysPerYear)
	if years <= 0 {
		return 0
	}

	return math.Pow(growth, 1/years) - 1
}

// downsideDeviation is the annualized population stddev of the negative step
// returns only, 0 when there are none.
func downsideDeviation(stepReturns []float64) float64 {
	var negatives []float64

	for _, stepReturn := range stepReturns {
		if stepReturn < 0 {
			negatives = append(negatives, stepReturn)
		}
	}

	return indicator.Volatility(negatives)
}

// benchmarkResiduals computes CAPM beta and alpha against a benchmark
// step-return series. Series are truncated to the common length; a flat
// benchmark yields beta 0.
func benchmarkResiduals(annualizedReturn float64, stepReturns, benchmark []float64, riskFreeRate float64) (float64, float64) {
	n := len(stepReturns)
	if len(benchmark) < n {
		n = len(benchmark)
	}

	if n < 2 {
		return 0, 0
	}

	portfolio := stepReturns[:n]
	market := benchmark[:n]

	marketMean := indicator.Mean(market)
	portfolioMean := indicator.Mean(portfolio)

	var covariance, variance float64

	for i := 0; i < n; i++ {
		covariance += (portfolio[i] - portfolioMean) * (market[i] - marketMean)
		variance += (market[i] - marketMean) * (market[i] - marketMean)
	}

	if variance == 0 {
		return 0, 0
	}

	beta := covariance / variance

	benchmarkGrowth := 1.0
	for _, stepReturn := range market {
		benchmarkGrowth *= 1 + stepReturn
	}

	benchmarkReturn := annualize(benchmarkGrowth, n)
	alpha := annualizedReturn - (riskFreeRate + beta*(benchmarkReturn-riskFreeRate))

	return beta, alpha
}

// computeTradeStats partitions the executed ledger into winners and losers
// by trade pnl and rolls up the aggregate statistics.
func computeTradeStats(trades []types.Trade) types.TradeStats {
	var stats types.TradeStats

	var currentWins, currentLosses int

	for i := range trades {
		trade := &trades[i]

		if trade.Status == types.TradeStatusRejected {
			stats.RejectedTrades++

			continue
		}

		stats.TotalTrades++
		pnl := trade.PnL()

		if pnl > 0 {
			stats.WinningTrades++
			stats.GrossProfit += pnl

			currentWins++
			currentLosses = 0

			if currentWins > stats.MaxConsecutiveWins {
				stats.MaxConsecutiveWins = currentWins
			}
		} else {
			stats.LosingTrades++
			stats.GrossLoss += -pnl

			currentLosses++
			currentWins = 0

			if currentLosses > stats.MaxConsecutiveLosses {
				stats.MaxConsecutiveLosses = currentLosses
			}
		}
	}

	if stats.TotalTrades > 0 {
		stats.WinRate = 100 * float64(stats.WinningTrades) / float64(stats.TotalTrades)
	}

	if stats.WinningTrades > 0 {
		stats.AverageWin = stats.GrossProfit / float64(stats.WinningTrades)
	}

	if stats.LosingTrades > 0 {
		stats.AverageLoss = -stats.GrossLoss / float64(stats.LosingTrades)
	}

	if stats.GrossLoss > 0 {
		stats.ProfitFactor = stats.GrossProfit / stats.GrossLoss
	}

	return stats
}
