package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/moznion/go-optional"
	backtestengine "github.com/quantforge/backtest/internal/backtest/engine"
	enginev1 "github.com/quantforge/backtest/internal/backtest/engine/engine_v1"
	"github.com/quantforge/backtest/internal/datasource"
	"github.com/quantforge/backtest/internal/logger"
	"github.com/quantforge/backtest/internal/metrics"
	"github.com/quantforge/backtest/internal/optimizer"
	"github.com/quantforge/backtest/internal/stress"
	"github.com/quantforge/backtest/internal/types"
	"github.com/quantforge/backtest/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:  "backtest",
		Usage: "Run, optimize, compare, and stress-test trading strategies over historical data",
		Commands: []*cli.Command{
			runCommand(),
			optimizeCommand(),
			compareCommand(),
			stressCommand(),
			schemaCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "data",
			Aliases:  []string{"d"},
			Usage:    "Path to the historical data CSV",
			Required: true,
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to the backtest config YAML. Defaults apply when omitted.",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Directory for YAML result files",
			Value:   "results",
		},
	}
}

func strategyFlag(required bool) cli.Flag {
	return &cli.StringFlag{
		Name:     "strategy",
		Aliases:  []string{"s"},
		Usage:    fmt.Sprintf("Strategy kind (%s)", strings.Join(kindNames(), ", ")),
		Required: required,
	}
}

func kindNames() []string {
	kinds := types.AllStrategyKinds()

	names := make([]string, len(kinds))
	for i, kind := range kinds {
		names[i] = string(kind)
	}

	return names
}

// loadInputs reads the config (or defaults) and the CSV series shared by
// every command.
func loadInputs(ctx context.Context, cmd *cli.Command) (types.BacktestConfig, *types.HistoricalSeries, error) {
	config := types.DefaultBacktestConfig()

	if path := cmd.String("config"); path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return config, nil, errors.Wrapf(errors.ErrCodeDataReadFailed, err, "failed to read config %s", path)
		}

		config, err = types.LoadBacktestConfig(content)
		if err != nil {
			return config, nil, err
		}
	}

	series, err := datasource.LoadCSV(ctx, cmd.String("data"))
	if err != nil {
		return config, nil, err
	}

	return config, series, nil
}

func parseKind(name string) (types.StrategyKind, error) {
	kind := types.StrategyKind(name)
	for _, known := range types.AllStrategyKinds() {
		if kind == known {
			return kind, nil
		}
	}

	return "", errors.Newf(errors.ErrCodeUnknownStrategy, "unknown strategy kind %q", name)
}

// parseParams turns repeated name=value flags into strategy parameters.
func parseParams(raw []string) (types.Parameters, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	params := make(types.Parameters, len(raw))

	for _, pair := range raw {
		name, value, found := strings.Cut(pair, "=")
		if !found || name == "" {
			return nil, errors.Newf(errors.ErrCodeInvalidParameter, "parameter %q is not name=value", pair)
		}

		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidParameter, err, "parameter %q has a non-numeric value", pair)
		}

		params[name] = parsed
	}

	return params, nil
}

func ensureOutputDir(cmd *cli.Command) (string, error) {
	dir := cmd.String("output")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrapf(errors.ErrCodeResultWriteFailed, err, "failed to create output directory %s", dir)
	}

	return dir, nil
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Replay one strategy and report its performance",
		Flags: append(commonFlags(),
			strategyFlag(true),
			&cli.StringSliceFlag{
				Name:    "param",
				Aliases: []string{"p"},
				Usage:   "Strategy parameter override as name=value, repeatable",
			},
		),
		Action: runAction,
	}
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	log, err := logger.NewLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	kind, err := parseKind(cmd.String("strategy"))
	if err != nil {
		return err
	}

	params, err := parseParams(cmd.StringSlice("param"))
	if err != nil {
		return err
	}

	config, series, err := loadInputs(ctx, cmd)
	if err != nil {
		return err
	}

	outputDir, err := ensureOutputDir(cmd)
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar

	onStep := backtestengine.OnStepCallback(func(current, total int) error {
		if bar == nil {
			bar = progressbar.Default(int64(total))
			bar.Describe(fmt.Sprintf("Replaying %s", kind))
		}

		return bar.Set(current)
	})

	engine := enginev1.New(log)

	result, err := engine.Run(ctx, types.Strategy{Kind: kind, Params: params}, config, series, backtestengine.RunOptions{
		OnStep: optional.Some(onStep),
	})
	if err != nil {
		return err
	}

	record := metrics.Compute(result, config, optional.None[[]float64]())

	if err := types.WriteSimulationResult(filepath.Join(outputDir, "simulation.yaml"), result); err != nil {
		return err
	}

	if err := types.WritePerformanceRecord(filepath.Join(outputDir, "performance.yaml"), record); err != nil {
		return err
	}

	fmt.Printf("\n%s over %d trading days\n", kind, record.TradingDays)
	fmt.Printf("  total return      %8.2f%%\n", record.TotalReturn*100)
	fmt.Printf("  annualized return %8.2f%%\n", record.AnnualizedReturn*100)
	fmt.Printf("  sharpe            %8.2f\n", record.Sharpe)
	fmt.Printf("  max drawdown      %8.2f%%\n", record.MaxDrawdown*100)
	fmt.Printf("  trades            %8d (%d rejected)\n", record.TradeStats.TotalTrades, record.TradeStats.RejectedTrades)
	fmt.Printf("results written to %s\n", outputDir)

	return nil
}

func optimizeCommand() *cli.Command {
	return &cli.Command{
		Name:  "optimize",
		Usage: "Grid-search a strategy's parameters for the best composite score",
		Flags: append(commonFlags(),
			strategyFlag(true),
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Usage:   "Worker pool size, 0 for the CPU count",
			},
		),
		Action: optimizeAction,
	}
}

func optimizeAction(ctx context.Context, cmd *cli.Command) error {
	log, err := logger.NewLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	kind, err := parseKind(cmd.String("strategy"))
	if err != nil {
		return err
	}

	config, series, err := loadInputs(ctx, cmd)
	if err != nil {
		return err
	}

	outputDir, err := ensureOutputDir(cmd)
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar

	onPoint := optimizer.OnPointCallback(func(done, total int) error {
		if bar == nil {
			bar = progressbar.Default(int64(total))
			bar.Describe(fmt.Sprintf("Optimizing %s", kind))
		}

		return bar.Set(done)
	})

	search := optimizer.New(log, int(cmd.Int("workers")))

	result, err := search.Optimize(ctx, kind, config, series, optimizer.Options{
		OnPoint: optional.Some(onPoint),
	})
	if err != nil {
		return err
	}

	if err := types.WriteOptimizationResult(filepath.Join(outputDir, "optimization.yaml"), result); err != nil {
		return err
	}

	fmt.Printf("\n%s: %d points evaluated, %d failed\n", kind, result.EvaluatedPoints, result.FailedPoints)
	fmt.Printf("  baseline score  %8.2f  %v\n", result.BaselineScore, result.BaselineParameters)
	fmt.Printf("  optimized score %8.2f  %v\n", result.OptimizedScore, result.OptimizedParameters)
	fmt.Printf("results written to %s\n", outputDir)

	return nil
}

func compareCommand() *cli.Command {
	return &cli.Command{
		Name:  "compare",
		Usage: "Run several strategies side by side and rank them",
		Flags: append(commonFlags(),
			&cli.StringSliceFlag{
				Name:    "strategy",
				Aliases: []string{"s"},
				Usage:   "Strategy kinds to compare, repeatable. Defaults to all kinds.",
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Usage:   "Worker pool size, 0 for the CPU count",
			},
		),
		Action: compareAction,
	}
}

func compareAction(ctx context.Context, cmd *cli.Command) error {
	log, err := logger.NewLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	var kinds []types.StrategyKind

	if names := cmd.StringSlice("strategy"); len(names) > 0 {
		for _, name := range names {
			kind, err := parseKind(name)
			if err != nil {
				return err
			}

			kinds = append(kinds, kind)
		}
	} else {
		kinds = types.AllStrategyKinds()
	}

	config, series, err := loadInputs(ctx, cmd)
	if err != nil {
		return err
	}

	outputDir, err := ensureOutputDir(cmd)
	if err != nil {
		return err
	}

	comparator := optimizer.NewComparator(log, int(cmd.Int("workers")))

	result, err := comparator.Compare(ctx, kinds, config, series)
	if err != nil {
		return err
	}

	if err := types.WriteRankingResult(filepath.Join(outputDir, "comparison.yaml"), result); err != nil {
		return err
	}

	fmt.Printf("\ncomposite ranking over %d strategies:\n", len(result.Kinds))

	for rank, entry := range result.ByComposite {
		fmt.Printf("  %d. %-20s %6.2f\n", rank+1, entry.Kind, entry.Value)
	}

	for kind, failure := range result.Failures {
		fmt.Printf("  failed: %s (%s)\n", kind, failure)
	}

	fmt.Printf("best blend sharpe %.2f (diversification benefit %+.2f)\n",
		result.BestBlend.Sharpe, result.BestBlend.DiversificationBenefit)
	fmt.Printf("results written to %s\n", outputDir)

	return nil
}

func stressCommand() *cli.Command {
	return &cli.Command{
		Name:  "stress",
		Usage: "Replay one strategy and run the stress-scenario battery on its realized path",
		Flags: append(commonFlags(),
			strategyFlag(true),
			&cli.FloatSliceFlag{
				Name:  "rate-sensitivity",
				Usage: "Duration proxy per instrument in series order, for the rate-shock scenario",
			},
		),
		Action: stressAction,
	}
}

func stressAction(ctx context.Context, cmd *cli.Command) error {
	log, err := logger.NewLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	kind, err := parseKind(cmd.String("strategy"))
	if err != nil {
		return err
	}

	config, series, err := loadInputs(ctx, cmd)
	if err != nil {
		return err
	}

	outputDir, err := ensureOutputDir(cmd)
	if err != nil {
		return err
	}

	engine := enginev1.New(log)

	result, err := engine.Run(ctx, types.Strategy{Kind: kind}, config, series, backtestengine.RunOptions{})
	if err != nil {
		return err
	}

	// Scenario index math assumes the series the replay actually walked.
	window := series.Window(config.StartTime, config.EndTime)

	scenarios := stress.RunAll(stress.Input{
		Result:            result,
		Series:            window,
		RateSensitivities: cmd.FloatSlice("rate-sensitivity"),
	})

	if err := types.WriteScenarioResults(filepath.Join(outputDir, "stress.yaml"), scenarios); err != nil {
		return err
	}

	fmt.Printf("\nstress battery for %s:\n", kind)

	for _, scenario := range scenarios {
		fmt.Printf("  %-24s impact %7.2f%%  drawdown %6.2f%%\n",
			scenario.ScenarioID, scenario.ImpactPct, scenario.ResultingDrawdown*100)
	}

	fmt.Printf("results written to %s\n", outputDir)

	return nil
}

func schemaCommand() *cli.Command {
	return &cli.Command{
		Name:  "schema",
		Usage: "Print the JSON schema of the backtest config",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			config := types.DefaultBacktestConfig()

			schema, err := config.GenerateSchemaJSON()
			if err != nil {
				return err
			}

			fmt.Println(schema)

			return nil
		},
	}
}
