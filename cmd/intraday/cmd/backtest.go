package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/niftylab/intraday/backtest"
	"github.com/niftylab/intraday/config"
	"github.com/niftylab/intraday/journal"
	"github.com/niftylab/intraday/market"
	"github.com/niftylab/intraday/sim"
	"github.com/niftylab/intraday/strategies"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run a single-day backtest with one of the bundled strategies",
	Long: `Backtest replays one day of minute bars through the chosen strategy.

Supported strategies:
  - mean_reversion: fades Bollinger band touches filtered by RSI and EMA
  - straddle: sells the 09:20 at-the-money straddle with premium stops

Example:
  intraday backtest -c contracts.csv -m day.json -s straddle --max-loss 25000`,
	RunE: runBacktest,
}

var (
	btConfigPath   string
	btContractFile string
	btMarketData   string
	btStrategy     string
	btUnderlying   string
	btCash         float64
	btSlippage     float64
	btMaxLoss      float64
	btJournalType  string
	btDBPath       string
	btVerbose      bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVar(&btConfigPath, "config", "", "path to YAML/JSON config file")
	backtestCmd.Flags().StringVarP(&btContractFile, "contract-file", "c", "", "path to contract metadata CSV")
	backtestCmd.Flags().StringVarP(&btMarketData, "market-data", "m", "", "path to single-day OHLC bundle (.json, .json.xz or .zip)")
	backtestCmd.Flags().StringVarP(&btStrategy, "strategy", "s", "straddle", "strategy name (mean_reversion, straddle)")
	backtestCmd.Flags().StringVarP(&btUnderlying, "underlying", "u", "NIFTY", "underlying index symbol")
	backtestCmd.Flags().Float64Var(&btCash, "cash", 1_000_000, "starting cash")
	backtestCmd.Flags().Float64Var(&btSlippage, "slippage", 0, "proportional slippage rate (0.01 = 1%)")
	backtestCmd.Flags().Float64Var(&btMaxLoss, "max-loss", 0, "max daily loss before the breaker halts trading (0 disables)")
	backtestCmd.Flags().StringVar(&btJournalType, "journal", "none", "journal type (sqlite, csv, none)")
	backtestCmd.Flags().StringVarP(&btDBPath, "db", "d", "./backtest.sqlite", "path to SQLite journal DB")
	backtestCmd.Flags().BoolVarP(&btVerbose, "verbose", "v", false, "enable debug logging")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	log := config.NewLogger(cfg.Verbose)

	catalog, err := market.LoadCatalog(cfg.Data.ContractFile)
	if err != nil {
		return err
	}
	dataset, err := market.LoadDataset(cfg.Data.MarketDataFile)
	if err != nil {
		return err
	}

	underlying, err := catalog.ResolveUnderlying(cfg.Strategy.Underlying, dataset)
	if err != nil {
		return err
	}
	series, ok := dataset.Series(underlying.Token)
	if !ok {
		return fmt.Errorf("no price series for %s: %w", underlying.Description, market.ErrUnderlyingUnresolved)
	}

	engine := sim.NewEngine(sim.Config{
		StartingCash: cfg.Account.StartingCash,
		Slippage:     cfg.Simulation.Slippage,
		MaxDailyLoss: cfg.Simulation.MaxDailyLoss,
		Data:         dataset,
		Timeline:     series.Times(),
		Logger:       log,
	})

	opts, err := strategyOptions(cfg.Strategy)
	if err != nil {
		return err
	}
	strat, err := strategies.ByName(cfg.Strategy.Name, strategies.Env{
		Engine:           engine,
		Data:             dataset,
		Catalog:          catalog,
		Underlying:       underlying,
		UnderlyingSymbol: cfg.Strategy.Underlying,
		Log:              log,
	}, opts)
	if err != nil {
		return err
	}

	j, err := openJournal(cfg.Journal)
	if err != nil {
		return err
	}
	defer j.Close()

	runner := &backtest.Runner{
		Engine:   engine,
		Strategy: strat,
		Journal:  j,
		Log:      log,
	}

	fmt.Printf("Running %s on %s (%s)\n\n", cfg.Strategy.Name, underlying.Description, cfg.Data.MarketDataFile)

	result, err := runner.Run(context.Background())
	if err != nil {
		return err
	}

	fmt.Print(result.Summary())
	fmt.Printf("Final cash: %.2f\nFinal equity: %.2f\n", result.FinalCash, result.FinalEquity)
	return nil
}

// buildConfig merges the config file (when given) with CLI flag overrides.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	if btConfigPath != "" {
		loaded, err := config.LoadFromFile(btConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}

	flags := cmd.Flags()
	if flags.Changed("contract-file") || cfg.Data.ContractFile == "" {
		cfg.Data.ContractFile = btContractFile
	}
	if flags.Changed("market-data") || cfg.Data.MarketDataFile == "" {
		cfg.Data.MarketDataFile = btMarketData
	}
	if flags.Changed("strategy") {
		cfg.Strategy.Name = btStrategy
	}
	if flags.Changed("underlying") {
		cfg.Strategy.Underlying = btUnderlying
	}
	if flags.Changed("cash") {
		cfg.Account.StartingCash = btCash
	}
	if flags.Changed("slippage") {
		cfg.Simulation.Slippage = btSlippage
	}
	if flags.Changed("max-loss") && btMaxLoss > 0 {
		cfg.Simulation.MaxDailyLoss = &btMaxLoss
	}
	if flags.Changed("journal") {
		cfg.Journal.Type = btJournalType
	}
	if flags.Changed("db") || cfg.Journal.DBPath == "" {
		cfg.Journal.DBPath = btDBPath
	}
	if flags.Changed("verbose") {
		cfg.Verbose = btVerbose
	}

	if cfg.Data.ContractFile == "" {
		return nil, fmt.Errorf("a contract file is required (--contract-file or config data.contract_file)")
	}
	if cfg.Data.MarketDataFile == "" {
		return nil, fmt.Errorf("a market data bundle is required (--market-data or config data.market_data_file)")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// strategyOptions converts config values into strategy parameter sets.
func strategyOptions(sc config.StrategyConfig) (strategies.Options, error) {
	opts := strategies.DefaultOptions()

	if sc.EMAPeriod > 0 {
		opts.MeanReversion.EMAPeriod = sc.EMAPeriod
	}
	if sc.BollWindow > 0 {
		opts.MeanReversion.BollWindow = sc.BollWindow
	}
	if sc.BollStd > 0 {
		opts.MeanReversion.BollStd = sc.BollStd
	}
	if sc.RSIPeriod > 0 {
		opts.MeanReversion.RSIPeriod = sc.RSIPeriod
	}
	if sc.Quantity > 0 {
		opts.MeanReversion.Quantity = sc.Quantity
	}
	if sc.ExitAt != "" {
		cutoff, err := strategies.ParseTimeOfDay(sc.ExitAt)
		if err != nil {
			return opts, err
		}
		opts.MeanReversion.Cutoff = cutoff
	}

	if sc.EntryAt != "" {
		entry, err := strategies.ParseTimeOfDay(sc.EntryAt)
		if err != nil {
			return opts, err
		}
		opts.Straddle.EntryAt = entry
	}
	if sc.SquareOff != "" {
		cutoff, err := strategies.ParseTimeOfDay(sc.SquareOff)
		if err != nil {
			return opts, err
		}
		opts.Straddle.Cutoff = cutoff
	}
	if sc.StrikeStep > 0 {
		opts.Straddle.StrikeStep = sc.StrikeStep
	}
	if sc.Lots > 0 {
		opts.Straddle.Lots = sc.Lots
	}
	if sc.StopFrac > 0 {
		opts.Straddle.StopFrac = sc.StopFrac
	}
	if sc.TargetFrac > 0 {
		opts.Straddle.TargetFrac = sc.TargetFrac
	}
	return opts, nil
}

func openJournal(jc config.JournalConfig) (journal.Journal, error) {
	switch jc.Type {
	case "sqlite":
		return journal.NewSQLite(jc.DBPath)
	case "csv":
		return journal.NewCSV(jc.TradesFile, jc.EquityFile)
	default:
		return journal.Nop{}, nil
	}
}
