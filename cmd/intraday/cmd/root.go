package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "intraday",
	Short: "Single-day backtester for discretionary intraday strategies",
	Long: `Intraday replays one trading day of minute bars through a simulated
execution engine and reports the completed trades.

It provides tools for:
  - Backtesting the bundled mean-reversion and short-straddle strategies
  - Simulated order execution with slippage and a daily loss breaker
  - Journaling trades and equity curves to SQLite or CSV`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
