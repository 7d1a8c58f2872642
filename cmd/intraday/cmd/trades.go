package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/niftylab/intraday/journal"
)

var tradesDBPath string

var tradesCmd = &cobra.Command{
	Use:   "trades",
	Short: "List journaled trades from a previous backtest",
	RunE: func(cmd *cobra.Command, args []string) error {
		j, err := journal.NewSQLite(tradesDBPath)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer j.Close()

		trades, err := j.ListTrades()
		if err != nil {
			return err
		}
		for _, t := range trades {
			fmt.Printf("%s | %s | qty %d | %s -> %s | Entry: %.2f, Exit: %.2f, PnL: %.2f\n",
				t.Instrument, t.Side, t.Quantity,
				t.EntryTime.Format("15:04:05"), t.ExitTime.Format("15:04:05"),
				t.EntryPrice, t.ExitPrice, t.PnL)
		}

		total, err := j.TotalPnL()
		if err != nil {
			return err
		}
		fmt.Printf("\nTotal realised PnL: %.2f (%d trades)\n", total, len(trades))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tradesCmd)
	tradesCmd.Flags().StringVarP(&tradesDBPath, "db", "d", "./backtest.sqlite", "path to SQLite journal DB")
}
