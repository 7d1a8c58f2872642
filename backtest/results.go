package backtest

import (
	"fmt"
	"strings"
	"time"

	"github.com/niftylab/intraday/sim"
)

// Result summarizes a completed session.
type Result struct {
	Trades      []sim.TradeRecord
	TotalPnL    float64
	FinalCash   float64
	FinalEquity float64
	Halted      bool
	Start       time.Time
	End         time.Time
}

// Wins counts trades that closed with positive PnL.
func (r Result) Wins() int {
	n := 0
	for _, t := range r.Trades {
		if t.PnL > 0 {
			n++
		}
	}
	return n
}

// Summary renders the trade log and total PnL as the report front end
// prints it.
func (r Result) Summary() string {
	var b strings.Builder

	b.WriteString("Trade log:\n")
	for _, t := range r.Trades {
		fmt.Fprintf(&b, "%s | %s | %s -> %s | Entry: %.2f, Exit: %.2f, PnL: %.2f\n",
			t.Instrument, t.Side,
			t.EntryTime.Format("15:04:05"), t.ExitTime.Format("15:04:05"),
			t.EntryPrice, t.ExitPrice, t.PnL)
	}
	if r.Halted {
		b.WriteString("\nSession halted by max daily loss breaker\n")
	}
	fmt.Fprintf(&b, "\nTotal realised PnL: %.2f\n", r.TotalPnL)
	return b.String()
}
