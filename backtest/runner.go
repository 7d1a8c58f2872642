// Package backtest drives a strategy through one session of minute bars.
package backtest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/niftylab/intraday/journal"
	"github.com/niftylab/intraday/sim"
	"github.com/niftylab/intraday/strategies"
)

// Runner wires an engine, a strategy and an optional journal into the
// bar-by-bar session loop.
type Runner struct {
	Engine   *sim.Engine
	Strategy strategies.Strategy
	Journal  journal.Journal
	Log      *slog.Logger
}

// Run executes the session:
//
//  1. OnStart before the first bar
//  2. per bar: loss circuit breaker first, then OnBar, then an equity
//     snapshot to the journal
//  3. OnFinish after the last bar
//
// The loop halts early when the circuit breaker trips; OnFinish still runs
// so the strategy's square-off safety net applies.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	_ = ctx // reserved; the session is a deterministic single pass

	if r.Engine == nil {
		return Result{}, fmt.Errorf("backtest: Engine is required")
	}
	if r.Strategy == nil {
		return Result{}, fmt.Errorf("backtest: Strategy is required")
	}
	log := r.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	n := r.Engine.Bars()
	if n == 0 {
		return Result{}, fmt.Errorf("backtest: session has no bars")
	}

	if err := r.Strategy.OnStart(0); err != nil {
		return Result{}, fmt.Errorf("on start: %w", err)
	}

	halted := false
	for i := 0; i < n; i++ {
		if r.Engine.MaxLossHit(i) {
			log.Warn("max daily loss hit, halting session", "bar", i)
			halted = true
			break
		}
		if err := r.Strategy.OnBar(i); err != nil {
			return Result{}, fmt.Errorf("on bar %d: %w", i, err)
		}
		if r.Journal != nil {
			mtm := r.Engine.MarkToMarket(i)
			if err := r.Journal.RecordEquity(journal.EquitySnapshot{
				Time:         r.Engine.Timestamp(i),
				Cash:         r.Engine.Cash(),
				MarkToMarket: mtm,
				Equity:       r.Engine.Cash() + mtm,
			}); err != nil {
				return Result{}, fmt.Errorf("record equity: %w", err)
			}
		}
	}

	last := n - 1
	if err := r.Strategy.OnFinish(last); err != nil {
		return Result{}, fmt.Errorf("on finish: %w", err)
	}

	trades := r.Engine.Trades()
	if r.Journal != nil {
		for _, rec := range trades {
			if err := r.Journal.RecordTrade(journal.TradeRecord{
				Instrument: rec.Instrument,
				Side:       string(rec.Side),
				Quantity:   rec.Quantity,
				EntryPrice: rec.EntryPrice,
				ExitPrice:  rec.ExitPrice,
				EntryTime:  rec.EntryTime,
				ExitTime:   rec.ExitTime,
				PnL:        rec.PnL,
			}); err != nil {
				return Result{}, fmt.Errorf("record trade: %w", err)
			}
		}
	}

	return Result{
		Trades:      trades,
		TotalPnL:    r.Engine.TotalPnL(),
		FinalCash:   r.Engine.Cash(),
		FinalEquity: r.Engine.TotalEquity(last),
		Halted:      halted,
		Start:       r.Engine.Timestamp(0),
		End:         r.Engine.Timestamp(last),
	}, nil
}
