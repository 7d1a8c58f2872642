// Package journal persists completed trades and per-bar equity snapshots
// from a backtest run.
package journal

import "time"

// TradeRecord is one fully closed round trip as stored by a journal.
type TradeRecord struct {
	Instrument string
	Side       string
	Quantity   int
	EntryPrice float64
	ExitPrice  float64
	EntryTime  time.Time
	ExitTime   time.Time
	PnL        float64
}

// EquitySnapshot captures the account state at one bar.
type EquitySnapshot struct {
	Time         time.Time
	Cash         float64
	MarkToMarket float64
	Equity       float64
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// Nop is a Journal that discards everything.
type Nop struct{}

func (Nop) RecordTrade(TradeRecord) error     { return nil }
func (Nop) RecordEquity(EquitySnapshot) error { return nil }
func (Nop) Close() error                      { return nil }
