package sim

import "time"

// TradeRecord summarizes one fully closed round trip. The engine emits
// exactly one record when a position's quantity returns to zero and appends
// it to the trade log.
type TradeRecord struct {
	Instrument string
	Side       PositionSide
	EntryTime  time.Time
	ExitTime   time.Time
	EntryPrice float64
	ExitPrice  float64
	Quantity   int
	PnL        float64
}
