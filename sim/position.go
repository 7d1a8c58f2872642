package sim

import "time"

// Position is the engine's live exposure in one token. It exists in the
// open-position map only while Quantity > 0; the moment quantity returns to
// zero the engine finalizes it into a TradeRecord and removes it.
//
// Strategies receive copies. Only the engine's order path mutates a live
// Position.
type Position struct {
	Token    int64
	Symbol   string
	Side     PositionSide
	Quantity int

	// EntryPrice is the quantity-weighted average of all same-direction
	// fills.
	EntryPrice float64
	EntryTime  time.Time

	// Optional exit levels a strategy may attach. The engine does not act on
	// them itself; CheckStopTarget lets callers poll.
	StopLoss *float64
	Target   *float64

	// RealizedPnL accumulates profit locked in by partial reductions.
	RealizedPnL float64

	// closedQuantity tracks how many units have been closed so the final
	// TradeRecord reports the full round-trip size.
	closedQuantity int

	// MarginRequired is descriptive bookkeeping only; it is never enforced
	// against cash or equity.
	MarginRequired float64
}

// UnrealizedPL marks the open quantity to the given price.
func (p *Position) UnrealizedPL(price float64) float64 {
	if p.Side == Long {
		return (price - p.EntryPrice) * float64(p.Quantity)
	}
	return (p.EntryPrice - price) * float64(p.Quantity)
}

// CheckStopTarget reports whether the price has reached the position's stop
// loss or target level.
func (p *Position) CheckStopTarget(price float64) (hitStop, hitTarget bool) {
	if p.Side == Long {
		if p.StopLoss != nil && price <= *p.StopLoss {
			hitStop = true
		}
		if p.Target != nil && price >= *p.Target {
			hitTarget = true
		}
		return hitStop, hitTarget
	}
	if p.StopLoss != nil && price >= *p.StopLoss {
		hitStop = true
	}
	if p.Target != nil && price <= *p.Target {
		hitTarget = true
	}
	return hitStop, hitTarget
}
