package sim

import "time"

// Side is an order direction.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// PositionSide is the direction of an open position.
type PositionSide string

const (
	Long  PositionSide = "LONG"
	Short PositionSide = "SHORT"
)

// Status is an order's lifecycle state. Market orders fill synchronously at
// the current bar, so every recorded order is FILLED.
type Status string

const StatusFilled Status = "FILLED"

// Kind is the order type. Only market orders exist in the simulator.
type Kind string

const KindMarket Kind = "MARKET"

// Order is one executed instruction as kept in the order history. Orders are
// immutable once recorded.
type Order struct {
	ID       string
	Token    int64
	Symbol   string
	Side     Side
	Quantity int

	// Price is the reference close at the order's bar; ExecutedPrice is the
	// fill after slippage.
	Price         float64
	ExecutedPrice float64

	SubmittedAt time.Time
	FilledAt    time.Time

	Status Status
	Kind   Kind
}
