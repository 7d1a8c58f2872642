package sim

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/niftylab/intraday/pkg/id"
)

var (
	// ErrInvalidSide is returned when an order side is not BUY or SELL.
	ErrInvalidSide = errors.New("side must be BUY or SELL")

	// ErrInvalidQuantity is returned for zero or negative order quantities.
	ErrInvalidQuantity = errors.New("quantity must be positive")

	// ErrNoPrice is returned when an order is placed for a token with no
	// price at the current bar. Unlike Price's NaN this is a hard error: the
	// caller asked to trade something it cannot price.
	ErrNoPrice = errors.New("no price available for order")

	// ErrReduceExceedsPosition is returned when an opposite-direction order
	// is larger than the open position. The engine does not flip positions;
	// close first, then open the other way.
	ErrReduceExceedsPosition = errors.New("reducing order exceeds open position")
)

// PriceSource supplies the most recent known close for a token at or before
// a timestamp, NaN when unknown. market.Dataset implements it.
type PriceSource interface {
	LastClose(token int64, asOf time.Time) float64
}

// Config carries the engine's construction parameters.
type Config struct {
	StartingCash float64
	// Slippage is a proportional rate: buys pay price*(1+Slippage), sells
	// receive price*(1-Slippage).
	Slippage float64
	// MaxDailyLoss arms the circuit breaker when non-nil.
	MaxDailyLoss *float64

	Data     PriceSource
	Timeline []time.Time

	// Logger receives debug traces of fills and closures. Nil disables
	// logging.
	Logger *slog.Logger
}

// Engine owns the cash balance, the open positions, the order history and
// the trade log. It is the single writer of all of them; strategies interact
// only through PlaceOrder, SquareOffAll and the read-only accessors.
type Engine struct {
	log *slog.Logger

	data     PriceSource
	timeline []time.Time

	startingCash float64
	cash         float64
	slippage     float64
	maxDailyLoss *float64

	orders    []Order
	positions map[int64]*Position
	trades    []TradeRecord
}

func NewEngine(cfg Config) *Engine {
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		log:          log,
		data:         cfg.Data,
		timeline:     cfg.Timeline,
		startingCash: cfg.StartingCash,
		cash:         cfg.StartingCash,
		slippage:     cfg.Slippage,
		maxDailyLoss: cfg.MaxDailyLoss,
		positions:    make(map[int64]*Position),
	}
}

// Bars returns the session length in bars.
func (e *Engine) Bars() int { return len(e.timeline) }

// Timestamp returns the timestamp of bar i.
func (e *Engine) Timestamp(i int) time.Time {
	if i < 0 || i >= len(e.timeline) {
		return time.Time{}
	}
	return e.timeline[i]
}

// Price returns the most recent known close for the token at bar i, or NaN
// when no price exists. Callers that merely observe prices should skip NaN
// bars rather than fail.
func (e *Engine) Price(token int64, i int) float64 {
	if e.data == nil || i < 0 || i >= len(e.timeline) {
		return math.NaN()
	}
	return e.data.LastClose(token, e.timeline[i])
}

// PlaceOrder fills a market order at the current bar's price plus slippage,
// updates cash, records the order and reconciles the token's position:
// same-direction fills average in, opposite-direction fills reduce and
// realize PnL, and a reduction to zero emits a TradeRecord.
func (e *Engine) PlaceOrder(token int64, symbol string, side Side, quantity int, i int) (Order, error) {
	if side != Buy && side != Sell {
		return Order{}, fmt.Errorf("place order %s: %w", side, ErrInvalidSide)
	}
	if quantity <= 0 {
		return Order{}, fmt.Errorf("place order %s %d: %w", symbol, quantity, ErrInvalidQuantity)
	}

	price := e.Price(token, i)
	if math.IsNaN(price) {
		return Order{}, fmt.Errorf("place order %s at bar %d: %w", symbol, i, ErrNoPrice)
	}

	// Validate reductions before any state changes so a rejected order has
	// no side effects.
	pos := e.positions[token]
	if pos != nil && reduces(pos.Side, side) && quantity > pos.Quantity {
		return Order{}, fmt.Errorf("place order %s %s %d against %d open: %w",
			symbol, side, quantity, pos.Quantity, ErrReduceExceedsPosition)
	}

	fill := price * (1 + e.slippage)
	if side == Sell {
		fill = price * (1 - e.slippage)
	}

	cost := fill * float64(quantity)
	if side == Buy {
		e.cash -= cost
	} else {
		e.cash += cost
	}

	ts := e.timeline[i]
	order := Order{
		ID:            id.New(),
		Token:         token,
		Symbol:        symbol,
		Side:          side,
		Quantity:      quantity,
		Price:         price,
		ExecutedPrice: fill,
		SubmittedAt:   ts,
		FilledAt:      ts,
		Status:        StatusFilled,
		Kind:          KindMarket,
	}
	e.orders = append(e.orders, order)

	e.log.Debug("order filled",
		"symbol", symbol, "side", side, "qty", quantity,
		"price", price, "fill", fill, "cash", e.cash)

	switch {
	case pos == nil:
		newSide := Long
		if side == Sell {
			newSide = Short
		}
		e.positions[token] = &Position{
			Token:          token,
			Symbol:         symbol,
			Side:           newSide,
			Quantity:       quantity,
			EntryPrice:     fill,
			EntryTime:      ts,
			MarginRequired: cost,
		}

	case !reduces(pos.Side, side):
		// Averaging in: weighted-average the cost basis.
		total := pos.Quantity + quantity
		pos.EntryPrice = (pos.EntryPrice*float64(pos.Quantity) + fill*float64(quantity)) / float64(total)
		pos.Quantity = total
		pos.MarginRequired = pos.EntryPrice * float64(total)

	default:
		pos.Quantity -= quantity
		pos.closedQuantity += quantity
		if pos.Side == Long {
			pos.RealizedPnL += (fill - pos.EntryPrice) * float64(quantity)
		} else {
			pos.RealizedPnL += (pos.EntryPrice - fill) * float64(quantity)
		}
		pos.MarginRequired = pos.EntryPrice * float64(pos.Quantity)
		if pos.Quantity == 0 {
			e.finalize(pos, fill, ts)
		}
	}

	return order, nil
}

// finalize stamps the exit, appends the TradeRecord and drops the position
// from the open map.
func (e *Engine) finalize(pos *Position, exitPrice float64, exitTime time.Time) {
	rec := TradeRecord{
		Instrument: pos.Symbol,
		Side:       pos.Side,
		EntryTime:  pos.EntryTime,
		ExitTime:   exitTime,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  exitPrice,
		Quantity:   pos.closedQuantity,
		PnL:        pos.RealizedPnL,
	}
	e.trades = append(e.trades, rec)
	delete(e.positions, pos.Token)

	e.log.Debug("trade closed",
		"symbol", rec.Instrument, "side", rec.Side, "qty", rec.Quantity,
		"entry", rec.EntryPrice, "exit", rec.ExitPrice, "pnl", rec.PnL)
}

// MarkToMarket sums unrealized PnL across all open positions at bar i.
// Positions with no current price contribute zero.
func (e *Engine) MarkToMarket(i int) float64 {
	total := 0.0
	for token, pos := range e.positions {
		price := e.Price(token, i)
		if math.IsNaN(price) {
			continue
		}
		total += pos.UnrealizedPL(price)
	}
	return total
}

// TotalEquity is cash plus mark-to-market at bar i.
func (e *Engine) TotalEquity(i int) float64 {
	return e.cash + e.MarkToMarket(i)
}

// SquareOffAll flattens every open position with one opposing market order
// each, so each closure also emits a TradeRecord. Tokens are closed in
// ascending order for determinism.
func (e *Engine) SquareOffAll(i int) error {
	tokens := make([]int64, 0, len(e.positions))
	for token := range e.positions {
		tokens = append(tokens, token)
	}
	sort.Slice(tokens, func(a, b int) bool { return tokens[a] < tokens[b] })

	for _, token := range tokens {
		pos := e.positions[token]
		side := Sell
		if pos.Side == Short {
			side = Buy
		}
		if _, err := e.PlaceOrder(token, pos.Symbol, side, pos.Quantity, i); err != nil {
			return fmt.Errorf("square off %s: %w", pos.Symbol, err)
		}
	}
	return nil
}

// MaxLossHit reports whether the session's drawdown has reached the
// configured daily loss threshold. It is a pure query; the session runner
// decides whether to halt. Without a configured threshold it is always
// false.
func (e *Engine) MaxLossHit(i int) bool {
	if e.maxDailyLoss == nil {
		return false
	}
	loss := e.startingCash - e.TotalEquity(i)
	return loss >= *e.maxDailyLoss
}

// StartingCash returns the configured opening balance.
func (e *Engine) StartingCash() float64 { return e.startingCash }

// Cash returns the current cash balance. It may be negative: the engine
// models an on-demand margin account and never blocks an order on buying
// power.
func (e *Engine) Cash() float64 { return e.cash }

// Position returns a copy of the open position for a token.
func (e *Engine) Position(token int64) (Position, bool) {
	pos, ok := e.positions[token]
	if !ok {
		return Position{}, false
	}
	return *pos, true
}

// OpenPositions returns copies of all open positions in token order.
func (e *Engine) OpenPositions() []Position {
	tokens := make([]int64, 0, len(e.positions))
	for token := range e.positions {
		tokens = append(tokens, token)
	}
	sort.Slice(tokens, func(a, b int) bool { return tokens[a] < tokens[b] })

	out := make([]Position, 0, len(tokens))
	for _, token := range tokens {
		out = append(out, *e.positions[token])
	}
	return out
}

// Orders returns a copy of the order history.
func (e *Engine) Orders() []Order {
	out := make([]Order, len(e.orders))
	copy(out, e.orders)
	return out
}

// Trades returns a copy of the trade log.
func (e *Engine) Trades() []TradeRecord {
	out := make([]TradeRecord, len(e.trades))
	copy(out, e.trades)
	return out
}

// TotalPnL sums realized PnL across the trade log.
func (e *Engine) TotalPnL() float64 {
	total := 0.0
	for _, rec := range e.trades {
		total += rec.PnL
	}
	return total
}

// reduces reports whether an order side works against a position side.
func reduces(pos PositionSide, side Side) bool {
	return (pos == Long && side == Sell) || (pos == Short && side == Buy)
}
