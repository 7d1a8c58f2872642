package sim

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niftylab/intraday/market"
)

const (
	tokenA int64 = 101
	tokenB int64 = 202
)

// sessionTimes returns n minute timestamps starting at 09:15.
func sessionTimes(n int) []time.Time {
	start := time.Date(2025, 1, 15, 9, 15, 0, 0, time.UTC)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.Add(time.Duration(i) * time.Minute)
	}
	return out
}

// newTestEngine builds an engine over a dataset of fixed close prices, one
// series per token, aligned to a shared timeline.
func newTestEngine(t *testing.T, cash, slippage float64, maxLoss *float64, closes map[int64][]float64) *Engine {
	t.Helper()

	n := 0
	for _, c := range closes {
		if len(c) > n {
			n = len(c)
		}
	}
	times := sessionTimes(n)

	series := make(map[int64]market.Series, len(closes))
	for token, c := range closes {
		bars := make([]market.Bar, len(c))
		for i, px := range c {
			bars[i] = market.Bar{Time: times[i], Open: px, High: px, Low: px, Close: px}
		}
		series[token] = market.NewSeries(bars)
	}

	return NewEngine(Config{
		StartingCash: cash,
		Slippage:     slippage,
		MaxDailyLoss: maxLoss,
		Data:         market.NewDataset(series),
		Timeline:     times,
	})
}

func TestPlaceOrderOpensLong(t *testing.T) {
	e := newTestEngine(t, 1_000_000, 0, nil, map[int64][]float64{tokenA: {100, 110}})

	order, err := e.PlaceOrder(tokenA, "ALPHA", Buy, 10, 0)
	require.NoError(t, err)

	assert.NotEmpty(t, order.ID)
	assert.Equal(t, StatusFilled, order.Status)
	assert.Equal(t, KindMarket, order.Kind)
	assert.Equal(t, 100.0, order.Price)
	assert.Equal(t, 100.0, order.ExecutedPrice)
	assert.Equal(t, e.Timestamp(0), order.FilledAt)

	assert.InDelta(t, 999_000, e.Cash(), 1e-9)

	pos, ok := e.Position(tokenA)
	require.True(t, ok)
	assert.Equal(t, Long, pos.Side)
	assert.Equal(t, 10, pos.Quantity)
	assert.InDelta(t, 100, pos.EntryPrice, 1e-9)
}

func TestPlaceOrderRoundTripEmitsTradeRecord(t *testing.T) {
	e := newTestEngine(t, 1_000_000, 0, nil, map[int64][]float64{tokenA: {100, 110}})

	_, err := e.PlaceOrder(tokenA, "ALPHA", Buy, 10, 0)
	require.NoError(t, err)
	_, err = e.PlaceOrder(tokenA, "ALPHA", Sell, 10, 1)
	require.NoError(t, err)

	_, open := e.Position(tokenA)
	assert.False(t, open)

	trades := e.Trades()
	require.Len(t, trades, 1)
	rec := trades[0]
	assert.Equal(t, "ALPHA", rec.Instrument)
	assert.Equal(t, Long, rec.Side)
	assert.Equal(t, 10, rec.Quantity)
	assert.InDelta(t, 100, rec.EntryPrice, 1e-9)
	assert.InDelta(t, 110, rec.ExitPrice, 1e-9)
	assert.InDelta(t, 100, rec.PnL, 1e-9)

	assert.InDelta(t, 1_000_100, e.Cash(), 1e-9)
	assert.InDelta(t, 100, e.TotalPnL(), 1e-9)
}

func TestPlaceOrderAveragesIn(t *testing.T) {
	e := newTestEngine(t, 1_000_000, 0, nil, map[int64][]float64{tokenA: {100, 110, 120}})

	_, err := e.PlaceOrder(tokenA, "ALPHA", Buy, 10, 0)
	require.NoError(t, err)
	_, err = e.PlaceOrder(tokenA, "ALPHA", Buy, 30, 1)
	require.NoError(t, err)

	pos, ok := e.Position(tokenA)
	require.True(t, ok)
	assert.Equal(t, 40, pos.Quantity)
	// Weighted average: (100*10 + 110*30) / 40
	assert.InDelta(t, 107.5, pos.EntryPrice, 1e-9)
}

func TestPartialReductionsAccumulatePnL(t *testing.T) {
	e := newTestEngine(t, 1_000_000, 0, nil, map[int64][]float64{tokenA: {100, 110, 120}})

	_, err := e.PlaceOrder(tokenA, "ALPHA", Buy, 10, 0)
	require.NoError(t, err)

	_, err = e.PlaceOrder(tokenA, "ALPHA", Sell, 4, 1)
	require.NoError(t, err)
	pos, ok := e.Position(tokenA)
	require.True(t, ok)
	assert.Equal(t, 6, pos.Quantity)
	assert.InDelta(t, 40, pos.RealizedPnL, 1e-9)
	assert.Empty(t, e.Trades())

	_, err = e.PlaceOrder(tokenA, "ALPHA", Sell, 6, 2)
	require.NoError(t, err)
	_, ok = e.Position(tokenA)
	assert.False(t, ok)

	trades := e.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, 10, trades[0].Quantity)
	// 4*(110-100) + 6*(120-100)
	assert.InDelta(t, 160, trades[0].PnL, 1e-9)
}

func TestShortRoundTrip(t *testing.T) {
	e := newTestEngine(t, 1_000_000, 0, nil, map[int64][]float64{tokenA: {100, 90}})

	_, err := e.PlaceOrder(tokenA, "ALPHA", Sell, 5, 0)
	require.NoError(t, err)

	pos, ok := e.Position(tokenA)
	require.True(t, ok)
	assert.Equal(t, Short, pos.Side)
	assert.InDelta(t, 1_000_500, e.Cash(), 1e-9)

	_, err = e.PlaceOrder(tokenA, "ALPHA", Buy, 5, 1)
	require.NoError(t, err)

	trades := e.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, Short, trades[0].Side)
	assert.InDelta(t, 50, trades[0].PnL, 1e-9)
	assert.InDelta(t, 1_000_050, e.Cash(), 1e-9)
}

func TestSlippageAdjustsFillPrice(t *testing.T) {
	e := newTestEngine(t, 1_000, 0.01, nil, map[int64][]float64{tokenA: {100}})

	order, err := e.PlaceOrder(tokenA, "ALPHA", Buy, 1, 0)
	require.NoError(t, err)
	assert.InDelta(t, 100, order.Price, 1e-9)
	assert.InDelta(t, 101, order.ExecutedPrice, 1e-9)
	assert.InDelta(t, 899, e.Cash(), 1e-9)

	// Sells receive less than the observed price.
	e2 := newTestEngine(t, 1_000, 0.01, nil, map[int64][]float64{tokenA: {100}})
	order, err = e2.PlaceOrder(tokenA, "ALPHA", Sell, 1, 0)
	require.NoError(t, err)
	assert.InDelta(t, 99, order.ExecutedPrice, 1e-9)
}

func TestPlaceOrderValidation(t *testing.T) {
	e := newTestEngine(t, 1_000_000, 0, nil, map[int64][]float64{tokenA: {100}})

	_, err := e.PlaceOrder(tokenA, "ALPHA", Side("HOLD"), 1, 0)
	assert.ErrorIs(t, err, ErrInvalidSide)

	_, err = e.PlaceOrder(tokenA, "ALPHA", Buy, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	// Unknown token has no price: hard error for orders.
	_, err = e.PlaceOrder(999, "GHOST", Buy, 1, 0)
	assert.ErrorIs(t, err, ErrNoPrice)

	assert.Empty(t, e.Orders())
	assert.InDelta(t, 1_000_000, e.Cash(), 1e-9)
}

func TestOversizedReductionRejectedWithoutSideEffects(t *testing.T) {
	e := newTestEngine(t, 1_000_000, 0, nil, map[int64][]float64{tokenA: {100, 110}})

	_, err := e.PlaceOrder(tokenA, "ALPHA", Buy, 10, 0)
	require.NoError(t, err)
	cashBefore := e.Cash()

	_, err = e.PlaceOrder(tokenA, "ALPHA", Sell, 15, 1)
	assert.ErrorIs(t, err, ErrReduceExceedsPosition)

	assert.InDelta(t, cashBefore, e.Cash(), 1e-9)
	assert.Len(t, e.Orders(), 1)
	pos, ok := e.Position(tokenA)
	require.True(t, ok)
	assert.Equal(t, 10, pos.Quantity)
}

func TestPriceSoftNaN(t *testing.T) {
	e := newTestEngine(t, 1_000_000, 0, nil, map[int64][]float64{tokenA: {100}})

	assert.True(t, math.IsNaN(e.Price(999, 0)))
	assert.True(t, math.IsNaN(e.Price(tokenA, -1)))
	assert.True(t, math.IsNaN(e.Price(tokenA, 50)))
	assert.InDelta(t, 100, e.Price(tokenA, 0), 1e-9)
}

func TestMarkToMarket(t *testing.T) {
	e := newTestEngine(t, 1_000_000, 0, nil, map[int64][]float64{
		tokenA: {100, 110},
	})

	_, err := e.PlaceOrder(tokenA, "ALPHA", Buy, 10, 0)
	require.NoError(t, err)

	assert.InDelta(t, 100, e.MarkToMarket(1), 1e-9)
	assert.InDelta(t, 999_100, e.TotalEquity(1), 1e-9)
}

func TestMarkToMarketSkipsUnpricedPositions(t *testing.T) {
	// tokenB's series starts at the second minute, so at bar 0 it has no
	// known price and contributes nothing.
	times := sessionTimes(2)
	series := map[int64]market.Series{
		tokenA: market.NewSeries([]market.Bar{
			{Time: times[0], Close: 100},
			{Time: times[1], Close: 110},
		}),
		tokenB: market.NewSeries([]market.Bar{{Time: times[1], Close: 50}}),
	}
	e := NewEngine(Config{
		StartingCash: 1_000_000,
		Data:         market.NewDataset(series),
		Timeline:     times,
	})

	_, err := e.PlaceOrder(tokenB, "BETA", Buy, 4, 1)
	require.NoError(t, err)

	assert.InDelta(t, 0, e.MarkToMarket(0), 1e-9)
	assert.InDelta(t, 0, e.MarkToMarket(1), 1e-9)
}

func TestTotalEquityWithoutTradesEqualsStartingCash(t *testing.T) {
	e := newTestEngine(t, 1_000_000, 0, nil, map[int64][]float64{tokenA: {100, 110}})
	assert.InDelta(t, 1_000_000, e.TotalEquity(0), 1e-9)
	assert.InDelta(t, 1_000_000, e.TotalEquity(1), 1e-9)
}

func TestSquareOffAllFlattensEverything(t *testing.T) {
	e := newTestEngine(t, 1_000_000, 0, nil, map[int64][]float64{
		tokenA: {100, 105},
		tokenB: {50, 45},
	})

	_, err := e.PlaceOrder(tokenA, "ALPHA", Buy, 10, 0)
	require.NoError(t, err)
	_, err = e.PlaceOrder(tokenB, "BETA", Sell, 4, 0)
	require.NoError(t, err)

	require.NoError(t, e.SquareOffAll(1))

	assert.Empty(t, e.OpenPositions())
	trades := e.Trades()
	require.Len(t, trades, 2)
	// Long ALPHA closed at 105, short BETA closed at 45.
	assert.InDelta(t, 50, trades[0].PnL, 1e-9)
	assert.InDelta(t, 20, trades[1].PnL, 1e-9)
}

func TestMaxLossHit(t *testing.T) {
	threshold := 400.0
	e := newTestEngine(t, 1_000_000, 0, &threshold, map[int64][]float64{tokenA: {100, 50}})

	assert.False(t, e.MaxLossHit(0))

	_, err := e.PlaceOrder(tokenA, "ALPHA", Buy, 10, 0)
	require.NoError(t, err)

	// Price halves: unrealized loss 500 >= 400.
	assert.True(t, e.MaxLossHit(1))
}

func TestMaxLossNeverHitsWithoutThreshold(t *testing.T) {
	e := newTestEngine(t, 1_000_000, 0, nil, map[int64][]float64{tokenA: {100, 1}})

	_, err := e.PlaceOrder(tokenA, "ALPHA", Buy, 1000, 0)
	require.NoError(t, err)

	assert.False(t, e.MaxLossHit(1))
}

func TestAccessorsReturnCopies(t *testing.T) {
	e := newTestEngine(t, 1_000_000, 0, nil, map[int64][]float64{tokenA: {100, 110}})

	_, err := e.PlaceOrder(tokenA, "ALPHA", Buy, 10, 0)
	require.NoError(t, err)

	pos, ok := e.Position(tokenA)
	require.True(t, ok)
	pos.Quantity = 9999

	again, _ := e.Position(tokenA)
	assert.Equal(t, 10, again.Quantity)
}
