// Package market holds instrument metadata and the single-day minute-bar
// dataset the simulator replays.
package market

import (
	"math"
	"sort"
	"time"
)

// Bar is one minute of OHLC data.
type Bar struct {
	Time  time.Time
	Open  float64
	High  float64
	Low   float64
	Close float64
}

// Series is the time-ordered bar history for one instrument token.
type Series struct {
	bars []Bar
}

// NewSeries sorts the bars by timestamp and returns the series.
func NewSeries(bars []Bar) Series {
	sorted := make([]Bar, len(bars))
	copy(sorted, bars)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})
	return Series{bars: sorted}
}

func (s Series) Len() int { return len(s.bars) }

// Bars returns a copy of the underlying bars.
func (s Series) Bars() []Bar {
	out := make([]Bar, len(s.bars))
	copy(out, s.bars)
	return out
}

// Times returns the bar timestamps in order. This is the session timeline
// when the series belongs to the instrument that drives the backtest.
func (s Series) Times() []time.Time {
	out := make([]time.Time, len(s.bars))
	for i, b := range s.bars {
		out[i] = b.Time
	}
	return out
}

// Closes returns the closing prices in bar order.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s.bars))
	for i, b := range s.bars {
		out[i] = b.Close
	}
	return out
}

// LastClose returns the close of the most recent bar at or before asOf,
// or NaN when the series has no bar that early.
func (s Series) LastClose(asOf time.Time) float64 {
	// First bar strictly after asOf; the answer is the one before it.
	n := sort.Search(len(s.bars), func(i int) bool {
		return s.bars[i].Time.After(asOf)
	})
	if n == 0 {
		return math.NaN()
	}
	return s.bars[n-1].Close
}

// Dataset maps instrument tokens to their bar series for one trading day.
type Dataset struct {
	series map[int64]Series
}

func NewDataset(series map[int64]Series) *Dataset {
	if series == nil {
		series = make(map[int64]Series)
	}
	return &Dataset{series: series}
}

// Series returns the bar series for a token.
func (d *Dataset) Series(token int64) (Series, bool) {
	s, ok := d.series[token]
	return s, ok
}

// Has reports whether the dataset carries price data for the token.
func (d *Dataset) Has(token int64) bool {
	_, ok := d.series[token]
	return ok
}

// Tokens returns every token with price data, in no particular order.
func (d *Dataset) Tokens() []int64 {
	out := make([]int64, 0, len(d.series))
	for tok := range d.series {
		out = append(out, tok)
	}
	return out
}

// LastClose returns the latest known close for the token at or before asOf.
// Unknown tokens and too-early timestamps both yield NaN so callers can
// treat "no price" uniformly.
func (d *Dataset) LastClose(token int64, asOf time.Time) float64 {
	s, ok := d.series[token]
	if !ok {
		return math.NaN()
	}
	return s.LastClose(asOf)
}
