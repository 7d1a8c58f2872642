// Package strategies defines the driver contract a backtest strategy
// implements and the reference strategies shipped with the simulator.
package strategies

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/niftylab/intraday/market"
	"github.com/niftylab/intraday/sim"
)

// Strategy is the three-phase callback contract the session runner drives.
// OnStart runs once before the first bar (typically to precompute indicator
// series), OnBar runs exactly once per bar with a strictly increasing index,
// and OnFinish runs once after the last bar and must leave no open
// positions.
type Strategy interface {
	OnStart(i int) error
	OnBar(i int) error
	OnFinish(i int) error
}

// Env bundles the collaborators a strategy needs: the execution engine it
// places orders through, the dataset and catalog it reads, and the resolved
// underlying instrument.
type Env struct {
	Engine           *sim.Engine
	Data             *market.Dataset
	Catalog          *market.Catalog
	Underlying       market.Contract
	UnderlyingSymbol string // e.g. "NIFTY"
	Log              *slog.Logger
}

func (e Env) logger() *slog.Logger {
	if e.Log == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Log
}

// Options carries per-strategy parameters for ByName.
type Options struct {
	MeanReversion MeanReversionConfig
	Straddle      StraddleConfig
}

// DefaultOptions returns the reference parameter sets for both strategies.
func DefaultOptions() Options {
	return Options{
		MeanReversion: MeanReversionDefaults(),
		Straddle:      StraddleDefaults(),
	}
}

// ByName constructs a strategy by its CLI name.
func ByName(name string, env Env, opts Options) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mean_reversion", "mean-reversion":
		return NewMeanReversion(env, opts.MeanReversion), nil
	case "straddle", "short-straddle":
		return NewShortStraddle(env, opts.Straddle), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q (supported: mean_reversion, straddle)", name)
	}
}

// TimeOfDay is a wall-clock cutoff within the session, e.g. 15:15.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	ts, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	return TimeOfDay{Hour: ts.Hour(), Minute: ts.Minute()}, nil
}

// Reached reports whether the timestamp's time of day is at or past t.
func (t TimeOfDay) Reached(ts time.Time) bool {
	h, m := ts.Hour(), ts.Minute()
	return h > t.Hour || (h == t.Hour && m >= t.Minute)
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}
