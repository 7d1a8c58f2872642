package strategies

import (
	"fmt"
	"math"

	"github.com/niftylab/intraday/indicators"
	"github.com/niftylab/intraday/sim"
)

// MeanReversionConfig holds the indicator and threshold parameters for the
// mean-reversion strategy.
type MeanReversionConfig struct {
	EMAPeriod  int     `json:"ema_period" yaml:"ema_period"`
	BollWindow int     `json:"boll_window" yaml:"boll_window"`
	BollStd    float64 `json:"boll_std" yaml:"boll_std"`
	RSIPeriod  int     `json:"rsi_period" yaml:"rsi_period"`

	Oversold   float64 `json:"oversold" yaml:"oversold"`     // 30
	Overbought float64 `json:"overbought" yaml:"overbought"` // 70
	NeutralRSI float64 `json:"neutral_rsi" yaml:"neutral_rsi"`

	Quantity int       `json:"quantity" yaml:"quantity"`
	Cutoff   TimeOfDay `json:"-" yaml:"-"`
}

func MeanReversionDefaults() MeanReversionConfig {
	return MeanReversionConfig{
		EMAPeriod:  20,
		BollWindow: 20,
		BollStd:    2.0,
		RSIPeriod:  14,
		Oversold:   30,
		Overbought: 70,
		NeutralRSI: 50,
		Quantity:   1,
		Cutoff:     TimeOfDay{Hour: 15, Minute: 15},
	}
}

type mrState int

const (
	mrFlat mrState = iota
	mrLong
	mrShort
)

// MeanReversion fades volatility-band touches on a single instrument. It
// goes long when price flushes to the lower band while momentum is oversold
// and price still sits above the trend average, mirrored on the upper band.
// It exits on a trend cross-back, on momentum reverting to its midpoint, or
// unconditionally at the session cutoff.
type MeanReversion struct {
	env    Env
	cfg    MeanReversionConfig
	token  int64
	symbol string

	ema   []float64
	upper []float64
	lower []float64
	rsi   []float64

	state mrState
}

func NewMeanReversion(env Env, cfg MeanReversionConfig) *MeanReversion {
	return &MeanReversion{
		env:    env,
		cfg:    cfg,
		token:  env.Underlying.Token,
		symbol: env.Catalog.SymbolOrToken(env.Underlying.Token),
	}
}

// OnStart precomputes the EMA, Bollinger bands and RSI over the full session
// so each OnBar call is O(1).
func (s *MeanReversion) OnStart(i int) error {
	series, ok := s.env.Data.Series(s.token)
	if !ok {
		return fmt.Errorf("mean reversion: no market data for %s", s.symbol)
	}
	closes := series.Closes()

	var err error
	if s.ema, err = indicators.EMA(closes, s.cfg.EMAPeriod); err != nil {
		return err
	}
	if _, s.upper, s.lower, err = indicators.Bollinger(closes, s.cfg.BollWindow, s.cfg.BollStd); err != nil {
		return err
	}
	if s.rsi, err = indicators.RSI(closes, s.cfg.RSIPeriod); err != nil {
		return err
	}
	return nil
}

func (s *MeanReversion) OnBar(i int) error {
	eng := s.env.Engine
	ts := eng.Timestamp(i)

	price := eng.Price(s.token, i)
	if math.IsNaN(price) {
		return nil
	}
	if i >= len(s.ema) || i >= len(s.upper) || i >= len(s.lower) || i >= len(s.rsi) {
		return nil
	}
	ema, upper, lower, rsi := s.ema[i], s.upper[i], s.lower[i], s.rsi[i]
	if math.IsNaN(ema) || math.IsNaN(upper) || math.IsNaN(lower) || math.IsNaN(rsi) {
		return nil
	}

	log := s.env.logger()

	switch s.state {
	case mrFlat:
		switch {
		case price <= lower && rsi < s.cfg.Oversold && price > ema:
			if _, err := eng.PlaceOrder(s.token, s.symbol, sim.Buy, s.cfg.Quantity, i); err != nil {
				return err
			}
			s.state = mrLong
			log.Info("enter long", "time", ts.Format("15:04"), "price", price, "rsi", rsi)

		case price >= upper && rsi > s.cfg.Overbought && price < ema:
			if _, err := eng.PlaceOrder(s.token, s.symbol, sim.Sell, s.cfg.Quantity, i); err != nil {
				return err
			}
			s.state = mrShort
			log.Info("enter short", "time", ts.Format("15:04"), "price", price, "rsi", rsi)
		}

	case mrLong:
		pos, ok := eng.Position(s.token)
		if !ok {
			// The engine no longer holds the position; resync.
			s.state = mrFlat
			return nil
		}
		if price < ema || rsi >= s.cfg.NeutralRSI {
			if _, err := eng.PlaceOrder(s.token, s.symbol, sim.Sell, pos.Quantity, i); err != nil {
				return err
			}
			s.state = mrFlat
			log.Info("exit long", "time", ts.Format("15:04"), "price", price, "rsi", rsi)
		}

	case mrShort:
		pos, ok := eng.Position(s.token)
		if !ok {
			s.state = mrFlat
			return nil
		}
		if price > ema || rsi <= s.cfg.NeutralRSI {
			if _, err := eng.PlaceOrder(s.token, s.symbol, sim.Buy, pos.Quantity, i); err != nil {
				return err
			}
			s.state = mrFlat
			log.Info("exit short", "time", ts.Format("15:04"), "price", price, "rsi", rsi)
		}
	}

	// Unconditional end-of-session cutoff.
	if s.state != mrFlat && s.cfg.Cutoff.Reached(ts) {
		if pos, ok := eng.Position(s.token); ok {
			side := sim.Sell
			if pos.Side == sim.Short {
				side = sim.Buy
			}
			if _, err := eng.PlaceOrder(s.token, s.symbol, side, pos.Quantity, i); err != nil {
				return err
			}
			log.Info("square off at cutoff", "time", ts.Format("15:04"), "side", pos.Side)
		}
		s.state = mrFlat
	}
	return nil
}

func (s *MeanReversion) OnFinish(i int) error {
	s.state = mrFlat
	return s.env.Engine.SquareOffAll(i)
}
