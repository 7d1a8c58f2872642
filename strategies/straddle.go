package strategies

import (
	"math"

	"github.com/niftylab/intraday/indicators"
	"github.com/niftylab/intraday/market"
	"github.com/niftylab/intraday/sim"
)

// StraddleConfig holds the entry, exit and sizing parameters for the short
// straddle strategy.
type StraddleConfig struct {
	EntryAt TimeOfDay `json:"-" yaml:"-"`
	Cutoff  TimeOfDay `json:"-" yaml:"-"`

	StrikeStep int `json:"strike_step" yaml:"strike_step"`
	Lots       int `json:"lots" yaml:"lots"`

	// StopFrac and TargetFrac are expressed as fractions of the collected
	// premium: 0.25 stops out at -25%, 0.50 takes profit at +50%.
	StopFrac   float64 `json:"stop_frac" yaml:"stop_frac"`
	TargetFrac float64 `json:"target_frac" yaml:"target_frac"`
}

func StraddleDefaults() StraddleConfig {
	return StraddleConfig{
		EntryAt:    TimeOfDay{Hour: 9, Minute: 20},
		Cutoff:     TimeOfDay{Hour: 15, Minute: 10},
		StrikeStep: 50,
		Lots:       1,
		StopFrac:   0.25,
		TargetFrac: 0.50,
	}
}

// ShortStraddle sells one at-the-money call and put at the designated entry
// time and manages the pair against premium-based stop and target levels.
// Everything is squared off at the cutoff or when either level is breached.
type ShortStraddle struct {
	env Env
	cfg StraddleConfig

	attempted bool
	open      bool

	callToken int64
	putToken  int64

	premium float64
	stop    float64
	target  float64
}

func NewShortStraddle(env Env, cfg StraddleConfig) *ShortStraddle {
	return &ShortStraddle{env: env, cfg: cfg}
}

func (s *ShortStraddle) OnStart(i int) error { return nil }

func (s *ShortStraddle) OnBar(i int) error {
	eng := s.env.Engine
	ts := eng.Timestamp(i)
	log := s.env.logger()

	if !s.open && !s.attempted && s.cfg.EntryAt.Reached(ts) {
		// One entry attempt per session, at the first bar on or after the
		// entry time.
		s.attempted = true

		underlying := eng.Price(s.env.Underlying.Token, i)
		if math.IsNaN(underlying) {
			log.Warn("no underlying price at entry time, skipping straddle")
			return nil
		}

		strike := indicators.NearestStrike(underlying, s.cfg.StrikeStep)
		call, errCall := s.env.Catalog.ResolveOption(s.env.UnderlyingSymbol, strike, market.Call, ts)
		put, errPut := s.env.Catalog.ResolveOption(s.env.UnderlyingSymbol, strike, market.Put, ts)
		if errCall != nil || errPut != nil {
			log.Warn("no options for strike, skipping straddle", "strike", strike)
			return nil
		}

		callOrder, err := eng.PlaceOrder(call.Token, call.Description, sim.Sell, s.cfg.Lots, i)
		if err != nil {
			return err
		}
		putOrder, err := eng.PlaceOrder(put.Token, put.Description, sim.Sell, s.cfg.Lots, i)
		if err != nil {
			return err
		}

		s.callToken = call.Token
		s.putToken = put.Token
		s.premium = (callOrder.ExecutedPrice + putOrder.ExecutedPrice) * float64(s.cfg.Lots)
		s.stop = -s.cfg.StopFrac * s.premium
		s.target = s.cfg.TargetFrac * s.premium
		s.open = true

		log.Info("sold straddle",
			"strike", strike, "premium", s.premium,
			"stop", s.stop, "target", s.target)
		return nil
	}

	if s.open {
		callPos, okCall := eng.Position(s.callToken)
		putPos, okPut := eng.Position(s.putToken)
		if !okCall || !okPut {
			return nil
		}

		callPrice := eng.Price(s.callToken, i)
		putPrice := eng.Price(s.putToken, i)
		if !math.IsNaN(callPrice) && !math.IsNaN(putPrice) {
			total := callPos.UnrealizedPL(callPrice) + putPos.UnrealizedPL(putPrice) +
				callPos.RealizedPnL + putPos.RealizedPnL
			if total <= s.stop || total >= s.target {
				log.Info("closing straddle on threshold",
					"time", ts.Format("15:04"), "pnl", total)
				if err := eng.SquareOffAll(i); err != nil {
					return err
				}
				s.open = false
				return nil
			}
		}
	}

	if s.open && s.cfg.Cutoff.Reached(ts) {
		log.Info("square off straddle before close", "time", ts.Format("15:04"))
		if err := eng.SquareOffAll(i); err != nil {
			return err
		}
		s.open = false
	}
	return nil
}

func (s *ShortStraddle) OnFinish(i int) error {
	s.open = false
	return s.env.Engine.SquareOffAll(i)
}
