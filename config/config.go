// Package config loads and validates the backtest configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the complete backtest configuration.
type Config struct {
	Data       DataConfig       `json:"data" yaml:"data"`
	Account    AccountConfig    `json:"account" yaml:"account"`
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`
	Strategy   StrategyConfig   `json:"strategy" yaml:"strategy"`
	Journal    JournalConfig    `json:"journal" yaml:"journal"`
	Verbose    bool             `json:"verbose" yaml:"verbose"`
}

// DataConfig points at the instrument metadata and the single-day OHLC
// bundle.
type DataConfig struct {
	ContractFile   string `json:"contract_file" yaml:"contract_file"`
	MarketDataFile string `json:"market_data_file" yaml:"market_data_file"`
}

type AccountConfig struct {
	StartingCash float64 `json:"starting_cash" yaml:"starting_cash"`
}

type SimulationConfig struct {
	Slippage float64 `json:"slippage" yaml:"slippage"`
	// MaxDailyLoss arms the circuit breaker when set.
	MaxDailyLoss *float64 `json:"max_daily_loss,omitempty" yaml:"max_daily_loss,omitempty"`
}

// StrategyConfig selects and parameterizes the strategy.
type StrategyConfig struct {
	Name       string `json:"name" yaml:"name"`
	Underlying string `json:"underlying" yaml:"underlying"`

	// Mean reversion parameters.
	EMAPeriod  int     `json:"ema_period" yaml:"ema_period"`
	BollWindow int     `json:"boll_window" yaml:"boll_window"`
	BollStd    float64 `json:"boll_std" yaml:"boll_std"`
	RSIPeriod  int     `json:"rsi_period" yaml:"rsi_period"`
	Quantity   int     `json:"quantity" yaml:"quantity"`
	ExitAt     string  `json:"exit_at" yaml:"exit_at"`

	// Short straddle parameters.
	EntryAt    string  `json:"entry_at" yaml:"entry_at"`
	SquareOff  string  `json:"square_off" yaml:"square_off"`
	StrikeStep int     `json:"strike_step" yaml:"strike_step"`
	Lots       int     `json:"lots" yaml:"lots"`
	StopFrac   float64 `json:"stop_frac" yaml:"stop_frac"`
	TargetFrac float64 `json:"target_frac" yaml:"target_frac"`
}

type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "sqlite", "csv" or "none"
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
}

// LoadFromFile reads a YAML or JSON configuration file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.Account.StartingCash <= 0 {
		return fmt.Errorf("account.starting_cash must be positive")
	}
	if c.Simulation.Slippage < 0 {
		return fmt.Errorf("simulation.slippage must be non-negative")
	}
	if c.Simulation.MaxDailyLoss != nil && *c.Simulation.MaxDailyLoss <= 0 {
		return fmt.Errorf("simulation.max_daily_loss must be positive when set")
	}
	switch c.Strategy.Name {
	case "mean_reversion", "mean-reversion", "straddle", "short-straddle":
	default:
		return fmt.Errorf("strategy.name must be mean_reversion or straddle, got %q", c.Strategy.Name)
	}
	if c.Strategy.Underlying == "" {
		return fmt.Errorf("strategy.underlying is required")
	}
	switch c.Journal.Type {
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal.db_path required for sqlite journal")
		}
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal trades_file and equity_file required for csv journal")
		}
	case "none", "":
	default:
		return fmt.Errorf("journal.type must be sqlite, csv or none")
	}
	return nil
}

// Default returns the reference configuration.
func Default() *Config {
	return &Config{
		Account: AccountConfig{StartingCash: 1_000_000},
		Strategy: StrategyConfig{
			Name:       "straddle",
			Underlying: "NIFTY",
			EMAPeriod:  20,
			BollWindow: 20,
			BollStd:    2.0,
			RSIPeriod:  14,
			Quantity:   1,
			ExitAt:     "15:15",
			EntryAt:    "09:20",
			SquareOff:  "15:10",
			StrikeStep: 50,
			Lots:       1,
			StopFrac:   0.25,
			TargetFrac: 0.50,
		},
		Journal: JournalConfig{Type: "none"},
	}
}

// NewLogger builds the logger injected into the engine and strategies.
// Verbose mode surfaces the per-order debug traces; otherwise only warnings
// come through.
func NewLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
