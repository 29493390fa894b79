// Package backtesting replays rule-based strategies over historical bars and
// reports trade statistics.
package backtesting

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is returned when a strategy configuration cannot be run
var ErrInvalidConfig = errors.New("invalid backtest configuration")

// StrategyType selects the entry/exit rule
type StrategyType string

const (
	StrategySMACrossover StrategyType = "sma_crossover"
	StrategyRSI          StrategyType = "rsi"
	StrategyMACD         StrategyType = "macd"
	StrategyBollinger    StrategyType = "bollinger"
)

// Strategy parameter defaults
const (
	DefaultFastPeriod          = 10
	DefaultSlowPeriod          = 20
	DefaultPositionSizePercent = 100.0
	DefaultRSIPeriod           = 14
	DefaultRSIOversold         = 30.0
	DefaultRSIOverbought       = 70.0
	DefaultMACDFast            = 12
	DefaultMACDSlow            = 26
	DefaultMACDSignal          = 9
	DefaultBollingerPeriod     = 20
	DefaultBollingerStdDev     = 2.0
)

// StrategyConfig describes one backtest run.
// StopLossPercent and TakeProfitPercent are disabled when zero.
type StrategyConfig struct {
	Type                StrategyType `json:"type" yaml:"type"`
	FastPeriod          int          `json:"fast_period,omitempty" yaml:"fast_period"`
	SlowPeriod          int          `json:"slow_period,omitempty" yaml:"slow_period"`
	RSIPeriod           int          `json:"rsi_period,omitempty" yaml:"rsi_period"`
	RSIOversold         float64      `json:"rsi_oversold,omitempty" yaml:"rsi_oversold"`
	RSIOverbought       float64      `json:"rsi_overbought,omitempty" yaml:"rsi_overbought"`
	MACDFast            int          `json:"macd_fast,omitempty" yaml:"macd_fast"`
	MACDSlow            int          `json:"macd_slow,omitempty" yaml:"macd_slow"`
	MACDSignal          int          `json:"macd_signal,omitempty" yaml:"macd_signal"`
	BollingerPeriod     int          `json:"bollinger_period,omitempty" yaml:"bollinger_period"`
	BollingerStdDev     float64      `json:"bollinger_std_dev,omitempty" yaml:"bollinger_std_dev"`
	StopLossPercent     float64      `json:"stop_loss_percent,omitempty" yaml:"stop_loss_percent"`
	TakeProfitPercent   float64      `json:"take_profit_percent,omitempty" yaml:"take_profit_percent"`
	PositionSizePercent float64      `json:"position_size_percent,omitempty" yaml:"position_size_percent"`
	StartDate           time.Time    `json:"start_date" yaml:"start_date"`
	EndDate             time.Time    `json:"end_date" yaml:"end_date"`
	InitialCapital      float64      `json:"initial_capital" yaml:"initial_capital"`
}

// WithDefaults returns a copy with unset parameters filled in
func (c StrategyConfig) WithDefaults() StrategyConfig {
	if c.Type == "" {
		c.Type = StrategySMACrossover
	}
	if c.FastPeriod == 0 {
		c.FastPeriod = DefaultFastPeriod
	}
	if c.SlowPeriod == 0 {
		c.SlowPeriod = DefaultSlowPeriod
	}
	if c.RSIPeriod == 0 {
		c.RSIPeriod = DefaultRSIPeriod
	}
	if c.RSIOversold == 0 {
		c.RSIOversold = DefaultRSIOversold
	}
	if c.RSIOverbought == 0 {
		c.RSIOverbought = DefaultRSIOverbought
	}
	if c.MACDFast == 0 {
		c.MACDFast = DefaultMACDFast
	}
	if c.MACDSlow == 0 {
		c.MACDSlow = DefaultMACDSlow
	}
	if c.MACDSignal == 0 {
		c.MACDSignal = DefaultMACDSignal
	}
	if c.BollingerPeriod == 0 {
		c.BollingerPeriod = DefaultBollingerPeriod
	}
	if c.BollingerStdDev == 0 {
		c.BollingerStdDev = DefaultBollingerStdDev
	}
	if c.PositionSizePercent == 0 {
		c.PositionSizePercent = DefaultPositionSizePercent
	}
	return c
}

// Validate checks a defaulted config. Every failure wraps ErrInvalidConfig.
func (c StrategyConfig) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	if !c.EndDate.After(c.StartDate) {
		return invalid("end_date must be after start_date")
	}
	if c.InitialCapital <= 0 {
		return invalid("initial_capital must be positive")
	}
	if c.PositionSizePercent <= 0 || c.PositionSizePercent > 100 {
		return invalid("position_size_percent must be in (0, 100]")
	}
	if c.StopLossPercent < 0 || c.TakeProfitPercent < 0 {
		return invalid("stop_loss_percent and take_profit_percent must not be negative")
	}

	switch c.Type {
	case StrategySMACrossover:
		if c.FastPeriod <= 0 || c.FastPeriod >= c.SlowPeriod {
			return invalid("fast_period must be positive and below slow_period")
		}
	case StrategyRSI:
		if c.RSIPeriod < 2 {
			return invalid("rsi_period must be at least 2")
		}
		if c.RSIOversold <= 0 || c.RSIOversold >= c.RSIOverbought || c.RSIOverbought >= 100 {
			return invalid("rsi thresholds must satisfy 0 < oversold < overbought < 100")
		}
	case StrategyMACD:
		if c.MACDFast <= 0 || c.MACDFast >= c.MACDSlow || c.MACDSignal <= 0 {
			return invalid("macd periods must satisfy 0 < fast < slow and signal > 0")
		}
	case StrategyBollinger:
		if c.BollingerPeriod < 2 || c.BollingerStdDev <= 0 {
			return invalid("bollinger_period must be at least 2 and bollinger_std_dev positive")
		}
	default:
		return invalid("unknown strategy type %q", c.Type)
	}
	return nil
}
