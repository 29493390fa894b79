package backtesting

import (
	"fmt"

	"github.com/fingenie/quantcore/pkg/formulas"
)

// Signals answers entry and exit questions for bar i of a prepared series.
// Both are false wherever an indicator has no value yet.
type Signals interface {
	Entry(i int) bool
	Exit(i int) bool
}

// Strategy turns a close series into Signals.
type Strategy interface {
	Type() StrategyType
	// MinBars is the shortest series the strategy can trade. Shorter
	// series are skipped.
	MinBars() int
	Prepare(closes []float64) (Signals, error)
}

// NewStrategy builds the strategy selected by cfg.Type
func NewStrategy(cfg StrategyConfig) (Strategy, error) {
	switch cfg.Type {
	case StrategySMACrossover:
		return smaCrossover{fast: cfg.FastPeriod, slow: cfg.SlowPeriod}, nil
	case StrategyRSI:
		return rsiReversal{period: cfg.RSIPeriod, oversold: cfg.RSIOversold, overbought: cfg.RSIOverbought}, nil
	case StrategyMACD:
		return macdCrossover{fast: cfg.MACDFast, slow: cfg.MACDSlow, signal: cfg.MACDSignal}, nil
	case StrategyBollinger:
		return bollingerReversion{period: cfg.BollingerPeriod, stdDevs: cfg.BollingerStdDev}, nil
	default:
		return nil, fmt.Errorf("%w: unknown strategy type %q", ErrInvalidConfig, cfg.Type)
	}
}

// alignedWith checks every indicator series is bar-aligned with n closes.
func alignedWith(n int, series ...[]float64) error {
	for _, s := range series {
		if len(s) != n {
			return fmt.Errorf("indicator has %d values for %d closes", len(s), n)
		}
	}
	return nil
}

// crossesAbove reports a move from a <= b on bar i-1 to a > b on bar i.
func crossesAbove(a, b []float64, i int) bool {
	return i > 0 && a[i-1] <= b[i-1] && a[i] > b[i]
}

// crossesBelow reports a move from a >= b on bar i-1 to a < b on bar i.
func crossesBelow(a, b []float64, i int) bool {
	return i > 0 && a[i-1] >= b[i-1] && a[i] < b[i]
}

type smaCrossover struct {
	fast, slow int
}

func (s smaCrossover) Type() StrategyType { return StrategySMACrossover }
func (s smaCrossover) MinBars() int       { return s.slow }

func (s smaCrossover) Prepare(closes []float64) (Signals, error) {
	fast := formulas.SMASeries(closes, s.fast)
	slow := formulas.SMASeries(closes, s.slow)
	if err := alignedWith(len(closes), fast, slow); err != nil {
		return nil, err
	}
	return lineCross{a: fast, b: slow}, nil
}

type macdCrossover struct {
	fast, slow, signal int
}

func (s macdCrossover) Type() StrategyType { return StrategyMACD }
func (s macdCrossover) MinBars() int       { return s.slow + s.signal }

func (s macdCrossover) Prepare(closes []float64) (Signals, error) {
	macd, signal, _ := formulas.MACDSeries(closes, s.fast, s.slow, s.signal)
	if err := alignedWith(len(closes), macd, signal); err != nil {
		return nil, err
	}
	return lineCross{a: macd, b: signal}, nil
}

// lineCross enters when a crosses above b and exits when it crosses below.
type lineCross struct {
	a, b []float64
}

func (l lineCross) Entry(i int) bool { return crossesAbove(l.a, l.b, i) }
func (l lineCross) Exit(i int) bool  { return crossesBelow(l.a, l.b, i) }

type rsiReversal struct {
	period               int
	oversold, overbought float64
}

func (s rsiReversal) Type() StrategyType { return StrategyRSI }
func (s rsiReversal) MinBars() int       { return s.period + 2 }

func (s rsiReversal) Prepare(closes []float64) (Signals, error) {
	rsi := formulas.RSISeries(closes, s.period)
	if err := alignedWith(len(closes), rsi); err != nil {
		return nil, err
	}
	return rsiSignals{rsi: rsi, oversold: s.oversold, overbought: s.overbought}, nil
}

type rsiSignals struct {
	rsi                  []float64
	oversold, overbought float64
}

// Entry fires when RSI climbs back out of the oversold zone.
func (r rsiSignals) Entry(i int) bool {
	return i > 0 && r.rsi[i-1] <= r.oversold && r.rsi[i] > r.oversold
}

func (r rsiSignals) Exit(i int) bool {
	return r.rsi[i] >= r.overbought
}

type bollingerReversion struct {
	period  int
	stdDevs float64
}

func (s bollingerReversion) Type() StrategyType { return StrategyBollinger }
func (s bollingerReversion) MinBars() int       { return s.period + 1 }

func (s bollingerReversion) Prepare(closes []float64) (Signals, error) {
	_, middle, lower := formulas.BollingerSeries(closes, s.period, s.stdDevs)
	if err := alignedWith(len(closes), middle, lower); err != nil {
		return nil, err
	}
	return bollingerSignals{closes: closes, middle: middle, lower: lower}, nil
}

type bollingerSignals struct {
	closes, middle, lower []float64
}

// Entry fires when the close crosses back above the lower band.
func (b bollingerSignals) Entry(i int) bool {
	return i > 0 && b.closes[i-1] <= b.lower[i-1] && b.closes[i] > b.lower[i]
}

func (b bollingerSignals) Exit(i int) bool {
	return b.closes[i] >= b.middle[i]
}
