package backtesting

import (
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/fingenie/quantcore/internal/domain"
	"golang.org/x/sync/errgroup"
)

// TradeStatus is the lifecycle state of a simulated position
type TradeStatus string

const (
	TradeOpen   TradeStatus = "open"
	TradeClosed TradeStatus = "closed"
)

// ExitReason records which condition closed a trade
type ExitReason string

const (
	ExitSignal     ExitReason = "signal"
	ExitStopLoss   ExitReason = "stop_loss"
	ExitTakeProfit ExitReason = "take_profit"
	ExitEndOfData  ExitReason = "end_of_data"
)

// Trade is one simulated long position. Exit fields are nil while open.
type Trade struct {
	Symbol     string      `json:"symbol"`
	EntryDate  time.Time   `json:"entry_date"`
	EntryPrice float64     `json:"entry_price"`
	ExitDate   *time.Time  `json:"exit_date,omitempty"`
	ExitPrice  *float64    `json:"exit_price,omitempty"`
	Quantity   float64     `json:"quantity"`
	ProfitLoss float64     `json:"profit_loss"`
	Status     TradeStatus `json:"status"`
	ExitReason ExitReason  `json:"exit_reason,omitempty"`
}

// Return is profit/loss as a fraction of the entry value.
func (t Trade) Return() float64 {
	return t.ProfitLoss / (t.EntryPrice * t.Quantity)
}

// RunBacktest replays cfg's strategy over each series in order, sharing one
// capital pool, and computes metrics over the closed trades. Symbols are
// simulated one after another in input order; indicator series are prepared
// concurrently. cfg is expected to carry its defaults. Errors come from an
// unknown strategy type or a strategy failing to prepare a series.
func RunBacktest(cfg StrategyConfig, series []domain.SymbolSeries) (*BacktestResult, error) {
	strategy, err := NewStrategy(cfg)
	if err != nil {
		return nil, err
	}
	return runStrategy(cfg, strategy, series)
}

func runStrategy(cfg StrategyConfig, strategy Strategy, series []domain.SymbolSeries) (*BacktestResult, error) {
	signals := make([]Signals, len(series))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range series {
		if len(series[i].Bars) < strategy.MinBars() {
			continue
		}
		i := i
		g.Go(func() error {
			sig, err := strategy.Prepare(series[i].Closes())
			if err != nil {
				return fmt.Errorf("prepare %s signals for %s: %w", strategy.Type(), series[i].Symbol, err)
			}
			signals[i] = sig
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	capital := cfg.InitialCapital
	trades := make([]Trade, 0)
	skipped := make([]string, 0)
	for i, s := range series {
		if signals[i] == nil {
			skipped = append(skipped, s.Symbol)
			continue
		}
		trades = append(trades, simulate(cfg, s, signals[i], &capital)...)
	}

	result := computeMetrics(cfg, trades, capital)
	result.StrategyType = strategy.Type()
	result.SkippedSymbols = skipped
	return result, nil
}

// simulate runs the flat/long state machine over one symbol.
func simulate(cfg StrategyConfig, s domain.SymbolSeries, sig Signals, capital *float64) []Trade {
	var (
		trades []Trade
		open   *Trade
	)

	closeAt := func(i int, reason ExitReason) {
		bar := s.Bars[i]
		date, price := bar.Date, bar.Close
		open.ExitDate = &date
		open.ExitPrice = &price
		open.ProfitLoss = price*open.Quantity - open.EntryPrice*open.Quantity
		open.Status = TradeClosed
		open.ExitReason = reason
		*capital += price * open.Quantity
		trades = append(trades, *open)
		open = nil
	}

	for i := 1; i < len(s.Bars); i++ {
		price := s.Bars[i].Close

		if open == nil {
			if !sig.Entry(i) {
				continue
			}
			qty := math.Floor(*capital * cfg.PositionSizePercent / 100 / price)
			if !(qty > 0) {
				continue
			}
			*capital -= qty * price
			open = &Trade{
				Symbol:     s.Symbol,
				EntryDate:  s.Bars[i].Date,
				EntryPrice: price,
				Quantity:   qty,
				Status:     TradeOpen,
			}
			continue
		}

		if reason := exitReason(cfg, sig, i, open.EntryPrice, price); reason != "" {
			closeAt(i, reason)
		}
	}

	if open != nil {
		closeAt(len(s.Bars)-1, ExitEndOfData)
	}
	return trades
}

// exitReason checks the signal, stop-loss and take-profit conditions in that
// order and returns the first that holds.
func exitReason(cfg StrategyConfig, sig Signals, i int, entry, price float64) ExitReason {
	if sig.Exit(i) {
		return ExitSignal
	}
	change := (price - entry) / entry * 100
	if cfg.StopLossPercent > 0 && change <= -cfg.StopLossPercent {
		return ExitStopLoss
	}
	if cfg.TakeProfitPercent > 0 && change >= cfg.TakeProfitPercent {
		return ExitTakeProfit
	}
	return ""
}
