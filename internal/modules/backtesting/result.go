package backtesting

import (
	"math"
	"sort"
	"time"

	"github.com/fingenie/quantcore/pkg/formulas"
)

// EquityPoint is the capital after a trade closed
type EquityPoint struct {
	Date   time.Time `json:"date"`
	Equity float64   `json:"equity"`
}

// BacktestResult holds the trades and statistics of one run. Percentages
// are expressed 0-100.
type BacktestResult struct {
	StrategyType         StrategyType  `json:"strategy_type"`
	InitialCapital       float64       `json:"initial_capital"`
	FinalCapital         float64       `json:"final_capital"`
	TotalReturn          float64       `json:"total_return"`
	AnnualizedReturn     float64       `json:"annualized_return"`
	MaxDrawdown          float64       `json:"max_drawdown"`
	SharpeRatio          float64       `json:"sharpe_ratio"`
	Volatility           float64       `json:"volatility"`
	ProfitFactor         float64       `json:"profit_factor"`
	CalmarRatio          float64       `json:"calmar_ratio"`
	WinRate              float64       `json:"win_rate"`
	TotalTrades          int           `json:"total_trades"`
	WinningTrades        int           `json:"winning_trades"`
	LosingTrades         int           `json:"losing_trades"`
	AverageWin           float64       `json:"average_win"`
	AverageLoss          float64       `json:"average_loss"`
	MaxConsecutiveWins   int           `json:"max_consecutive_wins"`
	MaxConsecutiveLosses int           `json:"max_consecutive_losses"`
	Trades               []Trade       `json:"trades"`
	EquityCurve          []EquityPoint `json:"equity_curve"`
	SkippedSymbols       []string      `json:"skipped_symbols"`
}

func computeMetrics(cfg StrategyConfig, trades []Trade, finalCapital float64) *BacktestResult {
	r := &BacktestResult{
		InitialCapital: cfg.InitialCapital,
		FinalCapital:   finalCapital,
		Trades:         trades,
		TotalTrades:    len(trades),
	}

	ordered := make([]Trade, len(trades))
	copy(ordered, trades)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ExitDate.Before(*ordered[j].ExitDate)
	})

	var (
		totalPnL, winSum, lossSum float64
		returns                   = make([]float64, 0, len(ordered))
		curve                     = make([]float64, 0, len(ordered))
		winStreak, lossStreak     int
	)
	r.EquityCurve = make([]EquityPoint, 0, len(ordered))
	equity := cfg.InitialCapital
	for _, t := range ordered {
		totalPnL += t.ProfitLoss
		equity += t.ProfitLoss
		curve = append(curve, equity)
		r.EquityCurve = append(r.EquityCurve, EquityPoint{Date: *t.ExitDate, Equity: equity})
		returns = append(returns, t.Return())

		switch {
		case t.ProfitLoss > 0:
			r.WinningTrades++
			winSum += t.ProfitLoss
			winStreak++
			lossStreak = 0
		case t.ProfitLoss < 0:
			r.LosingTrades++
			lossSum += -t.ProfitLoss
			lossStreak++
			winStreak = 0
		default:
			winStreak, lossStreak = 0, 0
		}
		if winStreak > r.MaxConsecutiveWins {
			r.MaxConsecutiveWins = winStreak
		}
		if lossStreak > r.MaxConsecutiveLosses {
			r.MaxConsecutiveLosses = lossStreak
		}
	}

	r.TotalReturn = totalPnL / cfg.InitialCapital * 100
	years := cfg.EndDate.Sub(cfg.StartDate).Hours() / 24 / 365.25
	r.AnnualizedReturn = (math.Pow(finalCapital/cfg.InitialCapital, 1/years) - 1) * 100
	r.MaxDrawdown = formulas.MaxDrawdownPercent(cfg.InitialCapital, curve)
	r.SharpeRatio = formulas.SimpleSharpe(returns)
	r.Volatility = formulas.PopStdDev(returns) * 100

	if r.WinningTrades > 0 {
		r.AverageWin = winSum / float64(r.WinningTrades)
	}
	if r.LosingTrades > 0 {
		r.AverageLoss = lossSum / float64(r.LosingTrades)
	}
	if lossSum > 0 {
		r.ProfitFactor = (r.AverageWin * float64(r.WinningTrades)) / (r.AverageLoss * float64(r.LosingTrades))
	}
	if r.MaxDrawdown != 0 {
		r.CalmarRatio = r.AnnualizedReturn / r.MaxDrawdown
	}
	if r.TotalTrades > 0 {
		r.WinRate = float64(r.WinningTrades) / float64(r.TotalTrades) * 100
	}
	return r
}
