// Package analytics computes portfolio valuation, sector concentration,
// performer rankings and a heuristic risk score from current holdings.
package analytics

import (
	"sort"

	"github.com/fingenie/quantcore/internal/domain"
)

// PerformerCount is how many holdings each performer list holds at most.
const PerformerCount = 5

// Risk score bounds
const (
	RiskScoreBase = 50
	RiskScoreMin  = 0
	RiskScoreMax  = 100
)

// HoldingPerformance is a holding with its derived figures.
type HoldingPerformance struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Sector        string  `json:"sector"`
	Quantity      float64 `json:"quantity"`
	Value         float64 `json:"value"`
	Invested      float64 `json:"invested"`
	Profit        float64 `json:"profit"`
	ProfitPercent float64 `json:"profit_percent"`
}

// AnalyticsResult is the output of CalculateAnalytics.
type AnalyticsResult struct {
	TotalValue       float64              `json:"total_value"`
	TotalInvested    float64              `json:"total_invested"`
	TotalProfit      float64              `json:"total_profit"`
	ProfitPercentage float64              `json:"profit_percentage"`
	SectorAllocation map[string]float64   `json:"sector_allocation"`
	TopPerformers    []HoldingPerformance `json:"top_performers"`
	WorstPerformers  []HoldingPerformance `json:"worst_performers"`
	RiskScore        int                  `json:"risk_score"`
}

// CalculateAnalytics aggregates holdings into an AnalyticsResult.
//
// Callers must pass at least one holding with positive value; an empty list
// yields NaN percentages. Non-finite inputs are not sanitized and propagate
// into the totals and percentages.
func CalculateAnalytics(holdings []domain.Holding) AnalyticsResult {
	perf := make([]HoldingPerformance, len(holdings))
	var totalValue, totalInvested float64
	sectorValue := make(map[string]float64)

	for i, h := range holdings {
		value := h.Value()
		invested := h.Invested()
		profit := value - invested
		perf[i] = HoldingPerformance{
			Symbol:        h.Symbol,
			Name:          h.Name,
			Sector:        h.SectorOrDefault(),
			Quantity:      h.Quantity,
			Value:         value,
			Invested:      invested,
			Profit:        profit,
			ProfitPercent: profit / invested * 100,
		}
		totalValue += value
		totalInvested += invested
		sectorValue[perf[i].Sector] += value
	}

	totalProfit := totalValue - totalInvested

	sectorAllocation := make(map[string]float64, len(sectorValue))
	for sector, value := range sectorValue {
		sectorAllocation[sector] = value / totalValue * 100
	}

	top, worst := rankPerformers(perf)

	return AnalyticsResult{
		TotalValue:       totalValue,
		TotalInvested:    totalInvested,
		TotalProfit:      totalProfit,
		ProfitPercentage: totalProfit / totalInvested * 100,
		SectorAllocation: sectorAllocation,
		TopPerformers:    top,
		WorstPerformers:  worst,
		RiskScore:        CalculateRiskScore(perf, sectorAllocation),
	}
}

// rankPerformers sorts by profit percent descending and returns the first
// PerformerCount as top and the last PerformerCount worst-first.
func rankPerformers(perf []HoldingPerformance) (top, worst []HoldingPerformance) {
	sorted := make([]HoldingPerformance, len(perf))
	copy(sorted, perf)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ProfitPercent > sorted[j].ProfitPercent
	})

	n := len(sorted)
	top = make([]HoldingPerformance, 0, PerformerCount)
	for i := 0; i < n && i < PerformerCount; i++ {
		top = append(top, sorted[i])
	}

	worst = make([]HoldingPerformance, 0, PerformerCount)
	for i := n - 1; i >= 0 && i >= n-PerformerCount; i-- {
		worst = append(worst, sorted[i])
	}
	return top, worst
}
