package analytics

import "github.com/fingenie/quantcore/pkg/formulas"

// CalculateRiskScore returns the heuristic 0-100 score: base 50 adjusted for
// diversification, largest-sector concentration and the population standard
// deviation of per-holding profit percentages.
func CalculateRiskScore(perf []HoldingPerformance, sectorAllocation map[string]float64) int {
	score := RiskScoreBase
	score += diversificationAdjustment(len(perf))

	largest := 0.0
	for _, pct := range sectorAllocation {
		if pct > largest {
			largest = pct
		}
	}
	score += concentrationAdjustment(largest)

	profitPercents := make([]float64, len(perf))
	for i, p := range perf {
		profitPercents[i] = p.ProfitPercent
	}
	score += volatilityAdjustment(formulas.PopStdDev(profitPercents))

	return clampScore(score)
}

func diversificationAdjustment(count int) int {
	switch {
	case count >= 15:
		return -15
	case count >= 10:
		return -10
	case count >= 5:
		return -5
	default:
		return 10
	}
}

func concentrationAdjustment(largestSectorPct float64) int {
	switch {
	case largestSectorPct > 50:
		return 15
	case largestSectorPct > 40:
		return 10
	case largestSectorPct > 30:
		return 5
	default:
		return -10
	}
}

// NaN volatility compares false everywhere and falls through to -5.
func volatilityAdjustment(stdDev float64) int {
	switch {
	case stdDev > 30:
		return 10
	case stdDev > 20:
		return 5
	default:
		return -5
	}
}

func clampScore(score int) int {
	if score < RiskScoreMin {
		return RiskScoreMin
	}
	if score > RiskScoreMax {
		return RiskScoreMax
	}
	return score
}
