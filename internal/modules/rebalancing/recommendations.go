package rebalancing

import (
	"math"

	"github.com/fingenie/quantcore/internal/domain"
)

// DefaultThresholdPercent is the drift tolerated before a trade is recommended.
const DefaultThresholdPercent = 5.0

// Action is the recommended side for one holding
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// Recommendation is the rebalancing instruction for one holding
type Recommendation struct {
	Symbol         string  `json:"symbol"`
	Name           string  `json:"name"`
	Action         Action  `json:"action"`
	CurrentPercent float64 `json:"current_percent"`
	TargetPercent  float64 `json:"target_percent"`
	DiffPercent    float64 `json:"diff_percent"`
	CurrentValue   float64 `json:"current_value"`
	TargetValue    float64 `json:"target_value"`
	Amount         float64 `json:"amount"`
	Quantity       float64 `json:"quantity"`
	Price          float64 `json:"price"`
}

// CalculateRecommendations compares each holding's current share of total
// value to its target. Drift within thresholdPercent (inclusive) is a hold;
// otherwise the quantity is the rounded value gap divided by the current price.
// A symbol missing from target is treated as a 0% target.
func CalculateRecommendations(holdings []domain.Holding, target domain.AllocationMap, thresholdPercent float64) []Recommendation {
	total := 0.0
	for _, h := range holdings {
		total += h.Value()
	}

	recs := make([]Recommendation, 0, len(holdings))
	for _, h := range holdings {
		value := h.Value()
		currentPct := value / total * 100
		targetPct := target[h.Symbol]
		diff := targetPct - currentPct

		rec := Recommendation{
			Symbol:         h.Symbol,
			Name:           h.Name,
			Action:         ActionHold,
			CurrentPercent: currentPct,
			TargetPercent:  targetPct,
			DiffPercent:    diff,
			CurrentValue:   value,
			Price:          h.CurrentPrice,
		}

		if math.Abs(diff) <= thresholdPercent {
			rec.TargetValue = value
			recs = append(recs, rec)
			continue
		}

		targetValue := targetPct / 100 * total
		amountDiff := targetValue - value
		rec.TargetValue = targetValue
		rec.Amount = math.Abs(amountDiff)
		rec.Quantity = math.Round(math.Abs(amountDiff) / h.CurrentPrice)
		if amountDiff > 0 {
			rec.Action = ActionBuy
		} else {
			rec.Action = ActionSell
		}
		recs = append(recs, rec)
	}
	return recs
}
