package rebalancing

import (
	"time"

	"github.com/fingenie/quantcore/internal/domain"
)

// RebalancingPlan is a snapshot of where the portfolio is, where it should be,
// and what moving there costs in tax.
type RebalancingPlan struct {
	CurrentAllocation domain.AllocationMap `json:"current_allocation"`
	TargetAllocation  domain.AllocationMap `json:"target_allocation"`
	Recommendations   []Recommendation     `json:"recommendations"`
	TaxImplications   []TaxImplication     `json:"tax_implications"`
	TotalTaxLiability float64              `json:"total_tax_liability"`
}

// GeneratePlan builds a plan for holdings against an already derived target.
func GeneratePlan(holdings []domain.Holding, target domain.AllocationMap, thresholdPercent float64, asOf time.Time) RebalancingPlan {
	recs := CalculateRecommendations(holdings, target, thresholdPercent)
	taxes := CalculateTaxImplications(holdings, recs, asOf)
	return RebalancingPlan{
		CurrentAllocation: CurrentAllocation(holdings),
		TargetAllocation:  target,
		Recommendations:   recs,
		TaxImplications:   taxes,
		TotalTaxLiability: TotalTaxLiability(taxes),
	}
}

// PlanStatus tracks what happened to a stored plan
type PlanStatus string

const (
	StatusPending  PlanStatus = "pending"
	StatusApplied  PlanStatus = "applied"
	StatusRejected PlanStatus = "rejected"
)

// ParsePlanStatus validates a status name
func ParsePlanStatus(s string) (PlanStatus, bool) {
	switch PlanStatus(s) {
	case StatusPending, StatusApplied, StatusRejected:
		return PlanStatus(s), true
	}
	return "", false
}

// CanTransition reports whether a plan may move from one status to another.
// Only pending plans change, and only to applied or rejected.
func CanTransition(from, to PlanStatus) bool {
	return from == StatusPending && (to == StatusApplied || to == StatusRejected)
}

// StoredPlan is a persisted plan with its lifecycle fields
type StoredPlan struct {
	ID               string          `json:"id"`
	Strategy         Strategy        `json:"strategy"`
	Status           PlanStatus      `json:"status"`
	ThresholdPercent float64         `json:"threshold_percent"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	Plan             RebalancingPlan `json:"plan"`
}
