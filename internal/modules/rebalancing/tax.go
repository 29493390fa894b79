package rebalancing

import (
	"math"
	"time"

	"github.com/fingenie/quantcore/internal/domain"
	"github.com/shopspring/decimal"
)

// GainType classifies a capital gain by holding period
type GainType string

const (
	GainShortTerm GainType = "short_term"
	GainLongTerm  GainType = "long_term"
)

// Indian equity capital-gains parameters
const (
	// AssumedHoldingPeriodDays applies when a holding has no acquisition date.
	AssumedHoldingPeriodDays = 365
	// LongTermThresholdDays: periods strictly above this are long term.
	LongTermThresholdDays = 365
	LongTermExemption     = 100000.0
	LongTermRate          = 0.10
	ShortTermRate         = 0.15
)

var (
	decLongTermExemption = decimal.NewFromFloat(LongTermExemption)
	decLongTermRate      = decimal.NewFromFloat(LongTermRate)
	decShortTermRate     = decimal.NewFromFloat(ShortTermRate)
)

// TaxImplication is the estimated tax on one sell leg
type TaxImplication struct {
	Symbol            string   `json:"symbol"`
	Quantity          float64  `json:"quantity"`
	BuyPrice          float64  `json:"buy_price"`
	SellPrice         float64  `json:"sell_price"`
	CapitalGains      float64  `json:"capital_gains"`
	HoldingPeriodDays int      `json:"holding_period_days"`
	GainType          GainType `json:"gain_type"`
	TaxRate           float64  `json:"tax_rate"`
	EstimatedTax      float64  `json:"estimated_tax"`
}

// CalculateTaxImplications estimates tax for every sell recommendation.
// The holding period is measured from AcquiredAt to asOf when the holding
// carries a date, otherwise AssumedHoldingPeriodDays is used. Estimated tax
// is rounded to paise and never negative.
func CalculateTaxImplications(holdings []domain.Holding, recs []Recommendation, asOf time.Time) []TaxImplication {
	bySymbol := make(map[string]domain.Holding, len(holdings))
	for _, h := range holdings {
		bySymbol[h.Symbol] = h
	}

	out := make([]TaxImplication, 0)
	for _, rec := range recs {
		if rec.Action != ActionSell {
			continue
		}
		h, ok := bySymbol[rec.Symbol]
		if !ok {
			continue
		}

		period := holdingPeriodDays(h, asOf)
		gainType := GainShortTerm
		rate := ShortTermRate
		if period > LongTermThresholdDays {
			gainType = GainLongTerm
			rate = LongTermRate
		}

		gains, tax := estimateTax(h.CurrentPrice, h.BuyPrice, rec.Quantity, gainType)
		out = append(out, TaxImplication{
			Symbol:            rec.Symbol,
			Quantity:          rec.Quantity,
			BuyPrice:          h.BuyPrice,
			SellPrice:         h.CurrentPrice,
			CapitalGains:      gains,
			HoldingPeriodDays: period,
			GainType:          gainType,
			TaxRate:           rate,
			EstimatedTax:      tax,
		})
	}
	return out
}

// TotalTaxLiability sums estimated tax across sell legs
func TotalTaxLiability(implications []TaxImplication) float64 {
	total := decimal.Zero
	floatTotal := 0.0
	exact := true
	for _, ti := range implications {
		floatTotal += ti.EstimatedTax
		if !isFinite(ti.EstimatedTax) {
			exact = false
			continue
		}
		total = total.Add(decimal.NewFromFloat(ti.EstimatedTax))
	}
	if !exact {
		return floatTotal
	}
	return total.InexactFloat64()
}

func holdingPeriodDays(h domain.Holding, asOf time.Time) int {
	if h.AcquiredAt == nil || h.AcquiredAt.IsZero() {
		return AssumedHoldingPeriodDays
	}
	days := int(asOf.Sub(*h.AcquiredAt).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// estimateTax computes gains and tax in decimal. Non-finite inputs cannot be
// represented as decimals and are carried through in float64 instead.
func estimateTax(sellPrice, buyPrice, quantity float64, gainType GainType) (gains, tax float64) {
	if !isFinite(sellPrice) || !isFinite(buyPrice) || !isFinite(quantity) {
		gains = (sellPrice - buyPrice) * quantity
		if gainType == GainLongTerm {
			tax = (gains - LongTermExemption) * LongTermRate
		} else {
			tax = gains * ShortTermRate
		}
		if tax < 0 {
			tax = 0
		}
		return gains, tax
	}

	decGains := decimal.NewFromFloat(sellPrice).
		Sub(decimal.NewFromFloat(buyPrice)).
		Mul(decimal.NewFromFloat(quantity))

	var decTax decimal.Decimal
	if gainType == GainLongTerm {
		decTax = decGains.Sub(decLongTermExemption).Mul(decLongTermRate)
	} else {
		decTax = decGains.Mul(decShortTermRate)
	}
	if decTax.IsNegative() {
		decTax = decimal.Zero
	}

	return decGains.InexactFloat64(), decTax.Round(2).InexactFloat64()
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
