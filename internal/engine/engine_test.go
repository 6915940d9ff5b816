package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"lamf-engine/internal/config"
	"lamf-engine/internal/models"
)

func newTestEngine(ms *memStore) *Engine {
	cfg := &config.Config{
		Engine: config.EngineConfig{
			SweepWorkers:  4,
			DayCountBasis: 365,
		},
		Policy: config.PolicyConfig{
			MarginCallGraceDays:      3,
			PenaltyTaxPercent:        18.0,
			PenaltyWaiverMonths:      12,
			MediumUrgencyBandPercent: 5.0,
		},
	}
	return New(ms, nil, cfg, zerolog.Nop())
}

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

// standardProduct mirrors a typical LAMF product: 50% max LTV, margin call
// at 65%, liquidation at 80%.
func standardProduct() *models.LoanProduct {
	return &models.LoanProduct{
		ID:                          "lamf-std",
		Name:                        "LAMF Standard",
		MaxLTVPercent:               d("50"),
		MarginCallThresholdPercent:  d("65"),
		LiquidationThresholdPercent: d("80"),
		ForeclosurePenaltyPercent:   d("2"),
		PenaltyWaiverMonths:         12,
	}
}

// seedLoan creates an active loan with a generated schedule in the store.
func seedLoan(ms *memStore, id string, principal, rate string, tenure int, disbursed time.Time) *models.Loan {
	installments, err := GenerateSchedule(id, d(principal), d(rate), tenure, disbursed.AddDate(0, 1, 0))
	if err != nil {
		panic(err)
	}
	loan := &models.Loan{
		ID:                   id,
		CustomerID:           "cust-" + id,
		ProductID:            "lamf-std",
		Principal:            d(principal),
		AnnualRatePercent:    d(rate),
		TenureMonths:         tenure,
		EMIAmount:            installments[0].EMIAmount,
		OutstandingPrincipal: d(principal),
		OutstandingInterest:  decimal.Zero,
		TotalOutstanding:     d(principal),
		DisbursedAt:          disbursed,
		MaturityDate:         installments[len(installments)-1].DueDate,
		Status:               models.LoanActive,
		CreatedAt:            disbursed,
		UpdatedAt:            disbursed,
	}
	ctx := context.Background()
	ms.CreateLoan(ctx, loan)
	ms.CreateInstallments(ctx, installments)
	return loan
}

// seedCollateral pledges a position worth units × price to a loan.
func seedCollateral(ms *memStore, id, loanID string, units, price string) *models.CollateralPosition {
	now := time.Now()
	position := &models.CollateralPosition{
		ID:           id,
		LoanID:       loanID,
		SchemeName:   "HDFC Flexi Cap Growth",
		FolioNumber:  "12345678/90",
		Units:        d(units),
		CurrentPrice: d(price),
		CurrentValue: d(units).Mul(d(price)),
		Status:       models.PledgePledged,
		PledgedAt:    &now,
		LastValuedAt: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	ms.CreateCollateral(context.Background(), position)
	return position
}
