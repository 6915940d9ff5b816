package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// LoanProduct holds the risk policy for a class of loans. It is read-only
// input to the engine.
type LoanProduct struct {
	ID                          string
	Name                        string
	MaxLTVPercent               decimal.Decimal
	MarginCallThresholdPercent  decimal.Decimal
	LiquidationThresholdPercent decimal.Decimal
	ForeclosurePenaltyPercent   decimal.Decimal
	PenaltyWaiverMonths         int
	MinTenureMonths             int
	MaxTenureMonths             int
}

// Validate checks the threshold ordering: max LTV < margin-call threshold
// < liquidation threshold.
func (p *LoanProduct) Validate() error {
	if p.MaxLTVPercent.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("product %s: max LTV must be positive", p.ID)
	}
	if !p.MaxLTVPercent.LessThan(p.MarginCallThresholdPercent) {
		return fmt.Errorf("product %s: max LTV (%s) must be below margin-call threshold (%s)",
			p.ID, p.MaxLTVPercent, p.MarginCallThresholdPercent)
	}
	if !p.MarginCallThresholdPercent.LessThan(p.LiquidationThresholdPercent) {
		return fmt.Errorf("product %s: margin-call threshold (%s) must be below liquidation threshold (%s)",
			p.ID, p.MarginCallThresholdPercent, p.LiquidationThresholdPercent)
	}
	return nil
}
