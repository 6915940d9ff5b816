package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PledgeStatus represents the pledge state of a collateral position.
type PledgeStatus string

const (
	PledgePledged    PledgeStatus = "PLEDGED"
	PledgeUnpledged  PledgeStatus = "UNPLEDGED"
	PledgeReleased   PledgeStatus = "RELEASED"
	PledgeLiquidated PledgeStatus = "LIQUIDATED"
)

// CollateralPosition is a mutual fund holding pledged against a loan.
// LoanID is empty for unpledged positions. CurrentValue is always
// Units × CurrentPrice; Revalue is the only mutation path.
type CollateralPosition struct {
	ID            string
	LoanID        string
	SchemeName    string
	FolioNumber   string
	Units         decimal.Decimal
	PurchasePrice decimal.Decimal
	CurrentPrice  decimal.Decimal
	CurrentValue  decimal.Decimal
	Status        PledgeStatus
	PledgedAt     *time.Time
	LastValuedAt  time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Revalue applies a new NAV and recomputes the position's value.
func (c *CollateralPosition) Revalue(newPrice decimal.Decimal) {
	now := time.Now()
	c.CurrentPrice = newPrice
	c.CurrentValue = c.Units.Mul(newPrice)
	c.LastValuedAt = now
	c.UpdatedAt = now
}

// IsPledged reports whether the position counts toward a loan's LTV.
func (c *CollateralPosition) IsPledged() bool {
	return c.Status == PledgePledged && c.LoanID != ""
}
