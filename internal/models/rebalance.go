package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Urgency classifies how quickly a rebalancing need must be addressed.
type Urgency string

const (
	UrgencyCritical Urgency = "CRITICAL"
	UrgencyHigh     Urgency = "HIGH"
	UrgencyMedium   Urgency = "MEDIUM"
	UrgencyLow      Urgency = "LOW"
)

// Rank returns a sort key; lower is more urgent.
func (u Urgency) Rank() int {
	switch u {
	case UrgencyCritical:
		return 0
	case UrgencyHigh:
		return 1
	case UrgencyMedium:
		return 2
	default:
		return 3
	}
}

// ActionType identifies a suggested corrective action.
type ActionType string

const (
	ActionTopUp        ActionType = "TOP_UP"
	ActionPartialRepay ActionType = "PARTIAL_REPAY"
	ActionSwitch       ActionType = "SWITCH"
)

// SuggestedAction is one corrective option for an over-limit loan. Actions
// are independently computed and not mutually exclusive.
type SuggestedAction struct {
	Type        ActionType
	Amount      decimal.Decimal // zero for qualitative actions
	Description string
}

// RebalancingNeed is the advisor's assessment of a loan whose LTV exceeds
// its policy target.
type RebalancingNeed struct {
	LoanID                string
	CurrentLTV            decimal.Decimal
	TargetLTV             decimal.Decimal
	OutstandingAmount     decimal.Decimal
	CollateralValue       decimal.Decimal
	TargetCollateralValue decimal.Decimal
	Shortfall             decimal.Decimal
	Urgency               Urgency
	Actions               []SuggestedAction
	AssessedAt            time.Time
}
