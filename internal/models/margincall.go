package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MarginCallStatus represents the state of a margin call.
type MarginCallStatus string

const (
	MarginCallPending   MarginCallStatus = "PENDING"
	MarginCallResolved  MarginCallStatus = "RESOLVED"
	MarginCallEscalated MarginCallStatus = "ESCALATED"
)

// MarginCall is raised when a loan's LTV breaches the margin-call threshold.
// At most one PENDING margin call may exist per loan at any time.
type MarginCall struct {
	ID              string
	LoanID          string
	TriggerLTV      decimal.Decimal // the threshold that was breached
	DetectedLTV     decimal.Decimal // LTV at detection time
	ShortfallAmount decimal.Decimal
	Status          MarginCallStatus
	DueDate         time.Time
	CreatedAt       time.Time
	ResolvedAt      *time.Time
	EscalatedAt     *time.Time
}

// NewMarginCall creates a PENDING margin call with the given grace window.
func NewMarginCall(loanID string, triggerLTV, detectedLTV, shortfall decimal.Decimal, graceDays int) *MarginCall {
	now := time.Now()
	return &MarginCall{
		ID:              uuid.NewString(),
		LoanID:          loanID,
		TriggerLTV:      triggerLTV,
		DetectedLTV:     detectedLTV,
		ShortfallAmount: shortfall,
		Status:          MarginCallPending,
		DueDate:         now.AddDate(0, 0, graceDays),
		CreatedAt:       now,
	}
}

// Resolve marks the margin call as cured.
func (m *MarginCall) Resolve() {
	now := time.Now()
	m.Status = MarginCallResolved
	m.ResolvedAt = &now
}

// Escalate marks the margin call as escalated after the grace window.
func (m *MarginCall) Escalate() {
	now := time.Now()
	m.Status = MarginCallEscalated
	m.EscalatedAt = &now
}

// IsOverdue reports whether the grace period has elapsed without resolution.
func (m *MarginCall) IsOverdue(asOf time.Time) bool {
	return m.Status == MarginCallPending && asOf.After(m.DueDate)
}
