package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment is one row of the append-only payment ledger. Rows are never
// mutated after creation.
type Payment struct {
	ID          string
	LoanID      string
	Amount      decimal.Decimal
	PaymentDate time.Time
	Mode        string // "UPI", "NETBANKING", "NACH", "MANUAL"
	Reference   string
	CreatedAt   time.Time
}

// NewPayment creates a ledger row for an incoming payment.
func NewPayment(loanID string, amount decimal.Decimal, paymentDate time.Time, mode, reference string) *Payment {
	return &Payment{
		ID:          uuid.NewString(),
		LoanID:      loanID,
		Amount:      amount,
		PaymentDate: paymentDate,
		Mode:        mode,
		Reference:   reference,
		CreatedAt:   time.Now(),
	}
}
