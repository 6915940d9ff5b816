// Package models defines the core domain entities for loan servicing.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoanStatus represents the lifecycle status of a loan.
type LoanStatus string

const (
	LoanActive  LoanStatus = "ACTIVE"
	LoanClosed  LoanStatus = "CLOSED"
	LoanDefault LoanStatus = "DEFAULT"
	LoanNPA     LoanStatus = "NPA"
)

// Loan represents a loan against mutual fund collateral.
// TotalOutstanding is the authoritative balance used for LTV and payoff;
// it never goes below zero.
type Loan struct {
	ID                   string
	CustomerID           string
	ProductID            string
	Principal            decimal.Decimal
	AnnualRatePercent    decimal.Decimal
	TenureMonths         int
	EMIAmount            decimal.Decimal
	OutstandingPrincipal decimal.Decimal
	OutstandingInterest  decimal.Decimal
	TotalOutstanding     decimal.Decimal
	DisbursedAt          time.Time
	MaturityDate         time.Time
	CurrentLTV           decimal.Decimal
	Status               LoanStatus
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// ReduceOutstanding reduces the total outstanding by amount, floored at zero.
// Returns the amount actually absorbed.
func (l *Loan) ReduceOutstanding(amount decimal.Decimal) decimal.Decimal {
	absorbed := amount
	if absorbed.GreaterThan(l.TotalOutstanding) {
		absorbed = l.TotalOutstanding
	}
	l.TotalOutstanding = l.TotalOutstanding.Sub(amount)
	if l.TotalOutstanding.IsNegative() {
		l.TotalOutstanding = decimal.Zero
	}
	l.UpdatedAt = time.Now()
	return absorbed
}

// AgeInMonths returns the number of whole months elapsed since disbursement.
func (l *Loan) AgeInMonths(asOf time.Time) int {
	if asOf.Before(l.DisbursedAt) {
		return 0
	}
	months := (asOf.Year()-l.DisbursedAt.Year())*12 + int(asOf.Month()) - int(l.DisbursedAt.Month())
	if asOf.Day() < l.DisbursedAt.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

// IsSettled reports whether the loan carries no outstanding balance.
func (l *Loan) IsSettled() bool {
	return l.TotalOutstanding.LessThanOrEqual(decimal.Zero)
}

// InstallmentStatus is derived from paid amount vs EMI amount.
type InstallmentStatus string

const (
	InstallmentPending       InstallmentStatus = "PENDING"
	InstallmentPartiallyPaid InstallmentStatus = "PARTIALLY_PAID"
	InstallmentPaid          InstallmentStatus = "PAID"
)

// Installment is one period of a loan's amortization schedule.
// All installments for a loan are created together at origination and are
// mutated only by payment allocation.
type Installment struct {
	ID                 string
	LoanID             string
	Sequence           int // 1..tenure, ordering key
	DueDate            time.Time
	EMIAmount          decimal.Decimal
	PrincipalComponent decimal.Decimal
	InterestComponent  decimal.Decimal
	PaidAmount         decimal.Decimal
	PaidDate           *time.Time
}

// Status derives the three-state installment status from the paid amount.
func (i *Installment) Status() InstallmentStatus {
	switch {
	case i.PaidAmount.GreaterThanOrEqual(i.EMIAmount):
		return InstallmentPaid
	case i.PaidAmount.IsPositive():
		return InstallmentPartiallyPaid
	default:
		return InstallmentPending
	}
}

// Due returns the unpaid remainder of this installment.
func (i *Installment) Due() decimal.Decimal {
	due := i.EMIAmount.Sub(i.PaidAmount)
	if due.IsNegative() {
		return decimal.Zero
	}
	return due
}
