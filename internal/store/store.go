// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"lamf-engine/internal/models"
)

// DataStore defines the interface for loan-book persistence. Mutations to a
// single loan aggregate (loan + installments + margin calls + payments) are
// expected to run inside Transact so that they commit or roll back together.
type DataStore interface {
	// Loans
	CreateLoan(ctx context.Context, loan *models.Loan) error
	GetLoan(ctx context.Context, loanID string) (*models.Loan, error)
	UpdateLoan(ctx context.Context, loan *models.Loan) error
	ListActiveLoans(ctx context.Context) ([]models.Loan, error)

	// Installments
	CreateInstallments(ctx context.Context, installments []models.Installment) error
	ListInstallments(ctx context.Context, loanID string) ([]models.Installment, error)
	UpdateInstallment(ctx context.Context, installment *models.Installment) error

	// Collateral
	CreateCollateral(ctx context.Context, position *models.CollateralPosition) error
	GetCollateral(ctx context.Context, collateralID string) (*models.CollateralPosition, error)
	UpdateCollateral(ctx context.Context, position *models.CollateralPosition) error
	ListPledgedByLoan(ctx context.Context, loanID string) ([]models.CollateralPosition, error)
	ListPledged(ctx context.Context) ([]models.CollateralPosition, error)

	// Margin calls
	CreateMarginCall(ctx context.Context, call *models.MarginCall) error
	FindPendingMarginCall(ctx context.Context, loanID string) (*models.MarginCall, error)
	UpdateMarginCall(ctx context.Context, call *models.MarginCall) error
	ListPendingMarginCalls(ctx context.Context) ([]models.MarginCall, error)

	// Products
	CreateProduct(ctx context.Context, product *models.LoanProduct) error
	GetProduct(ctx context.Context, productID string) (*models.LoanProduct, error)

	// Payments (append-only ledger)
	AppendPayment(ctx context.Context, payment *models.Payment) error
	ListPayments(ctx context.Context, filter PaymentFilter) ([]models.Payment, error)

	// Transact runs fn against a transactional view of the store. All writes
	// made through the passed DataStore commit together or not at all.
	Transact(ctx context.Context, fn func(DataStore) error) error

	// Lifecycle
	Close() error
}

// PaymentFilter represents filters for querying the payment ledger.
type PaymentFilter struct {
	LoanID    string
	StartDate time.Time
	EndDate   time.Time
	Limit     int
}
