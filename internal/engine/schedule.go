package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apperrors "lamf-engine/internal/errors"
	"lamf-engine/internal/models"
	"lamf-engine/internal/store"
)

var (
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
	one     = decimal.NewFromInt(1)
)

// ComputeEMI returns the fixed monthly installment for a reducing-balance
// loan: P*r*(1+r)^n / ((1+r)^n - 1), rounded to the paise. A zero rate
// degenerates to straight principal division.
func ComputeEMI(principal, annualRatePercent decimal.Decimal, tenureMonths int) decimal.Decimal {
	n := decimal.NewFromInt(int64(tenureMonths))
	if annualRatePercent.IsZero() {
		return principal.Div(n).Round(2)
	}
	r := annualRatePercent.Div(twelve).Div(hundred)
	pow := one.Add(r).Pow(n)
	emi := principal.Mul(r).Mul(pow).Div(pow.Sub(one))
	return emi.Round(2)
}

// GenerateSchedule produces the full amortization schedule for the given
// terms. Each period's interest is charged on the remaining principal and
// the rest of the EMI retires principal. The final installment absorbs
// rounding drift: its principal component is set to the remaining principal
// so the principal components sum exactly to the loan principal, while the
// EMI amount stays identical across all periods.
func GenerateSchedule(loanID string, principal, annualRatePercent decimal.Decimal, tenureMonths int, firstDueDate time.Time) ([]models.Installment, error) {
	if tenureMonths <= 0 {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidLoanTerms, "tenure must be positive, got %d", tenureMonths)
	}
	if annualRatePercent.IsNegative() {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidLoanTerms, "rate must not be negative, got %s", annualRatePercent)
	}
	if !principal.IsPositive() {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidLoanTerms, "principal must be positive, got %s", principal)
	}

	emi := ComputeEMI(principal, annualRatePercent, tenureMonths)
	monthlyRate := annualRatePercent.Div(twelve).Div(hundred)

	installments := make([]models.Installment, 0, tenureMonths)
	remaining := principal
	for i := 1; i <= tenureMonths; i++ {
		interest := remaining.Mul(monthlyRate)
		principalPart := emi.Sub(interest)
		if i == tenureMonths {
			// Last period absorbs residual drift.
			principalPart = remaining
			interest = emi.Sub(principalPart)
		}
		remaining = remaining.Sub(principalPart)

		installments = append(installments, models.Installment{
			ID:                 uuid.NewString(),
			LoanID:             loanID,
			Sequence:           i,
			DueDate:            firstDueDate.AddDate(0, i-1, 0),
			EMIAmount:          emi,
			PrincipalComponent: principalPart,
			InterestComponent:  interest,
			PaidAmount:         decimal.Zero,
		})
	}

	return installments, nil
}

// OriginationInput carries the terms for a new loan.
type OriginationInput struct {
	CustomerID   string
	ProductID    string
	Principal    decimal.Decimal
	AnnualRate   decimal.Decimal
	TenureMonths int
	DisbursedAt  time.Time
	FirstDueDate time.Time
}

// Originate creates a loan and its full schedule atomically. The last
// installment's due date becomes the loan's maturity date.
func (e *Engine) Originate(ctx context.Context, in OriginationInput) (*models.Loan, []models.Installment, error) {
	product, err := e.store.GetProduct(ctx, in.ProductID)
	if err != nil {
		return nil, nil, err
	}
	if product.MinTenureMonths > 0 && in.TenureMonths < product.MinTenureMonths {
		return nil, nil, apperrors.Wrapf(apperrors.ErrInvalidLoanTerms,
			"tenure %d below product minimum %d", in.TenureMonths, product.MinTenureMonths)
	}
	if product.MaxTenureMonths > 0 && in.TenureMonths > product.MaxTenureMonths {
		return nil, nil, apperrors.Wrapf(apperrors.ErrInvalidLoanTerms,
			"tenure %d above product maximum %d", in.TenureMonths, product.MaxTenureMonths)
	}

	loanID := uuid.NewString()
	installments, err := GenerateSchedule(loanID, in.Principal, in.AnnualRate, in.TenureMonths, in.FirstDueDate)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	loan := &models.Loan{
		ID:                   loanID,
		CustomerID:           in.CustomerID,
		ProductID:            in.ProductID,
		Principal:            in.Principal,
		AnnualRatePercent:    in.AnnualRate,
		TenureMonths:         in.TenureMonths,
		EMIAmount:            installments[0].EMIAmount,
		OutstandingPrincipal: in.Principal,
		OutstandingInterest:  decimal.Zero,
		TotalOutstanding:     in.Principal,
		DisbursedAt:          in.DisbursedAt,
		MaturityDate:         installments[len(installments)-1].DueDate,
		CurrentLTV:           decimal.Zero,
		Status:               models.LoanActive,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	err = e.store.Transact(ctx, func(ds store.DataStore) error {
		if err := ds.CreateLoan(ctx, loan); err != nil {
			return err
		}
		return ds.CreateInstallments(ctx, installments)
	})
	if err != nil {
		return nil, nil, err
	}

	e.logger.Info().
		Str("loan_id", loan.ID).
		Str("product_id", loan.ProductID).
		Str("emi", loan.EMIAmount.String()).
		Int("tenure", loan.TenureMonths).
		Msg("Loan originated")

	return loan, installments, nil
}
