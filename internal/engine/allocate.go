package engine

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	apperrors "lamf-engine/internal/errors"
	"lamf-engine/internal/logging"
	"lamf-engine/internal/models"
	"lamf-engine/internal/notify"
	"lamf-engine/internal/store"
)

// AllocationResult describes the effect of one payment on a loan.
type AllocationResult struct {
	Loan                *models.Loan
	Payment             *models.Payment
	UpdatedInstallments []models.Installment
	Applied             decimal.Decimal // amount consumed by the waterfall
	Unapplied           decimal.Decimal // left over after every installment is paid
}

// Allocate applies an incoming payment across the loan's outstanding
// installments, oldest due first. Full installments are marked paid;
// the first installment that cannot be fully covered receives a partial
// payment and the waterfall stops. The loan's total outstanding is reduced
// by the full payment amount, floored at zero. All writes (installments,
// loan balance, ledger row) happen inside one transaction, serialized per
// loan.
func (e *Engine) Allocate(ctx context.Context, loanID string, amount decimal.Decimal, paymentDate time.Time, mode, reference string) (*AllocationResult, error) {
	if !amount.IsPositive() {
		return nil, apperrors.ErrInvalidPaymentAmount
	}

	var result *AllocationResult
	err := e.withLoanLock(loanID, func() error {
		return e.store.Transact(ctx, func(ds store.DataStore) error {
			loan, err := ds.GetLoan(ctx, loanID)
			if err != nil {
				return err
			}

			installments, err := ds.ListInstallments(ctx, loanID)
			if err != nil {
				return err
			}

			payment := models.NewPayment(loanID, amount, paymentDate, mode, reference)
			res := &AllocationResult{Loan: loan, Payment: payment}

			remaining := amount
			for i := range installments {
				if remaining.IsZero() {
					break
				}
				inst := &installments[i]
				due := inst.Due()
				if due.IsZero() {
					continue
				}

				if remaining.GreaterThanOrEqual(due) {
					inst.PaidAmount = inst.EMIAmount
					pd := paymentDate
					inst.PaidDate = &pd
					remaining = remaining.Sub(due)
				} else {
					inst.PaidAmount = inst.PaidAmount.Add(remaining)
					remaining = decimal.Zero
				}

				if err := ds.UpdateInstallment(ctx, inst); err != nil {
					return err
				}
				res.UpdatedInstallments = append(res.UpdatedInstallments, *inst)
			}

			res.Applied = amount.Sub(remaining)
			res.Unapplied = remaining

			loan.ReduceOutstanding(amount)
			if loan.IsSettled() && loan.Status == models.LoanActive {
				loan.Status = models.LoanClosed
			}
			if err := ds.UpdateLoan(ctx, loan); err != nil {
				return err
			}

			if err := ds.AppendPayment(ctx, payment); err != nil {
				return err
			}

			result = res
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	outstanding, _ := result.Loan.TotalOutstanding.Float64()
	amt, _ := amount.Float64()
	logging.LogAllocation(e.logger, loanID, amt, outstanding, len(result.UpdatedInstallments))

	if result.Loan.Status == models.LoanClosed {
		if nerr := e.notifier.Notify(ctx, loanID, notify.KindLoanClosed, "loan fully repaid"); nerr != nil {
			e.logger.Warn().Err(nerr).Str("loan_id", loanID).Msg("Failed to send loan-closed notification")
		}
	}

	// New outstanding balance feeds the risk engine.
	if result.Loan.Status == models.LoanActive {
		if _, rerr := e.RecomputeLTV(ctx, loanID); rerr != nil {
			e.logger.Warn().Err(rerr).Str("loan_id", loanID).Msg("Post-payment LTV recheck failed")
		}
	}

	return result, nil
}
