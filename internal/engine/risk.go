package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	apperrors "lamf-engine/internal/errors"
	"lamf-engine/internal/logging"
	"lamf-engine/internal/models"
	"lamf-engine/internal/notify"
	"lamf-engine/internal/store"
)

// LTVResult is the outcome of a single loan's LTV recomputation.
type LTVResult struct {
	LoanID           string
	LTV              decimal.Decimal
	CollateralValue  decimal.Decimal
	TotalOutstanding decimal.Decimal
	MarginCallRaised bool
	MarginCall       *models.MarginCall
	Skipped          bool // no pledged collateral, nothing recomputed
}

// SweepSummary aggregates a portfolio-wide risk sweep.
type SweepSummary struct {
	LoansChecked      int
	MarginCallsRaised int
	Skipped           int
	Failed            int
	Errors            []BatchError
	Duration          time.Duration
}

// RecomputeLTV recomputes a loan's LTV from its pledged collateral and
// raises a margin call when the margin-call threshold is breached
// (inclusive). A loan that already has a PENDING margin call never gets a
// second one, so repeated sweeps are idempotent. Loans with no pledged
// collateral are skipped untouched.
func (e *Engine) RecomputeLTV(ctx context.Context, loanID string) (*LTVResult, error) {
	var result *LTVResult
	var raised *models.MarginCall
	var threshold decimal.Decimal

	err := e.withLoanLock(loanID, func() error {
		return e.store.Transact(ctx, func(ds store.DataStore) error {
			loan, err := ds.GetLoan(ctx, loanID)
			if err != nil {
				return err
			}

			product, err := ds.GetProduct(ctx, loan.ProductID)
			if err != nil {
				if apperrors.Is(err, apperrors.ErrProductNotFound) {
					return apperrors.NewPolicyError(loan.ProductID, "no policy for loan "+loanID)
				}
				return err
			}
			threshold = product.MarginCallThresholdPercent
			if threshold.IsZero() {
				return apperrors.NewPolicyError(loan.ProductID, "margin-call threshold not set")
			}

			positions, err := ds.ListPledgedByLoan(ctx, loanID)
			if err != nil {
				return err
			}

			collateralValue := decimal.Zero
			for i := range positions {
				collateralValue = collateralValue.Add(positions[i].CurrentValue)
			}
			if collateralValue.IsZero() {
				result = &LTVResult{LoanID: loanID, Skipped: true}
				return nil
			}

			ltv := loan.TotalOutstanding.Div(collateralValue).Mul(hundred)
			loan.CurrentLTV = ltv
			if err := ds.UpdateLoan(ctx, loan); err != nil {
				return err
			}

			result = &LTVResult{
				LoanID:           loanID,
				LTV:              ltv,
				CollateralValue:  collateralValue,
				TotalOutstanding: loan.TotalOutstanding,
			}

			if ltv.GreaterThanOrEqual(threshold) {
				existing, err := ds.FindPendingMarginCall(ctx, loanID)
				if err != nil {
					return err
				}
				if existing != nil {
					result.MarginCall = existing
					return nil
				}

				shortfall := loan.TotalOutstanding.Sub(threshold.Div(hundred).Mul(collateralValue))
				if shortfall.IsNegative() {
					shortfall = decimal.Zero
				}
				call := models.NewMarginCall(loanID, threshold, ltv, shortfall, e.policy.MarginCallGraceDays)
				if err := ds.CreateMarginCall(ctx, call); err != nil {
					return err
				}
				result.MarginCallRaised = true
				result.MarginCall = call
				raised = call
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if raised != nil {
		ltv, _ := raised.DetectedLTV.Float64()
		th, _ := threshold.Float64()
		sf, _ := raised.ShortfallAmount.Float64()
		logging.LogMarginCall(e.logger, loanID, ltv, th, sf)

		msg := fmt.Sprintf("LTV %s breached threshold %s; shortfall %s due by %s",
			raised.DetectedLTV.Round(2), threshold.Round(2),
			raised.ShortfallAmount.Round(2), raised.DueDate.Format("02-Jan-2006"))
		if nerr := e.notifier.Notify(ctx, loanID, notify.KindMarginCall, msg); nerr != nil {
			e.logger.Warn().Err(nerr).Str("loan_id", loanID).Msg("Failed to send margin-call notification")
		}
	}

	return result, nil
}

// SweepAll recomputes LTV for every ACTIVE loan. Loans with missing policy
// are skipped; one loan's failure never aborts the sweep.
func (e *Engine) SweepAll(ctx context.Context) (*SweepSummary, error) {
	start := time.Now()
	loans, err := e.store.ListActiveLoans(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, "listing active loans")
	}

	summary := &SweepSummary{}
	var mu sync.Mutex

	e.forEachParallel(len(loans), func(i int) {
		loanID := loans[i].ID
		res, err := e.RecomputeLTV(ctx, loanID)

		mu.Lock()
		defer mu.Unlock()
		summary.LoansChecked++
		switch {
		case err != nil:
			var policyErr *apperrors.PolicyError
			if apperrors.As(err, &policyErr) {
				summary.Skipped++
			} else {
				summary.Failed++
				summary.Errors = append(summary.Errors, BatchError{ID: loanID, Err: err.Error()})
			}
		case res.Skipped:
			summary.Skipped++
		case res.MarginCallRaised:
			summary.MarginCallsRaised++
		}
	})

	summary.Duration = time.Since(start)
	logging.LogSweep(e.logger, "risk-sweep", summary.LoansChecked, summary.Failed, summary.Duration, nil)
	return summary, nil
}

// EscalateOverdue moves PENDING margin calls whose grace window has elapsed
// to ESCALATED and notifies the external channel. Returns the number of
// escalations.
func (e *Engine) EscalateOverdue(ctx context.Context, asOf time.Time) (int, []BatchError, error) {
	calls, err := e.store.ListPendingMarginCalls(ctx)
	if err != nil {
		return 0, nil, apperrors.Wrap(err, "listing pending margin calls")
	}

	escalated := 0
	var batchErrs []BatchError
	for i := range calls {
		call := calls[i]
		if !call.IsOverdue(asOf) {
			continue
		}

		err := e.withLoanLock(call.LoanID, func() error {
			return e.store.Transact(ctx, func(ds store.DataStore) error {
				call.Escalate()
				return ds.UpdateMarginCall(ctx, &call)
			})
		})
		if err != nil {
			batchErrs = append(batchErrs, BatchError{ID: call.ID, Err: err.Error()})
			continue
		}
		escalated++

		msg := fmt.Sprintf("margin call %s unresolved past due date %s", call.ID, call.DueDate.Format("02-Jan-2006"))
		if nerr := e.notifier.Notify(ctx, call.LoanID, notify.KindMarginCallDue, msg); nerr != nil {
			e.logger.Warn().Err(nerr).Str("loan_id", call.LoanID).Msg("Failed to send escalation notification")
		}
	}

	return escalated, batchErrs, nil
}

// ResolveMarginCall marks a loan's PENDING margin call as cured. Resolution
// is an explicit operator action; sweeps never auto-resolve.
func (e *Engine) ResolveMarginCall(ctx context.Context, loanID string) (*models.MarginCall, error) {
	var resolved *models.MarginCall
	err := e.withLoanLock(loanID, func() error {
		return e.store.Transact(ctx, func(ds store.DataStore) error {
			call, err := ds.FindPendingMarginCall(ctx, loanID)
			if err != nil {
				return err
			}
			if call == nil {
				return apperrors.NewNotFoundError("pending margin call", loanID, nil)
			}
			call.Resolve()
			if err := ds.UpdateMarginCall(ctx, call); err != nil {
				return err
			}
			resolved = call
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info().
		Str("loan_id", loanID).
		Str("margin_call_id", resolved.ID).
		Msg("Margin call resolved")
	return resolved, nil
}
