package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	apperrors "lamf-engine/internal/errors"
	"lamf-engine/internal/logging"
	"lamf-engine/internal/models"
)

// RebalanceReport aggregates a portfolio-wide rebalancing detection run.
type RebalanceReport struct {
	Needs          []models.RebalancingNeed
	TotalShortfall decimal.Decimal
	LoansChecked   int
	Failed         int
	Errors         []BatchError
	Duration       time.Duration
}

// Assess evaluates one loan against its product's LTV target. Returns nil
// when the loan is within target or carries no pledged collateral.
func (e *Engine) Assess(ctx context.Context, loanID string) (*models.RebalancingNeed, error) {
	loan, err := e.store.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	product, err := e.store.GetProduct(ctx, loan.ProductID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrProductNotFound) {
			return nil, apperrors.NewPolicyError(loan.ProductID, "no policy for loan "+loanID)
		}
		return nil, err
	}
	maxLTV := product.MaxLTVPercent
	if maxLTV.IsZero() {
		return nil, apperrors.NewPolicyError(loan.ProductID, "max LTV not set")
	}

	positions, err := e.store.ListPledgedByLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	collateralValue := decimal.Zero
	for i := range positions {
		collateralValue = collateralValue.Add(positions[i].CurrentValue)
	}
	if collateralValue.IsZero() {
		return nil, nil
	}

	ltv := loan.TotalOutstanding.Div(collateralValue).Mul(hundred)
	if ltv.LessThanOrEqual(maxLTV) {
		return nil, nil
	}

	targetCollateral := loan.TotalOutstanding.Mul(hundred).Div(maxLTV)
	shortfall := targetCollateral.Sub(collateralValue)
	if shortfall.IsNegative() {
		shortfall = decimal.Zero
	}

	need := &models.RebalancingNeed{
		LoanID:                loanID,
		CurrentLTV:            ltv,
		TargetLTV:             maxLTV,
		OutstandingAmount:     loan.TotalOutstanding,
		CollateralValue:       collateralValue,
		TargetCollateralValue: targetCollateral,
		Shortfall:             shortfall,
		Urgency:               e.classifyUrgency(ltv, product),
		AssessedAt:            time.Now(),
	}
	need.Actions = e.suggestActions(need)
	return need, nil
}

// classifyUrgency maps an LTV to urgency, first match wins: liquidation
// threshold, margin-call threshold, then the MEDIUM band above max LTV.
func (e *Engine) classifyUrgency(ltv decimal.Decimal, product *models.LoanProduct) models.Urgency {
	switch {
	case !product.LiquidationThresholdPercent.IsZero() && ltv.GreaterThanOrEqual(product.LiquidationThresholdPercent):
		return models.UrgencyCritical
	case !product.MarginCallThresholdPercent.IsZero() && ltv.GreaterThanOrEqual(product.MarginCallThresholdPercent):
		return models.UrgencyHigh
	case ltv.GreaterThanOrEqual(product.MaxLTVPercent.Add(decimal.NewFromFloat(e.policy.MediumUrgencyBandPercent))):
		return models.UrgencyMedium
	default:
		return models.UrgencyLow
	}
}

// suggestActions builds the corrective options for an over-limit loan.
// Actions are independently computed and not mutually exclusive.
func (e *Engine) suggestActions(need *models.RebalancingNeed) []models.SuggestedAction {
	var actions []models.SuggestedAction

	if need.Shortfall.IsPositive() {
		actions = append(actions, models.SuggestedAction{
			Type:   models.ActionTopUp,
			Amount: need.Shortfall.Round(2),
			Description: fmt.Sprintf("Pledge additional collateral worth %s to restore %s%% LTV",
				need.Shortfall.Round(2), need.TargetLTV),
		})
	}

	prepay := need.OutstandingAmount.Sub(need.CollateralValue.Mul(need.TargetLTV).Div(hundred))
	if prepay.IsPositive() {
		actions = append(actions, models.SuggestedAction{
			Type:   models.ActionPartialRepay,
			Amount: prepay.Round(2),
			Description: fmt.Sprintf("Prepay %s to bring the outstanding within %s%% of current collateral",
				prepay.Round(2), need.TargetLTV),
		})
	}

	if need.CollateralValue.IsPositive() {
		actions = append(actions, models.SuggestedAction{
			Type:        models.ActionSwitch,
			Amount:      decimal.Zero,
			Description: "Switch volatile schemes for lower-volatility funds with better collateral cover",
		})
	}

	return actions
}

// DetectAll assesses every ACTIVE loan and returns needs sorted most urgent
// first (ties broken by larger shortfall). A single loan's failure is
// recorded and does not stop the rest.
func (e *Engine) DetectAll(ctx context.Context) (*RebalanceReport, error) {
	start := time.Now()
	loans, err := e.store.ListActiveLoans(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, "listing active loans")
	}

	report := &RebalanceReport{TotalShortfall: decimal.Zero}
	var mu sync.Mutex

	e.forEachParallel(len(loans), func(i int) {
		loanID := loans[i].ID
		need, err := e.Assess(ctx, loanID)

		mu.Lock()
		defer mu.Unlock()
		report.LoansChecked++
		if err != nil {
			var policyErr *apperrors.PolicyError
			if !apperrors.As(err, &policyErr) {
				report.Failed++
				report.Errors = append(report.Errors, BatchError{ID: loanID, Err: err.Error()})
			}
			return
		}
		if need != nil {
			report.Needs = append(report.Needs, *need)
			report.TotalShortfall = report.TotalShortfall.Add(need.Shortfall)
		}
	})

	sort.SliceStable(report.Needs, func(i, j int) bool {
		a, b := report.Needs[i], report.Needs[j]
		if a.Urgency.Rank() != b.Urgency.Rank() {
			return a.Urgency.Rank() < b.Urgency.Rank()
		}
		return a.Shortfall.GreaterThan(b.Shortfall)
	})

	report.Duration = time.Since(start)
	logging.LogSweep(e.logger, "rebalance-detect", report.LoansChecked, report.Failed, report.Duration, nil)
	return report, nil
}
