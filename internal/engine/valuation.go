package engine

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	apperrors "lamf-engine/internal/errors"
	"lamf-engine/internal/logging"
	"lamf-engine/internal/models"
	"lamf-engine/internal/store"
)

// PriceFeed supplies a fresh NAV for a collateral position. Feeds return
// ok=false when they have no quote for the position, which leaves it
// untouched.
type PriceFeed interface {
	Price(position *models.CollateralPosition) (decimal.Decimal, bool)
}

// FluctuationFeed applies a uniform percentage move to every current NAV.
// It backs the daily NAV-update job when no external feed is wired.
type FluctuationFeed struct {
	Percent decimal.Decimal // e.g. -2.5 marks every NAV down 2.5%
}

// Price returns the position's current price shifted by the configured
// percentage.
func (f FluctuationFeed) Price(position *models.CollateralPosition) (decimal.Decimal, bool) {
	factor := one.Add(f.Percent.Div(hundred))
	return position.CurrentPrice.Mul(factor), true
}

// BatchResult aggregates a batch revaluation run.
type BatchResult struct {
	Processed int
	Failed    int
	Errors    []BatchError
	Duration  time.Duration
}

// Revalue applies a new NAV to one collateral position. The position's
// value is always units × price. When the position is pledged, the owning
// loan's LTV is rechecked; a recheck failure is logged, not propagated.
func (e *Engine) Revalue(ctx context.Context, collateralID string, newPrice decimal.Decimal) (*models.CollateralPosition, error) {
	if !newPrice.IsPositive() {
		return nil, apperrors.NewValidationError("price", newPrice.String(), "NAV must be positive")
	}

	position, err := e.store.GetCollateral(ctx, collateralID)
	if err != nil {
		return nil, err
	}

	position.Revalue(newPrice)
	if err := e.store.UpdateCollateral(ctx, position); err != nil {
		return nil, err
	}

	price, _ := newPrice.Float64()
	value, _ := position.CurrentValue.Float64()
	logging.LogRevaluation(e.logger, collateralID, price, value)

	// New collateral value feeds the risk engine.
	if position.IsPledged() {
		if _, rerr := e.RecomputeLTV(ctx, position.LoanID); rerr != nil {
			e.logger.Warn().Err(rerr).
				Str("loan_id", position.LoanID).
				Str("collateral_id", collateralID).
				Msg("Post-revaluation LTV recheck failed")
		}
	}

	return position, nil
}

// RevalueAll reprices every pledged position from the feed. Positions are
// processed independently: one failure is recorded and the rest continue.
// Loans touched by at least one successful revaluation get a single LTV
// recheck afterwards.
func (e *Engine) RevalueAll(ctx context.Context, feed PriceFeed) (*BatchResult, error) {
	start := time.Now()
	positions, err := e.store.ListPledged(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, "listing pledged positions")
	}

	result := &BatchResult{}
	touched := make(map[string]bool)
	var mu sync.Mutex

	e.forEachParallel(len(positions), func(i int) {
		position := positions[i]
		price, ok := feed.Price(&position)
		if !ok {
			return
		}

		var itemErr string
		if !price.IsPositive() {
			itemErr = "feed produced non-positive NAV"
		} else {
			position.Revalue(price)
			if err := e.store.UpdateCollateral(ctx, &position); err != nil {
				itemErr = err.Error()
			}
		}

		mu.Lock()
		defer mu.Unlock()
		if itemErr != "" {
			result.Failed++
			result.Errors = append(result.Errors, BatchError{ID: position.ID, Err: itemErr})
			return
		}
		result.Processed++
		if position.LoanID != "" {
			touched[position.LoanID] = true
		}
	})

	for loanID := range touched {
		if _, rerr := e.RecomputeLTV(ctx, loanID); rerr != nil {
			e.logger.Warn().Err(rerr).Str("loan_id", loanID).Msg("Post-revaluation LTV recheck failed")
		}
	}

	result.Duration = time.Since(start)
	logging.LogSweep(e.logger, "nav-update", result.Processed, result.Failed, result.Duration, nil)
	return result, nil
}

// Pledge links an unpledged position to a loan and recomputes the loan's
// LTV with the added cover.
func (e *Engine) Pledge(ctx context.Context, collateralID, loanID string) (*models.CollateralPosition, error) {
	var position *models.CollateralPosition
	err := e.withLoanLock(loanID, func() error {
		return e.store.Transact(ctx, func(ds store.DataStore) error {
			p, err := ds.GetCollateral(ctx, collateralID)
			if err != nil {
				return err
			}
			if p.Status != models.PledgeUnpledged {
				return apperrors.NewValidationError("status", string(p.Status), "only unpledged positions can be pledged")
			}
			if _, err := ds.GetLoan(ctx, loanID); err != nil {
				return err
			}

			now := time.Now()
			p.LoanID = loanID
			p.Status = models.PledgePledged
			p.PledgedAt = &now
			p.UpdatedAt = now
			if err := ds.UpdateCollateral(ctx, p); err != nil {
				return err
			}
			position = p
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if _, rerr := e.RecomputeLTV(ctx, loanID); rerr != nil {
		e.logger.Warn().Err(rerr).Str("loan_id", loanID).Msg("Post-pledge LTV recheck failed")
	}
	return position, nil
}
