package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lamf-engine/internal/models"
)

func TestRecomputeLTV_BelowThreshold(t *testing.T) {
	ms := newMemStore()
	ms.CreateProduct(context.Background(), standardProduct())
	seedLoan(ms, "loan-1", "500000", "10.5", 24, time.Now())
	seedCollateral(ms, "col-1", "loan-1", "10000", "100") // value 10,00,000 → LTV 50%
	eng := newTestEngine(ms)

	result, err := eng.RecomputeLTV(context.Background(), "loan-1")
	require.NoError(t, err)

	assert.False(t, result.Skipped)
	assert.True(t, result.LTV.Equal(d("50")))
	assert.False(t, result.MarginCallRaised)
	assert.Nil(t, result.MarginCall)

	// LTV is persisted on the loan.
	loan, _ := ms.GetLoan(context.Background(), "loan-1")
	assert.True(t, loan.CurrentLTV.Equal(d("50")))
}

func TestRecomputeLTV_ThresholdInclusive(t *testing.T) {
	ms := newMemStore()
	ms.CreateProduct(context.Background(), standardProduct())
	seedLoan(ms, "loan-1", "650000", "10.5", 24, time.Now())
	seedCollateral(ms, "col-1", "loan-1", "10000", "100") // LTV exactly 65%
	eng := newTestEngine(ms)

	result, err := eng.RecomputeLTV(context.Background(), "loan-1")
	require.NoError(t, err)

	// Breach is inclusive: LTV equal to the threshold raises a call.
	assert.True(t, result.LTV.Equal(d("65")))
	assert.True(t, result.MarginCallRaised)
	require.NotNil(t, result.MarginCall)
	assert.Equal(t, models.MarginCallPending, result.MarginCall.Status)

	// Shortfall brings the loan back to the threshold exactly:
	// 650000 - 0.65×1000000 = 0.
	assert.True(t, result.MarginCall.ShortfallAmount.IsZero())
}

func TestRecomputeLTV_ShortfallAboveThreshold(t *testing.T) {
	ms := newMemStore()
	ms.CreateProduct(context.Background(), standardProduct())
	seedLoan(ms, "loan-1", "700000", "10.5", 24, time.Now())
	seedCollateral(ms, "col-1", "loan-1", "10000", "100") // LTV 70%
	eng := newTestEngine(ms)

	result, err := eng.RecomputeLTV(context.Background(), "loan-1")
	require.NoError(t, err)

	require.NotNil(t, result.MarginCall)
	// 700000 - 0.65×1000000 = 50000
	assert.True(t, result.MarginCall.ShortfallAmount.Equal(d("50000")),
		"shortfall was %s", result.MarginCall.ShortfallAmount)

	// Grace window from policy (3 days).
	due := result.MarginCall.DueDate
	expected := result.MarginCall.CreatedAt.AddDate(0, 0, 3)
	assert.WithinDuration(t, expected, due, time.Second)
}

func TestRecomputeLTV_IdempotentMarginCall(t *testing.T) {
	ms := newMemStore()
	ms.CreateProduct(context.Background(), standardProduct())
	seedLoan(ms, "loan-1", "700000", "10.5", 24, time.Now())
	seedCollateral(ms, "col-1", "loan-1", "10000", "100")
	eng := newTestEngine(ms)

	first, err := eng.RecomputeLTV(context.Background(), "loan-1")
	require.NoError(t, err)
	require.True(t, first.MarginCallRaised)

	// Second sweep over the same breach returns the existing call without
	// raising a new one.
	second, err := eng.RecomputeLTV(context.Background(), "loan-1")
	require.NoError(t, err)
	assert.False(t, second.MarginCallRaised)
	require.NotNil(t, second.MarginCall)
	assert.Equal(t, first.MarginCall.ID, second.MarginCall.ID)

	assert.Len(t, ms.marginCalls, 1)
}

func TestRecomputeLTV_NewCallAfterResolution(t *testing.T) {
	ms := newMemStore()
	ms.CreateProduct(context.Background(), standardProduct())
	seedLoan(ms, "loan-1", "700000", "10.5", 24, time.Now())
	seedCollateral(ms, "col-1", "loan-1", "10000", "100")
	eng := newTestEngine(ms)

	_, err := eng.RecomputeLTV(context.Background(), "loan-1")
	require.NoError(t, err)

	_, err = eng.ResolveMarginCall(context.Background(), "loan-1")
	require.NoError(t, err)

	// A fresh breach after resolution raises a new call.
	result, err := eng.RecomputeLTV(context.Background(), "loan-1")
	require.NoError(t, err)
	assert.True(t, result.MarginCallRaised)
	assert.Len(t, ms.marginCalls, 2)
}

func TestRecomputeLTV_NoCollateralSkips(t *testing.T) {
	ms := newMemStore()
	ms.CreateProduct(context.Background(), standardProduct())
	seedLoan(ms, "loan-1", "500000", "10.5", 24, time.Now())
	eng := newTestEngine(ms)

	result, err := eng.RecomputeLTV(context.Background(), "loan-1")
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.False(t, result.MarginCallRaised)
}

func TestSweepAll_FailOpen(t *testing.T) {
	ms := newMemStore()
	ms.CreateProduct(context.Background(), standardProduct())

	// Healthy loan below threshold.
	seedLoan(ms, "loan-ok", "400000", "10.5", 24, time.Now())
	seedCollateral(ms, "col-ok", "loan-ok", "10000", "100")

	// Breaching loan.
	seedLoan(ms, "loan-breach", "900000", "10.5", 24, time.Now())
	seedCollateral(ms, "col-breach", "loan-breach", "10000", "100")

	// Loan with a product nobody configured: skipped, not fatal.
	orphan := seedLoan(ms, "loan-orphan", "100000", "10.5", 24, time.Now())
	orphan.ProductID = "missing-product"
	ms.UpdateLoan(context.Background(), orphan)
	seedCollateral(ms, "col-orphan", "loan-orphan", "1000", "100")

	eng := newTestEngine(ms)

	summary, err := eng.SweepAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.LoansChecked)
	assert.Equal(t, 1, summary.MarginCallsRaised)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, summary.Failed)
}

func TestEscalateOverdue(t *testing.T) {
	ms := newMemStore()
	ms.CreateProduct(context.Background(), standardProduct())
	seedLoan(ms, "loan-1", "700000", "10.5", 24, time.Now())
	seedCollateral(ms, "col-1", "loan-1", "10000", "100")
	eng := newTestEngine(ms)

	result, err := eng.RecomputeLTV(context.Background(), "loan-1")
	require.NoError(t, err)
	require.NotNil(t, result.MarginCall)

	// Within the grace window nothing escalates.
	escalated, _, err := eng.EscalateOverdue(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, escalated)

	// Past the due date the call escalates.
	escalated, _, err = eng.EscalateOverdue(context.Background(), result.MarginCall.DueDate.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, escalated)

	call := ms.marginCalls[result.MarginCall.ID]
	assert.Equal(t, models.MarginCallEscalated, call.Status)
	require.NotNil(t, call.EscalatedAt)

	// Escalation is terminal for this call; a rerun finds nothing pending.
	escalated, _, err = eng.EscalateOverdue(context.Background(), result.MarginCall.DueDate.AddDate(0, 0, 2))
	require.NoError(t, err)
	assert.Equal(t, 0, escalated)
}

func TestResolveMarginCall_NonePending(t *testing.T) {
	ms := newMemStore()
	ms.CreateProduct(context.Background(), standardProduct())
	seedLoan(ms, "loan-1", "500000", "10.5", 24, time.Now())
	eng := newTestEngine(ms)

	_, err := eng.ResolveMarginCall(context.Background(), "loan-1")
	assert.Error(t, err)
}
