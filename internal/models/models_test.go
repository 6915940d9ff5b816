package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstallmentStatus(t *testing.T) {
	inst := Installment{EMIAmount: decimal.NewFromInt(23188)}

	assert.Equal(t, InstallmentPending, inst.Status())

	inst.PaidAmount = decimal.NewFromInt(10000)
	assert.Equal(t, InstallmentPartiallyPaid, inst.Status())
	assert.True(t, inst.Due().Equal(decimal.NewFromInt(13188)))

	inst.PaidAmount = inst.EMIAmount
	assert.Equal(t, InstallmentPaid, inst.Status())
	assert.True(t, inst.Due().IsZero())
}

func TestLoanReduceOutstanding(t *testing.T) {
	loan := Loan{TotalOutstanding: decimal.NewFromInt(1000)}

	absorbed := loan.ReduceOutstanding(decimal.NewFromInt(400))
	assert.True(t, absorbed.Equal(decimal.NewFromInt(400)))
	assert.True(t, loan.TotalOutstanding.Equal(decimal.NewFromInt(600)))

	// Overpayment floors at zero and reports the amount actually used.
	absorbed = loan.ReduceOutstanding(decimal.NewFromInt(900))
	assert.True(t, absorbed.Equal(decimal.NewFromInt(600)))
	assert.True(t, loan.TotalOutstanding.IsZero())
	assert.True(t, loan.IsSettled())
}

func TestLoanAgeInMonths(t *testing.T) {
	loan := Loan{DisbursedAt: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)}

	assert.Equal(t, 0, loan.AgeInMonths(time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, loan.AgeInMonths(time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 1, loan.AgeInMonths(time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 13, loan.AgeInMonths(time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)))
	// Before disbursement clamps to zero.
	assert.Equal(t, 0, loan.AgeInMonths(time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)))
}

func TestMarginCallLifecycle(t *testing.T) {
	call := NewMarginCall("loan-1", decimal.NewFromInt(65), decimal.NewFromInt(70),
		decimal.NewFromInt(50000), 3)

	require.Equal(t, MarginCallPending, call.Status)
	assert.False(t, call.IsOverdue(call.CreatedAt.AddDate(0, 0, 2)))
	assert.True(t, call.IsOverdue(call.CreatedAt.AddDate(0, 0, 4)))

	call.Escalate()
	assert.Equal(t, MarginCallEscalated, call.Status)
	require.NotNil(t, call.EscalatedAt)
	// Terminal states are never overdue.
	assert.False(t, call.IsOverdue(call.CreatedAt.AddDate(0, 1, 0)))
}

func TestProductValidate(t *testing.T) {
	product := LoanProduct{
		ID:                          "p",
		MaxLTVPercent:               decimal.NewFromInt(50),
		MarginCallThresholdPercent:  decimal.NewFromInt(65),
		LiquidationThresholdPercent: decimal.NewFromInt(80),
	}
	assert.NoError(t, product.Validate())

	// Threshold ordering must hold strictly.
	product.MarginCallThresholdPercent = decimal.NewFromInt(50)
	assert.Error(t, product.Validate())

	product.MarginCallThresholdPercent = decimal.NewFromInt(85)
	assert.Error(t, product.Validate())
}

func TestCollateralRevalue(t *testing.T) {
	position := CollateralPosition{
		Units:        decimal.NewFromInt(10000),
		CurrentPrice: decimal.NewFromInt(100),
		CurrentValue: decimal.NewFromInt(1000000),
	}

	position.Revalue(decimal.RequireFromString("95.5"))
	assert.True(t, position.CurrentValue.Equal(decimal.NewFromInt(955000)))
	assert.False(t, position.LastValuedAt.IsZero())
}
