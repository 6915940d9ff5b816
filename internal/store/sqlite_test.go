package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "lamf-engine/internal/errors"
	"lamf-engine/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func testProduct() *models.LoanProduct {
	return &models.LoanProduct{
		ID:                          "lamf-std",
		Name:                        "LAMF Standard",
		MaxLTVPercent:               d("50"),
		MarginCallThresholdPercent:  d("65"),
		LiquidationThresholdPercent: d("80"),
		ForeclosurePenaltyPercent:   d("2"),
		PenaltyWaiverMonths:         12,
	}
}

func testLoan(id string) *models.Loan {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.Loan{
		ID:                   id,
		CustomerID:           "cust-1",
		ProductID:            "lamf-std",
		Principal:            d("500000"),
		AnnualRatePercent:    d("10.5"),
		TenureMonths:         24,
		EMIAmount:            d("23187.78"),
		OutstandingPrincipal: d("500000"),
		OutstandingInterest:  decimal.Zero,
		TotalOutstanding:     d("500000"),
		DisbursedAt:          now,
		MaturityDate:         now.AddDate(2, 0, 0),
		CurrentLTV:           decimal.Zero,
		Status:               models.LoanActive,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

func TestLoanRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateProduct(ctx, testProduct()))
	loan := testLoan("loan-1")
	require.NoError(t, s.CreateLoan(ctx, loan))

	got, err := s.GetLoan(ctx, "loan-1")
	require.NoError(t, err)

	// Decimal TEXT columns round-trip without drift.
	assert.True(t, got.Principal.Equal(d("500000")))
	assert.True(t, got.EMIAmount.Equal(d("23187.78")))
	assert.True(t, got.TotalOutstanding.Equal(d("500000")))
	assert.Equal(t, models.LoanActive, got.Status)
	assert.Equal(t, 24, got.TenureMonths)
}

func TestGetLoan_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetLoan(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrLoanNotFound)
}

func TestUpdateLoan_NotFound(t *testing.T) {
	s := newTestStore(t)
	err := s.UpdateLoan(context.Background(), testLoan("never-created"))
	assert.ErrorIs(t, err, apperrors.ErrLoanNotFound)
}

func TestInstallmentsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateProduct(ctx, testProduct()))
	require.NoError(t, s.CreateLoan(ctx, testLoan("loan-1")))

	due := time.Now().UTC().Truncate(time.Second)
	installments := []models.Installment{
		{ID: "i-1", LoanID: "loan-1", Sequence: 1, DueDate: due, EMIAmount: d("23187.78"),
			PrincipalComponent: d("18812.78"), InterestComponent: d("4375"), PaidAmount: decimal.Zero},
		{ID: "i-2", LoanID: "loan-1", Sequence: 2, DueDate: due.AddDate(0, 1, 0), EMIAmount: d("23187.78"),
			PrincipalComponent: d("18977.39"), InterestComponent: d("4210.39"), PaidAmount: decimal.Zero},
	}
	require.NoError(t, s.CreateInstallments(ctx, installments))

	got, err := s.ListInstallments(ctx, "loan-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Sequence)
	assert.Equal(t, 2, got[1].Sequence)
	assert.Nil(t, got[0].PaidDate)

	// Paid fields persist.
	paidAt := due.AddDate(0, 1, 2)
	got[0].PaidAmount = got[0].EMIAmount
	got[0].PaidDate = &paidAt
	require.NoError(t, s.UpdateInstallment(ctx, &got[0]))

	got, err = s.ListInstallments(ctx, "loan-1")
	require.NoError(t, err)
	assert.Equal(t, models.InstallmentPaid, got[0].Status())
	require.NotNil(t, got[0].PaidDate)
}

func TestTransact_RollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateProduct(ctx, testProduct()))

	boom := errors.New("boom")
	err := s.Transact(ctx, func(ds DataStore) error {
		if err := ds.CreateLoan(ctx, testLoan("loan-tx")); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	// The loan insert rolled back with the failure.
	_, err = s.GetLoan(ctx, "loan-tx")
	assert.ErrorIs(t, err, apperrors.ErrLoanNotFound)
}

func TestTransact_NestedReusesTransaction(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateProduct(ctx, testProduct()))

	err := s.Transact(ctx, func(outer DataStore) error {
		if err := outer.CreateLoan(ctx, testLoan("loan-nested")); err != nil {
			return err
		}
		// Inner Transact must see the outer transaction's writes.
		return outer.Transact(ctx, func(inner DataStore) error {
			_, err := inner.GetLoan(ctx, "loan-nested")
			return err
		})
	})
	require.NoError(t, err)

	_, err = s.GetLoan(ctx, "loan-nested")
	assert.NoError(t, err)
}

func TestFindPendingMarginCall(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateProduct(ctx, testProduct()))
	require.NoError(t, s.CreateLoan(ctx, testLoan("loan-1")))

	// Absent pending call is (nil, nil), not an error.
	call, err := s.FindPendingMarginCall(ctx, "loan-1")
	require.NoError(t, err)
	assert.Nil(t, call)

	created := models.NewMarginCall("loan-1", d("65"), d("70"), d("50000"), 3)
	require.NoError(t, s.CreateMarginCall(ctx, created))

	call, err = s.FindPendingMarginCall(ctx, "loan-1")
	require.NoError(t, err)
	require.NotNil(t, call)
	assert.Equal(t, created.ID, call.ID)
	assert.True(t, call.ShortfallAmount.Equal(d("50000")))

	// Resolved calls stop matching.
	call.Resolve()
	require.NoError(t, s.UpdateMarginCall(ctx, call))
	call, err = s.FindPendingMarginCall(ctx, "loan-1")
	require.NoError(t, err)
	assert.Nil(t, call)
}

func TestCollateralRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	position := &models.CollateralPosition{
		ID:            "col-1",
		SchemeName:    "HDFC Flexi Cap Growth",
		FolioNumber:   "12345678/90",
		Units:         d("10000"),
		PurchasePrice: d("85.25"),
		CurrentPrice:  d("100"),
		CurrentValue:  d("1000000"),
		Status:        models.PledgeUnpledged,
		LastValuedAt:  now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, s.CreateCollateral(ctx, position))

	got, err := s.GetCollateral(ctx, "col-1")
	require.NoError(t, err)
	assert.Empty(t, got.LoanID)
	assert.True(t, got.CurrentValue.Equal(d("1000000")))

	// Unpledged positions are invisible to the pledged listings.
	pledged, err := s.ListPledged(ctx)
	require.NoError(t, err)
	assert.Empty(t, pledged)

	got.LoanID = "loan-1"
	got.Status = models.PledgePledged
	got.PledgedAt = &now
	require.NoError(t, s.UpdateCollateral(ctx, got))

	pledged, err = s.ListPledged(ctx)
	require.NoError(t, err)
	require.Len(t, pledged, 1)
	assert.Equal(t, "loan-1", pledged[0].LoanID)
}

func TestPaymentLedger(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateProduct(ctx, testProduct()))
	require.NoError(t, s.CreateLoan(ctx, testLoan("loan-1")))

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		payment := models.NewPayment("loan-1", d("23187.78"), base.AddDate(0, i, 0), "NACH", "")
		require.NoError(t, s.AppendPayment(ctx, payment))
	}

	payments, err := s.ListPayments(ctx, PaymentFilter{LoanID: "loan-1"})
	require.NoError(t, err)
	assert.Len(t, payments, 3)

	// Date window filter.
	payments, err = s.ListPayments(ctx, PaymentFilter{
		LoanID:    "loan-1",
		StartDate: base.AddDate(0, 1, 0),
		EndDate:   base.AddDate(0, 1, 15),
	})
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.True(t, payments[0].PaymentDate.Equal(base.AddDate(0, 1, 0)))

	payments, err = s.ListPayments(ctx, PaymentFilter{LoanID: "loan-1", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, payments, 2)
}
