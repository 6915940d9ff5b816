// Package store provides data persistence implementations.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	apperrors "lamf-engine/internal/errors"
	"lamf-engine/internal/models"
)

// SQLiteStore implements DataStore using SQLite. Monetary columns are stored
// as TEXT to round-trip decimal values without float drift.
type SQLiteStore struct {
	db *sql.DB
	q  queryer
}

// queryer abstracts *sql.DB and *sql.Tx so the same statements serve both
// direct calls and calls inside Transact.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db, q: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Loan products (risk policy)
	CREATE TABLE IF NOT EXISTS loan_products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		max_ltv_percent TEXT NOT NULL,
		margin_call_threshold_percent TEXT NOT NULL,
		liquidation_threshold_percent TEXT NOT NULL,
		foreclosure_penalty_percent TEXT NOT NULL,
		penalty_waiver_months INTEGER NOT NULL,
		min_tenure_months INTEGER DEFAULT 0,
		max_tenure_months INTEGER DEFAULT 0
	);

	-- Loans
	CREATE TABLE IF NOT EXISTS loans (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		principal TEXT NOT NULL,
		annual_rate_percent TEXT NOT NULL,
		tenure_months INTEGER NOT NULL,
		emi_amount TEXT NOT NULL,
		outstanding_principal TEXT NOT NULL,
		outstanding_interest TEXT NOT NULL,
		total_outstanding TEXT NOT NULL,
		disbursed_at DATETIME NOT NULL,
		maturity_date DATETIME NOT NULL,
		current_ltv TEXT NOT NULL DEFAULT '0',
		status TEXT NOT NULL DEFAULT 'ACTIVE',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (product_id) REFERENCES loan_products(id)
	);
	CREATE INDEX IF NOT EXISTS idx_loans_status ON loans(status);

	-- Installments: one row per schedule period
	CREATE TABLE IF NOT EXISTS installments (
		id TEXT PRIMARY KEY,
		loan_id TEXT NOT NULL,
		sequence INTEGER NOT NULL,
		due_date DATETIME NOT NULL,
		emi_amount TEXT NOT NULL,
		principal_component TEXT NOT NULL,
		interest_component TEXT NOT NULL,
		paid_amount TEXT NOT NULL DEFAULT '0',
		paid_date DATETIME,
		UNIQUE(loan_id, sequence),
		FOREIGN KEY (loan_id) REFERENCES loans(id)
	);
	CREATE INDEX IF NOT EXISTS idx_installments_loan ON installments(loan_id, sequence);

	-- Collateral positions
	CREATE TABLE IF NOT EXISTS collateral_positions (
		id TEXT PRIMARY KEY,
		loan_id TEXT,
		scheme_name TEXT NOT NULL,
		folio_number TEXT,
		units TEXT NOT NULL,
		purchase_price TEXT NOT NULL,
		current_price TEXT NOT NULL,
		current_value TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'UNPLEDGED',
		pledged_at DATETIME,
		last_valued_at DATETIME,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_collateral_loan ON collateral_positions(loan_id, status);

	-- Margin calls
	CREATE TABLE IF NOT EXISTS margin_calls (
		id TEXT PRIMARY KEY,
		loan_id TEXT NOT NULL,
		trigger_ltv TEXT NOT NULL,
		detected_ltv TEXT NOT NULL,
		shortfall_amount TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'PENDING',
		due_date DATETIME NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		resolved_at DATETIME,
		escalated_at DATETIME,
		FOREIGN KEY (loan_id) REFERENCES loans(id)
	);
	CREATE INDEX IF NOT EXISTS idx_margin_calls_loan_status ON margin_calls(loan_id, status);

	-- Payments: append-only ledger
	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		loan_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		payment_date DATETIME NOT NULL,
		mode TEXT,
		reference TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (loan_id) REFERENCES loans(id)
	);
	CREATE INDEX IF NOT EXISTS idx_payments_loan ON payments(loan_id, payment_date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Transact runs fn inside a single SQLite transaction. A nested call reuses
// the outer transaction.
func (s *SQLiteStore) Transact(ctx context.Context, fn func(DataStore) error) error {
	if _, ok := s.q.(*sql.Tx); ok {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Wrap(err, "beginning transaction")
	}

	txStore := &SQLiteStore{db: s.db, q: tx}
	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return apperrors.Wrapf(err, "rollback failed: %v", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(err, "committing transaction")
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ---- Loans ----

// CreateLoan inserts a new loan row.
func (s *SQLiteStore) CreateLoan(ctx context.Context, loan *models.Loan) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO loans (id, customer_id, product_id, principal, annual_rate_percent,
			tenure_months, emi_amount, outstanding_principal, outstanding_interest,
			total_outstanding, disbursed_at, maturity_date, current_ltv, status,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		loan.ID, loan.CustomerID, loan.ProductID, loan.Principal.String(),
		loan.AnnualRatePercent.String(), loan.TenureMonths, loan.EMIAmount.String(),
		loan.OutstandingPrincipal.String(), loan.OutstandingInterest.String(),
		loan.TotalOutstanding.String(), loan.DisbursedAt, loan.MaturityDate,
		loan.CurrentLTV.String(), string(loan.Status), loan.CreatedAt, loan.UpdatedAt)
	if err != nil {
		return apperrors.NewStoreError("insert", "loan", err)
	}
	return nil
}

// GetLoan fetches a loan by ID.
func (s *SQLiteStore) GetLoan(ctx context.Context, loanID string) (*models.Loan, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, customer_id, product_id, principal, annual_rate_percent,
			tenure_months, emi_amount, outstanding_principal, outstanding_interest,
			total_outstanding, disbursed_at, maturity_date, current_ltv, status,
			created_at, updated_at
		FROM loans WHERE id = ?`, loanID)

	loan, err := scanLoan(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrLoanNotFound
	}
	if err != nil {
		return nil, apperrors.NewStoreError("select", "loan", err)
	}
	return loan, nil
}

// UpdateLoan persists mutable loan fields.
func (s *SQLiteStore) UpdateLoan(ctx context.Context, loan *models.Loan) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE loans SET
			emi_amount = ?, outstanding_principal = ?, outstanding_interest = ?,
			total_outstanding = ?, maturity_date = ?, current_ltv = ?, status = ?,
			updated_at = ?
		WHERE id = ?`,
		loan.EMIAmount.String(), loan.OutstandingPrincipal.String(),
		loan.OutstandingInterest.String(), loan.TotalOutstanding.String(),
		loan.MaturityDate, loan.CurrentLTV.String(), string(loan.Status),
		time.Now(), loan.ID)
	if err != nil {
		return apperrors.NewStoreError("update", "loan", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.ErrLoanNotFound
	}
	return nil
}

// ListActiveLoans returns all loans with status ACTIVE.
func (s *SQLiteStore) ListActiveLoans(ctx context.Context) ([]models.Loan, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, customer_id, product_id, principal, annual_rate_percent,
			tenure_months, emi_amount, outstanding_principal, outstanding_interest,
			total_outstanding, disbursed_at, maturity_date, current_ltv, status,
			created_at, updated_at
		FROM loans WHERE status = ? ORDER BY created_at`, string(models.LoanActive))
	if err != nil {
		return nil, apperrors.NewStoreError("select", "loans", err)
	}
	defer rows.Close()

	var loans []models.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, apperrors.NewStoreError("scan", "loan", err)
		}
		loans = append(loans, *loan)
	}
	return loans, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLoan(r rowScanner) (*models.Loan, error) {
	var loan models.Loan
	var principal, rate, emi, outPrincipal, outInterest, totalOut, ltv, status string
	err := r.Scan(&loan.ID, &loan.CustomerID, &loan.ProductID, &principal, &rate,
		&loan.TenureMonths, &emi, &outPrincipal, &outInterest, &totalOut,
		&loan.DisbursedAt, &loan.MaturityDate, &ltv, &status,
		&loan.CreatedAt, &loan.UpdatedAt)
	if err != nil {
		return nil, err
	}
	loan.Principal = dec(principal)
	loan.AnnualRatePercent = dec(rate)
	loan.EMIAmount = dec(emi)
	loan.OutstandingPrincipal = dec(outPrincipal)
	loan.OutstandingInterest = dec(outInterest)
	loan.TotalOutstanding = dec(totalOut)
	loan.CurrentLTV = dec(ltv)
	loan.Status = models.LoanStatus(status)
	return &loan, nil
}

// ---- Installments ----

// CreateInstallments inserts a full schedule. Callers wrap this in Transact
// together with loan creation so origination is atomic.
func (s *SQLiteStore) CreateInstallments(ctx context.Context, installments []models.Installment) error {
	for i := range installments {
		inst := &installments[i]
		_, err := s.q.ExecContext(ctx, `
			INSERT INTO installments (id, loan_id, sequence, due_date, emi_amount,
				principal_component, interest_component, paid_amount, paid_date)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			inst.ID, inst.LoanID, inst.Sequence, inst.DueDate,
			inst.EMIAmount.String(), inst.PrincipalComponent.String(),
			inst.InterestComponent.String(), inst.PaidAmount.String(), inst.PaidDate)
		if err != nil {
			return apperrors.NewStoreError("insert", "installment", err)
		}
	}
	return nil
}

// ListInstallments returns a loan's schedule in ascending sequence order.
func (s *SQLiteStore) ListInstallments(ctx context.Context, loanID string) ([]models.Installment, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, loan_id, sequence, due_date, emi_amount, principal_component,
			interest_component, paid_amount, paid_date
		FROM installments WHERE loan_id = ? ORDER BY sequence ASC`, loanID)
	if err != nil {
		return nil, apperrors.NewStoreError("select", "installments", err)
	}
	defer rows.Close()

	var installments []models.Installment
	for rows.Next() {
		var inst models.Installment
		var emi, principal, interest, paid string
		if err := rows.Scan(&inst.ID, &inst.LoanID, &inst.Sequence, &inst.DueDate,
			&emi, &principal, &interest, &paid, &inst.PaidDate); err != nil {
			return nil, apperrors.NewStoreError("scan", "installment", err)
		}
		inst.EMIAmount = dec(emi)
		inst.PrincipalComponent = dec(principal)
		inst.InterestComponent = dec(interest)
		inst.PaidAmount = dec(paid)
		installments = append(installments, inst)
	}
	return installments, rows.Err()
}

// UpdateInstallment persists paid amount and paid date.
func (s *SQLiteStore) UpdateInstallment(ctx context.Context, installment *models.Installment) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE installments SET paid_amount = ?, paid_date = ? WHERE id = ?`,
		installment.PaidAmount.String(), installment.PaidDate, installment.ID)
	if err != nil {
		return apperrors.NewStoreError("update", "installment", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.ErrInstallmentNotFound
	}
	return nil
}

// ---- Collateral ----

// CreateCollateral inserts a collateral position.
func (s *SQLiteStore) CreateCollateral(ctx context.Context, position *models.CollateralPosition) error {
	var loanID interface{}
	if position.LoanID != "" {
		loanID = position.LoanID
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO collateral_positions (id, loan_id, scheme_name, folio_number,
			units, purchase_price, current_price, current_value, status, pledged_at,
			last_valued_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		position.ID, loanID, position.SchemeName, position.FolioNumber,
		position.Units.String(), position.PurchasePrice.String(),
		position.CurrentPrice.String(), position.CurrentValue.String(),
		string(position.Status), position.PledgedAt, position.LastValuedAt,
		position.CreatedAt, position.UpdatedAt)
	if err != nil {
		return apperrors.NewStoreError("insert", "collateral", err)
	}
	return nil
}

// GetCollateral fetches a collateral position by ID.
func (s *SQLiteStore) GetCollateral(ctx context.Context, collateralID string) (*models.CollateralPosition, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, loan_id, scheme_name, folio_number, units, purchase_price,
			current_price, current_value, status, pledged_at, last_valued_at,
			created_at, updated_at
		FROM collateral_positions WHERE id = ?`, collateralID)

	position, err := scanCollateral(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrCollateralNotFound
	}
	if err != nil {
		return nil, apperrors.NewStoreError("select", "collateral", err)
	}
	return position, nil
}

// UpdateCollateral persists valuation and pledge status changes.
func (s *SQLiteStore) UpdateCollateral(ctx context.Context, position *models.CollateralPosition) error {
	var loanID interface{}
	if position.LoanID != "" {
		loanID = position.LoanID
	}
	res, err := s.q.ExecContext(ctx, `
		UPDATE collateral_positions SET
			loan_id = ?, current_price = ?, current_value = ?, status = ?,
			pledged_at = ?, last_valued_at = ?, updated_at = ?
		WHERE id = ?`,
		loanID, position.CurrentPrice.String(), position.CurrentValue.String(),
		string(position.Status), position.PledgedAt, position.LastValuedAt,
		time.Now(), position.ID)
	if err != nil {
		return apperrors.NewStoreError("update", "collateral", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.ErrCollateralNotFound
	}
	return nil
}

// ListPledgedByLoan returns PLEDGED positions linked to a loan.
func (s *SQLiteStore) ListPledgedByLoan(ctx context.Context, loanID string) ([]models.CollateralPosition, error) {
	return s.listCollateral(ctx, `
		SELECT id, loan_id, scheme_name, folio_number, units, purchase_price,
			current_price, current_value, status, pledged_at, last_valued_at,
			created_at, updated_at
		FROM collateral_positions WHERE loan_id = ? AND status = ?`,
		loanID, string(models.PledgePledged))
}

// ListPledged returns every PLEDGED position across the loan book.
func (s *SQLiteStore) ListPledged(ctx context.Context) ([]models.CollateralPosition, error) {
	return s.listCollateral(ctx, `
		SELECT id, loan_id, scheme_name, folio_number, units, purchase_price,
			current_price, current_value, status, pledged_at, last_valued_at,
			created_at, updated_at
		FROM collateral_positions WHERE status = ?`, string(models.PledgePledged))
}

func (s *SQLiteStore) listCollateral(ctx context.Context, query string, args ...interface{}) ([]models.CollateralPosition, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewStoreError("select", "collateral", err)
	}
	defer rows.Close()

	var positions []models.CollateralPosition
	for rows.Next() {
		position, err := scanCollateral(rows)
		if err != nil {
			return nil, apperrors.NewStoreError("scan", "collateral", err)
		}
		positions = append(positions, *position)
	}
	return positions, rows.Err()
}

func scanCollateral(r rowScanner) (*models.CollateralPosition, error) {
	var position models.CollateralPosition
	var loanID sql.NullString
	var units, purchase, price, value, status string
	err := r.Scan(&position.ID, &loanID, &position.SchemeName, &position.FolioNumber,
		&units, &purchase, &price, &value, &status, &position.PledgedAt,
		&position.LastValuedAt, &position.CreatedAt, &position.UpdatedAt)
	if err != nil {
		return nil, err
	}
	position.LoanID = loanID.String
	position.Units = dec(units)
	position.PurchasePrice = dec(purchase)
	position.CurrentPrice = dec(price)
	position.CurrentValue = dec(value)
	position.Status = models.PledgeStatus(status)
	return &position, nil
}

// ---- Margin calls ----

// CreateMarginCall inserts a margin call row.
func (s *SQLiteStore) CreateMarginCall(ctx context.Context, call *models.MarginCall) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO margin_calls (id, loan_id, trigger_ltv, detected_ltv,
			shortfall_amount, status, due_date, created_at, resolved_at, escalated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		call.ID, call.LoanID, call.TriggerLTV.String(), call.DetectedLTV.String(),
		call.ShortfallAmount.String(), string(call.Status), call.DueDate,
		call.CreatedAt, call.ResolvedAt, call.EscalatedAt)
	if err != nil {
		return apperrors.NewStoreError("insert", "margin_call", err)
	}
	return nil
}

// FindPendingMarginCall returns the PENDING margin call for a loan, or nil
// when none exists.
func (s *SQLiteStore) FindPendingMarginCall(ctx context.Context, loanID string) (*models.MarginCall, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, loan_id, trigger_ltv, detected_ltv, shortfall_amount, status,
			due_date, created_at, resolved_at, escalated_at
		FROM margin_calls WHERE loan_id = ? AND status = ? LIMIT 1`,
		loanID, string(models.MarginCallPending))

	call, err := scanMarginCall(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewStoreError("select", "margin_call", err)
	}
	return call, nil
}

// UpdateMarginCall persists status transitions.
func (s *SQLiteStore) UpdateMarginCall(ctx context.Context, call *models.MarginCall) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE margin_calls SET status = ?, resolved_at = ?, escalated_at = ?
		WHERE id = ?`,
		string(call.Status), call.ResolvedAt, call.EscalatedAt, call.ID)
	if err != nil {
		return apperrors.NewStoreError("update", "margin_call", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NewNotFoundError("margin call", call.ID, nil)
	}
	return nil
}

// ListPendingMarginCalls returns all PENDING margin calls.
func (s *SQLiteStore) ListPendingMarginCalls(ctx context.Context) ([]models.MarginCall, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, loan_id, trigger_ltv, detected_ltv, shortfall_amount, status,
			due_date, created_at, resolved_at, escalated_at
		FROM margin_calls WHERE status = ? ORDER BY created_at`,
		string(models.MarginCallPending))
	if err != nil {
		return nil, apperrors.NewStoreError("select", "margin_calls", err)
	}
	defer rows.Close()

	var calls []models.MarginCall
	for rows.Next() {
		call, err := scanMarginCall(rows)
		if err != nil {
			return nil, apperrors.NewStoreError("scan", "margin_call", err)
		}
		calls = append(calls, *call)
	}
	return calls, rows.Err()
}

func scanMarginCall(r rowScanner) (*models.MarginCall, error) {
	var call models.MarginCall
	var trigger, detected, shortfall, status string
	err := r.Scan(&call.ID, &call.LoanID, &trigger, &detected, &shortfall, &status,
		&call.DueDate, &call.CreatedAt, &call.ResolvedAt, &call.EscalatedAt)
	if err != nil {
		return nil, err
	}
	call.TriggerLTV = dec(trigger)
	call.DetectedLTV = dec(detected)
	call.ShortfallAmount = dec(shortfall)
	call.Status = models.MarginCallStatus(status)
	return &call, nil
}

// ---- Products ----

// CreateProduct inserts a loan product.
func (s *SQLiteStore) CreateProduct(ctx context.Context, product *models.LoanProduct) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO loan_products (id, name, max_ltv_percent,
			margin_call_threshold_percent, liquidation_threshold_percent,
			foreclosure_penalty_percent, penalty_waiver_months,
			min_tenure_months, max_tenure_months)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		product.ID, product.Name, product.MaxLTVPercent.String(),
		product.MarginCallThresholdPercent.String(),
		product.LiquidationThresholdPercent.String(),
		product.ForeclosurePenaltyPercent.String(), product.PenaltyWaiverMonths,
		product.MinTenureMonths, product.MaxTenureMonths)
	if err != nil {
		return apperrors.NewStoreError("insert", "product", err)
	}
	return nil
}

// GetProduct fetches a loan product by ID.
func (s *SQLiteStore) GetProduct(ctx context.Context, productID string) (*models.LoanProduct, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, name, max_ltv_percent, margin_call_threshold_percent,
			liquidation_threshold_percent, foreclosure_penalty_percent,
			penalty_waiver_months, min_tenure_months, max_tenure_months
		FROM loan_products WHERE id = ?`, productID)

	var product models.LoanProduct
	var maxLTV, mcThreshold, liqThreshold, penalty string
	err := row.Scan(&product.ID, &product.Name, &maxLTV, &mcThreshold,
		&liqThreshold, &penalty, &product.PenaltyWaiverMonths,
		&product.MinTenureMonths, &product.MaxTenureMonths)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrProductNotFound
	}
	if err != nil {
		return nil, apperrors.NewStoreError("select", "product", err)
	}
	product.MaxLTVPercent = dec(maxLTV)
	product.MarginCallThresholdPercent = dec(mcThreshold)
	product.LiquidationThresholdPercent = dec(liqThreshold)
	product.ForeclosurePenaltyPercent = dec(penalty)
	return &product, nil
}

// ---- Payments ----

// AppendPayment inserts a ledger row. Ledger rows are never updated.
func (s *SQLiteStore) AppendPayment(ctx context.Context, payment *models.Payment) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO payments (id, loan_id, amount, payment_date, mode, reference, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		payment.ID, payment.LoanID, payment.Amount.String(), payment.PaymentDate,
		payment.Mode, payment.Reference, payment.CreatedAt)
	if err != nil {
		return apperrors.NewStoreError("insert", "payment", err)
	}
	return nil
}

// ListPayments returns ledger rows matching the filter.
func (s *SQLiteStore) ListPayments(ctx context.Context, filter PaymentFilter) ([]models.Payment, error) {
	query := `SELECT id, loan_id, amount, payment_date, mode, reference, created_at
		FROM payments WHERE 1=1`
	var args []interface{}

	if filter.LoanID != "" {
		query += " AND loan_id = ?"
		args = append(args, filter.LoanID)
	}
	if !filter.StartDate.IsZero() {
		query += " AND payment_date >= ?"
		args = append(args, filter.StartDate)
	}
	if !filter.EndDate.IsZero() {
		query += " AND payment_date <= ?"
		args = append(args, filter.EndDate)
	}
	query += " ORDER BY payment_date ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewStoreError("select", "payments", err)
	}
	defer rows.Close()

	var payments []models.Payment
	for rows.Next() {
		var payment models.Payment
		var amount string
		if err := rows.Scan(&payment.ID, &payment.LoanID, &amount,
			&payment.PaymentDate, &payment.Mode, &payment.Reference,
			&payment.CreatedAt); err != nil {
			return nil, apperrors.NewStoreError("scan", "payment", err)
		}
		payment.Amount = dec(amount)
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}
