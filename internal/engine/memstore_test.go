package engine

import (
	"context"
	"sort"
	"sync"

	apperrors "lamf-engine/internal/errors"
	"lamf-engine/internal/models"
	"lamf-engine/internal/store"
)

// memStore is an in-memory DataStore for engine tests. Transact runs fn
// against the same store; rollback fidelity is covered by the sqlite tests.
type memStore struct {
	mu           sync.Mutex
	loans        map[string]models.Loan
	installments map[string][]models.Installment
	collateral   map[string]models.CollateralPosition
	marginCalls  map[string]models.MarginCall
	products     map[string]models.LoanProduct
	payments     []models.Payment

	failUpdateLoan bool // injected fault for fail-open batch tests
}

func newMemStore() *memStore {
	return &memStore{
		loans:        make(map[string]models.Loan),
		installments: make(map[string][]models.Installment),
		collateral:   make(map[string]models.CollateralPosition),
		marginCalls:  make(map[string]models.MarginCall),
		products:     make(map[string]models.LoanProduct),
	}
}

func (m *memStore) CreateLoan(ctx context.Context, loan *models.Loan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loans[loan.ID] = *loan
	return nil
}

func (m *memStore) GetLoan(ctx context.Context, loanID string) (*models.Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	loan, ok := m.loans[loanID]
	if !ok {
		return nil, apperrors.ErrLoanNotFound
	}
	return &loan, nil
}

func (m *memStore) UpdateLoan(ctx context.Context, loan *models.Loan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpdateLoan {
		return apperrors.ErrDatabaseError
	}
	if _, ok := m.loans[loan.ID]; !ok {
		return apperrors.ErrLoanNotFound
	}
	m.loans[loan.ID] = *loan
	return nil
}

func (m *memStore) ListActiveLoans(ctx context.Context) ([]models.Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Loan
	for _, loan := range m.loans {
		if loan.Status == models.LoanActive {
			out = append(out, loan)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) CreateInstallments(ctx context.Context, installments []models.Installment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inst := range installments {
		m.installments[inst.LoanID] = append(m.installments[inst.LoanID], inst)
	}
	return nil
}

func (m *memStore) ListInstallments(ctx context.Context, loanID string) ([]models.Installment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]models.Installment(nil), m.installments[loanID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

func (m *memStore) UpdateInstallment(ctx context.Context, installment *models.Installment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.installments[installment.LoanID]
	for i := range list {
		if list[i].ID == installment.ID {
			list[i] = *installment
			return nil
		}
	}
	return apperrors.ErrInstallmentNotFound
}

func (m *memStore) CreateCollateral(ctx context.Context, position *models.CollateralPosition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collateral[position.ID] = *position
	return nil
}

func (m *memStore) GetCollateral(ctx context.Context, collateralID string) (*models.CollateralPosition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	position, ok := m.collateral[collateralID]
	if !ok {
		return nil, apperrors.ErrCollateralNotFound
	}
	return &position, nil
}

func (m *memStore) UpdateCollateral(ctx context.Context, position *models.CollateralPosition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collateral[position.ID]; !ok {
		return apperrors.ErrCollateralNotFound
	}
	m.collateral[position.ID] = *position
	return nil
}

func (m *memStore) ListPledgedByLoan(ctx context.Context, loanID string) ([]models.CollateralPosition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.CollateralPosition
	for _, position := range m.collateral {
		if position.LoanID == loanID && position.Status == models.PledgePledged {
			out = append(out, position)
		}
	}
	return out, nil
}

func (m *memStore) ListPledged(ctx context.Context) ([]models.CollateralPosition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.CollateralPosition
	for _, position := range m.collateral {
		if position.Status == models.PledgePledged {
			out = append(out, position)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) CreateMarginCall(ctx context.Context, call *models.MarginCall) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marginCalls[call.ID] = *call
	return nil
}

func (m *memStore) FindPendingMarginCall(ctx context.Context, loanID string) (*models.MarginCall, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, call := range m.marginCalls {
		if call.LoanID == loanID && call.Status == models.MarginCallPending {
			c := call
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memStore) UpdateMarginCall(ctx context.Context, call *models.MarginCall) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.marginCalls[call.ID]; !ok {
		return apperrors.NewNotFoundError("margin call", call.ID, nil)
	}
	m.marginCalls[call.ID] = *call
	return nil
}

func (m *memStore) ListPendingMarginCalls(ctx context.Context) ([]models.MarginCall, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.MarginCall
	for _, call := range m.marginCalls {
		if call.Status == models.MarginCallPending {
			out = append(out, call)
		}
	}
	return out, nil
}

func (m *memStore) CreateProduct(ctx context.Context, product *models.LoanProduct) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[product.ID] = *product
	return nil
}

func (m *memStore) GetProduct(ctx context.Context, productID string) (*models.LoanProduct, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	product, ok := m.products[productID]
	if !ok {
		return nil, apperrors.ErrProductNotFound
	}
	return &product, nil
}

func (m *memStore) AppendPayment(ctx context.Context, payment *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments = append(m.payments, *payment)
	return nil
}

func (m *memStore) ListPayments(ctx context.Context, filter store.PaymentFilter) ([]models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Payment
	for _, payment := range m.payments {
		if filter.LoanID != "" && payment.LoanID != filter.LoanID {
			continue
		}
		out = append(out, payment)
	}
	return out, nil
}

func (m *memStore) Transact(ctx context.Context, fn func(store.DataStore) error) error {
	return fn(m)
}

func (m *memStore) Close() error { return nil }
