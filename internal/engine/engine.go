// Package engine implements loan servicing and collateral risk management:
// amortization scheduling, payment allocation, collateral valuation, LTV
// monitoring with margin calls, foreclosure quotes and rebalancing advice.
package engine

import (
	"sync"

	"github.com/rs/zerolog"

	"lamf-engine/internal/config"
	"lamf-engine/internal/notify"
	"lamf-engine/internal/store"
)

// Engine coordinates all servicing operations against the loan book.
// Policy knobs are fixed at construction; there is no global mutable state.
type Engine struct {
	store    store.DataStore
	notifier notify.Sink
	logger   zerolog.Logger
	policy   config.PolicyConfig
	workers  int
	basis    int // day count basis for interest accrual

	locks lockTable
}

// New creates an Engine. A nil notifier disables notifications.
func New(ds store.DataStore, notifier notify.Sink, cfg *config.Config, logger zerolog.Logger) *Engine {
	if notifier == nil {
		notifier = notify.NewNoopSink()
	}
	workers := cfg.Engine.SweepWorkers
	if workers <= 0 {
		workers = 1
	}
	basis := cfg.Engine.DayCountBasis
	if basis == 0 {
		basis = 365
	}
	return &Engine{
		store:    ds,
		notifier: notifier,
		logger:   logger,
		policy:   cfg.Policy,
		workers:  workers,
		basis:    basis,
	}
}

// lockTable hands out one mutex per loan so that a loan aggregate (loan +
// installments + margin calls) has a single writer at a time.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (t *lockTable) forLoan(loanID string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.locks == nil {
		t.locks = make(map[string]*sync.Mutex)
	}
	l, ok := t.locks[loanID]
	if !ok {
		l = &sync.Mutex{}
		t.locks[loanID] = l
	}
	return l
}

// withLoanLock runs fn while holding the loan's writer lock.
func (e *Engine) withLoanLock(loanID string, fn func() error) error {
	l := e.locks.forLoan(loanID)
	l.Lock()
	defer l.Unlock()
	return fn()
}

// BatchError records a single entity's failure inside a batch job.
type BatchError struct {
	ID  string
	Err string
}

// forEachParallel fans items out over the engine's worker pool. Item
// failures are collected by the worker fn itself; the pool never aborts.
func (e *Engine) forEachParallel(n int, fn func(i int)) {
	workers := e.workers
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	var wg sync.WaitGroup
	jobs := make(chan int)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				fn(i)
			}
		}()
	}
	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
}
