// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrLoanNotFound         = errors.New("loan not found")
	ErrInstallmentNotFound  = errors.New("installment not found")
	ErrCollateralNotFound   = errors.New("collateral position not found")
	ErrProductNotFound      = errors.New("loan product not found")
	ErrPolicyMissing        = errors.New("product policy thresholds missing")
	ErrInvalidLoanTerms     = errors.New("invalid loan terms")
	ErrInvalidPaymentAmount = errors.New("payment amount must be positive")
	ErrLoanNotActive        = errors.New("loan is not active")
	ErrNoPledgedCollateral  = errors.New("no pledged collateral")
	ErrDatabaseError        = errors.New("database error")
	ErrConfigInvalid        = errors.New("invalid configuration")
)

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// NotFoundError represents an absent referenced entity.
type NotFoundError struct {
	Entity string
	ID     string
	Err    error
}

func (e *NotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s not found [%s]: %v", e.Entity, e.ID, e.Err)
	}
	return fmt.Sprintf("%s not found [%s]", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(entity, id string, err error) *NotFoundError {
	return &NotFoundError{
		Entity: entity,
		ID:     id,
		Err:    err,
	}
}

// StoreError represents a persistence layer failure. The surrounding
// aggregate transaction must roll back when one is returned.
type StoreError struct {
	Operation string
	Entity    string
	Err       error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error [%s] %s: %v", e.Operation, e.Entity, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError.
func NewStoreError(operation, entity string, err error) *StoreError {
	return &StoreError{
		Operation: operation,
		Entity:    entity,
		Err:       err,
	}
}

// RiskError represents a risk threshold violation.
type RiskError struct {
	Rule    string
	Current float64
	Limit   float64
	Message string
}

func (e *RiskError) Error() string {
	return fmt.Sprintf("risk violation [%s]: %s (current: %.2f, limit: %.2f)", e.Rule, e.Message, e.Current, e.Limit)
}

// NewRiskError creates a new RiskError.
func NewRiskError(rule string, current, limit float64, message string) *RiskError {
	return &RiskError{
		Rule:    rule,
		Current: current,
		Limit:   limit,
		Message: message,
	}
}

// PolicyError represents a missing or inconsistent product policy. Batch
// sweeps skip the affected loan instead of aborting.
type PolicyError struct {
	ProductID string
	Reason    string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("policy error [%s]: %s", e.ProductID, e.Reason)
}

// NewPolicyError creates a new PolicyError.
func NewPolicyError(productID, reason string) *PolicyError {
	return &PolicyError{
		ProductID: productID,
		Reason:    reason,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
