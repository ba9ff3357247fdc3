/*
errors.go - Centralized error types for the billing engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages and the API layer wrap these errors with additional
  context.

ERROR CATEGORIES:
  1. Validation errors - Bad input shape; no partial mutation occurs
  2. Concurrency conflicts - Stale version on plan update; caller retries
  3. Store errors - Record-level failures

No error here is fatal to the process; all are per-request and recoverable
by the caller re-submitting with corrected input.

SEE ALSO:
  - plan.go, payment.go: Return these errors
  - store/sqlite: Maps database conflicts onto ErrConcurrentModification
*/
package billing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidPaymentAmount is returned when a payment amount is zero or
	// negative. The plan is not mutated.
	ErrInvalidPaymentAmount = errors.New("payment amount must be positive")

	// ErrInstallmentNotFound is returned when the target installment number
	// does not exist in the plan. The plan is not mutated.
	ErrInstallmentNotFound = errors.New("installment not found")

	// ErrInvalidInstallmentCount is returned when a cash-installment plan is
	// requested with a non-positive installment count.
	ErrInvalidInstallmentCount = errors.New("installment count must be positive")

	// ErrInvalidFrequency is returned when a custom frequency has a
	// non-positive day step, or the frequency value is unknown.
	ErrInvalidFrequency = errors.New("invalid installment frequency")

	// ErrInvalidTotalAmount is returned when the pre-discount total is negative.
	ErrInvalidTotalAmount = errors.New("total amount must not be negative")

	// ErrPlanShrinkBelowPaid is returned when a plan edit would reduce the
	// base amount below what has already been paid.
	ErrPlanShrinkBelowPaid = errors.New("plan total cannot shrink below paid amount")

	// ErrConcurrentModification is returned when optimistic locking detects
	// a conflict. The whole mutation is rejected; retry with fresh data.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrPlanNotFound is returned when a referenced plan doesn't exist.
	ErrPlanNotFound = errors.New("plan not found")

	// ErrRatesNotFound is returned when an institution has no rate settings.
	ErrRatesNotFound = errors.New("rate settings not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InstallmentNotFoundError identifies which installment number was missing.
type InstallmentNotFoundError struct {
	PlanID string
	Number int
}

func (e *InstallmentNotFoundError) Error() string {
	return fmt.Sprintf("installment %d not found in plan %s", e.Number, e.PlanID)
}

func (e *InstallmentNotFoundError) Unwrap() error { return ErrInstallmentNotFound }

// ShrinkBelowPaidError reports how far an edit undercuts the paid amount.
type ShrinkBelowPaidError struct {
	PlanID     string
	NewBase    decimal.Decimal
	PaidAmount decimal.Decimal
}

func (e *ShrinkBelowPaidError) Error() string {
	return fmt.Sprintf("plan %s: new base %v is below paid amount %v",
		e.PlanID, e.NewBase, e.PaidAmount)
}

func (e *ShrinkBelowPaidError) Unwrap() error { return ErrPlanShrinkBelowPaid }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry with fresh data.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPaymentAmount) ||
		errors.Is(err, ErrInstallmentNotFound) ||
		errors.Is(err, ErrInvalidInstallmentCount) ||
		errors.Is(err, ErrInvalidFrequency) ||
		errors.Is(err, ErrInvalidTotalAmount) ||
		errors.Is(err, ErrPlanShrinkBelowPaid)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPlanNotFound) ||
		errors.Is(err, ErrInstallmentNotFound) ||
		errors.Is(err, ErrRatesNotFound)
}
