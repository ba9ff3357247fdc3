/*
Package expenses generates and classifies recurring operating expenses.

PURPOSE:
  A Template defines a periodically recurring obligation (rent, utility,
  insurance). The generator materializes concrete Occurrences on a
  calendar without duplicating previously generated ones, and classifies
  pending occurrences into overdue / this-week / upcoming buckets for
  dashboarding.

KEY CONCEPTS IN THIS FILE (template.go):
  - Template: frequency, due-day policy, amount policy, validity window
  - Occurrence: one concrete dated instance of a template
  - Period identity: (templateID, periodStart) - the stable key that makes
    generation idempotent

LIFECYCLE:
  Templates are created by an administrator and edited over time; edits
  affect only future occurrences. A template referenced by occurrences is
  deactivated, never hard-deleted. Occurrences become immutable once paid
  except for audit fields.

SEE ALSO:
  - generator.go: Occurrence derivation and status classification
  - store.go: Persistence interfaces
*/
package expenses

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rdvneltz/FOFENK-sub001/billing"
)

// =============================================================================
// TEMPLATE
// =============================================================================

type Frequency string

const (
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
)

// MonthsPerPeriod returns the calendar step of the frequency.
func (f Frequency) MonthsPerPeriod() int {
	switch f {
	case FrequencyQuarterly:
		return 3
	case FrequencyYearly:
		return 12
	default:
		return 1
	}
}

type DueDayType string

const (
	DueDayFixed DueDayType = "fixed"
	DueDayRange DueDayType = "range"
)

type AmountType string

const (
	AmountFixed    AmountType = "fixed"
	AmountVariable AmountType = "variable"
)

type Template struct {
	ID   string
	Name string

	Frequency Frequency

	DueDayType       DueDayType
	DueDay           int // fixed: 1-31, clamped to short months
	DueDayRangeStart int // range: window inside the period's month
	DueDayRangeEnd   int

	AmountType      AmountType
	EstimatedAmount decimal.Decimal

	StartDate billing.Date
	EndDate   *billing.Date
	Active    bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

var (
	ErrInvalidTemplate  = errors.New("invalid expense template")
	ErrTemplateNotFound = errors.New("expense template not found")

	// ErrOccurrencePaid is returned when mutating an occurrence that has
	// already been marked paid. Paid occurrences are immutable except for
	// audit fields.
	ErrOccurrencePaid = errors.New("occurrence already paid")

	// ErrAmountFixed is returned when a payment tries to override the
	// amount of a fixed-amount template's occurrence.
	ErrAmountFixed = errors.New("amount overrides require a variable-amount template")

	// ErrDuplicateOccurrence is returned by stores when an occurrence for
	// the same (template, period) pair already exists.
	ErrDuplicateOccurrence = errors.New("occurrence already generated for period")

	ErrOccurrenceNotFound = errors.New("occurrence not found")
)

func (t *Template) Validate() error {
	switch t.Frequency {
	case FrequencyMonthly, FrequencyQuarterly, FrequencyYearly:
	default:
		return fmt.Errorf("%w: unknown frequency %q", ErrInvalidTemplate, t.Frequency)
	}

	switch t.DueDayType {
	case DueDayFixed:
		if t.DueDay < 1 || t.DueDay > 31 {
			return fmt.Errorf("%w: due day %d out of range", ErrInvalidTemplate, t.DueDay)
		}
	case DueDayRange:
		if t.DueDayRangeStart < 1 || t.DueDayRangeEnd > 31 || t.DueDayRangeStart > t.DueDayRangeEnd {
			return fmt.Errorf("%w: due day range %d-%d", ErrInvalidTemplate, t.DueDayRangeStart, t.DueDayRangeEnd)
		}
	default:
		return fmt.Errorf("%w: unknown due day type %q", ErrInvalidTemplate, t.DueDayType)
	}

	switch t.AmountType {
	case AmountFixed, AmountVariable:
	default:
		return fmt.Errorf("%w: unknown amount type %q", ErrInvalidTemplate, t.AmountType)
	}

	if t.StartDate.IsZero() {
		return fmt.Errorf("%w: start date is required", ErrInvalidTemplate)
	}
	if t.EndDate != nil && t.EndDate.Before(t.StartDate) {
		return fmt.Errorf("%w: end date before start date", ErrInvalidTemplate)
	}
	return nil
}

// =============================================================================
// OCCURRENCE
// =============================================================================

type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
)

// Occurrence is a concrete generated instance of a template for one due
// date. Identity is the (TemplateID, PeriodStart) pair; due dates alone
// are not identity, so timezone drift can never duplicate a period.
type Occurrence struct {
	ID          string
	TemplateID  string
	PeriodStart billing.Date // first day of the period, dedup key component
	DueDate     billing.Date

	// Amount may differ from the template estimate for variable-amount
	// templates; corrected at payment time.
	Amount decimal.Decimal

	Status    Status
	PaidDate  *billing.Date
	LedgerRef string // reference to the externally created ledger entry

	CreatedAt time.Time
	UpdatedAt time.Time
}

// MarkPaid transitions an occurrence to paid, linking the external ledger
// entry. A variable-amount template may correct the amount at payment
// time; a fixed-amount template may not. Once paid, the occurrence is
// immutable and a second call fails.
func (t *Template) MarkPaid(o *Occurrence, amount decimal.Decimal, paidAt billing.Date, ledgerRef string) error {
	if o.Status == StatusPaid {
		return ErrOccurrencePaid
	}
	if !amount.IsZero() && !amount.Equal(o.Amount) {
		if t.AmountType != AmountVariable {
			return ErrAmountFixed
		}
		o.Amount = amount
	}
	o.Status = StatusPaid
	o.PaidDate = &paidAt
	o.LedgerRef = ledgerRef
	return nil
}
