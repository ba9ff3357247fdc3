/*
Package billing provides the core billing and proration engine.

PURPOSE:
  This package contains the types and algorithms that turn a course price
  and a set of billing choices into a concrete, auditable set of
  installments, and that apply incoming payments to those installments.
  It is a pure computation library: it receives already-loaded records and
  returns updated records for the caller to persist.

KEY CONCEPTS IN THIS FILE (types.go):
  - Date: A calendar date (day granularity, UTC) used for due dates
  - PaymentMethod: Tagged variant of cash | creditCard{installments}
  - Installment: One scheduled charge within a plan
  - Plan: The full billing arrangement for one enrollment
  - Discount: How the pre-discount price is reduced

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors
  2. Purity: No hidden state between calls; every function takes an
     explicit configuration and returns a new result
  3. Invalid states unrepresentable: a card installment count only exists
     on a credit-card payment method

SEE ALSO:
  - plan.go: Plan construction and installment redistribution
  - payment.go: Payment cascade application
  - rates.go: VAT and commission rate lookup
*/
package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY HELPERS - Single currency, fixed precision
// =============================================================================

// moneyScale is the display precision for all monetary amounts.
const moneyScale = 2

// Tolerance is the accumulated rounding tolerance: installment base amounts
// must sum to the plan base amount within this bound.
var Tolerance = decimal.NewFromFloat(0.01)

func MoneyFromFloat(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }
func MoneyFromInt(v int64) decimal.Decimal     { return decimal.NewFromInt(v) }

// MustParseMoney parses a decimal string, returning zero on failure.
// Intended for constants and test fixtures.
func MustParseMoney(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// RoundMoney rounds to the currency's display precision.
func RoundMoney(d decimal.Decimal) decimal.Decimal { return d.Round(moneyScale) }

// WithinTolerance reports whether two amounts differ by at most Tolerance.
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Tolerance)
}

// =============================================================================
// DATE - Calendar date, day granularity, UTC
// =============================================================================

type Date struct {
	t time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a time to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func Today() Date { return DateOf(time.Now()) }

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// Comparison
func (d Date) Before(other Date) bool        { return d.t.Before(other.t) }
func (d Date) After(other Date) bool         { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool         { return d.t.Equal(other.t) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Arithmetic
func (d Date) AddDays(n int) Date   { return DateOf(d.t.AddDate(0, 0, n)) }
func (d Date) AddMonths(n int) Date { return DateOf(d.t.AddDate(0, n, 0)) }
func (d Date) AddYears(n int) Date  { return DateOf(d.t.AddDate(n, 0, 0)) }

// Properties
func (d Date) Year() int             { return d.t.Year() }
func (d Date) Month() time.Month     { return d.t.Month() }
func (d Date) Day() int              { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }
func (d Date) IsZero() bool          { return d.t.IsZero() }
func (d Date) Time() time.Time       { return d.t }

func (d Date) String() string { return d.t.Format("2006-01-02") }

// StartOfMonth returns the first day of the date's month.
func (d Date) StartOfMonth() Date { return NewDate(d.Year(), d.Month(), 1) }

// EndOfMonth returns the last day of the date's month.
func (d Date) EndOfMonth() Date {
	return NewDate(d.Year(), d.Month(), 1).AddMonths(1).AddDays(-1)
}

// DaysInMonth returns the number of days in the date's month.
func (d Date) DaysInMonth() int { return d.EndOfMonth().Day() }

// ClampDay returns the date in year/month with the requested day, clamped to
// the last valid day when the month is shorter (Jan 31 -> Feb 28).
func ClampDay(year int, month time.Month, day int) Date {
	last := NewDate(year, month, 1).EndOfMonth().Day()
	if day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return NewDate(year, month, day)
}

// =============================================================================
// PAYMENT METHOD - Tagged variant: cash | creditCard{installments}
// =============================================================================

type MethodKind string

const (
	MethodCash       MethodKind = "cash"
	MethodCreditCard MethodKind = "credit_card"
)

// PaymentMethod pairs the method kind with the card network installment
// count. The count is only meaningful for credit cards; Cash() always
// carries zero so the invalid combination cannot be constructed.
type PaymentMethod struct {
	Kind             MethodKind
	CardInstallments int
}

func Cash() PaymentMethod { return PaymentMethod{Kind: MethodCash} }

func CreditCard(installments int) PaymentMethod {
	if installments < 1 {
		installments = 1
	}
	return PaymentMethod{Kind: MethodCreditCard, CardInstallments: installments}
}

func (m PaymentMethod) IsCard() bool { return m.Kind == MethodCreditCard }

// =============================================================================
// DISCOUNT
// =============================================================================

type DiscountType string

const (
	DiscountNone            DiscountType = "none"
	DiscountFullScholarship DiscountType = "full_scholarship"
	DiscountPercentage      DiscountType = "percentage"
	DiscountFixed           DiscountType = "fixed"
)

type Discount struct {
	Type  DiscountType
	Value decimal.Decimal
}

// AmountOn resolves the discount amount for a pre-discount total.
// A fixed discount is NOT clamped here; callers surface a warning when it
// exceeds the total instead of silently normalizing (see plan.go).
func (d Discount) AmountOn(total decimal.Decimal) decimal.Decimal {
	switch d.Type {
	case DiscountFullScholarship:
		return total
	case DiscountPercentage:
		return total.Mul(d.Value).Div(decimal.NewFromInt(100))
	case DiscountFixed:
		return d.Value
	default:
		return decimal.Zero
	}
}

// =============================================================================
// INSTALLMENT - One scheduled charge within a plan
// =============================================================================

type Installment struct {
	Number       int // positive, unique within a plan, defines payment order
	Amount       decimal.Decimal
	DueDate      Date
	Method       PaymentMethod
	Invoiced     bool // VAT is added on top of amount+commission
	CustomAmount bool // human override; protected from redistribution

	// Computed by applyRates; persisted alongside the base amount.
	Commission decimal.Decimal
	VAT        decimal.Decimal
	Total      decimal.Decimal

	// Payment state, mutated only by ApplyPayment.
	PaidAmount decimal.Decimal
	Paid       bool
	PaidDate   *Date
}

// Remaining returns the unpaid portion of the installment total.
func (i *Installment) Remaining() decimal.Decimal {
	return i.Total.Sub(i.PaidAmount)
}

// =============================================================================
// PLAN - The full billing arrangement for one enrollment
// =============================================================================

type Plan struct {
	ID string

	TotalAmount    decimal.Decimal // pre-discount price
	Discount       Discount
	DiscountAmount decimal.Decimal
	BaseAmount     decimal.Decimal // TotalAmount - DiscountAmount

	Installments []Installment

	// Grand totals across installments.
	CommissionTotal decimal.Decimal
	VATTotal        decimal.Decimal
	GrandTotal      decimal.Decimal

	// Payment state.
	PaidAmount    decimal.Decimal
	CreditBalance decimal.Decimal // overpayment surplus beyond the last installment
	Completed     bool

	// Version guards the read-modify-write cycle of payment application.
	// Stores reject a save with a stale version (ErrConcurrentModification).
	Version int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Installment returns the installment with the given number, or nil.
func (p *Plan) Installment(number int) *Installment {
	for idx := range p.Installments {
		if p.Installments[idx].Number == number {
			return &p.Installments[idx]
		}
	}
	return nil
}

// Refresh recomputes grand totals and plan-level payment state from the
// installment list. Call after any installment mutation.
func (p *Plan) Refresh() {
	sumCommission := decimal.Zero
	sumVAT := decimal.Zero
	sumTotal := decimal.Zero
	sumPaid := decimal.Zero
	for idx := range p.Installments {
		inst := &p.Installments[idx]
		sumCommission = sumCommission.Add(inst.Commission)
		sumVAT = sumVAT.Add(inst.VAT)
		sumTotal = sumTotal.Add(inst.Total)
		sumPaid = sumPaid.Add(inst.PaidAmount)
	}
	p.CommissionTotal = sumCommission
	p.VATTotal = sumVAT
	p.GrandTotal = sumTotal
	p.PaidAmount = sumPaid
	// Completion tracks the discounted base: commission and VAT are
	// per-installment surcharges, not part of what the student owes the
	// school to settle the enrollment.
	p.Completed = sumPaid.GreaterThanOrEqual(p.BaseAmount)
}

// =============================================================================
// CONSISTENCY WARNINGS
// =============================================================================

// Warning is a consistency condition that is surfaced rather than silently
// normalized, so the numbers on screen always agree with what is persisted.
type Warning struct {
	Code    string
	Message string
}

const (
	WarnDiscountExceedsTotal = "discount_exceeds_total"
	WarnCustomExceedsBase    = "custom_exceeds_base"
	WarnNonPositiveShare     = "non_positive_share"
)
