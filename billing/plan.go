/*
plan.go - Plan Builder: from billing choices to a finalized installment list

PURPOSE:
  Given a base price, a discount rule, a payment-type choice, and
  per-installment overrides, produces a finalized list of installments
  with commission and VAT applied, plus grand totals.

ALGORITHM OVERVIEW:
  1. Resolve the discount: baseAmount = totalAmount - discountAmount
  2. Generate the installment skeleton (one charge, or N stepped charges)
  3. Apply human overrides; overridden amounts are flagged custom
  4. Redistribute: non-custom installments split the remainder evenly
  5. Apply rates per installment: commission, VAT, total
  6. Refresh plan-level grand totals

REDISTRIBUTION RULE:
  When a human fixes a custom amount on installment i, all other
  installments are recomputed so their amounts are equal and their sum
  equals baseAmount - sum(custom amounts). This re-runs after every
  custom-amount edit and every reset-to-automatic action.

INVARIANT:
  Sum of installment base amounts equals baseAmount within Tolerance.
  The last automatic installment absorbs the rounding remainder.

CONSISTENCY WARNINGS:
  A fixed discount exceeding the total, or custom amounts exceeding the
  base, are surfaced as warnings and propagated as-is. Nothing is clamped
  silently: the caller decides whether to accept negative shares.

SEE ALSO:
  - types.go: Plan, Installment, Discount, Warning
  - rates.go: Commission/VAT lookup
  - payment.go: Applying payments to the built plan
*/
package billing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PLAN CONFIGURATION
// =============================================================================

type PaymentType string

const (
	PaymentCashFull        PaymentType = "cash_full"
	PaymentCreditCard      PaymentType = "credit_card"
	PaymentCashInstallment PaymentType = "cash_installment"
)

type Frequency string

const (
	FrequencyMonthly Frequency = "monthly"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyCustom  Frequency = "custom"
)

// InstallmentOverride carries a human edit to one generated installment.
// Nil fields keep the generated value. A non-nil Amount marks the
// installment as custom and protects it from redistribution.
type InstallmentOverride struct {
	Number   int
	Amount   *decimal.Decimal
	Method   *PaymentMethod
	Invoiced *bool
	DueDate  *Date
}

// PlanConfig is the explicit input to BuildPlan. There is no shared state
// between builder calls; two calls with equal configs yield equal plans.
type PlanConfig struct {
	TotalAmount decimal.Decimal
	Discount    Discount

	PaymentType         PaymentType
	InstallmentCount    int       // cash_installment only
	Frequency           Frequency // cash_installment only
	CustomFrequencyDays int       // frequency=custom only

	FirstInstallmentDate Date
	PaymentDate          Date // credit_card single-charge date; falls back to FirstInstallmentDate

	Method   PaymentMethod // default method for generated installments
	Invoiced bool          // default isInvoiced for generated installments

	Overrides []InstallmentOverride
}

func (cfg *PlanConfig) validate() error {
	if cfg.TotalAmount.IsNegative() {
		return ErrInvalidTotalAmount
	}
	switch cfg.PaymentType {
	case PaymentCashFull, PaymentCreditCard:
		// single charge, nothing more to check
	case PaymentCashInstallment:
		if cfg.InstallmentCount < 1 {
			return ErrInvalidInstallmentCount
		}
		switch cfg.Frequency {
		case FrequencyMonthly, FrequencyWeekly:
		case FrequencyCustom:
			if cfg.CustomFrequencyDays < 1 {
				return ErrInvalidFrequency
			}
		default:
			return ErrInvalidFrequency
		}
	default:
		return fmt.Errorf("unknown payment type %q", cfg.PaymentType)
	}
	return nil
}

// method resolves the default payment method for generated installments.
// A credit-card plan always carries a card method, even if the caller left
// the method zero-valued.
func (cfg *PlanConfig) method() PaymentMethod {
	if cfg.PaymentType == PaymentCreditCard {
		if cfg.Method.IsCard() {
			return cfg.Method
		}
		return CreditCard(1)
	}
	if cfg.Method.Kind == "" {
		return Cash()
	}
	return cfg.Method
}

// =============================================================================
// PLAN BUILDER
// =============================================================================

// BuildPlan produces a finalized plan from an explicit configuration.
// Returned warnings flag consistency conditions (discount exceeding total,
// custom amounts exceeding base) that were propagated rather than clamped.
func BuildPlan(cfg PlanConfig, rates RateProvider) (*Plan, []Warning, error) {
	if err := cfg.validate(); err != nil {
		return nil, nil, err
	}

	var warnings []Warning

	discountAmount := cfg.Discount.AmountOn(cfg.TotalAmount)
	if discountAmount.GreaterThan(cfg.TotalAmount) {
		warnings = append(warnings, Warning{
			Code: WarnDiscountExceedsTotal,
			Message: fmt.Sprintf("discount %v exceeds total %v; base amount is negative",
				discountAmount, cfg.TotalAmount),
		})
	}
	baseAmount := cfg.TotalAmount.Sub(discountAmount)

	plan := &Plan{
		TotalAmount:    cfg.TotalAmount,
		Discount:       cfg.Discount,
		DiscountAmount: discountAmount,
		BaseAmount:     baseAmount,
		Installments:   generateInstallments(cfg),
		Version:        1,
	}

	applyOverrides(plan, cfg.Overrides)
	warnings = append(warnings, Redistribute(plan.Installments, baseAmount)...)

	for idx := range plan.Installments {
		applyRates(&plan.Installments[idx], rates)
	}
	plan.Refresh()

	return plan, warnings, nil
}

// generateInstallments creates the installment skeleton with due dates.
// Amounts are assigned afterwards by Redistribute.
func generateInstallments(cfg PlanConfig) []Installment {
	method := cfg.method()

	switch cfg.PaymentType {
	case PaymentCashFull:
		return []Installment{{
			Number:   1,
			DueDate:  cfg.FirstInstallmentDate,
			Method:   method,
			Invoiced: cfg.Invoiced,
		}}

	case PaymentCreditCard:
		due := cfg.PaymentDate
		if due.IsZero() {
			due = cfg.FirstInstallmentDate
		}
		return []Installment{{
			Number:   1,
			DueDate:  due,
			Method:   method,
			Invoiced: cfg.Invoiced,
		}}

	default: // PaymentCashInstallment, validated upstream
		installments := make([]Installment, cfg.InstallmentCount)
		for i := 0; i < cfg.InstallmentCount; i++ {
			installments[i] = Installment{
				Number:   i + 1,
				DueDate:  stepDueDate(cfg.FirstInstallmentDate, cfg.Frequency, cfg.CustomFrequencyDays, i),
				Method:   method,
				Invoiced: cfg.Invoiced,
			}
		}
		return installments
	}
}

// stepDueDate advances the first due date by step periods of the frequency.
// Step 0 is the first installment date itself.
func stepDueDate(first Date, freq Frequency, customDays, step int) Date {
	switch freq {
	case FrequencyWeekly:
		return first.AddDays(7 * step)
	case FrequencyCustom:
		return first.AddDays(customDays * step)
	default:
		return first.AddMonths(step)
	}
}

func applyOverrides(plan *Plan, overrides []InstallmentOverride) {
	for _, ov := range overrides {
		inst := plan.Installment(ov.Number)
		if inst == nil {
			continue
		}
		if ov.Amount != nil {
			inst.Amount = *ov.Amount
			inst.CustomAmount = true
		}
		if ov.Method != nil {
			inst.Method = *ov.Method
		}
		if ov.Invoiced != nil {
			inst.Invoiced = *ov.Invoiced
		}
		if ov.DueDate != nil {
			inst.DueDate = *ov.DueDate
		}
	}
}

// =============================================================================
// REDISTRIBUTION
// =============================================================================

// Redistribute recomputes every non-custom installment so the amounts are
// equal and the full list sums to baseAmount. Custom amounts are fixed;
// the last automatic installment absorbs the rounding remainder so the sum
// is exact.
//
// Warnings are returned when the custom amounts leave a negative or zero
// pool for the automatic installments. The negative shares are still
// written: surfacing beats silent normalization.
func Redistribute(installments []Installment, baseAmount decimal.Decimal) []Warning {
	customSum := decimal.Zero
	var autos []*Installment
	for idx := range installments {
		if installments[idx].CustomAmount {
			customSum = customSum.Add(installments[idx].Amount)
		} else {
			autos = append(autos, &installments[idx])
		}
	}

	pool := baseAmount.Sub(customSum)

	var warnings []Warning
	if len(autos) == 0 {
		if !WithinTolerance(customSum, baseAmount) {
			warnings = append(warnings, Warning{
				Code: WarnCustomExceedsBase,
				Message: fmt.Sprintf("custom amounts sum to %v but base amount is %v",
					customSum, baseAmount),
			})
		}
		return warnings
	}

	if pool.IsNegative() {
		warnings = append(warnings, Warning{
			Code: WarnCustomExceedsBase,
			Message: fmt.Sprintf("custom amounts %v exceed base amount %v",
				customSum, baseAmount),
		})
	}

	share := RoundMoney(pool.Div(decimal.NewFromInt(int64(len(autos)))))
	if !share.IsPositive() && customSum.IsPositive() {
		warnings = append(warnings, Warning{
			Code:    WarnNonPositiveShare,
			Message: fmt.Sprintf("automatic installments receive a non-positive share of %v", share),
		})
	}

	for i, inst := range autos {
		if i == len(autos)-1 {
			// remainder keeps the sum exact
			used := share.Mul(decimal.NewFromInt(int64(len(autos) - 1)))
			inst.Amount = pool.Sub(used)
		} else {
			inst.Amount = share
		}
	}
	return warnings
}

// =============================================================================
// PER-INSTALLMENT FINANCIAL COMPUTATION
// =============================================================================

// applyRates computes commission, VAT, and total for one installment.
// Applies independently to each installment after amounts are fixed.
func applyRates(inst *Installment, rates RateProvider) {
	hundred := decimal.NewFromInt(100)

	commission := decimal.Zero
	if inst.Method.IsCard() {
		rate := rates.CommissionRate(inst.Method.CardInstallments)
		commission = RoundMoney(inst.Amount.Mul(rate).Div(hundred))
	}

	subtotal := inst.Amount.Add(commission)

	vat := decimal.Zero
	if inst.Invoiced {
		vat = RoundMoney(subtotal.Mul(rates.VATRate()).Div(hundred))
	}

	inst.Commission = commission
	inst.VAT = vat
	inst.Total = subtotal.Add(vat)
}

// =============================================================================
// PLAN EDITS - Each re-runs redistribution and rate application
// =============================================================================

// SetCustomAmount fixes a custom amount on one installment and
// redistributes the remainder across the automatic installments.
func SetCustomAmount(plan *Plan, number int, amount decimal.Decimal, rates RateProvider) ([]Warning, error) {
	inst := plan.Installment(number)
	if inst == nil {
		return nil, &InstallmentNotFoundError{PlanID: plan.ID, Number: number}
	}
	inst.Amount = amount
	inst.CustomAmount = true

	warnings := Redistribute(plan.Installments, plan.BaseAmount)
	for idx := range plan.Installments {
		applyRates(&plan.Installments[idx], rates)
	}
	plan.Refresh()
	return warnings, nil
}

// ResetCustomAmount clears the custom flag on one installment, re-entering
// it into the redistribution pool.
func ResetCustomAmount(plan *Plan, number int, rates RateProvider) ([]Warning, error) {
	inst := plan.Installment(number)
	if inst == nil {
		return nil, &InstallmentNotFoundError{PlanID: plan.ID, Number: number}
	}
	inst.CustomAmount = false

	warnings := Redistribute(plan.Installments, plan.BaseAmount)
	for idx := range plan.Installments {
		applyRates(&plan.Installments[idx], rates)
	}
	plan.Refresh()
	return warnings, nil
}

// UpdatePlanTotals changes the pre-discount total and discount of an
// existing plan and recomputes the automatic installment amounts. Custom
// flags are preserved. The edit is rejected when the new base amount falls
// below what has already been paid; a plan carrying payment history is
// never silently shrunk.
func UpdatePlanTotals(plan *Plan, totalAmount decimal.Decimal, discount Discount, rates RateProvider) ([]Warning, error) {
	if totalAmount.IsNegative() {
		return nil, ErrInvalidTotalAmount
	}

	var warnings []Warning
	discountAmount := discount.AmountOn(totalAmount)
	if discountAmount.GreaterThan(totalAmount) {
		warnings = append(warnings, Warning{
			Code: WarnDiscountExceedsTotal,
			Message: fmt.Sprintf("discount %v exceeds total %v; base amount is negative",
				discountAmount, totalAmount),
		})
	}
	baseAmount := totalAmount.Sub(discountAmount)

	if baseAmount.LessThan(plan.PaidAmount) {
		return nil, &ShrinkBelowPaidError{PlanID: plan.ID, NewBase: baseAmount, PaidAmount: plan.PaidAmount}
	}

	plan.TotalAmount = totalAmount
	plan.Discount = discount
	plan.DiscountAmount = discountAmount
	plan.BaseAmount = baseAmount

	warnings = append(warnings, Redistribute(plan.Installments, baseAmount)...)
	for idx := range plan.Installments {
		applyRates(&plan.Installments[idx], rates)
	}
	plan.Refresh()
	return warnings, nil
}
