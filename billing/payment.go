/*
payment.go - Payment Applicator: forward cascade over installments

PURPOSE:
  Distributes an incoming payment across the target installment and any
  later unpaid installments. A payment never applies backward; anything
  left over after the last installment is reported as surplus and kept on
  the plan as a credit balance, never silently discarded.

CASCADE ALGORITHM:
  Starting at the target installment and proceeding forward in payment
  order:
    1. remaining = total - paidAmount; skip if nothing remains
    2. applied  = min(left, remaining)
    3. paidAmount += applied; left -= applied
    4. first transition to fully paid sets paidDate; it is never
       overwritten afterward
    5. stop when left reaches zero or the list is exhausted

GUARANTEES:
  - Conservation: sum of paidAmount deltas equals the amount consumed
  - Monotonicity: a paid installment never reverts to unpaid
  - No mutation on rejected input (bad amount, unknown installment)

CONCURRENCY:
  The read-modify-write cycle around this function must be serialized per
  plan. Callers load the plan, apply the payment, and save it back with an
  optimistic version check; a stale version yields
  ErrConcurrentModification and the caller retries with fresh data.

SEE ALSO:
  - plan.go: Builds the installment list this operates on
  - store/sqlite: Version-checked plan persistence
*/
package billing

import "github.com/shopspring/decimal"

// =============================================================================
// PAYMENT RESULT
// =============================================================================

// Application records how much of a payment landed on one installment.
type Application struct {
	Number  int
	Applied decimal.Decimal
}

// PaymentResult reports the outcome of one cascade.
type PaymentResult struct {
	Applied      decimal.Decimal // total consumed by installments
	Surplus      decimal.Decimal // left over beyond the last installment
	Applications []Application   // per-installment breakdown, in cascade order
}

// =============================================================================
// PAYMENT APPLICATION
// =============================================================================

// ApplyPayment applies a payment targeted at one installment, cascading
// forward across later unpaid installments. Surplus beyond the last
// installment is added to the plan's credit balance.
//
// The plan is not mutated when the amount is non-positive or the target
// installment does not exist.
func ApplyPayment(plan *Plan, targetNumber int, amount decimal.Decimal, paidAt Date) (*PaymentResult, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidPaymentAmount
	}

	start := -1
	for idx := range plan.Installments {
		if plan.Installments[idx].Number == targetNumber {
			start = idx
			break
		}
	}
	if start < 0 {
		return nil, &InstallmentNotFoundError{PlanID: plan.ID, Number: targetNumber}
	}

	result := &PaymentResult{}
	left := amount

	for idx := start; idx < len(plan.Installments) && left.IsPositive(); idx++ {
		inst := &plan.Installments[idx]

		remaining := inst.Remaining()
		if !remaining.IsPositive() {
			continue
		}

		applied := decimal.Min(left, remaining)
		inst.PaidAmount = inst.PaidAmount.Add(applied)
		left = left.Sub(applied)

		result.Applied = result.Applied.Add(applied)
		result.Applications = append(result.Applications, Application{
			Number:  inst.Number,
			Applied: applied,
		})

		if inst.PaidAmount.GreaterThanOrEqual(inst.Total) {
			inst.Paid = true
			if inst.PaidDate == nil {
				d := paidAt
				inst.PaidDate = &d
			}
		}
	}

	result.Surplus = left
	if left.IsPositive() {
		plan.CreditBalance = plan.CreditBalance.Add(left)
	}

	plan.Refresh()
	return result, nil
}
