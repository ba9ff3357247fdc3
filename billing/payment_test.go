package billing_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdvneltz/FOFENK-sub001/billing"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// threeBy360 builds the canonical 3x360 plan used across payment tests.
func threeBy360(t *testing.T) *billing.Plan {
	t.Helper()
	plan, _, err := billing.BuildPlan(billing.PlanConfig{
		TotalAmount:          money("1080"),
		PaymentType:          billing.PaymentCashInstallment,
		InstallmentCount:     3,
		Frequency:            billing.FrequencyMonthly,
		FirstInstallmentDate: date(2025, time.September, 1),
	}, billing.NoRates)
	require.NoError(t, err)
	return plan
}

func totalPaid(plan *billing.Plan) decimal.Decimal {
	sum := decimal.Zero
	for _, inst := range plan.Installments {
		sum = sum.Add(inst.PaidAmount)
	}
	return sum
}

// =============================================================================
// CASCADE TESTS
// =============================================================================

func TestApplyPayment_ExactAmount(t *testing.T) {
	// GIVEN: A 3x360 plan
	// WHEN: Paying exactly 360 on installment 1
	// THEN: Installment 1 is fully paid with a paid date; nothing cascades

	plan := threeBy360(t)
	paidAt := date(2025, time.September, 1)

	result, err := billing.ApplyPayment(plan, 1, money("360"), paidAt)
	require.NoError(t, err)

	assert.True(t, result.Applied.Equal(money("360")))
	assert.True(t, result.Surplus.IsZero())
	require.Len(t, result.Applications, 1)

	inst := plan.Installment(1)
	assert.True(t, inst.Paid)
	require.NotNil(t, inst.PaidDate)
	assert.True(t, inst.PaidDate.Equal(paidAt))
	assert.False(t, plan.Installment(2).Paid)
}

func TestApplyPayment_OverpaymentCascadesForward(t *testing.T) {
	// GIVEN: A 1080 plan split 290 / 500 / 290 via a custom amount
	// WHEN: Paying 450 targeted at installment 1
	// THEN: Installment 1 takes 290 and is paid; 160 cascades to installment 2

	plan := threeBy360(t)
	_, err := billing.SetCustomAmount(plan, 2, money("500"), billing.NoRates)
	require.NoError(t, err)

	result, err := billing.ApplyPayment(plan, 1, money("450"), date(2025, time.September, 1))
	require.NoError(t, err)

	require.Len(t, result.Applications, 2)
	assert.True(t, result.Applications[0].Applied.Equal(money("290")))
	assert.True(t, result.Applications[1].Applied.Equal(money("160")))

	assert.True(t, plan.Installment(1).Paid)
	assert.False(t, plan.Installment(2).Paid)
	assert.True(t, plan.Installment(2).PaidAmount.Equal(money("160")))
	assert.True(t, plan.Installment(2).Remaining().Equal(money("340")))
	assert.True(t, plan.Installment(3).PaidAmount.IsZero())
}

func TestApplyPayment_SkipsPaidInstallments(t *testing.T) {
	// GIVEN: Installment 1 already paid
	// WHEN: Paying again targeted at installment 1
	// THEN: The cascade skips it and lands on installment 2

	plan := threeBy360(t)
	_, err := billing.ApplyPayment(plan, 1, money("360"), date(2025, time.September, 1))
	require.NoError(t, err)

	result, err := billing.ApplyPayment(plan, 1, money("100"), date(2025, time.September, 15))
	require.NoError(t, err)

	require.Len(t, result.Applications, 1)
	assert.Equal(t, 2, result.Applications[0].Number)
	assert.True(t, plan.Installment(2).PaidAmount.Equal(money("100")))
}

func TestApplyPayment_NeverAppliesBackward(t *testing.T) {
	// GIVEN: A fresh plan
	// WHEN: Paying targeted at installment 2
	// THEN: Installment 1 stays untouched even though it is unpaid

	plan := threeBy360(t)
	result, err := billing.ApplyPayment(plan, 2, money("720"), date(2025, time.October, 1))
	require.NoError(t, err)

	assert.True(t, plan.Installment(1).PaidAmount.IsZero())
	assert.True(t, plan.Installment(2).Paid)
	assert.True(t, plan.Installment(3).Paid)
	assert.True(t, result.Surplus.IsZero())
}

func TestApplyPayment_SurplusBecomesCreditBalance(t *testing.T) {
	// GIVEN: A plan with only 360 remaining on the last installment
	// WHEN: Paying 500 targeted at it
	// THEN: 360 applies, 140 is reported as surplus and kept on the plan

	plan := threeBy360(t)
	result, err := billing.ApplyPayment(plan, 3, money("500"), date(2025, time.November, 1))
	require.NoError(t, err)

	assert.True(t, result.Applied.Equal(money("360")))
	assert.True(t, result.Surplus.Equal(money("140")))
	assert.True(t, plan.CreditBalance.Equal(money("140")))
}

func TestApplyPayment_PartialThenComplete(t *testing.T) {
	// GIVEN: A partial payment of 200 on installment 1
	// WHEN: Paying the remaining 160
	// THEN: The installment transitions to paid; the first paid date is kept

	plan := threeBy360(t)
	firstDay := date(2025, time.September, 1)
	laterDay := date(2025, time.September, 20)

	_, err := billing.ApplyPayment(plan, 1, money("200"), firstDay)
	require.NoError(t, err)
	inst := plan.Installment(1)
	assert.False(t, inst.Paid)
	assert.Nil(t, inst.PaidDate)

	_, err = billing.ApplyPayment(plan, 1, money("160"), laterDay)
	require.NoError(t, err)
	assert.True(t, inst.Paid)
	require.NotNil(t, inst.PaidDate)
	assert.True(t, inst.PaidDate.Equal(laterDay))
}

func TestApplyPayment_CompletesPlan(t *testing.T) {
	// GIVEN: A 3x360 plan
	// WHEN: Paying the full 1080 at once
	// THEN: All installments and the plan itself are complete

	plan := threeBy360(t)
	_, err := billing.ApplyPayment(plan, 1, money("1080"), date(2025, time.September, 1))
	require.NoError(t, err)

	for _, inst := range plan.Installments {
		assert.True(t, inst.Paid, "installment %d", inst.Number)
	}
	assert.True(t, plan.Completed)
	assert.True(t, plan.PaidAmount.Equal(money("1080")))
}

func TestApplyPayment_CompletionIgnoresSurcharges(t *testing.T) {
	// GIVEN: An invoiced single-payment plan of 100 with 10% VAT (owes 110)
	// WHEN: Paying 100, the full discounted base
	// THEN: The plan is complete even though the installment still carries
	//       its unpaid VAT portion

	plan, _, err := billing.BuildPlan(billing.PlanConfig{
		TotalAmount:          money("100"),
		PaymentType:          billing.PaymentCashFull,
		Invoiced:             true,
		FirstInstallmentDate: date(2025, time.September, 1),
	}, testRates())
	require.NoError(t, err)
	require.True(t, plan.GrandTotal.Equal(money("110")))

	_, err = billing.ApplyPayment(plan, 1, money("100"), date(2025, time.September, 1))
	require.NoError(t, err)

	assert.True(t, plan.Completed, "paying the discounted base completes the plan")
	inst := plan.Installment(1)
	assert.False(t, inst.Paid, "the installment total includes VAT and is not settled")
	assert.True(t, inst.Remaining().Equal(money("10")))
}

// =============================================================================
// CONSERVATION AND MONOTONICITY
// =============================================================================

func TestApplyPayment_ConservesMoney(t *testing.T) {
	// GIVEN: A sequence of payments of varying sizes
	// WHEN: Applying them all
	// THEN: Total paid on installments plus credit equals the sum paid in

	plan := threeBy360(t)
	payments := []string{"123.45", "400", "0.01", "700"}
	paidIn := decimal.Zero

	for _, p := range payments {
		result, err := billing.ApplyPayment(plan, 1, money(p), date(2025, time.September, 10))
		require.NoError(t, err)
		paidIn = paidIn.Add(money(p))
		assert.True(t, result.Applied.Add(result.Surplus).Equal(money(p)),
			"applied+surplus must equal the payment")
	}

	assert.True(t, totalPaid(plan).Add(plan.CreditBalance).Equal(paidIn),
		"paid %v + credit %v must equal %v", totalPaid(plan), plan.CreditBalance, paidIn)
}

func TestApplyPayment_PaidNeverReverts(t *testing.T) {
	// GIVEN: Installment 1 paid
	// WHEN: Further payments and plan edits happen
	// THEN: Installment 1 stays paid

	plan := threeBy360(t)
	_, err := billing.ApplyPayment(plan, 1, money("360"), date(2025, time.September, 1))
	require.NoError(t, err)

	_, err = billing.ApplyPayment(plan, 2, money("50"), date(2025, time.October, 1))
	require.NoError(t, err)
	_, err = billing.SetCustomAmount(plan, 3, money("100"), billing.NoRates)
	require.NoError(t, err)

	assert.True(t, plan.Installment(1).Paid)
}

// =============================================================================
// REJECTION TESTS
// =============================================================================

func TestApplyPayment_RejectsNonPositiveAmount(t *testing.T) {
	plan := threeBy360(t)

	for _, amount := range []string{"0", "-10"} {
		_, err := billing.ApplyPayment(plan, 1, money(amount), date(2025, time.September, 1))
		assert.ErrorIs(t, err, billing.ErrInvalidPaymentAmount)
		assert.True(t, billing.IsClientError(err))
	}
	assert.True(t, totalPaid(plan).IsZero(), "rejected payments must not mutate")
}

func TestApplyPayment_RejectsUnknownInstallment(t *testing.T) {
	plan := threeBy360(t)

	_, err := billing.ApplyPayment(plan, 7, money("100"), date(2025, time.September, 1))
	assert.ErrorIs(t, err, billing.ErrInstallmentNotFound)

	var notFound *billing.InstallmentNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, 7, notFound.Number)
	assert.True(t, totalPaid(plan).IsZero(), "rejected payments must not mutate")
}
