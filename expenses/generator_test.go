package expenses_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rdvneltz/FOFENK-sub001/billing"
	"github.com/rdvneltz/FOFENK-sub001/expenses"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func money(s string) decimal.Decimal { return billing.MustParseMoney(s) }

func date(year int, month time.Month, day int) billing.Date {
	return billing.NewDate(year, month, day)
}

// sequentialIDs returns a deterministic ID generator.
func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("occ-%d", n)
	}
}

func rentTemplate() *expenses.Template {
	return &expenses.Template{
		ID:              "tpl-rent",
		Name:            "Studio rent",
		Frequency:       expenses.FrequencyMonthly,
		DueDayType:      expenses.DueDayFixed,
		DueDay:          5,
		AmountType:      expenses.AmountFixed,
		EstimatedAmount: money("1500"),
		StartDate:       date(2025, time.January, 1),
		Active:          true,
	}
}

// =============================================================================
// GENERATION TESTS
// =============================================================================

func TestGenerate_MonthlyFixedDay(t *testing.T) {
	// GIVEN: Monthly rent due on the 5th, starting January 2025
	// WHEN: Generating for Q1 2025
	// THEN: Three occurrences due Jan 5, Feb 5, Mar 5

	occurrences, err := expenses.Generate(rentTemplate(), nil,
		date(2025, time.January, 1), date(2025, time.March, 31), sequentialIDs())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if len(occurrences) != 3 {
		t.Fatalf("expected 3 occurrences, got %d", len(occurrences))
	}
	expectedDue := []billing.Date{
		date(2025, time.January, 5),
		date(2025, time.February, 5),
		date(2025, time.March, 5),
	}
	for i, o := range occurrences {
		if !o.DueDate.Equal(expectedDue[i]) {
			t.Errorf("occurrence %d: expected due %v, got %v", i, expectedDue[i], o.DueDate)
		}
		if !o.Amount.Equal(money("1500")) {
			t.Errorf("occurrence %d: expected amount 1500, got %v", i, o.Amount)
		}
		if o.Status != expenses.StatusPending {
			t.Errorf("occurrence %d: expected pending, got %v", i, o.Status)
		}
	}
}

func TestGenerate_IdempotentOverOverlappingRanges(t *testing.T) {
	// GIVEN: Occurrences already generated for Jan-Mar
	// WHEN: Generating again for Jan-Apr
	// THEN: Only April is emitted; generating twice over overlapping ranges
	//       equals generating once over the union

	tpl := rentTemplate()
	first, err := expenses.Generate(tpl, nil,
		date(2025, time.January, 1), date(2025, time.March, 31), sequentialIDs())
	if err != nil {
		t.Fatalf("first Generate failed: %v", err)
	}

	second, err := expenses.Generate(tpl, first,
		date(2025, time.January, 1), date(2025, time.April, 30), sequentialIDs())
	if err != nil {
		t.Fatalf("second Generate failed: %v", err)
	}

	if len(second) != 1 {
		t.Fatalf("expected only April, got %d occurrences", len(second))
	}
	if !second[0].DueDate.Equal(date(2025, time.April, 5)) {
		t.Errorf("expected due Apr 5, got %v", second[0].DueDate)
	}
	if !second[0].PeriodStart.Equal(date(2025, time.April, 1)) {
		t.Errorf("expected period start Apr 1, got %v", second[0].PeriodStart)
	}
}

func TestGenerate_Day31ClampsToShortMonths(t *testing.T) {
	// GIVEN: A template due on the 31st
	// WHEN: Generating across Jan-Apr 2025
	// THEN: Jan 31, Feb 28, Mar 31, Apr 30

	tpl := rentTemplate()
	tpl.DueDay = 31

	occurrences, err := expenses.Generate(tpl, nil,
		date(2025, time.January, 1), date(2025, time.April, 30), sequentialIDs())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	expectedDue := []billing.Date{
		date(2025, time.January, 31),
		date(2025, time.February, 28),
		date(2025, time.March, 31),
		date(2025, time.April, 30),
	}
	if len(occurrences) != len(expectedDue) {
		t.Fatalf("expected %d occurrences, got %d", len(expectedDue), len(occurrences))
	}
	for i, o := range occurrences {
		if !o.DueDate.Equal(expectedDue[i]) {
			t.Errorf("occurrence %d: expected %v, got %v", i, expectedDue[i], o.DueDate)
		}
	}
}

func TestGenerate_RangeDueDayUsesWindowStart(t *testing.T) {
	// GIVEN: A utility bill due between the 10th and 15th
	// WHEN: Generating one month
	// THEN: The committed due date is the window start

	tpl := rentTemplate()
	tpl.DueDayType = expenses.DueDayRange
	tpl.DueDay = 0
	tpl.DueDayRangeStart = 10
	tpl.DueDayRangeEnd = 15

	occurrences, err := expenses.Generate(tpl, nil,
		date(2025, time.January, 1), date(2025, time.January, 31), sequentialIDs())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(occurrences) != 1 {
		t.Fatalf("expected 1 occurrence, got %d", len(occurrences))
	}
	if !occurrences[0].DueDate.Equal(date(2025, time.January, 10)) {
		t.Errorf("expected due Jan 10, got %v", occurrences[0].DueDate)
	}
}

func TestGenerate_QuarterlyAndYearly(t *testing.T) {
	// GIVEN: Quarterly insurance and yearly license fee templates
	// WHEN: Generating a full year
	// THEN: 4 quarterly and 1 yearly occurrence

	quarterly := rentTemplate()
	quarterly.ID = "tpl-insurance"
	quarterly.Frequency = expenses.FrequencyQuarterly

	occurrences, err := expenses.Generate(quarterly, nil,
		date(2025, time.January, 1), date(2025, time.December, 31), sequentialIDs())
	if err != nil {
		t.Fatalf("quarterly Generate failed: %v", err)
	}
	if len(occurrences) != 4 {
		t.Fatalf("expected 4 quarterly occurrences, got %d", len(occurrences))
	}
	if !occurrences[1].PeriodStart.Equal(date(2025, time.April, 1)) {
		t.Errorf("expected second period Apr 1, got %v", occurrences[1].PeriodStart)
	}

	yearly := rentTemplate()
	yearly.ID = "tpl-license"
	yearly.Frequency = expenses.FrequencyYearly

	occurrences, err = expenses.Generate(yearly, nil,
		date(2025, time.January, 1), date(2025, time.December, 31), sequentialIDs())
	if err != nil {
		t.Fatalf("yearly Generate failed: %v", err)
	}
	if len(occurrences) != 1 {
		t.Fatalf("expected 1 yearly occurrence, got %d", len(occurrences))
	}
}

func TestGenerate_StopsAtEndDate(t *testing.T) {
	// GIVEN: A template ending Feb 28 2025
	// WHEN: Generating through June
	// THEN: Nothing past February is emitted

	tpl := rentTemplate()
	end := date(2025, time.February, 28)
	tpl.EndDate = &end

	occurrences, err := expenses.Generate(tpl, nil,
		date(2025, time.January, 1), date(2025, time.June, 30), sequentialIDs())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(occurrences) != 2 {
		t.Fatalf("expected 2 occurrences, got %d", len(occurrences))
	}
	last := occurrences[len(occurrences)-1]
	if last.DueDate.After(end) {
		t.Errorf("occurrence due %v is past the end date", last.DueDate)
	}
}

func TestGenerate_InactiveTemplateGeneratesNothing(t *testing.T) {
	tpl := rentTemplate()
	tpl.Active = false

	occurrences, err := expenses.Generate(tpl, nil,
		date(2025, time.January, 1), date(2025, time.December, 31), sequentialIDs())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(occurrences) != 0 {
		t.Errorf("inactive template must generate nothing, got %d", len(occurrences))
	}
}

func TestGenerate_RejectsInvalidTemplate(t *testing.T) {
	tpl := rentTemplate()
	tpl.DueDay = 40

	_, err := expenses.Generate(tpl, nil,
		date(2025, time.January, 1), date(2025, time.March, 31), sequentialIDs())
	if !errors.Is(err, expenses.ErrInvalidTemplate) {
		t.Errorf("expected ErrInvalidTemplate, got %v", err)
	}
}

// =============================================================================
// PAYMENT TESTS
// =============================================================================

func TestMarkPaid_LinksLedgerAndIsImmutable(t *testing.T) {
	// GIVEN: A pending occurrence
	// WHEN: Marking it paid with a ledger reference
	// THEN: Status flips once; a second attempt fails

	tpl := rentTemplate()
	o := &expenses.Occurrence{
		ID: "occ-1", TemplateID: tpl.ID,
		PeriodStart: date(2025, time.January, 1),
		DueDate:     date(2025, time.January, 5),
		Amount:      money("1500"),
		Status:      expenses.StatusPending,
	}

	paidAt := date(2025, time.January, 4)
	if err := tpl.MarkPaid(o, decimal.Zero, paidAt, "ledger-42"); err != nil {
		t.Fatalf("MarkPaid failed: %v", err)
	}

	if o.Status != expenses.StatusPaid {
		t.Errorf("expected paid status, got %v", o.Status)
	}
	if o.LedgerRef != "ledger-42" {
		t.Errorf("expected ledger ref, got %q", o.LedgerRef)
	}
	if o.PaidDate == nil || !o.PaidDate.Equal(paidAt) {
		t.Errorf("expected paid date %v, got %v", paidAt, o.PaidDate)
	}

	err := tpl.MarkPaid(o, decimal.Zero, paidAt, "ledger-43")
	if !errors.Is(err, expenses.ErrOccurrencePaid) {
		t.Errorf("expected ErrOccurrencePaid, got %v", err)
	}
	if o.LedgerRef != "ledger-42" {
		t.Error("paid occurrence must stay immutable")
	}
}

func TestMarkPaid_AmountOverrideRules(t *testing.T) {
	// GIVEN: Fixed- and variable-amount templates
	// WHEN: Paying with a corrected amount
	// THEN: Variable accepts it, fixed rejects it

	variable := rentTemplate()
	variable.AmountType = expenses.AmountVariable
	o := &expenses.Occurrence{
		ID: "occ-v", TemplateID: variable.ID,
		PeriodStart: date(2025, time.January, 1),
		Amount:      money("1500"),
		Status:      expenses.StatusPending,
	}
	if err := variable.MarkPaid(o, money("1623.80"), date(2025, time.January, 5), "ledger-1"); err != nil {
		t.Fatalf("variable MarkPaid failed: %v", err)
	}
	if !o.Amount.Equal(money("1623.80")) {
		t.Errorf("expected corrected amount, got %v", o.Amount)
	}

	fixed := rentTemplate()
	o2 := &expenses.Occurrence{
		ID: "occ-f", TemplateID: fixed.ID,
		PeriodStart: date(2025, time.February, 1),
		Amount:      money("1500"),
		Status:      expenses.StatusPending,
	}
	err := fixed.MarkPaid(o2, money("1600"), date(2025, time.February, 5), "ledger-2")
	if !errors.Is(err, expenses.ErrAmountFixed) {
		t.Errorf("expected ErrAmountFixed, got %v", err)
	}
	if o2.Status != expenses.StatusPending {
		t.Error("rejected payment must not mutate the occurrence")
	}
}

// =============================================================================
// CLASSIFICATION TESTS
// =============================================================================

func TestClassify_Buckets(t *testing.T) {
	today := date(2025, time.June, 15)
	pending := func(due billing.Date) expenses.Occurrence {
		return expenses.Occurrence{DueDate: due, Status: expenses.StatusPending}
	}

	cases := []struct {
		name string
		o    expenses.Occurrence
		want expenses.Bucket
	}{
		{"due yesterday", pending(date(2025, time.June, 14)), expenses.BucketOverdue},
		{"due today", pending(today), expenses.BucketThisWeek},
		{"due in 7 days", pending(date(2025, time.June, 22)), expenses.BucketThisWeek},
		{"due in 8 days", pending(date(2025, time.June, 23)), expenses.BucketUpcoming},
		{"paid long overdue", expenses.Occurrence{DueDate: date(2025, time.January, 1), Status: expenses.StatusPaid}, expenses.BucketPaid},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := expenses.Classify(tc.o, today); got != tc.want {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestBuildDashboard_SumsBuckets(t *testing.T) {
	// GIVEN: Occurrences spread across all four buckets
	// WHEN: Building the dashboard
	// THEN: Counts and amount sums are per bucket

	today := date(2025, time.June, 15)
	occurrences := []expenses.Occurrence{
		{ID: "a", DueDate: date(2025, time.June, 1), Amount: money("100"), Status: expenses.StatusPending},
		{ID: "b", DueDate: date(2025, time.June, 10), Amount: money("50.50"), Status: expenses.StatusPending},
		{ID: "c", DueDate: date(2025, time.June, 18), Amount: money("200"), Status: expenses.StatusPending},
		{ID: "d", DueDate: date(2025, time.July, 20), Amount: money("75"), Status: expenses.StatusPending},
		{ID: "e", DueDate: date(2025, time.May, 5), Amount: money("1500"), Status: expenses.StatusPaid},
	}

	d := expenses.BuildDashboard(occurrences, today)

	if d.OverdueTotal.Count != 2 || !d.OverdueTotal.Amount.Equal(money("150.50")) {
		t.Errorf("overdue: expected 2 / 150.50, got %d / %v", d.OverdueTotal.Count, d.OverdueTotal.Amount)
	}
	if d.ThisWeekTotal.Count != 1 || !d.ThisWeekTotal.Amount.Equal(money("200")) {
		t.Errorf("this week: expected 1 / 200, got %d / %v", d.ThisWeekTotal.Count, d.ThisWeekTotal.Amount)
	}
	if d.UpcomingTotal.Count != 1 || !d.UpcomingTotal.Amount.Equal(money("75")) {
		t.Errorf("upcoming: expected 1 / 75, got %d / %v", d.UpcomingTotal.Count, d.UpcomingTotal.Amount)
	}
	if d.PaidTotal.Count != 1 || !d.PaidTotal.Amount.Equal(money("1500")) {
		t.Errorf("paid: expected 1 / 1500, got %d / %v", d.PaidTotal.Count, d.PaidTotal.Amount)
	}

	total := len(d.Overdue) + len(d.ThisWeek) + len(d.Upcoming) + len(d.Paid)
	if total != len(occurrences) {
		t.Errorf("buckets must partition the input: %d vs %d", total, len(occurrences))
	}
}
