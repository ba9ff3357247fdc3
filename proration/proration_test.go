package proration_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rdvneltz/FOFENK-sub001/billing"
	"github.com/rdvneltz/FOFENK-sub001/proration"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func money(s string) decimal.Decimal { return billing.MustParseMoney(s) }

func date(year int, month time.Month, day int) billing.Date {
	return billing.NewDate(year, month, day)
}

func monWed() proration.WeeklySchedule {
	return proration.WeeklySchedule{Days: []time.Weekday{time.Monday, time.Wednesday}}
}

// =============================================================================
// SCHEDULE TESTS
// =============================================================================

func TestWeeklySchedule_OccurrencesInMonth(t *testing.T) {
	// GIVEN: Lessons on Monday and Wednesday
	// WHEN: Counting occurrences in September 2025 (starts on a Monday)
	// THEN: 5 Mondays + 4 Wednesdays = 9 lessons

	lessons := monWed().OccurrencesIn(date(2025, time.September, 1), date(2025, time.September, 30))
	if len(lessons) != 9 {
		t.Errorf("expected 9 lessons in September 2025, got %d", len(lessons))
	}
	if !lessons[0].Equal(date(2025, time.September, 1)) {
		t.Errorf("first lesson should be Sep 1, got %v", lessons[0])
	}
	if !lessons[len(lessons)-1].Equal(date(2025, time.September, 29)) {
		t.Errorf("last lesson should be Sep 29, got %v", lessons[len(lessons)-1])
	}
}

func TestWeeklySchedule_Validate(t *testing.T) {
	if err := (proration.WeeklySchedule{}).Validate(); !errors.Is(err, proration.ErrEmptySchedule) {
		t.Errorf("empty schedule must fail, got %v", err)
	}
	dup := proration.WeeklySchedule{Days: []time.Weekday{time.Monday, time.Monday}}
	if err := dup.Validate(); err == nil {
		t.Error("duplicate weekday must fail")
	}
}

// =============================================================================
// CALCULATOR TESTS
// =============================================================================

func TestCalculate_PartialFirstMonth(t *testing.T) {
	// GIVEN: Mon/Wed lessons, 800/month, enrolling Sep 15 2025 for 4 months
	//   September 2025 Mon/Wed lessons: 1,3,8,10,15,17,22,24,29
	//   Before Sep 15: 4 lessons. On/after Sep 15: 5 lessons.
	// WHEN: Calculating
	// THEN: pricePerLesson = 800/8 = 100; partial first month costs 500;
	//       total 500 + 3*800 = 2900 vs 3200; savings 300

	result, err := proration.Calculate(proration.Input{
		Schedule:       monWed(),
		MonthlyFee:     money("800"),
		EnrollmentDate: date(2025, time.September, 15),
		DurationMonths: 4,
	})
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}

	if !result.Partial {
		t.Fatal("expected a partial first month")
	}
	if result.LessonsBeforeEnrollment != 4 {
		t.Errorf("expected 4 lessons before enrollment, got %d", result.LessonsBeforeEnrollment)
	}
	if result.LessonsAfterEnrollment != 5 {
		t.Errorf("expected 5 lessons after enrollment, got %d", result.LessonsAfterEnrollment)
	}
	if result.LessonsPerMonth != 8 {
		t.Errorf("expected 8 lessons per month (2 weekly x 4), got %d", result.LessonsPerMonth)
	}
	if !result.PricePerLesson.Equal(money("100")) {
		t.Errorf("expected price per lesson 100, got %v", result.PricePerLesson)
	}
	if !result.TotalByMonthly.Equal(money("3200")) {
		t.Errorf("expected monthly total 3200, got %v", result.TotalByMonthly)
	}
	if !result.TotalByPartialFirst.Equal(money("2900")) {
		t.Errorf("expected prorated total 2900, got %v", result.TotalByPartialFirst)
	}
	if !result.Savings.Equal(money("300")) {
		t.Errorf("expected savings 300, got %v", result.Savings)
	}
}

func TestCalculate_EnrollmentOnMonthStartIsNotPartial(t *testing.T) {
	// GIVEN: Enrollment on the first day of the month
	// WHEN: Calculating
	// THEN: Not partial; both totals equal; zero savings

	result, err := proration.Calculate(proration.Input{
		Schedule:       monWed(),
		MonthlyFee:     money("800"),
		EnrollmentDate: date(2025, time.September, 1),
		DurationMonths: 3,
	})
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}

	if result.Partial {
		t.Error("month-start enrollment must not be partial")
	}
	if !result.TotalByPartialFirst.Equal(result.TotalByMonthly) {
		t.Errorf("totals must match when not partial: %v vs %v",
			result.TotalByPartialFirst, result.TotalByMonthly)
	}
	if !result.Savings.IsZero() {
		t.Errorf("expected zero savings, got %v", result.Savings)
	}
}

func TestCalculate_EnrollmentBeforeAllLessonsIsNotPartial(t *testing.T) {
	// GIVEN: Enrollment mid-month but before the month's first lesson
	//   October 2025: first Monday is Oct 6
	// WHEN: Enrolling Oct 3
	// THEN: No lessons are missed, so the month is not partial

	result, err := proration.Calculate(proration.Input{
		Schedule:       proration.WeeklySchedule{Days: []time.Weekday{time.Monday}},
		MonthlyFee:     money("400"),
		EnrollmentDate: date(2025, time.October, 3),
		DurationMonths: 2,
	})
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}

	if result.Partial {
		t.Error("no lessons missed, must not be partial")
	}
	if result.LessonsBeforeEnrollment != 0 {
		t.Errorf("expected 0 lessons before enrollment, got %d", result.LessonsBeforeEnrollment)
	}
}

func TestCalculate_MonthLessonCounts(t *testing.T) {
	// GIVEN: Mon/Wed lessons over 3 billed months from September 2025
	// WHEN: Calculating
	// THEN: Per-month counts follow the calendar, not the 4-week convention

	result, err := proration.Calculate(proration.Input{
		Schedule:       monWed(),
		MonthlyFee:     money("800"),
		EnrollmentDate: date(2025, time.September, 15),
		DurationMonths: 3,
	})
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}

	if len(result.Months) != 3 {
		t.Fatalf("expected 3 months, got %d", len(result.Months))
	}
	// Sep 2025: 9 Mon/Wed. Oct 2025: 4 Mondays + 5 Wednesdays = 9.
	// Nov 2025: 4 + 4 = 8.
	expected := []int{9, 9, 8}
	for i, m := range result.Months {
		if m.Lessons != expected[i] {
			t.Errorf("%s %d: expected %d lessons, got %d", m.Month, m.Year, expected[i], m.Lessons)
		}
	}
}

func TestCalculate_ExplicitBillingStart(t *testing.T) {
	// GIVEN: A billing start anchored to October while enrolling in September
	// WHEN: Calculating 2 months
	// THEN: Billed months are October and November

	result, err := proration.Calculate(proration.Input{
		Schedule:       monWed(),
		MonthlyFee:     money("800"),
		EnrollmentDate: date(2025, time.September, 20),
		DurationMonths: 2,
		BillingStart:   date(2025, time.October, 1),
	})
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}

	if result.Months[0].Month != time.October || result.Months[1].Month != time.November {
		t.Errorf("expected Oct and Nov, got %v and %v", result.Months[0].Month, result.Months[1].Month)
	}
}

func TestCalculate_Deterministic(t *testing.T) {
	// GIVEN: The same input twice
	// WHEN: Calculating
	// THEN: Results are identical

	in := proration.Input{
		Schedule:       monWed(),
		MonthlyFee:     money("650"),
		EnrollmentDate: date(2026, time.March, 10),
		DurationMonths: 6,
	}
	a, err := proration.Calculate(in)
	if err != nil {
		t.Fatalf("first Calculate failed: %v", err)
	}
	b, err := proration.Calculate(in)
	if err != nil {
		t.Fatalf("second Calculate failed: %v", err)
	}

	if !a.TotalByPartialFirst.Equal(b.TotalByPartialFirst) || a.LessonsAfterEnrollment != b.LessonsAfterEnrollment {
		t.Error("same input must give the same result")
	}
}

func TestCalculate_ProratedNeverExceedsMonthly(t *testing.T) {
	// GIVEN: A range of enrollment days across a month
	// WHEN: Calculating each
	// THEN: The prorated option never costs more than the full option

	for day := 1; day <= 28; day++ {
		result, err := proration.Calculate(proration.Input{
			Schedule:       monWed(),
			MonthlyFee:     money("800"),
			EnrollmentDate: date(2025, time.September, day),
			DurationMonths: 3,
		})
		if err != nil {
			t.Fatalf("day %d: Calculate failed: %v", day, err)
		}
		if result.TotalByPartialFirst.GreaterThan(result.TotalByMonthly) {
			t.Errorf("day %d: prorated %v exceeds monthly %v",
				day, result.TotalByPartialFirst, result.TotalByMonthly)
		}
	}
}

func TestCalculate_InputValidation(t *testing.T) {
	cases := []struct {
		name string
		in   proration.Input
		want error
	}{
		{
			name: "empty schedule",
			in:   proration.Input{MonthlyFee: money("100"), EnrollmentDate: date(2025, time.May, 1), DurationMonths: 1},
			want: proration.ErrEmptySchedule,
		},
		{
			name: "zero duration",
			in:   proration.Input{Schedule: monWed(), MonthlyFee: money("100"), EnrollmentDate: date(2025, time.May, 1)},
			want: proration.ErrInvalidDuration,
		},
		{
			name: "missing enrollment",
			in:   proration.Input{Schedule: monWed(), MonthlyFee: money("100"), DurationMonths: 1},
			want: proration.ErrMissingEnrollment,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := proration.Calculate(tc.in); !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}
