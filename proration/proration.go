/*
Package proration computes partial-first-month pricing for monthly courses.

PURPOSE:
  Given a monthly-priced course's weekly lesson pattern, an enrollment
  date, and a duration in months, computes lesson counts per calendar
  month and offers full-vs-prorated first-month pricing options. The
  chosen option becomes the Plan Builder's totalAmount input.

DETERMINISM:
  Lesson counts are a pure function of the schedule and the calendar.
  Recomputing with the same inputs always yields the same result; the
  only wall-clock use is the caller-supplied default billing start.

PRICING:
  pricePerLesson      = monthlyFee / lessonsPerMonth (4 weeks' worth)
  totalByMonthly      = monthlyFee * duration
  totalByPartialFirst = lessonsAfterEnrollment * pricePerLesson
                        + monthlyFee * (duration - 1)
  savings             = totalByMonthly - totalByPartialFirst

  When the first month is not partial the two options are equal and
  savings is zero.

SEE ALSO:
  - billing/plan.go: Consumes the chosen total as PlanConfig.TotalAmount
*/
package proration

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rdvneltz/FOFENK-sub001/billing"
)

// =============================================================================
// WEEKLY SCHEDULE
// =============================================================================

// WeeklySchedule is a course's weekly lesson pattern: the weekdays on
// which lessons recur. Two lessons on the same weekday are not a thing in
// this system; each weekday appears at most once.
type WeeklySchedule struct {
	Days []time.Weekday
}

var (
	ErrEmptySchedule    = errors.New("schedule has no lesson days")
	ErrInvalidDuration  = errors.New("duration must be at least one month")
	ErrMissingEnrollment = errors.New("enrollment date is required")
)

func (s WeeklySchedule) Validate() error {
	if len(s.Days) == 0 {
		return ErrEmptySchedule
	}
	seen := map[time.Weekday]bool{}
	for _, d := range s.Days {
		if seen[d] {
			return errors.New("duplicate weekday in schedule")
		}
		seen[d] = true
	}
	return nil
}

func (s WeeklySchedule) LessonsPerWeek() int { return len(s.Days) }

// OccurrencesIn returns every scheduled lesson date in [from, to],
// chronologically.
func (s WeeklySchedule) OccurrencesIn(from, to billing.Date) []billing.Date {
	onSchedule := map[time.Weekday]bool{}
	for _, d := range s.Days {
		onSchedule[d] = true
	}

	var out []billing.Date
	for d := from; d.BeforeOrEqual(to); d = d.AddDays(1) {
		if onSchedule[d.Weekday()] {
			out = append(out, d)
		}
	}
	return out
}

// =============================================================================
// CALCULATOR
// =============================================================================

type Input struct {
	Schedule       WeeklySchedule
	MonthlyFee     decimal.Decimal
	EnrollmentDate billing.Date
	DurationMonths int

	// BillingStart anchors the first billed month. Zero value defaults to
	// the first day of the enrollment month.
	BillingStart billing.Date
}

// MonthCount is the lesson count for one billed calendar month.
type MonthCount struct {
	Year    int
	Month   time.Month
	Lessons int
}

type Result struct {
	Months []MonthCount

	// Partial-first-month detection.
	Partial                bool
	LessonsBeforeEnrollment int
	LessonsAfterEnrollment  int

	// Pricing options. When Partial is false the two totals are equal.
	LessonsPerMonth     int
	PricePerLesson      decimal.Decimal
	TotalByMonthly      decimal.Decimal
	TotalByPartialFirst decimal.Decimal
	Savings             decimal.Decimal
}

// Calculate counts lessons per billed month and prices the two first-month
// options. Deterministic for a given schedule and calendar.
func Calculate(in Input) (*Result, error) {
	if err := in.Schedule.Validate(); err != nil {
		return nil, err
	}
	if in.DurationMonths < 1 {
		return nil, ErrInvalidDuration
	}
	if in.EnrollmentDate.IsZero() {
		return nil, ErrMissingEnrollment
	}

	start := in.BillingStart
	if start.IsZero() {
		start = in.EnrollmentDate.StartOfMonth()
	}
	start = start.StartOfMonth()

	res := &Result{
		LessonsPerMonth: in.Schedule.LessonsPerWeek() * 4,
	}

	for i := 0; i < in.DurationMonths; i++ {
		monthStart := start.AddMonths(i)
		lessons := in.Schedule.OccurrencesIn(monthStart, monthStart.EndOfMonth())
		res.Months = append(res.Months, MonthCount{
			Year:    monthStart.Year(),
			Month:   monthStart.Month(),
			Lessons: len(lessons),
		})
	}

	// Partial first month: enrollment falls strictly after the first day
	// of its month and lessons occur both before and after it.
	enrollMonth := in.EnrollmentDate.StartOfMonth()
	if in.EnrollmentDate.After(enrollMonth) {
		for _, lesson := range in.Schedule.OccurrencesIn(enrollMonth, enrollMonth.EndOfMonth()) {
			if lesson.Before(in.EnrollmentDate) {
				res.LessonsBeforeEnrollment++
			} else {
				res.LessonsAfterEnrollment++
			}
		}
		res.Partial = res.LessonsBeforeEnrollment > 0 && res.LessonsAfterEnrollment > 0
	}

	duration := decimal.NewFromInt(int64(in.DurationMonths))
	res.TotalByMonthly = in.MonthlyFee.Mul(duration)

	if res.LessonsPerMonth > 0 {
		res.PricePerLesson = in.MonthlyFee.Div(decimal.NewFromInt(int64(res.LessonsPerMonth)))
	}

	if res.Partial {
		after := decimal.NewFromInt(int64(res.LessonsAfterEnrollment))
		rest := in.MonthlyFee.Mul(duration.Sub(decimal.NewFromInt(1)))
		res.TotalByPartialFirst = after.Mul(res.PricePerLesson).Add(rest)
	} else {
		res.TotalByPartialFirst = res.TotalByMonthly
	}

	res.Savings = res.TotalByMonthly.Sub(res.TotalByPartialFirst)
	return res, nil
}
