/*
generator.go - Occurrence generation and status classification

PURPOSE:
  Steps through calendar periods of a template's frequency and emits
  concrete occurrences for a target date range, skipping periods that were
  already materialized. Re-running generation over an overlapping range is
  idempotent: generating twice over overlapping ranges produces the same
  occurrence set as generating once over the union.

DUE-DATE DERIVATION:
  fixed: the template's due day in the period's month, clamped to the last
         valid day when the month is shorter.
  range: the first day of the due-day window. The window itself is
         display-only; generation commits to one representative date.

TERMINATION:
  Generation stops at template.endDate when set, otherwise at the range
  end. A deactivated template generates nothing; its historical
  occurrences remain queryable.

CLASSIFICATION:
  Buckets are computed at query time, never stored:
    overdue:  due before today, not paid
    thisWeek: due within the next 7 days, not paid
    upcoming: due beyond 7 days, not paid
    paid:     linked payment recorded
  Buckets are mutually exclusive and exhaustive.

SEE ALSO:
  - template.go: Template and Occurrence types
  - store.go: InsertOccurrences enforces the (template, period) unique key
*/
package expenses

import (
	"github.com/shopspring/decimal"

	"github.com/rdvneltz/FOFENK-sub001/billing"
)

// =============================================================================
// PERIOD IDENTITY
// =============================================================================

// PeriodKey is the stable identity of one generated period. Occurrence
// deduplication compares keys, not date strings.
type PeriodKey struct {
	TemplateID  string
	PeriodStart billing.Date
}

func (o Occurrence) Key() PeriodKey {
	return PeriodKey{TemplateID: o.TemplateID, PeriodStart: o.PeriodStart}
}

// =============================================================================
// GENERATION
// =============================================================================

// Generate emits the occurrences of one template whose due dates fall in
// [from, to] and whose periods have no existing occurrence. IDs are
// assigned by newID so the generator itself stays deterministic.
//
// The caller persists the returned occurrences; the store's unique
// (template_id, period_start) index backs this dedup under concurrent
// generate calls.
func Generate(t *Template, existing []Occurrence, from, to billing.Date, newID func() string) ([]Occurrence, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if !t.Active {
		return nil, nil
	}

	seen := make(map[PeriodKey]bool, len(existing))
	for _, o := range existing {
		seen[o.Key()] = true
	}

	end := to
	if t.EndDate != nil && t.EndDate.Before(end) {
		end = *t.EndDate
	}

	step := t.Frequency.MonthsPerPeriod()
	var out []Occurrence

	for periodStart := t.StartDate.StartOfMonth(); periodStart.BeforeOrEqual(end); periodStart = periodStart.AddMonths(step) {
		due := t.dueDateIn(periodStart)
		if due.Before(from) || due.After(end) {
			continue
		}

		key := PeriodKey{TemplateID: t.ID, PeriodStart: periodStart}
		if seen[key] {
			continue
		}

		out = append(out, Occurrence{
			ID:          newID(),
			TemplateID:  t.ID,
			PeriodStart: periodStart,
			DueDate:     due,
			Amount:      t.EstimatedAmount,
			Status:      StatusPending,
		})
	}
	return out, nil
}

// dueDateIn resolves the due date inside the month of a period start.
func (t *Template) dueDateIn(periodStart billing.Date) billing.Date {
	day := t.DueDay
	if t.DueDayType == DueDayRange {
		day = t.DueDayRangeStart
	}
	return billing.ClampDay(periodStart.Year(), periodStart.Month(), day)
}

// =============================================================================
// STATUS CLASSIFICATION
// =============================================================================

type Bucket string

const (
	BucketOverdue  Bucket = "overdue"
	BucketThisWeek Bucket = "this_week"
	BucketUpcoming Bucket = "upcoming"
	BucketPaid     Bucket = "paid"
)

// Classify assigns one occurrence to its dashboard bucket relative to a
// caller-supplied today. Computed at query time, never stored.
func Classify(o Occurrence, today billing.Date) Bucket {
	if o.Status == StatusPaid {
		return BucketPaid
	}
	if o.DueDate.Before(today) {
		return BucketOverdue
	}
	if o.DueDate.BeforeOrEqual(today.AddDays(7)) {
		return BucketThisWeek
	}
	return BucketUpcoming
}

// Dashboard groups occurrences by bucket with per-bucket totals.
type Dashboard struct {
	Overdue  []Occurrence
	ThisWeek []Occurrence
	Upcoming []Occurrence
	Paid     []Occurrence

	OverdueTotal  Amounts
	ThisWeekTotal Amounts
	UpcomingTotal Amounts
	PaidTotal     Amounts
}

// Amounts is a bucket's count and summed amount.
type Amounts struct {
	Count  int
	Amount decimal.Decimal
}

// BuildDashboard classifies all occurrences and sums each bucket.
func BuildDashboard(occurrences []Occurrence, today billing.Date) Dashboard {
	var d Dashboard
	sums := map[Bucket]*bucketSum{
		BucketOverdue:  {},
		BucketThisWeek: {},
		BucketUpcoming: {},
		BucketPaid:     {},
	}

	for _, o := range occurrences {
		b := Classify(o, today)
		sums[b].add(o)
		switch b {
		case BucketOverdue:
			d.Overdue = append(d.Overdue, o)
		case BucketThisWeek:
			d.ThisWeek = append(d.ThisWeek, o)
		case BucketUpcoming:
			d.Upcoming = append(d.Upcoming, o)
		case BucketPaid:
			d.Paid = append(d.Paid, o)
		}
	}

	d.OverdueTotal = sums[BucketOverdue].amounts()
	d.ThisWeekTotal = sums[BucketThisWeek].amounts()
	d.UpcomingTotal = sums[BucketUpcoming].amounts()
	d.PaidTotal = sums[BucketPaid].amounts()
	return d
}

type bucketSum struct {
	count int
	acc   []Occurrence
}

func (b *bucketSum) add(o Occurrence) {
	b.count++
	b.acc = append(b.acc, o)
}

func (b *bucketSum) amounts() Amounts {
	sum := decimal.Zero
	for _, o := range b.acc {
		sum = sum.Add(o.Amount)
	}
	return Amounts{Count: b.count, Amount: sum}
}
