/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements billing.PlanStore, billing.RateStore, expenses.TemplateStore,
  and expenses.OccurrenceStore using SQLite. In production the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  plans:               Plan-level totals and payment state, versioned
  installments:        One row per scheduled charge, keyed (plan_id, number)
  institution_rates:   VAT rate + commission table per institution
  expense_templates:   Recurring obligations
  expense_occurrences: Materialized instances, unique per (template, period)

OPTIMISTIC CONCURRENCY:
  Plan updates run UPDATE ... SET version = version + 1 WHERE id = ? AND
  version = ?. Zero affected rows on an existing plan means another writer
  got there first: the save fails with billing.ErrConcurrentModification
  and nothing is written. This serializes the payment cascade's
  read-modify-write cycle per plan.

DEDUPLICATION:
  idx_occurrences_period (template_id, period_start UNIQUE) backs the
  generator's idempotency: two concurrent generate calls cannot both
  insert the same period.

MONEY REPRESENTATION:
  Monetary amounts are stored as decimal strings (TEXT), never floats.
  Dates are stored as YYYY-MM-DD strings.

WAL MODE:
  SQLite is opened with WAL for better concurrency: multiple readers
  don't block, single writer at a time.

SEE ALSO:
  - billing/store.go, expenses/store.go: Interface definitions
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/rdvneltz/FOFENK-sub001/billing"
	"github.com/rdvneltz/FOFENK-sub001/expenses"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
}

var (
	_ billing.PlanStore        = (*Store)(nil)
	_ billing.RateStore        = (*Store)(nil)
	_ expenses.TemplateStore   = (*Store)(nil)
	_ expenses.OccurrenceStore = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS plans (
		id TEXT PRIMARY KEY,
		total_amount TEXT NOT NULL,
		discount_type TEXT NOT NULL,
		discount_value TEXT NOT NULL,
		discount_amount TEXT NOT NULL,
		base_amount TEXT NOT NULL,
		paid_amount TEXT NOT NULL,
		credit_balance TEXT NOT NULL,
		completed BOOLEAN NOT NULL DEFAULT FALSE,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS installments (
		plan_id TEXT NOT NULL REFERENCES plans(id),
		number INTEGER NOT NULL,
		amount TEXT NOT NULL,
		due_date TEXT NOT NULL,
		method_kind TEXT NOT NULL,
		card_installments INTEGER NOT NULL DEFAULT 0,
		invoiced BOOLEAN NOT NULL DEFAULT FALSE,
		custom_amount BOOLEAN NOT NULL DEFAULT FALSE,
		commission TEXT NOT NULL,
		vat TEXT NOT NULL,
		total TEXT NOT NULL,
		paid_amount TEXT NOT NULL,
		paid BOOLEAN NOT NULL DEFAULT FALSE,
		paid_date TEXT,
		PRIMARY KEY (plan_id, number)
	);

	CREATE INDEX IF NOT EXISTS idx_installments_due
		ON installments(due_date);

	CREATE TABLE IF NOT EXISTS institution_rates (
		institution_id TEXT PRIMARY KEY,
		vat_rate TEXT NOT NULL,
		default_commission TEXT NOT NULL,
		commission_json TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS expense_templates (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		frequency TEXT NOT NULL,
		due_day_type TEXT NOT NULL,
		due_day INTEGER NOT NULL DEFAULT 0,
		due_day_range_start INTEGER NOT NULL DEFAULT 0,
		due_day_range_end INTEGER NOT NULL DEFAULT 0,
		amount_type TEXT NOT NULL,
		estimated_amount TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS expense_occurrences (
		id TEXT PRIMARY KEY,
		template_id TEXT NOT NULL REFERENCES expense_templates(id),
		period_start TEXT NOT NULL,
		due_date TEXT NOT NULL,
		amount TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		paid_date TEXT,
		ledger_ref TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- CRITICAL: one occurrence per (template, period). This is what keeps
	-- generation idempotent under concurrent generate calls.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_occurrences_period
		ON expense_occurrences(template_id, period_start);

	CREATE INDEX IF NOT EXISTS idx_occurrences_due
		ON expense_occurrences(due_date);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// PLAN STORE
// =============================================================================

func (s *Store) SavePlan(ctx context.Context, plan *billing.Plan) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)

	res, err := tx.ExecContext(ctx, `
		UPDATE plans SET
			total_amount = ?, discount_type = ?, discount_value = ?,
			discount_amount = ?, base_amount = ?, paid_amount = ?,
			credit_balance = ?, completed = ?, version = version + 1,
			updated_at = ?
		WHERE id = ? AND version = ?`,
		plan.TotalAmount.String(), string(plan.Discount.Type), plan.Discount.Value.String(),
		plan.DiscountAmount.String(), plan.BaseAmount.String(), plan.PaidAmount.String(),
		plan.CreditBalance.String(), plan.Completed, now,
		plan.ID, plan.Version)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM plans WHERE id = ?`, plan.ID).Scan(&exists)
		if err != nil {
			return err
		}
		if exists > 0 {
			return billing.ErrConcurrentModification
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO plans (id, total_amount, discount_type, discount_value,
				discount_amount, base_amount, paid_amount, credit_balance,
				completed, version, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			plan.ID, plan.TotalAmount.String(), string(plan.Discount.Type),
			plan.Discount.Value.String(), plan.DiscountAmount.String(),
			plan.BaseAmount.String(), plan.PaidAmount.String(),
			plan.CreditBalance.String(), plan.Completed, plan.Version, now, now)
		if err != nil {
			return err
		}
	}

	// Installments are owned by the plan: replace the whole set in the
	// same transaction.
	if _, err := tx.ExecContext(ctx, `DELETE FROM installments WHERE plan_id = ?`, plan.ID); err != nil {
		return err
	}
	for idx := range plan.Installments {
		inst := &plan.Installments[idx]
		var paidDate any
		if inst.PaidDate != nil {
			paidDate = inst.PaidDate.String()
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO installments (plan_id, number, amount, due_date,
				method_kind, card_installments, invoiced, custom_amount,
				commission, vat, total, paid_amount, paid, paid_date)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			plan.ID, inst.Number, inst.Amount.String(), inst.DueDate.String(),
			string(inst.Method.Kind), inst.Method.CardInstallments,
			inst.Invoiced, inst.CustomAmount,
			inst.Commission.String(), inst.VAT.String(), inst.Total.String(),
			inst.PaidAmount.String(), inst.Paid, paidDate)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	if affected > 0 {
		plan.Version++
	}
	return nil
}

func (s *Store) GetPlan(ctx context.Context, id string) (*billing.Plan, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, total_amount, discount_type, discount_value, discount_amount,
			base_amount, paid_amount, credit_balance, completed, version,
			created_at, updated_at
		FROM plans WHERE id = ?`, id)

	plan, err := scanPlan(row)
	if err == sql.ErrNoRows {
		return nil, billing.ErrPlanNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := s.loadInstallments(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *Store) ListPlans(ctx context.Context) ([]*billing.Plan, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, total_amount, discount_type, discount_value, discount_amount,
			base_amount, paid_amount, credit_balance, completed, version,
			created_at, updated_at
		FROM plans ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []*billing.Plan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, plan := range plans {
		if err := s.loadInstallments(ctx, plan); err != nil {
			return nil, err
		}
	}
	return plans, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (*billing.Plan, error) {
	var (
		plan                                     billing.Plan
		total, dval, damount, base, paid, credit string
		dtype, createdAt, updatedAt              string
	)
	err := row.Scan(&plan.ID, &total, &dtype, &dval, &damount, &base, &paid,
		&credit, &plan.Completed, &plan.Version, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	plan.TotalAmount = mustDecimal(total)
	plan.Discount = billing.Discount{Type: billing.DiscountType(dtype), Value: mustDecimal(dval)}
	plan.DiscountAmount = mustDecimal(damount)
	plan.BaseAmount = mustDecimal(base)
	plan.PaidAmount = mustDecimal(paid)
	plan.CreditBalance = mustDecimal(credit)
	plan.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	plan.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &plan, nil
}

func (s *Store) loadInstallments(ctx context.Context, plan *billing.Plan) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT number, amount, due_date, method_kind, card_installments,
			invoiced, custom_amount, commission, vat, total, paid_amount,
			paid, paid_date
		FROM installments WHERE plan_id = ? ORDER BY number`, plan.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			inst                                billing.Installment
			amount, due, commission, vat, total string
			paidAmount, methodKind              string
			cardInstallments                    int
			paidDate                            sql.NullString
		)
		err := rows.Scan(&inst.Number, &amount, &due, &methodKind, &cardInstallments,
			&inst.Invoiced, &inst.CustomAmount, &commission, &vat, &total,
			&paidAmount, &inst.Paid, &paidDate)
		if err != nil {
			return err
		}

		inst.Amount = mustDecimal(amount)
		inst.DueDate = mustDate(due)
		inst.Method = billing.PaymentMethod{
			Kind:             billing.MethodKind(methodKind),
			CardInstallments: cardInstallments,
		}
		inst.Commission = mustDecimal(commission)
		inst.VAT = mustDecimal(vat)
		inst.Total = mustDecimal(total)
		inst.PaidAmount = mustDecimal(paidAmount)
		if paidDate.Valid {
			d := mustDate(paidDate.String)
			inst.PaidDate = &d
		}
		plan.Installments = append(plan.Installments, inst)
	}
	return rows.Err()
}

// =============================================================================
// RATE STORE
// =============================================================================

func (s *Store) GetRates(ctx context.Context, institutionID string) (billing.StaticRates, error) {
	var vat, defaultCommission, commissionJSON string
	err := s.db.QueryRowContext(ctx, `
		SELECT vat_rate, default_commission, commission_json
		FROM institution_rates WHERE institution_id = ?`, institutionID).
		Scan(&vat, &defaultCommission, &commissionJSON)
	if err == sql.ErrNoRows {
		return billing.NoRates, nil
	}
	if err != nil {
		return billing.StaticRates{}, err
	}

	// Commission table is stored as {"1": "0", "3": "4.5", ...}: keys are
	// card installment counts, values decimal strings.
	raw := map[string]string{}
	if err := json.Unmarshal([]byte(commissionJSON), &raw); err != nil {
		return billing.StaticRates{}, fmt.Errorf("corrupt commission table for %s: %w", institutionID, err)
	}
	commission := make(map[int]decimal.Decimal, len(raw))
	for k, v := range raw {
		count, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		commission[count] = mustDecimal(v)
	}

	return billing.StaticRates{
		VAT:               mustDecimal(vat),
		Commission:        commission,
		DefaultCommission: mustDecimal(defaultCommission),
	}, nil
}

func (s *Store) SaveRates(ctx context.Context, institutionID string, rates billing.StaticRates) error {
	raw := make(map[string]string, len(rates.Commission))
	for count, rate := range rates.Commission {
		raw[strconv.Itoa(count)] = rate.String()
	}
	commissionJSON, err := json.Marshal(raw)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO institution_rates (institution_id, vat_rate, default_commission, commission_json, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(institution_id) DO UPDATE SET
			vat_rate = excluded.vat_rate,
			default_commission = excluded.default_commission,
			commission_json = excluded.commission_json,
			updated_at = excluded.updated_at`,
		institutionID, rates.VAT.String(), rates.DefaultCommission.String(),
		string(commissionJSON), time.Now().UTC().Format(time.RFC3339))
	return err
}

// =============================================================================
// TEMPLATE STORE
// =============================================================================

func (s *Store) SaveTemplate(ctx context.Context, t *expenses.Template) error {
	now := time.Now().UTC().Format(time.RFC3339)
	var endDate any
	if t.EndDate != nil {
		endDate = t.EndDate.String()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expense_templates (id, name, frequency, due_day_type,
			due_day, due_day_range_start, due_day_range_end, amount_type,
			estimated_amount, start_date, end_date, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			frequency = excluded.frequency,
			due_day_type = excluded.due_day_type,
			due_day = excluded.due_day,
			due_day_range_start = excluded.due_day_range_start,
			due_day_range_end = excluded.due_day_range_end,
			amount_type = excluded.amount_type,
			estimated_amount = excluded.estimated_amount,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			active = excluded.active,
			updated_at = excluded.updated_at`,
		t.ID, t.Name, string(t.Frequency), string(t.DueDayType),
		t.DueDay, t.DueDayRangeStart, t.DueDayRangeEnd, string(t.AmountType),
		t.EstimatedAmount.String(), t.StartDate.String(), endDate, t.Active, now, now)
	return err
}

func (s *Store) GetTemplate(ctx context.Context, id string) (*expenses.Template, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, frequency, due_day_type, due_day,
			due_day_range_start, due_day_range_end, amount_type,
			estimated_amount, start_date, end_date, active
		FROM expense_templates WHERE id = ?`, id)

	t, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, expenses.ErrTemplateNotFound
	}
	return t, err
}

func (s *Store) ListTemplates(ctx context.Context) ([]*expenses.Template, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, frequency, due_day_type, due_day,
			due_day_range_start, due_day_range_end, amount_type,
			estimated_amount, start_date, end_date, active
		FROM expense_templates ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*expenses.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTemplate(row rowScanner) (*expenses.Template, error) {
	var (
		t                expenses.Template
		freq, ddType     string
		amountType       string
		estimated, start string
		endDate          sql.NullString
	)
	err := row.Scan(&t.ID, &t.Name, &freq, &ddType, &t.DueDay,
		&t.DueDayRangeStart, &t.DueDayRangeEnd, &amountType,
		&estimated, &start, &endDate, &t.Active)
	if err != nil {
		return nil, err
	}

	t.Frequency = expenses.Frequency(freq)
	t.DueDayType = expenses.DueDayType(ddType)
	t.AmountType = expenses.AmountType(amountType)
	t.EstimatedAmount = mustDecimal(estimated)
	t.StartDate = mustDate(start)
	if endDate.Valid {
		d := mustDate(endDate.String)
		t.EndDate = &d
	}
	return &t, nil
}

// =============================================================================
// OCCURRENCE STORE
// =============================================================================

func (s *Store) InsertOccurrences(ctx context.Context, occurrences []expenses.Occurrence) error {
	if len(occurrences) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, o := range occurrences {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO expense_occurrences (id, template_id, period_start,
				due_date, amount, status, paid_date, ledger_ref, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, NULL, ?, ?, ?)`,
			o.ID, o.TemplateID, o.PeriodStart.String(), o.DueDate.String(),
			o.Amount.String(), string(o.Status), o.LedgerRef, now, now)
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				return expenses.ErrDuplicateOccurrence
			}
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) ListOccurrences(ctx context.Context, templateID string, from, to billing.Date) ([]expenses.Occurrence, error) {
	query := `
		SELECT id, template_id, period_start, due_date, amount, status,
			paid_date, ledger_ref
		FROM expense_occurrences
		WHERE due_date >= ? AND due_date <= ?`
	args := []any{from.String(), to.String()}
	if templateID != "" {
		query += ` AND template_id = ?`
		args = append(args, templateID)
	}
	query += ` ORDER BY due_date`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []expenses.Occurrence
	for rows.Next() {
		o, err := scanOccurrence(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (s *Store) GetOccurrence(ctx context.Context, id string) (*expenses.Occurrence, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, template_id, period_start, due_date, amount, status,
			paid_date, ledger_ref
		FROM expense_occurrences WHERE id = ?`, id)

	o, err := scanOccurrence(row)
	if err == sql.ErrNoRows {
		return nil, expenses.ErrOccurrenceNotFound
	}
	return o, err
}

func (s *Store) UpdateOccurrence(ctx context.Context, o *expenses.Occurrence) error {
	var paidDate any
	if o.PaidDate != nil {
		paidDate = o.PaidDate.String()
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE expense_occurrences SET
			amount = ?, status = ?, paid_date = ?, ledger_ref = ?, updated_at = ?
		WHERE id = ?`,
		o.Amount.String(), string(o.Status), paidDate, o.LedgerRef,
		time.Now().UTC().Format(time.RFC3339), o.ID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return expenses.ErrOccurrenceNotFound
	}
	return nil
}

func scanOccurrence(row rowScanner) (*expenses.Occurrence, error) {
	var (
		o                   expenses.Occurrence
		period, due, amount string
		status              string
		paidDate, ledgerRef sql.NullString
	)
	err := row.Scan(&o.ID, &o.TemplateID, &period, &due, &amount, &status,
		&paidDate, &ledgerRef)
	if err != nil {
		return nil, err
	}

	o.PeriodStart = mustDate(period)
	o.DueDate = mustDate(due)
	o.Amount = mustDecimal(amount)
	o.Status = expenses.Status(status)
	if paidDate.Valid {
		d := mustDate(paidDate.String)
		o.PaidDate = &d
	}
	o.LedgerRef = ledgerRef.String
	return &o, nil
}

// =============================================================================
// SCAN HELPERS
// =============================================================================

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func mustDate(s string) billing.Date {
	d, err := billing.ParseDate(s)
	if err != nil {
		return billing.Date{}
	}
	return d
}
