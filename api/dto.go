/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract. Monetary
  amounts travel as decimal strings, never floats; dates as YYYY-MM-DD.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request structs carry validator/v10 tags; handlers run the shared
  validator before touching domain logic. Billing-rule validation stays
  in the domain packages.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/plan.go: PlanJSON, embedded in plan requests
*/
package api

import (
	"time"

	"github.com/rdvneltz/FOFENK-sub001/billing"
	"github.com/rdvneltz/FOFENK-sub001/expenses"
	"github.com/rdvneltz/FOFENK-sub001/factory"
	"github.com/rdvneltz/FOFENK-sub001/proration"
)

// =============================================================================
// PLAN TYPES
// =============================================================================

// BuildPlanRequest wraps the factory's plan JSON with the institution
// whose VAT/commission settings price the installments.
type BuildPlanRequest struct {
	InstitutionID string           `json:"institution_id" validate:"required"`
	Plan          factory.PlanJSON `json:"plan" validate:"required"`
}

type InstallmentDTO struct {
	Number           int    `json:"number"`
	Amount           string `json:"amount"`
	DueDate          string `json:"due_date"`
	MethodKind       string `json:"method_kind"`
	CardInstallments int    `json:"card_installments,omitempty"`
	Invoiced         bool   `json:"invoiced"`
	CustomAmount     bool   `json:"custom_amount"`
	Commission       string `json:"commission"`
	VAT              string `json:"vat"`
	Total            string `json:"total"`
	PaidAmount       string `json:"paid_amount"`
	Paid             bool   `json:"paid"`
	PaidDate         string `json:"paid_date,omitempty"`
}

type PlanDTO struct {
	ID              string           `json:"id"`
	TotalAmount     string           `json:"total_amount"`
	DiscountType    string           `json:"discount_type"`
	DiscountValue   string           `json:"discount_value"`
	DiscountAmount  string           `json:"discount_amount"`
	BaseAmount      string           `json:"base_amount"`
	CommissionTotal string           `json:"commission_total"`
	VATTotal        string           `json:"vat_total"`
	GrandTotal      string           `json:"grand_total"`
	PaidAmount      string           `json:"paid_amount"`
	CreditBalance   string           `json:"credit_balance"`
	Completed       bool             `json:"completed"`
	Version         int              `json:"version"`
	Installments    []InstallmentDTO `json:"installments"`
	CreatedAt       string           `json:"created_at,omitempty"`
}

// PlanResponse carries the plan plus any consistency warnings raised
// while building or editing it.
type PlanResponse struct {
	Plan     PlanDTO      `json:"plan"`
	Warnings []WarningDTO `json:"warnings,omitempty"`
}

type WarningDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CustomAmountRequest struct {
	InstitutionID string `json:"institution_id" validate:"required"`
	Amount        string `json:"amount" validate:"required"`
}

type ResetAmountRequest struct {
	InstitutionID string `json:"institution_id" validate:"required"`
}

type UpdatePlanRequest struct {
	InstitutionID string                `json:"institution_id" validate:"required"`
	TotalAmount   string                `json:"total_amount" validate:"required"`
	Discount      *factory.DiscountJSON `json:"discount,omitempty"`
}

// =============================================================================
// PAYMENT TYPES
// =============================================================================

type ApplyPaymentRequest struct {
	InstallmentNumber int    `json:"installment_number" validate:"required,gt=0"`
	Amount            string `json:"amount" validate:"required"`
	PaidDate          string `json:"paid_date,omitempty"` // defaults to today
}

type PaymentResultDTO struct {
	Applied      string           `json:"applied"`
	Surplus      string           `json:"surplus"`
	Applications []ApplicationDTO `json:"applications"`
	Plan         PlanDTO          `json:"plan"`
}

type ApplicationDTO struct {
	Number  int    `json:"number"`
	Applied string `json:"applied"`
}

// =============================================================================
// PRORATION TYPES
// =============================================================================

type ProrationRequest struct {
	LessonWeekdays []int  `json:"lesson_weekdays" validate:"required,min=1"` // 0=Sunday ... 6=Saturday
	MonthlyFee     string `json:"monthly_fee" validate:"required"`
	EnrollmentDate string `json:"enrollment_date" validate:"required"`
	DurationMonths int    `json:"duration_months" validate:"required,gt=0"`
	BillingStart   string `json:"billing_start,omitempty"`
}

type MonthCountDTO struct {
	Year    int    `json:"year"`
	Month   string `json:"month"`
	Lessons int    `json:"lessons"`
}

type ProrationDTO struct {
	Months                  []MonthCountDTO `json:"months"`
	Partial                 bool            `json:"partial"`
	LessonsBeforeEnrollment int             `json:"lessons_before_enrollment"`
	LessonsAfterEnrollment  int             `json:"lessons_after_enrollment"`
	LessonsPerMonth         int             `json:"lessons_per_month"`
	PricePerLesson          string          `json:"price_per_lesson"`
	TotalByMonthly          string          `json:"total_by_monthly"`
	TotalByPartialFirst     string          `json:"total_by_partial_first"`
	Savings                 string          `json:"savings"`
}

// =============================================================================
// EXPENSE TYPES
// =============================================================================

type TemplateRequest struct {
	Name             string `json:"name" validate:"required"`
	Frequency        string `json:"frequency" validate:"required,oneof=monthly quarterly yearly"`
	DueDayType       string `json:"due_day_type" validate:"required,oneof=fixed range"`
	DueDay           int    `json:"due_day,omitempty"`
	DueDayRangeStart int    `json:"due_day_range_start,omitempty"`
	DueDayRangeEnd   int    `json:"due_day_range_end,omitempty"`
	AmountType       string `json:"amount_type" validate:"required,oneof=fixed variable"`
	EstimatedAmount  string `json:"estimated_amount" validate:"required"`
	StartDate        string `json:"start_date" validate:"required"`
	EndDate          string `json:"end_date,omitempty"`
	Active           *bool  `json:"active,omitempty"` // defaults to true
}

type TemplateDTO struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Frequency        string `json:"frequency"`
	DueDayType       string `json:"due_day_type"`
	DueDay           int    `json:"due_day,omitempty"`
	DueDayRangeStart int    `json:"due_day_range_start,omitempty"`
	DueDayRangeEnd   int    `json:"due_day_range_end,omitempty"`
	AmountType       string `json:"amount_type"`
	EstimatedAmount  string `json:"estimated_amount"`
	StartDate        string `json:"start_date"`
	EndDate          string `json:"end_date,omitempty"`
	Active           bool   `json:"active"`
}

type GenerateRequest struct {
	From string `json:"from" validate:"required"`
	To   string `json:"to" validate:"required"`
}

type OccurrenceDTO struct {
	ID          string `json:"id"`
	TemplateID  string `json:"template_id"`
	PeriodStart string `json:"period_start"`
	DueDate     string `json:"due_date"`
	Amount      string `json:"amount"`
	Status      string `json:"status"`
	PaidDate    string `json:"paid_date,omitempty"`
	LedgerRef   string `json:"ledger_ref,omitempty"`
	Bucket      string `json:"bucket,omitempty"`
}

type PayOccurrenceRequest struct {
	Amount    string `json:"amount,omitempty"` // variable templates only
	PaidDate  string `json:"paid_date,omitempty"`
	LedgerRef string `json:"ledger_ref" validate:"required"`
}

type BucketDTO struct {
	Count       int             `json:"count"`
	Amount      string          `json:"amount"`
	Occurrences []OccurrenceDTO `json:"occurrences"`
}

type DashboardDTO struct {
	Overdue  BucketDTO `json:"overdue"`
	ThisWeek BucketDTO `json:"this_week"`
	Upcoming BucketDTO `json:"upcoming"`
	Paid     BucketDTO `json:"paid"`
}

// =============================================================================
// SETTINGS TYPES
// =============================================================================

type RatesDTO struct {
	VATRate           string            `json:"vat_rate"`
	DefaultCommission string            `json:"default_commission"`
	Commission        map[string]string `json:"commission"` // card installment count -> rate
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toPlanDTO(p *billing.Plan) PlanDTO {
	dto := PlanDTO{
		ID:              p.ID,
		TotalAmount:     p.TotalAmount.String(),
		DiscountType:    string(p.Discount.Type),
		DiscountValue:   p.Discount.Value.String(),
		DiscountAmount:  p.DiscountAmount.String(),
		BaseAmount:      p.BaseAmount.String(),
		CommissionTotal: p.CommissionTotal.String(),
		VATTotal:        p.VATTotal.String(),
		GrandTotal:      p.GrandTotal.String(),
		PaidAmount:      p.PaidAmount.String(),
		CreditBalance:   p.CreditBalance.String(),
		Completed:       p.Completed,
		Version:         p.Version,
	}
	if !p.CreatedAt.IsZero() {
		dto.CreatedAt = p.CreatedAt.Format(time.RFC3339)
	}
	for idx := range p.Installments {
		dto.Installments = append(dto.Installments, toInstallmentDTO(&p.Installments[idx]))
	}
	return dto
}

func toInstallmentDTO(i *billing.Installment) InstallmentDTO {
	dto := InstallmentDTO{
		Number:           i.Number,
		Amount:           i.Amount.String(),
		DueDate:          i.DueDate.String(),
		MethodKind:       string(i.Method.Kind),
		CardInstallments: i.Method.CardInstallments,
		Invoiced:         i.Invoiced,
		CustomAmount:     i.CustomAmount,
		Commission:       i.Commission.String(),
		VAT:              i.VAT.String(),
		Total:            i.Total.String(),
		PaidAmount:       i.PaidAmount.String(),
		Paid:             i.Paid,
	}
	if i.PaidDate != nil {
		dto.PaidDate = i.PaidDate.String()
	}
	return dto
}

func toWarningDTOs(warnings []billing.Warning) []WarningDTO {
	if len(warnings) == 0 {
		return nil
	}
	out := make([]WarningDTO, len(warnings))
	for i, w := range warnings {
		out[i] = WarningDTO{Code: w.Code, Message: w.Message}
	}
	return out
}

func toProrationDTO(r *proration.Result) ProrationDTO {
	dto := ProrationDTO{
		Partial:                 r.Partial,
		LessonsBeforeEnrollment: r.LessonsBeforeEnrollment,
		LessonsAfterEnrollment:  r.LessonsAfterEnrollment,
		LessonsPerMonth:         r.LessonsPerMonth,
		PricePerLesson:          r.PricePerLesson.String(),
		TotalByMonthly:          r.TotalByMonthly.String(),
		TotalByPartialFirst:     r.TotalByPartialFirst.String(),
		Savings:                 r.Savings.String(),
	}
	for _, m := range r.Months {
		dto.Months = append(dto.Months, MonthCountDTO{
			Year:    m.Year,
			Month:   m.Month.String(),
			Lessons: m.Lessons,
		})
	}
	return dto
}

func toTemplateDTO(t *expenses.Template) TemplateDTO {
	dto := TemplateDTO{
		ID:               t.ID,
		Name:             t.Name,
		Frequency:        string(t.Frequency),
		DueDayType:       string(t.DueDayType),
		DueDay:           t.DueDay,
		DueDayRangeStart: t.DueDayRangeStart,
		DueDayRangeEnd:   t.DueDayRangeEnd,
		AmountType:       string(t.AmountType),
		EstimatedAmount:  t.EstimatedAmount.String(),
		StartDate:        t.StartDate.String(),
		Active:           t.Active,
	}
	if t.EndDate != nil {
		dto.EndDate = t.EndDate.String()
	}
	return dto
}

func toOccurrenceDTO(o expenses.Occurrence) OccurrenceDTO {
	dto := OccurrenceDTO{
		ID:          o.ID,
		TemplateID:  o.TemplateID,
		PeriodStart: o.PeriodStart.String(),
		DueDate:     o.DueDate.String(),
		Amount:      o.Amount.String(),
		Status:      string(o.Status),
		LedgerRef:   o.LedgerRef,
	}
	if o.PaidDate != nil {
		dto.PaidDate = o.PaidDate.String()
	}
	return dto
}

func toBucketDTO(occurrences []expenses.Occurrence, totals expenses.Amounts) BucketDTO {
	dto := BucketDTO{Count: totals.Count, Amount: totals.Amount.String()}
	for _, o := range occurrences {
		dto.Occurrences = append(dto.Occurrences, toOccurrenceDTO(o))
	}
	return dto
}
