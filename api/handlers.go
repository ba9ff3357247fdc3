/*
handlers.go - HTTP API handlers for the billing & proration engine

PURPOSE:
  Exposes the engine via REST API. Handles HTTP request/response, JSON
  serialization, and delegates to domain logic. The surrounding CRUD
  application mounts this router under its own authentication layer.

ENDPOINTS:
  Plans:
    POST   /api/plans/preview                 Build a plan without persisting
    POST   /api/plans                         Build and persist a plan
    GET    /api/plans                         List plans
    GET    /api/plans/{id}                    Get one plan
    PUT    /api/plans/{id}                    Edit totals/discount, recompute
    POST   /api/plans/{id}/installments/{number}/custom-amount
    POST   /api/plans/{id}/installments/{number}/reset
    POST   /api/plans/{id}/payments           Apply a payment (cascade)

  Proration:
    POST   /api/proration/quote               Partial-first-month pricing

  Expenses:
    POST   /api/expenses/templates            Create template
    GET    /api/expenses/templates            List templates
    GET    /api/expenses/templates/{id}       Get template
    PUT    /api/expenses/templates/{id}       Edit template (future periods)
    DELETE /api/expenses/templates/{id}       Deactivate (never hard-delete)
    POST   /api/expenses/templates/{id}/generate
    GET    /api/expenses/occurrences          List in range, with buckets
    POST   /api/expenses/occurrences/{id}/pay Mark paid, link ledger entry
    GET    /api/expenses/dashboard            Bucketed pending/paid view

  Settings:
    GET    /api/institutions/{id}/rates       VAT + commission table
    PUT    /api/institutions/{id}/rates

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Record not found
  - 409: Conflict (stale version, duplicate occurrence period)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rdvneltz/FOFENK-sub001/billing"
	"github.com/rdvneltz/FOFENK-sub001/expenses"
	"github.com/rdvneltz/FOFENK-sub001/factory"
	"github.com/rdvneltz/FOFENK-sub001/proration"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Stores bundles the persistence interfaces the handlers need. The SQLite
// store satisfies all four; tests plug in the memory store.
type Stores struct {
	Plans       billing.PlanStore
	Rates       billing.RateStore
	Templates   expenses.TemplateStore
	Occurrences expenses.OccurrenceStore
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	stores   Stores
	factory  *factory.PlanFactory
	validate *validator.Validate
}

// NewHandler creates a new handler over the given stores.
func NewHandler(stores Stores) *Handler {
	return &Handler{
		stores:   stores,
		factory:  factory.NewPlanFactory(),
		validate: validator.New(),
	}
}

// =============================================================================
// PLAN HANDLERS
// =============================================================================

// PreviewPlan builds a plan from the posted configuration without
// persisting it. The enrollment form uses this to show live totals.
func (h *Handler) PreviewPlan(w http.ResponseWriter, r *http.Request) {
	plan, warnings, ok := h.buildPlanFromRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, PlanResponse{Plan: toPlanDTO(plan), Warnings: toWarningDTOs(warnings)})
}

// CreatePlan builds and persists a plan.
func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	plan, warnings, ok := h.buildPlanFromRequest(w, r)
	if !ok {
		return
	}

	plan.ID = uuid.NewString()
	plan.CreatedAt = time.Now().UTC()
	if err := h.stores.Plans.SavePlan(r.Context(), plan); err != nil {
		writeDomainError(w, "Failed to save plan", err)
		return
	}

	writeJSON(w, http.StatusCreated, PlanResponse{Plan: toPlanDTO(plan), Warnings: toWarningDTOs(warnings)})
}

func (h *Handler) buildPlanFromRequest(w http.ResponseWriter, r *http.Request) (*billing.Plan, []billing.Warning, bool) {
	var req BuildPlanRequest
	if !h.decode(w, r, &req) {
		return nil, nil, false
	}

	cfg, err := h.factory.FromJSON(req.Plan)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, nil, false
	}

	rates, err := h.stores.Rates.GetRates(r.Context(), req.InstitutionID)
	if err != nil {
		writeDomainError(w, "Failed to load rates", err)
		return nil, nil, false
	}

	plan, warnings, err := billing.BuildPlan(cfg, rates)
	if err != nil {
		writeDomainError(w, "Failed to build plan", err)
		return nil, nil, false
	}
	return plan, warnings, true
}

// ListPlans returns all plans.
func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.stores.Plans.ListPlans(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list plans", err)
		return
	}

	dtos := make([]PlanDTO, len(plans))
	for i, p := range plans {
		dtos[i] = toPlanDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetPlan returns a single plan with its installments.
func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.stores.Plans.GetPlan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to get plan", err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanDTO(plan))
}

// UpdatePlan edits a plan's total and discount, recomputing automatic
// installment amounts while preserving custom flags.
func (h *Handler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	var req UpdatePlanRequest
	if !h.decode(w, r, &req) {
		return
	}

	total, err := decimal.NewFromString(req.TotalAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid total_amount")
		return
	}
	discount := billing.Discount{Type: billing.DiscountNone}
	if req.Discount != nil {
		value := decimal.Zero
		if req.Discount.Value != "" {
			value, err = decimal.NewFromString(req.Discount.Value)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid discount.value")
				return
			}
		}
		discount = billing.Discount{Type: billing.DiscountType(req.Discount.Type), Value: value}
	}

	h.mutatePlan(w, r, req.InstitutionID, func(plan *billing.Plan, rates billing.RateProvider) ([]billing.Warning, error) {
		return billing.UpdatePlanTotals(plan, total, discount, rates)
	})
}

// SetCustomAmount fixes a custom amount on one installment.
func (h *Handler) SetCustomAmount(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid installment number")
		return
	}

	var req CustomAmountRequest
	if !h.decode(w, r, &req) {
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	h.mutatePlan(w, r, req.InstitutionID, func(plan *billing.Plan, rates billing.RateProvider) ([]billing.Warning, error) {
		return billing.SetCustomAmount(plan, number, amount, rates)
	})
}

// ResetCustomAmount returns one installment to the redistribution pool.
func (h *Handler) ResetCustomAmount(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid installment number")
		return
	}

	var req ResetAmountRequest
	if !h.decode(w, r, &req) {
		return
	}

	h.mutatePlan(w, r, req.InstitutionID, func(plan *billing.Plan, rates billing.RateProvider) ([]billing.Warning, error) {
		return billing.ResetCustomAmount(plan, number, rates)
	})
}

// mutatePlan is the shared load-mutate-save cycle for plan edits. A stale
// version surfaces as 409 and the client retries with fresh data.
func (h *Handler) mutatePlan(w http.ResponseWriter, r *http.Request, institutionID string,
	mutate func(*billing.Plan, billing.RateProvider) ([]billing.Warning, error)) {

	planID := chi.URLParam(r, "id")
	plan, err := h.stores.Plans.GetPlan(r.Context(), planID)
	if err != nil {
		writeDomainError(w, "Failed to load plan", err)
		return
	}

	rates, err := h.stores.Rates.GetRates(r.Context(), institutionID)
	if err != nil {
		writeDomainError(w, "Failed to load rates", err)
		return
	}

	warnings, err := mutate(plan, rates)
	if err != nil {
		writeDomainError(w, "Plan edit rejected", err)
		return
	}

	if err := h.stores.Plans.SavePlan(r.Context(), plan); err != nil {
		writeDomainError(w, "Failed to save plan", err)
		return
	}

	writeJSON(w, http.StatusOK, PlanResponse{Plan: toPlanDTO(plan), Warnings: toWarningDTOs(warnings)})
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// ApplyPayment applies a payment to a plan, cascading forward from the
// target installment.
func (h *Handler) ApplyPayment(w http.ResponseWriter, r *http.Request) {
	var req ApplyPaymentRequest
	if !h.decode(w, r, &req) {
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	paidAt := billing.Today()
	if req.PaidDate != "" {
		paidAt, err = billing.ParseDate(req.PaidDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid paid_date (use YYYY-MM-DD)")
			return
		}
	}

	planID := chi.URLParam(r, "id")
	plan, err := h.stores.Plans.GetPlan(r.Context(), planID)
	if err != nil {
		writeDomainError(w, "Failed to load plan", err)
		return
	}

	result, err := billing.ApplyPayment(plan, req.InstallmentNumber, amount, paidAt)
	if err != nil {
		writeDomainError(w, "Payment rejected", err)
		return
	}

	if err := h.stores.Plans.SavePlan(r.Context(), plan); err != nil {
		writeDomainError(w, "Failed to save plan", err)
		return
	}

	dto := PaymentResultDTO{
		Applied: result.Applied.String(),
		Surplus: result.Surplus.String(),
		Plan:    toPlanDTO(plan),
	}
	for _, a := range result.Applications {
		dto.Applications = append(dto.Applications, ApplicationDTO{Number: a.Number, Applied: a.Applied.String()})
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// PRORATION HANDLERS
// =============================================================================

// QuoteProration computes the full-vs-prorated first-month options.
func (h *Handler) QuoteProration(w http.ResponseWriter, r *http.Request) {
	var req ProrationRequest
	if !h.decode(w, r, &req) {
		return
	}

	fee, err := decimal.NewFromString(req.MonthlyFee)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid monthly_fee")
		return
	}
	enrollment, err := billing.ParseDate(req.EnrollmentDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid enrollment_date (use YYYY-MM-DD)")
		return
	}

	in := proration.Input{
		MonthlyFee:     fee,
		EnrollmentDate: enrollment,
		DurationMonths: req.DurationMonths,
	}
	for _, wd := range req.LessonWeekdays {
		if wd < 0 || wd > 6 {
			writeError(w, http.StatusBadRequest, "lesson_weekdays must be 0-6")
			return
		}
		in.Schedule.Days = append(in.Schedule.Days, time.Weekday(wd))
	}
	if req.BillingStart != "" {
		in.BillingStart, err = billing.ParseDate(req.BillingStart)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid billing_start (use YYYY-MM-DD)")
			return
		}
	}

	result, err := proration.Calculate(in)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toProrationDTO(result))
}

// =============================================================================
// EXPENSE TEMPLATE HANDLERS
// =============================================================================

// CreateTemplate creates a recurring-expense template.
func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	t, ok := h.templateFromRequest(w, r, uuid.NewString())
	if !ok {
		return
	}
	if err := h.stores.Templates.SaveTemplate(r.Context(), t); err != nil {
		writeDomainError(w, "Failed to save template", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTemplateDTO(t))
}

// UpdateTemplate edits a template. Already-generated occurrences keep
// their dates and amounts; only future generation sees the edit.
func (h *Handler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.stores.Templates.GetTemplate(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to load template", err)
		return
	}

	t, ok := h.templateFromRequest(w, r, id)
	if !ok {
		return
	}
	if err := h.stores.Templates.SaveTemplate(r.Context(), t); err != nil {
		writeDomainError(w, "Failed to save template", err)
		return
	}
	writeJSON(w, http.StatusOK, toTemplateDTO(t))
}

func (h *Handler) templateFromRequest(w http.ResponseWriter, r *http.Request, id string) (*expenses.Template, bool) {
	var req TemplateRequest
	if !h.decode(w, r, &req) {
		return nil, false
	}

	estimated, err := decimal.NewFromString(req.EstimatedAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid estimated_amount")
		return nil, false
	}
	start, err := billing.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_date (use YYYY-MM-DD)")
		return nil, false
	}

	t := &expenses.Template{
		ID:               id,
		Name:             req.Name,
		Frequency:        expenses.Frequency(req.Frequency),
		DueDayType:       expenses.DueDayType(req.DueDayType),
		DueDay:           req.DueDay,
		DueDayRangeStart: req.DueDayRangeStart,
		DueDayRangeEnd:   req.DueDayRangeEnd,
		AmountType:       expenses.AmountType(req.AmountType),
		EstimatedAmount:  estimated,
		StartDate:        start,
		Active:           true,
	}
	if req.EndDate != "" {
		end, err := billing.ParseDate(req.EndDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end_date (use YYYY-MM-DD)")
			return nil, false
		}
		t.EndDate = &end
	}
	if req.Active != nil {
		t.Active = *req.Active
	}

	if err := t.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return t, true
}

// ListTemplates returns all templates.
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.stores.Templates.ListTemplates(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list templates", err)
		return
	}
	dtos := make([]TemplateDTO, len(templates))
	for i, t := range templates {
		dtos[i] = toTemplateDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetTemplate returns one template.
func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := h.stores.Templates.GetTemplate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to get template", err)
		return
	}
	writeJSON(w, http.StatusOK, toTemplateDTO(t))
}

// DeactivateTemplate logically deactivates a template. Its historical
// occurrences remain queryable.
func (h *Handler) DeactivateTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := h.stores.Templates.GetTemplate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to load template", err)
		return
	}

	t.Active = false
	if err := h.stores.Templates.SaveTemplate(r.Context(), t); err != nil {
		writeDomainError(w, "Failed to save template", err)
		return
	}
	writeJSON(w, http.StatusOK, toTemplateDTO(t))
}

// =============================================================================
// OCCURRENCE HANDLERS
// =============================================================================

// GenerateOccurrences materializes a template's occurrences for a range.
// Idempotent: periods already materialized are skipped.
func (h *Handler) GenerateOccurrences(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if !h.decode(w, r, &req) {
		return
	}
	from, err := billing.ParseDate(req.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from (use YYYY-MM-DD)")
		return
	}
	to, err := billing.ParseDate(req.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid to (use YYYY-MM-DD)")
		return
	}

	t, err := h.stores.Templates.GetTemplate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to load template", err)
		return
	}

	// Existing occurrences feed the in-memory dedup; the store's unique
	// period index is the backstop for racing generate calls.
	existing, err := h.stores.Occurrences.ListOccurrences(r.Context(), t.ID, t.StartDate, to)
	if err != nil {
		writeDomainError(w, "Failed to list occurrences", err)
		return
	}

	generated, err := expenses.Generate(t, existing, from, to, uuid.NewString)
	if err != nil {
		writeDomainError(w, "Generation failed", err)
		return
	}
	if err := h.stores.Occurrences.InsertOccurrences(r.Context(), generated); err != nil {
		writeDomainError(w, "Failed to insert occurrences", err)
		return
	}

	dtos := make([]OccurrenceDTO, len(generated))
	for i, o := range generated {
		dtos[i] = toOccurrenceDTO(o)
	}
	writeJSON(w, http.StatusCreated, dtos)
}

// ListOccurrences returns occurrences in a range, each tagged with its
// dashboard bucket.
func (h *Handler) ListOccurrences(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.rangeParams(w, r)
	if !ok {
		return
	}

	occurrences, err := h.stores.Occurrences.ListOccurrences(r.Context(), r.URL.Query().Get("template_id"), from, to)
	if err != nil {
		writeDomainError(w, "Failed to list occurrences", err)
		return
	}

	today := h.todayParam(r)
	dtos := make([]OccurrenceDTO, len(occurrences))
	for i, o := range occurrences {
		dtos[i] = toOccurrenceDTO(o)
		dtos[i].Bucket = string(expenses.Classify(o, today))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// PayOccurrence marks an occurrence paid and links the externally created
// ledger entry. Variable-amount templates may correct the amount here.
func (h *Handler) PayOccurrence(w http.ResponseWriter, r *http.Request) {
	var req PayOccurrenceRequest
	if !h.decode(w, r, &req) {
		return
	}

	o, err := h.stores.Occurrences.GetOccurrence(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to load occurrence", err)
		return
	}
	t, err := h.stores.Templates.GetTemplate(r.Context(), o.TemplateID)
	if err != nil {
		writeDomainError(w, "Failed to load template", err)
		return
	}

	amount := decimal.Zero
	if req.Amount != "" {
		amount, err = decimal.NewFromString(req.Amount)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid amount")
			return
		}
	}
	paidAt := billing.Today()
	if req.PaidDate != "" {
		paidAt, err = billing.ParseDate(req.PaidDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid paid_date (use YYYY-MM-DD)")
			return
		}
	}

	if err := t.MarkPaid(o, amount, paidAt, req.LedgerRef); err != nil {
		writeDomainError(w, "Payment rejected", err)
		return
	}
	if err := h.stores.Occurrences.UpdateOccurrence(r.Context(), o); err != nil {
		writeDomainError(w, "Failed to save occurrence", err)
		return
	}
	writeJSON(w, http.StatusOK, toOccurrenceDTO(*o))
}

// Dashboard returns the bucketed pending/paid view over a range.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.rangeParams(w, r)
	if !ok {
		return
	}

	occurrences, err := h.stores.Occurrences.ListOccurrences(r.Context(), "", from, to)
	if err != nil {
		writeDomainError(w, "Failed to list occurrences", err)
		return
	}

	d := expenses.BuildDashboard(occurrences, h.todayParam(r))
	writeJSON(w, http.StatusOK, DashboardDTO{
		Overdue:  toBucketDTO(d.Overdue, d.OverdueTotal),
		ThisWeek: toBucketDTO(d.ThisWeek, d.ThisWeekTotal),
		Upcoming: toBucketDTO(d.Upcoming, d.UpcomingTotal),
		Paid:     toBucketDTO(d.Paid, d.PaidTotal),
	})
}

func (h *Handler) rangeParams(w http.ResponseWriter, r *http.Request) (billing.Date, billing.Date, bool) {
	from, err := billing.ParseDate(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid or missing from (use YYYY-MM-DD)")
		return billing.Date{}, billing.Date{}, false
	}
	to, err := billing.ParseDate(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid or missing to (use YYYY-MM-DD)")
		return billing.Date{}, billing.Date{}, false
	}
	return from, to, true
}

// todayParam lets clients (and tests) pin the classification date;
// defaults to the server's current day.
func (h *Handler) todayParam(r *http.Request) billing.Date {
	if s := r.URL.Query().Get("today"); s != "" {
		if d, err := billing.ParseDate(s); err == nil {
			return d
		}
	}
	return billing.Today()
}

// =============================================================================
// SETTINGS HANDLERS
// =============================================================================

// GetRates returns an institution's VAT and commission settings.
func (h *Handler) GetRates(w http.ResponseWriter, r *http.Request) {
	rates, err := h.stores.Rates.GetRates(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to load rates", err)
		return
	}

	dto := RatesDTO{
		VATRate:           rates.VAT.String(),
		DefaultCommission: rates.DefaultCommission.String(),
		Commission:        map[string]string{},
	}
	for count, rate := range rates.Commission {
		dto.Commission[strconv.Itoa(count)] = rate.String()
	}
	writeJSON(w, http.StatusOK, dto)
}

// SaveRates replaces an institution's rate table.
func (h *Handler) SaveRates(w http.ResponseWriter, r *http.Request) {
	var req RatesDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rates := billing.StaticRates{Commission: map[int]decimal.Decimal{}}
	var err error
	if rates.VAT, err = decimal.NewFromString(req.VATRate); err != nil {
		writeError(w, http.StatusBadRequest, "invalid vat_rate")
		return
	}
	if req.DefaultCommission != "" {
		if rates.DefaultCommission, err = decimal.NewFromString(req.DefaultCommission); err != nil {
			writeError(w, http.StatusBadRequest, "invalid default_commission")
			return
		}
	}
	for countStr, rateStr := range req.Commission {
		count, err := strconv.Atoi(countStr)
		if err != nil || count < 1 {
			writeError(w, http.StatusBadRequest, "commission keys must be positive installment counts")
			return
		}
		rate, err := decimal.NewFromString(rateStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid commission rate for "+countStr)
			return
		}
		rates.Commission[count] = rate
	}

	if err := h.stores.Rates.SaveRates(r.Context(), chi.URLParam(r, "id"), rates); err != nil {
		writeDomainError(w, "Failed to save rates", err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// decode parses and validates a JSON request body.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeDomainError maps domain errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, context string, err error) {
	switch {
	case billing.IsNotFound(err),
		errors.Is(err, expenses.ErrTemplateNotFound),
		errors.Is(err, expenses.ErrOccurrenceNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "not_found"})
	case billing.IsRetryable(err),
		errors.Is(err, expenses.ErrDuplicateOccurrence):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "conflict"})
	case billing.IsClientError(err),
		errors.Is(err, expenses.ErrInvalidTemplate),
		errors.Is(err, expenses.ErrOccurrencePaid),
		errors.Is(err, expenses.ErrAmountFixed):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "validation"})
	default:
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: context})
	}
}
