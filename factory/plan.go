/*
Package factory provides JSON to Go plan-configuration conversion.

PURPOSE:
  Converts JSON billing choices into a billing.PlanConfig. This enables
  the admin UI to store and replay plan configurations without code
  changes - the enrollment form posts JSON, and the factory creates the
  proper Go structs with validated defaults.

JSON SCHEMA:
  {
    "total_amount": "1200",
    "discount": {"type": "percentage", "value": "10"},
    "payment_type": "cash_installment",
    "installment_count": 3,
    "frequency": "monthly",
    "first_installment_date": "2025-09-01",
    "invoiced": true,
    "overrides": [
      {"number": 2, "amount": "500"}
    ]
  }

KEY FEATURES:
  - Validates JSON structure and date formats
  - Sets sensible defaults (frequency monthly, discount none)
  - Amounts are decimal strings, never floats

USAGE:
  f := factory.NewPlanFactory()
  cfg, err := f.ParsePlan(jsonString)
  plan, warnings, err := billing.BuildPlan(cfg, rates)

SEE ALSO:
  - billing/plan.go: PlanConfig and BuildPlan
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rdvneltz/FOFENK-sub001/billing"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// PlanJSON is the JSON representation of a plan configuration.
type PlanJSON struct {
	TotalAmount string        `json:"total_amount"`
	Discount    *DiscountJSON `json:"discount,omitempty"`

	PaymentType         string `json:"payment_type"`
	InstallmentCount    int    `json:"installment_count,omitempty"`
	Frequency           string `json:"frequency,omitempty"`
	CustomFrequencyDays int    `json:"custom_frequency_days,omitempty"`

	FirstInstallmentDate string `json:"first_installment_date,omitempty"`
	PaymentDate          string `json:"payment_date,omitempty"`

	Method   *MethodJSON `json:"method,omitempty"`
	Invoiced bool        `json:"invoiced,omitempty"`

	Overrides []OverrideJSON `json:"overrides,omitempty"`
}

type DiscountJSON struct {
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
}

type MethodJSON struct {
	Kind             string `json:"kind"`
	CardInstallments int    `json:"card_installments,omitempty"`
}

type OverrideJSON struct {
	Number   int         `json:"number"`
	Amount   string      `json:"amount,omitempty"`
	Method   *MethodJSON `json:"method,omitempty"`
	Invoiced *bool       `json:"invoiced,omitempty"`
	DueDate  string      `json:"due_date,omitempty"`
}

// =============================================================================
// PLAN FACTORY
// =============================================================================

type PlanFactory struct{}

func NewPlanFactory() *PlanFactory { return &PlanFactory{} }

// ParsePlan converts a JSON plan configuration into a billing.PlanConfig.
// Structural problems (bad dates, bad amounts) fail here; billing-rule
// validation happens in billing.BuildPlan.
func (f *PlanFactory) ParsePlan(jsonStr string) (billing.PlanConfig, error) {
	var pj PlanJSON
	if err := json.Unmarshal([]byte(jsonStr), &pj); err != nil {
		return billing.PlanConfig{}, fmt.Errorf("invalid plan JSON: %w", err)
	}
	return f.FromJSON(pj)
}

// FromJSON converts an already-decoded PlanJSON.
func (f *PlanFactory) FromJSON(pj PlanJSON) (billing.PlanConfig, error) {
	cfg := billing.PlanConfig{
		PaymentType:         billing.PaymentType(pj.PaymentType),
		InstallmentCount:    pj.InstallmentCount,
		CustomFrequencyDays: pj.CustomFrequencyDays,
		Invoiced:            pj.Invoiced,
	}

	total, err := parseAmount(pj.TotalAmount, "total_amount")
	if err != nil {
		return billing.PlanConfig{}, err
	}
	cfg.TotalAmount = total

	cfg.Discount = billing.Discount{Type: billing.DiscountNone}
	if pj.Discount != nil {
		value := decimal.Zero
		if pj.Discount.Value != "" {
			value, err = parseAmount(pj.Discount.Value, "discount.value")
			if err != nil {
				return billing.PlanConfig{}, err
			}
		}
		cfg.Discount = billing.Discount{
			Type:  billing.DiscountType(pj.Discount.Type),
			Value: value,
		}
	}

	cfg.Frequency = billing.FrequencyMonthly
	if pj.Frequency != "" {
		cfg.Frequency = billing.Frequency(pj.Frequency)
	}

	if pj.FirstInstallmentDate != "" {
		cfg.FirstInstallmentDate, err = billing.ParseDate(pj.FirstInstallmentDate)
		if err != nil {
			return billing.PlanConfig{}, fmt.Errorf("invalid first_installment_date: %w", err)
		}
	}
	if pj.PaymentDate != "" {
		cfg.PaymentDate, err = billing.ParseDate(pj.PaymentDate)
		if err != nil {
			return billing.PlanConfig{}, fmt.Errorf("invalid payment_date: %w", err)
		}
	}

	if pj.Method != nil {
		cfg.Method = methodFromJSON(*pj.Method)
	}

	for _, oj := range pj.Overrides {
		ov := billing.InstallmentOverride{Number: oj.Number, Invoiced: oj.Invoiced}
		if oj.Amount != "" {
			amount, err := parseAmount(oj.Amount, fmt.Sprintf("overrides[%d].amount", oj.Number))
			if err != nil {
				return billing.PlanConfig{}, err
			}
			ov.Amount = &amount
		}
		if oj.Method != nil {
			m := methodFromJSON(*oj.Method)
			ov.Method = &m
		}
		if oj.DueDate != "" {
			due, err := billing.ParseDate(oj.DueDate)
			if err != nil {
				return billing.PlanConfig{}, fmt.Errorf("invalid overrides[%d].due_date: %w", oj.Number, err)
			}
			ov.DueDate = &due
		}
		cfg.Overrides = append(cfg.Overrides, ov)
	}

	return cfg, nil
}

func methodFromJSON(mj MethodJSON) billing.PaymentMethod {
	if billing.MethodKind(mj.Kind) == billing.MethodCreditCard {
		return billing.CreditCard(mj.CardInstallments)
	}
	return billing.Cash()
}

func parseAmount(s, field string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", field, s, err)
	}
	return d, nil
}

// =============================================================================
// PRESETS - Common configurations the enrollment form offers
// =============================================================================

// MonthlyInstallmentsJSON is a cash plan split into equal monthly
// installments starting at firstDue.
func MonthlyInstallmentsJSON(total string, count int, firstDue string) string {
	b, _ := json.Marshal(PlanJSON{
		TotalAmount:          total,
		PaymentType:          string(billing.PaymentCashInstallment),
		InstallmentCount:     count,
		Frequency:            string(billing.FrequencyMonthly),
		FirstInstallmentDate: firstDue,
	})
	return string(b)
}

// SingleCardPaymentJSON is one credit-card charge split into the given
// number of card network installments.
func SingleCardPaymentJSON(total string, cardInstallments int, paymentDate string) string {
	b, _ := json.Marshal(PlanJSON{
		TotalAmount: total,
		PaymentType: string(billing.PaymentCreditCard),
		PaymentDate: paymentDate,
		Method:      &MethodJSON{Kind: string(billing.MethodCreditCard), CardInstallments: cardInstallments},
	})
	return string(b)
}
