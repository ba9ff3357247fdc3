/*
rates.go - VAT and credit-card commission rate lookup

PURPOSE:
  Resolves the VAT rate and the credit-card commission rate from
  per-institution settings. Commission varies by the number of card
  network installments a charge is split into.

  This is the leaf of the engine: everything in plan.go depends on it,
  it depends on nothing. The engine treats rates as a read-only lookup;
  editing them is the settings collaborator's job (see store/sqlite and
  the api settings handlers).

RATE SEMANTICS:
  Rates are percentages (18 means 18%). Cash never carries commission.
  An unknown card installment count falls back to the default commission
  rate so a new count added by the card network doesn't zero out fees.

SEE ALSO:
  - plan.go: applyRates uses this lookup per installment
  - store/sqlite: persists per-institution rate tables
*/
package billing

import "github.com/shopspring/decimal"

// =============================================================================
// RATE PROVIDER - Read-only settings lookup
// =============================================================================

// RateProvider supplies the VAT rate and the commission-rate table for one
// institution. Implementations must be safe for concurrent reads.
type RateProvider interface {
	// VATRate returns the VAT percentage applied to invoiced installments.
	VATRate() decimal.Decimal

	// CommissionRate returns the commission percentage for a credit-card
	// charge split into the given number of card installments.
	CommissionRate(cardInstallments int) decimal.Decimal
}

// =============================================================================
// STATIC RATES - Value-type implementation
// =============================================================================

// StaticRates is an immutable rate table. The zero value charges nothing,
// which is the correct behavior for institutions with no settings yet.
type StaticRates struct {
	VAT               decimal.Decimal
	Commission        map[int]decimal.Decimal // keyed by card installment count
	DefaultCommission decimal.Decimal         // fallback for unknown counts
}

var _ RateProvider = StaticRates{}

func (r StaticRates) VATRate() decimal.Decimal { return r.VAT }

func (r StaticRates) CommissionRate(cardInstallments int) decimal.Decimal {
	if cardInstallments < 1 {
		cardInstallments = 1
	}
	if rate, ok := r.Commission[cardInstallments]; ok {
		return rate
	}
	return r.DefaultCommission
}

// NoRates is a zero-rate provider for cash-only institutions and tests.
var NoRates = StaticRates{}
