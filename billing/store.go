/*
store.go - Persistence interfaces for plans and rate settings

PURPOSE:
  Defines the interface between the engine and the database. The engine
  itself performs no storage I/O: it receives already-loaded plans and
  returns updated plans for the caller to persist through these
  interfaces.

OPTIMISTIC CONCURRENCY:
  SavePlan carries the plan's version as read. Implementations must reject
  the save with ErrConcurrentModification when the stored version differs,
  so two concurrent payments against the same plan cannot both read the
  same stale remaining balance and over-apply. On success the stored
  version is incremented.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite
  - store/memory: In-memory for testing/dev

SEE ALSO:
  - payment.go: The read-modify-write cycle the version check protects
  - expenses/store.go: Template/occurrence persistence interfaces
*/
package billing

import "context"

// =============================================================================
// PLAN STORE
// =============================================================================

// PlanStore persists payment plans together with their installments.
// A plan exclusively owns its installments; no installment is shared
// across plans.
type PlanStore interface {
	// SavePlan inserts or updates a plan. Updates are version-checked:
	// a stale Version yields ErrConcurrentModification and nothing is
	// written. On success the plan's Version is incremented in place.
	SavePlan(ctx context.Context, plan *Plan) error

	// GetPlan loads a plan with its installments in payment order.
	// Returns ErrPlanNotFound when the id is unknown.
	GetPlan(ctx context.Context, id string) (*Plan, error)

	// ListPlans returns all plans, installments included.
	ListPlans(ctx context.Context) ([]*Plan, error)
}

// =============================================================================
// RATE STORE - Per-institution settings collaborator
// =============================================================================

// RateStore resolves and edits the per-institution VAT and commission
// settings. The engine only ever reads them through RateProvider.
type RateStore interface {
	// GetRates returns the institution's rate table, or NoRates when the
	// institution has no settings yet.
	GetRates(ctx context.Context, institutionID string) (StaticRates, error)

	// SaveRates replaces the institution's rate table.
	SaveRates(ctx context.Context, institutionID string, rates StaticRates) error
}
