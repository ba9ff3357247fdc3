/*
store.go - Persistence interfaces for templates and occurrences

PURPOSE:
  Defines how the surrounding CRUD layer persists recurring-expense
  templates and their generated occurrences. The generator itself is
  pure; these interfaces carry the dedup guarantee into storage.

DEDUPLICATION CONTRACT:
  InsertOccurrences must enforce a unique (template_id, period_start)
  key. A violation yields ErrDuplicateOccurrence for that batch, which
  keeps generation idempotent even under concurrent generate calls that
  both passed the in-memory existence check.

SEE ALSO:
  - generator.go: Produces the occurrences inserted here
  - store/sqlite: Production implementation
*/
package expenses

import (
	"context"

	"github.com/rdvneltz/FOFENK-sub001/billing"
)

// TemplateStore persists recurring-expense templates. Templates
// referenced by occurrences are deactivated, never deleted.
type TemplateStore interface {
	SaveTemplate(ctx context.Context, t *Template) error

	// GetTemplate returns ErrTemplateNotFound for unknown ids.
	GetTemplate(ctx context.Context, id string) (*Template, error)

	// ListTemplates returns all templates, active and inactive.
	ListTemplates(ctx context.Context) ([]*Template, error)
}

// OccurrenceStore persists generated occurrences.
type OccurrenceStore interface {
	// InsertOccurrences writes a generated batch atomically. A duplicate
	// (template_id, period_start) pair fails the whole batch with
	// ErrDuplicateOccurrence.
	InsertOccurrences(ctx context.Context, occurrences []Occurrence) error

	// ListOccurrences returns a template's occurrences with due dates in
	// [from, to], chronologically. A zero templateID lists across all
	// templates.
	ListOccurrences(ctx context.Context, templateID string, from, to billing.Date) ([]Occurrence, error)

	// GetOccurrence returns ErrOccurrenceNotFound for unknown ids.
	GetOccurrence(ctx context.Context, id string) (*Occurrence, error)

	// UpdateOccurrence persists payment marking and audit fields.
	UpdateOccurrence(ctx context.Context, o *Occurrence) error
}
