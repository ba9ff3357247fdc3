// Package memory provides in-memory store implementations (for testing/dev).
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/rdvneltz/FOFENK-sub001/billing"
	"github.com/rdvneltz/FOFENK-sub001/expenses"
)

// =============================================================================
// MEMORY STORE - In-memory implementation of all store interfaces
// =============================================================================

type Store struct {
	mu          sync.RWMutex
	plans       map[string]*billing.Plan
	rates       map[string]billing.StaticRates
	templates   map[string]*expenses.Template
	occurrences map[string]expenses.Occurrence
	periods     map[expenses.PeriodKey]bool
}

var (
	_ billing.PlanStore        = (*Store)(nil)
	_ billing.RateStore        = (*Store)(nil)
	_ expenses.TemplateStore   = (*Store)(nil)
	_ expenses.OccurrenceStore = (*Store)(nil)
)

func New() *Store {
	return &Store{
		plans:       make(map[string]*billing.Plan),
		rates:       make(map[string]billing.StaticRates),
		templates:   make(map[string]*expenses.Template),
		occurrences: make(map[string]expenses.Occurrence),
		periods:     make(map[expenses.PeriodKey]bool),
	}
}

// =============================================================================
// PLAN STORE
// =============================================================================

// SavePlan inserts or updates with an optimistic version check, mirroring
// the SQLite store's UPDATE ... WHERE version = ? semantics.
func (s *Store) SavePlan(_ context.Context, plan *billing.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.plans[plan.ID]
	if ok {
		if existing.Version != plan.Version {
			return billing.ErrConcurrentModification
		}
		plan.Version++
	}

	stored := clonePlan(plan)
	s.plans[plan.ID] = stored
	return nil
}

func (s *Store) GetPlan(_ context.Context, id string) (*billing.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	plan, ok := s.plans[id]
	if !ok {
		return nil, billing.ErrPlanNotFound
	}
	return clonePlan(plan), nil
}

func (s *Store) ListPlans(_ context.Context) ([]*billing.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*billing.Plan, 0, len(s.plans))
	for _, plan := range s.plans {
		out = append(out, clonePlan(plan))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func clonePlan(p *billing.Plan) *billing.Plan {
	cp := *p
	cp.Installments = make([]billing.Installment, len(p.Installments))
	copy(cp.Installments, p.Installments)
	for i := range cp.Installments {
		if d := cp.Installments[i].PaidDate; d != nil {
			dd := *d
			cp.Installments[i].PaidDate = &dd
		}
	}
	return &cp
}

// =============================================================================
// RATE STORE
// =============================================================================

func (s *Store) GetRates(_ context.Context, institutionID string) (billing.StaticRates, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if rates, ok := s.rates[institutionID]; ok {
		return rates, nil
	}
	return billing.NoRates, nil
}

func (s *Store) SaveRates(_ context.Context, institutionID string, rates billing.StaticRates) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates[institutionID] = rates
	return nil
}

// =============================================================================
// TEMPLATE STORE
// =============================================================================

func (s *Store) SaveTemplate(_ context.Context, t *expenses.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *t
	s.templates[t.ID] = &cp
	return nil
}

func (s *Store) GetTemplate(_ context.Context, id string) (*expenses.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.templates[id]
	if !ok {
		return nil, expenses.ErrTemplateNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *Store) ListTemplates(_ context.Context) ([]*expenses.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*expenses.Template, 0, len(s.templates))
	for _, t := range s.templates {
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// OCCURRENCE STORE
// =============================================================================

// InsertOccurrences checks all period keys first, then writes, so a
// duplicate in the batch leaves nothing behind (atomic batch).
func (s *Store) InsertOccurrences(_ context.Context, occurrences []expenses.Occurrence) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range occurrences {
		if s.periods[o.Key()] {
			return expenses.ErrDuplicateOccurrence
		}
	}
	for _, o := range occurrences {
		s.occurrences[o.ID] = o
		s.periods[o.Key()] = true
	}
	return nil
}

func (s *Store) ListOccurrences(_ context.Context, templateID string, from, to billing.Date) ([]expenses.Occurrence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []expenses.Occurrence
	for _, o := range s.occurrences {
		if templateID != "" && o.TemplateID != templateID {
			continue
		}
		if o.DueDate.Before(from) || o.DueDate.After(to) {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

func (s *Store) GetOccurrence(_ context.Context, id string) (*expenses.Occurrence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.occurrences[id]
	if !ok {
		return nil, expenses.ErrOccurrenceNotFound
	}
	cp := o
	return &cp, nil
}

func (s *Store) UpdateOccurrence(_ context.Context, o *expenses.Occurrence) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.occurrences[o.ID]; !ok {
		return expenses.ErrOccurrenceNotFound
	}
	s.occurrences[o.ID] = *o
	return nil
}
