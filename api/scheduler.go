/*
scheduler.go - Automated occurrence generation scheduler

PURPOSE:
  Periodically walks the active recurring-expense templates and
  materializes their occurrences over a rolling horizon, so upcoming
  rent, salary and utility charges appear on the dashboard without a
  manual generate call.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Generates from each template's start date up to today + horizon
  - Safe to re-run: periods that already have an occurrence are skipped,
    and the store's unique (template_id, period_start) index catches a
    racing manual generate

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Horizon: How many months ahead to materialize (default: 3)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewGenerationScheduler(stores)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: GenerateOccurrences endpoint (manual generation)
  - expenses/generator.go: The generation algorithm itself
*/
package api

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rdvneltz/FOFENK-sub001/billing"
	"github.com/rdvneltz/FOFENK-sub001/expenses"
)

// GenerationScheduler keeps recurring-expense occurrences materialized
// ahead of time.
type GenerationScheduler struct {
	Stores        Stores
	CheckInterval time.Duration
	Horizon       int // months ahead of today to materialize
	Enabled       bool

	// Now is the clock used to anchor the horizon. Overridable in tests.
	Now func() billing.Date

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewGenerationScheduler creates a new scheduler.
func NewGenerationScheduler(stores Stores) *GenerationScheduler {
	return &GenerationScheduler{
		Stores:        stores,
		CheckInterval: 1 * time.Hour,
		Horizon:       3,
		Enabled:       true,
		Now:           billing.Today,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (gs *GenerationScheduler) Start() {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if !gs.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	gs.ticker = time.NewTicker(gs.CheckInterval)
	gs.wg.Add(1)

	go gs.run()

	log.Printf("[Scheduler] Started with check interval: %v", gs.CheckInterval)
}

// Stop stops the scheduler.
func (gs *GenerationScheduler) Stop() {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if gs.ticker != nil {
		gs.ticker.Stop()
		close(gs.stop)
		gs.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (gs *GenerationScheduler) run() {
	defer gs.wg.Done()

	// Run immediately on start
	gs.checkAndGenerate()

	for {
		select {
		case <-gs.ticker.C:
			gs.checkAndGenerate()
		case <-gs.stop:
			return
		}
	}
}

func (gs *GenerationScheduler) checkAndGenerate() {
	ctx := context.Background()
	today := gs.Now()
	horizon := today.AddMonths(gs.Horizon).EndOfMonth()

	log.Printf("[Scheduler] Generating occurrences due through %s", horizon)

	templates, err := gs.Stores.Templates.ListTemplates(ctx)
	if err != nil {
		log.Printf("[Scheduler] Error listing templates: %v", err)
		return
	}

	generatedCount := 0
	skippedCount := 0

	for _, t := range templates {
		if !t.Active {
			continue
		}

		existing, err := gs.Stores.Occurrences.ListOccurrences(ctx, t.ID, t.StartDate, horizon)
		if err != nil {
			log.Printf("[Scheduler] Error listing occurrences for %s: %v", t.ID, err)
			continue
		}

		generated, err := expenses.Generate(t, existing, t.StartDate, horizon, uuid.NewString)
		if err != nil {
			log.Printf("[Scheduler] Error generating for %s: %v", t.ID, err)
			continue
		}
		if len(generated) == 0 {
			skippedCount++
			continue
		}

		if err := gs.Stores.Occurrences.InsertOccurrences(ctx, generated); err != nil {
			// A racing manual generate won the period; the next tick
			// will see the inserted occurrences and skip them.
			if errors.Is(err, expenses.ErrDuplicateOccurrence) {
				skippedCount++
				continue
			}
			log.Printf("[Scheduler] Error inserting occurrences for %s: %v", t.ID, err)
			continue
		}
		generatedCount += len(generated)
	}

	if generatedCount > 0 || skippedCount > 0 {
		log.Printf("[Scheduler] Completed: %d generated, %d templates up to date", generatedCount, skippedCount)
	}
}

// RunNow triggers an immediate generation pass (for testing/admin).
func (gs *GenerationScheduler) RunNow() {
	gs.checkAndGenerate()
}

// GetNextRunTime returns when the next scheduled check will occur.
func (gs *GenerationScheduler) GetNextRunTime() time.Time {
	return time.Now().Add(gs.CheckInterval)
}
