// Package dispatch fans generation calls out to the chosen content
// services once a plan is finalized. Concurrency is bounded by a
// configurable ceiling so no downstream service is overwhelmed, and the
// result set always comes back in slide order regardless of which call
// finishes first.
package dispatch

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/dyluth/easel/pkg/deck"
	"github.com/dyluth/easel/pkg/journal"
)

// Generator is the slice of a content service the dispatcher consumes.
type Generator interface {
	ID() string
	Generate(ctx context.Context, req *deck.GenerateRequest) (*deck.GeneratedContent, error)
}

// Result is the generation outcome for one slide. Exactly one of
// Content and Err is set.
type Result struct {
	SlideIndex int
	Content    *deck.GeneratedContent
	Err        error
}

// Dispatcher executes a plan's generation calls under bounded
// concurrency.
type Dispatcher struct {
	services map[string]Generator
	journal  *journal.Client
	limit    int
}

// New creates a dispatcher. The services map is keyed by service ID and
// must cover every service a decision can name; limit is the in-flight
// generation ceiling.
func New(services map[string]Generator, jnl *journal.Client, limit int) *Dispatcher {
	return &Dispatcher{
		services: services,
		journal:  jnl,
		limit:    limit,
	}
}

// Dispatch fans out one generation call per slide decision and gathers
// results preserving original slide order. A single slide's failure
// never aborts its siblings: the failed slot carries the error and the
// result set is always complete.
func (d *Dispatcher) Dispatch(ctx context.Context, plan *deck.PresentationPlan) []Result {
	d.appendEvent(ctx, &journal.Event{
		PlanID:     plan.ID,
		SlideIndex: -1,
		Type:       journal.EventDispatchStarted,
		Reason:     fmt.Sprintf("%d slides, %d max in flight", len(plan.Decisions), d.limit),
	})

	results := make([]Result, len(plan.Decisions))
	semaphore := make(chan struct{}, d.limit)
	var wg sync.WaitGroup

	for i := range plan.Decisions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			select {
			case semaphore <- struct{}{}:
				defer func() { <-semaphore }()
			case <-ctx.Done():
				results[i] = Result{SlideIndex: i, Err: ctx.Err()}
				return
			}

			results[i] = d.generateSlide(ctx, plan, i)
		}(i)
	}

	wg.Wait()
	return results
}

// generateSlide runs one slide's generation call and journals the
// outcome.
func (d *Dispatcher) generateSlide(ctx context.Context, plan *deck.PresentationPlan, i int) Result {
	decision := &plan.Decisions[i]

	svc, ok := d.services[decision.ServiceID]
	if !ok {
		err := fmt.Errorf("no generator registered for service %s", decision.ServiceID)
		d.journalFailure(ctx, plan.ID, i, decision.ServiceID, err)
		return Result{SlideIndex: i, Err: err}
	}

	req := &deck.GenerateRequest{
		Slide:     plan.Slides[i],
		Variant:   decision.Variant,
		Zone:      decision.Zone,
		Narrative: decision.Narrative,
	}

	content, err := svc.Generate(ctx, req)
	if err != nil {
		d.journalFailure(ctx, plan.ID, i, decision.ServiceID, err)
		return Result{SlideIndex: i, Err: err}
	}

	d.appendEvent(ctx, &journal.Event{
		PlanID:     plan.ID,
		SlideIndex: i,
		Type:       journal.EventSlideGenerated,
		ServiceID:  decision.ServiceID,
		Variant:    decision.Variant,
	})

	return Result{SlideIndex: i, Content: content}
}

func (d *Dispatcher) journalFailure(ctx context.Context, planID string, slideIndex int, serviceID string, cause error) {
	log.Printf("[WARN] Generation failed for slide %d via %s: %v", slideIndex, serviceID, cause)
	d.appendEvent(ctx, &journal.Event{
		PlanID:     planID,
		SlideIndex: slideIndex,
		Type:       journal.EventSlideFailed,
		ServiceID:  serviceID,
		Reason:     cause.Error(),
	})
}

// appendEvent records a journal event, logging rather than failing when
// the journal is unreachable.
func (d *Dispatcher) appendEvent(ctx context.Context, event *journal.Event) {
	if err := d.journal.Append(ctx, event); err != nil {
		log.Printf("[WARN] Failed to append journal event %s: %v", event.Type, err)
	}
}
