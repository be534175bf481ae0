// Package planner is the core decision engine: it validates an incoming
// slide plan, runs negotiation, layout resolution and reconciliation for
// every slide concurrently, builds narrative contexts over the finalized
// plan, assembles immutable per-slide decisions, and hands the plan to
// the dispatcher.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/dyluth/easel/internal/config"
	"github.com/dyluth/easel/internal/dispatch"
	"github.com/dyluth/easel/internal/layout"
	"github.com/dyluth/easel/internal/narrative"
	"github.com/dyluth/easel/internal/negotiate"
	"github.com/dyluth/easel/internal/reconcile"
	"github.com/dyluth/easel/internal/registry"
	"github.com/dyluth/easel/pkg/deck"
	"github.com/dyluth/easel/pkg/journal"
)

// ErrPlanInvalid is returned when the caller-supplied slide plan is
// empty or malformed. It is the only fatal error in the engine: every
// other failure degrades the affected slide and the call still returns
// a complete, order-preserving result set.
var ErrPlanInvalid = errors.New("plan invalid")

// Initial space estimate used for negotiation before any layout has
// been resolved: a full-bleed zone on a 1920x1080 canvas.
var tentativeSpace = deck.SpaceNeed{Width: 1760, Height: 880}

// Engine wires the per-slide decision pipeline together. One Engine
// serves many plans; all per-plan state lives on the stack of
// PlanAndDispatch.
type Engine struct {
	registry   *registry.Registry
	negotiator *negotiate.Negotiator
	resolver   *layout.Resolver
	reconciler *reconcile.Reconciler
	dispatcher *dispatch.Dispatcher
	journal    *journal.Client
	cfg        *config.EaselConfig
}

// NewEngine creates the decision engine over already-constructed
// components.
func NewEngine(reg *registry.Registry, neg *negotiate.Negotiator, res *layout.Resolver, rec *reconcile.Reconciler, dis *dispatch.Dispatcher, jnl *journal.Client, cfg *config.EaselConfig) *Engine {
	return &Engine{
		registry:   reg,
		negotiator: neg,
		resolver:   res,
		reconciler: rec,
		dispatcher: dis,
		journal:    jnl,
		cfg:        cfg,
	}
}

// Plan decides every slide without dispatching generation: negotiate,
// resolve and reconcile per slide, then assemble the finalized plan.
// Only an invalid input plan fails the call; every other error is
// absorbed into degraded decisions.
func (e *Engine) Plan(ctx context.Context, slides []deck.SlideMessage) (*deck.PresentationPlan, error) {
	if err := validateSlides(slides); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlanInvalid, err)
	}

	planID := uuid.New().String()
	log.Printf("[INFO] Planning started: plan_id=%s slides=%d", planID, len(slides))

	e.appendEvent(ctx, &journal.Event{
		PlanID:     planID,
		SlideIndex: -1,
		Type:       journal.EventPlanStarted,
		Reason:     fmt.Sprintf("%d slides", len(slides)),
	})
	e.annotateStaleCapabilities(ctx, planID)

	// Per-slide negotiation, layout resolution and reconciliation are
	// independent; each goroutine owns its result slot.
	reconciled := make([]*reconcile.Result, len(slides))
	var wg sync.WaitGroup
	for i := range slides {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reconciled[i] = e.decideSlide(ctx, planID, &slides[i])
		}(i)
	}
	wg.Wait()

	// Barrier: the full plan is finalized before any narrative context
	// is built. After this point all per-slide data is immutable.
	window := *e.cfg.Narrative.Window
	decisions := make([]deck.SlideDecision, len(slides))
	for i := range slides {
		decisions[i] = assemble(&slides[i], reconciled[i], narrative.Build(slides, i, window))
	}

	plan := &deck.PresentationPlan{
		ID:        planID,
		Slides:    slides,
		Decisions: decisions,
	}

	log.Printf("[INFO] Planning completed: plan_id=%s", planID)
	return plan, nil
}

// PlanAndDispatch plans every slide, dispatches generation, and returns
// the finalized plan together with per-slide generation results in
// slide order. Only an invalid input plan fails the call; every other
// error is absorbed into degraded decisions or failed result slots.
func (e *Engine) PlanAndDispatch(ctx context.Context, slides []deck.SlideMessage) (*deck.PresentationPlan, []dispatch.Result, error) {
	plan, err := e.Plan(ctx, slides)
	if err != nil {
		return nil, nil, err
	}

	results := e.dispatcher.Dispatch(ctx, plan)

	e.appendEvent(ctx, &journal.Event{
		PlanID:     plan.ID,
		SlideIndex: -1,
		Type:       journal.EventPlanCompleted,
	})

	return plan, results, nil
}

// decideSlide runs the negotiate -> resolve -> reconcile pipeline for a
// single slide. It never fails: unreachable collaborators leave the
// reconciler with no layout candidates and the universal-fit fallback
// takes over.
func (e *Engine) decideSlide(ctx context.Context, planID string, slide *deck.SlideMessage) *reconcile.Result {
	candidate, degraded := e.negotiator.Negotiate(ctx, planID, slide, tentativeSpace)

	kind := e.cfg.Services[candidate.ServiceID].Kind

	layouts, err := e.resolver.Resolve(ctx, kind, candidate.Variant, len(slide.Topics))
	if err != nil {
		log.Printf("[WARN] Layout resolution failed for slide %d: %v", slide.Index, err)
		layouts = nil
	} else {
		e.appendEvent(ctx, &journal.Event{
			PlanID:     planID,
			SlideIndex: slide.Index,
			Type:       journal.EventLayoutResolved,
			LayoutID:   layouts[0].Layout.ID,
			Confidence: layouts[0].Confidence,
			Reason:     fmt.Sprintf("%d candidates", len(layouts)),
		})
	}

	return e.reconciler.Reconcile(ctx, planID, slide, candidate, degraded, kind, layouts)
}

// annotateStaleCapabilities records a plan-scoped event for every
// capability entry that is stale at plan start, so degraded inputs are
// visible in the decision log.
func (e *Engine) annotateStaleCapabilities(ctx context.Context, planID string) {
	for name := range e.cfg.Services {
		capability, err := e.registry.Get(name)
		if err != nil || capability == nil || !capability.Stale {
			continue
		}
		e.appendEvent(ctx, &journal.Event{
			PlanID:     planID,
			SlideIndex: -1,
			Type:       journal.EventCapabilityStale,
			ServiceID:  name,
			Reason:     "capability snapshot stale at plan start",
		})
	}
}

// DecisionLog returns a plan's full decision log in append order.
func (e *Engine) DecisionLog(ctx context.Context, planID string) ([]*journal.Event, error) {
	events, err := e.journal.List(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to read decision log for plan %s: %w", planID, err)
	}
	return events, nil
}

// validateSlides checks the caller-supplied plan: non-empty, every slide
// valid, and indexes matching positions.
func validateSlides(slides []deck.SlideMessage) error {
	if len(slides) == 0 {
		return fmt.Errorf("slide plan is empty")
	}

	for i := range slides {
		if err := slides[i].Validate(); err != nil {
			return fmt.Errorf("slide %d: %w", i, err)
		}
		if slides[i].Index != i {
			return fmt.Errorf("slide at position %d carries index %d", i, slides[i].Index)
		}
	}

	return nil
}

// appendEvent records a journal event, logging rather than failing when
// the journal is unreachable.
func (e *Engine) appendEvent(ctx context.Context, event *journal.Event) {
	if err := e.journal.Append(ctx, event); err != nil {
		log.Printf("[WARN] Failed to append journal event %s: %v", event.Type, err)
	}
}
