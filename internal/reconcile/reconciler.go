// Package reconcile enforces that a slide's chosen layout, content
// service and variant are mutually consistent, renegotiating within a
// hard round budget when they are not.
//
// Three invariants must hold simultaneously for a non-degraded result:
//
//  1. the layout supports the slide's content kind and variant;
//  2. the variant's declared space requirement fits the assigned zone
//     (including sub-needs against sub-zones for split content);
//  3. the winning bid's confidence cleared the configured threshold.
//
// The loop is a bounded backtracking search, not recursive retries: one
// variant re-ask, one layout re-ask, three rounds total, then a terminal
// universal-fit fallback. The cap exists because both sides advertise
// self-reported requirements that may never converge.
package reconcile

import (
	"context"
	"log"

	"github.com/dyluth/easel/internal/config"
	"github.com/dyluth/easel/pkg/deck"
	"github.com/dyluth/easel/pkg/journal"
)

// maxRounds caps the renegotiation alternation between variant and
// layout re-asks.
const maxRounds = 3

// Universal-fit zone geometry used when the round budget is exhausted:
// a single full-bleed content region on a 1920x1080 canvas.
const (
	universalZoneWidth  = 1760
	universalZoneHeight = 880
	universalZoneX      = 80
	universalZoneY      = 120
)

// VariantService is the slice of a content service the reconciler
// consumes for alternate-variant re-asks.
type VariantService interface {
	ID() string
	RecommendVariants(ctx context.Context, req *deck.VariantRequest) ([]deck.VariantOption, error)
}

// Result is the reconciled (service, variant, layout, zone) outcome for
// one slide.
type Result struct {
	ServiceID  string
	Variant    string
	LayoutID   string
	Zone       deck.ContentZone
	Confidence float64
	Degraded   bool
}

// Reconciler runs the constraint validation and renegotiation loop.
type Reconciler struct {
	services map[string]VariantService
	journal  *journal.Client
	cfg      *config.EaselConfig
}

// New creates a reconciler. The services map is keyed by service ID and
// must cover every service the negotiator can select.
func New(services map[string]VariantService, jnl *journal.Client, cfg *config.EaselConfig) *Reconciler {
	return &Reconciler{
		services: services,
		journal:  jnl,
		cfg:      cfg,
	}
}

// Reconcile validates the negotiated candidate against the ranked layout
// list and renegotiates within the round budget. degradedIn carries the
// negotiator's fallback flag; the result is degraded if either side took
// a fallback path.
func (r *Reconciler) Reconcile(ctx context.Context, planID string, slide *deck.SlideMessage, candidate *deck.CandidateDecision, degradedIn bool, kind deck.ContentKind, layouts []deck.RankedLayout) *Result {
	variant := candidate.Variant
	need := candidate.RequiredSpace
	confidence := candidate.Confidence

	layoutIdx := 0
	variantReasked := false
	layoutReasked := false

	for round := 0; round < maxRounds; round++ {
		if layoutIdx >= len(layouts) {
			break
		}
		spec := &layouts[layoutIdx].Layout

		zone := spec.ZoneForKind(kind)

		// Invariant 1: the layout must support this kind and variant.
		if zone == nil || !spec.SupportsKindVariant(kind, variant) {
			if next, ok := r.nextLayout(ctx, planID, slide.Index, layouts, layoutIdx, &layoutReasked, "layout does not support "+string(kind)+"/"+variant); ok {
				layoutIdx = next
				continue
			}
			break
		}

		// Invariant 2: the variant's declared space must fit the zone.
		if !need.FitsZone(zone) {
			if !variantReasked {
				variantReasked = true
				if alt := r.reaskVariant(ctx, planID, slide, candidate.ServiceID, zone); alt != nil {
					variant = alt.Variant
					need = alt.RequiredSpace
					confidence = alt.Confidence
					continue
				}
			}
			if next, ok := r.nextLayout(ctx, planID, slide.Index, layouts, layoutIdx, &layoutReasked, "variant space exceeds zone"); ok {
				layoutIdx = next
				continue
			}
			break
		}

		// Invariant 3: the bid must have cleared the threshold, unless
		// negotiation already fell back (the candidate is then the
		// configured default and carries no confidence of its own).
		if !degradedIn && confidence < *r.cfg.Negotiation.MinConfidence {
			break
		}

		r.appendEvent(ctx, &journal.Event{
			PlanID:     planID,
			SlideIndex: slide.Index,
			Type:       journal.EventReconciled,
			ServiceID:  candidate.ServiceID,
			Variant:    variant,
			LayoutID:   spec.ID,
			Confidence: confidence,
			Degraded:   degradedIn,
		})

		return &Result{
			ServiceID:  candidate.ServiceID,
			Variant:    variant,
			LayoutID:   spec.ID,
			Zone:       *zone,
			Confidence: confidence,
			Degraded:   degradedIn,
		}
	}

	return r.fallback(ctx, planID, slide.Index, layouts)
}

// nextLayout advances to the next-ranked layout candidate if the single
// layout re-ask is still available. Returns the new index and whether
// the advance happened.
func (r *Reconciler) nextLayout(ctx context.Context, planID string, slideIndex int, layouts []deck.RankedLayout, current int, reasked *bool, reason string) (int, bool) {
	if *reasked || current+1 >= len(layouts) {
		return current, false
	}
	*reasked = true

	r.appendEvent(ctx, &journal.Event{
		PlanID:     planID,
		SlideIndex: slideIndex,
		Type:       journal.EventLayoutReask,
		LayoutID:   layouts[current+1].Layout.ID,
		Reason:     reason,
	})

	return current + 1, true
}

// reaskVariant asks the winning service once for an alternate variant
// that fits the zone, returning the best fitting option above the
// confidence threshold, or nil.
func (r *Reconciler) reaskVariant(ctx context.Context, planID string, slide *deck.SlideMessage, serviceID string, zone *deck.ContentZone) *deck.VariantOption {
	svc, ok := r.services[serviceID]
	if !ok {
		log.Printf("[WARN] No variant service registered for %s, skipping re-ask", serviceID)
		return nil
	}

	req := &deck.VariantRequest{
		TopicSummary: slide.Title,
		Purpose:      slide.Purpose,
		Space:        deck.SpaceNeed{Width: zone.Width, Height: zone.Height},
	}

	options, err := svc.RecommendVariants(ctx, req)
	if err != nil {
		log.Printf("[WARN] Variant re-ask to %s failed: %v", serviceID, err)
		return nil
	}

	for i := range options {
		opt := &options[i]
		if opt.Confidence < *r.cfg.Negotiation.MinConfidence {
			continue
		}
		if !opt.RequiredSpace.FitsZone(zone) {
			continue
		}

		r.appendEvent(ctx, &journal.Event{
			PlanID:     planID,
			SlideIndex: slide.Index,
			Type:       journal.EventVariantReask,
			ServiceID:  serviceID,
			Variant:    opt.Variant,
			Confidence: opt.Confidence,
			Reason:     opt.Reason,
		})

		return opt
	}

	return nil
}

// fallback produces the terminal universal-fit result. The configured
// fallback layout is used when it appeared among the resolved
// candidates; otherwise a synthetic full-bleed zone stands in so the
// decision always carries concrete geometry.
func (r *Reconciler) fallback(ctx context.Context, planID string, slideIndex int, layouts []deck.RankedLayout) *Result {
	zone := deck.ContentZone{
		Name:    "content",
		Width:   universalZoneWidth,
		Height:  universalZoneHeight,
		X:       universalZoneX,
		Y:       universalZoneY,
		Accepts: []deck.ContentKind{deck.KindText, deck.KindChart, deck.KindDiagram, deck.KindInfographic},
	}

	fallbackKind := r.cfg.Services[r.cfg.Fallback.Service].Kind
	for i := range layouts {
		if layouts[i].Layout.ID == r.cfg.Fallback.Layout {
			if z := layouts[i].Layout.ZoneForKind(fallbackKind); z != nil {
				zone = *z
			}
			break
		}
	}

	r.appendEvent(ctx, &journal.Event{
		PlanID:     planID,
		SlideIndex: slideIndex,
		Type:       journal.EventReconcileFallback,
		ServiceID:  r.cfg.Fallback.Service,
		Variant:    r.cfg.Fallback.Variant,
		LayoutID:   r.cfg.Fallback.Layout,
		Degraded:   true,
		Reason:     "renegotiation round budget exhausted",
	})

	return &Result{
		ServiceID: r.cfg.Fallback.Service,
		Variant:   r.cfg.Fallback.Variant,
		LayoutID:  r.cfg.Fallback.Layout,
		Zone:      zone,
		Degraded:  true,
	}
}

// appendEvent records a journal event, logging rather than failing when
// the journal is unreachable.
func (r *Reconciler) appendEvent(ctx context.Context, event *journal.Event) {
	if err := r.journal.Append(ctx, event); err != nil {
		log.Printf("[WARN] Failed to append journal event %s: %v", event.Type, err)
	}
}
