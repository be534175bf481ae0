package journal

import (
	"fmt"

	"github.com/google/uuid"
)

// EventType identifies the kind of negotiation event being recorded.
type EventType string

const (
	// EventPlanStarted marks the start of a planning run.
	EventPlanStarted EventType = "plan_started"

	// EventCapabilityStale records a failed capability fetch; the prior
	// snapshot stays in use, marked stale.
	EventCapabilityStale EventType = "capability_stale"

	// EventCandidateReceived records one service's bid for a slide.
	EventCandidateReceived EventType = "candidate_received"

	// EventCandidateExcluded records a service dropped from a round
	// (timeout, transport error, or invalid response).
	EventCandidateExcluded EventType = "candidate_excluded"

	// EventWinnerSelected records the negotiator's chosen candidate.
	EventWinnerSelected EventType = "winner_selected"

	// EventFallbackSelected records the deterministic default chosen when
	// no candidate cleared the confidence threshold.
	EventFallbackSelected EventType = "fallback_selected"

	// EventLayoutResolved records the layout candidate set for a slide.
	EventLayoutResolved EventType = "layout_resolved"

	// EventVariantReask records a re-ask of the winning service for an
	// alternate variant during reconciliation.
	EventVariantReask EventType = "variant_reask"

	// EventLayoutReask records a move to the next-ranked layout candidate
	// during reconciliation.
	EventLayoutReask EventType = "layout_reask"

	// EventReconciled records a slide whose service, variant and layout
	// satisfy all constraints.
	EventReconciled EventType = "reconciled"

	// EventReconcileFallback records round-budget exhaustion and the
	// switch to the universal-fit triple.
	EventReconcileFallback EventType = "reconcile_fallback"

	// EventDispatchStarted marks the start of generation fan-out.
	EventDispatchStarted EventType = "dispatch_started"

	// EventSlideGenerated records one slide's successful generation.
	EventSlideGenerated EventType = "slide_generated"

	// EventSlideFailed records one slide's generation failure.
	EventSlideFailed EventType = "slide_failed"

	// EventPlanCompleted marks the end of a planning run.
	EventPlanCompleted EventType = "plan_completed"
)

// Validate checks if the EventType is a valid enum value.
func (t EventType) Validate() error {
	switch t {
	case EventPlanStarted, EventCapabilityStale,
		EventCandidateReceived, EventCandidateExcluded, EventWinnerSelected,
		EventFallbackSelected, EventLayoutResolved, EventVariantReask,
		EventLayoutReask, EventReconciled, EventReconcileFallback,
		EventDispatchStarted, EventSlideGenerated, EventSlideFailed,
		EventPlanCompleted:
		return nil
	default:
		return fmt.Errorf("unknown event type: %q", t)
	}
}

// Event is one entry in a plan's decision log. SlideIndex is -1 for
// plan-level events (start, dispatch, completion, stale capabilities).
type Event struct {
	ID          string    `json:"id"`                   // UUID for this event
	PlanID      string    `json:"plan_id"`              // Plan this event belongs to
	SlideIndex  int       `json:"slide_index"`          // Affected slide, or -1 for plan-level events
	Type        EventType `json:"type"`                 // What happened
	ServiceID   string    `json:"service_id,omitempty"` // Service involved, when relevant
	Variant     string    `json:"variant,omitempty"`    // Variant involved, when relevant
	LayoutID    string    `json:"layout_id,omitempty"`  // Layout involved, when relevant
	Confidence  float64   `json:"confidence"`           // Reported confidence, when relevant
	Degraded    bool      `json:"degraded"`             // Whether the recorded step took a fallback path
	Reason      string    `json:"reason,omitempty"`     // Human-readable accept/reject reason
	CreatedAtMs int64     `json:"created_at_ms"`        // Unix timestamp in milliseconds
}

// Validate checks if the Event has valid field values.
func (e *Event) Validate() error {
	if !isValidUUID(e.ID) {
		return fmt.Errorf("invalid event ID: not a valid UUID")
	}

	if !isValidUUID(e.PlanID) {
		return fmt.Errorf("invalid plan ID: not a valid UUID")
	}

	if e.SlideIndex < -1 {
		return fmt.Errorf("invalid slide index: must be >= -1, got %d", e.SlideIndex)
	}

	if err := e.Type.Validate(); err != nil {
		return fmt.Errorf("invalid event type: %w", err)
	}

	if e.Confidence < 0 || e.Confidence > 1 {
		return fmt.Errorf("event confidence must be in [0,1], got %v", e.Confidence)
	}

	return nil
}

// isValidUUID checks if a string is a valid UUID format.
func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
