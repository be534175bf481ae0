package planner

import (
	"github.com/dyluth/easel/internal/reconcile"
	"github.com/dyluth/easel/pkg/deck"
)

// assemble merges a slide's reconciled outcome and narrative context
// into the final immutable SlideDecision. Pure constructor: every field
// is copied in, nothing is shared mutably with the inputs.
func assemble(slide *deck.SlideMessage, res *reconcile.Result, nc deck.NarrativeContext) deck.SlideDecision {
	return deck.SlideDecision{
		SlideIndex: slide.Index,
		ServiceID:  res.ServiceID,
		Variant:    res.Variant,
		LayoutID:   res.LayoutID,
		Zone:       res.Zone,
		Confidence: res.Confidence,
		Degraded:   res.Degraded,
		Narrative:  nc,
	}
}
