package deck

import "fmt"

// NarrativePosition is the bucket a slide occupies in the overall story
// arc. Positions are derived purely from slide index ratios; they never
// depend on generated content.
type NarrativePosition string

const (
	// PositionOpening is the first slide of the plan.
	PositionOpening NarrativePosition = "opening"

	// PositionSetup covers early slides that establish context.
	PositionSetup NarrativePosition = "setup"

	// PositionDevelopment covers the body of the presentation.
	PositionDevelopment NarrativePosition = "development"

	// PositionResolution covers late slides that draw conclusions.
	PositionResolution NarrativePosition = "resolution"

	// PositionClosing is the final slide of the plan.
	PositionClosing NarrativePosition = "closing"
)

// Validate checks if the NarrativePosition is a valid enum value.
func (p NarrativePosition) Validate() error {
	switch p {
	case PositionOpening, PositionSetup, PositionDevelopment,
		PositionResolution, PositionClosing:
		return nil
	default:
		return fmt.Errorf("unknown narrative position: %q", p)
	}
}

// SlideSummary is the bounded view of a neighboring slide carried inside
// a NarrativeContext: just enough for a generator to avoid repeating or
// contradicting its siblings.
type SlideSummary struct {
	Title   string `json:"title"`
	Purpose string `json:"purpose"`
}

// NarrativeContext is a read-only summary of one slide's position in the
// presentation sequence. Built once over the finalized plan and attached
// to every generation request; generators never see sibling output, only
// this pre-computed view.
type NarrativeContext struct {
	SlideIndex  int               `json:"slide_index"`
	TotalSlides int               `json:"total_slides"`
	Position    NarrativePosition `json:"position"`
	Previous    []SlideSummary    `json:"previous"` // Up to K preceding slides, oldest first
	Upcoming    []SlideSummary    `json:"upcoming"` // Up to K following slides, nearest first
}

// Validate checks if the NarrativeContext has valid field values.
func (n *NarrativeContext) Validate() error {
	if n.TotalSlides < 1 {
		return fmt.Errorf("narrative total slides must be >= 1, got %d", n.TotalSlides)
	}

	if n.SlideIndex < 0 || n.SlideIndex >= n.TotalSlides {
		return fmt.Errorf("narrative slide index %d out of range [0,%d)", n.SlideIndex, n.TotalSlides)
	}

	return n.Position.Validate()
}
