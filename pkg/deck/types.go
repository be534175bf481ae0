package deck

import (
	"fmt"
	"time"
)

// ContentKind identifies the family of content a service can render.
type ContentKind string

const (
	// KindText is prose and bullet content rendered by the text service.
	KindText ContentKind = "text"

	// KindChart is data-driven chart content (bar, line, pie, ...).
	KindChart ContentKind = "chart"

	// KindDiagram is structural diagram content (flow, architecture, ...).
	KindDiagram ContentKind = "diagram"

	// KindInfographic is composed visual content (icon grids, timelines, ...).
	KindInfographic ContentKind = "infographic"
)

// Validate checks if the ContentKind is a valid enum value.
func (k ContentKind) Validate() error {
	switch k {
	case KindText, KindChart, KindDiagram, KindInfographic:
		return nil
	default:
		return fmt.Errorf("unknown content kind: %q", k)
	}
}

// SlideMessage is one planned slide's narrative unit, produced upstream
// by the presentation planner. It is immutable once the plan is fixed.
type SlideMessage struct {
	Index   int      `json:"index" yaml:"index"`     // Zero-based position in the plan
	Title   string   `json:"title" yaml:"title"`     // Slide title
	Purpose string   `json:"purpose" yaml:"purpose"` // Narrative purpose tag (e.g. "metrics", "hero", "problem")
	Topics  []string `json:"topics" yaml:"topics"`   // Ordered topic strings for the slide body
}

// Validate checks if the SlideMessage has valid field values.
func (m *SlideMessage) Validate() error {
	if m.Index < 0 {
		return fmt.Errorf("invalid slide index: must be >= 0, got %d", m.Index)
	}

	if m.Title == "" {
		return fmt.Errorf("slide title cannot be empty")
	}

	if m.Purpose == "" {
		return fmt.Errorf("slide purpose cannot be empty")
	}

	return nil
}

// ServiceCapability is the capability snapshot for a single remote
// service, as declared by its capability endpoint. Owned by the registry;
// read-only to every other component.
type ServiceCapability struct {
	ServiceID    string              `json:"service_id"`    // Configured service identifier
	Kinds        []ContentKind       `json:"kinds"`         // Content kinds the service renders
	Variants     map[string][]string `json:"variants"`      // kind -> declared variant vocabulary
	KeywordHints []string            `json:"keyword_hints"` // Topic keywords the service matches on
	Stale        bool                `json:"stale"`         // True when the last refresh attempt failed
	FetchedAt    time.Time           `json:"fetched_at"`    // When this snapshot was taken
	LastSuccess  time.Time           `json:"last_success"`  // Last time the capability endpoint answered
}

// Validate checks if the ServiceCapability has valid field values.
func (c *ServiceCapability) Validate() error {
	if c.ServiceID == "" {
		return fmt.Errorf("service ID cannot be empty")
	}

	for _, kind := range c.Kinds {
		if err := kind.Validate(); err != nil {
			return fmt.Errorf("invalid capability kind: %w", err)
		}
	}

	return nil
}

// SupportsVariant reports whether the capability declares the given
// variant for any of its kinds.
func (c *ServiceCapability) SupportsVariant(variant string) bool {
	for _, variants := range c.Variants {
		for _, v := range variants {
			if v == variant {
				return true
			}
		}
	}
	return false
}

// CandidateDecision is one service's bid for a slide. Candidates are
// ephemeral: the negotiator produces them, selection consumes them.
type CandidateDecision struct {
	ServiceID     string    `json:"service_id"`     // Bidding service
	Variant       string    `json:"variant"`        // Proposed content variant
	Confidence    float64   `json:"confidence"`     // Self-reported score in [0,1]
	Reason        string    `json:"reason"`         // Human-readable justification
	RequiredSpace SpaceNeed `json:"required_space"` // Space the variant needs to render
}

// Validate checks if the CandidateDecision has valid field values.
func (c *CandidateDecision) Validate() error {
	if c.ServiceID == "" {
		return fmt.Errorf("candidate service ID cannot be empty")
	}

	if c.Confidence < 0 || c.Confidence > 1 {
		return fmt.Errorf("candidate confidence must be in [0,1], got %v", c.Confidence)
	}

	return nil
}

// SlideDecision is the final, immutable outcome for one slide. Created by
// the planner's assembler, consumed by the dispatcher, never mutated.
type SlideDecision struct {
	SlideIndex int              `json:"slide_index"` // Index of the slide this decision is for
	ServiceID  string           `json:"service_id"`  // Chosen content service
	Variant    string           `json:"variant"`     // Chosen content variant
	LayoutID   string           `json:"layout_id"`   // Chosen layout
	Zone       ContentZone      `json:"zone"`        // Exact zone geometry the content must fit
	Confidence float64          `json:"confidence"`  // Winning bid confidence
	Degraded   bool             `json:"degraded"`    // True when a fallback path produced this decision
	Narrative  NarrativeContext `json:"narrative"`   // Read-only view of the slide's neighbors
}

// Validate checks if the SlideDecision has valid field values.
func (d *SlideDecision) Validate() error {
	if d.SlideIndex < 0 {
		return fmt.Errorf("invalid slide index: must be >= 0, got %d", d.SlideIndex)
	}

	if d.ServiceID == "" {
		return fmt.Errorf("decision service ID cannot be empty")
	}

	if d.LayoutID == "" {
		return fmt.Errorf("decision layout ID cannot be empty")
	}

	if d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("decision confidence must be in [0,1], got %v", d.Confidence)
	}

	if err := d.Zone.Validate(); err != nil {
		return fmt.Errorf("invalid decision zone: %w", err)
	}

	return d.Narrative.Validate()
}

// PresentationPlan is the ordered sequence of per-slide decisions for one
// presentation request. The decision log lives in the journal, keyed by
// the plan ID.
type PresentationPlan struct {
	ID        string          `json:"id"`        // UUID for this planning run
	Slides    []SlideMessage  `json:"slides"`    // The input plan, in slide order
	Decisions []SlideDecision `json:"decisions"` // One decision per slide, index-aligned with Slides
}

// Validate checks if the PresentationPlan is internally consistent.
func (p *PresentationPlan) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("plan ID cannot be empty")
	}

	if len(p.Slides) == 0 {
		return fmt.Errorf("plan has no slides")
	}

	if len(p.Decisions) != len(p.Slides) {
		return fmt.Errorf("plan has %d slides but %d decisions", len(p.Slides), len(p.Decisions))
	}

	for i, d := range p.Decisions {
		if d.SlideIndex != i {
			return fmt.Errorf("decision at position %d carries slide index %d", i, d.SlideIndex)
		}
		if err := d.Validate(); err != nil {
			return fmt.Errorf("invalid decision for slide %d: %w", i, err)
		}
	}

	return nil
}
