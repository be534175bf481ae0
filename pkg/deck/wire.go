package deck

import (
	"encoding/json"
	"fmt"
)

// Wire contract types exchanged with the remote collaborators. The shapes
// here are a design contract: content services answer can-handle queries
// and variant recommendations, the layout service answers layout
// recommendations, and generation returns an opaque payload.

// CanHandleRequest asks a content service whether it can render a slide
// in the given tentative space.
type CanHandleRequest struct {
	TopicSummary string    `json:"topic_summary"` // Title plus joined topic strings
	Purpose      string    `json:"purpose"`       // The slide's purpose tag
	Keywords     []string  `json:"keywords"`      // Keyword signature extracted from the slide
	Space        SpaceNeed `json:"space"`         // Best-known available space
}

// CanHandleResponse is a content service's answer to a can-handle query.
type CanHandleResponse struct {
	CanHandle  bool      `json:"can_handle"`
	Confidence float64   `json:"confidence"` // Self-reported score in [0,1]
	Reason     string    `json:"reason"`
	Variant    string    `json:"variant"` // Suggested content variant
	Fit        SpaceNeed `json:"fit"`     // Space the suggested variant requires
}

// Validate checks if the CanHandleResponse has valid field values.
func (r *CanHandleResponse) Validate() error {
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("can-handle confidence must be in [0,1], got %v", r.Confidence)
	}
	if r.CanHandle && r.Variant == "" {
		return fmt.Errorf("can-handle response offers no variant")
	}
	return nil
}

// VariantRequest asks the winning service for variant recommendations
// that fit a known space.
type VariantRequest struct {
	TopicSummary string    `json:"topic_summary"`
	Purpose      string    `json:"purpose"`
	Space        SpaceNeed `json:"space"` // The assigned zone's dimensions
}

// VariantOption is one entry in a service's ranked variant
// recommendation list.
type VariantOption struct {
	Variant       string    `json:"variant"`
	Confidence    float64   `json:"confidence"`
	RequiredSpace SpaceNeed `json:"required_space"`
	Reason        string    `json:"reason"`
}

// Validate checks if the VariantOption has valid field values.
func (v *VariantOption) Validate() error {
	if v.Variant == "" {
		return fmt.Errorf("variant option name cannot be empty")
	}
	if v.Confidence < 0 || v.Confidence > 1 {
		return fmt.Errorf("variant confidence must be in [0,1], got %v", v.Confidence)
	}
	return nil
}

// LayoutRequest asks the layout collaborator for layouts matching a
// content kind and variant.
type LayoutRequest struct {
	Kind       ContentKind `json:"kind"`
	Variant    string      `json:"variant"`
	TopicCount int         `json:"topic_count"` // Drives sub-zone count for split layouts
}

// RankedLayout is one entry in the layout collaborator's recommendation
// list: a full layout spec with the collaborator's confidence in it.
type RankedLayout struct {
	Layout     LayoutSpec `json:"layout"`
	Confidence float64    `json:"confidence"`
}

// GenerateRequest carries everything a content service needs to render
// one slide independently of its siblings.
type GenerateRequest struct {
	Slide     SlideMessage     `json:"slide"`
	Variant   string           `json:"variant"`
	Zone      ContentZone      `json:"zone"`
	Narrative NarrativeContext `json:"narrative"`
}

// GeneratedContent is the opaque payload a content service returns. The
// engine never inspects it; compositing happens downstream.
type GeneratedContent struct {
	ServiceID string          `json:"service_id"`
	Variant   string          `json:"variant"`
	Payload   json.RawMessage `json:"payload"`
}
