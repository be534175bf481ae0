// Package layout resolves layout candidates for a negotiated content
// kind and variant. Ranking and geometry are the layout collaborator's
// responsibility; the resolver only rejects malformed candidates.
package layout

import (
	"context"
	"fmt"
	"log"

	"github.com/dyluth/easel/pkg/deck"
)

// LayoutService is the slice of the layout collaborator the resolver
// consumes.
type LayoutService interface {
	RecommendLayouts(ctx context.Context, req *deck.LayoutRequest) ([]deck.RankedLayout, error)
}

// Resolver queries the layout collaborator and shape-validates its
// candidates.
type Resolver struct {
	svc LayoutService
}

// New creates a resolver over the given layout collaborator.
func New(svc LayoutService) *Resolver {
	return &Resolver{svc: svc}
}

// Resolve returns layout candidates for the given content kind and
// variant, in the collaborator's ranking order. Candidates that fail
// shape validation - invalid zone geometry, or no zone accepting the
// requested kind - are dropped, not reordered. Returns an error only
// when the collaborator itself is unreachable or returns nothing usable.
func (r *Resolver) Resolve(ctx context.Context, kind deck.ContentKind, variant string, topicCount int) ([]deck.RankedLayout, error) {
	req := &deck.LayoutRequest{
		Kind:       kind,
		Variant:    variant,
		TopicCount: topicCount,
	}

	ranked, err := r.svc.RecommendLayouts(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("layout recommendation for kind=%s variant=%s failed: %w", kind, variant, err)
	}

	valid := make([]deck.RankedLayout, 0, len(ranked))
	for i := range ranked {
		candidate := &ranked[i]

		if err := candidate.Layout.Validate(); err != nil {
			log.Printf("[WARN] Dropping layout candidate %q: %v", candidate.Layout.ID, err)
			continue
		}

		if candidate.Layout.ZoneForKind(kind) == nil {
			log.Printf("[WARN] Dropping layout candidate %q: no zone accepts kind %s", candidate.Layout.ID, kind)
			continue
		}

		valid = append(valid, *candidate)
	}

	if len(valid) == 0 {
		return nil, fmt.Errorf("no valid layout candidates for kind=%s variant=%s", kind, variant)
	}

	return valid, nil
}
