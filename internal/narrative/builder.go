// Package narrative derives each slide's position in the overall story
// purely from the finalized slide plan. Because slide content is
// generated concurrently, no generator ever sees a sibling's output;
// this pre-computed view is the only cross-slide signal a generation
// request carries.
package narrative

import "github.com/dyluth/easel/pkg/deck"

// Ratio thresholds for the middle narrative buckets. First and last
// slides are bucketed positionally before ratios apply.
const (
	setupRatio       = 0.3
	developmentRatio = 0.7
)

// Build computes the narrative context for one slide of a finalized
// plan. It is a pure function over the immutable slide list: no side
// effects, no synchronization, safe to call concurrently for every
// index.
//
// window bounds the neighbor summaries in each direction. Previous
// summaries are ordered oldest first; upcoming summaries nearest first.
func Build(slides []deck.SlideMessage, index int, window int) deck.NarrativeContext {
	total := len(slides)

	previous := make([]deck.SlideSummary, 0, window)
	for i := max(0, index-window); i < index; i++ {
		previous = append(previous, summarize(&slides[i]))
	}

	upcoming := make([]deck.SlideSummary, 0, window)
	for i := index + 1; i < min(total, index+1+window); i++ {
		upcoming = append(upcoming, summarize(&slides[i]))
	}

	return deck.NarrativeContext{
		SlideIndex:  index,
		TotalSlides: total,
		Position:    Position(index, total),
		Previous:    previous,
		Upcoming:    upcoming,
	}
}

// Position buckets a slide by its index ratio: first slide is the
// opening, last the closing, and the body splits into setup (< 0.3),
// development (< 0.7) and resolution.
func Position(index, total int) deck.NarrativePosition {
	switch {
	case index == 0:
		return deck.PositionOpening
	case index == total-1:
		return deck.PositionClosing
	}

	ratio := float64(index) / float64(total)
	switch {
	case ratio < setupRatio:
		return deck.PositionSetup
	case ratio < developmentRatio:
		return deck.PositionDevelopment
	default:
		return deck.PositionResolution
	}
}

func summarize(slide *deck.SlideMessage) deck.SlideSummary {
	return deck.SlideSummary{
		Title:   slide.Title,
		Purpose: slide.Purpose,
	}
}
