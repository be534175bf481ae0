// Package negotiate implements per-slide content negotiation: a parallel
// can-handle fan-out to every configured content service, deterministic
// winner selection by confidence, and a configured fallback when no
// service clears the minimum confidence threshold.
package negotiate

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dyluth/easel/internal/config"
	"github.com/dyluth/easel/internal/registry"
	"github.com/dyluth/easel/pkg/deck"
	"github.com/dyluth/easel/pkg/journal"
)

// ContentService is the slice of a remote content service the negotiator
// consumes. The roster is injected, so adding or removing services never
// touches negotiation logic.
type ContentService interface {
	ID() string
	CanHandle(ctx context.Context, req *deck.CanHandleRequest) (*deck.CanHandleResponse, error)
}

// Negotiator fans a can-handle query out to every content service and
// picks a winner. One Negotiator serves all slides of all plans; it
// holds no per-slide state.
type Negotiator struct {
	services []ContentService
	registry *registry.Registry
	journal  *journal.Client
	cfg      *config.EaselConfig
}

// New creates a negotiator over the injected service roster.
func New(services []ContentService, reg *registry.Registry, jnl *journal.Client, cfg *config.EaselConfig) *Negotiator {
	return &Negotiator{
		services: services,
		registry: reg,
		journal:  jnl,
		cfg:      cfg,
	}
}

// queryResult is one service's answer (or failure) within a round.
type queryResult struct {
	serviceID string
	resp      *deck.CanHandleResponse
	err       error
}

// Negotiate runs one negotiation round for a slide against the given
// tentative space. Every service is queried exactly once with an
// independent timeout; services that error, time out, or decline are
// excluded from the candidate set without blocking the others. Returns
// the winning candidate and whether the fallback path produced it.
//
// Selection over the collected set is deterministic: highest confidence
// wins, ties break by configured priority order, then by service ID.
func (n *Negotiator) Negotiate(ctx context.Context, planID string, slide *deck.SlideMessage, space deck.SpaceNeed) (*deck.CandidateDecision, bool) {
	req := &deck.CanHandleRequest{
		TopicSummary: summarize(slide),
		Purpose:      slide.Purpose,
		Keywords:     keywords(slide),
		Space:        space,
	}

	timeout := time.Duration(*n.cfg.Negotiation.QueryTimeoutMS) * time.Millisecond

	results := make(chan queryResult, len(n.services))
	var wg sync.WaitGroup

	for _, svc := range n.services {
		wg.Add(1)
		go func(svc ContentService) {
			defer wg.Done()

			queryCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			resp, err := svc.CanHandle(queryCtx, req)
			results <- queryResult{serviceID: svc.ID(), resp: resp, err: err}
		}(svc)
	}

	// Structured join: every query reports, successes and failures are
	// collected explicitly, and one broken service never aborts siblings.
	wg.Wait()
	close(results)

	candidates := n.collectCandidates(ctx, planID, slide.Index, results)

	winner := SelectWinner(candidates, n.cfg.PriorityRank)
	if winner != nil && winner.Confidence >= *n.cfg.Negotiation.MinConfidence {
		n.appendEvent(ctx, &journal.Event{
			PlanID:     planID,
			SlideIndex: slide.Index,
			Type:       journal.EventWinnerSelected,
			ServiceID:  winner.ServiceID,
			Variant:    winner.Variant,
			Confidence: winner.Confidence,
			Reason:     winner.Reason,
		})
		return winner, false
	}

	// No candidate cleared the threshold: deterministic degraded fallback.
	fallback := &deck.CandidateDecision{
		ServiceID: n.cfg.Fallback.Service,
		Variant:   n.cfg.Fallback.Variant,
		Reason:    "no candidate above confidence threshold",
	}

	n.appendEvent(ctx, &journal.Event{
		PlanID:     planID,
		SlideIndex: slide.Index,
		Type:       journal.EventFallbackSelected,
		ServiceID:  fallback.ServiceID,
		Variant:    fallback.Variant,
		Degraded:   true,
		Reason:     fallback.Reason,
	})

	return fallback, true
}

// collectCandidates drains the result channel into a validated candidate
// set, journaling every received and excluded bid.
func (n *Negotiator) collectCandidates(ctx context.Context, planID string, slideIndex int, results <-chan queryResult) []deck.CandidateDecision {
	var candidates []deck.CandidateDecision

	for res := range results {
		if res.err != nil {
			// A non-answering service is dropped from this round only;
			// its capability entry is flagged stale for downstream
			// visibility.
			n.registry.MarkStale(res.serviceID)
			n.appendEvent(ctx, &journal.Event{
				PlanID:     planID,
				SlideIndex: slideIndex,
				Type:       journal.EventCandidateExcluded,
				ServiceID:  res.serviceID,
				Reason:     res.err.Error(),
			})
			continue
		}

		if !res.resp.CanHandle {
			n.appendEvent(ctx, &journal.Event{
				PlanID:     planID,
				SlideIndex: slideIndex,
				Type:       journal.EventCandidateExcluded,
				ServiceID:  res.serviceID,
				Reason:     "service declined: " + res.resp.Reason,
			})
			continue
		}

		candidate := deck.CandidateDecision{
			ServiceID:     res.serviceID,
			Variant:       res.resp.Variant,
			Confidence:    res.resp.Confidence,
			Reason:        res.resp.Reason,
			RequiredSpace: res.resp.Fit,
		}

		if err := candidate.Validate(); err != nil {
			log.Printf("[WARN] Service %s submitted invalid candidate: %v (excluding)", res.serviceID, err)
			n.appendEvent(ctx, &journal.Event{
				PlanID:     planID,
				SlideIndex: slideIndex,
				Type:       journal.EventCandidateExcluded,
				ServiceID:  res.serviceID,
				Reason:     err.Error(),
			})
			continue
		}

		n.appendEvent(ctx, &journal.Event{
			PlanID:     planID,
			SlideIndex: slideIndex,
			Type:       journal.EventCandidateReceived,
			ServiceID:  candidate.ServiceID,
			Variant:    candidate.Variant,
			Confidence: candidate.Confidence,
			Reason:     candidate.Reason,
		})

		candidates = append(candidates, candidate)
	}

	return candidates
}

// SelectWinner picks the best candidate from a collected set. Selection
// is a pure function of the set and the rank function: highest confidence
// first, ties broken by ascending rank, then lexicographic service ID.
// Arrival order never influences the outcome. Returns nil for an empty
// set.
func SelectWinner(candidates []deck.CandidateDecision, rank func(serviceID string) int) *deck.CandidateDecision {
	if len(candidates) == 0 {
		return nil
	}

	sorted := make([]deck.CandidateDecision, len(candidates))
	copy(sorted, candidates)

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Confidence != sorted[j].Confidence {
			return sorted[i].Confidence > sorted[j].Confidence
		}
		ri, rj := rank(sorted[i].ServiceID), rank(sorted[j].ServiceID)
		if ri != rj {
			return ri < rj
		}
		return sorted[i].ServiceID < sorted[j].ServiceID
	})

	return &sorted[0]
}

// summarize builds the topic summary sent in can-handle queries.
func summarize(slide *deck.SlideMessage) string {
	if len(slide.Topics) == 0 {
		return slide.Title
	}
	return slide.Title + ": " + strings.Join(slide.Topics, "; ")
}

// keywords extracts the slide's lowercase keyword signature from its
// title and topics, de-duplicated in first-seen order.
func keywords(slide *deck.SlideMessage) []string {
	seen := make(map[string]bool)
	var words []string

	collect := func(s string) {
		for _, w := range strings.Fields(strings.ToLower(s)) {
			w = strings.Trim(w, ".,:;!?()\"'")
			if w == "" || seen[w] {
				continue
			}
			seen[w] = true
			words = append(words, w)
		}
	}

	collect(slide.Title)
	for _, topic := range slide.Topics {
		collect(topic)
	}

	return words
}

// appendEvent records a journal event, logging rather than failing when
// the journal is unreachable - negotiation outcomes must not depend on
// log availability.
func (n *Negotiator) appendEvent(ctx context.Context, event *journal.Event) {
	if err := n.journal.Append(ctx, event); err != nil {
		log.Printf("[WARN] Failed to append journal event %s: %v", event.Type, err)
	}
}
