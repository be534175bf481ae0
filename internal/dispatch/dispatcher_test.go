package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/easel/pkg/deck"
	"github.com/dyluth/easel/pkg/journal"
)

// stubGenerator generates canned content, optionally failing for chosen
// slide indexes and tracking peak concurrency.
type stubGenerator struct {
	id      string
	failFor map[int]bool
	delay   time.Duration

	inFlight atomic.Int32
	peak     atomic.Int32
}

func (g *stubGenerator) ID() string { return g.id }

func (g *stubGenerator) Generate(ctx context.Context, req *deck.GenerateRequest) (*deck.GeneratedContent, error) {
	current := g.inFlight.Add(1)
	defer g.inFlight.Add(-1)
	for {
		peak := g.peak.Load()
		if current <= peak || g.peak.CompareAndSwap(peak, current) {
			break
		}
	}

	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if g.failFor[req.Slide.Index] {
		return nil, fmt.Errorf("render crashed for slide %d", req.Slide.Index)
	}

	payload, _ := json.Marshal(map[string]any{"slide": req.Slide.Index, "variant": req.Variant})
	return &deck.GeneratedContent{
		ServiceID: g.id,
		Variant:   req.Variant,
		Payload:   payload,
	}, nil
}

func setupDispatcher(t *testing.T, services map[string]Generator, limit int) *Dispatcher {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	jnl, err := journal.NewClient(&redis.Options{Addr: mr.Addr()}, "test-instance")
	require.NoError(t, err)
	t.Cleanup(func() { jnl.Close() })

	return New(services, jnl, limit)
}

func planFixture(n int, serviceID string) *deck.PresentationPlan {
	plan := &deck.PresentationPlan{ID: uuid.New().String()}
	for i := 0; i < n; i++ {
		plan.Slides = append(plan.Slides, deck.SlideMessage{
			Index:   i,
			Title:   fmt.Sprintf("Slide %d", i),
			Purpose: "metrics",
		})
		plan.Decisions = append(plan.Decisions, deck.SlideDecision{
			SlideIndex: i,
			ServiceID:  serviceID,
			Variant:    "bar",
			LayoutID:   "chart-full",
			Zone:       deck.ContentZone{Name: "main", Width: 1260, Height: 720},
			Confidence: 0.8,
			Narrative: deck.NarrativeContext{
				SlideIndex:  i,
				TotalSlides: n,
				Position:    deck.PositionDevelopment,
			},
		})
	}
	return plan
}

func TestDispatch_ResultsInSlideOrder(t *testing.T) {
	gen := &stubGenerator{id: "chart-svc", delay: 10 * time.Millisecond}
	dispatcher := setupDispatcher(t, map[string]Generator{"chart-svc": gen}, 4)

	plan := planFixture(8, "chart-svc")
	results := dispatcher.Dispatch(context.Background(), plan)

	require.Len(t, results, 8)
	for i, res := range results {
		assert.Equal(t, i, res.SlideIndex)
		require.NoError(t, res.Err)
		require.NotNil(t, res.Content)
		assert.Equal(t, "chart-svc", res.Content.ServiceID)
	}
}

func TestDispatch_FailureIsolation(t *testing.T) {
	gen := &stubGenerator{id: "chart-svc", failFor: map[int]bool{2: true, 5: true}}
	dispatcher := setupDispatcher(t, map[string]Generator{"chart-svc": gen}, 4)

	plan := planFixture(6, "chart-svc")
	results := dispatcher.Dispatch(context.Background(), plan)

	require.Len(t, results, 6)
	for i, res := range results {
		if i == 2 || i == 5 {
			assert.Error(t, res.Err)
			assert.Nil(t, res.Content)
			continue
		}
		assert.NoError(t, res.Err)
		assert.NotNil(t, res.Content)
	}
}

func TestDispatch_RespectsConcurrencyCeiling(t *testing.T) {
	gen := &stubGenerator{id: "chart-svc", delay: 30 * time.Millisecond}
	dispatcher := setupDispatcher(t, map[string]Generator{"chart-svc": gen}, 3)

	plan := planFixture(12, "chart-svc")
	results := dispatcher.Dispatch(context.Background(), plan)

	require.Len(t, results, 12)
	assert.LessOrEqual(t, gen.peak.Load(), int32(3), "in-flight generations must stay under the ceiling")
}

func TestDispatch_UnknownServiceFailsSlideOnly(t *testing.T) {
	gen := &stubGenerator{id: "chart-svc"}
	dispatcher := setupDispatcher(t, map[string]Generator{"chart-svc": gen}, 2)

	plan := planFixture(3, "chart-svc")
	plan.Decisions[1].ServiceID = "ghost-svc"

	results := dispatcher.Dispatch(context.Background(), plan)

	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	require.Error(t, results[1].Err)
	assert.Contains(t, results[1].Err.Error(), "no generator registered")
	assert.NoError(t, results[2].Err)
}

func TestDispatch_CancelledContext(t *testing.T) {
	gen := &stubGenerator{id: "chart-svc", delay: time.Second}
	dispatcher := setupDispatcher(t, map[string]Generator{"chart-svc": gen}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := dispatcher.Dispatch(ctx, planFixture(4, "chart-svc"))

	require.Len(t, results, 4)
	for _, res := range results {
		assert.Error(t, res.Err)
	}
}

func TestDispatch_GenerationRequestCarriesDecision(t *testing.T) {
	var mu sync.Mutex
	var seen []*deck.GenerateRequest

	gen := &captureGenerator{id: "chart-svc", onGenerate: func(req *deck.GenerateRequest) {
		mu.Lock()
		seen = append(seen, req)
		mu.Unlock()
	}}
	dispatcher := setupDispatcher(t, map[string]Generator{"chart-svc": gen}, 2)

	plan := planFixture(2, "chart-svc")
	dispatcher.Dispatch(context.Background(), plan)

	require.Len(t, seen, 2)
	for _, req := range seen {
		assert.Equal(t, "bar", req.Variant)
		assert.Equal(t, 1260, req.Zone.Width)
		assert.Equal(t, 2, req.Narrative.TotalSlides)
	}
}

// captureGenerator records every request it receives.
type captureGenerator struct {
	id         string
	onGenerate func(*deck.GenerateRequest)
}

func (g *captureGenerator) ID() string { return g.id }

func (g *captureGenerator) Generate(ctx context.Context, req *deck.GenerateRequest) (*deck.GeneratedContent, error) {
	g.onGenerate(req)
	return &deck.GeneratedContent{ServiceID: g.id, Variant: req.Variant}, nil
}
