package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/easel/internal/config"
	"github.com/dyluth/easel/internal/dispatch"
	"github.com/dyluth/easel/internal/layout"
	"github.com/dyluth/easel/internal/negotiate"
	"github.com/dyluth/easel/internal/reconcile"
	"github.com/dyluth/easel/internal/registry"
	"github.com/dyluth/easel/pkg/deck"
	"github.com/dyluth/easel/pkg/journal"
)

// fakeService implements every collaborator surface of one content
// service: capability fetch, can-handle bids, variant re-asks and
// generation.
type fakeService struct {
	id         string
	kind       deck.ContentKind
	confidence float64
	variant    string
	space      deck.SpaceNeed

	canHandleErr error
	generateErr  error
}

func (s *fakeService) ID() string { return s.id }

func (s *fakeService) FetchCapability(ctx context.Context) (*deck.ServiceCapability, error) {
	return &deck.ServiceCapability{
		ServiceID: s.id,
		Kinds:     []deck.ContentKind{s.kind},
		Variants:  map[string][]string{string(s.kind): {s.variant}},
		FetchedAt: time.Now(),
	}, nil
}

func (s *fakeService) CanHandle(ctx context.Context, req *deck.CanHandleRequest) (*deck.CanHandleResponse, error) {
	if s.canHandleErr != nil {
		return nil, s.canHandleErr
	}
	return &deck.CanHandleResponse{
		CanHandle:  true,
		Confidence: s.confidence,
		Variant:    s.variant,
		Reason:     "fixture bid",
		Fit:        s.space,
	}, nil
}

func (s *fakeService) RecommendVariants(ctx context.Context, req *deck.VariantRequest) ([]deck.VariantOption, error) {
	return []deck.VariantOption{
		{Variant: s.variant + "-compact", Confidence: s.confidence, RequiredSpace: deck.SpaceNeed{Width: 800, Height: 500}},
	}, nil
}

func (s *fakeService) Generate(ctx context.Context, req *deck.GenerateRequest) (*deck.GeneratedContent, error) {
	if s.generateErr != nil {
		return nil, s.generateErr
	}
	payload, _ := json.Marshal(map[string]int{"slide": req.Slide.Index})
	return &deck.GeneratedContent{ServiceID: s.id, Variant: req.Variant, Payload: payload}, nil
}

// fakeLayoutService recommends one universally accepting layout.
type fakeLayoutService struct {
	err error
}

func (s *fakeLayoutService) RecommendLayouts(ctx context.Context, req *deck.LayoutRequest) ([]deck.RankedLayout, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []deck.RankedLayout{
		{
			Layout: deck.LayoutSpec{
				ID:       "single-zone",
				Supports: []deck.SlideTypeVariant{{Kind: req.Kind}},
				Zones: []deck.ContentZone{
					{
						Name: "content", Width: 1760, Height: 880, X: 80, Y: 120,
						Accepts: []deck.ContentKind{deck.KindText, deck.KindChart, deck.KindDiagram, deck.KindInfographic},
					},
				},
			},
			Confidence: 0.9,
		},
	}, nil
}

type engineFixture struct {
	engine  *Engine
	journal *journal.Client
	cfg     *config.EaselConfig
}

// newEngineFixture wires a complete engine over the given fake services
// and layout collaborator, backed by a miniredis journal.
func newEngineFixture(t *testing.T, services []*fakeService, layoutSvc *fakeLayoutService) *engineFixture {
	t.Helper()

	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	jnl, err := journal.NewClient(&redis.Options{Addr: mr.Addr()}, "test-instance")
	require.NoError(t, err)
	t.Cleanup(func() { jnl.Close() })

	cfgServices := make(map[string]config.Service, len(services))
	fetchers := make([]registry.CapabilityFetcher, 0, len(services))
	roster := make([]negotiate.ContentService, 0, len(services))
	variantServices := make(map[string]reconcile.VariantService, len(services))
	generators := make(map[string]dispatch.Generator, len(services))
	for _, s := range services {
		cfgServices[s.id] = config.Service{Kind: s.kind, URL: "http://" + s.id + ":8080"}
		fetchers = append(fetchers, s)
		roster = append(roster, s)
		variantServices[s.id] = s
		generators[s.id] = s
	}

	cfg := &config.EaselConfig{
		Version:       "1.0",
		Services:      cfgServices,
		LayoutService: config.LayoutService{URL: "http://layout:8080"},
		Fallback: config.FallbackConfig{
			Service: services[0].id,
			Variant: services[0].variant,
			Layout:  "single-zone",
		},
	}
	require.NoError(t, cfg.Validate())

	reg := registry.New(fetchers, time.Second)
	reg.Refresh(context.Background())

	res := layout.New(layoutSvc)
	neg := negotiate.New(roster, reg, jnl, cfg)
	rec := reconcile.New(variantServices, jnl, cfg)
	dis := dispatch.New(generators, jnl, *cfg.Dispatch.MaxConcurrent)

	return &engineFixture{
		engine:  NewEngine(reg, neg, res, rec, dis, jnl, cfg),
		journal: jnl,
		cfg:     cfg,
	}
}

func slidePlan(n int) []deck.SlideMessage {
	slides := make([]deck.SlideMessage, n)
	for i := range slides {
		slides[i] = deck.SlideMessage{
			Index:   i,
			Title:   fmt.Sprintf("Slide %d", i),
			Purpose: "metrics",
			Topics:  []string{"revenue", "growth"},
		}
	}
	return slides
}

func defaultServices() []*fakeService {
	return []*fakeService{
		{id: "text-svc", kind: deck.KindText, confidence: 0.4, variant: "bullets", space: deck.SpaceNeed{Width: 1200, Height: 700}},
		{id: "chart-svc", kind: deck.KindChart, confidence: 0.85, variant: "bar", space: deck.SpaceNeed{Width: 1400, Height: 800}},
	}
}

func TestPlanAndDispatch_HappyPath(t *testing.T) {
	fx := newEngineFixture(t, defaultServices(), &fakeLayoutService{})

	plan, results, err := fx.engine.PlanAndDispatch(context.Background(), slidePlan(5))
	require.NoError(t, err)
	require.NotNil(t, plan)
	require.NoError(t, plan.Validate())

	require.Len(t, plan.Decisions, 5)
	for i, decision := range plan.Decisions {
		assert.Equal(t, i, decision.SlideIndex)
		assert.Equal(t, "chart-svc", decision.ServiceID, "highest-confidence bidder wins every slide")
		assert.Equal(t, "single-zone", decision.LayoutID)
		assert.False(t, decision.Degraded)
	}

	require.Len(t, results, 5)
	for i, res := range results {
		assert.Equal(t, i, res.SlideIndex)
		require.NoError(t, res.Err)
		assert.NotNil(t, res.Content)
	}
}

func TestPlanAndDispatch_NonDegradedDecisionsFitTheirZones(t *testing.T) {
	fx := newEngineFixture(t, defaultServices(), &fakeLayoutService{})

	plan, _, err := fx.engine.PlanAndDispatch(context.Background(), slidePlan(4))
	require.NoError(t, err)

	for _, decision := range plan.Decisions {
		if decision.Degraded {
			continue
		}
		assert.GreaterOrEqual(t, decision.Zone.Width, 1400, "winning variant's space must fit the assigned zone")
		assert.GreaterOrEqual(t, decision.Zone.Height, 800)
	}
}

func TestPlanAndDispatch_RejectsInvalidPlans(t *testing.T) {
	fx := newEngineFixture(t, defaultServices(), &fakeLayoutService{})
	ctx := context.Background()

	t.Run("empty plan", func(t *testing.T) {
		_, _, err := fx.engine.PlanAndDispatch(ctx, nil)
		assert.ErrorIs(t, err, ErrPlanInvalid)
	})

	t.Run("slide missing title", func(t *testing.T) {
		slides := slidePlan(2)
		slides[1].Title = ""
		_, _, err := fx.engine.PlanAndDispatch(ctx, slides)
		assert.ErrorIs(t, err, ErrPlanInvalid)
	})

	t.Run("index not matching position", func(t *testing.T) {
		slides := slidePlan(3)
		slides[2].Index = 7
		_, _, err := fx.engine.PlanAndDispatch(ctx, slides)
		assert.ErrorIs(t, err, ErrPlanInvalid)
	})
}

func TestPlanAndDispatch_BrokenServiceDegradesNothingElse(t *testing.T) {
	services := defaultServices()
	services[1].canHandleErr = fmt.Errorf("connection refused")

	fx := newEngineFixture(t, services, &fakeLayoutService{})

	plan, results, err := fx.engine.PlanAndDispatch(context.Background(), slidePlan(3))
	require.NoError(t, err)

	// The chart service never bids, so the text service wins every slide
	for _, decision := range plan.Decisions {
		assert.Equal(t, "text-svc", decision.ServiceID)
	}
	for _, res := range results {
		assert.NoError(t, res.Err)
	}
}

func TestPlanAndDispatch_LayoutServiceDownStillCompletes(t *testing.T) {
	fx := newEngineFixture(t, defaultServices(), &fakeLayoutService{err: fmt.Errorf("connection refused")})

	plan, results, err := fx.engine.PlanAndDispatch(context.Background(), slidePlan(3))
	require.NoError(t, err)

	// No layout candidates: every slide lands on the universal-fit fallback
	for _, decision := range plan.Decisions {
		assert.True(t, decision.Degraded)
		assert.NotEmpty(t, decision.LayoutID)
		assert.Positive(t, decision.Zone.Width)
	}
	require.Len(t, results, 3)
}

func TestPlanAndDispatch_GenerationFailureIsIsolated(t *testing.T) {
	services := defaultServices()
	services[1].generateErr = fmt.Errorf("render crashed")

	fx := newEngineFixture(t, services, &fakeLayoutService{})

	plan, results, err := fx.engine.PlanAndDispatch(context.Background(), slidePlan(3))
	require.NoError(t, err)
	require.NoError(t, plan.Validate())

	// chart-svc wins and fails every generation; the plan still returns
	// a complete result set with per-slide errors.
	require.Len(t, results, 3)
	for _, res := range results {
		assert.Error(t, res.Err)
	}
}

func TestPlanAndDispatch_NarrativeContextsFollowPlanOrder(t *testing.T) {
	fx := newEngineFixture(t, defaultServices(), &fakeLayoutService{})

	plan, _, err := fx.engine.PlanAndDispatch(context.Background(), slidePlan(6))
	require.NoError(t, err)

	assert.Equal(t, deck.PositionOpening, plan.Decisions[0].Narrative.Position)
	assert.Equal(t, deck.PositionClosing, plan.Decisions[5].Narrative.Position)

	middle := plan.Decisions[3].Narrative
	assert.Equal(t, 6, middle.TotalSlides)
	require.Len(t, middle.Previous, 3)
	assert.Equal(t, "Slide 0", middle.Previous[0].Title)
	require.Len(t, middle.Upcoming, 2)
	assert.Equal(t, "Slide 4", middle.Upcoming[0].Title)
}

func TestPlanAndDispatch_JournalRecordsLifecycle(t *testing.T) {
	fx := newEngineFixture(t, defaultServices(), &fakeLayoutService{})
	ctx := context.Background()

	plan, _, err := fx.engine.PlanAndDispatch(ctx, slidePlan(2))
	require.NoError(t, err)

	events, err := fx.engine.DecisionLog(ctx, plan.ID)
	require.NoError(t, err)
	require.NotEmpty(t, events)

	assert.Equal(t, journal.EventPlanStarted, events[0].Type)
	assert.Equal(t, journal.EventPlanCompleted, events[len(events)-1].Type)

	counts := make(map[journal.EventType]int)
	for _, event := range events {
		counts[event.Type]++
	}
	assert.Equal(t, 2, counts[journal.EventWinnerSelected], "one winner per slide")
	assert.Equal(t, 2, counts[journal.EventReconciled])
	assert.Equal(t, 2, counts[journal.EventSlideGenerated])
	assert.Equal(t, 1, counts[journal.EventDispatchStarted])
	assert.Equal(t, 4, counts[journal.EventCandidateReceived], "two bids per slide")
}

func TestPlan_DecidesWithoutGenerating(t *testing.T) {
	services := defaultServices()
	services[1].generateErr = fmt.Errorf("must never be called")

	fx := newEngineFixture(t, services, &fakeLayoutService{})
	ctx := context.Background()

	plan, err := fx.engine.Plan(ctx, slidePlan(3))
	require.NoError(t, err)
	require.NoError(t, plan.Validate())

	events, err := fx.engine.DecisionLog(ctx, plan.ID)
	require.NoError(t, err)
	for _, event := range events {
		assert.NotEqual(t, journal.EventDispatchStarted, event.Type)
		assert.NotEqual(t, journal.EventSlideFailed, event.Type)
	}
}

func TestAssemble(t *testing.T) {
	slide := &deck.SlideMessage{Index: 4, Title: "Summary", Purpose: "recap"}
	res := &reconcile.Result{
		ServiceID:  "text-svc",
		Variant:    "bullets",
		LayoutID:   "single-zone",
		Zone:       deck.ContentZone{Name: "content", Width: 1760, Height: 880},
		Confidence: 0.6,
		Degraded:   true,
	}
	nc := deck.NarrativeContext{SlideIndex: 4, TotalSlides: 5, Position: deck.PositionClosing}

	decision := assemble(slide, res, nc)

	assert.Equal(t, 4, decision.SlideIndex)
	assert.Equal(t, "text-svc", decision.ServiceID)
	assert.Equal(t, "bullets", decision.Variant)
	assert.Equal(t, "single-zone", decision.LayoutID)
	assert.Equal(t, 0.6, decision.Confidence)
	assert.True(t, decision.Degraded)
	assert.Equal(t, nc, decision.Narrative)
	assert.NoError(t, decision.Validate())
}
