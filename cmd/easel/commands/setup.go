package commands

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dyluth/easel/internal/config"
	"github.com/dyluth/easel/internal/dispatch"
	"github.com/dyluth/easel/internal/layout"
	"github.com/dyluth/easel/internal/negotiate"
	"github.com/dyluth/easel/internal/planner"
	"github.com/dyluth/easel/internal/reconcile"
	"github.com/dyluth/easel/internal/registry"
	"github.com/dyluth/easel/internal/remote"
	"github.com/dyluth/easel/pkg/journal"
)

const (
	defaultInstanceName = "default"
	defaultRedisURL     = "redis://localhost:6379"
)

// instanceName returns the journal instance name, from EASEL_INSTANCE_NAME
// or the default.
func instanceName() string {
	if name := os.Getenv("EASEL_INSTANCE_NAME"); name != "" {
		return name
	}
	return defaultInstanceName
}

// newJournalClient connects to Redis using REDIS_URL (or the local default)
// and verifies connectivity before returning.
func newJournalClient() (*journal.Client, error) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = defaultRedisURL
	}

	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}

	jnl, err := journal.NewClient(redisOpts, instanceName())
	if err != nil {
		return nil, fmt.Errorf("failed to create journal client: %w", err)
	}

	return jnl, nil
}

// buildContentClients constructs one remote client per configured service,
// in deterministic (sorted) order.
func buildContentClients(cfg *config.EaselConfig) []*remote.ContentClient {
	ids := make([]string, 0, len(cfg.Services))
	for id := range cfg.Services {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	clients := make([]*remote.ContentClient, 0, len(ids))
	for _, id := range ids {
		clients = append(clients, remote.NewContentClient(id, cfg.Services[id].URL))
	}
	return clients
}

// buildEngine wires the full decision pipeline from configuration: remote
// clients, capability registry, negotiator, layout resolver, reconciler and
// dispatcher, all sharing the one journal client.
func buildEngine(cfg *config.EaselConfig, jnl *journal.Client) (*planner.Engine, *registry.Registry) {
	clients := buildContentClients(cfg)

	fetchers := make([]registry.CapabilityFetcher, 0, len(clients))
	contentServices := make([]negotiate.ContentService, 0, len(clients))
	variantServices := make(map[string]reconcile.VariantService, len(clients))
	generators := make(map[string]dispatch.Generator, len(clients))
	for _, c := range clients {
		fetchers = append(fetchers, c)
		contentServices = append(contentServices, c)
		variantServices[c.ID()] = c
		generators[c.ID()] = c
	}

	fetchTimeout := time.Duration(*cfg.Registry.FetchTimeoutMS) * time.Millisecond
	reg := registry.New(fetchers, fetchTimeout)

	neg := negotiate.New(contentServices, reg, jnl, cfg)
	res := layout.New(remote.NewLayoutClient(cfg.LayoutService.URL))
	rec := reconcile.New(variantServices, jnl, cfg)
	dis := dispatch.New(generators, jnl, *cfg.Dispatch.MaxConcurrent)

	return planner.NewEngine(reg, neg, res, rec, dis, jnl, cfg), reg
}
