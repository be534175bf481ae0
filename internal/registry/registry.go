// Package registry maintains the process-wide capability cache for all
// configured remote services. The cache is an immutable snapshot swapped
// atomically on refresh: readers never lock and never observe a
// partially-updated view. A failed fetch keeps the previous entry and
// marks it stale; staleness never blocks usage, it only annotates
// downstream decisions.
package registry

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dyluth/easel/pkg/deck"
)

// ErrServiceUnknown is returned by Get for a service ID that was never
// registered with the registry.
var ErrServiceUnknown = errors.New("service unknown")

// CapabilityFetcher is the slice of a content service the registry
// consumes: an identity and a capability endpoint.
type CapabilityFetcher interface {
	ID() string
	FetchCapability(ctx context.Context) (*deck.ServiceCapability, error)
}

// Snapshot is an immutable view of all service capabilities at one point
// in time. Snapshots are shared by reference across concurrent readers
// and never mutated after construction.
type Snapshot struct {
	capabilities map[string]*deck.ServiceCapability
}

// Get returns the capability entry for a service, or nil if the snapshot
// has no entry for it.
func (s *Snapshot) Get(serviceID string) *deck.ServiceCapability {
	return s.capabilities[serviceID]
}

// Len returns the number of entries in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.capabilities)
}

// Registry owns the capability cache for a fixed roster of services.
// Refresh replaces the snapshot wholesale; Get and Current read the
// latest snapshot without locking.
type Registry struct {
	fetchers     []CapabilityFetcher
	known        map[string]bool
	fetchTimeout time.Duration
	snapshot     atomic.Pointer[Snapshot]
	cron         *cron.Cron
}

// New creates a registry over the given service roster. Every service
// starts with a stale placeholder entry until the first refresh
// succeeds, so Get never fails for a registered service.
func New(fetchers []CapabilityFetcher, fetchTimeout time.Duration) *Registry {
	r := &Registry{
		fetchers:     fetchers,
		known:        make(map[string]bool, len(fetchers)),
		fetchTimeout: fetchTimeout,
	}

	initial := make(map[string]*deck.ServiceCapability, len(fetchers))
	for _, f := range fetchers {
		r.known[f.ID()] = true
		initial[f.ID()] = &deck.ServiceCapability{
			ServiceID: f.ID(),
			Stale:     true,
		}
	}
	r.snapshot.Store(&Snapshot{capabilities: initial})

	return r
}

// Refresh queries every service's capability endpoint with a bounded
// per-service timeout and swaps in a new snapshot. Successful fetches
// replace the cached entry wholesale; failures retain the previous entry
// with Stale set and the last-success timestamp untouched.
//
// Refresh is safe to call concurrently with readers; concurrent Refresh
// calls are serialized only by the final swap (last writer wins on a
// whole snapshot, never on individual entries).
func (r *Registry) Refresh(ctx context.Context) {
	prev := r.snapshot.Load()

	type fetchResult struct {
		serviceID  string
		capability *deck.ServiceCapability
		err        error
	}

	results := make(chan fetchResult, len(r.fetchers))
	var wg sync.WaitGroup

	for _, f := range r.fetchers {
		wg.Add(1)
		go func(f CapabilityFetcher) {
			defer wg.Done()

			fetchCtx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
			defer cancel()

			capability, err := f.FetchCapability(fetchCtx)
			results <- fetchResult{serviceID: f.ID(), capability: capability, err: err}
		}(f)
	}

	wg.Wait()
	close(results)

	next := make(map[string]*deck.ServiceCapability, len(r.fetchers))
	for res := range results {
		if res.err != nil {
			log.Printf("[WARN] Capability fetch failed for %s: %v (retaining stale entry)", res.serviceID, res.err)
			next[res.serviceID] = staleCopy(prev.Get(res.serviceID), res.serviceID)
			continue
		}

		fresh := *res.capability
		fresh.Stale = false
		fresh.LastSuccess = fresh.FetchedAt
		next[res.serviceID] = &fresh

		log.Printf("[INFO] Capability refreshed for %s: kinds=%v", res.serviceID, fresh.Kinds)
	}

	r.snapshot.Store(&Snapshot{capabilities: next})
}

// staleCopy returns a stale-marked copy of the previous entry, or a
// stale placeholder if the service never answered.
func staleCopy(prev *deck.ServiceCapability, serviceID string) *deck.ServiceCapability {
	if prev == nil {
		return &deck.ServiceCapability{ServiceID: serviceID, Stale: true}
	}

	entry := *prev
	entry.Stale = true
	return &entry
}

// Get returns the current (possibly stale) capability entry for a
// service, or ErrServiceUnknown if the ID was never registered.
func (r *Registry) Get(serviceID string) (*deck.ServiceCapability, error) {
	if !r.known[serviceID] {
		return nil, ErrServiceUnknown
	}
	return r.snapshot.Load().Get(serviceID), nil
}

// Current returns the latest snapshot. The snapshot is immutable and
// safe to share across goroutines.
func (r *Registry) Current() *Snapshot {
	return r.snapshot.Load()
}

// MarkStale flags a single service's entry as stale, e.g. after the
// service failed to answer a negotiation query. The swap is a CAS loop
// over whole snapshots so concurrent readers still only ever observe
// complete views.
func (r *Registry) MarkStale(serviceID string) {
	if !r.known[serviceID] {
		return
	}

	for {
		prev := r.snapshot.Load()
		next := make(map[string]*deck.ServiceCapability, len(prev.capabilities))
		for id, capability := range prev.capabilities {
			next[id] = capability
		}
		next[serviceID] = staleCopy(prev.Get(serviceID), serviceID)

		if r.snapshot.CompareAndSwap(prev, &Snapshot{capabilities: next}) {
			return
		}
	}
}

// StartPeriodicRefresh schedules Refresh on the given cron spec
// (e.g. "@every 5m"). Returns an error if the spec does not parse.
func (r *Registry) StartPeriodicRefresh(ctx context.Context, spec string) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() { r.Refresh(ctx) }); err != nil {
		return err
	}
	c.Start()
	r.cron = c

	log.Printf("[INFO] Capability refresh scheduled: %s", spec)
	return nil
}

// StopPeriodicRefresh stops the refresh schedule, waiting for any
// in-flight refresh to finish.
func (r *Registry) StopPeriodicRefresh() {
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}
}
