// Package journal provides the append-only decision log for the Easel
// engine, backed by Redis. Every negotiation step — bids received,
// winners chosen, re-asks, fallbacks, dispatch outcomes — is recorded as
// an Event so that each per-slide decision is auditable after the fact.
//
// Events for a plan are stored in a Redis list (RPUSH preserves append
// order and is atomic, so concurrent per-slide workers never need
// external locking) and simultaneously published to a plan-scoped
// Pub/Sub channel for live observation via `easel watch`.
//
// All keys and channels are namespaced by instance name so that multiple
// Easel instances can share one Redis server.
package journal
