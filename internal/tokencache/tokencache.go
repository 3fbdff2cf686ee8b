// Package tokencache caches organization tokens so the freeradius endpoints
// do not hit the credential store on every NAS request.
//
// The cache is NOT authoritative: the store is the source of truth, entries
// carry a bounded TTL, and token rotation deletes the entry explicitly
// (write-through invalidation). Both bounds are deliberate — the TTL covers a
// lost invalidation, the invalidation covers the TTL window. Presence is
// always checked per organization key; one organization's entry says nothing
// about any other's.
//
// Two implementations: Memory (mutex map with a janitor goroutine, for
// single-instance deployments) and Redis (go-redis, for multi-instance
// deployments where all instances must see a rotation at once). Selected by
// redis.enabled in the configuration.
package tokencache

import "context"

// Cache maps organization identifier → last-known-valid organization token.
type Cache interface {
	// Get returns the cached token for the organization. ok reports whether
	// this organization's key was present and unexpired.
	Get(ctx context.Context, orgID string) (token string, ok bool, err error)

	// Set stores the token for the organization with the cache's TTL.
	Set(ctx context.Context, orgID, token string) error

	// Delete removes the organization's entry. Called on token rotation.
	// Deleting an absent key is not an error.
	Delete(ctx context.Context, orgID string) error

	// Close releases cache resources (janitor goroutine, connections).
	Close() error
}
