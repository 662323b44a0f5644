// Package storage defines the persistence contract shared by every entity
// and manager: an opaque JSON value store plus named-set index operations.
package storage

import "context"

// Adapter persists JSON-serializable values under string keys and maintains
// named sets of string members. Implementations must tolerate concurrent
// calls for different keys; no multi-key atomicity is required.
type Adapter interface {
	// Get unmarshals the value stored under key into out and reports whether
	// the key was present. An absent key is not an error.
	Get(ctx context.Context, key string, out any) (bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value any) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// IndexAdd adds member to the named set, creating it if absent.
	// Adding an existing member is a no-op.
	IndexAdd(ctx context.Context, index, member string) error

	// IndexGet returns the members of the named set, empty if absent.
	IndexGet(ctx context.Context, index string) ([]string, error)

	// IndexRemove removes member from the named set if present.
	IndexRemove(ctx context.Context, index, member string) error

	// Close releases any underlying connection.
	Close() error
}
