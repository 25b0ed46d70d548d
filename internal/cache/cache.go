// Package cache provides a small generic TTL cache used by the HTTP
// layer. The obligation engine itself never caches: its contract is
// that every call observes freshly loaded collections.
package cache

// Cache defines a generic cache interface.
type Cache[T any] interface {
	// Get retrieves a value from the cache.
	Get(key string) (T, bool)

	// Set stores a value in the cache.
	Set(key string, data T)

	// Delete removes a key from the cache.
	Delete(key string)

	// Clear removes every entry.
	Clear()

	// Size returns the current number of items in the cache.
	Size() int
}
