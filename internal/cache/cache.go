// Package cache persists rated search results across process restarts.
package cache

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strings"
)

// Cache is a process-wide store of serialized rated results. Put persists
// synchronously; entries never expire, only Clear removes them.
type Cache interface {
	Get(key string) (json.RawMessage, bool)
	Put(key string, value json.RawMessage) error

	// Clear drops every entry, in memory and in the backing store, and
	// returns how many were removed.
	Clear() (int, error)

	// Stats returns the entry count and up to ten sample keys.
	Stats() (int, []string)
}

const statsSampleLimit = 10

// Key derives the cache key for a rated search: the normalized query joined
// with both limits, hashed with FNV-1a. Varying either limit yields a
// different key.
func Key(query string, forwardLimit, backwardLimit int) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s:%d:%d", strings.ToLower(strings.TrimSpace(query)), forwardLimit, backwardLimit)
	return fmt.Sprintf("%016x", h.Sum64())
}
