package cache

import (
	"encoding/json"
	"log"
	"os"
	"sort"
	"sync"
)

// FileCache keeps entries in memory and mirrors them to a single JSON
// document, rewritten in full on every Put.
type FileCache struct {
	mu      sync.Mutex
	path    string
	entries map[string]json.RawMessage
}

// NewFileCache loads any existing cache file at path. An unreadable or
// corrupt file starts an empty cache with a warning, not a failure.
func NewFileCache(path string) *FileCache {
	c := &FileCache{
		path:    path,
		entries: map[string]json.RawMessage{},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: could not load cache file %s: %v", path, err)
		}
		return c
	}
	if err := json.Unmarshal(data, &c.entries); err != nil {
		log.Printf("Warning: could not parse cache file %s: %v", path, err)
		c.entries = map[string]json.RawMessage{}
	}
	return c
}

func (c *FileCache) Get(key string) (json.RawMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	value, ok := c.entries[key]
	return value, ok
}

func (c *FileCache) Put(key string, value json.RawMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = value
	return c.persist()
}

func (c *FileCache) persist() error {
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0o644)
}

// Clear empties the cache and deletes the backing file.
func (c *FileCache) Clear() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.entries)
	c.entries = map[string]json.RawMessage{}

	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not delete cache file %s: %v", c.path, err)
	}
	return n, nil
}

func (c *FileCache) Stats() (int, []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > statsSampleLimit {
		keys = keys[:statsSampleLimit]
	}
	return len(c.entries), keys
}
