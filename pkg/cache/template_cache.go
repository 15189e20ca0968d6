package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
)

// ErrMiss cache miss
var ErrMiss = errors.New("cache miss")

// Cache small JSON object cache backed by bigcache. The template registry
// sits in front of storage with it; templates change rarely and every
// activation decision resolves them.
type Cache struct {
	store *bigcache.BigCache
}

// New creates a cache with the given entry lifetime.
func New(ttl time.Duration) (*Cache, error) {
	cfg := bigcache.DefaultConfig(ttl)
	cfg.Verbose = false

	store, err := bigcache.New(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to init bigcache: %w", err)
	}
	return &Cache{store: store}, nil
}

// Set stores a value as JSON.
func (c *Cache) Set(key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.store.Set(key, data)
}

// Get loads a value into out. Returns ErrMiss when absent or expired.
func (c *Cache) Get(key string, out interface{}) error {
	data, err := c.store.Get(key)
	if err != nil {
		if errors.Is(err, bigcache.ErrEntryNotFound) {
			return ErrMiss
		}
		return err
	}
	return json.Unmarshal(data, out)
}

// Delete removes a key. Missing keys are not an error.
func (c *Cache) Delete(key string) {
	_ = c.store.Delete(key)
}

// Reset drops all entries.
func (c *Cache) Reset() error {
	return c.store.Reset()
}
