// Package cache implements the per-basket TTL cache (C3) described in
// spec.md §4.5: a lock-guarded map with per-key TTL and lazy expiry on
// lookup. The shape mirrors the fallback pattern in
// control_plane/idempotency/store.go, generalized to typed namespaces
// with an optional Redis-backed implementation for multi-replica
// deployments.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Common namespace TTLs, per spec.md §4.5.
const (
	TTLIdentifier  = 24 * time.Hour
	TTLHeavyBody   = 1 * time.Hour
	TTLCompanyInfo = 24 * time.Hour
)

// Cache is the contract both backends satisfy.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key string, value string, ttl time.Duration)
}

type entry struct {
	value      string
	insertTime time.Time
	ttl        time.Duration
}

func (e entry) expired(now time.Time) bool {
	return now.Sub(e.insertTime) > e.ttl
}

// Memory is an in-process lock-guarded map with lazy expiry on lookup
// plus a sweep-on-set, matching spec.md's described implementation.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
}

// NewMemory builds an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]entry)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return "", false
	}
	if e.expired(time.Now()) {
		delete(m.entries, key)
		return "", false
	}
	return e.value, true
}

func (m *Memory) Set(_ context.Context, key string, value string, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = entry{value: value, insertTime: time.Now(), ttl: ttl}
	m.sweep()
}

// sweep opportunistically evicts expired keys; callers already hold mu.
func (m *Memory) sweep() {
	if len(m.entries) < 256 {
		return
	}
	now := time.Now()
	for k, e := range m.entries {
		if e.expired(now) {
			delete(m.entries, k)
		}
	}
}

// Redis backs the cache with a shared store, for the CACHE_BACKEND=redis
// deployment mode described in SPEC_FULL.md's domain stack section.
type Redis struct {
	client *redis.Client
}

// NewRedis dials a Redis instance the way
// control_plane/store/redis.go does for the coordination store.
func NewRedis(addr, password string, db int) *Redis {
	return &Redis{client: redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})}
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

func (r *Redis) Set(ctx context.Context, key string, value string, ttl time.Duration) {
	r.client.Set(ctx, key, value, ttl)
}

func (r *Redis) Close() error {
	return r.client.Close()
}

// TypedCache adds JSON marshal/unmarshal convenience and per-basket
// namespacing on top of a raw Cache.
type TypedCache struct {
	backend   Cache
	namespace string
}

// NewTypedCache scopes keys under namespace (e.g. "fundamentals.identifier").
func NewTypedCache(backend Cache, namespace string) *TypedCache {
	return &TypedCache{backend: backend, namespace: namespace}
}

func (t *TypedCache) key(k string) string {
	return t.namespace + ":" + k
}

// GetJSON looks up key and unmarshals into out; returns false on miss or
// decode failure.
func (t *TypedCache) GetJSON(ctx context.Context, key string, out any) bool {
	raw, ok := t.backend.Get(ctx, t.key(key))
	if !ok {
		return false
	}
	return json.Unmarshal([]byte(raw), out) == nil
}

// SetJSON marshals value and stores it with the given TTL.
func (t *TypedCache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	t.backend.Set(ctx, t.key(key), string(raw), ttl)
}
