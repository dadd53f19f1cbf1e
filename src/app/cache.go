package app

import (
	"sync"
	"time"
)

type ttlEntry[V any] struct {
	value   V
	expires time.Time
}

// TTLCache is a small time-bounded map with explicit eviction. Expired
// entries are treated as absent and dropped on access.
type TTLCache[V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]ttlEntry[V]
	now     func() time.Time
}

func NewTTLCache[V any](ttl time.Duration) *TTLCache[V] {
	return &TTLCache[V]{
		ttl:     ttl,
		entries: make(map[string]ttlEntry[V]),
		now:     time.Now,
	}
}

func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.now().After(entry.expires) {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return entry.value, true
}

func (c *TTLCache[V]) Put(key string, value V) {
	c.PutUntil(key, value, c.now().Add(c.ttl))
}

// PutUntil stores a value with an explicit expiry, for entries whose
// lifetime is dictated by an upstream artifact rather than the cache TTL.
func (c *TTLCache[V]) PutUntil(key string, value V, expires time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = ttlEntry[V]{value: value, expires: expires}
}

func (c *TTLCache[V]) Evict(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len counts live entries only.
func (c *TTLCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, entry := range c.entries {
		if !c.now().After(entry.expires) {
			n++
		}
	}
	return n
}

// setClock is a test hook shared by all lookups and inserts.
func (c *TTLCache[V]) setClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}
