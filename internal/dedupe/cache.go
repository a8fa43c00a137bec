// ABOUTME: Thread-safe TTL cache of recently seen keys, bounded in size.
// ABOUTME: Used by the dispatcher to spot redelivered completion events.

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

// entry pairs a key's last-seen time with its position in the age list.
type entry struct {
	seenAt  time.Time
	element *list.Element
}

// Cache tracks which keys have been seen within a TTL, holding at most
// maxSize keys. Oldest keys are evicted first; a background goroutine
// sweeps expired entries.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	byAge   *list.List // keys oldest-first
	ttl     time.Duration
	maxSize int
	done    chan struct{}
	closed  bool
}

// New creates a cache with the given TTL and maximum size.
func New(ttl time.Duration, maxSize int) *Cache {
	c := &Cache{
		entries: make(map[string]*entry),
		byAge:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		done:    make(chan struct{}),
	}
	go c.sweep()
	return c
}

// Observe records the key and reports whether it had already been seen
// within the TTL. The check and the record are one atomic step.
func (c *Cache) Observe(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if e, ok := c.entries[key]; ok {
		seen := now.Sub(e.seenAt) < c.ttl
		e.seenAt = now
		c.byAge.MoveToBack(e.element)
		return seen
	}

	if len(c.entries) >= c.maxSize {
		if oldest := c.byAge.Front(); oldest != nil {
			key, _ := oldest.Value.(string)
			c.byAge.Remove(oldest)
			delete(c.entries, key)
		}
	}

	c.entries[key] = &entry{seenAt: now, element: c.byAge.PushBack(key)}
	return false
}

// sweep periodically drops expired entries.
func (c *Cache) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.expire()
		case <-c.done:
			return
		}
	}
}

func (c *Cache) expire() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, e := range c.entries {
		if now.Sub(e.seenAt) > c.ttl {
			c.byAge.Remove(e.element)
			delete(c.entries, key)
		}
	}
}

// Close stops the background sweeper. Safe to call more than once.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		close(c.done)
		c.closed = true
	}
}
