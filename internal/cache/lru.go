package cache

import (
	"container/list"
	"strings"
	"sync"
	"time"
)

type entry[V any] struct {
	key       string
	value     V
	createdAt time.Time
	ttl       time.Duration
}

func (e *entry[V]) expired(now time.Time) bool {
	if e.ttl == 0 {
		return false
	}
	return now.Sub(e.createdAt) > e.ttl
}

// LRU is a size-bounded cache with per-entry TTL. The zero value is not
// usable; construct with New.
type LRU[V any] struct {
	config       Config
	items        map[string]*list.Element
	evictionList *list.List
	stats        Stats
	mu           sync.Mutex
	now          func() time.Time
	stopCleanup  chan struct{}
	cleanupDone  chan struct{}
	closeOnce    sync.Once
}

// New creates a cache and starts background cleanup when configured
func New[V any](config Config) *LRU[V] {
	if config.MaxSize <= 0 {
		config.MaxSize = DefaultConfig().MaxSize
	}
	c := &LRU[V]{
		config:       config,
		items:        make(map[string]*list.Element),
		evictionList: list.New(),
		stats: Stats{
			MaxSize:     config.MaxSize,
			LastCleanup: time.Now(),
		},
		now:         time.Now,
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}

	if config.CleanupPeriod > 0 {
		go c.backgroundCleanup()
	} else {
		close(c.cleanupDone)
	}
	return c
}

// Get retrieves an item and marks it most recently used
func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	element, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		return zero, false
	}

	e := element.Value.(*entry[V])
	if e.expired(c.now()) {
		c.removeElement(element)
		c.stats.Misses++
		return zero, false
	}

	c.evictionList.MoveToFront(element)
	c.stats.Hits++
	return e.value, true
}

// Set stores an item with the default TTL
func (c *LRU[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.config.DefaultTTL)
}

// SetWithTTL stores an item with a custom TTL; zero never expires
func (c *LRU[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if element, ok := c.items[key]; ok {
		e := element.Value.(*entry[V])
		e.value = value
		e.createdAt = c.now()
		e.ttl = ttl
		c.evictionList.MoveToFront(element)
		return
	}

	element := c.evictionList.PushFront(&entry[V]{
		key:       key,
		value:     value,
		createdAt: c.now(),
		ttl:       ttl,
	})
	c.items[key] = element

	if c.evictionList.Len() > c.config.MaxSize {
		if oldest := c.evictionList.Back(); oldest != nil {
			c.removeElement(oldest)
			c.stats.Evictions++
		}
	}
}

// Delete removes an item
func (c *LRU[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if element, ok := c.items[key]; ok {
		c.removeElement(element)
	}
}

// Clear removes all items whose key starts with prefix
func (c *LRU[V]) Clear(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, element := range c.items {
		if strings.HasPrefix(key, prefix) {
			c.removeElement(element)
		}
	}
}

// Cleanup removes expired entries
func (c *LRU[V]) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for _, element := range c.items {
		if element.Value.(*entry[V]).expired(now) {
			c.removeElement(element)
		}
	}
	c.stats.LastCleanup = now
}

// Size returns the current number of entries
func (c *LRU[V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns cache statistics
func (c *LRU[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Size = len(c.items)
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}
	return stats
}

// Close stops background cleanup and drops every entry
func (c *LRU[V]) Close() error {
	c.closeOnce.Do(func() {
		if c.config.CleanupPeriod > 0 {
			close(c.stopCleanup)
		}
		<-c.cleanupDone

		c.mu.Lock()
		defer c.mu.Unlock()
		c.items = make(map[string]*list.Element)
		c.evictionList = list.New()
	})
	return nil
}

// removeElement requires c.mu
func (c *LRU[V]) removeElement(element *list.Element) {
	delete(c.items, element.Value.(*entry[V]).key)
	c.evictionList.Remove(element)
}

func (c *LRU[V]) backgroundCleanup() {
	defer close(c.cleanupDone)

	ticker := time.NewTicker(c.config.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Cleanup()
		case <-c.stopCleanup:
			return
		}
	}
}
