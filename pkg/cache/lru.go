package cache

import (
	"container/list"
	"strings"
	"sync"
	"time"
)

type Config struct {
	MaxSize int
	TTL     time.Duration
	// Sliding renews an entry's TTL every time it is read.
	Sliding bool
	Now     func() time.Time
}

type Stats struct {
	Size      int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

type LRUCache[K comparable, V any] struct {
	maxSize int
	ttl     time.Duration
	sliding bool
	onEvict func(K, V)
	now     func() time.Time

	mu        sync.Mutex
	items     map[K]*list.Element
	order     *list.List
	hits      uint64
	misses    uint64
	evictions uint64
}

type cacheItem[K comparable, V any] struct {
	key       K
	value     V
	touchedAt time.Time
}

type evicted[K comparable, V any] struct {
	key   K
	value V
}

func New[K comparable, V any](config Config) *LRUCache[K, V] {
	if config.MaxSize <= 0 {
		config.MaxSize = 100
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &LRUCache[K, V]{
		maxSize: config.MaxSize,
		ttl:     config.TTL,
		sliding: config.Sliding,
		now:     config.Now,
		items:   make(map[K]*list.Element),
		order:   list.New(),
	}
}

// NewWithEviction calls onEvict, without the lock held, whenever an entry leaves the cache
// other than by Set overwriting it.
func NewWithEviction[K comparable, V any](config Config, onEvict func(K, V)) *LRUCache[K, V] {
	c := New[K, V](config)
	c.onEvict = onEvict
	return c
}

func (c *LRUCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	var zero V
	element, exists := c.items[key]
	if !exists {
		c.misses++
		c.mu.Unlock()
		return zero, false
	}

	item := element.Value.(*cacheItem[K, V])
	if c.expired(item) {
		c.removeElement(element)
		c.misses++
		c.mu.Unlock()
		c.notify([]evicted[K, V]{{item.key, item.value}})
		return zero, false
	}

	if c.sliding {
		item.touchedAt = c.now()
	}
	c.order.MoveToFront(element)
	c.hits++
	c.mu.Unlock()
	return item.value, true
}

func (c *LRUCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	if element, exists := c.items[key]; exists {
		item := element.Value.(*cacheItem[K, V])
		item.value = value
		item.touchedAt = c.now()
		c.order.MoveToFront(element)
		c.mu.Unlock()
		return
	}

	element := c.order.PushFront(&cacheItem[K, V]{key: key, value: value, touchedAt: c.now()})
	c.items[key] = element

	var gone []evicted[K, V]
	for c.order.Len() > c.maxSize {
		oldest := c.order.Back()
		item := oldest.Value.(*cacheItem[K, V])
		c.removeElement(oldest)
		gone = append(gone, evicted[K, V]{item.key, item.value})
	}
	c.mu.Unlock()
	c.notify(gone)
}

// GetOrCreate returns the cached value for key, building and storing it with create when missing.
func (c *LRUCache[K, V]) GetOrCreate(key K, create func() V) V {
	if v, ok := c.Get(key); ok {
		return v
	}
	c.mu.Lock()
	if element, exists := c.items[key]; exists {
		item := element.Value.(*cacheItem[K, V])
		if !c.expired(item) {
			c.mu.Unlock()
			return item.value
		}
	}
	c.mu.Unlock()

	v := create()
	c.Set(key, v)
	return v
}

func (c *LRUCache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	element, exists := c.items[key]
	if !exists {
		c.mu.Unlock()
		return false
	}
	item := element.Value.(*cacheItem[K, V])
	c.removeElement(element)
	c.mu.Unlock()
	c.notify([]evicted[K, V]{{item.key, item.value}})
	return true
}

func (c *LRUCache[K, V]) Clear() {
	c.mu.Lock()
	gone := make([]evicted[K, V], 0, len(c.items))
	for _, element := range c.items {
		item := element.Value.(*cacheItem[K, V])
		gone = append(gone, evicted[K, V]{item.key, item.value})
	}
	c.items = make(map[K]*list.Element)
	c.order = list.New()
	c.mu.Unlock()
	c.notify(gone)
}

// DeletePrefix only applies to string keys.
func (c *LRUCache[K, V]) DeletePrefix(prefix string) int {
	c.mu.Lock()
	var gone []evicted[K, V]
	for key, element := range c.items {
		if strKey, ok := any(key).(string); ok && strings.HasPrefix(strKey, prefix) {
			item := element.Value.(*cacheItem[K, V])
			c.removeElement(element)
			gone = append(gone, evicted[K, V]{item.key, item.value})
		}
	}
	c.mu.Unlock()
	c.notify(gone)
	return len(gone)
}

func (c *LRUCache[K, V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *LRUCache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Size: len(c.items), Hits: c.hits, Misses: c.misses, Evictions: c.evictions}
}

// CleanupExpired drops every expired entry and reports how many went.
func (c *LRUCache[K, V]) CleanupExpired() int {
	if c.ttl <= 0 {
		return 0
	}

	c.mu.Lock()
	var gone []evicted[K, V]
	// reads reorder the list, so age is not monotonic along it
	for element := c.order.Back(); element != nil; {
		prev := element.Prev()
		item := element.Value.(*cacheItem[K, V])
		if c.expired(item) {
			c.removeElement(element)
			gone = append(gone, evicted[K, V]{item.key, item.value})
		}
		element = prev
	}
	c.mu.Unlock()
	c.notify(gone)
	return len(gone)
}

func (c *LRUCache[K, V]) expired(item *cacheItem[K, V]) bool {
	return c.ttl > 0 && c.now().Sub(item.touchedAt) > c.ttl
}

func (c *LRUCache[K, V]) removeElement(element *list.Element) {
	item := element.Value.(*cacheItem[K, V])
	delete(c.items, item.key)
	c.order.Remove(element)
	c.evictions++
}

func (c *LRUCache[K, V]) notify(gone []evicted[K, V]) {
	if c.onEvict == nil {
		return
	}
	for _, e := range gone {
		c.onEvict(e.key, e.value)
	}
}
