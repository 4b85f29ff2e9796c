package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRUCache holds at most maxSize entries, evicting the least recently used
// one on overflow. With ttl > 0 an entry also stops being served ttl after
// its last Set. maxSize <= 0 turns Set into a no-op.
type LRUCache[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	now     func() time.Time

	index  map[string]*list.Element // values are *entry[T]
	recent *list.List               // front is most recently used

	hits, misses uint64
}

type entry[T any] struct {
	key      string
	value    T
	storedAt time.Time
}

func NewLRUCache[T any](maxSize int, ttl time.Duration) *LRUCache[T] {
	return &LRUCache[T]{
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
		index:   map[string]*list.Element{},
		recent:  list.New(),
	}
}

// WithClock swaps the time source and returns c.
func (c *LRUCache[T]) WithClock(now func() time.Time) *LRUCache[T] {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
	return c
}

func (c *LRUCache[T]) stale(e *entry[T], at time.Time) bool {
	return c.ttl > 0 && at.Sub(e.storedAt) > c.ttl
}

func (c *LRUCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.index[key]; ok {
		e := el.Value.(*entry[T])
		if !c.stale(e, c.now()) {
			c.recent.MoveToFront(el)
			c.hits++
			return e.value, true
		}
		c.drop(el)
	}
	c.misses++
	var zero T
	return zero, false
}

func (c *LRUCache[T]) Set(key string, value T) {
	if c.maxSize <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	e := &entry[T]{key: key, value: value, storedAt: c.now()}
	if el, ok := c.index[key]; ok {
		el.Value = e
		c.recent.MoveToFront(el)
		return
	}
	c.index[key] = c.recent.PushFront(e)
	for len(c.index) > c.maxSize {
		c.drop(c.recent.Back())
	}
}

func (c *LRUCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.index[key]; ok {
		c.drop(el)
	}
}

// drop needs c.mu held.
func (c *LRUCache[T]) drop(el *list.Element) {
	delete(c.index, el.Value.(*entry[T]).key)
	c.recent.Remove(el)
}

// CleanExpired evicts stale entries and returns how many went.
func (c *LRUCache[T]) CleanExpired() int {
	if c.ttl <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	at := c.now()
	n := 0
	// Walk from the back so removing el does not disturb the next step.
	for el := c.recent.Back(); el != nil; {
		prev := el.Prev()
		if c.stale(el.Value.(*entry[T]), at) {
			c.drop(el)
			n++
		}
		el = prev
	}
	return n
}

func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.index)
}

// Stats returns lookup counters since creation.
func (c *LRUCache[T]) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
