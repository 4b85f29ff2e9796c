// Package ratelimit throttles requests per client with token buckets.
package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

type Config struct {
	RequestsPerSecond float64
	Burst             int
	// IdleTTL drops clients that have been quiet this long.
	IdleTTL         time.Duration
	CleanupInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 10,
		Burst:             20,
		IdleTTL:           10 * time.Minute,
		CleanupInterval:   5 * time.Minute,
	}
}

// withDefaults fills every non-positive field from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = d.RequestsPerSecond
	}
	if c.Burst <= 0 {
		c.Burst = d.Burst
	}
	if c.IdleTTL <= 0 {
		c.IdleTTL = d.IdleTTL
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = d.CleanupInterval
	}
	return c
}

type bucket struct {
	tokens   *rate.Limiter
	lastSeen time.Time
}

// Limiter keeps one bucket per client key.
type Limiter struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket

	rejected atomic.Int64
	stop     chan struct{}
	stopOnce sync.Once
}

// NewLimiter starts a limiter and its eviction goroutine; call Stop to end it.
func NewLimiter(cfg Config) *Limiter {
	l := &Limiter{
		cfg:     cfg.withDefaults(),
		now:     time.Now,
		buckets: map[string]*bucket{},
		stop:    make(chan struct{}),
	}
	go l.evictLoop()
	return l
}

func (l *Limiter) bucketFor(key string, at time.Time) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: rate.NewLimiter(rate.Limit(l.cfg.RequestsPerSecond), l.cfg.Burst)}
		l.buckets[key] = b
	}
	b.lastSeen = at
	return b
}

// Allow takes a token from key's bucket if one is available.
func (l *Limiter) Allow(key string) bool {
	_, ok := l.take(key)
	return ok
}

// take also returns, on refusal, how long until the next token.
func (l *Limiter) take(key string) (time.Duration, bool) {
	at := l.now()
	b := l.bucketFor(key, at)
	if b.tokens.AllowN(at, 1) {
		return 0, true
	}
	l.rejected.Add(1)
	missing := 1 - b.tokens.TokensAt(at)
	return time.Duration(missing / l.cfg.RequestsPerSecond * float64(time.Second)), false
}

func (l *Limiter) evictLoop() {
	t := time.NewTicker(l.cfg.CleanupInterval)
	defer t.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-t.C:
			l.evictIdle()
		}
	}
}

// evictIdle forgets clients unseen for IdleTTL and returns how many.
func (l *Limiter) evictIdle() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-l.cfg.IdleTTL)
	n := 0
	for key, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, key)
			n++
		}
	}
	return n
}

// ActiveClients returns the number of tracked clients.
func (l *Limiter) ActiveClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Rejected returns how many requests were refused.
func (l *Limiter) Rejected() int64 {
	return l.rejected.Load()
}

// Stop ends the eviction goroutine. Safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Middleware answers over-limit requests with 429 and a Retry-After in whole
// seconds. onLimit, when set, writes the body instead of the plain default.
func (l *Limiter) Middleware(clientKey func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wait, ok := l.take(clientKey(r))
			if ok {
				next.ServeHTTP(w, r)
				return
			}
			secs := max(1, int(math.Ceil(wait.Seconds())))
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			if onLimit != nil {
				onLimit(w, r)
				return
			}
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		})
	}
}
