package server

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// scopeLimiter keeps one token bucket per client scope and forgets scopes
// idle for longer than ttl.
type scopeLimiter struct {
	limit rate.Limit
	burst int
	ttl   time.Duration

	mu       sync.Mutex
	limiters map[string]*scopeEntry

	stopOnce sync.Once
	stop     chan struct{}
}

type scopeEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newScopeLimiter(perSecond float64, burst int, ttl time.Duration) *scopeLimiter {
	if burst < 1 {
		burst = 1
	}
	l := &scopeLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		ttl:      ttl,
		limiters: make(map[string]*scopeEntry),
		stop:     make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

func (l *scopeLimiter) Allow(scope string) bool {
	l.mu.Lock()
	e, ok := l.limiters[scope]
	if !ok {
		e = &scopeEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[scope] = e
	}
	e.lastSeen = time.Now()
	l.mu.Unlock()
	return e.limiter.Allow()
}

func (l *scopeLimiter) cleanupLoop() {
	ticker := time.NewTicker(l.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.sweep(time.Now())
		case <-l.stop:
			return
		}
	}
}

func (l *scopeLimiter) sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for scope, e := range l.limiters {
		if now.Sub(e.lastSeen) > l.ttl {
			delete(l.limiters, scope)
		}
	}
}

func (l *scopeLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}
