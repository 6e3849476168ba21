// Package ratelimit counts requests per key in fixed one-minute windows.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

const window = time.Minute

type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	perMinute     int
	sweepInterval time.Duration
	now           func() time.Time

	done     chan struct{}
	stopOnce sync.Once
	rejected int64
}

// bucket is one key's current window.
type bucket struct {
	opened time.Time
	count  int
}

type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
}

func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		CleanupInterval:   5 * time.Minute,
	}
}

// NewLimiter starts a limiter and its sweep goroutine; call Stop to end it.
func NewLimiter(config Config) *Limiter {
	def := DefaultConfig()
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = def.RequestsPerMinute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = def.CleanupInterval
	}
	l := &Limiter{
		buckets:       make(map[string]*bucket),
		perMinute:     config.RequestsPerMinute,
		sweepInterval: config.CleanupInterval,
		now:           time.Now,
		done:          make(chan struct{}),
	}
	go l.sweepLoop()
	return l
}

// Allow records a request for key and reports whether it fits the window.
// The second result is how long until the window resets.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b := l.buckets[key]
	if b == nil || now.Sub(b.opened) >= window {
		l.buckets[key] = &bucket{opened: now, count: 1}
		return true, window
	}

	b.count++
	reset := window - now.Sub(b.opened)
	if b.count <= l.perMinute {
		return true, reset
	}
	atomic.AddInt64(&l.rejected, 1)
	return false, reset
}

func (l *Limiter) sweepLoop() {
	t := time.NewTicker(l.sweepInterval)
	defer t.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-t.C:
			l.sweep()
		}
	}
}

// sweep forgets windows that already ended.
func (l *Limiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-window)
	for key, b := range l.buckets {
		if b.opened.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}

// ActiveClients returns how many keys have an open window.
func (l *Limiter) ActiveClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Hits returns how many requests were rejected.
func (l *Limiter) Hits() int64 {
	return atomic.LoadInt64(&l.rejected)
}

func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

// Middleware limits requests that change state; GET, HEAD and OPTIONS pass
// through. key picks the bucket, typically the user id or the client IP.
func (l *Limiter) Middleware(key func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			if ok, reset := l.Allow(key(r)); !ok {
				w.Header().Set("Retry-After", strconv.Itoa(int(reset.Round(time.Second)/time.Second)))
				if onLimit == nil {
					http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
					return
				}
				onLimit(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
