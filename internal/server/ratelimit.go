package server

import (
	"context"
	"sync"
	"time"
)

// RateLimitConfig sizes the two limiters the server runs: a global
// token bucket over all requests and a per-address cap on login attempts.
// Setting RedisAddr moves the login counters into redis so the cap holds
// across replicas.
type RateLimitConfig struct {
	GlobalRPS     float64
	GlobalBurst   int
	LoginLimit    int
	LoginWindow   time.Duration
	RedisAddr     string
	RedisPassword string
	RedisTimeout  time.Duration
}

// loginAttemptStore counts login attempts per key within a window.
type loginAttemptStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error)
}

type rateLimiter struct {
	global      *tokenBucket
	loginLimit  int
	loginWindow time.Duration
	store       loginAttemptStore

	mu      sync.Mutex
	perAddr map[string]*addrBucket
}

type addrBucket struct {
	bucket   *tokenBucket
	lastSeen time.Time
}

func newRateLimiter(cfg RateLimitConfig) *rateLimiter {
	rl := &rateLimiter{
		loginLimit:  cfg.LoginLimit,
		loginWindow: cfg.LoginWindow,
		perAddr:     make(map[string]*addrBucket),
	}
	if rl.loginWindow <= 0 {
		rl.loginWindow = time.Minute
	}
	if cfg.GlobalRPS > 0 {
		burst := cfg.GlobalBurst
		if burst <= 0 {
			burst = max(int(cfg.GlobalRPS), 1)
		}
		rl.global = newTokenBucket(cfg.GlobalRPS, burst)
	}
	if cfg.RedisAddr != "" && rl.loginLimit > 0 {
		timeout := cfg.RedisTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		rl.store = newRedisStore(cfg.RedisAddr, cfg.RedisPassword, timeout)
	}
	return rl
}

func (rl *rateLimiter) AllowRequest() bool {
	if rl == nil || rl.global == nil {
		return true
	}
	return rl.global.take()
}

// AllowLogin checks the per-address login cap. Without redis each address
// gets a local token bucket that refills over the configured window.
func (rl *rateLimiter) AllowLogin(ctx context.Context, addr string) (bool, time.Duration, error) {
	if rl == nil || rl.loginLimit <= 0 {
		return true, 0, nil
	}
	if rl.store != nil {
		return rl.store.Allow(ctx, "clipstream:login:"+addr, rl.loginLimit, rl.loginWindow)
	}
	if addr == "" {
		addr = "unknown"
	}

	rl.mu.Lock()
	entry, ok := rl.perAddr[addr]
	if !ok {
		refill := float64(rl.loginLimit) / rl.loginWindow.Seconds()
		if refill <= 0 {
			refill = 1 / rl.loginWindow.Seconds()
		}
		entry = &addrBucket{bucket: newTokenBucket(refill, rl.loginLimit)}
		rl.perAddr[addr] = entry
	}
	entry.lastSeen = time.Now()
	rl.pruneStale()
	rl.mu.Unlock()

	if entry.bucket.take() {
		return true, 0, nil
	}
	return false, time.Second, nil
}

// pruneStale drops buckets idle for two windows. Callers hold mu.
func (rl *rateLimiter) pruneStale() {
	cutoff := time.Now().Add(-2 * rl.loginWindow)
	for addr, entry := range rl.perAddr {
		if entry.lastSeen.Before(cutoff) {
			delete(rl.perAddr, addr)
		}
	}
}

// tokenBucket is a standard leaky bucket: take spends a token, and tokens
// accrue continuously at rate per second up to the burst capacity.
type tokenBucket struct {
	mu       sync.Mutex
	rate     float64
	capacity float64
	tokens   float64
	updated  time.Time
}

func newTokenBucket(rate float64, burst int) *tokenBucket {
	if rate <= 0 {
		rate = 1
	}
	if burst < 1 {
		burst = 1
	}
	return &tokenBucket{
		rate:     rate,
		capacity: float64(burst),
		tokens:   float64(burst),
		updated:  time.Now(),
	}
}

func (tb *tokenBucket) take() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	tb.tokens += now.Sub(tb.updated).Seconds() * tb.rate
	tb.updated = now
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
	if tb.tokens < 1 {
		return false
	}
	tb.tokens--
	return true
}
