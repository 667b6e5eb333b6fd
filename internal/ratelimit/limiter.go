package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// LimitResult is the outcome of a rate limit check.
type LimitResult struct {
	Allowed    bool
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Limiter performs sliding-window rate limiting backed by Redis sorted sets.
// Without Redis, or when a Redis call fails, it falls back to an in-process
// token bucket per key so a single instance is still protected.
type Limiter struct {
	rdb    *redis.Client
	logger *slog.Logger

	mu    sync.Mutex
	local *gocache.Cache
	now   func() time.Time
}

// NewLimiter creates a rate limiter. rdb may be nil.
func NewLimiter(rdb *redis.Client, logger *slog.Logger) *Limiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Limiter{
		rdb:    rdb,
		logger: logger,
		local:  gocache.New(10*time.Minute, 5*time.Minute),
		now:    time.Now,
	}
}

// slidingWindowScript atomically: removes expired entries, adds current, counts.
// KEYS[1] = sorted set key
// ARGV[1] = window start (unix micro)
// ARGV[2] = now (unix micro), used as score and as member prefix
// ARGV[3] = limit
// ARGV[4] = TTL seconds for the key
// Returns: [current_count, 1=allowed/0=denied, oldest_score]
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local window_start = tonumber(ARGV[1])
local now = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
local count = redis.call('ZCARD', key)

if count < limit then
    redis.call('ZADD', key, now, now .. ':' .. math.random(1000000))
    redis.call('EXPIRE', key, ttl)
    return {count + 1, 1, 0}
end

local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
redis.call('EXPIRE', key, ttl)
return {count, 0, tonumber(oldest[2])}
`)

// Check performs a rate limit check on key allowing limit requests per window.
// Redis failures are logged and answered by the local limiter.
func (l *Limiter) Check(ctx context.Context, key string, limit int64, window time.Duration) LimitResult {
	if limit <= 0 {
		return LimitResult{Allowed: true, ResetAt: l.now().Add(window)}
	}
	if l.rdb == nil {
		return l.checkLocal(key, limit, window)
	}

	now := l.now()
	windowStart := now.Add(-window).UnixMicro()
	nowMicro := now.UnixMicro()
	ttlSecs := int64(window.Seconds()) + 1

	redisKey := fmt.Sprintf("wayfinder:rl:%s", key)

	result, err := slidingWindowScript.Run(ctx, l.rdb, []string{redisKey},
		windowStart, nowMicro, limit, ttlSecs,
	).Int64Slice()
	if err != nil {
		l.logger.Warn("redis rate limit check failed, using local limiter", "error", err)
		return l.checkLocal(key, limit, window)
	}

	count := result[0]
	allowed := result[1] == 1
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}

	resetAt := now.Add(window)
	var retryAfter time.Duration
	if !allowed {
		// the oldest entry leaves the window first
		oldest := time.UnixMicro(result[2])
		resetAt = oldest.Add(window)
		retryAfter = resetAt.Sub(now)
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
	}

	return LimitResult{
		Allowed:    allowed,
		Remaining:  remaining,
		ResetAt:    resetAt,
		RetryAfter: retryAfter,
	}
}

// checkLocal uses a token bucket refilled at limit/window with burst limit.
func (l *Limiter) checkLocal(key string, limit int64, window time.Duration) LimitResult {
	now := l.now()
	lim := l.localLimiter(key, limit, window)
	interval := window / time.Duration(limit)

	if lim.AllowN(now, 1) {
		remaining := int64(math.Floor(lim.TokensAt(now)))
		if remaining < 0 {
			remaining = 0
		}
		return LimitResult{Allowed: true, Remaining: remaining, ResetAt: now.Add(window)}
	}

	missing := 1 - lim.TokensAt(now)
	retryAfter := time.Duration(math.Ceil(missing * float64(interval)))
	if retryAfter < time.Second {
		retryAfter = time.Second
	}
	return LimitResult{
		Allowed:    false,
		Remaining:  0,
		ResetAt:    now.Add(retryAfter),
		RetryAfter: retryAfter,
	}
}

func (l *Limiter) localLimiter(key string, limit int64, window time.Duration) *rate.Limiter {
	cacheKey := fmt.Sprintf("%s:%d:%s", key, limit, window)

	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.local.Get(cacheKey)
	if !ok {
		lim = rate.NewLimiter(rate.Every(window/time.Duration(limit)), int(limit))
	}
	// every check pushes the expiry out so an active bucket is never dropped
	l.local.Set(cacheKey, lim, 2*window)
	return lim.(*rate.Limiter)
}
