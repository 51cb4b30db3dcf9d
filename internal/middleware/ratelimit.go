package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/AurLemon/course-android-mockapi/internal/config"
)

// MsgTooManyRequests is returned when the bucket is empty.
const MsgTooManyRequests = "请求过于频繁，请稍后再试"

// bucketScript refills and takes one token atomically. It returns
// {allowed, remaining, retry_after_ms}.
var bucketScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill_tokens = tonumber(ARGV[3])
local interval_ms = tonumber(ARGV[4])
local ttl_seconds = tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])
if tokens == nil or last_refill == nil then
  tokens = capacity
  last_refill = now_ms
end

local elapsed = math.max(0, now_ms - last_refill)
local intervals = math.floor(elapsed / interval_ms)
if intervals > 0 then
  tokens = math.min(capacity, tokens + intervals * refill_tokens)
  last_refill = last_refill + intervals * interval_ms
end

local allowed = 0
local retry_after_ms = 0
if tokens > 0 then
  allowed = 1
  tokens = tokens - 1
else
  retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)
return { allowed, tokens, retry_after_ms }
`)

// decision is the outcome of taking one token.
type decision struct {
	allowed    bool
	remaining  int64
	retryAfter time.Duration
}

type bucket interface {
	take(ctx context.Context, key string, now time.Time) (decision, error)
}

// NewTokenBucket limits requests per key (see RateLimitConfig.KeyStrategy).
// Buckets live in Redis so every instance shares them; without a client,
// or while Redis is failing, an in-process limiter takes over.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("ratelimit")

	local := newLocalBucket(cfg)
	var primary bucket = local
	if rdb != nil {
		primary = &redisBucket{rdb: rdb, cfg: cfg}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := rateKey(cfg, c)
			now := time.Now()

			d, err := primary.take(c.Request().Context(), key, now)
			if err != nil {
				log.Warn("redis bucket failed, using local limiter", zap.String("key", key), zap.Error(err))
				d, _ = local.take(c.Request().Context(), key, now)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.remaining, 10))

			if !d.allowed {
				secs := int(math.Ceil(d.retryAfter.Seconds()))
				h.Set("Retry-After", strconv.Itoa(secs))
				if cfg.Debug {
					log.Info("blocked", zap.String("key", key), zap.Duration("retry_after", d.retryAfter))
				}
				return echo.NewHTTPError(http.StatusTooManyRequests, MsgTooManyRequests)
			}
			return next(c)
		}
	}
}

type redisBucket struct {
	rdb *redis.Client
	cfg config.RateLimitConfig
}

func (b *redisBucket) take(ctx context.Context, key string, now time.Time) (decision, error) {
	vals, err := bucketScript.Run(ctx, b.rdb, []string{key},
		now.UnixMilli(),
		b.cfg.Capacity,
		b.cfg.RefillTokens,
		b.cfg.RefillInterval.Milliseconds(),
		int64(b.cfg.TTL/time.Second),
	).Int64Slice()
	if err != nil {
		return decision{}, err
	}
	if len(vals) != 3 {
		return decision{}, redis.Nil
	}
	return decision{
		allowed:    vals[0] == 1,
		remaining:  vals[1],
		retryAfter: time.Duration(vals[2]) * time.Millisecond,
	}, nil
}

// localBucket keeps one x/time/rate limiter per key, forgetting keys idle
// for longer than the configured TTL.
type localBucket struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	entries   map[string]*localEntry
	lastSweep time.Time
}

type localEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

func newLocalBucket(cfg config.RateLimitConfig) *localBucket {
	return &localBucket{
		limit:   rate.Every(cfg.RefillInterval / time.Duration(cfg.RefillTokens)),
		burst:   cfg.Capacity,
		ttl:     cfg.TTL,
		entries: make(map[string]*localEntry),
	}
}

func (b *localBucket) take(_ context.Context, key string, now time.Time) (decision, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if now.Sub(b.lastSweep) > b.ttl {
		for k, e := range b.entries {
			if now.Sub(e.seen) > b.ttl {
				delete(b.entries, k)
			}
		}
		b.lastSweep = now
	}

	e, ok := b.entries[key]
	if !ok {
		e = &localEntry{lim: rate.NewLimiter(b.limit, b.burst)}
		b.entries[key] = e
	}
	e.seen = now

	r := e.lim.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return decision{retryAfter: delay}, nil
	}
	return decision{allowed: true, remaining: int64(e.lim.TokensAt(now))}, nil
}

func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	uid := requesterID(c)
	route := c.Request().Method + " " + c.Path()

	parts := []string{cfg.Prefix}
	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		parts = append(parts, "ip", ip)
	case "user":
		parts = append(parts, "user", uid)
	case "route":
		parts = append(parts, "route", route)
	case "ip_user":
		parts = append(parts, "ip", ip, "user", uid)
	case "user_route":
		parts = append(parts, "user", uid, "route", route)
	case "ip_user_route":
		parts = append(parts, "ip", ip, "user", uid, "route", route)
	default: // ip_route
		parts = append(parts, "ip", ip, "route", route)
	}
	return strings.Join(parts, ":")
}
