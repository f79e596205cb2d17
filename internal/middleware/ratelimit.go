package middleware

import (
    "context"
    "fmt"
    "math"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "github.com/iliyamo/persons-api/internal/config"
    "github.com/iliyamo/persons-api/internal/logger"
)

// MsgThrottled is the 429 body detail.
const MsgThrottled = "Request was throttled."

// bucketScript refills a token bucket stored as a hash and takes one token.
// It returns {allowed, remaining, retry_after_ms}.
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

    if interval_ms > 0 and refill_tokens > 0 then
        local intervals = math.floor(math.max(0, now_ms - last_refill) / interval_ms)
        if intervals > 0 then
            tokens = math.min(capacity, tokens + (intervals * refill_tokens))
            last_refill = last_refill + (intervals * interval_ms)
        end
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

type bucketResult struct {
    allowed   bool
    remaining int64
    retryMs   int64
}

// TokenBucket limits requests per key using a Redis-held bucket.  The
// limiter fails open: when Redis is unreachable the request proceeds and a
// warning is logged.
type TokenBucket struct {
    cfg config.RateLimitConfig
    rdb *redis.Client
    now func() time.Time
}

// NewTokenBucket returns the echo middleware.  A disabled config or a nil
// client yields a pass-through middleware.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    tb := &TokenBucket{cfg: cfg, rdb: rdb, now: time.Now}
    return tb.Middleware
}

func (tb *TokenBucket) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
    return func(c echo.Context) error {
        key := buildRateKey(tb.cfg, c)
        res, err := tb.take(c.Request().Context(), key)
        if err != nil {
            logger.FromEcho(c).Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
            return next(c)
        }

        h := c.Response().Header()
        h.Set("X-RateLimit-Limit", strconv.Itoa(tb.cfg.Capacity))
        h.Set("X-RateLimit-Remaining", strconv.FormatInt(res.remaining, 10))
        if tb.cfg.Debug {
            h.Set("X-RateLimit-Key", key)
        }

        if !res.allowed {
            secs := int(math.Ceil(float64(res.retryMs) / 1000.0))
            h.Set("Retry-After", strconv.Itoa(secs))
            if tb.cfg.Debug {
                logger.FromEcho(c).Info("rate limited", zap.String("key", key), zap.Int("retry_after", secs))
            }
            return c.JSON(http.StatusTooManyRequests, echo.Map{"detail": MsgThrottled})
        }
        return next(c)
    }
}

func (tb *TokenBucket) take(ctx context.Context, key string) (bucketResult, error) {
    args := []any{
        tb.now().UnixMilli(),
        tb.cfg.Capacity,
        tb.cfg.RefillTokens,
        tb.cfg.RefillInterval.Milliseconds(),
        int64(tb.cfg.TTL / time.Second),
    }
    vals, err := bucketScript.Run(ctx, tb.rdb, []string{key}, args...).Slice()
    if err != nil {
        return bucketResult{}, err
    }
    if len(vals) != 3 {
        return bucketResult{}, fmt.Errorf("unexpected limiter result: %v", vals)
    }
    return bucketResult{
        allowed:   asInt64(vals[0]) == 1,
        remaining: asInt64(vals[1]),
        retryMs:   asInt64(vals[2]),
    }, nil
}

func asInt64(v any) int64 {
    switch t := v.(type) {
    case int64:
        return t
    case int:
        return int64(t)
    case float64:
        return int64(t)
    case string:
        n, _ := strconv.ParseInt(t, 10, 64)
        return n
    }
    return 0
}

func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
    parts := []string{cfg.Prefix}
    ip := c.RealIP()
    if ip == "" {
        ip = "unknown"
    }
    uid := currentUserID(c)
    route := c.Request().Method + " " + c.Path()

    switch strings.ToLower(cfg.KeyStrategy) {
    case "ip":
        parts = append(parts, "ip", ip)
    case "user":
        parts = append(parts, "user", uid)
    case "route":
        parts = append(parts, "route", route)
    case "ip_user":
        parts = append(parts, "ip", ip, "user", uid)
    case "ip_route":
        parts = append(parts, "ip", ip, "route", route)
    case "user_route":
        parts = append(parts, "user", uid, "route", route)
    default:
        parts = append(parts, "ip", ip, "user", uid, "route", route)
    }
    return strings.Join(parts, ":")
}
