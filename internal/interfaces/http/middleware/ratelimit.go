package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/petshop/erp/internal/interfaces/http/dto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Limiter decides whether one more request fits the current window
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, remaining int, err error)
	Limit() int
}

// MemoryLimiter is a fixed-window limiter local to one process
type MemoryLimiter struct {
	mu      sync.Mutex
	clients map[string]*window
	limit   int
	period  time.Duration
	now     func() time.Time
}

type window struct {
	used  int
	start time.Time
}

// NewMemoryLimiter creates a limiter of limit requests per period
func NewMemoryLimiter(limit int, period time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		clients: make(map[string]*window),
		limit:   limit,
		period:  period,
		now:     time.Now,
	}
}

// Limit implements Limiter
func (l *MemoryLimiter) Limit() int { return l.limit }

// Allow implements Limiter
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.clients[key]
	if !ok || now.Sub(w.start) >= l.period {
		if len(l.clients) > 10000 {
			l.sweep(now)
		}
		w = &window{start: now}
		l.clients[key] = w
	}
	if w.used >= l.limit {
		return false, 0, nil
	}
	w.used++
	return true, l.limit - w.used, nil
}

// sweep drops expired windows; callers hold mu
func (l *MemoryLimiter) sweep(now time.Time) {
	for k, w := range l.clients {
		if now.Sub(w.start) >= l.period {
			delete(l.clients, k)
		}
	}
}

// RedisLimiter is a fixed-window limiter shared by every API instance
type RedisLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	period time.Duration
}

// NewRedisLimiter creates a limiter of limit requests per period
func NewRedisLimiter(client *redis.Client, prefix string, limit int, period time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "ratelimit:"
	}
	return &RedisLimiter{client: client, prefix: prefix, limit: limit, period: period}
}

// Limit implements Limiter
func (l *RedisLimiter) Limit() int { return l.limit }

// Allow implements Limiter
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, int, error) {
	k := l.prefix + key
	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	// NX keeps the window anchored at its first request
	pipe.ExpireNX(ctx, k, l.period)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, l.limit, err
	}
	used := int(incr.Val())
	if used > l.limit {
		return false, 0, nil
	}
	return true, l.limit - used, nil
}

// ClientIPKey limits per client address
func ClientIPKey(c *gin.Context) string {
	return c.FullPath() + "|" + c.ClientIP()
}

// RateLimit rejects requests over the limiter's budget. Limiter failures let
// the request through.
func RateLimit(limiter Limiter, keyFunc func(*gin.Context) string, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	if keyFunc == nil {
		keyFunc = ClientIPKey
	}

	return func(c *gin.Context) {
		allowed, remaining, err := limiter.Allow(c.Request.Context(), keyFunc(c))
		if err != nil {
			log.Warn("Rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !allowed {
			abort(c, http.StatusTooManyRequests, dto.ErrCodeRateLimited, "Too many requests. Please try again later.")
			return
		}
		c.Next()
	}
}
