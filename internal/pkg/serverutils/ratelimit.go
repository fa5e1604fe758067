package serverutils

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"genius-be/internal/dto"
	"genius-be/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const rateLimitWindow = time.Minute

type userLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter caps requests per user per minute. With Redis the budget is a
// fixed window shared by every instance; without it, or while Redis errors,
// each instance keeps its own token buckets.
type RateLimiter struct {
	rdb       *redis.Client
	perMinute int
	logger    logger.ILogger
	prefix    string

	mu     sync.Mutex
	local  map[string]*userLimiter
	now    func() time.Time
	stopCh chan struct{}
}

func NewRateLimiter(rdb *redis.Client, prefix string, perMinute int, log logger.ILogger) *RateLimiter {
	rl := &RateLimiter{
		rdb:       rdb,
		perMinute: perMinute,
		logger:    log,
		prefix:    prefix,
		local:     make(map[string]*userLimiter),
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
	go rl.cleanupLoop(5 * time.Minute)
	return rl
}

func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// Allow reports whether key may make one more request now.
func (rl *RateLimiter) Allow(ctx context.Context, key string) bool {
	if rl.perMinute <= 0 {
		return true
	}
	if rl.rdb != nil {
		allowed, err := rl.allowRedis(ctx, key)
		if err == nil {
			return allowed
		}
		rl.logger.Warn("RATE_LIMIT", "Redis unavailable, using local limiter", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return rl.getOrCreateLocal(key).Allow()
}

func (rl *RateLimiter) allowRedis(ctx context.Context, key string) (bool, error) {
	window := rl.now().Unix() / int64(rateLimitWindow.Seconds())
	redisKey := fmt.Sprintf("ratelimit:%s:%s:%s", rl.prefix, key, strconv.FormatInt(window, 10))

	pipe := rl.rdb.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, rateLimitWindow+5*time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return incr.Val() <= int64(rl.perMinute), nil
}

func (rl *RateLimiter) getOrCreateLocal(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if ul, ok := rl.local[key]; ok {
		ul.lastAccess = rl.now()
		return ul.limiter
	}

	limiter := rate.NewLimiter(rate.Limit(float64(rl.perMinute)/rateLimitWindow.Seconds()), rl.perMinute)
	rl.local[key] = &userLimiter{limiter: limiter, lastAccess: rl.now()}
	return limiter
}

func (rl *RateLimiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup(2 * interval)
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *RateLimiter) cleanup(ttl time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, ul := range rl.local {
		if now.Sub(ul.lastAccess) > ttl {
			delete(rl.local, key)
		}
	}
}

// Middleware must run after the JWT middleware; it keys on the caller.
func (rl *RateLimiter) Middleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		userId := UserId(ctx)
		if userId == "" {
			return WriteError(ctx, dto.NewUnauthorizedError())
		}
		if !rl.Allow(ctx.UserContext(), userId) {
			ctx.Set(fiber.HeaderRetryAfter, "60")
			return WriteError(ctx, dto.NewRateLimitedError(nil))
		}
		return ctx.Next()
	}
}
