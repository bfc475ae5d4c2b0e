package middleware

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/marketgen/api/pkg/response"
)

// RateLimiter implements per-user fixed-window rate limiting on Redis.
// When Redis is unavailable requests pass through; limiting is protection,
// not a correctness requirement.
type RateLimiter struct {
	redis *redis.Client
}

func NewRateLimiter(redisClient *redis.Client) *RateLimiter {
	return &RateLimiter{redis: redisClient}
}

// GenerateLimit caps expensive generation requests per user per hour.
func (r *RateLimiter) GenerateLimit(perHour int) fiber.Handler {
	return r.limit("generate", perHour, time.Hour)
}

// ReadLimit caps read endpoints per user per minute.
func (r *RateLimiter) ReadLimit(perMin int) fiber.Handler {
	return r.limit("read", perMin, time.Minute)
}

func (r *RateLimiter) limit(scope string, max int, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if max <= 0 {
			return c.Next()
		}

		userID := GetUserID(c)
		if userID == "" {
			userID = c.IP()
		}

		key := fmt.Sprintf("ratelimit:%s:%s", scope, userID)
		count, err := r.redis.Incr(c.Context(), key).Result()
		if err != nil {
			log.Printf("[RateLimit] Redis error, allowing request: %v", err)
			return c.Next()
		}
		if count == 1 {
			r.redis.Expire(c.Context(), key, window)
		}

		if count > int64(max) {
			return response.RateLimited(c)
		}

		return c.Next()
	}
}
