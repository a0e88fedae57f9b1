package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Venkey2238/blockchain-evidence/internal/infra/ratelimit"
)

// rateLimit applies a fixed window per caller on one route group. Keys prefer
// the authenticated wallet; unauthenticated traffic falls back to client IP.
// Limiter outages fail open: throttling is protection, not a correctness
// guarantee.
func (s *Server) rateLimit(scope string, limit int, span time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil || limit <= 0 {
			c.Next()
			return
		}
		caller := c.GetString(ctxWalletKey)
		if caller == "" {
			caller = c.ClientIP()
		}
		decision, err := s.limiter.Allow(c.Request.Context(), scope+":"+caller, limit, span)
		if err != nil {
			s.log.Warn("rate limiter unavailable", "scope", scope, "error", err)
			c.Next()
			return
		}
		writeRateLimitHeaders(c, decision)
		if !decision.Allowed {
			writeErrorCode(c, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded")
			c.Abort()
			return
		}
		c.Next()
	}
}

func writeRateLimitHeaders(c *gin.Context, decision ratelimit.Decision) {
	if decision.Limit > 0 {
		c.Header("RateLimit-Limit", strconv.Itoa(decision.Limit))
	}
	if decision.Remaining >= 0 {
		c.Header("RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	}
	if !decision.ResetAt.IsZero() {
		c.Header("RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
		if !decision.Allowed {
			retryAfter := int64(time.Until(decision.ResetAt).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
		}
	}
}
