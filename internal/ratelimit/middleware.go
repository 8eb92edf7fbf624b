package ratelimit

import (
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/quillform/quillform/internal/clock"
	"go.uber.org/fx"
)

// Defaults sized for humans typing credentials, not API traffic.
const (
	loginRate  = 0.5
	loginBurst = 10
)

type Limiter struct {
	bucket *TokenBucket
	hits   atomic.Uint64
}

type Params struct {
	fx.In

	Clock clock.Clock
}

func New(p Params) *Limiter {
	return &Limiter{bucket: NewTokenBucket(p.Clock, loginRate, loginBurst)}
}

// Middleware limits by client IP and answers 429 with a Retry-After hint.
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		res := l.bucket.Allow(c.ClientIP())
		if !res.Allowed {
			seconds := int(res.RetryAfter.Seconds()) + 1
			c.Header("Retry-After", strconv.Itoa(seconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"type":    "rate_limited",
					"message": "Too many attempts, slow down.",
				},
			})
			return
		}
		// Every so often, forget idle clients.
		if l.hits.Add(1)%512 == 0 {
			l.bucket.Prune()
		}
		c.Next()
	}
}

var Module = fx.Module("ratelimit",
	fx.Provide(New),
)
