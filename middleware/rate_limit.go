package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	chatRequestsPerMinute = 10
	chatBurst             = 10
)

// 按用户邮箱隔离限流器，进程内有效
type rateLimiterPool struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

var chatLimiters = &rateLimiterPool{
	limiters: make(map[string]*rate.Limiter),
}

func (p *rateLimiterPool) get(email string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	limiter, ok := p.limiters[email]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(time.Minute/chatRequestsPerMinute), chatBurst)
		p.limiters[email] = limiter
	}
	return limiter
}

// ChatRateLimit 聊天接口限流，超限返回429
func ChatRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		email := c.GetString("email")
		limiter := chatLimiters.get(email)

		reservation := limiter.Reserve()
		delay := reservation.Delay()
		if delay > 0 {
			reservation.Cancel()
			slog.Info("Chat rate limit exceeded", "user_email", email)
			c.Header("RateLimit-Limit", strconv.Itoa(chatRequestsPerMinute))
			c.Header("RateLimit-Remaining", "0")
			c.Header("RateLimit-Reset", strconv.Itoa(int(delay.Seconds())+1))
			c.AbortWithStatus(http.StatusTooManyRequests)
			return
		}

		c.Header("RateLimit-Limit", strconv.Itoa(chatRequestsPerMinute))
		c.Header("RateLimit-Remaining", strconv.Itoa(int(limiter.Tokens())))
		c.Next()
	}
}
