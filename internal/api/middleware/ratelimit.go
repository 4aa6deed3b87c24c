package middleware

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/qs3c/metrics_go_server/config"
	"github.com/qs3c/metrics_go_server/internal/pkg/logger"
	"github.com/qs3c/metrics_go_server/internal/pkg/ratelimit"
	"github.com/qs3c/metrics_go_server/internal/pkg/response"
)

// Limiter 限流器接口
type Limiter interface {
	Allow(ctx context.Context, subjects []string, rules []ratelimit.Rule) (*ratelimit.Decision, error)
}

// Rules 由配置生成突发与小时两个窗口
func Rules(cfg config.RateLimitConfig) []ratelimit.Rule {
	return []ratelimit.Rule{
		{Name: "burst", Limit: cfg.BurstLimit, Window: cfg.BurstWindow},
		{Name: "hourly", Limit: cfg.HourlyLimit, Window: cfg.HourlyWindow},
	}
}

// RateLimit 按用户和来源 IP 同时限流，须放在 Auth 之后。
// 限流器不可用时拒绝请求。
func RateLimit(limiter Limiter, rules []ratelimit.Rule, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			response.AuthError(c, "")
			return
		}

		subjects := []string{
			fmt.Sprintf("user:%d", userID),
			"ip:" + c.ClientIP(),
		}
		decision, err := limiter.Allow(c.Request.Context(), subjects, rules)
		if err != nil {
			log.Error("rate limit check failed", logger.UserID(userID), zap.Error(err))
			response.ServerError(c, "限流检查失败")
			return
		}

		if !decision.Allowed {
			log.Info("rate limited",
				logger.UserID(userID),
				zap.String("key", decision.Key),
				zap.Duration("retry_after", decision.RetryAfter),
			)
			response.RateLimitError(c, decision.RetryAfter, "")
			return
		}

		c.Next()
	}
}
