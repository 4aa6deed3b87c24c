package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/metrics_go_server/internal/pkg/jwt"
	"github.com/qs3c/metrics_go_server/internal/pkg/response"
)

const (
	UserIDKey = "userID"
)

// Auth JWT 认证中间件
func Auth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.AuthError(c, "请提供认证信息")
			return
		}

		tokenString, ok := bearerToken(authHeader)
		if !ok {
			response.AuthError(c, "认证格式错误")
			return
		}

		claims, err := jwt.ParseToken(tokenString, jwtSecret)
		if err != nil {
			if err == jwt.ErrExpiredToken {
				response.AuthError(c, "登录已过期")
				return
			}
			response.AuthError(c, "认证失败")
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	token := strings.TrimPrefix(header, "Bearer ")
	if token == header || strings.TrimSpace(token) == "" {
		return "", false
	}
	return token, true
}

// GetUserID 从上下文获取用户 ID
func GetUserID(c *gin.Context) (int64, bool) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := userID.(int64)
	return id, ok
}
