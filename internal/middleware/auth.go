package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"

	"github.com/abdulaziz-backend/pixelpainter/internal/service"
)

// SessionIDKey 是 Auth 中间件写入 gin.Context 的键
const SessionIDKey = "session_id"

// ErrMissingToken 表示请求中既没有 Authorization 头也没有 token 查询参数
var ErrMissingToken = errors.New("missing session token")

// Auth 返回一个 Gin 中间件，用于验证会话 token，并把 session_id 写入上下文。
func Auth(tokens *service.TokenService) gin.HandlerFunc {
	if tokens == nil {
		panic("TokenService cannot be nil for Auth middleware")
	}

	return func(c *gin.Context) {
		// 1. 提取 Token
		tokenStr, err := extractToken(c)
		if err != nil {
			if errors.Is(err, ErrMissingToken) {
				logrus.Warn("Auth middleware: Missing session token")
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Session token is required"})
			} else {
				logrus.Warnf("Auth middleware: Malformed token format: %v", err)
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token format"})
			}
			c.Abort()
			return
		}

		// 2. 验证 Token
		sessionID, err := tokens.Parse(tokenStr)
		if err != nil {
			logCtx := logrus.WithError(err)
			logCtx.Warn("Auth middleware: Invalid token")
			if service.IsExpired(err) {
				logCtx.Warn("Reason: Token is expired")
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(SessionIDKey, sessionID)
		logrus.WithField("session_id", sessionID).Debug("Auth middleware: Session authenticated")

		c.Next()
	}
}

// extractToken 从 "Authorization: Bearer <token>" 中提取 token。
// 浏览器的 WebSocket 无法设置请求头，因此也接受 ?token= 查询参数。
func extractToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if token := c.Query("token"); token != "" {
			return token, nil
		}
		return "", ErrMissingToken
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", jwt.ErrTokenMalformed
	}
	return parts[1], nil
}
