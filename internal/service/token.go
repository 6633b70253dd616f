package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// SessionClaim 是 token 中保存会话 ID 的 claim 名称
const SessionClaim = "session_id"

// TokenService 负责签发和校验会话 token。
type TokenService struct {
	secret []byte        // 存储密钥的字节形式
	expiry time.Duration // token 过期时间
}

// NewTokenService 创建 TokenService 实例。
// expiryHours 非正时默认 24 小时。
func NewTokenService(secret string, expiryHours int) (*TokenService, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT secret key cannot be empty")
	}
	if expiryHours <= 0 {
		expiryHours = 24
	}
	return &TokenService{
		secret: []byte(secret),
		expiry: time.Duration(expiryHours) * time.Hour,
	}, nil
}

// Issue 为指定会话签发 HS256 token
func (s *TokenService) Issue(sessionID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		SessionClaim: sessionID,
		"exp":        now.Add(s.expiry).Unix(),
		"iat":        now.Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse 校验 token 并返回其中的会话 ID
func (s *TokenService) Parse(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		// 只接受 HMAC 签名
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}
	sessionID, ok := claims[SessionClaim].(string)
	if !ok || sessionID == "" {
		return "", fmt.Errorf("%w: missing %s claim", ErrInvalidToken, SessionClaim)
	}
	return sessionID, nil
}

// IsExpired 报告 Parse 返回的错误是否由过期引起
func IsExpired(err error) bool {
	var ve *jwt.ValidationError
	return errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorExpired != 0
}
