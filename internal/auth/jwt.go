package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"lottery-server/common/logger"
	"lottery-server/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const tokenTypeAccess = "access"

// JWTClaims 用户访问令牌，UserID 对应 users.id
type JWTClaims struct {
	UserID    int64  `json:"user_id"`
	Phone     string `json:"phone"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// GenerateAccessToken 按当前配置签发 HS256 访问令牌
func GenerateAccessToken(userID int64, phone string) (string, error) {
	cfg := config.GetCurrent()
	if cfg == nil {
		return "", ErrConfigNotLoaded
	}
	ttl := time.Duration(cfg.Auth.JWT.AccessTokenTTL) * time.Second
	return signAccessToken(cfg.Auth.JWT.Secret, cfg.Auth.JWT.Issuer, ttl, userID, phone, time.Now())
}

func signAccessToken(secret, issuer string, ttl time.Duration, userID int64, phone string, now time.Time) (string, error) {
	iat := jwt.NewNumericDate(now)
	claims := &JWTClaims{
		UserID:    userID,
		Phone:     phone,
		TokenType: tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  iat,
			NotBefore: iat,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// BearerToken 解析 "Bearer <token>"
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || scheme != "Bearer" || token == "" || strings.Contains(token, " ") {
		return "", ErrInvalidTokenFormat
	}
	return token, nil
}

// VerifyJWTToken 校验签名、过期时间与黑名单
func VerifyJWTToken(ctx context.Context, authHeader string) (*JWTClaims, error) {
	raw, err := BearerToken(authHeader)
	if err != nil {
		return nil, err
	}
	cfg := config.GetCurrent()
	if cfg == nil {
		return nil, ErrConfigNotLoaded
	}
	claims, err := parseToken(raw, cfg.Auth.JWT.Secret)
	if err != nil {
		return nil, err
	}
	if IsTokenBlacklisted(ctx, raw) {
		logger.Warn("token is blacklisted", zap.Int64("user_id", claims.UserID))
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

func parseToken(raw, secret string) (*JWTClaims, error) {
	claims := &JWTClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case err != nil:
		logger.Debug("jwt parse failed", zap.Error(err))
		return nil, ErrInvalidToken
	}
	if claims.TokenType != tokenTypeAccess || claims.UserID <= 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
