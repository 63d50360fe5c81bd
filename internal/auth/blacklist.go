package auth

import (
	"context"
	"time"

	"lottery-server/common/logger"
	infrds "lottery-server/internal/infra/redis"

	"go.uber.org/zap"
)

// RevokeToken 令牌加入黑名单直到 expiresAt；Redis 未初始化时忽略
func RevokeToken(ctx context.Context, token string, expiresAt time.Time) error {
	rdb := infrds.Client()
	if rdb == nil {
		logger.Warn("redis not available, cannot revoke token")
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := rdb.SetEx(ctx, infrds.TokenBlacklistKey(token), "1", ttl).Err(); err != nil {
		logger.Warn("failed to add token to blacklist", zap.Error(err))
		return err
	}
	logger.Info("token revoked", zap.Duration("ttl", ttl))
	return nil
}

// IsTokenBlacklisted Redis 不可用或出错时按未撤销处理
func IsTokenBlacklisted(ctx context.Context, token string) bool {
	rdb := infrds.Client()
	if rdb == nil {
		return false
	}
	n, err := rdb.Exists(ctx, infrds.TokenBlacklistKey(token)).Result()
	if err != nil {
		logger.Warn("failed to check token blacklist", zap.Error(err))
		return false
	}
	return n > 0
}
