package redis

import (
	"context"
	"errors"
	"time"

	"lottery-server/common/logger"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// 仅当锁值匹配时删除，防止误删其他请求的锁
var unlockScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// DrawIdempotency 抽奖 Idempotency-Key：SETNX 进行中锁 + 结果缓存
type DrawIdempotency struct {
	c goredis.UniversalClient
}

func NewDrawIdempotency(c goredis.UniversalClient) *DrawIdempotency {
	return &DrawIdempotency{c: c}
}

// TryLock 获取锁成功返回释放函数；已被占用返回 ok=false
func (d *DrawIdempotency) TryLock(ctx context.Context, userID int64, key string, ttl time.Duration) (func(), bool, error) {
	lockKey := DrawIdemLockKey(userID, key)
	lockValue := uuid.NewString()

	ok, err := d.c.SetNX(ctx, lockKey, lockValue, ttl).Result()
	if err != nil || !ok {
		return nil, false, err
	}
	unlock := func() {
		// 请求 ctx 可能已取消，释放锁使用独立的短超时
		c, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		res, err := unlockScript.Run(c, d.c, []string{lockKey}, lockValue).Int64()
		if err != nil {
			logger.WarnCtx(ctx, "[Redis] 释放进行中锁失败", zap.String("key", lockKey), zap.Error(err))
		} else if res == 0 {
			logger.WarnCtx(ctx, "[Redis] 进行中锁已过期或被其他请求释放", zap.String("key", lockKey))
		}
	}
	return unlock, true, nil
}

// LoadResult 读取已缓存的结果，未命中返回 nil, nil
func (d *DrawIdempotency) LoadResult(ctx context.Context, userID int64, key string) ([]byte, error) {
	bs, err := d.c.Get(ctx, DrawIdemResultKey(userID, key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	return bs, err
}

// SaveResult 缓存首次成功的结果
func (d *DrawIdempotency) SaveResult(ctx context.Context, userID int64, key string, body []byte, ttl time.Duration) error {
	return d.c.Set(ctx, DrawIdemResultKey(userID, key), body, ttl).Err()
}
