package redis

import "strconv"

// Redis Key 定义与构造器
// 统一管理业务使用的 Redis Key，避免散落的魔法字符串，便于统一维护与变更。

const (
	// PrefixDrawIdemLock：抽奖幂等“进行中锁”Key 的前缀。
	// 作用：使用 SETNX + TTL 标记 Idempotency-Key 正在处理，吸收瞬时重复提交。
	PrefixDrawIdemLock = "draw:idem:lock:"

	// PrefixDrawIdemResult：抽奖幂等“结果缓存”Key 的前缀。
	// 作用：缓存某个 Idempotency-Key 第一次成功的抽奖结果（DrawOutput JSON），重放直接返回，不再扣次数。
	PrefixDrawIdemResult = "draw:idem:result:"

	// PrefixRateLimit：滑动窗口限流 Sorted Set 的前缀，形如 ratelimit:{dimension}:{key}
	PrefixRateLimit = "ratelimit:"

	// PrefixTokenBlacklist：已撤销 JWT 的黑名单前缀，TTL 与 Token 剩余有效期一致
	PrefixTokenBlacklist = "token:blacklist:"
)

// Idempotency-Key 由客户端生成，按用户隔离，不同用户使用相同 key 互不影响
func idemScope(userID int64, k string) string {
	return strconv.FormatInt(userID, 10) + ":" + k
}

// DrawIdemLockKey：形如 draw:idem:lock:{user_id}:{idempotency_key}
func DrawIdemLockKey(userID int64, k string) string { return PrefixDrawIdemLock + idemScope(userID, k) }

// DrawIdemResultKey：形如 draw:idem:result:{user_id}:{idempotency_key}
func DrawIdemResultKey(userID int64, k string) string {
	return PrefixDrawIdemResult + idemScope(userID, k)
}

// RateLimitKey：形如 ratelimit:ip:127.0.0.1
func RateLimitKey(dimension, key string) string { return PrefixRateLimit + dimension + ":" + key }

// TokenBlacklistKey：形如 token:blacklist:{token}
func TokenBlacklistKey(token string) string { return PrefixTokenBlacklist + token }
