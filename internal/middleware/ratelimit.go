package middleware

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"lottery-server/common/logger"
	"lottery-server/internal/common/helper"
	"lottery-server/internal/common/response"
	"lottery-server/internal/config"
	infrds "lottery-server/internal/infra/redis"

	beegocontext "github.com/beego/beego/v2/server/web/context"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// rateRule 一个限流维度：span 内最多 limit 次
type rateRule struct {
	dimension string
	subject   string
	limit     int
	span      time.Duration
}

// RateLimitFilter 按 IP、按用户滑动窗口限流；按用户需挂在认证过滤器之后
// Redis 不可用时放行
func RateLimitFilter(ctx *beegocontext.Context) {
	cfg := config.GetCurrent()
	if cfg == nil || !cfg.RateLimit.Enabled {
		return
	}
	traceID := helper.GetTraceID(ctx)
	rdb := infrds.Client()
	if rdb == nil {
		logger.Warn("redis not available, skip rate limit", zap.String("trace_id", traceID))
		return
	}

	for _, r := range rulesFor(ctx, cfg) {
		if allow(ctx.Request.Context(), rdb, r) {
			continue
		}
		logger.Warn("rate limit exceeded",
			zap.String("trace_id", traceID),
			zap.String("dimension", r.dimension),
			zap.String("subject", r.subject))
		response.Abort(ctx, 429, response.CodeRateLimitExceeded, "", traceID)
		return
	}
}

func rulesFor(ctx *beegocontext.Context, cfg *config.Config) []rateRule {
	var rules []rateRule
	if rl := cfg.RateLimit.ByIP; rl.RequestsPerSecond > 0 {
		rules = append(rules, rateRule{
			dimension: "ip",
			subject:   getClientIP(ctx),
			limit:     limitFor(rl.RequestsPerSecond, rl.WindowSeconds),
			span:      time.Duration(windowOrDefault(rl.WindowSeconds)) * time.Second,
		})
	}
	if rl := cfg.RateLimit.ByUser; rl.RequestsPerSecond > 0 {
		if uid, ok := ctx.Input.GetData("user_id").(int64); ok {
			rules = append(rules, rateRule{
				dimension: "user",
				subject:   strconv.FormatInt(uid, 10),
				limit:     limitFor(rl.RequestsPerSecond, rl.WindowSeconds),
				span:      time.Duration(windowOrDefault(rl.WindowSeconds)) * time.Second,
			})
		}
	}
	return rules
}

func windowOrDefault(windowSeconds int) int {
	if windowSeconds <= 0 {
		return 1
	}
	return windowSeconds
}

// limitFor 窗口内允许的请求数 = 每秒请求数 × 窗口秒数
func limitFor(rps, windowSeconds int) int {
	return rps * windowOrDefault(windowSeconds)
}

// allow 用 sorted set 记录窗口内的请求时间戳；Redis 出错时放行
func allow(ctx context.Context, rdb redis.Cmdable, r rateRule) bool {
	key := infrds.RateLimitKey(r.dimension, r.subject)
	now := time.Now()
	from := strconv.FormatInt(now.Add(-r.span).UnixMilli(), 10)

	var count *redis.IntCmd
	_, err := rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.ZRemRangeByScore(ctx, key, "0", from)
		count = p.ZCount(ctx, key, from, "+inf")
		p.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixMilli()), Member: uuid.NewString()})
		p.Expire(ctx, key, r.span+10*time.Second)
		return nil
	})
	if err != nil {
		logger.Warn("rate limit check failed", zap.String("key", key), zap.Error(err))
		return true
	}
	return count.Val() < int64(r.limit)
}

// getClientIP X-Real-IP > X-Forwarded-For 第一跳 > RemoteAddr
func getClientIP(ctx *beegocontext.Context) string {
	if ip := strings.TrimSpace(ctx.Input.Header("X-Real-IP")); ip != "" {
		return ip
	}
	if xff := ctx.Input.Header("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(ctx.Request.RemoteAddr); err == nil {
		return host
	}
	return ctx.Request.RemoteAddr
}
