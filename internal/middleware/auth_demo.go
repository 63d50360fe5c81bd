package middleware

import (
	"strconv"
	"strings"

	"lottery-server/common/logger"
	"lottery-server/internal/common/helper"
	"lottery-server/internal/config"

	beegocontext "github.com/beego/beego/v2/server/web/context"
	"go.uber.org/zap"
)

// DemoAuthFilter 演示模式：X-User-Id 头直接作为当前用户，未携带时交给 JWT 认证
func DemoAuthFilter(ctx *beegocontext.Context) {
	cfg := config.GetCurrent()
	if cfg == nil || !cfg.Auth.DemoMode {
		return
	}
	raw := strings.TrimSpace(ctx.Input.Header("X-User-Id"))
	if raw == "" {
		return
	}
	uid, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || uid <= 0 {
		return
	}

	ctx.Input.SetData("user_id", uid)
	ctx.Input.SetData("demo_mode", true)

	logger.Debug("demo mode authentication",
		zap.String("trace_id", helper.GetTraceID(ctx)),
		zap.Int64("user_id", uid))
}
