package middleware

import (
	"crypto/subtle"
	"errors"

	"lottery-server/common/logger"
	"lottery-server/internal/auth"
	"lottery-server/internal/common/helper"
	"lottery-server/internal/common/response"
	"lottery-server/internal/config"

	beegocontext "github.com/beego/beego/v2/server/web/context"
	"go.uber.org/zap"
)

// AdminAuthFilter 管理员认证过滤器（简单Token）
// 用于保护奖品维护与次数发放接口
func AdminAuthFilter(ctx *beegocontext.Context) {
	cfg := config.GetCurrent()
	traceID := helper.GetTraceID(ctx)

	if cfg == nil {
		response.Abort(ctx, 500, response.CodeSystemError, "", traceID)
		return
	}
	// 未启用管理员认证：仅演示模式放行
	if !cfg.Auth.Admin.Enabled {
		if cfg.Auth.DemoMode {
			logger.Debug("admin auth disabled in demo mode, skip", zap.String("trace_id", traceID))
			return
		}
		response.Abort(ctx, 403, response.CodeForbidden, "管理接口未启用", traceID)
		return
	}

	token, err := auth.BearerToken(ctx.Input.Header("Authorization"))
	if err != nil {
		logger.Warn("admin token rejected", zap.String("trace_id", traceID), zap.Error(err))
		msg := "无效的认证格式"
		if errors.Is(err, auth.ErrMissingToken) {
			msg = "缺少管理员认证信息"
		}
		response.Abort(ctx, 401, response.CodeUnauthorized, msg, traceID)
		return
	}

	if cfg.Auth.Admin.Token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(cfg.Auth.Admin.Token)) != 1 {
		logger.Warn("invalid admin token",
			zap.String("trace_id", traceID),
			zap.String("token_prefix", token[:min(len(token), 4)]+"..."))
		response.Abort(ctx, 401, response.CodeUnauthorized, "无效的管理员Token", traceID)
		return
	}

	// 标记为管理员请求
	ctx.Input.SetData("is_admin", true)

	logger.Debug("admin authentication successful", zap.String("trace_id", traceID))
}
