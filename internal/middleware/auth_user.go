package middleware

import (
	"errors"

	"lottery-server/common/logger"
	"lottery-server/internal/auth"
	"lottery-server/internal/common/helper"
	"lottery-server/internal/common/response"

	beegocontext "github.com/beego/beego/v2/server/web/context"
	"go.uber.org/zap"
)

// UserAuthFilter 用户认证过滤器（JWT Token）
// 验证用户的 JWT Token，提取用户信息；演示模式已注入 user_id 时跳过
func UserAuthFilter(ctx *beegocontext.Context) {
	if ctx.Input.GetData("user_id") != nil {
		return
	}
	traceID := helper.GetTraceID(ctx)

	claims, err := auth.VerifyJWTToken(ctx.Request.Context(), ctx.Input.Header("Authorization"))
	if err != nil {
		logger.Warn("user authentication failed",
			zap.String("trace_id", traceID),
			zap.Error(err))

		// 根据错误类型返回不同的错误码
		switch {
		case errors.Is(err, auth.ErrMissingToken):
			response.Abort(ctx, 401, response.CodeUnauthorized, "缺少认证Token", traceID)
		case errors.Is(err, auth.ErrInvalidTokenFormat), errors.Is(err, auth.ErrInvalidToken):
			response.Abort(ctx, 401, response.CodeInvalidToken, "", traceID)
		case errors.Is(err, auth.ErrTokenExpired):
			response.Abort(ctx, 401, response.CodeTokenExpired, "", traceID)
		case errors.Is(err, auth.ErrTokenRevoked):
			response.Abort(ctx, 401, response.CodeTokenRevoked, "", traceID)
		default:
			response.Abort(ctx, 401, response.CodeUnauthorized, "认证失败", traceID)
		}
		return
	}

	// 将用户信息存入 context
	ctx.Input.SetData("user_id", claims.UserID)
	ctx.Input.SetData("user_phone", claims.Phone)
	ctx.Input.SetData("jwt_claims", claims)

	logger.Debug("user authentication successful",
		zap.String("trace_id", traceID),
		zap.Int64("user_id", claims.UserID))
}
