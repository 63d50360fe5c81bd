package middleware

import (
	"runtime/debug"

	"lottery-server/common/logger"
	"lottery-server/internal/common/helper"
	"lottery-server/internal/common/response"

	"github.com/beego/beego/v2/server/web"
	beegocontext "github.com/beego/beego/v2/server/web/context"
	"go.uber.org/zap"
)

// RecoverPanic 作为 beego RecoverFunc 使用，捕获处理链中的 panic，防止进程崩溃
func RecoverPanic(ctx *beegocontext.Context, _ *web.Config) {
	if err := recover(); err != nil {
		if err == web.ErrAbort {
			return
		}
		traceID := helper.GetTraceID(ctx)

		// 记录 panic 信息和堆栈
		logger.Error("panic recovered",
			zap.String("trace_id", traceID),
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.Request.URL.Path),
			zap.Any("error", err),
			zap.String("stack", string(debug.Stack())))

		if ctx.ResponseWriter.Started {
			return
		}
		response.Abort(ctx, 500, response.CodeSystemError, "", traceID)
	}
}
