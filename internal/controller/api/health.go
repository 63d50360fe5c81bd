package api

import (
	"context"
	"time"

	"lottery-server/common/logger"
	infrds "lottery-server/internal/infra/redis"

	beego "github.com/beego/beego/v2/server/web"
	"go.uber.org/zap"
)

// HealthController 提供健康检查端点：/healthz 与 /readyz
type HealthController struct{ beego.Controller }

// Healthz 存活探针：仅返回进程存活
func (c *HealthController) Healthz() {
	c.Ctx.Output.SetStatus(200)
	_ = c.Ctx.Output.Body([]byte("ok"))
}

// Readyz 就绪探针：存储与 Redis（若启用）均可用才返回 200
func (c *HealthController) Readyz() {
	ctx, cancel := context.WithTimeout(c.Ctx.Request.Context(), 2*time.Second)
	defer cancel()

	if svcs.Store != nil {
		if err := svcs.Store.Ping(ctx); err != nil {
			logger.Warn("readyz: store ping failed", zap.Error(err))
			c.notReady("store unavailable")
			return
		}
	}
	if err := infrds.Ping(ctx, time.Second); err != nil {
		logger.Warn("readyz: redis ping failed", zap.Error(err))
		c.notReady("redis unavailable")
		return
	}
	c.Ctx.Output.SetStatus(200)
	_ = c.Ctx.Output.Body([]byte("ready"))
}

func (c *HealthController) notReady(msg string) {
	c.Ctx.Output.SetStatus(503)
	_ = c.Ctx.Output.Body([]byte(msg))
}
