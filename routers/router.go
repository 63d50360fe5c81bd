package routers

import (
	"lottery-server/internal/config"
	"lottery-server/internal/controller/api"
	"lottery-server/internal/metrics"
	"lottery-server/internal/middleware"

	"github.com/beego/beego/v2/server/web"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Init 注册HTTP路由与全局过滤器
// 认证、限流、CORS 过滤器在请求时读取当前配置，Nacos 热更新后立即生效；这里只决定是否挂载
func Init(cfg *config.Config) {
	// Panic Recovery（捕获处理链中的所有 panic）
	web.BConfig.RecoverPanic = true
	web.BConfig.RecoverFunc = middleware.RecoverPanic
	web.BConfig.CopyRequestBody = true

	// 全局过滤器（按执行顺序）
	// 1. 请求ID注入
	web.InsertFilter("/*", web.BeforeRouter, middleware.RequestIDFilter)

	// 2. CORS 处理
	if cfg.CORS.Enabled {
		web.InsertFilter("/*", web.BeforeRouter, middleware.CORSFilter)
	}

	// 3. HTTP 指标收集
	web.InsertFilter("/*", web.BeforeExec, metrics.HTTPMetricsFilter)
	web.InsertFilter("/*", web.FinishRouter, metrics.HTTPMetricsAfter, web.WithReturnOnOutput(false))

	// 健康检查与指标（无需认证）
	web.Router("/healthz", &api.HealthController{}, "get:Healthz")
	web.Router("/readyz", &api.HealthController{}, "get:Readyz")
	web.Handler("/metrics", promhttp.Handler())

	// ========== 公共查询 ==========
	web.Router("/api/prizes", &api.PrizeController{}, "get:List")
	web.Router("/api/credits", &api.CreditController{}, "get:Get")
	web.Router("/api/records", &api.RecordController{}, "get:List")

	// ========== 抽奖（用户认证 + 限流） ==========
	// 演示模式下 X-User-Id 头优先，JWT 认证发现已注入 user_id 时跳过
	web.InsertFilter("/api/draw", web.BeforeExec, middleware.DemoAuthFilter)
	web.InsertFilter("/api/draw", web.BeforeExec, middleware.UserAuthFilter)
	if cfg.RateLimit.Enabled {
		web.InsertFilter("/api/draw", web.BeforeExec, middleware.RateLimitFilter)
	}
	web.Router("/api/draw", &api.DrawController{}, "post:Draw")

	// ========== 管理 API（需要管理员认证） ==========
	web.InsertFilter("/api/admin/*", web.BeforeExec, middleware.AdminAuthFilter)
	web.Router("/api/admin/prizes", &api.PrizeController{}, "post:Add")
	web.Router("/api/admin/prizes/:id", &api.PrizeController{}, "delete:Delete")
	web.Router("/api/admin/credits", &api.CreditController{}, "post:Grant")
}
