package api

import (
	helper "lottery-server/internal/common/helper"
	"lottery-server/internal/common/response"
	"lottery-server/internal/config"
	"lottery-server/internal/service"

	beego "github.com/beego/beego/v2/server/web"
)

const flagDrawPaused = "draw_paused"

type DrawController struct{ beego.Controller }

// Draw 抽奖：POST /api/draw
// 用户 ID 由认证过滤器注入；可选 Idempotency-Key 头用于吸收重复提交（重复时返回 202）
func (c *DrawController) Draw() {
	traceID := helper.GetTraceID(c.Ctx)
	// 运营开关（Nacos 热更新），暂停期间不扣次数
	if config.GetFeatureFlag(flagDrawPaused) {
		response.ErrorWithMessage(&c.Controller, 503, response.CodeBusinessError, "抽奖暂停中", traceID)
		return
	}
	userID, ok := c.Ctx.Input.GetData("user_id").(int64)
	if !ok || userID <= 0 {
		response.Error(&c.Controller, 401, response.CodeUnauthorized, traceID)
		return
	}
	key, ok := helper.IdempotencyKey(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, "Idempotency-Key too long", traceID)
		return
	}

	out, err := svcs.Draw.Draw(c.Ctx.Request.Context(), service.DrawInput{
		UserID:         userID,
		TraceID:        traceID,
		IdempotencyKey: key,
	})
	if err != nil {
		writeError(&c.Controller, err, traceID)
		return
	}
	response.Success(&c.Controller, out, traceID)
}
