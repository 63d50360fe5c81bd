package api

import (
	helper "lottery-server/internal/common/helper"
	"lottery-server/internal/common/response"
	"lottery-server/internal/service"

	beego "github.com/beego/beego/v2/server/web"
)

type CreditController struct{ beego.Controller }

// Grant 按手机号发放抽奖次数，用户不存在时创建：POST /api/admin/credits
func (c *CreditController) Grant() {
	traceID := helper.GetTraceID(c.Ctx)
	cp, ok, msg := helper.ParseAndValidateCredit(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, traceID)
		return
	}
	out, err := svcs.Credit.GrantCredits(c.Ctx.Request.Context(), service.GrantInput{
		Name:    cp.Name,
		Phone:   cp.Phone,
		Amount:  cp.Amount,
		TraceID: traceID,
	})
	if err != nil {
		writeError(&c.Controller, err, traceID)
		return
	}
	response.Success(&c.Controller, out, traceID)
}

// Get 查询剩余次数：GET /api/credits?phone=
func (c *CreditController) Get() {
	traceID := helper.GetTraceID(c.Ctx)
	phone, ok := helper.PhoneQuery(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, "phone required", traceID)
		return
	}
	u, err := svcs.Credit.GetCredits(c.Ctx.Request.Context(), phone)
	if err != nil {
		writeError(&c.Controller, err, traceID)
		return
	}
	response.Success(&c.Controller, u, traceID)
}
