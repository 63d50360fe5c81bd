package api

import (
	helper "lottery-server/internal/common/helper"
	"lottery-server/internal/common/response"
	"lottery-server/internal/lottery"

	beego "github.com/beego/beego/v2/server/web"
)

type PrizeController struct{ beego.Controller }

// List 奖品列表及区间布局：GET /api/prizes
func (c *PrizeController) List() {
	traceID := helper.GetTraceID(c.Ctx)
	list, err := svcs.Catalog.ListPrizes(c.Ctx.Request.Context())
	if err != nil {
		writeError(&c.Controller, err, traceID)
		return
	}

	prizes := make([]lottery.Prize, 0, len(list))
	total := 0
	for _, p := range list {
		prizes = append(prizes, lottery.Prize{ID: p.ID, Name: p.Name, Probability: p.Probability})
		total += p.Probability
	}
	response.Success(&c.Controller, map[string]interface{}{
		"prizes":            list,
		"sections":          lottery.Sections(prizes),
		"total_probability": total,
	}, traceID)
}

// Add 新增奖品：POST /api/admin/prizes
func (c *PrizeController) Add() {
	traceID := helper.GetTraceID(c.Ctx)
	pp, ok, msg := helper.ParseAndValidatePrize(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, traceID)
		return
	}
	p, err := svcs.Catalog.AddPrize(c.Ctx.Request.Context(), pp.Name, *pp.Probability)
	if err != nil {
		writeError(&c.Controller, err, traceID)
		return
	}
	response.Success(&c.Controller, p, traceID)
}

// Delete 删除奖品：DELETE /api/admin/prizes/:id
func (c *PrizeController) Delete() {
	traceID := helper.GetTraceID(c.Ctx)
	id, ok := helper.ParseIDParam(c.Ctx, ":id")
	if !ok {
		response.BadRequest(&c.Controller, "invalid prize id", traceID)
		return
	}
	if err := svcs.Catalog.DeletePrize(c.Ctx.Request.Context(), id); err != nil {
		writeError(&c.Controller, err, traceID)
		return
	}
	response.Success(&c.Controller, map[string]interface{}{"id": id}, traceID)
}
