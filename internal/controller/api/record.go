package api

import (
	"time"

	helper "lottery-server/internal/common/helper"
	"lottery-server/internal/common/response"

	beego "github.com/beego/beego/v2/server/web"
)

type RecordController struct{ beego.Controller }

type recordView struct {
	ID        int64     `json:"id"`
	PrizeID   int64     `json:"prize_id"`
	PrizeName string    `json:"prize_name"`
	UserName  string    `json:"user_name"`
	UserPhone string    `json:"user_phone"`
	CreatedAt time.Time `json:"created_at"`
}

// List 按手机号查询抽奖记录（最新在前）：GET /api/records?phone=
func (c *RecordController) List() {
	traceID := helper.GetTraceID(c.Ctx)
	phone, ok := helper.PhoneQuery(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, "phone required", traceID)
		return
	}
	list, err := svcs.Ledger.ListWinRecords(c.Ctx.Request.Context(), phone)
	if err != nil {
		writeError(&c.Controller, err, traceID)
		return
	}
	out := make([]recordView, 0, len(list))
	for _, r := range list {
		out = append(out, recordView{
			ID:        r.ID,
			PrizeID:   r.PrizeID,
			PrizeName: r.PrizeName,
			UserName:  r.UserName,
			UserPhone: r.UserPhone,
			CreatedAt: time.UnixMilli(r.CreatedAt),
		})
	}
	response.Success(&c.Controller, out, traceID)
}
