package api

import (
	"errors"

	"lottery-server/internal/common/response"
	"lottery-server/internal/service"
	"lottery-server/internal/store"

	beego "github.com/beego/beego/v2/server/web"
)

// Services 控制器依赖，启动时由 main 注入
type Services struct {
	Catalog service.CatalogService
	Credit  service.CreditService
	Ledger  service.LedgerService
	Draw    service.DrawService
	// Store 仅用于就绪探针
	Store store.Store
}

var svcs Services

// Register 注入业务服务
func Register(s Services) { svcs = s }

// writeError 业务错误到 HTTP 响应的统一映射
func writeError(c *beego.Controller, err error, traceID string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		response.BadRequest(c, err.Error(), traceID)
	case errors.Is(err, service.ErrCapacityExceeded):
		response.Conflict(c, response.CodeCapacityExceeded, traceID)
	case errors.Is(err, service.ErrPrizeNotFound):
		response.NotFound(c, "奖品不存在", traceID)
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, "用户不存在", traceID)
	case errors.Is(err, service.ErrInsufficientCredits):
		response.Conflict(c, response.CodeInsufficientCredits, traceID)
	case errors.Is(err, service.ErrDuplicateInFlight):
		response.Accepted(c, response.Message(response.CodeDuplicateInFlight), traceID)
	default:
		// ErrTransactionFailed / ErrStorage 及未知错误，细节只进日志
		response.InternalError(c, traceID)
	}
}
