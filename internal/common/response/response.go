package response

import (
	"net/http"
	"time"

	beego "github.com/beego/beego/v2/server/web"
	"github.com/beego/beego/v2/server/web/context"
)

// APIResponse 统一响应体
type APIResponse struct {
	Code      int         `json:"code"` // 0=成功
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	TraceID   string      `json:"trace_id,omitempty"`
	Timestamp int64       `json:"timestamp,omitempty"` // Unix 毫秒
}

// 业务错误码
const (
	CodeSuccess             = 0
	CodeBadRequest          = 1000
	CodeBusinessError       = 2000 // 通用业务错误，抽奖暂停也用它
	CodeDuplicateInFlight   = 2001
	CodeInsufficientCredits = 2007
	CodeCapacityExceeded    = 2010 // 概率总和超过 100
	CodeUnauthorized        = 3000
	CodeInvalidToken        = 3001
	CodeTokenExpired        = 3002
	CodeTokenRevoked        = 3003
	CodeForbidden           = 3009
	CodeRateLimitExceeded   = 4000
	CodeNotFound            = 4004
	CodeSystemError         = 5000
)

var messages = map[int]string{
	CodeSuccess:             "success",
	CodeBadRequest:          "参数错误",
	CodeBusinessError:       "业务处理失败",
	CodeDuplicateInFlight:   "重复请求进行中，请稍后重试",
	CodeInsufficientCredits: "抽奖次数不足",
	CodeCapacityExceeded:    "奖品概率总和不能超过 100",
	CodeUnauthorized:        "未授权",
	CodeInvalidToken:        "Token无效",
	CodeTokenExpired:        "Token已过期",
	CodeTokenRevoked:        "Token已撤销",
	CodeForbidden:           "禁止访问",
	CodeRateLimitExceeded:   "请求频率超限，请稍后重试",
	CodeNotFound:            "资源不存在",
	CodeSystemError:         "系统繁忙，请稍后重试",
}

// Message 错误码对应的默认文案
func Message(code int) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return "未知错误"
}

func body(code int, message string, data interface{}, traceID string) APIResponse {
	if message == "" {
		message = Message(code)
	}
	return APIResponse{
		Code:      code,
		Message:   message,
		Data:      data,
		TraceID:   traceID,
		Timestamp: time.Now().UnixMilli(),
	}
}

func write(c *beego.Controller, status int, resp APIResponse) {
	c.Ctx.Output.SetStatus(status)
	c.Data["json"] = resp
	c.ServeJSON()
}

func Success(c *beego.Controller, data interface{}, traceID string) {
	write(c, http.StatusOK, body(CodeSuccess, "", data, traceID))
}

// Error 使用错误码默认文案
func Error(c *beego.Controller, httpStatus int, code int, traceID string) {
	write(c, httpStatus, body(code, "", nil, traceID))
}

func ErrorWithMessage(c *beego.Controller, httpStatus int, code int, message string, traceID string) {
	write(c, httpStatus, body(code, message, nil, traceID))
}

func BadRequest(c *beego.Controller, message string, traceID string) {
	ErrorWithMessage(c, http.StatusBadRequest, CodeBadRequest, message, traceID)
}

func Conflict(c *beego.Controller, code int, traceID string) {
	Error(c, http.StatusConflict, code, traceID)
}

func NotFound(c *beego.Controller, message string, traceID string) {
	ErrorWithMessage(c, http.StatusNotFound, CodeNotFound, message, traceID)
}

// InternalError 不向客户端暴露内部错误详情，细节只进日志
func InternalError(c *beego.Controller, traceID string) {
	Error(c, http.StatusInternalServerError, CodeSystemError, traceID)
}

// Accepted 同一幂等键的请求仍在处理中
func Accepted(c *beego.Controller, message string, traceID string) {
	c.Ctx.Output.Header("Retry-After", "1")
	write(c, http.StatusAccepted, body(CodeDuplicateInFlight, message, nil, traceID))
}

// Abort 过滤器中没有 Controller 时直接输出
func Abort(ctx *context.Context, httpStatus int, code int, message string, traceID string) {
	ctx.Output.SetStatus(httpStatus)
	_ = ctx.Output.JSON(body(code, message, nil, traceID), false, false)
}
