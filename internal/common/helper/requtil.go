package helper

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	beegocontext "github.com/beego/beego/v2/server/web/context"
	jsoniter "github.com/json-iterator/go"
)

// IsJSONContentType application/json 及 +json 变体
func IsJSONContentType(ct string) bool {
	return strings.Contains(strings.ToLower(ct), "json")
}

// 默认输入保护参数
const (
	defaultJSONMaxBytes int64         = 1 << 20 // 1MB
	defaultParseTimeout time.Duration = 1 * time.Second
)

type deadlineReader struct {
	r        io.Reader
	deadline time.Time
}

func (dr *deadlineReader) Read(p []byte) (int, error) {
	if time.Now().After(dr.deadline) {
		return 0, fmt.Errorf("read timeout")
	}
	return dr.r.Read(p)
}

// jsonBodyReader 在 JSON 分支下为请求体增加大小限制与解析超时保护
// 开启 CopyRequestBody 时请求体已被读入 Input.RequestBody
func jsonBodyReader(ctx *beegocontext.Context) io.Reader {
	var src io.Reader = ctx.Request.Body
	if len(ctx.Input.RequestBody) > 0 {
		src = bytes.NewReader(ctx.Input.RequestBody)
	}
	lr := io.LimitReader(src, defaultJSONMaxBytes)
	return &deadlineReader{r: lr, deadline: time.Now().Add(defaultParseTimeout)}
}

// GetTraceID RequestIDFilter 注入的 trace_id；未经过滤器时退回请求头
func GetTraceID(ctx *beegocontext.Context) string {
	if v, ok := ctx.Input.GetData("trace_id").(string); ok {
		return v
	}
	return strings.TrimSpace(ctx.Input.Header("X-Request-Id"))
}

// parseByContentType 按 Content-Type 选择解析函数，减少重复 if/else 分支
func parseByContentType[T any](ctx *beegocontext.Context,
	jsonParser func(io.Reader) (T, bool, string),
	formParser func(*beegocontext.Context) (T, bool, string),
) (T, bool, string) {
	ct := ctx.Input.Header("Content-Type")
	if IsJSONContentType(ct) {
		return jsonParser(jsonBodyReader(ctx))
	}
	return formParser(ctx)
}

func decodeJSON[T any](r io.Reader) (T, bool, string) {
	var out T
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.NewDecoder(r).Decode(&out); err != nil {
		return out, false, "invalid json body"
	}
	return out, true, ""
}

// -------- Prize helpers --------

// PrizeParsed 新增奖品入参
type PrizeParsed struct {
	Name        string `json:"name"`
	Probability *int   `json:"probability"`
}

func ParsePrizeFromForm(ctx *beegocontext.Context) (PrizeParsed, bool, string) {
	var out PrizeParsed
	out.Name = ctx.Input.Query("name")
	if s := strings.TrimSpace(ctx.Input.Query("probability")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return PrizeParsed{}, false, "probability must be integer"
		}
		out.Probability = &n
	}
	return out, true, ""
}

// ParseAndValidatePrize 只做格式校验；取值范围与总和约束由服务层判断
func ParseAndValidatePrize(ctx *beegocontext.Context) (PrizeParsed, bool, string) {
	out, ok, msg := parseByContentType(ctx, decodeJSON[PrizeParsed], ParsePrizeFromForm)
	if !ok {
		return PrizeParsed{}, false, msg
	}
	out.Name = strings.TrimSpace(out.Name)
	if out.Name == "" {
		return PrizeParsed{}, false, "name required"
	}
	if out.Probability == nil {
		return PrizeParsed{}, false, "probability required"
	}
	return out, true, ""
}

// ParseIDParam 解析路径参数中的正整数 id
func ParseIDParam(ctx *beegocontext.Context, key string) (int64, bool) {
	s := strings.TrimSpace(ctx.Input.Param(key))
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// -------- Credit helpers --------

// CreditParsed 发放抽奖次数入参
type CreditParsed struct {
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Amount int64  `json:"amount"`
}

func ParseCreditFromForm(ctx *beegocontext.Context) (CreditParsed, bool, string) {
	var out CreditParsed
	out.Name = ctx.Input.Query("name")
	out.Phone = ctx.Input.Query("phone")
	if s := strings.TrimSpace(ctx.Input.Query("amount")); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return CreditParsed{}, false, "amount must be integer"
		}
		out.Amount = n
	}
	return out, true, ""
}

func ParseAndValidateCredit(ctx *beegocontext.Context) (CreditParsed, bool, string) {
	out, ok, msg := parseByContentType(ctx, decodeJSON[CreditParsed], ParseCreditFromForm)
	if !ok {
		return CreditParsed{}, false, msg
	}
	out.Name = strings.TrimSpace(out.Name)
	out.Phone = strings.TrimSpace(out.Phone)
	if out.Name == "" || out.Phone == "" {
		return CreditParsed{}, false, "name and phone required"
	}
	if out.Amount < 1 {
		return CreditParsed{}, false, "amount must be >= 1"
	}
	return out, true, ""
}

// PhoneQuery 读取 ?phone= 参数
func PhoneQuery(ctx *beegocontext.Context) (string, bool) {
	p := strings.TrimSpace(ctx.Input.Query("phone"))
	return p, p != ""
}

// IdempotencyKey 读取 Idempotency-Key 头，超长视为无效
func IdempotencyKey(ctx *beegocontext.Context) (string, bool) {
	k := strings.TrimSpace(ctx.Input.Header("Idempotency-Key"))
	if len(k) > 64 {
		return "", false
	}
	return k, true
}
