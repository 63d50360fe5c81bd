package logger

import "context"

type traceKey struct{}

// WithTraceID 把请求 ID 带进 context，日志通过 Ctx 系列函数取出
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceKey{}, traceID)
}

func GetTraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}
