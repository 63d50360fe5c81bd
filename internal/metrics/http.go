package metrics

import (
	"strconv"
	"time"

	"github.com/beego/beego/v2/server/web/context"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const startKey = "_metrics_start"

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lottery_http_requests_total",
		Help: "HTTP requests by route pattern, method and status",
	}, []string{"path", "method", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lottery_http_request_duration_ms",
		Help:    "HTTP request latency in milliseconds",
		Buckets: prometheus.ExponentialBuckets(5, 2, 10),
	}, []string{"path", "method"})
)

// HTTPMetricsFilter 记录请求开始时间
func HTTPMetricsFilter(ctx *context.Context) {
	ctx.Input.SetData(startKey, time.Now())
}

// HTTPMetricsAfter 输出完成后记录耗时与状态码，需以 WithReturnOnOutput(false) 注册
func HTTPMetricsAfter(ctx *context.Context) {
	start, ok := ctx.Input.GetData(startKey).(time.Time)
	if !ok {
		return
	}
	path, method := routePattern(ctx), ctx.Input.Method()
	status := ctx.ResponseWriter.Status
	if status == 0 {
		status = 200
	}
	httpLatency.WithLabelValues(path, method).Observe(float64(time.Since(start).Milliseconds()))
	httpRequests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
}

// 用路由模式做标签，/api/admin/prizes/:id 不随 id 膨胀
func routePattern(ctx *context.Context) string {
	if v, ok := ctx.Input.GetData("RouterPattern").(string); ok && v != "" {
		return v
	}
	return ctx.Input.URL()
}
