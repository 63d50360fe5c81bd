package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	drawTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lottery_draw_requests_total",
			Help: "Total draw requests by result and outcome",
		},
		[]string{"result", "outcome"},
	)

	drawDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lottery_draw_duration_ms",
			Help:    "Draw transaction duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		},
		[]string{"result"},
	)

	drawStateTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lottery_draw_state_total",
			Help: "Draws by terminal state (committed / rolled_back)",
		},
		[]string{"state"},
	)

	drawPrizeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lottery_draw_prize_total",
			Help: "Committed draws by prize id (0 = no win)",
		},
		[]string{"prize_id"},
	)
)

// RecordDraw 记录一次抽奖
// result: "success" | "insufficient" | "duplicate" | "replay" | "fail"
// outcome: "win" | "lose" | "none"
func RecordDraw(result, outcome string, started time.Time) {
	res := strings.ToLower(strings.TrimSpace(result))
	switch res {
	case "success", "insufficient", "duplicate", "replay":
	default:
		res = "fail"
	}
	oc := strings.ToLower(strings.TrimSpace(outcome))
	if oc == "" {
		oc = "none"
	}
	drawTotal.WithLabelValues(res, oc).Inc()
	drawDuration.WithLabelValues(res).Observe(float64(time.Since(started).Milliseconds()))
}

// RecordDrawState 记录进入状态机的抽奖最终停在哪个状态
func RecordDrawState(state string) {
	drawStateTotal.WithLabelValues(state).Inc()
}

// RecordPrize 记录已提交抽奖的奖品分布
func RecordPrize(prizeID int64) {
	drawPrizeTotal.WithLabelValues(strconv.Itoa(int(prizeID))).Inc()
}
