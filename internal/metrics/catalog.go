package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	catalogOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lottery_catalog_ops_total",
			Help: "Prize catalog mutations by op and result",
		},
		[]string{"op", "result"},
	)

	catalogProbability = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lottery_catalog_probability_sum",
			Help: "Sum of configured prize probabilities after the last successful add",
		},
	)

	creditGrantTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lottery_credit_grants_total",
			Help: "Credit grants by result and whether the user was created",
		},
		[]string{"result", "created"},
	)

	creditGrantAmount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lottery_credit_granted_amount_total",
			Help: "Total number of credits granted",
		},
	)
)

// RecordCatalogOp op: "add" | "delete"; result: "success" | "capacity_exceeded" | "not_found" | "invalid" | "fail"
func RecordCatalogOp(op, result string) {
	catalogOpsTotal.WithLabelValues(op, result).Inc()
}

// SetCatalogProbability 更新当前概率总和
func SetCatalogProbability(sum int) {
	catalogProbability.Set(float64(sum))
}

// RecordCreditGrant 记录一次发放次数
func RecordCreditGrant(result string, created bool, amount int64) {
	c := "false"
	if created {
		c = "true"
	}
	creditGrantTotal.WithLabelValues(result, c).Inc()
	if result == "success" && amount > 0 {
		creditGrantAmount.Add(float64(amount))
	}
}
