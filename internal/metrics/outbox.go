package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var outboxPublishTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "lottery_outbox_publish_total",
		Help: "Outbox messages handed to the broker by topic and result",
	},
	[]string{"topic", "result"},
)

// RecordOutboxPublish result: "sent" | "failed"
func RecordOutboxPublish(topic, result string) {
	outboxPublishTotal.WithLabelValues(topic, result).Inc()
}
