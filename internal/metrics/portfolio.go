package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	linkResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sharing",
			Name:      "link_resolutions_total",
			Help:      "分享链接访问结果计数。",
		},
		[]string{"outcome"},
	)

	shareDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sharing",
			Name:      "request_decisions_total",
			Help:      "教师处理分享请求的结果计数。",
		},
		[]string{"status"},
	)

	messagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "messages",
			Name:      "published_total",
			Help:      "推送到 Redis 的消息通知数量。",
		},
		[]string{"result"},
	)
)

// ObserveLinkResolution 记录一次分享链接访问，outcome 取 ok/not_found/expired/wrong_password/error 等。
func ObserveLinkResolution(outcome string) {
	linkResolutions.WithLabelValues(outcome).Inc()
}

func ObserveShareDecision(status string) {
	shareDecisions.WithLabelValues(status).Inc()
}

// ObserveNotification 记录一次消息推送，ok 为 false 表示发布失败。
func ObserveNotification(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	messagesPublished.WithLabelValues(result).Inc()
}
