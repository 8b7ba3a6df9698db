package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ExchangesTotal 对话交互次数，按结果区分
	ExchangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "creditlens",
			Subsystem: "chat",
			Name:      "exchanges_total",
			Help:      "Total chat exchanges by outcome",
		},
		[]string{"outcome"},
	)

	// FragmentsTotal 已应用的流式片段数
	FragmentsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "creditlens",
			Subsystem: "chat",
			Name:      "fragments_total",
			Help:      "Streamed fragments applied to assistant turns",
		},
	)

	// StaleEventsTotal 被丢弃的过期事件
	StaleEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "creditlens",
			Subsystem: "chat",
			Name:      "stale_events_total",
			Help:      "Stream events dropped because they did not match the streaming turn",
		},
		[]string{"topic"},
	)

	// ActiveSessions 当前会话数
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "creditlens",
			Subsystem: "chat",
			Name:      "active_sessions",
			Help:      "Chat sessions currently held by the registry",
		},
	)

	// DispatchDuration 模型请求耗时
	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "creditlens",
			Subsystem: "ai",
			Name:      "dispatch_duration_seconds",
			Help:      "Duration of streamed completions in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"provider", "status"},
	)

	// HTTPRequests HTTP 请求耗时
	HTTPRequests = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "creditlens",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route and status",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// ClassificationsTotal 分类次数，按策略档位区分
	ClassificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "creditlens",
			Subsystem: "credit",
			Name:      "classifications_total",
			Help:      "Credit classifications by strategy tier",
		},
		[]string{"tier"},
	)
)

// ObserveDispatch 记录一次模型请求
func ObserveDispatch(provider string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	DispatchDuration.WithLabelValues(provider, status).Observe(time.Since(start).Seconds())
}
