// Package metrics 暴露 Prometheus 指标。
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HTTPRequestDuration 记录 HTTP 请求耗时分布。
	HTTPRequestDuration *prometheus.HistogramVec
	// SessionsIssuedTotal 累计签发的会话数。
	SessionsIssuedTotal prometheus.Counter
	// SessionIDCollisionsTotal 累计签发时的会话 ID 撞号次数（触发重试）。
	SessionIDCollisionsTotal prometheus.Counter
	// AuthRejectionsTotal 累计会话校验被拒绝的请求数。
	AuthRejectionsTotal prometheus.Counter
	// SessionsSweptTotal 累计后台清理掉的过期会话数。
	SessionsSweptTotal prometheus.Counter
	// RateLimitRejectedTotal 累计被登录限流拒绝的请求数。
	RateLimitRejectedTotal prometheus.Counter

	initOnce sync.Once
)

// InitMetrics 注册所有指标。重复调用只注册一次，方便测试。
func InitMetrics() {
	initOnce.Do(func() {
		HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taskmanager_http_request_duration_seconds",
			Help:    "HTTP request latency by method and path.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"})

		SessionsIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskmanager_sessions_issued_total",
			Help: "Total sessions issued at register/login.",
		})
		SessionIDCollisionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskmanager_session_id_collisions_total",
			Help: "Session identifier collisions that forced a retry.",
		})
		AuthRejectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskmanager_auth_rejections_total",
			Help: "Requests rejected by the session authentication gate.",
		})
		SessionsSweptTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskmanager_sessions_swept_total",
			Help: "Expired sessions removed by the background sweeper.",
		})
		RateLimitRejectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskmanager_ratelimit_rejected_total",
			Help: "Login requests rejected by the rate limiter.",
		})

		prometheus.MustRegister(
			HTTPRequestDuration,
			SessionsIssuedTotal,
			SessionIDCollisionsTotal,
			AuthRejectionsTotal,
			SessionsSweptTotal,
			RateLimitRejectedTotal,
		)
	})
}
