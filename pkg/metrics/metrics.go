package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector 业务指标收集器
type Collector struct {
	// HTTP 指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// 结算指标
	CheckoutAttemptsTotal *prometheus.CounterVec // outcome: free, single, multi, rejected, error
	SessionsCreatedTotal  *prometheus.CounterVec // provider: stripe, alipay, wechat
	SessionFailuresTotal  *prometheus.CounterVec
	OrdersTotal           *prometheus.CounterVec // status transitions
	PlatformFeeCents      prometheus.Counter
}

// NewCollector 创建指标收集器
func NewCollector() *Collector {
	return &Collector{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		CheckoutAttemptsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_attempts_total",
				Help: "Total number of checkout attempts by outcome",
			},
			[]string{"outcome"},
		),
		SessionsCreatedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_sessions_created_total",
				Help: "Total number of hosted checkout sessions created",
			},
			[]string{"provider"},
		),
		SessionFailuresTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_session_failures_total",
				Help: "Total number of failed session creation attempts",
			},
			[]string{"provider"},
		),
		OrdersTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orders_total",
				Help: "Total number of orders by status",
			},
			[]string{"status"},
		),
		PlatformFeeCents: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "platform_fee_cents_total",
				Help: "Accumulated platform fee in minor units",
			},
		),
	}
}

// Default 全局默认收集器，由 cmd/server 初始化
var Default *Collector

// Init 初始化全局收集器
func Init() {
	if Default == nil {
		Default = NewCollector()
	}
}
