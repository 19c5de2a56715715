package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SalesCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inventory_sales_completed_total",
		Help: "Number of committed sales",
	})

	SalesRevenue = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inventory_sales_revenue_total",
		Help: "Revenue of committed sales",
	})

	SalesRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_sales_rejected_total",
			Help: "Sales rejected before commit, by reason",
		},
		[]string{"reason"},
	)

	StockAdjustments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_stock_adjustments_total",
			Help: "Committed stock ledger entries, by change type",
		},
		[]string{"change_type"},
	)

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inventory_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

func init() {
	prometheus.MustRegister(SalesCompleted)
	prometheus.MustRegister(SalesRevenue)
	prometheus.MustRegister(SalesRejected)
	prometheus.MustRegister(StockAdjustments)
	prometheus.MustRegister(HTTPRequests)
	prometheus.MustRegister(HTTPDuration)
}
