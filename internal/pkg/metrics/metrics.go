package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shopcore_orders_created_total",
		Help: "Orders committed successfully.",
	})

	OrderFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shopcore_order_failures_total",
		Help: "Order creations aborted, by reason.",
	}, []string{"reason"})

	StockConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shopcore_stock_conflicts_total",
		Help: "Checkouts rejected because a SKU ran out of stock.",
	})

	OrderCreateDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "shopcore_order_create_seconds",
		Help:    "Latency of the order creation transaction.",
		Buckets: prometheus.DefBuckets,
	})

	HookFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shopcore_post_commit_hook_failures_total",
		Help: "Post-commit side effects that failed, by hook.",
	}, []string{"hook"})
)
