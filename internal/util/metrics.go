package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CartActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_actions_total",
		Help: "Total number of cart actions dispatched",
	}, []string{"action"})

	CartSessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cart_sessions_active",
		Help: "Number of cart sessions held in memory",
	})

	DiscountsAppliedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discounts_applied_total",
		Help: "Total number of discount codes applied to carts",
	})

	DiscountValidationFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "discount_validation_failed_total",
		Help: "Total number of rejected discount code validations",
	}, []string{"reason"})

	DiscountValidationsStaleTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discount_validations_stale_total",
		Help: "Validation results discarded because the cart changed meanwhile",
	})

	DiscountValidationLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "discount_validation_latency_seconds",
		Help:    "Latency of discount code validation",
		Buckets: prometheus.DefBuckets,
	})

	DiscountUsageRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discount_usage_recorded_total",
		Help: "Total number of discount code uses recorded from placed orders",
	})

	PersistenceFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_persistence_failures_total",
		Help: "Total number of failed cart persistence operations",
	}, []string{"op"})

	PersistenceExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_persistence_expired_total",
		Help: "Total number of persisted carts discarded as stale",
	})

	PersistenceLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cart_persistence_latency_seconds",
		Help:    "Latency of cart persistence writes",
		Buckets: prometheus.DefBuckets,
	})

	PersistQueueDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_persist_queue_dropped_total",
		Help: "Cart snapshots dropped because the persist queue was full",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
