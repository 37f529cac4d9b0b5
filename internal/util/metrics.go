package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CheckoutAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_attempts_total",
		Help: "Total number of checkout submissions by payment method",
	}, []string{"method"})

	OrdersCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders created by payment method",
	}, []string{"method"})

	CheckoutFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_failed_total",
		Help: "Total number of failed checkout attempts",
	}, []string{"reason"})

	OrdersOutOfStockTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_out_of_stock_total",
		Help: "Total number of order attempts rejected for insufficient stock",
	})

	PaymentInitiationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_initiations_total",
		Help: "Total number of payment initiations by method",
	}, []string{"method"})

	PaymentPollsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_polls_total",
		Help: "Total number of payment status polls issued",
	})

	PaymentPollOutcomeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_poll_outcome_total",
		Help: "Terminal outcomes of payment reconciliation loops",
	}, []string{"outcome"})

	PaymentOrphanedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_orphaned_total",
		Help: "Payments confirmed by the provider without a created order",
	})

	PaymentStatusLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "payment_status_check_latency_seconds",
		Help:    "Latency of provider payment status checks",
		Buckets: prometheus.DefBuckets,
	})

	VendorSwitchPromptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vendor_switch_prompts_total",
		Help: "Total number of cross-vendor add attempts that surfaced a switch prompt",
	})

	VendorSwitchConfirmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vendor_switch_confirmed_total",
		Help: "Total number of confirmed vendor switches",
	})

	ZoneChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zone_checks_total",
		Help: "Total number of delivery zone coverage checks",
	}, []string{"covered"})

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
