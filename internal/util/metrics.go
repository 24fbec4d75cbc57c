package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders created",
	})

	OrderTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "Total number of applied order status transitions",
	}, []string{"to"})

	OrderTransitionsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_rejected_total",
		Help: "Total number of order status transitions rejected in strict mode",
	}, []string{"from", "to"})

	SalesRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sales_recorded_total",
		Help: "Total number of sales recorded",
	})

	SalesRevenueTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sales_revenue_total",
		Help: "Sum of recorded sale totals",
	})

	SaleRecordLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sale_record_latency_seconds",
		Help:    "Latency of recording a sale including stock cascades",
		Buckets: prometheus.DefBuckets,
	})

	StockAdjustmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_adjustments_total",
		Help: "Total number of stock adjustments",
	}, []string{"direction"})

	LowStockAlertsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "low_stock_alerts_total",
		Help: "Total number of products that dropped to their low stock threshold",
	})

	WalletOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_operations_total",
		Help: "Total number of wallet balance changes",
	}, []string{"type"})

	PaymentStatusTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_status_changes_total",
		Help: "Total number of payment status changes",
	}, []string{"status"})

	LoyaltyPointsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loyalty_points_total",
		Help: "Loyalty points earned and redeemed",
	}, []string{"type"})

	ReviewsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vendor_reviews_total",
		Help: "Total number of vendor reviews",
	})

	DriverLocationUpdatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "driver_location_updates_total",
		Help: "Total number of driver location pings",
	})

	NotificationsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_created_total",
		Help: "Total number of notifications created",
	}, []string{"type"})

	EventsPublishFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "events_publish_failed_total",
		Help: "Total number of domain events that failed to publish",
	}, []string{"type"})

	EventsConsumeDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "events_consume_dropped_total",
		Help: "Total number of consumed messages skipped after exhausting handler retries",
	}, []string{"topic", "group"})

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
