package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StockAdjustmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_adjustments_total",
		Help: "Total number of applied stock adjustments",
	}, []string{"direction"})

	StockViolationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_violations_total",
		Help: "Total number of stock adjustments rejected for insufficient stock",
	})

	BooksCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "books_created_total",
		Help: "Total number of book rows created by stock adjustments",
	})

	BookQuantitySetTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "book_quantity_set_total",
		Help: "Total number of administrative quantity overwrites",
	})

	TransactionsRecordedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transactions_recorded_total",
		Help: "Total number of ledger entries recorded",
	}, []string{"action"})

	TransactionsDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transactions_deleted_total",
		Help: "Total number of ledger entries deleted",
	})

	StockAdjustLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stock_adjust_latency_seconds",
		Help:    "Latency of stock adjustments including lock acquisition",
		Buckets: prometheus.DefBuckets,
	})

	TitleLockFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "title_lock_failures_total",
		Help: "Total number of title lock acquisitions that timed out or failed",
	})

	LedgerEventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_events_published_total",
		Help: "Total number of ledger events published",
	}, []string{"type"})

	LedgerEventsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_events_failed_total",
		Help: "Total number of ledger events that failed to publish",
	}, []string{"type"})

	LedgerEventsConsumedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_events_consumed_total",
		Help: "Total number of ledger events consumed by the audit worker",
	}, []string{"type"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "http_rate_limited_total",
		Help: "Total number of requests rejected by the rate limiter",
	})
)
