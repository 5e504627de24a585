package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CheckoutsStartedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkouts_started_total",
		Help: "Total number of checkout batches started",
	})

	CheckoutsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkouts_rejected_total",
		Help: "Total number of checkout batches rejected pre-flight",
	}, []string{"reason"})

	BookingsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookings_created_total",
		Help: "Total number of bookings created",
	})

	BookingsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookings_failed_total",
		Help: "Total number of failed booking attempts",
	}, []string{"reason"})

	BookingLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "booking_creation_latency_seconds",
		Help:    "Latency of remote booking creation",
		Buckets: prometheus.DefBuckets,
	})

	MethodsProvisionedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_methods_provisioned_total",
		Help: "Total number of payment methods registered",
	})

	MethodsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_methods_rejected_total",
		Help: "Total number of payment method registrations rejected",
	}, []string{"reason"})

	PaymentAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_attempts_total",
		Help: "Total number of charge attempts",
	})

	PaymentsSettledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_settled_total",
		Help: "Total number of settled charges",
	})

	PaymentsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_failed_total",
		Help: "Total number of failed charges",
	}, []string{"reason"})

	PaymentLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "payment_processing_latency_seconds",
		Help:    "Latency of remote charge processing",
		Buckets: prometheus.DefBuckets,
	})

	ConversionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "currency_conversions_total",
		Help: "Total number of currency conversion resolutions",
	}, []string{"source"})

	ConversionFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "currency_conversion_fallbacks_total",
		Help: "Total number of conversions served from the static fallback table",
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
