package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "roombook"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		},
		[]string{"route", "status"},
	)

	grpcRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_requests_total",
			Help:      "gRPC requests by method and status code.",
		},
		[]string{"method", "code"},
	)

	bookingOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_operations_total",
			Help:      "Booking service operations by outcome.",
		},
		[]string{"operation", "outcome"},
	)

	bookingOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "booking_operation_duration_seconds",
			Help:      "Booking service operation latency.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	availabilityChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "availability_checks_total",
			Help:      "Availability checks by result.",
		},
		[]string{"result"},
	)
)

// Register registers collectors on the default registry. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, grpcRequests, bookingOps, bookingOpDuration, availabilityChecks)
	})
}

func IncHTTP(route string, status int) {
	httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

func IncGRPC(method, code string) {
	grpcRequests.WithLabelValues(method, code).Inc()
}

// ObserveBookingOp records one service call. outcome is a short label such as "ok" or "conflict".
func ObserveBookingOp(operation, outcome string, elapsed time.Duration) {
	bookingOps.WithLabelValues(operation, outcome).Inc()
	bookingOpDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func IncAvailability(available bool) {
	result := "conflict"
	if available {
		result = "available"
	}
	availabilityChecks.WithLabelValues(result).Inc()
}
