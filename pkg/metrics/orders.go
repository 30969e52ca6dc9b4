package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics records order placement and cancellation outcomes.
type OrderMetrics struct {
	duration      *prometheus.HistogramVec
	success       *prometheus.CounterVec
	failure       *prometheus.CounterVec
	compensations prometheus.Counter
}

// NewOrderMetrics registers the order metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "order_operation_duration_seconds",
		Help:    "Duration of order operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_operation_success",
		Help: "Successful order operations.",
	}, []string{"operation"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_operation_failure",
		Help: "Failed order operations by error code.",
	}, []string{"operation", "code"})
	compensations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "order_compensation_failures_total",
		Help: "Stock adjustments that failed while unwinding an order operation.",
	})
	reg.MustRegister(duration, success, failure, compensations)
	return &OrderMetrics{
		duration:      duration,
		success:       success,
		failure:       failure,
		compensations: compensations,
	}
}

// ObserveDuration records the duration for the named operation.
func (o *OrderMetrics) ObserveDuration(operation string, duration time.Duration) {
	if o == nil || o.duration == nil {
		return
	}
	o.duration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named operation.
func (o *OrderMetrics) IncSuccess(operation string) {
	if o == nil || o.success == nil {
		return
	}
	o.success.WithLabelValues(normalizeLabel(operation)).Inc()
}

// IncFailure increments the failure counter for the named operation and code.
func (o *OrderMetrics) IncFailure(operation, code string) {
	if o == nil || o.failure == nil {
		return
	}
	o.failure.WithLabelValues(normalizeLabel(operation), normalizeLabel(code)).Inc()
}

// IncCompensationFailure counts a failed unwind step.
func (o *OrderMetrics) IncCompensationFailure() {
	if o == nil || o.compensations == nil {
		return
	}
	o.compensations.Inc()
}
