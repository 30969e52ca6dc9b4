package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Stock adjustment outcomes.
const (
	AdjustApplied = "applied"
	AdjustRefused = "refused"
	AdjustError   = "error"
)

// Durable read-through outcomes.
const (
	LookupFound       = "found"
	LookupPlaceholder = "placeholder"
	LookupError       = "error"
)

// InventoryMetrics records stock adjustments and read-through lookups.
type InventoryMetrics struct {
	adjustments *prometheus.CounterVec
	lookups     *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewInventoryMetrics registers the inventory metrics on the provided registerer.
func NewInventoryMetrics(reg prometheus.Registerer) *InventoryMetrics {
	if reg == nil {
		return &InventoryMetrics{}
	}
	adjustments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_stock_adjustments_total",
		Help: "Stock adjustments by outcome.",
	}, []string{"result"})
	lookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_durable_lookups_total",
		Help: "Durable store lookups made to complete cached product records.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inventory_operation_duration_seconds",
		Help:    "Duration of inventory operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	reg.MustRegister(adjustments, lookups, duration)
	return &InventoryMetrics{
		adjustments: adjustments,
		lookups:     lookups,
		duration:    duration,
	}
}

// IncAdjustment counts one stock adjustment with the given result.
func (m *InventoryMetrics) IncAdjustment(result string) {
	if m == nil || m.adjustments == nil {
		return
	}
	m.adjustments.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncLookup counts one durable lookup with the given outcome.
func (m *InventoryMetrics) IncLookup(outcome string) {
	if m == nil || m.lookups == nil {
		return
	}
	m.lookups.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveDuration records the duration for the named operation.
func (m *InventoryMetrics) ObserveDuration(operation string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
