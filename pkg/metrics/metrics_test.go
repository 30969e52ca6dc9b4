package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestInventoryMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewInventoryMetrics(reg)
	metrics.IncAdjustment(AdjustApplied)
	metrics.IncAdjustment(AdjustApplied)
	metrics.IncAdjustment(AdjustRefused)
	metrics.IncLookup(LookupPlaceholder)
	metrics.ObserveDuration("adjust_stock", 10*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "inventory_stock_adjustments_total", "result", AdjustApplied); err != nil {
		t.Fatalf("fetch applied: %v", err)
	} else if got != 2 {
		t.Fatalf("expected applied=2, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "inventory_stock_adjustments_total", "result", AdjustRefused); err != nil {
		t.Fatalf("fetch refused: %v", err)
	} else if got != 1 {
		t.Fatalf("expected refused=1, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "inventory_durable_lookups_total", "outcome", LookupPlaceholder); err != nil {
		t.Fatalf("fetch lookups: %v", err)
	} else if got != 1 {
		t.Fatalf("expected placeholder=1, got %f", got)
	}
	if got, err := fetchHistogramSum(mfs, "inventory_operation_duration_seconds", "operation", "adjust_stock"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestOrderMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewOrderMetrics(reg)
	metrics.IncSuccess("place")
	metrics.IncFailure("place", "INSUFFICIENT_STOCK")
	metrics.IncCompensationFailure()
	metrics.ObserveDuration("place", 5*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "order_operation_success", "operation", "place"); err != nil {
		t.Fatalf("fetch success: %v", err)
	} else if got != 1 {
		t.Fatalf("expected success=1, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "order_operation_failure", "code", "INSUFFICIENT_STOCK"); err != nil {
		t.Fatalf("fetch failure: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failure=1, got %f", got)
	}
	mf := findMetricFamily(mfs, "order_compensation_failures_total")
	if mf == nil || len(mf.GetMetric()) != 1 || mf.GetMetric()[0].GetCounter().GetValue() != 1 {
		t.Fatalf("expected one compensation failure, got %v", mf)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var inv *InventoryMetrics
	inv.IncAdjustment(AdjustApplied)
	inv.IncLookup(LookupFound)
	inv.ObserveDuration("x", time.Second)

	unregistered := NewOrderMetrics(nil)
	unregistered.IncSuccess("place")
	unregistered.IncFailure("place", "")
	unregistered.IncCompensationFailure()
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
