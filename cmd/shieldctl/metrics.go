package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// MetricType represents the type of metric
type MetricType string

const (
	Counter   MetricType = "counter"
	Gauge     MetricType = "gauge"
	Histogram MetricType = "histogram"
)

// Metric represents a single metric
type Metric struct {
	Name      string            `json:"name"`
	Type      MetricType        `json:"type"`
	Value     float64           `json:"value"`
	Labels    map[string]string `json:"labels,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// maxHistogramSamples bounds the samples kept per histogram.
const maxHistogramSamples = 1000

// MetricsCollector keeps in-process metrics for one run of the tool.
type MetricsCollector struct {
	mu         sync.RWMutex
	metrics    map[string]*Metric
	counters   map[string]*int64
	gauges     map[string]*float64
	histograms map[string][]float64
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		metrics:    make(map[string]*Metric),
		counters:   make(map[string]*int64),
		gauges:     make(map[string]*float64),
		histograms: make(map[string][]float64),
	}
}

// IncrementCounter adds delta to a counter metric
func (mc *MetricsCollector) IncrementCounter(name string, delta int64, labels map[string]string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	key := makeKey(name, labels)
	counter, exists := mc.counters[key]
	if !exists {
		counter = new(int64)
		mc.counters[key] = counter
	}
	atomic.AddInt64(counter, delta)

	mc.updateMetric(key, name, Counter, float64(atomic.LoadInt64(counter)), labels)
}

// SetGauge sets a gauge metric value
func (mc *MetricsCollector) SetGauge(name string, value float64, labels map[string]string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	key := makeKey(name, labels)
	if gauge, exists := mc.gauges[key]; exists {
		*gauge = value
	} else {
		mc.gauges[key] = &value
	}

	mc.updateMetric(key, name, Gauge, value, labels)
}

// RecordHistogram records a value in a histogram
func (mc *MetricsCollector) RecordHistogram(name string, value float64, labels map[string]string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	key := makeKey(name, labels)
	values := append(mc.histograms[key], value)
	if len(values) > maxHistogramSamples {
		values = values[len(values)-maxHistogramSamples:]
	}
	mc.histograms[key] = values

	mc.updateMetric(key, name, Histogram, value, labels)
}

// GetMetric retrieves a metric by name and labels
func (mc *MetricsCollector) GetMetric(name string, labels map[string]string) *Metric {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	return mc.metrics[makeKey(name, labels)]
}

// GetMetricsSummary returns a summary of all metrics
func (mc *MetricsCollector) GetMetricsSummary() map[string]interface{} {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	summary := make(map[string]interface{})

	counters := make(map[string]int64)
	for key, counter := range mc.counters {
		counters[key] = atomic.LoadInt64(counter)
	}
	summary["counters"] = counters

	gauges := make(map[string]float64)
	for key, gauge := range mc.gauges {
		gauges[key] = *gauge
	}
	summary["gauges"] = gauges

	histograms := make(map[string]map[string]float64)
	for key, values := range mc.histograms {
		if len(values) == 0 {
			continue
		}
		h := map[string]float64{
			"count": float64(len(values)),
			"min":   values[0],
			"max":   values[0],
		}
		var sum float64
		for _, v := range values {
			if v < h["min"] {
				h["min"] = v
			}
			if v > h["max"] {
				h["max"] = v
			}
			sum += v
		}
		h["sum"] = sum
		h["avg"] = sum / h["count"]
		histograms[key] = h
	}
	summary["histograms"] = histograms

	return summary
}

// WriteSummary writes the metrics summary to w as indented JSON.
func (mc *MetricsCollector) WriteSummary(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(mc.GetMetricsSummary())
}

// makeKey creates a unique key for a metric name and labels. Labels are
// sorted so the key does not depend on map iteration order.
func makeKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}

	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(name)
	for _, k := range names {
		fmt.Fprintf(&b, "_%s_%s", k, labels[k])
	}
	return b.String()
}

func (mc *MetricsCollector) updateMetric(key, name string, metricType MetricType, value float64, labels map[string]string) {
	mc.metrics[key] = &Metric{
		Name:      name,
		Type:      metricType,
		Value:     value,
		Labels:    labels,
		Timestamp: time.Now(),
	}
}

// Predefined metric names
const (
	MetricCommandCount    = "command_count"
	MetricCommandDuration = "command_duration"
	MetricErrorCount      = "error_count"
	MetricNotesFound      = "notes_found"
	MetricNotesUnspent    = "notes_unspent"
	MetricNullifiers      = "nullifiers"
	MetricTreeSize        = "tree_size"
)

// RecordCommand counts a finished command and its duration. Failed commands
// are also counted per error code.
func (mc *MetricsCollector) RecordCommand(command string, duration time.Duration, err error) {
	labels := map[string]string{"command": command}
	mc.IncrementCounter(MetricCommandCount, 1, labels)
	mc.RecordHistogram(MetricCommandDuration, duration.Seconds(), labels)
	if err != nil {
		mc.IncrementCounter(MetricErrorCount, 1, map[string]string{
			"command": command,
			"code":    errorCode(err),
		})
	}
}

// RecordNotes counts notes handled by a command.
func (mc *MetricsCollector) RecordNotes(name string, n int) {
	mc.IncrementCounter(name, int64(n), nil)
}
