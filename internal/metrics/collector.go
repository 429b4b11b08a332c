// Package metrics collects labelled evaluation measurements during a search
// and summarizes them.
package metrics

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/simtune/internal/evaluator"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Metric names recorded by Observe.
const (
	EvaluationLatency = "evaluation_latency_ms"
	EvaluationFitness = "evaluation_fitness"
	EvaluationErrors  = "evaluation_errors"
)

// Point is one recorded value.
type Point struct {
	Timestamp time.Time
	Value     float64
	Labels    map[string]string
}

// Aggregation summarizes the points of one series.
type Aggregation struct {
	Count int
	Sum   float64
	Min   float64
	Max   float64
	Mean  float64
	P50   float64
	P95   float64
	P99   float64
}

// Collector collects time series keyed by metric name and label set
type Collector struct {
	mu sync.RWMutex

	startTime time.Time

	// metric name -> label key -> points
	series map[string]map[string][]Point
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		series:    make(map[string]map[string][]Point),
	}
}

// Record records a metric value at a specific timestamp
func (c *Collector) Record(name string, value float64, timestamp time.Time, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := labelKey(labels)
	if c.series[name] == nil {
		c.series[name] = make(map[string][]Point)
	}
	c.series[name][key] = append(c.series[name][key], Point{
		Timestamp: timestamp,
		Value:     value,
		Labels:    copyLabels(labels),
	})
}

// RecordNow records a metric value at the current time
func (c *Collector) RecordNow(name string, value float64, labels map[string]string) {
	c.Record(name, value, time.Now(), labels)
}

// Observe records a completed evaluation. It satisfies evaluator.Observer.
func (c *Collector) Observe(ev evaluator.Evaluation) {
	labels := map[string]string{"generation": strconv.Itoa(ev.Generation)}
	now := time.Now()

	c.Record(EvaluationLatency, float64(ev.Elapsed)/float64(time.Millisecond), now, labels)
	if ev.Err != nil {
		c.Record(EvaluationErrors, 1, now, labels)
		return
	}
	c.Record(EvaluationFitness, ev.Fitness, now, labels)
}

// TimeSeries returns a copy of the points of one labelled series
func (c *Collector) TimeSeries(name string, labels map[string]string) []Point {
	c.mu.RLock()
	defer c.mu.RUnlock()

	points := c.series[name][labelKey(labels)]
	if points == nil {
		return nil
	}
	out := make([]Point, len(points))
	for i, p := range points {
		out[i] = Point{Timestamp: p.Timestamp, Value: p.Value, Labels: copyLabels(p.Labels)}
	}
	return out
}

// Aggregation summarizes one labelled series, or nil if it is empty
func (c *Collector) Aggregation(name string, labels map[string]string) *Aggregation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return aggregate(c.series[name][labelKey(labels)])
}

// Summary aggregates every metric across all of its label sets
func (c *Collector) Summary() map[string]*Aggregation {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]*Aggregation, len(c.series))
	for name, byLabels := range c.series {
		var all []Point
		for _, points := range byLabels {
			all = append(all, points...)
		}
		if agg := aggregate(all); agg != nil {
			out[name] = agg
		}
	}
	return out
}

// Names returns the recorded metric names in sorted order
func (c *Collector) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.series))
	for name := range c.series {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Elapsed returns the time since the collector was created or cleared
func (c *Collector) Elapsed() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Since(c.startTime)
}

// Clear clears all collected metrics
func (c *Collector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.series = make(map[string]map[string][]Point)
	c.startTime = time.Now()
}

// labelKey creates a key from labels for map lookup
func labelKey(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	key := ""
	for _, k := range keys {
		key += k + "=" + labels[k] + ","
	}
	return key
}

// copyLabels creates a copy of the labels map
func copyLabels(labels map[string]string) map[string]string {
	if labels == nil {
		return nil
	}
	out := make(map[string]string, len(labels))
	for k, v := range labels {
		out[k] = v
	}
	return out
}

// aggregate calculates statistics over points; percentiles use the
// empirical quantile, so they are always recorded values.
func aggregate(points []Point) *Aggregation {
	if len(points) == 0 {
		return nil
	}

	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	sort.Float64s(values)

	return &Aggregation{
		Count: len(values),
		Sum:   floats.Sum(values),
		Min:   values[0],
		Max:   values[len(values)-1],
		Mean:  stat.Mean(values, nil),
		P50:   stat.Quantile(0.50, stat.Empirical, values, nil),
		P95:   stat.Quantile(0.95, stat.Empirical, values, nil),
		P99:   stat.Quantile(0.99, stat.Empirical, values, nil),
	}
}
