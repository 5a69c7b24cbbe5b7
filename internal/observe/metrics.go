// Package observe wires OpenTelemetry into halidom: the metric instruments,
// span helpers, trace-aware logging and the HTTP middleware.
//
// [InitProvider] installs global providers backed by a Prometheus exporter.
// Code records through a [Metrics] value; [DefaultMetrics] binds to the
// global provider, and tests build their own with [NewMetrics] over a
// manual reader.
package observe

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Status values shared by the Record helpers.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Lookups are in memory and land in the low buckets. Rebuilds and HTTP
// requests use the upper range.
var latencyBuckets = []float64{
	0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5,
}

// Metrics holds the application's instruments. Safe for concurrent use.
type Metrics struct {
	queryDuration   metric.Float64Histogram // kind
	queries         metric.Int64Counter     // kind, outcome
	rebuildDuration metric.Float64Histogram
	rebuilds        metric.Int64Counter // status
	indexKeys       metric.Int64Gauge
	sourceLoads     metric.Int64Counter     // source, status
	interactions    metric.Int64Counter     // command, status
	httpDuration    metric.Float64Histogram // method, route, status
}

// instruments collects the first creation error so NewMetrics reads as a
// flat list.
type instruments struct {
	meter metric.Meter
	errs  []error
}

func (in *instruments) histogram(name, desc string, opts ...metric.Float64HistogramOption) metric.Float64Histogram {
	opts = append([]metric.Float64HistogramOption{metric.WithDescription(desc), metric.WithUnit("s")}, opts...)
	h, err := in.meter.Float64Histogram(name, opts...)
	in.errs = append(in.errs, err)
	return h
}

func (in *instruments) counter(name, desc string) metric.Int64Counter {
	c, err := in.meter.Int64Counter(name, metric.WithDescription(desc))
	in.errs = append(in.errs, err)
	return c
}

func (in *instruments) gauge(name, desc string) metric.Int64Gauge {
	g, err := in.meter.Int64Gauge(name, metric.WithDescription(desc))
	in.errs = append(in.errs, err)
	return g
}

// NewMetrics creates every instrument on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	in := &instruments{meter: mp.Meter(scopeName)}
	buckets := metric.WithExplicitBucketBoundaries(latencyBuckets...)

	m := &Metrics{
		queryDuration:   in.histogram("halidom.query.duration", "Latency of answering one query.", buckets),
		queries:         in.counter("halidom.queries", "Queries by kind and outcome."),
		rebuildDuration: in.histogram("halidom.rebuild.duration", "Time taken to build and publish an index.", buckets),
		rebuilds:        in.counter("halidom.rebuilds", "Index builds by status."),
		indexKeys:       in.gauge("halidom.index.keys", "Fuzzy keys in the published index."),
		sourceLoads:     in.counter("halidom.source.loads", "Snapshot load attempts by source and status."),
		interactions:    in.counter("halidom.discord.interactions", "Chat commands by command and status."),
		httpDuration:    in.histogram("halidom.http.request.duration", "HTTP request latency by method, route and status."),
	}
	if err := errors.Join(in.errs...); err != nil {
		return nil, err
	}
	return m, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns a process-wide [Metrics] bound to
// [otel.GetMeterProvider]. Providers installed later are picked up through
// the global delegate.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		m, err := NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: default metrics: " + err.Error())
		}
		defaultMetrics = m
	})
	return defaultMetrics
}

func attrs(kv ...attribute.KeyValue) metric.MeasurementOption {
	return metric.WithAttributes(kv...)
}

// RecordQuery records one answered query.
func (m *Metrics) RecordQuery(ctx context.Context, kind, outcome string, d time.Duration) {
	m.queryDuration.Record(ctx, d.Seconds(), attrs(attribute.String("kind", kind)))
	m.queries.Add(ctx, 1, attrs(attribute.String("kind", kind), attribute.String("outcome", outcome)))
}

// RecordRebuild records a finished index build. keys only counts when the
// build succeeded.
func (m *Metrics) RecordRebuild(ctx context.Context, status string, d time.Duration, keys int) {
	m.rebuildDuration.Record(ctx, d.Seconds())
	m.rebuilds.Add(ctx, 1, attrs(attribute.String("status", status)))
	if status == StatusOK {
		m.indexKeys.Record(ctx, int64(keys))
	}
}

// RecordSourceLoad records a snapshot load attempt.
func (m *Metrics) RecordSourceLoad(ctx context.Context, source, status string) {
	m.sourceLoads.Add(ctx, 1, attrs(attribute.String("source", source), attribute.String("status", status)))
}

// RecordInteraction records a handled chat command.
func (m *Metrics) RecordInteraction(ctx context.Context, command, status string) {
	m.interactions.Add(ctx, 1, attrs(attribute.String("command", command), attribute.String("status", status)))
}

// RecordHTTP records a served HTTP request. route is the mux pattern, never
// the raw path.
func (m *Metrics) RecordHTTP(ctx context.Context, method, route string, status int, d time.Duration) {
	m.httpDuration.Record(ctx, d.Seconds(), attrs(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", status),
	))
}
