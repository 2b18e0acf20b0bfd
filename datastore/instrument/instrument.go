/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package instrument decorates a datastore.Database with Prometheus metrics
// and OpenTelemetry spans. Results and errors pass through untouched.
package instrument

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/suparena/doccontext/bsonmap"
	"github.com/suparena/doccontext/datastore"
	"github.com/suparena/doccontext/filter"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/suparena/doccontext/datastore/instrument"

// Outcomes recorded in the outcome label.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics holds the store collectors.
type Metrics struct {
	Operations *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
}

// NewMetrics creates and registers the store collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	labels := []string{"collection", "operation", "outcome"}
	return &Metrics{
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "doccontext_store_operations_total",
			Help: "Total number of document store operations",
		}, labels),
		Duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "doccontext_store_operation_duration_seconds",
			Help:    "Latency of document store operations in seconds",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, labels),
	}
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the collectors registered with the default Prometheus registerer.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		defaultMetrics = NewMetrics(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

type options struct {
	metrics  *Metrics
	provider trace.TracerProvider
}

// Option configures Wrap.
type Option func(*options)

// WithRegisterer registers a fresh set of collectors with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.metrics = NewMetrics(reg) }
}

// WithMetrics shares already registered collectors.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithTracerProvider sets the provider spans are started from. The default
// is the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.provider = tp }
}

// Database is an instrumented datastore.Database.
type Database struct {
	next    datastore.Database
	metrics *Metrics
	tracer  trace.Tracer
}

// Wrap instruments db.
func Wrap(db datastore.Database, opts ...Option) *Database {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.metrics == nil {
		o.metrics = DefaultMetrics()
	}
	if o.provider == nil {
		o.provider = otel.GetTracerProvider()
	}
	return &Database{
		next:    db,
		metrics: o.metrics,
		tracer:  o.provider.Tracer(instrumentationName),
	}
}

// Unwrap returns the decorated database.
func (d *Database) Unwrap() datastore.Database { return d.next }

func (d *Database) Name() string { return d.next.Name() }

func (d *Database) ClassMaps() *bsonmap.Registry { return d.next.ClassMaps() }

func (d *Database) Collection(name string) datastore.Collection {
	return &collection{next: d.next.Collection(name), db: d}
}

type collection struct {
	next datastore.Collection
	db   *Database
}

// observe runs op inside a span and records its outcome.
func (c *collection) observe(ctx context.Context, operation string, op func(context.Context) error) error {
	ctx, span := c.db.tracer.Start(ctx, "doccontext."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.namespace", c.db.Name()),
			attribute.String("db.collection.name", c.next.Name()),
			attribute.String("db.operation.name", operation),
		),
	)
	defer span.End()

	start := time.Now()
	err := op(ctx)
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	c.db.metrics.Operations.WithLabelValues(c.next.Name(), operation, outcome).Inc()
	c.db.metrics.Duration.WithLabelValues(c.next.Name(), operation, outcome).Observe(time.Since(start).Seconds())
	return err
}

func (c *collection) Name() string { return c.next.Name() }

func (c *collection) InsertOne(ctx context.Context, document any) error {
	return c.observe(ctx, "insert_one", func(ctx context.Context) error {
		return c.next.InsertOne(ctx, document)
	})
}

func (c *collection) ReplaceOne(ctx context.Context, f filter.Filter, document any, upsert bool) error {
	return c.observe(ctx, "replace_one", func(ctx context.Context) error {
		return c.next.ReplaceOne(ctx, f, document, upsert)
	})
}

func (c *collection) DeleteOne(ctx context.Context, f filter.Filter) (n int64, err error) {
	err = c.observe(ctx, "delete_one", func(ctx context.Context) error {
		n, err = c.next.DeleteOne(ctx, f)
		return err
	})
	return n, err
}

func (c *collection) DeleteMany(ctx context.Context, f filter.Filter) (n int64, err error) {
	err = c.observe(ctx, "delete_many", func(ctx context.Context) error {
		n, err = c.next.DeleteMany(ctx, f)
		return err
	})
	return n, err
}

func (c *collection) UpdateOne(ctx context.Context, f filter.Filter, u datastore.Update, upsert bool) error {
	return c.observe(ctx, "update_one", func(ctx context.Context) error {
		return c.next.UpdateOne(ctx, f, u, upsert)
	})
}

// Find records opening the cursor; iteration is not timed.
func (c *collection) Find(ctx context.Context, f filter.Filter, opts *datastore.FindOptions) (cur datastore.Cursor, err error) {
	err = c.observe(ctx, "find", func(ctx context.Context) error {
		cur, err = c.next.Find(ctx, f, opts)
		return err
	})
	return cur, err
}

func (c *collection) CountDocuments(ctx context.Context, f filter.Filter) (n int64, err error) {
	err = c.observe(ctx, "count_documents", func(ctx context.Context) error {
		n, err = c.next.CountDocuments(ctx, f)
		return err
	})
	return n, err
}

var (
	_ datastore.Database   = (*Database)(nil)
	_ datastore.Collection = (*collection)(nil)
)
