/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package instrument

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/doccontext/bsonmap"
	"github.com/suparena/doccontext/datastore"
	"github.com/suparena/doccontext/datastore/mock"
	"github.com/suparena/doccontext/filter"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// recordingProvider remembers the name of every span started from it.
type recordingProvider struct {
	noop.TracerProvider
	mu    sync.Mutex
	spans []string
}

func (p *recordingProvider) Tracer(string, ...trace.TracerOption) trace.Tracer {
	return recordingTracer{p: p}
}

type recordingTracer struct {
	noop.Tracer
	p *recordingProvider
}

func (t recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	t.p.mu.Lock()
	t.p.spans = append(t.p.spans, name)
	t.p.mu.Unlock()
	return t.Tracer.Start(ctx, name, opts...)
}

type doc struct {
	ID   string `bson:"_id"`
	Name string `bson:"Name"`
}

func TestWrap(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	tp := &recordingProvider{}
	inner := mock.New("test", bsonmap.NewRegistry())
	db := Wrap(inner, WithRegisterer(reg), WithTracerProvider(tp))

	assert.Equal(t, "test", db.Name())
	assert.Same(t, inner.ClassMaps(), db.ClassMaps())
	assert.Same(t, inner, db.Unwrap())

	coll := db.Collection("docs")
	require.NoError(t, coll.InsertOne(ctx, doc{ID: "a", Name: "one"}))
	require.NoError(t, coll.ReplaceOne(ctx, filter.ID("a"), doc{ID: "a", Name: "uno"}, false))
	require.NoError(t, coll.UpdateOne(ctx, filter.ID("a"), datastore.Set("Name", "eins"), false))

	n, err := coll.CountDocuments(ctx, filter.All())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	cur, err := coll.Find(ctx, filter.All(), nil)
	require.NoError(t, err)
	require.True(t, cur.Next(ctx))
	var got doc
	require.NoError(t, cur.Decode(&got))
	assert.Equal(t, "eins", got.Name)

	err = coll.InsertOne(ctx, doc{ID: "a"})
	require.Error(t, err)

	n, err = coll.DeleteMany(ctx, filter.All())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = coll.DeleteOne(ctx, filter.All())
	require.NoError(t, err)
	assert.Zero(t, n)

	ops := db.metrics.Operations
	assert.Equal(t, 1.0, testutil.ToFloat64(ops.WithLabelValues("docs", "insert_one", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(ops.WithLabelValues("docs", "insert_one", OutcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(ops.WithLabelValues("docs", "find", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(ops.WithLabelValues("docs", "delete_one", OutcomeOK)))
	assert.Equal(t, 8, testutil.CollectAndCount(ops))

	assert.Equal(t, []string{
		"doccontext.insert_one", "doccontext.replace_one", "doccontext.update_one",
		"doccontext.count_documents", "doccontext.find", "doccontext.insert_one",
		"doccontext.delete_many", "doccontext.delete_one",
	}, tp.spans)
}

func TestErrorsPassThrough(t *testing.T) {
	ctx := context.Background()
	errDown := errors.New("down")
	inner := mock.New("test", bsonmap.NewRegistry()).WithFindError(errDown)
	db := Wrap(inner, WithRegisterer(prometheus.NewRegistry()), WithTracerProvider(noop.NewTracerProvider()))

	_, err := db.Collection("docs").Find(ctx, filter.All(), nil)
	assert.Same(t, errDown, err)
	_, err = db.Collection("docs").CountDocuments(ctx, filter.All())
	assert.Same(t, errDown, err)
}
