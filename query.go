/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package doccontext

import (
	"context"

	"github.com/suparena/doccontext/async"
	"github.com/suparena/doccontext/datastore"
	"github.com/suparena/doccontext/filter"
)

// Query is a lazy, composable read over one entity type. Each method returns
// a new query; nothing touches the store until a terminal method runs.
type Query[T any] struct {
	ctx     *Context
	scope   filter.Filter
	filters []filter.Filter
	sort    []datastore.SortField
	skip    int64
	limit   int64
}

func (q *Query[T]) clone() *Query[T] {
	c := *q
	c.filters = append([]filter.Filter(nil), q.filters...)
	c.sort = append([]datastore.SortField(nil), q.sort...)
	return &c
}

// Where narrows the query to documents that also match f.
func (q *Query[T]) Where(f filter.Filter) *Query[T] {
	c := q.clone()
	if !filter.IsAll(f) {
		c.filters = append(c.filters, f)
	}
	return c
}

// OrderBy sorts ascending by key, after any earlier sort keys. Go field names
// of mapped entities are translated to their element names.
func (q *Query[T]) OrderBy(key string) *Query[T] {
	c := q.clone()
	c.sort = append(c.sort, datastore.SortField{Field: q.elementName(key)})
	return c
}

// OrderByDescending sorts descending by key, after any earlier sort keys.
func (q *Query[T]) OrderByDescending(key string) *Query[T] {
	c := q.clone()
	c.sort = append(c.sort, datastore.SortField{Field: q.elementName(key), Descending: true})
	return c
}

// Skip bypasses the first n results. Repeated calls add up.
func (q *Query[T]) Skip(n int64) *Query[T] {
	c := q.clone()
	if n > 0 {
		c.skip += n
		if c.limit > 0 {
			c.limit -= n
			if c.limit <= 0 {
				c.limit = -1
			}
		}
	}
	return c
}

// Take returns at most n results. Zero or less removes the limit.
func (q *Query[T]) Take(n int64) *Query[T] {
	c := q.clone()
	switch {
	case n <= 0:
		c.limit = 0
	case c.limit == 0 || n < c.limit:
		c.limit = n
	}
	return c
}

// Filter returns the combined predicate of the query, scope included.
func (q *Query[T]) Filter() filter.Filter {
	return filter.And(append([]filter.Filter{q.scope}, q.filters...)...)
}

// FindOptions returns the sort and window of the query.
func (q *Query[T]) FindOptions() *datastore.FindOptions {
	return &datastore.FindOptions{Sort: q.sort, Skip: q.skip, Limit: q.limit}
}

func (q *Query[T]) collection() datastore.Collection {
	return CollectionFor[T](q.ctx)
}

func (q *Query[T]) elementName(key string) string {
	if cm, ok := q.ctx.ClassMaps().Lookup(typeOf[T]()); ok {
		return cm.ElementName(key)
	}
	return key
}

// empty reports whether Skip consumed the whole Take window.
func (q *Query[T]) empty() bool { return q.limit < 0 }

// ToList runs the query and decodes every result.
func (q *Query[T]) ToList(ctx context.Context) ([]T, error) {
	return q.ToListAsync(ctx).Await()
}

// ToListAsync is the non-blocking form of ToList.
func (q *Query[T]) ToListAsync(ctx context.Context) *async.Task[[]T] {
	return async.Run(ctx, q.toList)
}

func (q *Query[T]) toList(ctx context.Context) ([]T, error) {
	out := []T{}
	if q.empty() {
		return out, nil
	}
	cur, err := q.collection().Find(ctx, q.Filter(), q.FindOptions())
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var item T
		if err := cur.Decode(&item); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// First returns the first result, or nil when there is none.
func (q *Query[T]) First(ctx context.Context) (*T, error) {
	return q.FirstAsync(ctx).Await()
}

// FirstAsync is the non-blocking form of First.
func (q *Query[T]) FirstAsync(ctx context.Context) *async.Task[*T] {
	return async.Run(ctx, func(ctx context.Context) (*T, error) {
		items, err := q.Take(1).toList(ctx)
		if err != nil || len(items) == 0 {
			return nil, err
		}
		return &items[0], nil
	})
}

// Any reports whether the query has at least one result.
func (q *Query[T]) Any(ctx context.Context) (bool, error) {
	return q.AnyAsync(ctx).Await()
}

// AnyAsync is the non-blocking form of Any.
func (q *Query[T]) AnyAsync(ctx context.Context) *async.Task[bool] {
	return async.Run(ctx, func(ctx context.Context) (bool, error) {
		n, err := q.Take(1).count(ctx)
		return n > 0, err
	})
}

// Count returns the number of results, honoring Skip and Take.
func (q *Query[T]) Count(ctx context.Context) (int64, error) {
	return q.CountAsync(ctx).Await()
}

// CountAsync is the non-blocking form of Count.
func (q *Query[T]) CountAsync(ctx context.Context) *async.Task[int64] {
	return async.Run(ctx, q.count)
}

func (q *Query[T]) count(ctx context.Context) (int64, error) {
	if q.empty() {
		return 0, nil
	}
	n, err := q.collection().CountDocuments(ctx, q.Filter())
	if err != nil {
		return 0, err
	}
	n -= q.skip
	if n < 0 {
		n = 0
	}
	if q.limit > 0 && n > q.limit {
		n = q.limit
	}
	return n, nil
}
