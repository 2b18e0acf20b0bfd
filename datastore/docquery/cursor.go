/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package docquery

import (
	"context"
	"errors"
	"sort"

	"github.com/suparena/doccontext/bsonmap"
	"github.com/suparena/doccontext/datastore"
	"go.mongodb.org/mongo-driver/bson"
)

// Filter returns the documents matching query, in their stored order.
func Filter(docs []bson.Raw, query bson.Raw) ([]bson.Raw, error) {
	out := make([]bson.Raw, 0, len(docs))
	for _, doc := range docs {
		ok, err := Match(query, doc)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, doc)
		}
	}
	return out, nil
}

// Index returns the position of the first document matching query, or -1.
func Index(docs []bson.Raw, query bson.Raw) (int, error) {
	for i, doc := range docs {
		ok, err := Match(query, doc)
		if err != nil {
			return -1, err
		}
		if ok {
			return i, nil
		}
	}
	return -1, nil
}

// Sort orders docs in place. Documents that tie keep their stored order.
func Sort(docs []bson.Raw, fields []datastore.SortField) {
	if len(fields) == 0 {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for _, f := range fields {
			a, _ := lookup(docs[i], f.Field)
			b, _ := lookup(docs[j], f.Field)
			c := Compare(a, b)
			if f.Descending {
				c = -c
			}
			if c != 0 {
				return c < 0
			}
		}
		return false
	})
}

// Window applies skip and limit. A non-positive limit means no limit.
func Window(docs []bson.Raw, skip, limit int64) []bson.Raw {
	if skip > 0 {
		if skip >= int64(len(docs)) {
			return nil
		}
		docs = docs[skip:]
	}
	if limit > 0 && limit < int64(len(docs)) {
		docs = docs[:limit]
	}
	return docs
}

// Find filters, sorts and windows docs the way a server side find would.
func Find(docs []bson.Raw, query bson.Raw, opts *datastore.FindOptions) ([]bson.Raw, error) {
	matched, err := Filter(docs, query)
	if err != nil {
		return nil, err
	}
	if opts == nil {
		return matched, nil
	}
	Sort(matched, opts.Sort)
	return Window(matched, opts.Skip, opts.Limit), nil
}

var errCursorClosed = errors.New("docquery: cursor is closed")

// Cursor iterates over documents already loaded in memory.
type Cursor struct {
	docs    []bson.Raw
	current bson.Raw
	maps    *bsonmap.Registry
	err     error
	closed  bool
}

// NewCursor returns a cursor over docs decoding with maps.
func NewCursor(docs []bson.Raw, maps *bsonmap.Registry) *Cursor {
	return &Cursor{docs: docs, maps: maps}
}

func (c *Cursor) Next(ctx context.Context) bool {
	if c.closed || c.err != nil || len(c.docs) == 0 {
		return false
	}
	if err := ctx.Err(); err != nil {
		c.err = err
		return false
	}
	c.current, c.docs = c.docs[0], c.docs[1:]
	return true
}

func (c *Cursor) Decode(v any) error {
	if c.closed {
		return errCursorClosed
	}
	return c.maps.Unmarshal(c.current, v)
}

// Current returns the raw document Next moved to.
func (c *Cursor) Current() bson.Raw { return c.current }

func (c *Cursor) Err() error { return c.err }

func (c *Cursor) Close(context.Context) error {
	c.closed = true
	c.docs = nil
	return nil
}

var _ datastore.Cursor = (*Cursor)(nil)
