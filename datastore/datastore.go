/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"

	"github.com/suparena/doccontext/bsonmap"
	"github.com/suparena/doccontext/filter"
	"go.mongodb.org/mongo-driver/bson"
)

// Database is a connection to one logical document database.
type Database interface {
	// Name returns the database name.
	Name() string

	// Collection returns a handle to the named collection. Handles are cheap
	// and need not be cached.
	Collection(name string) Collection

	// ClassMaps returns the serialization registry documents are encoded with.
	ClassMaps() *bsonmap.Registry
}

// Collection is a named container of documents.
type Collection interface {
	Name() string

	InsertOne(ctx context.Context, document any) error

	// ReplaceOne replaces the first document matching f. With upsert set and
	// no match, document is inserted.
	ReplaceOne(ctx context.Context, f filter.Filter, document any, upsert bool) error

	DeleteOne(ctx context.Context, f filter.Filter) (int64, error)

	DeleteMany(ctx context.Context, f filter.Filter) (int64, error)

	// UpdateOne applies u to the first document matching f. With upsert set
	// and no match, a document built from the equalities of f plus u is inserted.
	UpdateOne(ctx context.Context, f filter.Filter, u Update, upsert bool) error

	Find(ctx context.Context, f filter.Filter, opts *FindOptions) (Cursor, error)

	CountDocuments(ctx context.Context, f filter.Filter) (int64, error)
}

// Cursor iterates over query results. *mongo.Cursor satisfies it.
type Cursor interface {
	Next(ctx context.Context) bool
	Decode(v any) error
	Err() error
	Close(ctx context.Context) error
}

// SortField orders results by one element.
type SortField struct {
	Field      string
	Descending bool
}

// FindOptions shapes a Find call. The zero value returns every match in
// stored order.
type FindOptions struct {
	Sort  []SortField
	Skip  int64
	Limit int64
}

// SortDocument renders the sort specification.
func (o *FindOptions) SortDocument() bson.D {
	if o == nil || len(o.Sort) == 0 {
		return nil
	}
	d := make(bson.D, 0, len(o.Sort))
	for _, s := range o.Sort {
		dir := 1
		if s.Descending {
			dir = -1
		}
		d = append(d, bson.E{Key: s.Field, Value: dir})
	}
	return d
}

// Update is a field-level modification.
type Update struct {
	set bson.D
}

// Set starts an update that sets field to value.
func Set(field string, value any) Update {
	return Update{}.Set(field, value)
}

// Set adds another field assignment.
func (u Update) Set(field string, value any) Update {
	set := make(bson.D, len(u.set), len(u.set)+1)
	copy(set, u.set)
	u.set = append(set, bson.E{Key: field, Value: value})
	return u
}

// Fields returns the assignments in order.
func (u Update) Fields() bson.D {
	return u.set
}

// Render returns the update document.
func (u Update) Render() bson.D {
	return bson.D{{Key: "$set", Value: u.set}}
}
