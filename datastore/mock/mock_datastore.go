/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package mock provides an in-memory datastore.Database for testing
package mock

import (
	"context"
	"sort"
	"sync"

	"github.com/suparena/doccontext/bsonmap"
	"github.com/suparena/doccontext/datastore"
	"github.com/suparena/doccontext/datastore/docquery"
	"github.com/suparena/doccontext/errors"
	"github.com/suparena/doccontext/filter"
	"go.mongodb.org/mongo-driver/bson"
)

// Database is an in-memory implementation of datastore.Database. Documents
// keep insertion order, and filters are evaluated with docquery.
type Database struct {
	name string
	maps *bsonmap.Registry

	mu          sync.RWMutex
	collections map[string][]bson.Raw

	insertError  error
	replaceError error
	deleteError  error
	updateError  error
	findError    error
}

// New creates an empty mock database. A nil registry means bsonmap.Default().
func New(name string, maps *bsonmap.Registry) *Database {
	if maps == nil {
		maps = bsonmap.Default()
	}
	return &Database{
		name:        name,
		maps:        maps,
		collections: make(map[string][]bson.Raw),
	}
}

// WithInsertError makes InsertOne operations return an error
func (m *Database) WithInsertError(err error) *Database {
	m.insertError = err
	return m
}

// WithReplaceError makes ReplaceOne operations return an error
func (m *Database) WithReplaceError(err error) *Database {
	m.replaceError = err
	return m
}

// WithDeleteError makes DeleteOne and DeleteMany operations return an error
func (m *Database) WithDeleteError(err error) *Database {
	m.deleteError = err
	return m
}

// WithUpdateError makes UpdateOne operations return an error
func (m *Database) WithUpdateError(err error) *Database {
	m.updateError = err
	return m
}

// WithFindError makes Find and CountDocuments operations return an error
func (m *Database) WithFindError(err error) *Database {
	m.findError = err
	return m
}

func (m *Database) Name() string { return m.name }

func (m *Database) ClassMaps() *bsonmap.Registry { return m.maps }

func (m *Database) Collection(name string) datastore.Collection {
	return &Collection{db: m, name: name}
}

// Helper methods for testing

// SetDocuments replaces the contents of a collection with the encoded documents.
func (m *Database) SetDocuments(collection string, documents ...any) error {
	docs := make([]bson.Raw, 0, len(documents))
	for _, d := range documents {
		raw, err := m.maps.Marshal(d)
		if err != nil {
			return err
		}
		if raw, _, err = docquery.EnsureID(raw); err != nil {
			return err
		}
		docs = append(docs, raw)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[collection] = docs
	return nil
}

// Documents returns a copy of a collection's documents in stored order.
func (m *Database) Documents(collection string) []bson.Raw {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]bson.Raw(nil), m.collections[collection]...)
}

// Count returns the number of documents in a collection
func (m *Database) Count(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.collections[collection])
}

// CollectionNames returns the names of collections holding documents.
func (m *Database) CollectionNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.collections))
	for name, docs := range m.collections {
		if len(docs) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Clear removes all data
func (m *Database) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections = make(map[string][]bson.Raw)
}

// Collection is a handle to one collection of a mock Database.
type Collection struct {
	db   *Database
	name string
}

func (c *Collection) Name() string { return c.name }

func (c *Collection) InsertOne(ctx context.Context, document any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.db.insertError != nil {
		return c.db.insertError
	}

	raw, err := c.db.maps.Marshal(document)
	if err != nil {
		return err
	}
	raw, id, err := docquery.EnsureID(raw)
	if err != nil {
		return err
	}

	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	return c.insertLocked(raw, id)
}

func (c *Collection) ReplaceOne(ctx context.Context, f filter.Filter, document any, upsert bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.db.replaceError != nil {
		return c.db.replaceError
	}

	query, err := docquery.Compile(f, c.db.maps)
	if err != nil {
		return err
	}
	raw, err := c.db.maps.Marshal(document)
	if err != nil {
		return err
	}

	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	docs := c.db.collections[c.name]
	idx, err := docquery.Index(docs, query)
	if err != nil {
		return err
	}
	if idx >= 0 {
		existing := docs[idx].Lookup(bsonmap.IDElement)
		if id, err := raw.LookupErr(bsonmap.IDElement); err == nil && !docquery.Equal(id, existing) {
			return errors.NewValidationError(bsonmap.IDElement, "replacement cannot change the document identity")
		}
		if raw, err = docquery.WithID(raw, existing); err != nil {
			return err
		}
		docs[idx] = raw
		return nil
	}
	if !upsert {
		return nil
	}

	if _, err := raw.LookupErr(bsonmap.IDElement); err != nil {
		seed, err := docquery.Seed(f, c.db.maps)
		if err != nil {
			return err
		}
		if id, err := seed.LookupErr(bsonmap.IDElement); err == nil {
			if raw, err = docquery.WithID(raw, id); err != nil {
				return err
			}
		}
	}
	raw, id, err := docquery.EnsureID(raw)
	if err != nil {
		return err
	}
	return c.insertLocked(raw, id)
}

func (c *Collection) DeleteOne(ctx context.Context, f filter.Filter) (int64, error) {
	return c.delete(ctx, f, 1)
}

func (c *Collection) DeleteMany(ctx context.Context, f filter.Filter) (int64, error) {
	return c.delete(ctx, f, 0)
}

func (c *Collection) delete(ctx context.Context, f filter.Filter, limit int) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if c.db.deleteError != nil {
		return 0, c.db.deleteError
	}
	query, err := docquery.Compile(f, c.db.maps)
	if err != nil {
		return 0, err
	}

	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	docs := c.db.collections[c.name]
	kept := make([]bson.Raw, 0, len(docs))
	var deleted int64
	for _, doc := range docs {
		if limit == 0 || deleted < int64(limit) {
			ok, err := docquery.Match(query, doc)
			if err != nil {
				return 0, err
			}
			if ok {
				deleted++
				continue
			}
		}
		kept = append(kept, doc)
	}
	c.db.collections[c.name] = kept
	return deleted, nil
}

func (c *Collection) UpdateOne(ctx context.Context, f filter.Filter, u datastore.Update, upsert bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.db.updateError != nil {
		return c.db.updateError
	}
	query, err := docquery.Compile(f, c.db.maps)
	if err != nil {
		return err
	}
	set, err := docquery.EncodeSet(u, c.db.maps)
	if err != nil {
		return err
	}

	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	docs := c.db.collections[c.name]
	idx, err := docquery.Index(docs, query)
	if err != nil {
		return err
	}
	if idx >= 0 {
		updated, err := docquery.ApplySet(docs[idx], set)
		if err != nil {
			return err
		}
		docs[idx] = updated
		return nil
	}
	if !upsert {
		return nil
	}

	seed, err := docquery.Seed(f, c.db.maps)
	if err != nil {
		return err
	}
	doc, err := docquery.ApplySet(seed, set)
	if err != nil {
		return err
	}
	doc, id, err := docquery.EnsureID(doc)
	if err != nil {
		return err
	}
	return c.insertLocked(doc, id)
}

func (c *Collection) Find(ctx context.Context, f filter.Filter, opts *datastore.FindOptions) (datastore.Cursor, error) {
	docs, err := c.find(ctx, f, opts)
	if err != nil {
		return nil, err
	}
	return docquery.NewCursor(docs, c.db.maps), nil
}

func (c *Collection) CountDocuments(ctx context.Context, f filter.Filter) (int64, error) {
	docs, err := c.find(ctx, f, nil)
	if err != nil {
		return 0, err
	}
	return int64(len(docs)), nil
}

func (c *Collection) find(ctx context.Context, f filter.Filter, opts *datastore.FindOptions) ([]bson.Raw, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.db.findError != nil {
		return nil, c.db.findError
	}
	query, err := docquery.Compile(f, c.db.maps)
	if err != nil {
		return nil, err
	}

	c.db.mu.RLock()
	snapshot := append([]bson.Raw(nil), c.db.collections[c.name]...)
	c.db.mu.RUnlock()

	return docquery.Find(snapshot, query, opts)
}

// insertLocked appends doc unless its identity is taken. Callers hold db.mu.
func (c *Collection) insertLocked(doc bson.Raw, id bson.RawValue) error {
	key := docquery.IDKey(id)
	for _, existing := range c.db.collections[c.name] {
		if docquery.IDKey(existing.Lookup(bsonmap.IDElement)) == key {
			return errors.NewAlreadyExistsError(c.name, key)
		}
	}
	c.db.collections[c.name] = append(c.db.collections[c.name], doc)
	return nil
}

var (
	_ datastore.Database   = (*Database)(nil)
	_ datastore.Collection = (*Collection)(nil)
)
