/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package doccontext

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/suparena/doccontext/bsonmap"
	"github.com/suparena/doccontext/datastore"
	"github.com/suparena/doccontext/filter"
	"github.com/suparena/doccontext/mapping"
	"github.com/suparena/doccontext/registry"
)

// Context is the base of every context model. Embed it by value in the model
// struct; Model.New initializes it and fills the declared repository fields.
type Context struct {
	db       datastore.Database
	entities *registry.Registry
	log      *logrus.Entry

	mu sync.RWMutex
	// declared is keyed by exact set name. sets is keyed by lowercased set
	// name and entity type name.
	declared map[string]entitySet
	sets     map[string]entitySet
}

// entitySet is the untyped view of a Repository held by the set table.
type entitySet interface {
	setName() string
	entityType() reflect.Type
}

// DbContext returns c. Context models get it by embedding Context.
func (c *Context) DbContext() *Context { return c }

// Connection returns the database the context was created with.
func (c *Context) Connection() datastore.Database { return c.db }

// Registry returns the entity registry the context resolves collections with.
func (c *Context) Registry() *registry.Registry { return c.entities }

// ClassMaps returns the serialization registry of the connection.
func (c *Context) ClassMaps() *bsonmap.Registry { return c.db.ClassMaps() }

// SetNames returns the declared set names in no particular order.
func (c *Context) SetNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.declared))
	for name := range c.declared {
		names = append(names, name)
	}
	return names
}

func (c *Context) init(db datastore.Database, entities *registry.Registry, log *logrus.Entry) {
	c.db = db
	c.entities = entities
	c.log = log
	c.declared = make(map[string]entitySet)
	c.sets = make(map[string]entitySet)
}

// addSet stores s under its set name, and under its entity type name unless
// another set already uses that key.
func (c *Context) addSet(s entitySet) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := strings.ToLower(s.setName())
	if existing, exists := c.sets[key]; exists && strings.EqualFold(existing.setName(), s.setName()) {
		return fmt.Errorf("entity set %q already declared", s.setName())
	}
	c.declared[s.setName()] = s
	c.sets[key] = s

	typeKey := strings.ToLower(s.entityType().Name())
	if _, exists := c.sets[typeKey]; !exists {
		c.sets[typeKey] = s
	}
	return nil
}

func (c *Context) lookupSet(name string) (entitySet, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if s, ok := c.declared[name]; ok {
		return s, true
	}
	s, ok := c.sets[strings.ToLower(name)]
	return s, ok
}

// EntitySet returns the repository declared under name. The exact set name
// wins; otherwise name is matched without regard to case against set names
// and then against entity type names, so "widgets" and "Widget" both find a
// set declared as "Widgets" of type Widget. It reports false when no such
// set exists or when its entity type is not T.
func EntitySet[T any](c *Context, name string) (*Repository[T], bool) {
	s, ok := c.lookupSet(name)
	if !ok {
		return nil, false
	}
	r, ok := s.(*Repository[T])
	return r, ok
}

// CollectionName resolves the collection of T: the registered descriptor,
// then the entity's own CollectionName, then the bare type name.
func CollectionName[T any](c *Context) string {
	t := typeOf[T]()
	if d, ok := c.entities.Lookup(t); ok && d.Collection != "" {
		return d.Collection
	}
	if name, ok := mapping.AnnotatedCollection(t); ok {
		return name
	}
	return t.Name()
}

// CollectionFor returns the collection handle of T.
func CollectionFor[T any](c *Context) datastore.Collection {
	return c.db.Collection(CollectionName[T](c))
}

// QueryFor starts a query over T's collection. When T is stored with a
// required discriminator, the query only sees documents of type T.
func QueryFor[T any](c *Context) *Query[T] {
	return &Query[T]{
		ctx:   c,
		scope: scopeOf[T](c),
	}
}

// scopeOf returns the filter every read and bulk delete of T is limited to.
func scopeOf[T any](c *Context) filter.Filter {
	cm, ok := c.ClassMaps().Lookup(typeOf[T]())
	if !ok || !cm.DiscriminatorIsRequired() {
		return filter.All()
	}
	return filter.Eq(bsonmap.DiscriminatorElement, cm.Discriminator())
}

func typeOf[T any]() reflect.Type {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}
