/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package doccontext

import (
	"reflect"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/suparena/doccontext/datastore"
	"github.com/suparena/doccontext/errors"
	"github.com/suparena/doccontext/logging"
	"github.com/suparena/doccontext/mapping"
	"github.com/suparena/doccontext/registry"
)

// SetDef declares one entity set of the context model C.
type SetDef[C any] struct {
	name string
	typ  reflect.Type
	bind func(model *C, c *Context) entitySet
}

// Set declares an entity set named name whose repository is stored in the
// field field returns. A nil accessor declares a set reachable only through
// EntitySet.
func Set[C, T any](name string, field func(*C) **Repository[T]) SetDef[C] {
	return SetDef[C]{
		name: name,
		typ:  typeOf[T](),
		bind: func(model *C, c *Context) entitySet {
			r := newRepository[T](c, name)
			if field != nil {
				*field(model) = r
			}
			return r
		},
	}
}

// Model is the declaration of a context type C: its entity sets and their
// mapping overrides. Build it once, typically in a package variable, and
// create contexts with New.
type Model[C any] struct {
	name       string
	sets       []SetDef[C]
	overrides  map[string]string
	procedures map[string]mapping.Procedure
	contextOf  func(*C) *Context
}

// NewModel declares the context model C. C must embed Context.
func NewModel[C any, P interface {
	*C
	DbContext() *Context
}](sets ...SetDef[C]) *Model[C] {
	t := reflect.TypeOf((*C)(nil)).Elem()
	m := &Model[C]{
		name:       t.PkgPath() + "." + t.Name(),
		overrides:  make(map[string]string),
		procedures: make(map[string]mapping.Procedure),
		contextOf:  func(c *C) *Context { return P(c).DbContext() },
	}

	seen := make(map[string]bool, len(sets))
	for _, s := range sets {
		key := strings.ToLower(s.name)
		if s.name == "" || seen[key] {
			panic(errors.NewConfigurationError(m.name, s.name, "set names must be unique and not empty"))
		}
		seen[key] = true
		m.sets = append(m.sets, s)
	}
	return m
}

// Name returns the key the model is registered under.
func (m *Model[C]) Name() string { return m.name }

// Map stores a set in the named collection. The override wins over the
// entity's own CollectionName.
func (m *Model[C]) Map(set, collection string) *Model[C] {
	m.mustDeclare(set)
	if collection == "" {
		panic(errors.NewConfigurationError(m.name, set, "empty collection name"))
	}
	m.overrides[set] = collection
	return m
}

// MapWith registers a set with proc instead of the default mapping steps.
// A nil procedure panics with a ConfigurationError.
func (m *Model[C]) MapWith(set string, proc mapping.Procedure) *Model[C] {
	m.mustDeclare(set)
	if proc == nil {
		panic(errors.NewConfigurationError(m.name, set, "registration procedure is nil"))
	}
	m.procedures[set] = proc
	return m
}

func (m *Model[C]) mustDeclare(set string) {
	for _, s := range m.sets {
		if strings.EqualFold(s.name, set) {
			return
		}
	}
	panic(errors.NewConfigurationError(m.name, set, "no such entity set"))
}

// New creates a context on db. The first context of a model registers the
// model's mapping; every later one, concurrent or not, reuses it.
func (m *Model[C]) New(db datastore.Database, opts ...Option) *C {
	o := options{
		entities: registry.Default(),
		log:      logging.Named("doccontext"),
	}
	for _, opt := range opts {
		opt(&o)
	}

	b := mapping.New(m.name, o.entities, db.ClassMaps()).WithLogger(o.log)
	for set, collection := range m.overrides {
		b.Map(set, collection)
	}
	for set, proc := range m.procedures {
		b.MapWith(set, proc)
	}
	if b.Build(m.mappingSets()) {
		o.log.WithFields(logrus.Fields{"model": m.name, "sets": len(m.sets)}).Debug("context model mapped")
	}

	model := new(C)
	c := m.contextOf(model)
	c.init(db, o.entities, o.log)
	for _, s := range m.sets {
		if err := c.addSet(s.bind(model, c)); err != nil {
			panic(errors.NewConfigurationError(m.name, s.name, err.Error()))
		}
	}
	return model
}

func (m *Model[C]) mappingSets() []mapping.Set {
	out := make([]mapping.Set, 0, len(m.sets))
	for _, s := range m.sets {
		out = append(out, mapping.Set{Name: s.name, Type: s.typ})
	}
	return out
}

type options struct {
	entities *registry.Registry
	log      *logrus.Entry
}

// Option configures a context.
type Option func(*options)

// WithRegistry resolves and registers entities in r instead of registry.Default().
func WithRegistry(r *registry.Registry) Option {
	return func(o *options) {
		if r != nil {
			o.entities = r
		}
	}
}

// WithLogger sets the entry the context and its mapping log to.
func WithLogger(log *logrus.Entry) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}
