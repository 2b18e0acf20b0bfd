/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mapping

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/suparena/doccontext/bsonmap"
	"github.com/suparena/doccontext/errors"
	"github.com/suparena/doccontext/identity"
	"github.com/suparena/doccontext/registry"
)

// CollectionNamer is implemented by entities that name their own collection.
type CollectionNamer interface {
	CollectionName() string
}

// Discriminated is implemented by entities sharing a collection with other
// types. The value is stored in _t and every read of the type filters on it.
type Discriminated interface {
	Discriminator() string
}

// Set is one declared entity set of a context model.
type Set struct {
	Name string
	Type reflect.Type
}

// Procedure registers a set by hand, replacing the default steps for that set.
type Procedure func(b *Builder, set Set)

// Builder resolves and registers the storage metadata of one context model.
type Builder struct {
	model      string
	entities   *registry.Registry
	classMaps  *bsonmap.Registry
	overrides  map[string]string
	procedures map[string]Procedure
	log        *logrus.Entry
}

// New creates a builder for the named context model.
func New(model string, entities *registry.Registry, classMaps *bsonmap.Registry) *Builder {
	if entities == nil {
		entities = registry.Default()
	}
	if classMaps == nil {
		classMaps = bsonmap.Default()
	}
	return &Builder{
		model:      model,
		entities:   entities,
		classMaps:  classMaps,
		overrides:  make(map[string]string),
		procedures: make(map[string]Procedure),
		log:        logrus.NewEntry(logrus.StandardLogger()),
	}
}

// WithLogger sets the entry registration is logged to.
func (b *Builder) WithLogger(log *logrus.Entry) *Builder {
	if log != nil {
		b.log = log
	}
	return b
}

// Map stores the set in the named collection, overriding the entity's own
// CollectionName and the naming convention.
func (b *Builder) Map(set, collection string) *Builder {
	if collection == "" {
		panic(errors.NewConfigurationError(b.model, set, "empty collection name"))
	}
	b.overrides[strings.ToLower(set)] = collection
	return b
}

// MapWith registers the set with proc instead of the default steps. A nil
// procedure panics with a ConfigurationError.
func (b *Builder) MapWith(set string, proc Procedure) *Builder {
	if proc == nil {
		panic(errors.NewConfigurationError(b.model, set, "registration procedure is nil"))
	}
	b.procedures[strings.ToLower(set)] = proc
	return b
}

// Key identifies this model's registration in the entity registry.
func (b *Builder) Key() string {
	return fmt.Sprintf("%s@%p", b.model, b.classMaps)
}

// Build registers every set once per model and class-map registry. It
// reports whether this call did the work; later calls are no-ops.
func (b *Builder) Build(sets []Set) bool {
	for _, s := range sets {
		if s.Type == nil || s.Name == "" {
			panic(errors.NewConfigurationError(b.model, s.Name, "set needs a name and an entity type"))
		}
	}

	return b.entities.Once(b.Key(), func() {
		for _, s := range sets {
			s.Type = indirect(s.Type)
			if proc, ok := b.procedures[strings.ToLower(s.Name)]; ok {
				b.log.WithField("set", s.Name).Debug("custom registration procedure")
				proc(b, s)
				continue
			}
			b.registerDefault(s)
		}
	})
}

func (b *Builder) registerDefault(s Set) {
	collection := b.CollectionName(s)
	cm, ok := b.classMaps.Lookup(s.Type)
	if !ok {
		cm = AutoMap(s.Type)
	}

	var idField string
	if m, ok := cm.IDMember(); ok {
		idField = m.FieldName
	}
	b.Register(registry.EntityDescriptor{
		Type:            s.Type,
		Collection:      collection,
		IdentifierField: idField,
		Discriminator:   cm.Discriminator(),
	})
	if !ok {
		b.RegisterClassMap(cm)
	}
}

// CollectionName resolves the collection of a set: a Map override, then the
// entity's CollectionName, then the type name plus "s".
func (b *Builder) CollectionName(s Set) string {
	if name, ok := b.overrides[strings.ToLower(s.Name)]; ok {
		return name
	}
	if name, ok := AnnotatedCollection(s.Type); ok {
		return name
	}
	return indirect(s.Type).Name() + "s"
}

// Register stores a descriptor and claims its discriminator. Both are no-ops
// when already present.
func (b *Builder) Register(d registry.EntityDescriptor) bool {
	stored := b.entities.Register(d)
	if d.Discriminator != "" {
		b.entities.RegisterDiscriminator(d.Discriminator, d.Type)
	}
	b.log.WithFields(logrus.Fields{
		"model":      b.model,
		"entity":     d.Type.String(),
		"collection": d.Collection,
		"stored":     stored,
	}).Debug("entity registered")
	return stored
}

// RegisterClassMap adds cm to the class-map registry unless the type already
// has one.
func (b *Builder) RegisterClassMap(cm *bsonmap.ClassMap) bool {
	return b.classMaps.Register(cm)
}

// ClassMaps returns the class-map registry the builder writes to.
func (b *Builder) ClassMaps() *bsonmap.Registry { return b.classMaps }

// AutoMap builds the default class map of t: every exported field, unknown
// elements ignored, the identifier stored as _id, canonical codecs for time
// and decimal members, and a required discriminator for Discriminated types.
func AutoMap(t reflect.Type) *bsonmap.ClassMap {
	t = indirect(t)
	cm := bsonmap.NewClassMap(t).AutoMap()
	cm.SetIgnoreExtraElements(true)
	cm.SetIgnoreExtraElementsIsInherited(true)

	if f, ok := identity.Resolve(t, ""); ok {
		cm.SetIDMember(cm.MapMember(f.Name))
	}
	for _, m := range cm.Members() {
		switch {
		case bsonmap.IsDateTime(m.Type):
			m.SetSerializer(bsonmap.DateTimeCodec{})
		case bsonmap.IsDecimal(m.Type):
			m.SetSerializer(bsonmap.DecimalCodec{})
		}
	}
	if d, ok := reflect.New(t).Interface().(Discriminated); ok {
		cm.SetDiscriminator(d.Discriminator())
		cm.SetDiscriminatorIsRequired(true)
	}
	return cm
}

// AnnotatedCollection returns the collection an entity type names for itself.
func AnnotatedCollection(t reflect.Type) (string, bool) {
	n, ok := reflect.New(indirect(t)).Interface().(CollectionNamer)
	if !ok {
		return "", false
	}
	name := n.CollectionName()
	return name, name != ""
}

func indirect(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}
