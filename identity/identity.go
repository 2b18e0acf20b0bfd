/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package identity knows which identifier types can be generated client side
// and what their "not yet assigned" value is.
package identity

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type kind struct {
	empty    reflect.Value
	generate func() reflect.Value
}

var (
	mu    sync.RWMutex
	kinds = map[reflect.Type]kind{}
)

func init() {
	Register(primitive.NilObjectID, primitive.NewObjectID)
	Register(uuid.Nil, uuid.New)
	Register(strfmt.ObjectId(primitive.NilObjectID), func() strfmt.ObjectId {
		return strfmt.ObjectId(primitive.NewObjectID())
	})
	Register(strfmt.UUID(""), func() strfmt.UUID {
		return strfmt.UUID(uuid.NewString())
	})
}

// Register makes T a generatable identifier type with the given empty value.
// Registering an existing type replaces it.
func Register[T comparable](empty T, generate func() T) {
	mu.Lock()
	defer mu.Unlock()
	kinds[reflect.TypeOf(empty)] = kind{
		empty:    reflect.ValueOf(empty),
		generate: func() reflect.Value { return reflect.ValueOf(generate()) },
	}
}

// Generatable reports whether identifiers of type t can be produced here.
func Generatable(t reflect.Type) bool {
	mu.RLock()
	defer mu.RUnlock()
	_, ok := kinds[t]
	return ok
}

// IsEmpty reports whether v holds the empty sentinel of a generatable type.
// Values of any other type are never empty: they always go through upsert.
func IsEmpty(v reflect.Value) bool {
	mu.RLock()
	k, ok := kinds[v.Type()]
	mu.RUnlock()
	if !ok {
		return false
	}
	return v.Interface() == k.empty.Interface()
}

// New returns a fresh identifier of type t.
func New(t reflect.Type) (reflect.Value, bool) {
	mu.RLock()
	k, ok := kinds[t]
	mu.RUnlock()
	if !ok {
		return reflect.Value{}, false
	}
	return k.generate(), true
}

// Field is the resolved identifier of an entity type.
type Field struct {
	Name  string
	Index []int
	Type  reflect.Type
}

// Resolve picks the identifier field of t: the field tagged `bson:"_id"`,
// then the field named hint, then the first field named "id" in any case.
func Resolve(t reflect.Type, hint string) (*Field, bool) {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, false
	}

	fields := reflect.VisibleFields(t)
	for _, f := range fields {
		if !f.IsExported() || f.Anonymous {
			continue
		}
		if name, _, _ := strings.Cut(f.Tag.Get("bson"), ","); name == "_id" {
			return &Field{Name: f.Name, Index: f.Index, Type: f.Type}, true
		}
	}
	if hint != "" {
		if f, ok := t.FieldByName(hint); ok && f.IsExported() {
			return &Field{Name: f.Name, Index: f.Index, Type: f.Type}, true
		}
	}
	for _, f := range fields {
		if f.IsExported() && !f.Anonymous && strings.EqualFold(f.Name, "id") {
			return &Field{Name: f.Name, Index: f.Index, Type: f.Type}, true
		}
	}
	return nil, false
}

// Value reads the identifier from a struct value.
func (f *Field) Value(entity reflect.Value) reflect.Value {
	return reflect.Indirect(entity).FieldByIndex(f.Index)
}

// IsEmpty reports whether the entity's identifier is still unassigned.
func (f *Field) IsEmpty(entity reflect.Value) bool {
	return IsEmpty(f.Value(entity))
}

// Assign stores a freshly generated identifier on the entity. It returns
// false when the identifier type cannot be generated.
func (f *Field) Assign(entity reflect.Value) bool {
	id, ok := New(f.Type)
	if !ok {
		return false
	}
	f.Value(entity).Set(id)
	return true
}
