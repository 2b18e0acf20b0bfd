/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package bsonmap

import (
	"fmt"
	"reflect"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsoncodec"
)

// Registry holds the class maps of a process (or of a test) and the codec
// registry the drivers marshal with. The codec registry is built once; class
// maps registered later are picked up because every struct is dispatched
// through the registry at encode time.
type Registry struct {
	mu        sync.RWMutex
	classMaps map[reflect.Type]*ClassMap
	order     []reflect.Type

	codecs *bsoncodec.Registry
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// Default returns the process-wide class map registry.
func Default() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates an empty registry with the canonical codecs installed.
func NewRegistry() *Registry {
	r := &Registry{classMaps: make(map[reflect.Type]*ClassMap)}

	fallback, err := bsoncodec.NewStructCodec(bsoncodec.DefaultStructTagParser)
	if err != nil {
		panic(fmt.Sprintf("bsonmap: default struct codec: %v", err))
	}
	codecs := bson.NewRegistry()
	dispatch := &structCodec{maps: r, fallback: fallback}
	codecs.RegisterKindEncoder(reflect.Struct, dispatch)
	codecs.RegisterKindDecoder(reflect.Struct, dispatch)

	canonical := []struct {
		t     reflect.Type
		codec bsoncodec.ValueCodec
	}{
		{tTime, DateTimeCodec{}},
		{tStrfmtDateTime, DateTimeCodec{}},
		{tBigFloat, DecimalCodec{}},
		{tStrfmtUUID, uuidStringCodec{}},
	}
	// Pointer types are registered too, otherwise strfmt's own BSON hooks win
	// the lookup for *strfmt.DateTime and *strfmt.UUID.
	for _, c := range canonical {
		for _, t := range []reflect.Type{c.t, reflect.PointerTo(c.t)} {
			codecs.RegisterTypeEncoder(t, c.codec)
			codecs.RegisterTypeDecoder(t, c.codec)
		}
	}

	r.codecs = codecs
	return r
}

// IsRegistered reports whether a class map exists for t.
func (r *Registry) IsRegistered(t reflect.Type) bool {
	_, ok := r.Lookup(t)
	return ok
}

// Register stores cm unless a class map for the same type exists. The stored
// map is frozen. It returns false when cm was not stored.
func (r *Registry) Register(cm *ClassMap) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.classMaps[cm.Type]; exists {
		return false
	}
	cm.freeze()
	r.classMaps[cm.Type] = cm
	r.order = append(r.order, cm.Type)
	return true
}

// Lookup returns the class map for t, dereferencing pointer types.
func (r *Registry) Lookup(t reflect.Type) (*ClassMap, bool) {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	cm, ok := r.classMaps[t]
	return cm, ok
}

// ClassMaps returns the registered class maps in registration order.
func (r *Registry) ClassMaps() []*ClassMap {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*ClassMap, 0, len(r.order))
	for _, t := range r.order {
		out = append(out, r.classMaps[t])
	}
	return out
}

// Codecs returns the driver codec registry backed by these class maps.
func (r *Registry) Codecs() *bsoncodec.Registry {
	return r.codecs
}

// Marshal encodes v as a BSON document.
func (r *Registry) Marshal(v any) (bson.Raw, error) {
	data, err := bson.MarshalWithRegistry(r.codecs, v)
	if err != nil {
		return nil, err
	}
	return bson.Raw(data), nil
}

// Unmarshal decodes a BSON document into v.
func (r *Registry) Unmarshal(data []byte, v any) error {
	return bson.UnmarshalWithRegistry(r.codecs, data, v)
}

// valueElement is the key MarshalValue wraps a value under.
const valueElement = "v"

// MarshalValue encodes a single value, for use inside filters and updates.
// The value is encoded as a document element so the registered type codecs
// apply even to types with their own MarshalBSON.
func (r *Registry) MarshalValue(v any) (bson.RawValue, error) {
	raw, err := r.Marshal(bson.D{{Key: valueElement, Value: v}})
	if err != nil {
		return bson.RawValue{}, err
	}
	return raw.LookupErr(valueElement)
}
