/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"reflect"
	"sync"
)

// EntityDescriptor binds an entity type to its storage metadata. Descriptors
// are immutable once registered.
type EntityDescriptor struct {
	Type            reflect.Type
	Collection      string
	IdentifierField string
	Discriminator   string
}

// Registry maps entity types to their descriptors and remembers which context
// models have been mapped. Reads never take a lock.
type Registry struct {
	descriptors sync.Map // reflect.Type -> EntityDescriptor

	mu    sync.Mutex
	order []reflect.Type

	guard     sync.Mutex
	processed map[string]struct{}

	discriminators sync.Map // string -> reflect.Type
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// Default returns the process-wide registry.
func Default() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = New()
	})
	return defaultRegistry
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{processed: make(map[string]struct{})}
}

// Register stores d unless a descriptor for d.Type exists. It reports whether
// d was stored. Registering twice is never an error.
func (r *Registry) Register(d EntityDescriptor) bool {
	d.Type = indirect(d.Type)
	if _, loaded := r.descriptors.LoadOrStore(d.Type, d); loaded {
		return false
	}
	r.mu.Lock()
	r.order = append(r.order, d.Type)
	r.mu.Unlock()
	return true
}

// Lookup returns the descriptor of t.
func (r *Registry) Lookup(t reflect.Type) (EntityDescriptor, bool) {
	v, ok := r.descriptors.Load(indirect(t))
	if !ok {
		return EntityDescriptor{}, false
	}
	return v.(EntityDescriptor), true
}

// LookupFor returns the descriptor of T.
func LookupFor[T any](r *Registry) (EntityDescriptor, bool) {
	return r.Lookup(reflect.TypeOf((*T)(nil)).Elem())
}

// List returns a snapshot of every descriptor in registration order.
func (r *Registry) List() []EntityDescriptor {
	r.mu.Lock()
	types := append([]reflect.Type(nil), r.order...)
	r.mu.Unlock()

	out := make([]EntityDescriptor, 0, len(types))
	for _, t := range types {
		if d, ok := r.Lookup(t); ok {
			out = append(out, d)
		}
	}
	return out
}

// Once runs fn the first time key is seen and reports whether it ran. The
// guard is held while fn runs, so fn must not perform I/O; concurrent callers
// with the same key return only after fn has finished. A key whose fn panics
// is not marked processed.
func (r *Registry) Once(key string, fn func()) bool {
	r.guard.Lock()
	defer r.guard.Unlock()

	if _, done := r.processed[key]; done {
		return false
	}
	fn()
	r.processed[key] = struct{}{}
	return true
}

// Processed reports whether key has completed Once.
func (r *Registry) Processed(key string) bool {
	r.guard.Lock()
	defer r.guard.Unlock()
	_, ok := r.processed[key]
	return ok
}

func indirect(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}
