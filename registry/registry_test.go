/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"reflect"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/doccontext/errors"
)

type order struct{ ID string }
type invoice struct{ ID string }

func TestRegisterAddIfAbsent(t *testing.T) {
	r := New()

	assert.True(t, r.Register(EntityDescriptor{Type: reflect.TypeOf(order{}), Collection: "orders"}))
	assert.False(t, r.Register(EntityDescriptor{Type: reflect.TypeOf(&order{}), Collection: "other"}))

	d, ok := LookupFor[order](r)
	require.True(t, ok)
	assert.Equal(t, "orders", d.Collection)

	d, ok = r.Lookup(reflect.TypeOf(&order{}))
	require.True(t, ok)
	assert.Equal(t, "orders", d.Collection)

	_, ok = LookupFor[invoice](r)
	assert.False(t, ok)
}

func TestList(t *testing.T) {
	r := New()
	r.Register(EntityDescriptor{Type: reflect.TypeOf(order{}), Collection: "orders"})
	r.Register(EntityDescriptor{Type: reflect.TypeOf(invoice{}), Collection: "invoices"})

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "orders", list[0].Collection)
	assert.Equal(t, "invoices", list[1].Collection)
}

func TestConcurrentRegistration(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	var stored atomic.Int32

	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.Register(EntityDescriptor{Type: reflect.TypeOf(order{}), Collection: "orders"}) {
				stored.Add(1)
			}
			_, _ = r.Lookup(reflect.TypeOf(order{}))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), stored.Load())
	assert.Len(t, r.List(), 1)
}

func TestOnce(t *testing.T) {
	r := New()
	var runs atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Once("shop", func() {
				runs.Add(1)
				r.Register(EntityDescriptor{Type: reflect.TypeOf(order{}), Collection: "orders"})
			})
			// every caller returns after the mapping finished
			_, ok := LookupFor[order](r)
			assert.True(t, ok)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), runs.Load())
	assert.True(t, r.Processed("shop"))
	assert.False(t, r.Processed("billing"))
}

func TestOncePanicLeavesKeyUnprocessed(t *testing.T) {
	r := New()
	assert.Panics(t, func() {
		r.Once("broken", func() { panic("boom") })
	})
	assert.False(t, r.Processed("broken"))
	assert.True(t, r.Once("broken", func() {}))
}

func TestDiscriminators(t *testing.T) {
	r := New()
	r.RegisterDiscriminator("Order", reflect.TypeOf(order{}))
	r.RegisterDiscriminator("Order", reflect.TypeOf(&order{}))
	r.RegisterDiscriminator("", reflect.TypeOf(invoice{}))

	got, ok := r.ByDiscriminator("Order")
	require.True(t, ok)
	assert.Equal(t, reflect.TypeOf(order{}), got)

	defer func() {
		rec := recover()
		err, ok := rec.(error)
		require.True(t, ok)
		assert.True(t, errors.IsConfiguration(err))
	}()
	r.RegisterDiscriminator("Order", reflect.TypeOf(invoice{}))
}

func TestDefault(t *testing.T) {
	assert.Same(t, Default(), Default())
}
