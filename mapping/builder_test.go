/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mapping

import (
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/doccontext/bsonmap"
	"github.com/suparena/doccontext/datastore/testmodels"
	"github.com/suparena/doccontext/errors"
	"github.com/suparena/doccontext/registry"
)

type Card struct {
	Id      string
	Holder  string
	Expires time.Time
}

type Payment struct {
	ID     string `bson:"_id"`
	Amount int64
}

func (Payment) Discriminator() string { return "payment" }

type Refund struct {
	ID     string `bson:"_id"`
	Amount int64
}

func (Refund) Discriminator() string { return "payment" }

func sets() []Set {
	return []Set{
		{Name: "RatingSystems", Type: reflect.TypeOf(testmodels.RatingSystem{})},
		{Name: "Players", Type: reflect.TypeOf(testmodels.Player{})},
		{Name: "Cards", Type: reflect.TypeOf(&Card{})},
	}
}

func configurationPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic")
		err, ok := r.(error)
		require.True(t, ok, "panic value %v is not an error", r)
		assert.True(t, errors.IsConfiguration(err), "unexpected error %v", err)
	}()
	fn()
}

func TestCollectionName(t *testing.T) {
	b := New("League", registry.New(), bsonmap.NewRegistry()).Map("cards", "wallet")

	tests := []struct {
		name string
		set  Set
		want string
	}{
		{"override wins", Set{Name: "Cards", Type: reflect.TypeOf(Card{})}, "wallet"},
		{"override beats annotation", Set{Name: "cards", Type: reflect.TypeOf(testmodels.RatingSystem{})}, "wallet"},
		{"annotation", Set{Name: "Systems", Type: reflect.TypeOf(testmodels.RatingSystem{})}, "rating_systems"},
		{"convention", Set{Name: "Players", Type: reflect.TypeOf(&testmodels.Player{})}, "Players"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, b.CollectionName(tt.set))
		})
	}
}

func TestAutoMap(t *testing.T) {
	t.Run("identifier by name", func(t *testing.T) {
		cm := AutoMap(reflect.TypeOf(Card{}))
		id, ok := cm.IDMember()
		require.True(t, ok)
		assert.Equal(t, "Id", id.FieldName)
		assert.Equal(t, bsonmap.IDElement, id.ElementName)
		assert.True(t, cm.IgnoreExtraElements())
		assert.True(t, cm.IgnoreExtraElementsIsInherited())

		expires, ok := cm.Member("Expires")
		require.True(t, ok)
		assert.True(t, expires.HasSerializer())
		holder, _ := cm.Member("Holder")
		assert.False(t, holder.HasSerializer())
	})

	t.Run("identifier by tag and canonical codecs", func(t *testing.T) {
		cm := AutoMap(reflect.TypeOf(&testmodels.RatingSystem{}))
		id, ok := cm.IDMember()
		require.True(t, ok)
		assert.Equal(t, "ID", id.FieldName)

		for _, field := range []string{"CreatedAt", "UpdatedAt", "InitialRating"} {
			m, ok := cm.Member(field)
			require.True(t, ok, field)
			assert.True(t, m.HasSerializer(), field)
		}
	})

	t.Run("discriminator", func(t *testing.T) {
		cm := AutoMap(reflect.TypeOf(Payment{}))
		assert.Equal(t, "payment", cm.Discriminator())
		assert.True(t, cm.DiscriminatorIsRequired())
	})
}

func TestBuild(t *testing.T) {
	entities := registry.New()
	classMaps := bsonmap.NewRegistry()

	assert.True(t, New("League", entities, classMaps).Build(sets()))
	assert.False(t, New("League", entities, classMaps).Build(sets()))

	d, ok := registry.LookupFor[testmodels.RatingSystem](entities)
	require.True(t, ok)
	assert.Equal(t, "rating_systems", d.Collection)
	assert.Equal(t, "ID", d.IdentifierField)

	d, ok = registry.LookupFor[Card](entities)
	require.True(t, ok)
	assert.Equal(t, "Cards", d.Collection)
	assert.Equal(t, "Id", d.IdentifierField)

	assert.Len(t, entities.List(), 3)
	assert.Len(t, classMaps.ClassMaps(), 3)
}

func TestBuildConcurrently(t *testing.T) {
	entities := registry.New()
	classMaps := bsonmap.NewRegistry()

	var wg sync.WaitGroup
	var ran atomic.Int32
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if New("League", entities, classMaps).Build(sets()) {
				ran.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ran.Load())
	assert.Len(t, entities.List(), 3)
	assert.Len(t, classMaps.ClassMaps(), 3)
}

func TestExistingClassMapIsKept(t *testing.T) {
	entities := registry.New()
	classMaps := bsonmap.NewRegistry()

	cm := bsonmap.NewClassMap(reflect.TypeOf(Card{})).AutoMap()
	cm.SetIDMember(cm.MapMember("Holder"))
	require.True(t, classMaps.Register(cm))

	New("Wallet", entities, classMaps).Build([]Set{{Name: "Cards", Type: reflect.TypeOf(Card{})}})

	got, ok := classMaps.Lookup(reflect.TypeOf(Card{}))
	require.True(t, ok)
	assert.Same(t, cm, got)

	d, ok := registry.LookupFor[Card](entities)
	require.True(t, ok)
	assert.Equal(t, "Holder", d.IdentifierField)
}

func TestMapWith(t *testing.T) {
	entities := registry.New()
	classMaps := bsonmap.NewRegistry()
	var called []string

	New("League", entities, classMaps).
		MapWith("players", func(b *Builder, s Set) {
			called = append(called, s.Name)
			b.Register(registry.EntityDescriptor{Type: s.Type, Collection: "roster"})
		}).
		Build(sets())

	assert.Equal(t, []string{"Players"}, called)

	d, ok := registry.LookupFor[testmodels.Player](entities)
	require.True(t, ok)
	assert.Equal(t, "roster", d.Collection)
	assert.False(t, classMaps.IsRegistered(reflect.TypeOf(testmodels.Player{})))

	// the other sets still follow the default steps
	assert.True(t, classMaps.IsRegistered(reflect.TypeOf(Card{})))
}

func TestConfigurationErrors(t *testing.T) {
	b := New("League", registry.New(), bsonmap.NewRegistry())

	t.Run("nil procedure", func(t *testing.T) {
		configurationPanic(t, func() { b.MapWith("Players", nil) })
	})
	t.Run("empty collection", func(t *testing.T) {
		configurationPanic(t, func() { b.Map("Players", "") })
	})
	t.Run("set without type", func(t *testing.T) {
		configurationPanic(t, func() { b.Build([]Set{{Name: "Players"}}) })
	})
	t.Run("discriminator claimed twice", func(t *testing.T) {
		configurationPanic(t, func() {
			New("Ledger", registry.New(), bsonmap.NewRegistry()).Build([]Set{
				{Name: "Payments", Type: reflect.TypeOf(Payment{})},
				{Name: "Refunds", Type: reflect.TypeOf(Refund{})},
			})
		})
	})
}
