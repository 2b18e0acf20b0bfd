/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package doccontext

import (
	"testing"

	"github.com/suparena/doccontext/bsonmap"
	"github.com/suparena/doccontext/datastore/mock"
	"github.com/suparena/doccontext/datastore/testmodels"
	"github.com/suparena/doccontext/registry"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Widget struct {
	Id   primitive.ObjectID
	Name string
	Size int
}

type Payment struct {
	Id     primitive.ObjectID
	Amount int
}

func (Payment) CollectionName() string { return "ledger" }
func (Payment) Discriminator() string  { return "payment" }

type Refund struct {
	Id     primitive.ObjectID
	Amount int
}

func (Refund) CollectionName() string { return "ledger" }
func (Refund) Discriminator() string  { return "refund" }

// Note has no identifier field.
type Note struct {
	Text string
}

type catalog struct {
	Context
	Widgets     *Repository[Widget]
	Tournaments *Repository[testmodels.Tournament]
	Notes       *Repository[Note]
}

func newCatalogModel() *Model[catalog] {
	return NewModel[catalog](
		Set("Widgets", func(c *catalog) **Repository[Widget] { return &c.Widgets }),
		Set("Tournaments", func(c *catalog) **Repository[testmodels.Tournament] { return &c.Tournaments }),
		Set("Notes", func(c *catalog) **Repository[Note] { return &c.Notes }),
	)
}

type ledger struct {
	Context
	Payments *Repository[Payment]
	Refunds  *Repository[Refund]
}

var ledgerModel = NewModel[ledger](
	Set("Payments", func(c *ledger) **Repository[Payment] { return &c.Payments }),
	Set("Refunds", func(c *ledger) **Repository[Refund] { return &c.Refunds }),
)

// openCatalog returns a catalog on a fresh mock database with its own
// registries, so tests never share mapping state.
func openCatalog(t *testing.T) (*catalog, *mock.Database) {
	t.Helper()
	db := mock.New("doccontext_test", bsonmap.NewRegistry())
	return newCatalogModel().New(db, WithRegistry(registry.New())), db
}

func widgets(n int) []*Widget {
	out := make([]*Widget, n)
	for i := range out {
		out[i] = &Widget{Name: string(rune('a' + i)), Size: i}
	}
	return out
}

func sizes(items []Widget) []int {
	out := make([]int, len(items))
	for i, w := range items {
		out[i] = w.Size
	}
	return out
}
