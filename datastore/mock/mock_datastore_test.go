/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mock_test

import (
	"context"
	"testing"

	"github.com/suparena/doccontext/bsonmap"
	"github.com/suparena/doccontext/datastore"
	"github.com/suparena/doccontext/datastore/mock"
	"github.com/suparena/doccontext/errors"
	"github.com/suparena/doccontext/filter"
)

type TestEntity struct {
	ID   string `bson:"_id"`
	Name string `bson:"Name"`
	Rank int    `bson:"Rank"`
}

func decodeAll(t *testing.T, c datastore.Cursor) []TestEntity {
	t.Helper()
	ctx := context.Background()
	defer c.Close(ctx)

	var out []TestEntity
	for c.Next(ctx) {
		var e TestEntity
		if err := c.Decode(&e); err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		out = append(out, e)
	}
	if err := c.Err(); err != nil {
		t.Fatalf("Cursor failed: %v", err)
	}
	return out
}

func TestMockDatabase(t *testing.T) {
	ctx := context.Background()

	t.Run("BasicOperations", func(t *testing.T) {
		db := mock.New("test", bsonmap.NewRegistry())
		coll := db.Collection("entities")

		// Test InsertOne
		entity := TestEntity{ID: "123", Name: "Test"}
		if err := coll.InsertOne(ctx, entity); err != nil {
			t.Fatalf("InsertOne failed: %v", err)
		}

		// Duplicate identities are rejected
		err := coll.InsertOne(ctx, entity)
		if !errors.IsAlreadyExists(err) {
			t.Fatalf("Expected already exists error, got: %v", err)
		}

		// Test Find
		cursor, err := coll.Find(ctx, filter.ID("123"), nil)
		if err != nil {
			t.Fatalf("Find failed: %v", err)
		}
		found := decodeAll(t, cursor)
		if len(found) != 1 || found[0] != entity {
			t.Fatalf("Retrieved entity mismatch: %+v", found)
		}

		// Test DeleteOne
		n, err := coll.DeleteOne(ctx, filter.ID("123"))
		if err != nil {
			t.Fatalf("DeleteOne failed: %v", err)
		}
		if n != 1 {
			t.Fatalf("Expected 1 deleted, got %d", n)
		}

		// Verify deletion
		count, err := coll.CountDocuments(ctx, filter.All())
		if err != nil || count != 0 {
			t.Fatalf("Expected empty collection, got %d (%v)", count, err)
		}
	})

	t.Run("ReplaceAndUpsert", func(t *testing.T) {
		db := mock.New("test", nil)
		coll := db.Collection("entities")

		// No match without upsert is not an error and writes nothing
		if err := coll.ReplaceOne(ctx, filter.ID("1"), TestEntity{ID: "1", Name: "One"}, false); err != nil {
			t.Fatalf("ReplaceOne failed: %v", err)
		}
		if db.Count("entities") != 0 {
			t.Fatalf("Expected no documents, got %d", db.Count("entities"))
		}

		if err := coll.ReplaceOne(ctx, filter.ID("1"), TestEntity{ID: "1", Name: "One"}, true); err != nil {
			t.Fatalf("ReplaceOne upsert failed: %v", err)
		}
		if err := coll.ReplaceOne(ctx, filter.ID("1"), TestEntity{ID: "1", Name: "Uno"}, true); err != nil {
			t.Fatalf("ReplaceOne failed: %v", err)
		}
		if db.Count("entities") != 1 {
			t.Fatalf("Expected 1 document, got %d", db.Count("entities"))
		}
		if got := db.Documents("entities")[0].Lookup("Name").StringValue(); got != "Uno" {
			t.Fatalf("Expected replaced name Uno, got %s", got)
		}

		// The identity of a stored document is immutable
		err := coll.ReplaceOne(ctx, filter.ID("1"), TestEntity{ID: "2", Name: "Two"}, true)
		if !errors.IsValidationError(err) {
			t.Fatalf("Expected validation error, got: %v", err)
		}
	})

	t.Run("UpdateOne", func(t *testing.T) {
		db := mock.New("test", nil)
		coll := db.Collection("entities")

		if err := coll.UpdateOne(ctx, filter.ID("7"), datastore.Set("Name", "Seven").Set("Rank", 7), true); err != nil {
			t.Fatalf("UpdateOne upsert failed: %v", err)
		}
		if err := coll.UpdateOne(ctx, filter.ID("7"), datastore.Set("Rank", 8), false); err != nil {
			t.Fatalf("UpdateOne failed: %v", err)
		}

		cursor, err := coll.Find(ctx, filter.All(), nil)
		if err != nil {
			t.Fatalf("Find failed: %v", err)
		}
		got := decodeAll(t, cursor)
		want := TestEntity{ID: "7", Name: "Seven", Rank: 8}
		if len(got) != 1 || got[0] != want {
			t.Fatalf("Expected %+v, got %+v", want, got)
		}
	})

	t.Run("QueryOrdering", func(t *testing.T) {
		db := mock.New("test", nil)
		coll := db.Collection("entities")

		err := db.SetDocuments("entities",
			TestEntity{ID: "1", Name: "One", Rank: 3},
			TestEntity{ID: "2", Name: "Two", Rank: 1},
			TestEntity{ID: "3", Name: "Three", Rank: 2},
		)
		if err != nil {
			t.Fatalf("SetDocuments failed: %v", err)
		}

		cursor, err := coll.Find(ctx, filter.Gt("Rank", 1), &datastore.FindOptions{
			Sort: []datastore.SortField{{Field: "Rank", Descending: true}},
		})
		if err != nil {
			t.Fatalf("Find failed: %v", err)
		}
		got := decodeAll(t, cursor)
		if len(got) != 2 || got[0].ID != "1" || got[1].ID != "3" {
			t.Fatalf("Unexpected order: %+v", got)
		}

		n, err := coll.DeleteMany(ctx, filter.Lte("Rank", 2))
		if err != nil || n != 2 {
			t.Fatalf("Expected 2 deleted, got %d (%v)", n, err)
		}
	})

	t.Run("ErrorSimulation", func(t *testing.T) {
		db := mock.New("test", nil)
		coll := db.Collection("entities")

		// Simulate insert error
		insertErr := errors.NewValidationError("name", "required")
		db.WithInsertError(insertErr)

		err := coll.InsertOne(ctx, TestEntity{ID: "123", Name: "Test"})
		if err != insertErr {
			t.Fatalf("Expected insert error, got: %v", err)
		}

		// Simulate delete error
		deleteErr := errors.NewConditionFailedError("delete", "version mismatch")
		db.WithDeleteError(deleteErr)

		_, err = coll.DeleteOne(ctx, filter.ID("123"))
		if err != deleteErr {
			t.Fatalf("Expected delete error, got: %v", err)
		}

		// Cancelled contexts fail before touching the store
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := coll.Find(cancelled, filter.All(), nil); err != context.Canceled {
			t.Fatalf("Expected context.Canceled, got: %v", err)
		}
	})

	t.Run("HelperMethods", func(t *testing.T) {
		db := mock.New("test", nil)

		if err := db.SetDocuments("a", TestEntity{ID: "1"}, TestEntity{ID: "2"}); err != nil {
			t.Fatalf("SetDocuments failed: %v", err)
		}
		if err := db.SetDocuments("b", TestEntity{ID: "3"}); err != nil {
			t.Fatalf("SetDocuments failed: %v", err)
		}

		if db.Count("a") != 2 {
			t.Fatalf("Expected count 2, got %d", db.Count("a"))
		}
		if names := db.CollectionNames(); len(names) != 2 || names[0] != "a" {
			t.Fatalf("Unexpected collections: %v", names)
		}

		db.Clear()
		if db.Count("a") != 0 {
			t.Fatalf("Expected count 0 after clear, got %d", db.Count("a"))
		}
	})
}
