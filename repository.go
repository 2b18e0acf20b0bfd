/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package doccontext

import (
	"context"
	"reflect"
	"strings"

	"github.com/suparena/doccontext/async"
	"github.com/suparena/doccontext/bsonmap"
	"github.com/suparena/doccontext/datastore"
	"github.com/suparena/doccontext/filter"
	"github.com/suparena/doccontext/identity"
	"github.com/suparena/doccontext/storagemodels"
	"go.mongodb.org/mongo-driver/bson/bsoncodec"
)

// SortDirection orders ListOrdered results.
type SortDirection int

const (
	Ascending SortDirection = iota
	Descending
)

// DefaultSubdocumentField is the field Set writes to when no field name is
// given.
const DefaultSubdocumentField = "subdocument"

// Repository is the entity set of one entity type within a context.
//
// Every operation has a blocking form and an Async form returning an
// *async.Task. The blocking form awaits the Async form, so both report the
// same results and the same errors. Store faults are returned unchanged.
// An entity passed to an Async form must not be touched until its task is done.
type Repository[T any] struct {
	ctx  *Context
	name string
	db   datastore.Database
	id   *identity.Field
	// idElement is the element the identifier is stored under.
	idElement string
}

func newRepository[T any](c *Context, name string) *Repository[T] {
	t := typeOf[T]()
	hint := ""
	if d, ok := c.entities.Lookup(t); ok {
		hint = d.IdentifierField
	}
	r := &Repository[T]{ctx: c, name: name, db: c.db, idElement: bsonmap.IDElement}
	if id, ok := identity.Resolve(t, hint); ok {
		r.id = id
		r.idElement = identifierElement(c.ClassMaps(), t, id)
	}
	return r
}

// identifierElement names the element id is stored under: the class map's
// element when t is mapped, else the name the driver's struct codec gives
// the field.
func identifierElement(maps *bsonmap.Registry, t reflect.Type, id *identity.Field) string {
	if cm, ok := maps.Lookup(t); ok {
		return cm.ElementName(id.Name)
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	tags, err := bsoncodec.DefaultStructTagParser.ParseStructTags(t.FieldByIndex(id.Index))
	if err != nil || tags.Name == "" {
		return strings.ToLower(id.Name)
	}
	return tags.Name
}

func (r *Repository[T]) setName() string          { return r.name }
func (r *Repository[T]) entityType() reflect.Type { return typeOf[T]() }

// Name returns the declared set name.
func (r *Repository[T]) Name() string { return r.name }

// Context returns the owning context.
func (r *Repository[T]) Context() *Context { return r.ctx }

// Collection returns the collection handle, resolved anew on every call.
func (r *Repository[T]) Collection() datastore.Collection {
	return r.db.Collection(CollectionName[T](r.ctx))
}

// IdentifierField returns the Go field name of the identifier, or "" when
// the entity has none.
func (r *Repository[T]) IdentifierField() string {
	if r.id == nil {
		return ""
	}
	return r.id.Name
}

// identifierFilter matches the stored document of entity. It reports false
// when the entity has no identifier field.
func (r *Repository[T]) identifierFilter(entity *T) (filter.Filter, bool) {
	if r.id == nil || entity == nil {
		return nil, false
	}
	return filter.Eq(r.idElement, r.id.Value(reflect.ValueOf(entity)).Interface()), true
}

// Save inserts entity when its identifier is unassigned, generating one
// first, and otherwise replaces the stored document, inserting it if missing.
func (r *Repository[T]) Save(ctx context.Context, entity *T) error {
	_, err := r.SaveAsync(ctx, entity).Await()
	return err
}

// SaveAsync is the non-blocking form of Save.
func (r *Repository[T]) SaveAsync(ctx context.Context, entity *T) *async.Task[async.Void] {
	return async.Go(ctx, func(ctx context.Context) error {
		return r.save(ctx, entity)
	})
}

func (r *Repository[T]) save(ctx context.Context, entity *T) error {
	if r.id == nil || entity == nil {
		return nil
	}
	v := reflect.ValueOf(entity)
	if r.id.IsEmpty(v) && r.id.Assign(v) {
		return r.Collection().InsertOne(ctx, entity)
	}
	f, _ := r.identifierFilter(entity)
	return r.Collection().ReplaceOne(ctx, f, entity, true)
}

// SaveRange saves entities one after another in order. It stops at the first
// error; entities saved before it stay saved.
func (r *Repository[T]) SaveRange(ctx context.Context, entities []*T) error {
	_, err := r.SaveRangeAsync(ctx, entities).Await()
	return err
}

// SaveRangeAsync is the non-blocking form of SaveRange.
func (r *Repository[T]) SaveRangeAsync(ctx context.Context, entities []*T) *async.Task[async.Void] {
	return async.Go(ctx, func(ctx context.Context) error {
		for _, e := range entities {
			if err := r.save(ctx, e); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes the stored document of entity. A missing document is not
// an error.
func (r *Repository[T]) Delete(ctx context.Context, entity *T) error {
	_, err := r.DeleteAsync(ctx, entity).Await()
	return err
}

// DeleteAsync is the non-blocking form of Delete.
func (r *Repository[T]) DeleteAsync(ctx context.Context, entity *T) *async.Task[async.Void] {
	return async.Go(ctx, func(ctx context.Context) error {
		f, ok := r.identifierFilter(entity)
		if !ok {
			return nil
		}
		_, err := r.Collection().DeleteOne(ctx, f)
		return err
	})
}

// DeleteWhere removes every document matching f and returns how many went.
func (r *Repository[T]) DeleteWhere(ctx context.Context, f filter.Filter) (int64, error) {
	return r.DeleteWhereAsync(ctx, f).Await()
}

// DeleteWhereAsync is the non-blocking form of DeleteWhere.
func (r *Repository[T]) DeleteWhereAsync(ctx context.Context, f filter.Filter) *async.Task[int64] {
	return async.Run(ctx, func(ctx context.Context) (int64, error) {
		return r.Collection().DeleteMany(ctx, filter.And(scopeOf[T](r.ctx), f))
	})
}

// Where starts a lazy query over the entity set.
func (r *Repository[T]) Where(f filter.Filter) *Query[T] {
	return QueryFor[T](r.ctx).Where(f)
}

// FindByID returns the entity whose identifier equals id, or nil.
func (r *Repository[T]) FindByID(ctx context.Context, id any) (*T, error) {
	return r.FindByIDAsync(ctx, id).Await()
}

// FindByIDAsync is the non-blocking form of FindByID.
func (r *Repository[T]) FindByIDAsync(ctx context.Context, id any) *async.Task[*T] {
	return r.Where(filter.Eq(r.idElement, id)).FirstAsync(ctx)
}

// FirstOrDefault returns the first entity matching f in stored order, or nil.
func (r *Repository[T]) FirstOrDefault(ctx context.Context, f filter.Filter) (*T, error) {
	return r.FirstOrDefaultAsync(ctx, f).Await()
}

// FirstOrDefaultAsync is the non-blocking form of FirstOrDefault.
func (r *Repository[T]) FirstOrDefaultAsync(ctx context.Context, f filter.Filter) *async.Task[*T] {
	return r.Where(f).FirstAsync(ctx)
}

// Any reports whether some entity matches f.
func (r *Repository[T]) Any(ctx context.Context, f filter.Filter) (bool, error) {
	return r.AnyAsync(ctx, f).Await()
}

// AnyAsync is the non-blocking form of Any.
func (r *Repository[T]) AnyAsync(ctx context.Context, f filter.Filter) *async.Task[bool] {
	return r.Where(f).AnyAsync(ctx)
}

// Count returns the number of entities matching f.
func (r *Repository[T]) Count(ctx context.Context, f filter.Filter) (int64, error) {
	return r.CountAsync(ctx, f).Await()
}

// CountAsync is the non-blocking form of Count.
func (r *Repository[T]) CountAsync(ctx context.Context, f filter.Filter) *async.Task[int64] {
	return r.Where(f).CountAsync(ctx)
}

// List returns one page of the entities matching f in stored order. A
// pageSize of zero or less returns every match; pages at or below 1 start at
// the first match.
func (r *Repository[T]) List(ctx context.Context, f filter.Filter, pageSize, page int) ([]T, error) {
	return r.ListAsync(ctx, f, pageSize, page).Await()
}

// ListAsync is the non-blocking form of List.
func (r *Repository[T]) ListAsync(ctx context.Context, f filter.Filter, pageSize, page int) *async.Task[[]T] {
	return r.paged(r.Where(f), pageSize, page).ToListAsync(ctx)
}

// ListOrdered is List sorted by the element key first.
func (r *Repository[T]) ListOrdered(ctx context.Context, f filter.Filter, pageSize, page int, key string, dir SortDirection) ([]T, error) {
	return r.ListOrderedAsync(ctx, f, pageSize, page, key, dir).Await()
}

// ListOrderedAsync is the non-blocking form of ListOrdered.
func (r *Repository[T]) ListOrderedAsync(ctx context.Context, f filter.Filter, pageSize, page int, key string, dir SortDirection) *async.Task[[]T] {
	q := r.Where(f)
	if dir == Descending {
		q = q.OrderByDescending(key)
	} else {
		q = q.OrderBy(key)
	}
	return r.paged(q, pageSize, page).ToListAsync(ctx)
}

// Paginate returns one page of the matches of f together with their total.
func (r *Repository[T]) Paginate(ctx context.Context, f filter.Filter, pageSize, page int) (storagemodels.Page[T], error) {
	return r.PaginateAsync(ctx, f, pageSize, page).Await()
}

// PaginateAsync is the non-blocking form of Paginate.
func (r *Repository[T]) PaginateAsync(ctx context.Context, f filter.Filter, pageSize, page int) *async.Task[storagemodels.Page[T]] {
	return async.Run(ctx, func(ctx context.Context) (storagemodels.Page[T], error) {
		q := r.Where(f)
		total, err := q.Count(ctx)
		if err != nil {
			return storagemodels.Page[T]{}, err
		}
		items, err := r.paged(q, pageSize, page).ToList(ctx)
		if err != nil {
			return storagemodels.Page[T]{}, err
		}
		return storagemodels.NewPage(items, page, pageSize, total), nil
	})
}

func (r *Repository[T]) paged(q *Query[T], pageSize, page int) *Query[T] {
	if pageSize <= 0 {
		return q
	}
	return q.Skip(storagemodels.Skip(page, pageSize)).Take(int64(pageSize))
}

// All returns every entity of the set.
func (r *Repository[T]) All(ctx context.Context) ([]T, error) {
	return r.AllAsync(ctx).Await()
}

// AllAsync is the non-blocking form of All.
func (r *Repository[T]) AllAsync(ctx context.Context) *async.Task[[]T] {
	return QueryFor[T](r.ctx).ToListAsync(ctx)
}

// Set assigns value to field on the first document matching f, creating the
// document from the equalities of f when none matches. An empty field
// defaults to DefaultSubdocumentField.
func (r *Repository[T]) Set(ctx context.Context, f filter.Filter, value any, field string) error {
	_, err := r.SetAsync(ctx, f, value, field).Await()
	return err
}

// SetAsync is the non-blocking form of Set.
func (r *Repository[T]) SetAsync(ctx context.Context, f filter.Filter, value any, field string) *async.Task[async.Void] {
	return async.Go(ctx, func(ctx context.Context) error {
		return r.set(ctx, f, value, field)
	})
}

// SetEntity is Set targeting the stored document of entity. It does nothing
// while the entity's identifier is unassigned.
func (r *Repository[T]) SetEntity(ctx context.Context, entity *T, value any, field string) error {
	_, err := r.SetEntityAsync(ctx, entity, value, field).Await()
	return err
}

// SetEntityAsync is the non-blocking form of SetEntity.
func (r *Repository[T]) SetEntityAsync(ctx context.Context, entity *T, value any, field string) *async.Task[async.Void] {
	return async.Go(ctx, func(ctx context.Context) error {
		f, ok := r.identifierFilter(entity)
		if !ok || r.id.IsEmpty(reflect.ValueOf(entity)) {
			return nil
		}
		return r.set(ctx, f, value, field)
	})
}

func (r *Repository[T]) set(ctx context.Context, f filter.Filter, value any, field string) error {
	if field == "" {
		field = DefaultSubdocumentField
	}
	return r.Collection().UpdateOne(ctx, filter.And(scopeOf[T](r.ctx), f), datastore.Set(field, value), true)
}
