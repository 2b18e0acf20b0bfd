/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package filter builds query predicates over stored element names. A Filter
// renders to the MongoDB query language; the in-process drivers evaluate the
// same rendered document, so every backend agrees on semantics.
package filter

import (
	"go.mongodb.org/mongo-driver/bson"
)

// Filter is a predicate over documents.
type Filter interface {
	// Render returns the query document.
	Render() bson.D
	isFilter()
}

type all struct{}

func (all) Render() bson.D { return bson.D{} }
func (all) isFilter()      {}

// All matches every document.
func All() Filter { return all{} }

type comparison struct {
	field string
	op    string
	value any
}

func (c comparison) Render() bson.D {
	return bson.D{{Key: c.field, Value: bson.D{{Key: c.op, Value: c.value}}}}
}
func (comparison) isFilter() {}

// Eq matches documents whose field equals value. Array fields match when any
// element equals value.
func Eq(field string, value any) Filter { return comparison{field, "$eq", value} }

// Ne matches documents whose field is absent or differs from value.
func Ne(field string, value any) Filter { return comparison{field, "$ne", value} }

// Gt matches documents whose field is greater than value.
func Gt(field string, value any) Filter { return comparison{field, "$gt", value} }

// Gte matches documents whose field is greater than or equal to value.
func Gte(field string, value any) Filter { return comparison{field, "$gte", value} }

// Lt matches documents whose field is less than value.
func Lt(field string, value any) Filter { return comparison{field, "$lt", value} }

// Lte matches documents whose field is less than or equal to value.
func Lte(field string, value any) Filter { return comparison{field, "$lte", value} }

// In matches documents whose field equals any of values.
func In[V any](field string, values ...V) Filter {
	arr := make(bson.A, 0, len(values))
	for _, v := range values {
		arr = append(arr, v)
	}
	return comparison{field, "$in", arr}
}

// Nin matches documents whose field equals none of values.
func Nin[V any](field string, values ...V) Filter {
	arr := make(bson.A, 0, len(values))
	for _, v := range values {
		arr = append(arr, v)
	}
	return comparison{field, "$nin", arr}
}

// Exists matches documents that do (or do not) carry field.
func Exists(field string, exists bool) Filter { return comparison{field, "$exists", exists} }

// ID matches the document whose identity equals id.
func ID(id any) Filter { return Eq("_id", id) }

type logical struct {
	op      string
	filters []Filter
}

func (l logical) Render() bson.D {
	arr := make(bson.A, 0, len(l.filters))
	for _, f := range l.filters {
		arr = append(arr, f.Render())
	}
	return bson.D{{Key: l.op, Value: arr}}
}
func (logical) isFilter() {}

// And matches documents that satisfy every filter. Nil filters are dropped.
func And(filters ...Filter) Filter {
	fs := compact(filters)
	switch len(fs) {
	case 0:
		return All()
	case 1:
		return fs[0]
	}
	return logical{"$and", fs}
}

// Or matches documents that satisfy at least one filter. Or() matches nothing.
func Or(filters ...Filter) Filter {
	fs := make([]Filter, 0, len(filters))
	for _, f := range filters {
		if f == nil {
			continue
		}
		if IsAll(f) {
			return All()
		}
		fs = append(fs, f)
	}
	switch len(fs) {
	case 0:
		return None()
	case 1:
		return fs[0]
	}
	return logical{"$or", fs}
}

// Nor matches documents that satisfy none of the filters.
func Nor(filters ...Filter) Filter {
	fs := make([]Filter, 0, len(filters))
	for _, f := range filters {
		if f == nil {
			continue
		}
		if IsAll(f) {
			return None()
		}
		fs = append(fs, f)
	}
	if len(fs) == 0 {
		return All()
	}
	return logical{"$nor", fs}
}

// None matches no document.
func None() Filter { return logical{"$nor", []Filter{all{}}} }

// Not negates f.
func Not(f Filter) Filter { return Nor(f) }

func compact(filters []Filter) []Filter {
	out := make([]Filter, 0, len(filters))
	for _, f := range filters {
		if f == nil {
			continue
		}
		if _, ok := f.(all); ok {
			continue
		}
		out = append(out, f)
	}
	return out
}

// EqualityFields returns the field/value pairs a document created by an
// upsert must carry: the plain equalities of f, including those nested in $and.
func EqualityFields(f Filter) bson.D {
	var out bson.D
	var walk func(Filter)
	walk = func(f Filter) {
		switch v := f.(type) {
		case comparison:
			if v.op == "$eq" {
				out = append(out, bson.E{Key: v.field, Value: v.value})
			}
		case logical:
			if v.op == "$and" {
				for _, sub := range v.filters {
					walk(sub)
				}
			}
		}
	}
	if f != nil {
		walk(f)
	}
	return out
}

// IsAll reports whether f matches every document.
func IsAll(f Filter) bool {
	if f == nil {
		return true
	}
	_, ok := f.(all)
	return ok
}

type rawFilter bson.D

func (r rawFilter) Render() bson.D { return bson.D(r) }
func (rawFilter) isFilter()        {}

// Raw wraps a hand written query document. The in-process drivers support the
// comparison, $in, $nin, $exists, $and, $or and $nor operators only.
func Raw(doc bson.D) Filter { return rawFilter(doc) }
