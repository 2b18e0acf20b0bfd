/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package docquery

import (
	"fmt"
	"strings"

	"github.com/suparena/doccontext/bsonmap"
	"github.com/suparena/doccontext/filter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Compile renders f and encodes it with the registry's codecs, so values in
// the query carry exactly the representation stored documents use.
func Compile(f filter.Filter, maps *bsonmap.Registry) (bson.Raw, error) {
	if f == nil {
		f = filter.All()
	}
	doc := f.Render()
	if doc == nil {
		doc = bson.D{}
	}
	raw, err := maps.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("docquery: encode filter: %w", err)
	}
	return raw, nil
}

// Match reports whether doc satisfies the compiled query.
func Match(query, doc bson.Raw) (bool, error) {
	elems, err := query.Elements()
	if err != nil {
		return false, fmt.Errorf("docquery: malformed query: %w", err)
	}
	for _, e := range elems {
		ok, err := matchElement(e.Key(), e.Value(), doc)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchElement(key string, val bson.RawValue, doc bson.Raw) (bool, error) {
	switch key {
	case "$and", "$or", "$nor":
		subs, err := subQueries(key, val)
		if err != nil {
			return false, err
		}
		for _, sub := range subs {
			ok, err := Match(sub, doc)
			if err != nil {
				return false, err
			}
			switch {
			case key == "$and" && !ok:
				return false, nil
			case key == "$or" && ok:
				return true, nil
			case key == "$nor" && ok:
				return false, nil
			}
		}
		return key != "$or", nil
	}
	if strings.HasPrefix(key, "$") {
		return false, fmt.Errorf("docquery: unsupported operator %s", key)
	}

	field, found := lookup(doc, key)
	if ops, ok := operatorDocument(val); ok {
		for _, op := range ops {
			matched, err := evaluate(op.Key(), op.Value(), field, found)
			if err != nil || !matched {
				return false, err
			}
		}
		return true, nil
	}
	return evaluate("$eq", val, field, found)
}

func subQueries(op string, val bson.RawValue) ([]bson.Raw, error) {
	arr, ok := val.ArrayOK()
	if !ok {
		return nil, fmt.Errorf("docquery: %s needs an array", op)
	}
	values, err := arr.Values()
	if err != nil {
		return nil, err
	}
	out := make([]bson.Raw, 0, len(values))
	for _, v := range values {
		d, ok := v.DocumentOK()
		if !ok {
			return nil, fmt.Errorf("docquery: %s entries must be documents", op)
		}
		out = append(out, d)
	}
	return out, nil
}

// operatorDocument returns the elements of val when it is a document of
// operators such as {$gt: 3}.
func operatorDocument(val bson.RawValue) ([]bson.RawElement, bool) {
	d, ok := val.DocumentOK()
	if !ok {
		return nil, false
	}
	elems, err := d.Elements()
	if err != nil || len(elems) == 0 || !strings.HasPrefix(elems[0].Key(), "$") {
		return nil, false
	}
	return elems, true
}

func evaluate(op string, operand, field bson.RawValue, found bool) (bool, error) {
	switch op {
	case "$eq":
		return equals(field, found, operand), nil
	case "$ne":
		return !equals(field, found, operand), nil
	case "$gt", "$gte", "$lt", "$lte":
		if !found {
			return false, nil
		}
		return anyValue(field, func(v bson.RawValue) bool {
			if !sameBracket(v, operand) {
				return false
			}
			c := Compare(v, operand)
			switch op {
			case "$gt":
				return c > 0
			case "$gte":
				return c >= 0
			case "$lt":
				return c < 0
			}
			return c <= 0
		}), nil
	case "$in", "$nin":
		arr, ok := operand.ArrayOK()
		if !ok {
			return false, fmt.Errorf("docquery: %s needs an array", op)
		}
		candidates, err := arr.Values()
		if err != nil {
			return false, err
		}
		in := false
		for _, c := range candidates {
			if equals(field, found, c) {
				in = true
				break
			}
		}
		return in == (op == "$in"), nil
	case "$exists":
		want, ok := operand.BooleanOK()
		if !ok {
			want = operand.Type != bsontype.Null
		}
		return found == want, nil
	}
	return false, fmt.Errorf("docquery: unsupported operator %s", op)
}

// equals follows the query language: a missing field equals null, and an
// array equals a value when the whole array or any element does.
func equals(field bson.RawValue, found bool, operand bson.RawValue) bool {
	if !found {
		return operand.Type == bsontype.Null
	}
	if rank(field.Type) == rank(operand.Type) && Equal(field, operand) {
		return true
	}
	if field.Type == bsontype.Array {
		values, err := field.Array().Values()
		if err != nil {
			return false
		}
		for _, v := range values {
			if rank(v.Type) == rank(operand.Type) && Equal(v, operand) {
				return true
			}
		}
	}
	return false
}

func anyValue(field bson.RawValue, pred func(bson.RawValue) bool) bool {
	if pred(field) {
		return true
	}
	if field.Type != bsontype.Array {
		return false
	}
	values, err := field.Array().Values()
	if err != nil {
		return false
	}
	for _, v := range values {
		if pred(v) {
			return true
		}
	}
	return false
}

// range operators only compare within one type bracket
func sameBracket(a, b bson.RawValue) bool {
	return rank(a.Type) == rank(b.Type)
}

func lookup(doc bson.Raw, path string) (bson.RawValue, bool) {
	v, err := doc.LookupErr(strings.Split(path, ".")...)
	if err != nil {
		return bson.RawValue{}, false
	}
	return v, true
}
