/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package docquery

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/suparena/doccontext/bsonmap"
	"github.com/suparena/doccontext/datastore"
	"github.com/suparena/doccontext/filter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ApplySet returns a copy of doc with every element of set assigned. Dotted
// keys address nested documents, which are created when missing.
func ApplySet(doc, set bson.Raw) (bson.Raw, error) {
	d, err := toD(doc)
	if err != nil {
		return nil, err
	}
	elems, err := set.Elements()
	if err != nil {
		return nil, fmt.Errorf("docquery: malformed update: %w", err)
	}
	for _, e := range elems {
		if d, err = setPath(d, strings.Split(e.Key(), "."), e.Value()); err != nil {
			return nil, err
		}
	}
	return bson.Marshal(d)
}

// EncodeSet encodes the assignments of u with the registry's codecs, one
// value at a time.
func EncodeSet(u datastore.Update, maps *bsonmap.Registry) (bson.Raw, error) {
	fields := u.Fields()
	set := make(bson.D, 0, len(fields))
	for _, e := range fields {
		v, err := maps.MarshalValue(e.Value)
		if err != nil {
			return nil, fmt.Errorf("docquery: encode update of %s: %w", e.Key, err)
		}
		set = append(set, bson.E{Key: e.Key, Value: v})
	}
	return bson.Marshal(set)
}

// Seed builds the starting document of an upsert from the equalities of f.
func Seed(f filter.Filter, maps *bsonmap.Registry) (bson.Raw, error) {
	eq := filter.EqualityFields(f)
	if eq == nil {
		eq = bson.D{}
	}
	raw, err := maps.Marshal(eq)
	if err != nil {
		return nil, fmt.Errorf("docquery: encode upsert seed: %w", err)
	}
	return ApplySet(emptyDocument(), raw)
}

// EnsureID returns doc with an _id element, generating an ObjectID when doc
// has none, together with the identity value.
func EnsureID(doc bson.Raw) (bson.Raw, bson.RawValue, error) {
	if id, err := doc.LookupErr(bsonmap.IDElement); err == nil {
		return doc, id, nil
	}
	d, err := toD(doc)
	if err != nil {
		return nil, bson.RawValue{}, err
	}
	d = append(bson.D{{Key: bsonmap.IDElement, Value: primitive.NewObjectID()}}, d...)
	out, err := bson.Marshal(d)
	if err != nil {
		return nil, bson.RawValue{}, err
	}
	return out, bson.Raw(out).Lookup(bsonmap.IDElement), nil
}

// WithID returns doc carrying id as its _id, replacing any existing value.
func WithID(doc bson.Raw, id bson.RawValue) (bson.Raw, error) {
	d, err := toD(doc)
	if err != nil {
		return nil, err
	}
	for i := range d {
		if d[i].Key == bsonmap.IDElement {
			d[i].Value = id
			return bson.Marshal(d)
		}
	}
	return bson.Marshal(append(bson.D{{Key: bsonmap.IDElement, Value: id}}, d...))
}

// IDKey renders an identity as a stable string key. Integer identities share
// one form regardless of width so that 7 and int64(7) collide as they do in
// a query.
func IDKey(id bson.RawValue) string {
	switch id.Type {
	case bsontype.ObjectID:
		return "oid:" + id.ObjectID().Hex()
	case bsontype.String:
		return "str:" + id.StringValue()
	case bsontype.Int32, bsontype.Int64:
		return "int:" + strconv.FormatInt(id.AsInt64(), 10)
	case bsontype.Binary:
		sub, data := id.Binary()
		return fmt.Sprintf("bin%d:%s", sub, hex.EncodeToString(data))
	}
	return fmt.Sprintf("%02x:%s", byte(id.Type), hex.EncodeToString(id.Value))
}

func setPath(d bson.D, path []string, value bson.RawValue) (bson.D, error) {
	idx := -1
	for i := range d {
		if d[i].Key == path[0] {
			idx = i
			break
		}
	}
	if len(path) == 1 {
		if idx >= 0 {
			d[idx].Value = value
			return d, nil
		}
		return append(d, bson.E{Key: path[0], Value: value}), nil
	}

	var sub bson.D
	if idx >= 0 {
		existing, ok := d[idx].Value.(bson.RawValue)
		switch {
		case ok && existing.Type == bsontype.EmbeddedDocument:
			var err error
			if sub, err = toD(existing.Document()); err != nil {
				return nil, err
			}
		case ok && existing.Type == bsontype.Null:
		case !ok:
			if sub, ok = d[idx].Value.(bson.D); !ok {
				return nil, fmt.Errorf("docquery: cannot set %s inside a non-document", strings.Join(path, "."))
			}
		default:
			return nil, fmt.Errorf("docquery: cannot set %s inside a %s", strings.Join(path, "."), existing.Type)
		}
	}
	sub, err := setPath(sub, path[1:], value)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		sub = bson.D{}
	}
	if idx >= 0 {
		d[idx].Value = sub
		return d, nil
	}
	return append(d, bson.E{Key: path[0], Value: sub}), nil
}

// toD splits doc into its top level elements, leaving values raw.
func toD(doc bson.Raw) (bson.D, error) {
	elems, err := doc.Elements()
	if err != nil {
		return nil, fmt.Errorf("docquery: malformed document: %w", err)
	}
	d := make(bson.D, 0, len(elems))
	for _, e := range elems {
		d = append(d, bson.E{Key: e.Key(), Value: e.Value()})
	}
	return d, nil
}

func emptyDocument() bson.Raw {
	return bson.Raw{5, 0, 0, 0, 0}
}
