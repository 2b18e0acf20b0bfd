/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package docquery

import (
	"bytes"
	"math/big"
	"strings"

	"github.com/suparena/doccontext/bsonmap"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// canonical type order used when values of different types are compared
func rank(t bsontype.Type) int {
	switch t {
	case bsontype.MinKey:
		return 1
	case bsontype.Null, bsontype.Undefined, 0:
		return 2
	case bsontype.Int32, bsontype.Int64, bsontype.Double, bsontype.Decimal128:
		return 3
	case bsontype.String, bsontype.Symbol:
		return 4
	case bsontype.EmbeddedDocument:
		return 5
	case bsontype.Array:
		return 6
	case bsontype.Binary:
		return 7
	case bsontype.ObjectID:
		return 8
	case bsontype.Boolean:
		return 9
	case bsontype.DateTime:
		return 10
	case bsontype.Timestamp:
		return 11
	case bsontype.Regex:
		return 12
	case bsontype.MaxKey:
		return 14
	}
	return 13
}

// Compare orders two values. A zero RawValue stands for a missing element
// and sorts with null.
func Compare(a, b bson.RawValue) int {
	ra, rb := rank(a.Type), rank(b.Type)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}

	switch ra {
	case 2, 1, 14:
		return 0
	case 3:
		return number(a).Cmp(number(b))
	case 4:
		return strings.Compare(stringOf(a), stringOf(b))
	case 8:
		oa, ob := a.ObjectID(), b.ObjectID()
		return bytes.Compare(oa[:], ob[:])
	case 9:
		ba, bb := a.Boolean(), b.Boolean()
		switch {
		case ba == bb:
			return 0
		case !ba:
			return -1
		}
		return 1
	case 10:
		return cmpInt64(a.DateTime(), b.DateTime())
	case 11:
		ta, ia := a.Timestamp()
		tb, ib := b.Timestamp()
		if ta != tb {
			return cmpInt64(int64(ta), int64(tb))
		}
		return cmpInt64(int64(ia), int64(ib))
	case 7:
		sa, da := a.Binary()
		sb, db := b.Binary()
		if len(da) != len(db) {
			return cmpInt64(int64(len(da)), int64(len(db)))
		}
		if sa != sb {
			return cmpInt64(int64(sa), int64(sb))
		}
		return bytes.Compare(da, db)
	case 5:
		return compareDocuments(a.Document(), b.Document())
	case 6:
		return compareDocuments(bson.Raw(a.Array()), bson.Raw(b.Array()))
	}
	return bytes.Compare(a.Value, b.Value)
}

// Equal reports whether two values are equal under Compare.
func Equal(a, b bson.RawValue) bool {
	return Compare(a, b) == 0
}

func compareDocuments(a, b bson.Raw) int {
	ea, _ := a.Elements()
	eb, _ := b.Elements()
	for i := 0; i < len(ea) && i < len(eb); i++ {
		if c := Compare(ea[i].Value(), eb[i].Value()); c != 0 {
			return c
		}
		if c := strings.Compare(ea[i].Key(), eb[i].Key()); c != 0 {
			return c
		}
	}
	return cmpInt64(int64(len(ea)), int64(len(eb)))
}

func number(v bson.RawValue) *big.Float {
	f := new(big.Float).SetPrec(128)
	switch v.Type {
	case bsontype.Int32:
		return f.SetInt64(int64(v.Int32()))
	case bsontype.Int64:
		return f.SetInt64(v.Int64())
	case bsontype.Double:
		d := v.Double()
		if d != d {
			return f
		}
		return f.SetFloat64(d)
	case bsontype.Decimal128:
		if d, err := bsonmap.FromDecimal128(v.Decimal128()); err == nil {
			return d
		}
	}
	return f
}

func stringOf(v bson.RawValue) string {
	if v.Type == bsontype.Symbol {
		return v.Symbol()
	}
	return v.StringValue()
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
