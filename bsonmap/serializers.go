/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package bsonmap

import (
	"fmt"
	"math/big"
	"reflect"
	"time"

	"github.com/go-openapi/strfmt"
	"go.mongodb.org/mongo-driver/bson/bsoncodec"
	"go.mongodb.org/mongo-driver/bson/bsonrw"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	tTime           = reflect.TypeOf(time.Time{})
	tStrfmtDateTime = reflect.TypeOf(strfmt.DateTime{})
	tBigFloat       = reflect.TypeOf(big.Float{})
	tStrfmtUUID     = reflect.TypeOf(strfmt.UUID(""))
)

// decimalPrecision covers the 34 significant digits of a Decimal128.
const decimalPrecision = 113

// DateTimeCodec stores time.Time and strfmt.DateTime values, and pointers to
// them, as BSON UTC datetimes with millisecond precision. Decoded values are
// always in UTC.
type DateTimeCodec struct{}

// IsDateTime reports whether t is handled by DateTimeCodec.
func IsDateTime(t reflect.Type) bool {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t == tTime || t == tStrfmtDateTime
}

func (DateTimeCodec) EncodeValue(_ bsoncodec.EncodeContext, vw bsonrw.ValueWriter, val reflect.Value) error {
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return vw.WriteNull()
		}
		val = val.Elem()
	}
	if !val.IsValid() || !IsDateTime(val.Type()) {
		return bsoncodec.ValueEncoderError{Name: "DateTimeCodec.EncodeValue", Types: []reflect.Type{tTime, tStrfmtDateTime}, Received: val}
	}
	t := val.Convert(tTime).Interface().(time.Time)
	return vw.WriteDateTime(t.UnixMilli())
}

func (DateTimeCodec) DecodeValue(_ bsoncodec.DecodeContext, vr bsonrw.ValueReader, val reflect.Value) error {
	if !val.CanSet() || !IsDateTime(val.Type()) {
		return bsoncodec.ValueDecoderError{Name: "DateTimeCodec.DecodeValue", Types: []reflect.Type{tTime, tStrfmtDateTime}, Received: val}
	}

	target := val
	if val.Kind() == reflect.Ptr {
		if vr.Type() == bsontype.Null {
			val.Set(reflect.Zero(val.Type()))
			return vr.ReadNull()
		}
		if val.IsNil() {
			val.Set(reflect.New(val.Type().Elem()))
		}
		target = val.Elem()
	}

	var t time.Time
	switch vr.Type() {
	case bsontype.DateTime:
		ms, err := vr.ReadDateTime()
		if err != nil {
			return err
		}
		t = time.UnixMilli(ms).UTC()
	case bsontype.String:
		s, err := vr.ReadString()
		if err != nil {
			return err
		}
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("parse datetime %q: %w", s, err)
		}
		t = parsed.UTC().Truncate(time.Millisecond)
	case bsontype.Null:
		if err := vr.ReadNull(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("cannot decode %v into %s", vr.Type(), target.Type())
	}

	target.Set(reflect.ValueOf(t).Convert(target.Type()))
	return nil
}

// DecimalCodec stores big.Float values, and pointers to them, as BSON
// Decimal128 so no precision is lost to a double.
type DecimalCodec struct{}

// IsDecimal reports whether t is handled by DecimalCodec.
func IsDecimal(t reflect.Type) bool {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t == tBigFloat
}

func (DecimalCodec) EncodeValue(_ bsoncodec.EncodeContext, vw bsonrw.ValueWriter, val reflect.Value) error {
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return vw.WriteNull()
		}
		val = val.Elem()
	}
	if !val.IsValid() || val.Type() != tBigFloat {
		return bsoncodec.ValueEncoderError{Name: "DecimalCodec.EncodeValue", Types: []reflect.Type{tBigFloat}, Received: val}
	}
	var f *big.Float
	if val.CanAddr() {
		f = val.Addr().Interface().(*big.Float)
	} else {
		cp := val.Interface().(big.Float)
		f = &cp
	}
	d, err := ToDecimal128(f)
	if err != nil {
		return err
	}
	return vw.WriteDecimal128(d)
}

func (DecimalCodec) DecodeValue(_ bsoncodec.DecodeContext, vr bsonrw.ValueReader, val reflect.Value) error {
	if !val.CanSet() || !IsDecimal(val.Type()) {
		return bsoncodec.ValueDecoderError{Name: "DecimalCodec.DecodeValue", Types: []reflect.Type{tBigFloat}, Received: val}
	}

	if vr.Type() == bsontype.Null {
		val.Set(reflect.Zero(val.Type()))
		return vr.ReadNull()
	}

	var f *big.Float
	switch vr.Type() {
	case bsontype.Decimal128:
		d, err := vr.ReadDecimal128()
		if err != nil {
			return err
		}
		if f, err = FromDecimal128(d); err != nil {
			return err
		}
	case bsontype.Double:
		v, err := vr.ReadDouble()
		if err != nil {
			return err
		}
		f = new(big.Float).SetPrec(decimalPrecision).SetFloat64(v)
	case bsontype.Int32:
		v, err := vr.ReadInt32()
		if err != nil {
			return err
		}
		f = new(big.Float).SetPrec(decimalPrecision).SetInt64(int64(v))
	case bsontype.Int64:
		v, err := vr.ReadInt64()
		if err != nil {
			return err
		}
		f = new(big.Float).SetPrec(decimalPrecision).SetInt64(v)
	default:
		return fmt.Errorf("cannot decode %v into %s", vr.Type(), val.Type())
	}

	if val.Kind() == reflect.Ptr {
		val.Set(reflect.ValueOf(f))
		return nil
	}
	val.Set(reflect.ValueOf(f).Elem())
	return nil
}

// ToDecimal128 converts f using the 34 significant digits Decimal128 can hold.
func ToDecimal128(f *big.Float) (primitive.Decimal128, error) {
	d, err := primitive.ParseDecimal128(f.Text('e', 33))
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("convert %s to decimal128: %w", f.String(), err)
	}
	return d, nil
}

// FromDecimal128 converts d to a big.Float. NaN and infinities are rejected.
func FromDecimal128(d primitive.Decimal128) (*big.Float, error) {
	bi, exp, err := d.BigInt()
	if err != nil {
		return nil, fmt.Errorf("convert decimal128 %s: %w", d.String(), err)
	}
	f := new(big.Float).SetPrec(decimalPrecision).SetInt(bi)
	if exp == 0 {
		return f, nil
	}
	scale := new(big.Float).SetPrec(decimalPrecision).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(abs(exp))), nil))
	if exp > 0 {
		return f.Mul(f, scale), nil
	}
	return f.Quo(f, scale), nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// uuidStringCodec writes strfmt.UUID, and pointers to it, as a plain string
// instead of the {"data": ...} document its own MarshalBSON produces.
type uuidStringCodec struct{}

func (uuidStringCodec) EncodeValue(_ bsoncodec.EncodeContext, vw bsonrw.ValueWriter, val reflect.Value) error {
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return vw.WriteNull()
		}
		val = val.Elem()
	}
	if !val.IsValid() || val.Type() != tStrfmtUUID {
		return bsoncodec.ValueEncoderError{Name: "uuidStringCodec.EncodeValue", Types: []reflect.Type{tStrfmtUUID}, Received: val}
	}
	return vw.WriteString(val.String())
}

func (uuidStringCodec) DecodeValue(_ bsoncodec.DecodeContext, vr bsonrw.ValueReader, val reflect.Value) error {
	if !val.CanSet() || (val.Type() != tStrfmtUUID && val.Type() != reflect.PointerTo(tStrfmtUUID)) {
		return bsoncodec.ValueDecoderError{Name: "uuidStringCodec.DecodeValue", Types: []reflect.Type{tStrfmtUUID}, Received: val}
	}

	target := val
	if val.Kind() == reflect.Ptr {
		if vr.Type() == bsontype.Null {
			val.Set(reflect.Zero(val.Type()))
			return vr.ReadNull()
		}
		if val.IsNil() {
			val.Set(reflect.New(tStrfmtUUID))
		}
		target = val.Elem()
	}

	switch vr.Type() {
	case bsontype.String:
		s, err := vr.ReadString()
		if err != nil {
			return err
		}
		target.SetString(s)
		return nil
	case bsontype.Null:
		target.SetString("")
		return vr.ReadNull()
	}
	return fmt.Errorf("cannot decode %v into %s", vr.Type(), tStrfmtUUID)
}
