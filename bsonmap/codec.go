/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package bsonmap

import (
	"errors"
	"fmt"
	"reflect"

	"go.mongodb.org/mongo-driver/bson/bsoncodec"
	"go.mongodb.org/mongo-driver/bson/bsonrw"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// structCodec routes every struct through its class map when one is
// registered and through the driver's default struct codec otherwise.
type structCodec struct {
	maps     *Registry
	fallback *bsoncodec.StructCodec
}

func (c *structCodec) EncodeValue(ec bsoncodec.EncodeContext, vw bsonrw.ValueWriter, val reflect.Value) error {
	cm, ok := c.maps.Lookup(val.Type())
	if !ok {
		return c.fallback.EncodeValue(ec, vw, val)
	}
	return encodeClass(ec, vw, cm, val)
}

func (c *structCodec) DecodeValue(dc bsoncodec.DecodeContext, vr bsonrw.ValueReader, val reflect.Value) error {
	cm, ok := c.maps.Lookup(val.Type())
	if !ok {
		return c.fallback.DecodeValue(dc, vr, val)
	}
	return decodeClass(dc, vr, cm, val)
}

func encodeClass(ec bsoncodec.EncodeContext, vw bsonrw.ValueWriter, cm *ClassMap, val reflect.Value) error {
	dw, err := vw.WriteDocument()
	if err != nil {
		return err
	}

	if m := cm.idMember; m != nil {
		if err := encodeMember(ec, dw, m, val.FieldByIndex(m.Index)); err != nil {
			return err
		}
	}

	if cm.discriminator != "" {
		evw, err := dw.WriteDocumentElement(DiscriminatorElement)
		if err != nil {
			return err
		}
		if err := evw.WriteString(cm.discriminator); err != nil {
			return err
		}
	}

	for _, m := range cm.members {
		if m == cm.idMember {
			continue
		}
		fv := val.FieldByIndex(m.Index)
		if m.OmitEmpty && fv.IsZero() {
			continue
		}
		if err := encodeMember(ec, dw, m, fv); err != nil {
			return err
		}
	}
	return dw.WriteDocumentEnd()
}

func encodeMember(ec bsoncodec.EncodeContext, dw bsonrw.DocumentWriter, m *MemberMap, fv reflect.Value) error {
	evw, err := dw.WriteDocumentElement(m.ElementName)
	if err != nil {
		return err
	}
	if m.encoder != nil {
		return m.encoder.EncodeValue(ec, evw, fv)
	}
	if fv.Kind() == reflect.Interface {
		if fv.IsNil() {
			return evw.WriteNull()
		}
		fv = fv.Elem()
	}
	enc, err := ec.LookupEncoder(fv.Type())
	if err != nil {
		return fmt.Errorf("encode %s: %w", m.FieldName, err)
	}
	return enc.EncodeValue(ec, evw, fv)
}

func decodeClass(dc bsoncodec.DecodeContext, vr bsonrw.ValueReader, cm *ClassMap, val reflect.Value) error {
	if !val.CanSet() {
		return bsoncodec.ValueDecoderError{Name: "ClassMapDecodeValue", Kinds: []reflect.Kind{reflect.Struct}, Received: val}
	}
	if vr.Type() == bsontype.Null {
		val.Set(reflect.Zero(val.Type()))
		return vr.ReadNull()
	}

	dr, err := vr.ReadDocument()
	if err != nil {
		return err
	}
	for {
		name, evr, err := dr.ReadElement()
		if errors.Is(err, bsonrw.ErrEOD) {
			return nil
		}
		if err != nil {
			return err
		}

		m, ok := cm.byElement[name]
		if !ok {
			if name == DiscriminatorElement || cm.ignoreExtraElements {
				if err := evr.Skip(); err != nil {
					return err
				}
				continue
			}
			return fmt.Errorf("bsonmap: element %q does not match any field of %s", name, cm.Type)
		}

		fv := val.FieldByIndex(m.Index)
		dec := m.decoder
		if dec == nil {
			dec, err = dc.LookupDecoder(fv.Type())
			if err != nil {
				return fmt.Errorf("decode %s: %w", m.FieldName, err)
			}
		}
		if err := dec.DecodeValue(dc, evr, fv); err != nil {
			return fmt.Errorf("decode %s: %w", m.FieldName, err)
		}
	}
}
