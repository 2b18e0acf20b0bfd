/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package bsonmap

import (
	"fmt"
	"reflect"
	"strings"

	"go.mongodb.org/mongo-driver/bson/bsoncodec"
)

// IDElement is the element name every identifier member is stored under.
const IDElement = "_id"

// DiscriminatorElement holds the type marker of discriminated documents.
const DiscriminatorElement = "_t"

// MemberMap describes how one struct field is stored.
type MemberMap struct {
	FieldName   string
	ElementName string
	Index       []int
	Type        reflect.Type
	OmitEmpty   bool

	encoder bsoncodec.ValueEncoder
	decoder bsoncodec.ValueDecoder
}

// SetElementName renames the stored element.
func (m *MemberMap) SetElementName(name string) *MemberMap {
	m.ElementName = name
	return m
}

// SetOmitEmpty skips the member when it holds its zero value.
func (m *MemberMap) SetOmitEmpty(omit bool) *MemberMap {
	m.OmitEmpty = omit
	return m
}

// SetSerializer overrides the registry encoder and decoder for this member.
func (m *MemberMap) SetSerializer(codec bsoncodec.ValueCodec) *MemberMap {
	m.encoder = codec
	m.decoder = codec
	return m
}

// HasSerializer reports whether the member carries its own codec.
func (m *MemberMap) HasSerializer() bool {
	return m.encoder != nil
}

// ClassMap is the serialization plan of one entity type.
type ClassMap struct {
	Type reflect.Type

	members  []*MemberMap
	idMember *MemberMap

	ignoreExtraElements          bool
	ignoreExtraElementsInherited bool
	discriminator                string
	discriminatorRequired        bool

	frozen    bool
	byElement map[string]*MemberMap
}

// NewClassMap starts an empty plan for t. Pointer types are dereferenced.
func NewClassMap(t reflect.Type) *ClassMap {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return &ClassMap{Type: t}
}

// AutoMap maps every exported field of the type. Element names come from the
// bson tag when present, otherwise from the Go field name. Fields tagged
// `bson:"-"` are skipped and `bson:",inline"` structs are flattened.
func (cm *ClassMap) AutoMap() *ClassMap {
	cm.mustNotBeFrozen()
	cm.autoMap(cm.Type, nil)
	return cm
}

func (cm *ClassMap) autoMap(t reflect.Type, parent []int) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, opts := parseTag(f.Tag.Get("bson"))
		if name == "-" {
			continue
		}
		index := append(append([]int(nil), parent...), i)
		if opts["inline"] && f.Type.Kind() == reflect.Struct {
			cm.autoMap(f.Type, index)
			continue
		}
		if name == "" {
			name = f.Name
		}
		if _, exists := cm.Member(f.Name); exists {
			continue
		}
		cm.members = append(cm.members, &MemberMap{
			FieldName:   f.Name,
			ElementName: name,
			Index:       index,
			Type:        f.Type,
			OmitEmpty:   opts["omitempty"],
		})
	}
}

// MapMember adds (or returns) the member for a named field.
func (cm *ClassMap) MapMember(fieldName string) *MemberMap {
	cm.mustNotBeFrozen()
	if m, ok := cm.Member(fieldName); ok {
		return m
	}
	f, ok := cm.Type.FieldByName(fieldName)
	if !ok {
		panic(fmt.Sprintf("bsonmap: %s has no field %q", cm.Type, fieldName))
	}
	m := &MemberMap{FieldName: f.Name, ElementName: f.Name, Index: f.Index, Type: f.Type}
	cm.members = append(cm.members, m)
	return m
}

// UnmapMember removes the member for a named field.
func (cm *ClassMap) UnmapMember(fieldName string) *ClassMap {
	cm.mustNotBeFrozen()
	for i, m := range cm.members {
		if m.FieldName == fieldName {
			cm.members = append(cm.members[:i], cm.members[i+1:]...)
			if cm.idMember == m {
				cm.idMember = nil
			}
			break
		}
	}
	return cm
}

// Member finds the member of a Go field.
func (cm *ClassMap) Member(fieldName string) (*MemberMap, bool) {
	for _, m := range cm.members {
		if m.FieldName == fieldName {
			return m, true
		}
	}
	return nil, false
}

// Members returns the mapped members, identifier first.
func (cm *ClassMap) Members() []*MemberMap {
	out := make([]*MemberMap, 0, len(cm.members))
	if cm.idMember != nil {
		out = append(out, cm.idMember)
	}
	for _, m := range cm.members {
		if m != cm.idMember {
			out = append(out, m)
		}
	}
	return out
}

// SetIDMember marks m as the document identity. It is stored as _id.
func (cm *ClassMap) SetIDMember(m *MemberMap) *ClassMap {
	cm.mustNotBeFrozen()
	if m != nil {
		m.ElementName = IDElement
		m.OmitEmpty = false
	}
	cm.idMember = m
	return cm
}

// IDMember returns the identity member, if any.
func (cm *ClassMap) IDMember() (*MemberMap, bool) {
	return cm.idMember, cm.idMember != nil
}

// SetIgnoreExtraElements makes the decoder skip unknown elements.
func (cm *ClassMap) SetIgnoreExtraElements(ignore bool) *ClassMap {
	cm.mustNotBeFrozen()
	cm.ignoreExtraElements = ignore
	return cm
}

// SetIgnoreExtraElementsIsInherited propagates the ignore policy to types
// that inline this one.
func (cm *ClassMap) SetIgnoreExtraElementsIsInherited(inherited bool) *ClassMap {
	cm.mustNotBeFrozen()
	cm.ignoreExtraElementsInherited = inherited
	return cm
}

// IgnoreExtraElements reports the unknown element policy.
func (cm *ClassMap) IgnoreExtraElements() bool { return cm.ignoreExtraElements }

// IgnoreExtraElementsIsInherited reports whether the policy is inherited.
func (cm *ClassMap) IgnoreExtraElementsIsInherited() bool { return cm.ignoreExtraElementsInherited }

// SetDiscriminator sets the value written to _t.
func (cm *ClassMap) SetDiscriminator(value string) *ClassMap {
	cm.mustNotBeFrozen()
	cm.discriminator = value
	return cm
}

// SetDiscriminatorIsRequired forces _t to be written and filtered on.
func (cm *ClassMap) SetDiscriminatorIsRequired(required bool) *ClassMap {
	cm.mustNotBeFrozen()
	cm.discriminatorRequired = required
	return cm
}

// Discriminator returns the _t value of the type.
func (cm *ClassMap) Discriminator() string { return cm.discriminator }

// DiscriminatorIsRequired reports whether reads must filter on _t.
func (cm *ClassMap) DiscriminatorIsRequired() bool {
	return cm.discriminatorRequired && cm.discriminator != ""
}

// ElementName translates a Go field name to its stored element name. Unknown
// names are returned unchanged so dotted paths and raw element names pass through.
func (cm *ClassMap) ElementName(fieldName string) string {
	if m, ok := cm.Member(fieldName); ok {
		return m.ElementName
	}
	return fieldName
}

// Frozen reports whether the map has been registered.
func (cm *ClassMap) Frozen() bool { return cm.frozen }

func (cm *ClassMap) freeze() {
	cm.byElement = make(map[string]*MemberMap, len(cm.members))
	for _, m := range cm.members {
		cm.byElement[m.ElementName] = m
	}
	cm.frozen = true
}

func (cm *ClassMap) mustNotBeFrozen() {
	if cm.frozen {
		panic(fmt.Sprintf("bsonmap: class map for %s is frozen", cm.Type))
	}
}

func parseTag(tag string) (string, map[string]bool) {
	if tag == "" {
		return "", nil
	}
	parts := strings.Split(tag, ",")
	opts := make(map[string]bool, len(parts)-1)
	for _, p := range parts[1:] {
		opts[strings.TrimSpace(p)] = true
	}
	return parts[0], opts
}
