package objects

import (
	"bytes"
	"encoding/binary"

	"github.com/miekg/pkcs11"
)

// Sizes of the fixed-length PKCS#11 scalar encodings.
const (
	ULongSize = 8
	BoolSize  = 1
)

// CKAUniqueID is the PKCS#11 v3.0 CKA_UNIQUE_ID tag. It is assigned by the
// token when an object is committed.
const CKAUniqueID = 0x0000000A

// An attribute related to a token object. A nil Value means the attribute
// is present but has no value buffer (zero length).
type Attribute struct {
	Type  uint
	Value []byte
}

// A map of attributes
type Attributes map[uint]*Attribute

// Len returns the length of the attribute value.
func (attribute *Attribute) Len() int {
	return len(attribute.Value)
}

// Copy returns a deep copy of the attribute.
func (attribute *Attribute) Copy() *Attribute {
	cp := &Attribute{Type: attribute.Type}
	if attribute.Value != nil {
		cp.Value = append([]byte{}, attribute.Value...)
	}
	return cp
}

// Equals returns true if the attributes are equal.
func (attribute *Attribute) Equals(attribute2 *Attribute) bool {
	return attribute.Type == attribute2.Type &&
		bytes.Equal(attribute.Value, attribute2.Value)
}

// Equals returns true if the maps of attributes are equal.
func (attributes Attributes) Equals(attributes2 Attributes) bool {
	if len(attributes) != len(attributes2) {
		return false
	}
	for attrType, attribute := range attributes {
		attribute2, ok := attributes2[attrType]
		if !ok {
			return false
		}
		if !attribute.Equals(attribute2) {
			return false
		}
	}
	return true
}

// ULongAttribute encodes value as a CK_ULONG attribute.
func ULongAttribute(attrType uint, value uint64) *Attribute {
	buf := make([]byte, ULongSize)
	binary.NativeEndian.PutUint64(buf, value)
	return &Attribute{Type: attrType, Value: buf}
}

// BoolAttribute encodes value as a CK_BBOOL attribute.
func BoolAttribute(attrType uint, value bool) *Attribute {
	if value {
		return &Attribute{Type: attrType, Value: []byte{pkcs11.CK_TRUE}}
	}
	return &Attribute{Type: attrType, Value: []byte{pkcs11.CK_FALSE}}
}

// FromPKCS11 converts the attributes received from a caller into token
// attributes. The values are copied.
func FromPKCS11(attrs []*pkcs11.Attribute) []*Attribute {
	result := make([]*Attribute, 0, len(attrs))
	for _, attr := range attrs {
		if attr == nil {
			continue
		}
		converted := &Attribute{Type: attr.Type}
		if attr.Value != nil {
			converted.Value = append([]byte{}, attr.Value...)
		}
		result = append(result, converted)
	}
	return result
}

// ToPKCS11 converts token attributes into their miekg/pkcs11 form.
func ToPKCS11(attrs []*Attribute) []*pkcs11.Attribute {
	result := make([]*pkcs11.Attribute, len(attrs))
	for i, attr := range attrs {
		cp := attr.Copy()
		result[i] = &pkcs11.Attribute{Type: cp.Type, Value: cp.Value}
	}
	return result
}
