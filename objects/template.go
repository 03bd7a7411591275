package objects

import (
	"encoding/binary"
	"fmt"

	"github.com/miekg/pkcs11"
)

// Template is the attribute set of a token object. Attributes keep the
// order in which they were first inserted and tags are unique.
//
// A Template is not safe for concurrent use. The caller serializes access
// for the whole create or modify sequence.
type Template struct {
	attributes Attributes
	order      []uint
	// MaxAttributes bounds the number of distinct tags. Zero means no bound.
	MaxAttributes int
}

// NewTemplate returns an empty template holding at most maxAttributes tags.
func NewTemplate(maxAttributes int) *Template {
	return &Template{
		attributes:    make(Attributes),
		MaxAttributes: maxAttributes,
	}
}

// NewTemplateFrom builds an unbounded template from attrs. Later
// attributes with a repeated tag replace earlier ones and nil entries are
// skipped.
func NewTemplateFrom(attrs ...*Attribute) *Template {
	tmpl := NewTemplate(0)
	for _, attr := range attrs {
		if attr == nil {
			continue
		}
		// An unbounded template only rejects nil attributes.
		_ = tmpl.Update(attr)
	}
	return tmpl
}

// Len returns the number of attributes in the template.
func (tmpl *Template) Len() int {
	return len(tmpl.order)
}

// Find returns the attribute with the given tag.
func (tmpl *Template) Find(attrType uint) (*Attribute, bool) {
	attr, ok := tmpl.attributes[attrType]
	return attr, ok
}

// GetULong decodes a CK_ULONG attribute.
func (tmpl *Template) GetULong(attrType uint) (uint64, error) {
	attr, ok := tmpl.Find(attrType)
	if !ok {
		return 0, NewError("Template.GetULong", fmt.Sprintf("attribute 0x%x not found", attrType), pkcs11.CKR_TEMPLATE_INCOMPLETE)
	}
	if attr.Value == nil || len(attr.Value) != ULongSize {
		return 0, NewError("Template.GetULong", fmt.Sprintf("attribute 0x%x is not a CK_ULONG", attrType), pkcs11.CKR_ATTRIBUTE_VALUE_INVALID)
	}
	return binary.NativeEndian.Uint64(attr.Value), nil
}

// GetBool decodes a CK_BBOOL attribute.
func (tmpl *Template) GetBool(attrType uint) (bool, error) {
	attr, ok := tmpl.Find(attrType)
	if !ok {
		return false, NewError("Template.GetBool", fmt.Sprintf("attribute 0x%x not found", attrType), pkcs11.CKR_TEMPLATE_INCOMPLETE)
	}
	if attr.Value == nil || len(attr.Value) != BoolSize {
		return false, NewError("Template.GetBool", fmt.Sprintf("attribute 0x%x is not a CK_BBOOL", attrType), pkcs11.CKR_ATTRIBUTE_VALUE_INVALID)
	}
	return attr.Value[0] != pkcs11.CK_FALSE, nil
}

// Update inserts attr, or replaces the attribute with the same tag. The
// template takes ownership of attr. Adding a new tag to a full template
// fails with CKR_HOST_MEMORY and leaves the template unchanged.
func (tmpl *Template) Update(attr *Attribute) error {
	if attr == nil {
		return NewError("Template.Update", "got nil attribute", pkcs11.CKR_ARGUMENTS_BAD)
	}
	if _, ok := tmpl.attributes[attr.Type]; ok {
		tmpl.attributes[attr.Type] = attr
		return nil
	}
	if tmpl.MaxAttributes > 0 && len(tmpl.order) >= tmpl.MaxAttributes {
		return NewError("Template.Update", "template is full", pkcs11.CKR_HOST_MEMORY)
	}
	tmpl.attributes[attr.Type] = attr
	tmpl.order = append(tmpl.order, attr.Type)
	return nil
}

// Remove deletes the attribute with the given tag, if present.
func (tmpl *Template) Remove(attrType uint) {
	if _, ok := tmpl.attributes[attrType]; !ok {
		return
	}
	delete(tmpl.attributes, attrType)
	for i, t := range tmpl.order {
		if t == attrType {
			tmpl.order = append(tmpl.order[:i], tmpl.order[i+1:]...)
			break
		}
	}
}

// SetIfUndefined inserts only the attributes whose tag is not present yet.
func (tmpl *Template) SetIfUndefined(attrs ...*Attribute) error {
	for _, attr := range attrs {
		if _, ok := tmpl.Find(attr.Type); ok {
			continue
		}
		if err := tmpl.Update(attr); err != nil {
			return err
		}
	}
	return nil
}

// Merge copies every attribute of other into tmpl, replacing attributes
// with the same tag.
func (tmpl *Template) Merge(other *Template) error {
	for _, attr := range other.Attributes() {
		if err := tmpl.Update(attr.Copy()); err != nil {
			return err
		}
	}
	return nil
}

// Attributes returns the attributes in insertion order. The returned
// attributes are still owned by the template.
func (tmpl *Template) Attributes() []*Attribute {
	attrs := make([]*Attribute, len(tmpl.order))
	for i, t := range tmpl.order {
		attrs[i] = tmpl.attributes[t]
	}
	return attrs
}

// Clone returns a deep copy of the template.
func (tmpl *Template) Clone() *Template {
	cp := NewTemplate(tmpl.MaxAttributes)
	for _, attr := range tmpl.Attributes() {
		cp.attributes[attr.Type] = attr.Copy()
		cp.order = append(cp.order, attr.Type)
	}
	return cp
}

// Equals returns true if both templates hold the same attributes.
func (tmpl *Template) Equals(tmpl2 *Template) bool {
	return tmpl.attributes.Equals(tmpl2.attributes)
}

// Match returns true if tmpl holds every attribute of query with the same
// value.
func (tmpl *Template) Match(query []*Attribute) bool {
	for _, q := range query {
		attr, ok := tmpl.Find(q.Type)
		if !ok || !attr.Equals(q) {
			return false
		}
	}
	return true
}
