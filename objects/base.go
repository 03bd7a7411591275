package objects

import (
	"fmt"

	"github.com/miekg/pkcs11"
	"github.com/rs/zerolog"
)

// BaseObject is the policy shared by every token object. Object-specific
// policies fall back to it for the attributes they do not handle.
type BaseObject interface {
	// CheckRequiredBaseAttributes checks the attributes every object needs.
	CheckRequiredBaseAttributes(tmpl *Template, mode Mode) error
	// ValidateBaseAttribute checks a single attribute write.
	ValidateBaseAttribute(tmpl *Template, attr *Attribute, mode Mode) error
	// SetDefaultBaseAttributes fills the common attributes a caller omitted.
	SetDefaultBaseAttributes(tmpl *Template, mode Mode) error
}

// GenericObject implements BaseObject for storage objects.
type GenericObject struct {
	Log zerolog.Logger
}

func (g GenericObject) CheckRequiredBaseAttributes(tmpl *Template, mode Mode) error {
	if _, err := tmpl.GetULong(pkcs11.CKA_CLASS); err != nil && mode == ModeCreate {
		g.Log.Error().Err(err).Msg("could not find CKA_CLASS")
		return err
	}
	return nil
}

func (g GenericObject) ValidateBaseAttribute(tmpl *Template, attr *Attribute, mode Mode) error {
	switch attr.Type {
	case pkcs11.CKA_CLASS:
		return g.validateCreateOnly(attr, ULongSize, mode)
	case pkcs11.CKA_TOKEN, pkcs11.CKA_PRIVATE, pkcs11.CKA_MODIFIABLE,
		pkcs11.CKA_COPYABLE, pkcs11.CKA_DESTROYABLE:
		return g.validateCreateOnly(attr, BoolSize, mode)
	case pkcs11.CKA_LABEL:
		return nil
	case CKAUniqueID:
		g.Log.Error().Uint("type", attr.Type).Msg("attribute is read only")
		return NewError("GenericObject.ValidateBaseAttribute", "CKA_UNIQUE_ID is assigned by the token", pkcs11.CKR_ATTRIBUTE_READ_ONLY)
	default:
		g.Log.Error().Uint("type", attr.Type).Msg("attribute type invalid")
		return NewError("GenericObject.ValidateBaseAttribute", fmt.Sprintf("attribute type 0x%x invalid", attr.Type), pkcs11.CKR_ATTRIBUTE_TYPE_INVALID)
	}
}

func (g GenericObject) validateCreateOnly(attr *Attribute, size int, mode Mode) error {
	if attr.Value == nil || len(attr.Value) != size {
		g.Log.Error().Uint("type", attr.Type).Int("len", len(attr.Value)).Msg("attribute value invalid")
		return NewError("GenericObject.ValidateBaseAttribute", fmt.Sprintf("attribute 0x%x must be %d bytes long", attr.Type, size), pkcs11.CKR_ATTRIBUTE_VALUE_INVALID)
	}
	if mode == ModeCreate {
		return nil
	}
	g.Log.Error().Uint("type", attr.Type).Msg("attribute is read only")
	return NewError("GenericObject.ValidateBaseAttribute", fmt.Sprintf("attribute 0x%x is read only", attr.Type), pkcs11.CKR_ATTRIBUTE_READ_ONLY)
}

func (g GenericObject) SetDefaultBaseAttributes(tmpl *Template, mode Mode) error {
	err := tmpl.SetIfUndefined(
		BoolAttribute(pkcs11.CKA_TOKEN, false),
		BoolAttribute(pkcs11.CKA_PRIVATE, false),
		BoolAttribute(pkcs11.CKA_MODIFIABLE, true),
		BoolAttribute(pkcs11.CKA_COPYABLE, true),
		BoolAttribute(pkcs11.CKA_DESTROYABLE, true),
		&Attribute{Type: pkcs11.CKA_LABEL},
	)
	if err != nil {
		g.Log.Debug().Err(err).Msg("setting common defaults failed")
	}
	return err
}
