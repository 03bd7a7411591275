package objects

import (
	"github.com/miekg/pkcs11"
	"github.com/rs/zerolog"
)

// HWFeature holds the rules shared by every hardware feature object. The
// feature type is fixed-size and can only be written at creation. Every
// other attribute is handled by the base object policy.
type HWFeature struct {
	Base  BaseObject
	Alloc Allocator
	Log   zerolog.Logger
}

// NewHWFeature returns the hardware feature policy layered on base. A nil
// allocator means HeapAllocator.
func NewHWFeature(base BaseObject, alloc Allocator, log zerolog.Logger) *HWFeature {
	if alloc == nil {
		alloc = HeapAllocator{}
	}
	return &HWFeature{
		Base:  base,
		Alloc: alloc,
		Log:   log,
	}
}

// CheckRequiredAttributes requires CKA_HW_FEATURE_TYPE at creation. Objects
// being modified may lack it.
func (hwf *HWFeature) CheckRequiredAttributes(tmpl *Template, mode Mode) error {
	if _, err := tmpl.GetULong(pkcs11.CKA_HW_FEATURE_TYPE); err != nil {
		switch mode {
		case ModeCreate:
			hwf.Log.Error().Err(err).Msg("could not find CKA_HW_FEATURE_TYPE")
			return err
		case ModeModify:
		}
	}
	return hwf.Base.CheckRequiredBaseAttributes(tmpl, mode)
}

// ValidateAttribute checks a write of attr.
func (hwf *HWFeature) ValidateAttribute(tmpl *Template, attr *Attribute, mode Mode) error {
	switch attr.Type {
	case pkcs11.CKA_HW_FEATURE_TYPE:
		if attr.Value == nil || len(attr.Value) != ULongSize {
			hwf.Log.Error().Int("len", len(attr.Value)).Msg("CKA_HW_FEATURE_TYPE value invalid")
			return NewError("HWFeature.ValidateAttribute", "CKA_HW_FEATURE_TYPE must be a CK_ULONG", pkcs11.CKR_ATTRIBUTE_VALUE_INVALID)
		}
		if mode == ModeCreate {
			return nil
		}
		hwf.Log.Error().Stringer("mode", mode).Msg("CKA_HW_FEATURE_TYPE is read only")
		return NewError("HWFeature.ValidateAttribute", "CKA_HW_FEATURE_TYPE is read only", pkcs11.CKR_ATTRIBUTE_READ_ONLY)
	default:
		return hwf.Base.ValidateBaseAttribute(tmpl, attr, mode)
	}
}

// SetDefaultAttributes is the hook for defaults common to every hardware
// feature. It sets nothing: the CKA_LOCAL=false default is deliberately
// not applied. Subtypes call it before their own defaults.
func (hwf *HWFeature) SetDefaultAttributes(tmpl *Template, mode Mode) error {
	return nil
}
