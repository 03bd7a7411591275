package objects

import (
	"github.com/miekg/pkcs11"
)

// Counter is the CKH_MONOTONIC_COUNTER policy. CKA_VALUE, CKA_HAS_RESET and
// CKA_RESET_ON_INIT are owned by the token and never accepted from a
// caller, not even at creation.
type Counter struct {
	hwf *HWFeature
}

func NewCounter(hwf *HWFeature) Counter {
	return Counter{hwf: hwf}
}

func (c Counter) CheckRequiredAttributes(tmpl *Template, mode Mode) error {
	if mode == ModeCreate {
		if _, found := tmpl.Find(pkcs11.CKA_VALUE); !found {
			c.hwf.Log.Error().Msg("counter: CKA_VALUE missing")
			return NewError("Counter.CheckRequiredAttributes", "CKA_VALUE missing", pkcs11.CKR_TEMPLATE_INCOMPLETE)
		}
		if _, err := tmpl.GetBool(pkcs11.CKA_HAS_RESET); err != nil {
			c.hwf.Log.Error().Err(err).Msg("could not find CKA_HAS_RESET")
			return err
		}
		if _, err := tmpl.GetBool(pkcs11.CKA_RESET_ON_INIT); err != nil {
			c.hwf.Log.Error().Err(err).Msg("could not find CKA_RESET_ON_INIT")
			return err
		}
	}
	return c.hwf.CheckRequiredAttributes(tmpl, mode)
}

func (c Counter) ValidateAttribute(tmpl *Template, attr *Attribute, mode Mode) error {
	switch attr.Type {
	case pkcs11.CKA_VALUE, pkcs11.CKA_HAS_RESET, pkcs11.CKA_RESET_ON_INIT:
		c.hwf.Log.Error().Uint("type", attr.Type).Stringer("mode", mode).Msg("counter: attribute is read only")
		return NewError("Counter.ValidateAttribute", "counter attributes are read only", pkcs11.CKR_ATTRIBUTE_READ_ONLY)
	default:
		return c.hwf.ValidateAttribute(tmpl, attr, mode)
	}
}

// SetDefaultAttributes sets CKA_VALUE to an empty value and both reset flags
// to false. Either all three are stored or the template is left exactly as
// it was.
func (c Counter) SetDefaultAttributes(tmpl *Template, mode Mode) error {
	if err := c.hwf.SetDefaultAttributes(tmpl, mode); err != nil {
		return err
	}

	defaults := []struct {
		attrType uint
		size     int
	}{
		{pkcs11.CKA_VALUE, 0},
		{pkcs11.CKA_HAS_RESET, BoolSize},
		{pkcs11.CKA_RESET_ON_INIT, BoolSize},
	}

	pending := make([]*Attribute, 0, len(defaults))
	for _, d := range defaults {
		attr, err := c.hwf.Alloc.Allocate(d.attrType, d.size)
		if err != nil {
			c.hwf.Log.Error().Err(err).Uint("type", d.attrType).Msg("counter: allocation failed")
			c.release(pending)
			return NewError("Counter.SetDefaultAttributes", err.Error(), pkcs11.CKR_HOST_MEMORY)
		}
		pending = append(pending, attr)
	}
	// Allocate zeroes the buffers, which is CK_FALSE for both flags.

	previous := make([]*Attribute, len(pending))
	for i, attr := range pending {
		if old, found := tmpl.Find(attr.Type); found {
			previous[i] = old
		}
	}

	for i, attr := range pending {
		if err := tmpl.Update(attr); err != nil {
			c.hwf.Log.Debug().Err(err).Uint("type", attr.Type).Msg("counter: template update failed")
			c.release(pending[i:])
			c.restore(tmpl, pending[:i], previous[:i])
			return err
		}
	}
	return nil
}

func (c Counter) release(attrs []*Attribute) {
	for _, attr := range attrs {
		c.hwf.Alloc.Release(attr)
	}
}

// restore undoes the inserts of the attributes the template already took.
// Putting back a previous attribute replaces a tag, which cannot fail.
func (c Counter) restore(tmpl *Template, inserted, previous []*Attribute) {
	for i, attr := range inserted {
		if previous[i] != nil {
			_ = tmpl.Update(previous[i])
		} else {
			tmpl.Remove(attr.Type)
		}
		c.hwf.Alloc.Release(attr)
	}
}
