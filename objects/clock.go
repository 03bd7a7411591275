package objects

import (
	"github.com/miekg/pkcs11"
)

// Clock is the CKH_CLOCK policy. Its CKA_VALUE mirrors an external clock
// and may be rewritten at any time.
type Clock struct {
	hwf *HWFeature
}

func NewClock(hwf *HWFeature) Clock {
	return Clock{hwf: hwf}
}

func (c Clock) CheckRequiredAttributes(tmpl *Template, mode Mode) error {
	if mode == ModeCreate {
		if _, found := tmpl.Find(pkcs11.CKA_VALUE); !found {
			c.hwf.Log.Error().Msg("clock: CKA_VALUE missing")
			return NewError("Clock.CheckRequiredAttributes", "CKA_VALUE missing", pkcs11.CKR_TEMPLATE_INCOMPLETE)
		}
	}
	return c.hwf.CheckRequiredAttributes(tmpl, mode)
}

func (c Clock) ValidateAttribute(tmpl *Template, attr *Attribute, mode Mode) error {
	switch attr.Type {
	case pkcs11.CKA_VALUE:
		return nil
	default:
		return c.hwf.ValidateAttribute(tmpl, attr, mode)
	}
}

// SetDefaultAttributes adds an empty CKA_VALUE when the caller gave none.
// An existing value is never touched.
func (c Clock) SetDefaultAttributes(tmpl *Template, mode Mode) error {
	if err := c.hwf.SetDefaultAttributes(tmpl, mode); err != nil {
		return err
	}
	if _, found := tmpl.Find(pkcs11.CKA_VALUE); found {
		return nil
	}
	value, err := c.hwf.Alloc.Allocate(pkcs11.CKA_VALUE, 0)
	if err != nil {
		c.hwf.Log.Error().Err(err).Msg("clock: could not allocate CKA_VALUE")
		return NewError("Clock.SetDefaultAttributes", err.Error(), pkcs11.CKR_HOST_MEMORY)
	}
	if err := tmpl.Update(value); err != nil {
		c.hwf.Log.Debug().Err(err).Msg("clock: template update failed")
		c.hwf.Alloc.Release(value)
		return err
	}
	return nil
}
