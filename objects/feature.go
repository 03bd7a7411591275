package objects

import (
	"fmt"

	"github.com/miekg/pkcs11"
)

// Kind identifies a hardware feature subtype.
type Kind int

const (
	KindClock Kind = iota + 1
	KindCounter
)

func (kind Kind) String() string {
	switch kind {
	case KindClock:
		return "clock"
	case KindCounter:
		return "counter"
	default:
		return "unknown"
	}
}

// FeatureType returns the CKA_HW_FEATURE_TYPE value of kind.
func (kind Kind) FeatureType() uint64 {
	switch kind {
	case KindClock:
		return pkcs11.CKH_CLOCK
	case KindCounter:
		return pkcs11.CKH_MONOTONIC_COUNTER
	default:
		return 0
	}
}

// ParseKind maps a kind name back to its Kind.
func ParseKind(name string) (Kind, error) {
	switch name {
	case "clock":
		return KindClock, nil
	case "counter":
		return KindCounter, nil
	default:
		return 0, fmt.Errorf("unknown hardware feature kind %q", name)
	}
}

// Feature is the policy of one hardware feature subtype. It only refers to
// the shared HWFeature policy and dispatches on its kind.
type Feature struct {
	Kind Kind
	hwf  *HWFeature
}

// NewFeature selects the policy for a CKA_HW_FEATURE_TYPE value.
func NewFeature(hwf *HWFeature, featureType uint64) (Feature, error) {
	switch featureType {
	case pkcs11.CKH_CLOCK:
		return Feature{Kind: KindClock, hwf: hwf}, nil
	case pkcs11.CKH_MONOTONIC_COUNTER:
		return Feature{Kind: KindCounter, hwf: hwf}, nil
	default:
		return Feature{}, NewError("objects.NewFeature", fmt.Sprintf("hardware feature type 0x%x not supported", featureType), pkcs11.CKR_ATTRIBUTE_VALUE_INVALID)
	}
}

// FeatureOf returns the policy for an already known kind.
func FeatureOf(hwf *HWFeature, kind Kind) (Feature, error) {
	return NewFeature(hwf, kind.FeatureType())
}

func (f Feature) CheckRequiredAttributes(tmpl *Template, mode Mode) error {
	switch f.Kind {
	case KindClock:
		return NewClock(f.hwf).CheckRequiredAttributes(tmpl, mode)
	case KindCounter:
		return NewCounter(f.hwf).CheckRequiredAttributes(tmpl, mode)
	default:
		return f.hwf.CheckRequiredAttributes(tmpl, mode)
	}
}

func (f Feature) ValidateAttribute(tmpl *Template, attr *Attribute, mode Mode) error {
	switch f.Kind {
	case KindClock:
		return NewClock(f.hwf).ValidateAttribute(tmpl, attr, mode)
	case KindCounter:
		return NewCounter(f.hwf).ValidateAttribute(tmpl, attr, mode)
	default:
		return f.hwf.ValidateAttribute(tmpl, attr, mode)
	}
}

func (f Feature) SetDefaultAttributes(tmpl *Template, mode Mode) error {
	switch f.Kind {
	case KindClock:
		return NewClock(f.hwf).SetDefaultAttributes(tmpl, mode)
	case KindCounter:
		return NewCounter(f.hwf).SetDefaultAttributes(tmpl, mode)
	default:
		return f.hwf.SetDefaultAttributes(tmpl, mode)
	}
}
