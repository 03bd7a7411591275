package objects

import "github.com/miekg/pkcs11"

// An Object is a committed hardware feature object of a token.
type Object struct {
	Handle   uint
	UniqueID string
	Kind     Kind
	Template *Template
}

// A map of objects
type Objects map[uint]*Object

// Equals returns true if the maps of objects are equal.
func (objects Objects) Equals(objects2 Objects) bool {
	if len(objects) != len(objects2) {
		return false
	}
	for handle, object := range objects {
		object2, ok := objects2[handle]
		if !ok {
			return false
		}
		if !object.Equals(object2) {
			return false
		}
	}
	return true
}

// Equals returns true if the objects are equal.
func (object *Object) Equals(object2 *Object) bool {
	return object.Handle == object2.Handle &&
		object.UniqueID == object2.UniqueID &&
		object.Kind == object2.Kind &&
		object.Template.Equals(object2.Template)
}

// Label returns the CKA_LABEL of the object, or an empty string.
func (object *Object) Label() string {
	if attr, ok := object.Template.Find(pkcs11.CKA_LABEL); ok {
		return string(attr.Value)
	}
	return ""
}

// Flag returns a boolean attribute, or def when it is missing or malformed.
func (object *Object) Flag(attrType uint, def bool) bool {
	value, err := object.Template.GetBool(attrType)
	if err != nil {
		return def
	}
	return value
}
