package main

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/miekg/pkcs11"
	"gopkg.in/yaml.v3"

	"github.com/niclabs/hwtoken/objects"
)

var attributeNames = map[uint]string{
	pkcs11.CKA_CLASS:           "CKA_CLASS",
	pkcs11.CKA_TOKEN:           "CKA_TOKEN",
	pkcs11.CKA_PRIVATE:         "CKA_PRIVATE",
	pkcs11.CKA_LABEL:           "CKA_LABEL",
	objects.CKAUniqueID:        "CKA_UNIQUE_ID",
	pkcs11.CKA_VALUE:           "CKA_VALUE",
	pkcs11.CKA_MODIFIABLE:      "CKA_MODIFIABLE",
	pkcs11.CKA_COPYABLE:        "CKA_COPYABLE",
	pkcs11.CKA_DESTROYABLE:     "CKA_DESTROYABLE",
	pkcs11.CKA_HW_FEATURE_TYPE: "CKA_HW_FEATURE_TYPE",
	pkcs11.CKA_RESET_ON_INIT:   "CKA_RESET_ON_INIT",
	pkcs11.CKA_HAS_RESET:       "CKA_HAS_RESET",
}

type objectView struct {
	Handle     uint            `yaml:"handle"`
	Kind       string          `yaml:"kind"`
	UniqueID   string          `yaml:"unique_id"`
	Attributes []attributeView `yaml:"attributes"`
}

type attributeView struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

func attributeName(attrType uint) string {
	if name, ok := attributeNames[attrType]; ok {
		return name
	}
	return fmt.Sprintf("0x%08x", attrType)
}

// formatValue prints scalars as numbers or booleans and labels as text.
// Everything else is hex encoded.
func formatValue(attr *objects.Attribute) string {
	switch attr.Type {
	case pkcs11.CKA_CLASS, pkcs11.CKA_HW_FEATURE_TYPE:
		if len(attr.Value) == objects.ULongSize {
			return fmt.Sprintf("%d", binary.NativeEndian.Uint64(attr.Value))
		}
	case pkcs11.CKA_TOKEN, pkcs11.CKA_PRIVATE, pkcs11.CKA_MODIFIABLE, pkcs11.CKA_COPYABLE,
		pkcs11.CKA_DESTROYABLE, pkcs11.CKA_RESET_ON_INIT, pkcs11.CKA_HAS_RESET:
		if len(attr.Value) == objects.BoolSize {
			return fmt.Sprintf("%t", attr.Value[0] != pkcs11.CK_FALSE)
		}
	case pkcs11.CKA_LABEL, objects.CKAUniqueID:
		return string(attr.Value)
	}
	return hex.EncodeToString(attr.Value)
}

func render(w io.Writer, format string, object *objects.Object, attrs []*objects.Attribute) error {
	view := objectView{
		Handle:   object.Handle,
		Kind:     object.Kind.String(),
		UniqueID: object.UniqueID,
	}
	for _, attr := range attrs {
		view.Attributes = append(view.Attributes, attributeView{
			Name:  attributeName(attr.Type),
			Value: formatValue(attr),
		})
	}

	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(view); err != nil {
			return err
		}
		return enc.Close()
	case "text":
		fmt.Fprintf(w, "handle: %d\nkind: %s\nunique id: %s\n", view.Handle, view.Kind, view.UniqueID)
		for _, attr := range view.Attributes {
			fmt.Fprintf(w, "  %-20s %s\n", attr.Name, attr.Value)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
