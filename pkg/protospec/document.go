// Package protospec loads protocol specification documents and exposes
// read-only lookups over them: block templates by type name, item
// templates by name inside a block, and symbolic-name resolution in
// code tables. A document is loaded once per protocol and shared;
// nothing in it is mutated after load, so concurrent readers need no
// locking.
package protospec

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// FieldType is the item type marker for a leaf field.
const FieldType = "field"

// dependsPrefix marks an item whose concrete block type is resolved at
// build time from the value of another field.
const dependsPrefix = "depends:"

// Kind is the tagged variant of an item template: a leaf field, a
// nested block of a concrete type, or a dependency placeholder.
type Kind int

const (
	KindField Kind = iota
	KindBlock
	KindDepends
)

// ItemTemplate describes one child of a block: a name, a type (the
// "field" marker, a block type name, or "depends:<field>") and an
// optional size. Size is either a byte count or an expression over
// sibling and ancestor field names, as in:
//
//	{"name": "string_value", "type": "field", "size": "string_length"}
type ItemTemplate struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
	Size any    `json:"size,omitempty" yaml:"size,omitempty"`
}

// Kind reports which variant this template is.
func (t ItemTemplate) Kind() Kind {
	switch {
	case t.Type == FieldType:
		return KindField
	case strings.HasPrefix(t.Type, dependsPrefix):
		return KindDepends
	default:
		return KindBlock
	}
}

// Dependency returns the field name a KindDepends template resolves
// through. Empty for other kinds.
func (t ItemTemplate) Dependency() string {
	dep, _ := Dependency(t.Type)
	return dep
}

// Dependency reports whether typ is a dependency placeholder
// ("depends:<field>") and the field it names.
func Dependency(typ string) (string, bool) {
	if !strings.HasPrefix(typ, dependsPrefix) {
		return "", false
	}
	return strings.TrimPrefix(typ, dependsPrefix), true
}

// FixedSize returns the declared byte count when the size is a plain
// number. JSON and YAML decoders produce different numeric types, so
// all of them are accepted.
func (t ItemTemplate) FixedSize() (int, bool) {
	switch v := t.Size.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case uint64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

// SizeExpr returns the size expression when the size is a string.
func (t ItemTemplate) SizeExpr() (string, bool) {
	s, ok := t.Size.(string)
	return s, ok
}

// Document is one parsed protocol specification: block templates and
// code tables. Treat it as frozen after load.
type Document struct {
	Blocks map[string][]ItemTemplate    `json:"blocks" yaml:"blocks"`
	Codes  map[string]map[string]string `json:"codes" yaml:"codes"`
}

// Parse decodes a specification document from JSON or YAML, sniffing
// the format from the first significant byte.
func Parse(data []byte) (*Document, error) {
	var doc Document
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing specification document: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing specification document: %w", err)
		}
	}
	return &doc, nil
}

// BlockTemplate returns the ordered item templates of a block type.
func (d *Document) BlockTemplate(blockType string) ([]ItemTemplate, bool) {
	t, ok := d.Blocks[blockType]
	return t, ok
}

// ItemTemplate returns the named item template inside a block type.
func (d *Document) ItemTemplate(blockType, itemName string) (ItemTemplate, bool) {
	for _, item := range d.Blocks[blockType] {
		if item.Name == itemName {
			return item, true
		}
	}
	return ItemTemplate{}, false
}

// ResolveCode looks a symbolic key up in the named code table.
func (d *Document) ResolveCode(table, key string) (string, bool) {
	name, ok := d.Codes[table][key]
	return name, ok
}

// ResolveCodeBytes looks a raw byte key up in the named code table by
// decoding each table key to bytes first.
func (d *Document) ResolveCodeBytes(table string, raw []byte) (string, bool) {
	for key, name := range d.Codes[table] {
		if bytes.Equal(raw, CodeKeyBytes(key)) {
			return name, true
		}
	}
	return "", false
}

// CodeID is the reverse lookup: the table key associated with a
// symbolic name. Used to fill a header type field when building a
// frame by type name.
func (d *Document) CodeID(table, name string) (string, bool) {
	for key, n := range d.Codes[table] {
		if n == name {
			return key, true
		}
	}
	return "", false
}

// CodeKeyBytes decodes a code table key to the bytes it stands for on
// the wire: "0x"-prefixed keys are hex renderings of byte values,
// anything else is taken literally.
func CodeKeyBytes(key string) []byte {
	if strings.HasPrefix(key, "0x") {
		if b, err := hex.DecodeString(key[2:]); err == nil {
			return b
		}
	}
	return []byte(key)
}
