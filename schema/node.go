package schema

import (
	"fmt"
	"sort"
)

// Kind identifies the value kind a Node constrains.
type Kind string

const (
	KindNull    Kind = "null"
	KindBoolean Kind = "boolean"
	KindInteger Kind = "integer"
	KindNumber  Kind = "number"
	KindString  Kind = "string"
	KindArray   Kind = "array"
	KindObject  Kind = "object"
	KindOneOf   Kind = "oneOf"
)

// Node is the resolved, reference-free representation of a JSON Schema
// subset constraint. Exactly one kind applies per node; the remaining
// fields are meaningful only for their kind.
type Node struct {
	Kind Kind

	// String constraints. Format is a generation hint only and is never
	// enforced during validation.
	Format string
	Enum   []string

	// Numeric bounds for integer and number kinds.
	Minimum *float64
	Maximum *float64

	// Array constraints. A nil Items leaves elements unconstrained.
	Items    *Node
	MinItems *int
	MaxItems *int

	// Object constraints. Properties keeps a stable order so that
	// validation errors and generated values are deterministic.
	Properties           []Property
	Required             []string
	AdditionalProperties bool

	// Alternatives for the oneOf kind.
	OneOf []*Node
}

// Property binds a declared object property name to its schema.
type Property struct {
	Name   string
	Schema *Node
}

// PropertyNamed returns the schema declared for name, or nil.
func (n *Node) PropertyNamed(name string) *Node {
	for _, p := range n.Properties {
		if p.Name == name {
			return p.Schema
		}
	}
	return nil
}

// InvalidSchemaError reports a raw schema fragment that cannot be decoded
// into the supported subset.
type InvalidSchemaError struct {
	Path   string
	Reason string
}

func (e *InvalidSchemaError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid schema: %s", e.Reason)
	}
	return fmt.Sprintf("invalid schema at %s: %s", e.Path, e.Reason)
}

// Decode converts an already-resolved raw schema fragment (nested maps,
// sequences and scalars) into a Node. References must have been substituted
// beforehand; a remaining $ref is rejected.
func Decode(raw any) (*Node, error) {
	return decode(raw, "")
}

func decode(raw any, path string) (*Node, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, &InvalidSchemaError{Path: path, Reason: fmt.Sprintf("expected mapping, got %T", raw)}
	}

	if _, ok := m["$ref"]; ok {
		return nil, &InvalidSchemaError{Path: path, Reason: "unresolved $ref"}
	}

	if rawAlts, ok := m["oneOf"]; ok {
		return decodeOneOf(rawAlts, path)
	}

	typeName, ok := m["type"].(string)
	if !ok {
		return nil, &InvalidSchemaError{Path: path, Reason: "missing type"}
	}

	switch Kind(typeName) {
	case KindNull, KindBoolean, KindInteger, KindNumber:
		node := &Node{Kind: Kind(typeName)}
		if err := decodeBounds(node, m, path); err != nil {
			return nil, err
		}
		return node, nil
	case KindString:
		return decodeString(m, path)
	case KindArray:
		return decodeArray(m, path)
	case KindObject:
		return decodeObject(m, path)
	default:
		return nil, &InvalidSchemaError{Path: path, Reason: fmt.Sprintf("unsupported type %q", typeName)}
	}
}

func decodeOneOf(rawAlts any, path string) (*Node, error) {
	alts, ok := rawAlts.([]any)
	if !ok {
		return nil, &InvalidSchemaError{Path: joinPath(path, "oneOf"), Reason: fmt.Sprintf("expected sequence, got %T", rawAlts)}
	}
	if len(alts) == 0 {
		return nil, &InvalidSchemaError{Path: joinPath(path, "oneOf"), Reason: "must list at least one alternative"}
	}

	node := &Node{Kind: KindOneOf, OneOf: make([]*Node, 0, len(alts))}
	for i, alt := range alts {
		sub, err := decode(alt, fmt.Sprintf("%s[%d]", joinPath(path, "oneOf"), i))
		if err != nil {
			return nil, err
		}
		node.OneOf = append(node.OneOf, sub)
	}
	return node, nil
}

func decodeString(m map[string]any, path string) (*Node, error) {
	node := &Node{Kind: KindString}

	if rawFormat, ok := m["format"]; ok {
		format, ok := rawFormat.(string)
		if !ok {
			return nil, &InvalidSchemaError{Path: joinPath(path, "format"), Reason: "must be a string"}
		}
		node.Format = format
	}

	if rawEnum, ok := m["enum"]; ok {
		members, ok := rawEnum.([]any)
		if !ok {
			return nil, &InvalidSchemaError{Path: joinPath(path, "enum"), Reason: fmt.Sprintf("expected sequence, got %T", rawEnum)}
		}
		if len(members) == 0 {
			return nil, &InvalidSchemaError{Path: joinPath(path, "enum"), Reason: "must not be empty"}
		}
		node.Enum = make([]string, 0, len(members))
		for _, member := range members {
			s, ok := member.(string)
			if !ok {
				return nil, &InvalidSchemaError{Path: joinPath(path, "enum"), Reason: fmt.Sprintf("member %v is not a string", member)}
			}
			node.Enum = append(node.Enum, s)
		}
	}

	return node, nil
}

func decodeArray(m map[string]any, path string) (*Node, error) {
	node := &Node{Kind: KindArray}

	if rawItems, ok := m["items"]; ok {
		items, err := decode(rawItems, joinPath(path, "items"))
		if err != nil {
			return nil, err
		}
		node.Items = items
	}

	var err error
	if node.MinItems, err = intField(m, "minItems", path); err != nil {
		return nil, err
	}
	if node.MaxItems, err = intField(m, "maxItems", path); err != nil {
		return nil, err
	}
	if node.MinItems != nil && *node.MinItems < 0 {
		return nil, &InvalidSchemaError{Path: joinPath(path, "minItems"), Reason: "must not be negative"}
	}
	if node.MinItems != nil && node.MaxItems != nil && *node.MaxItems < *node.MinItems {
		return nil, &InvalidSchemaError{Path: joinPath(path, "maxItems"), Reason: "must not be less than minItems"}
	}

	return node, nil
}

func decodeObject(m map[string]any, path string) (*Node, error) {
	node := &Node{Kind: KindObject, AdditionalProperties: true}

	if rawProps, ok := m["properties"]; ok {
		props, ok := rawProps.(map[string]any)
		if !ok {
			return nil, &InvalidSchemaError{Path: joinPath(path, "properties"), Reason: fmt.Sprintf("expected mapping, got %T", rawProps)}
		}

		names := make([]string, 0, len(props))
		for name := range props {
			names = append(names, name)
		}
		sort.Strings(names)

		node.Properties = make([]Property, 0, len(names))
		for _, name := range names {
			sub, err := decode(props[name], joinPath(path, name))
			if err != nil {
				return nil, err
			}
			node.Properties = append(node.Properties, Property{Name: name, Schema: sub})
		}
	}

	if rawRequired, ok := m["required"]; ok {
		members, ok := rawRequired.([]any)
		if !ok {
			return nil, &InvalidSchemaError{Path: joinPath(path, "required"), Reason: fmt.Sprintf("expected sequence, got %T", rawRequired)}
		}
		node.Required = make([]string, 0, len(members))
		for _, member := range members {
			s, ok := member.(string)
			if !ok {
				return nil, &InvalidSchemaError{Path: joinPath(path, "required"), Reason: fmt.Sprintf("member %v is not a string", member)}
			}
			node.Required = append(node.Required, s)
		}
	}

	if rawAdditional, ok := m["additionalProperties"]; ok {
		allowed, ok := rawAdditional.(bool)
		if !ok {
			return nil, &InvalidSchemaError{Path: joinPath(path, "additionalProperties"), Reason: "must be a boolean"}
		}
		node.AdditionalProperties = allowed
	}

	return node, nil
}

func decodeBounds(node *Node, m map[string]any, path string) error {
	var err error
	if node.Minimum, err = numberField(m, "minimum", path); err != nil {
		return err
	}
	if node.Maximum, err = numberField(m, "maximum", path); err != nil {
		return err
	}
	if node.Minimum != nil && node.Maximum != nil && *node.Maximum < *node.Minimum {
		return &InvalidSchemaError{Path: joinPath(path, "maximum"), Reason: "must not be less than minimum"}
	}
	return nil
}

func numberField(m map[string]any, key, path string) (*float64, error) {
	raw, ok := m[key]
	if !ok {
		return nil, nil
	}
	f, ok := asFloat(raw)
	if !ok {
		return nil, &InvalidSchemaError{Path: joinPath(path, key), Reason: fmt.Sprintf("expected number, got %T", raw)}
	}
	return &f, nil
}

func intField(m map[string]any, key, path string) (*int, error) {
	raw, ok := m[key]
	if !ok {
		return nil, nil
	}
	f, ok := asFloat(raw)
	if !ok || f != float64(int(f)) {
		return nil, &InvalidSchemaError{Path: joinPath(path, key), Reason: fmt.Sprintf("expected integer, got %v", raw)}
	}
	i := int(f)
	return &i, nil
}

// asFloat widens any of the numeric representations produced by the YAML
// and JSON decoders into a float64.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func joinPath(parent, child string) string {
	if parent == "" {
		return child
	}
	return parent + "." + child
}

// ToMap converts the node back to its plain structured form, suitable for
// re-serialization alongside the rest of the specification document.
func (n *Node) ToMap() map[string]any {
	m := map[string]any{}

	switch n.Kind {
	case KindOneOf:
		alts := make([]any, 0, len(n.OneOf))
		for _, alt := range n.OneOf {
			alts = append(alts, alt.ToMap())
		}
		m["oneOf"] = alts
		return m
	case KindString:
		m["type"] = string(n.Kind)
		if n.Format != "" {
			m["format"] = n.Format
		}
		if n.Enum != nil {
			members := make([]any, 0, len(n.Enum))
			for _, e := range n.Enum {
				members = append(members, e)
			}
			m["enum"] = members
		}
	case KindArray:
		m["type"] = string(n.Kind)
		if n.Items != nil {
			m["items"] = n.Items.ToMap()
		}
		if n.MinItems != nil {
			m["minItems"] = *n.MinItems
		}
		if n.MaxItems != nil {
			m["maxItems"] = *n.MaxItems
		}
	case KindObject:
		m["type"] = string(n.Kind)
		if n.Properties != nil {
			props := make(map[string]any, len(n.Properties))
			for _, p := range n.Properties {
				props[p.Name] = p.Schema.ToMap()
			}
			m["properties"] = props
		}
		if n.Required != nil {
			members := make([]any, 0, len(n.Required))
			for _, r := range n.Required {
				members = append(members, r)
			}
			m["required"] = members
		}
		if !n.AdditionalProperties {
			m["additionalProperties"] = false
		}
	default:
		m["type"] = string(n.Kind)
		if n.Minimum != nil {
			m["minimum"] = *n.Minimum
		}
		if n.Maximum != nil {
			m["maximum"] = *n.Maximum
		}
	}

	return m
}
