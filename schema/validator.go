package schema

import (
	"fmt"
	"strings"
)

// Violation codes reported by Validate.
const (
	CodeTypeMismatch       = "TYPE_MISMATCH"
	CodeNotWhole           = "INTEGER_NOT_WHOLE"
	CodeEnumViolation      = "ENUM_VIOLATION"
	CodeMinimumViolation   = "MINIMUM_VIOLATION"
	CodeMaximumViolation   = "MAXIMUM_VIOLATION"
	CodeMinItemsViolation  = "MIN_ITEMS_VIOLATION"
	CodeMaxItemsViolation  = "MAX_ITEMS_VIOLATION"
	CodeRequiredMissing    = "REQUIRED_FIELD_MISSING"
	CodeAdditionalProperty = "ADDITIONAL_PROPERTY"
	CodeOneOfNoMatch       = "ONE_OF_NO_MATCH"
	CodeOneOfAmbiguous     = "ONE_OF_AMBIGUOUS"
)

// Violation represents a single schema conformance failure. For oneOf
// failures, Causes carries the violation of each attempted alternative.
type Violation struct {
	Path    string       `json:"path"`
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Value   any          `json:"value,omitempty"`
	Causes  []*Violation `json:"causes,omitempty"`
}

// Error implements the error interface for Violation.
func (v *Violation) Error() string {
	if v.Path == "" {
		return fmt.Sprintf("schema violation: %s", v.Message)
	}
	return fmt.Sprintf("schema violation at '%s': %s", v.Path, v.Message)
}

// Validate checks value against node and returns nil on conformance, or the
// first violation encountered. Format hints are deliberately not enforced;
// they only steer generation.
func Validate(node *Node, value any) *Violation {
	return validate(node, value, "")
}

func validate(node *Node, value any, path string) *Violation {
	switch node.Kind {
	case KindNull:
		if value != nil {
			return typeMismatch(path, node.Kind, value)
		}
		return nil
	case KindBoolean:
		if _, ok := value.(bool); !ok {
			return typeMismatch(path, node.Kind, value)
		}
		return nil
	case KindInteger:
		return validateInteger(node, value, path)
	case KindNumber:
		return validateNumber(node, value, path)
	case KindString:
		return validateString(node, value, path)
	case KindArray:
		return validateArray(node, value, path)
	case KindObject:
		return validateObject(node, value, path)
	case KindOneOf:
		return validateOneOf(node, value, path)
	default:
		return &Violation{
			Path:    path,
			Code:    CodeTypeMismatch,
			Message: fmt.Sprintf("unknown schema kind %q", node.Kind),
			Value:   value,
		}
	}
}

func validateInteger(node *Node, value any, path string) *Violation {
	f, ok := asFloat(value)
	if !ok {
		return typeMismatch(path, node.Kind, value)
	}
	if f != float64(int64(f)) {
		return &Violation{
			Path:    path,
			Code:    CodeNotWhole,
			Message: fmt.Sprintf("value %v is not a whole number", value),
			Value:   value,
		}
	}
	return validateBounds(node, f, value, path)
}

func validateNumber(node *Node, value any, path string) *Violation {
	f, ok := asFloat(value)
	if !ok {
		return typeMismatch(path, node.Kind, value)
	}
	return validateBounds(node, f, value, path)
}

func validateBounds(node *Node, f float64, value any, path string) *Violation {
	if node.Minimum != nil && f < *node.Minimum {
		return &Violation{
			Path:    path,
			Code:    CodeMinimumViolation,
			Message: fmt.Sprintf("value %v is less than minimum %v", value, *node.Minimum),
			Value:   value,
		}
	}
	if node.Maximum != nil && f > *node.Maximum {
		return &Violation{
			Path:    path,
			Code:    CodeMaximumViolation,
			Message: fmt.Sprintf("value %v exceeds maximum %v", value, *node.Maximum),
			Value:   value,
		}
	}
	return nil
}

func validateString(node *Node, value any, path string) *Violation {
	s, ok := value.(string)
	if !ok {
		return typeMismatch(path, node.Kind, value)
	}
	if node.Enum != nil {
		for _, member := range node.Enum {
			if s == member {
				return nil
			}
		}
		return &Violation{
			Path:    path,
			Code:    CodeEnumViolation,
			Message: fmt.Sprintf("value %q is not one of [%s]", s, strings.Join(node.Enum, ", ")),
			Value:   value,
		}
	}
	return nil
}

func validateArray(node *Node, value any, path string) *Violation {
	seq, ok := value.([]any)
	if !ok {
		return typeMismatch(path, node.Kind, value)
	}
	if node.MinItems != nil && len(seq) < *node.MinItems {
		return &Violation{
			Path:    path,
			Code:    CodeMinItemsViolation,
			Message: fmt.Sprintf("length %d is less than minItems %d", len(seq), *node.MinItems),
			Value:   value,
		}
	}
	if node.MaxItems != nil && len(seq) > *node.MaxItems {
		return &Violation{
			Path:    path,
			Code:    CodeMaxItemsViolation,
			Message: fmt.Sprintf("length %d exceeds maxItems %d", len(seq), *node.MaxItems),
			Value:   value,
		}
	}
	if node.Items != nil {
		for i, element := range seq {
			if violation := validate(node.Items, element, fmt.Sprintf("%s[%d]", path, i)); violation != nil {
				return violation
			}
		}
	}
	return nil
}

func validateObject(node *Node, value any, path string) *Violation {
	obj, ok := value.(map[string]any)
	if !ok {
		return typeMismatch(path, node.Kind, value)
	}

	for _, required := range node.Required {
		if _, present := obj[required]; !present {
			return &Violation{
				Path:    buildPath(path, required),
				Code:    CodeRequiredMissing,
				Message: "required property is missing",
			}
		}
	}

	for _, p := range node.Properties {
		propValue, present := obj[p.Name]
		if !present {
			continue
		}
		if violation := validate(p.Schema, propValue, buildPath(path, p.Name)); violation != nil {
			return violation
		}
	}

	if !node.AdditionalProperties {
		for name := range obj {
			if node.PropertyNamed(name) == nil {
				return &Violation{
					Path:    buildPath(path, name),
					Code:    CodeAdditionalProperty,
					Message: "additional properties are not allowed",
					Value:   obj[name],
				}
			}
		}
	}

	return nil
}

// validateOneOf requires exactly one alternative to match. More than one
// match is an ambiguity failure: the wire event name that disambiguates a
// oneOf must correspond to precisely one declared shape.
func validateOneOf(node *Node, value any, path string) *Violation {
	matches := 0
	causes := make([]*Violation, 0, len(node.OneOf))
	for i, alt := range node.OneOf {
		violation := validate(alt, value, fmt.Sprintf("%s<oneOf:%d>", path, i))
		if violation == nil {
			matches++
			continue
		}
		causes = append(causes, violation)
	}

	switch matches {
	case 1:
		return nil
	case 0:
		return &Violation{
			Path:    path,
			Code:    CodeOneOfNoMatch,
			Message: fmt.Sprintf("value matches none of the %d alternatives", len(node.OneOf)),
			Value:   value,
			Causes:  causes,
		}
	default:
		return &Violation{
			Path:    path,
			Code:    CodeOneOfAmbiguous,
			Message: fmt.Sprintf("value matches %d alternatives, expected exactly one", matches),
			Value:   value,
		}
	}
}

func typeMismatch(path string, kind Kind, value any) *Violation {
	return &Violation{
		Path:    path,
		Code:    CodeTypeMismatch,
		Message: fmt.Sprintf("expected %s, got %T", kind, value),
		Value:   value,
	}
}

func buildPath(parent, field string) string {
	if parent == "" {
		return field
	}
	return parent + "." + field
}
