package spec

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// ToMap returns the resolved document in its plain structured form, deep
// copied so callers can hand it to documentation renderers without risking
// mutation of the engine's model.
func (d *Document) ToMap() map[string]any {
	if d.raw != nil {
		return deepCopyMap(d.raw)
	}
	return map[string]any{}
}

// JSON serializes the resolved document, for the raw-spec retrieval route a
// documentation collaborator typically exposes.
func (d *Document) JSON() ([]byte, error) {
	data, err := json.Marshal(d.ToMap())
	if err != nil {
		return nil, fmt.Errorf("failed to serialize specification: %w", err)
	}
	return data, nil
}

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for key, value := range m {
		out[key] = deepCopyValue(value)
	}
	return out
}

func deepCopyValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return deepCopyMap(v)
	case []any:
		out := make([]any, 0, len(v))
		for _, child := range v {
			out = append(out, deepCopyValue(child))
		}
		return out
	default:
		return value
	}
}
