package spec

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML (or JSON, which YAML subsumes) specification document,
// resolves every internal reference and decodes the result. The returned
// Document is immutable and safe for unsynchronized concurrent reads.
func Load(r io.Reader) (*Document, error) {
	serialized, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read specification: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(serialized, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse specification: %w", err)
	}

	return FromRaw(raw)
}

// LoadFile loads a specification document from a path.
func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open specification: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// FromRaw resolves and decodes an already-parsed raw document. Hosts that
// obtain the document by other means (an embedded asset, a config service)
// enter here.
func FromRaw(raw map[string]any) (*Document, error) {
	resolved, err := ResolveRefs(normalizeKeys(raw).(map[string]any))
	if err != nil {
		return nil, err
	}
	return FromMap(resolved)
}

// normalizeKeys rewrites map[any]any mappings (produced by some YAML
// decoders for non-scalar keys) into map[string]any, so the rest of the
// engine deals with one mapping shape.
func normalizeKeys(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, child := range v {
			out[key] = normalizeKeys(child)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, child := range v {
			out[fmt.Sprintf("%v", key)] = normalizeKeys(child)
		}
		return out
	case []any:
		out := make([]any, 0, len(v))
		for _, child := range v {
			out = append(out, normalizeKeys(child))
		}
		return out
	default:
		return value
	}
}
