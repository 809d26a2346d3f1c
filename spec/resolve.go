package spec

import (
	"strings"
)

// ResolveRefs rewrites a raw document graph by substituting every internal
// $ref with an independently owned copy of its resolved target, producing a
// self-contained, reference-free mapping. Two references to the same target
// each get their own copy, so later consumers never share mutable state.
//
// A reference whose target path is already being resolved fails with
// *CyclicReferenceError; a reference to a missing location fails with
// *UnresolvedReferenceError. Resolving an already-resolved document is a
// structural no-op.
func ResolveRefs(raw map[string]any) (map[string]any, error) {
	r := &resolver{root: raw, active: map[string]bool{}}
	resolved, err := r.resolve(raw)
	if err != nil {
		return nil, err
	}
	return resolved.(map[string]any), nil
}

type resolver struct {
	root   map[string]any
	stack  []string
	active map[string]bool
}

func (r *resolver) resolve(value any) (any, error) {
	switch v := value.(type) {
	case map[string]any:
		if ref, ok := v["$ref"].(string); ok {
			return r.resolveRef(ref)
		}
		out := make(map[string]any, len(v))
		for key, child := range v {
			resolved, err := r.resolve(child)
			if err != nil {
				return nil, err
			}
			out[key] = resolved
		}
		return out, nil
	case []any:
		out := make([]any, 0, len(v))
		for _, child := range v {
			resolved, err := r.resolve(child)
			if err != nil {
				return nil, err
			}
			out = append(out, resolved)
		}
		return out, nil
	default:
		return value, nil
	}
}

func (r *resolver) resolveRef(ref string) (any, error) {
	if r.active[ref] {
		return nil, &CyclicReferenceError{Cycle: append(append([]string{}, r.stack...), ref)}
	}

	target, ok := lookupPointer(r.root, ref)
	if !ok {
		return nil, &UnresolvedReferenceError{Ref: ref}
	}

	r.active[ref] = true
	r.stack = append(r.stack, ref)

	resolved, err := r.resolve(target)

	r.stack = r.stack[:len(r.stack)-1]
	delete(r.active, ref)

	return resolved, err
}

// lookupPointer navigates a document-local JSON pointer ("#/a/b"). External
// references are not supported and report as missing.
func lookupPointer(root map[string]any, ref string) (any, bool) {
	if !strings.HasPrefix(ref, "#/") {
		return nil, false
	}

	var current any = root
	for _, token := range strings.Split(strings.TrimPrefix(ref, "#/"), "/") {
		token = strings.ReplaceAll(token, "~1", "/")
		token = strings.ReplaceAll(token, "~0", "~")

		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[token]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
