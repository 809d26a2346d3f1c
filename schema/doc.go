// Package schema provides the resolved schema model, validation and
// conformant data generation for the specwire engine.
//
// A Node is the reference-free representation of a JSON Schema subset
// constraint, decoded from an already-resolved specification document.
// Validation decides conformance of a JSON-like value against a Node and
// reports structured violations. Generation produces random values that are
// guaranteed to validate against the same Node, driven by an injectable
// randomness source and a swappable format-to-generator registry.
//
// Key properties:
//   - Closed variant model: every Node has exactly one kind, enabling
//     exhaustive validation and generation logic
//   - Structured violations with schema paths and constraint codes
//   - Generate/validate contract: Validate(s, v) == nil for every value v
//     produced by a Generator for schema s
//   - Format hints drive generation only and are never enforced during
//     validation
//
// Basic usage:
//
//	node, err := schema.Decode(rawSchema)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if violation := schema.Validate(node, value); violation != nil {
//	    log.Printf("rejected: %v", violation)
//	}
//
//	gen := schema.NewGenerator(schema.WithRand(rand.New(rand.NewSource(42))))
//	fake, err := gen.Generate(node)
package schema
