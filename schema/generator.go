package schema

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"
)

const (
	defaultMaxArrayItems       = 5
	defaultOptionalProbability = 0.5
	defaultNumericMin          = -1000
	defaultNumericMax          = 1000
	defaultMaxStringLength     = 16
)

// UnsupportedSchemaError reports a schema construct that has no defined
// generation strategy. The generator fails loudly instead of emitting a
// value that might not validate.
type UnsupportedSchemaError struct {
	Path   string
	Reason string
}

func (e *UnsupportedSchemaError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("cannot generate: %s", e.Reason)
	}
	return fmt.Sprintf("cannot generate for %s: %s", e.Path, e.Reason)
}

// Generator produces random values conformant to a Node. Every value it
// returns satisfies Validate for the same node; a schema it cannot satisfy
// yields an UnsupportedSchemaError instead of a near-miss value. A single
// Generator is safe for concurrent use; its randomness stream is
// serialized internally.
type Generator struct {
	rng                 *rand.Rand
	formats             *FormatRegistry
	maxArrayItems       int
	optionalProbability float64
}

// lockedSource serializes draws from the underlying randomness stream so
// one Generator can serve concurrent callers.
type lockedSource struct {
	mu  sync.Mutex
	src rand.Source
}

func (s *lockedSource) Int63() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Int63()
}

func (s *lockedSource) Uint64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if src, ok := s.src.(rand.Source64); ok {
		return src.Uint64()
	}
	return uint64(s.src.Int63())>>31 | uint64(s.src.Int63())<<32
}

func (s *lockedSource) Seed(seed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.src.Seed(seed)
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithRand injects the randomness source, making generation reproducible
// under a fixed seed.
func WithRand(rng *rand.Rand) GeneratorOption {
	return func(g *Generator) {
		g.rng = rng
	}
}

// WithFormats replaces the format-to-generator registry.
func WithFormats(formats *FormatRegistry) GeneratorOption {
	return func(g *Generator) {
		g.formats = formats
	}
}

// WithMaxArrayItems sets the array length ceiling used when a schema
// declares no maxItems.
func WithMaxArrayItems(n int) GeneratorOption {
	return func(g *Generator) {
		g.maxArrayItems = n
	}
}

// WithOptionalProbability sets the inclusion probability for declared
// object properties that are not required.
func WithOptionalProbability(p float64) GeneratorOption {
	return func(g *Generator) {
		g.optionalProbability = p
	}
}

// NewGenerator creates a generator with default settings.
func NewGenerator(opts ...GeneratorOption) *Generator {
	g := &Generator{
		rng:                 rand.New(rand.NewSource(time.Now().UnixNano())),
		formats:             NewFormatRegistry(),
		maxArrayItems:       defaultMaxArrayItems,
		optionalProbability: defaultOptionalProbability,
	}
	for _, opt := range opts {
		opt(g)
	}
	// A *rand.Rand is itself a rand.Source, so the configured stream is
	// re-wrapped behind a lock regardless of where it came from.
	g.rng = rand.New(&lockedSource{src: g.rng})
	return g
}

// Formats exposes the generator's format registry for provider wiring.
func (g *Generator) Formats() *FormatRegistry {
	return g.formats
}

// Generate produces a value conformant to node.
func (g *Generator) Generate(node *Node) (any, error) {
	return g.generate(node, "")
}

func (g *Generator) generate(node *Node, path string) (any, error) {
	if node == nil {
		return nil, &UnsupportedSchemaError{Path: path, Reason: "nil schema node"}
	}

	switch node.Kind {
	case KindNull:
		return nil, nil
	case KindBoolean:
		return g.rng.Intn(2) == 0, nil
	case KindInteger:
		return g.generateInteger(node)
	case KindNumber:
		return g.generateNumber(node), nil
	case KindString:
		return g.generateString(node), nil
	case KindArray:
		return g.generateArray(node, path)
	case KindObject:
		return g.generateObject(node, path)
	case KindOneOf:
		return g.generateOneOf(node, path)
	default:
		return nil, &UnsupportedSchemaError{Path: path, Reason: fmt.Sprintf("unknown kind %q", node.Kind)}
	}
}

// generateOneOf picks an alternative uniformly and generates from it
// exclusively. Overlapping alternatives can make a candidate match more
// than one shape, which the validator rejects as ambiguous, so candidates
// are checked against the whole oneOf before being returned.
func (g *Generator) generateOneOf(node *Node, path string) (any, error) {
	const attemptsPerAlternative = 8

	order := g.rng.Perm(len(node.OneOf))
	for _, i := range order {
		alt := node.OneOf[i]
		for attempt := 0; attempt < attemptsPerAlternative; attempt++ {
			candidate, err := g.generate(alt, path)
			if err != nil {
				break // alternative itself is unsatisfiable, move on
			}
			if Validate(node, candidate) == nil {
				return candidate, nil
			}
		}
	}

	return nil, &UnsupportedSchemaError{
		Path:   path,
		Reason: "no alternative yields an unambiguous value",
	}
}

func (g *Generator) generateInteger(node *Node) (any, error) {
	lo := int64(defaultNumericMin)
	hi := int64(defaultNumericMax)
	if node.Minimum != nil {
		lo = int64(math.Ceil(*node.Minimum))
	}
	if node.Maximum != nil {
		hi = int64(math.Floor(*node.Maximum))
	}
	// Widen the engine default when only one bound is declared and it falls
	// outside the default range.
	if node.Minimum == nil && hi < lo {
		lo = hi - (defaultNumericMax - defaultNumericMin)
	}
	if node.Maximum == nil && lo > hi {
		hi = lo + (defaultNumericMax - defaultNumericMin)
	}
	if hi < lo {
		return nil, &UnsupportedSchemaError{Reason: fmt.Sprintf("no whole number between %v and %v", *node.Minimum, *node.Maximum)}
	}
	return lo + g.rng.Int63n(hi-lo+1), nil
}

func (g *Generator) generateNumber(node *Node) float64 {
	lo := float64(defaultNumericMin)
	hi := float64(defaultNumericMax)
	if node.Minimum != nil {
		lo = *node.Minimum
	}
	if node.Maximum != nil {
		hi = *node.Maximum
	}
	if node.Minimum == nil && hi < lo {
		lo = hi - (defaultNumericMax - defaultNumericMin)
	}
	if node.Maximum == nil && lo > hi {
		hi = lo + (defaultNumericMax - defaultNumericMin)
	}
	if hi == lo {
		return lo
	}
	return lo + g.rng.Float64()*(hi-lo)
}

// generateString samples enum members when declared, and otherwise
// dispatches on the format hint. An unregistered format degrades to a
// generic random string rather than aborting generation.
func (g *Generator) generateString(node *Node) string {
	if node.Enum != nil {
		return node.Enum[g.rng.Intn(len(node.Enum))]
	}
	if node.Format != "" {
		if fn, ok := g.formats.Lookup(node.Format); ok {
			return fn(g.rng)
		}
	}
	return g.randomString()
}

func (g *Generator) randomString() string {
	const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	length := 1 + g.rng.Intn(defaultMaxStringLength)
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = alphabet[g.rng.Intn(len(alphabet))]
	}
	return string(buf)
}

func (g *Generator) generateArray(node *Node, path string) (any, error) {
	lo := 0
	hi := g.maxArrayItems
	if node.MinItems != nil {
		lo = *node.MinItems
	}
	if node.MaxItems != nil {
		hi = *node.MaxItems
	}
	if hi < lo {
		hi = lo
	}

	length := lo + g.rng.Intn(hi-lo+1)
	if node.Items == nil {
		if lo > 0 {
			return nil, &UnsupportedSchemaError{Path: path, Reason: "minItems declared without an items schema"}
		}
		return []any{}, nil
	}

	elements := make([]any, 0, length)
	for i := 0; i < length; i++ {
		element, err := g.generate(node.Items, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		elements = append(elements, element)
	}
	return elements, nil
}

// generateObject always emits every required property and never synthesizes
// properties the schema does not declare.
func (g *Generator) generateObject(node *Node, path string) (any, error) {
	required := make(map[string]bool, len(node.Required))
	for _, name := range node.Required {
		required[name] = true
	}

	obj := make(map[string]any, len(node.Properties))
	for _, p := range node.Properties {
		if !required[p.Name] && g.rng.Float64() >= g.optionalProbability {
			continue
		}
		value, err := g.generate(p.Schema, buildPath(path, p.Name))
		if err != nil {
			return nil, err
		}
		obj[p.Name] = value
	}

	for _, name := range node.Required {
		if _, ok := obj[name]; !ok {
			// A required name with no declared property schema cannot be
			// satisfied; emitting the object anyway would break the
			// generate/validate contract.
			return nil, &UnsupportedSchemaError{
				Path:   buildPath(path, name),
				Reason: "required property has no declared schema",
			}
		}
	}

	return obj, nil
}
