package schema

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGenerator(seed int64, opts ...GeneratorOption) *Generator {
	opts = append([]GeneratorOption{WithRand(rand.New(rand.NewSource(seed)))}, opts...)
	return NewGenerator(opts...)
}

func TestGeneratePrimitives(t *testing.T) {
	t.Run("null yields nil", func(t *testing.T) {
		value, err := newTestGenerator(1).Generate(&Node{Kind: KindNull})

		require.NoError(t, err)
		assert.Nil(t, value)
	})

	t.Run("integer never yields fractions", func(t *testing.T) {
		g := newTestGenerator(2)
		node := &Node{Kind: KindInteger}

		for i := 0; i < 100; i++ {
			value, err := g.Generate(node)
			require.NoError(t, err)
			assert.IsType(t, int64(0), value)
		}
	})

	t.Run("integer respects declared bounds", func(t *testing.T) {
		g := newTestGenerator(3)
		node := &Node{Kind: KindInteger, Minimum: floatPtr(2), Maximum: floatPtr(4)}

		for i := 0; i < 100; i++ {
			value, err := g.Generate(node)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, value.(int64), int64(2))
			assert.LessOrEqual(t, value.(int64), int64(4))
		}
	})

	t.Run("integer widens defaults around a single far bound", func(t *testing.T) {
		g := newTestGenerator(4)

		value, err := g.Generate(&Node{Kind: KindInteger, Maximum: floatPtr(-5000)})
		require.NoError(t, err)
		assert.LessOrEqual(t, value.(int64), int64(-5000))

		value, err = g.Generate(&Node{Kind: KindNumber, Minimum: floatPtr(9000)})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, value.(float64), 9000.0)
	})

	t.Run("fractional-only integer range is unsupported", func(t *testing.T) {
		node := &Node{Kind: KindInteger, Minimum: floatPtr(1.2), Maximum: floatPtr(1.8)}

		_, err := newTestGenerator(5).Generate(node)

		var unsupported *UnsupportedSchemaError
		require.ErrorAs(t, err, &unsupported)
	})
}

func TestGenerateString(t *testing.T) {
	t.Run("enum members are sampled uniformly", func(t *testing.T) {
		g := newTestGenerator(6)
		node := &Node{Kind: KindString, Enum: []string{"red", "green", "blue"}}

		seen := map[string]bool{}
		for i := 0; i < 200; i++ {
			value, err := g.Generate(node)
			require.NoError(t, err)
			seen[value.(string)] = true
		}

		assert.Len(t, seen, 3)
	})

	t.Run("registered format generator is dispatched", func(t *testing.T) {
		formats := NewFormatRegistry()
		formats.Register("greeting", func(_ *rand.Rand) string { return "hello there" })
		g := newTestGenerator(7, WithFormats(formats))

		value, err := g.Generate(&Node{Kind: KindString, Format: "greeting"})

		require.NoError(t, err)
		assert.Equal(t, "hello there", value)
	})

	t.Run("format lookup is case-sensitive and fails open", func(t *testing.T) {
		formats := NewFormatRegistry()
		formats.Register("greeting", func(_ *rand.Rand) string { return "hello there" })
		g := newTestGenerator(8, WithFormats(formats))

		value, err := g.Generate(&Node{Kind: KindString, Format: "Greeting"})

		require.NoError(t, err)
		// Unknown format degrades to a generic random string; the generic
		// alphabet never produces spaces.
		assert.NotEqual(t, "hello there", value)
		assert.NotEmpty(t, value)
	})

	t.Run("builtin uuid format yields a parseable uuid", func(t *testing.T) {
		g := newTestGenerator(9)

		value, err := g.Generate(&Node{Kind: KindString, Format: "uuid"})

		require.NoError(t, err)
		assert.Regexp(t, `^[0-9a-f-]{36}$`, value)
	})
}

func TestGenerateArray(t *testing.T) {
	t.Run("length stays within declared bounds", func(t *testing.T) {
		g := newTestGenerator(10)
		node := &Node{
			Kind:     KindArray,
			Items:    &Node{Kind: KindBoolean},
			MinItems: intPtr(2),
			MaxItems: intPtr(4),
		}

		for i := 0; i < 100; i++ {
			value, err := g.Generate(node)
			require.NoError(t, err)
			length := len(value.([]any))
			assert.GreaterOrEqual(t, length, 2)
			assert.LessOrEqual(t, length, 4)
		}
	})

	t.Run("nil items yields an empty sequence", func(t *testing.T) {
		value, err := newTestGenerator(11).Generate(&Node{Kind: KindArray})

		require.NoError(t, err)
		assert.Empty(t, value)
	})

	t.Run("minItems without items schema is unsupported", func(t *testing.T) {
		node := &Node{Kind: KindArray, MinItems: intPtr(1)}

		_, err := newTestGenerator(12).Generate(node)

		var unsupported *UnsupportedSchemaError
		require.ErrorAs(t, err, &unsupported)
	})
}

func TestGenerateObject(t *testing.T) {
	t.Run("required properties always appear", func(t *testing.T) {
		g := newTestGenerator(13)
		node := &Node{
			Kind: KindObject,
			Properties: []Property{
				{Name: "id", Schema: &Node{Kind: KindString}},
				{Name: "note", Schema: &Node{Kind: KindString}},
			},
			Required:             []string{"id"},
			AdditionalProperties: true,
		}

		sawOptionalIn := 0
		sawOptionalOut := 0
		for i := 0; i < 200; i++ {
			value, err := g.Generate(node)
			require.NoError(t, err)

			obj := value.(map[string]any)
			assert.Contains(t, obj, "id")
			if _, ok := obj["note"]; ok {
				sawOptionalIn++
			} else {
				sawOptionalOut++
			}
			// Undeclared properties are never synthesized.
			for name := range obj {
				assert.Contains(t, []string{"id", "note"}, name)
			}
		}

		assert.Positive(t, sawOptionalIn)
		assert.Positive(t, sawOptionalOut)
	})

	t.Run("optional probability is tunable", func(t *testing.T) {
		g := newTestGenerator(14, WithOptionalProbability(1.0))
		node := &Node{
			Kind: KindObject,
			Properties: []Property{
				{Name: "note", Schema: &Node{Kind: KindString}},
			},
			AdditionalProperties: true,
		}

		for i := 0; i < 50; i++ {
			value, err := g.Generate(node)
			require.NoError(t, err)
			assert.Contains(t, value.(map[string]any), "note")
		}
	})

	t.Run("required name without declared schema is unsupported", func(t *testing.T) {
		node := &Node{
			Kind:                 KindObject,
			Required:             []string{"ghost"},
			AdditionalProperties: true,
		}

		_, err := newTestGenerator(15).Generate(node)

		var unsupported *UnsupportedSchemaError
		require.ErrorAs(t, err, &unsupported)
		assert.Equal(t, "ghost", unsupported.Path)
	})
}

func TestGenerateOneOf(t *testing.T) {
	t.Run("covers every disjoint alternative", func(t *testing.T) {
		g := newTestGenerator(16)
		node := &Node{Kind: KindOneOf, OneOf: []*Node{
			{Kind: KindString},
			{Kind: KindBoolean},
		}}

		kinds := map[string]bool{}
		for i := 0; i < 100; i++ {
			value, err := g.Generate(node)
			require.NoError(t, err)
			kinds[fmt.Sprintf("%T", value)] = true
		}

		assert.Len(t, kinds, 2)
	})

	t.Run("fully overlapping alternatives are unsupported", func(t *testing.T) {
		node := &Node{Kind: KindOneOf, OneOf: []*Node{
			{Kind: KindString},
			{Kind: KindString},
		}}

		_, err := newTestGenerator(17).Generate(node)

		var unsupported *UnsupportedSchemaError
		require.ErrorAs(t, err, &unsupported)
	})
}

func TestGenerateDeterminism(t *testing.T) {
	t.Run("same seed yields same values", func(t *testing.T) {
		node := &Node{
			Kind: KindObject,
			Properties: []Property{
				{Name: "id", Schema: &Node{Kind: KindString, Format: "uuid"}},
				{Name: "count", Schema: &Node{Kind: KindInteger}},
				{Name: "tags", Schema: &Node{Kind: KindArray, Items: &Node{Kind: KindString}}},
			},
			Required:             []string{"id", "count"},
			AdditionalProperties: true,
		}

		first := newTestGenerator(42)
		second := newTestGenerator(42)

		for i := 0; i < 20; i++ {
			a, err := first.Generate(node)
			require.NoError(t, err)
			b, err := second.Generate(node)
			require.NoError(t, err)
			assert.Equal(t, a, b)
		}
	})
}

// randomNode samples a schema of bounded depth. oneOf alternatives are kept
// kind-disjoint so that every sampled schema is generatable.
func randomNode(rng *rand.Rand, depth int) *Node {
	leaves := []Kind{KindNull, KindBoolean, KindInteger, KindNumber, KindString}
	kinds := leaves
	if depth > 0 {
		kinds = append([]Kind{KindArray, KindObject, KindOneOf}, leaves...)
	}
	return nodeOfKind(rng, kinds[rng.Intn(len(kinds))], depth)
}

func nodeOfKind(rng *rand.Rand, kind Kind, depth int) *Node {
	switch kind {
	case KindInteger, KindNumber:
		node := &Node{Kind: kind}
		if rng.Intn(2) == 0 {
			lo := float64(rng.Intn(100) - 50)
			hi := lo + float64(rng.Intn(50))
			node.Minimum = &lo
			node.Maximum = &hi
		}
		return node
	case KindString:
		node := &Node{Kind: kind}
		switch rng.Intn(3) {
		case 0:
			for i := 0; i <= rng.Intn(3); i++ {
				node.Enum = append(node.Enum, fmt.Sprintf("member-%d", i))
			}
		case 1:
			formats := []string{"uuid", "date-time", "no_such_format"}
			node.Format = formats[rng.Intn(len(formats))]
		}
		return node
	case KindArray:
		node := &Node{Kind: kind, Items: randomNode(rng, depth-1)}
		if rng.Intn(2) == 0 {
			lo := rng.Intn(3)
			hi := lo + rng.Intn(3)
			node.MinItems = &lo
			node.MaxItems = &hi
		}
		return node
	case KindObject:
		node := &Node{Kind: kind, AdditionalProperties: rng.Intn(2) == 0}
		for i := 0; i <= rng.Intn(4); i++ {
			name := fmt.Sprintf("prop%d", i)
			node.Properties = append(node.Properties, Property{
				Name:   name,
				Schema: randomNode(rng, depth-1),
			})
			if rng.Intn(2) == 0 {
				node.Required = append(node.Required, name)
			}
		}
		return node
	case KindOneOf:
		disjoint := []Kind{KindBoolean, KindInteger, KindString, KindObject}
		rng.Shuffle(len(disjoint), func(i, j int) {
			disjoint[i], disjoint[j] = disjoint[j], disjoint[i]
		})
		count := 2 + rng.Intn(len(disjoint)-1)
		node := &Node{Kind: kind}
		for _, altKind := range disjoint[:count] {
			node.OneOf = append(node.OneOf, nodeOfKind(rng, altKind, depth-1))
		}
		return node
	default:
		return &Node{Kind: kind}
	}
}

// TestGenerateValidateContract exercises the engine's core law: whatever the
// generator produces for a schema, the validator accepts for that schema.
func TestGenerateValidateContract(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	g := NewGenerator(WithRand(rand.New(rand.NewSource(100))))

	for i := 0; i < 1500; i++ {
		node := randomNode(rng, 3)

		value, err := g.Generate(node)
		require.NoError(t, err, "schema %#v", node)

		violation := Validate(node, value)
		require.Nil(t, violation, "generated %#v for schema %#v: %v", value, node, violation)
	}
}

// TestGenerateConcurrent shares one Generator across goroutines the way
// the emission scheduler does, one per subscribe message. Run with -race.
func TestGenerateConcurrent(t *testing.T) {
	g := newTestGenerator(17)
	node := &Node{
		Kind: KindObject,
		Properties: []Property{
			{Name: "id", Schema: &Node{Kind: KindString, Format: "uuid"}},
			{Name: "count", Schema: &Node{Kind: KindInteger, Minimum: floatPtr(0)}},
			{Name: "tags", Schema: &Node{Kind: KindArray, Items: &Node{Kind: KindString}}},
		},
		Required: []string{"id", "count"},
	}

	const workers = 8
	const rounds = 500

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				value, err := g.Generate(node)
				if err != nil {
					errs[w] = err
					return
				}
				if violation := Validate(node, value); violation != nil {
					errs[w] = violation
					return
				}
			}
		}(w)
	}
	wg.Wait()

	for w, err := range errs {
		assert.NoError(t, err, "worker %d", w)
	}
}
