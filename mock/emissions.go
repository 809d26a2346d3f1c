package mock

import (
	"context"
	"fmt"

	"github.com/specwire/specwire-go/events"
	"github.com/specwire/specwire-go/schema"
	"github.com/specwire/specwire-go/spec"
)

// Emission is one subscribe-direction message scheduled for periodic
// fake delivery.
type Emission struct {
	Namespace string
	Event     string

	payload *schema.Node
	gen     *schema.Generator
}

// Name identifies the emission for scheduling and logs.
func (e *Emission) Name() string {
	return fmt.Sprintf("%s/%s", e.Namespace, e.Event)
}

// Args fabricates the argument tuple for one delivery. An array payload
// spreads into the tuple; any other payload travels as a single
// argument; no payload means no arguments.
func (e *Emission) Args() ([]any, error) {
	if e.payload == nil {
		return nil, nil
	}
	value, err := e.gen.Generate(e.payload)
	if err != nil {
		return nil, fmt.Errorf("generate payload for %s: %w", e.Name(), err)
	}
	if e.payload.Kind == schema.KindArray {
		return value.([]any), nil
	}
	return []any{value}, nil
}

// Emit fabricates one argument tuple and hands it to the emitter.
func (e *Emission) Emit(ctx context.Context, emitter events.Emitter) error {
	args, err := e.Args()
	if err != nil {
		return err
	}
	return emitter.Emit(ctx, e.Namespace, e.Event, args)
}

// Emissions lists every subscribe-direction message of the document as
// a schedulable emission.
func Emissions(doc *spec.Document, gen *schema.Generator) []*Emission {
	var out []*Emission
	for namespace, channel := range doc.Channels {
		if channel.Subscribe == nil {
			continue
		}
		for _, message := range channel.Subscribe.Messages {
			out = append(out, &Emission{
				Namespace: namespace,
				Event:     message.Name,
				payload:   message.Payload,
				gen:       gen,
			})
		}
	}
	return out
}
