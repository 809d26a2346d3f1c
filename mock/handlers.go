package mock

import (
	"context"

	"github.com/specwire/specwire-go/handlers"
	"github.com/specwire/specwire-go/schema"
	"github.com/specwire/specwire-go/spec"
)

// RegisterFakeHandlers fills the registry with fake invocables for every
// handler reference the document names that has no registration yet, so
// host-supplied handlers always win. Publish-direction handlers
// acknowledge with a generated value when the message declares an ack
// schema; lifecycle handlers are no-ops.
func RegisterFakeHandlers(registry *handlers.Registry, doc *spec.Document, gen *schema.Generator) error {
	registered := func(path string) bool {
		_, err := registry.Resolve(path)
		return err == nil
	}

	for _, channel := range doc.Channels {
		if channel.Publish != nil {
			for _, message := range channel.Publish.Messages {
				if message.Handler == "" || registered(message.Handler) {
					continue
				}
				if err := registry.Register(message.Handler, ackHandler(message, gen)); err != nil {
					return err
				}
			}
		}
		for _, path := range lifecyclePaths(channel.Handlers) {
			if registered(path) {
				continue
			}
			if err := registry.Register(path, handlers.Noop); err != nil {
				return err
			}
		}
	}
	return nil
}

// ackHandler ignores the inbound payload and fabricates a conformant
// acknowledgement.
func ackHandler(message *spec.Message, gen *schema.Generator) handlers.Invocable {
	return func(_ context.Context, _ []any) (any, error) {
		if message.Ack == nil || message.Ack.Args == nil {
			return nil, nil
		}
		return gen.Generate(message.Ack.Args)
	}
}

func lifecyclePaths(h *spec.ChannelHandlers) []string {
	if h == nil {
		return nil
	}
	var paths []string
	for _, path := range []string{h.Connect, h.Disconnect, h.Error} {
		if path != "" {
			paths = append(paths, path)
		}
	}
	return paths
}
