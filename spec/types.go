package spec

import (
	"github.com/specwire/specwire-go/schema"
)

// DefaultNamespace is the channel path used when a caller does not address
// a specific namespace.
const DefaultNamespace = "/"

// Document is the root of a parsed, fully-resolved specification.
type Document struct {
	AsyncAPI   string
	Info       Info
	Servers    map[string]Server
	Channels   map[string]*Channel
	Components Components

	raw map[string]any
}

// Info carries the document's descriptive metadata.
type Info struct {
	Title       string
	Version     string
	Description string
}

// ServerProtocol enumerates the connection protocols a server may declare.
type ServerProtocol string

const (
	ProtocolHTTP  ServerProtocol = "http"
	ProtocolHTTPS ServerProtocol = "https"
	ProtocolWS    ServerProtocol = "ws"
	ProtocolWSS   ServerProtocol = "wss"
)

// Server describes a connection endpoint declared by the document.
type Server struct {
	URL      string
	Protocol ServerProtocol
	Security []SecurityRequirement
}

// Channel identifies a logical communication scope. It groups an optional
// inbound (publish) and outbound (subscribe) operation, lifecycle handler
// references and connection-time bindings.
type Channel struct {
	Subscribe *Operation
	Publish   *Operation
	Bindings  *ChannelBindings
	Handlers  *ChannelHandlers
	Security  []SecurityRequirement
}

// Operation carries the set of message variants valid for one direction of
// a channel, disambiguated at runtime by wire event name.
type Operation struct {
	Messages []*Message
}

// MessageNamed returns the message registered under the wire event name,
// or nil.
func (o *Operation) MessageNamed(name string) *Message {
	for _, m := range o.Messages {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Message is a named event. Handler is the dotted path of the invocable
// that consumes it (publish direction); Ack describes the acknowledgement
// callback arguments, when the message expects one.
type Message struct {
	Name    string
	Payload *schema.Node
	Handler string
	Ack     *MessageAck
}

// MessageAck declares the schema of acknowledgement arguments.
type MessageAck struct {
	Args *schema.Node
}

// ChannelBindings constrains connection-time request metadata.
type ChannelBindings struct {
	WS *WebSocketBindings
}

// WebSocketBindings mirrors the websocket channel binding object: the
// expected upgrade-request method plus schemas for query parameters and
// headers.
type WebSocketBindings struct {
	Method         string
	Query          *schema.Node
	Headers        *schema.Node
	BindingVersion string
}

// ChannelHandlers names the lifecycle handler references of a channel.
type ChannelHandlers struct {
	Connect    string
	Disconnect string
	Error      string
}

// Components is the registry of reusable definitions. After resolution all
// references into it have been substituted, so it is retained for document
// round-tripping and for hosts that address definitions directly.
type Components struct {
	Schemas         map[string]*schema.Node
	SecuritySchemes map[string]*SecurityScheme
}

// HandlerRefs returns every dotted handler path referenced by the channel,
// message handlers and lifecycle handlers alike.
func (c *Channel) HandlerRefs() []string {
	var refs []string
	if c.Publish != nil {
		for _, m := range c.Publish.Messages {
			if m.Handler != "" {
				refs = append(refs, m.Handler)
			}
		}
	}
	if c.Handlers != nil {
		for _, ref := range []string{c.Handlers.Connect, c.Handlers.Disconnect, c.Handlers.Error} {
			if ref != "" {
				refs = append(refs, ref)
			}
		}
	}
	return refs
}
