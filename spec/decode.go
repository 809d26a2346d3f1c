package spec

import (
	"fmt"
	"sort"

	"github.com/specwire/specwire-go/schema"
)

// FromMap decodes an already-resolved raw document into a Document and
// applies the structural checks the engine depends on: publish messages
// must name a handler, wire event names must be unique per direction, and
// security requirements must refer to declared schemes.
func FromMap(raw map[string]any) (*Document, error) {
	doc := &Document{
		Servers:  map[string]Server{},
		Channels: map[string]*Channel{},
		raw:      raw,
	}

	version, ok := raw["asyncapi"].(string)
	if !ok {
		return nil, documentErrorf("asyncapi", "missing version field")
	}
	doc.AsyncAPI = version

	info, err := decodeInfo(raw["info"])
	if err != nil {
		return nil, err
	}
	doc.Info = info

	if rawServers, ok := raw["servers"]; ok {
		servers, err := mapping(rawServers, "servers")
		if err != nil {
			return nil, err
		}
		for name, rawServer := range servers {
			server, err := decodeServer(rawServer, "servers."+name)
			if err != nil {
				return nil, err
			}
			doc.Servers[name] = server
		}
	}

	rawChannels, err := mapping(raw["channels"], "channels")
	if err != nil {
		return nil, err
	}
	for path, rawChannel := range rawChannels {
		channel, err := decodeChannel(rawChannel, "channels."+path)
		if err != nil {
			return nil, err
		}
		doc.Channels[path] = channel
	}

	if rawComponents, ok := raw["components"]; ok {
		components, err := decodeComponents(rawComponents)
		if err != nil {
			return nil, err
		}
		doc.Components = components
	}

	if err := doc.check(); err != nil {
		return nil, err
	}

	return doc, nil
}

// check applies cross-cutting constraints once all sections are decoded.
func (d *Document) check() error {
	for name, server := range d.Servers {
		for _, req := range server.Security {
			if err := d.validateRequirement(req, "servers."+name); err != nil {
				return err
			}
		}
	}

	channelNames := make([]string, 0, len(d.Channels))
	for name := range d.Channels {
		channelNames = append(channelNames, name)
	}
	sort.Strings(channelNames)

	for _, name := range channelNames {
		channel := d.Channels[name]
		path := "channels." + name

		if channel.Publish != nil {
			for _, message := range channel.Publish.Messages {
				if message.Handler == "" {
					return documentErrorf(path, "message %q is missing the x-handler attribute; every message under a publish operation needs a handler", message.Name)
				}
			}
		}
		for direction, op := range map[string]*Operation{"publish": channel.Publish, "subscribe": channel.Subscribe} {
			if op == nil {
				continue
			}
			seen := map[string]bool{}
			for _, message := range op.Messages {
				if seen[message.Name] {
					return documentErrorf(path, "duplicate %s message name %q", direction, message.Name)
				}
				seen[message.Name] = true
			}
		}

		for _, req := range channel.Security {
			if err := d.validateRequirement(req, path); err != nil {
				return err
			}
		}
	}

	return nil
}

func decodeInfo(raw any) (Info, error) {
	m, err := mapping(raw, "info")
	if err != nil {
		return Info{}, err
	}

	info := Info{}
	if info.Title, err = requiredString(m, "title", "info"); err != nil {
		return Info{}, err
	}
	if info.Version, err = requiredString(m, "version", "info"); err != nil {
		return Info{}, err
	}
	info.Description, _ = m["description"].(string)
	return info, nil
}

func decodeServer(raw any, path string) (Server, error) {
	m, err := mapping(raw, path)
	if err != nil {
		return Server{}, err
	}

	server := Server{}
	if server.URL, err = requiredString(m, "url", path); err != nil {
		return Server{}, err
	}

	protocol, err := requiredString(m, "protocol", path)
	if err != nil {
		return Server{}, err
	}
	switch ServerProtocol(protocol) {
	case ProtocolHTTP, ProtocolHTTPS, ProtocolWS, ProtocolWSS:
		server.Protocol = ServerProtocol(protocol)
	default:
		return Server{}, documentErrorf(path, "unsupported protocol %q", protocol)
	}

	if server.Security, err = decodeSecurityRequirements(m["security"], path+".security"); err != nil {
		return Server{}, err
	}
	return server, nil
}

func decodeChannel(raw any, path string) (*Channel, error) {
	m, err := mapping(raw, path)
	if err != nil {
		return nil, err
	}

	channel := &Channel{}

	if rawOp, ok := m["publish"]; ok {
		if channel.Publish, err = decodeOperation(rawOp, path+".publish"); err != nil {
			return nil, err
		}
	}
	if rawOp, ok := m["subscribe"]; ok {
		if channel.Subscribe, err = decodeOperation(rawOp, path+".subscribe"); err != nil {
			return nil, err
		}
	}

	if rawBindings, ok := m["bindings"]; ok {
		if channel.Bindings, err = decodeBindings(rawBindings, path+".bindings"); err != nil {
			return nil, err
		}
	}

	if rawHandlers, ok := m["x-handlers"]; ok {
		hm, err := mapping(rawHandlers, path+".x-handlers")
		if err != nil {
			return nil, err
		}
		channel.Handlers = &ChannelHandlers{}
		channel.Handlers.Connect, _ = hm["connect"].(string)
		channel.Handlers.Disconnect, _ = hm["disconnect"].(string)
		channel.Handlers.Error, _ = hm["error"].(string)
	}

	if channel.Security, err = decodeSecurityRequirements(m["x-security"], path+".x-security"); err != nil {
		return nil, err
	}

	return channel, nil
}

func decodeOperation(raw any, path string) (*Operation, error) {
	m, err := mapping(raw, path)
	if err != nil {
		return nil, err
	}

	rawMessage, ok := m["message"]
	if !ok {
		return nil, documentErrorf(path, "operation is missing its message")
	}
	mm, err := mapping(rawMessage, path+".message")
	if err != nil {
		return nil, err
	}

	op := &Operation{}

	// A bare message object and a oneOf list are both accepted; a single
	// message decodes as a one-element variant set.
	if rawAlts, ok := mm["oneOf"]; ok {
		alts, ok := rawAlts.([]any)
		if !ok {
			return nil, documentErrorf(path+".message.oneOf", "expected sequence, got %T", rawAlts)
		}
		for i, alt := range alts {
			message, err := decodeMessage(alt, fmt.Sprintf("%s.message.oneOf[%d]", path, i))
			if err != nil {
				return nil, err
			}
			op.Messages = append(op.Messages, message)
		}
	} else {
		message, err := decodeMessage(rawMessage, path+".message")
		if err != nil {
			return nil, err
		}
		op.Messages = append(op.Messages, message)
	}

	return op, nil
}

func decodeMessage(raw any, path string) (*Message, error) {
	m, err := mapping(raw, path)
	if err != nil {
		return nil, err
	}

	message := &Message{}
	if message.Name, err = requiredString(m, "name", path); err != nil {
		return nil, err
	}
	message.Handler, _ = m["x-handler"].(string)

	if rawPayload, ok := m["payload"]; ok {
		payload, err := schema.Decode(rawPayload)
		if err != nil {
			return nil, documentErrorf(path+".payload", "%v", err)
		}
		message.Payload = payload
	}

	if rawAck, ok := m["x-ack"]; ok {
		am, err := mapping(rawAck, path+".x-ack")
		if err != nil {
			return nil, err
		}
		message.Ack = &MessageAck{}
		if rawArgs, ok := am["args"]; ok {
			args, err := schema.Decode(rawArgs)
			if err != nil {
				return nil, documentErrorf(path+".x-ack.args", "%v", err)
			}
			message.Ack.Args = args
		}
	}

	return message, nil
}

func decodeBindings(raw any, path string) (*ChannelBindings, error) {
	m, err := mapping(raw, path)
	if err != nil {
		return nil, err
	}

	bindings := &ChannelBindings{}
	rawWS, ok := m["ws"]
	if !ok {
		return bindings, nil
	}
	wm, err := mapping(rawWS, path+".ws")
	if err != nil {
		return nil, err
	}

	ws := &WebSocketBindings{BindingVersion: "latest"}
	ws.Method, _ = wm["method"].(string)
	if v, ok := wm["bindingVersion"].(string); ok {
		ws.BindingVersion = v
	}
	if rawQuery, ok := wm["query"]; ok {
		if ws.Query, err = schema.Decode(rawQuery); err != nil {
			return nil, documentErrorf(path+".ws.query", "%v", err)
		}
	}
	if rawHeaders, ok := wm["headers"]; ok {
		if ws.Headers, err = schema.Decode(rawHeaders); err != nil {
			return nil, documentErrorf(path+".ws.headers", "%v", err)
		}
	}

	bindings.WS = ws
	return bindings, nil
}

func decodeComponents(raw any) (Components, error) {
	m, err := mapping(raw, "components")
	if err != nil {
		return Components{}, err
	}

	components := Components{
		Schemas:         map[string]*schema.Node{},
		SecuritySchemes: map[string]*SecurityScheme{},
	}

	if rawSchemas, ok := m["schemas"]; ok {
		sm, err := mapping(rawSchemas, "components.schemas")
		if err != nil {
			return Components{}, err
		}
		for name, rawSchema := range sm {
			node, err := schema.Decode(rawSchema)
			if err != nil {
				return Components{}, documentErrorf("components.schemas."+name, "%v", err)
			}
			components.Schemas[name] = node
		}
	}

	if rawSchemes, ok := m["securitySchemes"]; ok {
		sm, err := mapping(rawSchemes, "components.securitySchemes")
		if err != nil {
			return Components{}, err
		}
		for name, rawScheme := range sm {
			scheme, err := decodeSecurityScheme(rawScheme, "components.securitySchemes."+name)
			if err != nil {
				return Components{}, err
			}
			components.SecuritySchemes[name] = scheme
		}
	}

	return components, nil
}

func decodeSecurityScheme(raw any, path string) (*SecurityScheme, error) {
	m, err := mapping(raw, path)
	if err != nil {
		return nil, err
	}

	typeName, err := requiredString(m, "type", path)
	if err != nil {
		return nil, err
	}

	scheme := &SecurityScheme{Type: SecuritySchemeType(typeName)}
	scheme.Description, _ = m["description"].(string)
	scheme.Name, _ = m["name"].(string)
	if in, ok := m["in"].(string); ok {
		scheme.In = APIKeyLocation(in)
	}
	scheme.Scheme, _ = m["scheme"].(string)
	scheme.BearerFormat, _ = m["bearerFormat"].(string)
	scheme.OpenIDConnectURL, _ = m["openIdConnectUrl"].(string)

	if rawFlows, ok := m["flows"]; ok {
		fm, err := mapping(rawFlows, path+".flows")
		if err != nil {
			return nil, err
		}
		flows := &OAuth2Flows{}
		for key, target := range map[string]**OAuth2Flow{
			"implicit":          &flows.Implicit,
			"password":          &flows.Password,
			"clientCredentials": &flows.ClientCredentials,
			"authorizationCode": &flows.AuthorizationCode,
		} {
			rawFlow, ok := fm[key]
			if !ok {
				continue
			}
			flow, err := decodeFlow(rawFlow, path+".flows."+key)
			if err != nil {
				return nil, err
			}
			*target = flow
		}
		scheme.Flows = flows
	}

	if err := scheme.validate(path); err != nil {
		return nil, err
	}
	return scheme, nil
}

func decodeFlow(raw any, path string) (*OAuth2Flow, error) {
	m, err := mapping(raw, path)
	if err != nil {
		return nil, err
	}

	flow := &OAuth2Flow{Scopes: map[string]string{}}
	flow.AuthorizationURL, _ = m["authorizationUrl"].(string)
	flow.TokenURL, _ = m["tokenUrl"].(string)
	flow.RefreshURL, _ = m["refreshUrl"].(string)

	if rawScopes, ok := m["scopes"]; ok {
		sm, err := mapping(rawScopes, path+".scopes")
		if err != nil {
			return nil, err
		}
		for scope, rawDescription := range sm {
			description, _ := rawDescription.(string)
			flow.Scopes[scope] = description
		}
	}

	return flow, nil
}

func decodeSecurityRequirements(raw any, path string) ([]SecurityRequirement, error) {
	if raw == nil {
		return nil, nil
	}
	seq, ok := raw.([]any)
	if !ok {
		return nil, documentErrorf(path, "expected sequence, got %T", raw)
	}

	reqs := make([]SecurityRequirement, 0, len(seq))
	for i, rawReq := range seq {
		m, err := mapping(rawReq, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		req := SecurityRequirement{}
		for scheme, rawScopes := range m {
			scopes := []string{}
			if rawScopes != nil {
				scopeSeq, ok := rawScopes.([]any)
				if !ok {
					return nil, documentErrorf(fmt.Sprintf("%s[%d].%s", path, i, scheme), "scopes must be a sequence")
				}
				for _, rawScope := range scopeSeq {
					scope, ok := rawScope.(string)
					if !ok {
						return nil, documentErrorf(fmt.Sprintf("%s[%d].%s", path, i, scheme), "scope %v is not a string", rawScope)
					}
					scopes = append(scopes, scope)
				}
			}
			req[scheme] = scopes
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

func mapping(raw any, path string) (map[string]any, error) {
	if raw == nil {
		return nil, documentErrorf(path, "missing section")
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, documentErrorf(path, "expected mapping, got %T", raw)
	}
	return m, nil
}

func requiredString(m map[string]any, key, path string) (string, error) {
	value, ok := m[key].(string)
	if !ok || value == "" {
		return "", documentErrorf(path, "missing required field %q", key)
	}
	return value, nil
}
