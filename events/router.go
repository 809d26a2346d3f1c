package events

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/specwire/specwire-go/handlers"
	"github.com/specwire/specwire-go/schema"
	"github.com/specwire/specwire-go/spec"
)

// Emitter is the transport collaborator that carries outbound events to
// connected clients (and, when configured, to other server instances).
type Emitter interface {
	Emit(ctx context.Context, namespace, event string, args []any) error
}

// EmitterFunc is a function adapter for Emitter.
type EmitterFunc func(ctx context.Context, namespace, event string, args []any) error

// Emit implements Emitter.
func (f EmitterFunc) Emit(ctx context.Context, namespace, event string, args []any) error {
	return f(ctx, namespace, event, args)
}

// ConnectRequest carries the connection-time request metadata a transport
// observed during the upgrade handshake.
type ConnectRequest struct {
	Method        string
	Query         map[string]string
	Headers       map[string]string
	Authenticated bool
}

// Router routes wire events to handlers with validation at every boundary.
type Router struct {
	doc                 *spec.Document
	logger              *slog.Logger
	validation          bool
	defaultErrorHandler handlers.Invocable
	channels            map[string]*channelRuntime
}

type channelRuntime struct {
	channel    *spec.Channel
	routes     map[string]*route
	connect    handlers.Invocable
	disconnect handlers.Invocable
	onError    handlers.Invocable
}

type route struct {
	message *spec.Message
	handler handlers.Invocable
}

// RouterOption configures the Router.
type RouterOption func(*Router)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) RouterOption {
	return func(r *Router) {
		r.logger = logger
	}
}

// WithValidation toggles payload, binding and ack validation. Disabling it
// turns the router into a pass-through dispatcher.
func WithValidation(enabled bool) RouterOption {
	return func(r *Router) {
		r.validation = enabled
	}
}

// WithDefaultErrorHandler sets the handler invoked for namespaces without
// an explicit error handler.
func WithDefaultErrorHandler(fn handlers.Invocable) RouterOption {
	return func(r *Router) {
		r.defaultErrorHandler = fn
	}
}

// NewRouter builds a router from a resolved document, eagerly resolving
// every handler reference against the registry. A reference with no
// registered invocable fails construction.
func NewRouter(doc *spec.Document, registry *handlers.Registry, options ...RouterOption) (*Router, error) {
	r := &Router{
		doc:        doc,
		logger:     slog.Default(),
		validation: true,
		channels:   make(map[string]*channelRuntime),
	}
	for _, opt := range options {
		opt(r)
	}

	for namespace, channel := range doc.Channels {
		runtime := &channelRuntime{
			channel: channel,
			routes:  make(map[string]*route),
		}

		if channel.Publish != nil {
			for _, message := range channel.Publish.Messages {
				handler, err := registry.Resolve(message.Handler)
				if err != nil {
					return nil, fmt.Errorf("channel %s event %q: %w", namespace, message.Name, err)
				}
				runtime.routes[message.Name] = &route{message: message, handler: handler}
			}
		}

		if channel.Handlers != nil {
			var err error
			if runtime.connect, err = resolveLifecycle(registry, channel.Handlers.Connect); err != nil {
				return nil, fmt.Errorf("channel %s connect: %w", namespace, err)
			}
			if runtime.disconnect, err = resolveLifecycle(registry, channel.Handlers.Disconnect); err != nil {
				return nil, fmt.Errorf("channel %s disconnect: %w", namespace, err)
			}
			if runtime.onError, err = resolveLifecycle(registry, channel.Handlers.Error); err != nil {
				return nil, fmt.Errorf("channel %s error: %w", namespace, err)
			}
		}

		r.channels[namespace] = runtime
	}

	return r, nil
}

func resolveLifecycle(registry *handlers.Registry, path string) (handlers.Invocable, error) {
	if path == "" {
		return nil, nil
	}
	return registry.Resolve(path)
}

// Document returns the resolved specification backing the router.
func (r *Router) Document() *spec.Document {
	return r.doc
}

// HandleEvent validates and dispatches an inbound (publish-direction)
// event, returning the handler's acknowledgement value. Validation
// failures are returned to the caller; they never terminate the process.
func (r *Router) HandleEvent(ctx context.Context, namespace, event string, args []any) (any, error) {
	runtime, ok := r.channels[namespace]
	if !ok {
		return nil, &RouteError{Namespace: namespace, Event: event, Reason: "namespace is not defined in the spec"}
	}
	rt, ok := runtime.routes[event]
	if !ok {
		return nil, &RouteError{Namespace: namespace, Event: event, Reason: "event is not registered under a publish operation"}
	}

	if r.validation {
		if err := validatePayload(namespace, event, args, rt.message.Payload); err != nil {
			r.dispatchError(ctx, runtime, err)
			return nil, err
		}
	}

	ack, err := rt.handler(ctx, args)
	if err != nil {
		r.dispatchError(ctx, runtime, err)
		return nil, err
	}

	if r.validation {
		if err := validateAck(namespace, event, ack, rt.message.Ack); err != nil {
			r.dispatchError(ctx, runtime, err)
			return nil, err
		}
	}

	return ack, nil
}

// ValidateEmit checks an outbound (subscribe-direction) emission against
// the spec before the transport sends it.
func (r *Router) ValidateEmit(namespace, event string, args []any) error {
	runtime, ok := r.channels[namespace]
	if !ok {
		return &RouteError{Namespace: namespace, Event: event, Reason: "namespace is not defined in the spec"}
	}
	if runtime.channel.Subscribe == nil {
		return &RouteError{Namespace: namespace, Event: event, Reason: "namespace has no subscribe operations defined"}
	}
	message := runtime.channel.Subscribe.MessageNamed(event)
	if message == nil {
		return &RouteError{Namespace: namespace, Event: event, Reason: "event is not registered under a subscribe operation"}
	}

	if !r.validation {
		return nil
	}
	return validatePayload(namespace, event, args, message.Payload)
}

// ValidateAck checks the arguments of a remote acknowledgement callback
// for a subscribe-direction event.
func (r *Router) ValidateAck(namespace, event string, args []any) error {
	runtime, ok := r.channels[namespace]
	if !ok {
		return &RouteError{Namespace: namespace, Event: event, Reason: "namespace is not defined in the spec"}
	}
	if runtime.channel.Subscribe == nil {
		return &RouteError{Namespace: namespace, Event: event, Reason: "namespace has no subscribe operations defined"}
	}
	message := runtime.channel.Subscribe.MessageNamed(event)
	if message == nil {
		return &RouteError{Namespace: namespace, Event: event, Reason: "event is not registered under a subscribe operation"}
	}

	if !r.validation || message.Ack == nil || message.Ack.Args == nil {
		return nil
	}

	var value any
	switch len(args) {
	case 0:
		value = nil
	case 1:
		value = args[0]
	default:
		if message.Ack.Args.Kind != schema.KindArray {
			return &AckValidationError{
				Namespace: namespace,
				Event:     event,
				Reason:    fmt.Sprintf("multiple ack arguments provided, although schema type is %s", message.Ack.Args.Kind),
			}
		}
		value = anySlice(args)
	}

	if violation := schema.Validate(message.Ack.Args, value); violation != nil {
		return &AckValidationError{Namespace: namespace, Event: event, Reason: violation.Message, Violation: violation}
	}
	return nil
}

// HandleConnect validates connection-time bindings and security before
// invoking the channel's connect handler.
func (r *Router) HandleConnect(ctx context.Context, namespace string, req ConnectRequest) error {
	runtime, ok := r.channels[namespace]
	if !ok {
		return &RouteError{Namespace: namespace, Reason: "namespace is not defined in the spec"}
	}

	if len(runtime.channel.Security) > 0 && !req.Authenticated {
		return &SecurityError{Namespace: namespace}
	}

	if r.validation {
		if err := validateBindings(namespace, runtime.channel.Bindings, req); err != nil {
			return err
		}
	}

	if runtime.connect == nil {
		return nil
	}
	_, err := runtime.connect(ctx, nil)
	return err
}

// HandleDisconnect routes a disconnect notification to the channel's
// disconnect handler, when one is declared.
func (r *Router) HandleDisconnect(ctx context.Context, namespace string) error {
	runtime, ok := r.channels[namespace]
	if !ok {
		return &RouteError{Namespace: namespace, Reason: "namespace is not defined in the spec"}
	}
	if runtime.disconnect == nil {
		return nil
	}
	_, err := runtime.disconnect(ctx, nil)
	return err
}

// HandleError routes a failure to the channel's error handler, falling
// back to the default error handler. Unhandled failures are logged.
func (r *Router) HandleError(ctx context.Context, namespace string, cause error) {
	if runtime, ok := r.channels[namespace]; ok && runtime.onError != nil {
		if _, err := runtime.onError(ctx, []any{cause}); err != nil {
			r.logger.Error("error handler failed", "namespace", namespace, "error", err)
		}
		return
	}
	if r.defaultErrorHandler != nil {
		if _, err := r.defaultErrorHandler(ctx, []any{cause}); err != nil {
			r.logger.Error("default error handler failed", "error", err)
		}
		return
	}
	r.logger.Warn("unhandled namespace error", "namespace", namespace, "error", cause)
}

func (r *Router) dispatchError(ctx context.Context, runtime *channelRuntime, cause error) {
	if runtime.onError != nil {
		if _, err := runtime.onError(ctx, []any{cause}); err != nil {
			r.logger.Error("error handler failed", "error", err)
		}
		return
	}
	if r.defaultErrorHandler != nil {
		if _, err := r.defaultErrorHandler(ctx, []any{cause}); err != nil {
			r.logger.Error("default error handler failed", "error", err)
		}
	}
}

// validatePayload applies the argument-tuple rules: a nil schema permits no
// arguments, an array schema consumes the whole tuple, and any other schema
// takes exactly one argument.
func validatePayload(namespace, event string, args []any, payload *schema.Node) error {
	if payload == nil {
		if len(args) > 0 {
			return &PayloadValidationError{
				Namespace: namespace,
				Event:     event,
				Reason:    "args provided for an operation that has no message payload defined",
			}
		}
		return nil
	}

	if payload.Kind == schema.KindArray {
		if violation := schema.Validate(payload, anySlice(args)); violation != nil {
			return &PayloadValidationError{Namespace: namespace, Event: event, Reason: violation.Message, Violation: violation}
		}
		return nil
	}

	if len(args) != 1 {
		return &PayloadValidationError{
			Namespace: namespace,
			Event:     event,
			Reason:    fmt.Sprintf("expected exactly one argument for schema type %s, got %d", payload.Kind, len(args)),
		}
	}
	if violation := schema.Validate(payload, args[0]); violation != nil {
		return &PayloadValidationError{Namespace: namespace, Event: event, Reason: violation.Message, Violation: violation}
	}
	return nil
}

func validateAck(namespace, event string, ack any, ackSpec *spec.MessageAck) error {
	if ackSpec == nil || ackSpec.Args == nil {
		return nil
	}
	if violation := schema.Validate(ackSpec.Args, ack); violation != nil {
		return &AckValidationError{Namespace: namespace, Event: event, Reason: violation.Message, Violation: violation}
	}
	return nil
}

func validateBindings(namespace string, bindings *spec.ChannelBindings, req ConnectRequest) error {
	if bindings == nil || bindings.WS == nil {
		return nil
	}
	ws := bindings.WS

	if ws.Method != "" && req.Method != "" && !strings.EqualFold(req.Method, ws.Method) {
		return &BindingValidationError{
			Namespace: namespace,
			Reason:    fmt.Sprintf("request method %s does not match %s", req.Method, ws.Method),
		}
	}

	if ws.Headers != nil {
		headers := make(map[string]any, len(req.Headers))
		for name, value := range req.Headers {
			headers[strings.ToLower(name)] = value
		}
		if violation := schema.Validate(ws.Headers, headers); violation != nil {
			return &BindingValidationError{Namespace: namespace, Reason: violation.Message, Violation: violation}
		}
	}

	if ws.Query != nil {
		query := make(map[string]any, len(req.Query))
		for name, value := range req.Query {
			query[name] = value
		}
		if violation := schema.Validate(ws.Query, query); violation != nil {
			return &BindingValidationError{Namespace: namespace, Reason: violation.Message, Violation: violation}
		}
	}

	return nil
}

func anySlice(args []any) []any {
	if args == nil {
		return []any{}
	}
	return args
}
