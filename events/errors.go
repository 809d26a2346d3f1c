package events

import (
	"fmt"

	"github.com/specwire/specwire-go/schema"
)

// PayloadValidationError reports a received or about-to-be-sent message
// payload that does not conform to its schema. It is recoverable: callers
// decide whether to drop the message, notify the remote party or invoke an
// error handler.
type PayloadValidationError struct {
	Namespace string
	Event     string
	Reason    string
	Violation *schema.Violation
}

func (e *PayloadValidationError) Error() string {
	return fmt.Sprintf("payload validation failed for event %q on %s: %s", e.Event, e.Namespace, e.Reason)
}

func (e *PayloadValidationError) Unwrap() error {
	if e.Violation == nil {
		return nil
	}
	return e.Violation
}

// BindingValidationError reports connection-time request metadata that does
// not conform to the channel's binding schema. It surfaces before any
// handler invocation.
type BindingValidationError struct {
	Namespace string
	Reason    string
	Violation *schema.Violation
}

func (e *BindingValidationError) Error() string {
	return fmt.Sprintf("binding validation failed on %s: %s", e.Namespace, e.Reason)
}

func (e *BindingValidationError) Unwrap() error {
	if e.Violation == nil {
		return nil
	}
	return e.Violation
}

// AckValidationError reports acknowledgement arguments that do not conform
// to the declared ack schema, whether produced by a local handler's return
// value or received from a remote acknowledgement callback.
type AckValidationError struct {
	Namespace string
	Event     string
	Reason    string
	Violation *schema.Violation
}

func (e *AckValidationError) Error() string {
	return fmt.Sprintf("ack validation failed for event %q on %s: %s", e.Event, e.Namespace, e.Reason)
}

func (e *AckValidationError) Unwrap() error {
	if e.Violation == nil {
		return nil
	}
	return e.Violation
}

// RouteError reports an event or namespace the specification does not
// define for the attempted direction.
type RouteError struct {
	Namespace string
	Event     string
	Reason    string
}

func (e *RouteError) Error() string {
	if e.Event == "" {
		return fmt.Sprintf("no route for namespace %s: %s", e.Namespace, e.Reason)
	}
	return fmt.Sprintf("no route for event %q on %s: %s", e.Event, e.Namespace, e.Reason)
}

// SecurityError reports a connection attempt to a secured channel without
// an established principal.
type SecurityError struct {
	Namespace string
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("namespace %s requires an authenticated connection", e.Namespace)
}
