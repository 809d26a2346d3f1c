// Package events binds a resolved specification document to runtime
// behavior: routing wire events to their registered handlers, validating
// inbound payloads, connection bindings and acknowledgements, and checking
// outbound emissions before they reach the transport.
//
// The Router resolves every handler reference eagerly at construction so a
// missing handler fails startup instead of the first message. After
// construction the router is immutable and safe for concurrent use from any
// number of connection-handling goroutines.
package events
