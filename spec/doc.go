// Package spec models the declarative API document that drives specwire:
// channels, their publish and subscribe operations, message payload and
// acknowledgement schemas, connection bindings and security schemes.
//
// A Document is constructed once per process from YAML or JSON (or from an
// already-parsed raw mapping), has every internal $ref substituted by an
// independent copy of its target during resolution, and is immutable
// afterwards. Resolution failures (missing targets, reference cycles) are
// fatal to startup.
package spec
