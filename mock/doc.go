// Package mock turns a resolved specification into a self-driving
// simulation server: publish-direction handlers are replaced with fakes
// that acknowledge with generated values, and every subscribe-direction
// message is emitted on a periodic schedule with a schema-conformant
// synthetic payload.
package mock
