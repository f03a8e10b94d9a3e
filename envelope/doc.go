// Package envelope defines the request and response shapes that cross the
// dispatch boundary: EndpointRequest pairs task inputs with parameters,
// EndpointResponse pairs an output with optional token usage, and
// MaybeBatched carries either one item or many without losing which.
package envelope
