// Package component defines the lifecycle contract shared by every
// long-lived part of an endpoint service, and a Registry that starts them
// in registration order and stops them in reverse.
package component
