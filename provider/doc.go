// Package provider defines the capability a dispatch loop invokes and the
// middleware that decorates it.
//
// A backend (remote sidecar, in-process model, test double) implements
// RequestResponse[I, O]. Cross-cutting behavior is layered with Chain:
//
//	handler := provider.Chain(
//	    provider.WithLogging[Req, Resp](log),
//	    provider.WithTracing[Req, Resp]("endpoints"),
//	    provider.WithCache[Req, Resp](store, keyFn, ttl),
//	)(backend)
//
// Several backends for one task can be registered with a Manager and
// served through Routed, which picks an available backend per call.
package provider
