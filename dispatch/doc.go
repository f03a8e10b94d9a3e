// Package dispatch bridges many concurrent request handlers to a single
// backend consumer.
//
// Producers call EndpointContext.Schedule, which enqueues the request on
// an unbounded Channel together with a single-use Sink and hands back the
// matching Receiver. A Loop owns the consuming end: it invokes the backend
// handler for each item and delivers the result through the item's Sink.
//
//	queue := dispatch.NewQueue[Req, Resp]()
//	loop, _ := dispatch.NewLoop("embeddings", queue, handler, cfg)
//	go loop.Run()
//
//	rx, err := dispatch.NewEndpointContext(queue).Schedule(dispatch.NewContext(id), req)
//	resp, err := rx.Await(ctx)
//
// Every request gets exactly one outcome: the handler result, a
// HandlerError, ErrNoResponse when the consumer went away before answering,
// or the caller's own context error after it stopped waiting. Schedule
// fails with ErrIPCFailed once the consumer is gone.
package dispatch
