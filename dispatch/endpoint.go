package dispatch

// Item is one scheduled request travelling through the channel.
type Item[I, O any] struct {
	Request     I
	Correlation Context
	sink        *Sink[O]
}

// Sink returns the item's response slot.
func (it Item[I, O]) Sink() *Sink[O] { return it.sink }

// NewQueue creates a channel whose dropped items release their receivers
// with ErrNoResponse.
func NewQueue[I, O any]() *Channel[Item[I, O]] {
	ch := NewChannel[Item[I, O]]()
	ch.OnDrop(func(it Item[I, O]) { it.sink.Close() })
	return ch
}

// EndpointContext is the producer handle shared by request handlers.
// It is safe to copy and to use concurrently.
type EndpointContext[I, O any] struct {
	queue *Channel[Item[I, O]]
}

// NewEndpointContext wraps the producing side of queue.
func NewEndpointContext[I, O any](queue *Channel[Item[I, O]]) EndpointContext[I, O] {
	return EndpointContext[I, O]{queue: queue}
}

// Schedule enqueues req and returns the receiver for its outcome. It never
// blocks and fails with ErrIPCFailed when the consumer is gone.
func (e EndpointContext[I, O]) Schedule(c Context, req I) (*Receiver[O], error) {
	sink, rx := newSlot[O]()
	if err := e.queue.Send(Item[I, O]{Request: req, Correlation: c, sink: sink}); err != nil {
		return nil, err
	}
	return rx, nil
}

// Available reports whether the consumer is accepting work.
func (e EndpointContext[I, O]) Available() bool {
	return e.queue.Connected()
}
