package dispatch

import (
	"context"
	"sync"
)

type result[O any] struct {
	value O
	err   error
}

// Sink is the producing half of a single-use response slot.
type Sink[O any] struct {
	ch        chan result[O]
	used      sync.Once
	abandon   sync.Once
	abandoned chan struct{}
}

// Receiver is the consuming half of a single-use response slot.
type Receiver[O any] struct {
	sink *Sink[O]
}

func newSlot[O any]() (*Sink[O], *Receiver[O]) {
	s := &Sink[O]{
		ch:        make(chan result[O], 1),
		abandoned: make(chan struct{}),
	}
	return s, &Receiver[O]{sink: s}
}

// Deliver hands value and err to the receiver. It fails with ErrSinkUsed
// on a second call and with ErrReceiverGone when nobody is waiting.
func (s *Sink[O]) Deliver(value O, err error) error {
	outcome := ErrSinkUsed
	s.used.Do(func() {
		select {
		case <-s.abandoned:
			outcome = ErrReceiverGone
		default:
			s.ch <- result[O]{value: value, err: err}
			outcome = nil
		}
		close(s.ch)
	})
	return outcome
}

// Close releases the slot without a value; the receiver observes
// ErrNoResponse. Closing a used sink is a no-op.
func (s *Sink[O]) Close() {
	s.used.Do(func() { close(s.ch) })
}

// Abandoned is closed once the receiver stops waiting.
func (s *Sink[O]) Abandoned() <-chan struct{} {
	return s.abandoned
}

// Await blocks for the outcome. When ctx ends first the receiver is
// abandoned and ctx.Err() is returned.
func (r *Receiver[O]) Await(ctx context.Context) (O, error) {
	select {
	case res, ok := <-r.sink.ch:
		if !ok {
			var zero O
			return zero, ErrNoResponse
		}
		return res.value, res.err
	case <-ctx.Done():
		r.Abandon()
		var zero O
		return zero, ctx.Err()
	}
}

// Abandon tells the sink that no one will read the outcome.
func (r *Receiver[O]) Abandon() {
	r.sink.abandon.Do(func() { close(r.sink.abandoned) })
}
