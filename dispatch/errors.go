package dispatch

import (
	"errors"
	"fmt"
)

var (
	// ErrIPCFailed is returned by Schedule when the consumer is gone.
	ErrIPCFailed = errors.New("dispatch: inference consumer is not running")
	// ErrNoResponse is observed by a receiver whose sink closed without a value.
	ErrNoResponse = errors.New("dispatch: no response returned by the inference engine")
	// ErrConsumerBound is returned when a second loop binds the same channel.
	ErrConsumerBound = errors.New("dispatch: channel already has a consumer")
	// ErrSinkUsed is returned by a second delivery on the same sink.
	ErrSinkUsed = errors.New("dispatch: response sink already used")
	// ErrReceiverGone is returned when the receiver stopped waiting.
	ErrReceiverGone = errors.New("dispatch: receiver dropped before delivery")
	// ErrLoopAborted wraps the fatal defect that stopped a loop.
	ErrLoopAborted = errors.New("dispatch: loop aborted")
)

// HandlerError carries a failure reported by the backend handler.
type HandlerError struct {
	Cause error
}

func (e *HandlerError) Error() string { return e.Cause.Error() }

func (e *HandlerError) Unwrap() error { return e.Cause }

// PanicError records a handler panic.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panicked: %v", e.Value)
}
