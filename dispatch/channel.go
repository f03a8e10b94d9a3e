package dispatch

import "sync"

// Channel is an unbounded multi-producer single-consumer queue. Send never
// blocks. Once the consumer disconnects, Send fails with ErrIPCFailed and
// anything still queued is handed to the drop hook.
type Channel[T any] struct {
	mu           sync.Mutex
	queue        []T
	notify       chan struct{}
	closed       bool
	disconnected bool
	bound        bool
	maxDepth     int
	onDrop       func(T)
}

// NewChannel creates an empty channel.
func NewChannel[T any]() *Channel[T] {
	return &Channel[T]{notify: make(chan struct{}, 1)}
}

// OnDrop sets the hook that receives items discarded by Disconnect.
func (c *Channel[T]) OnDrop(fn func(T)) {
	c.mu.Lock()
	c.onDrop = fn
	c.mu.Unlock()
}

// Send enqueues v.
func (c *Channel[T]) Send(v T) error {
	c.mu.Lock()
	if c.closed || c.disconnected {
		c.mu.Unlock()
		return ErrIPCFailed
	}
	c.queue = append(c.queue, v)
	if len(c.queue) > c.maxDepth {
		c.maxDepth = len(c.queue)
	}
	c.mu.Unlock()
	c.wake()
	return nil
}

// Recv blocks until an item is available. It returns false once the
// channel is closed and drained, or the consumer disconnected.
func (c *Channel[T]) Recv() (T, bool) {
	for {
		c.mu.Lock()
		if c.disconnected {
			c.mu.Unlock()
			var zero T
			return zero, false
		}
		if len(c.queue) > 0 {
			v := c.queue[0]
			var zero T
			c.queue[0] = zero
			c.queue = c.queue[1:]
			c.mu.Unlock()
			return v, true
		}
		if c.closed {
			c.mu.Unlock()
			var zero T
			return zero, false
		}
		c.mu.Unlock()
		<-c.notify
	}
}

// Close stops accepting new items. Queued items are still delivered.
func (c *Channel[T]) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.wake()
}

// Disconnect marks the consumer as gone and drops queued items.
func (c *Channel[T]) Disconnect() {
	c.mu.Lock()
	if c.disconnected {
		c.mu.Unlock()
		return
	}
	c.disconnected = true
	pending := c.queue
	c.queue = nil
	drop := c.onDrop
	c.mu.Unlock()
	c.wake()

	if drop != nil {
		for _, v := range pending {
			drop(v)
		}
	}
}

// Connected reports whether Send would currently succeed.
func (c *Channel[T]) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && !c.disconnected
}

// Len returns the number of queued items.
func (c *Channel[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// MaxLen returns the deepest the queue has been.
func (c *Channel[T]) MaxLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxDepth
}

func (c *Channel[T]) bind() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bound {
		return ErrConsumerBound
	}
	c.bound = true
	return nil
}

func (c *Channel[T]) wake() {
	select {
	case c.notify <- struct{}{}:
	default:
	}
}
