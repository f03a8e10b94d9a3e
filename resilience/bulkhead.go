package resilience

import (
	"context"
	"errors"
	"time"
)

// Bulkhead rejections.
var (
	ErrBulkheadFull    = errors.New("bulkhead is full")
	ErrBulkheadTimeout = errors.New("bulkhead wait timeout")
)

const defaultMaxConcurrent = 10

// BulkheadConfig configures a Bulkhead.
type BulkheadConfig struct {
	Name string
	// MaxConcurrent defaults to 10.
	MaxConcurrent int
	// MaxWait bounds how long Execute queues for a slot. Zero rejects a
	// full bulkhead immediately.
	MaxWait time.Duration
}

// Bulkhead bounds the number of concurrent calls into a backend.
type Bulkhead struct {
	cfg   BulkheadConfig
	slots chan struct{}
}

// NewBulkhead creates a Bulkhead with all slots free.
func NewBulkhead(cfg BulkheadConfig) *Bulkhead {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = defaultMaxConcurrent
	}
	return &Bulkhead{cfg: cfg, slots: make(chan struct{}, cfg.MaxConcurrent)}
}

// Execute runs fn in a slot. It fails with ErrBulkheadFull or
// ErrBulkheadTimeout when none frees up within MaxWait.
func (b *Bulkhead) Execute(ctx context.Context, fn func() error) error {
	if err := b.acquire(ctx); err != nil {
		return err
	}
	defer b.Release()
	return fn()
}

// ExecuteWithResult is Execute for functions returning a value.
func ExecuteWithResult[T any](ctx context.Context, b *Bulkhead, fn func() (T, error)) (T, error) {
	var out T
	err := b.Execute(ctx, func() error {
		var err error
		out, err = fn()
		return err
	})
	return out, err
}

// Wait blocks for a slot until ctx is done, ignoring MaxWait. Pair every
// successful Wait with Release.
func (b *Bulkhead) Wait(ctx context.Context) error {
	select {
	case b.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot taken by Wait.
func (b *Bulkhead) Release() { <-b.slots }

// InUse returns the number of occupied slots.
func (b *Bulkhead) InUse() int { return len(b.slots) }

func (b *Bulkhead) acquire(ctx context.Context) error {
	select {
	case b.slots <- struct{}{}:
		return nil
	default:
	}
	if b.cfg.MaxWait <= 0 {
		return ErrBulkheadFull
	}

	timer := time.NewTimer(b.cfg.MaxWait)
	defer timer.Stop()
	select {
	case b.slots <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrBulkheadTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}
