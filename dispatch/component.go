package dispatch

import (
	"context"
	"fmt"

	"github.com/kbukum/endpoints/component"
	"github.com/kbukum/endpoints/logger"
)

// Counts are cumulative totals since the loop started.
type Counts struct {
	Processed   int64 `json:"processed"`
	Failed      int64 `json:"failed"`
	Undelivered int64 `json:"undelivered"`
}

// Counts returns cumulative totals.
func (l *Loop[I, O]) Counts() Counts {
	return Counts{
		Processed:   l.counters.processed.Load(),
		Failed:      l.counters.failed.Load(),
		Undelivered: l.counters.undelivered.Load(),
	}
}

// Start runs the loop on its own goroutine.
func (l *Loop[I, O]) Start(_ context.Context) error {
	if err := l.claim(); err != nil {
		return err
	}
	go func() {
		if err := l.run(); err != nil {
			l.log.Error("dispatch loop exited", logger.Fields(logger.FieldError, err.Error()))
		}
	}()
	return nil
}

// Stop closes the queue and waits for queued work to drain. When ctx ends
// first, the remaining items are dropped and their callers see
// ErrNoResponse.
func (l *Loop[I, O]) Stop(ctx context.Context) error {
	l.queue.Close()
	l.mu.RLock()
	running := l.running
	l.mu.RUnlock()
	if !running {
		l.queue.Disconnect()
		return nil
	}
	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		l.queue.Disconnect()
		l.cancel()
		return fmt.Errorf("dispatch loop %s: drain interrupted: %w", l.name, ctx.Err())
	}
}

// Health reports unhealthy once the loop has aborted or stopped.
func (l *Loop[I, O]) Health(_ context.Context) component.Health {
	h := component.Health{Name: l.Name(), Status: component.StatusHealthy}
	select {
	case <-l.done:
		h.Status = component.StatusUnhealthy
		h.Message = "stopped"
		if l.abortErr != nil {
			h.Message = l.abortErr.Error()
		}
		return h
	default:
	}
	if !l.queue.Connected() {
		h.Status = component.StatusDegraded
		h.Message = "draining"
	}
	return h
}

// Describe reports the loop for the startup summary.
func (l *Loop[I, O]) Describe() component.Description {
	details := string(l.cfg.Mode)
	if l.cfg.Mode == ModeConcurrent {
		limit := "unbounded"
		if l.cfg.MaxConcurrency > 0 {
			limit = fmt.Sprintf("%d", l.cfg.MaxConcurrency)
		}
		details += " max=" + limit
	}
	if l.cfg.CancelOnAbandon {
		details += " cancel_on_abandon"
	}
	return component.Description{
		Name:    "Dispatch " + l.name,
		Type:    "dispatch",
		Details: details + " handler=" + l.handler.Name(),
	}
}
