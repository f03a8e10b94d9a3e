package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/kbukum/endpoints/component"
)

// StopTimeout bounds the Stop call registered by Start.
const StopTimeout = 5 * time.Second

// Start starts c and stops it when the test ends. A failed start aborts the
// test.
func Start(t testing.TB, c component.Component) {
	t.Helper()
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("failed to start component %s: %v", c.Name(), err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), StopTimeout)
		defer cancel()
		if err := c.Stop(ctx); err != nil {
			t.Errorf("failed to stop component %s: %v", c.Name(), err)
		}
	})
}
