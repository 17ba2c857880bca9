package process_test

import (
	"context"
	"testing"

	"github.com/uepipe/uepipe/pkg/logger"
	"github.com/uepipe/uepipe/pkg/process"
)

func TestManager_StartStop(t *testing.T) {
	m := process.NewManager(logger.Discard())

	m.Start(context.Background())
	if !m.IsRunning() {
		t.Fatal("expected manager to be running")
	}

	// second start is a no-op
	m.Start(context.Background())

	m.Stop()
	if m.IsRunning() {
		t.Error("expected manager to be stopped")
	}

	// stopping twice must not panic
	m.Stop()
}

func TestManager_ContextDone(t *testing.T) {
	m := process.NewManager(logger.Discard())
	called := false
	m.RegisterShutdownHandler(func() { called = true })

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	cancel()
	m.Stop()

	if called {
		t.Error("shutdown handlers only run on signals")
	}
}
