package watch

import (
	"context"
	"fmt"
	"runtime/debug"

	"golang.org/x/sync/errgroup"

	"github.com/uepipe/uepipe/pkg/logger"
	"github.com/uepipe/uepipe/pkg/utils"
)

// SafeGroup wraps errgroup.Group and turns goroutine panics into errors
type SafeGroup struct {
	group  *errgroup.Group
	logger logger.Logger
}

// NewSafeGroup creates a SafeGroup bound to ctx
func NewSafeGroup(ctx context.Context, log logger.Logger) (*SafeGroup, context.Context) {
	g, ctx := errgroup.WithContext(ctx)
	return &SafeGroup{
		group:  g,
		logger: log,
	}, ctx
}

// Go runs fn in a new goroutine with panic recovery
func (sg *SafeGroup) Go(fn func() error) {
	sg.group.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				sg.logger.Error("Goroutine panic recovered",
					logger.WithField("panic", r),
					logger.WithField("stack_trace", string(debug.Stack())))
				err = fmt.Errorf("goroutine panic: %v", r)
			}
		}()
		return fn()
	})
}

// Wait blocks until every goroutine has returned and reports the first error
func (sg *SafeGroup) Wait() error {
	return sg.group.Wait()
}

// Observe runs fn while the monitor records artifacts under its root. The
// monitor stops as soon as fn returns; fn's error is the result.
func Observe(ctx context.Context, m *ArtifactMonitor, log logger.Logger, fn func(context.Context) error) error {
	monitorCtx, stop := context.WithCancel(ctx)
	defer stop()

	g, _ := NewSafeGroup(monitorCtx, log)
	g.Go(func() error {
		return m.Run(monitorCtx)
	})

	err := fn(ctx)
	stop()
	if werr := g.Wait(); err == nil && werr != nil {
		err = werr
	}

	artifacts := m.Artifacts()
	if len(artifacts) > 0 {
		log.Info(fmt.Sprintf("%d artifacts written", len(artifacts)),
			logger.WithField("total", utils.FormatBytes(m.TotalSize())))
	}
	return err
}

