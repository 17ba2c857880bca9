// Package pipeline runs ordered build steps and records their outcome
package pipeline

import (
	"context"
	"fmt"
	"time"

	pcontext "github.com/uepipe/uepipe/pkg/context"
	"github.com/uepipe/uepipe/pkg/logger"
	"github.com/uepipe/uepipe/pkg/notifier"
	"github.com/uepipe/uepipe/pkg/state"
	"github.com/uepipe/uepipe/pkg/types"
)

// Step is one named unit of work
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// Pipeline executes its steps strictly in order. The first failing step
// aborts the run; later steps are recorded as skipped and never invoked.
// Nothing is rolled back.
type Pipeline struct {
	name     string
	steps    []Step
	logger   logger.Logger
	store    *state.ReportStore
	notifier *notifier.PipelineNotifier
	now      func() time.Time
}

// New creates an empty pipeline
func New(name string, log logger.Logger) *Pipeline {
	return &Pipeline{
		name:   name,
		logger: log,
		now:    time.Now,
	}
}

// Name returns the pipeline name
func (p *Pipeline) Name() string {
	return p.name
}

// Add appends a step
func (p *Pipeline) Add(name string, run func(ctx context.Context) error) *Pipeline {
	p.steps = append(p.steps, Step{Name: name, Run: run})
	return p
}

// Steps returns the step list in execution order
func (p *Pipeline) Steps() []Step {
	return p.steps
}

// StepNames returns the names of all steps in execution order
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, s := range p.steps {
		names[i] = s.Name
	}
	return names
}

// WithReportStore persists the run report after every run
func (p *Pipeline) WithReportStore(store *state.ReportStore) *Pipeline {
	p.store = store
	return p
}

// WithNotifier sends a desktop notification after every run
func (p *Pipeline) WithNotifier(n *notifier.PipelineNotifier) *Pipeline {
	p.notifier = n
	return p
}

// Run executes the steps. The returned report is complete even when an
// error is returned.
func (p *Pipeline) Run(ctx context.Context) (*types.RunReport, error) {
	ctx = pcontext.EnrichContext(ctx, p.name)
	log := logger.WithContext(ctx, p.logger)

	report := &types.RunReport{
		RunID:     pcontext.GetRunID(ctx),
		Pipeline:  p.name,
		StartedAt: p.now(),
		Steps:     make([]types.StepResult, len(p.steps)),
	}
	for i, s := range p.steps {
		report.Steps[i] = types.StepResult{Name: s.Name, Status: types.StepStatusPending}
	}

	log.Info(fmt.Sprintf("Starting %s with %d steps", p.name, len(p.steps)))

	var runErr error
	for i, s := range p.steps {
		result := &report.Steps[i]
		if runErr != nil {
			result.Status = types.StepStatusSkipped
			continue
		}
		runErr = p.runStep(ctx, s, result)
	}

	report.FinishedAt = p.now()
	report.Succeeded = runErr == nil
	p.finish(log, report)

	return report, runErr
}

func (p *Pipeline) runStep(ctx context.Context, s Step, result *types.StepResult) error {
	stepCtx := pcontext.WithStartTime(pcontext.WithStep(ctx, s.Name), p.now())
	log := logger.WithContext(stepCtx, p.logger.WithStep(s.Name))

	start := p.now()
	result.Status = types.StepStatusRunning
	log.Info("Step started")

	err := ctx.Err()
	if err == nil {
		err = s.Run(stepCtx)
	}
	result.Duration = p.now().Sub(start)

	if err != nil {
		result.Status = types.StepStatusFailed
		result.Error = err.Error()
		log.Error("Step failed", logger.WithField("error", err))
		return fmt.Errorf("step %s: %w", s.Name, err)
	}

	result.Status = types.StepStatusSucceeded
	log.Success("Step finished", logger.WithField("duration", result.Duration.Round(time.Millisecond)))
	return nil
}

func (p *Pipeline) finish(log logger.Logger, report *types.RunReport) {
	duration := report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond)
	if report.Succeeded {
		log.Success(fmt.Sprintf("%s finished", p.name), logger.WithField("duration", duration))
	} else if failed := report.FailedStep(); failed != nil {
		log.Error(fmt.Sprintf("%s aborted at %s", p.name, failed.Name), logger.WithField("duration", duration))
	}

	if p.store != nil {
		if err := p.store.Save(report); err != nil {
			log.Warn("Failed to save run report", logger.WithField("error", err))
		}
	}
	if p.notifier != nil {
		p.notifier.NotifyReport(report)
	}
}
