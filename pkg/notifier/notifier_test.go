package notifier

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/uepipe/uepipe/pkg/logger"
	"github.com/uepipe/uepipe/pkg/types"
)

type recorder struct {
	titles   []string
	messages []string
	beeps    int
}

func newTestNotifier(cfg types.NotificationConfig) (*PipelineNotifier, *recorder) {
	rec := &recorder{}
	n := New(cfg, logger.Discard())
	n.notify = func(title, message string) error {
		rec.titles = append(rec.titles, title)
		rec.messages = append(rec.messages, message)
		return nil
	}
	n.beep = func() error {
		rec.beeps++
		return nil
	}
	return n, rec
}

func TestNotifyReport(t *testing.T) {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		config  types.NotificationConfig
		report  types.RunReport
		title   string
		message string
		beeps   int
	}{
		{
			name:   "success",
			config: types.NotificationConfig{Enabled: true, BeepOnFailure: true},
			report: types.RunReport{
				Pipeline:   "build-demo",
				StartedAt:  start,
				FinishedAt: start.Add(90 * time.Second),
				Succeeded:  true,
			},
			title:   "✅ Pipeline Succeeded",
			message: "build-demo finished in 1m30s",
			beeps:   0,
		},
		{
			name:   "failure",
			config: types.NotificationConfig{Enabled: true, BeepOnFailure: true},
			report: types.RunReport{
				Pipeline: "ci",
				Steps: []types.StepResult{
					{Name: "clone-plugin", Status: types.StepStatusSucceeded},
					{Name: "package", Status: types.StepStatusFailed, Error: "AutomationTool exited with code 1"},
					{Name: "inspect", Status: types.StepStatusSkipped},
				},
			},
			title:   "❌ Pipeline Failed",
			message: "ci: package: AutomationTool exited with code 1",
			beeps:   1,
		},
		{
			name:   "success with beep",
			config: types.NotificationConfig{Enabled: true, BeepOnSuccess: true},
			report: types.RunReport{
				Pipeline:   "ci",
				StartedAt:  start,
				FinishedAt: start.Add(2 * time.Hour),
				Succeeded:  true,
			},
			title:   "✅ Pipeline Succeeded",
			message: "ci finished in 2h0m",
			beeps:   1,
		},
		{
			name:   "failure without beep",
			config: types.NotificationConfig{Enabled: true, BeepOnSuccess: true},
			report: types.RunReport{
				Pipeline: "ci",
				Steps:    []types.StepResult{{Name: "package", Status: types.StepStatusFailed, Error: "boom"}},
			},
			title:   "❌ Pipeline Failed",
			message: "ci: package: boom",
			beeps:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, rec := newTestNotifier(tt.config)
			n.NotifyReport(&tt.report)

			assert.Equal(t, []string{tt.title}, rec.titles)
			assert.Equal(t, []string{tt.message}, rec.messages)
			assert.Equal(t, tt.beeps, rec.beeps)
		})
	}
}

func TestNotifier_Disabled(t *testing.T) {
	n, rec := newTestNotifier(types.NotificationConfig{Enabled: false, BeepOnSuccess: true, BeepOnFailure: true})
	n.NotifyPipelineSuccess("build-demo", time.Second)
	n.NotifyPipelineFailure("build-demo", "boom")
	assert.Empty(t, rec.titles)
	assert.Zero(t, rec.beeps)
}

func TestNotifier_SendErrorIsIgnored(t *testing.T) {
	n := New(types.NotificationConfig{Enabled: true}, logger.Discard())
	n.notify = func(string, string) error { return errors.New("no dbus") }
	n.NotifyPipelineFailure("ci", "boom")
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{1500 * time.Millisecond, "1.5s"},
		{125 * time.Second, "2m5s"},
		{2*time.Hour + 5*time.Minute, "2h5m"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.d))
	}
}
