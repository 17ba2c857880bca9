// Package notifier sends desktop notifications when a pipeline finishes
package notifier

import (
	"fmt"
	"time"

	"github.com/gen2brain/beeep"

	"github.com/uepipe/uepipe/pkg/logger"
	"github.com/uepipe/uepipe/pkg/types"
)

// PipelineNotifier reports pipeline results on the build machine desktop
type PipelineNotifier struct {
	enabled       bool
	beepOnSuccess bool
	beepOnFailure bool
	logger        logger.Logger

	notify func(title, message string) error
	beep   func() error
}

// New creates a notifier from configuration
func New(config types.NotificationConfig, log logger.Logger) *PipelineNotifier {
	return &PipelineNotifier{
		enabled:       config.Enabled,
		beepOnSuccess: config.BeepOnSuccess,
		beepOnFailure: config.BeepOnFailure,
		logger:        log,
		notify: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
		beep: func() error {
			return beeep.Beep(beeep.DefaultFreq, beeep.DefaultDuration)
		},
	}
}

// NotifyReport sends the success or failure notification for a finished run
func (n *PipelineNotifier) NotifyReport(report *types.RunReport) {
	if report.Succeeded {
		n.NotifyPipelineSuccess(report.Pipeline, report.FinishedAt.Sub(report.StartedAt))
		return
	}

	reason := "unknown error"
	if failed := report.FailedStep(); failed != nil {
		reason = fmt.Sprintf("%s: %s", failed.Name, failed.Error)
	}
	n.NotifyPipelineFailure(report.Pipeline, reason)
}

// NotifyPipelineSuccess notifies that every step succeeded
func (n *PipelineNotifier) NotifyPipelineSuccess(pipeline string, duration time.Duration) {
	if !n.enabled {
		return
	}

	title := "✅ Pipeline Succeeded"
	message := fmt.Sprintf("%s finished in %s", pipeline, formatDuration(duration))

	n.send(title, message, n.beepOnSuccess)
}

// NotifyPipelineFailure notifies that the run was aborted
func (n *PipelineNotifier) NotifyPipelineFailure(pipeline string, reason string) {
	if !n.enabled {
		return
	}

	title := "❌ Pipeline Failed"
	message := fmt.Sprintf("%s: %s", pipeline, reason)

	n.send(title, message, n.beepOnFailure)
}

func (n *PipelineNotifier) send(title, message string, beep bool) {
	if err := n.notify(title, message); err != nil {
		// headless runners have no notification daemon
		n.logger.Debug("Failed to send notification", logger.WithField("error", err))
	}

	if beep {
		if err := n.beep(); err != nil {
			n.logger.Debug("Failed to play sound", logger.WithField("error", err))
		}
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
