package notify

import (
	"fmt"

	"github.com/repopilot/repo-pilot/internal/domain"
)

// NotificationType represents the type of notification
type NotificationType int

const (
	NotifyInfo NotificationType = iota
	NotifySuccess
	NotifyWarning
	NotifyError
)

// Notification represents a notification to be sent
type Notification struct {
	Title   string
	Message string
	Type    NotificationType
	RunID   string // Optional run reference
	PRURL   string // Optional PR URL
}

// Notifier is the interface for sending notifications
type Notifier interface {
	Send(n Notification) error
}

// MultiNotifier sends to multiple notifiers
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier creates a notifier that sends to all provided notifiers
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

// Send sends the notification to all notifiers
func (m *MultiNotifier) Send(n Notification) error {
	var lastErr error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(n); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// NoopNotifier does nothing (for testing or disabled notifications)
type NoopNotifier struct{}

func (NoopNotifier) Send(n Notification) error { return nil }

// ForRun builds the completion notification for a finished pipeline run
func ForRun(run *domain.PipelineRun) Notification {
	n := Notification{RunID: run.RunID}
	switch run.Status {
	case domain.RunCompleted:
		n.Type = NotifySuccess
		n.Title = fmt.Sprintf("Pipeline %s completed", run.RunID)
	default:
		n.Type = NotifyError
		n.Title = fmt.Sprintf("Pipeline %s failed", run.RunID)
		n.Message = run.Error
	}

	if run.Review != nil {
		score := fmt.Sprintf("Review score %.1f/10", run.Review.OverallScore)
		if n.Message != "" {
			n.Message += ", " + score
		} else {
			n.Message = score
		}
	}
	if run.MergeResult != nil {
		if n.Message != "" {
			n.Message += ", "
		}
		n.Message += fmt.Sprintf("merge %s", run.MergeResult.Status)
		n.PRURL = run.MergeResult.URL
		if run.MergeResult.Status == domain.MergeBlocked {
			n.Type = NotifyWarning
		}
	}
	return n
}
