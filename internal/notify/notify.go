// Package notify delivers operator notifications for dispatch outcomes:
// rejected dispatches, degraded resolutions, creation failures.
package notify

import (
	"context"
	"log"
)

// Event severities.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Event is a single operator notification.
type Event struct {
	Title    string
	Body     string
	Severity string // info, warning, error
	Fields   []Field
}

// Field is a key-value pair attached to an event.
type Field struct {
	Name  string
	Value string
}

// Notifier delivers events to a notification channel.
type Notifier interface {
	Notify(ctx context.Context, evt Event) error
}

// LogNotifier writes events to the process log. It is the default when no
// chat notifier is configured.
type LogNotifier struct{}

// Notify implements Notifier.
func (LogNotifier) Notify(_ context.Context, evt Event) error {
	log.Printf("notify: [%s] %s: %s", evt.Severity, evt.Title, evt.Body)
	return nil
}

// Multi fans an event out to several notifiers. Delivery is best-effort:
// individual failures are logged, never propagated.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, evt Event) error {
	for _, n := range m {
		if err := n.Notify(ctx, evt); err != nil {
			log.Printf("notify: deliver %q: %v", evt.Title, err)
		}
	}
	return nil
}
