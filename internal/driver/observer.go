package driver

import (
	"context"

	"github.com/vinayprograms/pursuit/internal/controller"
)

// Observer is notified after every state change the scheduler makes.
// Errors are logged and never stop the run.
type Observer interface {
	Observe(ctx context.Context, prev, next controller.State) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, prev, next controller.State) error

// Observe calls f.
func (f ObserverFunc) Observe(ctx context.Context, prev, next controller.State) error {
	return f(ctx, prev, next)
}

// NewLogs returns the entries appended between prev and next. A new run id
// means next carries a fresh log.
func NewLogs(prev, next controller.State) []controller.LogEntry {
	if prev.RunID != next.RunID || len(next.Logs) < len(prev.Logs) {
		return next.Logs
	}
	return next.Logs[len(prev.Logs):]
}

// Finished reports whether the transition ended the run.
func Finished(prev, next controller.State) bool {
	return next.IsTerminal() && (!prev.IsTerminal() || prev.RunID != next.RunID)
}
