package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vinayprograms/pursuit/internal/controller"
	"github.com/vinayprograms/pursuit/internal/driver"
)

// Recorder keeps the transcript of the current run up to date. It is a
// driver.Observer.
type Recorder struct {
	mgr  *Manager
	mu   sync.Mutex
	sess *Session
}

// NewRecorder creates a recorder writing through mgr.
func NewRecorder(mgr *Manager) *Recorder {
	return &Recorder{mgr: mgr}
}

// Current returns the transcript being written, or nil.
func (r *Recorder) Current() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sess
}

// Observe implements driver.Observer.
func (r *Recorder) Observe(_ context.Context, prev, next controller.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if next.RunID == "" {
		return nil
	}

	if r.sess == nil || r.sess.ID != next.RunID {
		existing, err := r.mgr.Get(next.RunID)
		switch {
		case err == nil:
			r.sess = existing
			prev = resumedFrom(existing, next)
		case errors.Is(err, ErrNotFound):
			sess, cerr := r.mgr.Create(next)
			if cerr != nil {
				return fmt.Errorf("failed to record run %s: %w", next.RunID, cerr)
			}
			r.sess = sess
			return nil
		default:
			return fmt.Errorf("failed to load transcript for run %s: %w", next.RunID, err)
		}
	}

	r.sess.AddLogs(driver.NewLogs(prev, next))
	if prev.Status != next.Status {
		r.sess.AddEvent(Event{
			Type:      EventStatus,
			Iteration: next.Iteration,
			Content:   fmt.Sprintf("%s -> %s", prev.Status, next.Status),
		})
	}
	r.sess.Sync(next)
	return r.mgr.Update(r.sess)
}

// resumedFrom stands in for the previous state when a restored run is
// attached to its existing transcript, so only unseen entries are appended.
func resumedFrom(sess *Session, next controller.State) controller.State {
	n := 0
	for _, e := range sess.Events {
		if e.IsLog() {
			n++
		}
	}
	return controller.State{
		RunID:  next.RunID,
		Status: controller.Status(sess.Status),
		Logs:   next.Logs[:min(n, len(next.Logs))],
	}
}
