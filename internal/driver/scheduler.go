// Package driver steps a run on a timer and fans state changes out to
// observers. Scheduled and manual steps never overlap.
package driver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vinayprograms/agentkit/logging"

	"github.com/vinayprograms/pursuit/internal/config"
	"github.com/vinayprograms/pursuit/internal/controller"
)

// DefaultInterval is the tick period when none is configured.
const DefaultInterval = 750 * time.Millisecond

// Scheduler owns an Agent and serializes every operation on it.
type Scheduler struct {
	mu        sync.Mutex
	agent     *controller.Agent
	interval  time.Duration
	observers []Observer
	logger    *logging.Logger
}

// New creates a scheduler. A non-positive interval selects DefaultInterval.
func New(agent *controller.Agent, interval time.Duration, observers ...Observer) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		agent:     agent,
		interval:  interval,
		observers: observers,
		logger:    logging.New().WithComponent("driver"),
	}
}

// AddObserver registers o after the existing observers.
func (s *Scheduler) AddObserver(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// State returns a copy of the current run state.
func (s *Scheduler) State() controller.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.agent.State()
}

// Initialize starts a fresh run for goal.
func (s *Scheduler) Initialize(ctx context.Context, goal string) controller.State {
	return s.do(ctx, controller.Initialize{Goal: goal})
}

// Start launches a seeded idle run.
func (s *Scheduler) Start(ctx context.Context) controller.State {
	return s.do(ctx, controller.Start{})
}

// Pause pauses the run.
func (s *Scheduler) Pause(ctx context.Context) controller.State {
	return s.do(ctx, controller.Pause{})
}

// Resume resumes the run.
func (s *Scheduler) Resume(ctx context.Context) controller.State {
	return s.do(ctx, controller.Resume{})
}

// Reset discards the run, optionally seeding a new idle one.
func (s *Scheduler) Reset(ctx context.Context, goal string) controller.State {
	return s.do(ctx, controller.Reset{Goal: goal})
}

// UpdateConfig merges patch into the run configuration.
func (s *Scheduler) UpdateConfig(ctx context.Context, patch config.LoopPatch) controller.State {
	return s.do(ctx, controller.UpdateConfig{Patch: patch})
}

// Restore replaces the run with a saved state and notifies observers.
func (s *Scheduler) Restore(ctx context.Context, st controller.State) controller.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.agent.State()
	s.agent.Restore(st)
	next := s.agent.State()
	s.notify(ctx, prev, next)
	return next
}

// Manual performs one user-triggered step. It is allowed while paused.
func (s *Scheduler) Manual(ctx context.Context) controller.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step(ctx, controller.SourceManual)
}

// Tick performs one scheduled step if the run is running. The boolean
// reports whether a step was taken.
func (s *Scheduler) Tick(ctx context.Context) (controller.State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur := s.agent.State(); cur.Status != controller.StatusRunning {
		return cur, false
	}
	return s.step(ctx, controller.SourceScheduled), true
}

// Run ticks until the run reaches a terminal status or ctx is done. While
// the run is paused or idle ticks are skipped, so another goroutine can
// resume it.
func (s *Scheduler) Run(ctx context.Context) (controller.State, error) {
	st := s.State()
	ctx, span := startRunSpan(ctx, st)
	if st.IsTerminal() {
		endRunSpan(span, st, nil)
		return st, nil
	}

	s.logger.Info("scheduler started", map[string]interface{}{
		"run_id":   st.RunID,
		"interval": s.interval.String(),
		"status":   string(st.Status),
	})

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			st = s.State()
			err := fmt.Errorf("run %s interrupted at iteration %d: %w", st.RunID, st.Iteration, ctx.Err())
			endRunSpan(span, st, err)
			return st, err
		case <-ticker.C:
			st, _ = s.Tick(ctx)
			if st.IsTerminal() {
				s.logger.Info("scheduler finished", map[string]interface{}{
					"run_id":     st.RunID,
					"status":     string(st.Status),
					"reason":     st.Reason,
					"iterations": st.Iteration,
				})
				endRunSpan(span, st, nil)
				return st, nil
			}
		}
	}
}

// step must be called with s.mu held.
func (s *Scheduler) step(ctx context.Context, src controller.Source) controller.State {
	prev := s.agent.State()
	stepID := fmt.Sprintf("%s#%d", prev.RunID, prev.Iteration+1)
	start := time.Now()

	ctx, span := startStepSpan(ctx, src, prev)
	s.logger.PhaseStart("STEP", string(src), stepID)

	next := s.agent.Step(src)

	s.logger.PhaseComplete("STEP", string(src), stepID, time.Since(start), string(next.Status))
	endStepSpan(span, next)

	s.notify(ctx, prev, next)
	return next
}

func (s *Scheduler) do(ctx context.Context, ev controller.Event) controller.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.agent.State()
	next := s.agent.Dispatch(ev)
	s.notify(ctx, prev, next)
	return next
}

// notify must be called with s.mu held.
func (s *Scheduler) notify(ctx context.Context, prev, next controller.State) {
	for i, o := range s.observers {
		if err := o.Observe(ctx, prev, next); err != nil {
			s.logger.Warn("observer_failed", map[string]interface{}{
				"run_id":    next.RunID,
				"observer":  fmt.Sprintf("%d:%T", i, o),
				"iteration": next.Iteration,
				"error":     err.Error(),
			})
		}
	}
}
