package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vinayprograms/pursuit/internal/checkpoint"
	"github.com/vinayprograms/pursuit/internal/config"
	"github.com/vinayprograms/pursuit/internal/controller"
	"github.com/vinayprograms/pursuit/internal/driver"
)

// restored is a scheduler holding a run loaded from its latest checkpoint.
type restored struct {
	rt    *runtime
	sched *driver.Scheduler
	state controller.State
}

// restore loads runID and wires a scheduler around it. Observers are attached
// after the restore so they only see what happens from here on. The random
// seed is not part of the run state, so a fixed seed is advanced by the
// restored iteration to keep successive step processes from replaying draws.
func restore(ctx context.Context, cfg *config.Config, runID string, verbosity int, every time.Duration) (*restored, error) {
	rt, err := openRuntime(cfg, os.Stdout, verbosity)
	if err != nil {
		return nil, err
	}

	st, err := rt.latest(runID)
	if err != nil {
		rt.Close()
		if errors.Is(err, checkpoint.ErrNoCheckpoint) {
			return nil, fmt.Errorf("unknown run %s: %w", runID, err)
		}
		return nil, err
	}

	agent := controller.NewAgent(st.Config, controller.DefaultEnv(restoreSeed(cfg.Loop.Seed, st.Iteration)))
	sched := driver.New(agent, every)
	st = sched.Restore(ctx, st)
	for _, o := range rt.observers() {
		sched.AddObserver(o)
	}
	return &restored{rt: rt, sched: sched, state: st}, nil
}

// restoreSeed derives the seed for a run resumed at iteration. Zero stays zero
// so the clock is used. Iteration 0 keeps the configured seed.
func restoreSeed(seed uint64, iteration int) uint64 {
	if seed == 0 {
		return 0
	}
	derived := seed + uint64(iteration)*0x9e3779b97f4a7c15
	if derived == 0 {
		return seed
	}
	return derived
}

// Run performs Count manual steps.
func (c *StepCmd) Run(g *Globals) error {
	if c.Count < 1 {
		return fmt.Errorf("--count must be >= 1, got %d", c.Count)
	}
	cfg, err := loadConfig(g.Config)
	if err != nil {
		return err
	}
	ctx := context.Background()
	r, err := restore(ctx, cfg, c.RunID, 0, 0)
	if err != nil {
		return err
	}
	defer r.rt.Close()

	st := r.state
	for i := 0; i < c.Count && !st.IsTerminal(); i++ {
		st = r.sched.Manual(ctx)
	}
	printOutcome(os.Stdout, st)
	return nil
}

// Run pauses the run.
func (c *PauseCmd) Run(g *Globals) error {
	return toggle(g, c.RunID, func(ctx context.Context, s *driver.Scheduler) controller.State {
		return s.Pause(ctx)
	})
}

// Run resumes the run. Use continue to keep driving it.
func (c *ResumeCmd) Run(g *Globals) error {
	return toggle(g, c.RunID, func(ctx context.Context, s *driver.Scheduler) controller.State {
		return s.Resume(ctx)
	})
}

func toggle(g *Globals, runID string, apply func(context.Context, *driver.Scheduler) controller.State) error {
	cfg, err := loadConfig(g.Config)
	if err != nil {
		return err
	}
	ctx := context.Background()
	r, err := restore(ctx, cfg, runID, 0, 0)
	if err != nil {
		return err
	}
	defer r.rt.Close()

	st := apply(ctx, r.sched)
	fmt.Printf("run %s: %s\n", st.RunID, st.Status)
	return nil
}

// Run restores the run, resumes it if paused and drives it to the end.
func (c *ContinueCmd) Run(g *Globals) error {
	cfg, err := loadConfig(g.Config)
	if err != nil {
		return err
	}
	every, err := interval(cfg, c.Interval)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := restore(ctx, cfg, c.RunID, c.Verbose, every)
	if err != nil {
		return err
	}
	defer r.rt.Close()

	if r.state.IsTerminal() {
		printOutcome(os.Stdout, r.state)
		return nil
	}
	switch r.state.Status {
	case controller.StatusPaused:
		r.sched.Resume(ctx)
	case controller.StatusIdle:
		r.sched.Start(ctx)
	}

	st, err := r.sched.Run(ctx)
	printOutcome(os.Stdout, st)
	return err
}
