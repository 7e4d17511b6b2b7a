package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/vinayprograms/pursuit/internal/config"
	"github.com/vinayprograms/pursuit/internal/controller"
	"github.com/vinayprograms/pursuit/internal/driver"
	"github.com/vinayprograms/pursuit/internal/mission"
)

// launch is a resolved run request.
type launch struct {
	Goal string
	Loop config.Loop
	Seed uint64
}

// resolveLaunch applies flags over the mission file over the config file.
func (c *RunCmd) resolveLaunch(cfg *config.Config) (launch, error) {
	l := launch{Loop: cfg.RunLoop(), Seed: cfg.Loop.Seed}

	if c.File != "" {
		mf, err := mission.LoadFile(c.File)
		if err != nil {
			return l, err
		}
		l.Goal = mf.Goal
		l.Loop = l.Loop.Merge(mf.Loop)
		if mf.Seed != 0 {
			l.Seed = mf.Seed
		}
	}
	if len(c.Mission) > 0 {
		l.Goal = strings.Join(c.Mission, " ")
	}
	if mission.Normalize(l.Goal) == "" {
		return l, fmt.Errorf("no mission given: pass it as arguments or with --mission")
	}

	l.Loop = l.Loop.Merge(c.patch())
	if c.Seed != 0 {
		l.Seed = c.Seed
	}
	return l, l.Loop.Validate()
}

func (c *RunCmd) patch() config.LoopPatch {
	var p config.LoopPatch
	if c.MaxIterations != 0 {
		p.MaxIterations = &c.MaxIterations
	}
	if c.MaxIdle >= 0 {
		p.MaxIdleIterations = &c.MaxIdle
	}
	if c.NoAssumptions {
		off := false
		p.AllowAssumptions = &off
	}
	return p
}

// Run starts a new run and drives it to a terminal state.
func (c *RunCmd) Run(g *Globals) error {
	cfg, err := loadConfig(g.Config)
	if err != nil {
		return err
	}
	l, err := c.resolveLaunch(cfg)
	if err != nil {
		return err
	}
	every, err := interval(cfg, c.Interval)
	if err != nil {
		return err
	}

	rt, err := openRuntime(cfg, os.Stdout, c.Verbose)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	agent := controller.NewAgent(l.Loop, controller.DefaultEnv(l.Seed))
	sched := rt.scheduler(agent, every)

	st := sched.Initialize(ctx, l.Goal)
	if c.Manual {
		// Scan blocks on stdin, so let Ctrl-C terminate the process. Every
		// step is already checkpointed.
		stop()
		sched.Pause(ctx)
		st, err = stepInteractively(ctx, sched, os.Stdin, os.Stderr)
	} else {
		st, err = sched.Run(ctx)
	}

	printOutcome(os.Stdout, st)
	if errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "interrupted; continue with: pursuit continue %s\n", st.RunID)
	}
	return err
}

// stepInteractively performs one manual step per line read from in until the
// run ends, in is exhausted or the user types q.
func stepInteractively(ctx context.Context, sched *driver.Scheduler, in io.Reader, prompt io.Writer) (controller.State, error) {
	st := sched.State()
	scanner := bufio.NewScanner(in)
	for !st.IsTerminal() {
		fmt.Fprint(prompt, "[enter] step, [q] quit > ")
		if !scanner.Scan() {
			return st, scanner.Err()
		}
		if strings.TrimSpace(scanner.Text()) == "q" {
			return st, nil
		}
		if err := ctx.Err(); err != nil {
			return st, err
		}
		st = sched.Manual(ctx)
	}
	return st, nil
}
