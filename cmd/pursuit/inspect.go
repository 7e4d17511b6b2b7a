package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/vinayprograms/pursuit/internal/config"
	"github.com/vinayprograms/pursuit/internal/mission"
	"github.com/vinayprograms/pursuit/internal/setup"
	"github.com/vinayprograms/pursuit/internal/strategy"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	accentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
)

// Run prints the decomposition of a mission without running it.
func (c *PlanCmd) Run(g *Globals) error {
	cfg, err := loadConfig(g.Config)
	if err != nil {
		return err
	}

	goal := strings.Join(c.Mission, " ")
	allow := cfg.Loop.AllowAssumptions
	if c.File != "" {
		mf, err := mission.LoadFile(c.File)
		if err != nil {
			return err
		}
		if goal == "" {
			goal = mf.Goal
		}
		if mf.Loop.AllowAssumptions != nil {
			allow = *mf.Loop.AllowAssumptions
		}
	}
	if c.NoAssumptions {
		allow = false
	}
	return printPlan(os.Stdout, goal, allow, strategy.DefaultLibrary())
}

// printPlan writes the subgoals, assumptions and per-subgoal strategy that a
// run of goal would start with.
func printPlan(w io.Writer, goal string, allowAssumptions bool, lib *strategy.Library) error {
	normalized := mission.Normalize(goal)
	if normalized == "" {
		return fmt.Errorf("no mission given: pass it as arguments or with --mission")
	}

	n := 0
	subgoals := mission.Decompose(normalized, func() string {
		n++
		return fmt.Sprintf("sg-%d", n)
	}, time.Now())
	assumptions := mission.DeriveAssumptions(normalized)

	fmt.Fprintln(w, headingStyle.Render("Mission"))
	for _, line := range strings.Split(normalized, "\n") {
		fmt.Fprintf(w, "  %s\n", line)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, headingStyle.Render("Assumptions"))
	if len(assumptions) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("  (none)"))
	}
	for _, a := range assumptions {
		fmt.Fprintf(w, "  - %s\n", a)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, headingStyle.Render(fmt.Sprintf("Subgoals (%d)", len(subgoals))))
	for i, sg := range subgoals {
		plan := strategy.Synthesize(lib, sg, assumptions, allowAssumptions)
		fmt.Fprintf(w, "  %d. %s\n", i+1, sg.Description)
		fmt.Fprintf(w, "     %s %s\n", mutedStyle.Render("strategy:"), accentStyle.Render(plan.Label+" ("+plan.StrategyID+")"))
		fmt.Fprintf(w, "     %s %s\n", mutedStyle.Render("plan:    "), plan.Summary)
		fmt.Fprintf(w, "     %s %s\n", mutedStyle.Render("focus:   "), plan.Focus)
		fmt.Fprintf(w, "     %s %s\n", mutedStyle.Render("check:   "), plan.Evaluation)
		if plan.HasAssumption() {
			fmt.Fprintf(w, "     %s %s\n", mutedStyle.Render("assumes: "), plan.Assumption)
		}
	}
	return nil
}

// Run prints version information.
func (c *VersionCmd) Run() error {
	fmt.Printf("pursuit version %s (commit: %s, built: %s)\n", version, commit, buildTime)
	return nil
}

// Run launches the setup wizard, or writes the defaults with --defaults.
func (c *InitCmd) Run(g *Globals) error {
	path := g.Config
	if path == "" {
		path = config.DefaultFile
	}
	if c.Defaults || !isTerminal(os.Stdin) {
		if err := setup.WriteConfig(path, config.Default()); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", path)
		return nil
	}
	return setup.Run(path)
}
