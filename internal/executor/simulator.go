// Package executor simulates one attempt at a subgoal. There is no real work
// behind an attempt: progress is drawn from an injected random source.
package executor

import (
	"fmt"
	"math"
	"time"

	"github.com/vinayprograms/pursuit/internal/config"
	"github.com/vinayprograms/pursuit/internal/mission"
	"github.com/vinayprograms/pursuit/internal/strategy"
)

// Simulation constants.
const (
	// NoiseFloor is the minimum gain an attempt must show to count as progress.
	NoiseFloor = 0.05
	// CompletionThreshold is the progress at which a subgoal is completed.
	CompletionThreshold = 0.999

	minMomentum   = 0.15
	baseMomentum  = 0.35
	momentumDecay = 0.25
	factorMin     = 0.2
	factorSpan    = 0.5 // factor in [0.2, 0.7)
)

// NoteValidated replaces a subgoal's notes when it completes.
const NoteValidated = "Validated against the evaluation criterion; no further work required."

const fallbackAction = "Advance the subgoal"

// Outcome is the result of one simulated attempt.
type Outcome struct {
	Subgoal      mission.Subgoal
	Action       string
	Observation  string
	Evaluation   string
	Decision     string
	Delta        float64 // accepted progress gain, rounded to 3 decimals
	MadeProgress bool
	// Escalated means the subgoal was blocked for idling and the run must stop.
	Escalated bool
}

// Simulator runs attempts. It is safe to share as long as its Source is.
type Simulator struct {
	rand Source
}

// New creates a simulator drawing from src.
func New(src Source) *Simulator {
	return &Simulator{rand: src}
}

// Attempt simulates one attempt at sg using plan. The input subgoal is not
// modified; the updated copy is returned in the outcome.
func (s *Simulator) Attempt(sg mission.Subgoal, plan strategy.Plan, cfg config.Loop, now time.Time) Outcome {
	next := sg
	next.Attempts = sg.Attempts + 1
	next.LastUpdated = now

	action := fallbackAction
	if len(plan.Actions) > 0 {
		action = plan.Actions[(next.Attempts-1)%len(plan.Actions)]
	}

	momentum := math.Max(minMomentum, baseMomentum-sg.Progress*momentumDecay)
	factor := factorMin + factorSpan*s.rand.Float64()
	rawDelta := round3(momentum * factor)
	tentative := math.Min(1, sg.Progress+rawDelta)
	madeProgress := tentative > sg.Progress+NoiseFloor

	out := Outcome{
		Action:       fmt.Sprintf("Attempt %d on %q: %s.", next.Attempts, sg.Description, action),
		MadeProgress: madeProgress,
	}

	if madeProgress {
		next.Progress = tentative
		next.IdleCounter = 0
		if next.Progress >= CompletionThreshold {
			next.Status = mission.StatusCompleted
		} else {
			next.Status = mission.StatusActive
		}
		out.Observation = fmt.Sprintf("Progress moved from %s to %s (+%.3f).", percent(sg.Progress), percent(next.Progress), next.Progress-sg.Progress)
	} else {
		next.IdleCounter = sg.IdleCounter + 1
		out.Observation = fmt.Sprintf("Simulated gain of %.3f stayed under the %.2f noise floor; progress holds at %s.", rawDelta, NoiseFloor, percent(sg.Progress))
	}

	switch {
	case next.Status == mission.StatusCompleted:
		out.Evaluation = fmt.Sprintf("Criterion met: %s.", plan.Evaluation)
		out.Decision = "Subgoal complete; move on to the next subgoal."
	case madeProgress:
		out.Evaluation = fmt.Sprintf("Partially met at %s: %s.", percent(next.Progress), plan.Evaluation)
		out.Decision = fmt.Sprintf("Keep momentum; next action: %s.", nextAction(plan, next.Attempts))
	default:
		out.Evaluation = fmt.Sprintf("Not yet met: %s.", plan.Evaluation)
		out.Decision = fmt.Sprintf("Stalled loop (%d/%d idle attempts); rotate to: %s.", next.IdleCounter, cfg.MaxIdleIterations, nextAction(plan, next.Attempts))
	}

	if next.IdleCounter > cfg.MaxIdleIterations && next.Status != mission.StatusCompleted {
		next.Status = mission.StatusBlocked
		out.Observation = fmt.Sprintf("No measurable progress after %d consecutive attempts.", next.IdleCounter)
		out.Evaluation = fmt.Sprintf("Escalation threshold exceeded (%d > %d idle attempts).", next.IdleCounter, cfg.MaxIdleIterations)
		out.Decision = "Escalating: subgoal blocked, stopping the run for review."
		out.Escalated = true
	}

	if next.Status == mission.StatusCompleted {
		next.Notes = NoteValidated
	} else {
		next.Notes = plan.Focus
	}

	out.Subgoal = next
	out.Delta = round3(next.Progress - sg.Progress)
	return out
}

func nextAction(plan strategy.Plan, attempts int) string {
	if len(plan.Actions) == 0 {
		return fallbackAction
	}
	return plan.Actions[attempts%len(plan.Actions)]
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func percent(p float64) string {
	return fmt.Sprintf("%.0f%%", p*100)
}
