package strategy

import (
	"fmt"
	"strings"

	"github.com/vinayprograms/pursuit/internal/mission"
)

// summaryActions is how many actions the plan summary lists.
const summaryActions = 3

// Plan is a strategy instantiated for one subgoal. It lives for one step.
type Plan struct {
	StrategyID string   `json:"strategy_id"`
	Label      string   `json:"label"`
	Summary    string   `json:"summary"`
	Actions    []string `json:"actions"`
	Focus      string   `json:"focus"`
	Evaluation string   `json:"evaluation"`
	Assumption string   `json:"assumption,omitempty"` // empty when none is surfaced
}

// HasAssumption reports whether the plan surfaces an operating assumption.
func (p Plan) HasAssumption() bool {
	return p.Assumption != ""
}

// Synthesize builds the plan for a subgoal. The first assumption is surfaced
// only when assumptions are allowed and at least one exists.
func Synthesize(lib *Library, sg mission.Subgoal, assumptions []string, allowAssumptions bool) Plan {
	s := lib.Select(sg.Description)

	plan := Plan{
		StrategyID: s.ID,
		Label:      s.Label,
		Summary:    summarize(s),
		Actions:    append([]string(nil), s.Actions...),
		Focus:      s.Focus,
		Evaluation: s.Evaluation,
	}
	if allowAssumptions && len(assumptions) > 0 {
		plan.Assumption = assumptions[0]
	}
	return plan
}

func summarize(s Strategy) string {
	n := len(s.Actions)
	if n > summaryActions {
		n = summaryActions
	}
	steps := make([]string, 0, n)
	for i := 0; i < n; i++ {
		steps = append(steps, fmt.Sprintf("%d) %s", i+1, s.Actions[i]))
	}
	if len(steps) == 0 {
		return s.Label
	}
	return fmt.Sprintf("%s: %s", s.Label, strings.Join(steps, "; "))
}
