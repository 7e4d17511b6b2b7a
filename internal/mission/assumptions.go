package mission

import (
	"regexp"
	"strings"
)

// Assumption texts. Exported so callers and tests can recognise them.
const (
	AssumptionTarget   = "Target is not quantified: assuming a 10-20% improvement over the current baseline counts as success."
	AssumptionAudience = "Audience is not segmented: assuming the primary audience is the existing core user base."
	AssumptionTimeline = "No deadline given: assuming a standard four-week delivery window."
	AssumptionAdaptive = "Goal is well specified: operating with an adaptive plan that is refined as progress data arrives."
)

// assumptionCheck fires when trigger matches and coveredBy does not.
type assumptionCheck struct {
	trigger    *regexp.Regexp
	coveredBy  *regexp.Regexp
	assumption string
}

// assumptionChecks run in this order. Compiled once.
var assumptionChecks = []assumptionCheck{
	{
		trigger:    regexp.MustCompile(`increase|grow|improve|boost`),
		coveredBy:  regexp.MustCompile(`by \d+|percent|%`),
		assumption: AssumptionTarget,
	},
	{
		trigger:    regexp.MustCompile(`customer|user|client`),
		coveredBy:  regexp.MustCompile(`segment|persona`),
		assumption: AssumptionAudience,
	},
	{
		trigger:    regexp.MustCompile(`launch|deploy|deliver`),
		coveredBy:  regexp.MustCompile(`deadline|date|timeline`),
		assumption: AssumptionTimeline,
	},
}

// DeriveAssumptions returns the operating assumptions for an under-specified
// goal. When no specific check fires, the single adaptive-plan assumption is
// returned instead. Empty input yields nothing.
func DeriveAssumptions(normalized string) []string {
	text := strings.ToLower(strings.TrimSpace(normalized))
	if text == "" {
		return nil
	}

	var out []string
	for _, check := range assumptionChecks {
		if check.trigger.MatchString(text) && !check.coveredBy.MatchString(text) {
			out = append(out, check.assumption)
		}
	}
	if len(out) == 0 {
		out = append(out, AssumptionAdaptive)
	}
	return out
}
