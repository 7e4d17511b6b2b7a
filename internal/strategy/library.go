package strategy

// Default strategies, in match priority order.
var (
	Research = Strategy{
		ID:       "research",
		Label:    "Research sweep",
		Keywords: []string{"research", "investigate", "study", "survey", "explore", "benchmark", "competitor"},
		Actions: []string{
			"Define the key questions and information gaps",
			"Collect primary sources and reference data",
			"Synthesize findings into ranked insights",
			"Cross-check insights against an independent source",
		},
		Evaluation: "Findings answer the key questions with cited evidence",
		Focus:      "Evidence gathering",
	}

	Content = Strategy{
		ID:       "content",
		Label:    "Content production",
		Keywords: []string{"write", "blog", "article", "content", "post", "draft", "copy", "newsletter", "script"},
		Actions: []string{
			"Outline the narrative and key messages",
			"Draft the full piece against the outline",
			"Edit for clarity, tone and accuracy",
			"Package the piece for publication",
		},
		Evaluation: "Piece is complete, on-message and ready to publish",
		Focus:      "Narrative quality",
	}

	Execution = Strategy{
		ID:       "execution",
		Label:    "Execution push",
		Keywords: []string{"launch", "deploy", "ship", "release", "execute", "implement", "build", "roll out", "campaign"},
		Actions: []string{
			"Confirm readiness criteria and owners",
			"Stage the rollout in a controlled slice",
			"Execute the rollout and monitor signals",
			"Stabilize and hand over to steady state",
		},
		Evaluation: "Rollout is live and readiness signals are green",
		Focus:      "Delivery momentum",
	}

	Outreach = Strategy{
		ID:       "outreach",
		Label:    "Stakeholder outreach",
		Keywords: []string{"email", "outreach", "contact", "partner", "network", "pitch", "interview"},
		Actions: []string{
			"Identify the highest-value contacts",
			"Personalize the outreach message",
			"Send outreach and log responses",
			"Follow up and qualify interested contacts",
		},
		Evaluation: "Target contacts have responded or been qualified",
		Focus:      "Relationship building",
	}

	Analysis = Strategy{
		ID:       "analysis",
		Label:    "Analytical review",
		Keywords: []string{"analy", "measure", "metric", "report", "evaluate", "audit", "track"},
		Actions: []string{
			"Select the metrics that reflect the outcome",
			"Gather and clean the measurement data",
			"Compare results against the baseline",
			"Summarize conclusions and recommended adjustments",
		},
		Evaluation: "Metrics are explained and next adjustments are clear",
		Focus:      "Signal over noise",
	}

	Planning = Strategy{
		ID:       "planning",
		Label:    "Planning pass",
		Keywords: []string{"plan", "roadmap", "prioritize", "schedule", "organize", "strategy", "budget"},
		Actions: []string{
			"List candidate workstreams and constraints",
			"Prioritize workstreams by impact and effort",
			"Sequence milestones on a timeline",
			"Assign owners and checkpoints",
		},
		Evaluation: "A sequenced, owned plan exists for every workstream",
		Focus:      "Sequencing",
	}

	// General is the fallback. It has no keywords and only matches last.
	General = Strategy{
		ID:    "general",
		Label: "General progress",
		Actions: []string{
			"Clarify the expected outcome",
			"Break the outcome into the next concrete task",
			"Complete the task and record the result",
			"Review the result against the outcome",
		},
		Evaluation: "Outcome is visibly closer to done",
		Focus:      "Steady progress",
	}
)

var defaultLibrary = NewLibrary(General, Research, Content, Execution, Outreach, Analysis, Planning)

// DefaultLibrary returns the built-in library.
func DefaultLibrary() *Library {
	return defaultLibrary
}
