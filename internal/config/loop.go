package config

import "fmt"

// Loop is the run configuration read by the controller on every step.
// It can change at any time, independently of run status.
type Loop struct {
	MaxIterations     int  `json:"max_iterations" yaml:"max_iterations"`
	AllowAssumptions  bool `json:"allow_assumptions" yaml:"allow_assumptions"`
	MaxIdleIterations int  `json:"max_idle_iterations" yaml:"max_idle_iterations"`
}

// LoopPatch is a partial Loop. Nil fields are left untouched by Merge.
type LoopPatch struct {
	MaxIterations     *int  `json:"max_iterations,omitempty" yaml:"max_iterations,omitempty"`
	AllowAssumptions  *bool `json:"allow_assumptions,omitempty" yaml:"allow_assumptions,omitempty"`
	MaxIdleIterations *int  `json:"max_idle_iterations,omitempty" yaml:"max_idle_iterations,omitempty"`
}

// DefaultLoop returns the default run configuration.
func DefaultLoop() Loop {
	return Loop{
		MaxIterations:     20,
		AllowAssumptions:  true,
		MaxIdleIterations: 3,
	}
}

// Merge returns l with every non-nil field of p applied.
func (l Loop) Merge(p LoopPatch) Loop {
	if p.MaxIterations != nil {
		l.MaxIterations = *p.MaxIterations
	}
	if p.AllowAssumptions != nil {
		l.AllowAssumptions = *p.AllowAssumptions
	}
	if p.MaxIdleIterations != nil {
		l.MaxIdleIterations = *p.MaxIdleIterations
	}
	return l
}

// Validate checks value ranges.
func (l Loop) Validate() error {
	if l.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be >= 1, got %d", l.MaxIterations)
	}
	if l.MaxIdleIterations < 0 {
		return fmt.Errorf("max_idle_iterations must be >= 0, got %d", l.MaxIdleIterations)
	}
	return nil
}

// IsEmpty reports whether the patch changes nothing.
func (p LoopPatch) IsEmpty() bool {
	return p.MaxIterations == nil && p.AllowAssumptions == nil && p.MaxIdleIterations == nil
}

// Then returns a patch where fields set in next override fields set in p.
func (p LoopPatch) Then(next LoopPatch) LoopPatch {
	if next.MaxIterations != nil {
		p.MaxIterations = next.MaxIterations
	}
	if next.AllowAssumptions != nil {
		p.AllowAssumptions = next.AllowAssumptions
	}
	if next.MaxIdleIterations != nil {
		p.MaxIdleIterations = next.MaxIdleIterations
	}
	return p
}
