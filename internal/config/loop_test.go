package config

import "testing"

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func TestLoop_Merge(t *testing.T) {
	base := DefaultLoop()

	got := base.Merge(LoopPatch{MaxIterations: intPtr(4)})
	if got.MaxIterations != 4 {
		t.Errorf("expected 4, got %d", got.MaxIterations)
	}
	if got.AllowAssumptions != base.AllowAssumptions || got.MaxIdleIterations != base.MaxIdleIterations {
		t.Errorf("untouched fields changed: %+v", got)
	}

	got = base.Merge(LoopPatch{AllowAssumptions: boolPtr(false), MaxIdleIterations: intPtr(0)})
	if got.AllowAssumptions {
		t.Error("expected allow_assumptions false")
	}
	if got.MaxIdleIterations != 0 {
		t.Errorf("expected 0, got %d", got.MaxIdleIterations)
	}

	if base.Merge(LoopPatch{}) != base {
		t.Error("empty patch should be identity")
	}
}

func TestLoopPatch_Then(t *testing.T) {
	first := LoopPatch{MaxIterations: intPtr(3), AllowAssumptions: boolPtr(true)}
	second := LoopPatch{MaxIterations: intPtr(9)}

	p := first.Then(second)
	if *p.MaxIterations != 9 {
		t.Errorf("expected later patch to win, got %d", *p.MaxIterations)
	}
	if p.AllowAssumptions == nil || !*p.AllowAssumptions {
		t.Error("expected earlier field to survive")
	}
	if p.IsEmpty() {
		t.Error("patch should not be empty")
	}
	if !(LoopPatch{}).IsEmpty() {
		t.Error("zero patch should be empty")
	}
}

func TestLoop_Validate(t *testing.T) {
	if err := DefaultLoop().Validate(); err != nil {
		t.Errorf("default loop invalid: %v", err)
	}
	if err := (Loop{MaxIterations: 0}).Validate(); err == nil {
		t.Error("expected error for zero iterations")
	}
	if err := (Loop{MaxIterations: 1, MaxIdleIterations: -2}).Validate(); err == nil {
		t.Error("expected error for negative idle iterations")
	}
}
