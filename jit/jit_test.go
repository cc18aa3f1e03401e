package jit

import "testing"

func TestComposeRunsStepsInOrder(t *testing.T) {
	var order []int
	step := func(i int) Step {
		return func() StepResult {
			order = append(order, i)
			return StepContinue
		}
	}
	entry := compose([]Step{step(0), step(1), step(2)})
	if got := entry(); got != StepEndTrace {
		t.Fatalf("entry() = %v, want StepEndTrace at end of chain", got)
	}
	want := []int{0, 1, 2}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestComposeStopsAtFirstNonContinue(t *testing.T) {
	ran := 0
	stop := func() StepResult {
		ran++
		return StepEndTrace
	}
	neverRuns := func() StepResult {
		t.Fatalf("step after a non-continuing step must not run")
		return StepContinue
	}
	entry := compose([]Step{stop, neverRuns})
	if got := entry(); got != StepEndTrace {
		t.Errorf("entry() = %v, want StepEndTrace", got)
	}
	if ran != 1 {
		t.Errorf("stop ran %d times, want 1", ran)
	}
}

func TestComposeEmptyChainEndsTrace(t *testing.T) {
	entry := compose(nil)
	if got := entry(); got != StepEndTrace {
		t.Errorf("compose(nil)() = %v, want StepEndTrace", got)
	}
}

func TestManagerInstallAndLookup(t *testing.T) {
	m := NewManager(16)
	f := m.Install(2, 4, []Step{
		func() StepResult { return StepContinue },
		func() StepResult { return StepContinue },
	})
	if got := m.Lookup(2); got != f {
		t.Fatalf("Lookup(2) = %v, want the installed fragment", got)
	}
	if m.Resident() != 1 {
		t.Errorf("Resident() = %d, want 1", m.Resident())
	}
	if !f.Contains(3) {
		t.Errorf("fragment spanning [2,4] should contain slot 3")
	}
	if f.Contains(5) {
		t.Errorf("fragment spanning [2,4] should not contain slot 5")
	}
}

func TestManagerInvalidateRemovesFragmentStartingAtSlot(t *testing.T) {
	m := NewManager(16)
	m.Install(2, 4, []Step{func() StepResult { return StepContinue }})
	m.Invalidate(2)
	if got := m.Lookup(2); got != nil {
		t.Errorf("Lookup(2) after Invalidate(2) = %v, want nil", got)
	}
	if m.Resident() != 0 {
		t.Errorf("Resident() = %d, want 0", m.Resident())
	}
}

func TestManagerInvalidateMidSpanMarksCurrentAndPrevious(t *testing.T) {
	m := NewManager(16)
	// Two fragments whose spans overlap at slot 5: [2,6] and [5,8].
	m.Install(2, 6, []Step{func() StepResult { return StepContinue }})
	m.Install(5, 8, []Step{func() StepResult { return StepContinue }})
	if got := m.invalidation[5]; got != InvalidateCurrentAndPrevious {
		t.Fatalf("invalidation[5] = %v, want InvalidateCurrentAndPrevious", got)
	}
	m.Invalidate(5)
	if m.Lookup(2) != nil {
		t.Errorf("Invalidate(5) should have torn down the fragment starting at 2")
	}
	if m.Lookup(5) != nil {
		t.Errorf("Invalidate(5) should have torn down the fragment starting at 5")
	}
	if m.Resident() != 0 {
		t.Errorf("Resident() = %d, want 0", m.Resident())
	}
}

func TestManagerInvalidateNoopWhenNothingCompiled(t *testing.T) {
	m := NewManager(16)
	m.Invalidate(0) // must not panic on an empty manager
	if m.Resident() != 0 {
		t.Errorf("Resident() = %d, want 0", m.Resident())
	}
}

func TestManagerReclaimsUnreachableOnNextInstall(t *testing.T) {
	m := NewManager(16)
	first := m.Install(0, 1, []Step{func() StepResult { return StepContinue }})
	m.Invalidate(0)
	if !first.reclaimed {
		// Reclamation happens lazily, on the next Install call.
		m.Install(10, 10, []Step{func() StepResult { return StepContinue }})
	}
	if !first.reclaimed {
		t.Errorf("expected the invalidated fragment to be reclaimed by a later Install")
	}
	if first.entry != nil {
		t.Errorf("reclaimed fragment should have its entry closure released")
	}
}
