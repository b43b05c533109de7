package particle

import (
	"testing"
)

func windowState() *State {
	spec := injectSpec(Uniform, 0, 0)
	spec.MovingWindow = true
	s := NewState(spec, [2]int{0, 16}, 16)
	s.InitialFill()
	return s
}

func TestWindowTriggered(t *testing.T) {
	s := windowState()

	// dx = 1, dt = 0.07: the first shift lands after iteration 14.
	for iter := 0; iter <= 14; iter++ {
		s.Iter = iter
		if s.WindowTriggered() {
			t.Fatalf("window triggered at iteration %d", iter)
		}
	}
	s.Iter = 15
	if !s.WindowTriggered() {
		t.Errorf("window did not trigger at iteration 15")
	}

	s.Spec.MovingWindow = false
	if s.WindowTriggered() {
		t.Errorf("fixed window triggered")
	}
}

func TestMoveWindowShiftsAndInjects(t *testing.T) {
	s := windowState()
	n := s.Main.N
	s.Iter = 15

	s.MoveWindow()

	if s.NMove != 1 {
		t.Fatalf("NMove is %d instead of 1", s.NMove)
	}

	// The trailing column is tombstoned, everything else shifted left.
	dead := 0
	for k := 0; k < s.Main.N; k++ {
		if s.Main.Dead[k] {
			dead++
			continue
		}
		if s.Main.Ix[k] < 0 || s.Main.Ix[k] >= 31 {
			t.Fatalf("slot %d sits at ix = %d after the shift",
				k, s.Main.Ix[k])
		}
	}
	wantDead := s.Spec.PPC[0] * s.Spec.PPC[1] * 16
	if dead != wantDead {
		t.Errorf("%d particles fell off instead of %d", dead, wantDead)
	}

	// The leading-edge column is scheduled in the window hand-off.
	inj := s.Incoming[InWindow]
	if inj.N != wantDead {
		t.Fatalf("scheduled %d leading-edge particles instead of %d",
			inj.N, wantDead)
	}
	for k := 0; k < inj.N; k++ {
		if inj.Ix[k] != 31 {
			t.Fatalf("injected particle %d at ix = %d instead of 31",
				k, inj.Ix[k])
		}
	}

	// The next sort restores the particle count.
	s.Sort()
	if s.Main.N != n {
		t.Errorf("%d particles after the shift sort instead of %d",
			s.Main.N, n)
	}
	tileContents(t, s)
}

func TestMoveWindowReusesUniformColumn(t *testing.T) {
	s := windowState()
	s.Iter = 15
	s.MoveWindow()
	s.Sort()

	// The sort drained the column but left its bytes in place, so the
	// second shift may revalidate it instead of reinjecting.
	s.Iter = 30
	s.MoveWindow()

	want := s.Spec.PPC[0] * s.Spec.PPC[1] * 16
	inj := s.Incoming[InWindow]
	if inj.N != want {
		t.Fatalf("second shift scheduled %d particles instead of %d",
			inj.N, want)
	}
	for k := 0; k < inj.N; k++ {
		if inj.Dead[k] {
			t.Fatalf("reused column particle %d still tombstoned", k)
		}
		if inj.Ix[k] != 31 {
			t.Fatalf("reused column particle %d at ix = %d", k, inj.Ix[k])
		}
	}
}

func TestMoveWindowReinjectsShapedProfile(t *testing.T) {
	spec := injectSpec(Step, 40, 0)
	spec.MovingWindow = true
	s := NewState(spec, [2]int{0, 16}, 16)
	s.InitialFill()

	if s.Main.N != 0 {
		t.Fatalf("step at x = 40 filled %d particles inside the window",
			s.Main.N)
	}

	// Shift the window until the step enters through the leading edge.
	for shift := 1; shift <= 12; shift++ {
		s.Iter = 15 * shift
		s.MoveWindow()
		s.Sort()
	}

	// After 12 shifts the leading edge sits at lab cell 43: the last
	// four columns of the window are inside the step.
	want := 4 * s.Spec.PPC[0] * s.Spec.PPC[1] * 16
	if s.Main.Alive() != want {
		t.Errorf("window holds %d particles instead of %d",
			s.Main.Alive(), want)
	}
}
