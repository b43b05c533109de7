package particle

// Moving window support. When the elapsed time crosses the next cell width
// the simulated frame shifts left by one cell: every particle's cell index
// drops by one, particles that fall off the trailing edge are tombstoned,
// and a fresh column of particles is scheduled at the leading edge.

// WindowTriggered reports whether the frame shifts this iteration.
func (s *State) WindowTriggered() bool {
	return s.Spec.MovingWindow &&
		float32(s.Iter)*s.Spec.Dt > s.Spec.Dx[0]*float32(s.NMove+1)
}

// MoveWindow shifts the frame and schedules the leading-edge injection into
// the window hand-off buffer, to be merged by the next sort. Injected
// particles are offset by the cumulative window shift so the density
// profile stays anchored to the lab frame.
func (s *State) MoveWindow() {
	if !s.WindowTriggered() {
		return
	}

	buf := s.Main
	for i := 0; i < buf.N; i++ {
		if buf.Dead[i] {
			continue
		}
		buf.Ix[i]--
		if buf.Ix[i] < 0 {
			buf.Dead[i] = true
		}
	}
	s.NMove++

	inj := s.Incoming[InWindow]
	nInj := s.Spec.PPC[0] * s.Spec.PPC[1] * (s.LimitsY[1] - s.LimitsY[0])

	// The previously injected column still sits in the buffer after the
	// sort drained it, so it can be revalidated in place -- but only when
	// every shift injects the identical column: an x-uniform profile and
	// zero initial momentum. Anything else must reinject.
	if s.windowFilled && s.reusableInjection() {
		inj.N = nInj
		for i := 0; i < nInj; i++ {
			inj.Dead[i] = false
		}
		return
	}

	inj.Clear()
	rng := [2][2]int{
		{s.Spec.Nx[0] - 1, s.Spec.Nx[0]},
		{s.LimitsY[0], s.LimitsY[1]},
	}
	Inject(inj, s.Spec, rng, s.NMove)
	s.windowFilled = inj.N == nInj
}

// reusableInjection reports whether the leading-edge column is the same for
// every window shift.
func (s *State) reusableInjection() bool {
	spec := s.Spec
	if spec.Density.Kind != Uniform {
		return false
	}
	for i := 0; i < 3; i++ {
		if spec.Ufl[i] != 0 || spec.Uth[i] != 0 {
			return false
		}
	}
	return true
}
