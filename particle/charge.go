package particle

// DepositCharge adds each live particle's bilinearly weighted charge to
// rho, a row-major (nx + 1) x (regionNy + 1) grid over the region's slice
// with one pad cell per axis for the upper-edge weights. Used only by
// diagnostics, so the pad rows are folded by the caller.
func (s *State) DepositCharge(rho []float32) {
	buf := s.Main
	nrow := s.Spec.Nx[0] + 1
	q := s.Spec.Q

	for k := 0; k < buf.N; k++ {
		if buf.Dead[k] {
			continue
		}
		i := int(buf.Ix[k])
		j := int(buf.Iy[k]) - s.LimitsY[0]
		x, y := buf.X[k], buf.Y[k]

		rho[i+j*nrow] += q * (1 - x) * (1 - y)
		rho[i+1+j*nrow] += q * x * (1 - y)
		rho[i+(j+1)*nrow] += q * (1 - x) * y
		rho[i+1+(j+1)*nrow] += q * x * y
	}
}
