package particle

import (
	"math"
	"math/rand"
	"testing"

	"github.com/phil-mansfield/gopic/grid"
)

func uniformEMF(e, b grid.Vec3) *grid.EMF {
	em := grid.NewEMF([2]int{32, 32}, [2]float32{1, 1}, 0.07, false)
	for j := -grid.GuardY0; j < 32+grid.GuardY1; j++ {
		for i := -grid.GuardX0; i < 32+grid.GuardX1; i++ {
			*em.E.At(i, j) = e
			*em.B.At(i, j) = b
		}
	}
	return em
}

func testCurrent() *grid.Current {
	return grid.NewCurrent([2]int{32, 32}, [2]float32{1, 1}, 0.07, false)
}

func currentIsZero(cur *grid.Current) bool {
	for _, v := range cur.J.Data {
		if v != (grid.Vec3{}) {
			return false
		}
	}
	return true
}

func TestAdvanceAtRest(t *testing.T) {
	s := testState(32, 32, 0, 16)
	s.Main.Append(Particle{Ix: 5, Iy: 5, X: 0.5, Y: 0.5})
	s.Main.Append(Particle{Ix: 20, Iy: 28, X: 0.1, Y: 0.9})
	s.FullSort()

	em, cur := uniformEMF(grid.Vec3{}, grid.Vec3{}), testCurrent()
	s.Advance(em, cur)

	for k := 0; k < s.Main.N; k++ {
		p := s.Main.At(k)
		if p.Ux != 0 || p.Uy != 0 || p.Uz != 0 {
			t.Errorf("particle %d gained momentum (%g, %g, %g) "+
				"in zero fields", k, p.Ux, p.Uy, p.Uz)
		}
	}
	if !currentIsZero(cur) {
		t.Errorf("resting particles deposited current")
	}
	if s.Energy != 0 {
		t.Errorf("resting particles have kinetic energy %g", s.Energy)
	}
	if s.Iter != 1 {
		t.Errorf("iteration count is %d instead of 1", s.Iter)
	}
}

func TestAdvanceUniformEz(t *testing.T) {
	e0 := float32(0.5)
	s := testState(32, 32, 0, 16)
	s.Main.Append(Particle{Ix: 10, Iy: 10, X: 0.5, Y: 0.5})
	s.FullSort()

	em := uniformEMF(grid.Vec3{Z: e0}, grid.Vec3{})
	cur := testCurrent()
	s.Advance(em, cur)

	// A full step in a uniform field with no rotation is u' = u + qE dt/m.
	want := -s.Spec.Dt * e0
	p := s.Main.At(0)
	if math.Abs(float64(p.Uz-want)) > 1e-6 {
		t.Errorf("uz is %g instead of %g", p.Uz, want)
	}
	if p.Ux != 0 || p.Uy != 0 {
		t.Errorf("transverse field changed in-plane momentum "+
			"(%g, %g)", p.Ux, p.Uy)
	}
	if p.Ix != 10 || p.Iy != 10 {
		t.Errorf("out-of-plane momentum moved the particle to (%d, %d)",
			p.Ix, p.Iy)
	}
	if currentIsZero(cur) {
		t.Errorf("moving charge deposited no current")
	}
	if s.Energy <= 0 {
		t.Errorf("kinetic energy is %g after acceleration", s.Energy)
	}
}

func TestAdvanceUniformEx(t *testing.T) {
	e0 := float32(0.5)
	s := testState(32, 32, 0, 16)
	s.Main.Append(Particle{Ix: 10, Iy: 10, X: 0.5, Y: 0.5})
	s.FullSort()

	em := uniformEMF(grid.Vec3{X: e0}, grid.Vec3{})
	cur := testCurrent()
	s.Advance(em, cur)

	want := -s.Spec.Dt * e0
	p := s.Main.At(0)
	if math.Abs(float64(p.Ux-want)) > 1e-6 {
		t.Errorf("ux is %g instead of %g", p.Ux, want)
	}
	if p.X >= 0.5 {
		t.Errorf("electron did not move against the field: x = %g", p.X)
	}
}

func TestAdvanceCellCrossing(t *testing.T) {
	s := testState(32, 32, 0, 16)
	s.Main.Append(Particle{Ix: 15, Iy: 15, X: 0.99, Y: 0.5, Ux: 2})
	s.FullSort()

	em, cur := uniformEMF(grid.Vec3{}, grid.Vec3{}), testCurrent()
	s.Advance(em, cur)

	p := s.Main.At(0)
	if p.Ix != 16 {
		t.Fatalf("particle sits in cell %d instead of 16", p.Ix)
	}
	if p.X < 0 || p.X >= 1 {
		t.Errorf("sub-cell offset left [0, 1): %g", p.X)
	}

	wantX := float64(0.99) + 0.07*2/math.Sqrt(5) - 1
	if math.Abs(float64(p.X)-wantX) > 1e-6 {
		t.Errorf("x is %g instead of %g", p.X, wantX)
	}
}

func TestBorisPushMagneticRotation(t *testing.T) {
	ux, uy, uz := borisPush(
		0.1, 0, 0, grid.Vec3{}, grid.Vec3{Z: 1}, -0.035,
	)

	mag0 := 0.1
	mag := math.Sqrt(float64(ux*ux + uy*uy + uz*uz))
	if math.Abs(mag-mag0) > 1e-6 {
		t.Errorf("magnetic rotation changed |u| from %g to %g", mag0, mag)
	}
	if uy == 0 {
		t.Errorf("magnetic field did not rotate the momentum")
	}
	if uz != 0 {
		t.Errorf("in-plane rotation produced uz = %g", uz)
	}
}

func TestInterpolateUniformField(t *testing.T) {
	nrow := 6
	e := make([]grid.Vec3, nrow*nrow)
	b := make([]grid.Vec3, nrow*nrow)
	for i := range e {
		e[i] = grid.Vec3{X: 1, Y: 2, Z: 3}
		b[i] = grid.Vec3{X: 4, Y: 5, Z: 6}
	}

	positions := []struct{ x, y float32 }{
		{0.5, 0.5}, {0.01, 0.01}, {0.99, 0.99}, {0.25, 0.75}, {0, 0.49},
	}
	for i, pos := range positions {
		ep, bp := interpolate(e, b, nrow, 2, 2, pos.x, pos.y)
		if ep != (grid.Vec3{X: 1, Y: 2, Z: 3}) {
			t.Errorf("%d) E interpolates to %v at (%g, %g)",
				i, ep, pos.x, pos.y)
		}
		if bp != (grid.Vec3{X: 4, Y: 5, Z: 6}) {
			t.Errorf("%d) B interpolates to %v at (%g, %g)",
				i, bp, pos.x, pos.y)
		}
	}
}

// addRho accumulates the bilinear charge assignment of one particle.
func addRho(rho []float32, nrow, ix, iy int, x, y, q float32) {
	rho[ix+iy*nrow] += q * (1 - x) * (1 - y)
	rho[ix+1+iy*nrow] += q * x * (1 - y)
	rho[ix+(iy+1)*nrow] += q * (1 - x) * y
	rho[ix+1+(iy+1)*nrow] += q * x * y
}

// The deposited current must satisfy the discrete continuity equation at
// every node for any sub-step displacement, including cell crossings.
func TestDepositCurrentContinuity(t *testing.T) {
	gen := rand.New(rand.NewSource(13))
	nrow := 8
	q := float32(-1)

	for trial := 0; trial < 1000; trial++ {
		x0 := gen.Float32()
		y0 := gen.Float32()
		dx := 1.9*gen.Float32() - 0.95
		dy := 1.9*gen.Float32() - 0.95

		x1, y1 := x0+dx, y0+dy
		di, dj := ltrim(x1), ltrim(y1)

		j := make([]grid.Vec3, nrow*nrow)
		depositCurrent(j, nrow, 3, 3, int(di), int(dj),
			x0, y0, dx, dy, q, q, 0)

		rho0 := make([]float32, nrow*nrow)
		rho1 := make([]float32, nrow*nrow)
		addRho(rho0, nrow, 3, 3, x0, y0, q)
		addRho(rho1, nrow, 3+int(di), 3+int(dj),
			x1-float32(di), y1-float32(dj), q)

		for jy := 1; jy < nrow; jy++ {
			for ix := 1; ix < nrow; ix++ {
				k := ix + jy*nrow
				div := (j[k].X - j[k-1].X) + (j[k].Y - j[k-nrow].Y)
				resid := float64(rho1[k] - rho0[k] + div)

				if math.Abs(resid) > 1e-5 {
					t.Fatalf(
						"trial %d: continuity violated at node (%d, %d) "+
							"by %g for step (%g, %g) + (%g, %g)",
						trial, ix, jy, resid, x0, y0, dx, dy,
					)
				}
			}
		}
	}
}
